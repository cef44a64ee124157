// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opGet    = "get"
	opSet    = "set"
	opDelete = "delete"
)

type blobMetrics struct {
	ops *prometheus.CounterVec
}

func newBlobMetrics(
	promRegistry prometheus.Registerer,
	db *badger.DB,
) *blobMetrics {
	promautoFactory := promauto.With(promRegistry)
	m := &blobMetrics{
		ops: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_blob_operations_total",
				Help: "total blob store operations by type",
			},
			[]string{"op"},
		),
	}
	promautoFactory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "agora_blob_lsm_size_bytes",
			Help: "size of the blob store LSM tree",
		},
		func() float64 {
			lsm, _ := db.Size()
			return float64(lsm)
		},
	)
	promautoFactory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "agora_blob_vlog_size_bytes",
			Help: "size of the blob store value log",
		},
		func() float64 {
			_, vlog := db.Size()
			return float64(vlog)
		},
	)
	return m
}

// observe counts an operation. It is safe to call on a nil receiver.
func (m *blobMetrics) observe(op string) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op).Inc()
}
