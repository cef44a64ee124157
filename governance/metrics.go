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

package governance

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type engineMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func newEngineMetrics(promRegistry prometheus.Registerer) *engineMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &engineMetrics{
		operations: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_governance_operations_total",
				Help: "governance operations by result",
			},
			[]string{"op", "result"},
		),
		latency: promautoFactory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agora_governance_operation_duration_seconds",
				Help:    "governance operation latency",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
			},
			[]string{"op"},
		),
	}
}

// observe records an operation outcome. Failures are labelled with their
// error kind.
func (m *engineMetrics) observe(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		if kind := KindOf(err); kind != nil {
			result = kind.Error()
		}
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}
