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

package postgres

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/blinklabs-io/agora/database/plugin/metadata/internal/gormstore"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// pgUniqueViolation is the SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// MetadataStorePostgres stores metadata in Postgres.
type MetadataStorePostgres struct {
	*gormstore.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger

	host     string
	port     uint
	user     string
	password string
	database string
	sslMode  string
	timeZone string
	dsn      string // Data source name (postgres connection string)
}

// NewWithOptions connects to Postgres and migrates the schema
func NewWithOptions(opts ...PostgresOptionFunc) (*MetadataStorePostgres, error) {
	d := &MetadataStorePostgres{}
	for _, opt := range opts {
		opt(d)
	}
	// Set defaults after options are applied
	if d.host == "" {
		d.host = "localhost"
	}
	if d.port == 0 {
		d.port = 5432
	}
	if d.user == "" {
		d.user = "postgres"
	}
	if d.database == "" {
		d.database = "postgres"
	}
	if d.sslMode == "" {
		d.sslMode = "disable"
	}
	if d.timeZone == "" {
		d.timeZone = "UTC"
	}
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	metadataDb, err := gorm.Open(
		postgres.Open(d.DSN()),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return nil, err
	}
	store, err := gormstore.New(metadataDb, d.logger, IsUniqueViolation)
	if err != nil {
		return nil, err
	}
	d.Store = store
	return d, nil
}

// DSN returns the connection string, built from the individual settings
// unless an explicit DSN was given
func (d *MetadataStorePostgres) DSN() string {
	if dsn := strings.TrimSpace(d.dsn); dsn != "" {
		return dsn
	}
	parts := []string{
		"host=" + d.host,
		"user=" + d.user,
	}
	// An empty value would swallow the next keyword
	if d.password != "" {
		parts = append(parts, "password="+d.password)
	}
	parts = append(
		parts,
		"dbname="+d.database,
		"port="+strconv.FormatUint(uint64(d.port), 10),
		"sslmode="+d.sslMode,
	)
	if d.timeZone != "" {
		parts = append(parts, "TimeZone="+d.timeZone)
	}
	return strings.Join(parts, " ")
}

// IsUniqueViolation reports whether err carries the Postgres unique_violation code
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
