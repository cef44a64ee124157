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

package database

import (
	"errors"
	"io"
	"log/slog"

	"github.com/blinklabs-io/agora/database/plugin"
	"github.com/blinklabs-io/agora/database/plugin/blob"
	"github.com/blinklabs-io/agora/database/plugin/metadata"
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the storage settings. An empty DataDir keeps both stores in
// memory.
type Config struct {
	PromRegistry   prometheus.Registerer
	Logger         *slog.Logger
	BlobPlugin     string
	MetadataPlugin string
	DataDir        string
	// MetadataDSN is the connection string for network metadata backends
	MetadataDSN string
}

// Database pairs a metadata store with a blob store and keeps them
// consistent through Txn
type Database struct {
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
	dataDir  string
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

// New opens the configured metadata and blob plugins and verifies that they
// were last committed together
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	metadataPlugin := cfg.MetadataPlugin
	if metadataPlugin == "" {
		metadataPlugin = metadata.DefaultPluginName
	}
	blobPlugin := cfg.BlobPlugin
	if blobPlugin == "" {
		blobPlugin = blob.DefaultPluginName
	}
	pluginOpts := plugin.Options{
		Logger:       logger,
		PromRegistry: cfg.PromRegistry,
		DataDir:      cfg.DataDir,
		DSN:          cfg.MetadataDSN,
	}
	metadataDb, err := metadata.New(metadataPlugin, pluginOpts)
	if err != nil {
		return nil, err
	}
	blobDb, err := blob.New(blobPlugin, pluginOpts)
	if err != nil {
		_ = metadataDb.Close()
		return nil, err
	}
	db := &Database{
		logger:   logger,
		blob:     blobDb,
		metadata: metadataDb,
		dataDir:  cfg.DataDir,
	}
	if err := db.checkCommitTimestamp(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
