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

// Package gormstore implements the metadata store on top of GORM. The sqlite
// and postgres plugins share it and differ only in how they open the
// connection and classify unique-constraint violations.
package gormstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"
)

const (
	commitTimestampRowId = 1
)

// CommitTimestamp represents the table used to track the current commit timestamp
type CommitTimestamp struct {
	ID        uint `gorm:"primarykey"`
	Timestamp int64
}

func (CommitTimestamp) TableName() string {
	return "commit_timestamp"
}

// UniqueViolationFunc reports whether a driver error is a unique-constraint violation
type UniqueViolationFunc func(error) bool

// Store is a GORM-backed metadata store
type Store struct {
	db                *gorm.DB
	logger            *slog.Logger
	isUniqueViolation UniqueViolationFunc
}

// New wraps an open GORM handle, enables tracing and migrates the schema
func New(
	db *gorm.DB,
	logger *slog.Logger,
	isUniqueViolation UniqueViolationFunc,
) (*Store, error) {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if isUniqueViolation == nil {
		isUniqueViolation = func(err error) bool {
			return errors.Is(err, gorm.ErrDuplicatedKey)
		}
	}
	s := &Store{
		db:                db,
		logger:            logger,
		isUniqueViolation: isUniqueViolation,
	}
	// Configure tracing for GORM
	if err := s.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	// Create table schemas
	s.logger.Debug(fmt.Sprintf("creating table: %#v", &CommitTimestamp{}))
	if err := s.db.AutoMigrate(&CommitTimestamp{}); err != nil {
		return nil, err
	}
	for _, model := range models.MigrateModels {
		s.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := s.db.AutoMigrate(model); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// DB returns the underlying GORM database handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Logger returns the store logger
func (s *Store) Logger() *slog.Logger {
	return s.logger
}

// Transaction begins a new metadata transaction
func (s *Store) Transaction() types.Txn {
	return &metadataTxn{
		store: s,
		db:    s.db.Begin(),
	}
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return db.Close()
}

// metadataTxn wraps a GORM transaction and implements types.Txn
type metadataTxn struct {
	store    *Store
	db       *gorm.DB
	finished bool
}

func (t *metadataTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.db.Commit().Error
}

func (t *metadataTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.db.Rollback().Error
}

// resolveDB returns the GORM handle to use for a query: the transaction's
// handle when one is given, otherwise the base connection
func (s *Store) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return s.db, nil
	}
	mTxn, ok := txn.(*metadataTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if mTxn.store != s {
		return nil, errors.New("transaction from different store")
	}
	if mTxn.finished {
		return nil, errors.New("transaction already finished")
	}
	if mTxn.db.Error != nil {
		return nil, mTxn.db.Error
	}
	return mTxn.db, nil
}

// translateCreateError maps a unique violation to types.ErrAlreadyExists
func (s *Store) translateCreateError(err error) error {
	if err == nil {
		return nil
	}
	if s.isUniqueViolation(err) {
		return fmt.Errorf("%w: %w", types.ErrAlreadyExists, err)
	}
	return err
}

func (s *Store) GetCommitTimestamp() (int64, error) {
	var tmpCommitTimestamp CommitTimestamp
	result := s.db.First(&tmpCommitTimestamp)
	if result.Error != nil {
		// It's not an error if there's no records found
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return tmpCommitTimestamp.Timestamp, nil
}

func (s *Store) SetCommitTimestamp(
	timestamp int64,
	txn types.Txn,
) error {
	tmpCommitTimestamp := CommitTimestamp{
		ID:        commitTimestampRowId,
		Timestamp: timestamp,
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timestamp"}),
	}).Create(&tmpCommitTimestamp)
	if result.Error != nil {
		return result.Error
	}
	return nil
}
