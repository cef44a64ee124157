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

package gormstore

import (
	"errors"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateDelegation inserts a delegation. A delegator may only hold one.
func (s *Store) CreateDelegation(
	delegation *models.Delegation,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return s.translateCreateError(db.Create(delegation).Error)
}

// GetDelegation returns the active delegation for a delegator, or nil
func (s *Store) GetDelegation(
	delegator string,
	txn types.Txn,
) (*models.Delegation, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.Delegation
	result := db.Where("delegator = ?", delegator).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

// GetDelegationsByDelegate returns every delegation naming a delegate
func (s *Store) GetDelegationsByDelegate(
	delegate string,
	txn types.Txn,
) ([]models.Delegation, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Delegation
	result := db.Where("delegate = ?", delegate).
		Order("delegator ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// DeleteDelegation removes the delegation held by a delegator
func (s *Store) DeleteDelegation(
	delegator string,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Where("delegator = ?", delegator).
		Delete(&models.Delegation{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrRecordNotFound
	}
	return nil
}

// GetDelegateStats returns the aggregate stats for a delegate, or nil
func (s *Store) GetDelegateStats(
	delegate string,
	txn types.Txn,
) (*models.DelegateStats, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.DelegateStats
	result := db.Where("delegate = ?", delegate).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

// SetDelegateStats creates or replaces the aggregate stats for a delegate
func (s *Store) SetDelegateStats(
	stats *models.DelegateStats,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "delegate"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"unique_delegators", "total_delegated"},
		),
	}).Create(stats)
	return result.Error
}

func (s *Store) CreateDelegatedVote(
	used *models.DelegatedVote,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return s.translateCreateError(db.Create(used).Error)
}

// GetDelegatedVote returns the record of a delegate voting delegator's
// stake on a proposal, or nil
func (s *Store) GetDelegatedVote(
	proposalID uint64,
	delegator string,
	txn types.Txn,
) (*models.DelegatedVote, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.DelegatedVote
	result := db.Where("proposal_id = ? AND delegator = ?", proposalID, delegator).
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

func (s *Store) GetDelegatedVotesByDelegator(
	delegator string,
	txn types.Txn,
) ([]models.DelegatedVote, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.DelegatedVote
	result := db.Where("delegator = ?", delegator).
		Order("proposal_id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
