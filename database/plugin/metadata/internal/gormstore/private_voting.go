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
)

// CreatePrivateVotingConfig inserts the private voting config of a proposal
func (s *Store) CreatePrivateVotingConfig(
	cfg *models.PrivateVotingConfig,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return s.translateCreateError(db.Create(cfg).Error)
}

// GetPrivateVotingConfig returns the private voting config of a proposal, or nil
func (s *Store) GetPrivateVotingConfig(
	proposalID uint64,
	txn types.Txn,
) (*models.PrivateVotingConfig, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.PrivateVotingConfig
	result := db.Where("proposal_id = ?", proposalID).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

// SetPrivateVotingConfig overwrites an existing private voting config
func (s *Store) SetPrivateVotingConfig(
	cfg *models.PrivateVotingConfig,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.PrivateVotingConfig{}).
		Where("proposal_id = ?", cfg.ProposalID).
		Select("*").
		Updates(cfg)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrRecordNotFound
	}
	return nil
}

// CreateDecryptionShare records a committee member's share. Only one share
// per committee index is accepted.
func (s *Store) CreateDecryptionShare(
	share *models.DecryptionShare,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return s.translateCreateError(db.Create(share).Error)
}

// GetDecryptionShares returns the shares submitted for a proposal ordered by
// committee index
func (s *Store) GetDecryptionShares(
	proposalID uint64,
	txn types.Txn,
) ([]models.DecryptionShare, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.DecryptionShare
	result := db.Where("proposal_id = ?", proposalID).
		Order("committee_index ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
