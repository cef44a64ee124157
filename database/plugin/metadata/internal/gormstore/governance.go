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

// GetGovernanceParams returns the parameter singleton, or nil when it has not
// been initialized
func (s *Store) GetGovernanceParams(
	txn types.Txn,
) (*models.GovernanceParams, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.GovernanceParams
	result := db.Where("id = ?", models.GovernanceParamsRowID).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

// CreateGovernanceParams inserts the parameter singleton
func (s *Store) CreateGovernanceParams(
	params *models.GovernanceParams,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	params.ID = models.GovernanceParamsRowID
	return s.translateCreateError(db.Create(params).Error)
}

// SetGovernanceParams overwrites the parameter singleton
func (s *Store) SetGovernanceParams(
	params *models.GovernanceParams,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	params.ID = models.GovernanceParamsRowID
	result := db.Model(&models.GovernanceParams{}).
		Where("id = ?", params.ID).
		Select("*").
		Updates(params)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrRecordNotFound
	}
	return nil
}

// CreateProposal inserts a new proposal
func (s *Store) CreateProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return s.translateCreateError(db.Create(proposal).Error)
}

// GetProposal returns a proposal by ID, or nil when it does not exist
func (s *Store) GetProposal(
	id uint64,
	txn types.Txn,
) (*models.Proposal, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.Proposal
	result := db.Where("id = ?", id).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

// SetProposal overwrites an existing proposal
func (s *Store) SetProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Proposal{}).
		Where("id = ?", proposal.ID).
		Select("*").
		Updates(proposal)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrRecordNotFound
	}
	return nil
}

// GetProposals returns proposals ordered by ID. A nil status matches every
// status and a non-positive limit returns all rows.
func (s *Store) GetProposals(
	status *uint8,
	limit int,
	offset int,
	txn types.Txn,
) ([]models.Proposal, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	query := db.Model(&models.Proposal{}).Order("id ASC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var ret []models.Proposal
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// CreateVoteRecord inserts a vote record. A second vote by the same voter on
// the same proposal fails with types.ErrAlreadyExists.
func (s *Store) CreateVoteRecord(
	vote *models.VoteRecord,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return s.translateCreateError(db.Create(vote).Error)
}

// GetVoteRecord returns the vote of a voter on a proposal, or nil
func (s *Store) GetVoteRecord(
	proposalID uint64,
	voter string,
	txn types.Txn,
) (*models.VoteRecord, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.VoteRecord
	result := db.Where("proposal_id = ? AND voter = ?", proposalID, voter).
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

// GetVoteRecords returns all votes on a proposal in insertion order
func (s *Store) GetVoteRecords(
	proposalID uint64,
	txn types.Txn,
) ([]models.VoteRecord, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.VoteRecord
	result := db.Where("proposal_id = ?", proposalID).
		Order("id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetVoteRecordsRevealed marks every vote on a proposal as revealed
func (s *Store) SetVoteRecordsRevealed(
	proposalID uint64,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.VoteRecord{}).
		Where("proposal_id = ?", proposalID).
		Update("revealed", true)
	return result.Error
}
