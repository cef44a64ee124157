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

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/types"
)

func (d *Database) CreateDelegation(
	delegation *models.Delegation,
	txn *Txn,
) error {
	return d.metadata.CreateDelegation(delegation, metadataTxn(txn))
}

// GetDelegation returns the delegation held by a delegator
func (d *Database) GetDelegation(
	delegator string,
	txn *Txn,
) (*models.Delegation, error) {
	ret, err := d.metadata.GetDelegation(delegator, metadataTxn(txn))
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, models.ErrDelegationNotFound
	}
	return ret, nil
}

func (d *Database) GetDelegationsByDelegate(
	delegate string,
	txn *Txn,
) ([]models.Delegation, error) {
	return d.metadata.GetDelegationsByDelegate(delegate, metadataTxn(txn))
}

func (d *Database) DeleteDelegation(
	delegator string,
	txn *Txn,
) error {
	err := d.metadata.DeleteDelegation(delegator, metadataTxn(txn))
	if errors.Is(err, types.ErrRecordNotFound) {
		return models.ErrDelegationNotFound
	}
	return err
}

// GetDelegateStats returns the stats of a delegate. A delegate that has
// never received a delegation has zero stats.
func (d *Database) GetDelegateStats(
	delegate string,
	txn *Txn,
) (*models.DelegateStats, error) {
	ret, err := d.metadata.GetDelegateStats(delegate, metadataTxn(txn))
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return &models.DelegateStats{Delegate: delegate}, nil
	}
	return ret, nil
}

func (d *Database) SetDelegateStats(
	stats *models.DelegateStats,
	txn *Txn,
) error {
	return d.metadata.SetDelegateStats(stats, metadataTxn(txn))
}

func (d *Database) CreateDelegatedVote(
	used *models.DelegatedVote,
	txn *Txn,
) error {
	return d.metadata.CreateDelegatedVote(used, metadataTxn(txn))
}

func (d *Database) GetDelegatedVote(
	proposalID uint64,
	delegator string,
	txn *Txn,
) (*models.DelegatedVote, error) {
	ret, err := d.metadata.GetDelegatedVote(proposalID, delegator, metadataTxn(txn))
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, models.ErrDelegatedVoteNotFound
	}
	return ret, nil
}

// GetDelegatedVotesByDelegator returns every proposal on which a delegate
// voted the delegator's stake
func (d *Database) GetDelegatedVotesByDelegator(
	delegator string,
	txn *Txn,
) ([]models.DelegatedVote, error) {
	return d.metadata.GetDelegatedVotesByDelegator(delegator, metadataTxn(txn))
}
