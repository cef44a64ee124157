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
	"github.com/blinklabs-io/agora/database/models"
)

// GetGovernanceParams returns the parameter singleton
func (d *Database) GetGovernanceParams(
	txn *Txn,
) (*models.GovernanceParams, error) {
	ret, err := d.metadata.GetGovernanceParams(metadataTxn(txn))
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, models.ErrGovernanceParamsNotFound
	}
	return ret, nil
}

func (d *Database) CreateGovernanceParams(
	params *models.GovernanceParams,
	txn *Txn,
) error {
	return d.metadata.CreateGovernanceParams(params, metadataTxn(txn))
}

func (d *Database) SetGovernanceParams(
	params *models.GovernanceParams,
	txn *Txn,
) error {
	return d.metadata.SetGovernanceParams(params, metadataTxn(txn))
}

func (d *Database) CreateProposal(
	proposal *models.Proposal,
	txn *Txn,
) error {
	return d.metadata.CreateProposal(proposal, metadataTxn(txn))
}

// GetProposal returns a proposal by ID
func (d *Database) GetProposal(
	id uint64,
	txn *Txn,
) (*models.Proposal, error) {
	ret, err := d.metadata.GetProposal(id, metadataTxn(txn))
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, models.ErrProposalNotFound
	}
	return ret, nil
}

func (d *Database) SetProposal(
	proposal *models.Proposal,
	txn *Txn,
) error {
	return d.metadata.SetProposal(proposal, metadataTxn(txn))
}

// ProposalFilter narrows a proposal listing. A nil Status matches all.
type ProposalFilter struct {
	Status *uint8
	Limit  int
	Offset int
}

func (d *Database) GetProposals(
	filter ProposalFilter,
	txn *Txn,
) ([]models.Proposal, error) {
	return d.metadata.GetProposals(
		filter.Status,
		filter.Limit,
		filter.Offset,
		metadataTxn(txn),
	)
}
