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

package metadata

import (
	"fmt"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/plugin"
	_ "github.com/blinklabs-io/agora/database/plugin/metadata/postgres"
	_ "github.com/blinklabs-io/agora/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/agora/database/types"
	"gorm.io/gorm"
)

// DefaultPluginName is the metadata plugin used when none is configured
const DefaultPluginName = "sqlite"

// MetadataStore is the relational half of the database. Getters return a nil
// record and nil error when the record does not exist. Creates return an
// error wrapping types.ErrAlreadyExists when they would violate a uniqueness
// constraint.
type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Governance parameters
	GetGovernanceParams(types.Txn) (*models.GovernanceParams, error)
	CreateGovernanceParams(*models.GovernanceParams, types.Txn) error
	SetGovernanceParams(*models.GovernanceParams, types.Txn) error

	// Proposals
	CreateProposal(*models.Proposal, types.Txn) error
	GetProposal(uint64, types.Txn) (*models.Proposal, error)
	SetProposal(*models.Proposal, types.Txn) error
	GetProposals(*uint8, int, int, types.Txn) ([]models.Proposal, error)

	// Votes
	CreateVoteRecord(*models.VoteRecord, types.Txn) error
	GetVoteRecord(uint64, string, types.Txn) (*models.VoteRecord, error)
	GetVoteRecords(uint64, types.Txn) ([]models.VoteRecord, error)
	SetVoteRecordsRevealed(uint64, types.Txn) error
	CreateDelegatedVote(*models.DelegatedVote, types.Txn) error
	GetDelegatedVote(uint64, string, types.Txn) (*models.DelegatedVote, error)
	GetDelegatedVotesByDelegator(string, types.Txn) ([]models.DelegatedVote, error)

	// Delegations
	CreateDelegation(*models.Delegation, types.Txn) error
	GetDelegation(string, types.Txn) (*models.Delegation, error)
	GetDelegationsByDelegate(string, types.Txn) ([]models.Delegation, error)
	DeleteDelegation(string, types.Txn) error
	GetDelegateStats(string, types.Txn) (*models.DelegateStats, error)
	SetDelegateStats(*models.DelegateStats, types.Txn) error

	// Private voting
	CreatePrivateVotingConfig(*models.PrivateVotingConfig, types.Txn) error
	GetPrivateVotingConfig(uint64, types.Txn) (*models.PrivateVotingConfig, error)
	SetPrivateVotingConfig(*models.PrivateVotingConfig, types.Txn) error
	CreateDecryptionShare(*models.DecryptionShare, types.Txn) error
	GetDecryptionShares(uint64, types.Txn) ([]models.DecryptionShare, error)
}

// New returns the started metadata plugin selected by name
func New(pluginName string, opts plugin.Options) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName, opts)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		_ = p.Close()
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
