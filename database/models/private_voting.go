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

package models

import (
	"errors"

	"github.com/blinklabs-io/agora/database/types"
)

var ErrPrivateVotingConfigNotFound = errors.New("private voting config not found")

// MaxCommitteeSize is the largest decryption committee a proposal may name
const MaxCommitteeSize = 5

// PrivateVotingConfig holds the encrypted-ballot configuration and reveal
// progress of a private proposal.
type PrivateVotingConfig struct {
	RevealedFor     types.Uint256 `gorm:"not null"`
	RevealedAgainst types.Uint256 `gorm:"not null"`
	RevealedAbstain types.Uint256 `gorm:"not null"`
	// CastWeight is the summed eligible weight of all sealed ballots, which
	// bounds the totals accepted at reveal.
	CastWeight      types.Uint256 `gorm:"not null"`
	EncryptionKey   []byte        `gorm:"size:32;not null"`
	Committee       []string      `gorm:"serializer:json;not null"`
	ProposalID      uint64        `gorm:"primaryKey;autoIncrement:false"`
	EnabledAt       int64         `gorm:"not null"`
	Threshold       uint8         `gorm:"not null"`
	SharesReceived  uint8         `gorm:"not null"`
	RevealStarted   bool          `gorm:"not null"`
	RevealCompleted bool          `gorm:"not null"`
}

// TableName returns the table name
func (PrivateVotingConfig) TableName() string {
	return "private_voting_config"
}

// CommitteeIndex returns the committee slot held by member, or -1
func (c *PrivateVotingConfig) CommitteeIndex(member string) int {
	for i, m := range c.Committee {
		if m == member {
			return i
		}
	}
	return -1
}

// DecryptionShare is the durable audit record of a committee member's
// submitted share. The payload itself lives in the blob store.
type DecryptionShare struct {
	Member         string `gorm:"size:128;not null"`
	ShareHash      []byte `gorm:"size:32;not null"`
	ID             uint   `gorm:"primarykey"`
	ProposalID     uint64 `gorm:"uniqueIndex:idx_share_unique,priority:1;not null"`
	SubmittedAt    int64  `gorm:"not null"`
	CommitteeIndex uint8  `gorm:"uniqueIndex:idx_share_unique,priority:2;not null"`
}

// TableName returns the table name
func (DecryptionShare) TableName() string {
	return "decryption_share"
}
