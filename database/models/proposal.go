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

var ErrProposalNotFound = errors.New("proposal not found")

// Proposal status values. Status only ever moves forward through this list,
// with Cancelled reachable from Pending and Active.
const (
	ProposalStatusPending   = 0
	ProposalStatusActive    = 1
	ProposalStatusPassed    = 2
	ProposalStatusRejected  = 3
	ProposalStatusExecuted  = 4
	ProposalStatusCancelled = 5
)

// Proposal is an append-only governance proposal record. Tally fields hold
// weighted votes, either accumulated from open ballots or written once by
// the private voting reveal.
type Proposal struct {
	VotesFor      types.Uint256 `gorm:"not null"`
	VotesAgainst  types.Uint256 `gorm:"not null"`
	VotesAbstain  types.Uint256 `gorm:"not null"`
	Proposer      string        `gorm:"size:128;index;not null"`
	MetadataURI   string        `gorm:"column:metadata_uri;size:256"`
	MetadataHash  []byte        `gorm:"size:32"`
	ID            uint64        `gorm:"primaryKey;autoIncrement:false"`
	StartTime     int64         `gorm:"not null"`
	EndTime       int64         `gorm:"index;not null"`
	ExecutionTime int64
	VoteCount     uint64 `gorm:"not null"`
	SubmittedAt   int64  `gorm:"not null"`
	FinalizedAt   int64
	Category      uint8 `gorm:"index;not null"`
	Status        uint8 `gorm:"index;not null"`
	Executed      bool  `gorm:"not null"`
	IsPrivate     bool  `gorm:"not null"`
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}

// TotalVotes returns the sum of all tally buckets and false on overflow
func (p *Proposal) TotalVotes() (types.Uint256, bool) {
	total, ok := p.VotesFor.CheckedAdd(p.VotesAgainst)
	if !ok {
		return total, false
	}
	return total.CheckedAdd(p.VotesAbstain)
}
