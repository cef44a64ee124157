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

import "errors"

var (
	ErrVoteRecordNotFound    = errors.New("vote record not found")
	ErrDelegatedVoteNotFound = errors.New("delegated vote not found")
)

// Vote choice values
const (
	VoteAgainst = 0
	VoteFor     = 1
	VoteAbstain = 2
)

// VoteRecord is the single ballot a voter casts on a proposal. The unique
// index on (proposal_id, voter) is what prevents double voting. Private
// ballots keep their sealed payload in the blob store and reference it by
// BallotHash; Choice is meaningless for them.
type VoteRecord struct {
	Voter           string `gorm:"uniqueIndex:idx_vote_unique,priority:2;size:128;not null"`
	BallotHash      []byte `gorm:"size:32"`
	ID              uint   `gorm:"primarykey"`
	ProposalID      uint64 `gorm:"index:idx_vote_proposal;uniqueIndex:idx_vote_unique,priority:1;not null"`
	Weight          uint64 `gorm:"not null"`
	DelegatedAmount uint64 `gorm:"not null"` // stake received from delegators and folded into Weight
	ExcludedStake   uint64 `gorm:"not null"` // own stake left out of Weight because it was delegated away
	Timestamp       int64  `gorm:"not null"`
	Choice          uint8  `gorm:"not null"`
	AsDelegate      bool   `gorm:"not null"`
	IsPrivate       bool   `gorm:"not null"`
	Revealed        bool   `gorm:"not null"`
}

// TableName returns the table name
func (VoteRecord) TableName() string {
	return "vote_record"
}

// DelegatedVote records the stake of one delegator that a delegate voted on
// a proposal
type DelegatedVote struct {
	Delegator  string `gorm:"uniqueIndex:idx_delegated_vote_unique,priority:2;index:idx_delegated_vote_delegator;size:128;not null"`
	Delegate   string `gorm:"size:128;not null"`
	ID         uint   `gorm:"primarykey"`
	ProposalID uint64 `gorm:"uniqueIndex:idx_delegated_vote_unique,priority:1;not null"`
	Amount     uint64 `gorm:"not null"`
}

func (DelegatedVote) TableName() string {
	return "delegated_vote"
}
