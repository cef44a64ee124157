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

var ErrDelegationNotFound = errors.New("delegation not found")

// Delegation type values
const (
	DelegationTypeFull        = 0
	DelegationTypePerCategory = 1
	DelegationTypePerProposal = 2
)

// Delegation assigns a delegator's stake to a delegate. The delegator is the
// primary key, so a delegator holds at most one delegation at a time.
type Delegation struct {
	Delegator    string `gorm:"primaryKey;size:128"`
	Delegate     string `gorm:"index;size:128;not null"`
	Amount       uint64 `gorm:"not null"`
	ProposalID   uint64 // target proposal for per-proposal delegations
	Expiry       int64  `gorm:"not null"` // 0 = no expiry
	DelegatedAt  int64  `gorm:"not null"`
	CategoryMask uint32 `gorm:"not null"`
	Type         uint8  `gorm:"not null"`
	Revocable    bool   `gorm:"not null"`
}

// TableName returns the table name
func (Delegation) TableName() string {
	return "delegation"
}

// DelegateStats aggregates the delegations received by a delegate
type DelegateStats struct {
	TotalDelegated   types.Uint256 `gorm:"not null"`
	Delegate         string        `gorm:"primaryKey;size:128"`
	UniqueDelegators uint64        `gorm:"not null"`
}

// TableName returns the table name
func (DelegateStats) TableName() string {
	return "delegate_stats"
}
