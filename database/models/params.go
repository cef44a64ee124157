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

var ErrGovernanceParamsNotFound = errors.New("governance parameters not found")

// GovernanceParamsRowID is the fixed primary key of the singleton parameters row
const GovernanceParamsRowID = 1

// GovernanceParams holds the singleton governance configuration. The
// authority may hand over control with a two-phase propose/accept handshake
// recorded in PendingAuthority.
type GovernanceParams struct {
	Quorum            types.Uint256 `gorm:"not null"`
	Authority         string        `gorm:"size:128;not null"`
	PendingAuthority  string        `gorm:"size:128"`
	ID                uint          `gorm:"primarykey"`
	ProposalThreshold uint64        `gorm:"not null"`
	VotingPeriod      int64         `gorm:"not null"` // seconds
	VotingDelay       int64         `gorm:"not null"` // seconds between creation and start
	TimelockDelay     int64         `gorm:"not null"` // seconds between passing and execution
	ProposalCount     uint64        `gorm:"not null"`
	LastUpdated       int64
	Paused            bool `gorm:"not null"`
}

// TableName returns the table name
func (GovernanceParams) TableName() string {
	return "governance_params"
}
