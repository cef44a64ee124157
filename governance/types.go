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

package governance

import (
	"fmt"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/types"
)

type ProposalStatus uint8

const (
	ProposalStatusPending   ProposalStatus = models.ProposalStatusPending
	ProposalStatusActive    ProposalStatus = models.ProposalStatusActive
	ProposalStatusPassed    ProposalStatus = models.ProposalStatusPassed
	ProposalStatusRejected  ProposalStatus = models.ProposalStatusRejected
	ProposalStatusExecuted  ProposalStatus = models.ProposalStatusExecuted
	ProposalStatusCancelled ProposalStatus = models.ProposalStatusCancelled
)

var proposalStatusNames = map[ProposalStatus]string{
	ProposalStatusPending:   "pending",
	ProposalStatusActive:    "active",
	ProposalStatusPassed:    "passed",
	ProposalStatusRejected:  "rejected",
	ProposalStatusExecuted:  "executed",
	ProposalStatusCancelled: "cancelled",
}

func (s ProposalStatus) String() string {
	if name, ok := proposalStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// ParseProposalStatus accepts the names returned by String
func ParseProposalStatus(name string) (ProposalStatus, error) {
	for k, v := range proposalStatusNames {
		if v == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown proposal status %q", ErrInvalidInput, name)
}

// Vote is a ballot choice. The values double as tally bucket indexes.
type Vote uint8

const (
	VoteAgainst Vote = models.VoteAgainst
	VoteFor     Vote = models.VoteFor
	VoteAbstain Vote = models.VoteAbstain
)

func (v Vote) Valid() bool {
	return v <= VoteAbstain
}

func (v Vote) String() string {
	switch v {
	case VoteAgainst:
		return "against"
	case VoteFor:
		return "for"
	case VoteAbstain:
		return "abstain"
	}
	return fmt.Sprintf("unknown(%d)", uint8(v))
}

type DelegationType uint8

const (
	DelegationTypeFull        DelegationType = models.DelegationTypeFull
	DelegationTypePerCategory DelegationType = models.DelegationTypePerCategory
	DelegationTypePerProposal DelegationType = models.DelegationTypePerProposal
)

func (t DelegationType) Valid() bool {
	return t <= DelegationTypePerProposal
}

// Category classifies a proposal and selects its executor
type Category uint8

const (
	CategoryGeneral Category = iota
	CategoryParameterChange
	CategoryTreasury
	CategoryProtocolUpgrade
	CategoryEmergency

	categoryCount
)

// AllCategories is the mask with every category bit set
const AllCategories uint32 = 1<<categoryCount - 1

func (c Category) Valid() bool {
	return c < categoryCount
}

// Mask returns the category's bit in a delegation category mask
func (c Category) Mask() uint32 {
	return 1 << c
}

func (c Category) String() string {
	switch c {
	case CategoryGeneral:
		return "general"
	case CategoryParameterChange:
		return "parameter_change"
	case CategoryTreasury:
		return "treasury"
	case CategoryProtocolUpgrade:
		return "protocol_upgrade"
	case CategoryEmergency:
		return "emergency"
	}
	return fmt.Sprintf("unknown(%d)", uint8(c))
}

// MaxMetadataURILength bounds Proposal.MetadataURI
const MaxMetadataURILength = 256

type CreateProposalRequest struct {
	MetadataURI  string
	MetadataHash []byte
	Category     Category
}

type DelegateRequest struct {
	Delegate     string
	Amount       uint64
	ProposalID   uint64 // target of a per-proposal delegation
	Expiry       int64  // unix seconds, 0 for none
	CategoryMask uint32
	Type         DelegationType
	Revocable    bool
}

// SealedBallot is an encrypted private vote with its well-formedness proof
type SealedBallot struct {
	Ciphertext []byte
	Proof      []byte
}

// WeightedSealedBallot is a stored private ballot with the public weight it
// was cast with
type WeightedSealedBallot struct {
	Voter string
	SealedBallot
	Weight uint64
}

type EnablePrivateVotingRequest struct {
	EncryptionKey []byte
	Committee     []string
	Threshold     uint8
}

// MaxShareSize bounds a decryption share payload
const MaxShareSize = 4096

// RevealedTotals are the decrypted per-choice sums of a private proposal
type RevealedTotals struct {
	For     types.Uint256
	Against types.Uint256
	Abstain types.Uint256
}

// Params initializes the governance parameters
type Params struct {
	Quorum            types.Uint256
	ProposalThreshold uint64
	VotingPeriod      int64 // seconds
	VotingDelay       int64 // seconds
	TimelockDelay     int64 // seconds
}

// ParamsUpdate changes the non-nil governance parameters
type ParamsUpdate struct {
	Quorum            *types.Uint256
	ProposalThreshold *uint64
	VotingPeriod      *int64
	VotingDelay       *int64
	TimelockDelay     *int64
}

// ProposalFilter selects a page of proposals
type ProposalFilter struct {
	Status *ProposalStatus
	Limit  int
	Offset int
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)
