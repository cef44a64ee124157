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

package event

// Governance event types
const (
	ProposalCreatedEventType          = EventType("governance.proposal.created")
	ProposalFinalizedEventType        = EventType("governance.proposal.finalized")
	ProposalExecutedEventType         = EventType("governance.proposal.executed")
	ProposalCancelledEventType        = EventType("governance.proposal.cancelled")
	VoteCastEventType                 = EventType("governance.vote.cast")
	DelegationCreatedEventType        = EventType("governance.delegation.created")
	DelegationRevokedEventType        = EventType("governance.delegation.revoked")
	PrivateVotingEnabledEventType     = EventType("governance.private.enabled")
	RevealInitiatedEventType          = EventType("governance.private.reveal_initiated")
	DecryptionShareSubmittedEventType = EventType("governance.private.share_submitted")
	RevealCompletedEventType          = EventType("governance.private.reveal_completed")
	ParamsUpdatedEventType            = EventType("governance.params.updated")
	AuthorityTransferredEventType     = EventType("governance.params.authority_transferred")
)

// GovernanceEventTypes lists every governance event type
var GovernanceEventTypes = []EventType{
	ProposalCreatedEventType,
	ProposalFinalizedEventType,
	ProposalExecutedEventType,
	ProposalCancelledEventType,
	VoteCastEventType,
	DelegationCreatedEventType,
	DelegationRevokedEventType,
	PrivateVotingEnabledEventType,
	RevealInitiatedEventType,
	DecryptionShareSubmittedEventType,
	RevealCompletedEventType,
	ParamsUpdatedEventType,
	AuthorityTransferredEventType,
}

// Tallies are decimal strings since they may exceed 64 bits.

type ProposalCreatedEvent struct {
	Proposer   string
	ProposalID uint64
	StartTime  int64
	EndTime    int64
	Category   uint8
	Status     uint8
}

type ProposalFinalizedEvent struct {
	VotesFor      string
	VotesAgainst  string
	VotesAbstain  string
	ProposalID    uint64
	ExecutionTime int64 // zero unless passed
	Status        uint8
}

type ProposalExecutedEvent struct {
	ProposalID uint64
	ExecutedAt int64
	Category   uint8
}

type ProposalCancelledEvent struct {
	CancelledBy string
	ProposalID  uint64
}

// VoteCastEvent is emitted for both open and private ballots. Choice is
// meaningless for private ballots.
type VoteCastEvent struct {
	Voter      string
	ProposalID uint64
	Weight     uint64
	Choice     uint8
	AsDelegate bool
	Private    bool
}

type DelegationCreatedEvent struct {
	Delegator    string
	Delegate     string
	Amount       uint64
	ProposalID   uint64
	Expiry       int64
	CategoryMask uint32
	Type         uint8
	Revocable    bool
}

type DelegationRevokedEvent struct {
	Delegator string
	Delegate  string
	Amount    uint64
}

type PrivateVotingEnabledEvent struct {
	Committee  []string
	ProposalID uint64
	Threshold  uint8
}

type RevealInitiatedEvent struct {
	InitiatedBy string
	ProposalID  uint64
}

type DecryptionShareSubmittedEvent struct {
	Member         string
	ProposalID     uint64
	CommitteeIndex uint8
	SharesReceived uint8
}

type RevealCompletedEvent struct {
	VotesFor     string
	VotesAgainst string
	VotesAbstain string
	ProposalID   uint64
}

type ParamsUpdatedEvent struct {
	UpdatedBy string
	Paused    bool
}

// AuthorityTransferredEvent is emitted when the pending authority accepts
type AuthorityTransferredEvent struct {
	Previous string
	Current  string
}
