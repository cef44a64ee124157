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

package api

import (
	"encoding/hex"

	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/types"
	"github.com/blinklabs-io/agora/governance"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id,omitempty"`
}

type ParamsRequest struct {
	Quorum            types.Uint256 `json:"quorum"`
	ProposalThreshold uint64        `json:"proposal_threshold"`
	VotingPeriod      int64         `json:"voting_period"`
	VotingDelay       int64         `json:"voting_delay"`
	TimelockDelay     int64         `json:"timelock_delay"`
}

type ParamsUpdateRequest struct {
	Quorum            *types.Uint256 `json:"quorum,omitempty"`
	ProposalThreshold *uint64        `json:"proposal_threshold,omitempty"`
	VotingPeriod      *int64         `json:"voting_period,omitempty"`
	VotingDelay       *int64         `json:"voting_delay,omitempty"`
	TimelockDelay     *int64         `json:"timelock_delay,omitempty"`
}

type ParamsResponse struct {
	Authority         string        `json:"authority"`
	PendingAuthority  string        `json:"pending_authority,omitempty"`
	Quorum            types.Uint256 `json:"quorum"`
	ProposalThreshold uint64        `json:"proposal_threshold"`
	VotingPeriod      int64         `json:"voting_period"`
	VotingDelay       int64         `json:"voting_delay"`
	TimelockDelay     int64         `json:"timelock_delay"`
	ProposalCount     uint64        `json:"proposal_count"`
	LastUpdated       int64         `json:"last_updated"`
	Paused            bool          `json:"paused"`
}

func newParamsResponse(p *models.GovernanceParams) ParamsResponse {
	return ParamsResponse{
		Authority:         p.Authority,
		PendingAuthority:  p.PendingAuthority,
		Quorum:            p.Quorum,
		ProposalThreshold: p.ProposalThreshold,
		VotingPeriod:      p.VotingPeriod,
		VotingDelay:       p.VotingDelay,
		TimelockDelay:     p.TimelockDelay,
		ProposalCount:     p.ProposalCount,
		LastUpdated:       p.LastUpdated,
		Paused:            p.Paused,
	}
}

type AuthorityRequest struct {
	Next string `json:"next"`
}

type PauseRequest struct {
	Paused bool `json:"paused"`
}

type CreateProposalRequest struct {
	Category     uint8  `json:"category"`
	MetadataURI  string `json:"metadata_uri"`
	MetadataHash string `json:"metadata_hash"` // hex
}

type ProposalResponse struct {
	ID            uint64        `json:"id"`
	Proposer      string        `json:"proposer"`
	Category      string        `json:"category"`
	Status        string        `json:"status"`
	MetadataURI   string        `json:"metadata_uri,omitempty"`
	MetadataHash  string        `json:"metadata_hash,omitempty"`
	StartTime     int64         `json:"start_time"`
	EndTime       int64         `json:"end_time"`
	ExecutionTime int64         `json:"execution_time,omitempty"`
	VotesFor      types.Uint256 `json:"votes_for"`
	VotesAgainst  types.Uint256 `json:"votes_against"`
	VotesAbstain  types.Uint256 `json:"votes_abstain"`
	VoteCount     uint64        `json:"vote_count"`
	SubmittedAt   int64         `json:"submitted_at"`
	FinalizedAt   int64         `json:"finalized_at,omitempty"`
	Executed      bool          `json:"executed"`
	IsPrivate     bool          `json:"is_private"`
}

func newProposalResponse(p *models.Proposal) ProposalResponse {
	return ProposalResponse{
		ID:            p.ID,
		Proposer:      p.Proposer,
		Category:      governance.Category(p.Category).String(),
		Status:        governance.ProposalStatus(p.Status).String(),
		MetadataURI:   p.MetadataURI,
		MetadataHash:  hex.EncodeToString(p.MetadataHash),
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		ExecutionTime: p.ExecutionTime,
		VotesFor:      p.VotesFor,
		VotesAgainst:  p.VotesAgainst,
		VotesAbstain:  p.VotesAbstain,
		VoteCount:     p.VoteCount,
		SubmittedAt:   p.SubmittedAt,
		FinalizedAt:   p.FinalizedAt,
		Executed:      p.Executed,
		IsPrivate:     p.IsPrivate,
	}
}

type OpenVoteRequest struct {
	Choice     uint8 `json:"choice"`
	AsDelegate bool  `json:"as_delegate"`
}

// PrivateVoteRequest carries a sealed ballot. Byte fields are hex.
type PrivateVoteRequest struct {
	Ciphertext string `json:"ciphertext"`
	Proof      string `json:"proof"`
	AsDelegate bool   `json:"as_delegate"`
}

type SealedBallotResponse struct {
	Voter      string `json:"voter,omitempty"`
	Ciphertext string `json:"ciphertext"`
	Proof      string `json:"proof"`
	Weight     uint64 `json:"weight,omitempty"`
}

type VoteResponse struct {
	ProposalID      uint64 `json:"proposal_id"`
	Voter           string `json:"voter"`
	Choice          string `json:"choice,omitempty"`
	Weight          uint64 `json:"weight"`
	DelegatedAmount uint64 `json:"delegated_amount"`
	BallotHash      string `json:"ballot_hash,omitempty"`
	Timestamp       int64  `json:"timestamp"`
	AsDelegate      bool   `json:"as_delegate"`
	IsPrivate       bool   `json:"is_private"`
	Revealed        bool   `json:"revealed"`
}

func newVoteResponse(v *models.VoteRecord) VoteResponse {
	ret := VoteResponse{
		ProposalID:      v.ProposalID,
		Voter:           v.Voter,
		Weight:          v.Weight,
		DelegatedAmount: v.DelegatedAmount,
		BallotHash:      hex.EncodeToString(v.BallotHash),
		Timestamp:       v.Timestamp,
		AsDelegate:      v.AsDelegate,
		IsPrivate:       v.IsPrivate,
		Revealed:        v.Revealed,
	}
	// Sealed ballots carry no plaintext choice
	if !v.IsPrivate {
		ret.Choice = governance.Vote(v.Choice).String()
	}
	return ret
}

type DelegateRequest struct {
	Delegate     string `json:"delegate"`
	Amount       uint64 `json:"amount"`
	Type         uint8  `json:"type"`
	CategoryMask uint32 `json:"category_mask"`
	ProposalID   uint64 `json:"proposal_id"`
	Expiry       int64  `json:"expiry"`
	Revocable    bool   `json:"revocable"`
}

type DelegationResponse struct {
	Delegator    string `json:"delegator"`
	Delegate     string `json:"delegate"`
	Amount       uint64 `json:"amount"`
	Type         uint8  `json:"type"`
	CategoryMask uint32 `json:"category_mask"`
	ProposalID   uint64 `json:"proposal_id,omitempty"`
	Expiry       int64  `json:"expiry"`
	DelegatedAt  int64  `json:"delegated_at"`
	Revocable    bool   `json:"revocable"`
}

func newDelegationResponse(d *models.Delegation) DelegationResponse {
	return DelegationResponse{
		Delegator:    d.Delegator,
		Delegate:     d.Delegate,
		Amount:       d.Amount,
		Type:         d.Type,
		CategoryMask: d.CategoryMask,
		ProposalID:   d.ProposalID,
		Expiry:       d.Expiry,
		DelegatedAt:  d.DelegatedAt,
		Revocable:    d.Revocable,
	}
}

type DelegateStatsResponse struct {
	Delegate         string        `json:"delegate"`
	UniqueDelegators uint64        `json:"unique_delegators"`
	TotalDelegated   types.Uint256 `json:"total_delegated"`
}

type DelegatedAmountResponse struct {
	Delegate   string `json:"delegate"`
	ProposalID uint64 `json:"proposal_id"`
	Amount     uint64 `json:"amount"`
}

// EnablePrivateVotingRequest enables sealed ballots. EncryptionKey is hex.
type EnablePrivateVotingRequest struct {
	EncryptionKey string   `json:"encryption_key"`
	Committee     []string `json:"committee"`
	Threshold     uint8    `json:"threshold"`
}

type PrivateVotingResponse struct {
	ProposalID      uint64        `json:"proposal_id"`
	EncryptionKey   string        `json:"encryption_key"`
	Committee       []string      `json:"committee"`
	Threshold       uint8         `json:"threshold"`
	SharesReceived  uint8         `json:"shares_received"`
	RevealStarted   bool          `json:"reveal_started"`
	RevealCompleted bool          `json:"reveal_completed"`
	CastWeight      types.Uint256 `json:"cast_weight"`
	RevealedFor     types.Uint256 `json:"revealed_for"`
	RevealedAgainst types.Uint256 `json:"revealed_against"`
	RevealedAbstain types.Uint256 `json:"revealed_abstain"`
	EnabledAt       int64         `json:"enabled_at"`
}

func newPrivateVotingResponse(c *models.PrivateVotingConfig) PrivateVotingResponse {
	return PrivateVotingResponse{
		ProposalID:      c.ProposalID,
		EncryptionKey:   hex.EncodeToString(c.EncryptionKey),
		Committee:       c.Committee,
		Threshold:       c.Threshold,
		SharesReceived:  c.SharesReceived,
		RevealStarted:   c.RevealStarted,
		RevealCompleted: c.RevealCompleted,
		CastWeight:      c.CastWeight,
		RevealedFor:     c.RevealedFor,
		RevealedAgainst: c.RevealedAgainst,
		RevealedAbstain: c.RevealedAbstain,
		EnabledAt:       c.EnabledAt,
	}
}

// ShareRequest submits a decryption share. Share is hex.
type ShareRequest struct {
	Index uint8  `json:"index"`
	Share string `json:"share"`
}

type ShareResponse struct {
	ProposalID     uint64 `json:"proposal_id"`
	Member         string `json:"member"`
	CommitteeIndex uint8  `json:"committee_index"`
	ShareHash      string `json:"share_hash"`
	SubmittedAt    int64  `json:"submitted_at"`
}

func newShareResponse(s *models.DecryptionShare) ShareResponse {
	return ShareResponse{
		ProposalID:     s.ProposalID,
		Member:         s.Member,
		CommitteeIndex: s.CommitteeIndex,
		ShareHash:      hex.EncodeToString(s.ShareHash),
		SubmittedAt:    s.SubmittedAt,
	}
}

type SharePayloadResponse struct {
	ProposalID     uint64 `json:"proposal_id"`
	Member         string `json:"member"`
	CommitteeIndex uint8  `json:"committee_index"`
	Share          string `json:"share"`
}

func newSharePayloadResponse(p *database.DecryptionSharePayload) SharePayloadResponse {
	return SharePayloadResponse{
		ProposalID:     p.ProposalID,
		Member:         p.Member,
		CommitteeIndex: p.CommitteeIndex,
		Share:          hex.EncodeToString(p.Share),
	}
}

// AggregateRequest carries decrypted totals as decimal strings
type AggregateRequest struct {
	For     types.Uint256 `json:"for"`
	Against types.Uint256 `json:"against"`
	Abstain types.Uint256 `json:"abstain"`
}
