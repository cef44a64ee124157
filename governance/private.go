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
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/types"
	"github.com/blinklabs-io/agora/event"
)

// EncryptionKeySize is the encoded size of a private voting encryption key
const EncryptionKeySize = 32

func (e *Engine) validateEncryptionKey(key []byte) error {
	if len(key) != EncryptionKeySize {
		return fmt.Errorf(
			"%w: encryption key must be %d bytes",
			ErrInvalidInput,
			EncryptionKeySize,
		)
	}
	if v, ok := e.config.Collaborators.Verifier.(KeyValidator); ok {
		if err := v.ValidateEncryptionKey(key); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	return nil
}

func validateCommittee(committee []string, threshold uint8) error {
	if len(committee) == 0 || len(committee) > models.MaxCommitteeSize {
		return fmt.Errorf(
			"%w: committee must have 1 to %d members",
			ErrInvalidInput,
			models.MaxCommitteeSize,
		)
	}
	for i, member := range committee {
		if member == "" {
			return fmt.Errorf("%w: empty committee member", ErrInvalidInput)
		}
		if slices.Contains(committee[:i], member) {
			return fmt.Errorf("%w: duplicate committee member %q", ErrInvalidInput, member)
		}
	}
	if threshold == 0 || int(threshold) > len(committee) {
		return fmt.Errorf(
			"%w: threshold must be between 1 and %d",
			ErrInvalidInput,
			len(committee),
		)
	}
	return nil
}

// EnablePrivateVoting switches a proposal to sealed ballots. Only the
// proposer may do so, and only before any ballot is cast.
func (e *Engine) EnablePrivateVoting(
	ctx context.Context,
	caller string,
	proposalID uint64,
	req EnablePrivateVotingRequest,
) (*models.PrivateVotingConfig, error) {
	if err := validateCommittee(req.Committee, req.Threshold); err != nil {
		return nil, err
	}
	if err := e.validateEncryptionKey(req.EncryptionKey); err != nil {
		return nil, err
	}
	var ret *models.PrivateVotingConfig
	err := e.update(ctx, "enable_private_voting", caller, func(o *opContext) error {
		proposal, err := e.loadProposal(o, proposalID)
		if err != nil {
			return err
		}
		if caller != proposal.Proposer {
			return fmt.Errorf("%w: only the proposer may enable private voting", ErrUnauthorized)
		}
		if proposal.IsPrivate {
			return fmt.Errorf("%w: private voting", ErrAlreadyExists)
		}
		if proposal.Status != models.ProposalStatusPending &&
			proposal.Status != models.ProposalStatusActive {
			return fmt.Errorf(
				"%w: proposal %d is %s",
				ErrInvalidState,
				proposalID,
				ProposalStatus(proposal.Status),
			)
		}
		if proposal.VoteCount > 0 || o.now > proposal.EndTime {
			return fmt.Errorf("%w: voting has already started", ErrInvalidState)
		}
		cfg := &models.PrivateVotingConfig{
			ProposalID:    proposalID,
			EncryptionKey: req.EncryptionKey,
			Committee:     slices.Clone(req.Committee),
			Threshold:     req.Threshold,
			EnabledAt:     o.now,
		}
		if err := e.db.CreatePrivateVotingConfig(cfg, o.txn); err != nil {
			return storeError(err, "private voting")
		}
		proposal.IsPrivate = true
		if err := e.saveProposal(o, proposal); err != nil {
			return err
		}
		o.emit(
			event.PrivateVotingEnabledEventType,
			event.PrivateVotingEnabledEvent{
				Committee:  cfg.Committee,
				ProposalID: proposalID,
				Threshold:  cfg.Threshold,
			},
		)
		ret = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// InitiateReveal opens share collection once voting has ended
func (e *Engine) InitiateReveal(
	ctx context.Context,
	caller string,
	proposalID uint64,
) (*models.PrivateVotingConfig, error) {
	var ret *models.PrivateVotingConfig
	err := e.update(ctx, "initiate_reveal", caller, func(o *opContext) error {
		proposal, err := e.loadProposal(o, proposalID)
		if err != nil {
			return err
		}
		cfg, err := e.loadPrivateConfig(o, proposalID)
		if err != nil {
			return err
		}
		if proposal.Status == models.ProposalStatusCancelled {
			return fmt.Errorf("%w: proposal %d is cancelled", ErrInvalidState, proposalID)
		}
		if o.now <= proposal.EndTime {
			return fmt.Errorf("%w: voting period has not ended", ErrInvalidState)
		}
		if cfg.RevealStarted {
			return fmt.Errorf("%w: reveal already started", ErrInvalidState)
		}
		cfg.RevealStarted = true
		if err := e.db.SetPrivateVotingConfig(cfg, o.txn); err != nil {
			return storeError(err, "save private voting config")
		}
		o.emit(
			event.RevealInitiatedEventType,
			event.RevealInitiatedEvent{InitiatedBy: caller, ProposalID: proposalID},
		)
		ret = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// SubmitDecryptionShare stores a committee member's share. Each committee
// slot accepts exactly one share.
func (e *Engine) SubmitDecryptionShare(
	ctx context.Context,
	caller string,
	proposalID uint64,
	index uint8,
	share []byte,
) (*models.DecryptionShare, error) {
	if len(share) == 0 {
		return nil, fmt.Errorf("%w: empty decryption share", ErrInvalidInput)
	}
	if len(share) > MaxShareSize {
		return nil, fmt.Errorf("%w: decryption share exceeds %d bytes", ErrInvalidInput, MaxShareSize)
	}
	var ret *models.DecryptionShare
	err := e.update(ctx, "submit_decryption_share", caller, func(o *opContext) error {
		cfg, err := e.loadPrivateConfig(o, proposalID)
		if err != nil {
			return err
		}
		if int(index) >= len(cfg.Committee) {
			return fmt.Errorf("%w: committee index %d out of range", ErrInvalidInput, index)
		}
		if cfg.Committee[index] != caller {
			return fmt.Errorf(
				"%w: caller does not hold committee slot %d",
				ErrUnauthorized,
				index,
			)
		}
		if !cfg.RevealStarted {
			return fmt.Errorf("%w: reveal not started", ErrInvalidState)
		}
		if cfg.RevealCompleted {
			return fmt.Errorf("%w: reveal already completed", ErrInvalidState)
		}
		if int(cfg.SharesReceived) >= len(cfg.Committee) {
			return fmt.Errorf("%w: all shares received", ErrInvalidState)
		}
		record := &models.DecryptionShare{
			Member:         caller,
			ProposalID:     proposalID,
			CommitteeIndex: index,
			SubmittedAt:    o.now,
		}
		if err := e.db.CreateDecryptionShare(record, share, o.txn); err != nil {
			return storeError(err, "decryption share")
		}
		cfg.SharesReceived++
		if err := e.db.SetPrivateVotingConfig(cfg, o.txn); err != nil {
			return storeError(err, "save private voting config")
		}
		o.emit(
			event.DecryptionShareSubmittedEventType,
			event.DecryptionShareSubmittedEvent{
				Member:         caller,
				ProposalID:     proposalID,
				CommitteeIndex: index,
				SharesReceived: cfg.SharesReceived,
			},
		)
		ret = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// AggregateRevealedVotes records the decrypted totals once enough shares
// are in. The totals can't exceed the weight of the sealed ballots cast.
func (e *Engine) AggregateRevealedVotes(
	ctx context.Context,
	caller string,
	proposalID uint64,
	totals RevealedTotals,
) (*models.PrivateVotingConfig, error) {
	var ret *models.PrivateVotingConfig
	err := e.update(ctx, "aggregate_revealed_votes", caller, func(o *opContext) error {
		proposal, err := e.loadProposal(o, proposalID)
		if err != nil {
			return err
		}
		cfg, err := e.loadPrivateConfig(o, proposalID)
		if err != nil {
			return err
		}
		if caller != proposal.Proposer && cfg.CommitteeIndex(caller) < 0 {
			return fmt.Errorf(
				"%w: only the proposer or a committee member may aggregate",
				ErrUnauthorized,
			)
		}
		if !cfg.RevealStarted {
			return fmt.Errorf("%w: reveal not started", ErrInvalidState)
		}
		if cfg.RevealCompleted {
			return fmt.Errorf("%w: reveal already completed", ErrInvalidState)
		}
		if cfg.SharesReceived < cfg.Threshold {
			return fmt.Errorf(
				"%w: %d of %d required shares received",
				ErrInvalidState,
				cfg.SharesReceived,
				cfg.Threshold,
			)
		}
		sum, ok := totals.For.CheckedAdd(totals.Against)
		if ok {
			sum, ok = sum.CheckedAdd(totals.Abstain)
		}
		if !ok {
			return ErrTallyOverflow
		}
		if sum.Cmp(cfg.CastWeight) > 0 {
			return fmt.Errorf(
				"%w: revealed total %s exceeds cast weight %s",
				ErrInvalidInput,
				sum,
				cfg.CastWeight,
			)
		}
		cfg.RevealedFor = totals.For
		cfg.RevealedAgainst = totals.Against
		cfg.RevealedAbstain = totals.Abstain
		cfg.RevealCompleted = true
		if err := e.db.SetPrivateVotingConfig(cfg, o.txn); err != nil {
			return storeError(err, "save private voting config")
		}
		proposal.VotesFor = totals.For
		proposal.VotesAgainst = totals.Against
		proposal.VotesAbstain = totals.Abstain
		if err := e.saveProposal(o, proposal); err != nil {
			return err
		}
		if err := e.db.SetVoteRecordsRevealed(proposalID, o.txn); err != nil {
			return storeError(err, "mark votes revealed")
		}
		o.emit(
			event.RevealCompletedEventType,
			event.RevealCompletedEvent{
				VotesFor:     totals.For.String(),
				VotesAgainst: totals.Against.String(),
				VotesAbstain: totals.Abstain.String(),
				ProposalID:   proposalID,
			},
		)
		ret = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (e *Engine) GetPrivateVotingConfig(
	ctx context.Context,
	proposalID uint64,
) (*models.PrivateVotingConfig, error) {
	var ret *models.PrivateVotingConfig
	err := e.view(ctx, "get_private_voting_config", func(o *opContext) error {
		cfg, err := e.db.GetPrivateVotingConfig(proposalID, o.txn)
		if err != nil {
			if errors.Is(err, models.ErrPrivateVotingConfigNotFound) {
				return fmt.Errorf("%w: private voting config", ErrNotFound)
			}
			return storeError(err, "load private voting config")
		}
		ret = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (e *Engine) ListDecryptionShares(
	ctx context.Context,
	proposalID uint64,
) ([]models.DecryptionShare, error) {
	var ret []models.DecryptionShare
	err := e.view(ctx, "list_decryption_shares", func(o *opContext) error {
		shares, err := e.db.GetDecryptionShares(proposalID, o.txn)
		if err != nil {
			return storeError(err, "list decryption shares")
		}
		ret = shares
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// GetDecryptionShare returns the stored payload of a committee slot's share
func (e *Engine) GetDecryptionShare(
	ctx context.Context,
	proposalID uint64,
	index uint8,
) (*database.DecryptionSharePayload, error) {
	var ret *database.DecryptionSharePayload
	err := e.view(ctx, "get_decryption_share", func(o *opContext) error {
		payload, err := e.db.GetDecryptionSharePayload(proposalID, index, o.txn)
		if err != nil {
			if errors.Is(err, types.ErrBlobKeyNotFound) {
				return ErrShareNotFound
			}
			return storeError(err, "load decryption share")
		}
		ret = payload
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
