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
	"fmt"

	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/types"
	"github.com/blinklabs-io/agora/event"
)

// addToTally adds weight to the bucket for choice
func addToTally(p *models.Proposal, choice Vote, weight uint64) error {
	var bucket *types.Uint256
	switch choice {
	case VoteFor:
		bucket = &p.VotesFor
	case VoteAgainst:
		bucket = &p.VotesAgainst
	case VoteAbstain:
		bucket = &p.VotesAbstain
	default:
		return fmt.Errorf("%w: unknown vote choice %d", ErrInvalidInput, choice)
	}
	sum, ok := bucket.CheckedAdd(types.NewUint256(weight))
	if !ok {
		return ErrTallyOverflow
	}
	*bucket = sum
	return nil
}

// CastOpenVote records a public ballot and adds its weight to the tally.
// With asDelegate set, stake delegated to the caller for this proposal is
// voted along with the caller's own.
func (e *Engine) CastOpenVote(
	ctx context.Context,
	caller string,
	proposalID uint64,
	choice Vote,
	asDelegate bool,
) (*models.VoteRecord, error) {
	if err := requirePrincipal(caller); err != nil {
		return nil, err
	}
	if !choice.Valid() {
		return nil, fmt.Errorf("%w: unknown vote choice %d", ErrInvalidInput, choice)
	}
	in, err := e.lookupWeightInputs(ctx, caller)
	if err != nil {
		return nil, err
	}
	var ret *models.VoteRecord
	err = e.update(ctx, "cast_open_vote", caller, func(o *opContext) error {
		if _, err := e.loadUnpausedParams(o); err != nil {
			return err
		}
		proposal, err := e.loadProposal(o, proposalID)
		if err != nil {
			return err
		}
		if proposal.IsPrivate {
			return fmt.Errorf(
				"%w: proposal %d accepts sealed ballots only",
				ErrInvalidState,
				proposalID,
			)
		}
		if err := requireVotingOpen(proposal, o.now); err != nil {
			return err
		}
		w, err := e.resolveWeight(o, caller, in, proposalScope(proposal), asDelegate)
		if err != nil {
			return err
		}
		if w.weight == 0 {
			return fmt.Errorf("%w: caller has no voting weight", ErrInvalidInput)
		}
		vote := &models.VoteRecord{
			ProposalID:      proposalID,
			Voter:           caller,
			Choice:          uint8(choice),
			Weight:          w.weight,
			DelegatedAmount: w.delegated,
			ExcludedStake:   w.excluded,
			AsDelegate:      asDelegate,
			Timestamp:       o.now,
		}
		if err := e.db.CreateVoteRecord(vote, o.txn); err != nil {
			return storeError(err, "vote")
		}
		if err := e.recordDelegatedVotes(o, w); err != nil {
			return err
		}
		if err := addToTally(proposal, choice, w.weight); err != nil {
			return err
		}
		proposal.VoteCount++
		if err := e.saveProposal(o, proposal); err != nil {
			return err
		}
		o.emit(
			event.VoteCastEventType,
			event.VoteCastEvent{
				Voter:      caller,
				ProposalID: proposalID,
				Weight:     w.weight,
				Choice:     uint8(choice),
				AsDelegate: asDelegate,
			},
		)
		ret = vote
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// CastPrivateVote records a sealed ballot. The ballot's proof is checked
// against the proposal's encryption key and the caller before anything is
// stored. Tallies stay zero until the committee reveals the totals.
func (e *Engine) CastPrivateVote(
	ctx context.Context,
	caller string,
	proposalID uint64,
	ballot SealedBallot,
	asDelegate bool,
) (*models.VoteRecord, error) {
	if err := requirePrincipal(caller); err != nil {
		return nil, err
	}
	if len(ballot.Ciphertext) == 0 || len(ballot.Proof) == 0 {
		return nil, fmt.Errorf("%w: ballot ciphertext and proof are required", ErrInvalidInput)
	}
	verifier := e.config.Collaborators.Verifier
	if verifier == nil {
		return nil, fmt.Errorf("%w: no ballot verifier configured", ErrInvalidState)
	}
	var key []byte
	err := e.view(ctx, "cast_private_vote_precheck", func(o *opContext) error {
		_, cfg, err := e.loadOpenPrivateProposal(o, proposalID)
		if err != nil {
			return err
		}
		key = cfg.EncryptionKey
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := verifier.VerifyBallot(
		key,
		proposalID,
		caller,
		ballot.Ciphertext,
		ballot.Proof,
	); err != nil {
		return nil, fmt.Errorf("%w: ballot verification failed: %w", ErrInvalidInput, err)
	}
	in, err := e.lookupWeightInputs(ctx, caller)
	if err != nil {
		return nil, err
	}
	var ret *models.VoteRecord
	err = e.update(ctx, "cast_private_vote", caller, func(o *opContext) error {
		proposal, cfg, err := e.loadOpenPrivateProposal(o, proposalID)
		if err != nil {
			return err
		}
		w, err := e.resolveWeight(o, caller, in, proposalScope(proposal), asDelegate)
		if err != nil {
			return err
		}
		if w.weight == 0 {
			return fmt.Errorf("%w: caller has no voting weight", ErrInvalidInput)
		}
		vote := &models.VoteRecord{
			ProposalID:      proposalID,
			Voter:           caller,
			Weight:          w.weight,
			DelegatedAmount: w.delegated,
			ExcludedStake:   w.excluded,
			AsDelegate:      asDelegate,
			Timestamp:       o.now,
		}
		sealed := database.SealedBallot{
			Voter:      caller,
			Ciphertext: ballot.Ciphertext,
			Proof:      ballot.Proof,
			ProposalID: proposalID,
		}
		if err := e.db.CreateSealedBallot(vote, sealed, o.txn); err != nil {
			return storeError(err, "vote")
		}
		if err := e.recordDelegatedVotes(o, w); err != nil {
			return err
		}
		castWeight, ok := cfg.CastWeight.CheckedAdd(types.NewUint256(w.weight))
		if !ok {
			return fmt.Errorf("%w: cast weight", ErrOverflow)
		}
		cfg.CastWeight = castWeight
		if err := e.db.SetPrivateVotingConfig(cfg, o.txn); err != nil {
			return storeError(err, "save private voting config")
		}
		proposal.VoteCount++
		if err := e.saveProposal(o, proposal); err != nil {
			return err
		}
		o.emit(
			event.VoteCastEventType,
			event.VoteCastEvent{
				Voter:      caller,
				ProposalID: proposalID,
				Weight:     w.weight,
				AsDelegate: asDelegate,
				Private:    true,
			},
		)
		ret = vote
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (e *Engine) GetVote(
	ctx context.Context,
	proposalID uint64,
	voter string,
) (*models.VoteRecord, error) {
	var ret *models.VoteRecord
	err := e.view(ctx, "get_vote", func(o *opContext) error {
		vote, err := e.db.GetVoteRecord(proposalID, voter, o.txn)
		if err != nil {
			return storeError(err, "load vote")
		}
		ret = vote
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (e *Engine) ListVotes(
	ctx context.Context,
	proposalID uint64,
) ([]models.VoteRecord, error) {
	var ret []models.VoteRecord
	err := e.view(ctx, "list_votes", func(o *opContext) error {
		if _, err := e.loadProposal(o, proposalID); err != nil {
			return err
		}
		votes, err := e.db.GetVoteRecords(proposalID, o.txn)
		if err != nil {
			return storeError(err, "list votes")
		}
		ret = votes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// GetSealedBallot returns the stored ciphertext and proof of a private vote
func (e *Engine) GetSealedBallot(
	ctx context.Context,
	proposalID uint64,
	voter string,
) (*SealedBallot, error) {
	var ret *SealedBallot
	err := e.view(ctx, "get_sealed_ballot", func(o *opContext) error {
		sealed, err := e.db.GetSealedBallot(proposalID, voter, o.txn)
		if err != nil {
			return storeError(err, "sealed ballot")
		}
		ret = &SealedBallot{
			Ciphertext: sealed.Ciphertext,
			Proof:      sealed.Proof,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// loadOpenPrivateProposal loads a private proposal that still accepts sealed
// ballots. The encryption key is fixed once private voting is enabled.
func (e *Engine) loadOpenPrivateProposal(
	o *opContext,
	proposalID uint64,
) (*models.Proposal, *models.PrivateVotingConfig, error) {
	if _, err := e.loadUnpausedParams(o); err != nil {
		return nil, nil, err
	}
	proposal, err := e.loadProposal(o, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if !proposal.IsPrivate {
		return nil, nil, ErrPrivateNotEnabled
	}
	cfg, err := e.loadPrivateConfig(o, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if cfg.RevealStarted {
		return nil, nil, fmt.Errorf("%w: reveal already started", ErrInvalidState)
	}
	if err := requireVotingOpen(proposal, o.now); err != nil {
		return nil, nil, err
	}
	return proposal, cfg, nil
}

// ListSealedBallots returns every sealed ballot of a private proposal along
// with its recorded weight, in voter key order
func (e *Engine) ListSealedBallots(
	ctx context.Context,
	proposalID uint64,
) ([]WeightedSealedBallot, error) {
	var ret []WeightedSealedBallot
	err := e.view(ctx, "list_sealed_ballots", func(o *opContext) error {
		proposal, err := e.loadProposal(o, proposalID)
		if err != nil {
			return err
		}
		if !proposal.IsPrivate {
			return ErrPrivateNotEnabled
		}
		votes, err := e.db.GetVoteRecords(proposalID, o.txn)
		if err != nil {
			return storeError(err, "list votes")
		}
		weights := make(map[string]uint64, len(votes))
		for _, v := range votes {
			weights[v.Voter] = v.Weight
		}
		sealed, err := e.db.GetSealedBallots(proposalID, o.txn)
		if err != nil {
			return storeError(err, "list sealed ballots")
		}
		ret = make([]WeightedSealedBallot, 0, len(sealed))
		for _, s := range sealed {
			weight, ok := weights[s.Voter]
			if !ok {
				return fmt.Errorf(
					"sealed ballot of %s has no vote record",
					s.Voter,
				)
			}
			ret = append(ret, WeightedSealedBallot{
				Voter: s.Voter,
				SealedBallot: SealedBallot{
					Ciphertext: s.Ciphertext,
					Proof:      s.Proof,
				},
				Weight: weight,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
