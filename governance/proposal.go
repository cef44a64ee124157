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
	"math"

	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/event"
)

// promote moves a Pending proposal to Active once its voting window opens.
// It reports whether the status changed.
func promote(p *models.Proposal, now int64) bool {
	if p.Status == models.ProposalStatusPending && now >= p.StartTime {
		p.Status = models.ProposalStatusActive
		return true
	}
	return false
}

// requireVotingOpen checks that p accepts ballots at now, promoting it first
func requireVotingOpen(p *models.Proposal, now int64) error {
	promote(p, now)
	if p.Status != models.ProposalStatusActive {
		return fmt.Errorf(
			"%w: proposal %d is %s",
			ErrInvalidState,
			p.ID,
			ProposalStatus(p.Status),
		)
	}
	if now < p.StartTime {
		return fmt.Errorf("%w: voting has not started", ErrInvalidState)
	}
	if now > p.EndTime {
		return fmt.Errorf("%w: voting period has ended", ErrInvalidState)
	}
	return nil
}

func addSeconds(base, delta int64) (int64, error) {
	if delta > 0 && base > math.MaxInt64-delta {
		return 0, fmt.Errorf("%w: timestamp", ErrOverflow)
	}
	return base + delta, nil
}

// CreateProposal opens a new proposal. The caller's resolved voting power,
// including stake delegated to it, must reach the proposal threshold.
func (e *Engine) CreateProposal(
	ctx context.Context,
	caller string,
	req CreateProposalRequest,
) (*models.Proposal, error) {
	if err := requirePrincipal(caller); err != nil {
		return nil, err
	}
	if !req.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %d", ErrInvalidInput, req.Category)
	}
	if len(req.MetadataURI) > MaxMetadataURILength {
		return nil, fmt.Errorf(
			"%w: metadata URI exceeds %d bytes",
			ErrInvalidInput,
			MaxMetadataURILength,
		)
	}
	if len(req.MetadataHash) != 0 && len(req.MetadataHash) != 32 {
		return nil, fmt.Errorf("%w: metadata hash must be 32 bytes", ErrInvalidInput)
	}
	in, err := e.lookupWeightInputs(ctx, caller)
	if err != nil {
		return nil, err
	}
	var ret *models.Proposal
	err = e.update(ctx, "create_proposal", caller, func(o *opContext) error {
		params, err := e.loadUnpausedParams(o)
		if err != nil {
			return err
		}
		w, err := e.resolveWeight(o, caller, in, scope{category: req.Category}, true)
		if err != nil {
			return err
		}
		if w.weight < params.ProposalThreshold {
			return fmt.Errorf(
				"%w: voting power %d below proposal threshold %d",
				ErrUnauthorized,
				w.weight,
				params.ProposalThreshold,
			)
		}
		if params.ProposalCount == math.MaxUint64 {
			return fmt.Errorf("%w: proposal count", ErrOverflow)
		}
		start, err := addSeconds(o.now, params.VotingDelay)
		if err != nil {
			return err
		}
		end, err := addSeconds(start, params.VotingPeriod)
		if err != nil {
			return err
		}
		params.ProposalCount++
		proposal := &models.Proposal{
			ID:           params.ProposalCount,
			Proposer:     caller,
			Category:     uint8(req.Category),
			MetadataURI:  req.MetadataURI,
			MetadataHash: req.MetadataHash,
			StartTime:    start,
			EndTime:      end,
			SubmittedAt:  o.now,
			Status:       models.ProposalStatusActive,
		}
		if params.VotingDelay > 0 {
			proposal.Status = models.ProposalStatusPending
		}
		if err := e.saveParams(o, params); err != nil {
			return err
		}
		if err := e.db.CreateProposal(proposal, o.txn); err != nil {
			return storeError(err, "proposal")
		}
		o.emit(
			event.ProposalCreatedEventType,
			event.ProposalCreatedEvent{
				Proposer:   caller,
				ProposalID: proposal.ID,
				StartTime:  start,
				EndTime:    end,
				Category:   proposal.Category,
				Status:     proposal.Status,
			},
		)
		ret = proposal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// FinalizeProposal closes voting on an elapsed proposal and decides it. A
// proposal below quorum is rejected. Otherwise it passes when votes for
// strictly exceed votes against, and becomes executable after the timelock.
func (e *Engine) FinalizeProposal(
	ctx context.Context,
	caller string,
	id uint64,
) (*models.Proposal, error) {
	var ret *models.Proposal
	err := e.update(ctx, "finalize_proposal", caller, func(o *opContext) error {
		params, err := e.loadParams(o)
		if err != nil {
			return err
		}
		proposal, err := e.loadProposal(o, id)
		if err != nil {
			return err
		}
		promote(proposal, o.now)
		if proposal.Status != models.ProposalStatusActive &&
			proposal.Status != models.ProposalStatusPending {
			return fmt.Errorf(
				"%w: proposal %d is already %s",
				ErrInvalidState,
				id,
				ProposalStatus(proposal.Status),
			)
		}
		if o.now <= proposal.EndTime {
			return fmt.Errorf("%w: voting period has not ended", ErrInvalidState)
		}
		if proposal.IsPrivate {
			cfg, err := e.loadPrivateConfig(o, id)
			if err != nil {
				return err
			}
			if !cfg.RevealCompleted {
				return fmt.Errorf("%w: private tally not revealed", ErrInvalidState)
			}
		}
		total, ok := proposal.TotalVotes()
		if !ok {
			return ErrTallyOverflow
		}
		proposal.FinalizedAt = o.now
		switch {
		case total.Cmp(params.Quorum) < 0:
			proposal.Status = models.ProposalStatusRejected
		case proposal.VotesFor.Cmp(proposal.VotesAgainst) > 0:
			execTime, err := addSeconds(o.now, params.TimelockDelay)
			if err != nil {
				return err
			}
			proposal.Status = models.ProposalStatusPassed
			proposal.ExecutionTime = execTime
		default:
			proposal.Status = models.ProposalStatusRejected
		}
		if err := e.saveProposal(o, proposal); err != nil {
			return err
		}
		o.emit(
			event.ProposalFinalizedEventType,
			event.ProposalFinalizedEvent{
				VotesFor:      proposal.VotesFor.String(),
				VotesAgainst:  proposal.VotesAgainst.String(),
				VotesAbstain:  proposal.VotesAbstain.String(),
				ProposalID:    id,
				ExecutionTime: proposal.ExecutionTime,
				Status:        proposal.Status,
			},
		)
		ret = proposal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// ExecuteProposal runs a passed proposal once its timelock has elapsed. The
// executor registered for the proposal's category, if any, runs in the same
// atomic unit and its failure aborts the execution.
func (e *Engine) ExecuteProposal(
	ctx context.Context,
	caller string,
	id uint64,
) (*models.Proposal, error) {
	var ret *models.Proposal
	err := e.update(ctx, "execute_proposal", caller, func(o *opContext) error {
		proposal, err := e.loadProposal(o, id)
		if err != nil {
			return err
		}
		if proposal.Status != models.ProposalStatusPassed || proposal.Executed {
			return fmt.Errorf(
				"%w: proposal %d is %s",
				ErrInvalidState,
				id,
				ProposalStatus(proposal.Status),
			)
		}
		if o.now < proposal.ExecutionTime {
			return fmt.Errorf("%w: timelock has not elapsed", ErrInvalidState)
		}
		if executor, ok := e.config.Collaborators.Executors[Category(proposal.Category)]; ok &&
			executor != nil {
			if err := executor.Execute(o.ctx, proposal); err != nil {
				return fmt.Errorf("execute proposal %d: %w", id, err)
			}
		}
		proposal.Executed = true
		proposal.Status = models.ProposalStatusExecuted
		if err := e.saveProposal(o, proposal); err != nil {
			return err
		}
		o.emit(
			event.ProposalExecutedEventType,
			event.ProposalExecutedEvent{
				ProposalID: id,
				ExecutedAt: o.now,
				Category:   proposal.Category,
			},
		)
		ret = proposal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// CancelProposal withdraws a proposal whose voting period has not ended.
// The authority and the proposer may cancel.
func (e *Engine) CancelProposal(
	ctx context.Context,
	caller string,
	id uint64,
) (*models.Proposal, error) {
	var ret *models.Proposal
	err := e.update(ctx, "cancel_proposal", caller, func(o *opContext) error {
		params, err := e.loadParams(o)
		if err != nil {
			return err
		}
		proposal, err := e.loadProposal(o, id)
		if err != nil {
			return err
		}
		if caller != params.Authority && caller != proposal.Proposer {
			return fmt.Errorf(
				"%w: only the authority or the proposer may cancel",
				ErrUnauthorized,
			)
		}
		if proposal.Status != models.ProposalStatusPending &&
			proposal.Status != models.ProposalStatusActive {
			return fmt.Errorf(
				"%w: proposal %d is %s",
				ErrInvalidState,
				id,
				ProposalStatus(proposal.Status),
			)
		}
		if o.now > proposal.EndTime {
			return fmt.Errorf(
				"%w: voting period of proposal %d has ended",
				ErrInvalidState,
				id,
			)
		}
		proposal.Status = models.ProposalStatusCancelled
		proposal.FinalizedAt = o.now
		if err := e.saveProposal(o, proposal); err != nil {
			return err
		}
		o.emit(
			event.ProposalCancelledEventType,
			event.ProposalCancelledEvent{CancelledBy: caller, ProposalID: id},
		)
		ret = proposal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// GetProposal returns a proposal with its status as of now
func (e *Engine) GetProposal(ctx context.Context, id uint64) (*models.Proposal, error) {
	var ret *models.Proposal
	err := e.view(ctx, "get_proposal", func(o *opContext) error {
		proposal, err := e.loadProposal(o, id)
		if err != nil {
			return err
		}
		promote(proposal, o.now)
		ret = proposal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// ListProposals returns proposals in ID order. The status filter matches the
// stored status, so a Pending proposal whose window has opened is listed
// under Pending until its next mutation.
func (e *Engine) ListProposals(
	ctx context.Context,
	filter ProposalFilter,
) ([]models.Proposal, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if filter.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", ErrInvalidInput)
	}
	dbFilter := database.ProposalFilter{
		Limit:  limit,
		Offset: filter.Offset,
	}
	if filter.Status != nil {
		status := uint8(*filter.Status)
		dbFilter.Status = &status
	}
	var ret []models.Proposal
	err := e.view(ctx, "list_proposals", func(o *opContext) error {
		proposals, err := e.db.GetProposals(dbFilter, o.txn)
		if err != nil {
			return storeError(err, "list proposals")
		}
		for i := range proposals {
			promote(&proposals[i], o.now)
		}
		ret = proposals
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
