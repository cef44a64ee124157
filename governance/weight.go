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
	"math"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/governance/power"
)

// scope identifies what a weight is being resolved for. Proposal creation
// uses the requested category and a zero proposal ID.
type scope struct {
	proposalID uint64
	category   Category
}

func proposalScope(p *models.Proposal) scope {
	return scope{proposalID: p.ID, category: Category(p.Category)}
}

// covers reports whether a delegation applies to s
func (s scope) covers(d *models.Delegation) bool {
	switch DelegationType(d.Type) {
	case DelegationTypeFull:
		return true
	case DelegationTypePerCategory:
		return d.CategoryMask&s.category.Mask() != 0
	case DelegationTypePerProposal:
		return s.proposalID != 0 && d.ProposalID == s.proposalID
	}
	return false
}

func delegationActive(d *models.Delegation, now int64) bool {
	return d.Expiry == 0 || now < d.Expiry
}

// delegatedAmount sums the active delegations to delegate that cover s.
// Multiple delegations to the same delegate are additive. For a proposal,
// stake its delegator already voted, or that another delegate already voted,
// is not counted again. The returned records name the stake counted per
// delegator.
func (e *Engine) delegatedAmount(
	o *opContext,
	delegate string,
	s scope,
) (uint64, []models.DelegatedVote, error) {
	delegations, err := e.db.GetDelegationsByDelegate(delegate, o.txn)
	if err != nil {
		return 0, nil, storeError(err, "load delegations")
	}
	var total uint64
	var used []models.DelegatedVote
	for i := range delegations {
		d := &delegations[i]
		if !delegationActive(d, o.now) || !s.covers(d) {
			continue
		}
		amount := d.Amount
		if s.proposalID != 0 {
			amount, err = e.unvotedAmount(o, s.proposalID, d)
			if err != nil {
				return 0, nil, err
			}
		}
		if amount == 0 {
			continue
		}
		if total > math.MaxUint64-amount {
			return 0, nil, fmt.Errorf("%w: delegated amount", ErrOverflow)
		}
		total += amount
		used = append(used, models.DelegatedVote{
			ProposalID: s.proposalID,
			Delegator:  d.Delegator,
			Delegate:   delegate,
			Amount:     amount,
		})
	}
	return total, used, nil
}

// unvotedAmount returns the part of d that has not yet been voted on the
// proposal. A delegator who voted only left out the stake it had delegated
// away at the time.
func (e *Engine) unvotedAmount(
	o *opContext,
	proposalID uint64,
	d *models.Delegation,
) (uint64, error) {
	_, err := e.db.GetDelegatedVote(proposalID, d.Delegator, o.txn)
	switch {
	case errors.Is(err, models.ErrDelegatedVoteNotFound):
	case err != nil:
		return 0, storeError(err, "load delegated vote")
	default:
		return 0, nil
	}
	vote, err := e.db.GetVoteRecord(proposalID, d.Delegator, o.txn)
	switch {
	case errors.Is(err, models.ErrVoteRecordNotFound):
		return d.Amount, nil
	case err != nil:
		return 0, storeError(err, "load vote")
	}
	return min(d.Amount, vote.ExcludedStake), nil
}

// weightInputs are the collaborator-provided inputs to a principal's weight
type weightInputs struct {
	stake      uint64
	reputation uint64
	tier       uint8
}

// lookupWeightInputs queries the collaborators for principal. It runs before
// the engine lock is taken so a slow collaborator only delays its own
// caller.
func (e *Engine) lookupWeightInputs(
	ctx context.Context,
	principal string,
) (weightInputs, error) {
	var ret weightInputs
	collab := e.config.Collaborators
	var err error
	ret.stake, err = collab.Stake.BalanceOf(ctx, principal)
	if err != nil {
		return ret, fmt.Errorf("stake lookup: %w", err)
	}
	if collab.Reputation != nil {
		ret.reputation, err = collab.Reputation.ScoreOf(ctx, principal)
		if err != nil {
			return ret, fmt.Errorf("reputation lookup: %w", err)
		}
	}
	if collab.Tier != nil {
		ret.tier, err = collab.Tier.TierOf(ctx, principal)
		if err != nil {
			return ret, fmt.Errorf("tier lookup: %w", err)
		}
	}
	if ret.tier > power.MaxTier {
		return ret, fmt.Errorf("%w: tier %d out of range", ErrInvalidInput, ret.tier)
	}
	return ret, nil
}

// resolvedWeight is the outcome of resolving a principal's voting weight
type resolvedWeight struct {
	used      []models.DelegatedVote
	weight    uint64
	delegated uint64
	excluded  uint64
}

// resolveWeight computes the voting weight of principal for s. Stake the
// principal delegated away under a covering delegation, or that a delegate
// already voted on the proposal, is excluded. When asDelegate is set, stake
// delegated to the principal is included.
func (e *Engine) resolveWeight(
	o *opContext,
	principal string,
	in weightInputs,
	s scope,
	asDelegate bool,
) (resolvedWeight, error) {
	var ret resolvedWeight
	var excluded uint64
	own, err := e.db.GetDelegation(principal, o.txn)
	switch {
	case errors.Is(err, models.ErrDelegationNotFound):
	case err != nil:
		return ret, storeError(err, "load delegation")
	case delegationActive(own, o.now) && s.covers(own):
		excluded = own.Amount
	}
	if s.proposalID != 0 {
		voted, err := e.db.GetDelegatedVote(s.proposalID, principal, o.txn)
		switch {
		case errors.Is(err, models.ErrDelegatedVoteNotFound):
		case err != nil:
			return ret, storeError(err, "load delegated vote")
		default:
			excluded = max(excluded, voted.Amount)
		}
	}
	stake := in.stake
	ret.excluded = min(excluded, stake)
	stake -= ret.excluded
	if asDelegate {
		ret.delegated, ret.used, err = e.delegatedAmount(o, principal, s)
		if err != nil {
			return ret, err
		}
		if stake > math.MaxUint64-ret.delegated {
			return ret, fmt.Errorf("%w: voting stake", ErrOverflow)
		}
		stake += ret.delegated
	}
	ret.weight = power.VotingPower(stake, in.reputation, in.tier)
	return ret, nil
}

// recordDelegatedVotes marks the delegated stake a vote used
func (e *Engine) recordDelegatedVotes(o *opContext, w resolvedWeight) error {
	for i := range w.used {
		if err := e.db.CreateDelegatedVote(&w.used[i], o.txn); err != nil {
			return storeError(err, "delegated vote")
		}
	}
	return nil
}
