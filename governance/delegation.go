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

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/types"
	"github.com/blinklabs-io/agora/event"
)

// Delegate assigns part of the caller's stake to another principal. A
// principal holds at most one delegation at a time.
func (e *Engine) Delegate(
	ctx context.Context,
	caller string,
	req DelegateRequest,
) (*models.Delegation, error) {
	if err := requirePrincipal(caller); err != nil {
		return nil, err
	}
	if req.Delegate == "" {
		return nil, fmt.Errorf("%w: delegate is required", ErrInvalidInput)
	}
	if req.Delegate == caller {
		return nil, fmt.Errorf("%w: cannot delegate to self", ErrInvalidInput)
	}
	if req.Amount == 0 {
		return nil, fmt.Errorf("%w: delegation amount must be positive", ErrInvalidInput)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown delegation type %d", ErrInvalidInput, req.Type)
	}
	delegation := &models.Delegation{
		Delegator: caller,
		Delegate:  req.Delegate,
		Amount:    req.Amount,
		Expiry:    req.Expiry,
		Type:      uint8(req.Type),
		Revocable: req.Revocable,
	}
	switch req.Type {
	case DelegationTypePerCategory:
		if req.CategoryMask == 0 || req.CategoryMask&^AllCategories != 0 {
			return nil, fmt.Errorf(
				"%w: invalid category mask %#x",
				ErrInvalidInput,
				req.CategoryMask,
			)
		}
		delegation.CategoryMask = req.CategoryMask
	case DelegationTypePerProposal:
		if req.ProposalID == 0 {
			return nil, fmt.Errorf("%w: target proposal is required", ErrInvalidInput)
		}
		delegation.ProposalID = req.ProposalID
	}
	var ret *models.Delegation
	err := e.update(ctx, "delegate", caller, func(o *opContext) error {
		if _, err := e.loadUnpausedParams(o); err != nil {
			return err
		}
		if req.Expiry != 0 && req.Expiry <= o.now {
			return fmt.Errorf("%w: expiry is in the past", ErrInvalidInput)
		}
		if req.Type == DelegationTypePerProposal {
			if _, err := e.loadProposal(o, req.ProposalID); err != nil {
				return err
			}
		}
		delegation.DelegatedAt = o.now
		if err := e.db.CreateDelegation(delegation, o.txn); err != nil {
			return storeError(err, "delegation")
		}
		stats, err := e.db.GetDelegateStats(req.Delegate, o.txn)
		if err != nil {
			return storeError(err, "load delegate stats")
		}
		total, ok := stats.TotalDelegated.CheckedAdd(types.NewUint256(req.Amount))
		if !ok {
			return fmt.Errorf("%w: delegated total", ErrOverflow)
		}
		stats.TotalDelegated = total
		stats.UniqueDelegators++
		if err := e.db.SetDelegateStats(stats, o.txn); err != nil {
			return storeError(err, "save delegate stats")
		}
		o.emit(
			event.DelegationCreatedEventType,
			event.DelegationCreatedEvent{
				Delegator:    caller,
				Delegate:     req.Delegate,
				Amount:       req.Amount,
				ProposalID:   delegation.ProposalID,
				Expiry:       req.Expiry,
				CategoryMask: delegation.CategoryMask,
				Type:         delegation.Type,
				Revocable:    req.Revocable,
			},
		)
		ret = delegation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Revoke removes a delegation. A non-revocable delegation can only be
// removed once it has expired, and no delegation can be removed while a
// proposal its stake was voted on is still open.
func (e *Engine) Revoke(
	ctx context.Context,
	caller string,
	delegator string,
) (*models.Delegation, error) {
	if caller != delegator {
		return nil, fmt.Errorf("%w: only the delegator may revoke", ErrUnauthorized)
	}
	var ret *models.Delegation
	err := e.update(ctx, "revoke_delegation", caller, func(o *opContext) error {
		delegation, err := e.db.GetDelegation(delegator, o.txn)
		if err != nil {
			return storeError(err, "load delegation")
		}
		if !delegation.Revocable && delegationActive(delegation, o.now) {
			return fmt.Errorf("%w: delegation is not revocable", ErrInvalidState)
		}
		if err := e.requireDelegationSettled(o, delegator); err != nil {
			return err
		}
		stats, err := e.db.GetDelegateStats(delegation.Delegate, o.txn)
		if err != nil {
			return storeError(err, "load delegate stats")
		}
		total, ok := stats.TotalDelegated.CheckedSub(types.NewUint256(delegation.Amount))
		if !ok || stats.UniqueDelegators == 0 {
			return fmt.Errorf("%w: delegate stats underflow", ErrOverflow)
		}
		stats.TotalDelegated = total
		stats.UniqueDelegators--
		if err := e.db.DeleteDelegation(delegator, o.txn); err != nil {
			return storeError(err, "delete delegation")
		}
		if err := e.db.SetDelegateStats(stats, o.txn); err != nil {
			return storeError(err, "save delegate stats")
		}
		o.emit(
			event.DelegationRevokedEventType,
			event.DelegationRevokedEvent{
				Delegator: delegator,
				Delegate:  delegation.Delegate,
				Amount:    delegation.Amount,
			},
		)
		ret = delegation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// requireDelegationSettled fails while a delegate's vote using delegator's
// stake sits on a proposal that has not been decided
func (e *Engine) requireDelegationSettled(o *opContext, delegator string) error {
	used, err := e.db.GetDelegatedVotesByDelegator(delegator, o.txn)
	if err != nil {
		return storeError(err, "load delegated votes")
	}
	for _, u := range used {
		proposal, err := e.loadProposal(o, u.ProposalID)
		if err != nil {
			return err
		}
		if proposal.Status == models.ProposalStatusPending ||
			proposal.Status == models.ProposalStatusActive {
			return fmt.Errorf(
				"%w: delegated stake was voted on open proposal %d",
				ErrInvalidState,
				u.ProposalID,
			)
		}
	}
	return nil
}

// ResolveDelegatedAmount returns the stake delegated to delegate that is
// active now, applies to the proposal and has not already been voted on it
func (e *Engine) ResolveDelegatedAmount(
	ctx context.Context,
	delegate string,
	proposalID uint64,
) (uint64, error) {
	var ret uint64
	err := e.view(ctx, "resolve_delegated_amount", func(o *opContext) error {
		proposal, err := e.loadProposal(o, proposalID)
		if err != nil {
			return err
		}
		ret, _, err = e.delegatedAmount(o, delegate, proposalScope(proposal))
		return err
	})
	return ret, err
}

func (e *Engine) GetDelegation(
	ctx context.Context,
	delegator string,
) (*models.Delegation, error) {
	var ret *models.Delegation
	err := e.view(ctx, "get_delegation", func(o *opContext) error {
		delegation, err := e.db.GetDelegation(delegator, o.txn)
		if err != nil {
			return storeError(err, "load delegation")
		}
		ret = delegation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// GetDelegateStats returns the delegations received by delegate. A
// principal nobody delegated to has zero stats.
func (e *Engine) GetDelegateStats(
	ctx context.Context,
	delegate string,
) (*models.DelegateStats, error) {
	var ret *models.DelegateStats
	err := e.view(ctx, "get_delegate_stats", func(o *opContext) error {
		stats, err := e.db.GetDelegateStats(delegate, o.txn)
		if err != nil {
			return storeError(err, "load delegate stats")
		}
		ret = stats
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// ListDelegations returns every delegation naming delegate, expired ones
// included
func (e *Engine) ListDelegations(
	ctx context.Context,
	delegate string,
) ([]models.Delegation, error) {
	var ret []models.Delegation
	err := e.view(ctx, "list_delegations", func(o *opContext) error {
		delegations, err := e.db.GetDelegationsByDelegate(delegate, o.txn)
		if err != nil {
			return storeError(err, "list delegations")
		}
		ret = delegations
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
