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

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/event"
)

func validateParams(params *models.GovernanceParams) error {
	if params.VotingPeriod <= 0 {
		return fmt.Errorf("%w: voting period must be positive", ErrInvalidInput)
	}
	if params.VotingDelay < 0 {
		return fmt.Errorf("%w: voting delay must not be negative", ErrInvalidInput)
	}
	if params.TimelockDelay < 0 {
		return fmt.Errorf("%w: timelock delay must not be negative", ErrInvalidInput)
	}
	if params.Quorum.IsZero() {
		return fmt.Errorf("%w: quorum must be positive", ErrInvalidInput)
	}
	return nil
}

// InitializeParams creates the governance parameters with caller as authority
func (e *Engine) InitializeParams(
	ctx context.Context,
	caller string,
	params Params,
) (*models.GovernanceParams, error) {
	if err := requirePrincipal(caller); err != nil {
		return nil, err
	}
	ret := &models.GovernanceParams{
		ID:                models.GovernanceParamsRowID,
		Authority:         caller,
		Quorum:            params.Quorum,
		ProposalThreshold: params.ProposalThreshold,
		VotingPeriod:      params.VotingPeriod,
		VotingDelay:       params.VotingDelay,
		TimelockDelay:     params.TimelockDelay,
	}
	if err := validateParams(ret); err != nil {
		return nil, err
	}
	err := e.update(ctx, "initialize_params", caller, func(o *opContext) error {
		ret.LastUpdated = o.now
		if err := e.db.CreateGovernanceParams(ret, o.txn); err != nil {
			return storeError(err, "governance parameters")
		}
		o.emit(
			event.ParamsUpdatedEventType,
			event.ParamsUpdatedEvent{UpdatedBy: caller},
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (e *Engine) loadParamsAsAuthority(
	o *opContext,
	caller string,
) (*models.GovernanceParams, error) {
	params, err := e.loadParams(o)
	if err != nil {
		return nil, err
	}
	if caller != params.Authority {
		return nil, fmt.Errorf("%w: caller is not the governance authority", ErrUnauthorized)
	}
	return params, nil
}

func (e *Engine) saveParams(o *opContext, params *models.GovernanceParams) error {
	params.LastUpdated = o.now
	return storeError(e.db.SetGovernanceParams(params, o.txn), "save governance parameters")
}

// UpdateParams applies the non-nil fields of update. Only the authority may
// change parameters.
func (e *Engine) UpdateParams(
	ctx context.Context,
	caller string,
	update ParamsUpdate,
) (*models.GovernanceParams, error) {
	var ret *models.GovernanceParams
	err := e.update(ctx, "update_params", caller, func(o *opContext) error {
		params, err := e.loadParamsAsAuthority(o, caller)
		if err != nil {
			return err
		}
		if update.Quorum != nil {
			params.Quorum = *update.Quorum
		}
		if update.ProposalThreshold != nil {
			params.ProposalThreshold = *update.ProposalThreshold
		}
		if update.VotingPeriod != nil {
			params.VotingPeriod = *update.VotingPeriod
		}
		if update.VotingDelay != nil {
			params.VotingDelay = *update.VotingDelay
		}
		if update.TimelockDelay != nil {
			params.TimelockDelay = *update.TimelockDelay
		}
		if err := validateParams(params); err != nil {
			return err
		}
		if err := e.saveParams(o, params); err != nil {
			return err
		}
		o.emit(
			event.ParamsUpdatedEventType,
			event.ParamsUpdatedEvent{UpdatedBy: caller, Paused: params.Paused},
		)
		ret = params
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// ProposeAuthority nominates the next authority. The nominee takes over once
// it calls AcceptAuthority.
func (e *Engine) ProposeAuthority(
	ctx context.Context,
	caller string,
	next string,
) error {
	if err := requirePrincipal(next); err != nil {
		return err
	}
	return e.update(ctx, "propose_authority", caller, func(o *opContext) error {
		params, err := e.loadParamsAsAuthority(o, caller)
		if err != nil {
			return err
		}
		params.PendingAuthority = next
		return e.saveParams(o, params)
	})
}

// AcceptAuthority completes an authority handover
func (e *Engine) AcceptAuthority(ctx context.Context, caller string) error {
	return e.update(ctx, "accept_authority", caller, func(o *opContext) error {
		params, err := e.loadParams(o)
		if err != nil {
			return err
		}
		if params.PendingAuthority == "" {
			return fmt.Errorf("%w: no authority transfer pending", ErrInvalidState)
		}
		if caller != params.PendingAuthority {
			return fmt.Errorf("%w: caller is not the pending authority", ErrUnauthorized)
		}
		previous := params.Authority
		params.Authority = caller
		params.PendingAuthority = ""
		if err := e.saveParams(o, params); err != nil {
			return err
		}
		o.emit(
			event.AuthorityTransferredEventType,
			event.AuthorityTransferredEvent{Previous: previous, Current: caller},
		)
		return nil
	})
}

// SetPaused halts or resumes proposal creation, voting and delegation
func (e *Engine) SetPaused(ctx context.Context, caller string, paused bool) error {
	return e.update(ctx, "set_paused", caller, func(o *opContext) error {
		params, err := e.loadParamsAsAuthority(o, caller)
		if err != nil {
			return err
		}
		if params.Paused == paused {
			return nil
		}
		params.Paused = paused
		if err := e.saveParams(o, params); err != nil {
			return err
		}
		o.emit(
			event.ParamsUpdatedEventType,
			event.ParamsUpdatedEvent{UpdatedBy: caller, Paused: paused},
		)
		return nil
	})
}

func (e *Engine) GetParams(ctx context.Context) (*models.GovernanceParams, error) {
	var ret *models.GovernanceParams
	err := e.view(ctx, "get_params", func(o *opContext) error {
		params, err := e.db.GetGovernanceParams(o.txn)
		if err != nil {
			if errors.Is(err, models.ErrGovernanceParamsNotFound) {
				return fmt.Errorf("%w: governance parameters", ErrNotFound)
			}
			return storeError(err, "load governance parameters")
		}
		ret = params
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
