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
	"errors"
	"fmt"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/types"
)

// Error kinds. Every error returned by the engine wraps exactly one of these.
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")
	ErrOverflow      = errors.New("arithmetic overflow")
)

var errorKinds = []error{
	ErrUnauthorized,
	ErrNotFound,
	ErrInvalidState,
	ErrInvalidInput,
	ErrAlreadyExists,
	ErrOverflow,
}

var (
	ErrPaused            = fmt.Errorf("%w: governance is paused", ErrInvalidState)
	ErrNotInitialized    = fmt.Errorf("%w: governance parameters not initialized", ErrInvalidState)
	ErrProposalNotFound  = fmt.Errorf("%w: proposal", ErrNotFound)
	ErrVoteNotFound      = fmt.Errorf("%w: vote", ErrNotFound)
	ErrDelegationMissing = fmt.Errorf("%w: delegation", ErrNotFound)
	ErrShareNotFound     = fmt.Errorf("%w: decryption share", ErrNotFound)
	ErrPrivateNotEnabled = fmt.Errorf("%w: private voting not enabled", ErrInvalidState)
	ErrEmptyPrincipal    = fmt.Errorf("%w: principal is required", ErrInvalidInput)
	ErrTallyOverflow     = fmt.Errorf("%w: tally", ErrOverflow)
)

// KindOf returns the error kind wrapped by err, or nil when err carries none
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range errorKinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// storeError maps storage errors onto error kinds
func storeError(err error, what string) error {
	if err == nil || KindOf(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, types.ErrAlreadyExists):
		return fmt.Errorf("%w: %s", ErrAlreadyExists, what)
	case errors.Is(err, models.ErrProposalNotFound):
		return ErrProposalNotFound
	case errors.Is(err, models.ErrVoteRecordNotFound):
		return ErrVoteNotFound
	case errors.Is(err, models.ErrDelegationNotFound):
		return ErrDelegationMissing
	case errors.Is(err, models.ErrPrivateVotingConfigNotFound):
		return ErrPrivateNotEnabled
	case errors.Is(err, models.ErrGovernanceParamsNotFound):
		return ErrNotInitialized
	case errors.Is(err, types.ErrBlobKeyNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}
