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
	"time"

	"github.com/blinklabs-io/agora/database/models"
)

// StakeLedger reports the stake held by a principal
type StakeLedger interface {
	BalanceOf(ctx context.Context, principal string) (uint64, error)
}

// ReputationOracle reports a principal's reputation on a 0..10000 scale
type ReputationOracle interface {
	ScoreOf(ctx context.Context, principal string) (uint64, error)
}

// TierService reports a principal's membership tier (0..4)
type TierService interface {
	TierOf(ctx context.Context, principal string) (uint8, error)
}

// ProofVerifier checks that a sealed ballot is well formed for the
// proposal's encryption key and the voter
type ProofVerifier interface {
	VerifyBallot(
		encryptionKey []byte,
		proposalID uint64,
		voter string,
		ciphertext []byte,
		proof []byte,
	) error
}

// KeyValidator is optionally implemented by a ProofVerifier to reject
// malformed encryption keys when private voting is enabled
type KeyValidator interface {
	ValidateEncryptionKey(key []byte) error
}

// Executor carries out a passed proposal. It runs inside the execution's
// atomic unit, so an error aborts the execution.
type Executor interface {
	Execute(ctx context.Context, proposal *models.Proposal) error
}

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(context.Context, *models.Proposal) error

func (f ExecutorFunc) Execute(ctx context.Context, proposal *models.Proposal) error {
	return f(ctx, proposal)
}

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Collaborators are the external services consumed by the engine. Stake is
// required. A nil Reputation or Tier reads as zero for every principal, and
// private ballots are refused without a Verifier.
type Collaborators struct {
	Stake      StakeLedger
	Reputation ReputationOracle
	Tier       TierService
	Verifier   ProofVerifier
	Executors  map[Category]Executor
	Clock      Clock
}
