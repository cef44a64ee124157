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

package governance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/agora/ballot"
	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/database/types"
	"github.com/blinklabs-io/agora/event"
	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/oracle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	day       = 24 * time.Hour
	authority = "admin"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	engine   *governance.Engine
	db       *database.Database
	clock    *testClock
	stake    *oracle.Static
	bus      *event.EventBus
	registry *prometheus.Registry
}

// newTestEnv builds an engine over in-memory stores with governance
// parameters initialized: threshold 1000, quorum 10000, a 7 day voting
// period and a 2 day timelock
func newTestEnv(t *testing.T, mutators ...func(*governance.EngineConfig)) *testEnv {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(bus.Stop)
	verifier, err := ballot.NewVerifier(64)
	require.NoError(t, err)
	env := &testEnv{
		db:       db,
		clock:    &testClock{now: time.Unix(1_700_000_000, 0)},
		stake:    oracle.NewStatic(nil),
		bus:      bus,
		registry: prometheus.NewRegistry(),
	}
	cfg := governance.EngineConfig{
		Database:     db,
		EventBus:     bus,
		PromRegistry: env.registry,
		Collaborators: governance.Collaborators{
			Stake:      env.stake,
			Reputation: env.stake,
			Tier:       env.stake,
			Verifier:   verifier,
			Clock:      env.clock,
		},
	}
	for _, m := range mutators {
		m(&cfg)
	}
	env.engine, err = governance.NewEngine(cfg)
	require.NoError(t, err)
	_, err = env.engine.InitializeParams(
		context.Background(),
		authority,
		governance.Params{
			Quorum:            types.NewUint256(10_000),
			ProposalThreshold: 1000,
			VotingPeriod:      int64((7 * day).Seconds()),
			TimelockDelay:     int64((2 * day).Seconds()),
		},
	)
	require.NoError(t, err)
	return env
}

// setWeight gives principal a stake whose voting weight at reputation 0 and
// tier 0 is exactly weight
func (env *testEnv) setWeight(principal string, weight uint64) {
	env.stake.SetStake(principal, weight*weight)
}

func (env *testEnv) createProposal(t *testing.T, proposer string) uint64 {
	t.Helper()
	env.setWeight(proposer, 1000)
	proposal, err := env.engine.CreateProposal(
		context.Background(),
		proposer,
		governance.CreateProposalRequest{Category: governance.CategoryGeneral},
	)
	require.NoError(t, err)
	return proposal.ID
}

func (env *testEnv) vote(t *testing.T, voter string, id uint64, choice governance.Vote) {
	t.Helper()
	_, err := env.engine.CastOpenVote(context.Background(), voter, id, choice, false)
	require.NoError(t, err)
}

func requireKind(t *testing.T, err error, kind error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind, "unexpected error: %v", err)
}

func waitEvent(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return event.Event{}
}
