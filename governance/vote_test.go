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
	"testing"
	"time"

	"github.com/blinklabs-io/agora/event"
	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastOpenVote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createProposal(t, "prop")
	env.setWeight("alice", 400)

	_, ch := env.bus.Subscribe(event.VoteCastEventType)
	vote, err := env.engine.CastOpenVote(ctx, "alice", id, governance.VoteAbstain, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), vote.Weight)
	assert.Equal(t, uint8(governance.VoteAbstain), vote.Choice)
	assert.False(t, vote.IsPrivate)

	evt, ok := waitEvent(t, ch).Data.(event.VoteCastEvent)
	require.True(t, ok)
	assert.Equal(t, "alice", evt.Voter)
	assert.Equal(t, uint64(400), evt.Weight)
	assert.False(t, evt.Private)

	proposal, err := env.engine.GetProposal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "400", proposal.VotesAbstain.String())
	assert.True(t, proposal.VotesFor.IsZero())

	stored, err := env.engine.GetVote(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, vote.Weight, stored.Weight)
	_, err = env.engine.GetVote(ctx, id, "bob")
	requireKind(t, err, governance.ErrNotFound)
}

func TestCastOpenVoteTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createProposal(t, "prop")
	env.setWeight("alice", 400)
	env.vote(t, "alice", id, governance.VoteFor)

	_, ch := env.bus.Subscribe(event.VoteCastEventType)
	_, err := env.engine.CastOpenVote(ctx, "alice", id, governance.VoteFor, false)
	requireKind(t, err, governance.ErrAlreadyExists)
	_, err = env.engine.CastOpenVote(ctx, "alice", id, governance.VoteAgainst, false)
	requireKind(t, err, governance.ErrAlreadyExists)

	proposal, err := env.engine.GetProposal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "400", proposal.VotesFor.String())
	assert.True(t, proposal.VotesAgainst.IsZero())
	assert.Equal(t, uint64(1), proposal.VoteCount)

	votes, err := env.engine.ListVotes(ctx, id)
	require.NoError(t, err)
	assert.Len(t, votes, 1)

	select {
	case evt := <-ch:
		t.Fatalf("unexpected event for failed vote: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCastOpenVoteValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createProposal(t, "prop")
	env.setWeight("alice", 400)

	_, err := env.engine.CastOpenVote(ctx, "alice", id, governance.Vote(3), false)
	requireKind(t, err, governance.ErrInvalidInput)
	_, err = env.engine.CastOpenVote(ctx, "alice", 42, governance.VoteFor, false)
	requireKind(t, err, governance.ErrNotFound)
	_, err = env.engine.CastOpenVote(ctx, "", id, governance.VoteFor, false)
	requireKind(t, err, governance.ErrInvalidInput)
	_, err = env.engine.CastOpenVote(ctx, "nobody", id, governance.VoteFor, false)
	requireKind(t, err, governance.ErrInvalidInput)
	_, err = env.engine.ListVotes(ctx, 42)
	requireKind(t, err, governance.ErrNotFound)
}

func TestCastOpenVoteTierOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProposal(t, "prop")
	env.stake.Set("alice", oracle.Entry{Stake: 100, Tier: 5})
	_, err := env.engine.CastOpenVote(context.Background(), "alice", id, governance.VoteFor, false)
	requireKind(t, err, governance.ErrInvalidInput)
}

func TestCastOpenVoteReputationAndTier(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProposal(t, "prop")
	// isqrt(1_000_000) = 1000, boost 1.5x, tier 2.0x
	env.stake.Set("alice", oracle.Entry{Stake: 1_000_000, Reputation: 5000, Tier: 2})
	vote, err := env.engine.CastOpenVote(context.Background(), "alice", id, governance.VoteFor, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), vote.Weight)
}

func TestCastOpenVoteWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createProposal(t, "prop")
	env.setWeight("alice", 100)
	env.setWeight("bob", 100)

	// The end time itself is still inside the window
	env.clock.Advance(7 * day)
	env.vote(t, "alice", id, governance.VoteFor)
	env.clock.Advance(time.Second)
	_, err := env.engine.CastOpenVote(ctx, "bob", id, governance.VoteFor, false)
	requireKind(t, err, governance.ErrInvalidState)
}
