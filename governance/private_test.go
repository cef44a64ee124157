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
	"crypto/rand"
	"testing"
	"time"

	"github.com/blinklabs-io/agora/ballot"
	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/types"
	"github.com/blinklabs-io/agora/governance"
	"github.com/cloudflare/circl/group"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var committee = []string{"c1", "c2", "c3"}

type privateEnv struct {
	*testEnv
	priv []byte
	key  []byte
	id   uint64
}

func newPrivateEnv(t *testing.T) *privateEnv {
	t.Helper()
	env := newTestEnv(t)
	id := env.createProposal(t, "prop")
	priv, pub, err := ballot.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, err = env.engine.EnablePrivateVoting(
		context.Background(),
		"prop",
		id,
		governance.EnablePrivateVotingRequest{
			EncryptionKey: pub,
			Committee:     committee,
			Threshold:     2,
		},
	)
	require.NoError(t, err)
	return &privateEnv{testEnv: env, priv: priv, key: pub, id: id}
}

func (env *privateEnv) seal(t *testing.T, voter string, choice governance.Vote) governance.SealedBallot {
	t.Helper()
	ct, proof, err := ballot.Encrypt(rand.Reader, env.key, env.id, voter, uint8(choice))
	require.NoError(t, err)
	return governance.SealedBallot{Ciphertext: ct, Proof: proof}
}

func (env *privateEnv) castPrivate(t *testing.T, voter string, choice governance.Vote, weight uint64) {
	t.Helper()
	env.setWeight(voter, weight)
	_, err := env.engine.CastPrivateVote(
		context.Background(),
		voter,
		env.id,
		env.seal(t, voter, choice),
		false,
	)
	require.NoError(t, err)
}

// decryptTotals decrypts a tallied ciphertext with the full key and recovers
// each bucket by search up to limit
func (env *privateEnv) decryptTotals(t *testing.T, tally []byte, limit uint64) [ballot.Buckets]uint64 {
	t.Helper()
	cts, err := ballot.DecodeCiphertext(tally)
	require.NoError(t, err)
	x := group.Ristretto255.NewScalar()
	require.NoError(t, x.UnmarshalBinary(env.priv))
	var ret [ballot.Buckets]uint64
	for i, ct := range cts {
		shared := group.Ristretto255.NewElement().Mul(ct.C1, x)
		mG := group.Ristretto255.NewElement().Add(
			ct.C2,
			group.Ristretto255.NewElement().Neg(shared),
		)
		acc := group.Ristretto255.Identity()
		g := group.Ristretto255.Generator()
		found := false
		for m := uint64(0); m <= limit; m++ {
			if acc.IsEqual(mG) {
				ret[i] = m
				found = true
				break
			}
			acc.Add(acc, g)
		}
		require.True(t, found, "bucket %d exceeds %d", i, limit)
	}
	return ret
}

func TestEnablePrivateVotingValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createProposal(t, "prop")
	_, pub, err := ballot.GenerateKey(rand.Reader)
	require.NoError(t, err)
	valid := governance.EnablePrivateVotingRequest{
		EncryptionKey: pub,
		Committee:     committee,
		Threshold:     2,
	}

	_, err = env.engine.EnablePrivateVoting(ctx, "mallory", id, valid)
	requireKind(t, err, governance.ErrUnauthorized)
	_, err = env.engine.EnablePrivateVoting(ctx, "prop", 99, valid)
	requireKind(t, err, governance.ErrNotFound)

	invalid := []governance.EnablePrivateVotingRequest{
		{EncryptionKey: pub, Committee: nil, Threshold: 1},
		{EncryptionKey: pub, Committee: []string{"a", "b", "c", "d", "e", "f"}, Threshold: 1},
		{EncryptionKey: pub, Committee: []string{"a", "a"}, Threshold: 1},
		{EncryptionKey: pub, Committee: []string{"a", ""}, Threshold: 1},
		{EncryptionKey: pub, Committee: committee, Threshold: 0},
		{EncryptionKey: pub, Committee: committee, Threshold: 4},
		{EncryptionKey: pub[:31], Committee: committee, Threshold: 2},
		{EncryptionKey: make([]byte, 32), Committee: committee, Threshold: 2},
	}
	for _, req := range invalid {
		_, err = env.engine.EnablePrivateVoting(ctx, "prop", id, req)
		requireKind(t, err, governance.ErrInvalidInput)
	}

	cfg, err := env.engine.EnablePrivateVoting(ctx, "prop", id, valid)
	require.NoError(t, err)
	assert.Equal(t, committee, cfg.Committee)
	_, err = env.engine.EnablePrivateVoting(ctx, "prop", id, valid)
	requireKind(t, err, governance.ErrAlreadyExists)

	proposal, err := env.engine.GetProposal(ctx, id)
	require.NoError(t, err)
	assert.True(t, proposal.IsPrivate)
}

func TestEnablePrivateVotingAfterVotingStarted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, pub, err := ballot.GenerateKey(rand.Reader)
	require.NoError(t, err)
	req := governance.EnablePrivateVotingRequest{
		EncryptionKey: pub,
		Committee:     committee,
		Threshold:     1,
	}

	voted := env.createProposal(t, "prop")
	env.setWeight("alice", 10)
	env.vote(t, "alice", voted, governance.VoteFor)
	_, err = env.engine.EnablePrivateVoting(ctx, "prop", voted, req)
	requireKind(t, err, governance.ErrInvalidState)

	elapsed := env.createProposal(t, "prop")
	env.clock.Advance(8 * day)
	_, err = env.engine.EnablePrivateVoting(ctx, "prop", elapsed, req)
	requireKind(t, err, governance.ErrInvalidState)
}

func TestCastPrivateVote(t *testing.T) {
	env := newPrivateEnv(t)
	ctx := context.Background()
	env.setWeight("alice", 6000)

	_, err := env.engine.CastOpenVote(ctx, "alice", env.id, governance.VoteFor, false)
	requireKind(t, err, governance.ErrInvalidState)

	// A ballot sealed for another voter fails its proof
	_, err = env.engine.CastPrivateVote(ctx, "alice", env.id, env.seal(t, "bob", governance.VoteFor), false)
	requireKind(t, err, governance.ErrInvalidInput)
	_, err = env.engine.CastPrivateVote(ctx, "alice", env.id, governance.SealedBallot{}, false)
	requireKind(t, err, governance.ErrInvalidInput)

	sealed := env.seal(t, "alice", governance.VoteFor)
	vote, err := env.engine.CastPrivateVote(ctx, "alice", env.id, sealed, false)
	require.NoError(t, err)
	assert.True(t, vote.IsPrivate)
	assert.False(t, vote.Revealed)
	assert.Len(t, vote.BallotHash, 32)

	_, err = env.engine.CastPrivateVote(ctx, "alice", env.id, env.seal(t, "alice", governance.VoteAgainst), false)
	requireKind(t, err, governance.ErrAlreadyExists)

	stored, err := env.engine.GetSealedBallot(ctx, env.id, "alice")
	require.NoError(t, err)
	assert.Equal(t, sealed.Ciphertext, stored.Ciphertext)
	assert.Equal(t, sealed.Proof, stored.Proof)
	_, err = env.engine.GetSealedBallot(ctx, env.id, "bob")
	requireKind(t, err, governance.ErrNotFound)

	proposal, err := env.engine.GetProposal(ctx, env.id)
	require.NoError(t, err)
	assert.True(t, proposal.VotesFor.IsZero())
	assert.Equal(t, uint64(1), proposal.VoteCount)
	cfg, err := env.engine.GetPrivateVotingConfig(ctx, env.id)
	require.NoError(t, err)
	assert.Equal(t, "6000", cfg.CastWeight.String())
}

func TestCastPrivateVoteOnOpenProposal(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProposal(t, "prop")
	env.setWeight("alice", 10)
	_, err := env.engine.CastPrivateVote(context.Background(), "alice", id, governance.SealedBallot{
		Ciphertext: []byte{1},
		Proof:      []byte{1},
	}, false)
	requireKind(t, err, governance.ErrInvalidState)
	_, err = env.engine.GetPrivateVotingConfig(context.Background(), id)
	requireKind(t, err, governance.ErrNotFound)
}

func TestCastPrivateVoteWithoutVerifier(t *testing.T) {
	env := newTestEnv(t, func(cfg *governance.EngineConfig) {
		cfg.Collaborators.Verifier = nil
	})
	id := env.createProposal(t, "prop")
	_, err := env.engine.CastPrivateVote(context.Background(), "alice", id, governance.SealedBallot{
		Ciphertext: []byte{1},
		Proof:      []byte{1},
	}, false)
	requireKind(t, err, governance.ErrInvalidState)
}

func TestPrivateReveal(t *testing.T) {
	env := newPrivateEnv(t)
	ctx := context.Background()
	env.castPrivate(t, "A", governance.VoteFor, 6000)
	env.castPrivate(t, "B", governance.VoteAgainst, 3000)
	env.castPrivate(t, "C", governance.VoteFor, 5000)

	_, err := env.engine.InitiateReveal(ctx, "c1", env.id)
	requireKind(t, err, governance.ErrInvalidState)
	_, err = env.engine.SubmitDecryptionShare(ctx, "c1", env.id, 0, []byte("share"))
	requireKind(t, err, governance.ErrInvalidState)

	env.clock.Advance(7*day + time.Second)
	_, err = env.engine.FinalizeProposal(ctx, "anyone", env.id)
	requireKind(t, err, governance.ErrInvalidState)
	_, err = env.engine.CastPrivateVote(ctx, "D", env.id, env.seal(t, "D", governance.VoteFor), false)
	requireKind(t, err, governance.ErrInvalidState)

	cfg, err := env.engine.InitiateReveal(ctx, "anyone", env.id)
	require.NoError(t, err)
	assert.True(t, cfg.RevealStarted)
	_, err = env.engine.InitiateReveal(ctx, "anyone", env.id)
	requireKind(t, err, governance.ErrInvalidState)

	_, err = env.engine.SubmitDecryptionShare(ctx, "c2", env.id, 0, []byte("share"))
	requireKind(t, err, governance.ErrUnauthorized)
	_, err = env.engine.SubmitDecryptionShare(ctx, "c1", env.id, 3, []byte("share"))
	requireKind(t, err, governance.ErrInvalidInput)
	_, err = env.engine.SubmitDecryptionShare(ctx, "c1", env.id, 0, nil)
	requireKind(t, err, governance.ErrInvalidInput)

	share, err := env.engine.SubmitDecryptionShare(ctx, "c1", env.id, 0, []byte("share-0"))
	require.NoError(t, err)
	assert.Len(t, share.ShareHash, 32)
	_, err = env.engine.SubmitDecryptionShare(ctx, "c1", env.id, 0, []byte("again"))
	requireKind(t, err, governance.ErrAlreadyExists)

	totals := governance.RevealedTotals{
		For:     types.NewUint256(11_000),
		Against: types.NewUint256(3000),
	}
	_, err = env.engine.AggregateRevealedVotes(ctx, "c1", env.id, totals)
	requireKind(t, err, governance.ErrInvalidState)

	_, err = env.engine.SubmitDecryptionShare(ctx, "c3", env.id, 2, []byte("share-2"))
	require.NoError(t, err)
	cfg, err = env.engine.GetPrivateVotingConfig(ctx, env.id)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), cfg.SharesReceived)

	_, err = env.engine.AggregateRevealedVotes(ctx, "mallory", env.id, totals)
	requireKind(t, err, governance.ErrUnauthorized)
	_, err = env.engine.AggregateRevealedVotes(ctx, "c2", env.id, governance.RevealedTotals{
		For:     types.NewUint256(11_001),
		Against: types.NewUint256(3000),
	})
	requireKind(t, err, governance.ErrInvalidInput)

	votes, err := env.engine.ListVotes(ctx, env.id)
	require.NoError(t, err)
	for _, v := range votes {
		assert.False(t, v.Revealed)
	}

	cfg, err = env.engine.AggregateRevealedVotes(ctx, "prop", env.id, totals)
	require.NoError(t, err)
	assert.True(t, cfg.RevealCompleted)
	assert.Equal(t, "11000", cfg.RevealedFor.String())
	_, err = env.engine.AggregateRevealedVotes(ctx, "c1", env.id, totals)
	requireKind(t, err, governance.ErrInvalidState)
	_, err = env.engine.SubmitDecryptionShare(ctx, "c2", env.id, 1, []byte("late"))
	requireKind(t, err, governance.ErrInvalidState)

	votes, err = env.engine.ListVotes(ctx, env.id)
	require.NoError(t, err)
	require.Len(t, votes, 3)
	for _, v := range votes {
		assert.True(t, v.Revealed)
	}

	shares, err := env.engine.ListDecryptionShares(ctx, env.id)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, uint8(0), shares[0].CommitteeIndex)
	assert.Equal(t, uint8(2), shares[1].CommitteeIndex)
	payload, err := env.engine.GetDecryptionShare(ctx, env.id, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("share-2"), payload.Share)
	assert.Equal(t, "c3", payload.Member)
	_, err = env.engine.GetDecryptionShare(ctx, env.id, 1)
	requireKind(t, err, governance.ErrNotFound)

	proposal, err := env.engine.FinalizeProposal(ctx, "anyone", env.id)
	require.NoError(t, err)
	assert.Equal(t, uint8(models.ProposalStatusPassed), proposal.Status)
	assert.Equal(t, "11000", proposal.VotesFor.String())
}

func TestListSealedBallots(t *testing.T) {
	env := newPrivateEnv(t)
	ctx := context.Background()
	sealed, err := env.engine.ListSealedBallots(ctx, env.id)
	require.NoError(t, err)
	assert.Empty(t, sealed)

	env.castPrivate(t, "carol", governance.VoteFor, 50)
	env.castPrivate(t, "alice", governance.VoteFor, 60)
	env.castPrivate(t, "bob", governance.VoteAgainst, 30)
	env.castPrivate(t, "dave", governance.VoteAbstain, 7)

	sealed, err = env.engine.ListSealedBallots(ctx, env.id)
	require.NoError(t, err)
	require.Len(t, sealed, 4)
	verifier, err := ballot.NewVerifier(0)
	require.NoError(t, err)
	voters := make([]string, 0, len(sealed))
	weighted := make([]ballot.WeightedBallot, 0, len(sealed))
	for _, s := range sealed {
		voters = append(voters, s.Voter)
		require.NoError(t, verifier.VerifyBallot(env.key, env.id, s.Voter, s.Ciphertext, s.Proof))
		weighted = append(weighted, ballot.WeightedBallot{
			Ciphertext: s.Ciphertext,
			Weight:     s.Weight,
		})
	}
	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, voters)
	assert.Equal(t, uint64(60), sealed[0].Weight)
	assert.Equal(t, uint64(30), sealed[1].Weight)

	tally, err := ballot.Tally(weighted...)
	require.NoError(t, err)
	totals := env.decryptTotals(t, tally, 200)
	assert.Equal(t, uint64(30), totals[governance.VoteAgainst])
	assert.Equal(t, uint64(110), totals[governance.VoteFor])
	assert.Equal(t, uint64(7), totals[governance.VoteAbstain])
}

func TestListSealedBallotsOnOpenProposal(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProposal(t, "prop")
	_, err := env.engine.ListSealedBallots(context.Background(), id)
	requireKind(t, err, governance.ErrInvalidState)
	_, err = env.engine.ListSealedBallots(context.Background(), id+1)
	requireKind(t, err, governance.ErrNotFound)
}
