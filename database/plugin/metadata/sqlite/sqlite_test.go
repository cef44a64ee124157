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

package sqlite

import (
	"testing"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates an in-memory store that is closed when the test ends
func setupTestStore(t *testing.T) *MetadataStoreSqlite {
	t.Helper()
	store, err := New("", nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func testProposal(id uint64) *models.Proposal {
	return &models.Proposal{
		ID:        id,
		Proposer:  "alice",
		StartTime: 1000,
		EndTime:   2000,
		Status:    models.ProposalStatusActive,
	}
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	storeA := setupTestStore(t)
	storeB := setupTestStore(t)
	require.NoError(t, storeA.CreateProposal(testProposal(1), nil))
	p, err := storeB.GetProposal(1, nil)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCommitTimestamp(t *testing.T) {
	store := setupTestStore(t)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)
	require.NoError(t, store.SetCommitTimestamp(12345, nil))
	require.NoError(t, store.SetCommitTimestamp(67890, nil))
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(67890), ts)
}

func TestGovernanceParams(t *testing.T) {
	store := setupTestStore(t)
	params, err := store.GetGovernanceParams(nil)
	require.NoError(t, err)
	assert.Nil(t, params)

	params = &models.GovernanceParams{
		Authority:         "root",
		ProposalThreshold: 1000,
		Quorum:            types.NewUint256(10000),
		VotingPeriod:      604800,
	}
	require.NoError(t, store.CreateGovernanceParams(params, nil))
	err = store.CreateGovernanceParams(params, nil)
	require.ErrorIs(t, err, types.ErrAlreadyExists)

	params.ProposalCount = 7
	params.Paused = true
	require.NoError(t, store.SetGovernanceParams(params, nil))
	got, err := store.GetGovernanceParams(nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(7), got.ProposalCount)
	assert.True(t, got.Paused)
	assert.Equal(t, "10000", got.Quorum.String())
}

func TestProposalRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	p := testProposal(1)
	p.VotesFor = types.NewUint256(500)
	require.NoError(t, store.CreateProposal(p, nil))
	require.ErrorIs(t, store.CreateProposal(testProposal(1), nil), types.ErrAlreadyExists)

	// Updates must persist zero values too
	p.VotesFor = types.NewUint256(0)
	p.Status = models.ProposalStatusPending
	require.NoError(t, store.SetProposal(p, nil))
	got, err := store.GetProposal(1, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "0", got.VotesFor.String())
	assert.Equal(t, uint8(models.ProposalStatusPending), got.Status)

	require.ErrorIs(t, store.SetProposal(testProposal(99), nil), types.ErrRecordNotFound)
}

func TestGetProposalsFilter(t *testing.T) {
	store := setupTestStore(t)
	for i := uint64(1); i <= 5; i++ {
		p := testProposal(i)
		if i%2 == 0 {
			p.Status = models.ProposalStatusPassed
		}
		require.NoError(t, store.CreateProposal(p, nil))
	}
	all, err := store.GetProposals(nil, 0, 0, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	status := uint8(models.ProposalStatusPassed)
	passed, err := store.GetProposals(&status, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, passed, 2)
	assert.Equal(t, uint64(2), passed[0].ID)
	assert.Equal(t, uint64(4), passed[1].ID)

	page, err := store.GetProposals(nil, 2, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(3), page[0].ID)
}

func TestVoteRecordUniqueness(t *testing.T) {
	store := setupTestStore(t)
	vote := &models.VoteRecord{
		ProposalID: 1,
		Voter:      "bob",
		Choice:     models.VoteFor,
		Weight:     77,
	}
	require.NoError(t, store.CreateVoteRecord(vote, nil))
	dup := &models.VoteRecord{
		ProposalID: 1,
		Voter:      "bob",
		Choice:     models.VoteAgainst,
		Weight:     1,
	}
	require.ErrorIs(t, store.CreateVoteRecord(dup, nil), types.ErrAlreadyExists)
	// Same voter on another proposal is fine
	other := &models.VoteRecord{ProposalID: 2, Voter: "bob", Weight: 1}
	require.NoError(t, store.CreateVoteRecord(other, nil))

	got, err := store.GetVoteRecord(1, "bob", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(77), got.Weight)

	require.NoError(t, store.SetVoteRecordsRevealed(1, nil))
	votes, err := store.GetVoteRecords(1, nil)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.True(t, votes[0].Revealed)
	got, err = store.GetVoteRecord(2, "bob", nil)
	require.NoError(t, err)
	assert.False(t, got.Revealed)
}

func TestDelegations(t *testing.T) {
	store := setupTestStore(t)
	d := &models.Delegation{
		Delegator: "carol",
		Delegate:  "dave",
		Amount:    100,
		Type:      models.DelegationTypeFull,
		Revocable: true,
	}
	require.NoError(t, store.CreateDelegation(d, nil))
	require.ErrorIs(t, store.CreateDelegation(d, nil), types.ErrAlreadyExists)
	require.NoError(t, store.CreateDelegation(&models.Delegation{
		Delegator: "erin",
		Delegate:  "dave",
		Amount:    50,
	}, nil))

	byDelegate, err := store.GetDelegationsByDelegate("dave", nil)
	require.NoError(t, err)
	require.Len(t, byDelegate, 2)
	assert.Equal(t, "carol", byDelegate[0].Delegator)

	require.NoError(t, store.DeleteDelegation("carol", nil))
	require.ErrorIs(t, store.DeleteDelegation("carol", nil), types.ErrRecordNotFound)
	got, err := store.GetDelegation("carol", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDelegateStatsUpsert(t *testing.T) {
	store := setupTestStore(t)
	stats := &models.DelegateStats{
		Delegate:         "dave",
		UniqueDelegators: 1,
		TotalDelegated:   types.NewUint256(100),
	}
	require.NoError(t, store.SetDelegateStats(stats, nil))
	stats.UniqueDelegators = 0
	stats.TotalDelegated = types.NewUint256(0)
	require.NoError(t, store.SetDelegateStats(stats, nil))
	got, err := store.GetDelegateStats("dave", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(0), got.UniqueDelegators)
	assert.Equal(t, "0", got.TotalDelegated.String())
}

func TestPrivateVotingRecords(t *testing.T) {
	store := setupTestStore(t)
	cfg := &models.PrivateVotingConfig{
		ProposalID:    3,
		EncryptionKey: make([]byte, 32),
		Committee:     []string{"m0", "m1", "m2"},
		Threshold:     2,
	}
	require.NoError(t, store.CreatePrivateVotingConfig(cfg, nil))
	require.ErrorIs(t, store.CreatePrivateVotingConfig(cfg, nil), types.ErrAlreadyExists)

	cfg.RevealStarted = true
	cfg.SharesReceived = 1
	require.NoError(t, store.SetPrivateVotingConfig(cfg, nil))
	got, err := store.GetPrivateVotingConfig(3, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"m0", "m1", "m2"}, got.Committee)
	assert.True(t, got.RevealStarted)
	assert.Equal(t, 1, got.CommitteeIndex("m1"))

	share := &models.DecryptionShare{
		ProposalID:     3,
		CommitteeIndex: 1,
		Member:         "m1",
		ShareHash:      make([]byte, 32),
	}
	require.NoError(t, store.CreateDecryptionShare(share, nil))
	dup := *share
	dup.ID = 0
	require.ErrorIs(t, store.CreateDecryptionShare(&dup, nil), types.ErrAlreadyExists)
	shares, err := store.GetDecryptionShares(3, nil)
	require.NoError(t, err)
	assert.Len(t, shares, 1)
}

func TestTransactionRollback(t *testing.T) {
	store := setupTestStore(t)
	txn := store.Transaction()
	require.NoError(t, store.CreateProposal(testProposal(1), txn))
	got, err := store.GetProposal(1, txn)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NoError(t, txn.Rollback())
	// A finished transaction can't be reused
	_, err = store.GetProposal(1, txn)
	require.Error(t, err)

	got, err = store.GetProposal(1, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTransactionCommit(t *testing.T) {
	store := setupTestStore(t)
	txn := store.Transaction()
	require.NoError(t, store.CreateProposal(testProposal(1), txn))
	require.NoError(t, txn.Commit())
	// Rollback after commit is a no-op
	require.NoError(t, txn.Rollback())
	got, err := store.GetProposal(1, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestFileBackedStore(t *testing.T) {
	dataDir := t.TempDir()
	store, err := New(dataDir, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateProposal(testProposal(1), nil))
	require.NoError(t, store.Close())

	store, err = New(dataDir, nil, nil)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.GetProposal(1, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
