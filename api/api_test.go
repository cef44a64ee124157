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

package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/agora/ballot"
	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

type testServer struct {
	api   *API
	clock *testClock
	stake *oracle.Static
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	verifier, err := ballot.NewVerifier(16)
	require.NoError(t, err)
	ts := &testServer{
		clock: &testClock{now: time.Unix(1_700_000_000, 0)},
		// Weight is the square root of stake at reputation 0 and tier 0
		stake: oracle.NewStatic(map[string]oracle.Entry{
			"alice": {Stake: 1000 * 1000},
			"bob":   {Stake: 11_000 * 11_000},
			"carol": {Stake: 4000 * 4000},
		}),
	}
	engine, err := governance.NewEngine(governance.EngineConfig{
		Database: db,
		Collaborators: governance.Collaborators{
			Stake:    ts.stake,
			Verifier: verifier,
			Clock:    ts.clock,
		},
	})
	require.NoError(t, err)
	ts.api = New(APIConfig{ListenAddress: ":0"}, engine, nil)
	return ts
}

func (ts *testServer) do(
	t *testing.T,
	method string,
	path string,
	principal string,
	body any,
	out any,
) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if principal != "" {
		req.Header.Set(PrincipalHeader, principal)
	}
	w := httptest.NewRecorder()
	ts.api.Handler().ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		require.NoError(t, json.NewDecoder(w.Body).Decode(out))
	}
	return w.Code
}

func (ts *testServer) initParams(t *testing.T) {
	t.Helper()
	var params ParamsResponse
	code := ts.do(t, http.MethodPost, "/api/v1/params", "admin", map[string]any{
		"quorum":             "10000",
		"proposal_threshold": 1000,
		"voting_period":      7 * 24 * 3600,
		"timelock_delay":     3600,
	}, &params)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "admin", params.Authority)
}

func (ts *testServer) createProposal(t *testing.T) ProposalResponse {
	t.Helper()
	var proposal ProposalResponse
	code := ts.do(t, http.MethodPost, "/api/v1/proposals", "alice", CreateProposalRequest{
		Category:     uint8(governance.CategoryTreasury),
		MetadataURI:  "ipfs://proposal",
		MetadataHash: hex.EncodeToString(bytes.Repeat([]byte{0xab}, 32)),
	}, &proposal)
	require.Equal(t, http.StatusCreated, code)
	return proposal
}

func TestParamsInitDisabled(t *testing.T) {
	ts := newTestServer(t)
	ts.api.config.DisableParamsInit = true
	code := ts.do(t, http.MethodPost, "/api/v1/params", "mallory", map[string]any{
		"quorum":        "1",
		"voting_period": 3600,
	}, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	code = ts.do(t, http.MethodGet, "/api/v1/params", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStartStop(t *testing.T) {
	a := newTestServer(t).api

	err := a.Start(t.Context())
	require.NoError(t, err)

	a.mu.Lock()
	assert.NotNil(t, a.httpServer)
	a.mu.Unlock()

	stopCtx, stopCancel := context.WithTimeout(
		context.Background(),
		5*time.Second,
	)
	defer stopCancel()
	err = a.Stop(stopCtx)
	require.NoError(t, err)

	a.mu.Lock()
	assert.Nil(t, a.httpServer)
	a.mu.Unlock()
}

func TestStartAlreadyStarted(t *testing.T) {
	a := newTestServer(t).api

	ctx := t.Context()
	err := a.Start(ctx)
	require.NoError(t, err)
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer stopCancel()
		_ = a.Stop(stopCtx)
	}()

	err = a.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestStopIdempotent(t *testing.T) {
	a := newTestServer(t).api
	require.NoError(t, a.Stop(context.Background()))
	require.NoError(t, a.Stop(context.Background()))
}

func TestDefaultListenAddress(t *testing.T) {
	a := New(APIConfig{}, nil, slog.Default())
	assert.Equal(t, DefaultListenAddress, a.config.ListenAddress)
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	ts.api.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.IsHealthy)
}

func TestRequestIDPassthrough(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/params", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	ts.api.Handler().ServeHTTP(w, req)

	// Parameters are not initialized yet
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "req-1", resp.RequestID)
}

func TestParamsRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.initParams(t)

	var params ParamsResponse
	code := ts.do(t, http.MethodPatch, "/api/v1/params", "alice", map[string]any{
		"voting_period": 60,
	}, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code = ts.do(t, http.MethodPatch, "/api/v1/params", "admin", map[string]any{
		"voting_period": 60,
	}, &params)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(60), params.VotingPeriod)
	assert.Equal(t, "10000", params.Quorum.String())

	code = ts.do(t, http.MethodPost, "/api/v1/params/authority", "admin", AuthorityRequest{Next: "carol"}, nil)
	require.Equal(t, http.StatusNoContent, code)
	code = ts.do(t, http.MethodPost, "/api/v1/params/authority/accept", "carol", nil, nil)
	require.Equal(t, http.StatusNoContent, code)

	code = ts.do(t, http.MethodPost, "/api/v1/params/pause", "admin", PauseRequest{Paused: true}, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code = ts.do(t, http.MethodPost, "/api/v1/params/pause", "carol", PauseRequest{Paused: true}, nil)
	require.Equal(t, http.StatusNoContent, code)

	code = ts.do(t, http.MethodGet, "/api/v1/params", "", nil, &params)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "carol", params.Authority)
	assert.True(t, params.Paused)

	// Paused governance rejects new proposals
	code = ts.do(t, http.MethodPost, "/api/v1/proposals", "alice", CreateProposalRequest{}, nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestProposalLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.initParams(t)
	proposal := ts.createProposal(t)
	assert.Equal(t, uint64(1), proposal.ID)
	assert.Equal(t, "active", proposal.Status)
	assert.Equal(t, "treasury", proposal.Category)

	var vote VoteResponse
	code := ts.do(t, http.MethodPost, "/api/v1/proposals/1/votes", "bob", OpenVoteRequest{
		Choice: uint8(governance.VoteFor),
	}, &vote)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "for", vote.Choice)
	assert.Equal(t, uint64(11_000), vote.Weight)

	code = ts.do(t, http.MethodPost, "/api/v1/proposals/1/votes", "bob", OpenVoteRequest{}, nil)
	assert.Equal(t, http.StatusConflict, code)

	code = ts.do(t, http.MethodPost, "/api/v1/proposals/1/votes", "carol", OpenVoteRequest{
		Choice: uint8(governance.VoteAgainst),
	}, nil)
	require.Equal(t, http.StatusCreated, code)

	var votes []VoteResponse
	code = ts.do(t, http.MethodGet, "/api/v1/proposals/1/votes", "", nil, &votes)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, votes, 2)

	code = ts.do(t, http.MethodGet, "/api/v1/proposals/1/votes/carol", "", nil, &vote)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "against", vote.Choice)
	code = ts.do(t, http.MethodGet, "/api/v1/proposals/1/votes/dave", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	// Voting is still open
	code = ts.do(t, http.MethodPost, "/api/v1/proposals/1/finalize", "", nil, nil)
	assert.Equal(t, http.StatusConflict, code)

	ts.clock.Advance(7*24*time.Hour + time.Second)
	code = ts.do(t, http.MethodPost, "/api/v1/proposals/1/finalize", "", nil, &proposal)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "passed", proposal.Status)
	assert.Equal(t, "11000", proposal.VotesFor.String())
	assert.Equal(t, "4000", proposal.VotesAgainst.String())

	// Timelock has not elapsed
	code = ts.do(t, http.MethodPost, "/api/v1/proposals/1/execute", "", nil, nil)
	assert.Equal(t, http.StatusConflict, code)
	ts.clock.Advance(time.Hour)
	code = ts.do(t, http.MethodPost, "/api/v1/proposals/1/execute", "", nil, &proposal)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "executed", proposal.Status)
	assert.True(t, proposal.Executed)
}

func TestListProposals(t *testing.T) {
	ts := newTestServer(t)
	ts.initParams(t)
	for range 3 {
		ts.createProposal(t)
	}
	code := ts.do(t, http.MethodPost, "/api/v1/proposals/2/cancel", "alice", nil, nil)
	require.Equal(t, http.StatusOK, code)

	var proposals []ProposalResponse
	code = ts.do(t, http.MethodGet, "/api/v1/proposals?count=2&page=2", "", nil, &proposals)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, proposals, 1)
	assert.Equal(t, uint64(3), proposals[0].ID)

	code = ts.do(t, http.MethodGet, "/api/v1/proposals?status=cancelled", "", nil, &proposals)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, proposals, 1)
	assert.Equal(t, uint64(2), proposals[0].ID)

	code = ts.do(t, http.MethodGet, "/api/v1/proposals?status=bogus", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code = ts.do(t, http.MethodGet, "/api/v1/proposals?count=abc", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRequestValidation(t *testing.T) {
	ts := newTestServer(t)
	ts.initParams(t)
	testDefs := []struct {
		name      string
		method    string
		path      string
		principal string
		body      any
		status    int
	}{
		{"bad id", http.MethodGet, "/api/v1/proposals/abc", "", nil, http.StatusBadRequest},
		{"missing proposal", http.MethodGet, "/api/v1/proposals/42", "", nil, http.StatusNotFound},
		{"missing principal", http.MethodPost, "/api/v1/proposals", "", CreateProposalRequest{}, http.StatusBadRequest},
		{"bad metadata hash", http.MethodPost, "/api/v1/proposals", "alice", CreateProposalRequest{MetadataHash: "zz"}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v1/delegations", "alice", map[string]any{"bogus": 1}, http.StatusBadRequest},
		{"below threshold", http.MethodPost, "/api/v1/proposals", "dave", CreateProposalRequest{}, http.StatusForbidden},
		{"bad share index", http.MethodGet, "/api/v1/proposals/1/private/shares/300", "", nil, http.StatusBadRequest},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			var resp ErrorResponse
			code := ts.do(t, testDef.method, testDef.path, testDef.principal, testDef.body, &resp)
			assert.Equal(t, testDef.status, code)
			assert.Equal(t, testDef.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestDelegationRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.initParams(t)

	var delegation DelegationResponse
	code := ts.do(t, http.MethodPost, "/api/v1/delegations", "carol", DelegateRequest{
		Delegate:  "alice",
		Amount:    5_000_000,
		Revocable: true,
	}, &delegation)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "alice", delegation.Delegate)

	var stats DelegateStatsResponse
	code = ts.do(t, http.MethodGet, "/api/v1/delegates/alice/stats", "", nil, &stats)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint64(1), stats.UniqueDelegators)
	assert.Equal(t, "5000000", stats.TotalDelegated.String())

	var delegations []DelegationResponse
	code = ts.do(t, http.MethodGet, "/api/v1/delegates/alice/delegations", "", nil, &delegations)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, delegations, 1)
	assert.Equal(t, "carol", delegations[0].Delegator)

	proposal := ts.createProposal(t)
	var amount DelegatedAmountResponse
	code = ts.do(t, http.MethodGet, "/api/v1/proposals/1/delegated/alice", "", nil, &amount)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, proposal.ID, amount.ProposalID)
	assert.Equal(t, uint64(5_000_000), amount.Amount)

	code = ts.do(t, http.MethodDelete, "/api/v1/delegations/carol", "alice", nil, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code = ts.do(t, http.MethodDelete, "/api/v1/delegations/carol", "carol", nil, &delegation)
	require.Equal(t, http.StatusOK, code)
	code = ts.do(t, http.MethodGet, "/api/v1/delegations/carol", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPrivateVotingRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.initParams(t)
	proposal := ts.createProposal(t)
	_, pub, err := ballot.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var cfg PrivateVotingResponse
	code := ts.do(t, http.MethodPost, "/api/v1/proposals/1/private", "alice", EnablePrivateVotingRequest{
		EncryptionKey: hex.EncodeToString(pub),
		Committee:     []string{"m1", "m2", "m3"},
		Threshold:     2,
	}, &cfg)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, uint8(2), cfg.Threshold)

	ct, proof, err := ballot.Encrypt(rand.Reader, pub, proposal.ID, "bob", uint8(governance.VoteFor))
	require.NoError(t, err)
	var vote VoteResponse
	code = ts.do(t, http.MethodPost, "/api/v1/proposals/1/private-votes", "bob", PrivateVoteRequest{
		Ciphertext: hex.EncodeToString(ct),
		Proof:      hex.EncodeToString(proof),
	}, &vote)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, vote.IsPrivate)
	assert.Empty(t, vote.Choice)

	var sealed SealedBallotResponse
	code = ts.do(t, http.MethodGet, "/api/v1/proposals/1/private-votes/bob", "", nil, &sealed)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, hex.EncodeToString(ct), sealed.Ciphertext)
	var listed []SealedBallotResponse
	code = ts.do(t, http.MethodGet, "/api/v1/proposals/1/private-votes", "", nil, &listed)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, listed, 1)
	assert.Equal(t, "bob", listed[0].Voter)
	assert.Equal(t, vote.Weight, listed[0].Weight)
	assert.Equal(t, hex.EncodeToString(proof), listed[0].Proof)
	code = ts.do(t, http.MethodGet, "/api/v1/proposals/9/private-votes", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	// A proof bound to another voter is rejected
	code = ts.do(t, http.MethodPost, "/api/v1/proposals/1/private-votes", "carol", PrivateVoteRequest{
		Ciphertext: hex.EncodeToString(ct),
		Proof:      hex.EncodeToString(proof),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	ts.clock.Advance(7*24*time.Hour + time.Second)
	code = ts.do(t, http.MethodPost, "/api/v1/proposals/1/private/reveal", "", nil, &cfg)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, cfg.RevealStarted)

	for i, member := range []string{"m1", "m3"} {
		var share ShareResponse
		code = ts.do(t, http.MethodPost, "/api/v1/proposals/1/private/shares", member, ShareRequest{
			Index: uint8(i * 2),
			Share: hex.EncodeToString([]byte("share-" + member)),
		}, &share)
		require.Equal(t, http.StatusCreated, code)
		assert.Len(t, share.ShareHash, 64)
	}
	var shares []ShareResponse
	code = ts.do(t, http.MethodGet, "/api/v1/proposals/1/private/shares", "", nil, &shares)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, shares, 2)
	var payload SharePayloadResponse
	code = ts.do(t, http.MethodGet, "/api/v1/proposals/1/private/shares/2", "", nil, &payload)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, hex.EncodeToString([]byte("share-m3")), payload.Share)
	code = ts.do(t, http.MethodGet, "/api/v1/proposals/1/private/shares/1", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code = ts.do(t, http.MethodPost, "/api/v1/proposals/1/private/aggregate", "m1", map[string]any{
		"for":     "11000",
		"against": "0",
		"abstain": "0",
	}, &cfg)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, cfg.RevealCompleted)
	assert.Equal(t, "11000", cfg.RevealedFor.String())
}

type failingEngine struct {
	Engine
}

func (failingEngine) GetParams(context.Context) (*models.GovernanceParams, error) {
	return nil, assert.AnError
}

func TestInternalErrorHidden(t *testing.T) {
	a := New(APIConfig{}, failingEngine{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/params", nil)
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Internal Server Error", resp.Error)
	assert.NotContains(t, resp.Message, assert.AnError.Error())
}
