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

package oracle

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer starts a daemon stub. The handler receives the URL path and
// decoded request body and returns the value to JSON-encode.
func newTestServer(
	t *testing.T,
	handler func(path string, req map[string]any) (int, any),
) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read body", http.StatusBadRequest)
			return
		}
		req := make(map[string]any)
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				http.Error(w, "Invalid JSON", http.StatusBadRequest)
				return
			}
		}
		status, resp := handler(r.URL.Path, req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	server := newTestServer(t, func(path string, _ map[string]any) (int, any) {
		assert.Equal(t, "/ping", path)
		return http.StatusOK, map[string]any{"pong": true}
	})
	c, err := NewClient(server.URL + "/")
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))
}

func TestPingNoPong(t *testing.T) {
	server := newTestServer(t, func(string, map[string]any) (int, any) {
		return http.StatusOK, map[string]any{}
	})
	c, err := NewClient(server.URL)
	require.NoError(t, err)
	require.Error(t, c.Ping(context.Background()))
}

func TestQueries(t *testing.T) {
	server := newTestServer(t, func(path string, req map[string]any) (int, any) {
		assert.Equal(t, "alice", req["principal"])
		switch path {
		case "/balance":
			return http.StatusOK, map[string]any{"balance": "1000000"}
		case "/reputation":
			return http.StatusOK, map[string]any{"score": "5000"}
		case "/tier":
			return http.StatusOK, map[string]any{"tier": 2}
		}
		return http.StatusNotFound, map[string]any{"error": "no route"}
	})
	c, err := NewClient(server.URL)
	require.NoError(t, err)
	ctx := context.Background()

	balance, err := c.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), balance)
	score, err := c.ScoreOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), score)
	tier, err := c.TierOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint8(2), tier)
}

func TestTierZero(t *testing.T) {
	server := newTestServer(t, func(string, map[string]any) (int, any) {
		return http.StatusOK, map[string]any{"tier": 0}
	})
	c, err := NewClient(server.URL)
	require.NoError(t, err)
	tier, err := c.TierOf(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint8(0), tier)
}

func TestDaemonError(t *testing.T) {
	server := newTestServer(t, func(path string, _ map[string]any) (int, any) {
		if path == "/balance" {
			return http.StatusOK, map[string]any{"error": "unknown principal", "code": "not_found"}
		}
		return http.StatusInternalServerError, map[string]any{"error": "boom", "code": "internal"}
	})
	c, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = c.BalanceOf(context.Background(), "alice")
	var daemonErr *DaemonError
	require.ErrorAs(t, err, &daemonErr)
	assert.Equal(t, "not_found", daemonErr.Code)
	assert.Equal(t, "unknown principal", daemonErr.Msg)

	_, err = c.ScoreOf(context.Background(), "alice")
	require.ErrorAs(t, err, &daemonErr)
	assert.Equal(t, "internal", daemonErr.Code)
}

func TestMalformedResponses(t *testing.T) {
	server := newTestServer(t, func(path string, _ map[string]any) (int, any) {
		switch path {
		case "/balance":
			return http.StatusOK, map[string]any{"balance": "-5"}
		case "/reputation":
			return http.StatusOK, map[string]any{}
		}
		return http.StatusOK, map[string]any{}
	})
	c, err := NewClient(server.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.BalanceOf(ctx, "alice")
	require.Error(t, err)
	_, err = c.ScoreOf(ctx, "alice")
	require.ErrorIs(t, err, ErrMissingField)
	_, err = c.TierOf(ctx, "alice")
	require.ErrorIs(t, err, ErrMissingField)
}

func TestCaching(t *testing.T) {
	var calls atomic.Int32
	server := newTestServer(t, func(string, map[string]any) (int, any) {
		calls.Add(1)
		return http.StatusOK, map[string]any{"balance": "42"}
	})
	now := time.Unix(1_700_000_000, 0)
	c, err := NewClient(server.URL, WithCacheTTL(time.Minute))
	require.NoError(t, err)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for range 3 {
		balance, err := c.BalanceOf(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, uint64(42), balance)
	}
	assert.Equal(t, int32(1), calls.Load())

	now = now.Add(2 * time.Minute)
	_, err = c.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	c.Purge()
	_, err = c.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCachingDisabled(t *testing.T) {
	var calls atomic.Int32
	server := newTestServer(t, func(string, map[string]any) (int, any) {
		calls.Add(1)
		return http.StatusOK, map[string]any{"score": "7"}
	})
	c, err := NewClient(server.URL, WithCacheTTL(0))
	require.NoError(t, err)
	for range 2 {
		_, err := c.ScoreOf(context.Background(), "alice")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueryTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)
	c, err := NewClient(server.URL, WithQueryTimeout(50*time.Millisecond))
	require.NoError(t, err)
	start := time.Now()
	_, err = c.BalanceOf(context.Background(), "alice")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestStatic(t *testing.T) {
	s := NewStatic(map[string]Entry{
		"alice": {Stake: 100, Reputation: 10, Tier: 3},
	})
	ctx := context.Background()
	balance, err := s.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance)
	score, err := s.ScoreOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), score)
	tier, err := s.TierOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint8(3), tier)

	balance, err = s.BalanceOf(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, balance)

	s.SetStake("alice", 5)
	balance, err = s.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), balance)
	tier, err = s.TierOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint8(3), tier)

	s.Set("bob", Entry{Stake: 1})
	balance, err = s.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), balance)
}
