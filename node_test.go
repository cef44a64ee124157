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

package agora

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/agora/database/types"
	"github.com/blinklabs-io/agora/event"
	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeRunStop(t *testing.T) {
	n, err := New(
		NewConfig(
			WithAPIListenAddress("127.0.0.1:0"),
			WithStaticStake(map[string]oracle.Entry{
				"alice": {Stake: 1_000_000},
			}),
		),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(ctx)
	}()
	select {
	case <-n.Ready():
	case err := <-errCh:
		t.Fatalf("node exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for node")
	}

	_, evtCh := n.EventBus().Subscribe(event.ProposalCreatedEventType)
	engine := n.Engine()
	require.NotNil(t, engine)
	_, err = engine.InitializeParams(ctx, "admin", governance.Params{
		Quorum:            types.NewUint256(1),
		ProposalThreshold: 1000,
		VotingPeriod:      3600,
	})
	require.NoError(t, err)
	proposal, err := engine.CreateProposal(ctx, "alice", governance.CreateProposalRequest{})
	require.NoError(t, err)
	select {
	case evt := <-evtCh:
		data, ok := evt.Data.(event.ProposalCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, proposal.ID, data.ProposalID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for shutdown")
	}
	// Stopping again is a no-op
	require.NoError(t, n.Stop())
}

func TestNodeBootstrapParams(t *testing.T) {
	dataDir := t.TempDir()
	params := governance.Params{
		Quorum:            types.NewUint256(500),
		ProposalThreshold: 10,
		VotingPeriod:      3600,
		TimelockDelay:     60,
	}
	run := func(authority string) *Node {
		n, err := New(
			NewConfig(
				WithDatabasePath(dataDir),
				WithAPIListenAddress("127.0.0.1:0"),
				WithStaticStake(map[string]oracle.Entry{}),
				WithInitialParams(authority, params),
			),
		)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- n.Run(ctx)
		}()
		select {
		case <-n.Ready():
		case err := <-errCh:
			t.Fatalf("node exited early: %v", err)
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for node")
		}
		t.Cleanup(func() {
			cancel()
			<-errCh
		})
		return n
	}

	n := run("admin")
	got, err := n.Engine().GetParams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Authority)
	assert.Equal(t, "500", got.Quorum.String())
	_, err = n.Engine().InitializeParams(context.Background(), "mallory", params)
	require.ErrorIs(t, err, governance.ErrAlreadyExists)
	require.NoError(t, n.Stop())

	// A restart keeps the stored authority
	n = run("someone-else")
	got, err = n.Engine().GetParams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Authority)
}

func TestNodeInitialParamsRequireAuthority(t *testing.T) {
	_, err := New(NewConfig(WithInitialParams("", governance.Params{})))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "require an authority")
}

func TestNodeInvalidConfig(t *testing.T) {
	_, err := New(NewConfig(WithStakeOracleURL("unix:///tmp/oracle")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNodeUnknownPlugin(t *testing.T) {
	n, err := New(NewConfig(WithMetadataPlugin("bogus")))
	require.NoError(t, err)
	err = n.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
}
