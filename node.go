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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/agora/api"
	"github.com/blinklabs-io/agora/ballot"
	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/event"
	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/oracle"
	"go.opentelemetry.io/otel/trace"
)

// stakeSource serves all principal lookups consumed by the engine
type stakeSource interface {
	governance.StakeLedger
	governance.ReputationOracle
	governance.TierService
}

type Node struct {
	eventBus       *event.EventBus
	db             *database.Database
	engine         *governance.Engine
	api            *api.API
	verifier       *ballot.Verifier
	stake          stakeSource
	tracerProvider trace.TracerProvider
	shutdownFuncs  []func(context.Context) error
	config         Config
	done           chan struct{}
	ready          chan struct{}
	shutdownOnce   sync.Once
}

func New(cfg Config) (*Node, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
		ready:    make(chan struct{}),
	}
	return n, nil
}

// Engine returns the governance engine. It is nil until Run has opened the
// database.
func (n *Node) Engine() *governance.Engine {
	return n.engine
}

// EventBus returns the bus governance events are published on
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// Ready is closed once Run has started serving
func (n *Node) Ready() <-chan struct{} {
	return n.ready
}

// Run opens storage, wires the governance engine and serves the API until
// ctx is cancelled or Stop is called
func (n *Node) Run(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:        n.config.dataDir,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
		MetadataDSN:    n.config.metadataDSN,
	})
	if db != nil {
		n.shutdownFuncs = append(
			n.shutdownFuncs,
			func(context.Context) error { return db.Close() },
		)
	}
	if err != nil {
		var tsErr database.CommitTimestampError
		if errors.As(err, &tsErr) {
			n.config.logger.Error(
				"metadata and blob stores are out of sync",
				"error", err,
			)
		}
		return errors.Join(
			fmt.Errorf("failed to open database: %w", err),
			n.Stop(),
		)
	}
	n.db = db
	// Configure stake source
	if err := n.setupStake(ctx); err != nil {
		return errors.Join(err, n.Stop())
	}
	// Configure ballot verifier
	n.verifier, err = ballot.NewVerifier(n.config.verifierCacheSize)
	if err != nil {
		return errors.Join(
			fmt.Errorf("failed to create ballot verifier: %w", err),
			n.Stop(),
		)
	}
	// Load governance engine
	engine, err := governance.NewEngine(governance.EngineConfig{
		Logger:         n.config.logger,
		Database:       n.db,
		EventBus:       n.eventBus,
		PromRegistry:   n.config.promRegistry,
		TracerProvider: n.tracerProvider,
		Collaborators: governance.Collaborators{
			Stake:      n.stake,
			Reputation: n.stake,
			Tier:       n.stake,
			Verifier:   n.verifier,
			Executors:  n.config.executors,
			Clock:      n.config.clock,
		},
	})
	if err != nil {
		return errors.Join(
			fmt.Errorf("failed to load governance engine: %w", err),
			n.Stop(),
		)
	}
	n.engine = engine
	n.subscribeEventLog()
	if err := n.bootstrapParams(ctx); err != nil {
		return errors.Join(err, n.Stop())
	}
	// Configure API
	n.api = api.New(
		api.APIConfig{
			ListenAddress:     n.config.apiListenAddress,
			DisableParamsInit: n.config.initialParams != nil,
		},
		n.engine,
		n.config.logger,
	)
	if err := n.api.Start(ctx); err != nil {
		return errors.Join(
			fmt.Errorf("failed to start API: %w", err),
			n.Stop(),
		)
	}
	close(n.ready)

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
		return n.Stop()
	case <-n.done:
		return nil
	}
}

func (n *Node) setupStake(ctx context.Context) error {
	if n.config.oracleURL == "" {
		n.stake = oracle.NewStatic(n.config.stakeEntries)
		n.config.logger.Info(
			fmt.Sprintf(
				"serving stake from %d static entries",
				len(n.config.stakeEntries),
			),
			"component", "node",
		)
		return nil
	}
	client, err := oracle.NewClient(
		n.config.oracleURL,
		oracle.WithLogger(n.config.logger),
		oracle.WithCacheSize(n.config.oracleCacheSize),
		oracle.WithCacheTTL(n.config.oracleCacheTTL),
	)
	if err != nil {
		return fmt.Errorf("failed to create stake oracle client: %w", err)
	}
	// An unreachable oracle is reported but doesn't block startup
	if err := client.Ping(ctx); err != nil {
		n.config.logger.Warn(
			"stake oracle is not responding",
			"component", "node",
			"error", err,
		)
	}
	n.stake = client
	return nil
}

// bootstrapParams installs the configured governance parameters if the store
// has none
func (n *Node) bootstrapParams(ctx context.Context) error {
	if n.config.initialParams == nil {
		return nil
	}
	params, err := n.engine.InitializeParams(
		ctx,
		n.config.initialAuthority,
		*n.config.initialParams,
	)
	if errors.Is(err, governance.ErrAlreadyExists) {
		n.config.logger.Debug(
			"governance parameters already initialized",
			"component", "node",
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to initialize governance parameters: %w", err)
	}
	n.config.logger.Info(
		"initialized governance parameters",
		"component", "node",
		"authority", params.Authority,
	)
	return nil
}

func (n *Node) subscribeEventLog() {
	for _, eventType := range event.GovernanceEventTypes {
		n.eventBus.SubscribeFunc(eventType, func(evt event.Event) {
			n.config.logger.Debug(
				"governance event",
				"component", "node",
				"type", string(evt.Type),
				"id", evt.ID,
				"data", fmt.Sprintf("%+v", evt.Data),
			)
		})
	}
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), n.ShutdownTimeout())
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping API")
	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("API shutdown: %w", stopErr))
		}
	}

	// Phase 2: Drain event delivery
	n.config.logger.Debug("shutdown phase 2: stopping event bus")
	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	// Phase 3: Cleanup resources, in reverse order of creation
	n.config.logger.Debug("shutdown phase 3: cleanup resources")
	for i := len(n.shutdownFuncs) - 1; i >= 0; i-- {
		if fnErr := n.shutdownFuncs[i](ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}

// ShutdownTimeout returns the time allowed for a graceful shutdown
func (n *Node) ShutdownTimeout() time.Duration {
	if n.config.shutdownTimeout > 0 {
		return n.config.shutdownTimeout
	}
	return DefaultShutdownTimeout
}
