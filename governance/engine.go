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

// Package governance implements the proposal lifecycle, weighted and private
// voting, and delegation bookkeeping on top of the agora database.
package governance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/event"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/agora/governance"

type EngineConfig struct {
	Logger         *slog.Logger
	Database       *database.Database
	EventBus       *event.EventBus
	PromRegistry   prometheus.Registerer
	TracerProvider trace.TracerProvider
	Collaborators  Collaborators
}

// Engine applies governance operations. Mutations are serialized and each
// one runs in a single database transaction spanning the metadata and blob
// stores. Events are published only after the transaction commits.
type Engine struct {
	mu      sync.RWMutex
	config  EngineConfig
	db      *database.Database
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *engineMetrics
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Database == nil {
		return nil, errors.New("governance engine requires a database")
	}
	if cfg.Collaborators.Stake == nil {
		return nil, errors.New("governance engine requires a stake ledger")
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Collaborators.Clock == nil {
		cfg.Collaborators.Clock = SystemClock{}
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	e := &Engine{
		config: cfg,
		db:     cfg.Database,
		logger: cfg.Logger.With("component", "governance"),
		tracer: cfg.TracerProvider.Tracer(tracerName),
	}
	if cfg.PromRegistry != nil {
		e.metrics = newEngineMetrics(cfg.PromRegistry)
	}
	return e, nil
}

// now returns the current time in unix seconds
func (e *Engine) now() int64 {
	return e.config.Collaborators.Clock.Now().Unix()
}

type pendingEvent struct {
	data      any
	eventType event.EventType
}

// opContext carries the state of one mutating operation
type opContext struct {
	ctx    context.Context
	txn    *database.Txn
	events []pendingEvent
	now    int64
}

func (o *opContext) emit(eventType event.EventType, data any) {
	o.events = append(o.events, pendingEvent{eventType: eventType, data: data})
}

// update runs fn as one atomic unit and publishes its events after commit
func (e *Engine) update(
	ctx context.Context,
	op string,
	caller string,
	fn func(*opContext) error,
) error {
	ctx, span := e.tracer.Start(
		ctx,
		"governance."+op,
		trace.WithAttributes(attribute.String("caller", caller)),
	)
	defer span.End()
	start := time.Now()
	e.mu.Lock()
	o := &opContext{
		ctx: ctx,
		txn: e.db.Transaction(true),
		now: e.now(),
	}
	err := o.txn.Do(func(*database.Txn) error {
		return fn(o)
	})
	e.mu.Unlock()
	e.metrics.observe(op, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Debug(
			"governance operation failed",
			"op", op,
			"caller", caller,
			"error", err,
		)
		return err
	}
	e.logger.Debug(
		"governance operation applied",
		"op", op,
		"caller", caller,
	)
	if e.config.EventBus != nil {
		for _, evt := range o.events {
			e.config.EventBus.Publish(
				evt.eventType,
				event.NewEvent(evt.eventType, evt.data),
			)
		}
	}
	return nil
}

// view runs fn against a read-only transaction
func (e *Engine) view(
	ctx context.Context,
	op string,
	fn func(*opContext) error,
) error {
	ctx, span := e.tracer.Start(ctx, "governance."+op)
	defer span.End()
	e.mu.RLock()
	defer e.mu.RUnlock()
	txn := e.db.Transaction(false)
	defer txn.Release()
	o := &opContext{
		ctx: ctx,
		txn: txn,
		now: e.now(),
	}
	if err := fn(o); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (e *Engine) loadParams(o *opContext) (*models.GovernanceParams, error) {
	params, err := e.db.GetGovernanceParams(o.txn)
	if err != nil {
		return nil, storeError(err, "load governance parameters")
	}
	return params, nil
}

// loadUnpausedParams returns the parameters and fails when governance is paused
func (e *Engine) loadUnpausedParams(o *opContext) (*models.GovernanceParams, error) {
	params, err := e.loadParams(o)
	if err != nil {
		return nil, err
	}
	if params.Paused {
		return nil, ErrPaused
	}
	return params, nil
}

func (e *Engine) loadProposal(o *opContext, id uint64) (*models.Proposal, error) {
	proposal, err := e.db.GetProposal(id, o.txn)
	if err != nil {
		return nil, storeError(err, "load proposal")
	}
	return proposal, nil
}

func (e *Engine) saveProposal(o *opContext, proposal *models.Proposal) error {
	return storeError(e.db.SetProposal(proposal, o.txn), "save proposal")
}

func (e *Engine) loadPrivateConfig(
	o *opContext,
	proposalID uint64,
) (*models.PrivateVotingConfig, error) {
	cfg, err := e.db.GetPrivateVotingConfig(proposalID, o.txn)
	if err != nil {
		return nil, storeError(err, "load private voting config")
	}
	return cfg, nil
}

func requirePrincipal(principal string) error {
	if principal == "" {
		return ErrEmptyPrincipal
	}
	return nil
}
