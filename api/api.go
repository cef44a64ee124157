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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/governance"
	"github.com/google/uuid"
)

const (
	// PrincipalHeader carries the caller identity. Authentication happens
	// upstream of this server.
	PrincipalHeader = "X-Agora-Principal"
	RequestIDHeader = "X-Request-Id"

	DefaultListenAddress = ":8080"
)

// APIConfig holds the REST server settings
type APIConfig struct {
	ListenAddress string
	// DisableParamsInit removes the parameter initialization route when the
	// node installs parameters from its own configuration
	DisableParamsInit bool
}

// Engine is the subset of the governance engine served over HTTP
type Engine interface {
	GetParams(context.Context) (*models.GovernanceParams, error)
	InitializeParams(context.Context, string, governance.Params) (*models.GovernanceParams, error)
	UpdateParams(context.Context, string, governance.ParamsUpdate) (*models.GovernanceParams, error)
	ProposeAuthority(context.Context, string, string) error
	AcceptAuthority(context.Context, string) error
	SetPaused(context.Context, string, bool) error

	CreateProposal(context.Context, string, governance.CreateProposalRequest) (*models.Proposal, error)
	GetProposal(context.Context, uint64) (*models.Proposal, error)
	ListProposals(context.Context, governance.ProposalFilter) ([]models.Proposal, error)
	FinalizeProposal(context.Context, string, uint64) (*models.Proposal, error)
	ExecuteProposal(context.Context, string, uint64) (*models.Proposal, error)
	CancelProposal(context.Context, string, uint64) (*models.Proposal, error)

	CastOpenVote(context.Context, string, uint64, governance.Vote, bool) (*models.VoteRecord, error)
	CastPrivateVote(context.Context, string, uint64, governance.SealedBallot, bool) (*models.VoteRecord, error)
	GetVote(context.Context, uint64, string) (*models.VoteRecord, error)
	ListVotes(context.Context, uint64) ([]models.VoteRecord, error)
	GetSealedBallot(context.Context, uint64, string) (*governance.SealedBallot, error)
	ListSealedBallots(context.Context, uint64) ([]governance.WeightedSealedBallot, error)

	Delegate(context.Context, string, governance.DelegateRequest) (*models.Delegation, error)
	Revoke(context.Context, string, string) (*models.Delegation, error)
	GetDelegation(context.Context, string) (*models.Delegation, error)
	GetDelegateStats(context.Context, string) (*models.DelegateStats, error)
	ListDelegations(context.Context, string) ([]models.Delegation, error)
	ResolveDelegatedAmount(context.Context, string, uint64) (uint64, error)

	EnablePrivateVoting(context.Context, string, uint64, governance.EnablePrivateVotingRequest) (*models.PrivateVotingConfig, error)
	GetPrivateVotingConfig(context.Context, uint64) (*models.PrivateVotingConfig, error)
	InitiateReveal(context.Context, string, uint64) (*models.PrivateVotingConfig, error)
	SubmitDecryptionShare(context.Context, string, uint64, uint8, []byte) (*models.DecryptionShare, error)
	ListDecryptionShares(context.Context, uint64) ([]models.DecryptionShare, error)
	GetDecryptionShare(context.Context, uint64, uint8) (*database.DecryptionSharePayload, error)
	AggregateRevealedVotes(context.Context, string, uint64, governance.RevealedTotals) (*models.PrivateVotingConfig, error)
}

// API is the governance REST server
type API struct {
	config     APIConfig
	logger     *slog.Logger
	engine     Engine
	httpServer *http.Server
	mu         sync.Mutex
}

// New creates a new API server instance
func New(
	cfg APIConfig,
	engine Engine,
	logger *slog.Logger,
) *API {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	return &API{
		config: cfg,
		logger: logger,
		engine: engine,
	}
}

// Handler returns the HTTP handler serving all routes
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.handleHealth)

	mux.HandleFunc("GET /api/v1/params", a.handleGetParams)
	if !a.config.DisableParamsInit {
		mux.HandleFunc("POST /api/v1/params", a.handleInitializeParams)
	}
	mux.HandleFunc("PATCH /api/v1/params", a.handleUpdateParams)
	mux.HandleFunc("POST /api/v1/params/authority", a.handleProposeAuthority)
	mux.HandleFunc("POST /api/v1/params/authority/accept", a.handleAcceptAuthority)
	mux.HandleFunc("POST /api/v1/params/pause", a.handleSetPaused)

	mux.HandleFunc("GET /api/v1/proposals", a.handleListProposals)
	mux.HandleFunc("POST /api/v1/proposals", a.handleCreateProposal)
	mux.HandleFunc("GET /api/v1/proposals/{id}", a.handleGetProposal)
	mux.HandleFunc("POST /api/v1/proposals/{id}/finalize", a.handleFinalizeProposal)
	mux.HandleFunc("POST /api/v1/proposals/{id}/execute", a.handleExecuteProposal)
	mux.HandleFunc("POST /api/v1/proposals/{id}/cancel", a.handleCancelProposal)

	mux.HandleFunc("GET /api/v1/proposals/{id}/votes", a.handleListVotes)
	mux.HandleFunc("POST /api/v1/proposals/{id}/votes", a.handleCastOpenVote)
	mux.HandleFunc("GET /api/v1/proposals/{id}/votes/{voter}", a.handleGetVote)
	mux.HandleFunc("GET /api/v1/proposals/{id}/private-votes", a.handleListSealedBallots)
	mux.HandleFunc("POST /api/v1/proposals/{id}/private-votes", a.handleCastPrivateVote)
	mux.HandleFunc("GET /api/v1/proposals/{id}/private-votes/{voter}", a.handleGetSealedBallot)

	mux.HandleFunc("GET /api/v1/proposals/{id}/private", a.handleGetPrivateVoting)
	mux.HandleFunc("POST /api/v1/proposals/{id}/private", a.handleEnablePrivateVoting)
	mux.HandleFunc("POST /api/v1/proposals/{id}/private/reveal", a.handleInitiateReveal)
	mux.HandleFunc("GET /api/v1/proposals/{id}/private/shares", a.handleListShares)
	mux.HandleFunc("POST /api/v1/proposals/{id}/private/shares", a.handleSubmitShare)
	mux.HandleFunc("GET /api/v1/proposals/{id}/private/shares/{index}", a.handleGetShare)
	mux.HandleFunc("POST /api/v1/proposals/{id}/private/aggregate", a.handleAggregate)
	mux.HandleFunc("GET /api/v1/proposals/{id}/delegated/{delegate}", a.handleDelegatedAmount)

	mux.HandleFunc("POST /api/v1/delegations", a.handleDelegate)
	mux.HandleFunc("GET /api/v1/delegations/{delegator}", a.handleGetDelegation)
	mux.HandleFunc("DELETE /api/v1/delegations/{delegator}", a.handleRevoke)
	mux.HandleFunc("GET /api/v1/delegates/{delegate}/stats", a.handleDelegateStats)
	mux.HandleFunc("GET /api/v1/delegates/{delegate}/delegations", a.handleListDelegations)

	return a.withRequestID(mux)
}

// withRequestID tags each request with an ID, reusing one supplied by the
// client
func (a *API) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, reqID)
		a.logger.Debug(
			"handling request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", reqID,
		)
		next.ServeHTTP(w, r)
	})
}

// Start starts the HTTP server in a background goroutine.
func (a *API) Start(
	ctx context.Context,
) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	a.httpServer = server
	a.mu.Unlock()

	if err := a.startServer(server); err != nil {
		a.mu.Lock()
		a.httpServer = nil
		a.mu.Unlock()
		return err
	}

	a.logger.Info(
		"governance API listener started on " +
			a.config.ListenAddress,
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		a.mu.Lock()
		srv := a.httpServer
		a.httpServer = nil
		a.mu.Unlock()

		if srv != nil {
			a.logger.Debug(
				"context cancelled, shutting down governance API server",
			)
			//nolint:contextcheck
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				30*time.Second,
			)
			defer cancel()
			//nolint:contextcheck
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error(
					"failed to shutdown governance API server on context cancellation",
					"error", err,
				)
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (a *API) Stop(
	ctx context.Context,
) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()

	if srv != nil {
		a.logger.Debug("shutting down governance API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf(
				"failed to shutdown governance API server: %w",
				err,
			)
		}
	}
	return nil
}

// startServer binds the listening socket first so port conflicts are
// reported to the caller, then serves in a background goroutine.
func (a *API) startServer(
	server *http.Server,
) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf(
			"failed to listen for governance API server: %w",
			err,
		)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"governance API server error",
				"error", err,
			)
		}
	}()
	return nil
}
