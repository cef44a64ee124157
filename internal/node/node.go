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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/agora"
	"github.com/blinklabs-io/agora/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Options converts the loaded configuration into node options
func Options(cfg *config.Config, logger *slog.Logger) ([]agora.ConfigOptionFunc, error) {
	shutdownTimeout, err := time.ParseDuration(cfg.ShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	opts := []agora.ConfigOptionFunc{
		agora.WithLogger(logger),
		agora.WithDatabasePath(cfg.DatabasePath),
		agora.WithBlobPlugin(cfg.BlobPlugin),
		agora.WithMetadataPlugin(cfg.MetadataPlugin),
		agora.WithMetadataDSN(cfg.MetadataDsn),
		agora.WithAPIListenAddress(
			fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort),
		),
		agora.WithVerifierCacheSize(cfg.VerifierCacheSize),
		agora.WithShutdownTimeout(shutdownTimeout),
		agora.WithTracing(cfg.Tracing),
		agora.WithTracingStdout(cfg.TracingStdout),
		// Enable metrics with default prometheus registry
		agora.WithPrometheusRegistry(prometheus.DefaultRegisterer),
	}
	if cfg.Oracle.Url != "" {
		cacheTTL, err := time.ParseDuration(cfg.Oracle.CacheTtl)
		if err != nil {
			return nil, fmt.Errorf("invalid oracle cache TTL: %w", err)
		}
		opts = append(
			opts,
			agora.WithStakeOracleURL(cfg.Oracle.Url),
			agora.WithStakeOracleCache(cfg.Oracle.CacheSize, cacheTTL),
		)
	} else {
		opts = append(opts, agora.WithStaticStake(cfg.Stake))
	}
	if cfg.Governance.Authority != "" {
		params, err := cfg.Governance.Params()
		if err != nil {
			return nil, err
		}
		opts = append(
			opts,
			agora.WithInitialParams(cfg.Governance.Authority, params),
		)
	}
	return opts, nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	opts, err := Options(cfg, logger)
	if err != nil {
		return err
	}
	n, err := agora.New(agora.NewConfig(opts...))
	if err != nil {
		return err
	}

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Metrics listener
	metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, ctx := errgroup.WithContext(signalCtx)
	g.Go(func() error {
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "node",
		)
		if err := metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics listener: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return n.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		if signalCtx.Err() != nil {
			logger.Info("signal received, initiating graceful shutdown")
		}
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			n.ShutdownTimeout(),
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("node error", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
