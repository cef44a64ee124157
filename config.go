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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/oracle"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultShutdownTimeout  = 30 * time.Second
	DefaultAPIListenAddress = ":8080"
)

type Config struct {
	promRegistry      prometheus.Registerer
	logger            *slog.Logger
	clock             governance.Clock
	executors         map[governance.Category]governance.Executor
	initialParams     *governance.Params
	stakeEntries      map[string]oracle.Entry
	initialAuthority  string
	dataDir           string
	blobPlugin        string
	metadataPlugin    string
	metadataDSN       string
	apiListenAddress  string
	oracleURL         string
	oracleCacheTTL    time.Duration
	oracleCacheSize   int
	verifierCacheSize int
	shutdownTimeout   time.Duration
	tracing           bool
	tracingStdout     bool
}

// ConfigOptionFunc is a type that represents functions that modify the agora config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new agora config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:           slog.New(slog.NewJSONHandler(io.Discard, nil)),
		apiListenAddress: DefaultAPIListenAddress,
		oracleCacheTTL:   oracle.DefaultCacheTTL,
		oracleCacheSize:  oracle.DefaultCacheSize,
		shutdownTimeout:  DefaultShutdownTimeout,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *Config) validate() error {
	if c.oracleURL != "" && c.stakeEntries != nil {
		return errors.New(
			"stake oracle URL and static stake entries are mutually exclusive",
		)
	}
	if c.oracleURL != "" {
		u, err := url.Parse(c.oracleURL)
		if err != nil {
			return fmt.Errorf("invalid stake oracle URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf(
				"invalid stake oracle URL scheme: %q",
				u.Scheme,
			)
		}
	}
	for category := range c.executors {
		if !category.Valid() {
			return fmt.Errorf("executor for unknown category %d", category)
		}
	}
	if c.initialParams != nil && c.initialAuthority == "" {
		return errors.New("initial governance parameters require an authority")
	}
	if c.apiListenAddress == "" {
		return errors.New("no API listen address defined")
	}
	return nil
}

// WithLogger specifies the logger to use
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithMetadataDSN specifies the connection string for network metadata plugins such as postgres
func WithMetadataDSN(dsn string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataDSN = dsn
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithAPIListenAddress specifies the listen address for the governance REST API
func WithAPIListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithStakeOracleURL points stake, reputation and tier lookups at an external oracle daemon
func WithStakeOracleURL(baseURL string) ConfigOptionFunc {
	return func(c *Config) {
		c.oracleURL = baseURL
	}
}

// WithStakeOracleCache configures the oracle client response cache. A zero TTL disables caching
func WithStakeOracleCache(size int, ttl time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.oracleCacheSize = size
		c.oracleCacheTTL = ttl
	}
}

// WithStaticStake serves stake, reputation and tier from a fixed table instead of an oracle daemon
func WithStaticStake(entries map[string]oracle.Entry) ConfigOptionFunc {
	return func(c *Config) {
		c.stakeEntries = entries
	}
}

// WithVerifierCacheSize specifies the number of ballot proof verdicts to cache
func WithVerifierCacheSize(size int) ConfigOptionFunc {
	return func(c *Config) {
		c.verifierCacheSize = size
	}
}

// WithExecutor registers the action run when a passed proposal of the category is executed
func WithExecutor(
	category governance.Category,
	executor governance.Executor,
) ConfigOptionFunc {
	return func(c *Config) {
		if c.executors == nil {
			c.executors = make(map[governance.Category]governance.Executor)
		}
		c.executors[category] = executor
	}
}

// WithClock overrides the wall clock. This is mostly useful for tests
func WithClock(clock governance.Clock) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

// WithInitialParams installs params with authority at startup when the store
// has no governance parameters yet. Parameter initialization over the API is
// disabled when set.
func WithInitialParams(
	authority string,
	params governance.Params,
) ConfigOptionFunc {
	return func(c *Config) {
		c.initialAuthority = authority
		c.initialParams = &params
	}
}
