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

// Package oracle provides the stake, reputation and tier collaborators
// consumed by the governance engine.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const (
	// DefaultDialTimeout is the timeout for establishing a connection to the daemon
	DefaultDialTimeout = 5 * time.Second
	// DefaultQueryTimeout is the timeout for a complete query
	DefaultQueryTimeout = 10 * time.Second
	// DefaultCacheSize is the number of results kept per query kind
	DefaultCacheSize = 10000
	// DefaultCacheTTL is how long a cached result is served
	DefaultCacheTTL = 30 * time.Second
)

var ErrMissingField = errors.New("oracle response missing field")

// DaemonError is an error reported by the oracle daemon itself
type DaemonError struct {
	Code string
	Msg  string
}

func (e *DaemonError) Error() string {
	if e.Code == "" {
		return "oracle daemon error: " + e.Msg
	}
	return fmt.Sprintf("oracle daemon error (%s): %s", e.Code, e.Msg)
}

type cacheEntry struct {
	fetched time.Time
	value   uint64
}

// Client queries an external identity/staking daemon over HTTP REST
type Client struct {
	logger       *slog.Logger
	httpClient   *http.Client
	now          func() time.Time
	balanceCache *lru.Cache
	scoreCache   *lru.Cache
	tierCache    *lru.Cache
	baseURL      string
	queryTimeout time.Duration
	cacheTTL     time.Duration
	cacheSize    int
}

type ClientOptionFunc func(*Client)

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) ClientOptionFunc {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient specifies the HTTP client used for queries
func WithHTTPClient(httpClient *http.Client) ClientOptionFunc {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithQueryTimeout specifies the timeout for a single query
func WithQueryTimeout(timeout time.Duration) ClientOptionFunc {
	return func(c *Client) {
		c.queryTimeout = timeout
	}
}

// WithCacheSize specifies the number of cached results per query kind
func WithCacheSize(size int) ClientOptionFunc {
	return func(c *Client) {
		c.cacheSize = size
	}
}

// WithCacheTTL specifies how long cached results are served. A zero TTL
// disables caching.
func WithCacheTTL(ttl time.Duration) ClientOptionFunc {
	return func(c *Client) {
		c.cacheTTL = ttl
	}
}

// NewClient creates a client for the daemon at baseURL
func NewClient(baseURL string, opts ...ClientOptionFunc) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("oracle base URL is required")
	}
	c := &Client{
		baseURL:      baseURL,
		queryTimeout: DefaultQueryTimeout,
		cacheTTL:     DefaultCacheTTL,
		cacheSize:    DefaultCacheSize,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	c.logger = c.logger.With("component", "oracle")
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			// Per-request contexts carry the query timeout
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DialContext: (&net.Dialer{
					Timeout: DefaultDialTimeout,
				}).DialContext,
			},
		}
	}
	if c.cacheSize <= 0 {
		c.cacheSize = DefaultCacheSize
	}
	var err error
	if c.balanceCache, err = lru.New(c.cacheSize); err != nil {
		return nil, err
	}
	if c.scoreCache, err = lru.New(c.cacheSize); err != nil {
		return nil, err
	}
	if c.tierCache, err = lru.New(c.cacheSize); err != nil {
		return nil, err
	}
	return c, nil
}

type principalRequest struct {
	Principal string `json:"principal"`
}

type pingResponse struct {
	Pong  bool   `json:"pong,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

type balanceResponse struct {
	Balance string `json:"balance,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

type scoreResponse struct {
	Score string `json:"score,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

type tierResponse struct {
	Tier  *uint8 `json:"tier,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// doRequest POSTs reqBody as JSON to endpoint and decodes the response into result
func (c *Client) doRequest(
	ctx context.Context,
	endpoint string,
	reqBody any,
	result any,
) error {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+endpoint,
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to oracle daemon: %w", err)
	}
	defer resp.Body.Close()
	// Read the full body so the connection can be reused
	bodyData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from oracle daemon: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(bodyData, &errResp) == nil && errResp.Error != "" {
			return &DaemonError{Code: errResp.Code, Msg: errResp.Error}
		}
		return fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(bodyData))
	}
	if err := json.Unmarshal(bodyData, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) cached(cache *lru.Cache, principal string) (uint64, bool) {
	if c.cacheTTL <= 0 {
		return 0, false
	}
	tmp, ok := cache.Get(principal)
	if !ok {
		return 0, false
	}
	entry := tmp.(cacheEntry)
	if c.now().Sub(entry.fetched) >= c.cacheTTL {
		cache.Remove(principal)
		return 0, false
	}
	return entry.value, true
}

func (c *Client) store(cache *lru.Cache, principal string, value uint64) {
	if c.cacheTTL <= 0 {
		return
	}
	cache.Add(principal, cacheEntry{fetched: c.now(), value: value})
}

// Ping checks that the daemon is reachable and healthy
func (c *Client) Ping(ctx context.Context) error {
	var resp pingResponse
	if err := c.doRequest(ctx, "/ping", struct{}{}, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return &DaemonError{Code: resp.Code, Msg: resp.Error}
	}
	if !resp.Pong {
		return errors.New("unexpected ping response: pong field is false or missing")
	}
	return nil
}

// BalanceOf returns the stake held by principal
func (c *Client) BalanceOf(ctx context.Context, principal string) (uint64, error) {
	if balance, ok := c.cached(c.balanceCache, principal); ok {
		return balance, nil
	}
	var resp balanceResponse
	if err := c.doRequest(ctx, "/balance", principalRequest{Principal: principal}, &resp); err != nil {
		return 0, err
	}
	if resp.Error != "" {
		return 0, &DaemonError{Code: resp.Code, Msg: resp.Error}
	}
	balance, err := parseDecimal("balance", resp.Balance)
	if err != nil {
		return 0, err
	}
	c.store(c.balanceCache, principal, balance)
	return balance, nil
}

// ScoreOf returns the reputation score of principal
func (c *Client) ScoreOf(ctx context.Context, principal string) (uint64, error) {
	if score, ok := c.cached(c.scoreCache, principal); ok {
		return score, nil
	}
	var resp scoreResponse
	if err := c.doRequest(ctx, "/reputation", principalRequest{Principal: principal}, &resp); err != nil {
		return 0, err
	}
	if resp.Error != "" {
		return 0, &DaemonError{Code: resp.Code, Msg: resp.Error}
	}
	score, err := parseDecimal("score", resp.Score)
	if err != nil {
		return 0, err
	}
	c.store(c.scoreCache, principal, score)
	return score, nil
}

// TierOf returns the membership tier of principal
func (c *Client) TierOf(ctx context.Context, principal string) (uint8, error) {
	if tier, ok := c.cached(c.tierCache, principal); ok {
		return uint8(tier), nil // #nosec G115 -- only uint8 values are cached
	}
	var resp tierResponse
	if err := c.doRequest(ctx, "/tier", principalRequest{Principal: principal}, &resp); err != nil {
		return 0, err
	}
	if resp.Error != "" {
		return 0, &DaemonError{Code: resp.Code, Msg: resp.Error}
	}
	if resp.Tier == nil {
		return 0, fmt.Errorf("%w: tier", ErrMissingField)
	}
	c.store(c.tierCache, principal, uint64(*resp.Tier))
	return *resp.Tier, nil
}

// Purge drops all cached results
func (c *Client) Purge() {
	c.balanceCache.Purge()
	c.scoreCache.Purge()
	c.tierCache.Purge()
}

func parseDecimal(field, value string) (uint64, error) {
	if value == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	ret, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", field, value, err)
	}
	return ret, nil
}
