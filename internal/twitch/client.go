// Package twitch implements the platform API collaborator and a GQL bet
// actuator.
package twitch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
)

// Config holds the account identity and endpoints.
type Config struct {
	Username          string
	AuthToken         string
	ClientID          string
	GQLURL            string
	SpadeURL          string
	RequestsPerSecond float64
	RequestTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.GQLURL == "" {
		c.GQLURL = DefaultGQLURL
	}
	if c.SpadeURL == "" {
		c.SpadeURL = DefaultSpadeURL
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c
}

// Client talks to the GQL endpoint. Every request waits on a shared rate
// limiter; channel lookups additionally pause for a random interval.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	jitter  func() time.Duration

	mu         sync.Mutex
	userID     string
	broadcasts map[string]string // channel id -> live broadcast id
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLookupJitter replaces the lookup pause source.
func WithLookupJitter(fn func() time.Duration) Option {
	return func(c *Client) { c.jitter = fn }
}

// NewClient creates a client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:        cfg,
		http:       &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), DefaultBurst),
		jitter:     lookupJitter,
		broadcasts: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func lookupJitter() time.Duration {
	return LookupJitterMin + time.Duration(rand.Float64()*float64(LookupJitterMax-LookupJitterMin))
}

type persistedQuery struct {
	Version    int    `json:"version"`
	SHA256Hash string `json:"sha256Hash"`
}

type gqlRequest struct {
	OperationName string                 `json:"operationName,omitempty"`
	Query         string                 `json:"query,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	Extensions    *struct {
		PersistedQuery persistedQuery `json:"persistedQuery"`
	} `json:"extensions,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func persisted(op, hash string, vars map[string]interface{}) gqlRequest {
	req := gqlRequest{OperationName: op, Variables: vars}
	req.Extensions = &struct {
		PersistedQuery persistedQuery `json:"persistedQuery"`
	}{PersistedQuery: persistedQuery{Version: 1, SHA256Hash: hash}}
	return req
}

// gql posts one read-only or idempotent operation, retrying transient
// failures, and decodes data into out.
func (c *Client) gql(ctx context.Context, req gqlRequest, out interface{}) error {
	return c.gqlWithRetries(ctx, req, out, MaxRetries)
}

// gqlOnce posts a non-idempotent operation exactly once.
func (c *Client) gqlOnce(ctx context.Context, req gqlRequest, out interface{}) error {
	return c.gqlWithRetries(ctx, req, out, 0)
}

func (c *Client) gqlWithRetries(ctx context.Context, req gqlRequest, out interface{}, retries int) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}
	resp, err := c.doRequest(ctx, c.cfg.GQLURL, "application/json", body, retries)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s: %w", req.OperationName, domain.ErrNotAuthenticated)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: API returned status %d: %s", req.OperationName, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var gr gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(gr.Errors) > 0 {
		return fmt.Errorf("%s: %s", req.OperationName, gr.Errors[0].Message)
	}
	if out == nil || len(gr.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}

// doRequest posts body, retrying up to retries times on transport errors
// and 5xx responses.
func (c *Client) doRequest(ctx context.Context, url, contentType string, body []byte, retries int) (*http.Response, error) {
	log := logger.FromContext(ctx)

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := RetryBaseDelay*time.Duration(1<<uint(attempt-1)) + time.Duration(rand.Int64N(int64(100*time.Millisecond)))
			log.Info(LogMsgRetrying, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Client-Id", c.cfg.ClientID)
		if c.cfg.AuthToken != "" {
			req.Header.Set("Authorization", "OAuth "+c.cfg.AuthToken)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			log.Warn(LogMsgRequestFailed, "error", err, "attempt", attempt)
			continue
		}
		if resp.StatusCode < 500 {
			return resp, nil
		}
		resp.Body.Close()
		lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		log.Warn(LogMsgServerError, "status", resp.StatusCode, "attempt", attempt)
	}
	if retries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// errOffline is returned by presence calls for a channel that is not live.
var errOffline = errors.New("stream is offline")
