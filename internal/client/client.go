// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package client fetches stats payloads from the backend over HTTP.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/olegiv/statsdash/internal/stats"
)

// Client configuration defaults.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultRetries    = 2
	DefaultBackoff    = 500 * time.Millisecond
	MaxResponseLen    = 16 << 20 // Maximum payload size (16MB)
	maxErrorBodyLen   = 512
	RequestIDHeader   = "X-Request-ID"
	statsEndpointPath = "/stats"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the backend URL; requests go to BaseURL + "/stats".
	BaseURL string

	Timeout time.Duration
	Retries uint64
	Backoff time.Duration

	// RPS limits outgoing requests per second (0 = unlimited).
	RPS   float64
	Burst int

	// UserAgent defaults to "statsdash".
	UserAgent string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client retrieves stats payloads. It implements stats.Fetcher.
type Client struct {
	endpoint   *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	retries    uint64
	backoff    time.Duration
	userAgent  string
	logger     *slog.Logger
}

// New creates a client for the backend at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing backend URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend URL must be http or https, got %q", opts.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("backend URL %q has no host", opts.BaseURL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "statsdash"
	}

	endpoint := base.JoinPath(statsEndpointPath)

	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		retries:    opts.Retries,
		backoff:    opts.Backoff,
		userAgent:  userAgent,
		logger:     logger,
	}, nil
}

// Endpoint returns the stats URL the client requests, without query.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// Fetch requests the stats payload for r. Connection errors and 5xx/429
// responses are retried with exponential backoff. Any failure to obtain a
// 2xx body is reported as stats.ErrNetworkFailure.
func (c *Client) Fetch(ctx context.Context, r stats.DateRange) ([]byte, error) {
	u := *c.endpoint
	q := u.Query()
	q.Set("start", r.Start)
	q.Set("end", r.End)
	u.RawQuery = q.Encode()

	requestID := uuid.NewString()
	attempt := 0

	var body []byte
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		b, retryable, err := c.do(ctx, u.String(), requestID)
		if err != nil {
			c.logger.Debug("stats request failed",
				"request_id", requestID, "attempt", attempt, "retryable", retryable, "error", err)
			if retryable {
				return retry.RetryableError(err)
			}
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", stats.ErrNetworkFailure, err)
	}

	c.logger.Debug("stats fetched",
		"request_id", requestID, "range", r.String(), "attempts", attempt, "bytes", len(body))
	return body, nil
}

// do performs one request and reports whether a failure may be retried.
func (c *Client) do(ctx context.Context, target, requestID string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, err
		}
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		err := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		return nil, err.Temporary(), err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen+1))
	if err != nil {
		return nil, true, fmt.Errorf("reading response: %w", err)
	}
	if len(body) > MaxResponseLen {
		return nil, false, errors.New("response exceeds maximum size")
	}
	return body, false, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

var _ stats.Fetcher = (*Client)(nil)
