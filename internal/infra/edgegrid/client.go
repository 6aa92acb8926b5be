// Package edgegrid talks to the edge platform's REST control plane: it
// loads credential sections from the platform's INI-style auth file,
// signs every request with the platform's HMAC scheme, and retries
// transient failures with bounded backoff.
package edgegrid

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/telemetry"
)

// RetryPolicy bounds the retry loop for transient upstream failures.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = domain.DefaultRetryMaxAttempts
	}
	if p.Base <= 0 {
		p.Base = domain.DefaultRetryBaseMillis * time.Millisecond
	}
	if p.Cap <= 0 {
		p.Cap = domain.DefaultRetryCapMillis * time.Millisecond
	}
	return p
}

type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Retry      RetryPolicy
	// Scheme overrides the request scheme; defaults to https. Tests
	// point it at plain-HTTP fixtures.
	Scheme  string
	Logger  *zap.Logger
	Metrics domain.Metrics
}

// Client executes signed requests against the edge platform. It is
// safe for concurrent use; per-customer credentials arrive with each
// call, never stored on the client.
type Client struct {
	httpClient *http.Client
	retry      RetryPolicy
	scheme     string
	logger     *zap.Logger
	metrics    domain.Metrics
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = domain.DefaultUpstreamTimeoutSeconds * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	scheme := opts.Scheme
	if scheme == "" {
		scheme = "https"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Client{
		httpClient: httpClient,
		retry:      opts.Retry.withDefaults(),
		scheme:     scheme,
		logger:     logger.Named("edgegrid"),
		metrics:    metrics,
	}
}

// Request describes one platform call. Service labels the API family
// for metrics (edge-dns, papi, ccu, cps, network-lists, reporting).
type Request struct {
	Service string
	Method  string
	Path    string
	Query   url.Values
	Body    any
}

// Do executes req under the given customer and decodes a 2xx JSON
// response into out when out is non-nil. 429 and 5xx responses are
// retried with exponential backoff, honoring Retry-After; all other
// failures surface immediately.
func (c *Client) Do(ctx context.Context, customer domain.CustomerContext, req Request, out any) error {
	const op = "edgegrid.do"

	var payload []byte
	if req.Body != nil {
		var err error
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return domain.E(domain.CodeInternal, op, "encode request body", err)
		}
	}

	u := &url.URL{Scheme: c.scheme, Host: customer.Credentials.Host, Path: req.Path}
	query := url.Values{}
	for k, vs := range req.Query {
		query[k] = vs
	}
	if customer.AccountSwitchKey != "" {
		query.Set("accountSwitchKey", customer.AccountSwitchKey)
	}
	u.RawQuery = query.Encode()

	signer := NewSigner(customer.Credentials)

	for attempt := 1; ; attempt++ {
		err := c.doOnce(ctx, signer, req, u, payload, out)
		if err == nil {
			return nil
		}
		if !err.Retryable || attempt >= c.retry.MaxAttempts {
			return err
		}

		c.metrics.ObserveUpstreamRetry(req.Service)
		c.logger.Debug("retrying upstream request",
			telemetry.EventField(telemetry.EventUpstreamRetry),
			zap.String("service", req.Service),
			zap.String("path", req.Path),
			zap.Int("attempt", attempt),
		)
		sleep(ctx, retryDelay(c.retry, attempt, retryAfterFloor(err)))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxError(op, ctxErr)
		}
	}
}

func (c *Client) doOnce(ctx context.Context, signer *Signer, req Request, u *url.URL, payload []byte, out any) *domain.Error {
	const op = "edgegrid.do"

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), bytes.NewReader(payload))
	if err != nil {
		return domain.E(domain.CodeInternal, op, "build request", err)
	}
	if len(payload) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	signer.Sign(httpReq, payload)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveUpstreamRequest(req.Service, 0, time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxError(op, ctxErr)
		}
		derr := domain.E(domain.CodeUnavailable, op, "request failed", err)
		derr.Retryable = true
		return derr
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	c.metrics.ObserveUpstreamRequest(req.Service, resp.StatusCode, time.Since(start))
	if readErr != nil {
		derr := domain.E(domain.CodeUnavailable, op, "read response", readErr)
		derr.Retryable = true
		return derr
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(data) == 0 || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return domain.E(domain.CodeInternal, op, "decode response", err)
		}
		return nil
	}
	return statusError(op, resp, data)
}

func retryAfterFloor(err *domain.Error) time.Duration {
	raw, ok := err.Meta["retry_after"]
	if !ok {
		return 0
	}
	seconds, parseErr := strconv.Atoi(raw)
	if parseErr != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
