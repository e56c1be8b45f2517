// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package evaluator implements ports.Evaluator against the remote evaluation
// service (JSON over HTTPS).
package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/ports"
	"github.com/ManuGH/interviewd/internal/log"
	"github.com/ManuGH/interviewd/internal/resilience"
	"github.com/ManuGH/interviewd/internal/telemetry"
)

// Client talks to the evaluator service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	limiter    *rate.Limiter
	breaker    *resilience.CircuitBreaker
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	token      string
	userAgent  string
	rnd        *rand.Rand
	mu         sync.Mutex
}

// Options configures the client behavior.
type Options struct {
	Timeout          time.Duration
	MaxRetries       int
	Backoff          time.Duration
	MaxBackoff       time.Duration
	Token            string
	UserAgent        string
	RateLimit        rate.Limit
	RateLimitBurst   int
	BreakerThreshold int
	BreakerReset     time.Duration
}

const (
	defaultTimeout          = 20 * time.Second
	defaultRetries          = 2
	defaultBackoff          = 250 * time.Millisecond
	defaultMaxBackoff       = 3 * time.Second
	defaultRateLimit        = 5
	defaultRateLimitBurst   = 10
	defaultBreakerThreshold = 5
	defaultBreakerReset     = 30 * time.Second
	maxErrorBody            = 512
)

var _ ports.Evaluator = (*Client)(nil)

// NewClient creates a client with explicit options.
func NewClient(baseURL string, opts Options) *Client {
	nopts := normalizeOptions(opts)
	transport := &http.Transport{
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: nopts.Timeout,
		TLSHandshakeTimeout:   5 * time.Second,
	}

	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{
			Timeout:   nopts.Timeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(nopts.RateLimit, nopts.RateLimitBurst),
		breaker: resilience.NewCircuitBreaker("evaluator", nopts.BreakerThreshold, nopts.BreakerReset,
			resilience.WithFailureClassifier(func(err error) bool {
				return errors.Is(err, ports.ErrUnavailable) && !errors.Is(err, context.Canceled)
			}),
			resilience.WithStateChange(func(from, to resilience.State) {
				l := log.WithComponent("evaluator")
				l.Warn().Str(log.FieldEvent, "evaluator.breaker").
					Str(log.FieldOldState, string(from)).Str(log.FieldNewState, string(to)).
					Msg("circuit breaker state changed")
			}),
		),
		maxRetries: nopts.MaxRetries,
		backoff:    nopts.Backoff,
		maxBackoff: nopts.MaxBackoff,
		token:      nopts.Token,
		userAgent:  nopts.UserAgent,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter only
	}
}

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = defaultBreakerThreshold
	}
	if opts.BreakerReset <= 0 {
		opts.BreakerReset = defaultBreakerReset
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = "interviewd"
	}
	return opts
}

// BreakerState exposes the circuit breaker state for health reporting.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

func (c *Client) CreateSession(ctx context.Context, cfg ports.SessionConfig) (ports.CreatedSession, error) {
	var out ports.CreatedSession
	err := c.call(ctx, request{op: "create", method: http.MethodPost, path: "/sessions", body: cfg}, &out)
	if err == nil && out.SessionID == "" {
		err = &Error{Sentinel: ports.ErrRejected, Operation: "create", Body: "empty session id"}
	}
	return out, err
}

func (c *Client) StartSession(ctx context.Context, id string) (ports.StartResult, error) {
	var out ports.StartResult
	err := c.call(ctx, request{op: "start", method: http.MethodPost, path: sessionPath(id, "start")}, &out)
	return out, err
}

func (c *Client) ResumeSession(ctx context.Context, id string) (ports.StartResult, error) {
	var out ports.StartResult
	err := c.call(ctx, request{op: "resume", method: http.MethodPost, path: sessionPath(id, "resume")}, &out)
	return out, err
}

// SendTurn is never retried: a retry could duplicate the candidate turn.
func (c *Client) SendTurn(ctx context.Context, id, content string) (ports.EvaluatorReply, error) {
	var out ports.EvaluatorReply
	body := map[string]string{"content": content}
	err := c.call(ctx, request{op: "turn", method: http.MethodPost, path: sessionPath(id, "message"), body: body}, &out)
	return out, err
}

func (c *Client) GetStatus(ctx context.Context, id string) (ports.Status, error) {
	var out ports.Status
	err := c.call(ctx, request{op: "status", method: http.MethodGet, path: sessionPath(id, "status"), idempotent: true}, &out)
	return out, err
}

func (c *Client) PauseSession(ctx context.Context, id string) error {
	return c.call(ctx, request{op: "pause", method: http.MethodPost, path: sessionPath(id, "pause")}, nil)
}

// CompleteSession is idempotent on the evaluator side and may be retried.
func (c *Client) CompleteSession(ctx context.Context, id string) (model.ScoreCard, error) {
	var out model.ScoreCard
	err := c.call(ctx, request{op: "complete", method: http.MethodPost, path: sessionPath(id, "complete"), idempotent: true}, &out)
	return out, err
}

func (c *Client) GetSession(ctx context.Context, id string) (ports.SessionDetail, error) {
	var out ports.SessionDetail
	err := c.call(ctx, request{op: "details", method: http.MethodGet, path: sessionPath(id, "details"), idempotent: true}, &out)
	if err == nil && out.ID == "" {
		out.ID = id
	}
	return out, err
}

func sessionPath(id, action string) string {
	return "/sessions/" + url.PathEscape(id) + "/" + action
}

type request struct {
	op         string
	method     string
	path       string
	body       any
	idempotent bool
}

func (c *Client) call(ctx context.Context, r request, out any) error {
	var payload []byte
	if r.body != nil {
		var err error
		if payload, err = json.Marshal(r.body); err != nil {
			return fmt.Errorf("evaluator: encode %s: %w", r.op, err)
		}
	}

	var resp *http.Response
	err := c.breaker.Execute(func() error {
		var err error
		resp, err = c.do(ctx, r, payload)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return &Error{Sentinel: ports.ErrUnavailable, Operation: r.op, Err: err}
	}
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Sentinel: ports.ErrUnavailable, Operation: r.op, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// do performs the request with retries. A non-nil response always has a 2xx
// status; every other outcome is returned as *Error.
func (c *Client) do(ctx context.Context, r request, payload []byte) (*http.Response, error) {
	tracer := telemetry.Tracer("interviewd.evaluator")
	ctx, span := tracer.Start(ctx, "interviewd.evaluator."+r.op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(telemetry.EvaluatorAttributes(r.op, r.method, r.path)...)
	defer span.End()

	maxAttempts := 1
	if r.idempotent {
		maxAttempts = c.maxRetries + 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, attemptSpan := tracer.Start(ctx, "interviewd.evaluator.attempt", trace.WithSpanKind(trace.SpanKindClient))
		attemptSpan.SetAttributes(telemetry.AttemptAttributes(attempt)...)

		if err := c.limiter.Wait(attemptCtx); err != nil {
			attemptSpan.RecordError(err)
			attemptSpan.SetStatus(codes.Error, err.Error())
			attemptSpan.End()
			span.SetStatus(codes.Error, err.Error())
			return nil, &Error{Sentinel: ports.ErrUnavailable, Operation: r.op, Err: err}
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(attemptCtx, r.method, c.BaseURL+r.path, body)
		if err != nil {
			attemptSpan.End()
			span.SetStatus(codes.Error, err.Error())
			return nil, &Error{Sentinel: ports.ErrRejected, Operation: r.op, Err: err}
		}
		c.applyHeaders(req, payload != nil)
		otel.GetTextMapPropagator().Inject(attemptCtx, propagation.HeaderCarrier(req.Header))

		start := time.Now()
		resp, err := c.HTTPClient.Do(req)
		duration := time.Since(start)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		sentinel := classifyStatus(status)
		if err != nil {
			sentinel = ports.ErrUnavailable
		}
		retry := sentinel != nil && attempt < maxAttempts && errors.Is(sentinel, ports.ErrUnavailable)
		recordAttemptMetrics(r.method, r.op, status, duration, err, retry)

		attemptSpan.SetAttributes(telemetry.HTTPAttributes(r.method, r.path, c.BaseURL+r.path, status)...)
		if err != nil {
			attemptSpan.RecordError(err)
		}
		if sentinel != nil {
			attemptSpan.SetStatus(codes.Error, sentinel.Error())
		} else {
			attemptSpan.SetStatus(codes.Ok, "")
		}
		attemptSpan.End()

		if sentinel == nil {
			span.SetStatus(codes.Ok, "")
			return resp, nil
		}

		e := &Error{Sentinel: sentinel, Operation: r.op, Status: status, Err: err}
		if resp != nil {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			e.Body = strings.TrimSpace(string(snippet))
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		lastErr = e

		if !retry {
			break
		}
		if err := sleepWithContext(ctx, c.backoffFor(attempt-1)); err != nil {
			lastErr = &Error{Sentinel: ports.ErrUnavailable, Operation: r.op, Err: err}
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return nil, lastErr
}

func (c *Client) applyHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) backoffFor(attempt int) time.Duration {
	wait := c.backoff * time.Duration(1<<attempt)
	if wait > c.maxBackoff {
		wait = c.maxBackoff
	}
	jitter := time.Duration(c.randInt63n(int64(wait/5 + 1)))
	return wait + jitter
}

func (c *Client) randInt63n(n int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rnd.Int63n(n)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
