// Package graph implements the contacts backend on top of the Microsoft Graph REST API.
// Every call goes through the same pipeline: circuit breaker, retry with backoff, client-side
// rate limit, then a single HTTP round trip carrying an OAuth2 bearer token.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/maxviazov/contacts-service/internal/config"
	"github.com/maxviazov/contacts-service/internal/metrics"
	"github.com/maxviazov/contacts-service/internal/repository"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"
	"golang.org/x/time/rate"
)

const breakerName = "graph-contacts"

// maxRetryAfter caps how long a single Retry-After hint may hold a request.
const maxRetryAfter = time.Minute

type retryPolicy struct {
	maxRetries int
	initial    time.Duration
	max        time.Duration
}

// Client is a ContactRepository backed by Graph personal contacts.
type Client struct {
	http    *http.Client
	baseURL string
	owner   string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	retry   retryPolicy
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// New builds a Graph client. A static access token wins over the client-credentials grant.
// m may be nil.
func New(cfg config.GraphConfig, logger zerolog.Logger, m *metrics.Metrics) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("graph: base url is required")
	}
	l := logger.With().Str("module", "repository").Str("component", "graph").Logger()

	base := &http.Client{Timeout: cfg.Timeout}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	var ts oauth2.TokenSource
	switch {
	case cfg.AccessToken != "":
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})
	case cfg.ClientID != "" && cfg.ClientSecret != "":
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = microsoft.AzureADEndpoint(cfg.TenantID).TokenURL
		}
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       cfg.Scopes,
		}
		ts = cc.TokenSource(tokenCtx)
	default:
		return nil, errors.New("graph: no credentials configured")
	}

	httpClient := oauth2.NewClient(tokenCtx, ts)
	httpClient.Timeout = cfg.Timeout

	limit, burst := rate.Inf, cfg.RateBurst
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if burst < 1 {
		burst = 1
	}

	ratio := cfg.BreakerRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool { return !countsAsFailure(err) },
	})

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		owner:   ownerPath(cfg.User),
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
		retry:   retryPolicy{maxRetries: cfg.MaxRetries, initial: cfg.RetryInitial, max: cfg.RetryMax},
		log:     l,
		metrics: m,
	}, nil
}

func ownerPath(user string) string {
	if user == "" || strings.EqualFold(user, "me") {
		return "/me"
	}
	return "/users/" + url.PathEscape(user)
}

// Ping reports the backend as unavailable while the circuit is open.
// It never calls Graph, so readiness probes do not eat into the throttling budget.
func (c *Client) Ping(_ context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return repository.ErrUnavailable
	}
	return nil
}

// call runs one logical operation: breaker, retries and metrics included.
func (c *Client) call(ctx context.Context, op, method, target string, in, out any) error {
	start := time.Now()

	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("graph: encode %s request: %w", op, err)
		}
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.send(ctx, op, method, target, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}

	c.metrics.ObserveRemote(op, outcomeOf(err), time.Since(start))
	if err != nil {
		c.log.Debug().Err(err).Str("operation", op).Dur("took", time.Since(start)).Msg("graph call failed")
	}
	return err
}

func (c *Client) send(ctx context.Context, op, method, target string, body []byte, out any) error {
	b := backoff.NewExponentialBackOff()
	if c.retry.initial > 0 {
		b.InitialInterval = c.retry.initial
	}
	if c.retry.max > 0 {
		b.MaxInterval = c.retry.max
	}
	idempotent := method != http.MethodPost
	hinted := &retryAfterBackOff{BackOff: b, ceiling: maxRetryAfter}
	policy := backoff.WithContext(backoff.WithMaxRetries(hinted, uint64(c.retry.maxRetries)), ctx)

	return backoff.RetryNotify(func() error {
		err := c.attempt(ctx, method, target, body, out, idempotent)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Throttled {
			hinted.hint(apiErr.RetryAfter)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Str("operation", op).Dur("backoff", wait).Msg("retrying graph call")
	})
}

// attempt performs a single round trip. Errors wrapped in backoff.Permanent stop the retry loop.
func (c *Client) attempt(ctx context.Context, method, target string, body []byte, out any, idempotent bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return backoff.Permanent(err)
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("graph: build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err, idempotent)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := newAPIError(resp)
		if apiErr.retryable(idempotent) {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("graph: decode response: %w", err))
	}
	return nil
}

// retryAfterBackOff never waits less than the server asked for in Retry-After.
type retryAfterBackOff struct {
	backoff.BackOff
	ceiling time.Duration
	wait    time.Duration
	pending bool
}

func (b *retryAfterBackOff) hint(d time.Duration) {
	b.wait, b.pending = d, true
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if !b.pending || next == backoff.Stop {
		return next
	}
	b.pending = false
	wait := b.wait
	if wait > b.ceiling {
		wait = b.ceiling
	}
	if wait > next {
		return wait
	}
	return next
}

var _ repository.Pinger = (*Client)(nil)
