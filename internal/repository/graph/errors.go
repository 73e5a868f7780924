package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/maxviazov/contacts-service/internal/repository"
	"golang.org/x/oauth2"
)

// APIError is a non-2xx Graph response. It unwraps to the matching repository sentinel, if any.
type APIError struct {
	Status  int
	Code    string
	Message string
	// RetryAfter is the wait Graph asked for; only meaningful when Throttled is set.
	RetryAfter time.Duration
	Throttled  bool
	kind       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph: status %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }

// retryable reports whether another attempt may succeed. A throttled request was never processed,
// so it is safe to repeat even when not idempotent; any other 5xx may hide a completed write.
func (e *APIError) retryable(idempotent bool) bool {
	switch {
	case e.Status == http.StatusTooManyRequests:
		return true
	case e.Status == http.StatusServiceUnavailable && e.Throttled:
		return true
	case e.Status >= http.StatusInternalServerError:
		return idempotent
	default:
		return false
	}
}

// parseRetryAfter reads a Retry-After header given either in seconds or as an HTTP date.
func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := time.Until(at)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func newAPIError(resp *http.Response) *APIError {
	e := &APIError{Status: resp.StatusCode}
	e.RetryAfter, e.Throttled = parseRetryAfter(resp.Header.Get("Retry-After"))
	var env errorEnvelope
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(body, &env) == nil {
		e.Code, e.Message = env.Error.Code, env.Error.Message
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		// stale token or missing consent; either way the user has to sign in again
		e.kind = repository.ErrReauthRequired
	case http.StatusNotFound:
		e.kind = repository.ErrNotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		e.kind = repository.ErrConflict
	}
	return e
}

// classifyTransport decides whether a failed round trip is worth another attempt.
// Token acquisition failures surface here, wrapped by the oauth2 transport and net/http.
// A non-idempotent request is never repeated: it may have reached Graph before the connection broke.
func classifyTransport(err error, idempotent bool) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return backoff.Permanent(fmt.Errorf("%w: %v", repository.ErrReauthRequired, err))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(err)
	}
	if !idempotent {
		return backoff.Permanent(err)
	}
	return err
}

// countsAsFailure tells the circuit breaker which outcomes say something about backend health.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrReauthRequired) ||
		errors.Is(err, repository.ErrConflict) ||
		errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && !apiErr.retryable(true) {
		return false
	}
	return true
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrReauthRequired):
		return "reauth_required"
	case errors.Is(err, repository.ErrConflict):
		return "conflict"
	case errors.Is(err, repository.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
