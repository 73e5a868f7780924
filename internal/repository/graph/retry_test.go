package graph

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/contacts-service/internal/model"
	"github.com/maxviazov/contacts-service/internal/repository"
)

func TestClient_Add_DoesNotRetryServerErrors(t *testing.T) {
	f, srv := newFakeGraph(t)
	f.failWith = []int{http.StatusGatewayTimeout}
	c := newTestClient(t, testConfig(srv.URL))

	_, err := c.Add(context.Background(), model.ContactFields{FileAs: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusGatewayTimeout, apiErr.Status)
	assert.Equal(t, 1, f.hitCount(), "a create that may have succeeded must not be sent again")
}

func TestClient_Add_DoesNotRetryUnavailableWithoutRetryAfter(t *testing.T) {
	f, srv := newFakeGraph(t)
	f.failWith = []int{http.StatusServiceUnavailable}
	c := newTestClient(t, testConfig(srv.URL))

	_, err := c.Add(context.Background(), model.ContactFields{FileAs: "x"})
	require.Error(t, err)
	assert.Equal(t, 1, f.hitCount())
}

func TestClient_Add_RetriesThrottling(t *testing.T) {
	for name, tc := range map[string]struct {
		status     int
		retryAfter string
	}{
		"too many requests":       {http.StatusTooManyRequests, ""},
		"unavailable with header": {http.StatusServiceUnavailable, "0"},
	} {
		t.Run(name, func(t *testing.T) {
			f, srv := newFakeGraph(t)
			f.failWith = []int{tc.status}
			f.retryAfter = tc.retryAfter
			c := newTestClient(t, testConfig(srv.URL))

			id, err := c.Add(context.Background(), model.ContactFields{FileAs: "x"})
			require.NoError(t, err)
			assert.NotEmpty(t, id)
			assert.Equal(t, 2, f.hitCount())
		})
	}
}

func TestClient_Add_DoesNotRetryDroppedConnection(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, testConfig(srv.URL))

	_, err := c.Add(context.Background(), model.ContactFields{FileAs: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, repository.ErrReauthRequired))
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_HonoursRetryAfter(t *testing.T) {
	f, srv := newFakeGraph(t)
	f.failWith = []int{http.StatusTooManyRequests}
	f.retryAfter = "1"
	c := newTestClient(t, testConfig(srv.URL))

	start := time.Now()
	_, err := c.GetPage(context.Background(), repository.PageOf(1, 10))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
	assert.Equal(t, 2, f.hitCount())
}

func TestRetryAfterBackOff(t *testing.T) {
	b := &retryAfterBackOff{BackOff: backoff.NewConstantBackOff(10 * time.Millisecond), ceiling: time.Minute}

	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())

	b.hint(2 * time.Second)
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 10*time.Millisecond, b.NextBackOff(), "a hint applies to one wait only")

	b.hint(time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, b.NextBackOff(), "never shorter than the policy")

	b.hint(time.Hour)
	assert.Equal(t, time.Minute, b.NextBackOff())

	stopped := &retryAfterBackOff{BackOff: &backoff.StopBackOff{}, ceiling: time.Minute}
	stopped.hint(time.Second)
	assert.Equal(t, backoff.Stop, stopped.NextBackOff())
}

func TestParseRetryAfter(t *testing.T) {
	d, ok := parseRetryAfter("3")
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	for _, bad := range []string{"", "  ", "-1", "soon"} {
		_, ok := parseRetryAfter(bad)
		assert.False(t, ok, "value %q", bad)
	}

	d, ok = parseRetryAfter(time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
	assert.True(t, ok)
	assert.Greater(t, d, 58*time.Minute)

	d, ok = parseRetryAfter(time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat))
	assert.True(t, ok)
	assert.Zero(t, d)
}

func TestAPIError_Retryable(t *testing.T) {
	cases := []struct {
		err        APIError
		idempotent bool
		want       bool
	}{
		{APIError{Status: http.StatusTooManyRequests}, false, true},
		{APIError{Status: http.StatusServiceUnavailable, Throttled: true}, false, true},
		{APIError{Status: http.StatusServiceUnavailable}, false, false},
		{APIError{Status: http.StatusGatewayTimeout}, false, false},
		{APIError{Status: http.StatusGatewayTimeout}, true, true},
		{APIError{Status: http.StatusBadRequest}, true, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.retryable(tc.idempotent), "status=%d idempotent=%v", tc.err.Status, tc.idempotent)
	}
}
