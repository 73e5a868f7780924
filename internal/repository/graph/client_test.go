package graph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/contacts-service/internal/config"
	"github.com/maxviazov/contacts-service/internal/model"
	"github.com/maxviazov/contacts-service/internal/repository"
	"github.com/maxviazov/contacts-service/internal/repository/contract"
)

func testConfig(baseURL string) config.GraphConfig {
	return config.GraphConfig{
		BaseURL:        baseURL + "/v1.0",
		AccessToken:    testToken,
		User:           "me",
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		RetryInitial:   time.Millisecond,
		RetryMax:       5 * time.Millisecond,
		BreakerTimeout: time.Minute,
		BreakerRatio:   0.6,
	}
}

func newTestClient(t *testing.T, cfg config.GraphConfig) *Client {
	t.Helper()
	c, err := New(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	return c
}

func TestClient_Contract(t *testing.T) {
	contract.RunContactRepositoryContract(t, func(t *testing.T) (repository.ContactRepository, func()) {
		f, srv := newFakeGraph(t)
		// small server-side pages make GetAll walk @odata.nextLink
		f.maxTop = 6
		return newTestClient(t, testConfig(srv.URL)), func() {}
	})
}

func TestClient_GetPage_SendsWindowAndSelect(t *testing.T) {
	f, srv := newFakeGraph(t)
	c := newTestClient(t, testConfig(srv.URL))

	_, err := c.GetPage(context.Background(), repository.PageOf(3, 10))
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, f.lastMethod)
	assert.Equal(t, "10", f.lastQuery.Get("$top"))
	assert.Equal(t, "20", f.lastQuery.Get("$skip"))
	assert.Equal(t, selectFields, f.lastQuery.Get("$select"))
}

func TestClient_Add_SendsGraphShape(t *testing.T) {
	f, srv := newFakeGraph(t)
	c := newTestClient(t, testConfig(srv.URL))

	id, err := c.Add(context.Background(), model.ContactFields{
		FileAs:        "Doe, Jane",
		GivenName:     "Jane",
		Surname:       "Doe",
		Email:         "jane@example.com",
		BusinessPhone: "+1 555 0100",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(f.lastBody, &sent))
	assert.Equal(t, "Jane", sent["givenName"])
	assert.Equal(t, []any{map[string]any{"address": "jane@example.com", "name": "Doe, Jane"}}, sent["emailAddresses"])
	assert.Equal(t, []any{"+1 555 0100"}, sent["businessPhones"])
}

func TestClient_Update_KeepsSecondaryAddressesAndPhones(t *testing.T) {
	f, srv := newFakeGraph(t)
	f.contacts["AAMk-0042"] = contact{
		ID:     "AAMk-0042",
		FileAs: "Doe, Jane",
		EmailAddresses: []emailAddress{
			{Address: "jane@work.example"},
			{Address: "jane@home.example"},
		},
		BusinessPhones: []string{"+1 555 0100", "+1 555 0101"},
	}
	c := newTestClient(t, testConfig(srv.URL))

	updated, err := c.Update(context.Background(), "AAMk-0042", model.ContactFields{
		FileAs:        "Doe, Jane",
		Email:         "jane@new.example",
		BusinessPhone: "+1 555 0199",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@new.example", updated.Email)
	assert.Equal(t, http.MethodPatch, f.lastMethod)

	f.mu.Lock()
	stored := f.contacts["AAMk-0042"]
	f.mu.Unlock()
	require.Len(t, stored.EmailAddresses, 2)
	assert.Equal(t, "jane@new.example", stored.EmailAddresses[0].Address)
	assert.Equal(t, "jane@home.example", stored.EmailAddresses[1].Address)
	assert.Equal(t, []string{"+1 555 0199", "+1 555 0101"}, stored.BusinessPhones)
}

func TestClient_Unauthorized_IsReauthRequired(t *testing.T) {
	_, srv := newFakeGraph(t)
	cfg := testConfig(srv.URL)
	cfg.AccessToken = "stale"
	c := newTestClient(t, cfg)

	_, err := c.GetPage(context.Background(), repository.PageOf(1, 10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrReauthRequired), "got %v", err)

	_, err = c.GetAll(context.Background())
	assert.True(t, errors.Is(err, repository.ErrReauthRequired), "got %v", err)
}

func TestClient_Forbidden_IsReauthRequired(t *testing.T) {
	f, srv := newFakeGraph(t)
	f.failWith = []int{http.StatusForbidden}
	c := newTestClient(t, testConfig(srv.URL))

	_, err := c.GetByID(context.Background(), "AAMk-0001")
	assert.True(t, errors.Is(err, repository.ErrReauthRequired), "got %v", err)
	assert.Equal(t, 1, f.hitCount(), "credential failures must not be retried")
}

func TestClient_TokenFailure_IsReauthRequired(t *testing.T) {
	f, srv := newFakeGraph(t)
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"AADSTS70000: token expired"}`))
	}))
	t.Cleanup(tokenSrv.Close)

	cfg := testConfig(srv.URL)
	cfg.AccessToken = ""
	cfg.TenantID = "tenant"
	cfg.ClientID = "client"
	cfg.ClientSecret = "secret"
	cfg.TokenURL = tokenSrv.URL
	c := newTestClient(t, cfg)

	_, err := c.Add(context.Background(), model.ContactFields{FileAs: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrReauthRequired), "got %v", err)
	assert.Equal(t, 0, f.hitCount())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	f, srv := newFakeGraph(t)
	f.failWith = []int{http.StatusServiceUnavailable, http.StatusTooManyRequests}
	c := newTestClient(t, testConfig(srv.URL))

	items, err := c.GetPage(context.Background(), repository.PageOf(1, 10))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 3, f.hitCount())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	f, srv := newFakeGraph(t)
	f.alwaysFail = http.StatusBadGateway
	c := newTestClient(t, testConfig(srv.URL))

	_, err := c.GetPage(context.Background(), repository.PageOf(1, 10))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, 3, f.hitCount())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	f, srv := newFakeGraph(t)
	f.failWith = []int{http.StatusBadRequest}
	c := newTestClient(t, testConfig(srv.URL))

	_, err := c.Update(context.Background(), "AAMk-0001", model.ContactFields{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Injected", apiErr.Code)
	assert.Equal(t, 1, f.hitCount())
}

func TestClient_BreakerOpensOnRepeatedFailures(t *testing.T) {
	f, srv := newFakeGraph(t)
	f.alwaysFail = http.StatusInternalServerError
	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 0
	c := newTestClient(t, cfg)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))
	for i := 0; i < 5; i++ {
		_, err := c.GetPage(ctx, repository.PageOf(1, 10))
		require.Error(t, err)
		assert.False(t, errors.Is(err, repository.ErrUnavailable))
	}

	_, err := c.GetPage(ctx, repository.PageOf(1, 10))
	assert.True(t, errors.Is(err, repository.ErrUnavailable), "got %v", err)
	assert.Equal(t, 5, f.hitCount())
	assert.True(t, errors.Is(c.Ping(ctx), repository.ErrUnavailable))
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	_, srv := newFakeGraph(t)
	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 0
	c := newTestClient(t, cfg)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		_, err := c.GetByID(ctx, "nope")
		require.True(t, errors.Is(err, repository.ErrNotFound), "got %v", err)
	}
	assert.NoError(t, c.Ping(ctx))
}

func TestClient_GetAll_RejectsForeignNextLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, contactCollection{
			Value:    []contact{{ID: "a", FileAs: "A"}},
			NextLink: "https://attacker.example/v1.0/me/contacts?$skip=1",
		})
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, testConfig(srv.URL))

	_, err := c.GetAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected next link")
}

func TestOwnerPath(t *testing.T) {
	assert.Equal(t, "/me", ownerPath(""))
	assert.Equal(t, "/me", ownerPath("ME"))
	assert.Equal(t, "/users/jane@contoso.com", ownerPath("jane@contoso.com"))
}
