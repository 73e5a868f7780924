package graph

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const (
	testToken    = "test-token"
	contactsPath = "/v1.0/me/contacts"
)

// fakeGraph is an in-memory stand-in for the Graph personal contacts endpoints.
type fakeGraph struct {
	mu       sync.Mutex
	contacts map[string]contact
	nextID   int
	maxTop   int
	// failWith holds statuses returned, in order, before normal handling resumes.
	failWith []int
	// retryAfter, when set, is sent as Retry-After with every injected failure.
	retryAfter string
	// alwaysFail, when non-zero, is returned for every request.
	alwaysFail int
	hits       int
	lastMethod string
	lastQuery  url.Values
	lastBody   []byte
}

func newFakeGraph(t *testing.T) (*fakeGraph, *httptest.Server) {
	t.Helper()
	f := &fakeGraph{contacts: map[string]contact{}, maxTop: 1000}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func writeGraphError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	var env errorEnvelope
	env.Error.Code = code
	env.Error.Message = http.StatusText(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeGraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hits++
	f.lastMethod = r.Method
	f.lastQuery = r.URL.Query()
	f.lastBody = nil
	if r.Body != nil {
		var raw json.RawMessage
		if json.NewDecoder(r.Body).Decode(&raw) == nil {
			f.lastBody = raw
		}
	}

	if r.Header.Get("Authorization") != "Bearer "+testToken {
		writeGraphError(w, http.StatusUnauthorized, "InvalidAuthenticationToken")
		return
	}
	if f.alwaysFail != 0 {
		writeGraphError(w, f.alwaysFail, "ServiceFailure")
		return
	}
	if len(f.failWith) > 0 {
		status := f.failWith[0]
		f.failWith = f.failWith[1:]
		if f.retryAfter != "" {
			w.Header().Set("Retry-After", f.retryAfter)
		}
		writeGraphError(w, status, "Injected")
		return
	}

	if !strings.HasPrefix(r.URL.Path, contactsPath) {
		writeGraphError(w, http.StatusNotFound, "ResourceNotFound")
		return
	}
	id, _ := url.PathUnescape(strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, contactsPath), "/"))

	switch {
	case id == "" && r.Method == http.MethodGet:
		f.list(w, r)
	case id == "" && r.Method == http.MethodPost:
		var in contact
		if err := json.Unmarshal(f.lastBody, &in); err != nil {
			writeGraphError(w, http.StatusBadRequest, "BadRequest")
			return
		}
		f.nextID++
		in.ID = fmt.Sprintf("AAMk-%04d", f.nextID)
		f.contacts[in.ID] = in
		writeJSON(w, http.StatusCreated, in)
	case r.Method == http.MethodGet:
		c, ok := f.contacts[id]
		if !ok {
			writeGraphError(w, http.StatusNotFound, "ErrorItemNotFound")
			return
		}
		writeJSON(w, http.StatusOK, c)
	case r.Method == http.MethodPatch:
		if _, ok := f.contacts[id]; !ok {
			writeGraphError(w, http.StatusNotFound, "ErrorItemNotFound")
			return
		}
		var in contact
		if err := json.Unmarshal(f.lastBody, &in); err != nil {
			writeGraphError(w, http.StatusBadRequest, "BadRequest")
			return
		}
		in.ID = id
		f.contacts[id] = in
		writeJSON(w, http.StatusOK, in)
	case r.Method == http.MethodDelete:
		if _, ok := f.contacts[id]; !ok {
			writeGraphError(w, http.StatusNotFound, "ErrorItemNotFound")
			return
		}
		delete(f.contacts, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeGraphError(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func (f *fakeGraph) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	top, err := strconv.Atoi(q.Get("$top"))
	if err != nil || top <= 0 {
		top = 10
	}
	if top > f.maxTop {
		top = f.maxTop
	}
	skip, _ := strconv.Atoi(q.Get("$skip"))

	all := make([]contact, 0, len(f.contacts))
	for _, c := range f.contacts {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].FileAs != all[j].FileAs {
			return all[i].FileAs < all[j].FileAs
		}
		return all[i].ID < all[j].ID
	})

	out := contactCollection{Value: []contact{}}
	if skip < len(all) {
		end := skip + top
		if end > len(all) {
			end = len(all)
		}
		out.Value = all[skip:end]
		if end < len(all) {
			q.Set("$skip", strconv.Itoa(end))
			q.Set("$top", strconv.Itoa(top))
			out.NextLink = "http://" + r.Host + contactsPath + "?" + q.Encode()
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeGraph) hitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits
}
