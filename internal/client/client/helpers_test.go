package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/coffeedia/internal/client/metrics"
	"github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/common"
	"github.com/dmitrijs2005/coffeedia/internal/logging"
)

/*************
 * In-memory token store
 *************/

type memStore struct {
	mu      sync.Mutex
	access  string
	refresh string
	clears  int
	reads   int
}

func (m *memStore) AccessToken(ctx context.Context) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.access, m.access != ""
}

func (m *memStore) RefreshToken(ctx context.Context) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh, m.refresh != ""
}

func (m *memStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = "", ""
	m.clears++
	return nil
}

func (m *memStore) set(access, refresh string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = access, refresh
}

// replace stores a refreshed pair only while prev is still the stored
// refresh token, like tokenstore.Store.ReplaceTokens.
func (m *memStore) replace(prev, access, refresh string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev == "" || m.refresh != prev {
		return false
	}
	m.access = access
	if refresh != "" {
		m.refresh = refresh
	}
	return true
}

func (m *memStore) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// awaitRefreshWaiters blocks until n requests have re-read the store after
// their 401 and had a moment to join the in-flight refresh.
func awaitRefreshWaiters(t *testing.T, m *memStore, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for m.readCount() < 2*n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d store reads happened", m.readCount(), 2*n)
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
}

func (m *memStore) snapshot() (string, string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, m.refresh, m.clears
}

/*************
 * Fake refresher
 *************/

type fakeRefresher struct {
	store *memStore
	gate  chan struct{}
	err   error
	next  models.TokenPair

	calls  atomic.Int32
	mu     sync.Mutex
	lastRT string
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastRT = refreshToken
	f.mu.Unlock()

	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	if !f.store.replace(refreshToken, f.next.AccessToken, f.next.RefreshToken) {
		return nil, ErrSessionEnded
	}
	p := f.next
	return &p, nil
}

/*************
 * Fake backend
 *************/

type backend struct {
	mu    sync.Mutex
	valid string

	unauthorized atomic.Int32
	served       atomic.Int32

	loginAuthHeader string
	bodies          []string

	// onUnauthorized runs before a 401 is written
	onUnauthorized func()
}

func (b *backend) setValid(tok string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.valid = tok
}

func (b *backend) authorized(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return r.Header.Get(common.AuthorizationHeaderName) == common.BearerPrefix+b.valid
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/auth/login":
		b.mu.Lock()
		b.loginAuthHeader = r.Header.Get(common.AuthorizationHeaderName)
		b.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "bad credentials"})
	case "/api/forbidden":
		writeJSON(w, http.StatusForbidden, map[string]any{"success": false, "message": "not yours"})
	case "/api/boom":
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "ERROR", "message": "boom"})
	case "/api/beans":
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.bodies = append(b.bodies, string(body))
		b.mu.Unlock()

		if !b.authorized(r) {
			if b.onUnauthorized != nil {
				b.onUnauthorized()
			}
			b.unauthorized.Add(1)
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "token expired"})
			return
		}
		b.served.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"page": 0, "size": 10, "content": []any{}},
		})
	default:
		http.NotFound(w, r)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func discard() logging.Logger { return logging.Discard() }

// counter reads a counter from m; result filters on the "result" label.
func counter(t *testing.T, m *metrics.Metrics, name, result string) float64 {
	t.Helper()
	samples, err := m.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for _, s := range samples {
		if s.Name == name && (result == "" || s.Labels["result"] == result) {
			return s.Value
		}
	}
	return 0
}

func newTestClient(t *testing.T, b *backend, store TokenStore, r Refresher) (*APIClient, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	m := metrics.New()
	c := NewAPIClient(srv.URL+"/api", store, WithMetrics(m))
	if r != nil {
		c.UseRefresher(r)
	}
	return c, m
}
