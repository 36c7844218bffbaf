package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/coffeedia/internal/client/tokenstore"
	"github.com/dmitrijs2005/coffeedia/internal/logging"

	_ "modernc.org/sqlite"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func countMeta(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM metadata`).Scan(&n))
	return n
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// ---- fake API ----

type call struct {
	Method string
	Path   string
	Body   any
}

// fakeAPI answers Do with respond's result, JSON round-tripped into out.
type fakeAPI struct {
	mu      sync.Mutex
	calls   []call
	respond func(method, path string, body any) (any, error)

	refreshCalls int
	refreshErr   error
}

func (f *fakeAPI) Do(ctx context.Context, method, path string, body, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{Method: method, Path: path, Body: body})
	f.mu.Unlock()

	if f.respond == nil {
		return nil
	}
	res, err := f.respond(method, path, body)
	if err != nil {
		return err
	}
	if out == nil || res == nil {
		return nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (f *fakeAPI) RefreshSession(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	return "", f.refreshErr
}

func (f *fakeAPI) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Method + " " + c.Path
	}
	return out
}

func newAuth(t *testing.T, api *fakeAPI) (*authService, *tokenstore.Store, *sql.DB, *clock) {
	t.Helper()
	db := setupDB(t)
	c := &clock{t: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	store := tokenstore.New(db, logging.Discard(), tokenstore.WithClock(c.Now))
	svc := NewAuthService(api, store, logging.Discard()).(*authService)
	svc.now = c.Now
	return svc, store, db, c
}
