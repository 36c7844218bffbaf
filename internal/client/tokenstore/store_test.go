package tokenstore

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/logging"

	_ "modernc.org/sqlite"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL)`)
	require.NoError(t, err)
	return db
}

func newStore(t *testing.T) (*Store, *fakeClock, *sql.DB) {
	t.Helper()
	db := newDB(t)
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(db, logging.Discard(), WithClock(clock.Now)), clock, db
}

func rawValue(t *testing.T, db *sql.DB, key string) []byte {
	t.Helper()
	var v []byte
	err := db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return nil
	}
	require.NoError(t, err)
	return v
}

func TestAccessToken_ValidUntilExpiry(t *testing.T) {
	s, clock, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAccessToken(ctx, "at-1", 5*time.Second))

	for _, step := range []time.Duration{0, time.Second, 3 * time.Second, 999 * time.Millisecond} {
		clock.Advance(step)
		tok, ok := s.AccessToken(ctx)
		require.True(t, ok, "token must be valid before expiry")
		require.Equal(t, "at-1", tok)
	}

	// now exactly at expiry
	clock.Advance(time.Millisecond)
	_, ok := s.AccessToken(ctx)
	require.False(t, ok)
}

func TestAccessToken_ExpiredIsEvicted(t *testing.T) {
	s, clock, db := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAccessToken(ctx, "at-1", 5*time.Second))
	clock.Advance(6 * time.Second)

	_, ok := s.AccessToken(ctx)
	require.False(t, ok)
	require.Nil(t, rawValue(t, db, KeyAccessToken), "expired record must be deleted")

	// moving the clock back does not resurrect it
	clock.Advance(-6 * time.Second)
	_, ok = s.AccessToken(ctx)
	require.False(t, ok)
}

func TestAccessToken_StoredAsEpochMillis(t *testing.T) {
	s, clock, db := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAccessToken(ctx, "at-1", time.Hour))

	want := `{"token":"at-1","expiresAt":` + strconv.FormatInt(clock.Now().Add(time.Hour).UnixMilli(), 10) + `}`
	require.JSONEq(t, want, string(rawValue(t, db, KeyAccessToken)))
}

func TestAccessToken_Overwrite(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAccessToken(ctx, "at-1", time.Minute))
	require.NoError(t, s.SaveAccessToken(ctx, "at-2", time.Minute))

	tok, ok := s.AccessToken(ctx)
	require.True(t, ok)
	require.Equal(t, "at-2", tok)
}

func TestTimeToExpiry(t *testing.T) {
	s, clock, _ := newStore(t)
	ctx := context.Background()

	require.Zero(t, s.TimeToExpiry(ctx))

	require.NoError(t, s.SaveAccessToken(ctx, "at-1", 10*time.Minute))
	clock.Advance(4 * time.Minute)
	require.Equal(t, 6*time.Minute, s.TimeToExpiry(ctx))

	clock.Advance(6 * time.Minute)
	require.Zero(t, s.TimeToExpiry(ctx))
}

func TestCorruptValuesReadAsAbsentAndSelfHeal(t *testing.T) {
	s, _, db := newStore(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO metadata(key, value) VALUES (?, ?), (?, ?)`,
		KeyAccessToken, []byte("{not json"),
		KeyUser, []byte(`[1,2,3]`))
	require.NoError(t, err)

	_, ok := s.AccessToken(ctx)
	require.False(t, ok)
	require.Nil(t, rawValue(t, db, KeyAccessToken))

	u, ok := s.User(ctx)
	require.False(t, ok)
	require.Nil(t, u)
	require.Nil(t, rawValue(t, db, KeyUser))
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	s, clock, _ := newStore(t)
	ctx := context.Background()

	_, ok := s.RefreshToken(ctx)
	require.False(t, ok)

	require.NoError(t, s.SaveRefreshToken(ctx, "rt-abc"))
	clock.Advance(365 * 24 * time.Hour)

	rt, ok := s.RefreshToken(ctx)
	require.True(t, ok, "refresh tokens have no client-side expiry")
	require.Equal(t, "rt-abc", rt)
}

func TestUserRoundTrip(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()

	in := &models.User{ID: 7, Username: "barista", Email: "b@example.com", FirstName: "Ji", LastName: "Park", Roles: []string{"USER"}}
	require.NoError(t, s.SaveUser(ctx, in))

	out, ok := s.User(ctx)
	require.True(t, ok)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("user mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveTokens(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTokens(ctx, "at-2", time.Hour, "rt-2"))

	at, ok := s.AccessToken(ctx)
	require.True(t, ok)
	assert.Equal(t, "at-2", at)
	rt, ok := s.RefreshToken(ctx)
	require.True(t, ok)
	assert.Equal(t, "rt-2", rt)

	// an empty refresh token keeps the stored one
	require.NoError(t, s.SaveTokens(ctx, "at-3", time.Hour, ""))
	rt, _ = s.RefreshToken(ctx)
	assert.Equal(t, "rt-2", rt)
}

func TestReplaceTokens(t *testing.T) {
	tests := []struct {
		name        string
		stored      string
		prev        string
		wantOK      bool
		wantAccess  string
		wantRefresh string
	}{
		{"matching refresh token", "rt-1", "rt-1", true, "at-2", "rt-2"},
		{"replaced by another login", "rt-9", "rt-1", false, "at-1", "rt-9"},
		{"empty previous token", "rt-1", "", false, "at-1", "rt-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newStore(t)
			ctx := context.Background()
			require.NoError(t, s.SaveTokens(ctx, "at-1", time.Hour, tt.stored))

			ok, err := s.ReplaceTokens(ctx, tt.prev, "at-2", time.Hour, "rt-2")
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)

			at, _ := s.AccessToken(ctx)
			rt, _ := s.RefreshToken(ctx)
			assert.Equal(t, tt.wantAccess, at)
			assert.Equal(t, tt.wantRefresh, rt)
		})
	}
}

func TestReplaceTokens_AfterClearWritesNothing(t *testing.T) {
	s, _, db := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTokens(ctx, "at-1", time.Hour, "rt-1"))
	require.NoError(t, s.Clear(ctx))

	ok, err := s.ReplaceTokens(ctx, "rt-1", "at-2", time.Hour, "rt-2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rawValue(t, db, KeyAccessToken))
	assert.Nil(t, rawValue(t, db, KeyRefreshToken))
}

func TestClear_RemovesEverything(t *testing.T) {
	s, _, db := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAccessToken(ctx, "at", time.Hour))
	require.NoError(t, s.SaveRefreshToken(ctx, "rt"))
	require.NoError(t, s.SaveUser(ctx, &models.User{ID: 1, Username: "u"}))
	_, err := db.Exec(`INSERT INTO metadata(key, value) VALUES ('unrelated', 'x')`)
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))

	_, ok := s.AccessToken(ctx)
	assert.False(t, ok)
	_, ok = s.RefreshToken(ctx)
	assert.False(t, ok)
	_, ok = s.User(ctx)
	assert.False(t, ok)
	assert.Equal(t, []byte("x"), rawValue(t, db, "unrelated"))

	require.NoError(t, s.Clear(ctx), "clearing an empty store is fine")
}

func TestClear_IsAllOrNothingForConcurrentReaders(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	var partial int

	var mu sync.Mutex
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			s.mu.RLock()
			_, a := s.repoHas(ctx, KeyAccessToken)
			_, r := s.repoHas(ctx, KeyRefreshToken)
			s.mu.RUnlock()
			if a != r {
				mu.Lock()
				partial++
				mu.Unlock()
			}
		}
	}()

	for i := 0; i < 50; i++ {
		require.NoError(t, s.SaveTokens(ctx, "at", time.Hour, "rt"))
		require.NoError(t, s.Clear(ctx))
	}
	close(stop)
	wg.Wait()

	require.Zero(t, partial)
}

func (s *Store) repoHas(ctx context.Context, key string) ([]byte, bool) {
	v, err := s.repo.Get(ctx, key)
	return v, err == nil && v != nil
}

func TestReadFailureReadsAsAbsent(t *testing.T) {
	s, _, db := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveRefreshToken(ctx, "rt"))
	require.NoError(t, db.Close())

	_, ok := s.RefreshToken(ctx)
	require.False(t, ok)
	require.Error(t, s.SaveRefreshToken(ctx, "rt-2"), "write failures are returned")
}
