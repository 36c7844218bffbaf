package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/coffeedia/internal/client/client"
	"github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/logging"
)

/*************
 * Fake gateway
 *************/

type fakeGateway struct {
	mu sync.Mutex

	access  bool
	refresh bool
	ttl     time.Duration
	valid   bool

	loginErr   error
	user       *models.User
	userErr    error
	refreshErr error
	signedUp   *models.User

	loginCalls   int
	userCalls    int
	refreshCalls int
	logoutCalls  int
	clearCalls   int
}

func (f *fakeGateway) Login(ctx context.Context, username, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.access, f.refresh, f.ttl = true, true, time.Hour
	return &models.User{Username: username}, nil
}

func (f *fakeGateway) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedUp = &models.User{ID: 9, Username: req.Username}
	return f.signedUp, nil
}

func (f *fakeGateway) RefreshSession(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.access, f.ttl = true, time.Hour
	return nil
}

func (f *fakeGateway) CurrentUser(ctx context.Context) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls++
	if f.userErr != nil {
		return nil, f.userErr
	}
	u := *f.user
	return &u, nil
}

func (f *fakeGateway) Validate(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.valid
}

func (f *fakeGateway) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	f.access, f.refresh, f.ttl = false, false, 0
	return nil
}

func (f *fakeGateway) ClearLocal(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	f.access, f.refresh, f.ttl = false, false, 0
	return nil
}

func (f *fakeGateway) AccessToken(ctx context.Context) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.access {
		return "at", true
	}
	return "", false
}

func (f *fakeGateway) RefreshToken(ctx context.Context) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refresh {
		return "rt", true
	}
	return "", false
}

func (f *fakeGateway) TimeToExpiry(ctx context.Context) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ttl
}

func (f *fakeGateway) counts() (refresh, clear, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls, f.clearCalls, f.logoutCalls
}

func (f *fakeGateway) set(fn func(f *fakeGateway)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

/*************
 * Fake notifier
 *************/

type fakeNotifier struct {
	mu  sync.Mutex
	fns map[int]client.SessionExpiredFunc
	n   int
}

func (n *fakeNotifier) OnSessionExpired(fn client.SessionExpiredFunc) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fns == nil {
		n.fns = map[int]client.SessionExpiredFunc{}
	}
	id := n.n
	n.n++
	n.fns[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.fns, id)
	}
}

func (n *fakeNotifier) fire() {
	n.mu.Lock()
	fns := make([]client.SessionExpiredFunc, 0, len(n.fns))
	for _, fn := range n.fns {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(context.Background())
	}
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.fns)
}

/*************
 * Tests
 *************/

var barista = &models.User{ID: 7, Username: "barista", Email: "b@example.com"}

func newController(t *testing.T, gw *fakeGateway, opts ...Option) *Controller {
	t.Helper()
	c := New(gw, nil, logging.Discard(), opts...)
	t.Cleanup(c.Close)
	return c
}

func requireConsistent(t *testing.T, s State) {
	t.Helper()
	if s.IsAuthenticated {
		require.NotNil(t, s.User, "authenticated state must carry a user")
	}
}

func TestNew_StartsLoading(t *testing.T) {
	c := newController(t, &fakeGateway{})
	assert.True(t, c.State().IsLoading)
	assert.False(t, c.State().IsAuthenticated)
}

func TestInit_NoStoredToken(t *testing.T) {
	gw := &fakeGateway{user: barista}
	c := newController(t, gw)

	c.Init(context.Background())

	s := c.State()
	assert.False(t, s.IsLoading)
	assert.False(t, s.IsAuthenticated)
	assert.Nil(t, s.User)
	assert.Zero(t, gw.userCalls)
}

func TestInit_ValidToken(t *testing.T) {
	gw := &fakeGateway{access: true, refresh: true, ttl: time.Hour, valid: true, user: barista}
	c := newController(t, gw)

	c.Init(context.Background())

	s := c.State()
	requireConsistent(t, s)
	assert.True(t, s.IsAuthenticated)
	assert.False(t, s.IsLoading)
	assert.Equal(t, "barista", s.User.Username)
	refresh, _, _ := gw.counts()
	assert.Zero(t, refresh)
}

func TestInit_InvalidTokenRefreshes(t *testing.T) {
	gw := &fakeGateway{access: true, refresh: true, ttl: time.Hour, valid: false, user: barista}
	c := newController(t, gw)

	c.Init(context.Background())

	assert.True(t, c.State().IsAuthenticated)
	refresh, _, _ := gw.counts()
	assert.Equal(t, 1, refresh)
}

func TestInit_FailuresClearSession(t *testing.T) {
	tests := []struct {
		name string
		gw   *fakeGateway
	}{
		{"refresh rejected", &fakeGateway{access: true, refresh: true, valid: false, user: barista, refreshErr: client.ErrUnauthorized}},
		{"refresh network", &fakeGateway{access: true, refresh: true, valid: false, user: barista, refreshErr: client.ErrNetwork}},
		{"user fetch fails", &fakeGateway{access: true, refresh: true, valid: true, userErr: client.ErrUnauthorized}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController(t, tt.gw)
			c.Init(context.Background())

			s := c.State()
			assert.False(t, s.IsLoading)
			assert.False(t, s.IsAuthenticated)
			assert.Nil(t, s.User)
			_, clear, _ := tt.gw.counts()
			assert.Equal(t, 1, clear)
		})
	}
}

func TestLogin_FetchesProfile(t *testing.T) {
	gw := &fakeGateway{user: barista}
	c := newController(t, gw)

	u, err := c.Login(context.Background(), "barista", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID, "user comes from the profile fetch, not the login payload")
	assert.Equal(t, 1, gw.userCalls)

	s := c.State()
	requireConsistent(t, s)
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, "b@example.com", s.User.Email)
}

func TestLogin_Failure(t *testing.T) {
	gw := &fakeGateway{user: barista, loginErr: client.ErrInvalidCredentials}
	c := newController(t, gw)

	_, err := c.Login(context.Background(), "barista", "wrong")
	require.ErrorIs(t, err, client.ErrInvalidCredentials)
	assert.False(t, c.State().IsAuthenticated)
	assert.Zero(t, gw.userCalls)
}

func TestLogin_ProfileFailureDropsTokens(t *testing.T) {
	gw := &fakeGateway{userErr: client.ErrNetwork}
	c := newController(t, gw)

	_, err := c.Login(context.Background(), "barista", "secret")
	require.ErrorIs(t, err, client.ErrNetwork)
	assert.False(t, c.State().IsAuthenticated)

	_, ok := gw.AccessToken(context.Background())
	assert.False(t, ok)
}

func TestSignup_DoesNotAuthenticate(t *testing.T) {
	gw := &fakeGateway{user: barista}
	c := newController(t, gw)
	c.Init(context.Background())

	u, err := c.Signup(context.Background(), models.SignupRequest{Username: "newbie"})
	require.NoError(t, err)
	assert.Equal(t, "newbie", u.Username)

	assert.False(t, c.State().IsAuthenticated)
	_, ok := gw.AccessToken(context.Background())
	assert.False(t, ok)
}

func TestLogout_Idempotent(t *testing.T) {
	gw := &fakeGateway{user: barista}
	c := newController(t, gw)

	_, err := c.Login(context.Background(), "barista", "secret")
	require.NoError(t, err)

	c.Logout(context.Background())
	first := c.State()
	c.Logout(context.Background())
	second := c.State()

	assert.Equal(t, first, second)
	assert.False(t, second.IsAuthenticated)
	assert.Nil(t, second.User)
	_, _, logout := gw.counts()
	assert.Equal(t, 2, logout)
}

func TestRefreshUser(t *testing.T) {
	gw := &fakeGateway{user: barista}
	c := newController(t, gw)
	_, err := c.Login(context.Background(), "barista", "secret")
	require.NoError(t, err)

	gw.set(func(f *fakeGateway) { f.user = &models.User{ID: 7, Username: "barista", FirstName: "Ji"} })
	u, err := c.RefreshUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ji", u.FirstName)
	assert.Equal(t, "Ji", c.State().User.FirstName)

	gw.set(func(f *fakeGateway) { f.userErr = client.ErrNetwork })
	_, err = c.RefreshUser(context.Background())
	require.ErrorIs(t, err, client.ErrNetwork)
	assert.True(t, c.State().IsAuthenticated, "state is kept on failure")
	assert.Equal(t, "Ji", c.State().User.FirstName)
}

func TestState_ReturnsCopy(t *testing.T) {
	gw := &fakeGateway{user: barista}
	c := newController(t, gw)
	_, err := c.Login(context.Background(), "barista", "secret")
	require.NoError(t, err)

	s := c.State()
	s.User.Username = "mutated"
	assert.Equal(t, "barista", c.State().User.Username)
}

func TestLoop_ProactiveRefreshAndStop(t *testing.T) {
	gw := &fakeGateway{user: barista}
	c := newController(t, gw, WithCheckInterval(5*time.Millisecond), WithRefreshThreshold(5*time.Minute))

	_, err := c.Login(context.Background(), "barista", "secret")
	require.NoError(t, err)
	gw.set(func(f *fakeGateway) { f.ttl = time.Minute; f.refreshErr = client.ErrNetwork })

	require.Eventually(t, func() bool {
		refresh, _, _ := gw.counts()
		return refresh >= 2
	}, 2*time.Second, 5*time.Millisecond, "network failures are retried on later ticks")
	assert.True(t, c.State().IsAuthenticated)

	c.Logout(context.Background())
	stopped, _, _ := gw.counts()
	time.Sleep(50 * time.Millisecond)
	after, _, _ := gw.counts()
	assert.Equal(t, stopped, after, "no tick after logout returns")
}

func TestLoop_NoRefreshWhenFarFromExpiry(t *testing.T) {
	gw := &fakeGateway{user: barista}
	c := newController(t, gw, WithCheckInterval(5*time.Millisecond), WithRefreshThreshold(time.Minute))

	_, err := c.Login(context.Background(), "barista", "secret")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	refresh, _, _ := gw.counts()
	assert.Zero(t, refresh)
}

func TestLoop_EndsSession(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeGateway)
	}{
		{"expired without refresh token", func(f *fakeGateway) { f.access, f.refresh, f.ttl = false, false, 0 }},
		{"renewal rejected", func(f *fakeGateway) { f.ttl = time.Second; f.refreshErr = fmt.Errorf("%w: %w", client.ErrUnauthorized, client.ErrRefreshInvalid) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{user: barista}
			c := newController(t, gw, WithCheckInterval(5*time.Millisecond))

			_, err := c.Login(context.Background(), "barista", "secret")
			require.NoError(t, err)
			gw.set(tt.setup)

			require.Eventually(t, func() bool { return !c.State().IsAuthenticated }, 2*time.Second, 5*time.Millisecond)
			require.Eventually(t, func() bool {
				_, clear, _ := gw.counts()
				return clear == 1
			}, 2*time.Second, 5*time.Millisecond)
		})
	}
}

func TestExpiredNotification(t *testing.T) {
	gw := &fakeGateway{user: barista}
	n := &fakeNotifier{}
	c := New(gw, n, logging.Discard(), WithCheckInterval(time.Hour))

	_, err := c.Login(context.Background(), "barista", "secret")
	require.NoError(t, err)
	require.Equal(t, 1, n.count())

	n.fire()
	s := c.State()
	assert.False(t, s.IsAuthenticated)
	assert.Nil(t, s.User)

	c.Close()
	assert.Zero(t, n.count(), "Close unsubscribes")
	c.Close()
}
