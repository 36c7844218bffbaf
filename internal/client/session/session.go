// Package session holds the CLI's view of the login state and keeps it
// consistent with the token store and the backend.
//
// A Controller is created once per process. Init restores a stored session,
// Login/Logout change it, and while a session is active a background loop
// renews the access token ahead of its expiry. Close stops the loop and
// detaches from the client's session-expired event.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/coffeedia/internal/client/client"
	"github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/client/policy"
	"github.com/dmitrijs2005/coffeedia/internal/logging"
)

const (
	DefaultCheckInterval    = time.Minute
	DefaultRefreshThreshold = 5 * time.Minute
)

// Gateway is the authentication backend the controller drives.
type Gateway interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
	Signup(ctx context.Context, req models.SignupRequest) (*models.User, error)
	RefreshSession(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
	Validate(ctx context.Context) bool
	Logout(ctx context.Context) error
	ClearLocal(ctx context.Context) error

	AccessToken(ctx context.Context) (string, bool)
	RefreshToken(ctx context.Context) (string, bool)
	TimeToExpiry(ctx context.Context) time.Duration
}

// ExpiryNotifier reports sessions cleared by the HTTP layer.
type ExpiryNotifier interface {
	OnSessionExpired(fn client.SessionExpiredFunc) (unsubscribe func())
}

// State is a snapshot of the session. IsAuthenticated implies User != nil.
type State struct {
	IsAuthenticated bool
	User            *models.User
	IsLoading       bool
}

func (s State) Subject() policy.Subject {
	return policy.Subject{Authenticated: s.IsAuthenticated, User: s.User}
}

type Option func(*Controller)

func WithCheckInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithRefreshThreshold(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.threshold = d
		}
	}
}

type Controller struct {
	gw        Gateway
	log       logging.Logger
	interval  time.Duration
	threshold time.Duration

	mu    sync.RWMutex
	state State

	loopMu     sync.Mutex
	stopLoopFn context.CancelFunc
	loopDone   chan struct{}

	unsubscribe func()
}

// New returns a controller in the loading state. When events is not nil
// the controller follows its session-expired notifications until Close.
func New(gw Gateway, events ExpiryNotifier, log logging.Logger, opts ...Option) *Controller {
	c := &Controller{
		gw:        gw,
		log:       log,
		interval:  DefaultCheckInterval,
		threshold: DefaultRefreshThreshold,
		state:     State{IsLoading: true},
	}
	for _, o := range opts {
		o(c)
	}
	if events != nil {
		c.unsubscribe = events.OnSessionExpired(c.handleExpired)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (c *Controller) setAuthenticated(u *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{IsAuthenticated: true, User: u}
}

func (c *Controller) setLoggedOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{}
}

// Init restores a stored session. It never fails: whatever goes wrong ends
// in a logged-out state, and IsLoading is false when Init returns.
func (c *Controller) Init(ctx context.Context) {
	if _, ok := c.gw.AccessToken(ctx); !ok {
		c.log.Debug(ctx, "no stored session")
		c.setLoggedOut()
		return
	}

	if !c.gw.Validate(ctx) {
		c.log.Info(ctx, "stored access token rejected, refreshing")
		if err := c.gw.RefreshSession(ctx); err != nil {
			c.log.Info(ctx, "could not restore session", "error", err)
			c.discard(ctx)
			return
		}
	}

	user, err := c.gw.CurrentUser(ctx)
	if err != nil {
		c.log.Info(ctx, "could not load current user", "error", err)
		c.discard(ctx)
		return
	}

	c.setAuthenticated(user)
	c.startLoop()
	c.log.Info(ctx, "session restored", "username", user.Username)
}

// Login authenticates and then loads the full profile. If the profile
// cannot be loaded the new tokens are dropped and the error returned.
func (c *Controller) Login(ctx context.Context, username, password string) (*models.User, error) {
	if _, err := c.gw.Login(ctx, username, password); err != nil {
		return nil, err
	}

	user, err := c.gw.CurrentUser(ctx)
	if err != nil {
		c.discard(ctx)
		return nil, err
	}

	c.setAuthenticated(user)
	c.startLoop()
	return user, nil
}

// Signup creates an account. The session is left as it was.
func (c *Controller) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	return c.gw.Signup(ctx, req)
}

// Logout always succeeds locally. The maintenance loop has stopped when it
// returns.
func (c *Controller) Logout(ctx context.Context) {
	c.stopLoop(true)
	if err := c.gw.Logout(ctx); err != nil {
		c.log.Error(ctx, "logout failed to clear local state", "error", err)
	}
	c.setLoggedOut()
}

// RefreshUser reloads the profile of the logged-in user. On failure the
// state is kept and the error returned.
func (c *Controller) RefreshUser(ctx context.Context) (*models.User, error) {
	user, err := c.gw.CurrentUser(ctx)
	if err != nil {
		c.log.Warn(ctx, "failed to refresh user", "error", err)
		return nil, err
	}

	c.mu.Lock()
	if c.state.IsAuthenticated {
		c.state.User = user
	}
	c.mu.Unlock()
	return user, nil
}

// Close stops the maintenance loop and detaches from expiry notifications.
func (c *Controller) Close() {
	c.stopLoop(true)
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// handleExpired runs when the HTTP layer has already cleared the store. It
// may be called from inside the loop's own refresh, so it must not wait for
// the loop.
func (c *Controller) handleExpired(ctx context.Context) {
	c.log.Info(ctx, "session expired")
	c.stopLoop(false)
	c.setLoggedOut()
}

func (c *Controller) discard(ctx context.Context) {
	if err := c.gw.ClearLocal(ctx); err != nil {
		c.log.Error(ctx, "failed to clear session", "error", err)
	}
	c.setLoggedOut()
}

func (c *Controller) startLoop() {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()

	if c.stopLoopFn != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.stopLoopFn, c.loopDone = cancel, done

	go c.maintain(ctx, done)
}

// stopLoop cancels the loop; with wait it also blocks until the loop
// goroutine has returned.
func (c *Controller) stopLoop(wait bool) {
	c.loopMu.Lock()
	cancel, done := c.stopLoopFn, c.loopDone
	c.stopLoopFn, c.loopDone = nil, nil
	c.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if wait {
		<-done
	}
}

func (c *Controller) maintain(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			c.check(ctx)

		case <-ctx.Done():
			return
		}
	}
}

// check is one maintenance tick.
func (c *Controller) check(ctx context.Context) {
	ttl := c.gw.TimeToExpiry(ctx)
	if ttl > c.threshold {
		return
	}

	if _, ok := c.gw.RefreshToken(ctx); !ok {
		if ttl <= 0 {
			c.log.Info(ctx, "access token expired and no refresh token, logging out")
			c.stopLoop(false)
			c.discard(ctx)
		}
		return
	}

	err := c.gw.RefreshSession(ctx)
	switch {
	case err == nil:
		c.log.Debug(ctx, "access token renewed ahead of expiry")
	case ctx.Err() != nil:
	case errors.Is(err, client.ErrUnauthorized), errors.Is(err, client.ErrRefreshInvalid):
		c.log.Info(ctx, "token renewal rejected, logging out", "error", err)
		c.stopLoop(false)
		c.discard(ctx)
	default:
		c.log.Warn(ctx, "token renewal failed, will retry", "error", err)
	}
}
