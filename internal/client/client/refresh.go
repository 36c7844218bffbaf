package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/coffeedia/internal/client/metrics"
	"github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/logging"
)

// Refresher exchanges a refresh token for a new token pair and persists it.
// It returns ErrSessionEnded when the session was cleared or replaced before
// the pair could be stored.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
}

// TokenStore is the part of the session store the transport needs.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, bool)
	RefreshToken(ctx context.Context) (string, bool)
	Clear(ctx context.Context) error
}

type RefreshState int32

const (
	StateIdle RefreshState = iota
	StateRefreshing
)

func (s RefreshState) String() string {
	if s == StateRefreshing {
		return "refreshing"
	}
	return "idle"
}

const refreshKey = "refresh"

// refreshCoordinator lets at most one refresh call run at a time. Callers
// arriving while a refresh is in flight wait on their own result channel
// and share its outcome.
type refreshCoordinator struct {
	group singleflight.Group
	state atomic.Int32

	mu        sync.RWMutex
	refresher Refresher

	store   TokenStore
	expired *listeners
	timeout time.Duration
	log     logging.Logger
	metrics *metrics.Metrics
}

func (c *refreshCoordinator) setRefresher(r Refresher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresher = r
}

func (c *refreshCoordinator) getRefresher() Refresher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refresher
}

func (c *refreshCoordinator) State() RefreshState {
	return RefreshState(c.state.Load())
}

// Refresh returns a fresh access token. The refresh call runs detached from
// ctx so a caller that stops waiting does not abort it for the others.
//
// On rejection, or when no refresh token is stored, the session is cleared
// and the expiry listeners run before any caller is released; all callers
// then get an error matching ErrUnauthorized. When the store is already
// empty, or the Refresher reports ErrSessionEnded, callers get
// ErrUnauthorized and the listeners do not run.
func (c *refreshCoordinator) Refresh(ctx context.Context) (string, error) {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		c.state.Store(int32(StateRefreshing))
		defer c.state.Store(int32(StateIdle))
		return c.run(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrNetwork, ctx.Err())
	}
}

func (c *refreshCoordinator) run(ctx context.Context) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	refresher := c.getRefresher()
	rt, ok := c.store.RefreshToken(ctx)
	if !ok && !c.hasAccessToken(ctx) {
		// nothing stored: the session is already over
		c.metrics.ObserveRefresh(metrics.RefreshNoToken)
		c.log.Debug(ctx, "no session to refresh")
		return "", ErrUnauthorized
	}
	if !ok || refresher == nil {
		c.metrics.ObserveRefresh(metrics.RefreshNoToken)
		c.log.Info(ctx, "no refresh token, ending session")
		c.expire(ctx)
		return "", ErrUnauthorized
	}

	pair, err := refresher.Refresh(ctx, rt)
	switch {
	case err == nil:
		c.metrics.ObserveRefresh(metrics.RefreshSuccess)
		c.log.Info(ctx, "access token refreshed", "expires_in", pair.ExpiresIn)
		return pair.AccessToken, nil
	case errors.Is(err, ErrSessionEnded):
		c.metrics.ObserveRefresh(metrics.RefreshDropped)
		c.log.Info(ctx, "session ended while refreshing")
		return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case errors.Is(err, ErrNetwork):
		// the session may still be valid; the next attempt decides
		c.metrics.ObserveRefresh(metrics.RefreshNetwork)
		c.log.Warn(ctx, "token refresh failed", "error", err)
		return "", err
	default:
		c.metrics.ObserveRefresh(metrics.RefreshRejected)
		c.log.Info(ctx, "refresh token rejected, ending session", "error", err)
		c.expire(ctx)
		return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
}

func (c *refreshCoordinator) hasAccessToken(ctx context.Context) bool {
	_, ok := c.store.AccessToken(ctx)
	return ok
}

func (c *refreshCoordinator) expire(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.log.Error(ctx, "failed to clear session", "error", err)
	}
	c.metrics.IncSessionExpired()
	c.expired.fire(ctx)
}
