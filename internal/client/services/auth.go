// Package services contains application services for the Coffeedia client.
// This file defines the authentication service: login, signup, token refresh,
// current-user lookup and logout, keeping the local token store in step with
// the backend.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/coffeedia/internal/client/client"
	"github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/logging"
)

// defaultTokenLifetime applies when the backend reports no lifetime and the
// token carries no readable exp claim.
const defaultTokenLifetime = time.Hour

// API is the backend client used by the services.
type API interface {
	Do(ctx context.Context, method, path string, body, out any) error
	RefreshSession(ctx context.Context) (string, error)
}

// SessionStore is where the auth service keeps credentials.
type SessionStore interface {
	AccessToken(ctx context.Context) (string, bool)
	RefreshToken(ctx context.Context) (string, bool)
	TimeToExpiry(ctx context.Context) time.Duration
	SaveTokens(ctx context.Context, access string, expiresIn time.Duration, refresh string) error
	ReplaceTokens(ctx context.Context, prevRefresh, access string, expiresIn time.Duration, refresh string) (bool, error)
	SaveUser(ctx context.Context, u *models.User) error
	User(ctx context.Context) (*models.User, bool)
	Clear(ctx context.Context) error
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate and persist the token pair and the returned user.
//   - Signup: create an account. Does not log in.
//   - Refresh: trade a refresh token for a new pair and persist it.
//   - RefreshSession: renew through the client's single-flight path.
//   - CurrentUser: fetch and cache the logged-in user.
//   - Validate: ask the backend whether the stored access token is valid.
//   - Logout: notify the backend when possible, then clear local state.
//   - ClearLocal: drop local session state without telling the backend.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
	Signup(ctx context.Context, req models.SignupRequest) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	RefreshSession(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
	Validate(ctx context.Context) bool
	Logout(ctx context.Context) error
	ClearLocal(ctx context.Context) error

	AccessToken(ctx context.Context) (string, bool)
	RefreshToken(ctx context.Context) (string, bool)
	TimeToExpiry(ctx context.Context) time.Duration
	CachedUser(ctx context.Context) (*models.User, bool)
}

type authService struct {
	api   API
	store SessionStore
	log   logging.Logger
	now   func() time.Time
}

// NewAuthService constructs an AuthService bound to the given API client and store.
func NewAuthService(api API, store SessionStore, log logging.Logger) AuthService {
	return &authService{api: api, store: store, log: log, now: time.Now}
}

// Login fails with client.ErrInvalidCredentials on 401 and
// client.ErrUserNotFound on 404.
func (a *authService) Login(ctx context.Context, username, password string) (*models.User, error) {
	var resp models.LoginResponse
	err := a.api.Do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, refine(err, map[int]error{
			http.StatusUnauthorized: client.ErrInvalidCredentials,
			http.StatusNotFound:     client.ErrUserNotFound,
		})
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login error: %w", client.ErrServer)
	}

	if err := a.store.SaveTokens(ctx, resp.AccessToken, a.lifetime(resp.ExpiresIn, resp.AccessToken), resp.RefreshToken); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}

	name := resp.Username
	if name == "" {
		name = username
	}
	user := &models.User{Username: name, Roles: resp.Roles}
	if err := a.store.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("user saving error: %w", err)
	}

	a.log.Info(ctx, "logged in", "username", name)
	return user, nil
}

// Signup fails with client.ErrUsernameTaken on 409 and client.ErrValidation
// on 400/422. The token store is never touched.
func (a *authService) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	var user models.User
	err := a.api.Do(ctx, http.MethodPost, "/auth/signup", req, &user)
	if err != nil {
		return nil, refine(err, map[int]error{
			http.StatusConflict: client.ErrUsernameTaken,
		})
	}
	if user.Username == "" {
		user.Username = req.Username
	}
	return &user, nil
}

// Refresh fails with client.ErrRefreshInvalid whenever the backend rejects
// the call, whatever the status. The new pair is stored only while
// refreshToken is still the stored one; otherwise the session ended during
// the call and client.ErrSessionEnded is returned.
func (a *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	var pair models.TokenPair
	err := a.api.Do(ctx, http.MethodPost, "/auth/refresh", models.RefreshRequest{RefreshToken: refreshToken}, &pair)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr.WithKind(client.ErrRefreshInvalid)
		}
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, &client.APIError{Status: http.StatusOK, Message: "no access token in refresh response", Kind: client.ErrRefreshInvalid}
	}

	ok, err := a.store.ReplaceTokens(ctx, refreshToken, pair.AccessToken, a.lifetime(pair.ExpiresIn, pair.AccessToken), pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}
	if !ok {
		a.log.Info(ctx, "session ended while refreshing, new tokens discarded")
		return nil, client.ErrSessionEnded
	}
	return &pair, nil
}

func (a *authService) RefreshSession(ctx context.Context) error {
	_, err := a.api.RefreshSession(ctx)
	return err
}

// CurrentUser fails with client.ErrUnauthorized when the backend does not
// accept the session.
func (a *authService) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := a.api.Do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	if user.Username == "" {
		return nil, fmt.Errorf("current user: %w", client.ErrServer)
	}

	if err := a.store.SaveUser(ctx, &user); err != nil {
		a.log.Warn(ctx, "failed to cache user", "error", err)
	}
	return &user, nil
}

func (a *authService) Validate(ctx context.Context) bool {
	var valid bool
	if err := a.api.Do(ctx, http.MethodPost, "/auth/validate", nil, &valid); err != nil {
		a.log.Debug(ctx, "token validation failed", "error", err)
		return false
	}
	return valid
}

// Logout tells the backend when a token is held, ignoring any failure, and
// then clears the local session. Calling it again is harmless.
func (a *authService) Logout(ctx context.Context) error {
	if _, ok := a.store.AccessToken(ctx); ok {
		if err := a.api.Do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
			a.log.Warn(ctx, "logout notification failed", "error", err)
		}
	}

	if err := a.store.Clear(ctx); err != nil {
		return fmt.Errorf("logout error: %w", err)
	}
	return nil
}

func (a *authService) ClearLocal(ctx context.Context) error {
	return a.store.Clear(ctx)
}

func (a *authService) AccessToken(ctx context.Context) (string, bool) {
	return a.store.AccessToken(ctx)
}

func (a *authService) RefreshToken(ctx context.Context) (string, bool) {
	return a.store.RefreshToken(ctx)
}

func (a *authService) TimeToExpiry(ctx context.Context) time.Duration {
	return a.store.TimeToExpiry(ctx)
}

func (a *authService) CachedUser(ctx context.Context) (*models.User, bool) {
	return a.store.User(ctx)
}

// lifetime converts expiresIn seconds into a duration. Without a usable
// value it falls back to the token's exp claim, read without verification.
func (a *authService) lifetime(expiresIn int64, token string) time.Duration {
	if expiresIn > 0 {
		return time.Duration(expiresIn) * time.Second
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		if d := claims.ExpiresAt.Time.Sub(a.now()); d > 0 {
			return d
		}
	}
	return defaultTokenLifetime
}

// refine reclassifies backend errors whose status has an endpoint-specific
// meaning. Other errors are returned unchanged.
func refine(err error, byStatus map[int]error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if kind, ok := byStatus[apiErr.Status]; ok {
		return apiErr.WithKind(kind)
	}
	return err
}
