// Package tokenstore persists the session credentials of the CLI: the access
// token with its absolute expiry, the refresh token and the cached user.
//
// Values live in the metadata table under the keys access_token,
// refresh_token and user. Reads never fail: a value that cannot be loaded or
// parsed is reported as absent, and a corrupt value is deleted on the spot.
// An access token is absent from the instant its expiry is reached; the
// check happens on every read.
//
// The Store is safe for concurrent use. Clear removes all keys in one
// transaction while holding the write lock, so a concurrent reader observes
// either the full session or none of it.
package tokenstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/coffeedia/internal/dbx"
	"github.com/dmitrijs2005/coffeedia/internal/logging"
)

const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

type accessRecord struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"` // epoch milliseconds
}

type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	repo metadata.Repository
	now  func() time.Time
	log  logging.Logger
}

type Option func(*Store)

// WithClock replaces time.Now. Tests use it to move time forward.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(db *sql.DB, log logging.Logger, opts ...Option) *Store {
	s := &Store{
		db:   db,
		repo: metadata.NewSQLiteRepository(db),
		now:  time.Now,
		log:  log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SaveAccessToken stores token with expiry now+expiresIn, replacing any
// previous access token.
func (s *Store) SaveAccessToken(ctx context.Context, token string, expiresIn time.Duration) error {
	rec := accessRecord{Token: token, ExpiresAt: s.now().Add(expiresIn).UnixMilli()}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode access token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Set(ctx, KeyAccessToken, data)
}

// AccessToken returns the stored token unless it is missing, corrupt or
// expired. Expired and corrupt records are evicted.
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	rec, ok := s.accessRecord(ctx)
	if !ok {
		return "", false
	}
	return rec.Token, true
}

// TimeToExpiry is the remaining lifetime of the access token, zero when
// there is no valid one.
func (s *Store) TimeToExpiry(ctx context.Context) time.Duration {
	rec, ok := s.accessRecord(ctx)
	if !ok {
		return 0
	}
	return time.UnixMilli(rec.ExpiresAt).Sub(s.now())
}

func (s *Store) accessRecord(ctx context.Context) (accessRecord, bool) {
	raw, ok := s.load(ctx, KeyAccessToken)
	if !ok {
		return accessRecord{}, false
	}

	var rec accessRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Token == "" {
		s.log.Warn(ctx, "dropping corrupt stored value", "key", KeyAccessToken)
		s.evict(ctx, KeyAccessToken, raw)
		return accessRecord{}, false
	}

	if s.now().UnixMilli() >= rec.ExpiresAt {
		s.log.Debug(ctx, "access token expired", "expired_at", time.UnixMilli(rec.ExpiresAt))
		s.evict(ctx, KeyAccessToken, raw)
		return accessRecord{}, false
	}

	return rec, true
}

func (s *Store) SaveRefreshToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Set(ctx, KeyRefreshToken, []byte(token))
}

func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	raw, ok := s.load(ctx, KeyRefreshToken)
	if !ok || len(raw) == 0 {
		return "", false
	}
	return string(raw), true
}

// SaveTokens stores an access/refresh pair in one transaction.
func (s *Store) SaveTokens(ctx context.Context, access string, expiresIn time.Duration, refresh string) error {
	data, err := json.Marshal(accessRecord{Token: access, ExpiresAt: s.now().Add(expiresIn).UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode access token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, KeyAccessToken, data); err != nil {
			return err
		}
		if refresh == "" {
			return nil
		}
		return repo.Set(ctx, KeyRefreshToken, []byte(refresh))
	})
}

// ReplaceTokens stores the pair obtained by exchanging prevRefresh, but only
// while prevRefresh is still the stored refresh token. It reports false and
// writes nothing when the session was cleared or replaced in the meantime.
func (s *Store) ReplaceTokens(ctx context.Context, prevRefresh, access string, expiresIn time.Duration, refresh string) (bool, error) {
	data, err := json.Marshal(accessRecord{Token: access, ExpiresAt: s.now().Add(expiresIn).UnixMilli()})
	if err != nil {
		return false, fmt.Errorf("encode access token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		current, err := repo.Get(ctx, KeyRefreshToken)
		if err != nil {
			return err
		}
		if prevRefresh == "" || string(current) != prevRefresh {
			return nil
		}

		if err := repo.Set(ctx, KeyAccessToken, data); err != nil {
			return err
		}
		if refresh != "" {
			if err := repo.Set(ctx, KeyRefreshToken, []byte(refresh)); err != nil {
				return err
			}
		}
		replaced = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return replaced, nil
}

func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Set(ctx, KeyUser, data)
}

func (s *Store) User(ctx context.Context) (*models.User, bool) {
	raw, ok := s.load(ctx, KeyUser)
	if !ok {
		return nil, false
	}

	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil || u.Username == "" {
		s.log.Warn(ctx, "dropping corrupt stored value", "key", KeyUser)
		s.evict(ctx, KeyUser, raw)
		return nil, false
	}
	return &u, true
}

// Clear removes the access token, refresh token and user together.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyUser)
	})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := s.repo.Get(ctx, key)
	if err != nil {
		s.log.Error(ctx, "token store read failed", "key", key, "error", err)
		return nil, false
	}
	if raw == nil {
		return nil, false
	}
	return raw, true
}

// evict deletes key if it still holds raw. A writer that replaced the value
// after it was read keeps its value.
func (s *Store) evict(ctx context.Context, key string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.Get(ctx, key)
	if err != nil || !bytes.Equal(current, raw) {
		return
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		s.log.Error(ctx, "token store evict failed", "key", key, "error", err)
	}
}
