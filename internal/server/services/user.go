// Package services contains the business logic of the development backend.
// This file implements UserService: registration, login, and issuing,
// rotating and revoking tokens.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	clientmodels "github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/common"
	"github.com/dmitrijs2005/coffeedia/internal/server/auth"
	"github.com/dmitrijs2005/coffeedia/internal/server/config"
	"github.com/dmitrijs2005/coffeedia/internal/server/models"
	"github.com/dmitrijs2005/coffeedia/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/coffeedia/internal/server/repositories/users"
)

// DefaultRoles are granted to every new account.
var DefaultRoles = []string{"USER"}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// UserService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
// - Logout: revoke every refresh token of a user
type UserService struct {
	users                        users.Repository
	refreshTokens                refreshtokens.Repository
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(u users.Repository, rt refreshtokens.Repository, cfg *config.Config) *UserService {
	return &UserService{
		users:                        u,
		refreshTokens:                rt,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

// Register validates the request and creates the account. Problems with the
// request wrap common.ErrorValidation; a taken username is
// common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, req clientmodels.SignupRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	switch {
	case req.Username == "":
		return nil, fmt.Errorf("%w: username is required", common.ErrorValidation)
	case req.Password == "":
		return nil, fmt.Errorf("%w: password is required", common.ErrorValidation)
	case req.ConfirmPassword != "" && req.ConfirmPassword != req.Password:
		return nil, fmt.Errorf("%w: passwords do not match", common.ErrorValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	user, err := s.users.Create(ctx, &models.User{
		UserName:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Roles:        DefaultRoles,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// Login verifies the password and, on success, returns a new TokenPair.
// Unknown users yield common.ErrorNotFound, a wrong password
// common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, userName, password string) (*TokenPair, *models.User, error) {
	user, err := s.users.GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, err
		}
		return nil, nil, common.ErrorInternal
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, nil, common.ErrorUnauthorized
	}

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// RefreshToken validates a refresh token, rotates it, and returns a fresh
// TokenPair. Unknown tokens yield common.ErrorUnauthorized, expired ones
// common.ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.refreshTokens.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if err := s.refreshTokens.Delete(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("error deleting refresh token: %w", err)
	}
	if token.Expires.Before(s.now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	user, err := s.users.GetUserByID(ctx, token.UserID)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}
	return s.generateTokenPair(ctx, user)
}

// Logout revokes every refresh token of the user.
func (s *UserService) Logout(ctx context.Context, userID int64) error {
	return s.refreshTokens.DeleteByUser(ctx, userID)
}

func (s *UserService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// ParseAccessToken returns the claims of a valid access token.
func (s *UserService) ParseAccessToken(token string) (*auth.Claims, error) {
	return auth.ParseToken(token, s.jwtSecret)
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := auth.GenerateToken(user.ID, user.UserName, user.Roles, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh := uuid.NewString()
	if err := s.refreshTokens.Create(ctx, user.ID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.accessTokenValidityDuration}, nil
}
