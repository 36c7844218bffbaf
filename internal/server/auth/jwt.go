// Package auth issues and verifies the access tokens handed out by the
// development backend.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/coffeedia/internal/common"
)

// TokenTypeAccess is the tokenType claim carried by access tokens.
const TokenTypeAccess = "access"

// Claims holds the registered claims plus the account fields the handlers
// need without a user lookup. Subject is the username.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64    `json:"uid"`
	Roles     []string `json:"roles,omitempty"`
	TokenType string   `json:"tokenType"`
}

// GenerateToken signs an HS256 access token for the user. Every token gets
// its own jti, so two tokens issued within the same second still differ.
func GenerateToken(userID int64, username string, roles []string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:    userID,
		Roles:     roles,
		TokenType: TokenTypeAccess,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns its claims. Expired tokens
// yield common.ErrTokenExpired, anything else common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.TokenType != TokenTypeAccess {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
