// Package refreshtokens declares the repository contract for the opaque
// refresh tokens issued by the development backend.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/coffeedia/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID with an expiry of now+validity.
	Create(ctx context.Context, userID int64, token string, validity time.Duration) error

	// Find returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a token. Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteByUser revokes every token of the user.
	DeleteByUser(ctx context.Context, userID int64) error
}
