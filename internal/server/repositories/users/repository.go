// Package users declares the account repository of the development backend.
package users

import (
	"context"

	"github.com/dmitrijs2005/coffeedia/internal/server/models"
)

// Repository stores accounts. Lookups of unknown users return
// common.ErrorNotFound; creating a taken username returns
// common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}
