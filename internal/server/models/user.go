// Package models holds the records kept by the development backend.
package models

import (
	"time"

	clientmodels "github.com/dmitrijs2005/coffeedia/internal/client/models"
)

// User is a stored account. PasswordHash is a bcrypt hash and never leaves
// the server.
type User struct {
	ID           int64
	UserName     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash []byte
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public is the account as reported to clients.
func (u *User) Public() *clientmodels.User {
	return &clientmodels.User{
		ID:        u.ID,
		Username:  u.UserName,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Roles:     u.Roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
