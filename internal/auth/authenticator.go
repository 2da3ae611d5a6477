// Package auth creates accounts, checks credentials and issues the session
// tokens that identify ledger users.
package auth

import (
	"context"

	"github.com/mmynk/settlewise/internal/models"
)

// Registration is the data a new account is created from.
type Registration struct {
	Email    string
	Name     string
	Password string
}

// Authenticator creates accounts and checks credentials.
// Bad credentials are errs.KindUnauthenticated, a rejected password is
// errs.KindValidation and a taken email is errs.KindConflict.
type Authenticator interface {
	Register(ctx context.Context, r Registration) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// UserStorage is the part of the ledger store accounts live in.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
