package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
)

const minPasswordLength = 8

var (
	ErrInvalidCredentials = errs.Unauthenticated("invalid email or password")
	ErrWeakPassword       = errs.Validation("password must be at least %d characters", minPasswordLength)
	ErrEmailExists        = errs.Conflict("email already registered")
)

// PasswordAuthenticator authenticates with an email and a bcrypt-hashed password.
type PasswordAuthenticator struct {
	storage UserStorage
	cost    int
}

var _ Authenticator = (*PasswordAuthenticator)(nil)

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(storage UserStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		storage: storage,
		cost:    bcrypt.DefaultCost,
	}
}

// WithCost returns a copy of a that hashes with the given bcrypt cost.
// Tests use bcrypt.MinCost to stay fast.
func (a *PasswordAuthenticator) WithCost(cost int) *PasswordAuthenticator {
	cp := *a
	cp.cost = cost
	return &cp
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Register creates an account. The email is normalized and must not be
// registered yet.
func (a *PasswordAuthenticator) Register(ctx context.Context, r Registration) (*models.User, error) {
	if err := checkPassword(r.Password); err != nil {
		return nil, err
	}
	email := NormalizeEmail(r.Email)
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, errs.Validation("name is required")
	}

	_, err := a.storage.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errs.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(r.Password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.NewUser(email, name, string(hashedPassword))

	// A concurrent registration of the same email surfaces as a conflict.
	if err := a.storage.CreateUser(ctx, user); err != nil {
		if errs.KindOf(err) == errs.KindConflict {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate returns the user owning email when password matches.
// An unknown email and a wrong password fail the same way.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := a.storage.GetUserByEmail(ctx, NormalizeEmail(email))
	if errs.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
