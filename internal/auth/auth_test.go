package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage/memory"
)

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	a := NewPasswordAuthenticator(memory.New()).WithCost(bcrypt.MinCost)

	user, err := a.Register(ctx, Registration{Email: "  Alice@Example.com ", Name: " Alice ", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.Name)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid", "alice@example.com", "correct horse", nil},
		{"email is case-insensitive", "ALICE@example.com", "correct horse", nil},
		{"wrong password", "alice@example.com", "wrong horse", ErrInvalidCredentials},
		{"unknown email", "bob@example.com", "correct horse", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, got.ID)
		})
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := a.Register(ctx, Registration{Email: "alice@example.com", Name: "Alice 2", Password: "another password"})
		assert.ErrorIs(t, err, ErrEmailExists)
		assert.Equal(t, errs.KindConflict, errs.KindOf(err))
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := a.Register(ctx, Registration{Email: "carol@example.com", Name: "Carol", Password: "short"})
		assert.ErrorIs(t, err, ErrWeakPassword)
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := a.Register(ctx, Registration{Email: "dave@example.com", Name: "  ", Password: "long enough"})
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	})
}

func TestJWTManager(t *testing.T) {
	issuedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	user := models.NewUser("alice@example.com", "Alice", "hash")

	session, err := NewJWTManager("test-secret", time.Hour, WithClock(func() time.Time { return issuedAt })).Issue(user)
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(time.Hour), session.ExpiresAt)

	sign := func(claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		return s
	}
	validClaims := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		}
	}

	tests := []struct {
		name         string
		token        string
		secret       string
		at           time.Time
		opts         []JWTOption
		wantErr      bool
		validateFunc func(t *testing.T, claims *Claims)
	}{
		{
			name:  "fresh token",
			token: session.Token,
			at:    issuedAt.Add(30 * time.Minute),
			validateFunc: func(t *testing.T, claims *Claims) {
				assert.Equal(t, user.ID, claims.UserID())
				assert.Equal(t, user.Ref(), claims.User())
				assert.Equal(t, Issuer, claims.Issuer)
				assert.NotEmpty(t, claims.ID)
			},
		},
		{
			name:    "expired token",
			token:   session.Token,
			at:      issuedAt.Add(2 * time.Hour),
			wantErr: true,
		},
		{
			name:  "leeway absorbs clock skew",
			token: session.Token,
			at:    issuedAt.Add(time.Hour + 30*time.Second),
			opts:  []JWTOption{WithLeeway(time.Minute)},
		},
		{
			name:    "wrong secret",
			token:   session.Token,
			secret:  "other-secret",
			at:      issuedAt,
			wantErr: true,
		},
		{
			name: "foreign issuer",
			token: sign(func() jwt.RegisteredClaims {
				c := validClaims()
				c.Issuer = "someone-else"
				return c
			}()),
			at:      issuedAt,
			wantErr: true,
		},
		{
			name: "no subject",
			token: sign(func() jwt.RegisteredClaims {
				c := validClaims()
				c.Subject = ""
				return c
			}()),
			at:      issuedAt,
			wantErr: true,
		},
		{
			name: "no expiry",
			token: sign(func() jwt.RegisteredClaims {
				c := validClaims()
				c.ExpiresAt = nil
				return c
			}()),
			at:      issuedAt,
			wantErr: true,
		},
		{
			name: "unsigned token",
			token: func() string {
				c := validClaims()
				s, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{RegisteredClaims: c}).SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return s
			}(),
			at:      issuedAt,
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not-a-token",
			at:      issuedAt,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret := tt.secret
			if secret == "" {
				secret = "test-secret"
			}
			at := tt.at
			opts := append([]JWTOption{WithClock(func() time.Time { return at })}, tt.opts...)

			claims, err := NewJWTManager(secret, time.Hour, opts...).Validate(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
				assert.Equal(t, errs.KindUnauthenticated, errs.KindOf(err))
				return
			}
			require.NoError(t, err)
			if tt.validateFunc != nil {
				tt.validateFunc(t, claims)
			}
		})
	}
}
