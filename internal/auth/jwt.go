package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
)

// Issuer is the iss claim of every session token.
const Issuer = "settlewise"

var (
	ErrInvalidToken = errs.Unauthenticated("invalid or expired token")
	ErrMissingToken = errs.Unauthenticated("authorization token required")
)

// Claims identify the user behind a session token. The user ID is the
// token subject.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// UserID returns the ID of the user the token was issued to.
func (c *Claims) UserID() string {
	return c.Subject
}

// User returns the public identity carried by the token.
func (c *Claims) User() models.UserRef {
	return models.UserRef{ID: c.Subject, Name: c.Name, Email: c.Email}
}

// Session is an issued token together with its expiry.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// JWTManager issues and validates HS256 session tokens. The same tokens
// authenticate RPC calls and websocket subscriptions.
type JWTManager struct {
	secretKey []byte
	ttl       time.Duration
	leeway    time.Duration
	now       func() time.Time
	parser    *jwt.Parser
}

// JWTOption configures a JWTManager.
type JWTOption func(*JWTManager)

// WithClock replaces time.Now for issuing and validating tokens.
func WithClock(now func() time.Time) JWTOption {
	return func(m *JWTManager) {
		m.now = now
	}
}

// WithLeeway tolerates clock skew between issuer and validator.
func WithLeeway(d time.Duration) JWTOption {
	return func(m *JWTManager) {
		m.leeway = d
	}
}

// NewJWTManager creates a manager signing with secretKey. Tokens stay
// valid for ttl after they are issued.
func NewJWTManager(secretKey string, ttl time.Duration, opts ...JWTOption) *JWTManager {
	m := &JWTManager{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.leeway),
		jwt.WithTimeFunc(m.now),
	)
	return m
}

// Issue signs a session token for user.
func (m *JWTManager) Issue(user *models.User) (Session, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := &Claims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   user.ID,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	if err != nil {
		return Session{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return Session{Token: signed, ExpiresAt: expiresAt}, nil
}

// Validate parses a session token and returns its claims. Any failure,
// including a foreign issuer or signing method, is ErrInvalidToken.
func (m *JWTManager) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	if _, err := m.parser.ParseWithClaims(token, claims, m.key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *JWTManager) key(*jwt.Token) (any, error) {
	return m.secretKey, nil
}
