package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/settlewise/internal/auth"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/pkg/api"
)

// UserLookup fetches a user by ID.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         UserLookup
	logger        *slog.Logger
}

var _ api.AuthServiceHandler = (*AuthService)(nil)

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users UserLookup, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.AuthResponse], error) {
	s.logger.Info("Register request", "email", req.Msg.Email)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	user, err := s.authenticator.Register(ctx, auth.Registration{
		Email:    req.Msg.Email,
		Name:     req.Msg.Name,
		Password: req.Msg.Password,
	})
	if err != nil {
		s.logger.Warn("Registration failed", "email", req.Msg.Email, "error", err)
		return nil, toConnectError(err)
	}

	resp, err := s.session(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered successfully", "user_id", user.ID)
	return connect.NewResponse(resp), nil
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.AuthResponse], error) {
	s.logger.Info("Login request", "email", req.Msg.Email)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "email", req.Msg.Email, "error", err)
		return nil, toConnectError(err)
	}

	resp, err := s.session(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return connect.NewResponse(resp), nil
}

// Me returns the currently authenticated user's profile.
func (s *AuthService) Me(ctx context.Context, _ *connect.Request[api.MeRequest]) (*connect.Response[api.MeResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.MeResponse{User: toAPIUser(user.Ref())}), nil
}

func (s *AuthService) session(user *models.User) (*api.AuthResponse, error) {
	session, err := s.jwtManager.Issue(user)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to issue token: %w", err))
	}
	return &api.AuthResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Unix(),
		User:      toAPIUser(user.Ref()),
	}, nil
}
