package services

import (
	"context"

	"perpus-loan/internal/adapters/persistence/models"
	"perpus-loan/internal/adapters/persistence/repositories"
	"perpus-loan/internal/config"
	"perpus-loan/internal/core/domain"
	"perpus-loan/internal/pkg/jwt"
	"perpus-loan/internal/pkg/password"

	"go.uber.org/zap"
)

// AuthService issues access tokens for the loan API. Accounts themselves
// are managed elsewhere.
type AuthService struct {
	userRepo repositories.UserRepository
	jwtCfg   config.JWTConfig
	log      *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repositories.UserRepository, jwtCfg config.JWTConfig, log *zap.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		jwtCfg:   jwtCfg,
		log:      log.Named("auth"),
	}
}

// LoginInput represents login input
type LoginInput struct {
	NIPD     string `json:"nipd" validate:"required,max=30"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User        *models.UserResponse `json:"user"`
	AccessToken string               `json:"access_token"`
	ExpiresIn   int                  `json:"expires_in"`
}

// Login authenticates a user by NIPD and password
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	user, err := s.userRepo.GetByNIPD(ctx, input.NIPD)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(input.Password, user.Password) {
		s.log.Warn("failed login", zap.String("nipd", input.NIPD))
		return nil, domain.ErrInvalidCredentials
	}

	token, err := jwt.GenerateAccessToken(
		user.ID,
		user.NIPD,
		user.Name,
		string(user.Role),
		s.jwtCfg.Secret,
		s.jwtCfg.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	s.log.Info("user logged in", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))

	return &AuthResponse{
		User:        user.ToResponse(),
		AccessToken: token,
		ExpiresIn:   s.jwtCfg.AccessTokenMins * 60,
	}, nil
}

// Me returns the profile of the authenticated user
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user.ToResponse(), nil
}
