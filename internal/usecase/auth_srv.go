package usecase

import (
	"context"
	"fmt"
	"time"

	"movie-booking/internal/data/entity"
	"movie-booking/internal/data/repository"
	"movie-booking/internal/dto/request"
	"movie-booking/internal/dto/response"
	"movie-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error)
	Login(ctx context.Context, req *request.LoginRequest, userAgent, ipAddress string) (*response.AuthResponse, error)
	Logout(ctx context.Context, token string) error
}

type authService struct {
	repo   *repository.Repository
	config *utils.Config
	log    *zap.Logger
}

func NewAuthService(repo *repository.Repository, config *utils.Config, log *zap.Logger) AuthService {
	return &authService{
		repo:   repo,
		config: config,
		log:    log.With(zap.String("service", "auth")),
	}
}

func (s *authService) Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Register validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", repository.ErrValidation, utils.FormatValidationErrors(errs))
	}

	existing, err := s.repo.User.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check existing email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", repository.ErrInvalidState)
	}

	existing, err = s.repo.User.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("check existing username: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: username already taken", repository.ErrInvalidState)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         entity.RoleCustomer,
		IsActive:     true,
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)

	return s.createSession(ctx, user, nil, nil)
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest, userAgent, ipAddress string) (*response.AuthResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Login validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", repository.ErrValidation, utils.FormatValidationErrors(errs))
	}

	user, err := s.repo.User.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, fmt.Errorf("%w: invalid credentials", repository.ErrForbidden)
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		s.log.Warn("Login failed", zap.String("email", req.Email))
		return nil, fmt.Errorf("%w: invalid credentials", repository.ErrForbidden)
	}

	var ua, ip *string
	if userAgent != "" {
		ua = &userAgent
	}
	if ipAddress != "" {
		ip = &ipAddress
	}

	return s.createSession(ctx, user, ua, ip)
}

func (s *authService) Logout(ctx context.Context, token string) error {
	return s.repo.Session.Revoke(ctx, token)
}

func (s *authService) createSession(ctx context.Context, user *entity.User, userAgent, ipAddress *string) (*response.AuthResponse, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(s.config.Session.ExpiryHours) * time.Hour)

	session := &entity.Session{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		UserID:    user.ID,
		Token:     uuid.New(),
		UserAgent: userAgent,
		IPAddress: ipAddress,
		ExpiresAt: expiresAt,
	}

	if err := s.repo.Session.Create(ctx, session); err != nil {
		return nil, err
	}

	return &response.AuthResponse{
		UserID:    user.ID.String(),
		Username:  user.Username,
		Email:     user.Email,
		Token:     session.Token.String(),
		ExpiresAt: expiresAt,
	}, nil
}
