package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/liushenghao/taixuan_shop/internal/hash"
	"github.com/liushenghao/taixuan_shop/internal/logging"
	"github.com/liushenghao/taixuan_shop/internal/models"
	"github.com/liushenghao/taixuan_shop/internal/mykafka"
	"github.com/liushenghao/taixuan_shop/internal/repo"
	"github.com/liushenghao/taixuan_shop/internal/service/token"
	"github.com/liushenghao/taixuan_shop/internal/transport"
)

type AuthService struct {
	Repo     *repo.GormRepo
	Tokens   *token.Service
	Producer *mykafka.Producer
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	var existing models.User
	err := s.Repo.DB.WithContext(ctx).
		Where("username = ? OR email = ?", req.Username, req.Email).
		First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("%w: user already exists", ErrConflict)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	pw, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: pw,
		Role:         models.RoleUser,
	}
	if err := s.Repo.DB.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}

	if err := s.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(user.ID), map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	}); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "topic", "user_events", "error", err)
	}

	return user, nil
}

// Login returns a signed access/refresh pair for valid credentials. Unknown
// user and bad password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest) (string, string, error) {
	var user models.User
	err := s.Repo.DB.WithContext(ctx).Where("username = ?", req.Username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", fmt.Errorf("%w: invalid credentials", ErrValidation)
		}
		return "", "", err
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return "", "", fmt.Errorf("%w: invalid credentials", ErrValidation)
	}

	access, err := s.Tokens.SignAccessToken(&user)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.Tokens.SignRefreshToken(&user)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Tokens.Revoke(refreshToken)
}
