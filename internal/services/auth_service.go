// internal/services/auth_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/apperrors"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/config"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/models"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/utils"
)

type AuthService struct {
	db     *gorm.DB
	config *config.Config
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenPair struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		db:     db,
		config: cfg,
	}
}

func (s *AuthService) Login(req *LoginRequest) (*TokenPair, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation(validationMessage(err))
	}

	var user models.User
	if err := s.db.Preload("Departments").First(&user, "email = ?", req.Email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Authentication("invalid email or password")
		}
		return nil, apperrors.Storage("failed to fetch user", err)
	}

	if user.Status != models.UserStatusActive {
		return nil, apperrors.Authentication("account is inactive")
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, apperrors.Authentication("invalid email or password")
	}

	return s.issueTokens(&user)
}

func (s *AuthService) Refresh(req *RefreshRequest) (*TokenPair, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation(validationMessage(err))
	}

	subject, err := utils.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, apperrors.Authentication("invalid refresh token")
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, apperrors.Authentication("invalid refresh token")
	}

	var user models.User
	if err := s.db.Preload("Departments").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Authentication("caller could not be resolved")
		}
		return nil, apperrors.Storage("failed to fetch user", err)
	}

	if user.Status != models.UserStatusActive {
		return nil, apperrors.Authentication("account is inactive")
	}

	return s.issueTokens(&user)
}

func (s *AuthService) GetProfile(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Departments").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user")
		}
		return nil, apperrors.Storage("failed to fetch user", err)
	}
	return &user, nil
}

func (s *AuthService) issueTokens(user *models.User) (*TokenPair, error) {
	accessToken, err := utils.GenerateJWT(user.ID, user.Username, string(user.Role), s.config.JWT.AccessTokenTTL)
	if err != nil {
		return nil, apperrors.Storage("failed to generate access token", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.config.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, apperrors.Storage("failed to generate refresh token", err)
	}

	now := time.Now()
	s.db.Model(user).Update("last_login_at", now)

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}
