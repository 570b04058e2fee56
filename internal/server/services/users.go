// Package services implements the server's application logic: account
// lifecycle with token rotation, and batch reconciliation of note
// changes.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avoronova/notekeeper/internal/common"
	"github.com/avoronova/notekeeper/internal/server/auth"
	"github.com/avoronova/notekeeper/internal/server/config"
	"github.com/avoronova/notekeeper/internal/server/models"
	"github.com/avoronova/notekeeper/internal/server/repositories"
	"github.com/avoronova/notekeeper/internal/server/repositories/refreshtokens"
)

const refreshTokenBytes = 32

// TokenPair is an access token plus its refresh token.
type TokenPair struct {
	Access  string
	Refresh string
}

// UserService handles registration, login and token refresh.
type UserService struct {
	mgr        repositories.Manager
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewUserService(mgr repositories.Manager, cfg *config.Config) *UserService {
	return &UserService{
		mgr:        mgr,
		secret:     []byte(cfg.SecretKey),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}
}

// Register creates the account and issues the first token pair.
func (s *UserService) Register(ctx context.Context, email, password string) (*TokenPair, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user, err := s.mgr.Users().Create(ctx, &models.User{Email: email, PasswordHash: hash})
	if err != nil {
		return nil, err
	}
	return s.issuePair(ctx, user.ID)
}

// Login verifies credentials and issues a token pair. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.mgr.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}
	return s.issuePair(ctx, user.ID)
}

// Refresh rotates the refresh token and issues a new pair. An expired or
// unknown token requires a fresh login.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := s.mgr.RefreshTokens().Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.mgr.RefreshTokens().Delete(ctx, refreshToken)
		return nil, common.ErrRefreshTokenExpired
	}

	access, err := auth.GenerateToken(stored.UserID, s.secret, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := common.MakeRandHexString(refreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	err = s.mgr.RotateRefreshToken(ctx, refreshToken, func(ctx context.Context, rt refreshtokens.Repository) error {
		return rt.Insert(ctx, &models.RefreshToken{
			Token:     refresh,
			UserID:    stored.UserID,
			ExpiresAt: time.Now().Add(s.refreshTTL),
		})
	})
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// UserIDFromToken validates an access token.
func (s *UserService) UserIDFromToken(token string) (int64, error) {
	return auth.GetUserIDFromToken(token, s.secret)
}

func (s *UserService) issuePair(ctx context.Context, userID int64) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.secret, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := common.MakeRandHexString(refreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	err = s.mgr.RefreshTokens().Insert(ctx, &models.RefreshToken{
		Token:     refresh,
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	})
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}
