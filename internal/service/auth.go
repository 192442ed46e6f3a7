package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

type AuthService struct {
	Repo      *repo.GormRepo
	JWTSecret []byte
	TokenTTL  time.Duration
	Events    mykafka.Publisher
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*transport.TokenResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || req.Password == "" {
		return nil, fmt.Errorf("username and password are required: %w", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("invalid email: %w", ErrValidation)
	}

	usernameTaken, emailTaken, err := s.Repo.UserTaken(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if usernameTaken {
		return nil, fmt.Errorf("username already taken: %w", ErrConflict)
	}
	if emailTaken {
		return nil, fmt.Errorf("email already registered: %w", ErrConflict)
	}

	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{Username: username, Email: email, PasswordHash: passwordHash}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("username or email already registered: %w", ErrConflict)
		}
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicUserEvents, strconv.FormatUint(uint64(user.ID), 10), map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})

	return s.issue(user.ID)
}

func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest) (*transport.TokenResponse, error) {
	user, err := s.Repo.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	return s.issue(user.ID)
}

// Authenticate resolves a bearer token to the user it was issued for.
func (s *AuthService) Authenticate(token string) (uint, error) {
	claims, err := tokens.AccessClaimsFromToken(token, s.JWTSecret)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, ErrUnauthorized)
	}
	return claims.UserID, nil
}

func (s *AuthService) issue(userID uint) (*transport.TokenResponse, error) {
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	token, exp, err := tokens.SignAccessToken(userID, s.JWTSecret, ttl)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &transport.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   exp.Unix(),
	}, nil
}
