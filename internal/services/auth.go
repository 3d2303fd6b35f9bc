package services

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/aikhq/aik-backend/internal/data/repos"
	"github.com/aikhq/aik-backend/internal/pkg/apperr"
	"github.com/aikhq/aik-backend/internal/platform/logger"
)

// AuthService issues and verifies bearer tokens for the API surface.
// Credentials come from the users table, with an env-configured service
// account as fallback for bootstrap installs without user rows.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, error)
	VerifyToken(tokenString string) (string, error)
}

type AuthConfig struct {
	Secret string
	TTL    time.Duration

	ServiceUsername     string
	ServicePasswordHash string
}

type authService struct {
	log   *logger.Logger
	users repos.UserRepo
	cfg   AuthConfig
}

func NewAuthService(log *logger.Logger, users repos.UserRepo, cfg AuthConfig) AuthService {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &authService{
		log:   log.With("service", "AuthService"),
		users: users,
		cfg:   cfg,
	}
}

func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", apperr.Validation("missing_credentials", "username and password required")
	}

	hash := ""
	user, err := s.users.GetByUsername(ctx, nil, username)
	if err != nil {
		return "", apperr.Storage("user_lookup_failed", err)
	}
	switch {
	case user != nil:
		hash = user.PasswordHash
	case username == s.cfg.ServiceUsername && s.cfg.ServicePasswordHash != "":
		hash = s.cfg.ServicePasswordHash
	default:
		return "", apperr.Validation("invalid_credentials", "unknown username or wrong password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", apperr.Validation("invalid_credentials", "unknown username or wrong password")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, "token_sign_failed", err)
	}
	return signed, nil
}

// VerifyToken returns the subject of a valid token.
func (s *authService) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Validation("bad_signing_method", "unexpected token signing method")
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return "", apperr.Validation("invalid_token", "token invalid or expired")
	}
	return claims.Subject, nil
}
