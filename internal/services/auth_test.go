package services

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/types"
)

type fakeUserRepo struct {
	users map[string]*types.User
}

func (r *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) error {
	r.users[user.Username] = user
	return nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*types.User, error) {
	return r.users[username], nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func TestAuthLoginAndVerify(t *testing.T) {
	log := testLogger(t)
	users := &fakeUserRepo{users: map[string]*types.User{
		"pipeline": {Username: "pipeline", PasswordHash: mustHash(t, "s3cret")},
	}}
	auth := NewAuthService(log, users, AuthConfig{Secret: "test-secret", TTL: time.Hour})

	token, err := auth.Login(context.Background(), "pipeline", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	subject, err := auth.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if subject != "pipeline" {
		t.Fatalf("expected subject pipeline, got %q", subject)
	}
}

func TestAuthLoginRejectsWrongPassword(t *testing.T) {
	log := testLogger(t)
	users := &fakeUserRepo{users: map[string]*types.User{
		"pipeline": {Username: "pipeline", PasswordHash: mustHash(t, "s3cret")},
	}}
	auth := NewAuthService(log, users, AuthConfig{Secret: "test-secret"})

	if _, err := auth.Login(context.Background(), "pipeline", "wrong"); err == nil {
		t.Fatal("expected wrong password to fail")
	}
	if _, err := auth.Login(context.Background(), "nobody", "s3cret"); err == nil {
		t.Fatal("expected unknown username to fail")
	}
	if _, err := auth.Login(context.Background(), "", ""); err == nil {
		t.Fatal("expected empty credentials to fail")
	}
}

func TestAuthServiceAccountFallback(t *testing.T) {
	log := testLogger(t)
	users := &fakeUserRepo{users: map[string]*types.User{}}
	auth := NewAuthService(log, users, AuthConfig{
		Secret:              "test-secret",
		ServiceUsername:     "admin",
		ServicePasswordHash: mustHash(t, "hunter2"),
	})

	token, err := auth.Login(context.Background(), "admin", "hunter2")
	if err != nil {
		t.Fatalf("service account login failed: %v", err)
	}
	subject, err := auth.VerifyToken(token)
	if err != nil || subject != "admin" {
		t.Fatalf("VerifyToken: %q, %v", subject, err)
	}
}

func TestAuthVerifyRejectsForeignSecret(t *testing.T) {
	log := testLogger(t)
	users := &fakeUserRepo{users: map[string]*types.User{
		"pipeline": {Username: "pipeline", PasswordHash: mustHash(t, "s3cret")},
	}}
	issuer := NewAuthService(log, users, AuthConfig{Secret: "secret-a"})
	verifier := NewAuthService(log, users, AuthConfig{Secret: "secret-b"})

	token, err := issuer.Login(context.Background(), "pipeline", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := verifier.VerifyToken(token); err == nil {
		t.Fatal("expected foreign-secret token to be rejected")
	}
	if _, err := issuer.VerifyToken("not-a-token"); err == nil {
		t.Fatal("expected garbage token to be rejected")
	}
}
