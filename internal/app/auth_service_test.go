package app_test

import (
	"context"
	"testing"
	"time"

	"vocab-test-service/internal/app"
	"vocab-test-service/internal/domain"
	"vocab-test-service/internal/infra/memory"
)

func TestRegisterLoginResolve(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	auth := app.NewAuthService(store, store, time.Hour)

	user, creds, err := auth.Register(ctx, "alice_01", "secret123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if creds.Token == "" {
		t.Fatalf("expected a session token")
	}

	resolved, err := auth.Resolve(ctx, creds.Token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.ID != user.ID || resolved.Username != "alice_01" {
		t.Fatalf("expected registered user back, got %+v", resolved)
	}

	_, loginCreds, err := auth.Login(ctx, "alice_01", "secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if loginCreds.Token == creds.Token {
		t.Fatalf("login must issue a fresh token")
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	auth := app.NewAuthService(store, store, time.Hour)

	if _, _, err := auth.Register(ctx, "ab", "secret123"); err != domain.ErrInvalidInput {
		t.Fatalf("expected invalid input for short username, got %v", err)
	}
	if _, _, err := auth.Register(ctx, "has space", "secret123"); err != domain.ErrInvalidInput {
		t.Fatalf("expected invalid input for bad characters, got %v", err)
	}
	if _, _, err := auth.Register(ctx, "alice_01", "short"); err != domain.ErrInvalidInput {
		t.Fatalf("expected invalid input for short password, got %v", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	auth := app.NewAuthService(store, store, time.Hour)

	if _, _, err := auth.Register(ctx, "alice_01", "secret123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, _, err := auth.Register(ctx, "alice_01", "another123"); err != domain.ErrUsernameTaken {
		t.Fatalf("expected username taken, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	auth := app.NewAuthService(store, store, time.Hour)

	if _, _, err := auth.Register(ctx, "alice_01", "secret123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, _, err := auth.Login(ctx, "alice_01", "wrongpass"); err != domain.ErrBadCredentials {
		t.Fatalf("expected bad credentials, got %v", err)
	}
	if _, _, err := auth.Login(ctx, "nobody", "secret123"); err != domain.ErrBadCredentials {
		t.Fatalf("expected bad credentials for unknown user, got %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	auth := app.NewAuthService(store, store, time.Hour)

	_, creds, err := auth.Register(ctx, "alice_01", "secret123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := auth.Logout(ctx, creds.Token); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := auth.Resolve(ctx, creds.Token); err != domain.ErrUnauthorized {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
}
