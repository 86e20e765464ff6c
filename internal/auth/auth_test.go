package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
	"github.com/Rooney-Eli/gorilla-groove/internal/repository"
)

func newTestManager(t *testing.T) (*Manager, *repository.SQLiteStore) {
	t.Helper()
	store, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewManager(store, time.Hour), store
}

func seedUser(t *testing.T, store *repository.SQLiteStore, email, password string) *domain.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	user := &domain.User{Name: "Test", Email: email, PasswordHash: hash}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestLoginAndResolve(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()
	user := seedUser(t, store, "alice@example.com", "hunter2")

	token, err := manager.Login(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token.UserID != user.ID {
		t.Fatalf("token bound to wrong user: %d", token.UserID)
	}
	if !token.ExpiresAt.After(token.CreatedAt) {
		t.Fatal("token must expire after it was created")
	}

	resolved, err := manager.Resolve(ctx, token.Token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.ID != user.ID {
		t.Fatalf("resolved wrong user: %d", resolved.ID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	manager, store := newTestManager(t)
	seedUser(t, store, "alice@example.com", "hunter2")

	if _, err := manager.Login(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	manager, _ := newTestManager(t)
	if _, err := manager.Login(context.Background(), "nobody@example.com", "pw"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestResolveRejectsExpiredToken(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()
	seedUser(t, store, "alice@example.com", "hunter2")

	token, err := manager.Login(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Move the clock past the token's expiry.
	manager.now = func() time.Time { return token.ExpiresAt.Add(time.Second) }

	if _, err := manager.Resolve(ctx, token.Token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	manager, _ := newTestManager(t)
	if _, err := manager.Resolve(context.Background(), "no-such-token"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := manager.Resolve(context.Background(), ""); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()
	seedUser(t, store, "alice@example.com", "hunter2")

	token, err := manager.Login(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := manager.Logout(ctx, token.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := manager.Resolve(ctx, token.Token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after logout, got %v", err)
	}
}
