// Package auth handles login and token resolution for HTTP requests and the
// WebSocket handshake.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
	"github.com/Rooney-Eli/gorilla-groove/internal/repository"
)

// Manager verifies credentials and resolves bearer tokens to users.
type Manager struct {
	store    repository.Store
	tokenTTL time.Duration
	now      func() time.Time
}

// NewManager creates an authentication manager.
func NewManager(store repository.Store, tokenTTL time.Duration) *Manager {
	return &Manager{
		store:    store,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Login verifies the email/password pair and mints a new token.
func (m *Manager) Login(ctx context.Context, email, password string) (*domain.AuthToken, error) {
	user, err := m.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	issuedAt := m.now()
	token := &domain.AuthToken{
		Token:     uuid.New().String(),
		UserID:    user.ID,
		CreatedAt: issuedAt,
		ExpiresAt: issuedAt.Add(m.tokenTTL),
	}
	if err := m.store.CreateToken(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// Logout revokes a token.
func (m *Manager) Logout(ctx context.Context, token string) error {
	return m.store.DeleteToken(ctx, token)
}

// Resolve maps a bearer token to its user, rejecting expired tokens.
func (m *Manager) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	authToken, err := m.store.GetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !authToken.ExpiresAt.After(m.now()) {
		return nil, domain.ErrTokenExpired
	}

	user, err := m.store.GetUser(ctx, authToken.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load token user: %w", err)
	}
	return user, nil
}

// HashPassword produces a bcrypt hash for seeding and account creation.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
