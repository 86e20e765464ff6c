// Package repository defines the storage interface and its SQLite
// implementation.
package repository

import (
	"context"
	"time"

	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// Device operations
	CreateOrUpdateDevice(ctx context.Context, userID int64, deviceIdentifier, deviceType, version string) (*domain.Device, error)
	GetDevice(ctx context.Context, deviceID int64) (*domain.Device, error)
	GetDeviceByIdentifierAndUser(ctx context.Context, deviceIdentifier string, userID int64) (*domain.Device, error)
	GetDevicesForUser(ctx context.Context, userID int64) ([]domain.Device, error)
	EnableParty(ctx context.Context, deviceID int64, until time.Time, userIDs []int64) error
	DisableParty(ctx context.Context, deviceID int64) error
	GetPartyDevicesForUser(ctx context.Context, userID int64, now time.Time) ([]domain.Device, error)

	// Track operations
	CreateTrack(ctx context.Context, track *domain.Track) error
	GetTrack(ctx context.Context, trackID int64) (*domain.Track, error)
	GetTracksByIDs(ctx context.Context, trackIDs []int64, viewerID int64) (map[int64]*domain.Track, error)
	SetArtLink(ctx context.Context, trackID int64, link string, expiresAt *time.Time) error
	GetUnexpiredArtLink(ctx context.Context, trackID int64, now time.Time) (*string, error)

	// Auth token operations
	CreateToken(ctx context.Context, token *domain.AuthToken) error
	GetToken(ctx context.Context, token string) (*domain.AuthToken, error)
	DeleteToken(ctx context.Context, token string) error

	Close() error
}
