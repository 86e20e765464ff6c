package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS devices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			device_identifier TEXT NOT NULL,
			device_name TEXT NOT NULL,
			device_type TEXT NOT NULL DEFAULT '',
			application_version TEXT NOT NULL DEFAULT '',
			party_enabled_until INTEGER,
			FOREIGN KEY (user_id) REFERENCES users(id),
			UNIQUE (user_id, device_identifier)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_devices_identifier ON devices(device_identifier)`,
		`CREATE TABLE IF NOT EXISTS device_party_users (
			device_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			PRIMARY KEY (device_id, user_id),
			FOREIGN KEY (device_id) REFERENCES devices(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS tracks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			artist TEXT NOT NULL DEFAULT '',
			album TEXT NOT NULL DEFAULT '',
			release_year INTEGER,
			length INTEGER NOT NULL DEFAULT 0,
			private INTEGER NOT NULL DEFAULT 0,
			in_review INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tracks_user ON tracks(user_id)`,
		`CREATE TABLE IF NOT EXISTS track_art_links (
			track_id INTEGER NOT NULL,
			link TEXT NOT NULL,
			expires_at INTEGER,
			PRIMARY KEY (track_id),
			FOREIGN KEY (track_id) REFERENCES tracks(id)
		)`,
		`CREATE TABLE IF NOT EXISTS auth_tokens (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser inserts a user. The caller supplies the password hash.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?)`,
		user.Name, user.Email, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID, err = result.LastInsertId()
	return err
}

// GetUser returns a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash FROM users WHERE id = ?`, userID))
}

// GetUserByEmail returns a user by its unique email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash FROM users WHERE email = ?`, email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CreateOrUpdateDevice records a device sighting. The first sighting creates
// the row with the identifier doubling as the display name; later sightings
// refresh type and version.
func (s *SQLiteStore) CreateOrUpdateDevice(ctx context.Context, userID int64, deviceIdentifier, deviceType, version string) (*domain.Device, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO devices (user_id, device_identifier, device_name, device_type, application_version)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, device_identifier)
		 DO UPDATE SET
			device_type = CASE WHEN excluded.device_type = '' THEN devices.device_type ELSE excluded.device_type END,
			application_version = CASE WHEN excluded.application_version = '' THEN devices.application_version ELSE excluded.application_version END`,
		userID, deviceIdentifier, deviceIdentifier, deviceType, version)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert device: %w", err)
	}
	return s.GetDeviceByIdentifierAndUser(ctx, deviceIdentifier, userID)
}

// GetDevice returns a device by id, including its party participants.
func (s *SQLiteStore) GetDevice(ctx context.Context, deviceID int64) (*domain.Device, error) {
	device, err := s.scanDevice(s.db.QueryRowContext(ctx,
		`SELECT id, user_id, device_identifier, device_name, device_type, application_version, party_enabled_until
		 FROM devices WHERE id = ?`, deviceID))
	if err != nil {
		return nil, err
	}
	if err := s.loadPartyUsers(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

// GetDeviceByIdentifierAndUser returns the device a user has registered
// under the given identifier.
func (s *SQLiteStore) GetDeviceByIdentifierAndUser(ctx context.Context, deviceIdentifier string, userID int64) (*domain.Device, error) {
	device, err := s.scanDevice(s.db.QueryRowContext(ctx,
		`SELECT id, user_id, device_identifier, device_name, device_type, application_version, party_enabled_until
		 FROM devices WHERE device_identifier = ? AND user_id = ?`, deviceIdentifier, userID))
	if err != nil {
		return nil, err
	}
	if err := s.loadPartyUsers(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

// GetDevicesForUser returns every device a user owns.
func (s *SQLiteStore) GetDevicesForUser(ctx context.Context, userID int64) ([]domain.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, device_identifier, device_name, device_type, application_version, party_enabled_until
		 FROM devices WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()
	return s.collectDevices(ctx, rows)
}

// EnableParty turns on the sharing grant for a device and replaces its
// participant set.
func (s *SQLiteStore) EnableParty(ctx context.Context, deviceID int64, until time.Time, userIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE devices SET party_enabled_until = ? WHERE id = ?`, until.UnixMilli(), deviceID)
	if err != nil {
		return fmt.Errorf("failed to enable party mode: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrDeviceNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM device_party_users WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("failed to clear party users: %w", err)
	}
	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO device_party_users (device_id, user_id) VALUES (?, ?)`, deviceID, userID); err != nil {
			return fmt.Errorf("failed to add party user %d: %w", userID, err)
		}
	}

	return tx.Commit()
}

// DisableParty clears the sharing grant and its participant set.
func (s *SQLiteStore) DisableParty(ctx context.Context, deviceID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE devices SET party_enabled_until = NULL WHERE id = ?`, deviceID); err != nil {
		return fmt.Errorf("failed to disable party mode: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM device_party_users WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("failed to clear party users: %w", err)
	}

	return tx.Commit()
}

// GetPartyDevicesForUser returns the devices shared with a user through a
// grant that has not yet expired.
func (s *SQLiteStore) GetPartyDevicesForUser(ctx context.Context, userID int64, now time.Time) ([]domain.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.user_id, d.device_identifier, d.device_name, d.device_type, d.application_version, d.party_enabled_until
		 FROM devices d
		 JOIN device_party_users p ON p.device_id = d.id
		 WHERE p.user_id = ? AND d.party_enabled_until IS NOT NULL AND d.party_enabled_until > ?
		 ORDER BY d.id`, userID, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to list party devices: %w", err)
	}
	defer rows.Close()
	return s.collectDevices(ctx, rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLiteStore) scanDevice(row rowScanner) (*domain.Device, error) {
	var device domain.Device
	var partyUntil sql.NullInt64
	err := row.Scan(&device.ID, &device.UserID, &device.DeviceIdentifier, &device.DeviceName,
		&device.DeviceType, &device.ApplicationVersion, &partyUntil)
	if err == sql.ErrNoRows {
		return nil, domain.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	if partyUntil.Valid {
		t := time.UnixMilli(partyUntil.Int64)
		device.PartyEnabledUntil = &t
	}
	return &device, nil
}

func (s *SQLiteStore) collectDevices(ctx context.Context, rows *sql.Rows) ([]domain.Device, error) {
	devices := []domain.Device{}
	for rows.Next() {
		device, err := s.scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range devices {
		if err := s.loadPartyUsers(ctx, &devices[i]); err != nil {
			return nil, err
		}
	}
	return devices, nil
}

func (s *SQLiteStore) loadPartyUsers(ctx context.Context, device *domain.Device) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM device_party_users WHERE device_id = ? ORDER BY user_id`, device.ID)
	if err != nil {
		return fmt.Errorf("failed to load party users: %w", err)
	}
	defer rows.Close()

	device.PartyUserIDs = nil
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return err
		}
		device.PartyUserIDs = append(device.PartyUserIDs, userID)
	}
	return rows.Err()
}

// CreateTrack inserts a track.
func (s *SQLiteStore) CreateTrack(ctx context.Context, track *domain.Track) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tracks (user_id, name, artist, album, release_year, length, private, in_review)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		track.UserID, track.Name, track.Artist, track.Album, track.ReleaseYear,
		track.Length, track.Private, track.InReview)
	if err != nil {
		return fmt.Errorf("failed to create track: %w", err)
	}
	track.ID, err = result.LastInsertId()
	return err
}

// GetTrack returns a track by id regardless of visibility. Callers that act
// on behalf of another user must apply the privacy projection.
func (s *SQLiteStore) GetTrack(ctx context.Context, trackID int64) (*domain.Track, error) {
	var track domain.Track
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, artist, album, release_year, length, private, in_review
		 FROM tracks WHERE id = ?`, trackID).
		Scan(&track.ID, &track.UserID, &track.Name, &track.Artist, &track.Album,
			&track.ReleaseYear, &track.Length, &track.Private, &track.InReview)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get track: %w", err)
	}
	return &track, nil
}

// GetTracksByIDs returns the subset of the given tracks the viewer may see:
// their own tracks plus other users' non-private tracks.
func (s *SQLiteStore) GetTracksByIDs(ctx context.Context, trackIDs []int64, viewerID int64) (map[int64]*domain.Track, error) {
	tracks := make(map[int64]*domain.Track, len(trackIDs))
	if len(trackIDs) == 0 {
		return tracks, nil
	}

	placeholders := make([]string, len(trackIDs))
	args := make([]interface{}, 0, len(trackIDs)+1)
	for i, id := range trackIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, viewerID)

	query := fmt.Sprintf(
		`SELECT id, user_id, name, artist, album, release_year, length, private, in_review
		 FROM tracks WHERE id IN (%s) AND (user_id = ? OR private = 0)`,
		strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var track domain.Track
		if err := rows.Scan(&track.ID, &track.UserID, &track.Name, &track.Artist, &track.Album,
			&track.ReleaseYear, &track.Length, &track.Private, &track.InReview); err != nil {
			return nil, err
		}
		tracks[track.ID] = &track
	}
	return tracks, rows.Err()
}

// SetArtLink stores the album-art link for a track. A nil expiry means the
// link never expires.
func (s *SQLiteStore) SetArtLink(ctx context.Context, trackID int64, link string, expiresAt *time.Time) error {
	var expiry interface{}
	if expiresAt != nil {
		expiry = expiresAt.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO track_art_links (track_id, link, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT (track_id) DO UPDATE SET link = excluded.link, expires_at = excluded.expires_at`,
		trackID, link, expiry)
	if err != nil {
		return fmt.Errorf("failed to set art link: %w", err)
	}
	return nil
}

// GetUnexpiredArtLink returns the track's art link if one exists and has not
// expired, or nil.
func (s *SQLiteStore) GetUnexpiredArtLink(ctx context.Context, trackID int64, now time.Time) (*string, error) {
	var link string
	err := s.db.QueryRowContext(ctx,
		`SELECT link FROM track_art_links
		 WHERE track_id = ? AND (expires_at IS NULL OR expires_at > ?)`,
		trackID, now.UnixMilli()).Scan(&link)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get art link: %w", err)
	}
	return &link, nil
}

// CreateToken persists a login token.
func (s *SQLiteStore) CreateToken(ctx context.Context, token *domain.AuthToken) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token.Token, token.UserID, token.CreatedAt.UnixMilli(), token.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetToken returns a token row, expired or not.
func (s *SQLiteStore) GetToken(ctx context.Context, tokenValue string) (*domain.AuthToken, error) {
	var token domain.AuthToken
	var createdAt, expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at FROM auth_tokens WHERE token = ?`, tokenValue).
		Scan(&token.Token, &token.UserID, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	token.CreatedAt = time.UnixMilli(createdAt)
	token.ExpiresAt = time.UnixMilli(expiresAt)
	return &token, nil
}

// DeleteToken removes a token (logout).
func (s *SQLiteStore) DeleteToken(ctx context.Context, tokenValue string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE token = ?`, tokenValue)
	return err
}
