package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestUser(t *testing.T, store *SQLiteStore, name, email string) *domain.User {
	t.Helper()
	user := &domain.User{Name: name, Email: email, PasswordHash: "hash"}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestUserLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "Alice", "alice@example.com")
	if user.ID == 0 {
		t.Fatal("expected user id to be assigned")
	}

	got, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Email != "alice@example.com" || got.Name != "Alice" {
		t.Fatalf("unexpected user: %+v", got)
	}

	byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, byEmail.ID)
	}

	if _, err := store.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeviceUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "Alice", "alice@example.com")

	device, err := store.CreateOrUpdateDevice(ctx, user.ID, "phone-1", "ANDROID", "1.0")
	if err != nil {
		t.Fatalf("CreateOrUpdateDevice failed: %v", err)
	}
	if device.DeviceName != "phone-1" {
		t.Fatalf("first sighting should use identifier as name, got %q", device.DeviceName)
	}
	if device.DeviceType != "ANDROID" {
		t.Fatalf("unexpected device type: %q", device.DeviceType)
	}

	// A later sighting with empty metadata must not clobber what we know.
	again, err := store.CreateOrUpdateDevice(ctx, user.ID, "phone-1", "", "")
	if err != nil {
		t.Fatalf("CreateOrUpdateDevice failed: %v", err)
	}
	if again.ID != device.ID {
		t.Fatalf("upsert created a second row: %d vs %d", again.ID, device.ID)
	}
	if again.DeviceType != "ANDROID" || again.ApplicationVersion != "1.0" {
		t.Fatalf("empty sighting clobbered metadata: %+v", again)
	}

	// A sighting with fresh metadata updates it.
	updated, err := store.CreateOrUpdateDevice(ctx, user.ID, "phone-1", "ANDROID", "1.1")
	if err != nil {
		t.Fatalf("CreateOrUpdateDevice failed: %v", err)
	}
	if updated.ApplicationVersion != "1.1" {
		t.Fatalf("expected version 1.1, got %q", updated.ApplicationVersion)
	}
}

func TestDeviceIdentifierScopedPerUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, store, "Alice", "alice@example.com")
	bob := createTestUser(t, store, "Bob", "bob@example.com")

	aliceDevice, err := store.CreateOrUpdateDevice(ctx, alice.ID, "shared-id", "WEB", "")
	if err != nil {
		t.Fatalf("CreateOrUpdateDevice failed: %v", err)
	}
	bobDevice, err := store.CreateOrUpdateDevice(ctx, bob.ID, "shared-id", "WEB", "")
	if err != nil {
		t.Fatalf("CreateOrUpdateDevice failed: %v", err)
	}
	if aliceDevice.ID == bobDevice.ID {
		t.Fatal("same identifier under different users must be distinct devices")
	}

	got, err := store.GetDeviceByIdentifierAndUser(ctx, "shared-id", bob.ID)
	if err != nil {
		t.Fatalf("GetDeviceByIdentifierAndUser failed: %v", err)
	}
	if got.ID != bobDevice.ID {
		t.Fatalf("expected device %d, got %d", bobDevice.ID, got.ID)
	}
}

func TestGetDeviceNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetDevice(context.Background(), 999); !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestPartyGrantLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, store, "Alice", "alice@example.com")
	bob := createTestUser(t, store, "Bob", "bob@example.com")

	device, err := store.CreateOrUpdateDevice(ctx, alice.ID, "desktop", "WEB", "")
	if err != nil {
		t.Fatalf("CreateOrUpdateDevice failed: %v", err)
	}

	now := time.Now()
	until := now.Add(time.Hour)
	if err := store.EnableParty(ctx, device.ID, until, []int64{bob.ID}); err != nil {
		t.Fatalf("EnableParty failed: %v", err)
	}

	got, err := store.GetDevice(ctx, device.ID)
	if err != nil {
		t.Fatalf("GetDevice failed: %v", err)
	}
	if got.PartyEnabledUntil == nil || got.PartyEnabledUntil.UnixMilli() != until.UnixMilli() {
		t.Fatalf("unexpected grant expiry: %v", got.PartyEnabledUntil)
	}
	if len(got.PartyUserIDs) != 1 || got.PartyUserIDs[0] != bob.ID {
		t.Fatalf("unexpected party users: %v", got.PartyUserIDs)
	}

	shared, err := store.GetPartyDevicesForUser(ctx, bob.ID, now)
	if err != nil {
		t.Fatalf("GetPartyDevicesForUser failed: %v", err)
	}
	if len(shared) != 1 || shared[0].ID != device.ID {
		t.Fatalf("expected the shared device, got %+v", shared)
	}

	// Past the expiry instant the device vanishes from the shared listing.
	expired, err := store.GetPartyDevicesForUser(ctx, bob.ID, until)
	if err != nil {
		t.Fatalf("GetPartyDevicesForUser failed: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("expected no devices at expiry instant, got %+v", expired)
	}

	if err := store.DisableParty(ctx, device.ID); err != nil {
		t.Fatalf("DisableParty failed: %v", err)
	}
	got, err = store.GetDevice(ctx, device.ID)
	if err != nil {
		t.Fatalf("GetDevice failed: %v", err)
	}
	if got.PartyEnabledUntil != nil || len(got.PartyUserIDs) != 0 {
		t.Fatalf("grant not cleared: %+v", got)
	}
}

func TestEnablePartyUnknownDevice(t *testing.T) {
	store := newTestStore(t)
	err := store.EnableParty(context.Background(), 999, time.Now().Add(time.Hour), nil)
	if !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestTrackVisibility(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, store, "Alice", "alice@example.com")
	bob := createTestUser(t, store, "Bob", "bob@example.com")

	public := &domain.Track{UserID: alice.ID, Name: "Public Song", Artist: "A", Length: 200}
	private := &domain.Track{UserID: alice.ID, Name: "Secret Song", Artist: "A", Length: 180, Private: true}
	if err := store.CreateTrack(ctx, public); err != nil {
		t.Fatalf("CreateTrack failed: %v", err)
	}
	if err := store.CreateTrack(ctx, private); err != nil {
		t.Fatalf("CreateTrack failed: %v", err)
	}

	// The owner sees both.
	mine, err := store.GetTracksByIDs(ctx, []int64{public.ID, private.ID}, alice.ID)
	if err != nil {
		t.Fatalf("GetTracksByIDs failed: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("owner should see both tracks, got %d", len(mine))
	}

	// Another user sees only the public one.
	theirs, err := store.GetTracksByIDs(ctx, []int64{public.ID, private.ID}, bob.ID)
	if err != nil {
		t.Fatalf("GetTracksByIDs failed: %v", err)
	}
	if len(theirs) != 1 {
		t.Fatalf("viewer should see one track, got %d", len(theirs))
	}
	if _, ok := theirs[public.ID]; !ok {
		t.Fatal("viewer should see the public track")
	}

	if _, err := store.GetTrack(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestArtLinkExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, store, "Alice", "alice@example.com")

	track := &domain.Track{UserID: alice.ID, Name: "Song", Artist: "A", Length: 100}
	if err := store.CreateTrack(ctx, track); err != nil {
		t.Fatalf("CreateTrack failed: %v", err)
	}

	now := time.Now()
	expiry := now.Add(time.Minute)
	if err := store.SetArtLink(ctx, track.ID, "https://example.com/art.png", &expiry); err != nil {
		t.Fatalf("SetArtLink failed: %v", err)
	}

	link, err := store.GetUnexpiredArtLink(ctx, track.ID, now)
	if err != nil {
		t.Fatalf("GetUnexpiredArtLink failed: %v", err)
	}
	if link == nil || *link != "https://example.com/art.png" {
		t.Fatalf("expected live link, got %v", link)
	}

	stale, err := store.GetUnexpiredArtLink(ctx, track.ID, expiry.Add(time.Second))
	if err != nil {
		t.Fatalf("GetUnexpiredArtLink failed: %v", err)
	}
	if stale != nil {
		t.Fatalf("expected nil for expired link, got %q", *stale)
	}

	// A link without an expiry never goes stale.
	if err := store.SetArtLink(ctx, track.ID, "https://example.com/art2.png", nil); err != nil {
		t.Fatalf("SetArtLink failed: %v", err)
	}
	forever, err := store.GetUnexpiredArtLink(ctx, track.ID, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("GetUnexpiredArtLink failed: %v", err)
	}
	if forever == nil || *forever != "https://example.com/art2.png" {
		t.Fatalf("expected permanent link, got %v", forever)
	}
}

func TestTokenLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, store, "Alice", "alice@example.com")

	now := time.Now()
	token := &domain.AuthToken{
		Token:     "token-123",
		UserID:    alice.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := store.CreateToken(ctx, token); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	got, err := store.GetToken(ctx, "token-123")
	if err != nil {
		t.Fatalf("GetToken failed: %v", err)
	}
	if got.UserID != alice.ID {
		t.Fatalf("unexpected token user: %d", got.UserID)
	}
	if got.ExpiresAt.UnixMilli() != token.ExpiresAt.UnixMilli() {
		t.Fatalf("expiry not preserved: %v vs %v", got.ExpiresAt, token.ExpiresAt)
	}

	if err := store.DeleteToken(ctx, "token-123"); err != nil {
		t.Fatalf("DeleteToken failed: %v", err)
	}
	if _, err := store.GetToken(ctx, "token-123"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
