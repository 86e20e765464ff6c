package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
)

// DevicesForUser returns every device the user owns.
func (s *Service) DevicesForUser(ctx context.Context, userID int64) ([]domain.Device, error) {
	return s.store.GetDevicesForUser(ctx, userID)
}

// RegisterDevice records a device sighting from the REST surface.
func (s *Service) RegisterDevice(ctx context.Context, userID int64, deviceIdentifier, deviceType, version string) (*domain.Device, error) {
	return s.store.CreateOrUpdateDevice(ctx, userID, deviceIdentifier, deviceType, version)
}

// ActiveDevices returns the user's own devices with a live session, plus
// devices currently shared with the user through an unexpired party grant.
// The caller's own current device can be excluded by identifier.
func (s *Service) ActiveDevices(ctx context.Context, userID int64, excludingDeviceIdentifier string) ([]domain.Device, error) {
	devices := []domain.Device{}
	seen := map[string]bool{}

	for _, session := range s.hub.Sessions() {
		if session.UserID != userID || session.DeviceIdentifier == excludingDeviceIdentifier {
			continue
		}
		if seen[session.DeviceIdentifier] {
			continue
		}
		seen[session.DeviceIdentifier] = true

		device, err := s.store.GetDeviceByIdentifierAndUser(ctx, session.DeviceIdentifier, userID)
		if err != nil {
			log.Warningf("live session %s has no device record: %v", session.ID, err)
			continue
		}
		devices = append(devices, *device)
	}

	partyDevices, err := s.store.GetPartyDevicesForUser(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	return append(devices, partyDevices...), nil
}

// EnableParty turns on the sharing grant for a device the caller owns.
func (s *Service) EnableParty(ctx context.Context, userID, deviceID int64, until time.Time, participantIDs []int64) (*domain.Device, error) {
	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if device.UserID != userID {
		return nil, fmt.Errorf("%w: only the owner may enable party mode", domain.ErrPermissionDenied)
	}
	if err := s.store.EnableParty(ctx, deviceID, until, participantIDs); err != nil {
		return nil, err
	}
	return s.store.GetDevice(ctx, deviceID)
}

// DisableParty clears the sharing grant for a device the caller owns.
func (s *Service) DisableParty(ctx context.Context, userID, deviceID int64) error {
	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	if device.UserID != userID {
		return fmt.Errorf("%w: only the owner may disable party mode", domain.ErrPermissionDenied)
	}
	return s.store.DisableParty(ctx, deviceID)
}
