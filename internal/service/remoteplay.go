package service

import (
	"context"
	"fmt"

	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
	"github.com/Rooney-Eli/gorilla-groove/internal/hub"
	"github.com/Rooney-Eli/gorilla-groove/internal/protocol"
)

// HandleRemotePlay routes a playback command from the requesting session to
// the session of the target device. Authorization is checked before the
// target's presence is revealed, so an unauthorized caller learns nothing
// about whether the device is connected.
func (s *Service) HandleRemotePlay(ctx context.Context, session *hub.Session, req *protocol.RemotePlayRequest) error {
	device, err := s.store.GetDevice(ctx, req.TargetDeviceID)
	if err != nil {
		return err
	}

	allowed, err := s.policy.CanControl(ctx, session.UserID, device, s.now())
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: not authorized to access device", domain.ErrPermissionDenied)
	}

	trackByID, err := s.store.GetTracksByIDs(ctx, distinct(req.TrackIDs), session.UserID)
	if err != nil {
		return err
	}

	// Don't allow playing your own private songs to someone who isn't you.
	// They wouldn't load for them anyway.
	for _, track := range trackByID {
		if track.Private && device.UserID != session.UserID {
			return fmt.Errorf("%w: private tracks may not be played remotely to another user", domain.ErrInvalidOperation)
		}
	}

	// A track id may legitimately repeat in the request (play a song twice
	// in the queue), so re-expand from the id map in request order.
	var tracks []*domain.NowPlayingTrack
	for _, trackID := range req.TrackIDs {
		track, ok := trackByID[trackID]
		if !ok {
			return fmt.Errorf("%w: track %d is not visible to the requester", domain.ErrInvalidOperation, trackID)
		}
		projection, err := s.projectTrack(ctx, track)
		if err != nil {
			return err
		}
		tracks = append(tracks, projection)
	}

	target, err := s.hub.FindByDeviceIdentifier(device.DeviceIdentifier)
	if err != nil {
		return err
	}

	delivery := &protocol.RemotePlayDelivery{
		MessageType:      protocol.TypeRemotePlay,
		Tracks:           tracks,
		NewFloatValue:    req.NewFloatValue,
		RemotePlayAction: req.RemotePlayAction,
	}
	data, err := protocol.Encode(delivery)
	if err != nil {
		return err
	}
	s.hub.SendIfOpen(target, data)
	return nil
}

// distinct preserves first-seen order while dropping duplicate ids.
func distinct(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}
