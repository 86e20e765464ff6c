package service

import (
	"context"

	"github.com/Rooney-Eli/gorilla-groove/internal/hub"
	"github.com/Rooney-Eli/gorilla-groove/internal/protocol"
)

// HandleNowListening merges a sparse playback update into the session's
// stored snapshot and rebroadcasts the result to every other session.
func (s *Service) HandleNowListening(ctx context.Context, session *hub.Session, req *protocol.NowListeningRequest) error {
	device, err := s.store.GetDeviceByIdentifierAndUser(ctx, session.DeviceIdentifier, session.UserID)
	if err != nil {
		return err
	}

	next := &protocol.NowListeningBroadcast{
		MessageType: protocol.TypeNowPlaying,
		DeviceID:    device.ID,
		DeviceName:  device.DeviceName,
		UserID:      session.UserID,
		TimePlayed:  req.TimePlayed,
		IsShuffling: req.IsShuffling,
		IsRepeating: req.IsRepeating,
		IsPlaying:   req.IsPlaying,
		Volume:      req.Volume,
		Muted:       req.Muted,
	}

	// The track reference and the update timestamp are transient: they
	// always reflect this request alone and are never inherited from the
	// previous snapshot.
	if req.TrackID != nil {
		trackData, err := s.nowPlayingTrack(ctx, *req.TrackID)
		if err != nil {
			return err
		}
		next.TrackData = trackData
	}
	if req.TimePlayed != nil {
		millis := s.now().UnixMilli()
		next.LastTimeUpdate = &millis
	}

	s.mu.Lock()
	merged := mergeSnapshots(next, s.snapshots[session.ID])
	s.snapshots[session.ID] = merged
	s.mu.Unlock()

	data, err := protocol.Encode(merged)
	if err != nil {
		return err
	}
	s.hub.Broadcast(data, session.ID)
	return nil
}

// mergeSnapshots fills the playback fields the update omitted from the
// previous snapshot, per field. Clients only send what changed, so a known
// field must never regress to null just because the update skipped it.
// TrackData and LastTimeUpdate are deliberately left out of the merge.
func mergeSnapshots(next, prev *protocol.NowListeningBroadcast) *protocol.NowListeningBroadcast {
	if prev == nil {
		return next
	}
	if next.TimePlayed == nil {
		next.TimePlayed = prev.TimePlayed
	}
	if next.IsShuffling == nil {
		next.IsShuffling = prev.IsShuffling
	}
	if next.IsRepeating == nil {
		next.IsRepeating = prev.IsRepeating
	}
	if next.IsPlaying == nil {
		next.IsPlaying = prev.IsPlaying
	}
	if next.Volume == nil {
		next.Volume = prev.Volume
	}
	if next.Muted == nil {
		next.Muted = prev.Muted
	}
	return next
}
