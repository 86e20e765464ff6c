// Package service implements the broker's behavior: snapshot merging and
// rebroadcast, remote-play dispatch, and device queries.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/op/go-logging"

	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
	"github.com/Rooney-Eli/gorilla-groove/internal/hub"
	"github.com/Rooney-Eli/gorilla-groove/internal/policy"
	"github.com/Rooney-Eli/gorilla-groove/internal/protocol"
	"github.com/Rooney-Eli/gorilla-groove/internal/repository"
)

var log = logging.MustGetLogger("service")

// Service coordinates the hub, the store and the authorization policy.
type Service struct {
	store  repository.Store
	hub    *hub.Hub
	policy *policy.Engine
	now    func() time.Time

	// snapshots holds the last broadcast playback state per session id.
	mu        sync.Mutex
	snapshots map[string]*protocol.NowListeningBroadcast
}

// New creates the broker service.
func New(store repository.Store, h *hub.Hub, engine *policy.Engine) *Service {
	return &Service{
		store:     store,
		hub:       h,
		policy:    engine,
		now:       time.Now,
		snapshots: make(map[string]*protocol.NowListeningBroadcast),
	}
}

// Connect registers a freshly upgraded session and replays every snapshot
// currently tracked, so the new session starts in sync with existing
// listeners. The session's device record is created on first sight.
func (s *Service) Connect(ctx context.Context, session *hub.Session) error {
	if _, err := s.store.CreateOrUpdateDevice(ctx, session.UserID, session.DeviceIdentifier, "", ""); err != nil {
		return err
	}

	s.hub.Register(session)

	for _, snapshot := range s.snapshotList() {
		data, err := protocol.Encode(snapshot)
		if err != nil {
			log.Errorf("could not encode snapshot for replay: %v", err)
			continue
		}
		s.hub.SendIfOpen(session, data)
	}
	return nil
}

// Disconnect evicts a session. If its last snapshot still referenced a
// track, one tombstone broadcast with the track cleared goes out so other
// listeners know playback stopped.
func (s *Service) Disconnect(session *hub.Session) {
	s.mu.Lock()
	last := s.snapshots[session.ID]
	delete(s.snapshots, session.ID)
	s.mu.Unlock()

	s.hub.Unregister(session)

	if last == nil || last.TrackData == nil {
		return
	}

	tombstone := *last
	tombstone.TrackData = nil
	data, err := protocol.Encode(&tombstone)
	if err != nil {
		log.Errorf("could not encode tombstone for session %s: %v", session.ID, err)
		return
	}
	s.hub.Broadcast(data, "")
}

// SnapshotCount returns the number of tracked snapshots.
func (s *Service) SnapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

func (s *Service) snapshotList() []*protocol.NowListeningBroadcast {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshots := make([]*protocol.NowListeningBroadcast, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}

// nowPlayingTrack looks the track up fresh and builds its privacy-filtered
// projection. Unknown ids resolve to no track data rather than an error.
func (s *Service) nowPlayingTrack(ctx context.Context, trackID int64) (*domain.NowPlayingTrack, error) {
	track, err := s.store.GetTrack(ctx, trackID)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return s.projectTrack(ctx, track)
}

// projectTrack builds the wire projection, attaching an unexpired art link
// for non-private tracks. Projections are never cached; art links expire.
func (s *Service) projectTrack(ctx context.Context, track *domain.Track) (*domain.NowPlayingTrack, error) {
	if track.Private {
		return track.ToNowPlaying(nil), nil
	}
	artLink, err := s.store.GetUnexpiredArtLink(ctx, track.ID, s.now())
	if err != nil {
		return nil, err
	}
	return track.ToNowPlaying(artLink), nil
}
