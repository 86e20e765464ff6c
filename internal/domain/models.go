// Package domain defines the core domain models for the playback sync broker.
package domain

import "time"

// User represents an account. The broker only reads users; account
// management lives outside this service.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// Device represents a client device known to the server. A device is owned
// by exactly one user and may be temporarily shared with other users through
// a party grant.
type Device struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"userId"`
	DeviceIdentifier   string     `json:"deviceId"`
	DeviceName         string     `json:"deviceName"`
	DeviceType         string     `json:"deviceType"`
	ApplicationVersion string     `json:"applicationVersion,omitempty"`
	PartyEnabledUntil  *time.Time `json:"partyEnabledUntil,omitempty"`
	PartyUserIDs       []int64    `json:"partyUserIds,omitempty"`
}

// Track represents a song in a user's library.
type Track struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"userId"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	ReleaseYear *int   `json:"releaseYear,omitempty"`
	Length      int    `json:"length"` // seconds
	Private     bool   `json:"private"`
	InReview    bool   `json:"inReview"`
}

// NowPlayingTrack is the trimmed, privacy-filtered projection of a track
// that goes out over the socket. A private track exposes nothing but the
// private marker.
type NowPlayingTrack struct {
	ID           *int64  `json:"id,omitempty"`
	Name         *string `json:"name,omitempty"`
	Artist       *string `json:"artist,omitempty"`
	Album        *string `json:"album,omitempty"`
	ReleaseYear  *int    `json:"releaseYear,omitempty"`
	Length       *int    `json:"length,omitempty"`
	IsPrivate    bool    `json:"isPrivate"`
	InReview     *bool   `json:"inReview,omitempty"`
	AlbumArtLink *string `json:"albumArtLink,omitempty"`
}

// ToNowPlaying builds the wire projection for a track. The projection is
// rebuilt on every reference so art links are never served past expiry.
func (t *Track) ToNowPlaying(artLink *string) *NowPlayingTrack {
	if t.Private {
		return &NowPlayingTrack{IsPrivate: true}
	}
	inReview := t.InReview
	return &NowPlayingTrack{
		ID:           &t.ID,
		Name:         &t.Name,
		Artist:       &t.Artist,
		Album:        &t.Album,
		ReleaseYear:  t.ReleaseYear,
		Length:       &t.Length,
		IsPrivate:    false,
		InReview:     &inReview,
		AlbumArtLink: artLink,
	}
}

// AuthToken is a login token handed out by the authentication endpoint and
// presented on every request, including the WebSocket handshake.
type AuthToken struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RemotePlayAction enumerates the commands one device can send another.
type RemotePlayAction string

const (
	RemotePlayPlaySetSongs   RemotePlayAction = "PLAY_SET_SONGS"
	RemotePlayAddSongsNext   RemotePlayAction = "ADD_SONGS_NEXT"
	RemotePlayAddSongsLast   RemotePlayAction = "ADD_SONGS_LAST"
	RemotePlayPlay           RemotePlayAction = "PLAY"
	RemotePlayPause          RemotePlayAction = "PAUSE"
	RemotePlaySeek           RemotePlayAction = "SEEK"
	RemotePlayPreviousTrack  RemotePlayAction = "PREVIOUS_TRACK"
	RemotePlayNextTrack      RemotePlayAction = "NEXT_TRACK"
	RemotePlayShuffleEnable  RemotePlayAction = "SHUFFLE_ENABLE"
	RemotePlayShuffleDisable RemotePlayAction = "SHUFFLE_DISABLE"
	RemotePlayMute           RemotePlayAction = "MUTE"
	RemotePlayUnmute         RemotePlayAction = "UNMUTE"
	RemotePlaySetVolume      RemotePlayAction = "SET_VOLUME"
)
