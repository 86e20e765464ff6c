// Package protocol defines the WebSocket message envelopes exchanged between
// clients and the broker, discriminated by the messageType tag.
package protocol

import (
	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
)

// Discriminator values carried in the messageType field.
const (
	TypeNowPlaying = "NOW_PLAYING"
	TypeRemotePlay = "REMOTE_PLAY"
	TypeError      = "ERROR"
)

// Message is any decoded envelope.
type Message interface {
	Kind() string
}

// NowListeningRequest is a sparse playback-state delta from a client.
// Clients only send the fields that changed, so every field is optional.
type NowListeningRequest struct {
	MessageType string   `json:"messageType"`
	TimePlayed  *float64 `json:"timePlayed,omitempty"`
	TrackID     *int64   `json:"trackId,omitempty"`
	IsShuffling *bool    `json:"isShuffling,omitempty"`
	IsRepeating *bool    `json:"isRepeating,omitempty"`
	IsPlaying   *bool    `json:"isPlaying,omitempty"`
	Volume      *float64 `json:"volume,omitempty"`
	Muted       *bool    `json:"muted,omitempty"`
}

func (m *NowListeningRequest) Kind() string { return TypeNowPlaying }

// NowListeningBroadcast is the merged playback state pushed to every other
// session. Nullable fields serialize as explicit nulls so a cleared
// trackData is visible to receivers.
type NowListeningBroadcast struct {
	MessageType    string                  `json:"messageType"`
	DeviceID       int64                   `json:"deviceId"`
	DeviceName     string                  `json:"deviceName"`
	UserID         int64                   `json:"userId"`
	TimePlayed     *float64                `json:"timePlayed"`
	TrackData      *domain.NowPlayingTrack `json:"trackData"`
	IsShuffling    *bool                   `json:"isShuffling"`
	IsRepeating    *bool                   `json:"isRepeating"`
	IsPlaying      *bool                   `json:"isPlaying"`
	Volume         *float64                `json:"volume"`
	Muted          *bool                   `json:"muted"`
	LastTimeUpdate *int64                  `json:"lastTimeUpdate"` // epoch millis
}

func (m *NowListeningBroadcast) Kind() string { return TypeNowPlaying }

// RemotePlayRequest asks the broker to deliver a playback command to
// another device.
type RemotePlayRequest struct {
	MessageType      string                  `json:"messageType"`
	DeviceID         string                  `json:"deviceId"` // source device, informational
	TargetDeviceID   int64                   `json:"targetDeviceId"`
	TrackIDs         []int64                 `json:"trackIds,omitempty"`
	NewFloatValue    *float64                `json:"newFloatValue,omitempty"`
	RemotePlayAction domain.RemotePlayAction `json:"remotePlayAction"`
}

func (m *RemotePlayRequest) Kind() string { return TypeRemotePlay }

// RemotePlayDelivery is the command unicast to the target device. Track
// order and duplicates from the request are preserved.
type RemotePlayDelivery struct {
	MessageType      string                    `json:"messageType"`
	Tracks           []*domain.NowPlayingTrack `json:"tracks"`
	NewFloatValue    *float64                  `json:"newFloatValue"`
	RemotePlayAction domain.RemotePlayAction   `json:"remotePlayAction"`
}

func (m *RemotePlayDelivery) Kind() string { return TypeRemotePlay }

// ErrorResponse reports a request failure back to the offending session.
type ErrorResponse struct {
	MessageType string `json:"messageType"`
	Code        string `json:"code"`
	Message     string `json:"message"`
}

func (m *ErrorResponse) Kind() string { return TypeError }

// Error codes carried in ErrorResponse.
const (
	ErrorCodeInvalidMessage     = "invalid_message"
	ErrorCodeUnsupportedMessage = "unsupported_message_type"
	ErrorCodePermissionDenied   = "permission_denied"
	ErrorCodeDeviceNotFound     = "device_not_found"
	ErrorCodeTargetOffline      = "target_offline"
	ErrorCodeInvalidOperation   = "invalid_operation"
	ErrorCodeInternalError      = "internal_error"
)
