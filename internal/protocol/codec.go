package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
)

// DecodeRequest parses an inbound client payload into its typed envelope.
// An unrecognized tag is reported as ErrUnsupportedMessageType so the
// caller can drop the message without touching the connection.
func DecodeRequest(data []byte) (Message, error) {
	var envelope struct {
		MessageType string `json:"messageType"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed message envelope: %w", err)
	}

	switch envelope.MessageType {
	case TypeNowPlaying:
		var msg NowListeningRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed %s message: %w", TypeNowPlaying, err)
		}
		return &msg, nil
	case TypeRemotePlay:
		var msg RemotePlayRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed %s message: %w", TypeRemotePlay, err)
		}
		return &msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMessageType, envelope.MessageType)
	}
}

// DecodeResponse parses a broker payload on the client side. Broadcast and
// delivery share the request tags, so the response direction has its own
// decoder.
func DecodeResponse(data []byte) (Message, error) {
	var envelope struct {
		MessageType string `json:"messageType"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed message envelope: %w", err)
	}

	switch envelope.MessageType {
	case TypeNowPlaying:
		var msg NowListeningBroadcast
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed %s broadcast: %w", TypeNowPlaying, err)
		}
		return &msg, nil
	case TypeRemotePlay:
		var msg RemotePlayDelivery
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed %s delivery: %w", TypeRemotePlay, err)
		}
		return &msg, nil
	case TypeError:
		var msg ErrorResponse
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed %s message: %w", TypeError, err)
		}
		return &msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMessageType, envelope.MessageType)
	}
}

// Encode serializes an envelope with its discriminator tag embedded.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", msg.Kind(), err)
	}
	return data, nil
}
