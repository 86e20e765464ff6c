package domain

import "errors"

// Sentinel errors for the broker. Handlers map these onto protocol error
// codes; none of them closes the connection.
var (
	ErrNotFound               = errors.New("not found")
	ErrDeviceNotFound         = errors.New("device not found")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrTargetOffline          = errors.New("target device has no live session")
	ErrInvalidOperation       = errors.New("invalid operation")
	ErrUnsupportedMessageType = errors.New("unsupported message type")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidToken           = errors.New("invalid token")
	ErrTokenExpired           = errors.New("token expired")
)
