package live

import "errors"

// Custom error types for better error discrimination
var (
	// ErrNotConnected is returned when a send is attempted with no open channel
	ErrNotConnected = errors.New("session is not connected")

	// ErrNotReady is returned when content is sent before setup completes
	ErrNotReady = errors.New("session is not ready for content")

	// ErrAlreadyConnected is returned when Connect is called on a live session
	ErrAlreadyConnected = errors.New("session is already connected")

	// ErrMissingToken is returned when no bearer token is configured
	ErrMissingToken = errors.New("bearer token is missing")

	// ErrChannelOpen is returned when the transport channel fails to open
	ErrChannelOpen = errors.New("failed to open channel")

	// ErrUnrecognizedFrame is returned for malformed or unknown inbound frames
	ErrUnrecognizedFrame = errors.New("unrecognized inbound frame")
)
