package editor

import "errors"

var (
	// ErrSessionNotFound is returned for unknown or closed session IDs.
	ErrSessionNotFound = errors.New("editor: session not found")
	// ErrNotReady is returned when rows are requested or edited before a
	// reference document is loaded.
	ErrNotReady = errors.New("editor: session is not ready")
)
