package websocket

import (
	"time"

	"github.com/google/uuid"
)

// SessionAction представляет тип события сессии редактирования
type SessionAction string

const (
	SessionActionLoading          SessionAction = "loading"
	SessionActionLoaded           SessionAction = "loaded"
	SessionActionValueChanged     SessionAction = "value_changed"
	SessionActionDocumentReplaced SessionAction = "document_replaced"
	SessionActionToggled          SessionAction = "toggled"
	SessionActionPublished        SessionAction = "published"
	SessionActionWithdrawn        SessionAction = "withdrawn"
	SessionActionClosed           SessionAction = "closed"
)

// SessionEventType is the Type of every event on a session channel.
const SessionEventType = "editor_session"

// SessionEvent is sent to websocket clients watching a session.
type SessionEvent struct {
	// Action определяет тип события
	Action SessionAction `json:"action"`

	SessionID uuid.UUID `json:"session_id"`

	Type string `json:"type"`

	// Metadata содержит дополнительные данные о событии (path, state, ...)
	Metadata map[string]any `json:"metadata,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
