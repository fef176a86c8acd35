package events

import (
	"time"

	"github.com/peoplehub/hr-identity/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordResetCompleted EventType = "password_reset_completed"
	EventSessionReuseDetected   EventType = "session_reuse_detected"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID          string             `json:"id"`
	Type        EventType          `json:"type"`
	SubjectID   string             `json:"subject_id"`
	SubjectType domain.SubjectType `json:"subject_type"`
	Timestamp   time.Time          `json:"timestamp"`
	Payload     interface{}        `json:"payload"`
}

// PasswordResetRequestedPayload carries what the mail handler needs. Token is
// the encrypted form that is safe to embed in a link.
type PasswordResetRequestedPayload struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordResetCompletedPayload payload.
type PasswordResetCompletedPayload struct {
	Email           string `json:"email"`
	RevokedSessions int64  `json:"revoked_sessions"`
}

// SessionReuseDetectedPayload payload.
type SessionReuseDetectedPayload struct {
	SessionID string `json:"session_id"`
	IPAddress string `json:"ip_address,omitempty"`
}
