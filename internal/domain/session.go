package domain

import "time"

// SessionMeta is audit context captured when a session is opened.
type SessionMeta struct {
	UserAgent string
	IPAddress string
}

// Session is a persisted refresh-token record. Only the SHA-256 of the raw
// refresh token is ever stored.
type Session struct {
	ID                string
	SubjectID         string
	SubjectType       SubjectType
	TokenHash         string
	PreviousTokenHash *string
	UserAgent         *string
	IPAddress         *string
	ExpiresAt         time.Time
	CreatedAt         time.Time
	RotatedAt         *time.Time
	RevokedAt         *time.Time
}

// Active reports revokedAt IS NULL AND expiresAt > now.
func (s *Session) Active(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
