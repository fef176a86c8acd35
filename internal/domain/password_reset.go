package domain

import "time"

// PasswordResetTTL is the redemption window for reset links. Creation and
// redemption both derive expiry from this value and CreatedAt.
const PasswordResetTTL = 15 * time.Minute

// PasswordResetRequest is the single live reset attempt for an email.
type PasswordResetRequest struct {
	Email     string
	Token     string
	CreatedAt time.Time
}

// Expired reports whether the request is older than PasswordResetTTL.
// Exactly PasswordResetTTL old is still valid.
func (r *PasswordResetRequest) Expired(now time.Time) bool {
	return now.Sub(r.CreatedAt) > PasswordResetTTL
}
