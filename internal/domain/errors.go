package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrSessionInvalid     = errors.New("session invalid")
	ErrResetTokenInvalid  = errors.New("reset token invalid")
	ErrAccountInactive    = errors.New("account inactive")
	ErrRotationConflict   = errors.New("session rotation conflict")

	// ErrRandomnessUnavailable and ErrStorageUnavailable are transient
	// infrastructure failures, never a verdict on the credential.
	ErrRandomnessUnavailable = errors.New("secure randomness unavailable")
	ErrStorageUnavailable    = errors.New("storage unavailable")
)
