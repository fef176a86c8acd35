package handlers

import (
	"errors"

	"github.com/peoplehub/hr-identity/internal/auth"
	"github.com/peoplehub/hr-identity/internal/domain"
	apperrors "github.com/peoplehub/hr-identity/pkg/util/errorutil"
)

// mapError translates identity sentinels into transport errors with the
// fixed client-facing messages.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrUnauthenticated):
		return apperrors.NewUnauthenticated()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apperrors.NewUnauthorized("invalid email or password")
	case errors.Is(err, domain.ErrSessionInvalid):
		return apperrors.NewSessionInvalid()
	case errors.Is(err, domain.ErrResetTokenInvalid):
		return apperrors.NewResetTokenInvalid()
	case errors.Is(err, domain.ErrAccountInactive):
		return apperrors.NewAccountInactive()
	case errors.Is(err, auth.ErrPasswordTooLong):
		return apperrors.NewValidationError("new_password must be at most 72 bytes", nil)
	case errors.Is(err, domain.ErrNotFound):
		return apperrors.NewNotFound("resource", nil)
	case errors.Is(err, domain.ErrStorageUnavailable), errors.Is(err, domain.ErrRandomnessUnavailable):
		return apperrors.NewUnavailable(err)
	default:
		return apperrors.NewInternalError(err)
	}
}
