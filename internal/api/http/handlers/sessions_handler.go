package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/peoplehub/hr-identity/internal/domain"
	"github.com/peoplehub/hr-identity/internal/service"
	apperrors "github.com/peoplehub/hr-identity/pkg/util/errorutil"
)

// SessionsHandler exposes administrative session revocation.
type SessionsHandler struct {
	sessions *service.SessionService
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(sessions *service.SessionService) *SessionsHandler {
	return &SessionsHandler{sessions: sessions}
}

// Revoke handles DELETE /auth/sessions/:id.
func (h *SessionsHandler) Revoke(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewValidationError("id must be a uuid", nil)
	}

	if err := h.sessions.RevokeSession(c.UserContext(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperrors.NewNotFound("session", nil)
		}
		return mapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}
