package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/peoplehub/hr-identity/internal/domain"
	apperrors "github.com/peoplehub/hr-identity/pkg/util/errorutil"
)

// RequireRole ensures the authenticated subject holds one of the allowed roles.
// An empty list only requires authentication.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		subject, ok := CurrentSubject(c)
		if !ok {
			return apperrors.NewUnauthenticated()
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[subject.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
