package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/peoplehub/hr-identity/internal/domain"
	"github.com/peoplehub/hr-identity/internal/observability"
	apperrors "github.com/peoplehub/hr-identity/pkg/util/errorutil"
)

const (
	bearerPrefix = "bearer "

	// LocalsSubject is the fiber.Ctx Locals key holding the domain.Subject.
	LocalsSubject = "subject"

	// CloseCodeUnauthenticated is sent by socket collaborators that reject an upgrade.
	CloseCodeUnauthenticated = 4401
	// CloseCodeNormal means the upgrade was accepted.
	CloseCodeNormal = 1000
)

// ExtractCredential returns the bearer token from an Authorization header value.
// The scheme match is case-insensitive and the separator must be a single space.
func ExtractCredential(header string) (string, bool) {
	if len(header) < len(bearerPrefix) {
		return "", false
	}
	if !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// Gate binds inbound requests to a verified subject.
type Gate struct {
	tokens   *TokenManager
	security *observability.SecurityLogger
}

// NewGate constructs the gate.
func NewGate(tokens *TokenManager, security *observability.SecurityLogger) *Gate {
	return &Gate{tokens: tokens, security: security}
}

// Authenticate verifies the header value. Every failure collapses to
// domain.ErrUnauthenticated; the reason is only logged.
func (g *Gate) Authenticate(header string) (domain.Subject, error) {
	token, ok := ExtractCredential(header)
	if !ok {
		g.security.Event(observability.SeverityLow, "access_token_missing")
		return domain.Subject{}, domain.ErrUnauthenticated
	}

	subject, err := g.tokens.Verify(token)
	if err != nil {
		g.security.Event(observability.SeverityLow, "access_token_rejected",
			zap.String("reason", rejectReason(err)),
			zap.String("token_prefix", observability.TokenPrefix(token)))
		return domain.Subject{}, domain.ErrUnauthenticated
	}
	return subject, nil
}

// AuthenticateUpgrade is the socket variant: it returns a close code instead of a status.
func (g *Gate) AuthenticateUpgrade(header string) (domain.Subject, int) {
	subject, err := g.Authenticate(header)
	if err != nil {
		return domain.Subject{}, CloseCodeUnauthenticated
	}
	return subject, CloseCodeNormal
}

// Handle enforces authentication for protected routes.
func (g *Gate) Handle(c *fiber.Ctx) error {
	subject, err := g.Authenticate(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return apperrors.NewUnauthenticated()
	}
	c.Locals(LocalsSubject, subject)
	c.SetUserContext(ContextWithSubject(c.UserContext(), subject))
	return c.Next()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	default:
		return "malformed"
	}
}
