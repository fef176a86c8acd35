package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/peoplehub/hr-identity/internal/domain"
)

type subjectContextKey struct{}

// ContextWithSubject attaches the authenticated subject to ctx.
func ContextWithSubject(ctx context.Context, subject domain.Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey{}, subject)
}

// SubjectFromContext extracts the subject bound by the gate.
func SubjectFromContext(ctx context.Context) (domain.Subject, bool) {
	if ctx == nil {
		return domain.Subject{}, false
	}
	subject, ok := ctx.Value(subjectContextKey{}).(domain.Subject)
	if !ok || subject.ID == "" {
		return domain.Subject{}, false
	}
	return subject, true
}

// CurrentSubject reads the subject from the request's user context.
func CurrentSubject(c *fiber.Ctx) (domain.Subject, bool) {
	return SubjectFromContext(c.UserContext())
}
