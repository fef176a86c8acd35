package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peoplehub/hr-identity/internal/api/http/handlers"
	"github.com/peoplehub/hr-identity/internal/auth"
	"github.com/peoplehub/hr-identity/internal/domain"
	apperrors "github.com/peoplehub/hr-identity/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Password *handlers.PasswordHandler
	Sessions *handlers.SessionsHandler
	Gate     *auth.Gate
	// AuthRateLimit caps /auth calls per client IP per minute. Zero
	// disables the limiter.
	AuthRateLimit int
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	var authMiddleware []fiber.Handler
	if cfg.AuthRateLimit > 0 {
		authMiddleware = append(authMiddleware, limiter.New(limiter.Config{
			Max:        cfg.AuthRateLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return apperrors.NewDomainError("RATE_LIMITED", "too many requests", fiber.StatusTooManyRequests, nil)
			},
		}))
	}

	authGroup := app.Group("/auth", authMiddleware...)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/password/forgot", cfg.Password.Forgot)
	authGroup.Get("/password/reset/:token", cfg.Password.CheckToken)
	authGroup.Post("/password/reset", cfg.Password.Reset)

	authGroup.Get("/me", cfg.Gate.Handle, cfg.Auth.Me)
	authGroup.Delete("/sessions/:id", cfg.Gate.Handle, auth.RequireRole(domain.RoleHR, domain.RoleSuperUser), cfg.Sessions.Revoke)
}
