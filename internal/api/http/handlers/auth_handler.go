package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/peoplehub/hr-identity/internal/api/dto"
	"github.com/peoplehub/hr-identity/internal/auth"
	"github.com/peoplehub/hr-identity/internal/domain"
	"github.com/peoplehub/hr-identity/internal/service"
	apperrors "github.com/peoplehub/hr-identity/pkg/util/errorutil"
)

// AuthHandler exposes login, refresh, logout and me.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := h.auth.Login(c.UserContext(), req.Email, req.Password, sessionMeta(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"data": tokenResponse(pair)})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := h.auth.Refresh(c.UserContext(), req.RefreshToken, sessionMeta(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"data": tokenResponse(pair)})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Logout(c.UserContext(), req.RefreshToken)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": dto.LogoutResponse{
		AccessToken: res.AccessToken,
		ExpiresAt:   res.ExpiresAt,
	}})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	subject, ok := auth.CurrentSubject(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}

	account, err := h.auth.Me(c.UserContext(), subject)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.MeResponse{
		ID:          subject.ID,
		SubjectType: string(subject.Type),
		Role:        string(account.Subject.Role),
		Email:       account.Subject.Email,
		Name:        account.Name,
	}})
}

func sessionMeta(c *fiber.Ctx) domain.SessionMeta {
	return domain.SessionMeta{
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IPAddress: c.IP(),
	}
}

func tokenResponse(pair *domain.TokenPair) dto.TokenResponse {
	return dto.TokenResponse{
		AccessToken:      pair.AccessToken,
		TokenType:        "Bearer",
		ExpiresAt:        pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		SessionID:        pair.SessionID,
	}
}
