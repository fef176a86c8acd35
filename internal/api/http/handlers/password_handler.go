package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/peoplehub/hr-identity/internal/api/dto"
	"github.com/peoplehub/hr-identity/internal/service"
)

// ForgotPasswordMessage is returned whether or not the account exists.
const ForgotPasswordMessage = "if this account exists you will receive a reset email"

// PasswordHandler exposes the password reset flow.
type PasswordHandler struct {
	resets *service.PasswordResetService
}

// NewPasswordHandler constructs handler.
func NewPasswordHandler(resets *service.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{resets: resets}
}

// Forgot handles POST /auth/password/forgot.
func (h *PasswordHandler) Forgot(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.resets.RequestReset(c.UserContext(), req.Email); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusAccepted).JSON(dto.MessageResponse{Message: ForgotPasswordMessage})
}

// CheckToken handles GET /auth/password/reset/:token.
func (h *PasswordHandler) CheckToken(c *fiber.Ctx) error {
	email, err := h.resets.RedeemToken(c.UserContext(), c.Params("token"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.ResetTokenStatus{Valid: true, Email: email}})
}

// Reset handles POST /auth/password/reset.
func (h *PasswordHandler) Reset(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.resets.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return mapError(err)
	}
	return c.JSON(dto.MessageResponse{Message: "password updated"})
}
