package dto

// ForgotPasswordRequest payload for POST /auth/password/forgot.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// ResetPasswordRequest payload for POST /auth/password/reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required,max=512"`
	NewPassword string `json:"new_password" validate:"required,min=8,maxbytes=72"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ResetTokenStatus reports that a reset link can be used.
type ResetTokenStatus struct {
	Valid bool   `json:"valid"`
	Email string `json:"email"`
}
