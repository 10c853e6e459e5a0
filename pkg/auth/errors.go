package auth

import (
	"errors"

	"github.com/aretw0/taskup/pkg/gateway"
)

// Fallback messages shown when the server gives no explanation.
const (
	MsgRegistrationFailed   = "Registration failed"
	MsgLoginFailed          = "Login failed"
	MsgResetEmailFailed     = "Failed to send reset email"
	MsgPasswordResetFailed  = "Password reset failed"
	MsgVerificationFailed   = "Email verification failed"
	MsgUpdateProfileFailed  = "Failed to update profile"
	MsgChangePasswordFailed = "Failed to change password"
	MsgUploadAvatarFailed   = "Failed to upload avatar"
)

// ErrorMessage picks the user-visible message for err: the server's
// data.message, then the error's own message, then fallback.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		if m := apiErr.DataMessage(); m != "" {
			return m
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	if m := err.Error(); m != "" {
		return m
	}
	return fallback
}
