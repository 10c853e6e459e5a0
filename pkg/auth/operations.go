package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/gateway"
	"github.com/aretw0/taskup/pkg/ports"
)

// Login authenticates with email and password. remember is forwarded to the
// server, which may issue a longer-lived refresh token.
func (m *Manager) Login(ctx context.Context, email, password string, remember bool) (*AuthResponse, error) {
	body := map[string]any{"email": email, "password": password, "remember": remember}
	var resp AuthResponse
	if err := m.gw.Request(ctx, http.MethodPost, gateway.Endpoints.Auth.Login, body, &resp); err != nil {
		m.handleAuthError(err, MsgLoginFailed)
		return nil, err
	}
	if resp.Token == "" {
		err := errors.New("login response carries no token")
		m.handleAuthError(err, MsgLoginFailed)
		return nil, err
	}

	m.handleAuthResponse(ctx, &resp)
	m.notifier.Notify(ports.NoticeSuccess, fmt.Sprintf("Welcome back, %s!", m.GetUser().DisplayName()))
	return &resp, nil
}

// Register creates an account. When the server answers with a token the new
// account is signed in directly; otherwise email verification is pending.
func (m *Manager) Register(ctx context.Context, data map[string]any) (*AuthResponse, error) {
	var resp AuthResponse
	if err := m.gw.Request(ctx, http.MethodPost, gateway.Endpoints.Auth.Register, data, &resp); err != nil {
		m.handleAuthError(err, MsgRegistrationFailed)
		return nil, err
	}

	if resp.Token != "" {
		m.handleAuthResponse(ctx, &resp)
		m.notifier.Notify(ports.NoticeSuccess, "Account created successfully!")
	} else {
		m.notifier.Notify(ports.NoticeSuccess, "Account created! Please verify your email.")
	}
	return &resp, nil
}

// Logout ends the session. With serverSide the logout endpoint is called
// first; its failure is logged and never prevents the local logout.
func (m *Manager) Logout(ctx context.Context, serverSide bool) error {
	if serverSide && m.IsAuthenticated() {
		if err := m.gw.Request(ctx, http.MethodPost, gateway.Endpoints.Auth.Logout, nil, nil); err != nil {
			m.logger.Warn("Server logout failed", "err", err)
		}
	}
	m.clearSession(ctx)
	m.notifier.Notify(ports.NoticeInfo, "You have been logged out")
	return nil
}

// RequestPasswordReset asks the server to email a reset link.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]any{"email": email}
	if err := m.gw.Request(ctx, http.MethodPost, gateway.Endpoints.Auth.ResetPassword, body, nil); err != nil {
		m.handleAuthError(err, MsgResetEmailFailed)
		return err
	}
	m.notifier.Notify(ports.NoticeSuccess, "Password reset email sent!")
	return nil
}

// ResetPassword completes a reset with the emailed token.
func (m *Manager) ResetPassword(ctx context.Context, token, password, confirm string) error {
	body := map[string]any{"token": token, "password": password, "confirmPassword": confirm}
	if err := m.gw.Request(ctx, http.MethodPost, gateway.Endpoints.Auth.ResetPasswordConfirm, body, nil); err != nil {
		m.handleAuthError(err, MsgPasswordResetFailed)
		return err
	}
	m.notifier.Notify(ports.NoticeSuccess, "Password reset successful!")
	return nil
}

// VerifyEmail confirms an email address with the emailed token.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	body := map[string]any{"token": token}
	if err := m.gw.Request(ctx, http.MethodPost, gateway.Endpoints.Auth.VerifyEmail, body, nil); err != nil {
		m.handleAuthError(err, MsgVerificationFailed)
		return err
	}
	m.notifier.Notify(ports.NoticeSuccess, "Email verified successfully!")
	return nil
}

// GetUserProfile fetches the current user and merges it into the session.
// A 401 expires the session.
func (m *Manager) GetUserProfile(ctx context.Context) (*domain.User, error) {
	if !m.IsAuthenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	var profile Response
	if err := m.gw.Request(ctx, http.MethodGet, gateway.Endpoints.Auth.Me, nil, &profile); err != nil {
		if gateway.StatusOf(err) == http.StatusUnauthorized {
			m.handleSessionExpired(ctx)
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return m.updateUser(ctx, userDocument(profile))
}

// UpdateUserProfile sends a profile patch and merges the server's answer.
func (m *Manager) UpdateUserProfile(ctx context.Context, patch map[string]any) (*domain.User, error) {
	if !m.IsAuthenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	var updated Response
	if err := m.gw.Request(ctx, http.MethodPut, gateway.Endpoints.Users.Profile, patch, &updated); err != nil {
		m.handleAuthError(err, MsgUpdateProfileFailed)
		return nil, err
	}
	u, err := m.updateUser(ctx, userDocument(updated))
	if err != nil {
		return nil, err
	}
	m.notifier.Notify(ports.NoticeSuccess, "Profile updated successfully!")
	return u, nil
}

// ChangePassword changes the current user's password.
func (m *Manager) ChangePassword(ctx context.Context, current, next string) error {
	if !m.IsAuthenticated() {
		return domain.ErrNotAuthenticated
	}
	body := map[string]any{"currentPassword": current, "newPassword": next}
	if err := m.gw.Request(ctx, http.MethodPut, gateway.Endpoints.Users.Password, body, nil); err != nil {
		m.handleAuthError(err, MsgChangePasswordFailed)
		return err
	}
	m.notifier.Notify(ports.NoticeSuccess, "Password changed successfully!")
	return nil
}

// UploadAvatar uploads an avatar image and merges the updated user.
func (m *Manager) UploadAvatar(ctx context.Context, filename string, content io.Reader) (*domain.User, error) {
	if !m.IsAuthenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	var updated Response
	if err := m.gw.Upload(ctx, gateway.Endpoints.Users.Avatar, "avatar", filename, content, &updated); err != nil {
		m.handleAuthError(err, MsgUploadAvatarFailed)
		return nil, err
	}
	u, err := m.updateUser(ctx, userDocument(updated))
	if err != nil {
		return nil, err
	}
	m.notifier.Notify(ports.NoticeSuccess, "Avatar updated successfully!")
	return u, nil
}

// userDocument unwraps {"user": {...}} envelopes; bare documents pass through.
func userDocument(r Response) map[string]any {
	if inner, ok := r["user"].(map[string]any); ok {
		return inner
	}
	return r
}
