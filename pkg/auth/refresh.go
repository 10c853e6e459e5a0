package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/gateway"
)

// errSessionChanged is returned to refresh callers whose session ended or was
// replaced while the request was in flight.
var errSessionChanged = fmt.Errorf("session changed during refresh: %w", domain.ErrNotAuthenticated)

// RefreshToken exchanges the refresh token for a new access token. Concurrent
// callers share a single request. On failure, including a session without a
// refresh token, the session is cleared unless it was replaced in the meantime.
func (m *Manager) RefreshToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	if call := m.inflight; call != nil {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if !m.sess.IsAuthenticated {
		m.mu.Unlock()
		return "", domain.ErrNoRefreshToken
	}
	if m.sess.RefreshToken == "" {
		m.mu.Unlock()
		m.handleSessionExpired(ctx)
		return "", domain.ErrNoRefreshToken
	}
	call := &refreshCall{done: make(chan struct{})}
	m.inflight = call
	gen := m.gen
	refresh := m.sess.RefreshToken
	m.state = StateRefreshing
	m.mu.Unlock()

	call.token, call.err = m.doRefresh(ctx, gen, refresh)

	m.mu.Lock()
	m.inflight = nil
	if m.gen == gen && m.sess.IsAuthenticated {
		m.state = StateAuthenticated
	}
	m.mu.Unlock()
	close(call.done)

	return call.token, call.err
}

func (m *Manager) doRefresh(ctx context.Context, gen uint64, refresh string) (string, error) {
	var resp AuthResponse
	err := m.gw.Request(ctx, http.MethodPost, gateway.Endpoints.Auth.RefreshToken,
		map[string]any{"refreshToken": refresh}, &resp)
	if err == nil && resp.Token == "" {
		err = errors.New("refresh response carries no token")
	}

	if err != nil {
		m.logger.Warn("Token refresh failed", "err", err)
		if m.generation() == gen {
			m.handleSessionExpired(ctx)
		}
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	if m.generation() != gen {
		// Logged out (or logged in again) while the refresh was in flight.
		return "", errSessionChanged
	}
	m.setToken(ctx, resp.Token, resp.RefreshToken, time.Duration(resp.ExpiresIn)*time.Second)
	m.emit(domain.AuthTokenRefresh, domain.AuthPayload{Token: resp.Token})
	return resp.Token, nil
}

// CheckSession expires the session when its token is past expiry and
// refreshes it when within the refresh threshold.
func (m *Manager) CheckSession(ctx context.Context) {
	m.mu.RLock()
	authed := m.sess.IsAuthenticated
	expiry := m.sess.TokenExpiry
	refreshing := m.inflight != nil
	m.mu.RUnlock()

	if !authed || expiry.IsZero() || refreshing {
		return
	}

	now := m.now()
	switch {
	case !now.Before(expiry):
		m.logger.Info("Session expired")
		m.handleSessionExpired(ctx)
	case expiry.Sub(now) <= m.refreshThreshold:
		if _, err := m.RefreshToken(ctx); err != nil {
			m.logger.Warn("Background refresh failed", "err", err)
		}
	}
}

// TimerActive reports whether the background session check is running.
func (m *Manager) TimerActive() bool {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	return m.stopTimer != nil
}

// startSessionCheck (re)starts the periodic CheckSession loop.
func (m *Manager) startSessionCheck() {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	if m.stopTimer != nil {
		m.stopTimer()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.stopTimer = cancel

	go func() {
		ticker := time.NewTicker(m.checkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.safeCheck(ctx)
			}
		}
	}()
}

// stopSessionCheck cancels the loop without waiting for it; a check in
// progress may call it from inside the loop.
func (m *Manager) stopSessionCheck() {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	if m.stopTimer != nil {
		m.stopTimer()
		m.stopTimer = nil
	}
}

func (m *Manager) safeCheck(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Session check panicked", "panic", r)
		}
	}()
	m.CheckSession(ctx)
}
