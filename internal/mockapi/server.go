// Package mockapi is an in-process backend implementing the auth and profile
// endpoints the client talks to. It backs integration tests and
// `taskup serve --mock`.
package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/taskup/internal/logging"
	"github.com/aretw0/taskup/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BasePath prefixes every endpoint.
const BasePath = "/api/v1"

type account struct {
	user     map[string]any
	hash     []byte
	verified bool
}

// Server is the mock backend. Safe for concurrent use.
type Server struct {
	mu       sync.Mutex
	accounts map[string]*account // by email
	refresh  map[string]string   // refresh token -> email
	revoked  map[string]bool     // access token IDs

	secret       []byte
	tokenTTL     time.Duration
	verification bool
	bcryptCost   int
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithSecret sets the HMAC key used to sign access tokens.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// WithTokenTTL sets the lifetime of issued access tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) {
		s.tokenTTL = d
	}
}

// WithEmailVerification makes registration return no token until verified.
func WithEmailVerification() Option {
	return func(s *Server) {
		s.verification = true
	}
}

// WithClock overrides the time source used for token claims.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates an empty backend.
func New(opts ...Option) *Server {
	s := &Server{
		accounts:   make(map[string]*account),
		refresh:    make(map[string]string),
		revoked:    make(map[string]bool),
		secret:     []byte("taskup-mock-secret"),
		tokenTTL:   time.Hour,
		bcryptCost: bcrypt.MinCost,
		now:        time.Now,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddUser seeds an account. fields are merged into the user document.
func (s *Server) AddUser(email, password string, fields map[string]any) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user := map[string]any{"id": uuid.NewString(), "email": email, "role": "member"}
	for k, v := range fields {
		user[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[strings.ToLower(email)] = &account{user: user, hash: hash, verified: true}
	return nil
}

// RevokeRefreshTokens invalidates every outstanding refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = make(map[string]string)
}

// Handler returns the HTTP handler with every endpoint mounted under BasePath.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route(BasePath, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.login)
			r.Post("/register", s.register)
			r.Post("/refresh-token", s.refreshToken)
			r.Post("/reset-password", s.resetPassword)
			r.Post("/reset-password/confirm", s.resetPasswordConfirm)
			r.Post("/verify-email", s.verifyEmail)
			r.Group(func(r chi.Router) {
				r.Use(s.authenticate)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
			})
		})
		r.Route("/users", func(r chi.Router) {
			r.Use(s.authenticate)
			r.Put("/profile", s.updateProfile)
			r.Put("/profile/password", s.changePassword)
			r.Post("/avatar", s.uploadAvatar)
		})
	})
	return r
}

type authResponse struct {
	Token        string         `json:"token"`
	RefreshToken string         `json:"refreshToken,omitempty"`
	User         map[string]any `json:"user,omitempty"`
	ExpiresIn    int            `json:"expiresIn"`
}

// issue signs a new access token and rotates the refresh token. Callers hold s.mu.
func (s *Server) issue(email string, acct *account) (*authResponse, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   acct.user["id"],
		"email": email,
		"role":  acct.user["role"],
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
		"jti":   uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	refresh := uuid.NewString()
	s.refresh[refresh] = email
	return &authResponse{
		Token:        token,
		RefreshToken: refresh,
		User:         copyUser(acct.user),
		ExpiresIn:    int(s.tokenTTL / time.Second),
	}, nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Remember bool   `json:"remember"`
	}
	if !decode(w, r, &body) {
		return
	}
	s.logger.Debug("Login attempt", "email", body.Email, "remember", body.Remember)

	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(body.Email)
	acct, ok := s.accounts[email]
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(body.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !acct.verified {
		writeError(w, http.StatusForbidden, "Please verify your email before signing in")
		return
	}
	resp, err := s.issue(email, acct)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !decode(w, r, &body) {
		return
	}
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(email)
	if _, exists := s.accounts[key]; exists {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	user := map[string]any{"id": uuid.NewString(), "role": "member"}
	for k, v := range body {
		if k == "password" || k == "confirmPassword" {
			continue
		}
		user[k] = v
	}
	acct := &account{user: user, hash: hash, verified: !s.verification}
	s.accounts[key] = acct

	if s.verification {
		writeJSON(w, http.StatusCreated, map[string]any{"message": "Verification email sent"})
		return
	}
	resp, err := s.issue(key, acct)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.refresh[body.RefreshToken]
	acct := s.accounts[email]
	if !ok || acct == nil {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	delete(s.refresh, body.RefreshToken)
	resp, err := s.issue(email, acct)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp.User = nil
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if jti, _ := c["jti"].(string); jti != "" {
		s.revoked[jti] = true
	}
	email, _ := c["email"].(string)
	for tok, owner := range s.refresh {
		if owner == email {
			delete(s.refresh, tok)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	acct := s.accountFor(r)
	if acct == nil {
		writeError(w, http.StatusUnauthorized, "Unknown user")
		return
	}
	s.mu.Lock()
	user := copyUser(acct.user)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}
	// Unknown emails get the same answer.
	writeJSON(w, http.StatusOK, map[string]any{"message": "If the account exists, a reset email was sent"})
}

func (s *Server) resetPasswordConfirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token           string `json:"token"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if !decode(w, r, &body) {
		return
	}
	switch {
	case body.Token == "":
		writeError(w, http.StatusBadRequest, "Reset token is required")
	case body.Password == "" || body.Password != body.ConfirmPassword:
		writeError(w, http.StatusBadRequest, "Passwords do not match")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"message": "Password updated"})
	}
}

// verifyEmail treats the token as the email address to verify.
func (s *Server) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(body.Token)]
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid or expired verification token")
		return
	}
	acct.verified = true
	writeJSON(w, http.StatusOK, map[string]any{"message": "Email verified"})
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if !decode(w, r, &patch) {
		return
	}
	acct := s.accountFor(r)
	if acct == nil {
		writeError(w, http.StatusUnauthorized, "Unknown user")
		return
	}
	s.mu.Lock()
	for k, v := range patch {
		switch k {
		case "id", "email", "role":
			continue
		}
		acct.user[k] = v
	}
	user := copyUser(acct.user)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decode(w, r, &body) {
		return
	}
	acct := s.accountFor(r)
	if acct == nil {
		writeError(w, http.StatusUnauthorized, "Unknown user")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if bcrypt.CompareHashAndPassword(acct.hash, []byte(body.CurrentPassword)) != nil {
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), s.bcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	acct.hash = hash
	writeJSON(w, http.StatusOK, map[string]any{"message": "Password changed"})
}

func (s *Server) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Avatar file is required")
		return
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read avatar")
		return
	}

	acct := s.accountFor(r)
	if acct == nil {
		writeError(w, http.StatusUnauthorized, "Unknown user")
		return
	}
	s.mu.Lock()
	acct.user["avatar"] = "/uploads/avatars/" + uuid.NewString() + "-" + header.Filename
	user := copyUser(acct.user)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) accountFor(r *http.Request) *account {
	email, _ := claimsFrom(r)["email"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[email]
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message})
}

func copyUser(u map[string]any) map[string]any {
	out := make(map[string]any, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}

// Users lists the accounts ordered by email.
func (s *Server) Users() []*domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.User, 0, len(s.accounts))
	for _, a := range s.accounts {
		if u, err := domain.DecodeUser(copyUser(a.user)); err == nil {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b *domain.User) int { return strings.Compare(a.Email, b.Email) })
	return out
}
