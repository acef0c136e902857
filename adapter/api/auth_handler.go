package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/fakturly/fakturly/internal/identity/application"
	"github.com/fakturly/fakturly/internal/identity/domain"
)

// AuthHandler handles registration, sessions, and profile requests.
type AuthHandler struct {
	auth        *application.AuthService
	oauth       *application.OAuthService
	frontendURL string
	logger      *slog.Logger
}

// AuthHandlerConfig holds dependencies for the auth handler.
type AuthHandlerConfig struct {
	Auth        *application.AuthService
	OAuth       *application.OAuthService
	FrontendURL string
	Logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(cfg AuthHandlerConfig) *AuthHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AuthHandler{
		auth:        cfg.Auth,
		oauth:       cfg.OAuth,
		frontendURL: cfg.FrontendURL,
		logger:      cfg.Logger,
	}
}

// userView is the API shape of a user account.
type userView struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name"`
	Role                  string     `json:"role"`
	Plan                  string     `json:"plan"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	Verified              bool       `json:"verified"`
	CreatedAt             time.Time  `json:"created_at"`
}

func newUserView(user *domain.User) userView {
	return userView{
		ID:                    user.ID().String(),
		Email:                 user.Email().String(),
		Name:                  user.Name().String(),
		Role:                  string(user.Role()),
		Plan:                  string(user.Plan()),
		SubscriptionExpiresAt: user.SubscriptionExpiresAt(),
		Verified:              user.IsVerified(),
		CreatedAt:             user.CreatedAt(),
	}
}

type authResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func newAuthResponse(result *application.AuthResult) authResponse {
	return authResponse{Token: result.Token, User: newUserView(result.User)}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.auth.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			writeError(w, http.StatusConflict, "Email address already registered")
		case errors.Is(err, domain.ErrInvalidEmail),
			errors.Is(err, domain.ErrEmptyName),
			errors.Is(err, domain.ErrNameTooLong),
			errors.Is(err, domain.ErrPasswordTooWeak):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("registration failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, newUserView(user))
}

// VerifyEmail handles POST /api/v1/auth/verify
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.auth.VerifyEmail(r.Context(), req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidOTP):
			writeError(w, http.StatusUnprocessableEntity, "Invalid or expired verification code")
		case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrInvalidEmail):
			writeError(w, http.StatusNotFound, "Account not found")
		default:
			h.logger.Error("email verification failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Verification failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(result))
}

// ResendVerification handles POST /api/v1/auth/resend
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.auth.ResendVerification(r.Context(), req.Email); err != nil {
		h.logger.Warn("resend verification failed", "error", err)
	}
	// Always accepted, same as forgot-password: no account enumeration.
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, domain.ErrEmailNotVerified):
			writeError(w, http.StatusForbidden, "Email address not verified")
		default:
			h.logger.Error("login failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(result))
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		h.logger.Error("logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ForgotPassword handles POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		h.logger.Error("forgot password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Request failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// ResetPassword handles POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.auth.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenNotFound), errors.Is(err, domain.ErrTokenExpired):
			writeError(w, http.StatusUnauthorized, "Invalid or expired reset token")
		case errors.Is(err, domain.ErrPasswordTooWeak):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("password reset failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Password reset failed")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

const oauthStateCookie = "oauth_state"

// OAuthStart handles GET /api/v1/auth/oauth/google
func (h *AuthHandler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		writeError(w, http.StatusNotFound, "OAuth sign-in is not configured")
		return
	}

	state := randomState()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/v1/auth/oauth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusTemporaryRedirect)
}

// OAuthCallback handles GET /api/v1/auth/oauth/google/callback
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		writeError(w, http.StatusNotFound, "OAuth sign-in is not configured")
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeError(w, http.StatusUnauthorized, "OAuth state mismatch")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	result, err := h.oauth.HandleCallback(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback failed", "error", err)
		writeError(w, http.StatusBadGateway, "OAuth sign-in failed")
		return
	}

	redirect := h.frontendURL + "/auth/callback?token=" + url.QueryEscape(result.Token)
	http.Redirect(w, r, redirect, http.StatusTemporaryRedirect)
}

// Me handles GET /api/v1/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, effective, err := h.auth.CurrentUser(r.Context(), currentUser(r).ID())
	if err != nil {
		h.logger.Error("loading current user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load account")
		return
	}

	view := newUserView(user)
	view.Plan = string(effective.Plan)
	writeJSON(w, http.StatusOK, view)
}

// UpdateProfile handles PUT /api/v1/me/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.auth.UpdateProfile(r.Context(), currentUser(r).ID(), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyName), errors.Is(err, domain.ErrNameTooLong):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("profile update failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Profile update failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, newUserView(user))
}

// ChangePassword handles PUT /api/v1/me/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.auth.ChangePassword(r.Context(), currentUser(r).ID(), req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Current password is incorrect")
		case errors.Is(err, domain.ErrPasswordTooWeak):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("password change failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Password change failed")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func randomState() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
