// Package api provides the HTTP API for the Fakturly backend.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fakturly/fakturly/pkg/observability"
)

// Server is the HTTP API server.
type Server struct {
	mux      *http.ServeMux
	server   *http.Server
	logger   *slog.Logger
	health   *observability.HealthRegistry
	auth     *AuthHandler
	invoices *InvoiceHandler
	contacts *ContactHandler
	settings *SettingsHandler
	billing  *BillingHandler
	admin    *AdminHandler
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Handlers bundles the per-context handlers the server routes to.
type Handlers struct {
	Auth     *AuthHandler
	Invoices *InvoiceHandler
	Contacts *ContactHandler
	Settings *SettingsHandler
	Billing  *BillingHandler
	Admin    *AdminHandler
}

// NewServer creates the API server and registers all routes.
func NewServer(cfg ServerConfig, handlers Handlers, health *observability.HealthRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		health:   health,
		auth:     handlers.Auth,
		invoices: handlers.Invoices,
		contacts: handlers.Contacts,
		settings: handlers.Settings,
		billing:  handlers.Billing,
		admin:    handlers.Admin,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      withRequestID(s.mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	authed := s.auth.Require
	admin := s.auth.RequireAdmin

	// Health check
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// Auth
	s.mux.HandleFunc("POST /api/v1/auth/register", s.auth.Register)
	s.mux.HandleFunc("POST /api/v1/auth/verify", s.auth.VerifyEmail)
	s.mux.HandleFunc("POST /api/v1/auth/resend", s.auth.ResendVerification)
	s.mux.HandleFunc("POST /api/v1/auth/login", s.auth.Login)
	s.mux.HandleFunc("POST /api/v1/auth/logout", authed(s.auth.Logout))
	s.mux.HandleFunc("POST /api/v1/auth/forgot-password", s.auth.ForgotPassword)
	s.mux.HandleFunc("POST /api/v1/auth/reset-password", s.auth.ResetPassword)
	s.mux.HandleFunc("GET /api/v1/auth/oauth/google", s.auth.OAuthStart)
	s.mux.HandleFunc("GET /api/v1/auth/oauth/google/callback", s.auth.OAuthCallback)

	// Current user
	s.mux.HandleFunc("GET /api/v1/me", authed(s.auth.Me))
	s.mux.HandleFunc("PUT /api/v1/me/profile", authed(s.auth.UpdateProfile))
	s.mux.HandleFunc("PUT /api/v1/me/password", authed(s.auth.ChangePassword))

	// Settings
	s.mux.HandleFunc("GET /api/v1/settings", authed(s.settings.Get))
	s.mux.HandleFunc("PUT /api/v1/settings", authed(s.settings.Update))

	// Invoices
	s.mux.HandleFunc("POST /api/v1/invoices", authed(s.invoices.Create))
	s.mux.HandleFunc("GET /api/v1/invoices", authed(s.invoices.List))
	s.mux.HandleFunc("GET /api/v1/invoices/{invoiceID}", authed(s.invoices.Get))
	s.mux.HandleFunc("PUT /api/v1/invoices/{invoiceID}", authed(s.invoices.Update))
	s.mux.HandleFunc("DELETE /api/v1/invoices/{invoiceID}", authed(s.invoices.Delete))

	// Contacts
	s.mux.HandleFunc("POST /api/v1/contacts", authed(s.contacts.Create))
	s.mux.HandleFunc("GET /api/v1/contacts", authed(s.contacts.List))
	s.mux.HandleFunc("GET /api/v1/contacts/{contactID}", authed(s.contacts.Get))
	s.mux.HandleFunc("PUT /api/v1/contacts/{contactID}", authed(s.contacts.Update))
	s.mux.HandleFunc("DELETE /api/v1/contacts/{contactID}", authed(s.contacts.Delete))

	// Billing
	s.mux.HandleFunc("POST /api/v1/billing/upgrade", authed(s.billing.CreateUpgradeCheckout))
	s.mux.HandleFunc("POST /api/v1/billing/verify", authed(s.billing.VerifyPayment))
	s.mux.HandleFunc("GET /api/v1/billing/payments", authed(s.billing.ListPayments))
	s.mux.HandleFunc("POST /api/v1/webhooks/xendit", s.billing.Webhook)

	// Admin
	s.mux.HandleFunc("GET /api/v1/admin/stats", admin(s.admin.Stats))
	s.mux.HandleFunc("GET /api/v1/admin/users", admin(s.admin.SearchUsers))
	s.mux.HandleFunc("PUT /api/v1/admin/users/{userID}/plan", admin(s.admin.OverridePlan))
	s.mux.HandleFunc("GET /api/v1/admin/payments", admin(s.admin.ListPayments))
}

// handleHealth runs the registered component checks and reports the
// aggregate. Unhealthy maps to 503 so load balancers drain the instance.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	result := s.health.Check(r.Context())
	status := http.StatusOK
	if result.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, result)
}

// Handler returns the root handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(dst)
}
