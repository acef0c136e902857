package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fakturly/fakturly/internal/identity/application"
	"github.com/fakturly/fakturly/internal/identity/domain"
)

// SettingsHandler handles invoice settings API requests.
type SettingsHandler struct {
	service *application.SettingsService
	logger  *slog.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(service *application.SettingsService, logger *slog.Logger) *SettingsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsHandler{service: service, logger: logger}
}

type settingsView struct {
	InvoiceHeaderTitle   string   `json:"invoice_header_title"`
	PreviousHeaderTitles []string `json:"previous_header_titles"`
	LogoURL              string   `json:"logo_url,omitempty"`
	BusinessAddress      string   `json:"business_address,omitempty"`
	BusinessPhone        string   `json:"business_phone,omitempty"`
}

func newSettingsView(settings *domain.Settings) settingsView {
	return settingsView{
		InvoiceHeaderTitle:   settings.InvoiceHeaderTitle(),
		PreviousHeaderTitles: settings.PreviousHeaderTitles(),
		LogoURL:              settings.LogoURL(),
		BusinessAddress:      settings.BusinessAddress(),
		BusinessPhone:        settings.BusinessPhone(),
	}
}

// Get handles GET /api/v1/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Get(r.Context(), currentUser(r).ID())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}

	writeJSON(w, http.StatusOK, newSettingsView(settings))
}

// Update handles PUT /api/v1/settings. Absent fields stay untouched.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InvoiceHeaderTitle *string `json:"invoice_header_title"`
		LogoURL            *string `json:"logo_url"`
		BusinessAddress    *string `json:"business_address"`
		BusinessPhone      *string `json:"business_phone"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	settings, err := h.service.Update(r.Context(), currentUser(r).ID(), application.UpdateSettingsInput{
		InvoiceHeaderTitle: req.InvoiceHeaderTitle,
		LogoURL:            req.LogoURL,
		BusinessAddress:    req.BusinessAddress,
		BusinessPhone:      req.BusinessPhone,
	})
	if err != nil {
		if errors.Is(err, application.ErrPremiumRequired) {
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error":   "premium_required",
				"message": "Changing the invoice header title requires a premium plan",
			})
			return
		}
		h.logger.Error("failed to update settings", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update settings")
		return
	}

	writeJSON(w, http.StatusOK, newSettingsView(settings))
}
