package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/fakturly/fakturly/internal/admin/application"
	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	identityDomain "github.com/fakturly/fakturly/internal/identity/domain"
)

// AdminHandler handles operator API requests.
type AdminHandler struct {
	service *application.Service
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(service *application.Service, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{service: service, logger: logger}
}

// Stats handles GET /api/v1/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to assemble admin stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// SearchUsers handles GET /api/v1/admin/users
func (h *AdminHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, total, err := h.service.SearchUsers(r.Context(), identityDomain.UserSearchFilter{
		Query:  r.URL.Query().Get("q"),
		Plan:   r.URL.Query().Get("plan"),
		Limit:  parseIntParam(r, "limit", 20),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.logger.Error("failed to search users", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to search users")
		return
	}

	views := make([]userView, 0, len(users))
	for _, user := range users {
		views = append(views, newUserView(user))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users": views,
		"total": total,
	})
}

// OverridePlan handles PUT /api/v1/admin/users/{userID}/plan
func (h *AdminHandler) OverridePlan(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req struct {
		Plan string `json:"plan"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.OverridePlan(r.Context(), userID, billingDomain.Plan(req.Plan))
	if err != nil {
		switch {
		case errors.Is(err, identityDomain.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			h.logger.Error("plan override failed", "error", err)
			writeError(w, http.StatusBadRequest, "Plan override failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, newUserView(user))
}

// ListPayments handles GET /api/v1/admin/payments
func (h *AdminHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListPayments(r.Context(),
		parseIntParam(r, "limit", 20),
		parseIntParam(r, "offset", 0))
	if err != nil {
		h.logger.Error("failed to list payments", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list payments")
		return
	}

	views := make([]paymentView, 0, len(payments))
	for _, payment := range payments {
		views = append(views, newPaymentView(payment))
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": views})
}
