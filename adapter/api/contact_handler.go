package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	billingApplication "github.com/fakturly/fakturly/internal/billing/application"
	"github.com/fakturly/fakturly/internal/contacts/application"
	"github.com/fakturly/fakturly/internal/contacts/domain"
)

// ContactHandler handles address book API requests.
type ContactHandler struct {
	service *application.Service
	logger  *slog.Logger
}

// NewContactHandler creates a new contact handler.
func NewContactHandler(service *application.Service, logger *slog.Logger) *ContactHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactHandler{service: service, logger: logger}
}

type contactView struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newContactView(contact *domain.Contact) contactView {
	return contactView{
		ID:        contact.ID().String(),
		Kind:      string(contact.Kind()),
		Name:      contact.Name(),
		Email:     contact.Email(),
		Phone:     contact.Phone(),
		Address:   contact.Address(),
		CreatedAt: contact.CreatedAt(),
		UpdatedAt: contact.UpdatedAt(),
	}
}

type contactRequest struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Create handles POST /api/v1/contacts
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	contact, err := h.service.Create(r.Context(), application.CreateContactInput{
		UserID:  currentUser(r).ID(),
		Kind:    domain.Kind(req.Kind),
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		h.writeContactError(w, err, "Failed to create contact")
		return
	}

	writeJSON(w, http.StatusCreated, newContactView(contact))
}

// List handles GET /api/v1/contacts?kind=seller|customer
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := domain.Kind(r.URL.Query().Get("kind"))

	contacts, err := h.service.List(r.Context(), currentUser(r).ID(), kind)
	if err != nil {
		h.writeContactError(w, err, "Failed to list contacts")
		return
	}

	views := make([]contactView, 0, len(contacts))
	for _, contact := range contacts {
		views = append(views, newContactView(contact))
	}
	writeJSON(w, http.StatusOK, map[string]any{"contacts": views})
}

// Get handles GET /api/v1/contacts/{contactID}
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	contactID, err := uuid.Parse(r.PathValue("contactID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contact ID")
		return
	}

	contact, err := h.service.Get(r.Context(), contactID, currentUser(r).ID())
	if err != nil {
		h.writeContactError(w, err, "Failed to load contact")
		return
	}

	writeJSON(w, http.StatusOK, newContactView(contact))
}

// Update handles PUT /api/v1/contacts/{contactID}
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	contactID, err := uuid.Parse(r.PathValue("contactID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contact ID")
		return
	}

	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	contact, err := h.service.Update(r.Context(), application.UpdateContactInput{
		ContactID: contactID,
		UserID:    currentUser(r).ID(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		h.writeContactError(w, err, "Failed to update contact")
		return
	}

	writeJSON(w, http.StatusOK, newContactView(contact))
}

// Delete handles DELETE /api/v1/contacts/{contactID}
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	contactID, err := uuid.Parse(r.PathValue("contactID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contact ID")
		return
	}

	if err := h.service.Delete(r.Context(), contactID, currentUser(r).ID()); err != nil {
		h.writeContactError(w, err, "Failed to delete contact")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ContactHandler) writeContactError(w http.ResponseWriter, err error, fallback string) {
	var quotaErr *billingApplication.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":   "quota_exceeded",
			"message": quotaErr.Error(),
			"kind":    string(quotaErr.Decision.Kind),
			"limit":   quotaErr.Decision.Limit,
			"used":    quotaErr.Decision.CurrentCount,
		})
	case errors.Is(err, domain.ErrContactNotFound), errors.Is(err, domain.ErrNotOwner):
		writeError(w, http.StatusNotFound, "Contact not found")
	case errors.Is(err, domain.ErrInvalidKind), errors.Is(err, domain.ErrEmptyName):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
