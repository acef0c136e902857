package application

import (
	"context"
	"errors"

	"github.com/google/uuid"

	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	"github.com/fakturly/fakturly/internal/identity/domain"
	sharedApplication "github.com/fakturly/fakturly/internal/shared/application"
)

// ErrPremiumRequired is returned when a free user edits a premium field.
var ErrPremiumRequired = errors.New("premium plan required")

// FieldGate decides whether a user may edit a plan-restricted field.
type FieldGate interface {
	CanEditField(ctx context.Context, userID uuid.UUID, field billingDomain.RestrictedField) (bool, error)
}

// UpdateSettingsInput carries new invoice presentation preferences. Nil
// pointers leave the corresponding field untouched.
type UpdateSettingsInput struct {
	InvoiceHeaderTitle *string
	LogoURL            *string
	BusinessAddress    *string
	BusinessPhone      *string
}

// SettingsService manages per-user invoice settings.
type SettingsService struct {
	settings domain.SettingsRepository
	gate     FieldGate
	uow      sharedApplication.UnitOfWork
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(
	settings domain.SettingsRepository,
	gate FieldGate,
	uow sharedApplication.UnitOfWork,
) *SettingsService {
	return &SettingsService{settings: settings, gate: gate, uow: uow}
}

// Get returns the user's settings, creating defaults on first access.
func (s *SettingsService) Get(ctx context.Context, userID uuid.UUID) (*domain.Settings, error) {
	settings, err := s.settings.FindByUserID(ctx, userID)
	if err == nil {
		return settings, nil
	}
	settings = domain.NewSettings(userID)
	if err := s.settings.Save(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Update applies the given changes. The header title is a premium field;
// the rest is available on every plan.
func (s *SettingsService) Update(ctx context.Context, userID uuid.UUID, input UpdateSettingsInput) (*domain.Settings, error) {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.InvoiceHeaderTitle != nil && *input.InvoiceHeaderTitle != settings.InvoiceHeaderTitle() {
		allowed, err := s.gate.CanEditField(ctx, userID, billingDomain.FieldInvoiceHeaderTitle)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrPremiumRequired
		}
	}

	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		if input.InvoiceHeaderTitle != nil {
			settings.SetInvoiceHeaderTitle(*input.InvoiceHeaderTitle)
		}

		logoURL := settings.LogoURL()
		address := settings.BusinessAddress()
		phone := settings.BusinessPhone()
		if input.LogoURL != nil {
			logoURL = *input.LogoURL
		}
		if input.BusinessAddress != nil {
			address = *input.BusinessAddress
		}
		if input.BusinessPhone != nil {
			phone = *input.BusinessPhone
		}
		settings.UpdateBusinessInfo(logoURL, address, phone)

		return s.settings.Save(txCtx, settings)
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}
