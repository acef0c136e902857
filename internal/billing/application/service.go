package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fakturly/fakturly/internal/billing/domain"
	sharedApplication "github.com/fakturly/fakturly/internal/shared/application"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/outbox"
)

var (
	// ErrMalformedExternalID is returned for webhook external IDs that do
	// not follow the upgrade_{userID}_{unix} format.
	ErrMalformedExternalID = errors.New("malformed external id")
	// ErrPaymentOwnership is returned when a user verifies a payment that
	// is not theirs.
	ErrPaymentOwnership = errors.New("payment does not belong to user")
)

// GatewayInvoice is the gateway's view of a checkout invoice.
type GatewayInvoice struct {
	ID         string
	ExternalID string
	InvoiceURL string
	Status     domain.PaymentStatus
	Amount     decimal.Decimal
	PaidAt     *time.Time
}

// CreateGatewayInvoiceRequest describes a checkout invoice to create.
type CreateGatewayInvoiceRequest struct {
	ExternalID  string
	Amount      decimal.Decimal
	PayerEmail  string
	Description string
	SuccessURL  string
	FailureURL  string
}

// PaymentGateway is the payment provider client.
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, req CreateGatewayInvoiceRequest) (*GatewayInvoice, error)
	GetInvoice(ctx context.Context, gatewayInvoiceID string) (*GatewayInvoice, error)
}

// SubscriptionStore is the identity-side plan state billing reads and
// writes through.
type SubscriptionStore interface {
	PlanSource
	ApplySubscriptionChange(ctx context.Context, userID uuid.UUID, change domain.SubscriptionChange) error
}

// CheckoutResult is returned when an upgrade checkout is created.
type CheckoutResult struct {
	ExternalID string
	InvoiceURL string
	Amount     decimal.Decimal
}

// VerifyResult reports what verifying or confirming a payment did.
type VerifyResult struct {
	Status  domain.PaymentStatus
	Outcome domain.ConfirmationOutcome
}

// ServiceConfig holds billing service settings.
type ServiceConfig struct {
	PremiumPrice decimal.Decimal
	FrontendURL  string
}

// Service coordinates upgrade checkouts, payment verification, and
// webhook confirmations.
type Service struct {
	payments      domain.PaymentRepository
	gateway       PaymentGateway
	subscriptions SubscriptionStore
	outbox        outbox.Repository
	uow           sharedApplication.UnitOfWork
	config        ServiceConfig
	logger        *slog.Logger
	now           func() time.Time
}

// NewService creates a billing service.
func NewService(
	payments domain.PaymentRepository,
	gateway PaymentGateway,
	subscriptions SubscriptionStore,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		payments:      payments,
		gateway:       gateway,
		subscriptions: subscriptions,
		outbox:        outboxRepo,
		uow:           uow,
		config:        config,
		logger:        logger,
		now:           time.Now,
	}
}

// CreateUpgradeCheckout opens a gateway checkout for the premium upgrade
// and records a pending payment.
func (s *Service) CreateUpgradeCheckout(ctx context.Context, userID uuid.UUID, payerEmail string) (*CheckoutResult, error) {
	externalID := UpgradeExternalID(userID, s.now())

	gatewayInvoice, err := s.gateway.CreateInvoice(ctx, CreateGatewayInvoiceRequest{
		ExternalID:  externalID,
		Amount:      s.config.PremiumPrice,
		PayerEmail:  payerEmail,
		Description: "Fakturly Premium (30 days)",
		SuccessURL:  s.config.FrontendURL + "/billing/success",
		FailureURL:  s.config.FrontendURL + "/billing/failed",
	})
	if err != nil {
		return nil, fmt.Errorf("creating gateway invoice: %w", err)
	}

	payment := domain.NewPayment(userID, externalID, gatewayInvoice.ID, gatewayInvoice.InvoiceURL, s.config.PremiumPrice)

	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		if err := s.payments.Save(txCtx, payment); err != nil {
			return err
		}
		return outbox.StageEvents(txCtx, s.outbox, payment)
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{
		ExternalID: externalID,
		InvoiceURL: gatewayInvoice.InvoiceURL,
		Amount:     s.config.PremiumPrice,
	}, nil
}

// VerifyPayment polls the gateway for the payment's current status and
// applies the confirmation if it settled. Users call this from the
// post-checkout return page; it is safe to call any number of times.
func (s *Service) VerifyPayment(ctx context.Context, userID uuid.UUID, externalID string) (*VerifyResult, error) {
	payment, err := s.payments.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if payment.UserID() != userID {
		return nil, ErrPaymentOwnership
	}

	gatewayInvoice, err := s.gateway.GetInvoice(ctx, payment.GatewayInvoiceID())
	if err != nil {
		return nil, fmt.Errorf("fetching gateway invoice: %w", err)
	}

	return s.confirm(ctx, payment, gatewayInvoice.Status)
}

// HandleWebhook processes a gateway callback. Redeliveries upsert the
// payment by external ID and never compound the subscription.
func (s *Service) HandleWebhook(ctx context.Context, externalID string, status domain.PaymentStatus, amount decimal.Decimal) (*VerifyResult, error) {
	payment, err := s.payments.FindByExternalID(ctx, externalID)
	if errors.Is(err, domain.ErrPaymentNotFound) {
		// Checkout record lost or webhook raced its creation; recover the
		// owner from the external ID.
		userID, parseErr := ParseUpgradeExternalID(externalID)
		if parseErr != nil {
			return nil, parseErr
		}
		payment = domain.NewPayment(userID, externalID, "", "", amount)
	} else if err != nil {
		return nil, err
	}

	return s.confirm(ctx, payment, status)
}

func (s *Service) confirm(ctx context.Context, payment *domain.Payment, status domain.PaymentStatus) (*VerifyResult, error) {
	now := s.now()
	payment.UpdateStatus(status, now)

	outcome := domain.ConfirmationIgnoredNotPaid
	var change domain.SubscriptionChange

	if status.IsSettled() {
		plan, expiresAt, err := s.subscriptions.PlanFor(ctx, payment.UserID())
		if err != nil {
			return nil, err
		}
		change = domain.ApplyPaymentConfirmation(plan, expiresAt, status, now)
		outcome = change.Outcome
	}

	err := sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		if err := s.payments.Save(txCtx, payment); err != nil {
			return err
		}
		if outcome == domain.ConfirmationApplied {
			if err := s.subscriptions.ApplySubscriptionChange(txCtx, payment.UserID(), change); err != nil {
				return err
			}
		}
		return outbox.StageEvents(txCtx, s.outbox, payment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment confirmation processed",
		slog.String("external_id", payment.ExternalID()),
		slog.String("status", string(status)),
		slog.String("outcome", string(outcome)))

	return &VerifyResult{Status: payment.Status(), Outcome: outcome}, nil
}

// ListUserPayments returns the user's payment history.
func (s *Service) ListUserPayments(ctx context.Context, userID uuid.UUID) ([]*domain.Payment, error) {
	return s.payments.FindByUserID(ctx, userID)
}

// UpgradeExternalID builds the gateway external ID for an upgrade
// checkout: upgrade_{userID}_{unix}.
func UpgradeExternalID(userID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("upgrade_%s_%d", userID, now.Unix())
}

// ParseUpgradeExternalID recovers the user ID from an upgrade external ID.
func ParseUpgradeExternalID(externalID string) (uuid.UUID, error) {
	parts := strings.Split(externalID, "_")
	if len(parts) != 3 || parts[0] != "upgrade" {
		return uuid.Nil, ErrMalformedExternalID
	}
	userID, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, ErrMalformedExternalID
	}
	return userID, nil
}
