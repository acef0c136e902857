package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	identityDomain "github.com/fakturly/fakturly/internal/identity/domain"
	sharedApplication "github.com/fakturly/fakturly/internal/shared/application"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/outbox"
)

// ManualPremiumDuration is how long an admin-granted premium lasts.
// Longer than a paid upgrade, which runs 30 days.
const ManualPremiumDuration = 365 * 24 * time.Hour

// activeWindow is the lookback for the active-user stat.
const activeWindow = 30 * 24 * time.Hour

// InvoiceCounter reports platform-wide invoice volume.
type InvoiceCounter interface {
	CountInvoices(ctx context.Context) (int, error)
}

// RevenueSource reports settled payment volume.
type RevenueSource interface {
	TotalSettledAmount(ctx context.Context) (decimal.Decimal, error)
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalUsers    int             `json:"total_users"`
	PremiumUsers  int             `json:"premium_users"`
	FreeUsers     int             `json:"free_users"`
	ActiveUsers   int             `json:"active_users"`
	TotalInvoices int             `json:"total_invoices"`
	Revenue       decimal.Decimal `json:"revenue"`
}

// Service exposes the operator surface: platform stats, user search,
// manual plan overrides, and the payment ledger.
type Service struct {
	users    identityDomain.UserRepository
	payments billingDomain.PaymentRepository
	invoices InvoiceCounter
	revenue  RevenueSource
	outbox   outbox.Repository
	uow      sharedApplication.UnitOfWork
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates an admin Service.
func NewService(
	users identityDomain.UserRepository,
	payments billingDomain.PaymentRepository,
	invoices InvoiceCounter,
	revenue RevenueSource,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:    users,
		payments: payments,
		invoices: invoices,
		revenue:  revenue,
		outbox:   outboxRepo,
		uow:      uow,
		logger:   logger,
		now:      time.Now,
	}
}

// Stats assembles the dashboard summary.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.users.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	premium, err := s.users.CountByPlan(ctx, string(billingDomain.PlanPremium))
	if err != nil {
		return nil, err
	}
	active, err := s.users.CountActiveSince(ctx, s.now().Add(-activeWindow))
	if err != nil {
		return nil, err
	}
	invoiceCount, err := s.invoices.CountInvoices(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.revenue.TotalSettledAmount(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalUsers:    total,
		PremiumUsers:  premium,
		FreeUsers:     total - premium,
		ActiveUsers:   active,
		TotalInvoices: invoiceCount,
		Revenue:       revenue,
	}, nil
}

// SearchUsers returns a page of users matching the filter.
func (s *Service) SearchUsers(ctx context.Context, filter identityDomain.UserSearchFilter) ([]*identityDomain.User, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.users.Search(ctx, filter)
}

// OverridePlan manually moves a user between plans. Granting premium
// sets a one-year expiry; granting free clears the subscription.
func (s *Service) OverridePlan(ctx context.Context, userID uuid.UUID, plan billingDomain.Plan) (*identityDomain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		switch plan {
		case billingDomain.PlanPremium:
			user.Upgrade(s.now().Add(ManualPremiumDuration))
		case billingDomain.PlanFree:
			user.Downgrade()
		default:
			return fmt.Errorf("unknown plan %q", plan)
		}
		if err := s.users.Save(txCtx, user); err != nil {
			return err
		}
		return outbox.StageEvents(txCtx, s.outbox, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("plan override applied",
		slog.String("user_id", userID.String()),
		slog.String("plan", string(plan)))
	return user, nil
}

// ListPayments returns a page of the platform payment ledger.
func (s *Service) ListPayments(ctx context.Context, limit, offset int) ([]*billingDomain.Payment, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.payments.List(ctx, limit, offset)
}
