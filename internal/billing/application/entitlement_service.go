package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fakturly/fakturly/internal/billing/domain"
)

// PlanSource exposes the stored plan state for a user. Implemented by the
// identity context; billing only sees the narrow read it needs.
type PlanSource interface {
	PlanFor(ctx context.Context, userID uuid.UUID) (domain.Plan, *time.Time, error)
}

// PlanDowngrader persists a lazy downgrade decided at read time.
type PlanDowngrader interface {
	PersistDowngrade(ctx context.Context, userID uuid.UUID) error
}

// ResourceCounter reports how many resources of a kind a user owns,
// observed immediately before a write.
type ResourceCounter interface {
	CountResources(ctx context.Context, userID uuid.UUID, kind domain.ResourceKind) (int, error)
}

// QuotaExceededError is returned when a free-tier quota denies a create.
type QuotaExceededError struct {
	Decision domain.Decision
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded: %d of %d used", e.Decision.Kind, e.Decision.CurrentCount, e.Decision.Limit)
}

// EntitlementService gates writes by plan and resolves plan state lazily.
type EntitlementService struct {
	plans      PlanSource
	downgrader PlanDowngrader
	counter    ResourceCounter
	now        func() time.Time
}

// NewEntitlementService creates an entitlement service.
func NewEntitlementService(plans PlanSource, downgrader PlanDowngrader, counter ResourceCounter) *EntitlementService {
	return &EntitlementService{
		plans:      plans,
		downgrader: downgrader,
		counter:    counter,
		now:        time.Now,
	}
}

// EffectivePlan resolves the user's plan against the clock. An expired
// premium plan is downgraded in storage as a side effect, so later reads
// see the settled state.
func (s *EntitlementService) EffectivePlan(ctx context.Context, userID uuid.UUID) (domain.Plan, error) {
	plan, expiresAt, err := s.plans.PlanFor(ctx, userID)
	if err != nil {
		return domain.PlanFree, err
	}

	resolved := domain.ResolveEffectivePlan(plan, expiresAt, s.now())
	if resolved.Downgraded {
		if err := s.downgrader.PersistDowngrade(ctx, userID); err != nil {
			return domain.PlanFree, fmt.Errorf("persisting downgrade: %w", err)
		}
	}
	return resolved.Plan, nil
}

// AuthorizeCreate checks the quota for creating one more resource of the
// given kind. Returns a QuotaExceededError on denial.
func (s *EntitlementService) AuthorizeCreate(ctx context.Context, userID uuid.UUID, kind domain.ResourceKind) error {
	plan, err := s.EffectivePlan(ctx, userID)
	if err != nil {
		return err
	}

	if plan == domain.PlanPremium {
		return nil
	}

	count, err := s.counter.CountResources(ctx, userID, kind)
	if err != nil {
		return err
	}

	decision := domain.AuthorizeCreate(kind, plan, count)
	if !decision.Allowed {
		return &QuotaExceededError{Decision: decision}
	}
	return nil
}

// CanEditField reports whether the user's plan allows editing a
// restricted invoice field.
func (s *EntitlementService) CanEditField(ctx context.Context, userID uuid.UUID, field domain.RestrictedField) (bool, error) {
	plan, err := s.EffectivePlan(ctx, userID)
	if err != nil {
		return false, err
	}
	return domain.AuthorizeFieldEdit(field, plan), nil
}
