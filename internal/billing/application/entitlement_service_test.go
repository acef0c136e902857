package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakturly/fakturly/internal/billing/domain"
)

type fakePlanSource struct {
	plan       domain.Plan
	expiresAt  *time.Time
	downgrades []uuid.UUID
	counts     map[domain.ResourceKind]int
}

func (s *fakePlanSource) PlanFor(ctx context.Context, userID uuid.UUID) (domain.Plan, *time.Time, error) {
	return s.plan, s.expiresAt, nil
}

func (s *fakePlanSource) PersistDowngrade(ctx context.Context, userID uuid.UUID) error {
	s.downgrades = append(s.downgrades, userID)
	s.plan = domain.PlanFree
	s.expiresAt = nil
	return nil
}

func (s *fakePlanSource) CountResources(ctx context.Context, userID uuid.UUID, kind domain.ResourceKind) (int, error) {
	return s.counts[kind], nil
}

func TestEntitlementService_EffectivePlanPersistsDowngrade(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	source := &fakePlanSource{plan: domain.PlanPremium, expiresAt: &expired}
	svc := NewEntitlementService(source, source, source)

	userID := uuid.New()
	plan, err := svc.EffectivePlan(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, domain.PlanFree, plan)
	assert.Equal(t, []uuid.UUID{userID}, source.downgrades)
}

func TestEntitlementService_ActivePremiumIsNotDowngraded(t *testing.T) {
	future := time.Now().Add(time.Hour)
	source := &fakePlanSource{plan: domain.PlanPremium, expiresAt: &future}
	svc := NewEntitlementService(source, source, source)

	plan, err := svc.EffectivePlan(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, domain.PlanPremium, plan)
	assert.Empty(t, source.downgrades)
}

func TestEntitlementService_AuthorizeCreate(t *testing.T) {
	source := &fakePlanSource{
		plan: domain.PlanFree,
		counts: map[domain.ResourceKind]int{
			domain.ResourceSellerContact: 1,
			domain.ResourceInvoice:       3,
		},
	}
	svc := NewEntitlementService(source, source, source)
	userID := uuid.New()

	err := svc.AuthorizeCreate(context.Background(), userID, domain.ResourceInvoice)
	assert.NoError(t, err)

	err = svc.AuthorizeCreate(context.Background(), userID, domain.ResourceSellerContact)
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, domain.ResourceSellerContact, quotaErr.Decision.Kind)
	assert.Equal(t, 1, quotaErr.Decision.Limit)
	assert.Equal(t, 1, quotaErr.Decision.CurrentCount)
}

func TestEntitlementService_PremiumSkipsCounting(t *testing.T) {
	future := time.Now().Add(time.Hour)
	source := &fakePlanSource{plan: domain.PlanPremium, expiresAt: &future}
	svc := NewEntitlementService(source, source, source)

	// counts map is nil; a premium user must never hit the counter.
	err := svc.AuthorizeCreate(context.Background(), uuid.New(), domain.ResourceInvoice)
	assert.NoError(t, err)
}

func TestEntitlementService_CanEditField(t *testing.T) {
	source := &fakePlanSource{plan: domain.PlanFree}
	svc := NewEntitlementService(source, source, source)

	ok, err := svc.CanEditField(context.Background(), uuid.New(), domain.FieldInvoiceNumber)
	require.NoError(t, err)
	assert.False(t, ok)

	future := time.Now().Add(time.Hour)
	source.plan = domain.PlanPremium
	source.expiresAt = &future

	ok, err = svc.CanEditField(context.Background(), uuid.New(), domain.FieldInvoiceNumber)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestQuotaExceededError_Message(t *testing.T) {
	err := &QuotaExceededError{Decision: domain.Decision{
		Kind:         domain.ResourceCustomerContact,
		Limit:        5,
		CurrentCount: 5,
	}}
	assert.Contains(t, err.Error(), "customer_contact")
	assert.Contains(t, err.Error(), "5 of 5")
}
