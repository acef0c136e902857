package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	contactsDomain "github.com/fakturly/fakturly/internal/contacts/domain"
	identityDomain "github.com/fakturly/fakturly/internal/identity/domain"
	invoicingDomain "github.com/fakturly/fakturly/internal/invoicing/domain"
)

// subscriptionAdapter bridges billing's plan reads and writes onto the
// identity user aggregate. Billing never touches users directly; every
// plan mutation goes through the aggregate so domain events fire.
type subscriptionAdapter struct {
	users identityDomain.UserRepository
}

func (a *subscriptionAdapter) PlanFor(ctx context.Context, userID uuid.UUID) (billingDomain.Plan, *time.Time, error) {
	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		return billingDomain.PlanFree, nil, err
	}
	return user.Plan(), user.SubscriptionExpiresAt(), nil
}

func (a *subscriptionAdapter) PersistDowngrade(ctx context.Context, userID uuid.UUID) error {
	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	user.Downgrade()
	return a.users.Save(ctx, user)
}

func (a *subscriptionAdapter) ApplySubscriptionChange(ctx context.Context, userID uuid.UUID, change billingDomain.SubscriptionChange) error {
	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	user.ApplySubscriptionChange(change)
	return a.users.Save(ctx, user)
}

// resourceCounter answers quota checks by counting what the user already
// owns, right before the write.
type resourceCounter struct {
	contacts contactsDomain.ContactRepository
	invoices invoicingDomain.InvoiceRepository
}

func (c *resourceCounter) CountResources(ctx context.Context, userID uuid.UUID, kind billingDomain.ResourceKind) (int, error) {
	switch kind {
	case billingDomain.ResourceSellerContact:
		return c.contacts.CountByUserAndKind(ctx, userID, contactsDomain.KindSeller)
	case billingDomain.ResourceCustomerContact:
		return c.contacts.CountByUserAndKind(ctx, userID, contactsDomain.KindCustomer)
	default:
		return c.invoices.CountByUserID(ctx, userID)
	}
}
