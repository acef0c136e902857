// Package notifications reacts to domain events with transactional email.
// It runs behind the event bus so a slow or failing mail relay never
// blocks the request path that produced the event.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	identityDomain "github.com/fakturly/fakturly/internal/identity/domain"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/eventbus"
)

// Mailer sends the subscription lifecycle notices.
type Mailer interface {
	SendSubscriptionActivated(ctx context.Context, to string, expiresAt time.Time) error
	SendSubscriptionExpired(ctx context.Context, to string) error
}

// SubscriptionConsumer mails users when their plan changes.
type SubscriptionConsumer struct {
	users  identityDomain.UserRepository
	mailer Mailer
	logger *slog.Logger
}

// NewSubscriptionConsumer creates a SubscriptionConsumer.
func NewSubscriptionConsumer(users identityDomain.UserRepository, mailer Mailer, logger *slog.Logger) *SubscriptionConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionConsumer{users: users, mailer: mailer, logger: logger}
}

// EventTypes returns the routing keys this consumer handles.
func (c *SubscriptionConsumer) EventTypes() []string {
	return []string{
		billingDomain.SubscriptionUpgradedKey,
		billingDomain.SubscriptionDowngradedKey,
	}
}

type subscriptionPayload struct {
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Handle processes a subscription event. Unknown users are skipped
// without error so the relay does not retry events for deleted accounts.
func (c *SubscriptionConsumer) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload subscriptionPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decoding subscription event: %w", err)
	}
	if payload.UserID == uuid.Nil {
		c.logger.Warn("subscription event without user id", "routing_key", event.RoutingKey)
		return nil
	}

	user, err := c.users.FindByID(ctx, payload.UserID)
	if err != nil {
		c.logger.Warn("skipping notice for unknown user",
			"user_id", payload.UserID,
			"routing_key", event.RoutingKey,
		)
		return nil
	}

	switch event.RoutingKey {
	case billingDomain.SubscriptionUpgradedKey:
		return c.mailer.SendSubscriptionActivated(ctx, user.Email().String(), payload.ExpiresAt)
	case billingDomain.SubscriptionDowngradedKey:
		return c.mailer.SendSubscriptionExpired(ctx, user.Email().String())
	default:
		return nil
	}
}
