package outbox

import (
	"context"

	"github.com/fakturly/fakturly/internal/shared/domain"
)

// eventCarrier is any aggregate that records domain events.
type eventCarrier interface {
	DomainEvents() []domain.DomainEvent
	ClearDomainEvents()
}

// StageEvents converts an aggregate's recorded events into outbox messages
// and saves them in the caller's transaction, then clears the aggregate.
// Call this after the aggregate itself has been saved, inside the same
// unit of work, so events and state commit atomically.
func StageEvents(ctx context.Context, repo Repository, aggregate eventCarrier) error {
	events := aggregate.DomainEvents()
	if len(events) == 0 {
		return nil
	}

	msgs := make([]*Message, 0, len(events))
	for _, event := range events {
		msg, err := NewMessage(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := repo.SaveBatch(ctx, msgs); err != nil {
		return err
	}

	aggregate.ClearDomainEvents()
	return nil
}
