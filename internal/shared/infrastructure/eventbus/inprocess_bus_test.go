package eventbus

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConsumer struct {
	types  []string
	events []*ConsumedEvent
}

func (c *recordingConsumer) EventTypes() []string { return c.types }

func (c *recordingConsumer) Handle(ctx context.Context, event *ConsumedEvent) error {
	c.events = append(c.events, event)
	return nil
}

func TestInProcessEventBus_DispatchesToRegisteredConsumer(t *testing.T) {
	bus := NewInProcessEventBus(nil)
	consumer := &recordingConsumer{types: []string{"billing.payment.recorded"}}
	bus.RegisterConsumer(consumer)

	event := ConsumedEvent{
		EventID:       uuid.New(),
		AggregateID:   uuid.New(),
		AggregateType: "payment",
		RoutingKey:    "billing.payment.recorded",
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	err = bus.Publish(context.Background(), "billing.payment.recorded", payload)
	require.NoError(t, err)

	require.Len(t, consumer.events, 1)
	assert.Equal(t, event.EventID, consumer.events[0].EventID)
}

func TestInProcessEventBus_BareEventBodyBecomesPayload(t *testing.T) {
	bus := NewInProcessEventBus(nil)
	consumer := &recordingConsumer{types: []string{"billing.subscription.upgraded"}}
	bus.RegisterConsumer(consumer)

	body := []byte(`{"user_id":"` + uuid.NewString() + `"}`)
	err := bus.Publish(context.Background(), "billing.subscription.upgraded", body)
	require.NoError(t, err)

	require.Len(t, consumer.events, 1)
	assert.Equal(t, "billing.subscription.upgraded", consumer.events[0].RoutingKey)
	assert.JSONEq(t, string(body), string(consumer.events[0].Payload))
}

func TestInProcessEventBus_NoConsumersIsNotAnError(t *testing.T) {
	bus := NewInProcessEventBus(nil)

	err := bus.Publish(context.Background(), "identity.user.registered", []byte(`{}`))
	assert.NoError(t, err)
}

func TestInProcessEventBus_MalformedPayloadIsSkipped(t *testing.T) {
	bus := NewInProcessEventBus(nil)
	consumer := &recordingConsumer{types: []string{"invoicing.invoice.created"}}
	bus.RegisterConsumer(consumer)

	err := bus.Publish(context.Background(), "invoicing.invoice.created", []byte(`not json`))
	assert.NoError(t, err)
	assert.Empty(t, consumer.events)
}

func TestConsumerRegistry_CountsConsumers(t *testing.T) {
	registry := NewConsumerRegistry(nil)
	registry.Register(&recordingConsumer{types: []string{"a", "b"}})
	registry.Register(&recordingConsumer{types: []string{"a"}})

	assert.Equal(t, 3, registry.ConsumerCount())
	assert.Len(t, registry.GetConsumers("a"), 2)
	assert.Len(t, registry.GetConsumers("b"), 1)
}
