package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContact(t *testing.T) {
	userID := uuid.New()
	c, err := NewContact(userID, KindSeller, "Acme Studio", "billing@acme.test", "+62 811", "Jl. Sudirman 1")
	require.NoError(t, err)

	assert.Equal(t, userID, c.UserID())
	assert.Equal(t, KindSeller, c.Kind())
	assert.Equal(t, "Acme Studio", c.Name())
	assert.True(t, c.BelongsTo(userID))
	assert.False(t, c.BelongsTo(uuid.New()))

	events := c.DomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, ContactCreatedKey, events[0].RoutingKey())
}

func TestNewContact_Validation(t *testing.T) {
	_, err := NewContact(uuid.New(), Kind("vendor"), "Acme", "", "", "")
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = NewContact(uuid.New(), KindCustomer, "", "", "", "")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestContact_Update(t *testing.T) {
	c, err := NewContact(uuid.New(), KindCustomer, "Customer Co", "", "", "")
	require.NoError(t, err)
	c.ClearDomainEvents()

	require.NoError(t, c.Update("Customer Co Ltd", "finance@customer.test", "+62 812", "Jl. Thamrin 2"))
	assert.Equal(t, "Customer Co Ltd", c.Name())
	assert.Equal(t, "finance@customer.test", c.Email())

	events := c.DomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, ContactUpdatedKey, events[0].RoutingKey())

	assert.ErrorIs(t, c.Update("", "", "", ""), ErrEmptyName)
}
