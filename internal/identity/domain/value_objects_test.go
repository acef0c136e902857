package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmail(t *testing.T) {
	email, err := NewEmail("  User@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email.String())

	_, err = NewEmail("")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = NewEmail("not-an-email")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = NewEmail("missing@tld")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestEmailEquals(t *testing.T) {
	a, err := NewEmail("user@example.com")
	require.NoError(t, err)
	b, err := NewEmail("USER@example.com")
	require.NoError(t, err)

	assert.True(t, a.Equals(b))
}

func TestNewName(t *testing.T) {
	name, err := NewName("  Jane Doe  ")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", name.String())

	_, err = NewName("   ")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NewName(strings.Repeat("x", MaxNameLength+1))
	assert.ErrorIs(t, err, ErrNameTooLong)
}
