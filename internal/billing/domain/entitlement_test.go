package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorizeCreate_FreeQuotas(t *testing.T) {
	tests := []struct {
		name    string
		kind    ResourceKind
		count   int
		allowed bool
		limit   int
	}{
		{name: "seller contact under limit", kind: ResourceSellerContact, count: 0, allowed: true},
		{name: "seller contact at limit", kind: ResourceSellerContact, count: 1, allowed: false, limit: 1},
		{name: "customer contact under limit", kind: ResourceCustomerContact, count: 4, allowed: true},
		{name: "customer contact at limit", kind: ResourceCustomerContact, count: 5, allowed: false, limit: 5},
		{name: "customer contact over limit", kind: ResourceCustomerContact, count: 7, allowed: false, limit: 5},
		{name: "invoice under limit", kind: ResourceInvoice, count: 29, allowed: true},
		{name: "invoice at limit", kind: ResourceInvoice, count: 30, allowed: false, limit: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := AuthorizeCreate(tt.kind, PlanFree, tt.count)
			assert.Equal(t, tt.allowed, decision.Allowed)
			if !tt.allowed {
				assert.Equal(t, tt.kind, decision.Kind)
				assert.Equal(t, tt.limit, decision.Limit)
				assert.Equal(t, tt.count, decision.CurrentCount)
			}
		})
	}
}

func TestAuthorizeCreate_PremiumIsUnlimited(t *testing.T) {
	decision := AuthorizeCreate(ResourceInvoice, PlanPremium, 10000)
	assert.True(t, decision.Allowed)

	decision = AuthorizeCreate(ResourceSellerContact, PlanPremium, 50)
	assert.True(t, decision.Allowed)
}

func TestAuthorizeCreate_UnknownKindIsAllowed(t *testing.T) {
	decision := AuthorizeCreate(ResourceKind("widget"), PlanFree, 999)
	assert.True(t, decision.Allowed)
}

func TestAuthorizeFieldEdit(t *testing.T) {
	assert.False(t, AuthorizeFieldEdit(FieldInvoiceNumber, PlanFree))
	assert.False(t, AuthorizeFieldEdit(FieldInvoiceHeaderTitle, PlanFree))
	assert.True(t, AuthorizeFieldEdit(FieldInvoiceNumber, PlanPremium))
	assert.True(t, AuthorizeFieldEdit(FieldInvoiceHeaderTitle, PlanPremium))
}

func TestQuotaFor(t *testing.T) {
	limit, ok := QuotaFor(ResourceSellerContact)
	assert.True(t, ok)
	assert.Equal(t, 1, limit)

	limit, ok = QuotaFor(ResourceCustomerContact)
	assert.True(t, ok)
	assert.Equal(t, 5, limit)

	limit, ok = QuotaFor(ResourceInvoice)
	assert.True(t, ok)
	assert.Equal(t, 30, limit)

	_, ok = QuotaFor(ResourceKind("widget"))
	assert.False(t, ok)
}
