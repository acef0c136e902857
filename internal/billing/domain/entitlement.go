package domain

// ResourceKind identifies a quota-limited resource.
type ResourceKind string

const (
	ResourceSellerContact   ResourceKind = "seller_contact"
	ResourceCustomerContact ResourceKind = "customer_contact"
	ResourceInvoice         ResourceKind = "invoice"
)

// freePlanQuotas is the per-resource ceiling for the free tier.
// Premium has no quotas.
var freePlanQuotas = map[ResourceKind]int{
	ResourceSellerContact:   1,
	ResourceCustomerContact: 5,
	ResourceInvoice:         30,
}

// QuotaFor returns the free-tier limit for a resource kind. The second
// return value is false for unknown kinds.
func QuotaFor(kind ResourceKind) (int, bool) {
	limit, ok := freePlanQuotas[kind]
	return limit, ok
}

// RestrictedField identifies an invoice field that only premium users may edit.
type RestrictedField string

const (
	FieldInvoiceHeaderTitle RestrictedField = "invoice_header_title"
	FieldInvoiceNumber      RestrictedField = "invoice_number"
)

// Decision is the outcome of an entitlement check. A denial carries the
// resource kind, the quota, and the count observed at check time so the
// caller can build a user-facing message.
type Decision struct {
	Allowed      bool
	Kind         ResourceKind
	Limit        int
	CurrentCount int
}

// Allow returns a permitting decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// AuthorizeCreate decides whether creating one more resource of the given
// kind is permitted. Premium is unlimited; free is capped by the quota
// table. The count is whatever the caller observed immediately before the
// write, so two concurrent creates can both pass the check — an accepted
// race, not a hard cap.
func AuthorizeCreate(kind ResourceKind, effectivePlan Plan, currentCount int) Decision {
	if effectivePlan == PlanPremium {
		return Allow()
	}

	limit, ok := freePlanQuotas[kind]
	if !ok {
		return Allow()
	}

	if currentCount < limit {
		return Allow()
	}

	return Decision{
		Allowed:      false,
		Kind:         kind,
		Limit:        limit,
		CurrentCount: currentCount,
	}
}

// AuthorizeFieldEdit decides whether a restricted invoice field may be
// edited. Free-tier users always get system-assigned values.
func AuthorizeFieldEdit(field RestrictedField, effectivePlan Plan) bool {
	switch field {
	case FieldInvoiceHeaderTitle, FieldInvoiceNumber:
		return effectivePlan == PlanPremium
	default:
		return true
	}
}
