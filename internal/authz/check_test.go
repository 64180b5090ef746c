package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckEmptyGrantsAlwaysDeny(t *testing.T) {
	empty := NewSet()
	assert.False(t, Check(empty, Any(PermOverview)))
	assert.False(t, Check(empty, All(PermOverview)))
	assert.False(t, Check(empty, Requirement{}))
	assert.False(t, CheckOne(empty, PermCustomerView))
}

func TestCheckAnyAndAll(t *testing.T) {
	granted := NewSet(PermCustomerView, PermPaymentView)

	assert.True(t, Check(granted, Any(PermCustomerView, PermBillingView)))
	assert.False(t, Check(granted, All(PermCustomerView, PermBillingView)))
	assert.True(t, Check(granted, All(PermCustomerView, PermPaymentView)))
	assert.False(t, Check(granted, Any(PermBillingView, PermRoleEdit)))
}

// Whatever passes an all-of requirement must also pass the same
// requirement with any-of semantics.
func TestCheckAllImpliesAny(t *testing.T) {
	grants := []Set{
		NewSet(),
		NewSet(PermCustomerView),
		NewSet(PermCustomerView, PermBillingView),
		NewSet(vocabulary...),
	}
	requirements := [][]Permission{
		{PermCustomerView},
		{PermCustomerView, PermBillingView},
		{PermRoleEdit, PermRoleDelete, PermSystemSettings},
	}
	for _, g := range grants {
		for _, req := range requirements {
			if Check(g, All(req...)) {
				assert.True(t, Check(g, Any(req...)))
			}
		}
	}
}

func TestCheckCaseInsensitive(t *testing.T) {
	granted := NewSet("Customer_View")
	assert.True(t, CheckOne(granted, "customer_view"))
	assert.True(t, CheckOne(granted, "CUSTOMER_VIEW"))
}

func TestFilter(t *testing.T) {
	type navItem struct {
		label string
		req   Requirement
	}
	items := []navItem{
		{label: "Overview", req: Any(PermOverview)},
		{label: "Billing", req: Any(PermBillingView, PermBillingManagement)},
		{label: "Roles", req: All(PermRoleView, PermRoleEdit)},
	}
	granted := NewSet(PermOverview, PermRoleView)

	got := Filter(granted, items, func(i navItem) Requirement { return i.req })
	labels := make([]string, 0, len(got))
	for _, i := range got {
		labels = append(labels, i.label)
	}
	assert.Equal(t, []string{"Overview"}, labels)
}

func TestVocabularySortedAndClosed(t *testing.T) {
	vocab := Vocabulary()
	assert.Len(t, vocab, len(vocabulary))
	assert.True(t, Known(PermCustomerView))
	assert.False(t, Known("made_up_token"))
	for i := 1; i < len(vocab); i++ {
		assert.LessOrEqual(t, vocab[i-1], vocab[i])
	}
}
