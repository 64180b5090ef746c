package authz

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Permission is an opaque capability token from the closed vocabulary
// shared with server-side enforcement. Tokens are stable identifiers,
// not free text; the grouping below is documentation only.
type Permission = string

// Core platform permissions.
const (
	PermOverview = "overview"

	PermCustomerView   = "customer_view"
	PermCustomerCreate = "customer_create"
	PermCustomerEdit   = "customer_edit"
	PermCustomerDelete = "customer_delete"

	PermUserView   = "user_view"
	PermUserCreate = "user_create"
	PermUserEdit   = "user_edit"
	PermUserDelete = "user_delete"

	PermRoleView   = "role_view"
	PermRoleCreate = "role_create"
	PermRoleEdit   = "role_edit"
	PermRoleDelete = "role_delete"

	PermSystemSettings    = "system_settings"
	PermSystemMaintenance = "system_maintenance"
)

// Billing, analytics and audit permissions.
const (
	PermBillingView       = "billing_view"
	PermBillingManagement = "billing_management"
	PermPaymentView       = "payment_view"
	PermPaymentRecord     = "payment_record"
	PermPlanView          = "plan_view"
	PermPlanManagement    = "plan_management"

	PermAnalyticsView   = "analytics_view"
	PermAnalyticsExport = "analytics_export"

	PermAuditView   = "audit_view"
	PermAuditExport = "audit_export"
)

// Support, property-operations and tenant-portal permissions.
const (
	PermSupport        = "support"
	PermSupportView    = "support_view"
	PermSupportCreate  = "support_create"
	PermSupportRespond = "support_respond"
	PermSupportClose   = "support_close"

	PermPropertyView   = "property_view"
	PermPropertyCreate = "property_create"
	PermPropertyEdit   = "property_edit"
	PermPropertyDelete = "property_delete"

	PermMaintenanceView   = "maintenance_view"
	PermMaintenanceCreate = "maintenance_create"
	PermMaintenanceAssign = "maintenance_assign"
	PermMaintenanceClose  = "maintenance_close"

	PermTenantPortal   = "tenant_portal"
	PermTenantPayments = "tenant_payments"
	PermTenantRequests = "tenant_requests"
)

var vocabulary = []Permission{
	PermOverview,
	PermCustomerView, PermCustomerCreate, PermCustomerEdit, PermCustomerDelete,
	PermUserView, PermUserCreate, PermUserEdit, PermUserDelete,
	PermRoleView, PermRoleCreate, PermRoleEdit, PermRoleDelete,
	PermSystemSettings, PermSystemMaintenance,
	PermBillingView, PermBillingManagement,
	PermPaymentView, PermPaymentRecord,
	PermPlanView, PermPlanManagement,
	PermAnalyticsView, PermAnalyticsExport,
	PermAuditView, PermAuditExport,
	PermSupport, PermSupportView, PermSupportCreate, PermSupportRespond, PermSupportClose,
	PermPropertyView, PermPropertyCreate, PermPropertyEdit, PermPropertyDelete,
	PermMaintenanceView, PermMaintenanceCreate, PermMaintenanceAssign, PermMaintenanceClose,
	PermTenantPortal, PermTenantPayments, PermTenantRequests,
}

// Vocabulary returns the full permission vocabulary sorted for display.
func Vocabulary() []Permission {
	out := make([]Permission, len(vocabulary))
	copy(out, vocabulary)
	collate.New(language.English).SortStrings(out)
	return out
}

// Known reports whether the token belongs to the vocabulary.
func Known(p Permission) bool {
	_, ok := vocabularyIndex[p]
	return ok
}

var vocabularyIndex = func() map[Permission]struct{} {
	idx := make(map[Permission]struct{}, len(vocabulary))
	for _, p := range vocabulary {
		idx[p] = struct{}{}
	}
	return idx
}()
