package audit

import "slices"

// Action identifies a security-relevant event. The set of actions is
// closed: recording an unregistered action fails validation, so extending
// the taxonomy means adding a constant here, not inventing strings at call
// sites.
type Action string

// Category groups actions for filtering and UI presentation.
type Category string

const (
	CategoryAuthentication Category = "authentication"
	CategoryIdentity       Category = "identity"
	CategoryAPI            Category = "api"
	CategoryData           Category = "data"
	CategoryBilling        Category = "billing"
)

// Authentication actions.
const (
	ActionLogin           Action = "login"
	ActionLoginFailed     Action = "login_failed"
	ActionPasswordChanged Action = "password_changed"
	ActionTwoFAEnabled    Action = "2fa_enabled"
	ActionTwoFADisabled   Action = "2fa_disabled"
	ActionTwoFAFailed     Action = "2fa_failed"
	ActionTwoFARecovery   Action = "2fa_recovery_codes_regenerated"
)

// Identity and user management actions.
const (
	ActionUserCreated Action = "user_created"
	ActionUserUpdated Action = "user_updated"
	ActionUserDeleted Action = "user_deleted"
	ActionUserInvited Action = "user_invited"
	ActionRoleChanged Action = "role_changed"
)

// API key and webhook actions.
const (
	ActionAPIKeyCreated    Action = "api_key.created"
	ActionAPIKeyUpdated    Action = "api_key.updated"
	ActionAPIKeyRevoked    Action = "api_key.revoked"
	ActionAPIKeyDeleted    Action = "api_key.deleted"
	ActionAPIKeyAuthFailed Action = "api_key.auth_failed"
	ActionWebhookCreated   Action = "webhook.created"
	ActionWebhookDeleted   Action = "webhook.deleted"
)

// Data mutation actions.
const (
	ActionDataCreated  Action = "data_created"
	ActionDataUpdated  Action = "data_updated"
	ActionDataDeleted  Action = "data_deleted"
	ActionDataExported Action = "data_exported"
)

// Billing actions.
const (
	ActionPlanChanged   Action = "billing.plan_changed"
	ActionPaymentFailed Action = "billing.payment_failed"
)

// registry maps every known action to its category. Validation and the
// enumeration endpoints are driven from this single table.
var registry = map[Action]Category{
	ActionLogin:           CategoryAuthentication,
	ActionLoginFailed:     CategoryAuthentication,
	ActionPasswordChanged: CategoryAuthentication,
	ActionTwoFAEnabled:    CategoryAuthentication,
	ActionTwoFADisabled:   CategoryAuthentication,
	ActionTwoFAFailed:     CategoryAuthentication,
	ActionTwoFARecovery:   CategoryAuthentication,

	ActionUserCreated: CategoryIdentity,
	ActionUserUpdated: CategoryIdentity,
	ActionUserDeleted: CategoryIdentity,
	ActionUserInvited: CategoryIdentity,
	ActionRoleChanged: CategoryIdentity,

	ActionAPIKeyCreated:    CategoryAPI,
	ActionAPIKeyUpdated:    CategoryAPI,
	ActionAPIKeyRevoked:    CategoryAPI,
	ActionAPIKeyDeleted:    CategoryAPI,
	ActionAPIKeyAuthFailed: CategoryAPI,
	ActionWebhookCreated:   CategoryAPI,
	ActionWebhookDeleted:   CategoryAPI,

	ActionDataCreated:  CategoryData,
	ActionDataUpdated:  CategoryData,
	ActionDataDeleted:  CategoryData,
	ActionDataExported: CategoryData,

	ActionPlanChanged:   CategoryBilling,
	ActionPaymentFailed: CategoryBilling,
}

// securityActions is the fixed subset surfaced by the security-activity
// view: everything that changes or probes the trust state of an account.
var securityActions = []Action{
	ActionLogin,
	ActionLoginFailed,
	ActionPasswordChanged,
	ActionTwoFAEnabled,
	ActionTwoFADisabled,
	ActionTwoFAFailed,
	ActionTwoFARecovery,
	ActionRoleChanged,
	ActionAPIKeyCreated,
	ActionAPIKeyRevoked,
	ActionAPIKeyDeleted,
	ActionAPIKeyAuthFailed,
}

// Valid reports whether the action is part of the closed taxonomy.
func (a Action) Valid() bool {
	_, ok := registry[a]
	return ok
}

// Category returns the category the action belongs to, or the empty
// category for unregistered actions.
func (a Action) Category() Category {
	return registry[a]
}

// Actions enumerates the full taxonomy grouped by category, for populating
// UI filters. The result is a fresh copy on every call.
func Actions() map[Category][]Action {
	out := make(map[Category][]Action)
	for action, category := range registry {
		out[category] = append(out[category], action)
	}
	for _, actions := range out {
		slices.Sort(actions)
	}
	return out
}

// SecurityActions returns the fixed subset of security-relevant actions.
func SecurityActions() []Action {
	return slices.Clone(securityActions)
}
