package rbac

import "strings"

// Permission is an atomic capability granted by the remote API.
type Permission struct {
	ID       string `json:"id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// Role represents a named bundle of permissions. The console never expands
// roles itself; it receives the flattened permission list on login.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Check is a resource:action requirement.
type Check struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// Need builds a Check.
func Need(resource, action string) Check {
	return Check{Resource: resource, Action: action}
}

// String renders the check as resource:action.
func (c Check) String() string {
	return c.Resource + ":" + c.Action
}

// ParseCheck parses a resource:action string.
func ParseCheck(raw string) (Check, bool) {
	resource, action, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || resource == "" || action == "" {
		return Check{}, false
	}
	return Check{Resource: resource, Action: action}, true
}

// Principal describes the actor a guard evaluates.
type Principal interface {
	IsAuthenticated() bool
	Grants() []Permission
}

// Resources known to the console.
const (
	ResourceProducts       = "products"
	ResourceSuppliers      = "suppliers"
	ResourcePurchaseOrders = "purchase_orders"
	ResourceDispatches     = "dispatches"
	ResourceReports        = "reports"
	ResourceUsers          = "users"
	ResourceRoles          = "roles"
)

// Actions known to the console.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)
