package roles

import (
	"cmp"
	"slices"

	"github.com/datastudio/warehouse-admin/internal/rbac"
)

// Role is a role with the permissions it grants.
type Role struct {
	rbac.Role
	Permissions []rbac.Permission `json:"permissions"`
}

// PermissionIDs returns the ids of the role's permissions.
func (r Role) PermissionIDs() []string {
	ids := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		ids = append(ids, p.ID)
	}
	return ids
}

// Payload creates or updates a role. Permissions replaces the whole set.
type Payload struct {
	Name        string   `json:"name" form:"name" validate:"required,max=50"`
	Description string   `json:"description" form:"description" validate:"max=255"`
	Permissions []string `json:"permissions" form:"permissions"`
}

// Label renders a permission the way the role form lists it.
func Label(p rbac.Permission) string {
	return p.Resource + ": " + p.Action
}

var actionOrder = map[string]int{
	rbac.ActionRead:   0,
	rbac.ActionCreate: 1,
	rbac.ActionUpdate: 2,
	rbac.ActionDelete: 3,
}

// SortPermissions orders permissions by resource, then read, create,
// update, delete.
func SortPermissions(perms []rbac.Permission) {
	slices.SortStableFunc(perms, func(a, b rbac.Permission) int {
		if c := cmp.Compare(a.Resource, b.Resource); c != 0 {
			return c
		}
		return cmp.Compare(rank(a.Action), rank(b.Action))
	})
}

func rank(action string) int {
	if n, ok := actionOrder[action]; ok {
		return n
	}
	return len(actionOrder)
}
