package users

import "github.com/datastudio/warehouse-admin/internal/rbac"

// PageSize is the user list page size.
const PageSize = 20

// User is an account as listed in the admin area.
type User struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	IsActive bool        `json:"is_active"`
	Roles    []rbac.Role `json:"roles"`
}

// RoleNames returns the names of the user's roles.
func (u User) RoleNames() []string {
	return roleNames(u.Roles)
}

// Account is a single user with roles and effective permissions.
type Account struct {
	User        User              `json:"user"`
	Roles       []rbac.Role       `json:"roles"`
	Permissions []rbac.Permission `json:"permissions"`
}

// CreatePayload creates a user.
type CreatePayload struct {
	Username string   `json:"username" form:"username" validate:"required,min=3,max=50"`
	Email    string   `json:"email" form:"email" validate:"required,email"`
	Password string   `json:"password" form:"password" validate:"required,min=8"`
	Roles    []string `json:"roles,omitempty" form:"roles"`
}

// UpdatePayload edits a user. Nil fields are left unchanged.
type UpdatePayload struct {
	Username string `json:"username,omitempty" form:"username" validate:"required,min=3,max=50"`
	IsActive *bool  `json:"is_active,omitempty" form:"is_active"`
}

// PasswordPayload changes the signed-in user's password.
type PasswordPayload struct {
	OldPassword string `json:"oldPassword" form:"old_password" validate:"required"`
	NewPassword string `json:"newPassword" form:"new_password" validate:"required,min=8,nefield=OldPassword"`
	Confirm     string `json:"-" form:"confirm_password" validate:"eqfield=NewPassword"`
}

// RoleChanges is the difference between a user's roles and the wanted set.
type RoleChanges struct {
	Assign []string
	Remove []string
}

// Empty reports whether nothing changes.
func (c RoleChanges) Empty() bool {
	return len(c.Assign) == 0 && len(c.Remove) == 0
}

// DiffRoles compares current and wanted role names, keeping wanted order.
func DiffRoles(current, wanted []string) RoleChanges {
	have := make(map[string]bool, len(current))
	for _, name := range current {
		have[name] = true
	}
	want := make(map[string]bool, len(wanted))
	var c RoleChanges
	for _, name := range wanted {
		if want[name] {
			continue
		}
		want[name] = true
		if !have[name] {
			c.Assign = append(c.Assign, name)
		}
	}
	for _, name := range current {
		if !want[name] {
			c.Remove = append(c.Remove, name)
		}
	}
	return c
}
