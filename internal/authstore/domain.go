package authstore

import "github.com/datastudio/warehouse-admin/internal/rbac"

// User is the authenticated account as reported by the remote API.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// Auth is the payload written by SetAuth. All three fields travel together.
type Auth struct {
	User        *User             `json:"user"`
	Roles       []rbac.Role       `json:"roles"`
	Permissions []rbac.Permission `json:"permissions"`
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	User        *User             `json:"user"`
	Roles       []rbac.Role       `json:"roles"`
	Permissions []rbac.Permission `json:"permissions"`
}

// IsAuthenticated implements rbac.Principal.
func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil
}

// Grants implements rbac.Principal.
func (s Snapshot) Grants() []rbac.Permission {
	return s.Permissions
}

// Can evaluates a single permission against the snapshot.
func (s Snapshot) Can(resource, action string) bool {
	return rbac.HasPermission(s.Permissions, resource, action)
}

// Empty returns the signed-out snapshot. Slices are non-nil so the persisted
// form is `[]` rather than `null`.
func Empty() Snapshot {
	return Snapshot{Roles: []rbac.Role{}, Permissions: []rbac.Permission{}}
}

// normalize enforces the invariant that an absent user carries no roles or
// permissions.
func normalize(s Snapshot) Snapshot {
	if s.User == nil {
		return Empty()
	}
	if s.Roles == nil {
		s.Roles = []rbac.Role{}
	}
	if s.Permissions == nil {
		s.Permissions = []rbac.Permission{}
	}
	return s
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Roles:       append([]rbac.Role{}, s.Roles...),
		Permissions: append([]rbac.Permission{}, s.Permissions...),
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}

var _ rbac.Principal = Snapshot{}
