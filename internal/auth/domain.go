package auth

import (
	"github.com/datastudio/warehouse-admin/internal/authstore"
	"github.com/datastudio/warehouse-admin/internal/rbac"
)

// LoginPayload is the body of POST /auth/login.
type LoginPayload struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// SignupPayload is the body of POST /auth/signup.
type SignupPayload struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	InitialRoleName string `json:"initialRoleName,omitempty"`
}

// Response is what the API returns on successful login or signup: the user
// with the already-flattened permission list.
type Response struct {
	User        *authstore.User   `json:"user"`
	Roles       []rbac.Role       `json:"roles"`
	Permissions []rbac.Permission `json:"permissions"`
}

// Auth converts the response into the session store's unit of replacement.
func (r Response) Auth() authstore.Auth {
	return authstore.Auth{User: r.User, Roles: r.Roles, Permissions: r.Permissions}
}
