package users

import (
	"context"
	"net/url"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

// Repository manages users through the remote API.
type Repository struct {
	client *apiclient.Client
}

// NewRepository constructs a repository.
func NewRepository(client *apiclient.Client) *Repository {
	return &Repository{client: client}
}

func userPath(userID string, rest ...string) string {
	p := "/users/" + url.PathEscape(userID)
	for _, part := range rest {
		p += "/" + part
	}
	return p
}

// List returns one page of users with their roles.
func (r *Repository) List(ctx context.Context, id apiclient.Identity, page, pageSize int) (shared.ListResponse[User], error) {
	var out shared.ListResponse[User]
	err := r.client.Get(ctx, id, "/users", shared.PageQuery(page, pageSize), &out)
	return out, err
}

// Get fetches one user with roles and permissions.
func (r *Repository) Get(ctx context.Context, id apiclient.Identity, userID string) (Account, error) {
	var out Account
	err := r.client.Get(ctx, id, userPath(userID), nil, &out)
	return out, err
}

// Create creates a user.
func (r *Repository) Create(ctx context.Context, id apiclient.Identity, payload CreatePayload) (User, error) {
	var out User
	err := r.client.Post(ctx, id, "/users", payload, &out)
	return out, err
}

// Update patches a user.
func (r *Repository) Update(ctx context.Context, id apiclient.Identity, userID string, payload UpdatePayload) error {
	return r.client.Patch(ctx, id, userPath(userID), payload, nil)
}

// AssignRole grants a role by name.
func (r *Repository) AssignRole(ctx context.Context, id apiclient.Identity, userID, roleName string) error {
	return r.client.Post(ctx, id, userPath(userID, "roles"), map[string]string{"roleName": roleName}, nil)
}

// RemoveRole revokes a role by name.
func (r *Repository) RemoveRole(ctx context.Context, id apiclient.Identity, userID, roleName string) error {
	return r.client.Delete(ctx, id, userPath(userID, "roles", url.PathEscape(roleName)), nil)
}

// Deactivate disables a user.
func (r *Repository) Deactivate(ctx context.Context, id apiclient.Identity, userID string) error {
	return r.client.Patch(ctx, id, userPath(userID, "deactivate"), nil, nil)
}

// Reactivate re-enables a user.
func (r *Repository) Reactivate(ctx context.Context, id apiclient.Identity, userID string) error {
	return r.client.Post(ctx, id, userPath(userID, "reactivate"), nil, nil)
}

// ChangePassword changes a user's password.
func (r *Repository) ChangePassword(ctx context.Context, id apiclient.Identity, userID string, payload PasswordPayload) error {
	return r.client.Patch(ctx, id, userPath(userID, "password"), payload, nil)
}

// Roles lists every role for the role pickers.
func (r *Repository) Roles(ctx context.Context, id apiclient.Identity) ([]rbac.Role, error) {
	var out []rbac.Role
	err := r.client.Get(ctx, id, "/roles", nil, &out)
	return out, err
}
