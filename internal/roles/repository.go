package roles

import (
	"context"
	"net/url"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/rbac"
)

// Repository manages roles through the remote API.
type Repository struct {
	client *apiclient.Client
}

// NewRepository constructs a repository.
func NewRepository(client *apiclient.Client) *Repository {
	return &Repository{client: client}
}

func rolePath(roleID string) string {
	return "/roles/" + url.PathEscape(roleID)
}

// List returns every role.
func (r *Repository) List(ctx context.Context, id apiclient.Identity) ([]rbac.Role, error) {
	var out []rbac.Role
	err := r.client.Get(ctx, id, "/roles", nil, &out)
	return out, err
}

// Permissions returns every permission a role can grant.
func (r *Repository) Permissions(ctx context.Context, id apiclient.Identity) ([]rbac.Permission, error) {
	var out []rbac.Permission
	err := r.client.Get(ctx, id, "/roles/permissions", nil, &out)
	return out, err
}

// Get fetches a role with its permissions.
func (r *Repository) Get(ctx context.Context, id apiclient.Identity, roleID string) (Role, error) {
	var out Role
	err := r.client.Get(ctx, id, rolePath(roleID), nil, &out)
	return out, err
}

// Create creates a role.
func (r *Repository) Create(ctx context.Context, id apiclient.Identity, payload Payload) (rbac.Role, error) {
	var out rbac.Role
	err := r.client.Post(ctx, id, "/roles", payload, &out)
	return out, err
}

// Update patches a role.
func (r *Repository) Update(ctx context.Context, id apiclient.Identity, roleID string, payload Payload) error {
	return r.client.Patch(ctx, id, rolePath(roleID), payload, nil)
}

// Delete removes a role.
func (r *Repository) Delete(ctx context.Context, id apiclient.Identity, roleID string) error {
	return r.client.Delete(ctx, id, rolePath(roleID), nil)
}
