package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

// Common errors
var (
	ErrInvalidID         = errors.New("role id is required")
	ErrUnknownPermission = errors.New("unknown permission")
)

// RepositoryPort defines the remote API calls for roles.
type RepositoryPort interface {
	List(ctx context.Context, id apiclient.Identity) ([]rbac.Role, error)
	Permissions(ctx context.Context, id apiclient.Identity) ([]rbac.Permission, error)
	Get(ctx context.Context, id apiclient.Identity, roleID string) (Role, error)
	Create(ctx context.Context, id apiclient.Identity, payload Payload) (rbac.Role, error)
	Update(ctx context.Context, id apiclient.Identity, roleID string, payload Payload) error
	Delete(ctx context.Context, id apiclient.Identity, roleID string) error
}

// Service handles role business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: shared.NewValidator()}
}

// Roles returns all roles.
func (s *Service) Roles(ctx context.Context, id apiclient.Identity) ([]rbac.Role, error) {
	return s.repo.List(ctx, id)
}

// Role fetches one role with its permissions.
func (s *Service) Role(ctx context.Context, id apiclient.Identity, roleID string) (Role, error) {
	if roleID == "" {
		return Role{}, ErrInvalidID
	}
	return s.repo.Get(ctx, id, roleID)
}

// Permissions returns the grantable permissions in display order.
func (s *Service) Permissions(ctx context.Context, id apiclient.Identity) ([]rbac.Permission, error) {
	perms, err := s.repo.Permissions(ctx, id)
	if err != nil {
		return nil, err
	}
	SortPermissions(perms)
	return perms, nil
}

// Create validates and creates a role.
func (s *Service) Create(ctx context.Context, id apiclient.Identity, payload Payload) (rbac.Role, error) {
	payload, err := s.prepare(ctx, id, payload)
	if err != nil {
		return rbac.Role{}, err
	}
	return s.repo.Create(ctx, id, payload)
}

// Update validates and replaces a role's name, description and permissions.
func (s *Service) Update(ctx context.Context, id apiclient.Identity, roleID string, payload Payload) error {
	if roleID == "" {
		return ErrInvalidID
	}
	payload, err := s.prepare(ctx, id, payload)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, id, roleID, payload)
}

// Delete removes a role.
func (s *Service) Delete(ctx context.Context, id apiclient.Identity, roleID string) error {
	if roleID == "" {
		return ErrInvalidID
	}
	return s.repo.Delete(ctx, id, roleID)
}

// prepare validates payload and checks every permission id against the
// catalogue. Duplicate ids are collapsed.
func (s *Service) prepare(ctx context.Context, id apiclient.Identity, payload Payload) (Payload, error) {
	if err := shared.Validate(s.validate, payload); err != nil {
		return payload, err
	}
	ids := make([]string, 0, len(payload.Permissions))
	seen := make(map[string]bool, len(payload.Permissions))
	for _, pid := range payload.Permissions {
		if !seen[pid] {
			seen[pid] = true
			ids = append(ids, pid)
		}
	}
	payload.Permissions = ids
	if len(ids) == 0 {
		return payload, nil
	}
	known, err := s.repo.Permissions(ctx, id)
	if err != nil {
		return payload, err
	}
	valid := make(map[string]bool, len(known))
	for _, p := range known {
		valid[p.ID] = true
	}
	for _, pid := range ids {
		if !valid[pid] {
			return payload, fmt.Errorf("%w %q", ErrUnknownPermission, pid)
		}
	}
	return payload, nil
}
