package users

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
	ErrInvalidID      = errors.New("user id is required")
	ErrSelfDeactivate = errors.New("you cannot deactivate your own account")
	ErrNotSignedIn    = errors.New("sign in to change your password")
	ErrUnknownRole    = errors.New("unknown role")
)

// RepositoryPort is the remote API surface the service needs.
type RepositoryPort interface {
	List(ctx context.Context, id apiclient.Identity, page, pageSize int) (shared.ListResponse[User], error)
	Get(ctx context.Context, id apiclient.Identity, userID string) (Account, error)
	Create(ctx context.Context, id apiclient.Identity, payload CreatePayload) (User, error)
	Update(ctx context.Context, id apiclient.Identity, userID string, payload UpdatePayload) error
	AssignRole(ctx context.Context, id apiclient.Identity, userID, roleName string) error
	RemoveRole(ctx context.Context, id apiclient.Identity, userID, roleName string) error
	Deactivate(ctx context.Context, id apiclient.Identity, userID string) error
	Reactivate(ctx context.Context, id apiclient.Identity, userID string) error
	ChangePassword(ctx context.Context, id apiclient.Identity, userID string, payload PasswordPayload) error
	Roles(ctx context.Context, id apiclient.Identity) ([]rbac.Role, error)
}

// Service handles user administration.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService constructs a user service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: shared.NewValidator()}
}

// Users lists one page of users.
func (s *Service) Users(ctx context.Context, id apiclient.Identity, page int) (shared.ListResponse[User], error) {
	return s.repo.List(ctx, id, page, PageSize)
}

// User fetches one user.
func (s *Service) User(ctx context.Context, id apiclient.Identity, userID string) (Account, error) {
	if userID == "" {
		return Account{}, ErrInvalidID
	}
	return s.repo.Get(ctx, id, userID)
}

// Roles lists the assignable roles.
func (s *Service) Roles(ctx context.Context, id apiclient.Identity) ([]rbac.Role, error) {
	return s.repo.Roles(ctx, id)
}

// Create validates and creates a user.
func (s *Service) Create(ctx context.Context, id apiclient.Identity, payload CreatePayload) (User, error) {
	if err := shared.Validate(s.validate, payload); err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, id, payload)
}

// Rename changes a user's username.
func (s *Service) Rename(ctx context.Context, id apiclient.Identity, userID, username string) error {
	if userID == "" {
		return ErrInvalidID
	}
	payload := UpdatePayload{Username: username}
	if err := shared.Validate(s.validate, payload); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, userID, payload)
}

// SetActive deactivates or reactivates a user. Nobody can deactivate
// themselves.
func (s *Service) SetActive(ctx context.Context, id apiclient.Identity, userID string, active bool) error {
	if userID == "" {
		return ErrInvalidID
	}
	if active {
		return s.repo.Reactivate(ctx, id, userID)
	}
	if id != nil && id.UserID() == userID {
		return ErrSelfDeactivate
	}
	return s.repo.Deactivate(ctx, id, userID)
}

// SetRoles makes the user's roles match wanted by assigning the missing
// roles and then removing the extra ones. It stops at the first failure and
// returns the changes that were requested.
func (s *Service) SetRoles(ctx context.Context, id apiclient.Identity, userID string, current, wanted []string) (RoleChanges, error) {
	if userID == "" {
		return RoleChanges{}, ErrInvalidID
	}
	changes := DiffRoles(current, wanted)
	if changes.Empty() {
		return changes, nil
	}
	if len(changes.Assign) > 0 {
		known, err := s.repo.Roles(ctx, id)
		if err != nil {
			return changes, err
		}
		names := make(map[string]bool, len(known))
		for _, r := range known {
			names[r.Name] = true
		}
		for _, name := range changes.Assign {
			if !names[name] {
				return changes, fmt.Errorf("%w %q", ErrUnknownRole, name)
			}
		}
	}
	for _, name := range changes.Assign {
		if err := s.repo.AssignRole(ctx, id, userID, name); err != nil {
			return changes, err
		}
	}
	for _, name := range changes.Remove {
		if err := s.repo.RemoveRole(ctx, id, userID, name); err != nil {
			return changes, err
		}
	}
	return changes, nil
}

// ChangePassword changes the signed-in user's own password.
func (s *Service) ChangePassword(ctx context.Context, id apiclient.Identity, payload PasswordPayload) error {
	if id == nil || id.UserID() == "" {
		return ErrNotSignedIn
	}
	if err := shared.Validate(s.validate, payload); err != nil {
		return err
	}
	return s.repo.ChangePassword(ctx, id, id.UserID(), payload)
}
