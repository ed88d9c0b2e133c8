package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/authstore"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

// ErrMissingUser is returned when the API answers a login without a user.
var ErrMissingUser = errors.New("auth: response carried no user")

// Service runs the sign-in and sign-out flows against one session store.
type Service struct {
	repo        Repository
	defaultRole string
}

// NewService constructs a new Service. defaultRole, when set, is requested
// for self-service signups.
func NewService(repo Repository, defaultRole string) *Service {
	return &Service{repo: repo, defaultRole: defaultRole}
}

// Login authenticates and, on success, replaces the store contents with the
// returned identity in one step. On failure the store is left untouched.
func (s *Service) Login(ctx context.Context, store *authstore.Store, usernameOrEmail, password string) error {
	resp, err := s.repo.Login(ctx, store, LoginPayload{UsernameOrEmail: usernameOrEmail, Password: password})
	if apiclient.StatusCode(err) == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", shared.ErrInvalidCredentials, err)
	}
	if err != nil {
		return err
	}
	return s.apply(ctx, store, resp)
}

// Signup registers an account and signs it in.
func (s *Service) Signup(ctx context.Context, store *authstore.Store, username, email, password string) error {
	resp, err := s.repo.Signup(ctx, store, SignupPayload{
		Username:        username,
		Email:           email,
		Password:        password,
		InitialRoleName: s.defaultRole,
	})
	if err != nil {
		return err
	}
	return s.apply(ctx, store, resp)
}

// Logout clears the identity.
func (s *Service) Logout(ctx context.Context, store *authstore.Store) error {
	if store == nil {
		return nil
	}
	return store.Clear(ctx)
}

func (s *Service) apply(ctx context.Context, store *authstore.Store, resp Response) error {
	if resp.User == nil {
		return ErrMissingUser
	}
	if err := store.SetAuth(ctx, resp.Auth()); err != nil {
		// The identity would not survive to the next request; do not let
		// this one proceed as signed in either.
		_ = store.Clear(ctx)
		return fmt.Errorf("auth: store identity: %w", err)
	}
	return nil
}
