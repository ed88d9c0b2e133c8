package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

type caller string

func (c caller) UserID() string               { return string(c) }
func (c caller) Clear(context.Context) error { return nil }

type stubRepo struct {
	calls    []string
	password *PasswordPayload
	failOn   string
}

func (s *stubRepo) record(call string) error {
	s.calls = append(s.calls, call)
	if call == s.failOn {
		return &apiclient.Error{Status: 400, Message: "nope"}
	}
	return nil
}

func (s *stubRepo) List(_ context.Context, _ apiclient.Identity, page, pageSize int) (shared.ListResponse[User], error) {
	return shared.ListResponse[User]{Page: page, PageSize: pageSize}, nil
}

func (s *stubRepo) Get(_ context.Context, _ apiclient.Identity, userID string) (Account, error) {
	return Account{User: User{ID: userID}}, nil
}

func (s *stubRepo) Create(_ context.Context, _ apiclient.Identity, p CreatePayload) (User, error) {
	return User{ID: "u-new", Username: p.Username}, s.record("create")
}

func (s *stubRepo) Update(_ context.Context, _ apiclient.Identity, userID string, _ UpdatePayload) error {
	return s.record("update " + userID)
}

func (s *stubRepo) AssignRole(_ context.Context, _ apiclient.Identity, _, name string) error {
	return s.record("assign " + name)
}

func (s *stubRepo) RemoveRole(_ context.Context, _ apiclient.Identity, _, name string) error {
	return s.record("remove " + name)
}

func (s *stubRepo) Deactivate(_ context.Context, _ apiclient.Identity, userID string) error {
	return s.record("deactivate " + userID)
}

func (s *stubRepo) Reactivate(_ context.Context, _ apiclient.Identity, userID string) error {
	return s.record("reactivate " + userID)
}

func (s *stubRepo) ChangePassword(_ context.Context, _ apiclient.Identity, userID string, p PasswordPayload) error {
	s.password = &p
	return s.record("password " + userID)
}

func (s *stubRepo) Roles(context.Context, apiclient.Identity) ([]rbac.Role, error) {
	return []rbac.Role{{ID: "r1", Name: "admin"}, {ID: "r2", Name: "warehouse_staff"}, {ID: "r3", Name: "viewer"}}, nil
}

func TestDiffRoles(t *testing.T) {
	c := DiffRoles([]string{"viewer", "admin"}, []string{"warehouse_staff", "admin", "warehouse_staff"})

	assert.Equal(t, []string{"warehouse_staff"}, c.Assign)
	assert.Equal(t, []string{"viewer"}, c.Remove)
	assert.True(t, DiffRoles([]string{"a"}, []string{"a"}).Empty())
}

func TestSetRolesAssignsBeforeRemoving(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	changes, err := svc.SetRoles(context.Background(), caller("u1"), "u2", []string{"viewer"}, []string{"warehouse_staff"})

	require.NoError(t, err)
	assert.False(t, changes.Empty())
	assert.Equal(t, []string{"assign warehouse_staff", "remove viewer"}, repo.calls)
}

func TestSetRolesRejectsUnknownRole(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.SetRoles(context.Background(), caller("u1"), "u2", nil, []string{"root"})

	assert.ErrorIs(t, err, ErrUnknownRole)
	assert.Empty(t, repo.calls)
}

func TestSetRolesStopsAtFirstFailure(t *testing.T) {
	repo := &stubRepo{failOn: "assign admin"}
	svc := NewService(repo)

	_, err := svc.SetRoles(context.Background(), caller("u1"), "u2", []string{"viewer"}, []string{"admin", "warehouse_staff"})

	assert.Equal(t, 400, apiclient.StatusCode(err))
	assert.Equal(t, []string{"assign admin"}, repo.calls)
}

func TestCannotDeactivateSelf(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	err := svc.SetActive(context.Background(), caller("u1"), "u1", false)
	assert.ErrorIs(t, err, ErrSelfDeactivate)

	require.NoError(t, svc.SetActive(context.Background(), caller("u1"), "u2", false))
	require.NoError(t, svc.SetActive(context.Background(), caller("u1"), "u1", true))
	assert.Equal(t, []string{"deactivate u2", "reactivate u1"}, repo.calls)
}

func TestCreateValidates(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), caller("u1"), CreatePayload{Username: "ab", Email: "nope", Password: "short"})

	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "username")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
	assert.Empty(t, repo.calls)
}

func TestChangePasswordUsesCaller(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	err := svc.ChangePassword(context.Background(), nil, PasswordPayload{})
	assert.True(t, errors.Is(err, ErrNotSignedIn))

	err = svc.ChangePassword(context.Background(), caller("u1"), PasswordPayload{OldPassword: "old-secret", NewPassword: "old-secret", Confirm: "old-secret"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "new_password")

	err = svc.ChangePassword(context.Background(), caller("u1"), PasswordPayload{OldPassword: "old-secret", NewPassword: "new-secret", Confirm: "typo"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Values do not match", verr.Fields["confirm_password"])

	require.NoError(t, svc.ChangePassword(context.Background(), caller("u1"), PasswordPayload{OldPassword: "old-secret", NewPassword: "new-secret", Confirm: "new-secret"}))
	assert.Equal(t, []string{"password u1"}, repo.calls)
}
