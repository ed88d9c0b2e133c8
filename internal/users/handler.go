package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/datastudio/warehouse-admin/internal/rbac"
	rbachttp "github.com/datastudio/warehouse-admin/internal/rbac/http"
	"github.com/datastudio/warehouse-admin/internal/shared"
	"github.com/datastudio/warehouse-admin/internal/view"
)

// Handler manages the admin landing page, user management and the
// signed-in user's password.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder *view.Responder
	guards    rbachttp.Middleware
}

// NewHandler builds a users handler.
func NewHandler(logger *slog.Logger, service *Service, responder *view.Responder, guards rbachttp.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, responder: responder, guards: guards}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAuth())
		r.Get("/account/password", h.passwordForm)
		r.Post("/account/password", h.changePassword)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceUsers, rbac.ActionRead))
		r.Get("/admin", h.adminHome)
		r.Get("/admin/users", h.listUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceUsers, rbac.ActionCreate))
		r.Get("/admin/users/new", h.newUser)
		r.Post("/admin/users", h.createUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceUsers, rbac.ActionUpdate))
		r.Get("/admin/users/{id}/edit", h.editUser)
		r.Post("/admin/users/{id}", h.updateUser)
		r.Post("/admin/users/{id}/deactivate", h.setActive(false))
		r.Post("/admin/users/{id}/reactivate", h.setActive(true))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceRoles, rbac.ActionUpdate))
		r.Get("/admin/users/{id}/roles", h.rolesForm)
		r.Post("/admin/users/{id}/roles", h.updateRoles)
	})
}

func (h *Handler) adminHome(w http.ResponseWriter, r *http.Request) {
	h.responder.Page(w, r, http.StatusOK, "pages/admin.html", "Admin", nil)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := shared.SnapshotFromContext(ctx)
	page, _ := shared.PageParams(r)
	result, err := h.service.Users(ctx, shared.Identity(ctx), page)
	if h.responder.HandleError(w, r, err) {
		return
	}

	pg := result.Pagination()
	table := view.Table{
		Columns:  []view.Column{{Label: "Username"}, {Label: "Email"}, {Label: "Status"}, {Label: "Roles"}},
		Empty:    "No users found",
		Page:     &pg,
		BasePath: "/admin/users",
		Query:    r.URL.Query(),
	}
	if snap.Can(rbac.ResourceUsers, rbac.ActionCreate) {
		table.Actions = append(table.Actions, view.Action{Label: "Create user", Href: "/admin/users/new"})
	}
	if snap.Can(rbac.ResourceRoles, rbac.ActionRead) {
		table.Actions = append(table.Actions, view.Action{Label: "Manage roles", Href: "/admin/roles"})
	}
	canUpdate := snap.Can(rbac.ResourceUsers, rbac.ActionUpdate)
	canManageRoles := snap.Can(rbac.ResourceRoles, rbac.ActionUpdate)
	for _, u := range result.Items {
		row := view.Row{Cells: []view.Cell{
			{Text: u.Username},
			{Text: u.Email},
			view.ActiveBadge(u.IsActive),
			{Text: view.Text(strings.Join(u.RoleNames(), ", "))},
		}}
		if canManageRoles {
			row.Actions = append(row.Actions, view.Action{Label: "Edit roles", Href: "/admin/users/" + u.ID + "/roles"})
		}
		if canUpdate {
			row.Actions = append(row.Actions, view.Action{Label: "Edit", Href: "/admin/users/" + u.ID + "/edit"})
			if u.IsActive {
				row.Actions = append(row.Actions, view.Action{
					Label: "Deactivate", Href: "/admin/users/" + u.ID + "/deactivate", Method: http.MethodPost,
					Confirm: "Are you sure you want to deactivate this user?", Danger: true,
				})
			} else {
				row.Actions = append(row.Actions, view.Action{
					Label: "Reactivate", Href: "/admin/users/" + u.ID + "/reactivate", Method: http.MethodPost,
					Confirm: "Are you sure you want to reactivate this user?",
				})
			}
		}
		table.Rows = append(table.Rows, row)
	}
	h.responder.Table(w, r, "User Management", table)
}

func (h *Handler) newUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roles, err := h.service.Roles(ctx, shared.Identity(ctx))
	if h.responder.HandleError(w, r, err) {
		return
	}
	h.responder.Form(w, r, "Create user", createForm(CreatePayload{}, roleOptions(roles, nil)))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	payload := CreatePayload{
		Username: shared.FormString(r, "username"),
		Email:    shared.FormString(r, "email"),
		Password: r.FormValue("password"),
		Roles:    shared.FormList(r, "roles"),
	}
	created, err := h.service.Create(ctx, id, payload)
	if err == nil {
		h.logger.Info("user created", slog.String("user_id", created.ID))
		h.responder.Redirect(w, r, "/admin/users", view.FlashSuccess, "User "+payload.Username+" created")
		return
	}
	roles, rerr := h.service.Roles(ctx, id)
	if rerr != nil {
		h.logger.Warn("load roles", slog.Any("error", rerr))
	}
	payload.Password = ""
	h.responder.FormFailure(w, r, "Create user", createForm(payload, roleOptions(roles, payload.Roles)), err)
}

func createForm(p CreatePayload, roles []view.Option) view.Form {
	return view.Form{
		Action: "/admin/users",
		Submit: "Create user",
		Cancel: "/admin/users",
		Fields: []view.Field{
			{Name: "username", Label: "Username", Value: p.Username, Required: true},
			{Name: "email", Label: "Email", Type: "email", Value: p.Email, Required: true},
			{Name: "password", Label: "Password", Type: "password", Required: true, Help: "At least 8 characters"},
			{Name: "roles", Label: "Roles", Type: "checkboxes", Options: roles},
		},
	}
}

func (h *Handler) editUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := h.service.User(ctx, shared.Identity(ctx), chi.URLParam(r, "id"))
	if h.responder.HandleError(w, r, err) {
		return
	}
	h.responder.Form(w, r, "Edit "+account.User.Username, editForm(account.User.ID, account.User.Username))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	username := shared.FormString(r, "username")
	err := h.service.Rename(r.Context(), shared.Identity(r.Context()), userID, username)
	if err == nil {
		h.responder.Redirect(w, r, "/admin/users", view.FlashSuccess, "User updated")
		return
	}
	h.responder.FormFailure(w, r, "Edit user", editForm(userID, username), err)
}

func editForm(userID, username string) view.Form {
	return view.Form{
		Action: "/admin/users/" + userID,
		Submit: "Save",
		Cancel: "/admin/users",
		Fields: []view.Field{{Name: "username", Label: "Username", Value: username, Required: true}},
	}
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")
		err := h.service.SetActive(r.Context(), shared.Identity(r.Context()), userID, active)
		msg := "User deactivated"
		if active {
			msg = "User reactivated"
		}
		if err == nil {
			h.logger.Info("user status changed", slog.String("user_id", userID), slog.Bool("active", active))
		}
		h.responder.Outcome(w, r, err, "/admin/users", msg)
	}
}

func (h *Handler) rolesForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	account, err := h.service.User(ctx, id, chi.URLParam(r, "id"))
	if h.responder.HandleError(w, r, err) {
		return
	}
	roles, err := h.service.Roles(ctx, id)
	if h.responder.HandleError(w, r, err) {
		return
	}
	h.responder.Form(w, r, "Edit roles", rolesForm(account, roleOptions(roles, roleNames(account.Roles))))
}

func (h *Handler) updateRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	account, err := h.service.User(ctx, id, chi.URLParam(r, "id"))
	if h.responder.HandleError(w, r, err) {
		return
	}
	wanted := shared.FormList(r, "roles")
	changes, err := h.service.SetRoles(ctx, id, account.User.ID, roleNames(account.Roles), wanted)
	if err == nil {
		if changes.Empty() {
			h.responder.Redirect(w, r, "/admin/users", view.FlashSuccess, "Roles unchanged")
			return
		}
		h.logger.Info("user roles changed", slog.String("user_id", account.User.ID),
			slog.Any("assigned", changes.Assign), slog.Any("removed", changes.Remove))
		h.responder.Redirect(w, r, "/admin/users", view.FlashSuccess, "Roles updated for "+account.User.Username)
		return
	}
	roles, rerr := h.service.Roles(ctx, id)
	if rerr != nil {
		h.logger.Warn("load roles", slog.Any("error", rerr))
	}
	h.responder.FormFailure(w, r, "Edit roles", rolesForm(account, roleOptions(roles, wanted)), err)
}

func rolesForm(a Account, options []view.Option) view.Form {
	return view.Form{
		Heading: "Edit roles for " + a.User.Username,
		Action:  "/admin/users/" + a.User.ID + "/roles",
		Submit:  "Save roles",
		Cancel:  "/admin/users",
		Fields:  []view.Field{{Name: "roles", Label: "Roles", Type: "checkboxes", Options: options}},
	}
}

func (h *Handler) passwordForm(w http.ResponseWriter, r *http.Request) {
	h.responder.Form(w, r, "Change password", passwordForm())
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	payload := PasswordPayload{
		OldPassword: r.FormValue("old_password"),
		NewPassword: r.FormValue("new_password"),
		Confirm:     r.FormValue("confirm_password"),
	}
	err := h.service.ChangePassword(r.Context(), shared.Identity(r.Context()), payload)
	if err == nil {
		h.responder.Redirect(w, r, "/", view.FlashSuccess, "Password changed")
		return
	}
	if errors.Is(err, ErrNotSignedIn) {
		rbachttp.Redirect(w, r, "/login")
		return
	}
	h.responder.FormFailure(w, r, "Change password", passwordForm(), err)
}

func passwordForm() view.Form {
	return view.Form{
		Action: "/account/password",
		Submit: "Change password",
		Cancel: "/",
		Fields: []view.Field{
			{Name: "old_password", Label: "Current password", Type: "password", Required: true},
			{Name: "new_password", Label: "New password", Type: "password", Required: true, Help: "At least 8 characters"},
			{Name: "confirm_password", Label: "Confirm new password", Type: "password", Required: true},
		},
	}
}

func roleNames(roles []rbac.Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names
}

func roleOptions(roles []rbac.Role, selected []string) []view.Option {
	chosen := make(map[string]bool, len(selected))
	for _, name := range selected {
		chosen[name] = true
	}
	opts := make([]view.Option, 0, len(roles))
	for _, r := range roles {
		opts = append(opts, view.Option{Value: r.Name, Label: r.Name, Selected: chosen[r.Name]})
	}
	return opts
}
