package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/datastudio/warehouse-admin/internal/rbac"
	rbachttp "github.com/datastudio/warehouse-admin/internal/rbac/http"
	"github.com/datastudio/warehouse-admin/internal/shared"
	"github.com/datastudio/warehouse-admin/internal/view"
)

// Handler manages role management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder *view.Responder
	guards    rbachttp.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder *view.Responder, guards rbachttp.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, responder: responder, guards: guards}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceRoles, rbac.ActionRead))
		r.Get("/admin/roles", h.listRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceRoles, rbac.ActionCreate))
		r.Get("/admin/roles/new", h.newRole)
		r.Post("/admin/roles", h.createRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceRoles, rbac.ActionUpdate))
		r.Get("/admin/roles/{id}/edit", h.editRole)
		r.Post("/admin/roles/{id}", h.updateRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceRoles, rbac.ActionDelete))
		r.Post("/admin/roles/{id}/delete", h.deleteRole)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := shared.SnapshotFromContext(ctx)
	roles, err := h.service.Roles(ctx, shared.Identity(ctx))
	if h.responder.HandleError(w, r, err) {
		return
	}

	table := view.Table{
		Columns: []view.Column{{Label: "Name"}, {Label: "Description"}},
		Empty:   "No roles defined",
	}
	if snap.Can(rbac.ResourceRoles, rbac.ActionCreate) {
		table.Actions = append(table.Actions, view.Action{Label: "Create role", Href: "/admin/roles/new"})
	}
	canUpdate := snap.Can(rbac.ResourceRoles, rbac.ActionUpdate)
	canDelete := snap.Can(rbac.ResourceRoles, rbac.ActionDelete)
	for _, role := range roles {
		row := view.Row{Cells: []view.Cell{{Text: role.Name}, {Text: view.Text(role.Description)}}}
		if canUpdate {
			row.Actions = append(row.Actions, view.Action{Label: "Edit", Href: "/admin/roles/" + role.ID + "/edit"})
		}
		if canDelete {
			row.Actions = append(row.Actions, view.Action{
				Label: "Delete", Href: "/admin/roles/" + role.ID + "/delete", Method: http.MethodPost,
				Confirm: "Are you sure you want to delete this role?", Danger: true,
			})
		}
		table.Rows = append(table.Rows, row)
	}
	h.responder.Table(w, r, "Role Management", table)
}

func (h *Handler) newRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	perms, err := h.service.Permissions(ctx, shared.Identity(ctx))
	if h.responder.HandleError(w, r, err) {
		return
	}
	h.responder.Form(w, r, "Create role", roleForm("", Payload{}, perms))
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload := readPayload(r)
	created, err := h.service.Create(ctx, shared.Identity(ctx), payload)
	if err == nil {
		h.logger.Info("role created", slog.String("role_id", created.ID), slog.Int("permissions", len(payload.Permissions)))
		h.responder.Redirect(w, r, "/admin/roles", view.FlashSuccess, "Role "+payload.Name+" created")
		return
	}
	h.responder.FormFailure(w, r, "Create role", roleForm("", payload, h.permissions(r)), err)
}

func (h *Handler) editRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	role, err := h.service.Role(ctx, id, chi.URLParam(r, "id"))
	if h.responder.HandleError(w, r, err) {
		return
	}
	perms, err := h.service.Permissions(ctx, id)
	if h.responder.HandleError(w, r, err) {
		return
	}
	payload := Payload{Name: role.Name, Description: role.Description, Permissions: role.PermissionIDs()}
	h.responder.Form(w, r, "Edit role", roleForm(role.ID, payload, perms))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roleID := chi.URLParam(r, "id")
	payload := readPayload(r)
	err := h.service.Update(ctx, shared.Identity(ctx), roleID, payload)
	if err == nil {
		h.logger.Info("role updated", slog.String("role_id", roleID), slog.Int("permissions", len(payload.Permissions)))
		h.responder.Redirect(w, r, "/admin/roles", view.FlashSuccess, "Role "+payload.Name+" updated")
		return
	}
	h.responder.FormFailure(w, r, "Edit role", roleForm(roleID, payload, h.permissions(r)), err)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "id")
	err := h.service.Delete(r.Context(), shared.Identity(r.Context()), roleID)
	if err == nil {
		h.logger.Info("role deleted", slog.String("role_id", roleID))
	}
	h.responder.Outcome(w, r, err, "/admin/roles", "Role deleted")
}

// permissions reloads the catalogue for a re-rendered form. A failure
// leaves the checkboxes empty rather than hiding the original error.
func (h *Handler) permissions(r *http.Request) []rbac.Permission {
	perms, err := h.service.Permissions(r.Context(), shared.Identity(r.Context()))
	if err != nil {
		h.logger.Warn("load permissions", slog.Any("error", err))
	}
	return perms
}

func readPayload(r *http.Request) Payload {
	return Payload{
		Name:        shared.FormString(r, "name"),
		Description: shared.FormString(r, "description"),
		Permissions: shared.FormList(r, "permissions"),
	}
}

func roleForm(roleID string, p Payload, perms []rbac.Permission) view.Form {
	chosen := make(map[string]bool, len(p.Permissions))
	for _, id := range p.Permissions {
		chosen[id] = true
	}
	opts := make([]view.Option, 0, len(perms))
	for _, perm := range perms {
		opts = append(opts, view.Option{Value: perm.ID, Label: Label(perm), Selected: chosen[perm.ID]})
	}
	f := view.Form{
		Action: "/admin/roles",
		Submit: "Create Role",
		Cancel: "/admin/roles",
		Fields: []view.Field{
			{Name: "name", Label: "Role Name", Value: p.Name, Required: true},
			{Name: "description", Label: "Description", Type: "textarea", Value: p.Description},
			{Name: "permissions", Label: "Permissions", Type: "checkboxes", Options: opts},
		},
	}
	if roleID != "" {
		f.Action = "/admin/roles/" + roleID
		f.Submit = "Update Role"
	}
	return f
}
