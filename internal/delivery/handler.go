package delivery

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/datastudio/warehouse-admin/internal/authstore"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	rbachttp "github.com/datastudio/warehouse-admin/internal/rbac/http"
	"github.com/datastudio/warehouse-admin/internal/shared"
	"github.com/datastudio/warehouse-admin/internal/view"
)

// Handler manages dispatch order HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder *view.Responder
	guards    rbachttp.Middleware
}

// NewHandler creates a new dispatch handler.
func NewHandler(logger *slog.Logger, service *Service, responder *view.Responder, guards rbachttp.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, responder: responder, guards: guards}
}

// MountRoutes registers dispatch routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceDispatches, rbac.ActionRead))
		r.Get("/dispatch", h.list)
		r.Get("/dispatch/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceDispatches, rbac.ActionCreate))
		r.Get("/dispatch/new", h.newForm)
		r.Post("/dispatch", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceDispatches, rbac.ActionUpdate))
		r.Get("/dispatch/{id}/edit", h.editForm)
		r.Post("/dispatch/{id}", h.update)
		r.Post("/dispatch/{id}/status", h.advance)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceDispatches, rbac.ActionDelete))
		r.Post("/dispatch/{id}/delete", h.delete)
	})
}

// ============================================================================
// LIST & DETAIL
// ============================================================================

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := shared.SnapshotFromContext(ctx)
	page, size := shared.PageParams(r)
	q := r.URL.Query()
	filter := Filter{
		Page:          page,
		PageSize:      size,
		Status:        Status(q.Get("status")),
		RecipientType: RecipientType(q.Get("recipient_type")),
		StartDate:     q.Get("start_date"),
		EndDate:       q.Get("end_date"),
	}
	result, err := h.service.Orders(ctx, shared.Identity(ctx), filter)
	if h.responder.HandleError(w, r, err) {
		return
	}

	pg := result.Pagination()
	table := view.Table{
		Columns: []view.Column{
			{Label: "Dispatch number"}, {Label: "Recipient"}, {Label: "Type"}, {Label: "Dispatch date"},
			{Label: "Status"}, {Label: "Lines", Numeric: true},
		},
		Filters: []view.Field{
			{Name: "status", Label: "Status", Type: "select", Options: statusOptions(Statuses, string(filter.Status), "All statuses")},
			{Name: "recipient_type", Label: "Recipient type", Type: "select", Options: recipientOptions(string(filter.RecipientType), "All recipients")},
			{Name: "start_date", Label: "From", Type: "date", Value: filter.StartDate},
			{Name: "end_date", Label: "To", Type: "date", Value: filter.EndDate},
		},
		Empty:    "No dispatch orders found",
		Page:     &pg,
		BasePath: "/dispatch",
		Query:    q,
	}
	if snap.Can(rbac.ResourceDispatches, rbac.ActionCreate) {
		table.Actions = append(table.Actions, view.Action{Label: "New dispatch order", Href: "/dispatch/new"})
	}
	for _, o := range result.Items {
		table.Rows = append(table.Rows, view.Row{
			Cells: []view.Cell{
				{Text: o.DispatchNumber, Link: "/dispatch/" + o.ID},
				{Text: o.RecipientName},
				{Text: view.Text(view.StatusLabel(string(o.Recipient())))},
				{Text: view.FormatDate(o.DispatchDate)},
				view.StatusBadge(string(o.Status)),
				{Text: view.FormatNumber(len(o.Lines))},
			},
			Actions: orderActions(snap, o),
		})
	}
	h.responder.Table(w, r, "Dispatch Orders", table)
}

func orderActions(snap authstore.Snapshot, o Order) []view.Action {
	var actions []view.Action
	if o.Status.CanEdit() && snap.Can(rbac.ResourceDispatches, rbac.ActionUpdate) {
		actions = append(actions, view.Action{Label: "Edit", Href: "/dispatch/" + o.ID + "/edit"})
	}
	if o.Status.CanDelete() && snap.Can(rbac.ResourceDispatches, rbac.ActionDelete) {
		actions = append(actions, view.Action{
			Label:   "Delete",
			Href:    "/dispatch/" + o.ID + "/delete",
			Method:  http.MethodPost,
			Confirm: "Delete " + o.DispatchNumber + "?",
			Danger:  true,
		})
	}
	return actions
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := shared.SnapshotFromContext(ctx)
	o, err := h.service.Order(ctx, shared.Identity(ctx), chi.URLParam(r, "id"))
	if h.responder.HandleError(w, r, err) {
		return
	}
	status := view.StatusBadge(string(o.Status))
	d := view.Detail{
		Heading: "Dispatch order " + o.DispatchNumber,
		Items: []view.Item{
			{Label: "Recipient", Value: o.RecipientName},
			{Label: "Recipient type", Value: view.Text(view.StatusLabel(string(o.Recipient())))},
			{Label: "Contact phone", Value: view.Text(view.Deref(o.ContactPhone))},
			{Label: "Delivery address", Value: view.Text(view.Deref(o.DeliveryAddress))},
			{Label: "Dispatch date", Value: view.FormatDate(o.DispatchDate)},
			{Label: "Status", Value: status.Text, Badge: status.Badge},
			{Label: "Total quantity", Value: view.FormatNumber(o.TotalQuantity())},
			{Label: "Notes", Value: view.Text(view.Deref(o.Notes))},
			{Label: "Updated", Value: view.FormatDate(o.UpdatedAt)},
		},
		Actions: orderActions(snap, o),
	}
	if snap.Can(rbac.ResourceDispatches, rbac.ActionUpdate) {
		for _, next := range o.Status.Next() {
			action := view.Action{
				Label:  "Mark " + view.StatusLabel(string(next)),
				Href:   "/dispatch/" + o.ID + "/status",
				Method: http.MethodPost,
				Fields: map[string]string{"status": string(next)},
			}
			if next == StatusCancelled {
				action.Label = "Cancel dispatch"
				action.Confirm = "Cancel " + o.DispatchNumber + "?"
				action.Danger = true
			}
			d.Actions = append(d.Actions, action)
		}
	}

	lines := view.Table{
		Heading: "Lines",
		Columns: []view.Column{{Label: "#", Numeric: true}, {Label: "Code"}, {Label: "Product"}, {Label: "Quantity", Numeric: true}},
		Empty:   "No lines",
	}
	for _, l := range o.Lines {
		lines.Rows = append(lines.Rows, view.Row{Cells: []view.Cell{
			{Text: strconv.Itoa(l.LineNumber)},
			{Text: l.Product.ProductCode},
			{Text: l.Product.Name, Link: "/products/" + l.Product.ID},
			{Text: view.FormatNumber(l.Quantity) + " " + l.Product.UnitOfMeasure},
		}})
	}
	d.Tables = []view.Table{lines}
	h.responder.Detail(w, r, o.DispatchNumber, d)
}

// ============================================================================
// CREATE
// ============================================================================

func (h *Handler) newForm(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Products(r.Context(), shared.Identity(r.Context()))
	if h.responder.HandleError(w, r, err) {
		return
	}
	payload := CreatePayload{
		RecipientType: RecipientCustomer,
		DispatchDate:  h.service.Today(),
		Lines:         []LinePayload{{Quantity: 1}},
	}
	h.responder.Form(w, r, "New dispatch order", createForm(payload, products))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	payload, err := createPayloadFromForm(r)
	if err == nil {
		var created Order
		created, err = h.service.Create(ctx, id, payload)
		if err == nil {
			h.logger.Info("dispatch order created",
				slog.String("dispatch_id", created.ID),
				slog.Int("lines", len(payload.Lines)))
			h.responder.Redirect(w, r, "/dispatch/"+created.ID, view.FlashSuccess, "Dispatch order created")
			return
		}
	}
	products, productsErr := h.service.Products(ctx, id)
	if productsErr != nil {
		h.logger.Warn("load dispatch products", slog.Any("error", productsErr))
	}
	h.responder.FormFailure(w, r, "New dispatch order", createForm(payload, products), err)
}

func createPayloadFromForm(r *http.Request) (CreatePayload, error) {
	p := CreatePayload{
		DispatchNumber:  shared.FormString(r, "dispatch_number"),
		RecipientName:   shared.FormString(r, "recipient_name"),
		RecipientType:   RecipientType(shared.FormString(r, "recipient_type")),
		ContactPhone:    shared.FormString(r, "contact_phone"),
		DeliveryAddress: shared.FormString(r, "delivery_address"),
		DispatchDate:    shared.FormString(r, "dispatch_date"),
		Notes:           shared.FormString(r, "notes"),
	}
	products := shared.FormColumn(r, "line_product_id")
	quantities := shared.FormColumn(r, "line_quantity")
	errs := map[string]string{}
	for i, productID := range products {
		qty := ""
		if i < len(quantities) {
			qty = quantities[i]
		}
		if productID == "" && (qty == "" || qty == "0") {
			continue
		}
		n, err := strconv.Atoi(qty)
		if err != nil {
			errs[fmt.Sprintf("line %d", len(p.Lines)+1)] = "Quantity must be a whole number"
		}
		p.Lines = append(p.Lines, LinePayload{ProductID: productID, Quantity: n})
	}
	if len(errs) > 0 {
		return p, &shared.ValidationError{Fields: errs}
	}
	return p, nil
}

func createForm(p CreatePayload, products []ProductRef) view.Form {
	editor := &view.LineEditor{Heading: "Dispatch lines", Columns: []string{"Product", "Quantity"}}
	rows := append([]LinePayload{}, p.Lines...)
	for len(rows) < len(p.Lines)+4 {
		rows = append(rows, LinePayload{})
	}
	for _, line := range rows {
		qty := ""
		if line.Quantity != 0 {
			qty = strconv.Itoa(line.Quantity)
		}
		editor.Rows = append(editor.Rows, []view.Field{
			{Name: "line_product_id", Type: "select", Options: productOptions(products, line.ProductID)},
			{Name: "line_quantity", Type: "number", Value: qty, Placeholder: "0"},
		})
	}
	fields := append([]view.Field{
		{Name: "dispatch_number", Label: "Dispatch number", Value: p.DispatchNumber, Required: true},
	}, headerFields(p.RecipientName, p.RecipientType, p.ContactPhone, p.DeliveryAddress, p.DispatchDate, p.Notes)...)
	return view.Form{
		Action: "/dispatch",
		Submit: "Create dispatch order",
		Cancel: "/dispatch",
		Fields: fields,
		Lines:  editor,
	}
}

// ============================================================================
// EDIT & STATUS
// ============================================================================

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Order(r.Context(), shared.Identity(r.Context()), chi.URLParam(r, "id"))
	if h.responder.HandleError(w, r, err) {
		return
	}
	if !o.Status.CanEdit() {
		h.responder.Redirect(w, r, "/dispatch/"+o.ID, view.FlashError, ErrCannotEdit.Error())
		return
	}
	h.responder.Form(w, r, "Edit "+o.DispatchNumber, editForm(o, PayloadFromOrder(o, o.Status)))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	o, err := h.service.Order(ctx, id, chi.URLParam(r, "id"))
	if h.responder.HandleError(w, r, err) {
		return
	}
	payload := UpdatePayload{
		Status:          Status(shared.FormString(r, "status")),
		RecipientName:   shared.FormString(r, "recipient_name"),
		RecipientType:   RecipientType(shared.FormString(r, "recipient_type")),
		ContactPhone:    shared.FormString(r, "contact_phone"),
		DeliveryAddress: shared.FormString(r, "delivery_address"),
		DispatchDate:    shared.FormString(r, "dispatch_date"),
		Notes:           shared.FormString(r, "notes"),
	}
	if _, err = h.service.Update(ctx, id, o, payload); err == nil {
		h.logger.Info("dispatch order updated", slog.String("dispatch_id", o.ID), slog.String("status", string(payload.Status)))
		h.responder.Redirect(w, r, "/dispatch/"+o.ID, view.FlashSuccess, "Dispatch order updated")
		return
	}
	h.responder.FormFailure(w, r, "Edit "+o.DispatchNumber, editForm(o, payload), err)
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	status := Status(shared.FormString(r, "status"))
	_, err := h.service.Advance(r.Context(), shared.Identity(r.Context()), orderID, status)
	if err == nil {
		h.logger.Info("dispatch order status changed", slog.String("dispatch_id", orderID), slog.String("status", string(status)))
	}
	h.responder.Outcome(w, r, err, "/dispatch/"+orderID, "Dispatch order marked "+view.StatusLabel(string(status)))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), shared.Identity(r.Context()), chi.URLParam(r, "id"))
	h.responder.Outcome(w, r, err, "/dispatch", "Dispatch order deleted")
}

func editForm(o Order, p UpdatePayload) view.Form {
	allowed := append([]Status{o.Status}, o.Status.Next()...)
	fields := append([]view.Field{
		{Name: "status", Label: "Status", Type: "select", Options: statusOptions(allowed, string(p.Status), "")},
	}, headerFields(p.RecipientName, p.RecipientType, p.ContactPhone, p.DeliveryAddress, p.DispatchDate, p.Notes)...)
	return view.Form{
		Heading: "Dispatch order " + o.DispatchNumber,
		Action:  "/dispatch/" + o.ID,
		Submit:  "Save changes",
		Cancel:  "/dispatch/" + o.ID,
		Fields:  fields,
	}
}

func headerFields(name string, recipient RecipientType, phone, address, date, notes string) []view.Field {
	return []view.Field{
		{Name: "recipient_name", Label: "Recipient name", Value: name, Required: true},
		{Name: "recipient_type", Label: "Recipient type", Type: "select", Options: recipientOptions(string(recipient), "Not specified")},
		{Name: "contact_phone", Label: "Contact phone", Type: "tel", Value: phone},
		{Name: "delivery_address", Label: "Delivery address", Type: "textarea", Value: address},
		{Name: "dispatch_date", Label: "Dispatch date", Type: "date", Value: date, Required: true},
		{Name: "notes", Label: "Notes", Type: "textarea", Value: notes},
	}
}

// statusOptions lists statuses; a blank label omits the "any" choice.
func statusOptions(statuses []Status, selected, blank string) []view.Option {
	var opts []view.Option
	if blank != "" {
		opts = append(opts, view.Option{Value: "", Label: blank, Selected: selected == ""})
	}
	for _, s := range statuses {
		opts = append(opts, view.Option{Value: string(s), Label: view.StatusLabel(string(s)), Selected: string(s) == selected})
	}
	return opts
}

func recipientOptions(selected, blank string) []view.Option {
	opts := []view.Option{{Value: "", Label: blank, Selected: selected == ""}}
	for _, t := range RecipientTypes {
		opts = append(opts, view.Option{Value: string(t), Label: view.StatusLabel(string(t)), Selected: string(t) == selected})
	}
	return opts
}

func productOptions(products []ProductRef, selected string) []view.Option {
	opts := []view.Option{{Value: "", Label: "Select product", Selected: selected == ""}}
	for _, p := range products {
		opts = append(opts, view.Option{Value: p.ID, Label: p.ProductCode + " " + p.Name, Selected: p.ID == selected})
	}
	return opts
}
