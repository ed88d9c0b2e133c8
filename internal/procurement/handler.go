package procurement

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

// blankLines is how many empty rows the order form offers.
const blankLines = 5

// Handler exposes supplier and purchase order pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder *view.Responder
	guards    rbachttp.Middleware
}

// NewHandler builds a procurement handler.
func NewHandler(logger *slog.Logger, service *Service, responder *view.Responder, guards rbachttp.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, responder: responder, guards: guards}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceSuppliers, rbac.ActionRead))
		r.Get("/suppliers", h.listSuppliers)
		r.Get("/suppliers/{id}", h.showSupplier)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceSuppliers, rbac.ActionCreate))
		r.Get("/suppliers/new", h.newSupplier)
		r.Post("/suppliers", h.createSupplier)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceSuppliers, rbac.ActionUpdate))
		r.Get("/suppliers/{id}/edit", h.editSupplier)
		r.Post("/suppliers/{id}", h.updateSupplier)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceSuppliers, rbac.ActionDelete))
		r.Post("/suppliers/{id}/delete", h.deleteSupplier)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourcePurchaseOrders, rbac.ActionRead))
		r.Get("/po", h.listOrders)
		r.Get("/po/{id}", h.showOrder)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourcePurchaseOrders, rbac.ActionCreate))
		r.Get("/po/new", h.newOrder)
		r.Post("/po", h.createOrder)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourcePurchaseOrders, rbac.ActionUpdate))
		r.Post("/po/{id}/status", h.changeStatus)
		r.Post("/po/{id}/notes", h.updateNotes)
		r.Get("/po/{id}/receive", h.receiveForm)
		r.Post("/po/{id}/receive", h.receive)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourcePurchaseOrders, rbac.ActionDelete))
		r.Post("/po/{id}/delete", h.deleteOrder)
	})
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := shared.SnapshotFromContext(ctx)
	activeOnly := r.URL.Query().Get("activeOnly") == "true"
	suppliers, err := h.service.Suppliers(ctx, shared.Identity(ctx), activeOnly)
	if h.responder.HandleError(w, r, err) {
		return
	}
	table := view.Table{
		Columns: []view.Column{
			{Label: "Code"}, {Label: "Name"}, {Label: "Contact"}, {Label: "Email"}, {Label: "Phone"}, {Label: "Status"},
		},
		Filters:  []view.Field{{Name: "activeOnly", Label: "Active only", Type: "checkbox", Checked: activeOnly}},
		Empty:    "No suppliers found",
		BasePath: "/suppliers",
	}
	if snap.Can(rbac.ResourceSuppliers, rbac.ActionCreate) {
		table.Actions = append(table.Actions, view.Action{Label: "New supplier", Href: "/suppliers/new"})
	}
	for _, s := range suppliers {
		table.Rows = append(table.Rows, view.Row{
			Cells: []view.Cell{
				{Text: s.SupplierCode, Link: "/suppliers/" + s.ID},
				{Text: s.Name},
				{Text: view.Text(view.Deref(s.ContactPerson))},
				{Text: view.Text(view.Deref(s.Email))},
				{Text: view.Text(view.Deref(s.Phone))},
				view.ActiveBadge(s.IsActive),
			},
			Actions: supplierActions(snap, s),
		})
	}
	h.responder.Table(w, r, "Suppliers", table)
}

func supplierActions(snap authstore.Snapshot, s Supplier) []view.Action {
	var actions []view.Action
	if snap.Can(rbac.ResourceSuppliers, rbac.ActionUpdate) {
		actions = append(actions, view.Action{Label: "Edit", Href: "/suppliers/" + s.ID + "/edit"})
	}
	if snap.Can(rbac.ResourceSuppliers, rbac.ActionDelete) {
		actions = append(actions, view.Action{
			Label:   "Delete",
			Href:    "/suppliers/" + s.ID + "/delete",
			Method:  http.MethodPost,
			Confirm: "Delete " + s.Name + "?",
			Danger:  true,
		})
	}
	return actions
}

func (h *Handler) showSupplier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := shared.SnapshotFromContext(ctx)
	detail, err := h.service.Supplier(ctx, shared.Identity(ctx), chi.URLParam(r, "id"))
	if h.responder.HandleError(w, r, err) {
		return
	}
	s := detail.Supplier
	active := view.ActiveBadge(s.IsActive)
	d := view.Detail{
		Heading: s.Name,
		Items: []view.Item{
			{Label: "Code", Value: s.SupplierCode},
			{Label: "Contact person", Value: view.Text(view.Deref(s.ContactPerson))},
			{Label: "Email", Value: view.Text(view.Deref(s.Email))},
			{Label: "Phone", Value: view.Text(view.Deref(s.Phone))},
			{Label: "Address", Value: view.Text(view.Deref(s.Address))},
			{Label: "Status", Value: active.Text, Badge: active.Badge},
			{Label: "Created", Value: view.FormatDate(s.CreatedAt)},
		},
		Actions: supplierActions(snap, s),
	}
	if snap.Can(rbac.ResourcePurchaseOrders, rbac.ActionRead) {
		d.Items = append(d.Items, view.Item{Label: "Orders", Value: "Purchase orders", Link: "/po?supplier_id=" + s.ID})
	}

	products := view.Table{
		Heading: "Products supplied",
		Columns: []view.Column{{Label: "Code"}, {Label: "Product"}, {Label: "Part number"}, {Label: "Unit cost", Numeric: true}, {Label: "Primary"}},
		Empty:   "No products linked",
	}
	for _, p := range detail.Products {
		products.Rows = append(products.Rows, view.Row{Cells: []view.Cell{
			{Text: p.Product.ProductCode},
			{Text: p.Product.Name, Link: "/products/" + p.Product.ID},
			{Text: view.Text(view.Deref(p.SupplierPartNumber))},
			{Text: view.FormatMoney(view.Deref(p.UnitCost))},
			{Text: view.Bool(p.IsPrimarySupplier)},
		}})
	}
	d.Tables = []view.Table{products}
	h.responder.Detail(w, r, s.Name, d)
}

func (h *Handler) newSupplier(w http.ResponseWriter, r *http.Request) {
	h.responder.Form(w, r, "New supplier", supplierForm(SupplierPayload{IsActive: true}, ""))
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	payload := supplierPayloadFromForm(r)
	created, err := h.service.CreateSupplier(r.Context(), shared.Identity(r.Context()), payload)
	if err == nil {
		h.logger.Info("supplier created", slog.String("supplier_id", created.ID))
		h.responder.Redirect(w, r, "/suppliers/"+created.ID, view.FlashSuccess, "Supplier created")
		return
	}
	h.responder.FormFailure(w, r, "New supplier", supplierForm(payload, ""), err)
}

func (h *Handler) editSupplier(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.GetSupplier(r.Context(), shared.Identity(r.Context()), chi.URLParam(r, "id"))
	if h.responder.HandleError(w, r, err) {
		return
	}
	payload := SupplierPayload{
		SupplierCode:  s.SupplierCode,
		Name:          s.Name,
		ContactPerson: view.Deref(s.ContactPerson),
		Email:         view.Deref(s.Email),
		Phone:         view.Deref(s.Phone),
		Address:       view.Deref(s.Address),
		IsActive:      s.IsActive,
	}
	h.responder.Form(w, r, "Edit "+s.Name, supplierForm(payload, s.ID))
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	supplierID := chi.URLParam(r, "id")
	payload := supplierPayloadFromForm(r)
	_, err := h.service.UpdateSupplier(r.Context(), shared.Identity(r.Context()), supplierID, payload)
	if err == nil {
		h.responder.Redirect(w, r, "/suppliers/"+supplierID, view.FlashSuccess, "Supplier updated")
		return
	}
	h.responder.FormFailure(w, r, "Edit supplier", supplierForm(payload, supplierID), err)
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteSupplier(r.Context(), shared.Identity(r.Context()), chi.URLParam(r, "id"))
	h.responder.Outcome(w, r, err, "/suppliers", "Supplier deleted")
}

func supplierPayloadFromForm(r *http.Request) SupplierPayload {
	return SupplierPayload{
		SupplierCode:  shared.FormString(r, "supplier_code"),
		Name:          shared.FormString(r, "name"),
		ContactPerson: shared.FormString(r, "contact_person"),
		Email:         shared.FormString(r, "email"),
		Phone:         shared.FormString(r, "phone"),
		Address:       shared.FormString(r, "address"),
		IsActive:      shared.FormBool(r, "is_active"),
	}
}

func supplierForm(s SupplierPayload, supplierID string) view.Form {
	f := view.Form{
		Action: "/suppliers",
		Submit: "Create supplier",
		Cancel: "/suppliers",
		Fields: []view.Field{
			{Name: "supplier_code", Label: "Supplier code", Value: s.SupplierCode, Required: true},
			{Name: "name", Label: "Name", Value: s.Name, Required: true},
			{Name: "contact_person", Label: "Contact person", Value: s.ContactPerson},
			{Name: "email", Label: "Email", Type: "email", Value: s.Email},
			{Name: "phone", Label: "Phone", Type: "tel", Value: s.Phone},
			{Name: "address", Label: "Address", Type: "textarea", Value: s.Address},
			{Name: "is_active", Label: "Active", Type: "checkbox", Checked: s.IsActive},
		},
	}
	if supplierID != "" {
		f.Action = "/suppliers/" + supplierID
		f.Submit = "Save changes"
		f.Cancel = "/suppliers/" + supplierID
	}
	return f
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	snap := shared.SnapshotFromContext(ctx)
	page, size := shared.PageParams(r)
	q := r.URL.Query()
	filter := POFilter{
		Page:       page,
		PageSize:   size,
		SupplierID: q.Get("supplier_id"),
		Status:     q.Get("status"),
		StartDate:  q.Get("start_date"),
		EndDate:    q.Get("end_date"),
	}

	result, err := h.service.Orders(ctx, id, filter)
	if h.responder.HandleError(w, r, err) {
		return
	}
	suppliers, err := h.service.Suppliers(ctx, id, false)
	if h.responder.HandleError(w, r, err) {
		return
	}

	pg := result.Pagination()
	table := view.Table{
		Columns: []view.Column{
			{Label: "PO number"}, {Label: "Supplier"}, {Label: "Order date"}, {Label: "Status"}, {Label: "Lines", Numeric: true},
		},
		Filters: []view.Field{
			{Name: "supplier_id", Label: "Supplier", Type: "select", Options: supplierOptions(suppliers, filter.SupplierID, "All suppliers")},
			{Name: "status", Label: "Status", Type: "select", Options: statusOptions(filter.Status)},
			{Name: "start_date", Label: "From", Type: "date", Value: filter.StartDate},
			{Name: "end_date", Label: "To", Type: "date", Value: filter.EndDate},
		},
		Empty:    "No purchase orders found",
		Page:     &pg,
		BasePath: "/po",
		Query:    q,
	}
	if snap.Can(rbac.ResourcePurchaseOrders, rbac.ActionCreate) {
		table.Actions = append(table.Actions, view.Action{Label: "New purchase order", Href: "/po/new"})
	}
	for _, po := range result.Items {
		row := view.Row{Cells: []view.Cell{
			{Text: po.PONumber, Link: "/po/" + po.ID},
			{Text: po.Supplier.Name},
			{Text: view.FormatDate(po.OrderDate)},
			view.StatusBadge(po.Status),
			{Text: view.FormatNumber(len(po.Lines))},
		}}
		if Receivable(po.Status) && snap.Can(rbac.ResourcePurchaseOrders, rbac.ActionUpdate) {
			row.Actions = append(row.Actions, view.Action{Label: "Receive", Href: "/po/" + po.ID + "/receive"})
		}
		table.Rows = append(table.Rows, row)
	}
	h.responder.Table(w, r, "Purchase Orders", table)
}

func statusOptions(selected string) []view.Option {
	opts := []view.Option{{Value: "", Label: "All statuses", Selected: selected == ""}}
	for _, s := range Statuses {
		opts = append(opts, view.Option{Value: s, Label: view.StatusLabel(s), Selected: s == selected})
	}
	return opts
}

func supplierOptions(suppliers []Supplier, selected, blank string) []view.Option {
	opts := []view.Option{{Value: "", Label: blank, Selected: selected == ""}}
	for _, s := range suppliers {
		opts = append(opts, view.Option{Value: s.ID, Label: s.Name, Selected: s.ID == selected})
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

func (h *Handler) showOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := shared.SnapshotFromContext(ctx)
	po, err := h.service.Order(ctx, shared.Identity(ctx), chi.URLParam(r, "id"))
	if h.responder.HandleError(w, r, err) {
		return
	}
	canUpdate := snap.Can(rbac.ResourcePurchaseOrders, rbac.ActionUpdate)

	lines := view.Table{
		Heading: "Lines",
		Columns: []view.Column{
			{Label: "#", Numeric: true}, {Label: "Product"}, {Label: "Quantity", Numeric: true},
			{Label: "Unit cost", Numeric: true}, {Label: "Line total", Numeric: true},
		},
		Empty: "No lines",
	}
	var total float64
	for _, line := range po.Lines {
		text, amount := view.LineTotal(line.QuantityOrdered, line.UnitCost)
		total += amount
		lines.Rows = append(lines.Rows, view.Row{Cells: []view.Cell{
			{Text: strconv.Itoa(line.LineNumber)},
			{Text: line.Product.Name, Link: "/products/" + line.Product.ID},
			{Text: view.FormatNumber(line.QuantityOrdered) + " " + line.Product.UnitOfMeasure},
			{Text: view.FormatMoney(line.UnitCost)},
			{Text: text},
		}})
	}

	status := view.StatusBadge(po.Status)
	d := view.Detail{
		Heading: "Purchase order " + po.PONumber,
		Items: []view.Item{
			{Label: "Supplier", Value: po.Supplier.Name, Link: "/suppliers/" + po.Supplier.ID},
			{Label: "Order date", Value: view.FormatDate(po.OrderDate)},
			{Label: "Status", Value: status.Text, Badge: status.Badge},
			{Label: "Total", Value: view.FormatMoney(strconv.FormatFloat(total, 'f', 2, 64))},
			{Label: "Notes", Value: view.Text(view.Deref(po.Notes))},
			{Label: "Updated", Value: view.FormatDate(po.UpdatedAt)},
		},
		Tables: []view.Table{lines},
	}
	if canUpdate {
		if Receivable(po.Status) {
			d.Actions = append(d.Actions, view.Action{Label: "Receive goods", Href: "/po/" + po.ID + "/receive"})
		}
		for _, next := range transitions[po.Status] {
			action := view.Action{
				Label:  "Mark " + view.StatusLabel(next),
				Href:   "/po/" + po.ID + "/status",
				Method: http.MethodPost,
				Fields: map[string]string{"status": next},
			}
			if next == StatusCancelled {
				action.Label = "Cancel order"
				action.Confirm = "Cancel " + po.PONumber + "?"
				action.Danger = true
			}
			d.Actions = append(d.Actions, action)
		}
		d.Forms = append(d.Forms, view.Form{
			Heading: "Notes",
			Action:  "/po/" + po.ID + "/notes",
			Submit:  "Save notes",
			Fields:  []view.Field{{Name: "notes", Label: "Notes", Type: "textarea", Value: view.Deref(po.Notes)}},
		})
	}
	if snap.Can(rbac.ResourcePurchaseOrders, rbac.ActionDelete) {
		d.Actions = append(d.Actions, view.Action{
			Label:   "Delete",
			Href:    "/po/" + po.ID + "/delete",
			Method:  http.MethodPost,
			Confirm: "Delete " + po.PONumber + "?",
			Danger:  true,
		})
	}
	h.responder.Detail(w, r, po.PONumber, d)
}

func (h *Handler) newOrder(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.OrderOptions(r.Context(), shared.Identity(r.Context()))
	if h.responder.HandleError(w, r, err) {
		return
	}
	payload := POPayload{OrderDate: h.service.now().Format("2006-01-02")}
	if productID := r.URL.Query().Get("product_id"); productID != "" {
		payload.Lines = []POLinePayload{{ProductID: productID}}
	}
	if supplierID := r.URL.Query().Get("supplier_id"); supplierID != "" {
		payload.SupplierID = supplierID
	}
	h.responder.Form(w, r, "New purchase order", orderForm(payload, opts))
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	payload, err := orderPayloadFromForm(r)
	if err == nil {
		var created PurchaseOrder
		created, err = h.service.CreateOrder(ctx, id, payload)
		if err == nil {
			h.logger.Info("purchase order created",
				slog.String("po_id", created.ID),
				slog.Int("lines", len(payload.Lines)))
			h.responder.Redirect(w, r, "/po/"+created.ID, view.FlashSuccess, "Purchase order created")
			return
		}
	}
	opts, optsErr := h.service.OrderOptions(ctx, id)
	if optsErr != nil {
		h.logger.Warn("load purchase order form options", slog.Any("error", optsErr))
	}
	h.responder.FormFailure(w, r, "New purchase order", orderForm(payload, opts), err)
}

// orderPayloadFromForm zips the line editor columns, skipping empty rows.
func orderPayloadFromForm(r *http.Request) (POPayload, error) {
	p := POPayload{
		PONumber:   shared.FormString(r, "po_number"),
		SupplierID: shared.FormString(r, "supplier_id"),
		OrderDate:  shared.FormString(r, "order_date"),
		Notes:      shared.FormString(r, "notes"),
	}
	products := shared.FormColumn(r, "line_product_id")
	quantities := shared.FormColumn(r, "line_quantity")
	costs := shared.FormColumn(r, "line_unit_cost")
	errs := map[string]string{}
	for i, productID := range products {
		qty, cost := column(quantities, i), column(costs, i)
		if productID == "" && qty == "" && cost == "" {
			continue
		}
		line := POLinePayload{ProductID: productID, UnitCost: cost}
		if qty != "" {
			n, err := strconv.Atoi(qty)
			if err != nil {
				errs[fmt.Sprintf("line %d", len(p.Lines)+1)] = "Quantity must be a whole number"
			}
			line.QuantityOrdered = n
		}
		p.Lines = append(p.Lines, line)
	}
	if len(errs) > 0 {
		return p, &shared.ValidationError{Fields: errs}
	}
	return p, nil
}

func column(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func orderForm(p POPayload, opts OrderOptions) view.Form {
	editor := &view.LineEditor{
		Heading: "Lines",
		Columns: []string{"Product", "Quantity", "Unit cost"},
	}
	rows := append([]POLinePayload{}, p.Lines...)
	for len(rows) < len(p.Lines)+blankLines {
		rows = append(rows, POLinePayload{})
	}
	for _, line := range rows {
		qty := ""
		if line.QuantityOrdered != 0 {
			qty = strconv.Itoa(line.QuantityOrdered)
		}
		editor.Rows = append(editor.Rows, []view.Field{
			{Name: "line_product_id", Type: "select", Options: productOptions(opts.Products, line.ProductID)},
			{Name: "line_quantity", Type: "number", Value: qty, Placeholder: "0"},
			{Name: "line_unit_cost", Value: line.UnitCost, Placeholder: "0.00"},
		})
	}
	return view.Form{
		Action: "/po",
		Submit: "Create purchase order",
		Cancel: "/po",
		Fields: []view.Field{
			{Name: "po_number", Label: "PO number", Value: p.PONumber, Required: true},
			{Name: "supplier_id", Label: "Supplier", Type: "select", Required: true, Options: supplierOptions(opts.Suppliers, p.SupplierID, "Select supplier")},
			{Name: "order_date", Label: "Order date", Type: "date", Value: p.OrderDate, Required: true},
			{Name: "notes", Label: "Notes", Type: "textarea", Value: p.Notes},
		},
		Lines: editor,
	}
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	status := shared.FormString(r, "status")
	err := h.service.ChangeStatus(r.Context(), shared.Identity(r.Context()), orderID, status)
	if err == nil {
		h.logger.Info("purchase order status changed", slog.String("po_id", orderID), slog.String("status", status))
	}
	h.responder.Outcome(w, r, err, "/po/"+orderID, "Order marked "+view.StatusLabel(status))
}

func (h *Handler) updateNotes(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	err := h.service.UpdateNotes(r.Context(), shared.Identity(r.Context()), orderID, shared.FormString(r, "notes"))
	h.responder.Outcome(w, r, err, "/po/"+orderID, "Notes saved")
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteOrder(r.Context(), shared.Identity(r.Context()), chi.URLParam(r, "id"))
	h.responder.Outcome(w, r, err, "/po", "Purchase order deleted")
}

func (h *Handler) receiveForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	po, err := h.service.Order(ctx, shared.Identity(ctx), chi.URLParam(r, "id"))
	if h.responder.HandleError(w, r, err) {
		return
	}
	if !Receivable(po.Status) {
		h.responder.Redirect(w, r, "/po/"+po.ID, view.FlashError, "Goods cannot be received against a "+view.StatusLabel(po.Status)+" order")
		return
	}
	payload := ReceiptPayload{ReceivedDate: h.service.now().Format("2006-01-02")}
	h.responder.Form(w, r, "Receive "+po.PONumber, receiptForm(po, payload))
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	po, err := h.service.Order(ctx, id, chi.URLParam(r, "id"))
	if h.responder.HandleError(w, r, err) {
		return
	}
	payload, err := receiptPayloadFromForm(r)
	if err == nil {
		var grn GoodsReceipt
		grn, err = h.service.Receive(ctx, id, po, payload)
		if err == nil {
			h.logger.Info("goods received",
				slog.String("po_id", po.ID),
				slog.String("grn_id", grn.ID),
				slog.Int("lines", len(payload.Lines)))
			h.responder.Redirect(w, r, "/po/"+po.ID, view.FlashSuccess, "Goods receipt "+payload.GRNNumber+" recorded")
			return
		}
	}
	h.responder.FormFailure(w, r, "Receive "+po.PONumber, receiptForm(po, payload), err)
}

// receiptPayloadFromForm keeps the lines with a quantity entered.
func receiptPayloadFromForm(r *http.Request) (ReceiptPayload, error) {
	p := ReceiptPayload{
		GRNNumber:    shared.FormString(r, "grn_number"),
		ReceivedDate: shared.FormString(r, "received_date"),
		Notes:        shared.FormString(r, "notes"),
	}
	lineIDs := shared.FormColumn(r, "po_line_id")
	quantities := shared.FormColumn(r, "quantity_received")
	costs := shared.FormColumn(r, "unit_cost")
	batches := shared.FormColumn(r, "batch_number")
	serials := shared.FormColumn(r, "serial_number")
	expiries := shared.FormColumn(r, "expiry_date")
	errs := map[string]string{}
	for i, lineID := range lineIDs {
		qty := column(quantities, i)
		if qty == "" || qty == "0" {
			continue
		}
		n, err := strconv.Atoi(qty)
		if err != nil {
			errs[fmt.Sprintf("line %d", i+1)] = "Quantity must be a whole number"
		}
		p.Lines = append(p.Lines, ReceiptLinePayload{
			POLineID:         lineID,
			QuantityReceived: n,
			UnitCost:         column(costs, i),
			BatchNumber:      column(batches, i),
			SerialNumber:     column(serials, i),
			ExpiryDate:       column(expiries, i),
		})
	}
	if len(errs) > 0 {
		return p, &shared.ValidationError{Fields: errs}
	}
	return p, nil
}

func receiptForm(po PurchaseOrder, p ReceiptPayload) view.Form {
	entered := make(map[string]ReceiptLinePayload, len(p.Lines))
	for _, line := range p.Lines {
		entered[line.POLineID] = line
	}
	editor := &view.LineEditor{
		Heading: "Received quantities",
		Columns: []string{"Line", "Ordered", "Received", "Unit cost", "Batch", "Serial", "Expiry"},
	}
	for _, line := range po.Lines {
		in, ok := entered[line.ID]
		if !ok {
			in.UnitCost = line.UnitCost
		}
		qty := ""
		if in.QuantityReceived != 0 {
			qty = strconv.Itoa(in.QuantityReceived)
		}
		editor.Rows = append(editor.Rows, []view.Field{
			{Name: "po_line_id", Type: "hidden", Value: line.ID, Label: fmt.Sprintf("%d. %s", line.LineNumber, line.Product.Name)},
			{Type: "static", Value: view.FormatNumber(line.QuantityOrdered) + " " + line.Product.UnitOfMeasure},
			{Name: "quantity_received", Type: "number", Value: qty, Placeholder: "0"},
			{Name: "unit_cost", Value: in.UnitCost, Placeholder: "0.00"},
			{Name: "batch_number", Value: in.BatchNumber},
			{Name: "serial_number", Value: in.SerialNumber},
			{Name: "expiry_date", Type: "date", Value: in.ExpiryDate},
		})
	}
	return view.Form{
		Heading: "Goods receipt for " + po.PONumber + " from " + po.Supplier.Name,
		Action:  "/po/" + po.ID + "/receive",
		Submit:  "Record receipt",
		Cancel:  "/po/" + po.ID,
		Fields: []view.Field{
			{Name: "grn_number", Label: "GRN number", Value: p.GRNNumber, Required: true},
			{Name: "received_date", Label: "Received date", Type: "date", Value: p.ReceivedDate, Required: true},
			{Name: "notes", Label: "Notes", Type: "textarea", Value: p.Notes},
		},
		Lines: editor,
	}
}
