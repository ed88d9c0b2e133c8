package inventory

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/datastudio/warehouse-admin/internal/authstore"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	rbachttp "github.com/datastudio/warehouse-admin/internal/rbac/http"
	"github.com/datastudio/warehouse-admin/internal/shared"
	"github.com/datastudio/warehouse-admin/internal/view"
)

// Handler wires HTTP endpoints for the catalogue and stock pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder *view.Responder
	guards    rbachttp.Middleware
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, responder *view.Responder, guards rbachttp.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, responder: responder, guards: guards}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceProducts, rbac.ActionRead))
		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.showProduct)
		r.Get("/categories", h.listCategories)
		r.Get("/stock", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/stock/balances", http.StatusSeeOther)
		})
		r.Get("/stock/balances", h.stockBalances)
		r.Get("/stock/movements", h.stockMovements)
		r.Get("/stock/reorder", h.reorderAlerts)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceProducts, rbac.ActionCreate))
		r.Get("/products/new", h.newProduct)
		r.Post("/products", h.createProduct)
		r.Post("/categories", h.createCategory)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceProducts, rbac.ActionUpdate))
		r.Get("/products/{id}/edit", h.editProduct)
		r.Post("/products/{id}", h.updateProduct)
		r.Post("/products/{id}/images", h.addImage)
		r.Post("/products/{id}/images/{imageID}/delete", h.deleteImage)
		r.Post("/products/{id}/suppliers", h.linkSupplier)
		r.Post("/products/{id}/suppliers/{linkID}/primary", h.setPrimary)
		r.Post("/products/{id}/suppliers/{linkID}/delete", h.unlinkSupplier)
		r.Get("/categories/{id}/edit", h.editCategory)
		r.Post("/categories/{id}", h.updateCategory)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceProducts, rbac.ActionDelete))
		r.Post("/products/{id}/delete", h.deleteProduct)
		r.Post("/categories/{id}/delete", h.deleteCategory)
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	snap := shared.SnapshotFromContext(ctx)
	page, size := shared.PageParams(r)
	q := r.URL.Query()
	filter := ProductFilter{
		Page:       page,
		PageSize:   size,
		Search:     q.Get("search"),
		CategoryID: q.Get("category_id"),
		IsActive:   q.Get("is_active"),
	}

	result, err := h.service.ListProducts(ctx, id, filter)
	if h.responder.HandleError(w, r, err) {
		return
	}
	categories, err := h.service.Categories(ctx, id, false)
	if h.responder.HandleError(w, r, err) {
		return
	}

	pg := result.Pagination()
	table := view.Table{
		Columns: []view.Column{
			{Label: "Code"}, {Label: "Name"}, {Label: "Category"}, {Label: "Unit"},
			{Label: "Reorder level", Numeric: true}, {Label: "Status"},
		},
		Filters: []view.Field{
			{Name: "search", Label: "Search", Value: filter.Search, Placeholder: "Name or code"},
			{Name: "category_id", Label: "Category", Type: "select", Options: categoryOptions(categories, filter.CategoryID, "All categories")},
			{Name: "is_active", Label: "Status", Type: "select", Options: view.Options(filter.IsActive, "", "All", "true", "Active", "false", "Inactive")},
		},
		Empty:    "No products found",
		Page:     &pg,
		BasePath: "/products",
		Query:    q,
	}
	if snap.Can(rbac.ResourceProducts, rbac.ActionCreate) {
		table.Actions = append(table.Actions, view.Action{Label: "New product", Href: "/products/new"})
	}
	for _, p := range result.Items {
		table.Rows = append(table.Rows, view.Row{
			Cells: []view.Cell{
				{Text: p.ProductCode, Link: "/products/" + p.ID},
				{Text: p.Name},
				{Text: view.Text(p.CategoryName())},
				{Text: p.UnitOfMeasure},
				{Text: view.FormatNumber(p.ReorderLevel)},
				view.ActiveBadge(p.IsActive),
			},
			Actions: productActions(snap, p),
		})
	}
	h.responder.Table(w, r, "Products", table)
}

func productActions(snap authstore.Snapshot, p Product) []view.Action {
	var actions []view.Action
	if snap.Can(rbac.ResourceProducts, rbac.ActionUpdate) {
		actions = append(actions, view.Action{Label: "Edit", Href: "/products/" + p.ID + "/edit"})
	}
	if snap.Can(rbac.ResourceProducts, rbac.ActionDelete) {
		actions = append(actions, view.Action{
			Label:   "Delete",
			Href:    "/products/" + p.ID + "/delete",
			Method:  http.MethodPost,
			Confirm: "Delete " + p.Name + "?",
			Danger:  true,
		})
	}
	return actions
}

func (h *Handler) showProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	snap := shared.SnapshotFromContext(ctx)
	productID := chi.URLParam(r, "id")

	detail, err := h.service.Product(ctx, id, productID)
	if h.responder.HandleError(w, r, err) {
		return
	}
	p := detail.Product
	canUpdate := snap.Can(rbac.ResourceProducts, rbac.ActionUpdate)

	d := view.Detail{
		Heading: p.Name,
		Items: []view.Item{
			{Label: "Code", Value: p.ProductCode},
			{Label: "Category", Value: view.Text(p.CategoryName())},
			{Label: "Unit of measure", Value: p.UnitOfMeasure},
			{Label: "Reorder level", Value: view.FormatNumber(p.ReorderLevel)},
			{Label: "Barcode", Value: view.Text(view.Deref(p.Barcode))},
			{Label: "Serial number", Value: view.Text(view.Deref(p.SerialNumber))},
			{Label: "Serial tracking", Value: view.Bool(p.RequiresSerialTracking)},
			{Label: "Batch tracking", Value: view.Bool(p.RequiresBatchTracking)},
			{Label: "Expiry tracking", Value: view.Bool(p.RequiresExpiryTracking)},
			{Label: "Description", Value: view.Text(view.Deref(p.Description))},
			{Label: "Status", Value: view.ActiveBadge(p.IsActive).Text, Badge: view.ActiveBadge(p.IsActive).Badge},
			{Label: "Updated", Value: view.FormatDate(p.UpdatedAt)},
			{Label: "Stock", Value: "View current stock", Link: "/stock/balances?product_id=" + url.QueryEscape(p.ID)},
		},
		Actions: productActions(snap, p),
	}

	images := view.Table{Heading: "Images", Columns: []view.Column{{Label: "URL"}, {Label: "Alt text"}}, Empty: "No images"}
	for _, img := range detail.Images {
		row := view.Row{Cells: []view.Cell{{Text: img.URL, Link: img.URL}, {Text: view.Text(view.Deref(img.AltText))}}}
		if canUpdate {
			row.Actions = []view.Action{{
				Label: "Remove", Method: http.MethodPost, Danger: true,
				Href: "/products/" + p.ID + "/images/" + img.ID + "/delete",
			}}
		}
		images.Rows = append(images.Rows, row)
	}

	links := view.Table{
		Heading: "Suppliers",
		Columns: []view.Column{{Label: "Supplier"}, {Label: "Part number"}, {Label: "Unit cost", Numeric: true}, {Label: "Primary"}},
		Empty:   "No suppliers linked",
	}
	for _, link := range detail.Suppliers {
		row := view.Row{Cells: []view.Cell{
			{Text: link.Supplier.Name, Link: "/suppliers/" + link.Supplier.ID},
			{Text: view.Text(view.Deref(link.SupplierPartNumber))},
			{Text: view.FormatMoney(view.Deref(link.UnitCost))},
			{Text: view.Bool(link.IsPrimarySupplier)},
		}}
		if canUpdate {
			if !link.IsPrimarySupplier {
				row.Actions = append(row.Actions, view.Action{
					Label: "Make primary", Method: http.MethodPost,
					Href: "/products/" + p.ID + "/suppliers/" + link.ID + "/primary",
				})
			}
			row.Actions = append(row.Actions, view.Action{
				Label: "Unlink", Method: http.MethodPost, Danger: true,
				Confirm: "Unlink " + link.Supplier.Name + "?",
				Href:    "/products/" + p.ID + "/suppliers/" + link.ID + "/delete",
			})
		}
		links.Rows = append(links.Rows, row)
	}
	d.Tables = []view.Table{images, links}

	if canUpdate {
		suppliers, err := h.service.Suppliers(ctx, id)
		if h.responder.HandleError(w, r, err) {
			return
		}
		d.Forms = []view.Form{
			{
				Heading: "Add image",
				Action:  "/products/" + p.ID + "/images",
				Submit:  "Add image",
				Fields: []view.Field{
					{Name: "url", Label: "Image URL", Type: "url", Required: true},
					{Name: "alt_text", Label: "Alt text"},
				},
			},
			{
				Heading: "Link supplier",
				Action:  "/products/" + p.ID + "/suppliers",
				Submit:  "Link supplier",
				Fields: []view.Field{
					{Name: "supplier_id", Label: "Supplier", Type: "select", Required: true, Options: supplierOptions(suppliers, "", "Select supplier")},
					{Name: "supplier_part_number", Label: "Supplier part number"},
					{Name: "unit_cost", Label: "Unit cost", Placeholder: "0.00"},
					{Name: "is_primary_supplier", Label: "Primary supplier", Type: "checkbox"},
				},
			},
		}
	}
	h.responder.Detail(w, r, p.Name, d)
}

func (h *Handler) newProduct(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.FormOptions(r.Context(), shared.Identity(r.Context()))
	if h.responder.HandleError(w, r, err) {
		return
	}
	h.responder.Form(w, r, "New product", productForm(ProductPayload{IsActive: true}, opts, ""))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	payload, err := productPayloadFromForm(r)
	if err == nil {
		var created Product
		created, err = h.service.CreateProduct(ctx, id, payload)
		if err == nil {
			h.logger.Info("product created", slog.String("product_id", created.ID))
			h.responder.Redirect(w, r, "/products/"+created.ID, view.FlashSuccess, "Product created")
			return
		}
	}
	opts, optsErr := h.service.FormOptions(ctx, id)
	if optsErr != nil {
		h.logger.Warn("load product form options", slog.Any("error", optsErr))
	}
	h.responder.FormFailure(w, r, "New product", productForm(payload, opts, ""), err)
}

func (h *Handler) editProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	p, err := h.service.GetProduct(ctx, id, chi.URLParam(r, "id"))
	if h.responder.HandleError(w, r, err) {
		return
	}
	opts, err := h.service.FormOptions(ctx, id)
	if h.responder.HandleError(w, r, err) {
		return
	}
	h.responder.Form(w, r, "Edit "+p.Name, productForm(payloadFromProduct(p), opts, p.ID))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	productID := chi.URLParam(r, "id")
	payload, err := productPayloadFromForm(r)
	if err == nil {
		if _, err = h.service.UpdateProduct(ctx, id, productID, payload); err == nil {
			h.responder.Redirect(w, r, "/products/"+productID, view.FlashSuccess, "Product updated")
			return
		}
	}
	opts, optsErr := h.service.FormOptions(ctx, id)
	if optsErr != nil {
		h.logger.Warn("load product form options", slog.Any("error", optsErr))
	}
	h.responder.FormFailure(w, r, "Edit product", productForm(payload, opts, productID), err)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteProduct(r.Context(), shared.Identity(r.Context()), chi.URLParam(r, "id"))
	h.responder.Outcome(w, r, err, "/products", "Product deleted")
}

func (h *Handler) addImage(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	err := h.service.AddImage(r.Context(), shared.Identity(r.Context()), productID, ImagePayload{
		URL:     shared.FormString(r, "url"),
		AltText: shared.FormString(r, "alt_text"),
	})
	h.responder.Outcome(w, r, err, "/products/"+productID, "Image added")
}

func (h *Handler) deleteImage(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	err := h.service.DeleteImage(r.Context(), shared.Identity(r.Context()), chi.URLParam(r, "imageID"))
	h.responder.Outcome(w, r, err, "/products/"+productID, "Image removed")
}

func (h *Handler) linkSupplier(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	err := h.service.LinkSupplier(r.Context(), shared.Identity(r.Context()), productID, LinkPayload{
		SupplierID:         shared.FormString(r, "supplier_id"),
		SupplierPartNumber: shared.FormString(r, "supplier_part_number"),
		IsPrimarySupplier:  shared.FormBool(r, "is_primary_supplier"),
		UnitCost:           shared.FormString(r, "unit_cost"),
	})
	h.responder.Outcome(w, r, err, "/products/"+productID, "Supplier linked")
}

func (h *Handler) setPrimary(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	err := h.service.SetPrimarySupplier(r.Context(), shared.Identity(r.Context()), chi.URLParam(r, "linkID"))
	h.responder.Outcome(w, r, err, "/products/"+productID, "Primary supplier updated")
}

func (h *Handler) unlinkSupplier(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	err := h.service.UnlinkSupplier(r.Context(), shared.Identity(r.Context()), chi.URLParam(r, "linkID"))
	h.responder.Outcome(w, r, err, "/products/"+productID, "Supplier unlinked")
}

func productPayloadFromForm(r *http.Request) (ProductPayload, error) {
	reorder, ok := shared.FormInt(r, "reorder_level")
	p := ProductPayload{
		Name:                      shared.FormString(r, "name"),
		Description:               shared.FormString(r, "description"),
		UnitOfMeasure:             shared.FormString(r, "unit_of_measure"),
		CategoryID:                shared.FormString(r, "category_id"),
		ReorderLevel:              reorder,
		IsActive:                  shared.FormBool(r, "is_active"),
		Barcode:                   shared.FormString(r, "barcode"),
		SerialNumber:              shared.FormString(r, "serial_number"),
		RequiresSerialTracking:    shared.FormBool(r, "requires_serial_tracking"),
		RequiresBatchTracking:     shared.FormBool(r, "requires_batch_tracking"),
		RequiresExpiryTracking:    shared.FormBool(r, "requires_expiry_tracking"),
		InitialSupplierID:         shared.FormString(r, "initial_supplier_id"),
		InitialSupplierPartNumber: shared.FormString(r, "initial_supplier_part_number"),
		InitialUnitCost:           shared.FormString(r, "initial_unit_cost"),
	}
	if !ok {
		return p, &shared.ValidationError{Fields: map[string]string{"reorder_level": "Enter a whole number"}}
	}
	return p, nil
}

func payloadFromProduct(p Product) ProductPayload {
	out := ProductPayload{
		Name:                   p.Name,
		Description:            view.Deref(p.Description),
		UnitOfMeasure:          p.UnitOfMeasure,
		ReorderLevel:           p.ReorderLevel,
		IsActive:               p.IsActive,
		Barcode:                view.Deref(p.Barcode),
		SerialNumber:           view.Deref(p.SerialNumber),
		RequiresSerialTracking: p.RequiresSerialTracking,
		RequiresBatchTracking:  p.RequiresBatchTracking,
		RequiresExpiryTracking: p.RequiresExpiryTracking,
	}
	if p.Category != nil {
		out.CategoryID = p.Category.ID
	}
	return out
}

// productForm builds the create form when productID is empty, else the edit form.
func productForm(p ProductPayload, opts FormOptions, productID string) view.Form {
	f := view.Form{
		Action: "/products",
		Submit: "Create product",
		Cancel: "/products",
		Fields: []view.Field{
			{Name: "name", Label: "Name", Value: p.Name, Required: true},
			{Name: "unit_of_measure", Label: "Unit of measure", Value: p.UnitOfMeasure, Required: true, Placeholder: "pcs"},
			{Name: "category_id", Label: "Category", Type: "select", Options: categoryOptions(opts.Categories, p.CategoryID, "No category")},
			{Name: "reorder_level", Label: "Reorder level", Type: "number", Value: strconv.Itoa(p.ReorderLevel)},
			{Name: "barcode", Label: "Barcode", Value: p.Barcode},
			{Name: "serial_number", Label: "Serial number", Value: p.SerialNumber},
			{Name: "description", Label: "Description", Type: "textarea", Value: p.Description},
			{Name: "requires_serial_tracking", Label: "Requires serial tracking", Type: "checkbox", Checked: p.RequiresSerialTracking},
			{Name: "requires_batch_tracking", Label: "Requires batch tracking", Type: "checkbox", Checked: p.RequiresBatchTracking},
			{Name: "requires_expiry_tracking", Label: "Requires expiry tracking", Type: "checkbox", Checked: p.RequiresExpiryTracking},
			{Name: "is_active", Label: "Active", Type: "checkbox", Checked: p.IsActive},
		},
	}
	if productID != "" {
		f.Action = "/products/" + productID
		f.Submit = "Save changes"
		f.Cancel = "/products/" + productID
		return f
	}
	f.Fields = append(f.Fields,
		view.Field{Name: "initial_supplier_id", Label: "Initial supplier", Type: "select", Options: supplierOptions(opts.Suppliers, p.InitialSupplierID, "None")},
		view.Field{Name: "initial_supplier_part_number", Label: "Supplier part number", Value: p.InitialSupplierPartNumber},
		view.Field{Name: "initial_unit_cost", Label: "Initial unit cost", Value: p.InitialUnitCost, Placeholder: "0.00"},
	)
	return f
}

func categoryOptions(categories []Category, selected, blank string) []view.Option {
	opts := []view.Option{{Value: "", Label: blank, Selected: selected == ""}}
	for _, c := range categories {
		opts = append(opts, view.Option{Value: c.ID, Label: c.Name, Selected: c.ID == selected})
	}
	return opts
}

func supplierOptions(suppliers []SupplierRef, selected, blank string) []view.Option {
	opts := []view.Option{{Value: "", Label: blank, Selected: selected == ""}}
	for _, s := range suppliers {
		opts = append(opts, view.Option{Value: s.ID, Label: s.Name, Selected: s.ID == selected})
	}
	return opts
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := shared.SnapshotFromContext(ctx)
	activeOnly := r.URL.Query().Get("activeOnly") == "true"
	categories, err := h.service.Categories(ctx, shared.Identity(ctx), activeOnly)
	if h.responder.HandleError(w, r, err) {
		return
	}
	table := view.Table{
		Columns:  []view.Column{{Label: "Code"}, {Label: "Name"}, {Label: "Description"}, {Label: "Status"}, {Label: "Created"}},
		Filters:  []view.Field{{Name: "activeOnly", Label: "Active only", Type: "checkbox", Checked: activeOnly}},
		Empty:    "No categories yet",
		BasePath: "/categories",
	}
	for _, c := range categories {
		row := view.Row{Cells: []view.Cell{
			{Text: c.Code},
			{Text: c.Name, Link: "/products?category_id=" + url.QueryEscape(c.ID)},
			{Text: view.Text(view.Deref(c.Description))},
			view.ActiveBadge(c.IsActive),
			{Text: view.FormatDate(c.CreatedAt)},
		}}
		if snap.Can(rbac.ResourceProducts, rbac.ActionUpdate) {
			row.Actions = append(row.Actions, view.Action{Label: "Edit", Href: "/categories/" + c.ID + "/edit"})
		}
		if snap.Can(rbac.ResourceProducts, rbac.ActionDelete) {
			row.Actions = append(row.Actions, view.Action{
				Label: "Delete", Href: "/categories/" + c.ID + "/delete", Method: http.MethodPost,
				Confirm: "Delete category " + c.Name + "?", Danger: true,
			})
		}
		table.Rows = append(table.Rows, row)
	}
	if snap.Can(rbac.ResourceProducts, rbac.ActionCreate) {
		form := categoryForm(CategoryPayload{IsActive: true}, "")
		table.Form = &form
	}
	h.responder.Table(w, r, "Categories", table)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	payload := categoryPayloadFromForm(r)
	_, err := h.service.CreateCategory(r.Context(), shared.Identity(r.Context()), payload)
	if err == nil {
		h.responder.Redirect(w, r, "/categories", view.FlashSuccess, "Category created")
		return
	}
	h.responder.FormFailure(w, r, "New category", categoryForm(payload, ""), err)
}

func (h *Handler) editCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCategory(r.Context(), shared.Identity(r.Context()), chi.URLParam(r, "id"))
	if h.responder.HandleError(w, r, err) {
		return
	}
	payload := CategoryPayload{Name: c.Name, Description: view.Deref(c.Description), IsActive: c.IsActive}
	h.responder.Form(w, r, "Edit category", categoryForm(payload, c.ID))
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "id")
	payload := categoryPayloadFromForm(r)
	_, err := h.service.UpdateCategory(r.Context(), shared.Identity(r.Context()), categoryID, payload)
	if err == nil {
		h.responder.Redirect(w, r, "/categories", view.FlashSuccess, "Category updated")
		return
	}
	h.responder.FormFailure(w, r, "Edit category", categoryForm(payload, categoryID), err)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteCategory(r.Context(), shared.Identity(r.Context()), chi.URLParam(r, "id"))
	h.responder.Outcome(w, r, err, "/categories", "Category deleted")
}

func categoryPayloadFromForm(r *http.Request) CategoryPayload {
	return CategoryPayload{
		Name:        shared.FormString(r, "name"),
		Description: shared.FormString(r, "description"),
		IsActive:    shared.FormBool(r, "is_active"),
	}
}

func categoryForm(c CategoryPayload, categoryID string) view.Form {
	f := view.Form{
		Heading: "New category",
		Action:  "/categories",
		Submit:  "Add category",
		Fields: []view.Field{
			{Name: "name", Label: "Name", Value: c.Name, Required: true},
			{Name: "description", Label: "Description", Type: "textarea", Value: c.Description},
			{Name: "is_active", Label: "Active", Type: "checkbox", Checked: c.IsActive},
		},
	}
	if categoryID != "" {
		f.Heading = ""
		f.Action = "/categories/" + categoryID
		f.Submit = "Save changes"
		f.Cancel = "/categories"
	}
	return f
}

func (h *Handler) stockBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID := r.URL.Query().Get("product_id")
	balances, err := h.service.StockLevels(ctx, shared.Identity(ctx), productID)
	if h.responder.HandleError(w, r, err) {
		return
	}
	table := view.Table{
		Columns: []view.Column{
			{Label: "Code"}, {Label: "Product"}, {Label: "On hand", Numeric: true}, {Label: "Reorder level", Numeric: true},
			{Label: "Status"}, {Label: "Average cost", Numeric: true}, {Label: "Value", Numeric: true}, {Label: "Last movement"},
		},
		Empty: "No stock recorded",
	}
	if productID != "" {
		table.Actions = []view.Action{{Label: "All products", Href: "/stock/balances"}}
	}
	for _, b := range balances {
		status := view.Cell{Text: "OK", Badge: "ok"}
		if b.BelowReorderLevel {
			status = view.Cell{Text: "Below reorder level", Badge: "warn"}
		}
		table.Rows = append(table.Rows, view.Row{Cells: []view.Cell{
			{Text: b.ProductCode},
			{Text: b.ProductName, Link: "/products/" + b.ProductID},
			{Text: view.FormatNumber(b.CurrentQuantity)},
			{Text: view.FormatNumber(b.ReorderLevel)},
			status,
			{Text: view.FormatMoney(b.AverageCost)},
			{Text: view.FormatMoney(b.TotalValue)},
			{Text: view.Text(view.FormatDate(view.Deref(b.LastMovementDate)))},
		}})
	}
	h.responder.Table(w, r, "Current Stock", table)
}

func (h *Handler) stockMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, size := shared.PageParams(r)
	q := r.URL.Query()
	filter := MovementFilter{
		Page:          page,
		PageSize:      size,
		ProductID:     q.Get("product_id"),
		MovementType:  q.Get("movement_type"),
		ReferenceType: q.Get("reference_type"),
		StartDate:     q.Get("start_date"),
		EndDate:       q.Get("end_date"),
	}
	result, err := h.service.Movements(ctx, shared.Identity(ctx), filter)
	if h.responder.HandleError(w, r, err) {
		return
	}
	pg := result.Pagination()
	table := view.Table{
		Columns: []view.Column{
			{Label: "Date"}, {Label: "Product"}, {Label: "Type"}, {Label: "Quantity", Numeric: true},
			{Label: "Unit cost", Numeric: true}, {Label: "Reference"}, {Label: "By"},
		},
		Filters: []view.Field{
			{Name: "movement_type", Label: "Type", Type: "select", Options: view.Options(filter.MovementType, "", "All", MovementIn, "In", MovementOut, "Out", MovementAdjustment, "Adjustment")},
			{Name: "reference_type", Label: "Reference type", Value: filter.ReferenceType},
			{Name: "start_date", Label: "From", Type: "date", Value: filter.StartDate},
			{Name: "end_date", Label: "To", Type: "date", Value: filter.EndDate},
		},
		Empty:    "No movements match these filters",
		Page:     &pg,
		BasePath: "/stock/movements",
		Query:    q,
	}
	if filter.ProductID != "" {
		table.Filters = append(table.Filters, view.Field{Name: "product_id", Type: "hidden", Value: filter.ProductID})
	}
	for _, m := range result.Items {
		by := "-"
		if m.PerformedBy != nil {
			by = m.PerformedBy.Username
		}
		reference := view.Deref(m.ReferenceNumber)
		if reference == "" {
			reference = view.Deref(m.ReferenceType)
		}
		table.Rows = append(table.Rows, view.Row{Cells: []view.Cell{
			{Text: view.FormatDate(m.TransactionDate)},
			{Text: m.Product.Name, Link: "/products/" + m.Product.ID},
			{Text: view.StatusLabel(m.MovementType), Badge: movementBadge(m.MovementType)},
			{Text: view.FormatNumber(m.Quantity)},
			{Text: view.FormatMoney(view.Deref(m.UnitCost))},
			{Text: view.Text(reference)},
			{Text: by},
		}})
	}
	h.responder.Table(w, r, "Stock Movements", table)
}

func movementBadge(kind string) string {
	switch kind {
	case MovementIn:
		return "ok"
	case MovementOut:
		return "info"
	default:
		return "warn"
	}
}

func (h *Handler) reorderAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	alerts, err := h.service.LowStock(ctx, shared.Identity(ctx))
	if h.responder.HandleError(w, r, err) {
		return
	}
	table := view.Table{
		Columns: []view.Column{
			{Label: "Code"}, {Label: "Product"}, {Label: "On hand", Numeric: true},
			{Label: "Reorder level", Numeric: true}, {Label: "Shortfall", Numeric: true},
		},
		Empty: "Every product is above its reorder level",
	}
	snap := shared.SnapshotFromContext(ctx)
	for _, a := range alerts {
		row := view.Row{Cells: []view.Cell{
			{Text: a.ProductCode},
			{Text: a.ProductName, Link: "/products/" + a.ProductID},
			{Text: view.FormatNumber(a.CurrentQuantity)},
			{Text: view.FormatNumber(a.ReorderLevel)},
			{Text: view.FormatNumber(a.Shortfall), Badge: "warn"},
		}}
		if snap.Can(rbac.ResourcePurchaseOrders, rbac.ActionCreate) {
			row.Actions = []view.Action{{Label: "Order", Href: "/po/new?product_id=" + url.QueryEscape(a.ProductID)}}
		}
		table.Rows = append(table.Rows, row)
	}
	h.responder.Table(w, r, "Reorder Alerts", table)
}
