package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/datastudio/warehouse-admin/internal/delivery"
	"github.com/datastudio/warehouse-admin/internal/platform/pdf"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	rbachttp "github.com/datastudio/warehouse-admin/internal/rbac/http"
	"github.com/datastudio/warehouse-admin/internal/shared"
	"github.com/datastudio/warehouse-admin/internal/view"
	"github.com/datastudio/warehouse-admin/internal/view/svg"
)

const printPage = "pages/report_print.html"

// PDFRenderer turns a standalone HTML document into a PDF.
type PDFRenderer interface {
	Enabled() bool
	RenderHTML(ctx context.Context, html []byte, opts pdf.Options) ([]byte, error)
}

// Handler exposes the dashboard and the report pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder *view.Responder
	guards    rbachttp.Middleware
	pdf       PDFRenderer
	csvPool   sync.Pool
}

// NewHandler builds a reports handler. A nil renderer disables PDF export.
func NewHandler(logger *slog.Logger, service *Service, responder *view.Responder, guards rbachttp.Middleware, renderer PDFRenderer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, service: service, responder: responder, guards: guards, pdf: renderer}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// MountRoutes registers the dashboard and report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guards.RequireAuth()).Get("/", h.home)
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.ResourceReports, rbac.ActionRead))
		r.Get("/reports/purchase-history", h.purchaseHistory)
		r.Get("/reports/dispatch-history", h.dispatchHistory)
		r.Get("/reports/fast-movers", h.movers(true))
		r.Get("/reports/slow-movers", h.movers(false))
	})
}

// ============================================================================
// DASHBOARD
// ============================================================================

type dashboardView struct {
	Stats     []view.Stat
	Movements template.HTML
	POChart   template.HTML
	LowStock  view.Table
	Suppliers view.Table
	Received  view.Table
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := shared.SnapshotFromContext(ctx)
	if !snap.Can(rbac.ResourceReports, rbac.ActionRead) {
		name := "there"
		if snap.User != nil {
			name = snap.User.Username
		}
		h.responder.Page(w, r, http.StatusOK, "pages/message.html", "Welcome", view.Message{
			Heading: "Welcome, " + name,
			Body:    "Use the menu to get started.",
		})
		return
	}

	d, err := h.service.Dashboard(ctx, shared.Identity(ctx))
	if h.responder.HandleError(w, r, err) {
		return
	}
	h.responder.Page(w, r, http.StatusOK, "pages/dashboard.html", "Dashboard", h.dashboard(d))
}

func (h *Handler) dashboard(d Dashboard) dashboardView {
	e := d.Enhanced
	v := dashboardView{
		Stats: []view.Stat{
			{Label: "Stock value", Value: view.FormatMoney(e.StockValuation.TotalValue),
				Hint: view.FormatNumber(e.StockValuation.TotalQuantity) + " units across " + view.FormatNumber(e.StockValuation.TotalItems) + " items"},
			{Label: "Average cost", Value: view.FormatMoney(e.StockValuation.AverageCost)},
			{Label: "Low stock items", Value: view.FormatNumber(len(e.LowStockProducts)), Tone: "danger"},
			{Label: "Pending purchase orders", Value: view.FormatNumber(d.PendingPOs)},
			{Label: "Open dispatch orders", Value: view.FormatNumber(d.OpenDispatches)},
			{Label: "Recent dispatches", Value: view.FormatNumber(d.Summary.RecentDispatchesCount)},
		},
		LowStock: view.Table{
			Heading: "Low stock products",
			Columns: []view.Column{{Label: "Product"}, {Label: "On hand", Numeric: true}, {Label: "Reorder level", Numeric: true}, {Label: "Supplier"}},
			Empty:   "Nothing below its reorder level",
		},
		Suppliers: view.Table{
			Heading: "Top suppliers",
			Columns: []view.Column{{Label: "Supplier"}, {Label: "PO value", Numeric: true}},
			Empty:   "No purchase orders yet",
		},
		Received: view.Table{
			Heading: "Recently received",
			Columns: []view.Column{{Label: "Product"}, {Label: "Quantity", Numeric: true}, {Label: "Supplier"}, {Label: "Received"}},
			Empty:   "No recent receipts",
		},
	}
	for _, p := range e.LowStockProducts {
		v.LowStock.Rows = append(v.LowStock.Rows, view.Row{Cells: []view.Cell{
			{Text: p.ProductName + " (" + p.ProductCode + ")", Link: "/products/" + p.ProductID},
			{Text: view.FormatNumber(p.CurrentQuantity)},
			{Text: view.FormatNumber(p.ReorderLevel)},
			{Text: view.Text(view.Deref(p.PrimarySupplierName))},
		}})
	}
	for _, s := range e.TopSuppliers {
		v.Suppliers.Rows = append(v.Suppliers.Rows, view.Row{Cells: []view.Cell{
			{Text: s.SupplierName, Link: "/suppliers/" + s.SupplierID},
			{Text: view.FormatMoney(s.TotalPOValue)},
		}})
	}
	for _, it := range e.RecentlyReceivedItems {
		v.Received.Rows = append(v.Received.Rows, view.Row{Cells: []view.Cell{
			{Text: it.ProductName, Link: "/products/" + it.ProductID},
			{Text: view.FormatNumber(it.QuantityReceived)},
			{Text: it.SupplierName},
			{Text: view.FormatDate(it.ReceivedDate)},
		}})
	}

	movements, err := svg.Bars(0, 0, []svg.Bar{
		{Label: "In", Value: float64(e.StockMovements.TotalIn), Color: "#16a34a"},
		{Label: "Out", Value: float64(e.StockMovements.TotalOut), Color: "#dc2626"},
		{Label: "Adjustment", Value: float64(e.StockMovements.TotalAdjustment), Color: "#d97706"},
	}, svg.BarOpts{Title: "Stock movements", Description: "Units moved in, out and adjusted"})
	if err != nil {
		h.logger.Warn("render movement chart", slog.Any("error", err))
	}
	v.Movements = movements

	if len(e.PurchaseOrderStatuses) > 0 {
		bars := make([]svg.Bar, 0, len(e.PurchaseOrderStatuses))
		for _, s := range e.PurchaseOrderStatuses {
			bars = append(bars, svg.Bar{Label: view.StatusLabel(s.Status), Value: float64(s.Count)})
		}
		chart, err := svg.Bars(0, 0, bars, svg.BarOpts{Title: "Purchase orders by status", Description: "Number of purchase orders in each status"})
		if err != nil {
			h.logger.Warn("render purchase order chart", slog.Any("error", err))
		}
		v.POChart = chart
	}
	return v
}

// ============================================================================
// REPORTS
// ============================================================================

func (h *Handler) purchaseHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	page, size := shared.PageParams(r)
	q := r.URL.Query()
	f := PurchaseFilter{
		DateRange:  dateRange(q),
		Page:       page,
		PageSize:   size,
		ProductID:  q.Get("product_id"),
		SupplierID: q.Get("supplier_id"),
	}

	if format := q.Get("format"); format != "" {
		items, err := h.service.AllPurchaseHistory(ctx, id, f)
		sheet := PurchaseSheet(items)
		sheet.Filters = describeFilters(f.DateRange)
		h.export(w, r, format, sheet, err)
		return
	}

	pickers, err := h.service.Pickers(ctx, id, true)
	if h.responder.HandleError(w, r, err) {
		return
	}
	filters := []view.Field{
		{Name: "start_date", Label: "From", Type: "date", Value: f.StartDate},
		{Name: "end_date", Label: "To", Type: "date", Value: f.EndDate},
		{Name: "product_id", Label: "Product", Type: "select", Options: choiceOptions(pickers.Products, f.ProductID, "All products")},
		{Name: "supplier_id", Label: "Supplier", Type: "select", Options: choiceOptions(pickers.Suppliers, f.SupplierID, "All suppliers")},
	}
	result, err := h.service.PurchaseHistory(ctx, id, f)
	h.render(w, r, PurchaseSheet(result.Items), filters, result.Pagination(), err)
}

func (h *Handler) dispatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := shared.Identity(ctx)
	page, size := shared.PageParams(r)
	q := r.URL.Query()
	f := DispatchFilter{
		DateRange:     dateRange(q),
		Page:          page,
		PageSize:      size,
		ProductID:     q.Get("product_id"),
		RecipientType: q.Get("recipient_type"),
	}

	if format := q.Get("format"); format != "" {
		items, err := h.service.AllDispatchHistory(ctx, id, f)
		sheet := DispatchSheet(items)
		sheet.Filters = describeFilters(f.DateRange)
		if f.RecipientType != "" {
			sheet.Filters = append(sheet.Filters, "Recipient: "+view.StatusLabel(f.RecipientType))
		}
		h.export(w, r, format, sheet, err)
		return
	}

	pickers, err := h.service.Pickers(ctx, id, false)
	if h.responder.HandleError(w, r, err) {
		return
	}
	recipients := []view.Option{{Value: "", Label: "All recipients", Selected: f.RecipientType == ""}}
	for _, t := range delivery.RecipientTypes {
		recipients = append(recipients, view.Option{Value: string(t), Label: view.StatusLabel(string(t)), Selected: string(t) == f.RecipientType})
	}
	filters := []view.Field{
		{Name: "start_date", Label: "From", Type: "date", Value: f.StartDate},
		{Name: "end_date", Label: "To", Type: "date", Value: f.EndDate},
		{Name: "product_id", Label: "Product", Type: "select", Options: choiceOptions(pickers.Products, f.ProductID, "All products")},
		{Name: "recipient_type", Label: "Recipient type", Type: "select", Options: recipients},
	}
	result, err := h.service.DispatchHistory(ctx, id, f)
	h.render(w, r, DispatchSheet(result.Items), filters, result.Pagination(), err)
}

func (h *Handler) movers(fast bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := shared.Identity(ctx)
		page, size := shared.PageParams(r)
		q := r.URL.Query()
		f := MoversFilter{Page: page, PageSize: size, Window: NormalizeWindow(TimeWindow(q.Get("time_window")))}

		if format := q.Get("format"); format != "" {
			items, err := h.service.AllMovers(ctx, id, fast, f)
			sheet := MoversSheet(items, fast)
			sheet.Filters = []string{f.Window.Label()}
			h.export(w, r, format, sheet, err)
			return
		}

		windows := make([]view.Option, 0, len(TimeWindows))
		for _, tw := range TimeWindows {
			windows = append(windows, view.Option{Value: string(tw), Label: tw.Label(), Selected: tw == f.Window})
		}
		filters := []view.Field{{Name: "time_window", Label: "Period", Type: "select", Options: windows}}
		result, err := h.service.Movers(ctx, id, fast, f)
		h.render(w, r, MoversSheet(result.Items, fast), filters, result.Pagination(), err)
	}
}

// render shows one page of a report. Filter problems are shown above an
// empty table; any other failure replaces the page.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, sheet Sheet, filters []view.Field, pg shared.Pagination, err error) {
	query := r.URL.Query()
	query.Del("format")
	table := view.Table{
		Filters:  filters,
		Empty:    "No records for these filters",
		Page:     &pg,
		BasePath: r.URL.Path,
		Query:    query,
	}
	if err != nil {
		msg, ok := filterProblem(err)
		if !ok {
			h.responder.HandleError(w, r, err)
			return
		}
		table.Error = msg
		table.Page = nil
		var verr *shared.ValidationError
		if errors.As(err, &verr) {
			table.Filters = view.ApplyErrors(table.Filters, verr.Fields)
		}
	}

	for _, c := range sheet.Columns {
		table.Columns = append(table.Columns, view.Column{Label: c.Label, Numeric: c.Kind == KindNumber || c.Kind == KindMoney})
	}
	for i, row := range sheet.Formatted() {
		cells := make([]view.Cell, len(row))
		for j, text := range row {
			cells[j] = view.Cell{Text: text}
		}
		if i < len(sheet.Links) && len(cells) > 0 {
			cells[0].Link = sheet.Links[i]
		}
		table.Rows = append(table.Rows, view.Row{Cells: cells})
	}

	table.Actions = append(table.Actions, view.Action{Label: "Export CSV", Href: exportURL(r.URL.Path, query, "csv")})
	if h.pdf != nil && h.pdf.Enabled() {
		table.Actions = append(table.Actions, view.Action{Label: "Export PDF", Href: exportURL(r.URL.Path, query, "pdf")})
	}
	h.responder.Table(w, r, sheet.Title, table)
}

// export streams every row of a report as CSV or PDF. Failures return the
// browser to the on-screen report with a flash message.
func (h *Handler) export(w http.ResponseWriter, r *http.Request, format string, sheet Sheet, err error) {
	query := r.URL.Query()
	query.Del("format")
	back := r.URL.Path
	if encoded := query.Encode(); encoded != "" {
		back += "?" + encoded
	}
	if err != nil {
		if msg, ok := filterProblem(err); ok {
			h.responder.Redirect(w, r, back, view.FlashError, msg)
			return
		}
		h.responder.Outcome(w, r, err, back, "")
		return
	}

	generated := h.service.GeneratedAt()
	switch format {
	case "csv":
		buf := h.csvPool.Get().(*bytes.Buffer)
		buf.Reset()
		defer func() {
			buf.Reset()
			h.csvPool.Put(buf)
		}()
		if err := WriteCSV(buf, sheet); err != nil {
			h.logger.Error("write report csv", slog.String("report", sheet.Name), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", sheet.Filename(generated, "csv")))
		if _, err := w.Write(buf.Bytes()); err != nil {
			h.logger.Warn("stream report csv", slog.Any("error", err))
		}
	case "pdf":
		if h.pdf == nil || !h.pdf.Enabled() {
			h.responder.Redirect(w, r, back, view.FlashError, "PDF export is not available")
			return
		}
		html, err := h.responder.Engine.RenderBytes(printPage, h.responder.Data(r, sheet.Title, printView{
			Sheet:     sheet,
			Rows:      sheet.Formatted(),
			Generated: generated.Format("02 Jan 2006 15:04"),
		}))
		if err != nil {
			h.logger.Error("render report print", slog.String("report", sheet.Name), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		doc, err := h.pdf.RenderHTML(r.Context(), html, pdf.Options{Landscape: len(sheet.Columns) > 5})
		if err != nil {
			h.logger.Error("render report pdf", slog.String("report", sheet.Name), slog.Any("error", err))
			h.responder.Redirect(w, r, back, view.FlashError, "The PDF could not be generated, please try again")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", sheet.Filename(generated, "pdf")))
		if _, err := w.Write(doc); err != nil {
			h.logger.Warn("stream report pdf", slog.Any("error", err))
		}
	default:
		h.responder.Redirect(w, r, back, view.FlashError, "Unknown export format "+format)
	}
}

type printView struct {
	Sheet     Sheet
	Rows      [][]string
	Generated string
}

func filterProblem(err error) (string, bool) {
	if errors.Is(err, ErrInvalidDateRange) {
		return "The start date must be on or before the end date", true
	}
	var verr *shared.ValidationError
	if errors.As(err, &verr) {
		return "Dates must use the YYYY-MM-DD format", true
	}
	return "", false
}

func dateRange(q url.Values) DateRange {
	return DateRange{StartDate: q.Get("start_date"), EndDate: q.Get("end_date")}
}

func describeFilters(d DateRange) []string {
	var out []string
	if d.StartDate != "" {
		out = append(out, "From "+view.FormatDate(d.StartDate))
	}
	if d.EndDate != "" {
		out = append(out, "To "+view.FormatDate(d.EndDate))
	}
	return out
}

func exportURL(path string, query url.Values, format string) string {
	q := url.Values{}
	for k, v := range query {
		if k == "page" || k == "pageSize" {
			continue
		}
		q[k] = v
	}
	q.Set("format", format)
	return path + "?" + q.Encode()
}

func choiceOptions(choices []Choice, selected, blank string) []view.Option {
	opts := []view.Option{{Value: "", Label: blank, Selected: selected == ""}}
	for _, c := range choices {
		opts = append(opts, view.Option{Value: c.ID, Label: c.Name, Selected: c.ID == selected})
	}
	return opts
}
