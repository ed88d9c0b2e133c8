package reports

import (
	"context"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

// Repository reads the remote reporting endpoints.
type Repository struct {
	client *apiclient.Client
}

// NewRepository constructs a repository.
func NewRepository(client *apiclient.Client) *Repository {
	return &Repository{client: client}
}

// Summary fetches the compact dashboard summary.
func (r *Repository) Summary(ctx context.Context, id apiclient.Identity) (Summary, error) {
	var out Summary
	err := r.client.Get(ctx, id, "/reports/dashboard-summary", nil, &out)
	return out, err
}

// EnhancedSummary fetches the detailed dashboard summary.
func (r *Repository) EnhancedSummary(ctx context.Context, id apiclient.Identity) (EnhancedSummary, error) {
	var out EnhancedSummary
	err := r.client.Get(ctx, id, "/reports/dashboard-summary-enhanced", nil, &out)
	return out, err
}

// PurchaseHistory returns one page of purchased lines.
func (r *Repository) PurchaseHistory(ctx context.Context, id apiclient.Identity, f PurchaseFilter) (shared.ListResponse[PurchaseHistoryItem], error) {
	q := shared.PageQuery(f.Page, f.PageSize)
	shared.SetIf(q, "start_date", f.StartDate)
	shared.SetIf(q, "end_date", f.EndDate)
	shared.SetIf(q, "product_id", f.ProductID)
	shared.SetIf(q, "supplier_id", f.SupplierID)
	var out shared.ListResponse[PurchaseHistoryItem]
	err := r.client.Get(ctx, id, "/reports/purchase-history", q, &out)
	return out, err
}

// DispatchHistory returns one page of dispatched lines.
func (r *Repository) DispatchHistory(ctx context.Context, id apiclient.Identity, f DispatchFilter) (shared.ListResponse[DispatchHistoryItem], error) {
	q := shared.PageQuery(f.Page, f.PageSize)
	shared.SetIf(q, "start_date", f.StartDate)
	shared.SetIf(q, "end_date", f.EndDate)
	shared.SetIf(q, "product_id", f.ProductID)
	shared.SetIf(q, "recipient_type", f.RecipientType)
	var out shared.ListResponse[DispatchHistoryItem]
	err := r.client.Get(ctx, id, "/reports/dispatch-history", q, &out)
	return out, err
}

// Movers returns one page of the fast or slow movers ranking.
func (r *Repository) Movers(ctx context.Context, id apiclient.Identity, fast bool, f MoversFilter) (shared.ListResponse[MoverItem], error) {
	path := "/reports/slow-movers"
	if fast {
		path = "/reports/fast-movers"
	}
	q := shared.PageQuery(f.Page, f.PageSize)
	shared.SetIf(q, "time_window", string(f.Window))
	var out shared.ListResponse[MoverItem]
	err := r.client.Get(ctx, id, path, q, &out)
	return out, err
}

// Products returns up to 100 products for filter pickers.
func (r *Repository) Products(ctx context.Context, id apiclient.Identity) ([]Choice, error) {
	var out shared.ListResponse[Choice]
	err := r.client.Get(ctx, id, "/products", shared.PageQuery(1, 100), &out)
	return out.Items, err
}

// Suppliers returns every supplier for filter pickers.
func (r *Repository) Suppliers(ctx context.Context, id apiclient.Identity) ([]Choice, error) {
	var out []Choice
	err := r.client.Get(ctx, id, "/suppliers", nil, &out)
	return out, err
}
