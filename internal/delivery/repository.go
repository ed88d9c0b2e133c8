package delivery

import (
	"context"
	"net/url"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

// Repository reads and writes dispatch orders through the remote API.
type Repository struct {
	client *apiclient.Client
}

// NewRepository constructs a repository.
func NewRepository(client *apiclient.Client) *Repository {
	return &Repository{client: client}
}

// ============================================================================
// DISPATCH ORDERS
// ============================================================================

// List returns one page of dispatch orders.
func (r *Repository) List(ctx context.Context, id apiclient.Identity, f Filter) (shared.ListResponse[Order], error) {
	q := shared.PageQuery(f.Page, f.PageSize)
	shared.SetIf(q, "status", string(f.Status))
	shared.SetIf(q, "recipient_type", string(f.RecipientType))
	shared.SetIf(q, "start_date", f.StartDate)
	shared.SetIf(q, "end_date", f.EndDate)
	var out shared.ListResponse[Order]
	err := r.client.Get(ctx, id, "/dispatch-orders", q, &out)
	return out, err
}

// Get fetches one dispatch order with its lines.
func (r *Repository) Get(ctx context.Context, id apiclient.Identity, orderID string) (Order, error) {
	var out Order
	err := r.client.Get(ctx, id, "/dispatch-orders/"+url.PathEscape(orderID), nil, &out)
	return out, err
}

// Create creates a dispatch order.
func (r *Repository) Create(ctx context.Context, id apiclient.Identity, payload CreatePayload) (Order, error) {
	var out Order
	err := r.client.Post(ctx, id, "/dispatch-orders", payload, &out)
	return out, err
}

// Update patches a dispatch order.
func (r *Repository) Update(ctx context.Context, id apiclient.Identity, orderID string, payload UpdatePayload) (Order, error) {
	var out Order
	err := r.client.Patch(ctx, id, "/dispatch-orders/"+url.PathEscape(orderID), payload, &out)
	return out, err
}

// Delete removes a dispatch order.
func (r *Repository) Delete(ctx context.Context, id apiclient.Identity, orderID string) error {
	return r.client.Delete(ctx, id, "/dispatch-orders/"+url.PathEscape(orderID), nil)
}

// ============================================================================
// PICKERS
// ============================================================================

// ActiveProducts returns up to 100 active products for line pickers.
func (r *Repository) ActiveProducts(ctx context.Context, id apiclient.Identity) ([]ProductRef, error) {
	q := shared.PageQuery(1, 100)
	q.Set("is_active", "true")
	var out shared.ListResponse[ProductRef]
	err := r.client.Get(ctx, id, "/products", q, &out)
	return out.Items, err
}
