package procurement

import (
	"context"
	"net/url"
	"strconv"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

// Repository calls the supplier, purchase order and goods receipt endpoints.
type Repository struct {
	client *apiclient.Client
}

// NewRepository constructs a Repository.
func NewRepository(client *apiclient.Client) *Repository {
	return &Repository{client: client}
}

// ListSuppliers returns suppliers, optionally only active ones.
func (r *Repository) ListSuppliers(ctx context.Context, id apiclient.Identity, activeOnly bool) ([]Supplier, error) {
	var out []Supplier
	err := r.client.Get(ctx, id, "/suppliers", url.Values{"activeOnly": {strconv.FormatBool(activeOnly)}}, &out)
	return out, err
}

// GetSupplier fetches one supplier.
func (r *Repository) GetSupplier(ctx context.Context, id apiclient.Identity, supplierID string) (Supplier, error) {
	var out Supplier
	err := r.client.Get(ctx, id, "/suppliers/"+url.PathEscape(supplierID), nil, &out)
	return out, err
}

// CreateSupplier creates a supplier.
func (r *Repository) CreateSupplier(ctx context.Context, id apiclient.Identity, payload SupplierPayload) (Supplier, error) {
	var out Supplier
	err := r.client.Post(ctx, id, "/suppliers", payload, &out)
	return out, err
}

// UpdateSupplier patches a supplier.
func (r *Repository) UpdateSupplier(ctx context.Context, id apiclient.Identity, supplierID string, payload SupplierPayload) (Supplier, error) {
	var out Supplier
	err := r.client.Patch(ctx, id, "/suppliers/"+url.PathEscape(supplierID), payload, &out)
	return out, err
}

// DeleteSupplier removes a supplier.
func (r *Repository) DeleteSupplier(ctx context.Context, id apiclient.Identity, supplierID string) error {
	return r.client.Delete(ctx, id, "/suppliers/"+url.PathEscape(supplierID), nil)
}

// SupplierProducts lists the products a supplier offers.
func (r *Repository) SupplierProducts(ctx context.Context, id apiclient.Identity, supplierID string) ([]SupplierProduct, error) {
	var out []SupplierProduct
	err := r.client.Get(ctx, id, "/suppliers/"+url.PathEscape(supplierID)+"/products", nil, &out)
	return out, err
}

// ActiveProducts returns up to 100 active products for order line pickers.
func (r *Repository) ActiveProducts(ctx context.Context, id apiclient.Identity) ([]ProductRef, error) {
	q := shared.PageQuery(1, 100)
	q.Set("is_active", "true")
	var out shared.ListResponse[ProductRef]
	err := r.client.Get(ctx, id, "/products", q, &out)
	return out.Items, err
}

// ListOrders returns one page of purchase orders.
func (r *Repository) ListOrders(ctx context.Context, id apiclient.Identity, f POFilter) (shared.ListResponse[PurchaseOrder], error) {
	q := shared.PageQuery(f.Page, f.PageSize)
	shared.SetIf(q, "supplier_id", f.SupplierID)
	shared.SetIf(q, "status", f.Status)
	shared.SetIf(q, "start_date", f.StartDate)
	shared.SetIf(q, "end_date", f.EndDate)
	var out shared.ListResponse[PurchaseOrder]
	err := r.client.Get(ctx, id, "/purchase-orders", q, &out)
	return out, err
}

// GetOrder fetches one purchase order with its lines.
func (r *Repository) GetOrder(ctx context.Context, id apiclient.Identity, orderID string) (PurchaseOrder, error) {
	var out PurchaseOrder
	err := r.client.Get(ctx, id, "/purchase-orders/"+url.PathEscape(orderID), nil, &out)
	return out, err
}

// CreateOrder creates a purchase order.
func (r *Repository) CreateOrder(ctx context.Context, id apiclient.Identity, payload POPayload) (PurchaseOrder, error) {
	var out PurchaseOrder
	err := r.client.Post(ctx, id, "/purchase-orders", payload, &out)
	return out, err
}

// UpdateOrder patches status, sent date or notes.
func (r *Repository) UpdateOrder(ctx context.Context, id apiclient.Identity, orderID string, payload POUpdate) (PurchaseOrder, error) {
	var out PurchaseOrder
	err := r.client.Patch(ctx, id, "/purchase-orders/"+url.PathEscape(orderID), payload, &out)
	return out, err
}

// DeleteOrder removes a purchase order.
func (r *Repository) DeleteOrder(ctx context.Context, id apiclient.Identity, orderID string) error {
	return r.client.Delete(ctx, id, "/purchase-orders/"+url.PathEscape(orderID), nil)
}

// CreateReceipt books a goods receipt.
func (r *Repository) CreateReceipt(ctx context.Context, id apiclient.Identity, payload ReceiptPayload) (GoodsReceipt, error) {
	var out GoodsReceipt
	err := r.client.Post(ctx, id, "/goods-receipts", payload, &out)
	return out, err
}
