package inventory

import (
	"context"
	"net/url"
	"strconv"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

// Repository calls the inventory endpoints of the remote API.
type Repository struct {
	client *apiclient.Client
}

// NewRepository constructs a Repository.
func NewRepository(client *apiclient.Client) *Repository {
	return &Repository{client: client}
}

// ListProducts returns one page of products.
func (r *Repository) ListProducts(ctx context.Context, id apiclient.Identity, f ProductFilter) (shared.ListResponse[Product], error) {
	q := shared.PageQuery(f.Page, f.PageSize)
	shared.SetIf(q, "search", f.Search)
	shared.SetIf(q, "category_id", f.CategoryID)
	shared.SetIf(q, "is_active", f.IsActive)
	var out shared.ListResponse[Product]
	err := r.client.Get(ctx, id, "/products", q, &out)
	return out, err
}

// GetProduct fetches one product.
func (r *Repository) GetProduct(ctx context.Context, id apiclient.Identity, productID string) (Product, error) {
	var out Product
	err := r.client.Get(ctx, id, "/products/"+url.PathEscape(productID), nil, &out)
	return out, err
}

// CreateProduct creates a product.
func (r *Repository) CreateProduct(ctx context.Context, id apiclient.Identity, payload ProductPayload) (Product, error) {
	var out Product
	err := r.client.Post(ctx, id, "/products", payload, &out)
	return out, err
}

// UpdateProduct patches a product.
func (r *Repository) UpdateProduct(ctx context.Context, id apiclient.Identity, productID string, payload ProductPayload) (Product, error) {
	var out Product
	err := r.client.Patch(ctx, id, "/products/"+url.PathEscape(productID), payload, &out)
	return out, err
}

// DeleteProduct removes a product.
func (r *Repository) DeleteProduct(ctx context.Context, id apiclient.Identity, productID string) error {
	return r.client.Delete(ctx, id, "/products/"+url.PathEscape(productID), nil)
}

// ListImages returns a product's images.
func (r *Repository) ListImages(ctx context.Context, id apiclient.Identity, productID string) ([]ProductImage, error) {
	var out []ProductImage
	err := r.client.Get(ctx, id, "/products/"+url.PathEscape(productID)+"/images", nil, &out)
	return out, err
}

// AddImage attaches an image.
func (r *Repository) AddImage(ctx context.Context, id apiclient.Identity, productID string, payload ImagePayload) (ProductImage, error) {
	var out ProductImage
	err := r.client.Post(ctx, id, "/products/"+url.PathEscape(productID)+"/images", payload, &out)
	return out, err
}

// DeleteImage detaches an image.
func (r *Repository) DeleteImage(ctx context.Context, id apiclient.Identity, imageID string) error {
	return r.client.Delete(ctx, id, "/product-images/"+url.PathEscape(imageID), nil)
}

// ListProductSuppliers returns the supplier links of a product.
func (r *Repository) ListProductSuppliers(ctx context.Context, id apiclient.Identity, productID string) ([]ProductSupplier, error) {
	var out []ProductSupplier
	err := r.client.Get(ctx, id, "/products/"+url.PathEscape(productID)+"/suppliers", nil, &out)
	return out, err
}

// LinkSupplier links a supplier to a product.
func (r *Repository) LinkSupplier(ctx context.Context, id apiclient.Identity, productID string, payload LinkPayload) (ProductSupplier, error) {
	var out ProductSupplier
	err := r.client.Post(ctx, id, "/products/"+url.PathEscape(productID)+"/suppliers", payload, &out)
	return out, err
}

// UpdateLink patches a product-supplier link.
func (r *Repository) UpdateLink(ctx context.Context, id apiclient.Identity, linkID string, payload LinkPayload) (ProductSupplier, error) {
	var out ProductSupplier
	err := r.client.Patch(ctx, id, "/product-suppliers/"+url.PathEscape(linkID), payload, &out)
	return out, err
}

// DeleteLink removes a product-supplier link.
func (r *Repository) DeleteLink(ctx context.Context, id apiclient.Identity, linkID string) error {
	return r.client.Delete(ctx, id, "/product-suppliers/"+url.PathEscape(linkID), nil)
}

// ListSuppliers returns supplier summaries for pickers.
func (r *Repository) ListSuppliers(ctx context.Context, id apiclient.Identity) ([]SupplierRef, error) {
	var out []SupplierRef
	err := r.client.Get(ctx, id, "/suppliers", url.Values{"activeOnly": {"true"}}, &out)
	return out, err
}

// ListCategories returns categories, optionally only active ones.
func (r *Repository) ListCategories(ctx context.Context, id apiclient.Identity, activeOnly bool) ([]Category, error) {
	var out []Category
	err := r.client.Get(ctx, id, "/categories", url.Values{"activeOnly": {strconv.FormatBool(activeOnly)}}, &out)
	return out, err
}

// GetCategory fetches one category.
func (r *Repository) GetCategory(ctx context.Context, id apiclient.Identity, categoryID string) (Category, error) {
	var out Category
	err := r.client.Get(ctx, id, "/categories/"+url.PathEscape(categoryID), nil, &out)
	return out, err
}

// CreateCategory creates a category.
func (r *Repository) CreateCategory(ctx context.Context, id apiclient.Identity, payload CategoryPayload) (Category, error) {
	var out Category
	err := r.client.Post(ctx, id, "/categories", payload, &out)
	return out, err
}

// UpdateCategory patches a category.
func (r *Repository) UpdateCategory(ctx context.Context, id apiclient.Identity, categoryID string, payload CategoryPayload) (Category, error) {
	var out Category
	err := r.client.Patch(ctx, id, "/categories/"+url.PathEscape(categoryID), payload, &out)
	return out, err
}

// DeleteCategory removes a category.
func (r *Repository) DeleteCategory(ctx context.Context, id apiclient.Identity, categoryID string) error {
	return r.client.Delete(ctx, id, "/categories/"+url.PathEscape(categoryID), nil)
}

// StockLevels returns current balances, for one product when productID is set.
func (r *Repository) StockLevels(ctx context.Context, id apiclient.Identity, productID string) ([]StockBalance, error) {
	q := url.Values{}
	shared.SetIf(q, "product_id", productID)
	var out []StockBalance
	err := r.client.Get(ctx, id, "/reports/stock-levels", q, &out)
	return out, err
}

// ListMovements returns one page of the movement ledger.
func (r *Repository) ListMovements(ctx context.Context, id apiclient.Identity, f MovementFilter) (shared.ListResponse[StockMovement], error) {
	q := shared.PageQuery(f.Page, f.PageSize)
	shared.SetIf(q, "product_id", f.ProductID)
	shared.SetIf(q, "movement_type", f.MovementType)
	shared.SetIf(q, "reference_type", f.ReferenceType)
	shared.SetIf(q, "start_date", f.StartDate)
	shared.SetIf(q, "end_date", f.EndDate)
	var out shared.ListResponse[StockMovement]
	err := r.client.Get(ctx, id, "/stock/movements", q, &out)
	return out, err
}

// LowStock returns products below their reorder level.
func (r *Repository) LowStock(ctx context.Context, id apiclient.Identity) ([]LowStockAlert, error) {
	var out []LowStockAlert
	err := r.client.Get(ctx, id, "/reports/low-stock", nil, &out)
	return out, err
}
