package inventory

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

// RepositoryPort abstracts the remote calls used by Service.
type RepositoryPort interface {
	ListProducts(ctx context.Context, id apiclient.Identity, f ProductFilter) (shared.ListResponse[Product], error)
	GetProduct(ctx context.Context, id apiclient.Identity, productID string) (Product, error)
	CreateProduct(ctx context.Context, id apiclient.Identity, payload ProductPayload) (Product, error)
	UpdateProduct(ctx context.Context, id apiclient.Identity, productID string, payload ProductPayload) (Product, error)
	DeleteProduct(ctx context.Context, id apiclient.Identity, productID string) error
	ListImages(ctx context.Context, id apiclient.Identity, productID string) ([]ProductImage, error)
	AddImage(ctx context.Context, id apiclient.Identity, productID string, payload ImagePayload) (ProductImage, error)
	DeleteImage(ctx context.Context, id apiclient.Identity, imageID string) error
	ListProductSuppliers(ctx context.Context, id apiclient.Identity, productID string) ([]ProductSupplier, error)
	LinkSupplier(ctx context.Context, id apiclient.Identity, productID string, payload LinkPayload) (ProductSupplier, error)
	UpdateLink(ctx context.Context, id apiclient.Identity, linkID string, payload LinkPayload) (ProductSupplier, error)
	DeleteLink(ctx context.Context, id apiclient.Identity, linkID string) error
	ListSuppliers(ctx context.Context, id apiclient.Identity) ([]SupplierRef, error)
	ListCategories(ctx context.Context, id apiclient.Identity, activeOnly bool) ([]Category, error)
	GetCategory(ctx context.Context, id apiclient.Identity, categoryID string) (Category, error)
	CreateCategory(ctx context.Context, id apiclient.Identity, payload CategoryPayload) (Category, error)
	UpdateCategory(ctx context.Context, id apiclient.Identity, categoryID string, payload CategoryPayload) (Category, error)
	DeleteCategory(ctx context.Context, id apiclient.Identity, categoryID string) error
	StockLevels(ctx context.Context, id apiclient.Identity, productID string) ([]StockBalance, error)
	ListMovements(ctx context.Context, id apiclient.Identity, f MovementFilter) (shared.ListResponse[StockMovement], error)
	LowStock(ctx context.Context, id apiclient.Identity) ([]LowStockAlert, error)
}

// Service coordinates catalogue and stock operations.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: shared.NewValidator()}
}

// ProductDetail bundles a product with its images and supplier links.
type ProductDetail struct {
	Product   Product
	Images    []ProductImage
	Suppliers []ProductSupplier
}

// FormOptions are the pickers shown on the product form.
type FormOptions struct {
	Categories []Category
	Suppliers  []SupplierRef
}

// ListProducts returns a page of products.
func (s *Service) ListProducts(ctx context.Context, id apiclient.Identity, f ProductFilter) (shared.ListResponse[Product], error) {
	f.Search = strings.TrimSpace(f.Search)
	if f.IsActive != "true" && f.IsActive != "false" {
		f.IsActive = ""
	}
	return s.repo.ListProducts(ctx, id, f)
}

// Product fetches the product with its images and suppliers concurrently.
func (s *Service) Product(ctx context.Context, id apiclient.Identity, productID string) (ProductDetail, error) {
	if productID == "" {
		return ProductDetail{}, ErrInvalidID
	}
	var detail ProductDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.repo.GetProduct(gctx, id, productID)
		detail.Product = p
		return err
	})
	g.Go(func() error {
		images, err := s.repo.ListImages(gctx, id, productID)
		detail.Images = images
		return err
	})
	g.Go(func() error {
		links, err := s.repo.ListProductSuppliers(gctx, id, productID)
		detail.Suppliers = links
		return err
	})
	if err := g.Wait(); err != nil {
		return ProductDetail{}, err
	}
	return detail, nil
}

// GetProduct fetches one product.
func (s *Service) GetProduct(ctx context.Context, id apiclient.Identity, productID string) (Product, error) {
	if productID == "" {
		return Product{}, ErrInvalidID
	}
	return s.repo.GetProduct(ctx, id, productID)
}

// FormOptions loads categories and suppliers for the product form.
func (s *Service) FormOptions(ctx context.Context, id apiclient.Identity) (FormOptions, error) {
	var opts FormOptions
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cats, err := s.repo.ListCategories(gctx, id, true)
		opts.Categories = cats
		return err
	})
	g.Go(func() error {
		sups, err := s.repo.ListSuppliers(gctx, id)
		opts.Suppliers = sups
		return err
	})
	return opts, g.Wait()
}

// CreateProduct validates and creates a product.
func (s *Service) CreateProduct(ctx context.Context, id apiclient.Identity, payload ProductPayload) (Product, error) {
	if err := shared.Validate(s.validate, payload); err != nil {
		return Product{}, err
	}
	if payload.InitialSupplierID == "" {
		payload.InitialSupplierPartNumber = ""
		payload.InitialUnitCost = ""
	}
	return s.repo.CreateProduct(ctx, id, payload)
}

// UpdateProduct validates and updates a product.
func (s *Service) UpdateProduct(ctx context.Context, id apiclient.Identity, productID string, payload ProductPayload) (Product, error) {
	if productID == "" {
		return Product{}, ErrInvalidID
	}
	if err := shared.Validate(s.validate, payload); err != nil {
		return Product{}, err
	}
	payload.InitialSupplierID = ""
	payload.InitialSupplierPartNumber = ""
	payload.InitialUnitCost = ""
	return s.repo.UpdateProduct(ctx, id, productID, payload)
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, id apiclient.Identity, productID string) error {
	if productID == "" {
		return ErrInvalidID
	}
	return s.repo.DeleteProduct(ctx, id, productID)
}

// AddImage validates and attaches an image.
func (s *Service) AddImage(ctx context.Context, id apiclient.Identity, productID string, payload ImagePayload) error {
	if err := shared.Validate(s.validate, payload); err != nil {
		return err
	}
	_, err := s.repo.AddImage(ctx, id, productID, payload)
	return err
}

// DeleteImage detaches an image.
func (s *Service) DeleteImage(ctx context.Context, id apiclient.Identity, imageID string) error {
	return s.repo.DeleteImage(ctx, id, imageID)
}

// LinkSupplier validates and links a supplier.
func (s *Service) LinkSupplier(ctx context.Context, id apiclient.Identity, productID string, payload LinkPayload) error {
	if err := shared.Validate(s.validate, payload); err != nil {
		return err
	}
	_, err := s.repo.LinkSupplier(ctx, id, productID, payload)
	return err
}

// SetPrimarySupplier marks link as the primary supplier.
func (s *Service) SetPrimarySupplier(ctx context.Context, id apiclient.Identity, linkID string) error {
	_, err := s.repo.UpdateLink(ctx, id, linkID, LinkPayload{IsPrimarySupplier: true})
	return err
}

// UnlinkSupplier removes a product-supplier link.
func (s *Service) UnlinkSupplier(ctx context.Context, id apiclient.Identity, linkID string) error {
	return s.repo.DeleteLink(ctx, id, linkID)
}

// Suppliers returns supplier summaries for pickers.
func (s *Service) Suppliers(ctx context.Context, id apiclient.Identity) ([]SupplierRef, error) {
	return s.repo.ListSuppliers(ctx, id)
}

// Categories lists categories.
func (s *Service) Categories(ctx context.Context, id apiclient.Identity, activeOnly bool) ([]Category, error) {
	return s.repo.ListCategories(ctx, id, activeOnly)
}

// GetCategory fetches one category.
func (s *Service) GetCategory(ctx context.Context, id apiclient.Identity, categoryID string) (Category, error) {
	if categoryID == "" {
		return Category{}, ErrInvalidID
	}
	return s.repo.GetCategory(ctx, id, categoryID)
}

// CreateCategory validates and creates a category.
func (s *Service) CreateCategory(ctx context.Context, id apiclient.Identity, payload CategoryPayload) (Category, error) {
	if err := shared.Validate(s.validate, payload); err != nil {
		return Category{}, err
	}
	return s.repo.CreateCategory(ctx, id, payload)
}

// UpdateCategory validates and updates a category.
func (s *Service) UpdateCategory(ctx context.Context, id apiclient.Identity, categoryID string, payload CategoryPayload) (Category, error) {
	if err := shared.Validate(s.validate, payload); err != nil {
		return Category{}, err
	}
	return s.repo.UpdateCategory(ctx, id, categoryID, payload)
}

// DeleteCategory removes a category.
func (s *Service) DeleteCategory(ctx context.Context, id apiclient.Identity, categoryID string) error {
	return s.repo.DeleteCategory(ctx, id, categoryID)
}

// StockLevels returns current balances.
func (s *Service) StockLevels(ctx context.Context, id apiclient.Identity, productID string) ([]StockBalance, error) {
	return s.repo.StockLevels(ctx, id, productID)
}

// Movements returns a page of the movement ledger. Unknown movement types are
// dropped rather than forwarded.
func (s *Service) Movements(ctx context.Context, id apiclient.Identity, f MovementFilter) (shared.ListResponse[StockMovement], error) {
	switch f.MovementType {
	case MovementIn, MovementOut, MovementAdjustment:
	default:
		f.MovementType = ""
	}
	return s.repo.ListMovements(ctx, id, f)
}

// LowStock returns reorder alerts.
func (s *Service) LowStock(ctx context.Context, id apiclient.Identity) ([]LowStockAlert, error) {
	return s.repo.LowStock(ctx, id)
}
