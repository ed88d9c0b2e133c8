package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

// RepositoryPort abstracts the remote calls used by Service.
type RepositoryPort interface {
	ListSuppliers(ctx context.Context, id apiclient.Identity, activeOnly bool) ([]Supplier, error)
	GetSupplier(ctx context.Context, id apiclient.Identity, supplierID string) (Supplier, error)
	CreateSupplier(ctx context.Context, id apiclient.Identity, payload SupplierPayload) (Supplier, error)
	UpdateSupplier(ctx context.Context, id apiclient.Identity, supplierID string, payload SupplierPayload) (Supplier, error)
	DeleteSupplier(ctx context.Context, id apiclient.Identity, supplierID string) error
	SupplierProducts(ctx context.Context, id apiclient.Identity, supplierID string) ([]SupplierProduct, error)
	ActiveProducts(ctx context.Context, id apiclient.Identity) ([]ProductRef, error)
	ListOrders(ctx context.Context, id apiclient.Identity, f POFilter) (shared.ListResponse[PurchaseOrder], error)
	GetOrder(ctx context.Context, id apiclient.Identity, orderID string) (PurchaseOrder, error)
	CreateOrder(ctx context.Context, id apiclient.Identity, payload POPayload) (PurchaseOrder, error)
	UpdateOrder(ctx context.Context, id apiclient.Identity, orderID string, payload POUpdate) (PurchaseOrder, error)
	DeleteOrder(ctx context.Context, id apiclient.Identity, orderID string) error
	CreateReceipt(ctx context.Context, id apiclient.Identity, payload ReceiptPayload) (GoodsReceipt, error)
}

// Service coordinates supplier and purchasing flows.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: shared.NewValidator(), now: time.Now}
}

// SupplierDetail is a supplier with the products it offers.
type SupplierDetail struct {
	Supplier Supplier
	Products []SupplierProduct
}

// OrderOptions are the pickers on the purchase order form.
type OrderOptions struct {
	Suppliers []Supplier
	Products  []ProductRef
}

// Suppliers lists suppliers.
func (s *Service) Suppliers(ctx context.Context, id apiclient.Identity, activeOnly bool) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx, id, activeOnly)
}

// Supplier fetches a supplier and its products concurrently.
func (s *Service) Supplier(ctx context.Context, id apiclient.Identity, supplierID string) (SupplierDetail, error) {
	if supplierID == "" {
		return SupplierDetail{}, ErrInvalidID
	}
	var detail SupplierDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sup, err := s.repo.GetSupplier(gctx, id, supplierID)
		detail.Supplier = sup
		return err
	})
	g.Go(func() error {
		products, err := s.repo.SupplierProducts(gctx, id, supplierID)
		detail.Products = products
		return err
	})
	if err := g.Wait(); err != nil {
		return SupplierDetail{}, err
	}
	return detail, nil
}

// GetSupplier fetches one supplier.
func (s *Service) GetSupplier(ctx context.Context, id apiclient.Identity, supplierID string) (Supplier, error) {
	if supplierID == "" {
		return Supplier{}, ErrInvalidID
	}
	return s.repo.GetSupplier(ctx, id, supplierID)
}

// CreateSupplier validates and creates a supplier.
func (s *Service) CreateSupplier(ctx context.Context, id apiclient.Identity, payload SupplierPayload) (Supplier, error) {
	if err := shared.Validate(s.validate, payload); err != nil {
		return Supplier{}, err
	}
	return s.repo.CreateSupplier(ctx, id, payload)
}

// UpdateSupplier validates and updates a supplier.
func (s *Service) UpdateSupplier(ctx context.Context, id apiclient.Identity, supplierID string, payload SupplierPayload) (Supplier, error) {
	if supplierID == "" {
		return Supplier{}, ErrInvalidID
	}
	if err := shared.Validate(s.validate, payload); err != nil {
		return Supplier{}, err
	}
	return s.repo.UpdateSupplier(ctx, id, supplierID, payload)
}

// DeleteSupplier removes a supplier.
func (s *Service) DeleteSupplier(ctx context.Context, id apiclient.Identity, supplierID string) error {
	if supplierID == "" {
		return ErrInvalidID
	}
	return s.repo.DeleteSupplier(ctx, id, supplierID)
}

// OrderOptions loads active suppliers and products concurrently.
func (s *Service) OrderOptions(ctx context.Context, id apiclient.Identity) (OrderOptions, error) {
	var opts OrderOptions
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sups, err := s.repo.ListSuppliers(gctx, id, true)
		opts.Suppliers = sups
		return err
	})
	g.Go(func() error {
		products, err := s.repo.ActiveProducts(gctx, id)
		opts.Products = products
		return err
	})
	return opts, g.Wait()
}

// Orders lists purchase orders. Unknown statuses are dropped.
func (s *Service) Orders(ctx context.Context, id apiclient.Identity, f POFilter) (shared.ListResponse[PurchaseOrder], error) {
	if _, ok := transitions[f.Status]; !ok {
		f.Status = ""
	}
	return s.repo.ListOrders(ctx, id, f)
}

// Order fetches one purchase order.
func (s *Service) Order(ctx context.Context, id apiclient.Identity, orderID string) (PurchaseOrder, error) {
	if orderID == "" {
		return PurchaseOrder{}, ErrInvalidID
	}
	return s.repo.GetOrder(ctx, id, orderID)
}

// CreateOrder validates and creates a purchase order.
func (s *Service) CreateOrder(ctx context.Context, id apiclient.Identity, payload POPayload) (PurchaseOrder, error) {
	if err := shared.Validate(s.validate, payload); err != nil {
		return PurchaseOrder{}, err
	}
	return s.repo.CreateOrder(ctx, id, payload)
}

// ChangeStatus moves an order to status after checking the transition. A
// move to sent stamps today's date.
func (s *Service) ChangeStatus(ctx context.Context, id apiclient.Identity, orderID, status string) error {
	order, err := s.Order(ctx, id, orderID)
	if err != nil {
		return err
	}
	if !CanTransition(order.Status, status) {
		return transitionError(fmt.Sprintf("A %s order cannot be marked %s", order.Status, status))
	}
	update := POUpdate{Status: status}
	if status == StatusSent {
		update.SentDate = s.now().Format(time.DateOnly)
	}
	_, err = s.repo.UpdateOrder(ctx, id, orderID, update)
	return err
}

// UpdateNotes replaces the order notes.
func (s *Service) UpdateNotes(ctx context.Context, id apiclient.Identity, orderID, notes string) error {
	if orderID == "" {
		return ErrInvalidID
	}
	_, err := s.repo.UpdateOrder(ctx, id, orderID, POUpdate{Notes: notes})
	return err
}

// DeleteOrder removes a purchase order.
func (s *Service) DeleteOrder(ctx context.Context, id apiclient.Identity, orderID string) error {
	if orderID == "" {
		return ErrInvalidID
	}
	return s.repo.DeleteOrder(ctx, id, orderID)
}

// Receive books a goods receipt against order. Lines must reference the
// order's own lines and may not exceed the ordered quantity.
func (s *Service) Receive(ctx context.Context, id apiclient.Identity, order PurchaseOrder, payload ReceiptPayload) (GoodsReceipt, error) {
	if !Receivable(order.Status) {
		return GoodsReceipt{}, transitionError(fmt.Sprintf("Goods cannot be received against a %s order", order.Status))
	}
	payload.PurchaseOrderID = order.ID
	ordered := make(map[string]POLine, len(order.Lines))
	for _, line := range order.Lines {
		ordered[line.ID] = line
	}
	for i, line := range payload.Lines {
		po, ok := ordered[line.POLineID]
		if !ok {
			return GoodsReceipt{}, &shared.ValidationError{Fields: map[string]string{
				fmt.Sprintf("line %d", i+1): "Not a line of this order",
			}}
		}
		if line.QuantityReceived > po.QuantityOrdered {
			return GoodsReceipt{}, &shared.ValidationError{Fields: map[string]string{
				fmt.Sprintf("line %d", po.LineNumber): fmt.Sprintf("Cannot receive more than the %d ordered", po.QuantityOrdered),
			}}
		}
		payload.Lines[i].ProductID = po.Product.ID
	}
	if err := shared.Validate(s.validate, payload); err != nil {
		return GoodsReceipt{}, err
	}
	return s.repo.CreateReceipt(ctx, id, payload)
}

// transitionError is an ErrInvalidTransition that renders as msg.
type transitionError string

func (e transitionError) Error() string { return string(e) }

func (e transitionError) Is(target error) bool { return target == ErrInvalidTransition }
