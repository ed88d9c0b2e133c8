package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

// Common errors
var (
	ErrInvalidID     = errors.New("dispatch order id is required")
	ErrInvalidStatus = errors.New("invalid status transition")
	ErrCannotEdit    = errors.New("delivered and cancelled dispatch orders cannot be changed")
	ErrCannotDelete  = errors.New("only draft or cancelled dispatch orders can be deleted")
)

// RepositoryPort is the remote API surface the service needs.
type RepositoryPort interface {
	List(ctx context.Context, id apiclient.Identity, f Filter) (shared.ListResponse[Order], error)
	Get(ctx context.Context, id apiclient.Identity, orderID string) (Order, error)
	Create(ctx context.Context, id apiclient.Identity, payload CreatePayload) (Order, error)
	Update(ctx context.Context, id apiclient.Identity, orderID string, payload UpdatePayload) (Order, error)
	Delete(ctx context.Context, id apiclient.Identity, orderID string) error
	ActiveProducts(ctx context.Context, id apiclient.Identity) ([]ProductRef, error)
}

// Service provides business logic for dispatch orders.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a dispatch service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: shared.NewValidator(), now: time.Now}
}

// Today is the default dispatch date for new orders.
func (s *Service) Today() string {
	return s.now().Format(time.DateOnly)
}

// Orders lists dispatch orders. Unknown filter values are dropped.
func (s *Service) Orders(ctx context.Context, id apiclient.Identity, f Filter) (shared.ListResponse[Order], error) {
	if !f.Status.IsValid() {
		f.Status = ""
	}
	if !f.RecipientType.IsValid() {
		f.RecipientType = ""
	}
	return s.repo.List(ctx, id, f)
}

// Order fetches one dispatch order.
func (s *Service) Order(ctx context.Context, id apiclient.Identity, orderID string) (Order, error) {
	if orderID == "" {
		return Order{}, ErrInvalidID
	}
	return s.repo.Get(ctx, id, orderID)
}

// Products lists the products that can be dispatched.
func (s *Service) Products(ctx context.Context, id apiclient.Identity) ([]ProductRef, error) {
	return s.repo.ActiveProducts(ctx, id)
}

// Create numbers the lines, validates and creates a dispatch order.
func (s *Service) Create(ctx context.Context, id apiclient.Identity, payload CreatePayload) (Order, error) {
	for i := range payload.Lines {
		payload.Lines[i].LineNumber = i + 1
	}
	if err := shared.Validate(s.validate, payload); err != nil {
		return Order{}, err
	}
	return s.repo.Create(ctx, id, payload)
}

// Update edits an order that is still open. A status change must follow the
// dispatch lifecycle.
func (s *Service) Update(ctx context.Context, id apiclient.Identity, order Order, payload UpdatePayload) (Order, error) {
	if !order.Status.CanEdit() {
		return Order{}, ErrCannotEdit
	}
	if payload.Status == "" {
		payload.Status = order.Status
	}
	if err := shared.Validate(s.validate, payload); err != nil {
		return Order{}, err
	}
	if !order.Status.CanMoveTo(payload.Status) {
		return Order{}, ErrInvalidStatus
	}
	return s.repo.Update(ctx, id, order.ID, payload)
}

// Advance moves an order to status, keeping every other field.
func (s *Service) Advance(ctx context.Context, id apiclient.Identity, orderID string, status Status) (Order, error) {
	order, err := s.Order(ctx, id, orderID)
	if err != nil {
		return Order{}, err
	}
	if status == order.Status {
		return Order{}, ErrInvalidStatus
	}
	return s.Update(ctx, id, order, PayloadFromOrder(order, status))
}

// Delete removes a draft or cancelled order.
func (s *Service) Delete(ctx context.Context, id apiclient.Identity, orderID string) error {
	order, err := s.Order(ctx, id, orderID)
	if err != nil {
		return err
	}
	if !order.Status.CanDelete() {
		return ErrCannotDelete
	}
	return s.repo.Delete(ctx, id, orderID)
}

// PayloadFromOrder copies the editable header of order.
func PayloadFromOrder(o Order, status Status) UpdatePayload {
	p := UpdatePayload{
		Status:        status,
		RecipientName: o.RecipientName,
		RecipientType: o.Recipient(),
		DispatchDate:  dateOnly(o.DispatchDate),
	}
	if o.ContactPhone != nil {
		p.ContactPhone = *o.ContactPhone
	}
	if o.DeliveryAddress != nil {
		p.DeliveryAddress = *o.DeliveryAddress
	}
	if o.Notes != nil {
		p.Notes = *o.Notes
	}
	return p
}

// dateOnly trims an API timestamp to its date part.
func dateOnly(raw string) string {
	if len(raw) > len(time.DateOnly) {
		return raw[:len(time.DateOnly)]
	}
	return raw
}
