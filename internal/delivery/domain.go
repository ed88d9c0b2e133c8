package delivery

// ============================================================================
// DISPATCH ORDER STATUS
// ============================================================================

// Status represents the lifecycle of a dispatch order.
type Status string

const (
	StatusDraft      Status = "draft"      // Being prepared, can be deleted
	StatusConfirmed  Status = "confirmed"  // Stock committed
	StatusDispatched Status = "dispatched" // Left the warehouse
	StatusDelivered  Status = "delivered"  // Recipient signed for it
	StatusCancelled  Status = "cancelled"  // Abandoned
)

// Statuses lists dispatch statuses in lifecycle order.
var Statuses = []Status{StatusDraft, StatusConfirmed, StatusDispatched, StatusDelivered, StatusCancelled}

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusDispatched, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanEdit reports whether the order details and status may still change.
func (s Status) CanEdit() bool {
	return s != StatusDelivered && s != StatusCancelled
}

// CanDelete reports whether the order may be removed.
func (s Status) CanDelete() bool {
	return s == StatusDraft || s == StatusCancelled
}

// Next lists the statuses an order can move to from s.
func (s Status) Next() []Status {
	switch s {
	case StatusDraft:
		return []Status{StatusConfirmed, StatusCancelled}
	case StatusConfirmed:
		return []Status{StatusDispatched, StatusCancelled}
	case StatusDispatched:
		return []Status{StatusDelivered}
	default:
		return nil
	}
}

// CanMoveTo reports whether s may change to next. Staying put is allowed
// while the order is editable.
func (s Status) CanMoveTo(next Status) bool {
	if next == s {
		return s.CanEdit()
	}
	for _, candidate := range s.Next() {
		if candidate == next {
			return true
		}
	}
	return false
}

// ============================================================================
// RECIPIENTS
// ============================================================================

// RecipientType classifies who receives a dispatch.
type RecipientType string

const (
	RecipientHospital RecipientType = "hospital"
	RecipientClinic   RecipientType = "clinic"
	RecipientCustomer RecipientType = "customer"
	RecipientInternal RecipientType = "internal"
)

// RecipientTypes lists the recipient types the API accepts.
var RecipientTypes = []RecipientType{RecipientHospital, RecipientClinic, RecipientCustomer, RecipientInternal}

// IsValid checks if the recipient type is known.
func (t RecipientType) IsValid() bool {
	switch t {
	case RecipientHospital, RecipientClinic, RecipientCustomer, RecipientInternal:
		return true
	default:
		return false
	}
}

// ============================================================================
// DISPATCH ORDER ENTITY
// ============================================================================

// ProductRef is the product summary embedded in dispatch lines.
type ProductRef struct {
	ID            string `json:"id"`
	ProductCode   string `json:"product_code"`
	Name          string `json:"name"`
	UnitOfMeasure string `json:"unit_of_measure"`
}

// Line is one dispatched product.
type Line struct {
	ID         string     `json:"id"`
	LineNumber int        `json:"line_number"`
	Product    ProductRef `json:"product"`
	Quantity   int        `json:"quantity"`
}

// Order is a shipment of stock out of the warehouse.
type Order struct {
	ID              string         `json:"id"`
	DispatchNumber  string         `json:"dispatch_number"`
	RecipientName   string         `json:"recipient_name"`
	RecipientType   *RecipientType `json:"recipient_type,omitempty"`
	ContactPhone    *string        `json:"contact_phone,omitempty"`
	DeliveryAddress *string        `json:"delivery_address,omitempty"`
	DispatchDate    string         `json:"dispatch_date"`
	Status          Status         `json:"status"`
	Lines           []Line         `json:"lines"`
	Notes           *string        `json:"notes"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

// Recipient returns the recipient type, or "" when the API omitted it.
func (o Order) Recipient() RecipientType {
	if o.RecipientType == nil {
		return ""
	}
	return *o.RecipientType
}

// TotalQuantity sums the line quantities.
func (o Order) TotalQuantity() int {
	total := 0
	for _, l := range o.Lines {
		total += l.Quantity
	}
	return total
}

// Filter narrows the dispatch order list.
type Filter struct {
	Page          int
	PageSize      int
	Status        Status
	RecipientType RecipientType
	StartDate     string
	EndDate       string
}

// ============================================================================
// REQUEST DTOs
// ============================================================================

// LinePayload is one line of a new dispatch order.
type LinePayload struct {
	LineNumber int    `json:"line_number" form:"line_number"`
	ProductID  string `json:"product_id" form:"product_id" validate:"required"`
	Quantity   int    `json:"quantity" form:"quantity" validate:"gt=0"`
}

// CreatePayload creates a dispatch order.
type CreatePayload struct {
	DispatchNumber  string        `json:"dispatch_number" form:"dispatch_number" validate:"required,max=50"`
	RecipientName   string        `json:"recipient_name" form:"recipient_name" validate:"required,max=200"`
	RecipientType   RecipientType `json:"recipient_type,omitempty" form:"recipient_type" validate:"omitempty,oneof=hospital clinic customer internal"`
	ContactPhone    string        `json:"contact_phone,omitempty" form:"contact_phone"`
	DeliveryAddress string        `json:"delivery_address,omitempty" form:"delivery_address"`
	DispatchDate    string        `json:"dispatch_date" form:"dispatch_date" validate:"required,datetime=2006-01-02"`
	Notes           string        `json:"notes,omitempty" form:"notes"`
	Lines           []LinePayload `json:"lines" form:"lines" validate:"required,min=1,dive"`
}

// UpdatePayload edits the header of a dispatch order. Lines are fixed once
// the order exists.
type UpdatePayload struct {
	Status          Status        `json:"status,omitempty" form:"status" validate:"omitempty,oneof=draft confirmed dispatched delivered cancelled"`
	RecipientName   string        `json:"recipient_name" form:"recipient_name" validate:"required,max=200"`
	RecipientType   RecipientType `json:"recipient_type,omitempty" form:"recipient_type" validate:"omitempty,oneof=hospital clinic customer internal"`
	ContactPhone    string        `json:"contact_phone,omitempty" form:"contact_phone"`
	DeliveryAddress string        `json:"delivery_address,omitempty" form:"delivery_address"`
	DispatchDate    string        `json:"dispatch_date" form:"dispatch_date" validate:"required,datetime=2006-01-02"`
	Notes           string        `json:"notes,omitempty" form:"notes"`
}
