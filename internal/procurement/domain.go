package procurement

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidID rejects blank path ids.
	ErrInvalidID = errors.New("procurement: invalid id")
	// ErrInvalidTransition rejects a status change the order cannot make.
	ErrInvalidTransition = errors.New("procurement: status change not allowed")
)

// Supplier is a vendor the warehouse buys from.
type Supplier struct {
	ID            string  `json:"id"`
	SupplierCode  string  `json:"supplier_code"`
	Name          string  `json:"name"`
	ContactPerson *string `json:"contact_person"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
	IsActive      bool    `json:"is_active"`
	CreatedAt     string  `json:"created_at"`
}

// SupplierPayload creates or updates a supplier.
type SupplierPayload struct {
	SupplierCode  string `json:"supplier_code" form:"supplier_code" validate:"required,max=50"`
	Name          string `json:"name" form:"name" validate:"required,max=200"`
	ContactPerson string `json:"contact_person,omitempty" form:"contact_person"`
	Email         string `json:"email,omitempty" form:"email" validate:"omitempty,email"`
	Phone         string `json:"phone,omitempty" form:"phone"`
	Address       string `json:"address,omitempty" form:"address"`
	IsActive      bool   `json:"is_active" form:"is_active"`
}

// ProductRef is the product summary embedded in orders and pickers.
type ProductRef struct {
	ID            string `json:"id"`
	ProductCode   string `json:"product_code"`
	Name          string `json:"name"`
	UnitOfMeasure string `json:"unit_of_measure"`
}

// SupplierProduct is a product offered by a supplier.
type SupplierProduct struct {
	ID                 string     `json:"id"`
	Product            ProductRef `json:"product"`
	SupplierPartNumber *string    `json:"supplier_part_number"`
	IsPrimarySupplier  bool       `json:"is_primary_supplier"`
	UnitCost           *string    `json:"unit_cost"`
}

// Purchase order statuses.
const (
	StatusDraft        = "draft"
	StatusSent         = "sent"
	StatusPartReceived = "part_received"
	StatusReceived     = "received"
	StatusCancelled    = "cancelled"
)

// Statuses lists purchase order statuses in lifecycle order.
var Statuses = []string{StatusDraft, StatusSent, StatusPartReceived, StatusReceived, StatusCancelled}

var transitions = map[string][]string{
	StatusDraft:        {StatusSent, StatusCancelled},
	StatusSent:         {StatusCancelled},
	StatusPartReceived: {},
	StatusReceived:     {},
	StatusCancelled:    {},
}

// CanTransition reports whether an order in status from may be moved to to
// by hand. Receiving stock moves orders through the goods receipt instead.
func CanTransition(from, to string) bool {
	return slices.Contains(transitions[from], to)
}

// Receivable reports whether goods can be booked against an order.
func Receivable(status string) bool {
	return status == StatusSent || status == StatusPartReceived
}

// POLine is one ordered product.
type POLine struct {
	ID              string     `json:"id"`
	LineNumber      int        `json:"line_number"`
	Product         ProductRef `json:"product"`
	QuantityOrdered int        `json:"quantity_ordered"`
	UnitCost        string     `json:"unit_cost"`
}

// PurchaseOrder is an order placed with a supplier.
type PurchaseOrder struct {
	ID        string   `json:"id"`
	PONumber  string   `json:"po_number"`
	Supplier  Supplier `json:"supplier"`
	OrderDate string   `json:"order_date"`
	Status    string   `json:"status"`
	Lines     []POLine `json:"lines"`
	Notes     *string  `json:"notes"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// POFilter narrows the purchase order list.
type POFilter struct {
	Page       int
	PageSize   int
	SupplierID string
	Status     string
	StartDate  string
	EndDate    string
}

// POLinePayload is one line of a new order.
type POLinePayload struct {
	ProductID       string `json:"product_id" form:"product_id" validate:"required"`
	QuantityOrdered int    `json:"quantity_ordered" form:"quantity_ordered" validate:"gt=0"`
	UnitCost        string `json:"unit_cost" form:"unit_cost" validate:"required,numeric"`
}

// POPayload creates a purchase order.
type POPayload struct {
	PONumber   string          `json:"po_number" form:"po_number" validate:"required,max=50"`
	SupplierID string          `json:"supplier_id" form:"supplier_id" validate:"required"`
	OrderDate  string          `json:"order_date" form:"order_date" validate:"required,datetime=2006-01-02"`
	Notes      string          `json:"notes,omitempty" form:"notes"`
	Lines      []POLinePayload `json:"lines" form:"lines" validate:"required,min=1,dive"`
}

// POUpdate changes the status or notes of an order.
type POUpdate struct {
	Status   string `json:"status,omitempty"`
	SentDate string `json:"sent_date,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// ReceiptLinePayload books stock against one order line.
type ReceiptLinePayload struct {
	POLineID         string `json:"po_line_id" form:"po_line_id" validate:"required"`
	ProductID        string `json:"product_id" form:"product_id" validate:"required"`
	QuantityReceived int    `json:"quantity_received" form:"quantity_received" validate:"gt=0"`
	UnitCost         string `json:"unit_cost,omitempty" form:"unit_cost" validate:"omitempty,numeric"`
	BatchNumber      string `json:"batch_number,omitempty" form:"batch_number"`
	SerialNumber     string `json:"serial_number,omitempty" form:"serial_number"`
	ExpiryDate       string `json:"expiry_date,omitempty" form:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
}

// ReceiptPayload records a goods receipt note.
type ReceiptPayload struct {
	GRNNumber       string               `json:"grn_number" form:"grn_number" validate:"required,max=50"`
	PurchaseOrderID string               `json:"purchase_order_id" form:"purchase_order_id" validate:"required"`
	ReceivedDate    string               `json:"received_date" form:"received_date" validate:"required,datetime=2006-01-02"`
	Notes           string               `json:"notes,omitempty" form:"notes"`
	Lines           []ReceiptLinePayload `json:"lines" form:"lines" validate:"required,min=1,dive"`
}

// GoodsReceipt is the API's record of a receipt.
type GoodsReceipt struct {
	ID           string `json:"id"`
	GRNNumber    string `json:"grn_number"`
	ReceivedDate string `json:"received_date"`
}
