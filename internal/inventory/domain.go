package inventory

import "errors"

// ErrInvalidID rejects path ids that cannot belong to the API.
var ErrInvalidID = errors.New("inventory: invalid id")

// Category groups products.
type Category struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
}

// CategoryPayload creates or updates a category. The API assigns the code.
type CategoryPayload struct {
	Name        string `json:"name" form:"name" validate:"required,max=100"`
	Description string `json:"description" form:"description" validate:"max=500"`
	IsActive    bool   `json:"is_active" form:"is_active"`
}

// Product is a stocked item.
type Product struct {
	ID                     string    `json:"id"`
	ProductCode            string    `json:"product_code"`
	Name                   string    `json:"name"`
	Description            *string   `json:"description"`
	UnitOfMeasure          string    `json:"unit_of_measure"`
	Category               *Category `json:"category"`
	ReorderLevel           int       `json:"reorder_level"`
	IsActive               bool      `json:"is_active"`
	CreatedAt              string    `json:"created_at"`
	UpdatedAt              string    `json:"updated_at"`
	Barcode                *string   `json:"barcode"`
	SerialNumber           *string   `json:"serial_number"`
	RequiresSerialTracking bool      `json:"requires_serial_tracking"`
	RequiresBatchTracking  bool      `json:"requires_batch_tracking"`
	RequiresExpiryTracking bool      `json:"requires_expiry_tracking"`
}

// CategoryName returns the category name or "".
func (p Product) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Name
}

// ProductPayload creates or updates a product. The initial supplier fields are
// honoured on create only.
type ProductPayload struct {
	Name                      string `json:"name" form:"name" validate:"required,max=200"`
	Description               string `json:"description" form:"description"`
	UnitOfMeasure             string `json:"unit_of_measure" form:"unit_of_measure" validate:"required,max=20"`
	CategoryID                string `json:"category_id,omitempty" form:"category_id"`
	ReorderLevel              int    `json:"reorder_level" form:"reorder_level" validate:"gte=0"`
	IsActive                  bool   `json:"is_active" form:"is_active"`
	Barcode                   string `json:"barcode,omitempty" form:"barcode"`
	SerialNumber              string `json:"serial_number,omitempty" form:"serial_number"`
	RequiresSerialTracking    bool   `json:"requires_serial_tracking" form:"requires_serial_tracking"`
	RequiresBatchTracking     bool   `json:"requires_batch_tracking" form:"requires_batch_tracking"`
	RequiresExpiryTracking    bool   `json:"requires_expiry_tracking" form:"requires_expiry_tracking"`
	InitialSupplierID         string `json:"initial_supplier_id,omitempty" form:"initial_supplier_id"`
	InitialSupplierPartNumber string `json:"initial_supplier_part_number,omitempty" form:"initial_supplier_part_number"`
	InitialUnitCost           string `json:"initial_unit_cost,omitempty" form:"initial_unit_cost" validate:"omitempty,numeric"`
}

// ProductFilter narrows the product list.
type ProductFilter struct {
	Page       int
	PageSize   int
	Search     string
	CategoryID string
	// IsActive is "", "true" or "false".
	IsActive string
}

// ProductImage is an image attached to a product.
type ProductImage struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	URL       string  `json:"url"`
	AltText   *string `json:"alt_text"`
}

// ImagePayload attaches an image by URL.
type ImagePayload struct {
	URL     string `json:"url" form:"url" validate:"required,url"`
	AltText string `json:"alt_text,omitempty" form:"alt_text"`
}

// SupplierRef is the supplier summary embedded in product links.
type SupplierRef struct {
	ID           string `json:"id"`
	SupplierCode string `json:"supplier_code"`
	Name         string `json:"name"`
	IsActive     bool   `json:"is_active"`
}

// ProductSupplier links a product to one of its suppliers.
type ProductSupplier struct {
	ID                 string      `json:"id"`
	Supplier           SupplierRef `json:"supplier"`
	SupplierPartNumber *string     `json:"supplier_part_number"`
	IsPrimarySupplier  bool        `json:"is_primary_supplier"`
	UnitCost           *string     `json:"unit_cost"`
}

// LinkPayload creates or updates a product-supplier link.
type LinkPayload struct {
	SupplierID         string `json:"supplier_id,omitempty" form:"supplier_id" validate:"required"`
	SupplierPartNumber string `json:"supplier_part_number,omitempty" form:"supplier_part_number"`
	IsPrimarySupplier  bool   `json:"is_primary_supplier" form:"is_primary_supplier"`
	UnitCost           string `json:"unit_cost,omitempty" form:"unit_cost" validate:"omitempty,numeric"`
}

// StockBalance is the current on-hand position of one product.
type StockBalance struct {
	ID                string  `json:"id"`
	ProductID         string  `json:"product_id"`
	ProductCode       string  `json:"product_code"`
	ProductName       string  `json:"product_name"`
	CurrentQuantity   int     `json:"current_quantity"`
	ReorderLevel      int     `json:"reorder_level"`
	BelowReorderLevel bool    `json:"below_reorder_level"`
	TotalValue        string  `json:"total_value"`
	AverageCost       string  `json:"average_cost"`
	LastMovementDate  *string `json:"last_movement_date"`
}

// Movement types.
const (
	MovementIn         = "in"
	MovementOut        = "out"
	MovementAdjustment = "adjustment"
)

// Performer is the user recorded on a movement.
type Performer struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// StockMovement is one ledger entry.
type StockMovement struct {
	ID              string     `json:"id"`
	Product         Product    `json:"product"`
	MovementType    string     `json:"movement_type"`
	Quantity        int        `json:"quantity"`
	UnitCost        *string    `json:"unit_cost"`
	ReferenceType   *string    `json:"reference_type"`
	ReferenceID     *string    `json:"reference_id"`
	ReferenceNumber *string    `json:"reference_number"`
	Notes           *string    `json:"notes"`
	PerformedBy     *Performer `json:"performedBy"`
	TransactionDate string     `json:"transaction_date"`
}

// MovementFilter narrows the movement ledger.
type MovementFilter struct {
	Page          int
	PageSize      int
	ProductID     string
	MovementType  string
	ReferenceType string
	StartDate     string
	EndDate       string
}

// LowStockAlert is a product below its reorder level.
type LowStockAlert struct {
	ID              string `json:"id"`
	ProductID       string `json:"product_id"`
	ProductCode     string `json:"product_code"`
	ProductName     string `json:"product_name"`
	CurrentQuantity int    `json:"current_quantity"`
	ReorderLevel    int    `json:"reorder_level"`
	Shortfall       int    `json:"shortfall"`
}
