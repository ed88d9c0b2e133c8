package reports

// ============================================================================
// DASHBOARD
// ============================================================================

// StockValuation totals the value of stock on hand.
type StockValuation struct {
	TotalItems    int    `json:"total_items"`
	TotalQuantity int    `json:"total_quantity"`
	TotalValue    string `json:"total_value"`
	AverageCost   string `json:"average_cost"`
}

// Summary is the compact dashboard summary.
type Summary struct {
	StockValuation        StockValuation `json:"stock_valuation"`
	LowStockItemsCount    int            `json:"low_stock_items_count"`
	PendingPOCount        int            `json:"pending_po_count"`
	RecentDispatchesCount int            `json:"recent_dispatches_count"`
}

// LowStockProduct is a product at or below its reorder level.
type LowStockProduct struct {
	ProductID           string  `json:"product_id"`
	ProductName         string  `json:"product_name"`
	ProductCode         string  `json:"product_code"`
	CurrentQuantity     int     `json:"current_quantity"`
	ReorderLevel        int     `json:"reorder_level"`
	PrimarySupplierName *string `json:"primary_supplier_name"`
}

// StatusCount is the number of orders in one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// MovementSummary totals stock movement quantities by type.
type MovementSummary struct {
	TotalIn         int `json:"total_in"`
	TotalOut        int `json:"total_out"`
	TotalAdjustment int `json:"total_adjustment"`
}

// TopSupplier ranks suppliers by purchase order value.
type TopSupplier struct {
	SupplierID   string `json:"supplier_id"`
	SupplierName string `json:"supplier_name"`
	TotalPOValue string `json:"total_po_value"`
}

// RecentReceipt is a recently received product.
type RecentReceipt struct {
	ProductID        string `json:"product_id"`
	ProductName      string `json:"product_name"`
	QuantityReceived int    `json:"quantity_received"`
	SupplierName     string `json:"supplier_name"`
	ReceivedDate     string `json:"received_date"`
}

// EnhancedSummary is the detailed dashboard summary.
type EnhancedSummary struct {
	StockValuation        StockValuation    `json:"stock_valuation"`
	LowStockProducts      []LowStockProduct `json:"low_stock_products"`
	PurchaseOrderStatuses []StatusCount     `json:"purchase_order_status_summary"`
	DispatchOrderStatuses []StatusCount     `json:"dispatch_order_status_summary"`
	StockMovements        MovementSummary   `json:"stock_movement_summary"`
	TopSuppliers          []TopSupplier     `json:"top_suppliers"`
	RecentlyReceivedItems []RecentReceipt   `json:"recently_received_items"`
}

// Dashboard combines both summaries with the derived counters.
type Dashboard struct {
	Summary        Summary
	Enhanced       EnhancedSummary
	PendingPOs     int
	OpenDispatches int
}

// Order statuses that count as pending purchase orders and open dispatches.
var (
	pendingPOStatuses    = []string{"sent", "part_received"}
	openDispatchStatuses = []string{"draft", "confirmed"}
)

// CountStatuses sums the counts of the given statuses.
func CountStatuses(summary []StatusCount, statuses ...string) int {
	total := 0
	for _, s := range summary {
		for _, want := range statuses {
			if s.Status == want {
				total += s.Count
				break
			}
		}
	}
	return total
}

// ============================================================================
// HISTORY AND MOVERS
// ============================================================================

// PurchaseHistoryItem is one purchased line.
type PurchaseHistoryItem struct {
	ID           string `json:"id"`
	PONumber     string `json:"po_number"`
	SupplierName string `json:"supplier_name"`
	PurchaseDate string `json:"purchase_date"`
	ProductName  string `json:"product_name"`
	Quantity     int    `json:"quantity"`
	UnitCost     string `json:"unit_cost"`
	TotalCost    string `json:"total_cost"`
}

// DispatchHistoryItem is one dispatched line.
type DispatchHistoryItem struct {
	ID             string `json:"id"`
	DispatchNumber string `json:"dispatch_number"`
	RecipientName  string `json:"recipient_name"`
	DispatchDate   string `json:"dispatch_date"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
}

// MoverItem is a product ranked by quantity moved.
type MoverItem struct {
	ID                 string `json:"id"`
	ProductID          string `json:"product_id"`
	ProductName        string `json:"product_name"`
	ProductCode        string `json:"product_code"`
	CategoryName       string `json:"category_name"`
	TotalQuantityMoved int    `json:"total_quantity_moved"`
}

// TimeWindow is the look-back period of the movers reports.
type TimeWindow string

const (
	Window30Days TimeWindow = "30d"
	Window90Days TimeWindow = "90d"
	WindowYear   TimeWindow = "1y"
)

// TimeWindows lists the accepted windows, shortest first.
var TimeWindows = []TimeWindow{Window30Days, Window90Days, WindowYear}

// IsValid checks if the window is known.
func (w TimeWindow) IsValid() bool {
	switch w {
	case Window30Days, Window90Days, WindowYear:
		return true
	default:
		return false
	}
}

// Label is the human readable window.
func (w TimeWindow) Label() string {
	switch w {
	case Window90Days:
		return "Last 90 days"
	case WindowYear:
		return "Last year"
	default:
		return "Last 30 days"
	}
}

// DateRange bounds a history report. Either end may be open.
type DateRange struct {
	StartDate string `form:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// PurchaseFilter narrows the purchase history.
type PurchaseFilter struct {
	DateRange
	Page       int
	PageSize   int
	ProductID  string
	SupplierID string
}

// DispatchFilter narrows the dispatch history.
type DispatchFilter struct {
	DateRange
	Page          int
	PageSize      int
	ProductID     string
	RecipientType string
}

// MoversFilter selects a page of the movers reports.
type MoversFilter struct {
	Page     int
	PageSize int
	Window   TimeWindow
}

// Choice is an id/name pair offered in report filters.
type Choice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Pickers holds the filter choices of the history reports.
type Pickers struct {
	Products  []Choice
	Suppliers []Choice
}
