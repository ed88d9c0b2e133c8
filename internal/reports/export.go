package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/datastudio/warehouse-admin/internal/view"
)

// ColumnKind controls how a raw sheet value is displayed.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindDate
	KindNumber
	KindMoney
)

// Column heads one sheet column.
type Column struct {
	Label string
	Kind  ColumnKind
}

// Display formats raw for screen and print.
func (c Column) Display(raw string) string {
	switch c.Kind {
	case KindDate:
		return view.FormatDate(raw)
	case KindNumber:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return raw
		}
		return view.FormatNumber(n)
	case KindMoney:
		return view.FormatMoney(raw)
	default:
		return view.Text(raw)
	}
}

// Sheet is a report flattened to rows of raw values. CSV exports write the
// raw values; pages and PDFs show them through Column.Display.
type Sheet struct {
	Name    string
	Title   string
	Filters []string
	Columns []Column
	Rows    [][]string
	// Links holds an optional target per row for the first cell.
	Links []string
}

// Formatted returns the rows as displayed.
func (s Sheet) Formatted() [][]string {
	out := make([][]string, len(s.Rows))
	for i, row := range s.Rows {
		cells := make([]string, len(row))
		for j, raw := range row {
			if j < len(s.Columns) {
				cells[j] = s.Columns[j].Display(raw)
			} else {
				cells[j] = raw
			}
		}
		out[i] = cells
	}
	return out
}

// Filename names an export of the sheet generated at t.
func (s Sheet) Filename(t time.Time, ext string) string {
	return fmt.Sprintf("%s-%s.%s", s.Name, t.Format("20060102"), ext)
}

// WriteCSV serialises the sheet with a header row.
func WriteCSV(w io.Writer, s Sheet) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		header[i] = c.Label
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range s.Rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// PurchaseSheet flattens purchase history lines.
func PurchaseSheet(items []PurchaseHistoryItem) Sheet {
	s := Sheet{
		Name:  "purchase-history",
		Title: "Purchase History",
		Columns: []Column{
			{Label: "PO number"}, {Label: "Supplier"}, {Label: "Purchase date", Kind: KindDate}, {Label: "Product"},
			{Label: "Quantity", Kind: KindNumber}, {Label: "Unit cost", Kind: KindMoney}, {Label: "Total cost", Kind: KindMoney},
		},
	}
	for _, it := range items {
		s.Rows = append(s.Rows, []string{
			it.PONumber, it.SupplierName, dateOnly(it.PurchaseDate), it.ProductName,
			strconv.Itoa(it.Quantity), it.UnitCost, it.TotalCost,
		})
	}
	return s
}

// DispatchSheet flattens dispatch history lines.
func DispatchSheet(items []DispatchHistoryItem) Sheet {
	s := Sheet{
		Name:  "dispatch-history",
		Title: "Dispatch History",
		Columns: []Column{
			{Label: "Dispatch number"}, {Label: "Recipient"}, {Label: "Dispatch date", Kind: KindDate},
			{Label: "Product"}, {Label: "Quantity", Kind: KindNumber},
		},
	}
	for _, it := range items {
		s.Rows = append(s.Rows, []string{
			it.DispatchNumber, it.RecipientName, dateOnly(it.DispatchDate), it.ProductName, strconv.Itoa(it.Quantity),
		})
	}
	return s
}

// MoversSheet flattens a movers ranking. Rows link to the product.
func MoversSheet(items []MoverItem, fast bool) Sheet {
	s := Sheet{
		Name:  "slow-movers",
		Title: "Slow Moving Items",
		Columns: []Column{
			{Label: "Product code"}, {Label: "Product"}, {Label: "Category"}, {Label: "Quantity moved", Kind: KindNumber},
		},
	}
	if fast {
		s.Name, s.Title = "fast-movers", "Fast Moving Items"
	}
	for _, it := range items {
		s.Rows = append(s.Rows, []string{it.ProductCode, it.ProductName, it.CategoryName, strconv.Itoa(it.TotalQuantityMoved)})
		s.Links = append(s.Links, "/products/"+it.ProductID)
	}
	return s
}

// dateOnly trims an API timestamp to its date part.
func dateOnly(raw string) string {
	if len(raw) > len(time.DateOnly) {
		return raw[:len(time.DateOnly)]
	}
	return raw
}
