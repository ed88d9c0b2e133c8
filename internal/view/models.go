package view

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/datastudio/warehouse-admin/internal/shared"
)

// Column heads a table column.
type Column struct {
	Label   string
	Numeric bool
}

// Cell is one rendered table value. Badge, when set, renders Text as a tag
// with that CSS modifier.
type Cell struct {
	Text  string
	Link  string
	Badge string
}

// Action is a link or, when Method is POST, a button in its own form.
type Action struct {
	Label   string
	Href    string
	Method  string
	Confirm string
	Danger  bool
	// Hidden form fields submitted with a POST action.
	Fields map[string]string
}

// Row is one table row.
type Row struct {
	Cells   []Cell
	Actions []Action
}

// Table drives pages/list.html and the table partial.
type Table struct {
	Heading  string
	Columns  []Column
	Rows     []Row
	Empty    string
	Error    string
	Filters  []Field
	Actions  []Action
	Page     *shared.Pagination
	BasePath string
	Query    url.Values
	// Form rendered under the table, e.g. inline category creation.
	Form *Form
}

// Option is a select choice.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Field is one form input.
type Field struct {
	Name        string
	Label       string
	Type        string
	Value       string
	Placeholder string
	Help        string
	Error       string
	Required    bool
	Checked     bool
	Options     []Option
}

// LineEditor renders repeated rows of inputs for order lines.
type LineEditor struct {
	Heading string
	Columns []string
	Rows    [][]Field
}

// Form drives pages/form.html.
type Form struct {
	Heading string
	Action  string
	Submit  string
	Cancel  string
	Error   string
	Fields  []Field
	Lines   *LineEditor
}

// Item is a label/value pair on a detail page.
type Item struct {
	Label string
	Value string
	Link  string
	Badge string
}

// Detail drives pages/detail.html.
type Detail struct {
	Heading string
	Error   string
	Items   []Item
	Actions []Action
	Tables  []Table
	Forms   []Form
}

// Message drives pages/message.html.
type Message struct {
	Heading string
	Body    string
	Link    string
	LinkTo  string
}

// Options builds select options from value/label pairs, marking selected.
func Options(selected string, pairs ...string) []Option {
	opts := make([]Option, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		opts = append(opts, Option{Value: pairs[i], Label: pairs[i+1], Selected: pairs[i] == selected})
	}
	return opts
}

// ApplyErrors copies per-field messages onto fields.
func ApplyErrors(fields []Field, errs map[string]string) []Field {
	for i := range fields {
		if msg, ok := errs[fields[i].Name]; ok {
			fields[i].Error = msg
		}
	}
	return fields
}

// Bool renders a boolean as Yes/No.
func Bool(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// ActiveBadge renders an is_active flag as a cell.
func ActiveBadge(active bool) Cell {
	if active {
		return Cell{Text: "Active", Badge: "ok"}
	}
	return Cell{Text: "Inactive", Badge: "off"}
}

// Text returns the string or "-" when empty.
func Text(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Deref returns *s or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StatusBadge renders a purchase or dispatch order status as a tag.
func StatusBadge(status string) Cell {
	badge := "info"
	switch status {
	case "draft":
		badge = "off"
	case "received", "delivered":
		badge = "ok"
	case "part_received", "dispatched":
		badge = "warn"
	case "cancelled":
		badge = "danger"
	}
	return Cell{Text: StatusLabel(status), Badge: badge}
}

// LineTotal multiplies a quantity by a decimal unit cost, formatted as money.
func LineTotal(qty int, unitCost string) (string, float64) {
	cost, err := strconv.ParseFloat(strings.TrimSpace(unitCost), 64)
	if err != nil {
		return "-", 0
	}
	total := float64(qty) * cost
	return FormatMoney(strconv.FormatFloat(total, 'f', 2, 64)), total
}

// Stat is a headline figure on the dashboard. Tone picks a CSS modifier.
type Stat struct {
	Label string
	Value string
	Hint  string
	Tone  string
}
