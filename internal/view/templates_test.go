package view

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastudio/warehouse-admin/internal/authstore"
	"github.com/datastudio/warehouse-admin/internal/nav"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
	assert.Contains(t, engine.Pages(), "pages/dashboard.html")
	assert.Contains(t, engine.Pages(), "pages/report_print.html")
}

func signedIn(data any, perms ...rbac.Permission) TemplateData {
	return TemplateData{
		Title:     "Page",
		CSRFToken: "tok",
		User:      &authstore.User{ID: "u1", Username: "ana"},
		Perms:     perms,
		Menu:      nav.Filter(nav.Default(), perms),
		ActiveKey: "products",
		Data:      data,
	}
}

func TestLayoutShowsOnlyPermittedMenu(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	out, err := engine.RenderBytes("pages/message.html", signedIn(
		Message{Heading: "Hello", Body: "Body text"},
		rbac.Permission{Resource: rbac.ResourceProducts, Action: rbac.ActionRead},
	))

	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, `href="/products"`)
	assert.Contains(t, html, `<li class="active"><a href="/products">`)
	assert.NotContains(t, html, `href="/admin/users"`)
	assert.NotContains(t, html, `href="/po"`)
	assert.Contains(t, html, "Sign out")
}

func TestSignedOutLayoutHasNoMenu(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	out, err := engine.RenderBytes("pages/unauthorized.html", TemplateData{
		Title: "Unauthorized",
		Flash: &shared.FlashMessage{Kind: FlashError, Message: "Please sign in"},
	})

	require.NoError(t, err)
	html := string(out)
	assert.NotContains(t, html, `class="menu"`)
	assert.Contains(t, html, "Please sign in")
	assert.Contains(t, html, `href="/login"`)
}

func TestListPageRendersActionsAndPagination(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	table := Table{
		Columns: []Column{{Label: "Name"}, {Label: "Qty", Numeric: true}},
		Rows: []Row{{
			Cells:   []Cell{{Text: "Gloves", Link: "/products/p1"}, {Text: "12"}},
			Actions: []Action{{Label: "Delete", Href: "/products/p1/delete", Method: "POST", Confirm: "Sure?", Danger: true}},
		}},
		Page:     &shared.Pagination{Page: 1, PerPage: 10, Total: 25, TotalPages: 3},
		BasePath: "/products",
	}
	out, err := engine.RenderBytes("pages/list.html", signedIn(table))

	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, `href="/products/p1"`)
	assert.Contains(t, html, `action="/products/p1/delete"`)
	assert.Contains(t, html, `value="tok"`)
	assert.Contains(t, html, "page=2")
}

func TestFormPageRendersFieldErrors(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	form := Form{
		Action: "/admin/roles",
		Submit: "Create Role",
		Fields: ApplyErrors([]Field{
			{Name: "name", Label: "Role Name", Required: true},
			{Name: "permissions", Label: "Permissions", Type: "checkboxes", Options: []Option{
				{Value: "p1", Label: "products: read", Selected: true},
				{Value: "p2", Label: "products: update"},
			}},
		}, map[string]string{"name": "This field is required"}),
	}
	out, err := engine.RenderBytes("pages/form.html", signedIn(form))

	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, "This field is required")
	assert.Contains(t, html, `value="p1" checked`)
	assert.Contains(t, html, `value="p2">`)
}

type printColumn struct {
	Label string
	Kind  int
}

func TestReportPrintIsStandalone(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	data := map[string]any{
		"Sheet": map[string]any{
			"Title":   "Fast Moving Items",
			"Filters": []string{"Last 30 days"},
			"Columns": []printColumn{{Label: "Product", Kind: 0}, {Label: "Dispatched", Kind: 2}},
		},
		"Rows":      [][]string{{"Gloves", "1,200"}},
		"Generated": "01 May 2024 10:00",
	}
	out, err := engine.RenderBytes("pages/report_print.html", signedIn(data))

	require.NoError(t, err)
	html := string(out)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(html), "<!doctype html>"))
	assert.NotContains(t, html, "Sign out")
	assert.Contains(t, html, "Last 30 days · 1 rows")
	assert.Contains(t, html, `<td class="num">1,200</td>`)
}

func TestUnknownPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	_, err = engine.RenderBytes("pages/missing.html", TemplateData{})
	assert.Error(t, err)
}
