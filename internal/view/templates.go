package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"

	"github.com/datastudio/warehouse-admin/internal/authstore"
	"github.com/datastudio/warehouse-admin/internal/nav"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	"github.com/datastudio/warehouse-admin/internal/shared"
	"github.com/datastudio/warehouse-admin/web"
)

const layoutName = "layouts/base.html"

// Engine renders HTML templates. Every page is parsed into its own clone of
// the shared layouts and partials so pages can each define "content".
type Engine struct {
	base  *template.Template
	pages map[string]*template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	User        *authstore.User
	Perms       []rbac.Permission
	Menu        []nav.Item
	ActiveKey   string
	Data        any
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	return newEngine(web.Templates)
}

func newEngine(fsys fs.FS) (*Engine, error) {
	base, err := template.New("root").Funcs(funcMap()).ParseFS(fsys, "templates/layouts/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parse layouts: %w", err)
	}
	files, err := fs.Glob(fsys, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", file, err)
		}
		pages["pages/"+path.Base(file)] = clone
	}
	return &Engine{base: base, pages: pages}, nil
}

// Render executes a page with TemplateData. Pages that define "standalone"
// are rendered without the application layout.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	out, err := e.RenderBytes(name, data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = w.Write(out)
	return err
}

// RenderBytes executes a page into memory. Rendering fully before writing
// keeps a template error from producing half a page.
func (e *Engine) RenderBytes(name string, data TemplateData) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("template engine not initialised")
	}
	tpl, ok := e.pages[name]
	if !ok {
		return nil, fmt.Errorf("view: unknown page %q", name)
	}
	entry := layoutName
	if tpl.Lookup("standalone") != nil {
		entry = "standalone"
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, entry, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Pages lists the parsed page names.
func (e *Engine) Pages() []string {
	names := make([]string, 0, len(e.pages))
	for name := range e.pages {
		names = append(names, name)
	}
	return names
}
