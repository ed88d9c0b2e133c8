package view

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/nav"
	rbachttp "github.com/datastudio/warehouse-admin/internal/rbac/http"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Responder renders pages with the per-request chrome (identity, menu, CSRF
// token, flash) and turns API failures into the right response.
type Responder struct {
	Engine *Engine
	CSRF   *shared.CSRFManager
	Logger *slog.Logger
}

// NewResponder constructs a Responder.
func NewResponder(engine *Engine, csrf *shared.CSRFManager, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{Engine: engine, CSRF: csrf, Logger: logger}
}

// Data assembles TemplateData for r.
func (rs *Responder) Data(r *http.Request, title string, data any) TemplateData {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	snap := shared.SnapshotFromContext(ctx)

	td := TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		User:        snap.User,
		Perms:       snap.Permissions,
		Data:        data,
	}
	if sess != nil {
		if token, err := rs.CSRF.EnsureToken(sess); err == nil {
			td.CSRFToken = token
		}
		td.Flash = sess.PopFlash()
	}
	if menu := nav.FromContext(ctx); menu != nil {
		td.Menu = menu.Visible()
	} else {
		td.Menu = nav.Filter(nav.Default(), snap.Permissions)
	}
	td.ActiveKey = nav.ActiveKey(nav.Default(), r.URL.Path)
	return td
}

// Page renders a named page with status.
func (rs *Responder) Page(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	out, err := rs.Engine.RenderBytes(name, rs.Data(r, title, data))
	if err != nil {
		rs.Logger.Error("render page", slog.String("page", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

// Table renders the generic list page.
func (rs *Responder) Table(w http.ResponseWriter, r *http.Request, title string, t Table) {
	rs.Page(w, r, http.StatusOK, "pages/list.html", title, t)
}

// Form renders the generic form page. A form carrying errors is a 422.
func (rs *Responder) Form(w http.ResponseWriter, r *http.Request, title string, f Form) {
	status := http.StatusOK
	if f.Error != "" || hasFieldErrors(f.Fields) {
		status = http.StatusUnprocessableEntity
	}
	rs.Page(w, r, status, "pages/form.html", title, f)
}

// Detail renders the generic detail page.
func (rs *Responder) Detail(w http.ResponseWriter, r *http.Request, title string, d Detail) {
	rs.Page(w, r, http.StatusOK, "pages/detail.html", title, d)
}

// HandleError deals with an API failure that prevents the page from
// rendering. It reports true when the caller should stop: a rejected
// identity goes back to login, anything else becomes an inline message.
func (rs *Responder) HandleError(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, apiclient.ErrInvalidUser) {
		rbachttp.Redirect(w, r, "/login")
		return true
	}
	status := apiclient.StatusCode(err)
	switch {
	case status == http.StatusNotFound:
	case status >= 400 && status < 500:
		status = http.StatusBadRequest
	default:
		rs.Logger.Error("api request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		status = http.StatusBadGateway
	}
	rs.Page(w, r, status, "pages/message.html", "Something went wrong", Message{
		Heading: "Something went wrong",
		Body:    apiclient.Message(err),
		Link:    "Back to dashboard",
		LinkTo:  "/",
	})
	return true
}

// FormError returns the inline message for a failed mutation, or redirects
// to login and returns ok=false when the identity was rejected.
func (rs *Responder) FormError(w http.ResponseWriter, r *http.Request, err error) (string, bool) {
	if errors.Is(err, apiclient.ErrInvalidUser) {
		rbachttp.Redirect(w, r, "/login")
		return "", false
	}
	var verr *shared.ValidationError
	if errors.As(err, &verr) {
		return validationSummary(verr), true
	}
	if apiclient.StatusCode(err) == 0 || apiclient.StatusCode(err) >= 500 {
		rs.Logger.Warn("api mutation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	return apiclient.Message(err), true
}

// FormFailure re-renders f after a failed submission: field errors land on
// their inputs, other failures become the form-level message.
func (rs *Responder) FormFailure(w http.ResponseWriter, r *http.Request, title string, f Form, err error) {
	var verr *shared.ValidationError
	if errors.As(err, &verr) {
		f.Fields = ApplyErrors(f.Fields, verr.Fields)
		if rest := unmatched(f.Fields, verr.Fields); len(rest.Fields) > 0 {
			f.Error = validationSummary(rest)
		}
		rs.Form(w, r, title, f)
		return
	}
	msg, ok := rs.FormError(w, r, err)
	if !ok {
		return
	}
	f.Error = msg
	rs.Form(w, r, title, f)
}

// Redirect queues a flash message and sends the browser to location.
func (rs *Responder) Redirect(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && message != "" {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	rbachttp.Redirect(w, r, location)
}

// Outcome finishes a button-style mutation: the browser returns to location
// with a success or error flash. A rejected identity goes to login instead.
func (rs *Responder) Outcome(w http.ResponseWriter, r *http.Request, err error, location, success string) {
	if err == nil {
		rs.Redirect(w, r, location, FlashSuccess, success)
		return
	}
	msg, ok := rs.FormError(w, r, err)
	if !ok {
		return
	}
	rs.Redirect(w, r, location, FlashError, msg)
}

func validationSummary(verr *shared.ValidationError) string {
	keys := make([]string, 0, len(verr.Fields))
	for k := range verr.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "general" {
			parts = append(parts, verr.Fields[k])
			continue
		}
		parts = append(parts, k+": "+verr.Fields[k])
	}
	return strings.Join(parts, "; ")
}

func unmatched(fields []Field, errs map[string]string) *shared.ValidationError {
	rest := &shared.ValidationError{Fields: map[string]string{}}
	for k, v := range errs {
		rest.Fields[k] = v
	}
	for _, f := range fields {
		delete(rest.Fields, f.Name)
	}
	return rest
}

func hasFieldErrors(fields []Field) bool {
	for _, f := range fields {
		if f.Error != "" {
			return true
		}
	}
	return false
}
