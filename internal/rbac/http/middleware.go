// Package rbachttp turns route guard decisions into HTTP redirects.
package rbachttp

import (
	"log/slog"
	"net/http"

	"github.com/datastudio/warehouse-admin/internal/observability"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

// Middleware wires route guards for HTTP handlers. Every request re-evaluates
// against the identity restored for its browser session.
type Middleware struct {
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// RequireAuth lets through signed-in users and redirects everyone else to login.
func (m Middleware) RequireAuth() func(http.Handler) http.Handler {
	return m.guard(func(p rbac.Principal) rbac.Decision {
		return rbac.Authenticated(p)
	})
}

// RequirePermission requires resource:action on top of a signed-in user.
func (m Middleware) RequirePermission(resource, action string) func(http.Handler) http.Handler {
	check := rbac.Need(resource, action)
	return m.guard(func(p rbac.Principal) rbac.Decision {
		return rbac.Authorize(p, check)
	})
}

// RequireAny requires at least one of checks.
func (m Middleware) RequireAny(checks ...rbac.Check) func(http.Handler) http.Handler {
	required := append([]rbac.Check(nil), checks...)
	return m.guard(func(p rbac.Principal) rbac.Decision {
		return rbac.AuthorizeAny(p, required...)
	})
}

func (m Middleware) guard(decide func(rbac.Principal) rbac.Decision) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := decide(shared.SnapshotFromContext(r.Context()))
			if decision.Allowed() {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Debug("route guard redirect",
					slog.String("path", r.URL.Path),
					slog.String("target", decision.Target))
			}
			m.Metrics.GuardRedirect(decision.Target)
			Redirect(w, r, decision.Target)
		})
	}
}

// Redirect sends the browser to target. HTMX requests get an HX-Redirect
// header so the whole page navigates instead of swapping a fragment.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
