package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/datastudio/warehouse-admin/internal/auth"
	"github.com/datastudio/warehouse-admin/internal/authstore"
	"github.com/datastudio/warehouse-admin/internal/delivery"
	"github.com/datastudio/warehouse-admin/internal/inventory"
	"github.com/datastudio/warehouse-admin/internal/nav"
	"github.com/datastudio/warehouse-admin/internal/observability"
	"github.com/datastudio/warehouse-admin/internal/platform/httpx"
	"github.com/datastudio/warehouse-admin/internal/platform/pdf"
	"github.com/datastudio/warehouse-admin/internal/procurement"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	rbachttp "github.com/datastudio/warehouse-admin/internal/rbac/http"
	"github.com/datastudio/warehouse-admin/internal/reports"
	"github.com/datastudio/warehouse-admin/internal/roles"
	"github.com/datastudio/warehouse-admin/internal/shared"
	"github.com/datastudio/warehouse-admin/internal/users"
	"github.com/datastudio/warehouse-admin/internal/view"
	"github.com/datastudio/warehouse-admin/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Responder      *view.Responder
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guards         rbachttp.Middleware
	Metrics        *observability.Metrics
	Redis          redis.UniversalClient
	PDF            *pdf.Client

	AuthHandler        *auth.Handler
	InventoryHandler   *inventory.Handler
	ProcurementHandler *procurement.Handler
	DeliveryHandler    *delivery.Handler
	ReportsHandler     *reports.Handler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
}

// sessionView is the JSON body of GET /session.
type sessionView struct {
	Authenticated bool               `json:"authenticated"`
	Session       authstore.Snapshot `json:"session"`
	Menu          []nav.Item         `json:"menu"`
	ActiveKey     string             `json:"active_key"`
	Checked       map[string]bool    `json:"checked,omitempty"`
}

// NewRouter constructs the chi.Router with the console defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	// Probes and static assets skip sessions, CSRF and rate limiting.
	r.Get("/healthz", healthHandler(params))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(chimw.Logger)

		r.Get(rbac.UnauthorizedPath, func(w http.ResponseWriter, r *http.Request) {
			params.Responder.Page(w, r, http.StatusForbidden, "pages/unauthorized.html", "Unauthorized", nil)
		})
		r.With(params.Guards.RequireAuth()).Get("/session", sessionHandler)

		params.AuthHandler.MountRoutes(r)
		params.ReportsHandler.MountRoutes(r)
		params.InventoryHandler.MountRoutes(r)
		params.ProcurementHandler.MountRoutes(r)
		params.DeliveryHandler.MountRoutes(r)
		params.UsersHandler.MountRoutes(r)
		params.RolesHandler.MountRoutes(r)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			rbachttp.Redirect(w, r, "/")
		})
	})

	return r
}

func sessionHandler(w http.ResponseWriter, r *http.Request) {
	snap := shared.SnapshotFromContext(r.Context())
	out := sessionView{
		Authenticated: snap.IsAuthenticated(),
		Session:       snap,
		Menu:          []nav.Item{},
	}
	if menu := nav.FromContext(r.Context()); menu != nil {
		out.Menu = menu.Visible()
		out.ActiveKey = nav.ActiveKey(out.Menu, r.URL.Query().Get("path"))
	}
	if checks := r.URL.Query()["check"]; len(checks) > 0 {
		out.Checked = make(map[string]bool, len(checks))
		for _, raw := range checks {
			check, ok := rbac.ParseCheck(raw)
			if !ok {
				httpx.RespondError(w, fmt.Errorf("%w: check %q must be resource:action", httpx.ErrValidation, raw))
				return
			}
			out.Checked[raw] = snap.Can(check.Resource, check.Action)
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}

// healthHandler pings Redis and, when configured, Gotenberg. PDF export is
// optional, so a Gotenberg failure degrades rather than fails the probe.
func healthHandler(params RouterParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := map[string]string{}
		if params.Redis != nil {
			checks["redis"] = "ok"
			if err := params.Redis.Ping(ctx).Err(); err != nil {
				params.Logger.Warn("health check redis", slog.Any("error", err))
				checks["redis"] = "down"
				status = http.StatusServiceUnavailable
			}
		}
		if params.PDF.Enabled() {
			checks["pdf"] = "ok"
			if err := params.PDF.Ping(ctx); err != nil {
				params.Logger.Warn("health check pdf", slog.Any("error", err))
				checks["pdf"] = "degraded"
			}
		}
		body := map[string]any{"status": "ok", "checks": checks}
		if status != http.StatusOK {
			body["status"] = "unavailable"
		}
		httpx.JSON(w, status, body)
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
