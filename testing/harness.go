package testing

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	stdtesting "testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/app"
	"github.com/datastudio/warehouse-admin/internal/authstore"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	"github.com/datastudio/warehouse-admin/internal/shared"
	"github.com/datastudio/warehouse-admin/internal/view"
)

// CookieName is the session cookie used by harness sessions.
const CookieName = "wa_session"

// Harness bundles the session, rendering and API plumbing handler tests need.
type Harness struct {
	t         stdtesting.TB
	Redis     *miniredis.Miniredis
	Client    redis.UniversalClient
	Logger    *slog.Logger
	Sessions  *shared.SessionManager
	CSRF      *shared.CSRFManager
	Responder *view.Responder
	API       *apiclient.Client
}

// Browser is a cookie jar of one: the session cookie plus its CSRF token.
type Browser struct {
	Cookie *http.Cookie
	Token  string
	UserID string
}

// NewHarness starts miniredis and, when api is non-nil, an httptest server
// standing in for the remote inventory API.
func NewHarness(t stdtesting.TB, api http.Handler) *Harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	csrf := shared.NewCSRFManager("test-csrf-secret")

	h := &Harness{
		t:         t,
		Redis:     mr,
		Client:    client,
		Logger:    logger,
		Sessions:  shared.NewSessionManager(client, logger, CookieName, "test-session-secret", time.Hour, false),
		CSRF:      csrf,
		Responder: view.NewResponder(engine, csrf, logger),
	}
	if api != nil {
		srv := httptest.NewServer(api)
		t.Cleanup(srv.Close)
		h.API = apiclient.New(apiclient.Config{BaseURL: srv.URL, APIKey: "test-key"}, apiclient.WithLogger(logger))
	}
	return h
}

// Router mounts routes behind the session and CSRF middleware.
func (h *Harness) Router(mount func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(app.SessionMiddleware(h.Sessions, h.Logger))
	r.Use(app.CSRFMiddleware(h.CSRF, h.Logger))
	mount(r)
	return r
}

// Anonymous returns a browser holding a signed-out session.
func (h *Harness) Anonymous() *Browser {
	return h.browser(nil)
}

// SignIn returns a browser whose session carries user u1 with perms.
func (h *Harness) SignIn(perms ...rbac.Permission) *Browser {
	return h.browser(&authstore.Auth{
		User:        &authstore.User{ID: "u1", Username: "ana", Email: "ana@example.com", IsActive: true},
		Roles:       []rbac.Role{{ID: "r1", Name: "staff"}},
		Permissions: perms,
	})
}

func (h *Harness) browser(auth *authstore.Auth) *Browser {
	h.t.Helper()
	ctx := context.Background()
	sess, err := h.Sessions.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		h.t.Fatalf("load session: %v", err)
	}
	b := &Browser{}
	if auth != nil {
		if err := sess.Auth.SetAuth(ctx, *auth); err != nil {
			h.t.Fatalf("set auth: %v", err)
		}
		b.UserID = auth.User.ID
	}
	if b.Token, err = h.CSRF.EnsureToken(sess); err != nil {
		h.t.Fatalf("csrf: %v", err)
	}
	rec := httptest.NewRecorder()
	if err := h.Sessions.Commit(ctx, rec, sess); err != nil {
		h.t.Fatalf("commit session: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			b.Cookie = c
		}
	}
	if b.Cookie == nil {
		h.t.Fatalf("session cookie not issued")
	}
	return b
}

// Snapshot reads back the identity persisted for b.
func (h *Harness) Snapshot(b *Browser) authstore.Snapshot {
	h.t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(b.Cookie)
	sess, err := h.Sessions.Load(context.Background(), req)
	if err != nil {
		h.t.Fatalf("load session: %v", err)
	}
	return sess.Auth.Snapshot()
}

// Get issues a GET as b.
func (h *Harness) Get(handler http.Handler, b *Browser, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if b != nil {
		req.AddCookie(b.Cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// Post submits form as b, adding the CSRF token.
func (h *Harness) Post(handler http.Handler, b *Browser, target string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	if b != nil && form.Get(shared.CSRFFormField) == "" {
		form.Set(shared.CSRFFormField, b.Token)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if b != nil {
		req.AddCookie(b.Cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// Perm builds a permission.
func Perm(resource, action string) rbac.Permission {
	return rbac.Permission{ID: resource + ":" + action, Resource: resource, Action: action}
}

// Perms builds every action on resource.
func Perms(resource string, actions ...string) []rbac.Permission {
	out := make([]rbac.Permission, 0, len(actions))
	for _, action := range actions {
		out = append(out, Perm(resource, action))
	}
	return out
}
