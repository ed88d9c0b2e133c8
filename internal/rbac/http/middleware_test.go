package rbachttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastudio/warehouse-admin/internal/authstore"
	"github.com/datastudio/warehouse-admin/internal/observability"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	"github.com/datastudio/warehouse-admin/internal/shared"
)

func requestWith(t *testing.T, path string, auth *authstore.Auth) *http.Request {
	t.Helper()
	store := authstore.New("test", nil)
	if auth != nil {
		require.NoError(t, store.SetAuth(context.Background(), *auth))
	}
	req := httptest.NewRequest(http.MethodGet, path, nil)
	sess := &shared.Session{ID: "test", Auth: store}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("page"))
	})
}

func TestRequireAuthRedirectsAnonymousToLogin(t *testing.T) {
	mw := Middleware{Metrics: observability.NewMetrics()}
	rr := httptest.NewRecorder()

	mw.RequireAuth()(okHandler()).ServeHTTP(rr, requestWith(t, "/", nil))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestRequireAuthWithoutSessionRedirectsToLogin(t *testing.T) {
	mw := Middleware{}
	rr := httptest.NewRecorder()

	mw.RequireAuth()(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestRequirePermission(t *testing.T) {
	productsReader := &authstore.Auth{
		User:        &authstore.User{ID: "u1", Username: "ana"},
		Permissions: []rbac.Permission{{Resource: rbac.ResourceProducts, Action: rbac.ActionRead}},
	}
	cases := []struct {
		name     string
		auth     *authstore.Auth
		resource string
		action   string
		code     int
		location string
	}{
		{name: "anonymous", resource: rbac.ResourceProducts, action: rbac.ActionRead, code: http.StatusSeeOther, location: "/login"},
		{name: "granted", auth: productsReader, resource: rbac.ResourceProducts, action: rbac.ActionRead, code: http.StatusOK},
		{name: "missing action", auth: productsReader, resource: rbac.ResourceProducts, action: rbac.ActionCreate, code: http.StatusSeeOther, location: "/unauthorized"},
		{name: "missing resource", auth: productsReader, resource: rbac.ResourceUsers, action: rbac.ActionRead, code: http.StatusSeeOther, location: "/unauthorized"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mw := Middleware{}
			rr := httptest.NewRecorder()
			mw.RequirePermission(tc.resource, tc.action)(okHandler()).ServeHTTP(rr, requestWith(t, "/products", tc.auth))

			assert.Equal(t, tc.code, rr.Code)
			assert.Equal(t, tc.location, rr.Header().Get("Location"))
			if tc.code == http.StatusOK {
				assert.Equal(t, "page", rr.Body.String())
			}
		})
	}
}

func TestRequireAny(t *testing.T) {
	auth := &authstore.Auth{
		User:        &authstore.User{ID: "u1"},
		Permissions: []rbac.Permission{{Resource: rbac.ResourceRoles, Action: rbac.ActionRead}},
	}
	mw := Middleware{}

	rr := httptest.NewRecorder()
	mw.RequireAny(rbac.Need(rbac.ResourceUsers, rbac.ActionRead), rbac.Need(rbac.ResourceRoles, rbac.ActionRead))(okHandler()).
		ServeHTTP(rr, requestWith(t, "/admin", auth))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	mw.RequireAny()(okHandler()).ServeHTTP(rr, requestWith(t, "/admin", auth))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/unauthorized", rr.Header().Get("Location"))
}

func TestGuardReevaluatesAfterClear(t *testing.T) {
	req := requestWith(t, "/products", &authstore.Auth{
		User:        &authstore.User{ID: "u1"},
		Permissions: []rbac.Permission{{Resource: rbac.ResourceProducts, Action: rbac.ActionRead}},
	})
	handler := Middleware{}.RequirePermission(rbac.ResourceProducts, rbac.ActionRead)(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	require.NoError(t, shared.AuthFromContext(req.Context()).Clear(context.Background()))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestRedirectUsesHXRedirectForHTMX(t *testing.T) {
	req := requestWith(t, "/po", nil)
	req.Header.Set("HX-Request", "true")
	rr := httptest.NewRecorder()

	Middleware{}.RequireAuth()(okHandler()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("HX-Redirect"))
	assert.Empty(t, rr.Header().Get("Location"))
}
