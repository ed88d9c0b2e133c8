package auth_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastudio/warehouse-admin/internal/auth"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	wtesting "github.com/datastudio/warehouse-admin/testing"
)

func fakeAuthAPI(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body auth.LoginPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.UsernameOrEmail == "silent" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if body.Password != "correct-horse" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"user": {"id": "u-42", "username": "clerk", "email": "clerk@example.com", "is_active": true},
			"roles": [{"id": "r-1", "name": "warehouse_staff"}],
			"permissions": [{"id": "p-1", "resource": "products", "action": "read"}]
		}`))
	})
	mux.HandleFunc("POST /auth/signup", func(w http.ResponseWriter, r *http.Request) {
		var body auth.SignupPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "viewer", body.InitialRoleName)
		_, _ = w.Write([]byte(`{"user": {"id": "u-new", "username": "` + body.Username + `"}, "roles": [], "permissions": []}`))
	})
	return mux
}

func newAuthRouter(t *testing.T, allowSignup bool) (*wtesting.Harness, http.Handler) {
	t.Helper()
	h := wtesting.NewHarness(t, fakeAuthAPI(t))
	service := auth.NewService(auth.NewRepository(h.API), "viewer")
	handler := auth.NewHandler(h.Logger, service, h.Responder, h.Sessions, h.CSRF, allowSignup)
	return h, h.Router(handler.MountRoutes)
}

func TestLoginPage(t *testing.T) {
	h, router := newAuthRouter(t, false)

	rec := h.Get(router, h.Anonymous(), "/login")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="usernameOrEmail"`)
	assert.Contains(t, rec.Body.String(), "Contact your administrator")
	assert.NotEmpty(t, rec.Result().Cookies())
}

func TestLoginPageRedirectsSignedInUser(t *testing.T) {
	h, router := newAuthRouter(t, false)

	rec := h.Get(router, h.SignIn(), "/login")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestLoginInvalidCredentials(t *testing.T) {
	h, router := newAuthRouter(t, false)
	browser := h.Anonymous()

	rec := h.Post(router, browser, "/login", url.Values{
		"usernameOrEmail": {"clerk"},
		"password":        {"wrong"},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
	assert.Contains(t, rec.Body.String(), `value="clerk"`)
	assert.False(t, h.Snapshot(browser).IsAuthenticated())
}

func TestLoginRejectedWithoutMessage(t *testing.T) {
	h, router := newAuthRouter(t, false)
	browser := h.Anonymous()

	rec := h.Post(router, browser, "/login", url.Values{
		"usernameOrEmail": {"silent"},
		"password":        {"whatever"},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
	assert.NotContains(t, rec.Body.String(), "Unknown error")
	assert.False(t, h.Snapshot(browser).IsAuthenticated())
}

func TestLoginRequiresFields(t *testing.T) {
	h, router := newAuthRouter(t, false)

	rec := h.Post(router, h.Anonymous(), "/login", url.Values{"usernameOrEmail": {"  "}})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "This field is required")
}

func TestLoginStoresIdentity(t *testing.T) {
	h, router := newAuthRouter(t, false)
	browser := h.Anonymous()

	rec := h.Post(router, browser, "/login", url.Values{
		"usernameOrEmail": {"clerk@example.com"},
		"password":        {"correct-horse"},
	})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	snap := h.Snapshot(browser)
	require.True(t, snap.IsAuthenticated())
	assert.Equal(t, "u-42", snap.User.ID)
	assert.Equal(t, []rbac.Role{{ID: "r-1", Name: "warehouse_staff"}}, snap.Roles)
	assert.True(t, snap.Can(rbac.ResourceProducts, rbac.ActionRead))
	assert.False(t, snap.Can(rbac.ResourceProducts, rbac.ActionCreate))
	assert.True(t, h.Redis.Exists("auth:"+browser.Cookie.Value))
}

func TestLoginRejectsMissingCSRFToken(t *testing.T) {
	h, router := newAuthRouter(t, false)
	browser := h.Anonymous()

	rec := h.Post(router, browser, "/login", url.Values{
		"usernameOrEmail": {"clerk"},
		"password":        {"correct-horse"},
		"csrf_token":      {"forged"},
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, h.Snapshot(browser).IsAuthenticated())
}

func TestLogoutClearsSession(t *testing.T) {
	h, router := newAuthRouter(t, false)
	browser := h.SignIn(wtesting.Perm(rbac.ResourceProducts, rbac.ActionRead))
	require.True(t, h.Snapshot(browser).IsAuthenticated())

	rec := h.Post(router, browser, "/logout", nil)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, h.Redis.Exists("session:"+browser.Cookie.Value))
	assert.False(t, h.Redis.Exists("auth:"+browser.Cookie.Value))
	assert.False(t, h.Snapshot(browser).IsAuthenticated())
}

func TestSignupDisabledByDefault(t *testing.T) {
	h, router := newAuthRouter(t, false)

	rec := h.Get(router, h.Anonymous(), "/signup")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignupSignsIn(t *testing.T) {
	h, router := newAuthRouter(t, true)
	browser := h.Anonymous()

	rec := h.Post(router, browser, "/signup", url.Values{
		"username": {"newbie"},
		"email":    {"newbie@example.com"},
		"password": {"long-enough"},
	})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	snap := h.Snapshot(browser)
	require.True(t, snap.IsAuthenticated())
	assert.Equal(t, "newbie", snap.User.Username)
	assert.Empty(t, snap.Permissions)
}
