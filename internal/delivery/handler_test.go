package delivery_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastudio/warehouse-admin/internal/delivery"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	rbachttp "github.com/datastudio/warehouse-admin/internal/rbac/http"
	wtesting "github.com/datastudio/warehouse-admin/testing"
)

var orders = map[string]string{
	"d-1": `{"id":"d-1","dispatch_number":"DSP-100","recipient_name":"City Hospital","recipient_type":"hospital",
		"dispatch_date":"2024-05-01","status":"confirmed","lines":[
		{"id":"dl-1","line_number":1,"product":{"id":"p-1","product_code":"PRD-001","name":"Surgical Gloves","unit_of_measure":"box"},"quantity":7}]}`,
	"d-2": `{"id":"d-2","dispatch_number":"DSP-101","recipient_name":"Ward 4","dispatch_date":"2024-05-02","status":"delivered","lines":[]}`,
}

type fakeAPI struct {
	mu      sync.Mutex
	query   url.Values
	bodies  map[string]map[string]any
	deleted []string
	mux     *http.ServeMux
}

func newFakeAPI(t *testing.T) *fakeAPI {
	f := &fakeAPI{bodies: map[string]map[string]any{}, mux: http.NewServeMux()}
	write := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
	capture := func(r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.bodies[r.Method+" "+r.URL.Path] = body
		f.mu.Unlock()
	}
	f.mux.HandleFunc("GET /dispatch-orders", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.query = r.URL.Query()
		f.mu.Unlock()
		write(w, `{"page":1,"pageSize":10,"total":2,"items":[`+orders["d-1"]+`,`+orders["d-2"]+`]}`)
	})
	f.mux.HandleFunc("GET /dispatch-orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		body, ok := orders[r.PathValue("id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			write(w, `{"error":"Dispatch order not found"}`)
			return
		}
		write(w, body)
	})
	f.mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		write(w, `{"page":1,"pageSize":100,"total":1,"items":[{"id":"p-1","product_code":"PRD-001","name":"Surgical Gloves"}]}`)
	})
	f.mux.HandleFunc("POST /dispatch-orders", func(w http.ResponseWriter, r *http.Request) {
		capture(r)
		w.WriteHeader(http.StatusCreated)
		write(w, `{"id":"d-9","dispatch_number":"DSP-200"}`)
	})
	f.mux.HandleFunc("PATCH /dispatch-orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		capture(r)
		write(w, orders[r.PathValue("id")])
	})
	f.mux.HandleFunc("DELETE /dispatch-orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleted = append(f.deleted, r.PathValue("id"))
		f.mu.Unlock()
		write(w, `{"success":true}`)
	})
	return f
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mux.ServeHTTP(w, r)
}

func (f *fakeAPI) body(key string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[key]
}

func newRouter(t *testing.T) (*wtesting.Harness, *fakeAPI, http.Handler) {
	t.Helper()
	api := newFakeAPI(t)
	h := wtesting.NewHarness(t, api)
	handler := delivery.NewHandler(h.Logger, delivery.NewService(delivery.NewRepository(h.API)), h.Responder, rbachttp.Middleware{Logger: h.Logger})
	return h, api, h.Router(func(r chi.Router) { handler.MountRoutes(r) })
}

func TestDispatchRoutesAreGated(t *testing.T) {
	h, _, router := newRouter(t)

	rec := h.Get(router, h.Anonymous(), "/dispatch")
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	browser := h.SignIn(wtesting.Perm(rbac.ResourceDispatches, rbac.ActionRead))
	rec = h.Get(router, browser, "/dispatch/new")
	assert.Equal(t, "/unauthorized", rec.Header().Get("Location"))
	rec = h.Get(router, browser, "/dispatch/d-1/edit")
	assert.Equal(t, "/unauthorized", rec.Header().Get("Location"))
}

func TestDispatchListFiltersAndRowActions(t *testing.T) {
	h, api, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourceDispatches, rbac.ActionRead, rbac.ActionUpdate, rbac.ActionDelete)...)

	rec := h.Get(router, browser, "/dispatch?recipient_type=hospital&status=bogus")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hospital", api.query.Get("recipient_type"))
	assert.False(t, api.query.Has("status"))
	body := rec.Body.String()
	assert.Contains(t, body, "DSP-100")
	assert.Contains(t, body, "/dispatch/d-1/edit")
	assert.NotContains(t, body, "/dispatch/d-2/edit")
	assert.NotContains(t, body, "/dispatch/d-1/delete")
}

func TestDispatchDetailOffersNextStatuses(t *testing.T) {
	h, _, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourceDispatches, rbac.ActionRead, rbac.ActionUpdate)...)

	rec := h.Get(router, browser, "/dispatch/d-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mark Dispatched")
	assert.Contains(t, rec.Body.String(), "Cancel dispatch")
	assert.NotContains(t, rec.Body.String(), "Mark Delivered")
}

func TestCreateDispatchPostsNumberedLines(t *testing.T) {
	h, api, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourceDispatches, rbac.ActionRead, rbac.ActionCreate)...)

	rec := h.Post(router, browser, "/dispatch", url.Values{
		"dispatch_number": {"DSP-200"},
		"recipient_name":  {"North Clinic"},
		"recipient_type":  {"clinic"},
		"dispatch_date":   {"2024-05-03"},
		"line_product_id": {"p-1", ""},
		"line_quantity":   {"3", ""},
	})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dispatch/d-9", rec.Header().Get("Location"))
	body := api.body("POST /dispatch-orders")
	require.NotNil(t, body)
	assert.Equal(t, "clinic", body["recipient_type"])
	line := body["lines"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(1), line["line_number"])
	assert.Equal(t, float64(3), line["quantity"])
}

func TestEditDeliveredDispatchIsRefused(t *testing.T) {
	h, api, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourceDispatches, rbac.ActionRead, rbac.ActionUpdate)...)

	rec := h.Get(router, browser, "/dispatch/d-2/edit")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dispatch/d-2", rec.Header().Get("Location"))

	rec = h.Post(router, browser, "/dispatch/d-2", url.Values{
		"recipient_name": {"Ward 4"},
		"dispatch_date":  {"2024-05-02"},
		"status":         {"cancelled"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "delivered and cancelled dispatch orders cannot be changed")
	assert.Nil(t, api.body("PATCH /dispatch-orders/d-2"))
}

func TestAdvanceDispatchStatus(t *testing.T) {
	h, api, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourceDispatches, rbac.ActionRead, rbac.ActionUpdate)...)

	rec := h.Post(router, browser, "/dispatch/d-1/status", url.Values{"status": {"dispatched"}})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	body := api.body("PATCH /dispatch-orders/d-1")
	require.NotNil(t, body)
	assert.Equal(t, "dispatched", body["status"])
	assert.Equal(t, "City Hospital", body["recipient_name"])

	rec = h.Get(router, browser, "/dispatch/d-1")
	assert.Contains(t, rec.Body.String(), "Dispatch order marked Dispatched")
}

func TestDeleteConfirmedDispatchIsRefused(t *testing.T) {
	h, api, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourceDispatches, rbac.ActionRead, rbac.ActionDelete)...)

	rec := h.Post(router, browser, "/dispatch/d-1/delete", nil)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dispatch", rec.Header().Get("Location"))
	assert.Empty(t, api.deleted)
}
