package procurement_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastudio/warehouse-admin/internal/procurement"
	"github.com/datastudio/warehouse-admin/internal/rbac"
	rbachttp "github.com/datastudio/warehouse-admin/internal/rbac/http"
	wtesting "github.com/datastudio/warehouse-admin/testing"
)

const sentOrder = `{"id":"po-1","po_number":"PO-1001","status":"sent","order_date":"2024-04-02",
	"supplier":{"id":"s-1","supplier_code":"SUP-1","name":"MedSupply Co"},
	"lines":[
		{"id":"l-1","line_number":1,"product":{"id":"p-1","name":"Surgical Gloves","unit_of_measure":"box"},"quantity_ordered":10,"unit_cost":"2.50"},
		{"id":"l-2","line_number":2,"product":{"id":"p-2","name":"Face Masks","unit_of_measure":"box"},"quantity_ordered":4,"unit_cost":"8"}
	]}`

type fakeAPI struct {
	mu      sync.Mutex
	queries map[string]url.Values
	bodies  map[string]map[string]any
	mux     *http.ServeMux
}

func newFakeAPI(t *testing.T) *fakeAPI {
	f := &fakeAPI{queries: map[string]url.Values{}, bodies: map[string]map[string]any{}, mux: http.NewServeMux()}
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
	f.mux.HandleFunc("GET /suppliers", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.queries[r.URL.Path] = r.URL.Query()
		f.mu.Unlock()
		write(w, `[{"id":"s-1","supplier_code":"SUP-1","name":"MedSupply Co","email":"orders@medsupply.test","is_active":true}]`)
	})
	f.mux.HandleFunc("GET /suppliers/s-1", func(w http.ResponseWriter, r *http.Request) {
		write(w, `{"id":"s-1","supplier_code":"SUP-1","name":"MedSupply Co","is_active":true}`)
	})
	f.mux.HandleFunc("GET /suppliers/s-1/products", func(w http.ResponseWriter, r *http.Request) {
		write(w, `[{"id":"sp-1","product":{"id":"p-1","product_code":"PRD-001","name":"Surgical Gloves"},"supplier_part_number":"MS-GLV","unit_cost":"2.5","is_primary_supplier":true}]`)
	})
	f.mux.HandleFunc("POST /suppliers", func(w http.ResponseWriter, r *http.Request) {
		capture(r)
		write(w, `{"id":"s-2","name":"North Pharma"}`)
	})
	f.mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.queries[r.URL.Path] = r.URL.Query()
		f.mu.Unlock()
		write(w, `{"page":1,"pageSize":100,"total":2,"items":[
			{"id":"p-1","product_code":"PRD-001","name":"Surgical Gloves"},
			{"id":"p-2","product_code":"PRD-002","name":"Face Masks"}]}`)
	})
	f.mux.HandleFunc("GET /purchase-orders", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.queries[r.URL.Path] = r.URL.Query()
		f.mu.Unlock()
		write(w, `{"page":1,"pageSize":10,"total":1,"items":[`+sentOrder+`]}`)
	})
	f.mux.HandleFunc("GET /purchase-orders/po-1", func(w http.ResponseWriter, r *http.Request) {
		write(w, sentOrder)
	})
	f.mux.HandleFunc("GET /purchase-orders/po-2", func(w http.ResponseWriter, r *http.Request) {
		write(w, `{"id":"po-2","po_number":"PO-1002","status":"draft","supplier":{"id":"s-1","name":"MedSupply Co"},"lines":[]}`)
	})
	f.mux.HandleFunc("GET /purchase-orders/po-3", func(w http.ResponseWriter, r *http.Request) {
		write(w, `{"id":"po-3","po_number":"PO-1003","status":"received","supplier":{"id":"s-1","name":"MedSupply Co"},"lines":[]}`)
	})
	f.mux.HandleFunc("POST /purchase-orders", func(w http.ResponseWriter, r *http.Request) {
		capture(r)
		w.WriteHeader(http.StatusCreated)
		write(w, `{"id":"po-9","po_number":"PO-2000"}`)
	})
	f.mux.HandleFunc("PATCH /purchase-orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		capture(r)
		write(w, `{"id":"`+r.PathValue("id")+`"}`)
	})
	f.mux.HandleFunc("POST /goods-receipts", func(w http.ResponseWriter, r *http.Request) {
		capture(r)
		write(w, `{"id":"grn-1","grn_number":"GRN-7"}`)
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
	service := procurement.NewService(procurement.NewRepository(h.API))
	handler := procurement.NewHandler(h.Logger, service, h.Responder, rbachttp.Middleware{Logger: h.Logger})
	return h, api, h.Router(func(r chi.Router) { handler.MountRoutes(r) })
}

func TestSupplierAndOrderGuardsAreIndependent(t *testing.T) {
	h, _, router := newRouter(t)
	browser := h.SignIn(wtesting.Perm(rbac.ResourcePurchaseOrders, rbac.ActionRead))

	rec := h.Get(router, browser, "/suppliers")
	assert.Equal(t, "/unauthorized", rec.Header().Get("Location"))

	rec = h.Get(router, browser, "/po")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PO-1001")
	assert.NotContains(t, rec.Body.String(), "/po/po-1/receive")

	rec = h.Get(router, browser, "/po/po-1/receive")
	assert.Equal(t, "/unauthorized", rec.Header().Get("Location"))
}

func TestSupplierDetailListsProducts(t *testing.T) {
	h, _, router := newRouter(t)
	browser := h.SignIn(wtesting.Perm(rbac.ResourceSuppliers, rbac.ActionRead))

	rec := h.Get(router, browser, "/suppliers/s-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "MS-GLV")
	assert.Contains(t, rec.Body.String(), "Surgical Gloves")
	assert.NotContains(t, rec.Body.String(), "/suppliers/s-1/edit")
}

func TestCreateSupplierRejectsBadEmail(t *testing.T) {
	h, api, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourceSuppliers, rbac.ActionRead, rbac.ActionCreate)...)

	rec := h.Post(router, browser, "/suppliers", url.Values{"supplier_code": {"SUP-2"}, "name": {"North Pharma"}, "email": {"nope"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter a valid email address")
	assert.Nil(t, api.body("POST /suppliers"))

	rec = h.Post(router, browser, "/suppliers", url.Values{"supplier_code": {"SUP-2"}, "name": {"North Pharma"}, "is_active": {"on"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/suppliers/s-2", rec.Header().Get("Location"))
	assert.Equal(t, true, api.body("POST /suppliers")["is_active"])
}

func TestOrderListForwardsFiltersAndDropsUnknownStatus(t *testing.T) {
	h, api, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourcePurchaseOrders, rbac.ActionRead, rbac.ActionUpdate)...)

	rec := h.Get(router, browser, "/po?supplier_id=s-1&status=shipped&start_date=2024-04-01")

	require.Equal(t, http.StatusOK, rec.Code)
	q := api.queries["/purchase-orders"]
	assert.Equal(t, "s-1", q.Get("supplier_id"))
	assert.Equal(t, "2024-04-01", q.Get("start_date"))
	assert.False(t, q.Has("status"))
	assert.Contains(t, rec.Body.String(), "/po/po-1/receive")
}

func TestNewOrderPrefillsProduct(t *testing.T) {
	h, _, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourcePurchaseOrders, rbac.ActionRead, rbac.ActionCreate)...)

	rec := h.Get(router, browser, "/po/new?product_id=p-2")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<option value="p-2" selected>`)
}

func TestCreateOrderZipsLineColumns(t *testing.T) {
	h, api, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourcePurchaseOrders, rbac.ActionRead, rbac.ActionCreate)...)

	rec := h.Post(router, browser, "/po", url.Values{
		"po_number":       {"PO-2000"},
		"supplier_id":     {"s-1"},
		"order_date":      {"2024-04-10"},
		"line_product_id": {"p-1", "", "p-2"},
		"line_quantity":   {"12", "", "3"},
		"line_unit_cost":  {"2.50", "", "8.00"},
	})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/po/po-9", rec.Header().Get("Location"))
	body := api.body("POST /purchase-orders")
	require.NotNil(t, body)
	lines := body["lines"].([]any)
	require.Len(t, lines, 2)
	assert.Equal(t, "p-2", lines[1].(map[string]any)["product_id"])
	assert.Equal(t, float64(3), lines[1].(map[string]any)["quantity_ordered"])
}

func TestCreateOrderWithoutLinesIsRejected(t *testing.T) {
	h, api, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourcePurchaseOrders, rbac.ActionRead, rbac.ActionCreate)...)

	rec := h.Post(router, browser, "/po", url.Values{
		"po_number":       {"PO-2000"},
		"supplier_id":     {"s-1"},
		"order_date":      {"2024-04-10"},
		"line_product_id": {""},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "lines: This field is required")
	assert.Nil(t, api.body("POST /purchase-orders"))
}

func TestMarkDraftOrderSentStampsDate(t *testing.T) {
	h, api, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourcePurchaseOrders, rbac.ActionRead, rbac.ActionUpdate)...)

	rec := h.Post(router, browser, "/po/po-2/status", url.Values{"status": {"sent"}})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/po/po-2", rec.Header().Get("Location"))
	body := api.body("PATCH /purchase-orders/po-2")
	require.NotNil(t, body)
	assert.Equal(t, "sent", body["status"])
	assert.NotEmpty(t, body["sent_date"])
}

func TestReceivedOrderCannotBeCancelled(t *testing.T) {
	h, api, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourcePurchaseOrders, rbac.ActionRead, rbac.ActionUpdate)...)

	rec := h.Post(router, browser, "/po/po-3/status", url.Values{"status": {"cancelled"}})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Nil(t, api.body("PATCH /purchase-orders/po-3"))
	rec = h.Get(router, browser, "/po/po-3")
	assert.Contains(t, rec.Body.String(), "A received order cannot be marked cancelled")
}

func TestReceiveRejectsOverDelivery(t *testing.T) {
	h, api, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourcePurchaseOrders, rbac.ActionRead, rbac.ActionUpdate)...)

	rec := h.Post(router, browser, "/po/po-1/receive", url.Values{
		"grn_number":        {"GRN-7"},
		"received_date":     {"2024-04-12"},
		"po_line_id":        {"l-1", "l-2"},
		"quantity_received": {"11", ""},
		"unit_cost":         {"2.50", "8"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cannot receive more than the 10 ordered")
	assert.Nil(t, api.body("POST /goods-receipts"))
}

func TestReceiveBooksEnteredLines(t *testing.T) {
	h, api, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourcePurchaseOrders, rbac.ActionRead, rbac.ActionUpdate)...)

	rec := h.Post(router, browser, "/po/po-1/receive", url.Values{
		"grn_number":        {"GRN-7"},
		"received_date":     {"2024-04-12"},
		"po_line_id":        {"l-1", "l-2"},
		"quantity_received": {"6", "0"},
		"unit_cost":         {"2.50", "8"},
		"batch_number":      {"B-1", ""},
		"serial_number":     {"", ""},
		"expiry_date":       {"2026-01-31", ""},
	})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/po/po-1", rec.Header().Get("Location"))
	body := api.body("POST /goods-receipts")
	require.NotNil(t, body)
	assert.Equal(t, "po-1", body["purchase_order_id"])
	lines := body["lines"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.Equal(t, "p-1", line["product_id"])
	assert.Equal(t, float64(6), line["quantity_received"])
	assert.Equal(t, "B-1", line["batch_number"])
}

func TestReceiveFormRefusesDraftOrders(t *testing.T) {
	h, _, router := newRouter(t)
	browser := h.SignIn(wtesting.Perms(rbac.ResourcePurchaseOrders, rbac.ActionRead, rbac.ActionUpdate)...)

	rec := h.Get(router, browser, "/po/po-2/receive")

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/po/po-2", rec.Header().Get("Location"))
}
