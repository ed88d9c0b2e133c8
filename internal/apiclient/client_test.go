package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingIdentity struct {
	id      string
	cleared int
}

func (c *countingIdentity) UserID() string { return c.id }

func (c *countingIdentity) Clear(ctx context.Context) error {
	c.cleared++
	c.id = ""
	return nil
}

func TestDoAttachesHeadersAndDecodes(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p-1","name":"Widget"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/", APIKey: "secret-key"})
	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err := c.Get(context.Background(), &countingIdentity{id: "u-7"}, "/products/p-1", url.Values{"expand": {"category"}}, &out)

	require.NoError(t, err)
	assert.Equal(t, "Widget", out.Name)
	assert.Equal(t, "/products/p-1", got.URL.Path)
	assert.Equal(t, "category", got.URL.Query().Get("expand"))
	assert.Equal(t, "secret-key", got.Header.Get(HeaderAPIKey))
	assert.Equal(t, "u-7", got.Header.Get(HeaderUserID))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
}

func TestDoOmitsUserHeaderWhenSignedOut(t *testing.T) {
	var header []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Values(HeaderUserID)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	require.NoError(t, c.Post(context.Background(), &countingIdentity{}, "/auth/login", map[string]string{"usernameOrEmail": "a"}, nil))
	require.NoError(t, c.Post(context.Background(), nil, "/auth/login", map[string]string{"usernameOrEmail": "a"}, nil))
	assert.Empty(t, header)
}

func TestDoSanitisesTopLevelStrings(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	payload := map[string]any{
		"name":     "  <b>Acme</b> & Sons <script>alert(1)</script> ",
		"password": " <keep> ",
		"lines":    []map[string]string{{"note": "<i>nested</i>"}},
		"qty":      3,
	}
	c := New(Config{BaseURL: srv.URL})
	require.NoError(t, c.Post(context.Background(), nil, "/suppliers", payload, nil))

	assert.Equal(t, "Acme & Sons", body["name"])
	assert.Equal(t, " <keep> ", body["password"])
	assert.Equal(t, float64(3), body["qty"])
	lines := body["lines"].([]any)
	assert.Equal(t, "<i>nested</i>", lines[0].(map[string]any)["note"])
}

func TestSanitiserStripsEntityEncodedMarkup(t *testing.T) {
	s := newSanitizer()

	cases := map[string]string{
		"&lt;script&gt;alert(1)&lt;/script&gt;":         "",
		"&lt;b&gt;Gloves&lt;/b&gt; &amp; Masks":         "Gloves & Masks",
		"&amp;lt;img src=x onerror=alert(1)&amp;gt;Box": "Box",
		"<b>Gloves</b>":                                 "Gloves",
		"5 < 7":                                         "5 < 7",
	}
	for in, want := range cases {
		got := s.String(in)
		assert.Equal(t, want, got, "input %q", in)
		assert.NotContains(t, got, "<script")
		assert.NotContains(t, got, "<b>")
	}
}

func TestInvalidUserClearsSessionOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid user"}`))
	}))
	defer srv.Close()

	hooks := 0
	c := New(Config{BaseURL: srv.URL}, WithInvalidUserHook(func() { hooks++ }))
	id := &countingIdentity{id: "deleted-user"}

	err := c.Get(context.Background(), id, "/products", nil, nil)

	require.Error(t, err)
	assert.Equal(t, 1, id.cleared)
	assert.Equal(t, 1, hooks)
	assert.Equal(t, "Invalid user", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidUser))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestOtherErrorsPassThrough(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "json error field", status: http.StatusBadRequest, body: `{"error":"po_number already exists"}`, want: "po_number already exists"},
		{name: "plain text", status: http.StatusBadGateway, body: "upstream down", want: "upstream down"},
		{name: "empty body", status: http.StatusInternalServerError, body: "", want: "Unknown error"},
		{name: "json without error", status: http.StatusForbidden, body: `{"message":"nope"}`, want: "Unknown error"},
		{name: "different casing", status: http.StatusUnauthorized, body: `{"error":"invalid user"}`, want: "invalid user"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			id := &countingIdentity{id: "u-1"}
			err := New(Config{BaseURL: srv.URL}).Delete(context.Background(), id, "/roles/1", nil)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.want, apiErr.Message)
			assert.False(t, errors.Is(err, ErrInvalidUser))
			assert.Equal(t, 0, id.cleared)
			assert.Equal(t, tc.want, Message(err))
		})
	}
}

func TestTransportErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	err := New(Config{BaseURL: base}).Get(context.Background(), nil, "/products", nil, nil)
	require.Error(t, err)
	assert.Equal(t, 0, StatusCode(err))
	assert.Contains(t, Message(err), "request failed")
}

func TestRequestObserverSeesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Product not found"}`))
	}))
	defer srv.Close()

	var seen []int
	c := New(Config{BaseURL: srv.URL}, WithRequestObserver(func(method string, status int) {
		assert.Equal(t, http.MethodDelete, method)
		seen = append(seen, status)
	}))
	err := c.Delete(context.Background(), nil, "/products/p-9", nil)

	require.Error(t, err)
	assert.Equal(t, []int{http.StatusNotFound}, seen)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}
