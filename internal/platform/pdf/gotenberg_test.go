package pdf

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTMLPostsMultipartDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "true", r.FormValue("landscape"))
		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		assert.Equal(t, "index.html", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Contains(t, string(data), "Fast movers")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL+"/").RenderHTML(context.Background(), []byte("<h1>Fast movers</h1>"), Options{Landscape: true})
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(out))
}

func TestRenderHTMLPropagatesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RenderHTML(context.Background(), []byte("<p/>"), Options{})
	assert.ErrorContains(t, err, "status 503")
}

func TestDisabledClient(t *testing.T) {
	c := NewClient("")
	assert.False(t, c.Enabled())
	_, err := c.RenderHTML(context.Background(), []byte("<p/>"), Options{})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.ErrorIs(t, c.Ping(context.Background()), ErrDisabled)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"up"}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewClient(srv.URL).Ping(context.Background()))
}
