package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shop_orders/internal/models"
)

type fakeES struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	body     string
}

type recorded struct {
	Method string
	Path   string
	Body   []byte
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{Method: r.Method, Path: r.URL.Path, Body: body})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/" {
		_, _ = io.WriteString(w, `{"name":"test","version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`)
		return
	}
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.body)
}

func (f *fakeES) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newIndex(t *testing.T, f *fakeES) *Index {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return &Index{ES: client, Name: "products"}
}

func TestNewClient_Info(t *testing.T) {
	srv := httptest.NewServer(&fakeES{status: http.StatusOK})
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "", "")
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestIndexProduct(t *testing.T) {
	f := &fakeES{status: http.StatusCreated, body: `{"result":"created"}`}
	ix := newIndex(t, f)

	brand := "Acme"
	p := models.Product{
		ID:       5,
		Name:     "Phone",
		Category: models.CategoryElectronics,
		Price:    decimal.RequireFromString("25"),
		Brand:    &brand,
	}
	require.NoError(t, ix.IndexProduct(context.Background(), p))

	req := f.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/products/_doc/5", req.Path)

	var doc Document
	require.NoError(t, json.Unmarshal(req.Body, &doc))
	assert.Equal(t, "Phone", doc.Name)
	assert.Equal(t, "25.00", doc.Price)
	assert.Equal(t, "Acme", doc.Brand)
}

func TestDeleteProduct_NotFoundIsOK(t *testing.T) {
	f := &fakeES{status: http.StatusNotFound, body: `{"result":"not_found"}`}
	ix := newIndex(t, f)

	require.NoError(t, ix.DeleteProduct(context.Background(), 9))
	assert.Equal(t, "/products/_doc/9", f.last().Path)
}

func TestSearch(t *testing.T) {
	f := &fakeES{status: http.StatusOK, body: `{
		"hits": {
			"total": {"value": 2},
			"hits": [
				{"_source": {"id": 1, "name": "Go in Action", "category": "books", "price": "30.00"}},
				{"_source": {"id": 2, "name": "Go Programming", "category": "books", "price": "45.50"}}
			]
		}
	}`}
	ix := newIndex(t, f)

	total, docs, err := ix.Search(context.Background(), "go", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, docs, 2)
	assert.Equal(t, "Go Programming", docs[1].Name)

	req := f.last()
	assert.Equal(t, "/products/_search", req.Path)
	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Contains(t, body["query"], "multi_match")
}

func TestSearch_BackendError(t *testing.T) {
	f := &fakeES{status: http.StatusBadRequest, body: `{"error":"bad query"}`}
	ix := newIndex(t, f)

	_, _, err := ix.Search(context.Background(), "go", 0, 10)
	require.ErrorIs(t, err, ErrSearch)
}
