package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookery/internal/events"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*chi.Mux, Service) {
	t.Helper()
	svc := NewService(NewMemoryStore(), events.Nop{})
	r := chi.NewRouter()
	r.Route("/catalog", NewHandler(svc).Routes)
	return r, svc
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateAndGet(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/catalog", testBook("978-1", 4, 1))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/catalog", testBook("978-1", 4, 1))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/catalog/978-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got Book
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 4, got.Stock)

	rec = doJSON(t, r, http.MethodGet, "/catalog/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerAdjustStock(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/catalog", testBook("978-1", 4, 1))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/catalog/978-1/stock", map[string]int{"delta": -2})
	require.Equal(t, http.StatusOK, rec.Code)
	var got Book
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 2, got.Stock)

	rec = doJSON(t, r, http.MethodPost, "/catalog/978-1/stock", map[string]int{"delta": -5})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerListFilters(t *testing.T) {
	r, svc := newTestRouter(t)
	_, err := svc.CreateBook(context.Background(), Book{
		ISBN: "1", Title: "Go in Practice", Authors: []string{"Bob"},
		Category: CategoryScience, Price: 30,
	})
	require.NoError(t, err)
	_, err = svc.CreateBook(context.Background(), Book{
		ISBN: "2", Title: "Watership Down", Authors: []string{"Richard Adams"},
		Category: CategoryFiction, Price: 10,
	})
	require.NoError(t, err)

	rec := doJSON(t, r, http.MethodGet, "/catalog?category=fiction", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []Book
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "Watership Down", got[0].Title)

	rec = doJSON(t, r, http.MethodGet, "/catalog?q=practice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got = nil
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ISBN)
}
