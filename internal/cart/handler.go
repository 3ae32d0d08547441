package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"bookery/internal/catalog"

	"github.com/go-chi/chi/v5"
)

// CustomerIDFunc resolves the customer identity for a request. Supplied by
// the session layer.
type CustomerIDFunc func(r *http.Request) string

type Handler struct {
	service    Service
	customerID CustomerIDFunc
}

func NewHandler(service Service, customerID CustomerIDFunc) *Handler {
	return &Handler{service: service, customerID: customerID}
}

// Routes mounts the cart endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleGet)
	r.Delete("/", h.handleClear)
	r.Post("/items", h.handleAddItem)
	r.Put("/items/{isbn}", h.handleUpdateQuantity)
	r.Delete("/items/{isbn}", h.handleRemoveItem)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCart(r.Context(), h.customerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ISBN     string `json:"isbn"`
		Quantity int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.service.AddItem(r.Context(), h.customerID(r), req.ISBN, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.service.UpdateQuantity(r.Context(), h.customerID(r), chi.URLParam(r, "isbn"), req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.RemoveItem(r.Context(), h.customerID(r), chi.URLParam(r, "isbn"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Clear(r.Context(), h.customerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, catalog.ErrInsufficientStock):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
