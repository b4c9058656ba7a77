package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/x23379014/MyPOS/internal/domain"
)

type CustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (req CustomerRequest) customer(id string) *domain.Customer {
	return &domain.Customer{
		ID:      id,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := req.customer(h.newID())
	if err := h.customers.Add(r.Context(), c); err != nil {
		h.respondFailure(w, r, err, "failed to create customer")
		return
	}

	h.respondJSON(w, http.StatusCreated, c)
}

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customers.List(r.Context())
	if err != nil {
		h.respondFailure(w, r, err, "failed to list customers")
		return
	}
	if customers == nil {
		customers = []*domain.Customer{}
	}

	h.respondJSON(w, http.StatusOK, customers)
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.customers.Get(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, err, "failed to get customer")
		return
	}
	if c == nil {
		h.respondError(w, http.StatusNotFound, "customer not found")
		return
	}

	h.respondJSON(w, http.StatusOK, c)
}

// UpdateCustomer requires the customer to exist. The store itself would
// create it, so the check lives here.
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := h.customers.Get(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, err, "failed to get customer")
		return
	}
	if existing == nil {
		h.respondError(w, http.StatusNotFound, "customer not found")
		return
	}

	c := req.customer(id)
	if err := h.customers.Update(r.Context(), c); err != nil {
		h.respondFailure(w, r, err, "failed to update customer")
		return
	}
	c.CreatedAt = existing.CreatedAt

	h.respondJSON(w, http.StatusOK, c)
}

// DeleteCustomer is idempotent: deleting an unknown id succeeds.
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.customers.Delete(r.Context(), id); err != nil {
		h.respondFailure(w, r, err, "failed to delete customer")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
