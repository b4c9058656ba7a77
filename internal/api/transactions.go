package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/x23379014/MyPOS/internal/checkout"
	"github.com/x23379014/MyPOS/internal/domain"
)

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.checkout.CreateTransaction(r.Context(), req)
	if err != nil {
		h.respondFailure(w, r, err, "failed to create transaction")
		return
	}

	h.respondJSON(w, http.StatusCreated, result)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.transactions.List(r.Context())
	if err != nil {
		h.respondFailure(w, r, err, "failed to list transactions")
		return
	}
	if txs == nil {
		txs = []*domain.Transaction{}
	}

	h.respondJSON(w, http.StatusOK, txs)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tx, err := h.transactions.Get(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, err, "failed to get transaction")
		return
	}
	if tx == nil {
		h.respondError(w, http.StatusNotFound, "transaction not found")
		return
	}

	h.respondJSON(w, http.StatusOK, tx)
}
