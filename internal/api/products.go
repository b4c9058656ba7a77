package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/x23379014/MyPOS/internal/domain"
)

type ProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

func productID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("product id must be a positive integer")
	}
	return id, nil
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := &domain.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}
	if err := h.products.Create(r.Context(), p); err != nil {
		h.respondFailure(w, r, err, "failed to create product")
		return
	}

	h.respondJSON(w, http.StatusCreated, p)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.respondFailure(w, r, err, "failed to list products")
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}

	h.respondJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, err, "failed to get product")
		return
	}

	h.respondJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := &domain.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}
	if err := h.products.Update(r.Context(), p); err != nil {
		h.respondFailure(w, r, err, "failed to update product")
		return
	}

	updated, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, err, "failed to get product")
		return
	}
	h.respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		h.respondFailure(w, r, err, "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadProductImage takes a multipart "image" field, stores it in the blob
// store and records the URL on the product.
func (h *Handler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		h.respondError(w, http.StatusNotImplemented, "image storage is not configured")
		return
	}

	id, err := productID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.products.GetByID(r.Context(), id); err != nil {
		h.respondFailure(w, r, err, "failed to get product")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		h.respondError(w, http.StatusBadRequest, "multipart field \"image\" is required")
		return
	}
	defer file.Close()

	url, err := h.images.Upload(r.Context(), file, strconv.FormatInt(id, 10), header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.respondFailure(w, r, err, "failed to upload image")
		return
	}

	if err := h.products.SetImageURL(r.Context(), id, url); err != nil {
		h.respondFailure(w, r, err, "failed to save image url")
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, err, "failed to get product")
		return
	}
	h.respondJSON(w, http.StatusOK, p)
}
