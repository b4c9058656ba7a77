package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/x23379014/MyPOS/internal/apperr"
	"github.com/x23379014/MyPOS/internal/checkout"
	"github.com/x23379014/MyPOS/internal/domain"
	"github.com/x23379014/MyPOS/internal/observability"
	"github.com/x23379014/MyPOS/internal/repository"
)

const defaultMaxUploadBytes = 10 << 20

// TransactionCreator is the checkout entry point.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

// ImageUploader stores a product image and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, body io.Reader, productID, filename, contentType string) (string, error)
}

type Handler struct {
	customers    repository.CustomerRepository
	transactions repository.TransactionRepository
	products     repository.ProductRepository
	checkout     TransactionCreator
	images       ImageUploader
	logger       *slog.Logger

	maxUploadBytes int64
	newID          func() string
}

func NewHandler(
	customers repository.CustomerRepository,
	transactions repository.TransactionRepository,
	products repository.ProductRepository,
	checkout TransactionCreator,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		customers:      customers,
		transactions:   transactions,
		products:       products,
		checkout:       checkout,
		logger:         logger,
		maxUploadBytes: defaultMaxUploadBytes,
		newID:          func() string { return uuid.NewString() },
	}
}

// WithImages enables the product image endpoint.
func (h *Handler) WithImages(u ImageUploader, maxBytes int64) *Handler {
	h.images = u
	if maxBytes > 0 {
		h.maxUploadBytes = maxBytes
	}
	return h
}

// WithIDGenerator overrides customer id generation.
func (h *Handler) WithIDGenerator(fn func() string) *Handler {
	if fn != nil {
		h.newID = fn
	}
	return h
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, errorResponse{Error: message})
}

// respondFailure maps err onto a status code. Classified errors were already
// logged by the reporter that built them, so 5xx bodies carry only fallback;
// the dependency's own text stays in the log.
func (h *Handler) respondFailure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var e *apperr.Error
	if errors.As(err, &e) {
		status := statusForKind(e.Kind)
		message := e.Error()
		if status >= http.StatusInternalServerError {
			message = fallback
		}
		h.respondJSON(w, status, errorResponse{
			Error: message,
			Kind:  string(e.Kind),
			Field: e.Field,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		h.respondError(w, http.StatusBadRequest, err.Error())
	default:
		observability.LoggerFromContext(r.Context()).Error(fallback, "error", err)
		h.respondError(w, http.StatusInternalServerError, fallback)
	}
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidParameter:
		return http.StatusBadRequest
	case apperr.KindNotFound, apperr.KindTopicNotFound:
		return http.StatusNotFound
	case apperr.KindAccessDenied, apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindCredentials:
		return http.StatusServiceUnavailable
	case apperr.KindPersistence:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
