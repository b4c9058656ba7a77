package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/x23379014/MyPOS/internal/observability"
)

type RouterConfig struct {
	Handler       *Handler
	HealthHandler *observability.HealthHandler
	Metrics       *observability.Metrics
	Logger        *slog.Logger
	// MetricsHandler serves /metrics. Defaults to the global registry.
	MetricsHandler http.Handler
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if cfg.Logger != nil {
		r.Use(observability.LoggingMiddleware(cfg.Logger))
	}

	if cfg.Metrics != nil {
		r.Use(observability.MetricsMiddleware(cfg.Metrics))
	}

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r.Get("/health", cfg.HealthHandler.Health)
	r.Get("/ready", cfg.HealthHandler.Ready)
	r.Handle("/metrics", metricsHandler)

	r.Route("/customers", func(r chi.Router) {
		r.Post("/", cfg.Handler.CreateCustomer)
		r.Get("/", cfg.Handler.ListCustomers)
		r.Get("/{id}", cfg.Handler.GetCustomer)
		r.Put("/{id}", cfg.Handler.UpdateCustomer)
		r.Delete("/{id}", cfg.Handler.DeleteCustomer)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", cfg.Handler.CreateTransaction)
		r.Get("/", cfg.Handler.ListTransactions)
		r.Get("/{id}", cfg.Handler.GetTransaction)
	})

	r.Route("/products", func(r chi.Router) {
		r.Post("/", cfg.Handler.CreateProduct)
		r.Get("/", cfg.Handler.ListProducts)
		r.Get("/{id}", cfg.Handler.GetProduct)
		r.Put("/{id}", cfg.Handler.UpdateProduct)
		r.Delete("/{id}", cfg.Handler.DeleteProduct)
		r.Post("/{id}/image", cfg.Handler.UploadProductImage)
	})

	return r
}
