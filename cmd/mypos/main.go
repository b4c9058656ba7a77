package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/x23379014/MyPOS/internal/api"
	"github.com/x23379014/MyPOS/internal/apperr"
	"github.com/x23379014/MyPOS/internal/checkout"
	"github.com/x23379014/MyPOS/internal/clock"
	"github.com/x23379014/MyPOS/internal/cloud"
	"github.com/x23379014/MyPOS/internal/config"
	"github.com/x23379014/MyPOS/internal/notify"
	"github.com/x23379014/MyPOS/internal/observability"
	"github.com/x23379014/MyPOS/internal/provision"
	"github.com/x23379014/MyPOS/internal/repository/dynamo"
	"github.com/x23379014/MyPOS/internal/repository/postgres"
	"github.com/x23379014/MyPOS/internal/resilience"
	"github.com/x23379014/MyPOS/internal/storage"
	"github.com/x23379014/MyPOS/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	clients, err := cloud.New(ctx, cfg.AWS)
	if err != nil {
		logger.Error("failed to load aws configuration", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	reporter := apperr.NewReporter(logger).WithMetrics(metrics.Operations)
	clk := clock.RealClock{}

	products := postgres.NewProductRepository(pool, reporter, clk)
	if err := products.EnsureSchema(ctx); err != nil {
		logger.Error("failed to create catalog schema", "error", err)
		os.Exit(1)
	}

	provisioner := provision.NewProvisioner(provision.Config{
		Region:    cfg.AWS.Region,
		Tables:    dynamo.Tables(cfg.AWS.CustomersTable, cfg.AWS.TransactionsTable),
		Bucket:    cfg.AWS.BucketName,
		TopicName: cfg.AWS.TopicName,
	}, clients.DynamoDB, clients.S3, clients.SNS, reporter)

	customers := dynamo.NewCustomerStore(clients.DynamoDB, cfg.AWS.CustomersTable, reporter, clk).
		WithProvisioner(provisioner)
	transactions := dynamo.NewTransactionStore(clients.DynamoDB, cfg.AWS.TransactionsTable, customers, reporter, clk).
		WithProvisioner(provisioner)
	images := storage.NewBlobStore(clients.Uploader, cfg.AWS.BucketName, clients.Region, reporter).
		WithProvisioner(provisioner)

	breakers := resilience.NewBreakers(cfg.Breaker.ResilienceConfig())
	breakers.OnStateChange(func(effect string, from, to resilience.State) {
		logger.Warn("circuit breaker state changed", "effect", effect, "from", from, "to", to)
		metrics.BreakerStateChanged(effect, from, to)
	})

	service := checkout.NewService(products, transactions, reporter).
		WithNotifier(notify.NewPublisher(clients.SNS, provisioner, reporter)).
		WithMetricsEmitter(telemetry.NewSink(clients.CloudWatch, cfg.AWS.CloudWatchNamespace, reporter, clk)).
		WithBreakers(breakers).
		WithMetrics(metrics)

	healthHandler := observability.NewHealthHandler(map[string]observability.HealthChecker{
		"database":     products,
		"customers":    customers,
		"transactions": transactions,
	})

	handler := api.NewHandler(customers, transactions, products, service, logger).
		WithImages(images, cfg.MaxUploadBytes)
	router := api.NewRouter(api.RouterConfig{
		Handler:       handler,
		HealthHandler: healthHandler,
		Metrics:       metrics,
		Logger:        logger,
	})

	healthHandler.SetReady(true)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	healthHandler.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
}
