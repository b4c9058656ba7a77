// Package checkout creates transactions from a cart: it resolves products
// from the catalog, persists the transaction, then publishes a notification
// and emits metrics. Persistence failures fail the checkout. Notification and
// metrics failures are advisory and come back as warnings.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/x23379014/MyPOS/internal/apperr"
	"github.com/x23379014/MyPOS/internal/domain"
	"github.com/x23379014/MyPOS/internal/observability"
	"github.com/x23379014/MyPOS/internal/resilience"
)

const (
	NotificationSubject = "New Transaction - MyPOS"

	fallbackCustomerName = "Customer"
)

type ProductLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

// TransactionWriter persists the transaction. It fills in CustomerName when
// the customer is known, so the service never looks the name up itself.
type TransactionWriter interface {
	Add(ctx context.Context, tx *domain.Transaction) error
}

type Notifier interface {
	Publish(ctx context.Context, message, subject string) (string, error)
}

type MetricsEmitter interface {
	Emit(ctx context.Context, amount decimal.Decimal, transactionID string) error
}

// Line is one cart row. A zero quantity means one.
type Line struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type Request struct {
	CustomerID string `json:"customer_id"`
	Lines      []Line `json:"products"`
}

type Result struct {
	Transaction    *domain.Transaction `json:"transaction"`
	NotificationID string              `json:"notification_id,omitempty"`
	Warnings       []string            `json:"warnings,omitempty"`
}

type Service struct {
	products     ProductLookup
	transactions TransactionWriter
	notifier     Notifier
	emitter      MetricsEmitter
	breakers     *resilience.Breakers
	reporter     *apperr.Reporter
	metrics      *observability.Metrics
	newID        func() string
}

func NewService(products ProductLookup, transactions TransactionWriter, reporter *apperr.Reporter) *Service {
	if reporter == nil {
		reporter = apperr.NewReporter(nil)
	}
	return &Service{
		products:     products,
		transactions: transactions,
		reporter:     reporter,
		breakers:     resilience.NewBreakers(resilience.DefaultBreakerConfig()),
		newID:        func() string { return uuid.NewString() },
	}
}

// WithNotifier enables the transaction notification.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithMetricsEmitter enables the per-transaction business metrics.
func (s *Service) WithMetricsEmitter(e MetricsEmitter) *Service {
	s.emitter = e
	return s
}

func (s *Service) WithBreakers(b *resilience.Breakers) *Service {
	if b != nil {
		s.breakers = b
	}
	return s
}

func (s *Service) WithMetrics(m *observability.Metrics) *Service {
	s.metrics = m
	return s
}

// WithIDGenerator overrides uuid generation.
func (s *Service) WithIDGenerator(fn func() string) *Service {
	if fn != nil {
		s.newID = fn
	}
	return s
}

// CreateTransaction builds and stores a transaction for req. Unknown product
// ids are skipped; if none remain the request is rejected.
func (s *Service) CreateTransaction(ctx context.Context, req Request) (*Result, error) {
	logger := observability.LoggerFromContext(ctx)

	if req.CustomerID == "" {
		return nil, s.reporter.Validation("customer_id", "customer and at least one product are required")
	}
	if len(req.Lines) == 0 {
		return nil, s.reporter.Validation("products", "customer and at least one product are required")
	}

	items, err := s.resolveLines(ctx, req.Lines, logger)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, s.reporter.Validation("products", "no valid products selected")
	}

	tx := domain.NewTransaction(s.newID(), req.CustomerID, "", items)

	if err := s.transactions.Add(ctx, tx); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.TransactionsCreated.Inc()
		s.metrics.TransactionAmount.Observe(tx.TotalAmount.InexactFloat64())
	}
	logger.Info("transaction created",
		"transaction_id", tx.ID,
		"customer_id", tx.CustomerID,
		"total_amount", tx.TotalAmount.StringFixed(2),
		"items", len(tx.Products),
	)

	result := &Result{Transaction: tx}
	s.notify(ctx, tx, result, logger)
	s.emit(ctx, tx, result, logger)
	return result, nil
}

func (s *Service) resolveLines(ctx context.Context, lines []Line, logger *slog.Logger) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(lines))
	for _, line := range lines {
		qty := line.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return nil, s.reporter.Validation("quantity", fmt.Sprintf("quantity for product %d must be positive", line.ProductID))
		}

		p, err := s.products.GetByID(ctx, line.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("skipping unknown product", "product_id", line.ProductID)
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, domain.NewLineItem(strconv.FormatInt(p.ID, 10), p.Name, qty, p.Price))
	}
	return items, nil
}

// NotificationMessage renders the body sent for a completed transaction.
func NotificationMessage(tx *domain.Transaction, customerName string) string {
	return fmt.Sprintf("Transaction Completed!\n\n"+
		"Transaction ID: %s\n"+
		"Customer: %s\n"+
		"Total Amount: $%s\n"+
		"Products: %d items\n\n"+
		"Thank you for your purchase!",
		tx.ID, customerName, tx.TotalAmount.StringFixed(2), len(tx.Products))
}

func (s *Service) notify(ctx context.Context, tx *domain.Transaction, result *Result, logger *slog.Logger) {
	if s.notifier == nil {
		return
	}

	name := tx.CustomerName
	if name == "" {
		name = fallbackCustomerName
	}

	err := s.breakers.Run(resilience.EffectNotification, func() error {
		id, err := s.notifier.Publish(ctx, NotificationMessage(tx, name), NotificationSubject)
		result.NotificationID = id
		return err
	})
	if err != nil {
		s.advisoryFailed(resilience.EffectNotification, err, result, logger,
			"transaction created but notification failed")
	}
}

func (s *Service) emit(ctx context.Context, tx *domain.Transaction, result *Result, logger *slog.Logger) {
	if s.emitter == nil {
		return
	}

	err := s.breakers.Run(resilience.EffectMetrics, func() error {
		return s.emitter.Emit(ctx, tx.TotalAmount, tx.ID)
	})
	if err != nil {
		s.advisoryFailed(resilience.EffectMetrics, err, result, logger,
			"transaction created but metrics failed")
	}
}

func (s *Service) advisoryFailed(effect string, err error, result *Result, logger *slog.Logger, prefix string) {
	if s.metrics != nil {
		s.metrics.AdvisoryFailures.WithLabelValues(effect).Inc()
	}
	if resilience.IsRejected(err) {
		logger.Warn("advisory effect skipped, circuit open", "effect", effect)
		result.Warnings = append(result.Warnings, prefix+": temporarily disabled after repeated failures")
		return
	}
	logger.Error("advisory effect failed", "effect", effect, "error", err)
	result.Warnings = append(result.Warnings, prefix+": "+advice(err))
}

// advice turns a classified failure into a short operator hint.
func advice(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindAccessDenied, apperr.KindAuthorization:
		return "check permissions for the cloud service"
	case apperr.KindTopicNotFound, apperr.KindNotFound:
		return "resource not found; run the provision command"
	case apperr.KindCredentials:
		return "cloud credentials are not configured"
	}
	msg := []rune(err.Error())
	if len(msg) > 100 {
		msg = msg[:100]
	}
	return string(msg)
}
