package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/x23379014/MyPOS/internal/apperr"
	"github.com/x23379014/MyPOS/internal/domain"
	"github.com/x23379014/MyPOS/internal/observability"
	"github.com/x23379014/MyPOS/internal/resilience"
)

type fakeCatalog struct {
	products map[int64]*domain.Product
	err      error
}

func (f *fakeCatalog) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// fakeTransactions fills in the customer name on Add like the store does.
type fakeTransactions struct {
	names   map[string]string
	lookups int
	added   []*domain.Transaction
	err     error
}

func (f *fakeTransactions) Add(ctx context.Context, tx *domain.Transaction) error {
	if f.err != nil {
		return f.err
	}
	if tx.CustomerName == "" {
		f.lookups++
		tx.CustomerName = f.names[tx.CustomerID]
	}
	f.added = append(f.added, tx)
	return nil
}

type fakeNotifier struct {
	messages []string
	subjects []string
	err      error
}

func (f *fakeNotifier) Publish(ctx context.Context, message, subject string) (string, error) {
	f.messages = append(f.messages, message)
	f.subjects = append(f.subjects, subject)
	if f.err != nil {
		return "", f.err
	}
	return "msg-1", nil
}

type fakeEmitter struct {
	amounts []decimal.Decimal
	ids     []string
	err     error
}

func (f *fakeEmitter) Emit(ctx context.Context, amount decimal.Decimal, id string) error {
	f.amounts = append(f.amounts, amount)
	f.ids = append(f.ids, id)
	return f.err
}

type fixture struct {
	catalog  *fakeCatalog
	txs      *fakeTransactions
	notifier *fakeNotifier
	emitter  *fakeEmitter
	metrics  *observability.Metrics
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		catalog: &fakeCatalog{products: map[int64]*domain.Product{
			1: {ID: 1, Name: "Coffee", Price: decimal.RequireFromString("9.99")},
			2: {ID: 2, Name: "Bagel", Price: decimal.RequireFromString("2.50")},
		}},
		txs:      &fakeTransactions{names: map[string]string{"c-1": "Alice"}},
		notifier: &fakeNotifier{},
		emitter:  &fakeEmitter{},
		metrics:  observability.NewMetricsWith(prometheus.NewRegistry(), "test"),
	}
	f.svc = NewService(f.catalog, f.txs, nil).
		WithNotifier(f.notifier).
		WithMetricsEmitter(f.emitter).
		WithMetrics(f.metrics).
		WithIDGenerator(func() string { return "t-1" })
	return f
}

func TestCreateTransaction(t *testing.T) {
	f := newFixture()

	res, err := f.svc.CreateTransaction(context.Background(), Request{
		CustomerID: "c-1",
		Lines:      []Line{{ProductID: 1, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	tx := res.Transaction
	if tx.ID != "t-1" || tx.CustomerName != "Alice" || tx.Status != domain.TransactionStatusCompleted {
		t.Errorf("unexpected transaction %+v", tx)
	}
	if !tx.TotalAmount.Equal(decimal.RequireFromString("19.98")) {
		t.Errorf("total = %s, want 19.98", tx.TotalAmount)
	}
	if len(f.txs.added) != 1 {
		t.Fatalf("expected 1 persisted transaction, got %d", len(f.txs.added))
	}
	if res.NotificationID != "msg-1" || len(res.Warnings) != 0 {
		t.Errorf("unexpected result %+v", res)
	}

	want := "Transaction Completed!\n\nTransaction ID: t-1\nCustomer: Alice\nTotal Amount: $19.98\nProducts: 1 items\n\nThank you for your purchase!"
	if f.notifier.messages[0] != want {
		t.Errorf("message =\n%s\nwant\n%s", f.notifier.messages[0], want)
	}
	if f.notifier.subjects[0] != NotificationSubject {
		t.Errorf("subject = %q", f.notifier.subjects[0])
	}
	if len(f.emitter.ids) != 1 || f.emitter.ids[0] != "t-1" || !f.emitter.amounts[0].Equal(tx.TotalAmount) {
		t.Errorf("unexpected metric emission %+v", f.emitter)
	}
	if got := testutil.ToFloat64(f.metrics.TransactionsCreated); got != 1 {
		t.Errorf("transactions_created_total = %v", got)
	}
}

func TestCreateTransaction_DefaultsAndSkips(t *testing.T) {
	f := newFixture()

	res, err := f.svc.CreateTransaction(context.Background(), Request{
		CustomerID: "unknown",
		Lines: []Line{
			{ProductID: 1},
			{ProductID: 99, Quantity: 3},
			{ProductID: 2, Quantity: 4},
		},
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	tx := res.Transaction
	if len(tx.Products) != 2 {
		t.Fatalf("expected unknown product skipped, got %d items", len(tx.Products))
	}
	if tx.Products[0].Quantity != 1 {
		t.Errorf("expected default quantity 1, got %d", tx.Products[0].Quantity)
	}
	if !tx.TotalAmount.Equal(decimal.RequireFromString("19.99")) {
		t.Errorf("total = %s, want 19.99", tx.TotalAmount)
	}
	if tx.CustomerName != "" {
		t.Errorf("expected no customer name, got %q", tx.CustomerName)
	}
	if !strings.Contains(f.notifier.messages[0], "Customer: Customer\n") {
		t.Errorf("expected fallback name in message, got %q", f.notifier.messages[0])
	}
}

func TestCreateTransaction_NameResolvedOnceByWriter(t *testing.T) {
	f := newFixture()

	res, err := f.svc.CreateTransaction(context.Background(), Request{
		CustomerID: "c-1",
		Lines:      []Line{{ProductID: 1}},
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if f.txs.lookups != 1 {
		t.Errorf("expected the writer to resolve the name once, got %d lookups", f.txs.lookups)
	}
	if res.Transaction.CustomerName != "Alice" {
		t.Errorf("expected name set by the writer, got %q", res.Transaction.CustomerName)
	}
	if !strings.Contains(f.notifier.messages[0], "Customer: Alice\n") {
		t.Errorf("expected resolved name in message, got %q", f.notifier.messages[0])
	}
}

func TestCreateTransaction_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"missing customer", Request{Lines: []Line{{ProductID: 1}}}, "customer_id"},
		{"no lines", Request{CustomerID: "c-1"}, "products"},
		{"no known products", Request{CustomerID: "c-1", Lines: []Line{{ProductID: 42}}}, "products"},
		{"negative quantity", Request{CustomerID: "c-1", Lines: []Line{{ProductID: 1, Quantity: -1}}}, "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.CreateTransaction(context.Background(), tt.req)

			var e *apperr.Error
			if !errors.As(err, &e) || e.Kind != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if e.Field != tt.field {
				t.Errorf("field = %q, want %q", e.Field, tt.field)
			}
			if len(f.txs.added) != 0 || len(f.notifier.messages) != 0 {
				t.Error("nothing should be persisted or published")
			}
		})
	}
}

func TestCreateTransaction_PersistFailureStops(t *testing.T) {
	f := newFixture()
	f.txs.err = apperr.ErrAccessDenied

	_, err := f.svc.CreateTransaction(context.Background(), Request{CustomerID: "c-1", Lines: []Line{{ProductID: 1}}})
	if !errors.Is(err, apperr.ErrAccessDenied) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if len(f.notifier.messages) != 0 || len(f.emitter.ids) != 0 {
		t.Error("advisory effects must not run when persistence fails")
	}
}

func TestCreateTransaction_CatalogFailurePropagates(t *testing.T) {
	f := newFixture()
	f.catalog.err = apperr.ErrPersistence

	_, err := f.svc.CreateTransaction(context.Background(), Request{CustomerID: "c-1", Lines: []Line{{ProductID: 1}}})
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected catalog error, got %v", err)
	}
}

func TestCreateTransaction_AdvisoryFailuresBecomeWarnings(t *testing.T) {
	f := newFixture()
	f.notifier.err = &apperr.Error{Kind: apperr.KindTopicNotFound, Message: "topic missing"}
	f.emitter.err = &apperr.Error{Kind: apperr.KindAccessDenied, Message: "denied"}

	res, err := f.svc.CreateTransaction(context.Background(), Request{CustomerID: "c-1", Lines: []Line{{ProductID: 1}}})
	if err != nil {
		t.Fatalf("advisory failures must not fail checkout: %v", err)
	}
	if len(f.txs.added) != 1 {
		t.Fatal("transaction must stay persisted")
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", res.Warnings)
	}
	if !strings.Contains(res.Warnings[0], "notification failed") || !strings.Contains(res.Warnings[0], "provision") {
		t.Errorf("unexpected notification warning %q", res.Warnings[0])
	}
	if !strings.Contains(res.Warnings[1], "metrics failed") || !strings.Contains(res.Warnings[1], "permissions") {
		t.Errorf("unexpected metrics warning %q", res.Warnings[1])
	}
	if got := testutil.ToFloat64(f.metrics.AdvisoryFailures.WithLabelValues(resilience.EffectNotification)); got != 1 {
		t.Errorf("advisory_failures_total{notification} = %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.AdvisoryFailures.WithLabelValues(resilience.EffectMetrics)); got != 1 {
		t.Errorf("advisory_failures_total{metrics} = %v", got)
	}
}

func TestCreateTransaction_OpenBreakerSkipsEffect(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("connection reset")
	f.svc.WithBreakers(resilience.NewBreakers(resilience.BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,
	}))
	ctx := context.Background()
	req := Request{CustomerID: "c-1", Lines: []Line{{ProductID: 1}}}

	for i := 0; i < 2; i++ {
		if _, err := f.svc.CreateTransaction(ctx, req); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	res, err := f.svc.CreateTransaction(ctx, req)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if len(f.notifier.messages) != 2 {
		t.Errorf("expected publish skipped once the breaker opened, got %d calls", len(f.notifier.messages))
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "temporarily disabled") {
		t.Errorf("unexpected warnings %v", res.Warnings)
	}
	if len(f.emitter.ids) != 3 {
		t.Errorf("metrics breaker should be unaffected, got %d emissions", len(f.emitter.ids))
	}
	if len(f.txs.added) != 3 {
		t.Errorf("expected 3 persisted transactions, got %d", len(f.txs.added))
	}
}

func TestNotificationMessage(t *testing.T) {
	tx := domain.NewTransaction("abc", "c", "", []domain.LineItem{
		domain.NewLineItem("1", "Tea", 3, decimal.RequireFromString("1.5")),
		domain.NewLineItem("2", "Cake", 1, decimal.RequireFromString("4")),
	})
	got := NotificationMessage(tx, "Bob")
	if !strings.Contains(got, "Total Amount: $8.50\n") || !strings.Contains(got, "Products: 2 items") {
		t.Errorf("unexpected message %q", got)
	}
}
