package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/x23379014/MyPOS/internal/apperr"
	"github.com/x23379014/MyPOS/internal/clock"
	"github.com/x23379014/MyPOS/internal/domain"
)

func newTestCustomerStore(f *fakeDynamo) *CustomerStore {
	clk := &clock.MockClock{NowTime: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	return NewCustomerStore(f, "customers", nil, clk)
}

func TestCustomerStore_AddGet(t *testing.T) {
	store := newTestCustomerStore(newFakeDynamo())
	ctx := context.Background()

	in := &domain.Customer{ID: "c-1", Name: "Alice"}
	if err := store.Add(ctx, in); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := store.Get(ctx, "c-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected customer, got nil")
	}
	if got.Name != "Alice" {
		t.Errorf("expected name Alice, got %q", got.Name)
	}
	if got.Email != "" || got.Phone != "" || got.Address != "" {
		t.Errorf("expected empty optional fields, got %+v", got)
	}
	if got.CreatedAt != "2024-03-01T10:00:00.000000Z" {
		t.Errorf("unexpected created_at %q", got.CreatedAt)
	}
	if *got != *in {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, in)
	}
}

func TestCustomerStore_GetMissingOptionalAttributes(t *testing.T) {
	f := newFakeDynamo()
	store := newTestCustomerStore(f)
	ctx := context.Background()

	// Items written by other tools may lack optional attributes entirely.
	if err := store.Add(ctx, &domain.Customer{ID: "c-2", Name: "Bob", Email: "bob@example.com"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	delete(f.tables["customers"]["c-2"], "email")
	delete(f.tables["customers"]["c-2"], "created_at")

	got, err := store.Get(ctx, "c-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Email != "" || got.CreatedAt != "" {
		t.Errorf("expected missing attributes to read as empty, got %+v", got)
	}
}

func TestCustomerStore_GetAbsent(t *testing.T) {
	store := newTestCustomerStore(newFakeDynamo())

	got, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("expected no error for absent key, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestCustomerStore_AddIsUpsert(t *testing.T) {
	store := newTestCustomerStore(newFakeDynamo())
	ctx := context.Background()

	_ = store.Add(ctx, &domain.Customer{ID: "c-1", Name: "Alice", Email: "a@example.com"})
	if err := store.Add(ctx, &domain.Customer{ID: "c-1", Name: "Alicia"}); err != nil {
		t.Fatalf("second Add: %v", err)
	}

	got, _ := store.Get(ctx, "c-1")
	if got.Name != "Alicia" || got.Email != "" {
		t.Errorf("expected full overwrite, got %+v", got)
	}
}

func TestCustomerStore_Validation(t *testing.T) {
	store := newTestCustomerStore(newFakeDynamo())

	tests := []struct {
		name     string
		customer *domain.Customer
		field    string
	}{
		{"missing id", &domain.Customer{Name: "Alice"}, "customer_id"},
		{"missing name", &domain.Customer{ID: "c-1"}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Add(context.Background(), tt.customer)
			var e *apperr.Error
			if !errors.As(err, &e) || e.Kind != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if e.Field != tt.field {
				t.Errorf("field = %q, want %q", e.Field, tt.field)
			}
		})
	}
}

func TestCustomerStore_ListUpdateDelete(t *testing.T) {
	f := newFakeDynamo()
	f.pageSize = 1
	store := newTestCustomerStore(f)
	ctx := context.Background()

	for _, c := range []*domain.Customer{
		{ID: "c-1", Name: "Alice"},
		{ID: "c-2", Name: "Bob"},
		{ID: "c-3", Name: "Carol"},
	} {
		if err := store.Add(ctx, c); err != nil {
			t.Fatalf("Add(%s): %v", c.ID, err)
		}
	}

	if err := store.Update(ctx, &domain.Customer{ID: "c-2", Name: "Bobby", Phone: "555"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.Delete(ctx, "c-3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 customers, got %d", len(list))
	}
	if f.scanCalls < 2 {
		t.Errorf("expected paginated scan, got %d calls", f.scanCalls)
	}

	got, _ := store.Get(ctx, "c-2")
	if got.Name != "Bobby" || got.Phone != "555" {
		t.Errorf("update not applied: %+v", got)
	}
	if got.CreatedAt == "" {
		t.Error("update should keep created_at")
	}
}

func TestCustomerStore_UpdateAbsentCreates(t *testing.T) {
	store := newTestCustomerStore(newFakeDynamo())
	ctx := context.Background()

	if err := store.Update(ctx, &domain.Customer{ID: "ghost", Name: "Ghost"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := store.Get(ctx, "ghost")
	if err != nil || got == nil || got.Name != "Ghost" {
		t.Fatalf("expected upserted customer, got %+v, %v", got, err)
	}
}

func TestCustomerStore_DeleteAbsent(t *testing.T) {
	store := newTestCustomerStore(newFakeDynamo())

	if err := store.Delete(context.Background(), "does-not-exist"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCustomerStore_DependencyFailure(t *testing.T) {
	f := newFakeDynamo()
	f.err = errors.New("AccessDeniedException: User is not authorized")
	store := newTestCustomerStore(f)

	_, err := store.Get(context.Background(), "c-1")
	if !errors.Is(err, apperr.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
}

func TestCustomerStore_LookupName(t *testing.T) {
	f := newFakeDynamo()
	store := newTestCustomerStore(f)
	ctx := context.Background()
	_ = store.Add(ctx, &domain.Customer{ID: "c-1", Name: "Alice"})

	if name, ok := store.LookupName(ctx, "c-1"); !ok || name != "Alice" {
		t.Errorf("expected Alice, got %q %v", name, ok)
	}
	if _, ok := store.LookupName(ctx, "missing"); ok {
		t.Error("expected not found")
	}

	f.getErr = errors.New("InternalServerError")
	if _, ok := store.LookupName(ctx, "c-1"); ok {
		t.Error("expected failure to be swallowed as not found")
	}
}

func TestCustomerStore_ProvisionsTableOnce(t *testing.T) {
	ensurer := &fakeEnsurer{}
	store := newTestCustomerStore(newFakeDynamo()).WithProvisioner(ensurer)
	ctx := context.Background()

	_ = store.Add(ctx, &domain.Customer{ID: "c-1", Name: "Alice"})
	_, _ = store.Get(ctx, "c-1")
	_, _ = store.List(ctx)

	if ensurer.calls != 1 {
		t.Errorf("expected table to be ensured once, got %d", ensurer.calls)
	}
}

func TestCustomerStore_ProvisionFailurePropagates(t *testing.T) {
	ensurer := &fakeEnsurer{err: errors.New("boom")}
	store := newTestCustomerStore(newFakeDynamo()).WithProvisioner(ensurer)

	if err := store.Add(context.Background(), &domain.Customer{ID: "c-1", Name: "Alice"}); err == nil {
		t.Fatal("expected provisioning failure")
	}
}
