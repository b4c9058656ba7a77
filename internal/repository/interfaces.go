package repository

import (
	"context"

	"github.com/x23379014/MyPOS/internal/domain"
)

// CustomerRepository persists customers in the key-value store.
//
// Add and Update are upserts: they overwrite whatever is stored under the
// same id without checking whether it exists. Get returns (nil, nil) when the
// id is absent. Delete of an absent id is not an error.
type CustomerRepository interface {
	Add(ctx context.Context, c *domain.Customer) error
	Get(ctx context.Context, id string) (*domain.Customer, error)
	List(ctx context.Context) ([]*domain.Customer, error)
	Update(ctx context.Context, c *domain.Customer) error
	Delete(ctx context.Context, id string) error
	// LookupName is an enrichment read. ok is false if the customer is absent
	// or the lookup failed; the caller picks the fallback.
	LookupName(ctx context.Context, id string) (name string, ok bool)
}

// TransactionRepository persists transactions. Transactions are append-only;
// Add is an upsert on transaction_id. Get returns (nil, nil) when absent.
// List is ordered by created_at, newest first.
type TransactionRepository interface {
	Add(ctx context.Context, tx *domain.Transaction) error
	Get(ctx context.Context, id string) (*domain.Transaction, error)
	List(ctx context.Context) ([]*domain.Transaction, error)
}

// ProductRepository is the local relational catalog.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	SetImageURL(ctx context.Context, id int64, url string) error
	Delete(ctx context.Context, id int64) error
}
