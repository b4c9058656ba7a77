package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusPending, TransactionStatusCancelled:
		return true
	}
	return false
}

// LineItem is one product row of a transaction. Price is the unit price.
type LineItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// NewLineItem computes the subtotal from quantity and unit price.
func NewLineItem(productID, productName string, quantity int, price decimal.Decimal) LineItem {
	return LineItem{
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		Price:       price,
		Subtotal:    price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Transaction is append-only: once written it is never updated or deleted.
type Transaction struct {
	ID           string            `json:"transaction_id"`
	CustomerID   string            `json:"customer_id"`
	CustomerName string            `json:"customer_name,omitempty"`
	Products     []LineItem        `json:"products"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	Status       TransactionStatus `json:"status"`
	CreatedAt    string            `json:"created_at"`
}

// NewTransaction builds a completed transaction whose total is the sum of the
// line subtotals.
func NewTransaction(id, customerID, customerName string, items []LineItem) *Transaction {
	tx := &Transaction{
		ID:           id,
		CustomerID:   customerID,
		CustomerName: customerName,
		Products:     items,
		Status:       TransactionStatusCompleted,
	}
	tx.TotalAmount = tx.Sum()
	return tx
}

// Sum returns Σ subtotal over the line items.
func (t *Transaction) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, item := range t.Products {
		total = total.Add(item.Subtotal)
	}
	return total
}

// Validate checks the structural invariants. It returns the offending field
// name alongside an error wrapping ErrInvalidInput.
func (t *Transaction) Validate() (string, error) {
	if t.ID == "" {
		return "transaction_id", fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}
	if t.CustomerID == "" {
		return "customer_id", fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}
	if len(t.Products) == 0 {
		return "products", fmt.Errorf("%w: at least one product is required", ErrInvalidInput)
	}
	for i, item := range t.Products {
		if item.Quantity < 1 {
			return "quantity", fmt.Errorf("%w: product %d has quantity %d", ErrInvalidInput, i, item.Quantity)
		}
		want := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if !item.Subtotal.Equal(want) {
			return "subtotal", fmt.Errorf("%w: product %d subtotal %s != %s", ErrInvalidInput, i, item.Subtotal, want)
		}
	}
	if !t.TotalAmount.Equal(t.Sum()) {
		return "total_amount", fmt.Errorf("%w: total %s != sum of subtotals %s", ErrInvalidInput, t.TotalAmount, t.Sum())
	}
	if t.Status != "" && !t.Status.Valid() {
		return "status", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, t.Status)
	}
	return "", nil
}
