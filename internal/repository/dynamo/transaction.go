package dynamo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/x23379014/MyPOS/internal/apperr"
	"github.com/x23379014/MyPOS/internal/clock"
	"github.com/x23379014/MyPOS/internal/domain"
)

const transactionKey = "transaction_id"

// NameLookup resolves a customer name for denormalization.
type NameLookup interface {
	LookupName(ctx context.Context, id string) (string, bool)
}

// transactionItem is the stored shape. Products is a JSON string and
// TotalAmount a DynamoDB number so amounts never pass through float64.
type transactionItem struct {
	TransactionID string                `dynamodbav:"transaction_id"`
	CustomerID    string                `dynamodbav:"customer_id"`
	CustomerName  string                `dynamodbav:"customer_name,omitempty"`
	Products      string                `dynamodbav:"products"`
	TotalAmount   attributevalue.Number `dynamodbav:"total_amount"`
	Status        string                `dynamodbav:"status"`
	CreatedAt     string                `dynamodbav:"created_at"`
}

type TransactionStore struct {
	table
	customers NameLookup
}

func NewTransactionStore(client API, tableName string, customers NameLookup, reporter *apperr.Reporter, clk clock.Clock) *TransactionStore {
	if reporter == nil {
		reporter = apperr.NewReporter(nil)
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &TransactionStore{
		table: table{
			client:   client,
			name:     tableName,
			key:      transactionKey,
			reporter: reporter,
			clock:    clk,
		},
		customers: customers,
	}
}

// WithProvisioner makes the store create its table before first use.
func (s *TransactionStore) WithProvisioner(p TableEnsurer) *TransactionStore {
	s.ensure = p
	return s
}

// Add validates tx, fills in the customer name when the caller did not, and
// writes it. The write is an upsert on transaction_id.
func (s *TransactionStore) Add(ctx context.Context, tx *domain.Transaction) error {
	if tx.Status == "" {
		tx.Status = domain.TransactionStatusCompleted
	}
	if field, err := tx.Validate(); err != nil {
		return s.reporter.Validation(field, err.Error())
	}
	if err := s.ready(ctx); err != nil {
		return err
	}

	if tx.CustomerName == "" && s.customers != nil {
		if name, ok := s.customers.LookupName(ctx, tx.CustomerID); ok {
			tx.CustomerName = name
		}
	}
	tx.CreatedAt = clock.Stamp(s.clock.Now())

	item, err := encodeTransaction(tx)
	if err != nil {
		return s.reporter.Dependency(err, "add_transaction", tx.ID)
	}
	return s.put(ctx, item, "add_transaction", tx.ID)
}

// Get returns the transaction. A missing customer_name is looked up and set
// on the returned value only; the stored item is left as is.
func (s *TransactionStore) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	item, err := s.get(ctx, id, "get_transaction")
	if err != nil || item == nil {
		return nil, err
	}

	tx, err := decodeTransaction(item)
	if err != nil {
		return nil, s.reporter.Dependency(err, "get_transaction", id)
	}
	s.backfillNames(ctx, []*domain.Transaction{tx})
	return tx, nil
}

// List scans every transaction, newest first. Missing customer names are
// filled in as in Get. Ordering compares the raw created_at strings, which is
// chronological only for clock.StampLayout.
func (s *TransactionStore) List(ctx context.Context) ([]*domain.Transaction, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	items, err := s.scan(ctx, "list_transactions")
	if err != nil {
		return nil, err
	}

	txs := make([]*domain.Transaction, 0, len(items))
	for _, item := range items {
		tx, err := decodeTransaction(item)
		if err != nil {
			return nil, s.reporter.Dependency(err, "list_transactions", s.name)
		}
		txs = append(txs, tx)
	}
	s.backfillNames(ctx, txs)

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].CreatedAt > txs[j].CreatedAt
	})
	return txs, nil
}

// backfillNames sets missing customer names on the returned values only. Each
// customer is looked up at most once per call, misses included.
func (s *TransactionStore) backfillNames(ctx context.Context, txs []*domain.Transaction) {
	if s.customers == nil {
		return
	}
	names := make(map[string]string)
	for _, tx := range txs {
		if tx.CustomerName != "" || tx.CustomerID == "" {
			continue
		}
		name, seen := names[tx.CustomerID]
		if !seen {
			name, _ = s.customers.LookupName(ctx, tx.CustomerID)
			names[tx.CustomerID] = name
		}
		tx.CustomerName = name
	}
}

func encodeTransaction(tx *domain.Transaction) (map[string]types.AttributeValue, error) {
	products, err := json.Marshal(tx.Products)
	if err != nil {
		return nil, fmt.Errorf("marshal products: %w", err)
	}

	item, err := attributevalue.MarshalMap(transactionItem{
		TransactionID: tx.ID,
		CustomerID:    tx.CustomerID,
		CustomerName:  tx.CustomerName,
		Products:      string(products),
		TotalAmount:   attributevalue.Number(tx.TotalAmount.String()),
		Status:        string(tx.Status),
		CreatedAt:     tx.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal transaction: %w", err)
	}
	return item, nil
}

func decodeTransaction(item map[string]types.AttributeValue) (*domain.Transaction, error) {
	var raw transactionItem
	if err := attributevalue.UnmarshalMap(item, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}

	tx := &domain.Transaction{
		ID:           raw.TransactionID,
		CustomerID:   raw.CustomerID,
		CustomerName: raw.CustomerName,
		Status:       domain.TransactionStatus(raw.Status),
		CreatedAt:    raw.CreatedAt,
		TotalAmount:  decimal.Zero,
	}
	if tx.Status == "" {
		tx.Status = domain.TransactionStatusCompleted
	}

	if raw.Products != "" {
		if err := json.Unmarshal([]byte(raw.Products), &tx.Products); err != nil {
			return nil, fmt.Errorf("unmarshal products of %s: %w", raw.TransactionID, err)
		}
	}
	if raw.TotalAmount != "" {
		total, err := decimal.NewFromString(string(raw.TotalAmount))
		if err != nil {
			return nil, fmt.Errorf("parse total_amount of %s: %w", raw.TransactionID, err)
		}
		tx.TotalAmount = total
	}
	return tx, nil
}
