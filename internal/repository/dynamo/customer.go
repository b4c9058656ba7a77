package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/x23379014/MyPOS/internal/apperr"
	"github.com/x23379014/MyPOS/internal/clock"
	"github.com/x23379014/MyPOS/internal/domain"
)

const customerKey = "customer_id"

type CustomerStore struct {
	table
}

func NewCustomerStore(client API, tableName string, reporter *apperr.Reporter, clk clock.Clock) *CustomerStore {
	if reporter == nil {
		reporter = apperr.NewReporter(nil)
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &CustomerStore{table: table{
		client:   client,
		name:     tableName,
		key:      customerKey,
		reporter: reporter,
		clock:    clk,
	}}
}

// WithProvisioner makes the store create its table before first use.
func (s *CustomerStore) WithProvisioner(p TableEnsurer) *CustomerStore {
	s.ensure = p
	return s
}

func (s *CustomerStore) validate(c *domain.Customer) error {
	if c.ID == "" {
		return s.reporter.Validation("customer_id", "customer id is required")
	}
	if c.Name == "" {
		return s.reporter.Validation("name", "customer name is required")
	}
	return nil
}

// Add writes c unconditionally, overwriting any customer with the same id,
// and stamps CreatedAt.
func (s *CustomerStore) Add(ctx context.Context, c *domain.Customer) error {
	if err := s.validate(c); err != nil {
		return err
	}
	if err := s.ready(ctx); err != nil {
		return err
	}

	c.CreatedAt = clock.Stamp(s.clock.Now())
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return s.reporter.Dependency(fmt.Errorf("marshal customer: %w", err), "add_customer", c.ID)
	}
	return s.put(ctx, item, "add_customer", c.ID)
}

func (s *CustomerStore) Get(ctx context.Context, id string) (*domain.Customer, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	item, err := s.get(ctx, id, "get_customer")
	if err != nil || item == nil {
		return nil, err
	}

	var c domain.Customer
	if err := attributevalue.UnmarshalMap(item, &c); err != nil {
		return nil, s.reporter.Dependency(fmt.Errorf("unmarshal customer: %w", err), "get_customer", id)
	}
	return &c, nil
}

func (s *CustomerStore) List(ctx context.Context) ([]*domain.Customer, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	items, err := s.scan(ctx, "list_customers")
	if err != nil {
		return nil, err
	}

	customers := make([]*domain.Customer, 0, len(items))
	for _, item := range items {
		var c domain.Customer
		if err := attributevalue.UnmarshalMap(item, &c); err != nil {
			return nil, s.reporter.Dependency(fmt.Errorf("unmarshal customer: %w", err), "list_customers", s.name)
		}
		customers = append(customers, &c)
	}
	return customers, nil
}

// Update overwrites the mutable fields of the customer stored under c.ID. It
// creates the item if it does not exist.
func (s *CustomerStore) Update(ctx context.Context, c *domain.Customer) error {
	if err := s.validate(c); err != nil {
		return err
	}
	if err := s.ready(ctx); err != nil {
		return err
	}

	update := expression.
		Set(expression.Name("name"), expression.Value(c.Name)).
		Set(expression.Name("email"), expression.Value(c.Email)).
		Set(expression.Name("phone"), expression.Value(c.Phone)).
		Set(expression.Name("address"), expression.Value(c.Address))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return s.reporter.Dependency(fmt.Errorf("build update expression: %w", err), "update_customer", c.ID)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.name),
		Key:                       s.keyOf(c.ID),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return s.reporter.Dependency(err, "update_customer", c.ID)
	}
	s.reporter.Success("update_customer", c.ID)
	return nil
}

// Delete removes the customer. Deleting an absent id is a no-op.
func (s *CustomerStore) Delete(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.name),
		Key:       s.keyOf(id),
	})
	if err != nil {
		return s.reporter.Dependency(err, "delete_customer", id)
	}
	s.reporter.Success("delete_customer", id)
	return nil
}

// LookupName returns the customer's name for denormalization. Failures are
// logged and reported as not found.
func (s *CustomerStore) LookupName(ctx context.Context, id string) (string, bool) {
	if id == "" {
		return "", false
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		s.reporter.Logger().Warn("customer name lookup failed", "customer_id", id, "error", err)
		return "", false
	}
	if c == nil || c.Name == "" {
		return "", false
	}
	return c.Name, true
}
