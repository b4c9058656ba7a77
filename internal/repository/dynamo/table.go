// Package dynamo implements the customer and transaction repositories on
// DynamoDB. Each collection is a table keyed by a single string attribute;
// all other attributes are loosely typed.
package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/x23379014/MyPOS/internal/apperr"
	"github.com/x23379014/MyPOS/internal/clock"
	"github.com/x23379014/MyPOS/internal/provision"
)

// API is the subset of the DynamoDB client the stores use.
type API interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// TableEnsurer is the provisioner's table path.
type TableEnsurer interface {
	EnsureTable(ctx context.Context, t provision.Table) error
}

type table struct {
	client   API
	name     string
	key      string
	reporter *apperr.Reporter
	clock    clock.Clock

	ensure TableEnsurer
	gate   provision.Gate
}

// ready provisions the table on first use when a provisioner is attached.
func (t *table) ready(ctx context.Context) error {
	if t.ensure == nil {
		return nil
	}
	return t.gate.Do(ctx, func(ctx context.Context) error {
		return t.ensure.EnsureTable(ctx, provision.Table{Name: t.name, Key: t.key})
	})
}

func (t *table) keyOf(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		t.key: &types.AttributeValueMemberS{Value: id},
	}
}

func (t *table) put(ctx context.Context, item map[string]types.AttributeValue, op, id string) error {
	_, err := t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      item,
	})
	if err != nil {
		return t.reporter.Dependency(err, op, id)
	}
	t.reporter.Success(op, id)
	return nil
}

// get returns nil without error when the key is absent.
func (t *table) get(ctx context.Context, id, op string) (map[string]types.AttributeValue, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.name),
		Key:       t.keyOf(id),
	})
	if err != nil {
		return nil, t.reporter.Dependency(err, op, id)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

// scan reads the whole table, following pagination.
func (t *table) scan(ctx context.Context, op string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	pages := dynamodb.NewScanPaginator(t.client, &dynamodb.ScanInput{TableName: aws.String(t.name)})
	for pages.HasMorePages() {
		out, err := pages.NextPage(ctx)
		if err != nil {
			return nil, t.reporter.Dependency(err, op, t.name)
		}
		items = append(items, out.Items...)
	}
	return items, nil
}

// Ping checks that the table is reachable.
func (t *table) Ping(ctx context.Context) error {
	_, err := t.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(t.name)})
	return err
}

// Tables describes the customer and transaction tables for provisioning.
func Tables(customersTable, transactionsTable string) []provision.Table {
	return []provision.Table{
		{Name: customersTable, Key: customerKey},
		{Name: transactionsTable, Key: transactionKey},
	}
}
