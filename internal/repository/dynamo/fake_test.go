package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/x23379014/MyPOS/internal/provision"
)

type item = map[string]types.AttributeValue

// fakeDynamo is an in-memory DynamoDB covering the calls the stores make.
type fakeDynamo struct {
	mu       sync.Mutex
	keys     map[string]string
	tables   map[string]map[string]item
	order    map[string][]string
	pageSize int

	err       error
	getErr    error
	scanCalls int
	getCalls  int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		keys: map[string]string{
			"customers":    customerKey,
			"transactions": transactionKey,
		},
		tables: map[string]map[string]item{
			"customers":    {},
			"transactions": {},
		},
		order: map[string][]string{},
	}
}

func (f *fakeDynamo) idOf(table string, it item) (string, error) {
	attr, ok := it[f.keys[table]].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("ValidationException: missing key %s", f.keys[table])
	}
	return attr.Value, nil
}

func (f *fakeDynamo) tableFor(name *string) (map[string]item, error) {
	t, ok := f.tables[aws.ToString(name)]
	if !ok {
		return nil, errors.New("ResourceNotFoundException: Requested resource not found")
	}
	return t, nil
}

func (f *fakeDynamo) store(table string, id string, it item) {
	if _, exists := f.tables[table][id]; !exists {
		f.order[table] = append(f.order[table], id)
	}
	f.tables[table][id] = it
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, err := f.tableFor(in.TableName); err != nil {
		return nil, err
	}
	id, err := f.idOf(aws.ToString(in.TableName), in.Item)
	if err != nil {
		return nil, err
	}
	f.store(aws.ToString(in.TableName), id, in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	t, err := f.tableFor(in.TableName)
	if err != nil {
		return nil, err
	}
	id, err := f.idOf(aws.ToString(in.TableName), in.Key)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: t[id]}, nil
}

// UpdateItem understands the "SET #a = :a, #b = :b" form produced by the
// expression builder.
func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	table := aws.ToString(in.TableName)
	t, err := f.tableFor(in.TableName)
	if err != nil {
		return nil, err
	}
	id, err := f.idOf(table, in.Key)
	if err != nil {
		return nil, err
	}

	updated := item{}
	for k, v := range t[id] {
		updated[k] = v
	}
	for k, v := range in.Key {
		updated[k] = v
	}

	expr := strings.TrimSpace(strings.TrimPrefix(aws.ToString(in.UpdateExpression), "SET"))
	for _, clause := range strings.Split(expr, ",") {
		parts := strings.SplitN(clause, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("ValidationException: bad clause %q", clause)
		}
		name := in.ExpressionAttributeNames[strings.TrimSpace(parts[0])]
		value := in.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
		updated[name] = value
	}

	f.store(table, id, updated)
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	table := aws.ToString(in.TableName)
	t, err := f.tableFor(in.TableName)
	if err != nil {
		return nil, err
	}
	id, err := f.idOf(table, in.Key)
	if err != nil {
		return nil, err
	}
	delete(t, id)
	kept := f.order[table][:0]
	for _, k := range f.order[table] {
		if k != id {
			kept = append(kept, k)
		}
	}
	f.order[table] = kept
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanCalls++
	if f.err != nil {
		return nil, f.err
	}
	table := aws.ToString(in.TableName)
	t, err := f.tableFor(in.TableName)
	if err != nil {
		return nil, err
	}

	ids := f.order[table]
	start := 0
	if in.ExclusiveStartKey != nil {
		last, _ := f.idOf(table, in.ExclusiveStartKey)
		for i, id := range ids {
			if id == last {
				start = i + 1
				break
			}
		}
	}

	end := len(ids)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}

	out := &dynamodb.ScanOutput{}
	for _, id := range ids[start:end] {
		out.Items = append(out.Items, t[id])
	}
	if end < len(ids) {
		out.LastEvaluatedKey = item{f.keys[table]: &types.AttributeValueMemberS{Value: ids[end-1]}}
	}
	return out, nil
}

func (f *fakeDynamo) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if _, err := f.tableFor(in.TableName); err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

type fakeEnsurer struct {
	calls int
	err   error
}

func (e *fakeEnsurer) EnsureTable(ctx context.Context, t provision.Table) error {
	e.calls++
	return e.err
}
