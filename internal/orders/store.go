package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// ErrOrderNotFound indicates the (email, orderId) key is absent.
var ErrOrderNotFound = errors.New("order not found")

// DynamoDBAPI is the slice of the DynamoDB client this store needs.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error)
	GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error)
	Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error)
	Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error)
	DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error)
}

// Store encapsulates operations on the orders table (pk=email, sk=orderId).
type Store struct {
	client    DynamoDBAPI
	tableName string
}

// NewStore creates a new orders Store.
func NewStore(client DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
	}
}

// Put writes an order unconditionally. Order ids are freshly generated uuids,
// so this acts as an insert.
func (s *Store) Put(ctx context.Context, order Order) error {
	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put order: %w", err)
	}
	return nil
}

// Get fetches an order by (email, orderId). Returns ErrOrderNotFound when absent.
func (s *Store) Get(ctx context.Context, email, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       orderKey(email, orderID),
	})
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrOrderNotFound
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// QueryByEmail returns all orders in a customer partition, empty if none.
func (s *Store) QueryByEmail(ctx context.Context, email string) ([]Order, error) {
	input := &dyn.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: awsString("pk = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
	}

	var result []Order
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query orders: %w", err)
		}
		page, err := unmarshalOrders(out.Items)
		if err != nil {
			return nil, err
		}
		result = append(result, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	if result == nil {
		result = []Order{}
	}
	return result, nil
}

// ScanAll returns every order in the table. Cost is O(table size) and one read
// unit per item; this backs an administrative path only.
func (s *Store) ScanAll(ctx context.Context) ([]Order, error) {
	input := &dyn.ScanInput{
		TableName: &s.tableName,
	}

	var result []Order
	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		page, err := unmarshalOrders(out.Items)
		if err != nil {
			return nil, err
		}
		result = append(result, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	if result == nil {
		result = []Order{}
	}
	return result, nil
}

// DeleteConditional atomically removes an order and returns the deleted
// record. The delete is guarded by attribute_exists so a missing key fails
// with ErrOrderNotFound instead of silently no-oping; when two deletes race,
// exactly one succeeds.
func (s *Store) DeleteConditional(ctx context.Context, email, orderID string) (*Order, error) {
	out, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:           &s.tableName,
		Key:                 orderKey(email, orderID),
		ConditionExpression: awsString("attribute_exists(pk)"),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		// detect conditional check failure
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("delete order: %w", err)
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Attributes, &o); err != nil {
		return nil, fmt.Errorf("unmarshal deleted order: %w", err)
	}
	return &o, nil
}

func orderKey(email, orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: email},
		"sk": &types.AttributeValueMemberS{Value: orderID},
	}
}

func unmarshalOrders(items []map[string]types.AttributeValue) ([]Order, error) {
	result := make([]Order, 0, len(items))
	for _, item := range items {
		var o Order
		if err := attributevalue.UnmarshalMap(item, &o); err != nil {
			return nil, fmt.Errorf("unmarshal order: %w", err)
		}
		result = append(result, o)
	}
	return result, nil
}

func awsString(s string) *string { return &s }
