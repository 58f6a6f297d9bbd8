package products

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the slice of the DynamoDB client this store needs.
type DynamoDBAPI interface {
	BatchGetItem(ctx context.Context, params *dyn.BatchGetItemInput, optFns ...func(*dyn.Options)) (*dyn.BatchGetItemOutput, error)
}

// Store is a read-only accessor over the products table.
type Store struct {
	client    DynamoDBAPI
	tableName string
}

// NewStore creates a new products Store.
func NewStore(client DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
	}
}

// GetByIDs resolves product ids to catalog records via BatchGetItem, retrying
// unprocessed keys until the batch drains. Only products that exist are
// returned, in no particular order; callers compare result count against input
// count to detect unresolved ids.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no product ids given")
	}

	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		})
	}

	input := &dyn.BatchGetItemInput{
		RequestItems: map[string]types.KeysAndAttributes{
			s.tableName: {Keys: keys},
		},
	}

	found := make([]Product, 0, len(ids))
	for {
		out, err := s.client.BatchGetItem(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("batch get products: %w", err)
		}
		for _, item := range out.Responses[s.tableName] {
			var p Product
			if err := attributevalue.UnmarshalMap(item, &p); err != nil {
				return nil, fmt.Errorf("unmarshal product: %w", err)
			}
			found = append(found, p)
		}
		if len(out.UnprocessedKeys) == 0 {
			break
		}
		input.RequestItems = out.UnprocessedKeys
	}

	return found, nil
}
