package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
)

// DynamoDBAPI is the slice of the DynamoDB client this store needs. The
// consumer role only holds prefix-conditioned PutItem on the events table.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error)
}

// OrderPartitionPrefix namespaces every order-sourced record in the events
// table. The consumer's IAM role carries a dynamodb:LeadingKeys condition on
// this exact pattern, so changing it is a breaking security change.
const OrderPartitionPrefix = "#order_"

// ErrKeyOutsidePolicy indicates an attempted write whose partition key falls
// outside the store's authorized prefix. Mirrors the IAM condition in code so
// the restriction holds even against a misconfigured role.
var ErrKeyOutsidePolicy = errors.New("event key outside authorized partition prefix")

// Record is the shape persisted in the events DynamoDB table. Write-once;
// never updated or deleted by this pipeline.
type Record struct {
	PK           string   `dynamodbav:"pk"` // "#order_" + customer email
	SK           string   `dynamodbav:"sk"` // fresh uuid per delivery
	EventType    string   `dynamodbav:"eventType"`
	CreatedAt    int64    `dynamodbav:"createdAt"` // unix milliseconds
	Email        string   `dynamodbav:"email"`
	OrderID      string   `dynamodbav:"orderId"`
	ProductCodes []string `dynamodbav:"productCodes,omitempty"`
	RequestID    string   `dynamodbav:"requestId"`
	Payload      string   `dynamodbav:"payload"`             // raw OrderEvent JSON
	MessageID    string   `dynamodbav:"messageId,omitempty"` // channel message id
	ExpiresAt    int64    `dynamodbav:"expiresAt,omitempty"` // TTL epoch seconds
}

// Store appends event history records to the events table, restricted to the
// allowed partition prefix.
type Store struct {
	client        DynamoDBAPI
	tableName     string
	allowedPrefix string
	ttlWindow     time.Duration // 0 disables the TTL attribute
	nowFunc       func() time.Time
}

// NewStore returns a Store whose writes are confined to allowedPrefix.
func NewStore(client DynamoDBAPI, tableName, allowedPrefix string, ttlWindow time.Duration) *Store {
	return &Store{
		client:        client,
		tableName:     tableName,
		allowedPrefix: allowedPrefix,
		ttlWindow:     ttlWindow,
		nowFunc:       time.Now,
	}
}

// RecordOrderEvent persists one history record for a delivered envelope and
// returns it. The sort key is minted per invocation, so redelivered messages
// append duplicate records; the audit trail tolerates that. Deduplication
// would need a content-derived sort key (e.g. hash of envelope + message id).
func (s *Store) RecordOrderEvent(ctx context.Context, event OrderEvent, eventType OrderEventType, payload, messageID string) (*Record, error) {
	now := s.nowFunc()
	rec := Record{
		PK:           OrderPartitionPrefix + event.Email,
		SK:           uuid.NewString(),
		EventType:    string(eventType),
		CreatedAt:    now.UnixMilli(),
		Email:        event.Email,
		OrderID:      event.OrderID,
		ProductCodes: event.ProductCodes,
		RequestID:    event.RequestID,
		Payload:      payload,
		MessageID:    messageID,
	}
	if s.ttlWindow > 0 {
		rec.ExpiresAt = now.Add(s.ttlWindow).Unix()
	}

	if !strings.HasPrefix(rec.PK, s.allowedPrefix) {
		return nil, fmt.Errorf("%w: pk %q, allowed prefix %q", ErrKeyOutsidePolicy, rec.PK, s.allowedPrefix)
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal event record: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return nil, fmt.Errorf("put event record: %w", err)
	}
	return &rec, nil
}
