package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/ecomsvc/order-pipeline/internal/orders"
)

// ErrPublish indicates the notification topic rejected or failed the publish.
var ErrPublish = errors.New("order event publish failed")

// SNSAPI is the slice of the SNS client the publisher needs.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher builds order-event envelopes and hands them to the SNS topic.
// Fire-and-forget: a successful return only acknowledges the enqueue, delivery
// to consumers is at-least-once and asynchronous.
type Publisher struct {
	client   SNSAPI
	topicARN string
}

// NewPublisher returns a Publisher bound to a topic ARN.
func NewPublisher(client SNSAPI, topicARN string) *Publisher {
	return &Publisher{
		client:   client,
		topicARN: topicARN,
	}
}

// OrderCreated publishes a creation event for the order.
func (p *Publisher) OrderCreated(ctx context.Context, order orders.Order, requestID string) (string, error) {
	return p.publish(ctx, order, OrderCreated, requestID)
}

// OrderDeleted publishes a deletion event carrying the removed order's content.
func (p *Publisher) OrderDeleted(ctx context.Context, order orders.Order, requestID string) (string, error) {
	return p.publish(ctx, order, OrderDeleted, requestID)
}

// publish snapshots the order into an OrderEvent, wraps it in an Envelope and
// publishes the envelope. Returns the SNS-assigned message id.
func (p *Publisher) publish(ctx context.Context, order orders.Order, eventType OrderEventType, requestID string) (string, error) {
	event := NewOrderEvent(order, requestID)

	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("%w: marshal event: %v", ErrPublish, err)
	}
	envelope := Envelope{
		EventType: eventType,
		Data:      string(data),
	}
	message, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("%w: marshal envelope: %v", ErrPublish, err)
	}

	body := string(message)
	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &p.topicARN,
		Message:  &body,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublish, err)
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}
	return messageID, nil
}

// NewOrderEvent copies the order's current field values into an event body.
// Pass-by-value: mutating or deleting the source order afterwards cannot
// alter an already-queued event.
func NewOrderEvent(order orders.Order, requestID string) OrderEvent {
	codes := make([]string, 0, len(order.Products))
	for _, p := range order.Products {
		codes = append(codes, p.Code)
	}
	return OrderEvent{
		Email:   order.Email,
		OrderID: order.ID,
		Billing: BillingSnapshot{
			Payment:    order.Billing.Payment,
			TotalPrice: order.Billing.TotalPrice,
		},
		Shipping: ShippingSnapshot{
			Type:    order.Shipping.Type,
			Carrier: order.Shipping.Carrier,
		},
		ProductCodes: codes,
		RequestID:    requestID,
	}
}
