package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/ecomsvc/order-pipeline/internal/awsx"
	"github.com/ecomsvc/order-pipeline/internal/events"
)

// ErrMalformedEvent indicates a message body that could not be decoded into an
// order-event envelope. Fatal for that message: the error propagates so the
// queue's redelivery/dead-letter policy owns it, never a silent drop.
var ErrMalformedEvent = errors.New("malformed order event message")

// EventStore persists one history record per delivered envelope.
type EventStore interface {
	RecordOrderEvent(ctx context.Context, event events.OrderEvent, eventType events.OrderEventType, payload, messageID string) (*events.Record, error)
}

// Processor handles delivered order-event messages and appends them to the
// event history. Delivery is at-least-once; redeliveries append duplicate
// records by design.
type Processor struct {
	store   EventStore
	metrics *awsx.Metrics
	logger  *zap.Logger
}

// NewProcessor creates a worker processor with its dependencies injected.
func NewProcessor(store EventStore, metrics *awsx.Metrics, logger *zap.Logger) *Processor {
	return &Processor{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev lambdaevents.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.ProcessBody(ctx, rec.Body); err != nil {
			// Return error: the runtime retries the batch and eventually
			// dead-letters the message.
			p.logger.Error("worker error", zap.String("sqs_message_id", rec.MessageId), zap.Error(err))
			return err
		}
	}
	return nil
}

// ProcessBody unwraps one SNS-over-SQS message body and records the event.
func (p *Processor) ProcessBody(ctx context.Context, body string) error {
	envelope, messageID, err := decodeEnvelope(body)
	if err != nil {
		return err
	}

	var event events.OrderEvent
	if err := json.Unmarshal([]byte(envelope.Data), &event); err != nil {
		return fmt.Errorf("%w: decode order event: %v", ErrMalformedEvent, err)
	}

	rec, err := p.store.RecordOrderEvent(ctx, event, envelope.EventType, envelope.Data, messageID)
	if err != nil {
		return fmt.Errorf("record order event: %w", err)
	}

	p.logger.Info("order event recorded",
		zap.String("event_type", rec.EventType),
		zap.String("pk", rec.PK),
		zap.String("sk", rec.SK),
		zap.String("order_id", rec.OrderID),
		zap.String("request_id", rec.RequestID))
	p.metrics.Count(ctx, awsx.MetricEventsRecorded, rec.EventType)
	return nil
}

// decodeEnvelope parses the SNS notification wrapper, then the Envelope inside it.
func decodeEnvelope(body string) (events.Envelope, string, error) {
	var notification snsNotification
	if err := json.Unmarshal([]byte(body), &notification); err != nil {
		return events.Envelope{}, "", fmt.Errorf("%w: decode sns notification: %v", ErrMalformedEvent, err)
	}
	if notification.Message == "" {
		return events.Envelope{}, "", fmt.Errorf("%w: empty notification message", ErrMalformedEvent)
	}

	var envelope events.Envelope
	if err := json.Unmarshal([]byte(notification.Message), &envelope); err != nil {
		return events.Envelope{}, "", fmt.Errorf("%w: decode envelope: %v", ErrMalformedEvent, err)
	}
	if envelope.EventType == "" || envelope.Data == "" {
		return events.Envelope{}, "", fmt.Errorf("%w: envelope missing eventType or data", ErrMalformedEvent)
	}
	return envelope, notification.MessageID, nil
}
