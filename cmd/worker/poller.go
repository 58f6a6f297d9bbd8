package main

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/ecomsvc/order-pipeline/internal/awsx"
)

// Poller drives the Processor outside Lambda by long-polling the queue
// directly. Messages are deleted only after successful processing, so a
// failure leaves the message for redelivery, same contract as the Lambda
// event source.
type Poller struct {
	client      awsx.SQSAPI
	queueURL    string
	waitSeconds int32
	processor   *Processor
	logger      *zap.Logger
}

// NewPoller returns a Poller bound to a queue URL.
func NewPoller(client awsx.SQSAPI, queueURL string, waitSeconds int32, processor *Processor, logger *zap.Logger) *Poller {
	return &Poller{
		client:      client,
		queueURL:    queueURL,
		waitSeconds: waitSeconds,
		processor:   processor,
		logger:      logger,
	}
}

// Run polls until the context is canceled.
func (p *Poller) Run(ctx context.Context) error {
	maxMessages := int32(10)
	for {
		out, err := p.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            &p.queueURL,
			MaxNumberOfMessages: maxMessages,
			WaitTimeSeconds:     p.waitSeconds,
		})
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			p.logger.Error("receive message failed", zap.Error(err))
			continue
		}

		for _, msg := range out.Messages {
			if err := p.processor.ProcessBody(ctx, deref(msg.Body)); err != nil {
				// Leave the message in flight; the queue redelivers after the
				// visibility timeout or dead-letters it.
				p.logger.Error("message processing failed",
					zap.String("sqs_message_id", deref(msg.MessageId)),
					zap.Error(err))
				continue
			}
			if _, err := p.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      &p.queueURL,
				ReceiptHandle: msg.ReceiptHandle,
			}); err != nil {
				p.logger.Error("delete message failed",
					zap.String("sqs_message_id", deref(msg.MessageId)),
					zap.Error(err))
			}
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
