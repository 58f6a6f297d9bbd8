package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/ecomsvc/order-pipeline/internal/awsx"
	"github.com/ecomsvc/order-pipeline/internal/config"
	"github.com/ecomsvc/order-pipeline/internal/events"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.RunLocal)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	clients, err := awsx.NewClients(ctx)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	store := events.NewStore(clients.DynamoDB, cfg.EventsTable, events.OrderPartitionPrefix, cfg.EventsTTLWindow)
	metrics := awsx.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace, logger)
	processor := NewProcessor(store, metrics, logger)

	// RUN_LOCAL=true polls the queue directly instead of waiting for Lambda.
	if cfg.RunLocal {
		logger.Info("polling queue", zap.String("queue_url", cfg.QueueURL))
		poller := NewPoller(clients.SQS, cfg.QueueURL, cfg.PollWaitSeconds, processor, logger)
		if err := poller.Run(ctx); err != nil {
			logger.Fatal("poller stopped", zap.Error(err))
		}
		return
	}

	lambda.Start(processor.Handle)
}

func newLogger(local bool) (*zap.Logger, error) {
	if local {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
