package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ecomsvc/order-pipeline/internal/awsx"
	"github.com/ecomsvc/order-pipeline/internal/config"
	"github.com/ecomsvc/order-pipeline/internal/handlers"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterOrdersRoutes(r, cfg)

	return r
}

func main() {
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.RunLocal)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	clients, err := awsx.NewClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	r := setupRouter(handlers.HandlerConfig{
		DynamoDBClient:   clients.DynamoDB,
		SNSClient:        clients.SNS,
		CloudWatchClient: clients.CloudWatch,
		OrdersTable:      cfg.OrdersTable,
		ProductsTable:    cfg.ProductsTable,
		EventsTopicARN:   cfg.EventsTopicARN,
		MetricsNamespace: cfg.MetricsNamespace,
		Logger:           logger,
	})

	// RUN_LOCAL=true serves plain HTTP for development.
	if cfg.RunLocal {
		logger.Info("running local server", zap.String("addr", cfg.ListenAddr))
		if err := r.Run(cfg.ListenAddr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

func newLogger(local bool) (*zap.Logger, error) {
	if local {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
