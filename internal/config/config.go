package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// APIConfig is the environment of the order API process.
type APIConfig struct {
	OrdersTable      string `env:"ORDERS_TABLE,required"`
	ProductsTable    string `env:"PRODUCTS_TABLE,required"`
	EventsTopicARN   string `env:"ORDER_EVENTS_TOPIC_ARN,required"`
	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"OrderPipeline"`
	RunLocal         bool   `env:"RUN_LOCAL" envDefault:"false"`
	ListenAddr       string `env:"LISTEN_ADDR" envDefault:":8080"`
}

// WorkerConfig is the environment of the event consumer process.
type WorkerConfig struct {
	EventsTable      string        `env:"EVENTS_TABLE,required"`
	EventsTTLWindow  time.Duration `env:"EVENTS_TTL_WINDOW" envDefault:"0"` // 0 disables TTL
	MetricsNamespace string        `env:"METRICS_NAMESPACE" envDefault:"OrderPipeline"`
	RunLocal         bool          `env:"RUN_LOCAL" envDefault:"false"`
	QueueURL         string        `env:"ORDER_EVENTS_QUEUE_URL"` // required only in local poll mode
	PollWaitSeconds  int32         `env:"POLL_WAIT_SECONDS" envDefault:"10"`
}

// LoadAPI parses the API config from the environment.
func LoadAPI() (APIConfig, error) {
	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse api config: %w", err)
	}
	return cfg, nil
}

// LoadWorker parses the worker config from the environment.
func LoadWorker() (WorkerConfig, error) {
	var cfg WorkerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse worker config: %w", err)
	}
	if cfg.RunLocal && cfg.QueueURL == "" {
		return cfg, fmt.Errorf("ORDER_EVENTS_QUEUE_URL is required when RUN_LOCAL=true")
	}
	return cfg, nil
}
