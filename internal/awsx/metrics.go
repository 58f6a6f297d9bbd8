package awsx

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metric names emitted by the pipeline.
const (
	MetricOrderEvents     = "OrderEvents"     // dimension EventType
	MetricPublishFailures = "PublishFailures" // dimension EventType
	MetricEventsRecorded  = "EventsRecorded"  // dimension EventType
)

// Metrics emits operational counters to CloudWatch. All emission is
// best-effort: a metric failure is logged and never propagated to the caller.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	logger    *zap.Logger
}

// NewMetrics returns a Metrics emitter bound to a namespace.
func NewMetrics(client CloudWatchAPI, namespace string, logger *zap.Logger) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// Count emits a single count datum for metric name with an EventType dimension.
func (m *Metrics) Count(ctx context.Context, name, eventType string) {
	if m == nil || m.client == nil {
		return
	}
	one := 1.0
	input := &cloudwatch.PutMetricDataInput{
		Namespace: &m.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Value:      &one,
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{Name: awsString("EventType"), Value: &eventType},
				},
			},
		},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Warn("put metric data failed",
			zap.String("metric", name),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

// awsString helper
func awsString(s string) *string { return &s }
