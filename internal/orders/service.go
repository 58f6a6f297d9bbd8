package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecomsvc/order-pipeline/internal/awsx"
	"github.com/ecomsvc/order-pipeline/internal/products"
)

// ErrProductNotFound indicates a create request referenced at least one
// product id that does not resolve in the catalog. Nothing is written.
var ErrProductNotFound = errors.New("some product was not found")

// ProductLookup resolves product ids to catalog records.
type ProductLookup interface {
	GetByIDs(ctx context.Context, ids []string) ([]products.Product, error)
}

// OrderStore is the keyed persistence the service writes orders through.
type OrderStore interface {
	Put(ctx context.Context, order Order) error
	Get(ctx context.Context, email, orderID string) (*Order, error)
	QueryByEmail(ctx context.Context, email string) ([]Order, error)
	ScanAll(ctx context.Context) ([]Order, error)
	DeleteConditional(ctx context.Context, email, orderID string) (*Order, error)
}

// EventNotifier publishes a domain event for a successful mutation and returns
// the channel-assigned message id. Delivery is at-least-once and asynchronous;
// the return only acknowledges the enqueue.
type EventNotifier interface {
	OrderCreated(ctx context.Context, order Order, requestID string) (string, error)
	OrderDeleted(ctx context.Context, order Order, requestID string) (string, error)
}

// Service orchestrates order mutations: product validation, persistence and
// event emission. Persistence is authoritative; a publish failure is logged
// and counted but never fails the caller-visible mutation.
type Service struct {
	store    OrderStore
	catalog  ProductLookup
	notifier EventNotifier
	metrics  *awsx.Metrics
	logger   *zap.Logger
	nowFunc  func() time.Time
	newID    func() string
}

// NewService wires a Service from its injected dependencies.
func NewService(store OrderStore, catalog ProductLookup, notifier EventNotifier, metrics *awsx.Metrics, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		catalog:  catalog,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		nowFunc:  time.Now,
		newID:    uuid.NewString,
	}
}

// Create validates the referenced products, persists a new order and emits a
// CREATED event. When any product id does not resolve it fails with
// ErrProductNotFound and performs no write.
func (s *Service) Create(ctx context.Context, input CreateOrderInput, requestID string) (*Order, error) {
	resolved, err := s.catalog.GetByIDs(ctx, input.ProductIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}
	if len(resolved) != len(input.ProductIDs) {
		return nil, ErrProductNotFound
	}

	order := s.buildOrder(input, resolved)
	if err := s.store.Put(ctx, *order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.emit(ctx, *order, requestID, true)
	return order, nil
}

// Get is a point lookup; ErrOrderNotFound when the key is absent.
func (s *Service) Get(ctx context.Context, email, orderID string) (*Order, error) {
	return s.store.Get(ctx, email, orderID)
}

// ListByEmail returns all orders for a customer, possibly empty.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]Order, error) {
	return s.store.QueryByEmail(ctx, email)
}

// ListAll returns every order in the store. Administrative path; the
// underlying scan touches the whole table.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	return s.store.ScanAll(ctx)
}

// Delete removes an order and emits a DELETED event carrying the just-deleted
// record. ErrOrderNotFound when the key did not exist; under racing deletes
// exactly one call succeeds.
func (s *Service) Delete(ctx context.Context, email, orderID, requestID string) (*Order, error) {
	deleted, err := s.store.DeleteConditional(ctx, email, orderID)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, *deleted, requestID, false)
	return deleted, nil
}

func (s *Service) buildOrder(input CreateOrderInput, resolved []products.Product) *Order {
	orderProducts := make([]OrderProduct, 0, len(resolved))
	var totalPrice float64
	for _, p := range resolved {
		totalPrice += p.Price
		orderProducts = append(orderProducts, OrderProduct{
			Code:  p.Code,
			Price: p.Price,
		})
	}

	return &Order{
		Email:     input.Email,
		ID:        s.newID(),
		CreatedAt: s.nowFunc().UnixMilli(),
		Products:  orderProducts,
		Billing: Billing{
			Payment:    input.Payment,
			TotalPrice: totalPrice,
		},
		Shipping: Shipping{
			Type:    input.ShippingType,
			Carrier: input.Carrier,
		},
	}
}

// emit publishes the mutation event, best-effort.
func (s *Service) emit(ctx context.Context, order Order, requestID string, created bool) {
	eventType := "DELETED"
	publish := s.notifier.OrderDeleted
	if created {
		eventType = "CREATED"
		publish = s.notifier.OrderCreated
	}

	messageID, err := publish(ctx, order, requestID)
	if err != nil {
		// The order record already exists (or is already gone) and is
		// authoritative; the event is an auxiliary signal.
		s.logger.Error("order event publish failed",
			zap.String("event_type", eventType),
			zap.String("email", order.Email),
			zap.String("order_id", order.ID),
			zap.String("request_id", requestID),
			zap.Error(err))
		s.metrics.Count(ctx, awsx.MetricPublishFailures, eventType)
		return
	}

	s.logger.Info("order event sent",
		zap.String("event_type", eventType),
		zap.String("order_id", order.ID),
		zap.String("message_id", messageID))
	s.metrics.Count(ctx, awsx.MetricOrderEvents, eventType)
}
