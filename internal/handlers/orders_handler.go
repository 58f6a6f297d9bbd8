package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecomsvc/order-pipeline/internal/awsx"
	"github.com/ecomsvc/order-pipeline/internal/events"
	"github.com/ecomsvc/order-pipeline/internal/orders"
	"github.com/ecomsvc/order-pipeline/internal/products"
	"github.com/ecomsvc/order-pipeline/internal/validation"
)

// HandlerConfig groups dependencies for the orders handler.
type HandlerConfig struct {
	DynamoDBClient   awsx.DynamoDBAPI
	SNSClient        awsx.SNSAPI
	CloudWatchClient awsx.CloudWatchAPI
	OrdersTable      string
	ProductsTable    string
	EventsTopicARN   string
	MetricsNamespace string
	Logger           *zap.Logger
}

// orderResponse is the wire shape for a single order.
type orderResponse struct {
	Email     string                `json:"email"`
	ID        string                `json:"id"`
	CreatedAt int64                 `json:"createdAt"`
	Products  []orders.OrderProduct `json:"products"`
	Billing   orders.Billing        `json:"billing"`
	Shipping  orders.Shipping       `json:"shipping"`
}

// RegisterOrdersRoutes registers routes for the order API.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	ordersStore := orders.NewStore(cfg.DynamoDBClient, cfg.OrdersTable)
	productsStore := products.NewStore(cfg.DynamoDBClient, cfg.ProductsTable)
	publisher := events.NewPublisher(cfg.SNSClient, cfg.EventsTopicARN)
	metrics := awsx.NewMetrics(cfg.CloudWatchClient, cfg.MetricsNamespace, cfg.Logger)
	service := orders.NewService(ordersStore, productsStore, publisher, metrics, cfg.Logger)

	r.GET("/orders", func(c *gin.Context) {
		ctx := c.Request.Context()
		email := c.Query("email")
		orderID := c.Query("orderId")

		switch {
		case email != "" && orderID != "":
			order, err := service.Get(ctx, email, orderID)
			if err != nil {
				writeOrderError(c, err)
				return
			}
			c.JSON(http.StatusOK, toOrderResponse(*order))
		case email != "":
			result, err := service.ListByEmail(ctx, email)
			if err != nil {
				writeOrderError(c, err)
				return
			}
			c.JSON(http.StatusOK, toOrderResponses(result))
		default:
			result, err := service.ListAll(ctx)
			if err != nil {
				writeOrderError(c, err)
				return
			}
			c.JSON(http.StatusOK, toOrderResponses(result))
		}
	})

	r.POST("/orders", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		order, err := service.Create(ctx, orders.CreateOrderInput{
			Email:        req.Email,
			ProductIDs:   req.ProductIDs,
			Payment:      req.Payment,
			ShippingType: req.Shipping.Type,
			Carrier:      req.Shipping.Carrier,
		}, requestID(c))
		if err != nil {
			writeOrderError(c, err)
			return
		}

		c.JSON(http.StatusCreated, toOrderResponse(*order))
	})

	r.DELETE("/orders", func(c *gin.Context) {
		ctx := c.Request.Context()
		email := c.Query("email")
		orderID := c.Query("orderId")
		if email == "" || orderID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_email_or_order_id"})
			return
		}

		deleted, err := service.Delete(ctx, email, orderID, requestID(c))
		if err != nil {
			writeOrderError(c, err)
			return
		}

		c.JSON(http.StatusOK, toOrderResponse(*deleted))
	})
}

// requestID propagates the caller's X-Request-Id for event traceability,
// minting one when absent.
func requestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}

func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": orders.ErrOrderNotFound.Error()})
	case errors.Is(err, orders.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": orders.ErrProductNotFound.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "detail": err.Error()})
	}
}

func toOrderResponse(o orders.Order) orderResponse {
	return orderResponse{
		Email:     o.Email,
		ID:        o.ID,
		CreatedAt: o.CreatedAt,
		Products:  o.Products,
		Billing:   o.Billing,
		Shipping:  o.Shipping,
	}
}

func toOrderResponses(list []orders.Order) []orderResponse {
	result := make([]orderResponse, 0, len(list))
	for _, o := range list {
		result = append(result, toOrderResponse(o))
	}
	return result
}
