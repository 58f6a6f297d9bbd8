package events

// OrderEventType tags an Envelope with the mutation it describes.
type OrderEventType string

const (
	OrderCreated OrderEventType = "CREATED"
	OrderDeleted OrderEventType = "DELETED"
	OrderUpdated OrderEventType = "UPDATED"
)

// BillingSnapshot and ShippingSnapshot are value copies of the order's billing
// and shipping data at publish time. Events never reference live order state.
type BillingSnapshot struct {
	Payment    string  `json:"payment"`
	TotalPrice float64 `json:"totalPrice"`
}

type ShippingSnapshot struct {
	Type    string `json:"type"`
	Carrier string `json:"carrier"`
}

// OrderEvent is the serialized body carried inside an Envelope.
type OrderEvent struct {
	Email        string           `json:"email"`
	OrderID      string           `json:"orderId"`
	Billing      BillingSnapshot  `json:"billing"`
	Shipping     ShippingSnapshot `json:"shipping"`
	ProductCodes []string         `json:"productCodes"`
	RequestID    string           `json:"requestId"`
}

// Envelope is the unit handed to the notification topic: an event type tag
// plus the JSON-serialized OrderEvent. Immutable once constructed.
type Envelope struct {
	EventType OrderEventType `json:"eventType"`
	Data      string         `json:"data"`
}
