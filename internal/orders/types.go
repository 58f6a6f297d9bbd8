package orders

// Payment methods
const (
	PaymentCash       = "CASH"
	PaymentDebitCard  = "DEBIT_CARD"
	PaymentCreditCard = "CREDIT_CARD"
)

// Shipping types
const (
	ShippingUrgent   = "URGENT"
	ShippingEconomic = "ECONOMIC"
)

// Carriers
const (
	CarrierCorreios = "CORREIOS"
	CarrierFedex    = "FEDEX"
)

// OrderProduct is a line item with the price captured at order-creation time.
// Later catalog price changes never touch it.
type OrderProduct struct {
	Code  string  `dynamodbav:"code" json:"code"`
	Price float64 `dynamodbav:"price" json:"price"`
}

// Billing holds the payment method and the frozen total.
type Billing struct {
	Payment    string  `dynamodbav:"payment" json:"payment"`
	TotalPrice float64 `dynamodbav:"totalPrice" json:"totalPrice"`
}

// Shipping holds the shipping selection.
type Shipping struct {
	Type    string `dynamodbav:"type" json:"type"`
	Carrier string `dynamodbav:"carrier" json:"carrier"`
}

// Order represents the item stored in the orders DynamoDB table,
// keyed by (pk=customer email, sk=order id).
type Order struct {
	Email     string         `dynamodbav:"pk"`        // PK
	ID        string         `dynamodbav:"sk"`        // SK, generated uuid
	CreatedAt int64          `dynamodbav:"createdAt"` // unix milliseconds, assigned at write time
	Products  []OrderProduct `dynamodbav:"products"`
	Billing   Billing        `dynamodbav:"billing"`
	Shipping  Shipping       `dynamodbav:"shipping"`
}

// CreateOrderInput is the already-validated input for Service.Create.
type CreateOrderInput struct {
	Email        string
	ProductIDs   []string
	Payment      string
	ShippingType string
	Carrier      string
}
