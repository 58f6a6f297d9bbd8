package products

// Product is the catalog item stored in the products DynamoDB table. The
// catalog subsystem owns writes; this service only reads.
type Product struct {
	ID       string  `dynamodbav:"id" json:"id"` // PK
	Name     string  `dynamodbav:"productName" json:"productName"`
	Code     string  `dynamodbav:"code" json:"code"`
	Price    float64 `dynamodbav:"price" json:"price"`
	Model    string  `dynamodbav:"model" json:"model"`
	ImageURL string  `dynamodbav:"productUrl,omitempty" json:"productUrl,omitempty"`
}
