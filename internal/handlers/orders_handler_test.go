package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ecomsvc/order-pipeline/internal/events"
	"github.com/ecomsvc/order-pipeline/internal/products"
)

// mockDynamo backs both the products and orders tables, keyed per table by
// "id" or by "pk|sk" depending on the item's attributes.
type mockDynamo struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{tables: map[string]map[string]map[string]types.AttributeValue{}}
}

func (m *mockDynamo) table(name string) map[string]map[string]types.AttributeValue {
	if _, ok := m.tables[name]; !ok {
		m.tables[name] = map[string]map[string]types.AttributeValue{}
	}
	return m.tables[name]
}

func attrKey(attrs map[string]types.AttributeValue) (string, error) {
	if pk, ok := attrs["pk"].(*types.AttributeValueMemberS); ok {
		sk, ok := attrs["sk"].(*types.AttributeValueMemberS)
		if !ok {
			return "", errors.New("missing sk")
		}
		return pk.Value + "|" + sk.Value, nil
	}
	if id, ok := attrs["id"].(*types.AttributeValueMemberS); ok {
		return id.Value, nil
	}
	return "", errors.New("no key attribute")
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := attrKey(params.Item)
	if err != nil {
		return nil, err
	}
	m.table(*params.TableName)[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := attrKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table(*params.TableName)[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) BatchGetItem(ctx context.Context, params *dyn.BatchGetItemInput, optFns ...func(*dyn.Options)) (*dyn.BatchGetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &dyn.BatchGetItemOutput{Responses: map[string][]map[string]types.AttributeValue{}}
	for tableName, kaa := range params.RequestItems {
		for _, key := range kaa.Keys {
			k, err := attrKey(key)
			if err != nil {
				return nil, err
			}
			if item, ok := m.table(tableName)[k]; ok {
				out.Responses[tableName] = append(out.Responses[tableName], item)
			}
		}
	}
	return out, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := params.ExpressionAttributeValues[":email"].(*types.AttributeValueMemberS).Value
	out := &dyn.QueryOutput{}
	for k, item := range m.table(*params.TableName) {
		if strings.HasPrefix(k, email+"|") {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &dyn.ScanOutput{}
	for _, item := range m.table(*params.TableName) {
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := attrKey(params.Key)
	if err != nil {
		return nil, err
	}
	tbl := m.table(*params.TableName)
	item, exists := tbl[k]
	if params.ConditionExpression != nil && !exists {
		return nil, &types.ConditionalCheckFailedException{}
	}
	delete(tbl, k)
	return &dyn.DeleteItemOutput{Attributes: item}, nil
}

type mockSNS struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.published = append(m.published, *params.Message)
	id := "msg-1"
	return &sns.PublishOutput{MessageId: &id}, nil
}

func setupTestAPI(t *testing.T) (*gin.Engine, *mockDynamo, *mockSNS) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dynamo := newMockDynamo()
	topic := &mockSNS{}
	r := gin.New()
	RegisterOrdersRoutes(r, HandlerConfig{
		DynamoDBClient: dynamo,
		SNSClient:      topic,
		OrdersTable:    "orders",
		ProductsTable:  "products",
		EventsTopicARN: "arn:topic",
		Logger:         zap.NewNop(),
	})

	for _, p := range []products.Product{
		{ID: "p1", Code: "COD1", Name: "Product One", Price: 10},
		{ID: "p2", Code: "COD2", Name: "Product Two", Price: 5},
	} {
		item, err := attributevalue.MarshalMap(p)
		require.NoError(t, err)
		tableName := "products"
		_, err = dynamo.PutItem(context.Background(), &dyn.PutItemInput{TableName: &tableName, Item: item})
		require.NoError(t, err)
	}

	return r, dynamo, topic
}

func doJSON(t *testing.T, r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", "req-test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type orderBody struct {
	Email     string `json:"email"`
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
	Products  []struct {
		Code  string  `json:"code"`
		Price float64 `json:"price"`
	} `json:"products"`
	Billing struct {
		Payment    string  `json:"payment"`
		TotalPrice float64 `json:"totalPrice"`
	} `json:"billing"`
	Shipping struct {
		Type    string `json:"type"`
		Carrier string `json:"carrier"`
	} `json:"shipping"`
}

func createValidOrder(t *testing.T, r *gin.Engine) orderBody {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/orders",
		`{"email":"a@b.com","productIds":["p1","p2"],"payment":"CASH","shipping":{"type":"ECONOMIC","carrier":"CORREIOS"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got orderBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestPostOrders_Created(t *testing.T) {
	r, _, topic := setupTestAPI(t)

	got := createValidOrder(t, r)
	assert.Equal(t, "a@b.com", got.Email)
	assert.NotEmpty(t, got.ID)
	assert.NotZero(t, got.CreatedAt)
	assert.Len(t, got.Products, 2)
	assert.Equal(t, 15.0, got.Billing.TotalPrice)
	assert.Equal(t, "ECONOMIC", got.Shipping.Type)
	assert.Equal(t, "CORREIOS", got.Shipping.Carrier)

	// exactly one CREATED envelope with matching subject
	require.Len(t, topic.published, 1)
	var envelope events.Envelope
	require.NoError(t, json.Unmarshal([]byte(topic.published[0]), &envelope))
	assert.Equal(t, events.OrderCreated, envelope.EventType)
	var event events.OrderEvent
	require.NoError(t, json.Unmarshal([]byte(envelope.Data), &event))
	assert.Equal(t, got.Email, event.Email)
	assert.Equal(t, got.ID, event.OrderID)
	assert.Equal(t, "req-test", event.RequestID)
}

func TestPostOrders_UnresolvedProduct(t *testing.T) {
	r, dynamo, topic := setupTestAPI(t)

	w := doJSON(t, r, http.MethodPost, "/orders",
		`{"email":"a@b.com","productIds":["p1","missing"],"payment":"CASH","shipping":{"type":"ECONOMIC","carrier":"CORREIOS"}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "some product was not found")

	assert.Empty(t, dynamo.table("orders"), "no order may be written")
	assert.Empty(t, topic.published, "no event may be published")
}

func TestPostOrders_InvalidBody(t *testing.T) {
	r, _, topic := setupTestAPI(t)

	w := doJSON(t, r, http.MethodPost, "/orders",
		`{"email":"a@b.com","productIds":[],"payment":"CASH","shipping":{"type":"ECONOMIC","carrier":"CORREIOS"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, topic.published)
}

func TestGetOrders_Flows(t *testing.T) {
	r, _, _ := setupTestAPI(t)
	created := createValidOrder(t, r)

	// single order
	w := doJSON(t, r, http.MethodGet, "/orders?email=a@b.com&orderId="+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got orderBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)

	// by customer
	w = doJSON(t, r, http.MethodGet, "/orders?email=a@b.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []orderBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	// unknown customer yields an empty list, not an error
	w = doJSON(t, r, http.MethodGet, "/orders?email=nobody@b.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	// all orders
	w = doJSON(t, r, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, w.Code)
	list = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	// miss
	w = doJSON(t, r, http.MethodGet, "/orders?email=a@b.com&orderId=unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteOrders_Flows(t *testing.T) {
	r, _, topic := setupTestAPI(t)
	created := createValidOrder(t, r)
	topic.published = nil

	w := doJSON(t, r, http.MethodDelete, "/orders?email=a@b.com&orderId="+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var deleted orderBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deleted))
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, 15.0, deleted.Billing.TotalPrice)

	require.Len(t, topic.published, 1)
	var envelope events.Envelope
	require.NoError(t, json.Unmarshal([]byte(topic.published[0]), &envelope))
	assert.Equal(t, events.OrderDeleted, envelope.EventType)

	// gone now
	w = doJSON(t, r, http.MethodGet, "/orders?email=a@b.com&orderId="+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// deleting again is a 404, not a silent no-op
	w = doJSON(t, r, http.MethodDelete, "/orders?email=a@b.com&orderId="+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// missing query params
	w = doJSON(t, r, http.MethodDelete, "/orders?email=a@b.com", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
