package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/saveup/marketplace/internal/api"
	"github.com/saveup/marketplace/internal/domain"
	"github.com/saveup/marketplace/internal/service/confirmation"
	"github.com/saveup/marketplace/internal/service/loyalty"
	"github.com/saveup/marketplace/internal/service/payment"
	"github.com/saveup/marketplace/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	router   *gin.Engine
	orders   domain.OrderRepository
	products domain.ProductRepository
	gateway  *payment.MockGateway
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	entry := logger.WithField("component", "api-test")

	orders := memory.NewOrderRepository()
	products := memory.NewProductRepository()
	outbox := memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()
	idem := memory.NewIdempotencyRepository()
	gateway := payment.NewMockGateway()

	engine := confirmation.NewEngineWithoutMetrics(orders, outbox, timeline, gateway, entry)
	awards := loyalty.NewService(products, outbox, entry)

	server := api.NewServer(orders, products, timeline, outbox, idem, engine, awards, entry)

	return &apiFixture{
		router:   server.Router(),
		orders:   orders,
		products: products,
		gateway:  gateway,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), target))
}

// seedProduct кладёт товар в каталог напрямую через репозиторий.
func (f *apiFixture) seedProduct(t *testing.T, id, category string, discount string, expiresIn time.Duration) domain.Product {
	t.Helper()

	now := time.Now().UTC()
	product := domain.Product{
		ID:             id,
		SupermarketID:  "market-1",
		Name:           "product " + id,
		Category:       category,
		OriginalPrice:  decimal.RequireFromString(discount).Mul(decimal.NewFromInt(2)),
		DiscountPrice:  decimal.RequireFromString(discount),
		Quantity:       10,
		ExpirationDate: now.Add(expiresIn),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, f.products.Create(product))
	return product
}

type orderItemBody struct {
	ID                 string          `json:"id"`
	ProductID          string          `json:"product_id"`
	Name               string          `json:"name"`
	Qty                int32           `json:"qty"`
	PriceAtTime        decimal.Decimal `json:"price_at_time"`
	ConfirmationStatus string          `json:"confirmation_status"`
}

type orderBody struct {
	ID               string          `json:"id"`
	CustomerName     string          `json:"customer_name"`
	CustomerEmail    string          `json:"customer_email"`
	Status           string          `json:"status"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	DeliveryFee      decimal.Decimal `json:"delivery_fee"`
	PaymentReference string          `json:"payment_reference"`
	Items            []orderItemBody `json:"items"`
	Version          int64           `json:"version"`
}

// createOrderViaAPI оформляет заказ через HTTP и возвращает разобранный ответ.
func (f *apiFixture) createOrderViaAPI(t *testing.T, paymentReference string, items []map[string]interface{}) orderBody {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"customer_name":     "Maria Silva",
		"customer_email":    "maria@example.com",
		"delivery_fee":      "3.50",
		"payment_reference": paymentReference,
		"items":             items,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body orderBody
	decodeJSON(t, rec, &body)
	return body
}
