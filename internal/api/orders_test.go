package api_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/saveup/marketplace/internal/domain"
)

func TestCreateOrder_SnapshotsPricesAndComputesTotal(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "prod-a", "Dairy", "10.00", 48*time.Hour)
	f.seedProduct(t, "prod-b", "Bakery", "5.00", 24*time.Hour)

	body := f.createOrderViaAPI(t, "", []map[string]interface{}{
		{"product_id": "prod-a", "qty": 2},
		{"product_id": "prod-b", "qty": 1},
	})

	require.Equal(t, string(domain.OrderStatusAwaitingPayment), body.Status)
	require.True(t, body.TotalAmount.Equal(decimal.RequireFromString("28.50")), body.TotalAmount.String())
	require.Len(t, body.Items, 2)
	require.True(t, body.Items[0].PriceAtTime.Equal(decimal.RequireFromString("10.00")))
	require.Equal(t, int64(0), body.Version)

	// Заказ действительно сохранён.
	stored, err := f.orders.Get(body.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusAwaitingPayment, stored.Status)
}

func TestCreateOrder_WithPaymentReferenceStartsPending(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "prod-a", "Dairy", "10.00", 48*time.Hour)

	body := f.createOrderViaAPI(t, "pix-123", []map[string]interface{}{
		{"product_id": "prod-a", "qty": 1},
	})

	require.Equal(t, string(domain.OrderStatusPending), body.Status)
	require.Equal(t, "pix-123", body.PaymentReference)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"customer_name":  "Maria Silva",
		"customer_email": "maria@example.com",
		"items":          []map[string]interface{}{{"product_id": "missing", "qty": 1}},
	}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_InvalidPayload(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "prod-a", "Dairy", "10.00", 48*time.Hour)

	rec := f.do(t, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"customer_email": "maria@example.com",
		"items":          []map[string]interface{}{{"product_id": "prod-a", "qty": 0}},
	}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterPayment_MovesAwaitingToPending(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "prod-a", "Dairy", "10.00", 48*time.Hour)
	created := f.createOrderViaAPI(t, "", []map[string]interface{}{
		{"product_id": "prod-a", "qty": 1},
	})

	rec := f.do(t, http.MethodPost, "/api/v1/orders/"+created.ID+"/payment", map[string]interface{}{
		"payment_reference": "pix-777",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body orderBody
	decodeJSON(t, rec, &body)
	require.Equal(t, string(domain.OrderStatusPending), body.Status)
	require.Equal(t, "pix-777", body.PaymentReference)
	require.Equal(t, int64(1), body.Version)
}

func TestRegisterPayment_SameReferenceIsIdempotent(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "prod-a", "Dairy", "10.00", 48*time.Hour)
	created := f.createOrderViaAPI(t, "pix-777", []map[string]interface{}{
		{"product_id": "prod-a", "qty": 1},
	})

	rec := f.do(t, http.MethodPost, "/api/v1/orders/"+created.ID+"/payment", map[string]interface{}{
		"payment_reference": "pix-777",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body orderBody
	decodeJSON(t, rec, &body)
	// Повторная фиксация той же ссылки не меняет заказ.
	require.Equal(t, int64(0), body.Version)
}

func TestRegisterPayment_DifferentReferenceConflicts(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "prod-a", "Dairy", "10.00", 48*time.Hour)
	created := f.createOrderViaAPI(t, "pix-777", []map[string]interface{}{
		{"product_id": "prod-a", "qty": 1},
	})

	rec := f.do(t, http.MethodPost, "/api/v1/orders/"+created.ID+"/payment", map[string]interface{}{
		"payment_reference": "pix-999",
	}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterPayment_ValidationErrors(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/orders/missing/payment", map[string]interface{}{
		"payment_reference": "pix-1",
	}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/orders/missing/payment", map[string]interface{}{
		"payment_reference": "  ",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

type confirmBody struct {
	OrderID          string          `json:"order_id"`
	Status           string          `json:"status"`
	ConfirmedItemIDs []string        `json:"confirmed_item_ids"`
	DeniedItemIDs    []string        `json:"denied_item_ids"`
	ConfirmedTotal   decimal.Decimal `json:"confirmed_total"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	RefundRequired   bool            `json:"refund_required"`
	EcoPoints        *struct {
		TotalPoints int `json:"total_points"`
	} `json:"eco_points"`
}

func TestConfirmOrder_PartialWithRefundAndEcoPoints(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "prod-a", "Dairy", "10.00", 20*time.Hour)
	f.seedProduct(t, "prod-b", "Bakery", "5.00", 20*time.Hour)
	created := f.createOrderViaAPI(t, "pix-123", []map[string]interface{}{
		{"product_id": "prod-a", "qty": 2},
		{"product_id": "prod-b", "qty": 1},
	})

	decisions := map[string]interface{}{
		"decisions": []map[string]interface{}{
			{"order_item_id": created.Items[0].ID, "confirmed": true},
			{"order_item_id": created.Items[1].ID, "confirmed": false},
		},
	}

	rec := f.do(t, http.MethodPost, "/api/v1/orders/"+created.ID+"/confirm", decisions, map[string]string{
		"Idempotency-Key": "confirm-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body confirmBody
	decodeJSON(t, rec, &body)
	require.Equal(t, string(domain.OrderStatusPartiallyConfirmed), body.Status)
	require.True(t, body.ConfirmedTotal.Equal(decimal.RequireFromString("20.00")))
	require.True(t, body.RefundAmount.Equal(decimal.RequireFromString("5.00")))
	require.True(t, body.RefundRequired)
	require.Len(t, f.gateway.Instructions, 1)

	// Dairy с истечением завтра: 80 * 1.2 = 96 баллов за единицу, позиций две.
	require.NotNil(t, body.EcoPoints)
	require.Equal(t, 192, body.EcoPoints.TotalPoints)
}

func TestConfirmOrder_ReplaySameKeyReturnsCachedResponse(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "prod-a", "Dairy", "10.00", 48*time.Hour)
	created := f.createOrderViaAPI(t, "pix-123", []map[string]interface{}{
		{"product_id": "prod-a", "qty": 1},
	})

	decisions := map[string]interface{}{
		"decisions": []map[string]interface{}{
			{"order_item_id": created.Items[0].ID, "confirmed": true},
		},
	}
	headers := map[string]string{"Idempotency-Key": "confirm-replay"}

	first := f.do(t, http.MethodPost, "/api/v1/orders/"+created.ID+"/confirm", decisions, headers)
	require.Equal(t, http.StatusOK, first.Code)

	second := f.do(t, http.MethodPost, "/api/v1/orders/"+created.ID+"/confirm", decisions, headers)
	require.Equal(t, http.StatusOK, second.Code)
	require.JSONEq(t, first.Body.String(), second.Body.String())

	// Движок отработал только один раз: повтор пришёл из кеша, а не упал на
	// валидации терминального статуса.
	var body confirmBody
	decodeJSON(t, second, &body)
	require.Equal(t, string(domain.OrderStatusConfirmed), body.Status)
}

func TestConfirmOrder_SameKeyDifferentBodyConflicts(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "prod-a", "Dairy", "10.00", 48*time.Hour)
	created := f.createOrderViaAPI(t, "pix-123", []map[string]interface{}{
		{"product_id": "prod-a", "qty": 1},
	})

	headers := map[string]string{"Idempotency-Key": "confirm-mismatch"}
	confirm := map[string]interface{}{
		"decisions": []map[string]interface{}{
			{"order_item_id": created.Items[0].ID, "confirmed": true},
		},
	}
	deny := map[string]interface{}{
		"decisions": []map[string]interface{}{
			{"order_item_id": created.Items[0].ID, "confirmed": false},
		},
	}

	first := f.do(t, http.MethodPost, "/api/v1/orders/"+created.ID+"/confirm", confirm, headers)
	require.Equal(t, http.StatusOK, first.Code)

	second := f.do(t, http.MethodPost, "/api/v1/orders/"+created.ID+"/confirm", deny, headers)
	require.Equal(t, http.StatusConflict, second.Code)
}

func TestConfirmOrder_MissingIdempotencyKey(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/orders/any/confirm", map[string]interface{}{
		"decisions": []map[string]interface{}{},
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmOrder_ErrorsAreCachedPerKey(t *testing.T) {
	f := newAPIFixture(t)

	headers := map[string]string{"Idempotency-Key": "confirm-missing-order"}
	body := map[string]interface{}{
		"decisions": []map[string]interface{}{{"order_item_id": "x", "confirmed": true}},
	}

	first := f.do(t, http.MethodPost, "/api/v1/orders/ghost/confirm", body, headers)
	require.Equal(t, http.StatusNotFound, first.Code)

	second := f.do(t, http.MethodPost, "/api/v1/orders/ghost/confirm", body, headers)
	require.Equal(t, http.StatusNotFound, second.Code)
	require.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestGetOrder_IncludesTimeline(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "prod-a", "Dairy", "10.00", 48*time.Hour)
	created := f.createOrderViaAPI(t, "", []map[string]interface{}{
		{"product_id": "prod-a", "qty": 1},
	})

	rec := f.do(t, http.MethodGet, "/api/v1/orders/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Order    orderBody `json:"order"`
		Timeline []struct {
			Type string `json:"type"`
		} `json:"timeline"`
	}
	decodeJSON(t, rec, &body)
	require.Equal(t, created.ID, body.Order.ID)
	require.NotEmpty(t, body.Timeline)
	require.Equal(t, "order.created", body.Timeline[0].Type)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/orders/ghost", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrders(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "prod-a", "Dairy", "10.00", 48*time.Hour)
	f.createOrderViaAPI(t, "", []map[string]interface{}{{"product_id": "prod-a", "qty": 1}})
	f.createOrderViaAPI(t, "", []map[string]interface{}{{"product_id": "prod-a", "qty": 2}})

	rec := f.do(t, http.MethodGet, "/api/v1/orders?customer_email=maria@example.com", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Orders []json.RawMessage `json:"orders"`
	}
	decodeJSON(t, rec, &body)
	require.Len(t, body.Orders, 2)
}

func TestListOrders_RequiresEmail(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/orders", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
