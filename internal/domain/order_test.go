package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saveup/marketplace/internal/domain"
)

// helper для создания базового заказа с двумя позициями.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:            "order-1",
		CustomerName:  "Maria Silva",
		CustomerEmail: "maria@example.com",
		Status:        domain.OrderStatusPending,
		TotalAmount:   decimal.RequireFromString("25.00"),
		DeliveryFee:   decimal.Zero,
		Items: []domain.OrderItem{
			{
				ID:          "item-1",
				ProductID:   "product-1",
				Name:        "Whole milk 1L",
				Qty:         2,
				PriceAtTime: decimal.RequireFromString("10.00"),
				CreatedAt:   now,
			},
			{
				ID:          "item-2",
				ProductID:   "product-2",
				Name:        "Sourdough bread",
				Qty:         1,
				PriceAtTime: decimal.RequireFromString("5.00"),
				CreatedAt:   now,
			},
		},
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_DeliveryFeeInTotal(t *testing.T) {
	order := makeOrder()
	order.DeliveryFee = decimal.RequireFromString("7.50")
	order.TotalAmount = decimal.RequireFromString("32.50")
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{
			name: "no customer name",
			mut: func(o *domain.Order) {
				o.CustomerName = ""
			},
		},
		{
			name: "no items",
			mut: func(o *domain.Order) {
				o.Items = nil
			},
		},
		{
			name: "qty invalid",
			mut: func(o *domain.Order) {
				o.Items[0].Qty = 0
			},
		},
		{
			name: "price invalid",
			mut: func(o *domain.Order) {
				o.Items[0].PriceAtTime = decimal.RequireFromString("-5")
			},
		},
		{
			name: "negative delivery fee",
			mut: func(o *domain.Order) {
				o.DeliveryFee = decimal.RequireFromString("-1")
			},
		},
		{
			name: "amount mismatch",
			mut: func(o *domain.Order) {
				o.TotalAmount = decimal.RequireFromString("999")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)

			if len(order.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestOrderStatusConfirmable(t *testing.T) {
	cases := []struct {
		status domain.OrderStatus
		want   bool
	}{
		{domain.OrderStatusAwaitingPayment, true},
		{domain.OrderStatusPending, true},
		{domain.OrderStatusConfirmed, false},
		{domain.OrderStatusPartiallyConfirmed, false},
		{domain.OrderStatusCancelled, false},
	}

	for _, tc := range cases {
		if got := tc.status.Confirmable(); got != tc.want {
			t.Fatalf("status %q confirmable=%v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestOrderItemsSubtotal(t *testing.T) {
	order := makeOrder()
	want := decimal.RequireFromString("25.00")
	if got := order.ItemsSubtotal(); !got.Equal(want) {
		t.Fatalf("items subtotal = %s, want %s", got, want)
	}
}

func TestOrderItemByID(t *testing.T) {
	order := makeOrder()

	item, ok := order.ItemByID("item-2")
	if !ok {
		t.Fatal("expected item-2 to be found")
	}
	if item.Name != "Sourdough bread" {
		t.Fatalf("unexpected item: %+v", item)
	}

	if _, ok := order.ItemByID("missing"); ok {
		t.Fatal("expected missing item lookup to fail")
	}
}

func TestOrderPaid(t *testing.T) {
	order := makeOrder()
	if order.Paid() {
		t.Fatal("order without payment reference must not be paid")
	}

	order.PaymentReference = "pix123"
	if !order.Paid() {
		t.Fatal("order with payment reference must be paid")
	}
}
