package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа в маркетплейсе.
type OrderStatus string

const (
	// OrderStatusAwaitingPayment — заказ создан на чекауте, оплата ещё не зафиксирована.
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	// OrderStatusPending — оплата зафиксирована (PIX/карта), ждём решения персонала.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — персонал подтвердил все позиции.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusPartiallyConfirmed — подтверждена часть позиций, по остальным оформлен возврат.
	OrderStatusPartiallyConfirmed OrderStatus = "partially_confirmed"
	// OrderStatusCancelled — все позиции отклонены, заказ возвращён целиком.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Confirmable сообщает, принимает ли заказ в этом статусе решения персонала.
// Терминальные статусы после confirm сюда не входят: повторное подтверждение
// должно завершаться ошибкой валидации, а не пересчётом.
func (s OrderStatus) Confirmable() bool {
	return s == OrderStatusAwaitingPayment || s == OrderStatusPending
}

// ItemConfirmation — трёхзначный статус позиции после решения персонала.
type ItemConfirmation string

const (
	// ItemConfirmationUnset — решение ещё не принималось.
	ItemConfirmationUnset ItemConfirmation = ""
	// ItemConfirmationConfirmed — позиция есть на полке и уходит покупателю.
	ItemConfirmationConfirmed ItemConfirmation = "confirmed"
	// ItemConfirmationDenied — позиции нет, её стоимость подлежит возврату.
	ItemConfirmationDenied ItemConfirmation = "denied"
)

// OrderItem представляет одну позицию заказа.
// PriceAtTime — снимок цены со скидкой на момент покупки; после создания
// позиции он не меняется, даже если цена товара уже другая.
type OrderItem struct {
	ID                 string
	ProductID          string
	Name               string
	Qty                int32
	PriceAtTime        decimal.Decimal
	ConfirmationStatus ItemConfirmation
	CreatedAt          time.Time
}

// Subtotal возвращает стоимость позиции: qty * price_at_time.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtTime.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// Order агрегирует состояние заказа и его позиции.
// Items хранятся в порядке поступления. PaymentReference — внешний
// идентификатор захваченного платежа (например, PIX payment id); пустая
// строка означает, что деньги ещё не списаны.
type Order struct {
	ID               string
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	Status           OrderStatus
	TotalAmount      decimal.Decimal
	DeliveryFee      decimal.Decimal
	PaymentReference string
	Items            []OrderItem
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ItemsSubtotal возвращает сумму всех позиций без доставки.
func (o *Order) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Subtotal())
	}
	return sum
}

// ItemByID ищет позицию заказа по идентификатору.
func (o *Order) ItemByID(itemID string) (OrderItem, bool) {
	for _, item := range o.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return OrderItem{}, false
}

// Paid сообщает, есть ли у заказа захваченный платёж, к которому можно
// адресовать возврат.
func (o *Order) Paid() bool {
	return o.PaymentReference != ""
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerName == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.DeliveryFee.IsNegative() {
		errs = append(errs, ErrDeliveryFeeNegative)
	}

	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceAtTime.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	// Сверяем сумму заказа с суммой позиций и доставкой.
	if !o.ItemsSubtotal().Add(o.DeliveryFee).Equal(o.TotalAmount) {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
