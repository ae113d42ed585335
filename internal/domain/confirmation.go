package domain

import "github.com/shopspring/decimal"

// ConfirmationDecision — решение персонала по одной позиции заказа.
// Валидный запрос содержит ровно одно решение на каждую позицию.
type ConfirmationDecision struct {
	OrderItemID string
	Confirmed   bool
}

// ConfirmationResult — итог обработки решений персонала.
// ConfirmedTotal + RefundAmount всегда равны сумме позиций заказа без
// доставки: ни одна позиция не теряется и не считается дважды.
type ConfirmationResult struct {
	ConfirmedItemIDs []string
	DeniedItemIDs    []string
	ConfirmedTotal   decimal.Decimal
	RefundAmount     decimal.Decimal
	RefundRequired   bool
	Status           OrderStatus
}
