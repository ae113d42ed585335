package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Ошибка отсутствующего имени покупателя.
	ErrCustomerNameRequired = errors.New("customer_name is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если зафиксированная цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price_at_time must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций с учётом доставки.
	ErrAmountMismatch = errors.New("order total does not match items sum plus delivery fee")
	// Ошибка отрицательной стоимости доставки.
	ErrDeliveryFeeNegative = errors.New("delivery fee must be non-negative")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists возвращается при попытке создать заказ с занятым ID.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOrderNotConfirmable — заказ уже в терминальном для подтверждения статусе.
	ErrOrderNotConfirmable = errors.New("order is not in a confirmable status")
	// ErrPaymentAlreadyCaptured — платёжная ссылка уже была зафиксирована.
	ErrPaymentAlreadyCaptured = errors.New("payment reference already captured")
	// ErrPaymentReferenceRequired — пустая платёжная ссылка недопустима.
	ErrPaymentReferenceRequired = errors.New("payment reference is required")
	// ErrDecisionUnknownItem — решение ссылается на позицию, которой нет в заказе.
	ErrDecisionUnknownItem = errors.New("decision references unknown order item")
	// ErrDecisionDuplicate — две записи для одной позиции в одном запросе.
	ErrDecisionDuplicate = errors.New("duplicate decision for order item")
	// ErrDecisionIncomplete — решения покрывают не все позиции заказа.
	ErrDecisionIncomplete = errors.New("decisions must cover every order item")

	// Ошибка отсутствующего имени товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отсутствующей категории товара.
	ErrProductCategoryRequired = errors.New("product category is required")
	// Ошибка отрицательной цены товара.
	ErrProductPriceInvalid = errors.New("product prices must be non-negative")
	// Ошибка, если цена со скидкой превышает исходную цену.
	ErrProductDiscountInvalid = errors.New("discount price must not exceed original price")
	// Ошибка отрицательного остатка товара.
	ErrProductQtyInvalid = errors.New("product quantity must be non-negative")
	// ErrProductNotFound возвращается, если товар не найден в репозитории.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductAlreadyExists возвращается при попытке создать товар с занятым ID.
	ErrProductAlreadyExists = errors.New("product already exists")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// ErrIdempotencyKeyRequired — пустой idempotency-key недопустим.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой hash запроса недопустим.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyKeyNotFound — ключ не найден.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyHashMismatch — тот же ключ пришёл с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different request")
)

// ValidationError оборачивает нарушение предусловий подтверждения заказа.
// Операция, завершившаяся такой ошибкой, не имеет побочных эффектов и может
// быть повторена после исправления входных данных.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("confirmation validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError создаёт ValidationError поверх нарушенного инварианта.
func NewValidationError(cause error) error {
	return &ValidationError{Err: cause}
}

// RefundFailedError сообщает, что платёжный шлюз не принял инструкцию возврата.
// Подтверждение при этом полностью откатывается: ни статусы позиций, ни статус
// заказа не сохраняются.
type RefundFailedError struct {
	PaymentReference string
	Amount           decimal.Decimal
	Err              error
}

func (e *RefundFailedError) Error() string {
	return fmt.Sprintf("refund of %s for payment %s failed: %v", e.Amount, e.PaymentReference, e.Err)
}

func (e *RefundFailedError) Unwrap() error { return e.Err }

// IsValidation проверяет, является ли ошибка ошибкой валидации подтверждения.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRefundFailed проверяет, является ли ошибка отказом платёжного шлюза.
func IsRefundFailed(err error) bool {
	var re *RefundFailedError
	return errors.As(err, &re)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsIdempotencyConflict проверяет, связана ли ошибка с повторным использованием
// idempotency-key.
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyKeyAlreadyExists) || errors.Is(err, ErrIdempotencyHashMismatch)
}
