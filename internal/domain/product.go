package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product — товар супермаркета с уценкой по сроку годности.
// Для движка подтверждения товары read-only: цена позиции заказа снимается
// с DiscountPrice в момент чекаута и дальше живёт своей жизнью.
type Product struct {
	ID             string
	SupermarketID  string
	Name           string
	Category       string
	OriginalPrice  decimal.Decimal
	DiscountPrice  decimal.Decimal
	Quantity       int32
	ExpirationDate time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate проверяет инварианты товара: discount <= original, остаток >= 0.
func (p *Product) Validate() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.Category == "" {
		errs = append(errs, ErrProductCategoryRequired)
	}
	if p.OriginalPrice.IsNegative() || p.DiscountPrice.IsNegative() {
		errs = append(errs, ErrProductPriceInvalid)
	}
	if p.DiscountPrice.GreaterThan(p.OriginalPrice) {
		errs = append(errs, ErrProductDiscountInvalid)
	}
	if p.Quantity < 0 {
		errs = append(errs, ErrProductQtyInvalid)
	}

	return errs
}
