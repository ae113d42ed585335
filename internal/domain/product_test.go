package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saveup/marketplace/internal/domain"
)

func makeProduct() domain.Product {
	now := time.Now().UTC()
	return domain.Product{
		ID:             "product-1",
		SupermarketID:  "market-1",
		Name:           "Greek yogurt 500g",
		Category:       "Dairy",
		OriginalPrice:  decimal.RequireFromString("12.90"),
		DiscountPrice:  decimal.RequireFromString("6.45"),
		Quantity:       8,
		ExpirationDate: now.Add(48 * time.Hour),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestProductValidate_Ok(t *testing.T) {
	product := makeProduct()
	if errs := product.Validate(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestProductValidate_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(p *domain.Product)
	}{
		{
			name: "no name",
			mut:  func(p *domain.Product) { p.Name = "" },
		},
		{
			name: "no category",
			mut:  func(p *domain.Product) { p.Category = "" },
		},
		{
			name: "negative price",
			mut:  func(p *domain.Product) { p.DiscountPrice = decimal.RequireFromString("-1") },
		},
		{
			name: "discount above original",
			mut:  func(p *domain.Product) { p.DiscountPrice = decimal.RequireFromString("20") },
		},
		{
			name: "negative quantity",
			mut:  func(p *domain.Product) { p.Quantity = -1 },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			product := makeProduct()
			tc.mut(&product)

			if len(product.Validate()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}
