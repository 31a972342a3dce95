// Package sales computes sale amounts and summaries.
package sales

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"warungpos/backend/internal/domain"
)

type Totals struct {
	Total  decimal.Decimal `json:"total"`
	Profit decimal.Decimal `json:"profit"`
}

// CalculateSaleTotals prices quantity units of product. A missing product or
// a non-positive quantity yields zero totals.
func CalculateSaleTotals(product *domain.Product, quantity int) Totals {
	if product == nil || quantity <= 0 {
		return Totals{Total: decimal.Zero, Profit: decimal.Zero}
	}
	qty := decimal.NewFromInt(int64(quantity))
	return Totals{
		Total:  product.SellingPrice.Mul(qty),
		Profit: product.SellingPrice.Sub(product.CostPrice).Mul(qty),
	}
}

// ParseQuantity truncates raw form input to a whole number; unparseable input
// yields 0.
func ParseQuantity(raw string) int {
	return domain.NumericInput(strings.TrimSpace(raw)).Int()
}

func ValidateSale(product *domain.Product, quantity int) domain.ValidationResult {
	result := domain.NewValidationResult()
	if product == nil {
		result.Add("product", "Please select a product")
		return result
	}
	if quantity <= 0 {
		result.Add("quantity", "Quantity must be greater than 0")
		return result
	}
	if quantity > product.Quantity {
		result.Add("quantity", fmt.Sprintf("Only %d units of %s available", product.Quantity, product.Name))
	}
	return result
}
