// Package ledger adjusts product stock levels. Quantities never drop below
// zero; callers that must reject oversells check availability first.
package ledger

import "warungpos/backend/internal/domain"

// ReduceStock subtracts amount from the product's quantity, clamping at 0.
func ReduceStock(list []domain.Product, productID string, amount int) []domain.Product {
	return adjust(list, productID, func(qty int) int {
		return max(qty-amount, 0)
	}, amount)
}

func IncreaseStock(list []domain.Product, productID string, amount int) []domain.Product {
	return adjust(list, productID, func(qty int) int {
		return qty + amount
	}, amount)
}

func adjust(list []domain.Product, productID string, apply func(int) int, amount int) []domain.Product {
	out := make([]domain.Product, len(list))
	copy(out, list)
	if amount <= 0 {
		return out
	}
	for i := range out {
		if out[i].ID == productID {
			out[i].Quantity = apply(out[i].Quantity)
			return out
		}
	}
	return out
}
