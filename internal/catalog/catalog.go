// Package catalog holds the pure product-list operations. Every function
// returns a new slice and leaves its input untouched.
package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"warungpos/backend/internal/domain"
)

func AddProduct(list []domain.Product, draft domain.ProductDraft, id string, now time.Time) []domain.Product {
	product := domain.Product{
		ID:           id,
		Name:         strings.TrimSpace(draft.Name),
		Category:     strings.TrimSpace(draft.Category),
		Barcode:      strings.TrimSpace(draft.Barcode),
		CostPrice:    draft.CostPrice,
		SellingPrice: draft.SellingPrice,
		Quantity:     max(draft.Quantity, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if draft.ExpirationDate != nil && !draft.ExpirationDate.IsZero() {
		exp := *draft.ExpirationDate
		product.ExpirationDate = &exp
	}

	out := make([]domain.Product, 0, len(list)+1)
	out = append(out, list...)
	return append(out, product)
}

// UpdateProduct merges the non-nil patch fields into the product with the
// given id. An unknown id returns an unchanged copy.
func UpdateProduct(list []domain.Product, id string, patch domain.ProductPatch, now time.Time) []domain.Product {
	out := make([]domain.Product, len(list))
	copy(out, list)

	idx := indexOf(out, id)
	if idx < 0 {
		return out
	}

	p := out[idx].Clone()
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Category != nil {
		p.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Barcode != nil {
		p.Barcode = strings.TrimSpace(*patch.Barcode)
	}
	if patch.CostPrice != nil {
		p.CostPrice = *patch.CostPrice
	}
	if patch.SellingPrice != nil {
		p.SellingPrice = *patch.SellingPrice
	}
	if patch.Quantity != nil {
		p.Quantity = max(*patch.Quantity, 0)
	}
	if patch.ExpirationDate != nil {
		if patch.ExpirationDate.IsZero() {
			p.ExpirationDate = nil
		} else {
			exp := *patch.ExpirationDate
			p.ExpirationDate = &exp
		}
	}
	p.UpdatedAt = now
	out[idx] = p
	return out
}

func DeleteProduct(list []domain.Product, id string) []domain.Product {
	out := make([]domain.Product, 0, len(list))
	for _, p := range list {
		if p.ID == id {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SearchProducts matches the query case-insensitively against name and
// category. A blank query returns the whole list.
func SearchProducts(list []domain.Product, query string) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		out := make([]domain.Product, len(list))
		copy(out, list)
		return out
	}

	out := make([]domain.Product, 0)
	for _, p := range list {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Category), q) {
			out = append(out, p)
		}
	}
	return out
}

func FindByID(list []domain.Product, id string) (domain.Product, bool) {
	idx := indexOf(list, id)
	if idx < 0 {
		return domain.Product{}, false
	}
	return list[idx], true
}

func FindByBarcode(list []domain.Product, barcode string) (domain.Product, bool) {
	code := strings.TrimSpace(barcode)
	if code == "" {
		return domain.Product{}, false
	}
	for _, p := range list {
		if p.Barcode == code {
			return p, true
		}
	}
	return domain.Product{}, false
}

// LowStock returns products at or below the threshold, lowest stock first.
func LowStock(list []domain.Product, threshold int) []domain.Product {
	out := make([]domain.Product, 0)
	for _, p := range list {
		if p.Quantity <= threshold {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Quantity < out[j].Quantity
	})
	return out
}

// ExpiringWithin returns products whose expiration date falls on or before
// now plus the given number of days, soonest first.
func ExpiringWithin(list []domain.Product, now time.Time, days int) []domain.Product {
	cutoff := domain.NewDate(now).AddDate(0, 0, days)
	out := make([]domain.Product, 0)
	for _, p := range list {
		if p.ExpirationDate == nil || p.ExpirationDate.IsZero() {
			continue
		}
		if !p.ExpirationDate.After(cutoff) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpirationDate.Before(out[j].ExpirationDate.Time)
	})
	return out
}

func indexOf(list []domain.Product, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func isNegative(d decimal.Decimal) bool {
	return d.Sign() < 0
}
