package catalog

import (
	"strings"

	"warungpos/backend/internal/domain"
)

// ValidateProduct checks a product form before submission. It never fails;
// problems are reported per field.
func ValidateProduct(input domain.ProductInput) domain.ValidationResult {
	result := domain.NewValidationResult()

	if strings.TrimSpace(input.Name) == "" {
		result.Add("name", "Product name is required")
	}
	if strings.TrimSpace(input.Category) == "" {
		result.Add("category", "Category is required")
	}

	checkAmount(&result, "cost_price", "Cost price", input.CostPrice)
	checkAmount(&result, "selling_price", "Selling price", input.SellingPrice)
	checkAmount(&result, "quantity", "Quantity", input.Quantity)
	if _, flagged := result.Errors["quantity"]; !flagged && input.Quantity.TooLarge() {
		result.Add("quantity", "Quantity is too large")
	}

	if raw := strings.TrimSpace(input.ExpirationDate); raw != "" {
		if _, err := domain.ParseDate(raw); err != nil {
			result.Add("expirationDate", "Expiration date must be a valid date")
		}
	}

	return result
}

func checkAmount(result *domain.ValidationResult, field string, label string, value domain.NumericInput) {
	if !value.Present() {
		result.Add(field, label+" is required")
		return
	}
	parsed, ok := value.Decimal()
	if !ok {
		result.Add(field, label+" must be a number")
		return
	}
	if isNegative(parsed) {
		result.Add(field, label+" cannot be negative")
	}
}

// ParseProductInput converts form text into a typed draft. Missing or
// invalid numbers become 0 and quantity is truncated to a whole number.
func ParseProductInput(input domain.ProductInput) domain.ProductDraft {
	cost, _ := input.CostPrice.Decimal()
	sell, _ := input.SellingPrice.Decimal()

	draft := domain.ProductDraft{
		Name:         strings.TrimSpace(input.Name),
		Category:     strings.TrimSpace(input.Category),
		Barcode:      strings.TrimSpace(input.Barcode),
		CostPrice:    cost,
		SellingPrice: sell,
		Quantity:     input.Quantity.Int(),
	}
	if raw := strings.TrimSpace(input.ExpirationDate); raw != "" {
		if date, err := domain.ParseDate(raw); err == nil {
			draft.ExpirationDate = &date
		}
	}
	return draft
}
