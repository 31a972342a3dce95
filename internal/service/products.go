package service

import (
	"context"
	"fmt"
	"strings"

	"warungpos/backend/internal/catalog"
	"warungpos/backend/internal/domain"
)

// AddProductInput validates raw form input before adding it. The validation
// result is returned alongside ErrInvalidInput so callers can show field
// errors.
func (e *Engine) AddProductInput(ctx context.Context, input domain.ProductInput) (domain.Product, domain.ValidationResult, error) {
	if err := Authorize(ctx); err != nil {
		return domain.Product{}, domain.ValidationResult{}, err
	}

	result := catalog.ValidateProduct(input)
	if !result.IsValid {
		return domain.Product{}, result, fmt.Errorf("%w: product form has errors", domain.ErrInvalidInput)
	}

	product, err := e.AddProduct(ctx, catalog.ParseProductInput(input))
	return product, result, err
}

func (e *Engine) AddProduct(ctx context.Context, draft domain.ProductDraft) (domain.Product, error) {
	if err := Authorize(ctx); err != nil {
		return domain.Product{}, err
	}

	draft.Name = strings.TrimSpace(draft.Name)
	draft.Category = strings.TrimSpace(draft.Category)
	draft.Barcode = strings.TrimSpace(draft.Barcode)
	if draft.Name == "" || draft.Category == "" {
		return domain.Product{}, fmt.Errorf("%w: name and category are required", domain.ErrInvalidInput)
	}
	if draft.CostPrice.IsNegative() || draft.SellingPrice.IsNegative() || draft.Quantity < 0 {
		return domain.Product{}, fmt.Errorf("%w: prices and quantity cannot be negative", domain.ErrInvalidInput)
	}

	var created domain.Product
	var before []domain.Product
	var threshold int
	now := e.now()
	err := e.mutate(ctx, func(next *domain.Snapshot) (bool, error) {
		if draft.Barcode != "" {
			if _, taken := catalog.FindByBarcode(next.Products, draft.Barcode); taken {
				return false, fmt.Errorf("%w: %s", domain.ErrDuplicateBarcode, draft.Barcode)
			}
		}
		before = next.Products
		id := e.newProductID()
		next.Products = catalog.AddProduct(next.Products, draft, id, now)
		created, _ = catalog.FindByID(next.Products, id)
		threshold = next.Settings.LowStockThreshold
		return true, nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	e.audit(ctx, "product_create", created.ID, fmt.Sprintf("name=%s,price=%s,stock=%d", created.Name, created.SellingPrice, created.Quantity))
	e.publishLowStock(ctx, before, []domain.Product{created}, threshold, now)
	return created, nil
}

func (e *Engine) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	if err := Authorize(ctx); err != nil {
		return domain.Product{}, err
	}
	if err := validatePatch(&patch); err != nil {
		return domain.Product{}, err
	}

	var updated domain.Product
	var before []domain.Product
	var threshold int
	now := e.now()
	err := e.mutate(ctx, func(next *domain.Snapshot) (bool, error) {
		if _, ok := catalog.FindByID(next.Products, id); !ok {
			return false, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
		}
		if patch.Barcode != nil && *patch.Barcode != "" {
			if other, taken := catalog.FindByBarcode(next.Products, *patch.Barcode); taken && other.ID != id {
				return false, fmt.Errorf("%w: %s", domain.ErrDuplicateBarcode, *patch.Barcode)
			}
		}
		before = next.Products
		next.Products = catalog.UpdateProduct(next.Products, id, patch, now)
		updated, _ = catalog.FindByID(next.Products, id)
		threshold = next.Settings.LowStockThreshold
		return true, nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	e.audit(ctx, "product_update", id, fmt.Sprintf("name=%s,price=%s,stock=%d", updated.Name, updated.SellingPrice, updated.Quantity))
	e.publishLowStock(ctx, before, []domain.Product{updated}, threshold, now)
	return updated, nil
}

func (e *Engine) DeleteProduct(ctx context.Context, id string) error {
	if err := Authorize(ctx); err != nil {
		return err
	}

	err := e.mutate(ctx, func(next *domain.Snapshot) (bool, error) {
		if _, ok := catalog.FindByID(next.Products, id); !ok {
			return false, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
		}
		next.Products = catalog.DeleteProduct(next.Products, id)
		return true, nil
	})
	if err != nil {
		return err
	}

	e.audit(ctx, "product_delete", id, "")
	return nil
}

func validatePatch(patch *domain.ProductPatch) error {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
		}
		patch.Name = &name
	}
	if patch.Category != nil {
		category := strings.TrimSpace(*patch.Category)
		if category == "" {
			return fmt.Errorf("%w: category cannot be empty", domain.ErrInvalidInput)
		}
		patch.Category = &category
	}
	if patch.Barcode != nil {
		barcode := strings.TrimSpace(*patch.Barcode)
		patch.Barcode = &barcode
	}
	if patch.CostPrice != nil && patch.CostPrice.IsNegative() {
		return fmt.Errorf("%w: cost price cannot be negative", domain.ErrInvalidInput)
	}
	if patch.SellingPrice != nil && patch.SellingPrice.IsNegative() {
		return fmt.Errorf("%w: selling price cannot be negative", domain.ErrInvalidInput)
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", domain.ErrInvalidInput)
	}
	return nil
}
