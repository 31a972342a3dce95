package service

import (
	"context"
	"strings"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/events"
	"warungpos/backend/internal/ledger"
)

type VoidStatus string

const (
	VoidApplied        VoidStatus = "voided"
	VoidAlreadyVoided  VoidStatus = "already_voided"
	VoidNotFound       VoidStatus = "not_found"
	VoidReasonRequired VoidStatus = "reason_required"
)

// VoidResult reports what a void call did. Only VoidApplied changes state.
type VoidResult struct {
	Status VoidStatus
	Sale   *domain.Sale
}

func (r VoidResult) Applied() bool {
	return r.Status == VoidApplied
}

// VoidTransaction voids the sale with the given id and restores the stock of
// every item on it. A sale is voided at most once.
func (e *Engine) VoidTransaction(ctx context.Context, id string, reason string) (VoidResult, error) {
	return e.void(ctx, reason, func(list []domain.Sale) int {
		id = strings.TrimSpace(id)
		for i, sale := range list {
			if sale.ID == id {
				return i
			}
		}
		return -1
	})
}

// VoidLastTransaction voids the most recent sale that is not voided yet.
func (e *Engine) VoidLastTransaction(ctx context.Context, reason string) (VoidResult, error) {
	return e.void(ctx, reason, func(list []domain.Sale) int {
		for i, sale := range list {
			if !sale.Voided {
				return i
			}
		}
		return -1
	})
}

func (e *Engine) void(ctx context.Context, reason string, locate func([]domain.Sale) int) (VoidResult, error) {
	if err := Authorize(ctx); err != nil {
		return VoidResult{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return VoidResult{Status: VoidReasonRequired}, nil
	}

	var result VoidResult
	now := e.now()

	err := e.mutate(ctx, func(next *domain.Snapshot) (bool, error) {
		idx := locate(next.Sales)
		if idx < 0 {
			result = VoidResult{Status: VoidNotFound}
			return false, nil
		}
		sale := next.Sales[idx]
		if sale.Voided {
			result = VoidResult{Status: VoidAlreadyVoided, Sale: &sale}
			return false, nil
		}

		products := next.Products
		for _, item := range sale.Items {
			products = ledger.IncreaseStock(products, item.ProductID, item.Quantity)
		}

		voidedAt := now
		sale.Voided = true
		sale.VoidReason = reason
		sale.VoidedAt = &voidedAt

		next.Products = products
		next.Sales[idx] = sale
		result = VoidResult{Status: VoidApplied, Sale: &sale}
		return true, nil
	})
	if err != nil {
		return VoidResult{}, err
	}
	if !result.Applied() {
		e.log.Debug().Str("status", string(result.Status)).Msg("void skipped")
		return result, nil
	}

	e.audit(ctx, "void_transaction", result.Sale.ID, reason)
	e.publish(ctx, events.TypeSaleVoided, now, events.SaleVoidedPayload{
		SaleID: result.Sale.ID,
		Reason: reason,
		Total:  result.Sale.TotalPrice.String(),
	})
	return result, nil
}
