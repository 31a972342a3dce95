package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/sales"
)

// Restore replaces the whole store state with snap and commits it.
func (e *Engine) Restore(ctx context.Context, snap *domain.Snapshot) error {
	if err := Authorize(ctx); err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("%w: snapshot is required", domain.ErrInvalidInput)
	}
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	incoming := snap.Clone()
	err := e.mutate(ctx, func(next *domain.Snapshot) (bool, error) {
		*next = *incoming
		return true, nil
	})
	if err != nil {
		return err
	}

	e.audit(ctx, "store_restore", e.storeID, fmt.Sprintf("products=%d,sales=%d", len(incoming.Products), len(incoming.Sales)))
	return nil
}

// validateSnapshot rejects states that could never be reached through the
// guarded mutators.
func validateSnapshot(snap *domain.Snapshot) error {
	for _, p := range snap.Products {
		if p.Quantity < 0 {
			return fmt.Errorf("%w: product %s has negative stock %d", domain.ErrInvalidInput, p.ID, p.Quantity)
		}
		if p.CostPrice.IsNegative() || p.SellingPrice.IsNegative() {
			return fmt.Errorf("%w: product %s has a negative price", domain.ErrInvalidInput, p.ID)
		}
	}
	if snap.Settings.LowStockThreshold < 0 {
		return fmt.Errorf("%w: low stock threshold cannot be negative", domain.ErrInvalidInput)
	}
	return nil
}

// PullFromCloud replaces local state with the cloud copy. The last write wins;
// nothing is merged.
func (e *Engine) PullFromCloud(ctx context.Context) (*time.Time, error) {
	if err := Authorize(ctx); err != nil {
		return nil, err
	}
	if e.cloud == nil {
		return nil, ErrCloudUnavailable
	}

	res, err := e.cloud.Pull(ctx, e.storeID)
	if err != nil {
		return nil, fmt.Errorf("pull store %s: %w", e.storeID, err)
	}
	if !res.Success || res.Data == nil {
		return nil, fmt.Errorf("%w: no cloud copy for store %s", domain.ErrNotFound, e.storeID)
	}
	if err := e.Restore(ctx, res.Data); err != nil {
		return nil, err
	}
	return res.Timestamp, nil
}

// Report summarizes one UTC day of sales. A blank date means today.
func (e *Engine) Report(date string) (domain.DailyReport, error) {
	var day time.Time
	if strings.TrimSpace(date) == "" {
		now := e.now().UTC()
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse(domain.DateLayout, strings.TrimSpace(date))
		if err != nil {
			return domain.DailyReport{}, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidInput)
		}
		day = parsed.UTC()
	}
	from := day
	to := from.Add(24 * time.Hour)

	snap := e.current()
	report := sales.Summarize(snap.Sales, from, to)
	report.StoreID = e.storeID
	report.Date = from.Format(domain.DateLayout)
	report.Currency = snap.Settings.Currency
	return report, nil
}
