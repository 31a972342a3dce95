package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"warungpos/backend/internal/domain"
)

var decimalOne = decimal.NewFromInt(1)

func (e *Engine) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) (domain.Settings, error) {
	if err := Authorize(ctx); err != nil {
		return domain.Settings{}, err
	}

	var hash *string
	if patch.AdminSwitchPassword != nil {
		password := strings.TrimSpace(*patch.AdminSwitchPassword)
		value := ""
		if password != "" {
			if len(password) < 6 {
				return domain.Settings{}, fmt.Errorf("%w: admin switch password must be at least 6 characters", domain.ErrInvalidInput)
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return domain.Settings{}, err
			}
			value = string(hashed)
		}
		hash = &value
	}

	var updated domain.Settings
	err := e.mutate(ctx, func(next *domain.Snapshot) (bool, error) {
		s := next.Settings
		if patch.LowStockThreshold != nil {
			if *patch.LowStockThreshold < 0 {
				return false, fmt.Errorf("%w: low stock threshold cannot be negative", domain.ErrInvalidInput)
			}
			s.LowStockThreshold = *patch.LowStockThreshold
		}
		if patch.Currency != nil {
			currency := strings.ToUpper(strings.TrimSpace(*patch.Currency))
			if currency == "" {
				return false, fmt.Errorf("%w: currency cannot be empty", domain.ErrInvalidInput)
			}
			s.Currency = currency
		}
		if patch.BusinessName != nil {
			name := strings.TrimSpace(*patch.BusinessName)
			if name == "" {
				return false, fmt.Errorf("%w: business name cannot be empty", domain.ErrInvalidInput)
			}
			s.BusinessName = name
		}
		if patch.TaxRate != nil {
			if patch.TaxRate.IsNegative() || patch.TaxRate.GreaterThan(decimalOne) {
				return false, fmt.Errorf("%w: tax rate must be between 0 and 1", domain.ErrInvalidInput)
			}
			s.TaxRate = *patch.TaxRate
		}
		if patch.ReceiptFooter != nil {
			s.ReceiptFooter = strings.TrimSpace(*patch.ReceiptFooter)
		}
		if hash != nil {
			s.AdminSwitchPasswordHash = *hash
		}
		next.Settings = s
		updated = s
		return true, nil
	})
	if err != nil {
		return domain.Settings{}, err
	}

	e.audit(ctx, "settings_update", e.storeID, fmt.Sprintf("threshold=%d,currency=%s,admin_switch=%t", updated.LowStockThreshold, updated.Currency, updated.AdminSwitchPasswordHash != ""))
	return updated, nil
}

// VerifyAdminSwitch checks password against the stored admin switch hash. It
// is always false when no password has been configured.
func (e *Engine) VerifyAdminSwitch(password string) bool {
	hash := e.current().Settings.AdminSwitchPasswordHash
	if hash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
