package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"warungpos/backend/internal/catalog"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/events"
	"warungpos/backend/internal/ledger"
	"warungpos/backend/internal/sales"
)

// RecordSale sells one product without a receipt.
func (e *Engine) RecordSale(ctx context.Context, req domain.SaleRequest) (domain.Sale, error) {
	if err := Authorize(ctx); err != nil {
		return domain.Sale{}, err
	}
	if strings.TrimSpace(req.ProductID) == "" {
		return domain.Sale{}, fmt.Errorf("%w: product_id is required", domain.ErrInvalidInput)
	}

	cart := []domain.CartLine{{ProductID: req.ProductID, Quantity: req.Quantity}}
	return e.record(ctx, cart, req.PaymentMethod, nil, false)
}

// RecordTransaction checks out a cart as one sale. Every line is validated
// against current stock before anything changes; a nil receipt records the
// sale without a receipt.
func (e *Engine) RecordTransaction(ctx context.Context, cart []domain.CartLine, paymentMethod string, receipt *domain.ReceiptData) (domain.Sale, error) {
	if err := Authorize(ctx); err != nil {
		return domain.Sale{}, err
	}
	return e.record(ctx, cart, paymentMethod, receipt, true)
}

func (e *Engine) record(ctx context.Context, cart []domain.CartLine, paymentMethod string, receipt *domain.ReceiptData, wantReceipt bool) (domain.Sale, error) {
	if len(cart) == 0 {
		return domain.Sale{}, fmt.Errorf("%w: cart is empty", domain.ErrInvalidInput)
	}
	paymentMethod = defaultString(paymentMethod, domain.DefaultPaymentMethod)

	var sale domain.Sale
	var before []domain.Product
	var after []domain.Product
	var threshold int
	now := e.now()

	err := e.mutate(ctx, func(next *domain.Snapshot) (bool, error) {
		if err := checkCart(next.Products, cart); err != nil {
			return false, err
		}

		before = next.Products
		working := next.Products
		sale = domain.Sale{
			ID:            e.newSaleID(now),
			Date:          now,
			Items:         make([]domain.SaleItem, 0, len(cart)),
			TotalPrice:    decimal.Zero,
			Profit:        decimal.Zero,
			PaymentMethod: paymentMethod,
		}

		for _, line := range cart {
			live, _ := catalog.FindByID(working, line.ProductID)
			totals := sales.CalculateSaleTotals(&live, line.Quantity)
			lineTotal := totals.Total
			if line.Total != nil {
				lineTotal = *line.Total
			}

			sale.Items = append(sale.Items, domain.SaleItem{
				ProductID: live.ID,
				Name:      live.Name,
				Quantity:  line.Quantity,
				Price:     live.SellingPrice,
				Cost:      live.CostPrice,
				Total:     lineTotal,
				Profit:    totals.Profit,
			})
			sale.TotalPrice = sale.TotalPrice.Add(lineTotal)
			sale.Profit = sale.Profit.Add(totals.Profit)
			sale.Quantity += line.Quantity

			working = ledger.ReduceStock(working, line.ProductID, line.Quantity)
		}

		if receipt != nil {
			sale.Receipt = buildReceipt(ctx, sale, receipt, next.Settings)
		}

		next.Products = working
		next.Sales = append([]domain.Sale{sale}, next.Sales...)
		after = working
		threshold = next.Settings.LowStockThreshold
		return true, nil
	})
	if err != nil {
		return domain.Sale{}, err
	}

	if wantReceipt && sale.Receipt == nil {
		e.log.Warn().Str("sale_id", sale.ID).Msg("transaction recorded without receipt; receipt history will not include it")
	}
	e.audit(ctx, "sale_record", sale.ID, fmt.Sprintf("items=%d,qty=%d,total=%s,payment=%s", len(sale.Items), sale.Quantity, sale.TotalPrice, sale.PaymentMethod))
	e.publish(ctx, events.TypeSaleRecorded, now, events.SaleRecordedPayload{
		SaleID:        sale.ID,
		Total:         sale.TotalPrice.String(),
		Quantity:      sale.Quantity,
		PaymentMethod: sale.PaymentMethod,
		Items:         len(sale.Items),
	})
	e.publishLowStock(ctx, before, touched(after, cart), threshold, now)
	return sale, nil
}

// checkCart validates every line against current stock. Lines for the same
// product draw from the same stock in cart order.
func checkCart(products []domain.Product, cart []domain.CartLine) error {
	requested := make(map[string]int, len(cart))
	for _, line := range cart {
		product, ok := catalog.FindByID(products, line.ProductID)
		if !ok {
			return fmt.Errorf("%w: product %s", domain.ErrNotFound, line.ProductID)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for %s must be greater than 0", domain.ErrInvalidInput, product.Name)
		}
		if line.Total != nil && line.Total.IsNegative() {
			return fmt.Errorf("%w: line total for %s cannot be negative", domain.ErrInvalidInput, product.Name)
		}
		requested[line.ProductID] += line.Quantity
		if requested[line.ProductID] > product.Quantity {
			return &domain.StockError{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: requested[line.ProductID],
				Available: product.Quantity,
			}
		}
	}
	return nil
}

// buildReceipt fills receipt amounts the caller left out from the sale and
// the store settings.
func buildReceipt(ctx context.Context, sale domain.Sale, data *domain.ReceiptData, settings domain.Settings) *domain.ReceiptDetail {
	subtotal := sale.TotalPrice
	if data.Subtotal != nil {
		subtotal = *data.Subtotal
	}
	tax := subtotal.Mul(settings.TaxRate).Round(2)
	if data.Tax != nil {
		tax = *data.Tax
	}
	discount := decimal.Zero
	if data.Discount != nil {
		discount = *data.Discount
	}
	total := subtotal.Add(tax).Sub(discount)
	if data.Total != nil {
		total = *data.Total
	}

	cashier := strings.TrimSpace(data.CashierName)
	if cashier == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			cashier = actor.Username
		}
	}

	detail := &domain.ReceiptDetail{
		Subtotal:     subtotal,
		Tax:          tax,
		Discount:     discount,
		Total:        total,
		StoreName:    defaultString(data.StoreName, settings.BusinessName),
		CashierName:  cashier,
		CustomerName: strings.TrimSpace(data.CustomerName),
	}
	if data.AmountPaid != nil {
		paid := *data.AmountPaid
		change := paid.Sub(total)
		detail.AmountPaid = &paid
		detail.Change = &change
	}
	return detail
}

func touched(products []domain.Product, cart []domain.CartLine) []domain.Product {
	seen := make(map[string]bool, len(cart))
	out := make([]domain.Product, 0, len(cart))
	for _, line := range cart {
		if seen[line.ProductID] {
			continue
		}
		seen[line.ProductID] = true
		if p, ok := catalog.FindByID(products, line.ProductID); ok {
			out = append(out, p)
		}
	}
	return out
}
