package sales

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"warungpos/backend/internal/domain"
)

// Summarize aggregates sales dated in [from, to). Voided sales are counted but
// contribute nothing to the totals.
func Summarize(list []domain.Sale, from time.Time, to time.Time) domain.DailyReport {
	report := domain.DailyReport{
		GrossSales:  decimal.Zero,
		Profit:      decimal.Zero,
		ByPayment:   []domain.DailyReportPayment{},
		TopProducts: []domain.DailyReportProduct{},
	}

	byPayment := map[string]*domain.DailyReportPayment{}
	byProduct := map[string]*domain.DailyReportProduct{}

	for _, sale := range list {
		if sale.Date.Before(from) || !sale.Date.Before(to) {
			continue
		}
		if sale.Voided {
			report.Voided++
			continue
		}

		report.Transactions++
		report.Units += int64(sale.Quantity)
		report.GrossSales = report.GrossSales.Add(sale.TotalPrice)
		report.Profit = report.Profit.Add(sale.Profit)

		method := sale.PaymentMethod
		if method == "" {
			method = domain.DefaultPaymentMethod
		}
		payment, ok := byPayment[method]
		if !ok {
			payment = &domain.DailyReportPayment{PaymentMethod: method, Total: decimal.Zero}
			byPayment[method] = payment
		}
		payment.Transactions++
		payment.Total = payment.Total.Add(sale.TotalPrice)

		for _, item := range sale.Items {
			product, ok := byProduct[item.ProductID]
			if !ok {
				product = &domain.DailyReportProduct{ProductID: item.ProductID, Name: item.Name, Total: decimal.Zero}
				byProduct[item.ProductID] = product
			}
			product.Units += int64(item.Quantity)
			product.Total = product.Total.Add(item.Total)
		}
	}

	for _, payment := range byPayment {
		report.ByPayment = append(report.ByPayment, *payment)
	}
	sort.Slice(report.ByPayment, func(i, j int) bool {
		return report.ByPayment[i].PaymentMethod < report.ByPayment[j].PaymentMethod
	})

	for _, product := range byProduct {
		report.TopProducts = append(report.TopProducts, *product)
	}
	sort.Slice(report.TopProducts, func(i, j int) bool {
		if report.TopProducts[i].Units != report.TopProducts[j].Units {
			return report.TopProducts[i].Units > report.TopProducts[j].Units
		}
		return report.TopProducts[i].ProductID < report.TopProducts[j].ProductID
	})
	if len(report.TopProducts) > 5 {
		report.TopProducts = report.TopProducts[:5]
	}

	return report
}
