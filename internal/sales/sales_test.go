package sales

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"warungpos/backend/internal/domain"
)

func widget() *domain.Product {
	return &domain.Product{
		ID:           "widget",
		Name:         "Widget",
		CostPrice:    decimal.RequireFromString("2.00"),
		SellingPrice: decimal.RequireFromString("5.00"),
		Quantity:     10,
	}
}

func TestCalculateSaleTotals(t *testing.T) {
	totals := CalculateSaleTotals(widget(), 3)
	if !totals.Total.Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("expected total 15.00, got %s", totals.Total)
	}
	if !totals.Profit.Equal(decimal.RequireFromString("9.00")) {
		t.Fatalf("expected profit 9.00, got %s", totals.Profit)
	}
}

func TestCalculateSaleTotalsZeroCases(t *testing.T) {
	for name, totals := range map[string]Totals{
		"nil product":   CalculateSaleTotals(nil, 3),
		"zero quantity": CalculateSaleTotals(widget(), 0),
		"negative":      CalculateSaleTotals(widget(), -2),
	} {
		if !totals.Total.IsZero() || !totals.Profit.IsZero() {
			t.Fatalf("%s: expected zero totals, got %+v", name, totals)
		}
	}
}

func TestParseQuantityTruncates(t *testing.T) {
	cases := map[string]int{
		"3":     3,
		"3.9":   3,
		" 12 ":  12,
		"":      0,
		"three": 0,
	}
	for raw, want := range cases {
		if got := ParseQuantity(raw); got != want {
			t.Fatalf("ParseQuantity(%q) = %d, want %d", raw, got, want)
		}
	}
}

func TestValidateSale(t *testing.T) {
	if res := ValidateSale(nil, 1); res.IsValid || res.Errors["product"] == "" {
		t.Fatalf("expected missing product error, got %+v", res)
	}
	if res := ValidateSale(widget(), 0); res.IsValid || res.Errors["quantity"] == "" {
		t.Fatalf("expected quantity error, got %+v", res)
	}

	res := ValidateSale(widget(), 11)
	if res.IsValid {
		t.Fatalf("expected oversell to be invalid")
	}
	if res.Errors["quantity"] != "Only 10 units of Widget available" {
		t.Fatalf("unexpected message %q", res.Errors["quantity"])
	}

	if res := ValidateSale(widget(), 10); !res.IsValid {
		t.Fatalf("expected full stock sale to be valid, got %+v", res.Errors)
	}
}

func TestSummarizeSkipsVoidedAndOutOfRange(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	list := []domain.Sale{
		{ID: "s1", Date: day.Add(2 * time.Hour), TotalPrice: decimal.NewFromInt(15), Profit: decimal.NewFromInt(9), Quantity: 3, PaymentMethod: "Cash",
			Items: []domain.SaleItem{{ProductID: "widget", Name: "Widget", Quantity: 3, Total: decimal.NewFromInt(15)}}},
		{ID: "s2", Date: day.Add(3 * time.Hour), TotalPrice: decimal.NewFromInt(4), Profit: decimal.NewFromInt(1), Quantity: 1, PaymentMethod: "Card",
			Items: []domain.SaleItem{{ProductID: "tea", Name: "Tea", Quantity: 1, Total: decimal.NewFromInt(4)}}},
		{ID: "s3", Date: day.Add(4 * time.Hour), TotalPrice: decimal.NewFromInt(50), Profit: decimal.NewFromInt(20), Quantity: 10, Voided: true},
		{ID: "s4", Date: day.Add(26 * time.Hour), TotalPrice: decimal.NewFromInt(99), Quantity: 1},
	}

	report := Summarize(list, day, day.Add(24*time.Hour))

	if report.Transactions != 2 || report.Voided != 1 {
		t.Fatalf("expected 2 transactions and 1 voided, got %d/%d", report.Transactions, report.Voided)
	}
	if !report.GrossSales.Equal(decimal.NewFromInt(19)) || !report.Profit.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected totals gross=%s profit=%s", report.GrossSales, report.Profit)
	}
	if report.Units != 4 {
		t.Fatalf("expected 4 units, got %d", report.Units)
	}
	if len(report.ByPayment) != 2 || report.ByPayment[0].PaymentMethod != "Card" {
		t.Fatalf("unexpected payment breakdown %+v", report.ByPayment)
	}
	if len(report.TopProducts) != 2 || report.TopProducts[0].ProductID != "widget" {
		t.Fatalf("unexpected top products %+v", report.TopProducts)
	}
}

func TestParseQuantityClampsOutOfRangeValues(t *testing.T) {
	cases := map[string]int{
		"18446744073709551617":   domain.MaxQuantity,
		"9223372036854775809":    domain.MaxQuantity,
		"-9223372036854775809":   -domain.MaxQuantity,
		"99999999999999999999.5": domain.MaxQuantity,
	}
	for raw, want := range cases {
		if got := ParseQuantity(raw); got != want {
			t.Fatalf("ParseQuantity(%q) = %d, want %d", raw, got, want)
		}
	}
}
