package store

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"warungpos/backend/internal/domain"
)

func sampleSnapshot() *domain.Snapshot {
	at := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	voidedAt := at.Add(time.Hour)
	exp := domain.NewDate(at.AddDate(0, 2, 0))
	amountPaid := decimal.RequireFromString("20")
	change := decimal.RequireFromString("5")

	snap := domain.NewSnapshot()
	snap.Settings.BusinessName = "Toko Maju"
	snap.Settings.LowStockThreshold = 3
	snap.Products = []domain.Product{
		{ID: "p-1", Name: "Widget", Category: "Hardware", Barcode: "123", CostPrice: decimal.RequireFromString("2"), SellingPrice: decimal.RequireFromString("5"), Quantity: 7, ExpirationDate: &exp, CreatedAt: at, UpdatedAt: at},
	}
	snap.Sales = []domain.Sale{
		{
			ID: "sale-2", Date: at.Add(2 * time.Hour), TotalPrice: decimal.RequireFromString("15"), Profit: decimal.RequireFromString("9"), Quantity: 3, PaymentMethod: "Cash",
			Items:   []domain.SaleItem{{ProductID: "p-1", Name: "Widget", Quantity: 3, Price: decimal.RequireFromString("5"), Cost: decimal.RequireFromString("2"), Total: decimal.RequireFromString("15"), Profit: decimal.RequireFromString("9")}},
			Receipt: &domain.ReceiptDetail{Subtotal: decimal.RequireFromString("15"), Tax: decimal.Zero, Discount: decimal.Zero, Total: decimal.RequireFromString("15"), StoreName: "Toko Maju", AmountPaid: &amountPaid, Change: &change},
		},
		{
			ID: "sale-1", Date: at, TotalPrice: decimal.RequireFromString("5"), Profit: decimal.RequireFromString("3"), Quantity: 1, PaymentMethod: "Card",
			Items:  []domain.SaleItem{{ProductID: "p-1", Name: "Widget", Quantity: 1, Price: decimal.RequireFromString("5"), Cost: decimal.RequireFromString("2"), Total: decimal.RequireFromString("5"), Profit: decimal.RequireFromString("3")}},
			Voided: true, VoidReason: "customer return", VoidedAt: &voidedAt,
		},
	}
	return snap
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := sampleSnapshot()

	first, err := Encode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(first)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	second, err := Encode(decoded)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("round trip changed document:\n%s\n%s", first, second)
	}

	if len(decoded.Sales) != 2 || decoded.Sales[0].ID != "sale-2" {
		t.Fatalf("expected sales order preserved, got %+v", decoded.Sales)
	}
	if decoded.Sales[0].Receipt == nil || decoded.Sales[1].Receipt != nil {
		t.Fatalf("expected receipt only on sale-2")
	}
	if !decoded.Sales[1].Voided || decoded.Sales[1].VoidReason != "customer return" {
		t.Fatalf("expected void state preserved, got %+v", decoded.Sales[1])
	}
	if decoded.Products[0].ExpirationDate == nil || decoded.Products[0].ExpirationDate.Format(domain.DateLayout) != "2024-09-01" {
		t.Fatalf("expected expiration date preserved, got %v", decoded.Products[0].ExpirationDate)
	}
	if decoded.Settings.BusinessName != "Toko Maju" || decoded.Settings.LowStockThreshold != 3 || !decoded.Settings.TaxRate.Equal(original.Settings.TaxRate) {
		t.Fatalf("expected settings %+v, got %+v", original.Settings, decoded.Settings)
	}
}

func TestEncodeWritesMirroredCollections(t *testing.T) {
	data, err := Encode(sampleSnapshot())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var raw struct {
		Sales        []map[string]any `json:"sales"`
		Transactions []map[string]any `json:"transactions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	if len(raw.Sales) != 2 || len(raw.Transactions) != 1 {
		t.Fatalf("expected 2 sales and 1 receipt, got %d/%d", len(raw.Sales), len(raw.Transactions))
	}
	if raw.Transactions[0]["id"] != "sale-2" || raw.Transactions[0]["receiptId"] != "sale-2" {
		t.Fatalf("expected receipt ids to match the sale, got %v", raw.Transactions[0])
	}
	if raw.Sales[1]["voided"] != true || raw.Sales[1]["isVoided"] != true {
		t.Fatalf("expected both void flags on ledger entry, got %v", raw.Sales[1])
	}
}

func TestDecodeBackfillsDefaults(t *testing.T) {
	snap, err := Decode([]byte(`{"products":[],"sales":[],"settings":{"businessName":"Kedai"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Settings.BusinessName != "Kedai" {
		t.Fatalf("expected stored business name, got %q", snap.Settings.BusinessName)
	}
	if snap.Settings.LowStockThreshold != domain.DefaultLowStockThreshold || snap.Settings.Currency != domain.DefaultCurrency {
		t.Fatalf("expected defaults backfilled, got %+v", snap.Settings)
	}
	if snap.Transactions() == nil || len(snap.Transactions()) != 0 {
		t.Fatalf("expected empty transactions")
	}

	empty, err := Decode([]byte(`{}`))
	if err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if empty.Products == nil || empty.Settings != domain.DefaultSettings() {
		t.Fatalf("expected empty document to decode to defaults, got %+v", empty)
	}
}

func TestDecodeMirrorsReceiptVoidOntoSale(t *testing.T) {
	doc := `{
		"sales":[{"id":"s-1","date":"2024-07-01T12:00:00Z","items":[{"productId":"p-1","name":"Widget","quantity":"2","price":5,"cost":2,"total":10,"profit":6}],"total_price":10,"profit":6,"quantity":2,"payment_method":"Cash","voided":false}],
		"transactions":[{"id":"s-1","receiptId":"s-1","date":"2024-07-01T12:00:00Z","total":10,"voided":true,"voidReason":"wrong item","voidedAt":"2024-07-01T13:00:00Z"}],
		"settings":{}
	}`

	snap, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sale := snap.Sales[0]
	if !sale.Voided || sale.VoidReason != "wrong item" {
		t.Fatalf("expected receipt void to carry over, got %+v", sale)
	}
	if sale.Items[0].Quantity != 2 {
		t.Fatalf("expected text quantity coerced to 2, got %d", sale.Items[0].Quantity)
	}
	r, ok := sale.ReceiptView()
	if !ok || !r.Voided || !r.IsVoided {
		t.Fatalf("expected receipt projection voided, got %+v", r)
	}
}

func TestDecodeRecoversOrphanReceipt(t *testing.T) {
	doc := `{
		"sales":[{"id":"s-1","date":"2024-07-01T10:00:00Z","total_price":5,"profit":3,"quantity":1}],
		"transactions":[{"receiptId":"r-9","date":"2024-07-02T10:00:00Z","total":8,"quantity":2}]
	}`

	snap, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Sales) != 2 {
		t.Fatalf("expected orphan receipt recovered as sale, got %d sales", len(snap.Sales))
	}
	if snap.Sales[0].ID != "r-9" || !snap.Sales[0].TotalPrice.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected newest recovered sale first, got %+v", snap.Sales[0])
	}
}

func TestDecodeClampsNegativeProductValues(t *testing.T) {
	snap, err := Decode([]byte(`{"products":[{"id":"a","name":"Tea","category":"Drinks","cost_price":"-1","selling_price":"2","quantity":-5}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := snap.Products[0]
	if p.Quantity != 0 {
		t.Fatalf("expected negative stock clamped to 0, got %d", p.Quantity)
	}
	if !p.CostPrice.IsZero() || !p.SellingPrice.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("expected only the negative price clamped, got cost=%s sell=%s", p.CostPrice, p.SellingPrice)
	}
}
