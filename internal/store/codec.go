package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"warungpos/backend/internal/domain"
)

// document is the persisted layout shared by every backend and the cloud
// mirror.
type document struct {
	Products     []domain.Product      `json:"products"`
	Sales        []domain.LedgerRecord `json:"sales"`
	Transactions []domain.Receipt      `json:"transactions"`
	Settings     json.RawMessage       `json:"settings"`
}

func Encode(snapshot *domain.Snapshot) ([]byte, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("encode snapshot: nil snapshot")
	}

	settings, err := json.Marshal(snapshot.Settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}

	doc := document{
		Products:     snapshot.Products,
		Sales:        make([]domain.LedgerRecord, 0, len(snapshot.Sales)),
		Transactions: snapshot.Transactions(),
		Settings:     settings,
	}
	if doc.Products == nil {
		doc.Products = []domain.Product{}
	}
	for _, sale := range snapshot.Sales {
		doc.Sales = append(doc.Sales, sale.LedgerRecord())
	}

	return json.Marshal(doc)
}

// Decode rebuilds a snapshot. Settings fields absent from the document keep
// their defaults, a missing transactions list is treated as empty and
// negative stock or prices are clamped to zero.
func Decode(data []byte) (*domain.Snapshot, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	settings := domain.DefaultSettings()
	if raw := bytes.TrimSpace(doc.Settings); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}

	snapshot := &domain.Snapshot{
		Products: doc.Products,
		Sales:    make([]domain.Sale, 0, len(doc.Sales)),
		Settings: settings,
	}
	if snapshot.Products == nil {
		snapshot.Products = []domain.Product{}
	}
	for i := range snapshot.Products {
		clampProduct(&snapshot.Products[i])
	}

	receipts := make(map[string]*domain.Receipt, len(doc.Transactions))
	for i := range doc.Transactions {
		r := &doc.Transactions[i]
		if r.ID != "" {
			receipts[r.ID] = r
		}
		if r.ReceiptID != "" {
			receipts[r.ReceiptID] = r
		}
	}

	matched := make(map[*domain.Receipt]bool, len(receipts))
	for _, rec := range doc.Sales {
		receipt := receipts[rec.ID]
		if receipt != nil {
			matched[receipt] = true
		}
		snapshot.Sales = append(snapshot.Sales, domain.SaleFromRecords(rec, receipt))
	}

	// Receipts whose ledger entry is gone are kept as sales so their stock
	// history and void state survive.
	recovered := false
	for i := range doc.Transactions {
		r := &doc.Transactions[i]
		if matched[r] {
			continue
		}
		snapshot.Sales = append(snapshot.Sales, domain.SaleFromReceipt(*r))
		recovered = true
	}
	if recovered {
		sort.SliceStable(snapshot.Sales, func(i, j int) bool {
			return snapshot.Sales[i].Date.After(snapshot.Sales[j].Date)
		})
	}

	return snapshot, nil
}

func clampProduct(p *domain.Product) {
	if p.Quantity >= 0 && !p.CostPrice.IsNegative() && !p.SellingPrice.IsNegative() {
		return
	}
	log.Warn().Str("component", "store").Str("product_id", p.ID).
		Int("quantity", p.Quantity).
		Str("cost_price", p.CostPrice.String()).
		Str("selling_price", p.SellingPrice.String()).
		Msg("clamped negative product values in stored document")
	if p.Quantity < 0 {
		p.Quantity = 0
	}
	if p.CostPrice.IsNegative() {
		p.CostPrice = decimal.Zero
	}
	if p.SellingPrice.IsNegative() {
		p.SellingPrice = decimal.Zero
	}
}
