package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

// Store keeps encoded snapshot documents in process memory, the same bytes
// the durable backends write.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func New() *Store {
	return &Store{docs: make(map[string][]byte)}
}

// NewSeeded returns a store with a demo catalog under storeID.
func NewSeeded(storeID string) *Store {
	s := New()
	snap := domain.NewSnapshot()
	snap.Products = seedProducts(time.Now().UTC())
	data, err := store.Encode(snap)
	if err == nil {
		s.docs[storeID] = data
	}
	return s
}

func (s *Store) Load(_ context.Context, storeID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	data, ok := s.docs[storeID]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return store.Decode(data)
}

func (s *Store) Save(_ context.Context, storeID string, snapshot *domain.Snapshot) error {
	data, err := store.Encode(snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[storeID] = data
	return nil
}

var seedNamespace = uuid.MustParse("6f1d2a4e-9c1b-4f0e-8a57-2f3c6b9d1e10")

func seedProducts(now time.Time) []domain.Product {
	rows := []struct {
		sku      string
		name     string
		category string
		cost     string
		price    string
		qty      int
	}{
		{"SKU-MIE-01", "Mie Goreng Instan", "grocery", "2.70", "3.50", 120},
		{"SKU-TELUR-01", "Telur 10 Butir", "grocery", "23.00", "26.50", 24},
		{"SKU-SUSU-01", "Susu UHT 1L", "dairy", "13.60", "18.90", 36},
		{"SKU-ROTI-01", "Roti Tawar", "bakery", "12.40", "17.80", 4},
		{"SKU-KOPI-01", "Kopi Sachet", "beverage", "1.70", "2.60", 200},
		{"SKU-GULA-01", "Gula 1kg", "grocery", "15.30", "17.40", 18},
		{"SKU-TEH-01", "Teh Celup", "beverage", "7.25", "9.80", 40},
		{"SKU-AIR-01", "Air Mineral 600ml", "beverage", "3.20", "3.90", 96},
		{"SKU-SABUN-01", "Sabun Mandi", "household", "5.00", "7.40", 3},
	}

	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, domain.Product{
			ID:           uuid.NewSHA1(seedNamespace, []byte(row.sku)).String(),
			Name:         row.name,
			Category:     row.category,
			Barcode:      row.sku,
			CostPrice:    decimal.RequireFromString(row.cost),
			SellingPrice: decimal.RequireFromString(row.price),
			Quantity:     row.qty,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return products
}
