package memory

import (
	"context"
	"errors"
	"testing"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

func TestLoadUnknownStoreReturnsNotFound(t *testing.T) {
	s := New()
	if _, err := s.Load(context.Background(), "nowhere"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveIsolatesCallerFromStoredState(t *testing.T) {
	ctx := context.Background()
	s := New()

	snap := domain.NewSnapshot()
	snap.Products = append(snap.Products, domain.Product{ID: "p-1", Name: "Widget", Category: "Hardware", Quantity: 4})
	if err := s.Save(ctx, "store-a", snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	snap.Products[0].Quantity = 99

	loaded, err := s.Load(ctx, "store-a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Products[0].Quantity != 4 {
		t.Fatalf("expected stored quantity 4, got %d", loaded.Products[0].Quantity)
	}
	if _, err := s.Load(ctx, "store-b"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected namespaces to stay separate, got %v", err)
	}
}

func TestNewSeededHasStableProductIDs(t *testing.T) {
	ctx := context.Background()
	a, err := NewSeeded("main-store").Load(ctx, "main-store")
	if err != nil {
		t.Fatalf("load seeded: %v", err)
	}
	b, err := NewSeeded("main-store").Load(ctx, "main-store")
	if err != nil {
		t.Fatalf("load seeded: %v", err)
	}
	if len(a.Products) == 0 {
		t.Fatalf("expected seeded products")
	}
	if a.Products[0].ID != b.Products[0].ID {
		t.Fatalf("expected deterministic seed ids, got %s and %s", a.Products[0].ID, b.Products[0].ID)
	}
}
