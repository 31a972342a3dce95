// Package events publishes domain events about committed store changes.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeSaleRecorded = "sale.recorded"
	TypeSaleVoided   = "sale.voided"
	TypeStockLow     = "stock.low"
)

const envelopeVersion = "1"

type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	StoreID    string          `json:"store_id"`
	Payload    json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType string, storeID string, occurredAt time.Time, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: occurredAt.UTC(),
		StoreID:    storeID,
		Payload:    raw,
	}, nil
}

// Publisher delivers envelopes after the change they describe is committed.
// Implementations must not block the caller on a slow broker.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

type Noop struct{}

func (Noop) Publish(context.Context, Envelope) error { return nil }

type SaleRecordedPayload struct {
	SaleID        string `json:"sale_id"`
	Total         string `json:"total"`
	Quantity      int    `json:"quantity"`
	PaymentMethod string `json:"payment_method"`
	Items         int    `json:"items"`
}

type SaleVoidedPayload struct {
	SaleID string `json:"sale_id"`
	Reason string `json:"reason"`
	Total  string `json:"total"`
}

type StockLowPayload struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
}
