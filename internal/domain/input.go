package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NumericInput holds the raw text of a numeric form field. It decodes from a
// JSON number, a JSON string or null.
type NumericInput string

func (n *NumericInput) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*n = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumericInput(strings.TrimSpace(s))
		return nil
	}
	*n = NumericInput(raw)
	return nil
}

func (n NumericInput) Present() bool {
	return strings.TrimSpace(string(n)) != ""
}

func (n NumericInput) Decimal() (decimal.Decimal, bool) {
	value, err := decimal.NewFromString(strings.TrimSpace(string(n)))
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// MaxQuantity bounds every stock and sale quantity.
const MaxQuantity = math.MaxInt32

var maxQuantity = decimal.NewFromInt(MaxQuantity)

// Int truncates toward zero and clamps to ±MaxQuantity. Unparseable input
// yields 0.
func (n NumericInput) Int() int {
	value, ok := n.Decimal()
	if !ok {
		return 0
	}
	value = value.Truncate(0)
	switch {
	case value.GreaterThan(maxQuantity):
		return MaxQuantity
	case value.LessThan(maxQuantity.Neg()):
		return -MaxQuantity
	}
	return int(value.IntPart())
}

// TooLarge reports whether the number exceeds MaxQuantity in magnitude.
func (n NumericInput) TooLarge() bool {
	value, ok := n.Decimal()
	return ok && value.Truncate(0).Abs().GreaterThan(maxQuantity)
}

const DateLayout = "2006-01-02"

// Date is a calendar date without a time of day, encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return NewDate(t), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", raw)
	}
	return NewDate(t), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalJSON tolerates quantities stored as text or fractions in older
// documents.
func (i *SaleItem) UnmarshalJSON(data []byte) error {
	type alias SaleItem
	aux := struct {
		*alias
		Quantity NumericInput `json:"quantity"`
	}{alias: (*alias)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	i.Quantity = aux.Quantity.Int()
	return nil
}
