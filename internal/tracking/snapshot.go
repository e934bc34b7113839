package tracking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the server's view of one order (GET /orders/{id}/status and
// the entries of GET /admin/orders). It is never modified locally.
type Snapshot struct {
	OrderID          int64           `json:"order_id"`
	CustomerName     string          `json:"customer_name"`
	CustomerAddress  string          `json:"customer_address"`
	Pizzas           []PizzaSummary  `json:"pizzas"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DeliveryFee      decimal.Decimal `json:"delivery_fee"`
	Total            decimal.Decimal `json:"total"`
	EstimatedMinutes int             `json:"estimated_delivery_minutes"`
	Status           string          `json:"status"`
	StatusLabel      string          `json:"status_label"`
	ProgressPercent  float64         `json:"progress_percent"`
	CreatedAt        *Timestamp      `json:"created_at"`
	StartedAt        *Timestamp      `json:"started_at"`
	ReadyAt          *Timestamp      `json:"ready_at"`
	DeliveredAt      *Timestamp      `json:"delivered_at"`
}

// PizzaSummary is one priced pizza of a placed order.
type PizzaSummary struct {
	Name     string          `json:"name"`
	Size     string          `json:"size"`
	Toppings []string        `json:"toppings"`
	Price    decimal.Decimal `json:"price"`
}

// Timestamp accepts RFC 3339 as well as the zone-less ISO 8601 form the
// order API emits ("2025-03-01T12:30:05.123456"), read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
