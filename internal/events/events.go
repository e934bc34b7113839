// Package events publishes order lifecycle events observed by the storefront.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Event types.
const (
	TypeOrderPlaced   = "order.placed"
	TypeStatusChanged = "order.status_changed"
)

// Event is one lifecycle event. Total is set for order.placed; the status
// fields for order.status_changed.
type Event struct {
	Type           string           `json:"type"`
	OrderID        int64            `json:"order_id"`
	SessionID      string           `json:"session_id,omitempty"`
	Status         string           `json:"status,omitempty"`
	PreviousStatus string           `json:"previous_status,omitempty"`
	Total          *decimal.Decimal `json:"total,omitempty"`
	Pizzas         int              `json:"pizzas,omitempty"`
	At             time.Time        `json:"at"`
}

// Publisher sends events somewhere. Publish must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// KafkaPublisher writes events as JSON keyed by order id, so that all events
// of one order land on the same partition.
type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: writer}
}

// NewKafkaWriter builds the writer used by cmd/server.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(e.OrderID, 10)),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.Writer.Close()
}

// Logging wraps a Publisher and logs failures instead of returning them.
// Event delivery never fails the operation that produced the event.
type Logging struct {
	next Publisher
	log  *zap.Logger
}

func NewLogging(next Publisher, log *zap.Logger) *Logging {
	if next == nil {
		next = Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Logging{next: next, log: log}
}

func (l *Logging) Publish(ctx context.Context, e Event) error {
	if err := l.next.Publish(ctx, e); err != nil {
		l.log.Warn("event publish failed",
			zap.String("type", e.Type),
			zap.Int64("order_id", e.OrderID),
			zap.Error(err),
		)
	}
	return nil
}
