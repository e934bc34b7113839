package events

import (
	"context"
	"time"

	"github.com/pizzeria-pos/storefront/internal/tracking"
)

const publishTimeout = 5 * time.Second

// StatusListener turns applied tracking views into status_changed events.
// The first sighting of an order and unchanged statuses are not events.
type StatusListener struct {
	pub Publisher
	now func() time.Time
}

func NewStatusListener(pub Publisher) *StatusListener {
	return &StatusListener{pub: pub, now: time.Now}
}

// ViewApplied implements tracking.Listener.
func (l *StatusListener) ViewApplied(v tracking.View, previousStatus string) {
	if previousStatus == "" || previousStatus == v.Status {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	_ = l.pub.Publish(ctx, Event{
		Type:           TypeStatusChanged,
		OrderID:        v.OrderID,
		Status:         v.Status,
		PreviousStatus: previousStatus,
		At:             l.now().UTC(),
	})
}

// QueueDiff reports status changes between two order boards, for callers
// that only see whole boards (the admin poller). Events are stamped with at.
func QueueDiff(prev, next tracking.QueueView, at time.Time) []Event {
	before := make(map[int64]string)
	for status, views := range prev.ByStatus {
		for _, v := range views {
			before[v.OrderID] = status
		}
	}
	var out []Event
	for status, views := range next.ByStatus {
		for _, v := range views {
			old, ok := before[v.OrderID]
			if !ok || old == status {
				continue
			}
			out = append(out, Event{
				Type:           TypeStatusChanged,
				OrderID:        v.OrderID,
				Status:         status,
				PreviousStatus: old,
				At:             at.UTC(),
			})
		}
	}
	return out
}
