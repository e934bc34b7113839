package tracking

import (
	"context"
	"fmt"
	"sync"

	"github.com/pizzeria-pos/storefront/internal/enum"
	"go.uber.org/zap"
)

// QueueSource reads the admin order board (GET /admin/orders).
// Satisfied by *apiclient.Client.
type QueueSource interface {
	AdminOrders(ctx context.Context) (map[string][]Snapshot, error)
}

// Advancer posts a status-advance action (POST /admin/orders/{id}/{action}).
// Satisfied by *apiclient.Client.
type Advancer interface {
	AdvanceOrder(ctx context.Context, orderID int64, action string) error
}

// QueueView is the display form of the order board.
type QueueView struct {
	Counts      map[string]int    `json:"counts"`
	TotalOrders int               `json:"total_orders"`
	ByStatus    map[string][]View `json:"orders_by_status"`
}

// Orders returns the views of one status column in server order.
func (q QueueView) Orders(status string) []View {
	return q.ByStatus[status]
}

// RenderQueue projects a board grouped by status. Every known status gets a
// count, zero when absent; unknown statuses are kept as-is.
func RenderQueue(board map[string][]Snapshot, surface string) QueueView {
	qv := QueueView{
		Counts:   make(map[string]int, len(enum.OrderStatuses)),
		ByStatus: make(map[string][]View, len(board)),
	}
	for _, s := range enum.OrderStatuses {
		qv.Counts[s] = 0
	}
	for status, snaps := range board {
		views := make([]View, len(snaps))
		for i, snap := range snaps {
			views[i] = Render(snap, surface)
		}
		qv.ByStatus[status] = views
		qv.Counts[status] = len(views)
		qv.TotalOrders += len(views)
	}
	return qv
}

const queueTarget = "admin/orders"

// Queue keeps the last applied order board. Like Tracker, overlapping
// refreshes only apply the response to the latest request.
type Queue struct {
	source   QueueSource
	advancer Advancer
	surface  string
	log      *zap.Logger
	seq      *sequencer[string]

	mu      sync.Mutex
	current QueueView
	loaded  bool

	onApply func(QueueView)
}

// NewQueue creates a Queue. advancer may be nil for a browse-only board.
func NewQueue(source QueueSource, advancer Advancer, surface string, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	if !enum.IsValidSurface(surface) {
		surface = enum.SurfaceCustomer
	}
	return &Queue{
		source:   source,
		advancer: advancer,
		surface:  surface,
		log:      log,
		seq:      newSequencer[string](),
	}
}

// OnApply registers a callback run after each applied refresh.
func (q *Queue) OnApply(fn func(QueueView)) {
	q.onApply = fn
}

// Refresh fetches the board and applies it unless a newer refresh was
// issued meanwhile (ErrStale).
func (q *Queue) Refresh(ctx context.Context) (QueueView, error) {
	seq := q.seq.next(queueTarget)

	board, err := q.source.AdminOrders(ctx)
	if err != nil {
		if !q.seq.finish(queueTarget, seq) {
			return QueueView{}, ErrStale
		}
		return QueueView{}, fmt.Errorf("fetch order board: %w", err)
	}

	qv := RenderQueue(board, q.surface)

	q.mu.Lock()
	if !q.seq.finish(queueTarget, seq) {
		q.mu.Unlock()
		return QueueView{}, ErrStale
	}
	q.current = qv
	q.loaded = true
	q.mu.Unlock()

	if q.onApply != nil {
		q.onApply(qv)
	}
	return qv, nil
}

// Current returns the last applied board.
func (q *Queue) Current() (QueueView, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current, q.loaded
}

// Advance moves orderID one step forward from status, then refreshes the
// board. Only the admin surface may advance orders.
func (q *Queue) Advance(ctx context.Context, orderID int64, status string) (QueueView, error) {
	if q.surface != enum.SurfaceAdmin || q.advancer == nil {
		return QueueView{}, ErrActionNotAllowed
	}
	if orderID <= 0 {
		return QueueView{}, ErrInvalidOrderID
	}
	action, ok := NextAction(status)
	if !ok {
		return QueueView{}, fmt.Errorf("%w: %s", ErrNoNextAction, status)
	}

	if err := q.advancer.AdvanceOrder(ctx, orderID, action); err != nil {
		return QueueView{}, fmt.Errorf("advance order %d (%s): %w", orderID, action, err)
	}
	q.log.Info("order advanced", zap.Int64("order_id", orderID), zap.String("action", action))

	return q.Refresh(ctx)
}
