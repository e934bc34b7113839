package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pizzeria-pos/storefront/internal/enum"
	"go.uber.org/zap"
)

// Errors returned by the tracking core.
var (
	ErrNotFound         = errors.New("order not found")
	ErrStale            = errors.New("stale response discarded")
	ErrNoNextAction     = errors.New("order status has no next action")
	ErrActionNotAllowed = errors.New("status actions are not available on this surface")
	ErrInvalidOrderID   = errors.New("invalid order id")
)

// StatusFetcher reads one order snapshot. Implementations return an error
// wrapping ErrNotFound for unknown ids.
// Satisfied by *apiclient.Client.
type StatusFetcher interface {
	OrderStatus(ctx context.Context, orderID int64) (*Snapshot, error)
}

// Listener is notified after a view has been applied. previousStatus is empty
// the first time an order is seen.
type Listener interface {
	ViewApplied(v View, previousStatus string)
}

// Listeners fans a view out to several listeners in order.
type Listeners []Listener

func (ls Listeners) ViewApplied(v View, previousStatus string) {
	for _, l := range ls {
		l.ViewApplied(v, previousStatus)
	}
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(v View, previousStatus string)

func (f ListenerFunc) ViewApplied(v View, previousStatus string) { f(v, previousStatus) }

// sequencer hands out request numbers so that only the response to the
// latest request for a target is applied. Numbers come from one counter
// shared by all targets, so a finished target can be dropped without a later
// request reusing a number still in flight. Only targets with a request in
// flight have an entry.
type sequencer[K comparable] struct {
	mu      sync.Mutex
	counter uint64
	issued  map[K]uint64
}

func newSequencer[K comparable]() *sequencer[K] {
	return &sequencer[K]{issued: make(map[K]uint64)}
}

func (s *sequencer[K]) next(target K) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	s.issued[target] = s.counter
	return s.counter
}

// finish reports whether seq is the latest request for target and, if so,
// drops the target's entry.
func (s *sequencer[K]) finish(target K, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.issued[target] != seq {
		return false
	}
	delete(s.issued, target)
	return true
}

func (s *sequencer[K]) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issued)
}

// Tracker projects single orders. Timer-driven and on-demand refreshes share
// it; a response that was overtaken by a newer request is dropped.
type Tracker struct {
	fetcher  StatusFetcher
	surface  string
	log      *zap.Logger
	seq      *sequencer[int64]
	listener Listener

	// mu guards views; the staleness check and the apply happen under it
	// together.
	mu    sync.Mutex
	views map[int64]View
}

// NewTracker creates a Tracker rendering for surface.
func NewTracker(fetcher StatusFetcher, surface string, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	if !enum.IsValidSurface(surface) {
		surface = enum.SurfaceCustomer
	}
	return &Tracker{
		fetcher: fetcher,
		surface: surface,
		log:     log,
		seq:     newSequencer[int64](),
		views:   make(map[int64]View),
	}
}

// SetListener registers the listener notified of applied views.
func (t *Tracker) SetListener(l Listener) {
	t.listener = l
}

// Project fetches and renders the current state of orderID. It returns
// ErrStale when a newer request for the same order was issued meanwhile;
// the previously applied view is kept in that case.
func (t *Tracker) Project(ctx context.Context, orderID int64) (View, error) {
	if orderID <= 0 {
		return View{}, ErrInvalidOrderID
	}
	seq := t.seq.next(orderID)

	snap, err := t.fetcher.OrderStatus(ctx, orderID)
	if err != nil {
		if !t.seq.finish(orderID, seq) {
			return View{}, ErrStale
		}
		if errors.Is(err, ErrNotFound) {
			t.Forget(orderID)
			return View{}, err
		}
		return View{}, fmt.Errorf("fetch order %d: %w", orderID, err)
	}

	v := Render(*snap, t.surface)

	t.mu.Lock()
	if !t.seq.finish(orderID, seq) {
		t.mu.Unlock()
		t.log.Debug("discarding stale order status", zap.Int64("order_id", orderID), zap.Uint64("seq", seq))
		return View{}, ErrStale
	}
	prev, seen := t.views[orderID]
	t.views[orderID] = v
	t.mu.Unlock()

	previousStatus := ""
	if seen {
		previousStatus = prev.Status
	}
	if t.listener != nil {
		t.listener.ViewApplied(v, previousStatus)
	}
	return v, nil
}

// Current returns the last applied view of orderID.
func (t *Tracker) Current(orderID int64) (View, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.views[orderID]
	return v, ok
}

// Forget drops the cached view of orderID.
func (t *Tracker) Forget(orderID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.views, orderID)
}

// Retain drops the cached views of every order not in ids and returns how
// many were dropped. A dropped order is seen afresh on its next Project.
func (t *Tracker) Retain(ids []int64) int {
	keep := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id := range t.views {
		if _, ok := keep[id]; !ok {
			delete(t.views, id)
			n++
		}
	}
	return n
}

// Len returns the number of cached views.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.views)
}
