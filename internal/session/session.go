// Package session holds the state of one storefront tab: its catalog, the
// pending topping selections, the cart and the orders it placed.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pizzeria-pos/storefront/internal/cart"
	"github.com/pizzeria-pos/storefront/internal/catalog"
	"github.com/pizzeria-pos/storefront/internal/enum"
	"github.com/pizzeria-pos/storefront/internal/events"
	"github.com/pizzeria-pos/storefront/internal/order"
	"github.com/pizzeria-pos/storefront/internal/selection"
	"go.uber.org/zap"
)

// Errors returned by session operations.
var (
	ErrUnknownMenuItem = errors.New("unknown menu item")
	ErrCatalogEmpty    = errors.New("catalog not loaded")
)

// publishTimeout bounds one lifecycle event publish.
const publishTimeout = 5 * time.Second

// CartSummary is the cart as shown to the customer.
type CartSummary struct {
	Lines        []cart.Line `json:"lines"`
	Totals       cart.Totals `json:"totals"`
	FreeDelivery bool        `json:"free_delivery"`
}

// Session is one tab. All methods are safe for concurrent use; Checkout is
// serialised so that a cart is submitted and disposed of at most once.
type Session struct {
	ID        uuid.UUID
	Surface   string
	CreatedAt time.Time

	catalog    *catalog.Cache
	selections *selection.Builder
	cart       *cart.Cart
	submitter  *order.Submitter
	publisher  events.Publisher
	log        *zap.Logger

	checkoutMu sync.Mutex

	mu       sync.Mutex
	orders   []int64
	lastSeen time.Time
}

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Source    catalog.Source
	Store     catalog.Store
	Placer    order.Placer
	Publisher events.Publisher
	Log       *zap.Logger
}

// New creates a session with an empty catalog. Call LoadCatalog before use.
func New(surface string, d Deps) *Session {
	if !enum.IsValidSurface(surface) {
		surface = enum.SurfaceCustomer
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	pub := d.Publisher
	if pub == nil {
		pub = events.Nop{}
	}

	id := uuid.New()
	log = log.With(zap.String("session_id", id.String()))

	opts := []catalog.Option{catalog.WithLogger(log)}
	if d.Store != nil {
		opts = append(opts, catalog.WithStore(d.Store))
	}

	now := time.Now()
	return &Session{
		ID:         id,
		Surface:    surface,
		CreatedAt:  now,
		catalog:    catalog.NewCache(d.Source, opts...),
		selections: selection.NewBuilder(),
		cart:       cart.New(),
		submitter:  order.NewSubmitter(d.Placer, log),
		publisher:  pub,
		log:        log,
		lastSeen:   now,
	}
}

// LoadCatalog loads the catalog, reading the shared snapshot first.
func (s *Session) LoadCatalog(ctx context.Context) error {
	err := s.catalog.Load(ctx)
	s.selections.Sync(s.catalog.Generation())
	return err
}

// ReloadCatalog fetches the catalog from the API. Pending selections are
// dropped because menu indices may now point elsewhere; cart lines keep the
// prices they were added at.
func (s *Session) ReloadCatalog(ctx context.Context) error {
	err := s.catalog.Reload(ctx)
	s.selections.Sync(s.catalog.Generation())
	return err
}

// Menu returns the loaded menu.
func (s *Session) Menu() []catalog.MenuItem {
	return s.catalog.Menu()
}

// Toppings returns the loaded topping price list.
func (s *Session) Toppings() []catalog.Topping {
	return s.catalog.Toppings()
}

// SetExtraToppings replaces the extras pending for menu entry menuIndex.
func (s *Session) SetExtraToppings(menuIndex int, names []string) error {
	s.selections.Sync(s.catalog.Generation())
	if _, ok := s.catalog.Item(menuIndex); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownMenuItem, menuIndex)
	}
	s.selections.SetExtraToppings(menuIndex, names)
	return nil
}

// ExtraToppings returns the extras pending for menuIndex.
func (s *Session) ExtraToppings(menuIndex int) []string {
	s.selections.Sync(s.catalog.Generation())
	return s.selections.ExtraToppings(menuIndex)
}

// AddToCart prices menu entry menuIndex at size with its pending extras and
// appends it to the cart. The selection is left in place.
func (s *Session) AddToCart(menuIndex int, size string) (cart.Line, error) {
	cat := s.catalog.Catalog()
	if cat.IsEmpty() {
		return cart.Line{}, ErrCatalogEmpty
	}
	s.selections.Sync(s.catalog.Generation())

	item, ok := cat.Item(menuIndex)
	if !ok {
		return cart.Line{}, fmt.Errorf("%w: %d", ErrUnknownMenuItem, menuIndex)
	}
	line, err := s.cart.Add(item, size, s.selections.ExtraToppings(menuIndex), cat)
	if err != nil {
		return cart.Line{}, err
	}
	s.log.Debug("cart line added",
		zap.String("pizza", line.Name),
		zap.String("size", line.Size),
		zap.String("unit_price", line.UnitPrice.StringFixed(2)),
	)
	return line, nil
}

// RemoveFromCart removes the line at position.
func (s *Session) RemoveFromCart(position int) error {
	return s.cart.Remove(position)
}

// Cart returns the current lines and totals.
func (s *Session) Cart() CartSummary {
	lines := s.cart.Lines()
	totals := s.cart.Totals()
	return CartSummary{Lines: lines, Totals: totals, FreeDelivery: totals.FreeDelivery()}
}

// Checkout submits the cart. On success the cart is cleared and selections
// reset; on any failure both are left untouched so the customer can retry.
func (s *Session) Checkout(ctx context.Context, customerName string, addr order.Address) (*order.Receipt, error) {
	s.checkoutMu.Lock()
	defer s.checkoutMu.Unlock()

	lines := s.cart.Lines()
	receipt, err := s.submitter.Submit(ctx, lines, customerName, addr)
	if err != nil {
		return nil, err
	}

	s.cart.Clear()
	s.selections.Reset()

	s.mu.Lock()
	s.orders = append(s.orders, receipt.OrderID)
	s.mu.Unlock()

	total := receipt.Total
	go s.publish(ctx, events.Event{
		Type:      events.TypeOrderPlaced,
		OrderID:   receipt.OrderID,
		SessionID: s.ID.String(),
		Total:     &total,
		Pizzas:    len(lines),
		At:        time.Now().UTC(),
	})
	return receipt, nil
}

// publish sends e off the checkout path. The request may already be done
// when the broker answers, so only ctx's values are kept.
func (s *Session) publish(ctx context.Context, e events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn("publish order event", zap.String("type", e.Type), zap.Int64("order_id", e.OrderID), zap.Error(err))
	}
}

// Orders returns the ids of orders placed from this session, oldest first.
func (s *Session) Orders() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.orders...)
}

// Touch records activity.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns the time of the last recorded activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
