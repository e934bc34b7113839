package catalog

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Source fetches the catalog from the order API.
// Satisfied by *apiclient.Client.
type Source interface {
	FetchToppings(ctx context.Context) ([]Topping, error)
	FetchMenu(ctx context.Context) ([]MenuItem, error)
}

// LoadError reports a failed menu or topping fetch. The cache is left empty.
type LoadError struct {
	Resource string // "toppings" or "menu"
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Resource, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Cache holds the catalog of one session. It is loaded explicitly and never
// refreshed in the background.
type Cache struct {
	source Source
	store  Store
	log    *zap.Logger

	mu         sync.RWMutex
	current    *Catalog
	generation uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore makes the cache read through a shared snapshot store before
// calling the source.
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// NewCache creates an empty Cache over source.
func NewCache(source Source, opts ...Option) *Cache {
	c := &Cache{source: source, current: Empty(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches toppings, then the menu, and swaps them in. Toppings come
// first because pricing depends on them. On any failure the cache is
// emptied and a *LoadError is returned. Every call bumps the generation.
func (c *Cache) Load(ctx context.Context) error {
	return c.load(ctx, true)
}

// Reload is Load without the shared store read: a manual reload always
// reaches the API, and the fresh result replaces the shared snapshot.
func (c *Cache) Reload(ctx context.Context) error {
	return c.load(ctx, false)
}

func (c *Cache) load(ctx context.Context, useStore bool) error {
	cat, err := c.fetch(ctx, useStore)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if err != nil {
		c.current = Empty()
		return err
	}
	c.current = cat
	return nil
}

func (c *Cache) fetch(ctx context.Context, useStore bool) (*Catalog, error) {
	if c.store != nil && useStore {
		snap, err := c.store.Get(ctx)
		switch {
		case err == nil && snap != nil:
			return New(snap.Menu, snap.Toppings), nil
		case err != nil:
			c.log.Warn("catalog store read failed", zap.Error(err))
		}
	}

	toppings, err := c.source.FetchToppings(ctx)
	if err != nil {
		return nil, &LoadError{Resource: "toppings", Err: err}
	}
	menu, err := c.source.FetchMenu(ctx)
	if err != nil {
		return nil, &LoadError{Resource: "menu", Err: err}
	}

	if c.store != nil {
		if err := c.store.Put(ctx, Snapshot{Menu: menu, Toppings: toppings}); err != nil {
			c.log.Warn("catalog store write failed", zap.Error(err))
		}
	}

	c.log.Info("catalog loaded", zap.Int("pizzas", len(menu)), zap.Int("toppings", len(toppings)))
	return New(menu, toppings), nil
}

// Catalog returns the currently loaded catalog.
func (c *Cache) Catalog() *Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Generation identifies the current load. Index-keyed state derived from an
// older generation must be discarded.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

func (c *Cache) Menu() []MenuItem { return c.Catalog().Menu() }

func (c *Cache) Item(index int) (MenuItem, bool) { return c.Catalog().Item(index) }

func (c *Cache) Toppings() []Topping { return c.Catalog().Toppings() }
