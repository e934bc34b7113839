// Package selection holds the in-progress extra-topping choices of each menu
// entry before it is committed to the cart.
package selection

import (
	"strings"
	"sync"

	"github.com/pizzeria-pos/storefront/internal/catalog"
)

// Builder keys selections by menu index. The index is a lookup into the
// catalog only, so selections are dropped whenever the catalog reloads.
type Builder struct {
	mu         sync.Mutex
	extras     map[int][]string
	generation uint64
}

func NewBuilder() *Builder {
	return &Builder{extras: make(map[int][]string)}
}

// SetExtraToppings replaces the pending extras of menuIndex. Blank names are
// dropped and names sharing a catalog.ToppingKey collapse to their first
// spelling. An empty set clears the entry.
func (b *Builder) SetExtraToppings(menuIndex int, names []string) {
	set := dedupe(names)

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(set) == 0 {
		delete(b.extras, menuIndex)
		return
	}
	b.extras[menuIndex] = set
}

// ExtraToppings returns a copy of the pending extras, empty for unseen
// indices.
func (b *Builder) ExtraToppings(menuIndex int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.extras[menuIndex]...)
}

// Reset drops every selection.
func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.extras = make(map[int][]string)
}

// Sync resets the builder when the catalog generation moved since the last
// call and reports whether it did.
func (b *Builder) Sync(generation uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if generation == b.generation {
		return false
	}
	b.generation = generation
	b.extras = make(map[int][]string)
	return true
}

func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.extras)
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := catalog.ToppingKey(n)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}
