package catalog

import (
	"strings"
	"unicode"

	"github.com/pizzeria-pos/storefront/internal/enum"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Prices is the per-size price table of a menu entry.
type Prices struct {
	Small  decimal.Decimal `json:"small"`
	Medium decimal.Decimal `json:"medium"`
	Large  decimal.Decimal `json:"large"`
}

// For returns the price for size. ok is false for an unknown size.
func (p Prices) For(size string) (price decimal.Decimal, ok bool) {
	switch size {
	case enum.SizeSmall:
		return p.Small, true
	case enum.SizeMedium:
		return p.Medium, true
	case enum.SizeLarge:
		return p.Large, true
	}
	return decimal.Zero, false
}

// MenuItem is one pizza of the menu as served by GET /pizzas/menu.
type MenuItem struct {
	Name         string   `json:"name"`
	BaseToppings []string `json:"base_toppings"`
	Prices       Prices   `json:"prices"`
}

func (m MenuItem) clone() MenuItem {
	m.BaseToppings = append([]string(nil), m.BaseToppings...)
	return m
}

// Topping is one entry of GET /topping/menu.
type Topping struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Catalog is an immutable menu + topping price list pair.
type Catalog struct {
	menu     []MenuItem
	toppings []Topping
	byKey    map[string]Topping
}

// New builds a Catalog. Negative topping prices are clamped to zero and the
// first topping wins when two names normalise to the same key.
func New(menu []MenuItem, toppings []Topping) *Catalog {
	c := &Catalog{
		menu:  make([]MenuItem, len(menu)),
		byKey: make(map[string]Topping, len(toppings)),
	}
	for i, m := range menu {
		c.menu[i] = m.clone()
	}
	for _, t := range toppings {
		if t.Price.IsNegative() {
			t.Price = decimal.Zero
		}
		key := ToppingKey(t.Name)
		if _, dup := c.byKey[key]; dup {
			continue
		}
		c.byKey[key] = t
		c.toppings = append(c.toppings, t)
	}
	return c
}

// Empty is the catalog used after a failed load.
func Empty() *Catalog {
	return New(nil, nil)
}

func (c *Catalog) Menu() []MenuItem {
	out := make([]MenuItem, len(c.menu))
	for i, m := range c.menu {
		out[i] = m.clone()
	}
	return out
}

func (c *Catalog) Item(index int) (MenuItem, bool) {
	if index < 0 || index >= len(c.menu) {
		return MenuItem{}, false
	}
	return c.menu[index].clone(), true
}

func (c *Catalog) Toppings() []Topping {
	return append([]Topping(nil), c.toppings...)
}

// ToppingPrice resolves a topping by name. ok is false when the name is not
// in the price list.
func (c *Catalog) ToppingPrice(name string) (decimal.Decimal, bool) {
	t, ok := c.byKey[ToppingKey(name)]
	if !ok {
		return decimal.Zero, false
	}
	return t.Price, true
}

func (c *Catalog) IsEmpty() bool {
	return len(c.menu) == 0 && len(c.toppings) == 0
}

// ToppingKey normalises a topping name for lookup: surrounding space is
// trimmed, case is folded and diacritics are removed, so "Chèvre" and
// "chevre" share a key.
func ToppingKey(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.TrimSpace(name))
	if err != nil {
		stripped = strings.TrimSpace(name)
	}
	return cases.Fold().String(stripped)
}
