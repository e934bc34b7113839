package cart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pizzeria-pos/storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

// Delivery pricing rule.
var (
	DeliveryFee           = decimal.NewFromInt(5)
	FreeDeliveryThreshold = decimal.NewFromInt(30)
)

// Errors returned by the cart.
var (
	ErrOutOfRange  = errors.New("cart position out of range")
	ErrInvalidSize = errors.New("invalid size")
)

// ToppingPricer resolves extra topping prices.
// Satisfied by *catalog.Catalog.
type ToppingPricer interface {
	ToppingPrice(name string) (decimal.Decimal, bool)
}

// Line is one priced pizza in the cart. Its price is fixed when it is added.
type Line struct {
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Toppings  []string        `json:"toppings"`
}

func (l Line) clone() Line {
	l.Toppings = append([]string(nil), l.Toppings...)
	return l
}

// Totals is the priced summary of a cart.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
}

// FreeDelivery reports whether the delivery fee was waived.
func (t Totals) FreeDelivery() bool {
	return t.DeliveryFee.IsZero()
}

// Cart is an ordered list of lines; insertion order is display order.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Price computes the unit price of item in size with extras. Extras missing
// from the price list add nothing.
func Price(item catalog.MenuItem, size string, extras []string, prices ToppingPricer) (decimal.Decimal, error) {
	base, ok := item.Prices.For(size)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidSize, size)
	}
	unit := base
	for _, name := range extras {
		if p, ok := prices.ToppingPrice(name); ok {
			unit = unit.Add(p)
		}
	}
	return unit, nil
}

// Add prices item and appends it. The line lists the base toppings followed
// by the extras; an extra that repeats a base topping is listed twice.
func (c *Cart) Add(item catalog.MenuItem, size string, extras []string, prices ToppingPricer) (Line, error) {
	unit, err := Price(item, size, extras, prices)
	if err != nil {
		return Line{}, err
	}

	toppings := make([]string, 0, len(item.BaseToppings)+len(extras))
	toppings = append(toppings, item.BaseToppings...)
	toppings = append(toppings, extras...)

	line := Line{
		Name:      item.Name,
		Size:      size,
		UnitPrice: unit,
		Toppings:  toppings,
	}

	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()

	return line.clone(), nil
}

// Remove deletes the line at position; later lines shift down by one.
func (c *Cart) Remove(position int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if position < 0 || position >= len(c.lines) {
		return fmt.Errorf("%w: %d (cart has %d lines)", ErrOutOfRange, position, len(c.lines))
	}
	c.lines = append(c.lines[:position], c.lines[position+1:]...)
	return nil
}

// Totals recomputes the summary from the current lines.
func (c *Cart) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return computeTotals(c.lines)
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the lines in display order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	for i, l := range c.lines {
		out[i] = l.clone()
	}
	return out
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// DeliveryFeeFor applies the delivery rule to a subtotal.
func DeliveryFeeFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return DeliveryFee
}

func computeTotals(lines []Line) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice)
	}
	fee := DeliveryFeeFor(subtotal)
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal.Add(fee),
	}
}
