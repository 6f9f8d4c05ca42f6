// Package cart holds the line items of one checkout session.
//
// A Cart is owned by a single session and is not safe for concurrent use.
package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/pricing"
	"tokoisi/backend/internal/xid"
)

const RefillPrefix = "refill"

var ErrLineNotFound = errors.New("cart line not found")

type Item struct {
	Product  domain.Product   `json:"product"`
	Quantity int              `json:"quantity"`
	Discount *domain.Discount `json:"discount,omitempty"`
}

// ID is the product id of the line. Refill lines carry a fresh synthetic id.
func (i Item) ID() string {
	return i.Product.ID
}

func (i Item) pricingLine() pricing.Line {
	return pricing.Line{
		UnitPrice:   i.Product.SellingPrice,
		BuyingPrice: i.Product.BuyingPrice,
		Quantity:    i.Quantity,
		Discount:    i.Discount,
	}
}

func (i Item) Totals() pricing.LineTotals {
	return pricing.LineTotal(i.pricingLine())
}

type Cart struct {
	items []Item
}

func New() *Cart {
	return &Cart{}
}

// Add appends product with quantity 1, or bumps the existing line by one.
func (c *Cart) Add(product domain.Product) error {
	if idx := c.index(product.ID); idx >= 0 {
		return c.setAt(idx, c.items[idx].Quantity+1)
	}
	if err := checkStock(product, 1); err != nil {
		return err
	}
	c.items = append(c.items, Item{Product: product, Quantity: 1})
	return nil
}

// AddRefill materializes option as a synthetic product and appends it as a
// new line. A nil price uses the option's default price.
func (c *Cart) AddRefill(option domain.RefillOption, price *decimal.Decimal) (domain.Product, error) {
	unit := option.DefaultPrice
	if price != nil {
		unit = *price
	}
	if unit.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: refill price cannot be negative", domain.ErrValidation)
	}

	product := domain.Product{
		ID:           xid.New(RefillPrefix),
		Name:         option.Name,
		BuyingPrice:  decimal.Zero,
		SellingPrice: unit,
		Synthetic:    true,
	}
	c.items = append(c.items, Item{Product: product, Quantity: 1})
	return product, nil
}

// SetQuantity sets the absolute quantity of a line. Zero or less removes it.
func (c *Cart) SetQuantity(id string, qty int) error {
	idx := c.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, id)
	}
	return c.setAt(idx, qty)
}

// Adjust changes the quantity of a line by delta.
func (c *Cart) Adjust(id string, delta int) error {
	idx := c.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, id)
	}
	return c.setAt(idx, c.items[idx].Quantity+delta)
}

func (c *Cart) Remove(id string) error {
	idx := c.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, id)
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	return nil
}

// ApplyDiscount replaces the discount on a line. A nil discount clears it.
func (c *Cart) ApplyDiscount(id string, d *domain.Discount) error {
	idx := c.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, id)
	}
	if d != nil {
		copied := *d
		d = &copied
	}
	c.items[idx].Discount = d
	return nil
}

func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Totals() pricing.Totals {
	lines := make([]pricing.Line, 0, len(c.items))
	for _, item := range c.items {
		lines = append(lines, item.pricingLine())
	}
	return pricing.CartTotals(lines)
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

func (c *Cart) index(id string) int {
	for i, item := range c.items {
		if item.Product.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) setAt(idx int, qty int) error {
	if qty <= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
		return nil
	}
	if err := checkStock(c.items[idx].Product, qty); err != nil {
		return err
	}
	c.items[idx].Quantity = qty
	return nil
}

func checkStock(product domain.Product, qty int) error {
	if product.Synthetic {
		return nil
	}
	if qty > product.StockQuantity {
		return fmt.Errorf("%w: %s has %d in stock, requested %d", domain.ErrStockConflict, product.Name, product.StockQuantity, qty)
	}
	return nil
}
