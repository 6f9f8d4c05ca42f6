package cart

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"tokoisi/backend/internal/domain"
)

func product(id string, price int64, stock int) domain.Product {
	return domain.Product{
		ID:            id,
		Name:          "Produk " + id,
		BuyingPrice:   decimal.NewFromInt(price / 2),
		SellingPrice:  decimal.NewFromInt(price),
		StockQuantity: stock,
	}
}

func TestAddIncrementsExistingLine(t *testing.T) {
	c := New()
	p := product("p1", 150, 5)

	if err := c.Add(p); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Add(p); err != nil {
		t.Fatalf("add again: %v", err)
	}

	items := c.Items()
	if len(items) != 1 {
		t.Fatalf("expected one line, got %d", len(items))
	}
	if items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", items[0].Quantity)
	}
}

func TestAddRespectsStockCeiling(t *testing.T) {
	c := New()
	p := product("p1", 10, 1)

	if err := c.Add(p); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Add(p); !errors.Is(err, domain.ErrStockConflict) {
		t.Fatalf("expected stock conflict, got %v", err)
	}
	if c.Items()[0].Quantity != 1 {
		t.Fatalf("quantity changed after rejected add")
	}

	if err := c.Add(product("empty", 10, 0)); !errors.Is(err, domain.ErrStockConflict) {
		t.Fatalf("expected stock conflict for out-of-stock product, got %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("out-of-stock product must not be appended")
	}
}

func TestSetQuantityAboveStockLeavesQuantityUnchanged(t *testing.T) {
	c := New()
	if err := c.Add(product("p1", 10, 3)); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := c.SetQuantity("p1", 4); !errors.Is(err, domain.ErrStockConflict) {
		t.Fatalf("expected stock conflict, got %v", err)
	}
	if got := c.Items()[0].Quantity; got != 1 {
		t.Fatalf("expected quantity 1, got %d", got)
	}

	if err := c.SetQuantity("p1", 3); err != nil {
		t.Fatalf("set quantity within stock: %v", err)
	}
	if got := c.Items()[0].Quantity; got != 3 {
		t.Fatalf("expected quantity 3, got %d", got)
	}
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	c := New()
	_ = c.Add(product("p1", 10, 3))
	_ = c.Add(product("p2", 20, 3))

	if err := c.SetQuantity("p1", 0); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if c.Len() != 1 || c.Items()[0].ID() != "p2" {
		t.Fatalf("expected only p2 left, got %+v", c.Items())
	}

	if err := c.Adjust("p2", -1); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("expected empty cart")
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	c := New()
	for _, id := range []string{"c", "a", "b"} {
		if err := c.Add(product(id, 5, 10)); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	_ = c.Add(product("a", 5, 10))

	var ids []string
	for _, item := range c.Items() {
		ids = append(ids, item.ID())
	}
	if strings.Join(ids, ",") != "c,a,b" {
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestRefillLinesBypassStockAndNeverMerge(t *testing.T) {
	c := New()
	option := domain.RefillOption{ID: "r1", Name: "Isi ulang 19L", Volume: decimal.NewFromInt(19), DefaultPrice: decimal.NewFromInt(6000), Active: true}

	first, err := c.AddRefill(option, nil)
	if err != nil {
		t.Fatalf("add refill: %v", err)
	}
	custom := decimal.NewFromInt(5000)
	second, err := c.AddRefill(option, &custom)
	if err != nil {
		t.Fatalf("add refill with price: %v", err)
	}

	if first.ID == second.ID {
		t.Fatalf("refill lines must get distinct ids")
	}
	if !first.Synthetic || !strings.HasPrefix(first.ID, RefillPrefix+"-") {
		t.Fatalf("unexpected synthetic product %+v", first)
	}
	if !first.BuyingPrice.IsZero() {
		t.Fatalf("refill cost should be zero")
	}

	if err := c.SetQuantity(first.ID, 50); err != nil {
		t.Fatalf("refill quantity should not be capped: %v", err)
	}
	if !second.SellingPrice.Equal(custom) {
		t.Fatalf("expected overridden price, got %s", second.SellingPrice)
	}

	negative := decimal.NewFromInt(-1)
	if _, err := c.AddRefill(option, &negative); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyDiscountReplacesAndClears(t *testing.T) {
	c := New()
	_ = c.Add(product("p1", 100, 5))

	ten := &domain.Discount{ID: "d1", Kind: domain.DiscountPercentage, Value: decimal.NewFromInt(10)}
	five := &domain.Discount{ID: "d2", Kind: domain.DiscountFixed, Value: decimal.NewFromInt(5)}

	if err := c.ApplyDiscount("p1", ten); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := c.ApplyDiscount("p1", five); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := c.Items()[0].Discount; got == nil || got.ID != "d2" {
		t.Fatalf("expected d2 to replace d1, got %+v", got)
	}
	if !c.Totals().Discount.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("discounts must not stack, got %s", c.Totals().Discount)
	}

	if err := c.ApplyDiscount("p1", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if c.Items()[0].Discount != nil {
		t.Fatalf("expected discount cleared")
	}
}

func TestUnknownLine(t *testing.T) {
	c := New()
	if err := c.Remove("missing"); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound, got %v", err)
	}
	if err := c.ApplyDiscount("missing", nil); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound, got %v", err)
	}
}

func TestTotals(t *testing.T) {
	c := New()
	_ = c.Add(product("p1", 150, 5))
	_ = c.Add(product("p1", 150, 5))

	totals := c.Totals()
	if !totals.Net.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected net 300, got %s", totals.Net)
	}
	if !totals.Profit.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected profit 150, got %s", totals.Profit)
	}

	c.Clear()
	if !c.IsEmpty() || !c.Totals().Net.IsZero() {
		t.Fatalf("expected cleared cart")
	}
}
