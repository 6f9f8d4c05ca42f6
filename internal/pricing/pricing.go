// Package pricing computes line and cart totals. Every function is pure.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tokoisi/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

type Line struct {
	UnitPrice   decimal.Decimal
	BuyingPrice decimal.Decimal
	Quantity    int
	Discount    *domain.Discount
}

type LineTotals struct {
	Gross    decimal.Decimal `json:"gross"`
	Discount decimal.Decimal `json:"discount"`
	Net      decimal.Decimal `json:"net"`
	Profit   decimal.Decimal `json:"profit"`
}

type Totals struct {
	Gross    decimal.Decimal `json:"gross"`
	Discount decimal.Decimal `json:"discount"`
	Net      decimal.Decimal `json:"net"`
	Profit   decimal.Decimal `json:"profit"`
}

func LineGross(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

// LineDiscount applies d to a line. A fixed discount is taken once per unit,
// so a fixed 5 on a line of 3 is 15.
func LineDiscount(gross decimal.Decimal, qty int, d *domain.Discount) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	switch d.Kind {
	case domain.DiscountPercentage:
		return gross.Mul(d.Value).Shift(-2)
	case domain.DiscountFixed:
		return d.Value.Mul(decimal.NewFromInt(int64(qty)))
	default:
		return decimal.Zero
	}
}

func LineTotal(l Line) LineTotals {
	gross := LineGross(l.UnitPrice, l.Quantity)
	discount := LineDiscount(gross, l.Quantity, l.Discount)
	net := decimal.Max(decimal.Zero, gross.Sub(discount))
	cost := l.BuyingPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))

	return LineTotals{
		Gross:    gross,
		Discount: discount,
		Net:      net,
		Profit:   net.Sub(cost),
	}
}

// CartTotals sums the lines. Net is Gross minus Discount, not the sum of the
// floored line nets, so it can go below the sum of line nets when a line's
// discount exceeds its gross.
func CartTotals(lines []Line) Totals {
	totals := Totals{
		Gross:    decimal.Zero,
		Discount: decimal.Zero,
		Profit:   decimal.Zero,
	}
	for _, line := range lines {
		lt := LineTotal(line)
		totals.Gross = totals.Gross.Add(lt.Gross)
		totals.Discount = totals.Discount.Add(lt.Discount)
		totals.Profit = totals.Profit.Add(lt.Profit)
	}
	totals.Net = totals.Gross.Sub(totals.Discount)
	return totals
}

// ValidateDiscount runs when a discount is created. Applying a stored
// discount does not validate again.
func ValidateDiscount(kind domain.DiscountKind, value decimal.Decimal) error {
	switch kind {
	case domain.DiscountPercentage, domain.DiscountFixed:
	default:
		return fmt.Errorf("%w: unknown discount kind %q", domain.ErrValidation, kind)
	}
	if !value.IsPositive() {
		return fmt.Errorf("%w: discount value must be greater than zero", domain.ErrValidation)
	}
	if kind == domain.DiscountPercentage && value.GreaterThan(hundred) {
		return fmt.Errorf("%w: percentage discount cannot exceed 100", domain.ErrValidation)
	}
	return nil
}

// Change is tendered minus net. Negative means the customer is short.
func Change(tendered, net decimal.Decimal) decimal.Decimal {
	return tendered.Sub(net)
}

func DisplayChange(tendered, net decimal.Decimal) domain.ChangeDisplay {
	change := Change(tendered, net)
	return domain.ChangeDisplay{
		Amount: change.Abs(),
		Short:  change.IsNegative(),
	}
}
