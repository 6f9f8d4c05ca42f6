// Package report aggregates persisted sales for the dashboard charts.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tokoisi/backend/internal/domain"
)

const (
	TopCategoryLimit  = 5
	UncategorizedName = "Uncategorized"
)

// Window is the half-open interval [From, To). Daily buckets use From's location.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Validate() error {
	if w.From.IsZero() || w.To.IsZero() {
		return fmt.Errorf("%w: report window needs from and to", domain.ErrValidation)
	}
	if !w.To.After(w.From) {
		return fmt.Errorf("%w: report window end must be after start", domain.ErrValidation)
	}
	if w.To.Sub(w.From) > 366*24*time.Hour {
		return fmt.Errorf("%w: report window cannot exceed one year", domain.ErrValidation)
	}
	return nil
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// Preset resolves today, 7d, 30d and 90d to whole calendar days ending today.
func Preset(name string, now time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.Local
	}
	days := 0
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "today":
		days = 1
	case "7d":
		days = 7
	case "30d":
		days = 30
	case "90d":
		days = 90
	default:
		return Window{}, fmt.Errorf("%w: unknown report range %q", domain.ErrValidation, name)
	}

	local := now.In(loc)
	tomorrow := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return Window{From: tomorrow.AddDate(0, 0, -days), To: tomorrow}, nil
}

// Data is everything Aggregate needs for one window. Items belong to Sales.
// ProductCategory maps product id to category id; CategoryNames maps category
// id to display name.
type Data struct {
	Sales           []domain.Sale
	Items           []domain.SaleItem
	ProductCategory map[string]string
	CategoryNames   map[string]string
}

func Aggregate(w Window, data Data) domain.SalesReport {
	out := domain.SalesReport{
		From:              w.From,
		To:                w.To,
		Revenue:           decimal.Zero,
		Profit:            decimal.Zero,
		Discount:          decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}

	loc := w.From.Location()
	daily, dayIndex := emptyDays(w)
	payments := make(map[domain.PaymentMethod]*domain.PaymentTotal)
	inWindow := make(map[string]struct{}, len(data.Sales))

	for _, sale := range data.Sales {
		if !w.Contains(sale.CreatedAt) {
			continue
		}
		inWindow[sale.ID] = struct{}{}

		out.Count++
		out.Revenue = out.Revenue.Add(sale.Subtotal)
		out.Profit = out.Profit.Add(sale.TotalProfit)
		out.Discount = out.Discount.Add(sale.DiscountAmount)

		if i, ok := dayIndex[dayKey(sale.CreatedAt.In(loc))]; ok {
			daily[i].Count++
			daily[i].Revenue = daily[i].Revenue.Add(sale.Subtotal)
			daily[i].Profit = daily[i].Profit.Add(sale.TotalProfit)
		}

		pt, ok := payments[sale.PaymentMethod]
		if !ok {
			pt = &domain.PaymentTotal{Method: sale.PaymentMethod, Revenue: decimal.Zero}
			payments[sale.PaymentMethod] = pt
		}
		pt.Count++
		pt.Revenue = pt.Revenue.Add(sale.Subtotal)
	}

	if out.Count > 0 {
		out.AverageOrderValue = out.Revenue.Div(decimal.NewFromInt(int64(out.Count))).Round(2)
	}
	out.Daily = daily
	out.TopCategories = topCategories(data, inWindow)
	out.Payments = make([]domain.PaymentTotal, 0, len(payments))
	for _, pt := range payments {
		out.Payments = append(out.Payments, *pt)
	}
	sort.Slice(out.Payments, func(i, j int) bool { return out.Payments[i].Method < out.Payments[j].Method })

	return out
}

func topCategories(data Data, inWindow map[string]struct{}) []domain.CategoryRevenue {
	totals := make(map[string]*domain.CategoryRevenue)
	for _, item := range data.Items {
		if _, ok := inWindow[item.SaleID]; !ok {
			continue
		}

		key, name := "", UncategorizedName
		if item.ProductID != nil {
			if categoryID, ok := data.ProductCategory[*item.ProductID]; ok && categoryID != "" {
				if categoryName, ok := data.CategoryNames[categoryID]; ok {
					key, name = categoryID, categoryName
				}
			}
		}

		cr, ok := totals[key]
		if !ok {
			cr = &domain.CategoryRevenue{CategoryID: key, Name: name, Revenue: decimal.Zero}
			totals[key] = cr
		}
		cr.Revenue = cr.Revenue.Add(item.Subtotal)
		cr.Quantity += item.Quantity
	}

	out := make([]domain.CategoryRevenue, 0, len(totals))
	for _, cr := range totals {
		out = append(out, *cr)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > TopCategoryLimit {
		out = out[:TopCategoryLimit]
	}
	return out
}

// emptyDays returns one zeroed point per calendar day touched by w.
func emptyDays(w Window) ([]domain.DayPoint, map[string]int) {
	loc := w.From.Location()
	start := w.From.In(loc)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)

	var points []domain.DayPoint
	index := make(map[string]int)
	for day.Before(w.To) {
		key := dayKey(day)
		index[key] = len(points)
		points = append(points, domain.DayPoint{
			Date:    key,
			Label:   day.Format("02 Jan"),
			Revenue: decimal.Zero,
			Profit:  decimal.Zero,
		})
		day = day.AddDate(0, 0, 1)
	}
	return points, index
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
