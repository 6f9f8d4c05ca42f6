package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tokoisi/backend/internal/access"
	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/report"
	"tokoisi/backend/internal/store"
)

const (
	defaultSalesLimit    = 200
	defaultActivityLimit = 200
	maxListLimit         = 1000
)

// RangeQuery selects a window either by preset (today, 7d, 30d, 90d) or by
// inclusive YYYY-MM-DD days. An explicit From wins over Range.
type RangeQuery struct {
	Range string
	From  string
	To    string
}

type SalesQuery struct {
	RangeQuery
	CashierID string
	Limit     int
}

type ActivityQuery struct {
	RangeQuery
	Limit int
}

func (s *Service) resolveWindow(q RangeQuery, fallback string) (report.Window, error) {
	if strings.TrimSpace(q.From) == "" {
		name := q.Range
		if strings.TrimSpace(name) == "" {
			name = fallback
		}
		return report.Preset(name, s.now(), s.location)
	}

	from, err := s.ParseDay(q.From)
	if err != nil {
		return report.Window{}, err
	}
	to := from
	if strings.TrimSpace(q.To) != "" {
		if to, err = s.ParseDay(q.To); err != nil {
			return report.Window{}, err
		}
	}
	w := report.Window{From: from, To: to.AddDate(0, 0, 1)}
	if err := w.Validate(); err != nil {
		return report.Window{}, err
	}
	return w, nil
}

func clampLimit(limit int, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, maxListLimit)
}

func (s *Service) ListSales(ctx context.Context, q SalesQuery) ([]domain.Sale, error) {
	actor, err := requireCapability(ctx, access.CanViewReports, "view sales")
	if err != nil {
		return nil, err
	}
	w, err := s.resolveWindow(q.RangeQuery, "today")
	if err != nil {
		return nil, err
	}

	sales, err := s.repo.ListSales(ctx, store.SaleFilter{
		From:      w.From,
		To:        w.To,
		CashierID: strings.TrimSpace(q.CashierID),
		Limit:     clampLimit(q.Limit, defaultSalesLimit),
	})
	if err != nil {
		return nil, err
	}

	caps := access.For(actor.Role)
	for i := range sales {
		sales[i], _ = maskSale(caps, sales[i], nil)
	}
	return sales, nil
}

// GetSale is open to report viewers and to the cashier who made the sale.
func (s *Service) GetSale(ctx context.Context, id string) (domain.SaleDetail, error) {
	actor, err := requireStaff(ctx)
	if err != nil {
		return domain.SaleDetail{}, err
	}

	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.SaleDetail{}, err
	}
	caps := access.For(actor.Role)
	if !caps.ViewReports && sale.CashierID != actor.UserID {
		return domain.SaleDetail{}, fmt.Errorf("%w: view sales", domain.ErrPermissionDenied)
	}

	items, err := s.repo.ListSaleItems(ctx, []string{sale.ID})
	if err != nil {
		return domain.SaleDetail{}, err
	}
	masked, items := maskSale(caps, *sale, items)
	return domain.SaleDetail{Sale: masked, Items: items}, nil
}

func (s *Service) SalesReport(ctx context.Context, q RangeQuery) (domain.SalesReport, error) {
	actor, err := requireCapability(ctx, access.CanViewReports, "view reports")
	if err != nil {
		return domain.SalesReport{}, err
	}
	w, err := s.resolveWindow(q, "7d")
	if err != nil {
		return domain.SalesReport{}, err
	}

	out, err := s.reports.Sales(ctx, w, s.loadReportData)
	if err != nil {
		return domain.SalesReport{}, err
	}
	if !access.For(actor.Role).ViewProfit {
		out.Profit = decimal.Zero
		out.Daily = append([]domain.DayPoint(nil), out.Daily...)
		for i := range out.Daily {
			out.Daily[i].Profit = decimal.Zero
		}
	}
	return out, nil
}

func (s *Service) loadReportData(ctx context.Context, w report.Window) (report.Data, error) {
	sales, err := s.repo.ListSales(ctx, store.SaleFilter{From: w.From, To: w.To})
	if err != nil {
		return report.Data{}, err
	}
	data := report.Data{
		Sales:           sales,
		ProductCategory: map[string]string{},
		CategoryNames:   map[string]string{},
	}
	if len(sales) == 0 {
		return data, nil
	}

	if data.Items, err = s.repo.ListSaleItemsBetween(ctx, w.From, w.To); err != nil {
		return report.Data{}, err
	}

	seen := make(map[string]struct{})
	productIDs := make([]string, 0, len(data.Items))
	for _, item := range data.Items {
		if item.ProductID == nil {
			continue
		}
		if _, ok := seen[*item.ProductID]; ok {
			continue
		}
		seen[*item.ProductID] = struct{}{}
		productIDs = append(productIDs, *item.ProductID)
	}
	if len(productIDs) > 0 {
		products, err := s.repo.GetProductsByIDs(ctx, productIDs)
		if err != nil {
			return report.Data{}, err
		}
		for id, product := range products {
			if product.CategoryID != nil {
				data.ProductCategory[id] = *product.CategoryID
			}
		}
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return report.Data{}, err
	}
	for _, category := range categories {
		data.CategoryNames[category.ID] = category.Name
	}
	return data, nil
}

func (s *Service) ListActivityLogs(ctx context.Context, q ActivityQuery) ([]domain.ActivityLog, error) {
	if _, err := requireCapability(ctx, access.CanViewActivityLogs, "view activity logs"); err != nil {
		return nil, err
	}
	w, err := s.resolveWindow(q.RangeQuery, "7d")
	if err != nil {
		return nil, err
	}
	return s.repo.ListActivityLogs(ctx, w.From, w.To, clampLimit(q.Limit, defaultActivityLimit))
}
