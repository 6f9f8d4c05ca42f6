package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DayPoint struct {
	Date    string          `json:"date"`
	Label   string          `json:"label"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

type CategoryRevenue struct {
	CategoryID string          `json:"category_id,omitempty"`
	Name       string          `json:"name"`
	Revenue    decimal.Decimal `json:"revenue"`
	Quantity   int             `json:"quantity"`
}

type PaymentTotal struct {
	Method  PaymentMethod   `json:"method"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type SalesReport struct {
	From              time.Time         `json:"from"`
	To                time.Time         `json:"to"`
	Count             int               `json:"count"`
	Revenue           decimal.Decimal   `json:"revenue"`
	Profit            decimal.Decimal   `json:"profit"`
	Discount          decimal.Decimal   `json:"discount"`
	AverageOrderValue decimal.Decimal   `json:"average_order_value"`
	Daily             []DayPoint        `json:"daily"`
	TopCategories     []CategoryRevenue `json:"top_categories"`
	Payments          []PaymentTotal    `json:"payments"`
	GeneratedAt       time.Time         `json:"generated_at"`
}
