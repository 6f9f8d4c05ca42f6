package store

import (
	"context"
	"errors"
	"time"

	"tokoisi/backend/internal/domain"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("already exists")
	ErrHasChildren = errors.New("category has sub-categories")
	ErrReferenced  = errors.New("still referenced")
)

type ProductFilter struct {
	Search      string
	CategoryIDs []string
	BrandID     string
	LowStock    bool
	Limit       int
	Offset      int
}

type SaleFilter struct {
	From      time.Time
	To        time.Time
	CashierID string
	Limit     int
}

type Repository interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	// DecrementStock fails with domain.ErrStockConflict instead of going below zero.
	DecrementStock(ctx context.Context, productID string, qty int) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListBrands(ctx context.Context) ([]domain.Brand, error)
	CreateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error)
	DeleteBrand(ctx context.Context, id string) error

	ListDiscounts(ctx context.Context, activeOnly bool) ([]domain.Discount, error)
	GetDiscount(ctx context.Context, id string) (*domain.Discount, error)
	CreateDiscount(ctx context.Context, discount domain.Discount) (*domain.Discount, error)
	UpdateDiscount(ctx context.Context, discount domain.Discount) (*domain.Discount, error)
	DeleteDiscount(ctx context.Context, id string) error

	ListRefillOptions(ctx context.Context, activeOnly bool) ([]domain.RefillOption, error)
	GetRefillOption(ctx context.Context, id string) (*domain.RefillOption, error)
	CreateRefillOption(ctx context.Context, option domain.RefillOption) (*domain.RefillOption, error)
	UpdateRefillOption(ctx context.Context, option domain.RefillOption) (*domain.RefillOption, error)
	DeleteRefillOption(ctx context.Context, id string) error

	CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error)
	CreateSaleItems(ctx context.Context, items []domain.SaleItem) ([]domain.SaleItem, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]domain.Sale, error)
	ListSaleItems(ctx context.Context, saleIDs []string) ([]domain.SaleItem, error)
	// ListSaleItemsBetween returns the items of sales created in [from, to).
	ListSaleItemsBetween(ctx context.Context, from, to time.Time) ([]domain.SaleItem, error)

	CreateUser(ctx context.Context, account domain.UserAccount, profile domain.Profile) error
	GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error)
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	ListStaff(ctx context.Context) ([]domain.StaffMember, error)
	// GetUserRole returns an empty role when the user has none assigned.
	GetUserRole(ctx context.Context, userID string) (domain.Role, error)
	SetUserRole(ctx context.Context, userID string, role domain.Role) error
	DeleteUserRole(ctx context.Context, userID string) error

	GetSettings(ctx context.Context) (domain.StoreSettings, error)
	UpdateSettings(ctx context.Context, settings domain.StoreSettings) (domain.StoreSettings, error)

	CreateActivityLog(ctx context.Context, entry domain.ActivityLog) error
	ListActivityLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.ActivityLog, error)
}
