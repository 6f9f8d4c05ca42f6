package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleManager    Role = "manager"
	RoleCashier    Role = "cashier"
)

type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCard
}

type Product struct {
	ID                string          `json:"id" db:"id"`
	Name              string          `json:"name" db:"name"`
	Barcode           *string         `json:"barcode,omitempty" db:"barcode"`
	CategoryID        *string         `json:"category_id,omitempty" db:"category_id"`
	BrandID           *string         `json:"brand_id,omitempty" db:"brand_id"`
	BuyingPrice       decimal.Decimal `json:"buying_price" db:"buying_price"`
	SellingPrice      decimal.Decimal `json:"selling_price" db:"selling_price"`
	StockQuantity     int             `json:"stock_quantity" db:"stock_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold" db:"low_stock_threshold"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`

	// Synthetic marks a cart-only product built from a refill option.
	Synthetic bool `json:"synthetic,omitempty" db:"-"`
}

func (p Product) IsLowStock() bool {
	return !p.Synthetic && p.StockQuantity <= p.LowStockThreshold
}

type ProductCreateRequest struct {
	Name              string          `json:"name"`
	Barcode           *string         `json:"barcode,omitempty"`
	CategoryID        *string         `json:"category_id,omitempty"`
	BrandID           *string         `json:"brand_id,omitempty"`
	BuyingPrice       decimal.Decimal `json:"buying_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	StockQuantity     int             `json:"stock_quantity"`
	LowStockThreshold *int            `json:"low_stock_threshold,omitempty"`
}

type ProductUpdateRequest struct {
	Name              *string          `json:"name,omitempty"`
	Barcode           *string          `json:"barcode,omitempty"`
	CategoryID        *string          `json:"category_id,omitempty"`
	BrandID           *string          `json:"brand_id,omitempty"`
	BuyingPrice       *decimal.Decimal `json:"buying_price,omitempty"`
	SellingPrice      *decimal.Decimal `json:"selling_price,omitempty"`
	StockQuantity     *int             `json:"stock_quantity,omitempty"`
	LowStockThreshold *int             `json:"low_stock_threshold,omitempty"`
}

type RefillOption struct {
	ID           string          `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Volume       decimal.Decimal `json:"volume" db:"volume"`
	DefaultPrice decimal.Decimal `json:"default_price" db:"default_price"`
	Active       bool            `json:"active" db:"active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

type RefillOptionCreateRequest struct {
	Name         string          `json:"name"`
	Volume       decimal.Decimal `json:"volume"`
	DefaultPrice decimal.Decimal `json:"default_price"`
}

type RefillOptionUpdateRequest struct {
	Name         *string          `json:"name,omitempty"`
	Volume       *decimal.Decimal `json:"volume,omitempty"`
	DefaultPrice *decimal.Decimal `json:"default_price,omitempty"`
	Active       *bool            `json:"active,omitempty"`
}

type Category struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ParentID  *string   `json:"parent_id,omitempty" db:"parent_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type CategoryCreateRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
}

type CategoryUpdateRequest struct {
	Name *string `json:"name,omitempty"`
	// ParentID set to an empty string moves the category to the root.
	ParentID *string `json:"parent_id,omitempty"`
}

type CategoryNode struct {
	Category
	Children []Category `json:"children"`
}

type Brand struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type BrandCreateRequest struct {
	Name string `json:"name"`
}

type Discount struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Kind      DiscountKind    `json:"kind" db:"kind"`
	Value     decimal.Decimal `json:"value" db:"value"`
	Active    bool            `json:"active" db:"active"`
	CreatedBy string          `json:"created_by" db:"created_by"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

type DiscountCreateRequest struct {
	Name   string          `json:"name"`
	Kind   DiscountKind    `json:"kind"`
	Value  decimal.Decimal `json:"value"`
	Active *bool           `json:"active,omitempty"`
}

type DiscountUpdateRequest struct {
	Name   *string `json:"name,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

type Sale struct {
	ID             string          `json:"id" db:"id"`
	CashierID      string          `json:"cashier_id" db:"cashier_id"`
	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`
	TotalProfit    decimal.Decimal `json:"total_profit" db:"total_profit"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	PaymentMethod  PaymentMethod   `json:"payment_method" db:"payment_method"`
	AmountTendered decimal.Decimal `json:"amount_tendered" db:"amount_tendered"`
	ChangeAmount   decimal.Decimal `json:"change_amount" db:"change_amount"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// SaleItem snapshots the product and discount as they were when the sale was made.
type SaleItem struct {
	ID               string           `json:"id" db:"id"`
	SaleID           string           `json:"sale_id" db:"sale_id"`
	ProductID        *string          `json:"product_id" db:"product_id"`
	ProductName      string           `json:"product_name" db:"product_name"`
	BuyingPrice      decimal.Decimal  `json:"buying_price" db:"buying_price"`
	SellingPrice     decimal.Decimal  `json:"selling_price" db:"selling_price"`
	Quantity         int              `json:"quantity" db:"quantity"`
	Subtotal         decimal.Decimal  `json:"subtotal" db:"subtotal"`
	Profit           decimal.Decimal  `json:"profit" db:"profit"`
	OriginalSubtotal decimal.Decimal  `json:"original_subtotal" db:"original_subtotal"`
	DiscountID       *string          `json:"discount_id,omitempty" db:"discount_id"`
	DiscountName     *string          `json:"discount_name,omitempty" db:"discount_name"`
	DiscountKind     *string          `json:"discount_kind,omitempty" db:"discount_kind"`
	DiscountValue    *decimal.Decimal `json:"discount_value,omitempty" db:"discount_value"`
	DiscountAmount   decimal.Decimal  `json:"discount_amount" db:"discount_amount"`
}

type SaleDetail struct {
	Sale  Sale       `json:"sale"`
	Items []SaleItem `json:"items"`
}

type CheckoutLine struct {
	ProductID      string           `json:"product_id,omitempty"`
	RefillOptionID string           `json:"refill_option_id,omitempty"`
	Quantity       int              `json:"quantity"`
	DiscountID     string           `json:"discount_id,omitempty"`
	UnitPrice      *decimal.Decimal `json:"unit_price,omitempty"`
}

type CheckoutRequest struct {
	PaymentMethod  PaymentMethod    `json:"payment_method"`
	AmountTendered *decimal.Decimal `json:"amount_tendered,omitempty"`
	Lines          []CheckoutLine   `json:"lines"`
}

type CheckoutResponse struct {
	Sale    Sale       `json:"sale"`
	Items   []SaleItem `json:"items"`
	Receipt Receipt    `json:"receipt"`
}

type QuoteLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Gross     decimal.Decimal `json:"gross"`
	Discount  decimal.Decimal `json:"discount"`
	Net       decimal.Decimal `json:"net"`
	Profit    decimal.Decimal `json:"profit"`
}

type QuoteResponse struct {
	Lines    []QuoteLine     `json:"lines"`
	Gross    decimal.Decimal `json:"gross"`
	Discount decimal.Decimal `json:"discount"`
	Net      decimal.Decimal `json:"net"`
	Profit   decimal.Decimal `json:"profit"`
	Change   *ChangeDisplay  `json:"change,omitempty"`
}

type ChangeDisplay struct {
	Amount decimal.Decimal `json:"amount"`
	Short  bool            `json:"short"`
}

type ReceiptLine struct {
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Gross        decimal.Decimal `json:"gross"`
	Discount     decimal.Decimal `json:"discount"`
	DiscountName string          `json:"discount_name,omitempty"`
	Net          decimal.Decimal `json:"net"`
}

type Receipt struct {
	SaleID         string          `json:"sale_id"`
	StoreName      string          `json:"store_name,omitempty"`
	StoreAddress   string          `json:"store_address,omitempty"`
	StorePhone     string          `json:"store_phone,omitempty"`
	Footer         string          `json:"footer,omitempty"`
	CashierID      string          `json:"cashier_id"`
	Lines          []ReceiptLine   `json:"lines"`
	Gross          decimal.Decimal `json:"gross"`
	Discount       decimal.Decimal `json:"discount"`
	Net            decimal.Decimal `json:"net"`
	Profit         decimal.Decimal `json:"profit"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	AmountTendered decimal.Decimal `json:"amount_tendered"`
	ChangeAmount   decimal.Decimal `json:"change_amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Role        Role   `json:"role,omitempty"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	UserID string
	Email  string
	Role   Role
}

type Profile struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"full_name" db:"full_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type StaffMember struct {
	Profile
	Role Role `json:"role,omitempty" db:"role"`
}

type RoleAssignRequest struct {
	Role Role `json:"role"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	UserID       string    `db:"user_id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

type StoreSettings struct {
	StoreName       string    `json:"store_name" db:"store_name"`
	Address         string    `json:"address" db:"address"`
	Phone           string    `json:"phone" db:"phone"`
	ReceiptFooter   string    `json:"receipt_footer" db:"receipt_footer"`
	LowStockDefault int       `json:"low_stock_default" db:"low_stock_default"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

type StoreSettingsUpdateRequest struct {
	StoreName       *string `json:"store_name,omitempty"`
	Address         *string `json:"address,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	ReceiptFooter   *string `json:"receipt_footer,omitempty"`
	LowStockDefault *int    `json:"low_stock_default,omitempty"`
}

type ActivityLog struct {
	ID         string    `json:"id" db:"id"`
	ActorID    string    `json:"actor_id" db:"actor_id"`
	ActorRole  string    `json:"actor_role" db:"actor_role"`
	Action     string    `json:"action" db:"action"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   string    `json:"entity_id" db:"entity_id"`
	Detail     string    `json:"detail" db:"detail"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

const DefaultLowStockThreshold = 5
