package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/store"
	"tokoisi/backend/internal/xid"
)

type Store struct {
	mu          sync.RWMutex
	products    map[string]domain.Product
	categories  map[string]domain.Category
	brands      map[string]domain.Brand
	discounts   map[string]domain.Discount
	refills     map[string]domain.RefillOption
	sales       []domain.Sale
	saleItems   []domain.SaleItem
	accounts    map[string]domain.UserAccount
	profiles    map[string]domain.Profile
	roles       map[string]domain.Role
	settings    domain.StoreSettings
	activityLog []domain.ActivityLog
}

func New() *Store {
	return &Store{
		products:    make(map[string]domain.Product),
		categories:  make(map[string]domain.Category),
		brands:      make(map[string]domain.Brand),
		discounts:   make(map[string]domain.Discount),
		refills:     make(map[string]domain.RefillOption),
		sales:       make([]domain.Sale, 0, 64),
		saleItems:   make([]domain.SaleItem, 0, 256),
		accounts:    make(map[string]domain.UserAccount),
		profiles:    make(map[string]domain.Profile),
		roles:       make(map[string]domain.Role),
		activityLog: make([]domain.ActivityLog, 0, 128),
		settings: domain.StoreSettings{
			StoreName:       "Toko Isi",
			ReceiptFooter:   "Terima kasih",
			LowStockDefault: domain.DefaultLowStockThreshold,
			UpdatedAt:       time.Now().UTC(),
		},
	}
}

func (s *Store) ListProducts(_ context.Context, filter store.ProductFilter) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && (p.Barcode == nil || *p.Barcode != filter.Search) {
			continue
		}
		if len(filter.CategoryIDs) > 0 && (p.CategoryID == nil || !slices.Contains(filter.CategoryIDs, *p.CategoryID)) {
			continue
		}
		if filter.BrandID != "" && (p.BrandID == nil || *p.BrandID != filter.BrandID) {
			continue
		}
		if filter.LowStock && !p.IsLowStock() {
			continue
		}
		result = append(result, p)
	}

	slices.SortFunc(result, func(a, b domain.Product) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return paginate(result, filter.Offset, filter.Limit), nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &product, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.Barcode != nil && *p.Barcode == barcode {
			found := p
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrConflict
	}
	if err := s.checkProductRefsLocked(product); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := s.checkProductRefsLocked(product); err != nil {
		return nil, err
	}

	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	// Sale items keep their snapshot and lose the link, like ON DELETE SET NULL.
	for i := range s.saleItems {
		if s.saleItems[i].ProductID != nil && *s.saleItems[i].ProductID == id {
			s.saleItems[i].ProductID = nil
		}
	}
	return nil
}

func (s *Store) DecrementStock(_ context.Context, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	if qty < 1 {
		return fmt.Errorf("%w: decrement must be positive", domain.ErrValidation)
	}
	if product.StockQuantity < qty {
		return fmt.Errorf("%w: %s has %d left", domain.ErrStockConflict, product.Name, product.StockQuantity)
	}
	product.StockQuantity -= qty
	product.UpdatedAt = time.Now().UTC()
	s.products[productID] = product
	return nil
}

func (s *Store) checkProductRefsLocked(product domain.Product) error {
	if product.Barcode != nil {
		for _, p := range s.products {
			if p.ID != product.ID && p.Barcode != nil && *p.Barcode == *product.Barcode {
				return fmt.Errorf("%w: barcode %s", store.ErrConflict, *product.Barcode)
			}
		}
	}
	if product.CategoryID != nil {
		if _, ok := s.categories[*product.CategoryID]; !ok {
			return fmt.Errorf("%w: category %s", store.ErrNotFound, *product.CategoryID)
		}
	}
	if product.BrandID != nil {
		if _, ok := s.brands[*product.BrandID]; !ok {
			return fmt.Errorf("%w: brand %s", store.ErrNotFound, *product.BrandID)
		}
	}
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		result = append(result, c)
	}
	slices.SortFunc(result, func(a, b domain.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if _, exists := s.categories[category.ID]; exists {
		return nil, store.ErrConflict
	}
	if category.ParentID != nil {
		if _, ok := s.categories[*category.ParentID]; !ok {
			return nil, fmt.Errorf("%w: parent category %s", store.ErrNotFound, *category.ParentID)
		}
	}
	category.CreatedAt = time.Now().UTC()
	s.categories[category.ID] = category
	return &category, nil
}

func (s *Store) UpdateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[category.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if category.ParentID != nil {
		if _, ok := s.categories[*category.ParentID]; !ok {
			return nil, fmt.Errorf("%w: parent category %s", store.ErrNotFound, *category.ParentID)
		}
	}
	category.CreatedAt = existing.CreatedAt
	s.categories[category.ID] = category
	return &category, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	for _, c := range s.categories {
		if c.ParentID != nil && *c.ParentID == id {
			return store.ErrHasChildren
		}
	}

	delete(s.categories, id)
	for pid, p := range s.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
			s.products[pid] = p
		}
	}
	return nil
}

func (s *Store) ListBrands(_ context.Context) ([]domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Brand, 0, len(s.brands))
	for _, b := range s.brands {
		result = append(result, b)
	}
	slices.SortFunc(result, func(a, b domain.Brand) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) CreateBrand(_ context.Context, brand domain.Brand) (*domain.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if brand.ID == "" {
		brand.ID = xid.New("brd")
	}
	for _, b := range s.brands {
		if strings.EqualFold(b.Name, brand.Name) {
			return nil, fmt.Errorf("%w: brand %s", store.ErrConflict, brand.Name)
		}
	}
	brand.CreatedAt = time.Now().UTC()
	s.brands[brand.ID] = brand
	return &brand, nil
}

func (s *Store) DeleteBrand(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.brands[id]; !ok {
		return store.ErrNotFound
	}
	for _, p := range s.products {
		if p.BrandID != nil && *p.BrandID == id {
			return fmt.Errorf("%w: brand is used by %s", store.ErrReferenced, p.Name)
		}
	}
	delete(s.brands, id)
	return nil
}

func (s *Store) ListDiscounts(_ context.Context, activeOnly bool) ([]domain.Discount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Discount, 0, len(s.discounts))
	for _, d := range s.discounts {
		if activeOnly && !d.Active {
			continue
		}
		result = append(result, d)
	}
	slices.SortFunc(result, func(a, b domain.Discount) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result, nil
}

func (s *Store) GetDiscount(_ context.Context, id string) (*domain.Discount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.discounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (s *Store) CreateDiscount(_ context.Context, discount domain.Discount) (*domain.Discount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if discount.ID == "" {
		discount.ID = xid.New("dsc")
	}
	if _, exists := s.discounts[discount.ID]; exists {
		return nil, store.ErrConflict
	}
	if discount.CreatedAt.IsZero() {
		discount.CreatedAt = time.Now().UTC()
	}
	s.discounts[discount.ID] = discount
	return &discount, nil
}

func (s *Store) UpdateDiscount(_ context.Context, discount domain.Discount) (*domain.Discount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.discounts[discount.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	// Kind, value and creator are fixed once a discount exists.
	existing.Name = discount.Name
	existing.Active = discount.Active
	s.discounts[discount.ID] = existing
	return &existing, nil
}

func (s *Store) DeleteDiscount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.discounts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.discounts, id)
	return nil
}

func (s *Store) ListRefillOptions(_ context.Context, activeOnly bool) ([]domain.RefillOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.RefillOption, 0, len(s.refills))
	for _, r := range s.refills {
		if activeOnly && !r.Active {
			continue
		}
		result = append(result, r)
	}
	slices.SortFunc(result, func(a, b domain.RefillOption) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) GetRefillOption(_ context.Context, id string) (*domain.RefillOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.refills[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s *Store) CreateRefillOption(_ context.Context, option domain.RefillOption) (*domain.RefillOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if option.ID == "" {
		option.ID = xid.New("rfl")
	}
	if _, exists := s.refills[option.ID]; exists {
		return nil, store.ErrConflict
	}
	option.CreatedAt = time.Now().UTC()
	s.refills[option.ID] = option
	return &option, nil
}

func (s *Store) UpdateRefillOption(_ context.Context, option domain.RefillOption) (*domain.RefillOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.refills[option.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	option.CreatedAt = existing.CreatedAt
	s.refills[option.ID] = option
	return &option, nil
}

func (s *Store) DeleteRefillOption(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refills[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.refills, id)
	return nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	for _, existing := range s.sales {
		if existing.ID == sale.ID {
			return domain.Sale{}, store.ErrConflict
		}
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	s.sales = append(s.sales, sale)
	return sale, nil
}

func (s *Store) CreateSaleItems(_ context.Context, items []domain.SaleItem) ([]domain.SaleItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]struct{}, len(s.sales))
	for _, sale := range s.sales {
		known[sale.ID] = struct{}{}
	}

	created := make([]domain.SaleItem, 0, len(items))
	for _, item := range items {
		if _, ok := known[item.SaleID]; !ok {
			return nil, fmt.Errorf("%w: sale %s", store.ErrNotFound, item.SaleID)
		}
		if item.ID == "" {
			item.ID = xid.New("item")
		}
		created = append(created, item)
	}
	s.saleItems = append(s.saleItems, created...)
	return created, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sale := range s.sales {
		if sale.ID == id {
			found := sale
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListSales(_ context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, 64)
	for _, sale := range s.sales {
		if !filter.From.IsZero() && sale.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !sale.CreatedAt.Before(filter.To) {
			continue
		}
		if filter.CashierID != "" && sale.CashierID != filter.CashierID {
			continue
		}
		result = append(result, sale)
	}

	slices.SortFunc(result, func(a, b domain.Sale) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) ListSaleItems(_ context.Context, saleIDs []string) ([]domain.SaleItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(saleIDs))
	for _, id := range saleIDs {
		wanted[id] = struct{}{}
	}

	result := make([]domain.SaleItem, 0, len(saleIDs)*2)
	for _, item := range s.saleItems {
		if _, ok := wanted[item.SaleID]; ok {
			result = append(result, item)
		}
	}
	return result, nil
}

func (s *Store) ListSaleItemsBetween(_ context.Context, from, to time.Time) ([]domain.SaleItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inWindow := make(map[string]struct{})
	for _, sale := range s.sales {
		if !sale.CreatedAt.Before(from) && sale.CreatedAt.Before(to) {
			inWindow[sale.ID] = struct{}{}
		}
	}

	result := make([]domain.SaleItem, 0, len(inWindow)*2)
	for _, item := range s.saleItems {
		if _, ok := inWindow[item.SaleID]; ok {
			result = append(result, item)
		}
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, account domain.UserAccount, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(account.Email))
	if email == "" || account.PasswordHash == "" {
		return fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}
	if _, exists := s.accounts[email]; exists {
		return fmt.Errorf("%w: email %s", store.ErrConflict, email)
	}
	if account.UserID == "" {
		account.UserID = xid.New("user")
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	account.Email = email

	profile.UserID = account.UserID
	profile.Email = email
	profile.CreatedAt = account.CreatedAt

	s.accounts[email] = account
	s.profiles[account.UserID] = profile
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &account, nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &profile, nil
}

func (s *Store) ListStaff(_ context.Context) ([]domain.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StaffMember, 0, len(s.profiles))
	for id, profile := range s.profiles {
		result = append(result, domain.StaffMember{Profile: profile, Role: s.roles[id]})
	}
	slices.SortFunc(result, func(a, b domain.StaffMember) int {
		return strings.Compare(a.Email, b.Email)
	})
	return result, nil
}

func (s *Store) GetUserRole(_ context.Context, userID string) (domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.roles[userID], nil
}

func (s *Store) SetUserRole(_ context.Context, userID string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[userID]; !ok {
		return store.ErrNotFound
	}
	s.roles[userID] = role
	return nil
}

func (s *Store) DeleteUserRole(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[userID]; !ok {
		return store.ErrNotFound
	}
	delete(s.roles, userID)
	return nil
}

func (s *Store) GetSettings(_ context.Context) (domain.StoreSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.settings, nil
}

func (s *Store) UpdateSettings(_ context.Context, settings domain.StoreSettings) (domain.StoreSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings.UpdatedAt = time.Now().UTC()
	s.settings = settings
	return settings, nil
}

func (s *Store) CreateActivityLog(_ context.Context, entry domain.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("act")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.activityLog = append(s.activityLog, entry)
	return nil
}

func (s *Store) ListActivityLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ActivityLog, 0, 64)
	for _, entry := range s.activityLog {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.ActivityLog) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func paginate[T any](items []T, offset int, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func hashPassword(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("memory store: hash seed password: %v", err))
	}
	return string(hash)
}

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
