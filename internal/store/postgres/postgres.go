package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/store"
	"tokoisi/backend/internal/xid"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const productColumns = `id, name, barcode, category_id, brand_id, buying_price, selling_price,
	stock_quantity, low_stock_threshold, created_at, updated_at`

func (s *Store) ListProducts(ctx context.Context, filter store.ProductFilter) ([]domain.Product, error) {
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 6)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE %s OR barcode = %s)", arg("%"+search+"%"), arg(search)))
	}
	if len(filter.CategoryIDs) > 0 {
		conditions = append(conditions, "category_id = ANY("+arg(filter.CategoryIDs)+")")
	}
	if filter.BrandID != "" {
		conditions = append(conditions, "brand_id = "+arg(filter.BrandID))
	}
	if filter.LowStock {
		conditions = append(conditions, "stock_quantity <= low_stock_threshold")
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY lower(name), id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	products := make([]domain.Product, 0, 64)
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.GetContext(ctx, &product, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.GetContext(ctx, &product, `SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode)
	if err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var products []domain.Product
	if err := s.db.SelectContext(ctx, &products, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (:id, :name, :barcode, :category_id, :brand_id, :buying_price, :selling_price,
			:stock_quantity, :low_stock_threshold, :created_at, :updated_at)
	`, product)
	if err != nil {
		return nil, writeError(err)
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	product.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE products
		SET name = :name, barcode = :barcode, category_id = :category_id, brand_id = :brand_id,
			buying_price = :buying_price, selling_price = :selling_price,
			stock_quantity = :stock_quantity, low_stock_threshold = :low_stock_threshold,
			updated_at = :updated_at
		WHERE id = :id
	`, product)
	if err != nil {
		return nil, writeError(err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return deleteError(err)
	}
	return requireAffected(res)
}

func (s *Store) DecrementStock(ctx context.Context, productID string, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: decrement must be positive", domain.ErrValidation)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id = $1 AND stock_quantity >= $2
	`, productID, qty)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var stock int
	err = s.db.GetContext(ctx, &stock, `SELECT stock_quantity FROM products WHERE id = $1`, productID)
	if err != nil {
		return notFound(err)
	}
	return fmt.Errorf("%w: product %s has %d left", domain.ErrStockConflict, productID, stock)
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories := make([]domain.Category, 0, 32)
	err := s.db.SelectContext(ctx, &categories, `
		SELECT id, name, parent_id, created_at FROM categories ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	category.CreatedAt = time.Now().UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO categories (id, name, parent_id, created_at)
		VALUES (:id, :name, :parent_id, :created_at)
	`, category)
	if err != nil {
		return nil, writeError(err)
	}
	return &category, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	var updated domain.Category
	err := s.db.GetContext(ctx, &updated, `
		UPDATE categories SET name = $2, parent_id = $3
		WHERE id = $1
		RETURNING id, name, parent_id, created_at
	`, category.ID, category.Name, category.ParentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, writeError(err)
	}
	return &updated, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	var hasChildren bool
	err := s.db.GetContext(ctx, &hasChildren, `SELECT EXISTS (SELECT 1 FROM categories WHERE parent_id = $1)`, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return store.ErrHasChildren
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrHasChildren
		}
		return err
	}
	return requireAffected(res)
}

func (s *Store) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	brands := make([]domain.Brand, 0, 32)
	if err := s.db.SelectContext(ctx, &brands, `SELECT id, name, created_at FROM brands ORDER BY name`); err != nil {
		return nil, err
	}
	return brands, nil
}

func (s *Store) CreateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error) {
	if brand.ID == "" {
		brand.ID = xid.New("brd")
	}
	brand.CreatedAt = time.Now().UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO brands (id, name, created_at) VALUES (:id, :name, :created_at)
	`, brand)
	if err != nil {
		return nil, writeError(err)
	}
	return &brand, nil
}

func (s *Store) DeleteBrand(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM brands WHERE id = $1`, id)
	if err != nil {
		return deleteError(err)
	}
	return requireAffected(res)
}

const discountColumns = `id, name, kind, value, active, created_by, created_at`

func (s *Store) ListDiscounts(ctx context.Context, activeOnly bool) ([]domain.Discount, error) {
	discounts := make([]domain.Discount, 0, 16)
	err := s.db.SelectContext(ctx, &discounts, `
		SELECT `+discountColumns+` FROM discounts
		WHERE ($1 = false OR active = true)
		ORDER BY created_at DESC
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	return discounts, nil
}

func (s *Store) GetDiscount(ctx context.Context, id string) (*domain.Discount, error) {
	var discount domain.Discount
	if err := s.db.GetContext(ctx, &discount, `SELECT `+discountColumns+` FROM discounts WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return &discount, nil
}

func (s *Store) CreateDiscount(ctx context.Context, discount domain.Discount) (*domain.Discount, error) {
	if discount.ID == "" {
		discount.ID = xid.New("dsc")
	}
	if discount.CreatedAt.IsZero() {
		discount.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO discounts (`+discountColumns+`)
		VALUES (:id, :name, :kind, :value, :active, :created_by, :created_at)
	`, discount)
	if err != nil {
		return nil, writeError(err)
	}
	return &discount, nil
}

func (s *Store) UpdateDiscount(ctx context.Context, discount domain.Discount) (*domain.Discount, error) {
	var updated domain.Discount
	err := s.db.GetContext(ctx, &updated, `
		UPDATE discounts SET name = $2, active = $3
		WHERE id = $1
		RETURNING `+discountColumns, discount.ID, discount.Name, discount.Active)
	if err != nil {
		return nil, notFound(err)
	}
	return &updated, nil
}

func (s *Store) DeleteDiscount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		return deleteError(err)
	}
	return requireAffected(res)
}

const refillColumns = `id, name, volume, default_price, active, created_at`

func (s *Store) ListRefillOptions(ctx context.Context, activeOnly bool) ([]domain.RefillOption, error) {
	options := make([]domain.RefillOption, 0, 8)
	err := s.db.SelectContext(ctx, &options, `
		SELECT `+refillColumns+` FROM refill_options
		WHERE ($1 = false OR active = true)
		ORDER BY name
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	return options, nil
}

func (s *Store) GetRefillOption(ctx context.Context, id string) (*domain.RefillOption, error) {
	var option domain.RefillOption
	if err := s.db.GetContext(ctx, &option, `SELECT `+refillColumns+` FROM refill_options WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return &option, nil
}

func (s *Store) CreateRefillOption(ctx context.Context, option domain.RefillOption) (*domain.RefillOption, error) {
	if option.ID == "" {
		option.ID = xid.New("rfl")
	}
	option.CreatedAt = time.Now().UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO refill_options (`+refillColumns+`)
		VALUES (:id, :name, :volume, :default_price, :active, :created_at)
	`, option)
	if err != nil {
		return nil, writeError(err)
	}
	return &option, nil
}

func (s *Store) UpdateRefillOption(ctx context.Context, option domain.RefillOption) (*domain.RefillOption, error) {
	var updated domain.RefillOption
	err := s.db.GetContext(ctx, &updated, `
		UPDATE refill_options SET name = $2, volume = $3, default_price = $4, active = $5
		WHERE id = $1
		RETURNING `+refillColumns, option.ID, option.Name, option.Volume, option.DefaultPrice, option.Active)
	if err != nil {
		return nil, notFound(err)
	}
	return &updated, nil
}

func (s *Store) DeleteRefillOption(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refill_options WHERE id = $1`, id)
	if err != nil {
		return deleteError(err)
	}
	return requireAffected(res)
}

const saleColumns = `id, cashier_id, subtotal, total_profit, discount_amount, payment_method,
	amount_tendered, change_amount, created_at`

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sales (`+saleColumns+`)
		VALUES (:id, :cashier_id, :subtotal, :total_profit, :discount_amount, :payment_method,
			:amount_tendered, :change_amount, :created_at)
	`, sale)
	if err != nil {
		return domain.Sale{}, writeError(err)
	}
	return sale, nil
}

const saleItemColumns = `id, sale_id, product_id, product_name, buying_price, selling_price, quantity,
	subtotal, profit, original_subtotal, discount_id, discount_name, discount_kind, discount_value,
	discount_amount`

// CreateSaleItems inserts all items of one sale in a single statement.
func (s *Store) CreateSaleItems(ctx context.Context, items []domain.SaleItem) ([]domain.SaleItem, error) {
	if len(items) == 0 {
		return items, nil
	}
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = xid.New("item")
		}
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sale_items (`+saleItemColumns+`)
		VALUES (:id, :sale_id, :product_id, :product_name, :buying_price, :selling_price, :quantity,
			:subtotal, :profit, :original_subtotal, :discount_id, :discount_name, :discount_kind,
			:discount_value, :discount_amount)
	`, items)
	if err != nil {
		return nil, writeError(err)
	}
	return items, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	if err := s.db.GetContext(ctx, &sale, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	conditions := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if filter.CashierID != "" {
		args = append(args, filter.CashierID)
		conditions = append(conditions, fmt.Sprintf("cashier_id = $%d", len(args)))
	}

	query := "SELECT " + saleColumns + " FROM sales"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	sales := make([]domain.Sale, 0, 64)
	if err := s.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) ListSaleItems(ctx context.Context, saleIDs []string) ([]domain.SaleItem, error) {
	items := make([]domain.SaleItem, 0, len(saleIDs)*2)
	if len(saleIDs) == 0 {
		return items, nil
	}

	query, args, err := sqlx.In(`SELECT `+saleItemColumns+` FROM sale_items WHERE sale_id IN (?) ORDER BY sale_id, id`, saleIDs)
	if err != nil {
		return nil, err
	}
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListSaleItemsBetween(ctx context.Context, from, to time.Time) ([]domain.SaleItem, error) {
	items := make([]domain.SaleItem, 0, 64)
	err := s.db.SelectContext(ctx, &items, `
		SELECT `+saleItemColumns+` FROM sale_items
		WHERE sale_id IN (SELECT id FROM sales WHERE created_at >= $1 AND created_at < $2)
		ORDER BY sale_id, id
	`, from, to)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateUser(ctx context.Context, account domain.UserAccount, profile domain.Profile) error {
	email := strings.ToLower(strings.TrimSpace(account.Email))
	if email == "" || account.PasswordHash == "" {
		return fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}
	if account.UserID == "" {
		account.UserID = xid.New("user")
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	account.Email = email

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_accounts (user_id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, account.UserID, account.Email, account.PasswordHash, account.CreatedAt); err != nil {
		return writeError(err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO profiles (user_id, email, full_name, created_at)
		VALUES ($1, $2, $3, $4)
	`, account.UserID, account.Email, profile.FullName, account.CreatedAt); err != nil {
		return writeError(err)
	}
	return tx.Commit()
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	var account domain.UserAccount
	err := s.db.GetContext(ctx, &account, `
		SELECT user_id, email, password_hash, created_at FROM user_accounts WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var profile domain.Profile
	err := s.db.GetContext(ctx, &profile, `SELECT user_id, email, full_name, created_at FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (s *Store) ListStaff(ctx context.Context) ([]domain.StaffMember, error) {
	staff := make([]domain.StaffMember, 0, 16)
	err := s.db.SelectContext(ctx, &staff, `
		SELECT p.user_id, p.email, p.full_name, p.created_at, COALESCE(r.role, '') AS role
		FROM profiles p
		LEFT JOIN user_roles r ON r.user_id = p.user_id
		ORDER BY p.email
	`)
	if err != nil {
		return nil, err
	}
	return staff, nil
}

func (s *Store) GetUserRole(ctx context.Context, userID string) (domain.Role, error) {
	var role string
	err := s.db.GetContext(ctx, &role, `SELECT role FROM user_roles WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return domain.Role(role), nil
}

func (s *Store) SetUserRole(ctx context.Context, userID string, role domain.Role) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role
	`, userID, string(role))
	if err != nil {
		return writeError(err)
	}
	return nil
}

func (s *Store) DeleteUserRole(ctx context.Context, userID string) error {
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID)
	return err
}

const settingsColumns = `store_name, address, phone, receipt_footer, low_stock_default, updated_at`

func (s *Store) GetSettings(ctx context.Context) (domain.StoreSettings, error) {
	var settings domain.StoreSettings
	err := s.db.GetContext(ctx, &settings, `SELECT `+settingsColumns+` FROM store_settings WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoreSettings{LowStockDefault: domain.DefaultLowStockThreshold}, nil
	}
	return settings, err
}

func (s *Store) UpdateSettings(ctx context.Context, settings domain.StoreSettings) (domain.StoreSettings, error) {
	var updated domain.StoreSettings
	err := s.db.GetContext(ctx, &updated, `
		INSERT INTO store_settings (id, store_name, address, phone, receipt_footer, low_stock_default, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			store_name = EXCLUDED.store_name,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			receipt_footer = EXCLUDED.receipt_footer,
			low_stock_default = EXCLUDED.low_stock_default,
			updated_at = EXCLUDED.updated_at
		RETURNING `+settingsColumns,
		settings.StoreName, settings.Address, settings.Phone, settings.ReceiptFooter, settings.LowStockDefault)
	if err != nil {
		return domain.StoreSettings{}, err
	}
	return updated, nil
}

func (s *Store) CreateActivityLog(ctx context.Context, entry domain.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("act")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO activity_logs (id, actor_id, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES (:id, :actor_id, :actor_role, :action, :entity_type, :entity_id, :detail, :created_at)
	`, entry)
	return err
}

func (s *Store) ListActivityLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.ActivityLog, error) {
	if limit < 1 {
		limit = 200
	}

	logs := make([]domain.ActivityLog, 0, limit)
	err := s.db.SelectContext(ctx, &logs, `
		SELECT id, actor_id, actor_role, action, entity_type, entity_id, detail, created_at
		FROM activity_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// writeError maps constraint violations raised by inserts and updates.
func writeError(err error) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %s", store.ErrConflict, constraintName(err))
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %s", store.ErrNotFound, constraintName(err))
	case isCheckViolation(err):
		return fmt.Errorf("%w: %s", domain.ErrValidation, constraintName(err))
	}
	return err
}

func deleteError(err error) error {
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: %s", store.ErrReferenced, constraintName(err))
	}
	return err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == "23505"
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == "23503"
}

func isCheckViolation(err error) bool {
	return pgCode(err) == "23514"
}
