package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tokoisi/backend/internal/cache"
	"tokoisi/backend/internal/checkout"
	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/report"
	"tokoisi/backend/internal/store"
	"tokoisi/backend/internal/store/memory"
)

var (
	ownerActor   = domain.Actor{UserID: "user-owner", Email: "owner@tokoisi.local", Role: domain.RoleSuperAdmin}
	managerActor = domain.Actor{UserID: "user-manager", Email: "manager@tokoisi.local", Role: domain.RoleManager}
	cashierActor = domain.Actor{UserID: "user-cashier", Email: "kasir@tokoisi.local", Role: domain.RoleCashier}
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded(nil)
	engine := report.NewEngine(cache.NewMemoryReportCache(16, time.Minute), time.Minute, zap.NewNop())
	return New(repo, engine, zap.NewNop(), time.UTC), repo
}

func as(actor domain.Actor) context.Context {
	return WithActor(context.Background(), actor)
}

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func moneyPtr(v int64) *decimal.Decimal {
	d := money(v)
	return &d
}

func TestCheckoutRequiresActor(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Checkout(context.Background(), domain.CheckoutRequest{
		PaymentMethod:  domain.PaymentCash,
		AmountTendered: moneyPtr(10000),
		Lines:          []domain.CheckoutLine{{ProductID: "prd-aqua-600", Quantity: 1}},
	})
	if !errors.Is(err, checkout.ErrNoActor) {
		t.Fatalf("expected ErrNoActor, got %v", err)
	}
}

func TestCashCheckoutWithRefillLine(t *testing.T) {
	svc, repo := newTestService()
	ctx := as(cashierActor)

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod:  domain.PaymentCash,
		AmountTendered: moneyPtr(20000),
		Lines: []domain.CheckoutLine{
			{ProductID: "prd-aqua-600", Quantity: 2},
			{RefillOptionID: "rfl-galon-19l", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if !resp.Sale.Subtotal.Equal(money(13000)) {
		t.Fatalf("expected subtotal 13000, got %s", resp.Sale.Subtotal)
	}
	if !resp.Sale.ChangeAmount.Equal(money(7000)) {
		t.Fatalf("expected change 7000, got %s", resp.Sale.ChangeAmount)
	}
	if !resp.Sale.TotalProfit.IsZero() || !resp.Receipt.Profit.IsZero() {
		t.Fatalf("expected profit to be hidden from cashier")
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 sale items, got %d", len(resp.Items))
	}
	if resp.Items[1].ProductID != nil {
		t.Fatalf("expected refill item without product id")
	}
	if resp.Receipt.StoreName != "Toko Isi" {
		t.Fatalf("expected store header on receipt, got %q", resp.Receipt.StoreName)
	}

	product, err := repo.GetProduct(context.Background(), "prd-aqua-600")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.StockQuantity != 118 {
		t.Fatalf("expected stock 118, got %d", product.StockQuantity)
	}

	stored, err := repo.GetSale(context.Background(), resp.Sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if !stored.TotalProfit.Equal(money(8000)) {
		t.Fatalf("expected stored profit 8000, got %s", stored.TotalProfit)
	}
}

func TestCheckoutMergesRepeatedProductLines(t *testing.T) {
	svc, repo := newTestService()

	resp, err := svc.Checkout(as(managerActor), domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCard,
		Lines: []domain.CheckoutLine{
			{ProductID: "prd-teh-botol", Quantity: 2},
			{ProductID: "prd-teh-botol", Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Quantity != 5 {
		t.Fatalf("expected one line of 5, got %+v", resp.Items)
	}
	if !resp.Sale.AmountTendered.Equal(money(25000)) {
		t.Fatalf("expected card tender to equal net, got %s", resp.Sale.AmountTendered)
	}

	product, _ := repo.GetProduct(context.Background(), "prd-teh-botol")
	if product.StockQuantity != 43 {
		t.Fatalf("expected stock 43, got %d", product.StockQuantity)
	}
}

func TestCheckoutInsufficientTenderWritesNothing(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.Checkout(as(cashierActor), domain.CheckoutRequest{
		PaymentMethod:  domain.PaymentCash,
		AmountTendered: moneyPtr(1000),
		Lines:          []domain.CheckoutLine{{ProductID: "prd-aqua-galon", Quantity: 1}},
	})
	if !errors.Is(err, checkout.ErrInsufficientAmount) {
		t.Fatalf("expected ErrInsufficientAmount, got %v", err)
	}

	sales, err := repo.ListSales(context.Background(), store.SaleFilter{})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no persisted sales, got %d", len(sales))
	}
}

func TestCheckoutCashRequiresTender(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Checkout(as(cashierActor), domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCash,
		Lines:         []domain.CheckoutLine{{ProductID: "prd-aqua-600", Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckoutRejectsQuantityAboveStock(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Checkout(as(ownerActor), domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCard,
		Lines:         []domain.CheckoutLine{{ProductID: "prd-lpg-3kg", Quantity: 5}},
	})
	if !errors.Is(err, domain.ErrStockConflict) {
		t.Fatalf("expected ErrStockConflict, got %v", err)
	}
}

func TestInactiveDiscountNeedsOverride(t *testing.T) {
	svc, _ := newTestService()
	req := domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCard,
		Lines:         []domain.CheckoutLine{{ProductID: "prd-aqua-galon", Quantity: 1, DiscountID: "dsc-lebaran-20"}},
	}

	if _, err := svc.Checkout(as(cashierActor), req); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected cashier to be denied, got %v", err)
	}
	if _, err := svc.Checkout(as(managerActor), req); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected manager to be denied, got %v", err)
	}

	resp, err := svc.Checkout(as(ownerActor), req)
	if err != nil {
		t.Fatalf("owner checkout failed: %v", err)
	}
	if !resp.Sale.DiscountAmount.Equal(money(4200)) {
		t.Fatalf("expected discount 4200, got %s", resp.Sale.DiscountAmount)
	}
	if resp.Items[0].DiscountName == nil || *resp.Items[0].DiscountName != "Lebaran 20%" {
		t.Fatalf("expected discount snapshot on sale item")
	}
}

func TestQuoteAppliesDiscountAndChange(t *testing.T) {
	svc, _ := newTestService()

	quote, err := svc.Quote(as(managerActor), domain.CheckoutRequest{
		AmountTendered: moneyPtr(20000),
		Lines:          []domain.CheckoutLine{{ProductID: "prd-aqua-galon", Quantity: 1, DiscountID: "dsc-promo-10"}},
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !quote.Gross.Equal(money(21000)) || !quote.Discount.Equal(money(2100)) || !quote.Net.Equal(money(18900)) {
		t.Fatalf("unexpected totals: gross=%s discount=%s net=%s", quote.Gross, quote.Discount, quote.Net)
	}
	if !quote.Profit.Equal(money(1900)) {
		t.Fatalf("expected profit 1900, got %s", quote.Profit)
	}
	if quote.Change == nil || quote.Change.Short || !quote.Change.Amount.Equal(money(1100)) {
		t.Fatalf("expected change 1100, got %+v", quote.Change)
	}
}

func TestQuoteRefillPriceOverride(t *testing.T) {
	svc, _ := newTestService()

	quote, err := svc.Quote(as(cashierActor), domain.CheckoutRequest{
		Lines: []domain.CheckoutLine{{RefillOptionID: "rfl-galon-19l", Quantity: 2, UnitPrice: moneyPtr(5000)}},
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !quote.Net.Equal(money(10000)) {
		t.Fatalf("expected net 10000, got %s", quote.Net)
	}
	if !quote.Profit.IsZero() {
		t.Fatalf("expected profit hidden from cashier, got %s", quote.Profit)
	}

	_, err = svc.Quote(as(cashierActor), domain.CheckoutRequest{
		Lines: []domain.CheckoutLine{{RefillOptionID: "rfl-galon-5l", Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected inactive refill option to be rejected, got %v", err)
	}
}

func TestListProductsMasksBuyingPrice(t *testing.T) {
	svc, _ := newTestService()

	products, err := svc.ListProducts(as(cashierActor), ProductQuery{})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	for _, p := range products {
		if !p.BuyingPrice.IsZero() {
			t.Fatalf("expected buying price hidden for %s", p.ID)
		}
	}

	product, err := svc.GetProduct(as(managerActor), "prd-aqua-600")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !product.BuyingPrice.Equal(money(2500)) {
		t.Fatalf("expected manager to see buying price, got %s", product.BuyingPrice)
	}
}

func TestListProductsByParentCategory(t *testing.T) {
	svc, _ := newTestService()

	products, err := svc.ListProducts(as(cashierActor), ProductQuery{CategoryID: "cat-minuman"})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 4 {
		t.Fatalf("expected 4 drinks across sub-categories, got %d", len(products))
	}

	low, err := svc.LowStockProducts(as(cashierActor))
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(low) != 1 || low[0].ID != "prd-lpg-3kg" {
		t.Fatalf("expected only LPG to be low on stock, got %+v", low)
	}
}

func TestCreateProductRequiresManageProducts(t *testing.T) {
	svc, _ := newTestService()
	req := domain.ProductCreateRequest{
		Name:          "Sabun Cuci",
		BuyingPrice:   money(8000),
		SellingPrice:  money(10000),
		StockQuantity: 12,
	}

	if _, err := svc.CreateProduct(as(cashierActor), req); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}

	created, err := svc.CreateProduct(as(managerActor), req)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if created.LowStockThreshold != domain.DefaultLowStockThreshold {
		t.Fatalf("expected default threshold, got %d", created.LowStockThreshold)
	}

	req.SellingPrice = money(-1)
	if _, err := svc.CreateProduct(as(managerActor), req); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
}

func TestCategoryHierarchyRules(t *testing.T) {
	svc, _ := newTestService()
	ctx := as(managerActor)

	grandchild := "cat-air-mineral"
	_, err := svc.CreateCategory(ctx, domain.CategoryCreateRequest{Name: "Galon", ParentID: &grandchild})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected depth violation, got %v", err)
	}

	missing := "cat-missing"
	_, err = svc.CreateCategory(ctx, domain.CategoryCreateRequest{Name: "Galon", ParentID: &missing})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected unknown parent, got %v", err)
	}

	if err := svc.DeleteCategory(ctx, "cat-minuman"); !errors.Is(err, store.ErrHasChildren) {
		t.Fatalf("expected ErrHasChildren, got %v", err)
	}
	categories, err := svc.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	kept := 0
	for _, c := range categories {
		if c.ID == "cat-minuman" || (c.ParentID != nil && *c.ParentID == "cat-minuman") {
			kept++
		}
	}
	if kept != 3 {
		t.Fatalf("expected parent and both children to remain after rejected delete, got %d", kept)
	}

	root := ""
	moved, err := svc.UpdateCategory(ctx, "cat-gas", domain.CategoryUpdateRequest{ParentID: &root})
	if err != nil {
		t.Fatalf("move to root: %v", err)
	}
	if moved.ParentID != nil {
		t.Fatalf("expected category at root")
	}
	if err := svc.DeleteCategory(ctx, "cat-rumah"); err != nil {
		t.Fatalf("delete emptied parent: %v", err)
	}

	nodes, err := svc.CategoryTree(ctx)
	if err != nil {
		t.Fatalf("category tree: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(nodes))
	}
}

func TestCreateDiscountValidates(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateDiscount(as(managerActor), domain.DiscountCreateRequest{
		Name:  "Terlalu Besar",
		Kind:  domain.DiscountPercentage,
		Value: money(150),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	created, err := svc.CreateDiscount(as(managerActor), domain.DiscountCreateRequest{
		Name:  "Hemat 1000",
		Kind:  domain.DiscountFixed,
		Value: money(1000),
	})
	if err != nil {
		t.Fatalf("create discount: %v", err)
	}
	if !created.Active || created.CreatedBy != managerActor.UserID {
		t.Fatalf("unexpected discount: %+v", created)
	}

	active, err := svc.ListDiscounts(as(cashierActor))
	if err != nil {
		t.Fatalf("list discounts: %v", err)
	}
	for _, d := range active {
		if !d.Active {
			t.Fatalf("cashier should only see active discounts, got %s", d.ID)
		}
	}
}

func TestAssignRole(t *testing.T) {
	svc, repo := newTestService()

	err := repo.CreateUser(context.Background(), domain.UserAccount{
		UserID:       "user-new",
		Email:        "baru@tokoisi.local",
		PasswordHash: "hash",
	}, domain.Profile{FullName: "Kasir Baru"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := svc.AssignRole(as(managerActor), "user-new", domain.RoleAssignRequest{Role: domain.RoleCashier}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected manager to be denied, got %v", err)
	}
	if _, err := svc.AssignRole(as(ownerActor), "user-new", domain.RoleAssignRequest{Role: "janitor"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected unknown role to be rejected, got %v", err)
	}
	if _, err := svc.AssignRole(as(ownerActor), ownerActor.UserID, domain.RoleAssignRequest{Role: domain.RoleCashier}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected self role change to be denied, got %v", err)
	}

	member, err := svc.AssignRole(as(ownerActor), "user-new", domain.RoleAssignRequest{Role: domain.RoleCashier})
	if err != nil {
		t.Fatalf("assign role: %v", err)
	}
	if member.Role != domain.RoleCashier {
		t.Fatalf("expected cashier role, got %s", member.Role)
	}

	if err := svc.RevokeRole(as(ownerActor), "user-new"); err != nil {
		t.Fatalf("revoke role: %v", err)
	}
	role, _ := repo.GetUserRole(context.Background(), "user-new")
	if role != "" {
		t.Fatalf("expected no role after revoke, got %s", role)
	}
}

func TestUserWithoutRoleCannotUseFeatures(t *testing.T) {
	svc, _ := newTestService()
	ctx := as(domain.Actor{UserID: "user-pending", Email: "pending@tokoisi.local"})

	if _, err := svc.ListProducts(ctx, ProductQuery{}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	perms, err := svc.MyPermissions(ctx)
	if err != nil {
		t.Fatalf("my permissions: %v", err)
	}
	if perms.Capabilities.ManageProducts || perms.Capabilities.ViewReports {
		t.Fatalf("expected zero capabilities, got %+v", perms.Capabilities)
	}
}

func TestSalesReportAndSaleAccess(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.Checkout(as(cashierActor), domain.CheckoutRequest{
		PaymentMethod:  domain.PaymentCash,
		AmountTendered: moneyPtr(50000),
		Lines: []domain.CheckoutLine{
			{ProductID: "prd-aqua-galon", Quantity: 1},
			{RefillOptionID: "rfl-galon-ro", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if _, err := svc.SalesReport(as(cashierActor), RangeQuery{Range: "today"}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected cashier to be denied reports, got %v", err)
	}

	rep, err := svc.SalesReport(as(managerActor), RangeQuery{Range: "today"})
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}
	if rep.Count != 1 || !rep.Revenue.Equal(money(29000)) {
		t.Fatalf("unexpected report totals: count=%d revenue=%s", rep.Count, rep.Revenue)
	}
	if !rep.Profit.Equal(money(12000)) {
		t.Fatalf("expected profit 12000, got %s", rep.Profit)
	}
	if len(rep.TopCategories) != 2 {
		t.Fatalf("expected water and uncategorized buckets, got %+v", rep.TopCategories)
	}

	detail, err := svc.GetSale(as(cashierActor), resp.Sale.ID)
	if err != nil {
		t.Fatalf("cashier reads own sale: %v", err)
	}
	if !detail.Sale.TotalProfit.IsZero() || !detail.Items[0].BuyingPrice.IsZero() {
		t.Fatalf("expected cost figures hidden from cashier")
	}

	sales, err := svc.ListSales(as(ownerActor), SalesQuery{})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 || sales[0].ID != resp.Sale.ID {
		t.Fatalf("expected the one sale, got %+v", sales)
	}
}

func TestSalesReportIncludesNewSale(t *testing.T) {
	svc, _ := newTestService()

	before, err := svc.SalesReport(as(ownerActor), RangeQuery{Range: "today"})
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}

	_, err = svc.Checkout(as(cashierActor), domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCard,
		Lines:         []domain.CheckoutLine{{ProductID: "prd-aqua-600", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	after, err := svc.SalesReport(as(ownerActor), RangeQuery{Range: "today"})
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}
	if after.Count != before.Count+1 {
		t.Fatalf("expected count %d after checkout, got %d", before.Count+1, after.Count)
	}
	if !after.Revenue.GreaterThan(before.Revenue) {
		t.Fatalf("expected revenue to grow, before=%s after=%s", before.Revenue, after.Revenue)
	}
}

type failingStockRepo struct {
	*memory.Store
}

func (failingStockRepo) DecrementStock(context.Context, string, int) error {
	return errors.New("connection reset")
}

func TestSalesReportIncludesPartiallySavedSale(t *testing.T) {
	repo := failingStockRepo{Store: memory.NewSeeded(nil)}
	engine := report.NewEngine(cache.NewMemoryReportCache(16, time.Minute), time.Minute, zap.NewNop())
	svc := New(repo, engine, zap.NewNop(), time.UTC)

	if _, err := svc.SalesReport(as(ownerActor), RangeQuery{Range: "today"}); err != nil {
		t.Fatalf("warm report: %v", err)
	}

	_, err := svc.Checkout(as(cashierActor), domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCard,
		Lines:         []domain.CheckoutLine{{ProductID: "prd-aqua-600", Quantity: 1}},
	})
	var stepErr *checkout.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != checkout.StepStock {
		t.Fatalf("expected stock step failure, got %v", err)
	}

	rep, err := svc.SalesReport(as(ownerActor), RangeQuery{Range: "today"})
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}
	if rep.Count != 1 {
		t.Fatalf("expected the saved sale header to be reported, got count %d", rep.Count)
	}
}

func TestCheckoutRejectsSyntheticProductID(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Quote(as(cashierActor), domain.CheckoutRequest{
		Lines: []domain.CheckoutLine{{ProductID: "refill-0c8a", Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for refill id on a product line, got %v", err)
	}
}

func TestActivityLogRecordsWrites(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.CreateBrand(as(managerActor), domain.BrandCreateRequest{Name: "Ades"}); err != nil {
		t.Fatalf("create brand: %v", err)
	}

	if _, err := svc.ListActivityLogs(as(managerActor), ActivityQuery{}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected manager to be denied activity logs, got %v", err)
	}

	logs, err := svc.ListActivityLogs(as(ownerActor), ActivityQuery{RangeQuery: RangeQuery{Range: "today"}})
	if err != nil {
		t.Fatalf("list activity logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "brand.create" || logs[0].ActorID != managerActor.UserID {
		t.Fatalf("unexpected activity log: %+v", logs)
	}
}

func TestUpdateSettingsRequiresAccess(t *testing.T) {
	svc, _ := newTestService()
	name := "Toko Isi Ulang Makmur"

	if _, err := svc.UpdateSettings(as(managerActor), domain.StoreSettingsUpdateRequest{StoreName: &name}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected manager to be denied settings, got %v", err)
	}

	updated, err := svc.UpdateSettings(as(ownerActor), domain.StoreSettingsUpdateRequest{StoreName: &name})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if updated.StoreName != name {
		t.Fatalf("expected store name %q, got %q", name, updated.StoreName)
	}
}
