package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"tokoisi/backend/internal/cart"
	"tokoisi/backend/internal/domain"
)

type fakeStore struct {
	sales      []domain.Sale
	items      []domain.SaleItem
	stock      map[string]int
	decrements []string

	failHeader bool
	failItems  bool
	failStock  bool
}

var errStore = errors.New("store unavailable")

func newFakeStore(stock map[string]int) *fakeStore {
	return &fakeStore{stock: stock}
}

func (f *fakeStore) CreateSale(_ context.Context, sale domain.Sale) (domain.Sale, error) {
	if f.failHeader {
		return domain.Sale{}, errStore
	}
	f.sales = append(f.sales, sale)
	return sale, nil
}

func (f *fakeStore) CreateSaleItems(_ context.Context, items []domain.SaleItem) ([]domain.SaleItem, error) {
	if f.failItems {
		return nil, errStore
	}
	f.items = append(f.items, items...)
	return items, nil
}

func (f *fakeStore) DecrementStock(_ context.Context, productID string, qty int) error {
	if f.failStock {
		return errStore
	}
	f.stock[productID] -= qty
	f.decrements = append(f.decrements, productID)
	return nil
}

var cashier = domain.Actor{UserID: "user-cashier", Email: "kasir@tokoisi.local", Role: domain.RoleCashier}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func product(id string, price int64, stock int) domain.Product {
	return domain.Product{
		ID:            id,
		Name:          "Produk " + id,
		BuyingPrice:   dec(price * 6 / 10),
		SellingPrice:  dec(price),
		StockQuantity: stock,
	}
}

func TestCashCheckout(t *testing.T) {
	store := newFakeStore(map[string]int{"p1": 10})
	orch := NewOrchestrator(store, nil)

	c := cart.New()
	p := product("p1", 150, 10)
	_ = c.Add(p)
	_ = c.Add(p)

	session, err := orch.Begin(cashier, c, domain.PaymentCash)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if session.State() != StateAwaitingTender {
		t.Fatalf("expected awaiting tender, got %s", session.State())
	}

	change, err := session.Tender(dec(400))
	if err != nil {
		t.Fatalf("tender: %v", err)
	}
	if !change.Amount.Equal(dec(100)) || change.Short {
		t.Fatalf("unexpected change %+v", change)
	}

	result, err := session.Commit(context.Background())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if !result.Sale.Subtotal.Equal(dec(300)) {
		t.Fatalf("expected total 300, got %s", result.Sale.Subtotal)
	}
	if !result.Sale.ChangeAmount.Equal(dec(100)) {
		t.Fatalf("expected change 100, got %s", result.Sale.ChangeAmount)
	}
	if store.stock["p1"] != 8 {
		t.Fatalf("expected stock 8, got %d", store.stock["p1"])
	}
	if session.State() != StateComplete {
		t.Fatalf("expected complete, got %s", session.State())
	}
	if !c.IsEmpty() {
		t.Fatalf("cart should be cleared after checkout")
	}

	receipt, ok := session.Receipt()
	if !ok {
		t.Fatalf("expected receipt")
	}
	if receipt.SaleID != result.Sale.ID || len(receipt.Lines) != 1 || receipt.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
}

func TestCardCheckoutWithPercentageDiscount(t *testing.T) {
	store := newFakeStore(map[string]int{"p1": 3})
	orch := NewOrchestrator(store, nil)

	c := cart.New()
	_ = c.Add(product("p1", 100, 3))
	_ = c.ApplyDiscount("p1", &domain.Discount{ID: "d1", Name: "Promo 10", Kind: domain.DiscountPercentage, Value: dec(10)})

	session, err := orch.Begin(cashier, c, domain.PaymentCard)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if session.State() != StateCommitting {
		t.Fatalf("card should skip tender, got %s", session.State())
	}

	result, err := session.Commit(context.Background())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	item := result.Items[0]
	if !item.DiscountAmount.Equal(dec(10)) {
		t.Fatalf("expected line discount 10, got %s", item.DiscountAmount)
	}
	if !item.Subtotal.Equal(dec(90)) {
		t.Fatalf("expected line net 90, got %s", item.Subtotal)
	}
	if !item.OriginalSubtotal.Equal(dec(100)) {
		t.Fatalf("expected original subtotal 100, got %s", item.OriginalSubtotal)
	}
	if item.DiscountID == nil || *item.DiscountID != "d1" || item.DiscountKind == nil || *item.DiscountKind != "percentage" {
		t.Fatalf("expected discount snapshot, got %+v", item)
	}
	if !result.Sale.DiscountAmount.Equal(dec(10)) {
		t.Fatalf("expected sale discount 10, got %s", result.Sale.DiscountAmount)
	}
}

func TestRefillLineSkipsStock(t *testing.T) {
	store := newFakeStore(map[string]int{"p1": 5})
	orch := NewOrchestrator(store, nil)

	c := cart.New()
	_ = c.Add(product("p1", 3000, 5))
	refill, err := c.AddRefill(domain.RefillOption{ID: "r1", Name: "Isi ulang galon", DefaultPrice: dec(6000), Active: true}, nil)
	if err != nil {
		t.Fatalf("add refill: %v", err)
	}

	session, err := orch.Begin(cashier, c, domain.PaymentCard)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	result, err := session.Commit(context.Background())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Items[1].ProductID != nil {
		t.Fatalf("refill item must have nil product id, got %v", *result.Items[1].ProductID)
	}
	if result.Items[1].ProductName != refill.Name {
		t.Fatalf("expected refill name snapshot, got %q", result.Items[1].ProductName)
	}
	if len(store.decrements) != 1 || store.decrements[0] != "p1" {
		t.Fatalf("expected a single decrement for p1, got %v", store.decrements)
	}
}

func TestInsufficientTenderIsRetryable(t *testing.T) {
	store := newFakeStore(map[string]int{"p1": 5})
	orch := NewOrchestrator(store, nil)

	c := cart.New()
	_ = c.Add(product("p1", 150, 5))

	session, err := orch.Begin(cashier, c, domain.PaymentCash)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	display, err := session.Tender(dec(100))
	if !errors.Is(err, ErrInsufficientAmount) {
		t.Fatalf("expected insufficient amount, got %v", err)
	}
	if !display.Short || !display.Amount.Equal(dec(50)) {
		t.Fatalf("expected 50 short, got %+v", display)
	}
	if session.State() != StateAwaitingTender {
		t.Fatalf("expected to stay awaiting tender, got %s", session.State())
	}
	if _, err := session.Commit(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("commit before tender should fail, got %v", err)
	}

	if _, err := session.Tender(dec(150)); err != nil {
		t.Fatalf("retry tender: %v", err)
	}
	if _, err := session.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(store.sales) != 1 {
		t.Fatalf("expected one sale, got %d", len(store.sales))
	}
}

func TestBeginGuards(t *testing.T) {
	orch := NewOrchestrator(newFakeStore(map[string]int{}), nil)

	if _, err := orch.Begin(cashier, cart.New(), domain.PaymentCash); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected empty cart error, got %v", err)
	}

	c := cart.New()
	_ = c.Add(product("p1", 10, 1))
	if _, err := orch.Begin(domain.Actor{}, c, domain.PaymentCash); !errors.Is(err, ErrNoActor) {
		t.Fatalf("expected no actor error, got %v", err)
	}
	if _, err := orch.Begin(cashier, c, domain.PaymentMethod("qris")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	negative := cart.New()
	_ = negative.Add(product("p2", 5, 1))
	_ = negative.ApplyDiscount("p2", &domain.Discount{ID: "d", Kind: domain.DiscountFixed, Value: dec(8)})
	if _, err := orch.Begin(cashier, negative, domain.PaymentCard); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for negative total, got %v", err)
	}
}

func TestFailedStepIsNotRolledBack(t *testing.T) {
	store := newFakeStore(map[string]int{"p1": 5})
	store.failItems = true
	orch := NewOrchestrator(store, nil)

	c := cart.New()
	_ = c.Add(product("p1", 150, 5))

	session, err := orch.Begin(cashier, c, domain.PaymentCard)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	_, err = session.Commit(context.Background())
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	if !errors.Is(err, errStore) {
		t.Fatalf("expected underlying store error, got %v", err)
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != StepSaleItems {
		t.Fatalf("expected sale items step error, got %v", err)
	}
	if stepErr.SaleID == "" {
		t.Fatalf("expected sale id for reconciliation")
	}

	if session.State() != StateFailed {
		t.Fatalf("expected failed, got %s", session.State())
	}
	if len(store.sales) != 1 {
		t.Fatalf("sale header should remain persisted, got %d", len(store.sales))
	}
	if store.stock["p1"] != 5 {
		t.Fatalf("stock must not be touched, got %d", store.stock["p1"])
	}
	if c.IsEmpty() {
		t.Fatalf("cart should be kept after a failed checkout")
	}
	if _, ok := session.Receipt(); ok {
		t.Fatalf("failed session must not expose a receipt")
	}
	if _, err := session.Commit(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("failed session must not commit again, got %v", err)
	}
}

func TestCancelBeforeCommit(t *testing.T) {
	store := newFakeStore(map[string]int{"p1": 5})
	orch := NewOrchestrator(store, nil)

	c := cart.New()
	_ = c.Add(product("p1", 150, 5))

	session, err := orch.Begin(cashier, c, domain.PaymentCash)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := session.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if session.State() != StateIdle {
		t.Fatalf("expected idle, got %s", session.State())
	}
	if _, err := session.Tender(dec(500)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("tender after cancel should fail, got %v", err)
	}
	if len(store.sales) != 0 || c.Len() != 1 {
		t.Fatalf("cancel must have no external effect")
	}
}
