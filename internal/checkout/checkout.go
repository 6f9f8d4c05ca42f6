// Package checkout turns a cart into a persisted sale.
//
// Commit writes the sale header, then the sale items, then decrements stock,
// one call at a time. A failure stops the sequence and leaves earlier writes
// in place; there is no rollback. Reconciling a partial sale is a manual job,
// so the returned StepError names the failed step and the sale id.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tokoisi/backend/internal/cart"
	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/pricing"
	"tokoisi/backend/internal/xid"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNoActor            = errors.New("no authenticated staff identity")
	ErrInsufficientAmount = errors.New("insufficient amount")
	ErrInvalidState       = errors.New("invalid checkout state")
)

type State int

const (
	StateIdle State = iota
	StateAwaitingTender
	StateCommitting
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingTender:
		return "awaiting_tender"
	case StateCommitting:
		return "committing"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Step string

const (
	StepSaleHeader Step = "sale_header"
	StepSaleItems  Step = "sale_items"
	StepStock      Step = "stock_decrement"
)

// StepError reports which commit step failed. It matches domain.ErrPersistence
// and the underlying store error under errors.Is.
type StepError struct {
	Step   Step
	SaleID string
	Err    error
}

func (e *StepError) Error() string {
	if e.SaleID == "" {
		return fmt.Sprintf("checkout %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("checkout %s (sale %s): %v", e.Step, e.SaleID, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{domain.ErrPersistence, e.Err}
}

// Store is the persistence a checkout needs. store.Repository satisfies it.
type Store interface {
	CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error)
	CreateSaleItems(ctx context.Context, items []domain.SaleItem) ([]domain.SaleItem, error)
	DecrementStock(ctx context.Context, productID string, qty int) error
}

type Orchestrator struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewOrchestrator(store Store, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

type Session struct {
	orch     *Orchestrator
	actor    domain.Actor
	cart     *cart.Cart
	method   domain.PaymentMethod
	lines    []cart.Item
	totals   pricing.Totals
	settings *domain.StoreSettings

	state    State
	tendered decimal.Decimal
	change   decimal.Decimal
	result   domain.CheckoutResponse
	err      error
}

// Begin validates the cart and actor and opens a session. Cash goes to
// AwaitingTender; card goes straight to Committing. Nothing is persisted.
func (o *Orchestrator) Begin(actor domain.Actor, c *cart.Cart, method domain.PaymentMethod) (*Session, error) {
	if c == nil || c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if actor.UserID == "" {
		return nil, ErrNoActor
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrValidation, method)
	}

	totals := c.Totals()
	if totals.Net.IsNegative() {
		return nil, fmt.Errorf("%w: cart total is negative", domain.ErrValidation)
	}

	s := &Session{
		orch:   o,
		actor:  actor,
		cart:   c,
		method: method,
		lines:  c.Items(),
		totals: totals,
		state:  StateIdle,
	}

	if method == domain.PaymentCash {
		s.state = StateAwaitingTender
	} else {
		s.tendered = totals.Net
		s.change = decimal.Zero
		s.state = StateCommitting
	}
	return s, nil
}

// UseSettings sets the store header printed on the receipt.
func (s *Session) UseSettings(settings domain.StoreSettings) {
	s.settings = &settings
}

func (s *Session) State() State { return s.state }

func (s *Session) Err() error { return s.err }

func (s *Session) Totals() pricing.Totals { return s.totals }

// Tender records the cash offered. Short amounts keep the session in
// AwaitingTender so the cashier can enter a new amount.
func (s *Session) Tender(amount decimal.Decimal) (domain.ChangeDisplay, error) {
	if s.state != StateAwaitingTender {
		return domain.ChangeDisplay{}, fmt.Errorf("%w: tender in %s", ErrInvalidState, s.state)
	}

	display := pricing.DisplayChange(amount, s.totals.Net)
	if display.Short {
		return display, fmt.Errorf("%w: short by %s", ErrInsufficientAmount, display.Amount.StringFixed(2))
	}

	s.tendered = amount
	s.change = pricing.Change(amount, s.totals.Net)
	s.state = StateCommitting
	return display, nil
}

// Cancel abandons the session before any write. The cart is left as is.
func (s *Session) Cancel() error {
	if s.state != StateAwaitingTender && !(s.state == StateCommitting && s.result.Sale.ID == "") {
		return fmt.Errorf("%w: cancel in %s", ErrInvalidState, s.state)
	}
	s.state = StateIdle
	return nil
}

func (s *Session) Commit(ctx context.Context) (domain.CheckoutResponse, error) {
	if s.state != StateCommitting || s.result.Sale.ID != "" {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: commit in %s", ErrInvalidState, s.state)
	}

	log := s.orch.logger.With(zap.String("cashier_id", s.actor.UserID), zap.String("payment_method", string(s.method)))
	now := s.orch.now()

	header := domain.Sale{
		ID:             xid.New("sale"),
		CashierID:      s.actor.UserID,
		Subtotal:       s.totals.Net,
		TotalProfit:    s.totals.Profit,
		DiscountAmount: s.totals.Discount,
		PaymentMethod:  s.method,
		AmountTendered: s.tendered,
		ChangeAmount:   s.change,
		CreatedAt:      now,
	}

	sale, err := s.orch.store.CreateSale(ctx, header)
	if err != nil {
		return domain.CheckoutResponse{}, s.fail(log, StepSaleHeader, "", err)
	}
	s.result.Sale = sale

	items, err := s.orch.store.CreateSaleItems(ctx, buildItems(sale.ID, s.lines))
	if err != nil {
		return domain.CheckoutResponse{}, s.fail(log, StepSaleItems, sale.ID, err)
	}
	s.result.Items = items

	for _, dec := range stockDecrements(s.lines) {
		if err := s.orch.store.DecrementStock(ctx, dec.productID, dec.qty); err != nil {
			return domain.CheckoutResponse{}, s.fail(log, StepStock, sale.ID, fmt.Errorf("product %s: %w", dec.productID, err))
		}
	}

	s.result.Receipt = buildReceipt(sale, s.lines, s.totals, s.settings)
	s.cart.Clear()
	s.state = StateComplete

	log.Info("sale completed",
		zap.String("sale_id", sale.ID),
		zap.Int("lines", len(s.lines)),
		zap.String("net", s.totals.Net.String()),
	)
	return s.result, nil
}

// Receipt is available once the session is Complete.
func (s *Session) Receipt() (domain.Receipt, bool) {
	if s.state != StateComplete {
		return domain.Receipt{}, false
	}
	return s.result.Receipt, true
}

func (s *Session) fail(log *zap.Logger, step Step, saleID string, err error) error {
	stepErr := &StepError{Step: step, SaleID: saleID, Err: err}
	s.state = StateFailed
	s.err = stepErr
	log.Error("checkout step failed",
		zap.String("step", string(step)),
		zap.String("sale_id", saleID),
		zap.Error(err),
	)
	return stepErr
}

func buildItems(saleID string, lines []cart.Item) []domain.SaleItem {
	items := make([]domain.SaleItem, 0, len(lines))
	for _, line := range lines {
		totals := line.Totals()
		item := domain.SaleItem{
			ID:               xid.New("item"),
			SaleID:           saleID,
			ProductName:      line.Product.Name,
			BuyingPrice:      line.Product.BuyingPrice,
			SellingPrice:     line.Product.SellingPrice,
			Quantity:         line.Quantity,
			Subtotal:         totals.Net,
			Profit:           totals.Profit,
			OriginalSubtotal: totals.Gross,
			DiscountAmount:   totals.Discount,
		}
		if !line.Product.Synthetic {
			productID := line.Product.ID
			item.ProductID = &productID
		}
		if d := line.Discount; d != nil {
			id, name, kind, value := d.ID, d.Name, string(d.Kind), d.Value
			item.DiscountID = &id
			item.DiscountName = &name
			item.DiscountKind = &kind
			item.DiscountValue = &value
		}
		items = append(items, item)
	}
	return items
}

type stockDecrement struct {
	productID string
	qty       int
}

// stockDecrements sums quantities per real product, in first-seen order.
func stockDecrements(lines []cart.Item) []stockDecrement {
	var out []stockDecrement
	index := make(map[string]int)
	for _, line := range lines {
		if line.Product.Synthetic {
			continue
		}
		if i, ok := index[line.Product.ID]; ok {
			out[i].qty += line.Quantity
			continue
		}
		index[line.Product.ID] = len(out)
		out = append(out, stockDecrement{productID: line.Product.ID, qty: line.Quantity})
	}
	return out
}

func buildReceipt(sale domain.Sale, lines []cart.Item, totals pricing.Totals, settings *domain.StoreSettings) domain.Receipt {
	receipt := domain.Receipt{
		SaleID:         sale.ID,
		CashierID:      sale.CashierID,
		Lines:          make([]domain.ReceiptLine, 0, len(lines)),
		Gross:          totals.Gross,
		Discount:       totals.Discount,
		Net:            totals.Net,
		Profit:         totals.Profit,
		PaymentMethod:  sale.PaymentMethod,
		AmountTendered: sale.AmountTendered,
		ChangeAmount:   sale.ChangeAmount,
		CreatedAt:      sale.CreatedAt,
	}
	if settings != nil {
		receipt.StoreName = settings.StoreName
		receipt.StoreAddress = settings.Address
		receipt.StorePhone = settings.Phone
		receipt.Footer = settings.ReceiptFooter
	}

	for _, line := range lines {
		lt := line.Totals()
		rl := domain.ReceiptLine{
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.Product.SellingPrice,
			Gross:     lt.Gross,
			Discount:  lt.Discount,
			Net:       lt.Net,
		}
		if line.Discount != nil {
			rl.DiscountName = line.Discount.Name
		}
		receipt.Lines = append(receipt.Lines, rl)
	}
	return receipt
}
