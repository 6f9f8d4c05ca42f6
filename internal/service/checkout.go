package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tokoisi/backend/internal/access"
	"tokoisi/backend/internal/cart"
	"tokoisi/backend/internal/checkout"
	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/pricing"
	"tokoisi/backend/internal/xid"
)

// buildCart replays request lines into a fresh cart, loading current prices
// and stock from the store. Repeated product lines merge into one.
func (s *Service) buildCart(ctx context.Context, actor domain.Actor, lines []domain.CheckoutLine) (*cart.Cart, error) {
	if len(lines) == 0 {
		return nil, checkout.ErrEmptyCart
	}

	caps := access.For(actor.Role)
	c := cart.New()
	for i, line := range lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: line %d quantity must be at least 1", domain.ErrValidation, i+1)
		}

		var lineID string
		switch {
		case line.ProductID != "" && line.RefillOptionID != "":
			return nil, fmt.Errorf("%w: line %d has both product and refill option", domain.ErrValidation, i+1)
		case line.ProductID != "":
			if line.UnitPrice != nil {
				return nil, fmt.Errorf("%w: line %d: only refill prices can be overridden", domain.ErrValidation, i+1)
			}
			if xid.HasPrefix(line.ProductID, cart.RefillPrefix) {
				return nil, fmt.Errorf("%w: line %d: refill lines use refill_option_id", domain.ErrValidation, i+1)
			}
			product, err := s.repo.GetProduct(ctx, line.ProductID)
			if err != nil {
				return nil, err
			}
			lineID = product.ID
			if inCart(c, lineID) {
				if err := c.Adjust(lineID, line.Quantity); err != nil {
					return nil, err
				}
				break
			}
			if err := c.Add(*product); err != nil {
				return nil, err
			}
			if err := c.SetQuantity(lineID, line.Quantity); err != nil {
				return nil, err
			}
		case line.RefillOptionID != "":
			option, err := s.repo.GetRefillOption(ctx, line.RefillOptionID)
			if err != nil {
				return nil, err
			}
			if !option.Active {
				return nil, fmt.Errorf("%w: refill option %s is not active", domain.ErrValidation, option.Name)
			}
			synthetic, err := c.AddRefill(*option, line.UnitPrice)
			if err != nil {
				return nil, err
			}
			lineID = synthetic.ID
			if err := c.SetQuantity(lineID, line.Quantity); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: line %d needs a product or refill option", domain.ErrValidation, i+1)
		}

		if line.DiscountID == "" {
			continue
		}
		discount, err := s.repo.GetDiscount(ctx, line.DiscountID)
		if err != nil {
			return nil, err
		}
		if !discount.Active && !caps.OverrideTransactions {
			return nil, fmt.Errorf("%w: discount %s is not active", domain.ErrPermissionDenied, discount.Name)
		}
		if err := c.ApplyDiscount(lineID, discount); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func inCart(c *cart.Cart, id string) bool {
	for _, item := range c.Items() {
		if item.ID() == id {
			return true
		}
	}
	return false
}

// Quote prices the request lines without persisting anything.
func (s *Service) Quote(ctx context.Context, req domain.CheckoutRequest) (domain.QuoteResponse, error) {
	actor, err := requireStaff(ctx)
	if err != nil {
		return domain.QuoteResponse{}, err
	}
	c, err := s.buildCart(ctx, actor, req.Lines)
	if err != nil {
		return domain.QuoteResponse{}, err
	}

	items := c.Items()
	totals := c.Totals()
	out := domain.QuoteResponse{
		Lines:    make([]domain.QuoteLine, 0, len(items)),
		Gross:    totals.Gross,
		Discount: totals.Discount,
		Net:      totals.Net,
		Profit:   totals.Profit,
	}
	for _, item := range items {
		lt := item.Totals()
		out.Lines = append(out.Lines, domain.QuoteLine{
			ProductID: item.ID(),
			Name:      item.Product.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Product.SellingPrice,
			Gross:     lt.Gross,
			Discount:  lt.Discount,
			Net:       lt.Net,
			Profit:    lt.Profit,
		})
	}
	if req.AmountTendered != nil {
		change := pricing.DisplayChange(*req.AmountTendered, totals.Net)
		out.Change = &change
	}

	if !access.For(actor.Role).ViewProfit {
		out.Profit = decimal.Zero
		for i := range out.Lines {
			out.Lines[i].Profit = decimal.Zero
		}
	}
	return out, nil
}

// Checkout builds the cart and runs it through a checkout session. Every
// role may sell.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID == "" {
		return domain.CheckoutResponse{}, checkout.ErrNoActor
	}
	if actor.Role == "" {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: no role assigned", domain.ErrPermissionDenied)
	}

	c, err := s.buildCart(ctx, actor, req.Lines)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	session, err := s.checkout.Begin(actor, c, req.PaymentMethod)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	if settings, err := s.repo.GetSettings(ctx); err != nil {
		s.logger.Warn("receipt printed without store header", zap.Error(err))
	} else {
		session.UseSettings(settings)
	}

	if session.State() == checkout.StateAwaitingTender {
		if req.AmountTendered == nil {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: amount_tendered is required for cash payments", domain.ErrValidation)
		}
		if _, err := session.Tender(*req.AmountTendered); err != nil {
			return domain.CheckoutResponse{}, err
		}
	}

	result, err := session.Commit(ctx)
	if err != nil {
		var stepErr *checkout.StepError
		if errors.As(err, &stepErr) && stepErr.SaleID != "" {
			s.reports.Invalidate()
		}
		return domain.CheckoutResponse{}, err
	}
	s.reports.Invalidate()

	s.logAudit(ctx, "sale.create", "sale", result.Sale.ID,
		fmt.Sprintf("%s %s, %d lines", result.Sale.PaymentMethod, result.Sale.Subtotal, len(result.Items)))

	caps := access.For(actor.Role)
	result.Sale, result.Items = maskSale(caps, result.Sale, result.Items)
	if !caps.ViewProfit {
		result.Receipt.Profit = decimal.Zero
	}
	return result, nil
}

func maskSale(caps access.Capabilities, sale domain.Sale, items []domain.SaleItem) (domain.Sale, []domain.SaleItem) {
	if !caps.ViewProfit {
		sale.TotalProfit = decimal.Zero
	}
	for i := range items {
		if !caps.ViewProfit {
			items[i].Profit = decimal.Zero
		}
		if !caps.ViewBuyingPrice {
			items[i].BuyingPrice = decimal.Zero
		}
	}
	return sale, items
}
