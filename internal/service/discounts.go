package service

import (
	"context"
	"fmt"
	"strings"

	"tokoisi/backend/internal/access"
	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/pricing"
)

// ListDiscounts returns active discounts. Roles that manage products or may
// override transactions also see inactive ones.
func (s *Service) ListDiscounts(ctx context.Context) ([]domain.Discount, error) {
	actor, err := requireStaff(ctx)
	if err != nil {
		return nil, err
	}
	caps := access.For(actor.Role)
	return s.repo.ListDiscounts(ctx, !(caps.ManageProducts || caps.OverrideTransactions))
}

func (s *Service) CreateDiscount(ctx context.Context, req domain.DiscountCreateRequest) (domain.Discount, error) {
	actor, err := requireCapability(ctx, access.CanManageProducts, "manage discounts")
	if err != nil {
		return domain.Discount{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Discount{}, fmt.Errorf("%w: discount name is required", domain.ErrValidation)
	}
	if err := pricing.ValidateDiscount(req.Kind, req.Value); err != nil {
		return domain.Discount{}, err
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	created, err := s.repo.CreateDiscount(ctx, domain.Discount{
		Name:      name,
		Kind:      req.Kind,
		Value:     req.Value,
		Active:    active,
		CreatedBy: actor.UserID,
	})
	if err != nil {
		return domain.Discount{}, err
	}
	s.logAudit(ctx, "discount.create", "discount", created.ID, fmt.Sprintf("%s %s %s", created.Name, created.Kind, created.Value))
	return *created, nil
}

// UpdateDiscount renames or toggles a discount. Kind and value are fixed once
// created so that past sale snapshots stay meaningful.
func (s *Service) UpdateDiscount(ctx context.Context, id string, req domain.DiscountUpdateRequest) (domain.Discount, error) {
	if _, err := requireCapability(ctx, access.CanManageProducts, "manage discounts"); err != nil {
		return domain.Discount{}, err
	}

	existing, err := s.repo.GetDiscount(ctx, id)
	if err != nil {
		return domain.Discount{}, err
	}
	discount := *existing
	if req.Name != nil {
		discount.Name = strings.TrimSpace(*req.Name)
		if discount.Name == "" {
			return domain.Discount{}, fmt.Errorf("%w: discount name is required", domain.ErrValidation)
		}
	}
	if req.Active != nil {
		discount.Active = *req.Active
	}

	updated, err := s.repo.UpdateDiscount(ctx, discount)
	if err != nil {
		return domain.Discount{}, err
	}
	s.logAudit(ctx, "discount.update", "discount", id, fmt.Sprintf("active=%t", updated.Active))
	return *updated, nil
}

func (s *Service) DeleteDiscount(ctx context.Context, id string) error {
	if _, err := requireCapability(ctx, access.CanManageProducts, "manage discounts"); err != nil {
		return err
	}
	if err := s.repo.DeleteDiscount(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "discount.delete", "discount", id, "")
	return nil
}

func (s *Service) ListRefillOptions(ctx context.Context) ([]domain.RefillOption, error) {
	actor, err := requireStaff(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListRefillOptions(ctx, !access.For(actor.Role).ManageProducts)
}

func (s *Service) CreateRefillOption(ctx context.Context, req domain.RefillOptionCreateRequest) (domain.RefillOption, error) {
	if _, err := requireCapability(ctx, access.CanManageProducts, "manage refill options"); err != nil {
		return domain.RefillOption{}, err
	}

	option := domain.RefillOption{
		Name:         strings.TrimSpace(req.Name),
		Volume:       req.Volume,
		DefaultPrice: req.DefaultPrice,
		Active:       true,
	}
	if err := validateRefillOption(option); err != nil {
		return domain.RefillOption{}, err
	}

	created, err := s.repo.CreateRefillOption(ctx, option)
	if err != nil {
		return domain.RefillOption{}, err
	}
	s.logAudit(ctx, "refill.create", "refill_option", created.ID, created.Name)
	return *created, nil
}

func (s *Service) UpdateRefillOption(ctx context.Context, id string, req domain.RefillOptionUpdateRequest) (domain.RefillOption, error) {
	if _, err := requireCapability(ctx, access.CanManageProducts, "manage refill options"); err != nil {
		return domain.RefillOption{}, err
	}

	existing, err := s.repo.GetRefillOption(ctx, id)
	if err != nil {
		return domain.RefillOption{}, err
	}
	option := *existing
	if req.Name != nil {
		option.Name = strings.TrimSpace(*req.Name)
	}
	if req.Volume != nil {
		option.Volume = *req.Volume
	}
	if req.DefaultPrice != nil {
		option.DefaultPrice = *req.DefaultPrice
	}
	if req.Active != nil {
		option.Active = *req.Active
	}
	if err := validateRefillOption(option); err != nil {
		return domain.RefillOption{}, err
	}

	updated, err := s.repo.UpdateRefillOption(ctx, option)
	if err != nil {
		return domain.RefillOption{}, err
	}
	s.logAudit(ctx, "refill.update", "refill_option", id, updated.Name)
	return *updated, nil
}

func (s *Service) DeleteRefillOption(ctx context.Context, id string) error {
	if _, err := requireCapability(ctx, access.CanManageProducts, "manage refill options"); err != nil {
		return err
	}
	if err := s.repo.DeleteRefillOption(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "refill.delete", "refill_option", id, "")
	return nil
}

func validateRefillOption(o domain.RefillOption) error {
	switch {
	case o.Name == "":
		return fmt.Errorf("%w: refill option name is required", domain.ErrValidation)
	case !o.Volume.IsPositive():
		return fmt.Errorf("%w: refill volume must be positive", domain.ErrValidation)
	case o.DefaultPrice.IsNegative():
		return fmt.Errorf("%w: refill price cannot be negative", domain.ErrValidation)
	}
	return nil
}
