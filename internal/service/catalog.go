package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tokoisi/backend/internal/access"
	"tokoisi/backend/internal/catalog"
	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/store"
)

type ProductQuery struct {
	Search     string
	CategoryID string
	BrandID    string
	LowStock   bool
	Limit      int
	Offset     int
}

func (s *Service) ListProducts(ctx context.Context, q ProductQuery) ([]domain.Product, error) {
	actor, err := requireStaff(ctx)
	if err != nil {
		return nil, err
	}

	filter := store.ProductFilter{
		Search:   q.Search,
		BrandID:  q.BrandID,
		LowStock: q.LowStock,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.CategoryID != "" {
		tree, err := s.categoryTree(ctx)
		if err != nil {
			return nil, err
		}
		ids := tree.Subtree(q.CategoryID)
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: category %s", store.ErrNotFound, q.CategoryID)
		}
		filter.CategoryIDs = ids
	}

	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return maskProducts(actor, products), nil
}

func (s *Service) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return s.ListProducts(ctx, ProductQuery{LowStock: true})
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	actor, err := requireStaff(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return maskProduct(actor, *product), nil
}

func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	actor, err := requireStaff(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Product{}, fmt.Errorf("%w: barcode is required", domain.ErrValidation)
	}
	product, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return domain.Product{}, err
	}
	return maskProduct(actor, *product), nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if _, err := requireCapability(ctx, access.CanManageProducts, "manage products"); err != nil {
		return domain.Product{}, err
	}

	threshold := 0
	if req.LowStockThreshold != nil {
		threshold = *req.LowStockThreshold
	} else {
		settings, err := s.repo.GetSettings(ctx)
		if err != nil {
			return domain.Product{}, err
		}
		threshold = settings.LowStockDefault
	}

	product := domain.Product{
		Name:              strings.TrimSpace(req.Name),
		Barcode:           trimmedOrNil(req.Barcode),
		CategoryID:        trimmedOrNil(req.CategoryID),
		BrandID:           trimmedOrNil(req.BrandID),
		BuyingPrice:       req.BuyingPrice,
		SellingPrice:      req.SellingPrice,
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: threshold,
	}
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "product.create", "product", created.ID, created.Name)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if _, err := requireCapability(ctx, access.CanManageProducts, "manage products"); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	product := *existing
	changes := make([]string, 0, 4)

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
		changes = append(changes, "name")
	}
	if req.Barcode != nil {
		product.Barcode = trimmedOrNil(req.Barcode)
		changes = append(changes, "barcode")
	}
	if req.CategoryID != nil {
		product.CategoryID = trimmedOrNil(req.CategoryID)
		changes = append(changes, "category")
	}
	if req.BrandID != nil {
		product.BrandID = trimmedOrNil(req.BrandID)
		changes = append(changes, "brand")
	}
	if req.BuyingPrice != nil {
		product.BuyingPrice = *req.BuyingPrice
		changes = append(changes, "buying_price")
	}
	if req.SellingPrice != nil {
		changes = append(changes, fmt.Sprintf("selling_price %s->%s", product.SellingPrice, req.SellingPrice))
		product.SellingPrice = *req.SellingPrice
	}
	if req.StockQuantity != nil {
		changes = append(changes, fmt.Sprintf("stock %d->%d", product.StockQuantity, *req.StockQuantity))
		product.StockQuantity = *req.StockQuantity
	}
	if req.LowStockThreshold != nil {
		product.LowStockThreshold = *req.LowStockThreshold
		changes = append(changes, "low_stock_threshold")
	}
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "product.update", "product", id, strings.Join(changes, ", "))
	return *updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := requireCapability(ctx, access.CanManageProducts, "manage products"); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "product.delete", "product", id, "")
	return nil
}

func validateProduct(p domain.Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: product name is required", domain.ErrValidation)
	case p.BuyingPrice.IsNegative():
		return fmt.Errorf("%w: buying price cannot be negative", domain.ErrValidation)
	case p.SellingPrice.IsNegative():
		return fmt.Errorf("%w: selling price cannot be negative", domain.ErrValidation)
	case p.StockQuantity < 0:
		return fmt.Errorf("%w: stock cannot be negative", domain.ErrValidation)
	case p.LowStockThreshold < 0:
		return fmt.Errorf("%w: low stock threshold cannot be negative", domain.ErrValidation)
	}
	return nil
}

func maskProducts(actor domain.Actor, products []domain.Product) []domain.Product {
	if access.For(actor.Role).ViewBuyingPrice {
		return products
	}
	for i := range products {
		products[i].BuyingPrice = decimal.Zero
	}
	return products
}

func maskProduct(actor domain.Actor, p domain.Product) domain.Product {
	if !access.For(actor.Role).ViewBuyingPrice {
		p.BuyingPrice = decimal.Zero
	}
	return p
}

func (s *Service) categoryTree(ctx context.Context) (*catalog.Tree, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Build(categories)
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if _, err := requireStaff(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListCategories(ctx)
}

func (s *Service) CategoryTree(ctx context.Context) ([]domain.CategoryNode, error) {
	if _, err := requireStaff(ctx); err != nil {
		return nil, err
	}
	tree, err := s.categoryTree(ctx)
	if err != nil {
		return nil, err
	}
	return tree.Nodes(), nil
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	if _, err := requireCapability(ctx, access.CanManageProducts, "manage categories"); err != nil {
		return domain.Category{}, err
	}

	category := domain.Category{
		Name:     strings.TrimSpace(req.Name),
		ParentID: trimmedOrNil(req.ParentID),
	}
	if category.Name == "" {
		return domain.Category{}, fmt.Errorf("%w: category name is required", domain.ErrValidation)
	}
	if category.ParentID != nil {
		tree, err := s.categoryTree(ctx)
		if err != nil {
			return domain.Category{}, err
		}
		if err := tree.ValidateParent("", *category.ParentID); err != nil {
			return domain.Category{}, categoryError(err)
		}
	}

	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		return domain.Category{}, err
	}
	s.logAudit(ctx, "category.create", "category", created.ID, created.Name)
	return *created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, req domain.CategoryUpdateRequest) (domain.Category, error) {
	if _, err := requireCapability(ctx, access.CanManageProducts, "manage categories"); err != nil {
		return domain.Category{}, err
	}

	tree, err := s.categoryTree(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	category, ok := tree.Get(id)
	if !ok {
		return domain.Category{}, store.ErrNotFound
	}

	if req.Name != nil {
		category.Name = strings.TrimSpace(*req.Name)
		if category.Name == "" {
			return domain.Category{}, fmt.Errorf("%w: category name is required", domain.ErrValidation)
		}
	}
	if req.ParentID != nil {
		category.ParentID = trimmedOrNil(req.ParentID)
		parentID := ""
		if category.ParentID != nil {
			parentID = *category.ParentID
		}
		if err := tree.ValidateParent(id, parentID); err != nil {
			return domain.Category{}, categoryError(err)
		}
	}

	updated, err := s.repo.UpdateCategory(ctx, category)
	if err != nil {
		return domain.Category{}, err
	}
	s.logAudit(ctx, "category.update", "category", id, updated.Name)
	return *updated, nil
}

// DeleteCategory refuses categories that still have sub-categories. Products
// in a deleted category become uncategorized.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := requireCapability(ctx, access.CanManageProducts, "manage categories"); err != nil {
		return err
	}

	tree, err := s.categoryTree(ctx)
	if err != nil {
		return err
	}
	if _, ok := tree.Get(id); !ok {
		return store.ErrNotFound
	}
	if tree.HasChildren(id) {
		return store.ErrHasChildren
	}

	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "category.delete", "category", id, "")
	return nil
}

func categoryError(err error) error {
	if errors.Is(err, catalog.ErrUnknownCategory) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	return err
}

func (s *Service) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	if _, err := requireStaff(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListBrands(ctx)
}

func (s *Service) CreateBrand(ctx context.Context, req domain.BrandCreateRequest) (domain.Brand, error) {
	if _, err := requireCapability(ctx, access.CanManageProducts, "manage brands"); err != nil {
		return domain.Brand{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Brand{}, fmt.Errorf("%w: brand name is required", domain.ErrValidation)
	}

	created, err := s.repo.CreateBrand(ctx, domain.Brand{Name: name})
	if err != nil {
		return domain.Brand{}, err
	}
	s.logAudit(ctx, "brand.create", "brand", created.ID, created.Name)
	return *created, nil
}

func (s *Service) DeleteBrand(ctx context.Context, id string) error {
	if _, err := requireCapability(ctx, access.CanManageProducts, "manage brands"); err != nil {
		return err
	}
	if err := s.repo.DeleteBrand(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "brand.delete", "brand", id, "")
	return nil
}
