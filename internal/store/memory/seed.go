package memory

import (
	"context"
	"time"

	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/xid"
)

type SeedUser struct {
	ID       string
	Email    string
	Password string
	FullName string
	Role     domain.Role
}

// DefaultSeedUsers are the dev/demo accounts used when no credentials are
// configured. They only exist in the in-memory store.
func DefaultSeedUsers() []SeedUser {
	return []SeedUser{
		{ID: "user-owner", Email: "owner@tokoisi.local", Password: "owner12345", FullName: "Pemilik Toko", Role: domain.RoleSuperAdmin},
		{ID: "user-manager", Email: "manager@tokoisi.local", Password: "manager12345", FullName: "Manajer Toko", Role: domain.RoleManager},
		{ID: "user-cashier", Email: "kasir@tokoisi.local", Password: "kasir12345", FullName: "Kasir Pagi", Role: domain.RoleCashier},
	}
}

func ptr(s string) *string { return &s }

// NewSeeded returns a store with a demo catalog and the given staff accounts.
// A nil users slice seeds DefaultSeedUsers.
func NewSeeded(users []SeedUser) *Store {
	if users == nil {
		users = DefaultSeedUsers()
	}

	s := New()
	now := time.Now().UTC()

	for _, c := range []domain.Category{
		{ID: "cat-minuman", Name: "Minuman"},
		{ID: "cat-air-mineral", Name: "Air Mineral", ParentID: ptr("cat-minuman")},
		{ID: "cat-teh", Name: "Teh & Kopi", ParentID: ptr("cat-minuman")},
		{ID: "cat-rumah", Name: "Kebutuhan Rumah"},
		{ID: "cat-gas", Name: "Gas LPG", ParentID: ptr("cat-rumah")},
	} {
		c.CreatedAt = now
		s.categories[c.ID] = c
	}

	for _, b := range []domain.Brand{
		{ID: "brd-aqua", Name: "Aqua"},
		{ID: "brd-le-minerale", Name: "Le Minerale"},
		{ID: "brd-sosro", Name: "Sosro"},
	} {
		b.CreatedAt = now
		s.brands[b.ID] = b
	}

	for _, p := range []domain.Product{
		{ID: "prd-aqua-600", Name: "Aqua 600ml", Barcode: ptr("8886008101053"), CategoryID: ptr("cat-air-mineral"), BrandID: ptr("brd-aqua"), BuyingPrice: money(2500), SellingPrice: money(3500), StockQuantity: 120, LowStockThreshold: 24},
		{ID: "prd-aqua-galon", Name: "Aqua Galon 19L", Barcode: ptr("8886008101190"), CategoryID: ptr("cat-air-mineral"), BrandID: ptr("brd-aqua"), BuyingPrice: money(17000), SellingPrice: money(21000), StockQuantity: 30, LowStockThreshold: 5},
		{ID: "prd-le-minerale-600", Name: "Le Minerale 600ml", Barcode: ptr("8996001600146"), CategoryID: ptr("cat-air-mineral"), BrandID: ptr("brd-le-minerale"), BuyingPrice: money(2400), SellingPrice: money(3500), StockQuantity: 96, LowStockThreshold: 24},
		{ID: "prd-teh-botol", Name: "Teh Botol Sosro 450ml", Barcode: ptr("8886001038011"), CategoryID: ptr("cat-teh"), BrandID: ptr("brd-sosro"), BuyingPrice: money(3800), SellingPrice: money(5000), StockQuantity: 48, LowStockThreshold: 12},
		{ID: "prd-lpg-3kg", Name: "LPG 3kg", CategoryID: ptr("cat-gas"), BuyingPrice: money(18000), SellingPrice: money(22000), StockQuantity: 4, LowStockThreshold: 5},
		{ID: "prd-tutup-galon", Name: "Tutup Galon", BuyingPrice: money(300), SellingPrice: money(1000), StockQuantity: 200, LowStockThreshold: 20},
	} {
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
	}

	for _, r := range []domain.RefillOption{
		{ID: "rfl-galon-19l", Name: "Isi Ulang Galon 19L", Volume: money(19), DefaultPrice: money(6000), Active: true},
		{ID: "rfl-galon-ro", Name: "Isi Ulang RO 19L", Volume: money(19), DefaultPrice: money(8000), Active: true},
		{ID: "rfl-galon-5l", Name: "Isi Ulang 5L", Volume: money(5), DefaultPrice: money(2500), Active: false},
	} {
		r.CreatedAt = now
		s.refills[r.ID] = r
	}

	users = append([]SeedUser(nil), users...)
	for i := range users {
		if users[i].ID == "" {
			users[i].ID = xid.New("user")
		}
	}

	owner := ""
	for _, u := range users {
		if u.Role == domain.RoleSuperAdmin {
			owner = u.ID
			break
		}
	}
	for _, d := range []domain.Discount{
		{ID: "dsc-promo-10", Name: "Promo 10%", Kind: domain.DiscountPercentage, Value: money(10), Active: true},
		{ID: "dsc-hemat-500", Name: "Hemat 500", Kind: domain.DiscountFixed, Value: money(500), Active: true},
		{ID: "dsc-lebaran-20", Name: "Lebaran 20%", Kind: domain.DiscountPercentage, Value: money(20), Active: false},
	} {
		d.CreatedBy = owner
		d.CreatedAt = now
		s.discounts[d.ID] = d
	}

	for _, u := range users {
		account := domain.UserAccount{
			UserID:       u.ID,
			Email:        u.Email,
			PasswordHash: hashPassword(u.Password),
			CreatedAt:    now,
		}
		profile := domain.Profile{FullName: u.FullName}
		if err := s.CreateUser(context.Background(), account, profile); err != nil {
			panic("memory store: seed user " + u.Email + ": " + err.Error())
		}
		if u.Role != "" {
			s.roles[u.ID] = u.Role
		}
	}

	return s
}
