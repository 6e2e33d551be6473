package memory

import (
	"context"
	"time"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/xid"
)

// NewSeeded returns a Store pre-loaded with a demo tenant so the
// server is usable without a database. Passwords are plain text here;
// the auth layer hashes them on first load.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	ctx := context.Background()

	_ = s.CreateUser(ctx, domain.UserAccount{
		TenantID: "demo", Username: "admin", Password: "admin12345",
		Role: "manager", Active: true, CreatedAt: now,
	})
	_ = s.CreateUser(ctx, domain.UserAccount{
		TenantID: "demo", Username: "cashier", Password: "cashier12345",
		Role: "cashier", Active: true, CreatedAt: now,
	})

	s.SeedTax(domain.TaxRate{TenantID: "demo", ID: "tax-standard", Name: "Standard", RateBps: 1000})
	s.SeedProduct(domain.CatalogProduct{
		TenantID: "demo", ID: "prod-espresso", Name: "Espresso",
		PriceCents: 350, TaxIDs: []string{"tax-standard"}, Active: true,
	})
	s.SeedProduct(domain.CatalogProduct{
		TenantID: "demo", ID: "prod-latte", Name: "Latte",
		PriceCents: 500, TaxIDs: []string{"tax-standard"}, Active: true,
	})
	s.SeedProduct(domain.CatalogProduct{
		TenantID: "demo", ID: "prod-beans", Name: "Coffee Beans 500g",
		PriceCents: 1800, TaxIDs: []string{"tax-standard"}, Active: true,
	})

	s.SeedLoyaltyProgram(domain.LoyaltyProgram{
		TenantID: "demo", Active: true, EarnRate: 1.0, UpdatedAt: now,
	})

	_, _ = s.CreateRegister(ctx, domain.Register{
		ID: xid.New("reg"), TenantID: "demo", Name: "Front Counter",
		IsActive: true, CreatedAt: now,
	})
	_, _ = s.CreateEmployee(ctx, domain.EmployeeProfile{
		ID: xid.New("emp"), TenantID: "demo", Name: "Demo Barista",
		HourlyRateCents: 1600, Active: true, CreatedAt: now,
	})

	return s
}
