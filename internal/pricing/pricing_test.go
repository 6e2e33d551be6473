package pricing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
)

type fakeResolver struct {
	products map[string]domain.CatalogProduct
	taxes    map[string]domain.TaxRate
}

func (f *fakeResolver) Product(_ context.Context, tenantID, id string) (*domain.CatalogProduct, error) {
	p, ok := f.products[id]
	if !ok || p.TenantID != tenantID {
		return nil, fmt.Errorf("product %s: %w", id, store.ErrNotFound)
	}
	return &p, nil
}

func (f *fakeResolver) Tax(_ context.Context, tenantID, id string) (*domain.TaxRate, error) {
	t, ok := f.taxes[id]
	if !ok || t.TenantID != tenantID {
		return nil, fmt.Errorf("tax %s: %w", id, store.ErrNotFound)
	}
	return &t, nil
}

func newResolver() *fakeResolver {
	return &fakeResolver{
		products: map[string]domain.CatalogProduct{
			"prod-coffee": {TenantID: "t1", ID: "prod-coffee", Name: "Coffee", PriceCents: 1000, Active: true},
			"prod-mug":    {TenantID: "t1", ID: "prod-mug", Name: "Mug", PriceCents: 1500, Active: true},
			"prod-dead":   {TenantID: "t1", ID: "prod-dead", Name: "Retired", PriceCents: 500, Active: false},
		},
		taxes: map[string]domain.TaxRate{
			"tax-vat":  {TenantID: "t1", ID: "tax-vat", Name: "VAT", RateBps: 1000},
			"tax-incl": {TenantID: "t1", ID: "tax-incl", Name: "Included", RateBps: 1000, Inclusive: true},
		},
	}
}

func TestCalculateExclusiveTaxWithLineDiscount(t *testing.T) {
	bd, err := Calculate(context.Background(), newResolver(), "t1", Input{
		Lines: []LineInput{{
			ProductID: "prod-coffee",
			Quantity:  2,
			Discount:  &domain.DiscountSpec{RateBps: 1000},
			TaxIDs:    []string{"tax-vat"},
		}},
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if bd.SubtotalCents != 2000 {
		t.Errorf("subtotal = %d, want 2000", bd.SubtotalCents)
	}
	if bd.DiscountCents != 200 {
		t.Errorf("discount = %d, want 200", bd.DiscountCents)
	}
	if bd.TaxCents != 180 {
		t.Errorf("tax = %d, want 180", bd.TaxCents)
	}
	if bd.TotalCents != 1980 {
		t.Errorf("total = %d, want 1980", bd.TotalCents)
	}
}

func TestCalculateInclusiveTaxNotAdded(t *testing.T) {
	bd, err := Calculate(context.Background(), newResolver(), "t1", Input{
		Lines: []LineInput{{ProductID: "prod-coffee", Quantity: 1, TaxIDs: []string{"tax-incl"}}},
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	// 1000 * 1000 / 11000 = 90.9 -> 91, back-calculated out of the price.
	if bd.TaxCents != 91 {
		t.Errorf("tax = %d, want 91", bd.TaxCents)
	}
	if bd.TotalCents != 1000 {
		t.Errorf("total = %d, want 1000", bd.TotalCents)
	}
}

func TestCalculateSaleDiscountAndShipping(t *testing.T) {
	bd, err := Calculate(context.Background(), newResolver(), "t1", Input{
		Lines: []LineInput{
			{ProductID: "prod-coffee", Quantity: 1},
			{ProductID: "prod-mug", Quantity: 2},
		},
		SaleDiscount:  &domain.DiscountSpec{RateBps: 500},
		ShippingCents: 300,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	// taxable 4000, sale discount 200, shipping 300.
	if bd.DiscountCents != 200 {
		t.Errorf("discount = %d, want 200", bd.DiscountCents)
	}
	if bd.TotalCents != 4100 {
		t.Errorf("total = %d, want 4100", bd.TotalCents)
	}
}

func TestCalculateLineDiscountCapped(t *testing.T) {
	bd, err := Calculate(context.Background(), newResolver(), "t1", Input{
		Lines: []LineInput{{
			ProductID: "prod-coffee",
			Quantity:  1,
			Discount:  &domain.DiscountSpec{AmountCents: 5000},
		}},
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if bd.DiscountCents != 1000 {
		t.Errorf("discount = %d, want capped at 1000", bd.DiscountCents)
	}
	if bd.TotalCents != 0 {
		t.Errorf("total = %d, want 0", bd.TotalCents)
	}
}

func TestCalculateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		want error
	}{
		{"no lines", Input{}, store.ErrInvalidArgument},
		{"zero quantity", Input{Lines: []LineInput{{ProductID: "prod-coffee"}}}, store.ErrInvalidArgument},
		{"both discount kinds", Input{Lines: []LineInput{{
			ProductID: "prod-coffee", Quantity: 1,
			Discount: &domain.DiscountSpec{AmountCents: 10, RateBps: 10},
		}}}, store.ErrInvalidArgument},
		{"unknown product", Input{Lines: []LineInput{{ProductID: "prod-nope", Quantity: 1}}}, store.ErrNotFound},
		{"inactive product", Input{Lines: []LineInput{{ProductID: "prod-dead", Quantity: 1}}}, store.ErrNotFound},
		{"unknown tax", Input{Lines: []LineInput{{ProductID: "prod-coffee", Quantity: 1, TaxIDs: []string{"tax-nope"}}}}, store.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Calculate(context.Background(), newResolver(), "t1", tc.in); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCalculateOtherTenantProductHidden(t *testing.T) {
	_, err := Calculate(context.Background(), newResolver(), "t2", Input{
		Lines: []LineInput{{ProductID: "prod-coffee", Quantity: 1}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want NotFound", err)
	}
}

func TestCalculateDeterministic(t *testing.T) {
	in := Input{
		Lines: []LineInput{
			{ProductID: "prod-coffee", Quantity: 3, Discount: &domain.DiscountSpec{RateBps: 333}, TaxIDs: []string{"tax-vat"}},
			{ProductID: "prod-mug", Quantity: 7, TaxIDs: []string{"tax-incl"}},
		},
		SaleDiscount:  &domain.DiscountSpec{AmountCents: 117},
		ShippingCents: 250,
	}
	first, err := Calculate(context.Background(), newResolver(), "t1", in)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Calculate(context.Background(), newResolver(), "t1", in)
		if err != nil {
			t.Fatalf("calculate: %v", err)
		}
		if again.TotalCents != first.TotalCents || again.TaxCents != first.TaxCents ||
			again.DiscountCents != first.DiscountCents || again.SubtotalCents != first.SubtotalCents {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}
