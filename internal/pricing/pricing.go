// Package pricing computes sale totals from catalog data. It is pure:
// every call resolves prices and tax rates through the supplied
// Resolver, does integer arithmetic on minor units and writes nothing.
package pricing

import (
	"context"
	"fmt"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
)

// Resolver supplies catalog lookups for one tenant's products and tax
// rates. Implementations must return store.ErrNotFound for unknown or
// foreign-tenant IDs.
type Resolver interface {
	Product(ctx context.Context, tenantID string, productID string) (*domain.CatalogProduct, error)
	Tax(ctx context.Context, tenantID string, taxID string) (*domain.TaxRate, error)
}

// LineInput is one ordered line of a pricing request. TaxIDs, when
// nil, fall back to the product's catalog tax associations.
type LineInput struct {
	ProductID string
	Quantity  int
	Discount  *domain.DiscountSpec
	TaxIDs    []string
}

type Input struct {
	Lines         []LineInput
	SaleDiscount  *domain.DiscountSpec
	ShippingCents int64
}

// LineBreakdown carries the per-line amounts that get frozen onto the
// sale. TaxCents reports both inclusive and exclusive tax; TotalCents
// only ever adds the exclusive portion.
type LineBreakdown struct {
	ProductID     string
	ProductName   string
	Quantity      int
	UnitPriceCents int64
	SubtotalCents int64
	DiscountCents int64
	TaxCents      int64
	TotalCents    int64
}

type Breakdown struct {
	Lines         []LineBreakdown
	SubtotalCents int64
	DiscountCents int64
	TaxCents      int64
	ShippingCents int64
	TotalCents    int64
}

// halfUpDiv divides num by den rounding half away from zero at the
// cent. Amounts here are never negative but the guard keeps the helper
// total.
func halfUpDiv(num, den int64) int64 {
	if num < 0 {
		return -halfUpDiv(-num, den)
	}
	return (num + den/2) / den
}

// applyBps rounds half-up once, at the cent.
func applyBps(amount, bps int64) int64 {
	return halfUpDiv(amount*bps, 10000)
}

func discountAmount(spec *domain.DiscountSpec, base int64) (int64, error) {
	if spec == nil {
		return 0, nil
	}
	if spec.AmountCents != 0 && spec.RateBps != 0 {
		return 0, fmt.Errorf("%w: discount must be flat or percentage, not both", store.ErrInvalidArgument)
	}
	if spec.AmountCents < 0 || spec.RateBps < 0 || spec.RateBps > 10000 {
		return 0, fmt.Errorf("%w: discount out of range", store.ErrInvalidArgument)
	}
	d := spec.AmountCents
	if spec.RateBps > 0 {
		d = applyBps(base, spec.RateBps)
	}
	if d > base {
		d = base
	}
	return d, nil
}

// Calculate prices the given lines for one tenant. Inactive and
// unknown products resolve to NotFound; the caller sees exactly which
// line failed in the wrapped message.
func Calculate(ctx context.Context, resolver Resolver, tenantID string, in Input) (*Breakdown, error) {
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: sale has no lines", store.ErrInvalidArgument)
	}
	if in.ShippingCents < 0 {
		return nil, fmt.Errorf("%w: negative shipping", store.ErrInvalidArgument)
	}

	out := &Breakdown{ShippingCents: in.ShippingCents}
	var taxableSum int64

	for i, line := range in.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line %d quantity must be positive", store.ErrInvalidArgument, i)
		}
		product, err := resolver.Product(ctx, tenantID, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", line.ProductID, err)
		}
		if !product.Active {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, store.ErrNotFound)
		}

		subtotal := product.PriceCents * int64(line.Quantity)
		discount, err := discountAmount(line.Discount, subtotal)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		taxable := subtotal - discount

		taxIDs := line.TaxIDs
		if taxIDs == nil {
			taxIDs = product.TaxIDs
		}
		var lineTax, exclusiveTax int64
		for _, taxID := range taxIDs {
			rate, err := resolver.Tax(ctx, tenantID, taxID)
			if err != nil {
				return nil, fmt.Errorf("resolve tax %s: %w", taxID, err)
			}
			if rate.Inclusive {
				lineTax += halfUpDiv(taxable*rate.RateBps, 10000+rate.RateBps)
			} else {
				t := applyBps(taxable, rate.RateBps)
				lineTax += t
				exclusiveTax += t
			}
		}

		out.Lines = append(out.Lines, LineBreakdown{
			ProductID:      line.ProductID,
			ProductName:    product.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: product.PriceCents,
			SubtotalCents:  subtotal,
			DiscountCents:  discount,
			TaxCents:       lineTax,
			TotalCents:     taxable + exclusiveTax,
		})
		out.SubtotalCents += subtotal
		out.DiscountCents += discount
		out.TaxCents += lineTax
		out.TotalCents += taxable + exclusiveTax
		taxableSum += taxable
	}

	saleDiscount, err := discountAmount(in.SaleDiscount, taxableSum)
	if err != nil {
		return nil, err
	}
	out.DiscountCents += saleDiscount
	out.TotalCents += in.ShippingCents - saleDiscount
	return out, nil
}
