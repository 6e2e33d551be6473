// Package catalog is the read-side collaborator for product and tax
// rate lookups: a repository-backed resolver with an optional
// read-through cache and a single retry on transient store failure.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
)

// Reader is the slice of the repository the catalog needs.
type Reader interface {
	GetCatalogProduct(ctx context.Context, tenantID string, productID string) (*domain.CatalogProduct, error)
	GetTaxRate(ctx context.Context, tenantID string, taxID string) (*domain.TaxRate, error)
}

const retryBackoff = 50 * time.Millisecond

// waitRetry sits out the backoff unless the caller gives up first.
func waitRetry(ctx context.Context) error {
	timer := time.NewTimer(retryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Catalog struct {
	reader Reader
	cache  Cache
	ttl    time.Duration
	log    *zap.Logger
}

func New(reader Reader, cache Cache, ttl time.Duration, log *zap.Logger) *Catalog {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Catalog{reader: reader, cache: cache, ttl: ttl, log: log}
}

// Product resolves a tenant's product, serving from cache when warm.
// Transient store failures are retried once before surfacing.
func (c *Catalog) Product(ctx context.Context, tenantID string, productID string) (*domain.CatalogProduct, error) {
	key := fmt.Sprintf("catalog:product:%s:%s", tenantID, productID)
	if cached, ok, err := c.cache.GetProduct(ctx, key); err != nil {
		c.log.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	product, err := c.reader.GetCatalogProduct(ctx, tenantID, productID)
	if errors.Is(err, store.ErrUnavailable) {
		if err := waitRetry(ctx); err != nil {
			return nil, err
		}
		product, err = c.reader.GetCatalogProduct(ctx, tenantID, productID)
	}
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetProduct(ctx, key, product, c.ttl); err != nil {
		c.log.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
	return product, nil
}

// Tax resolves a tenant's tax rate with the same cache and retry
// behavior as Product.
func (c *Catalog) Tax(ctx context.Context, tenantID string, taxID string) (*domain.TaxRate, error) {
	key := fmt.Sprintf("catalog:tax:%s:%s", tenantID, taxID)
	if cached, ok, err := c.cache.GetTax(ctx, key); err != nil {
		c.log.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	rate, err := c.reader.GetTaxRate(ctx, tenantID, taxID)
	if errors.Is(err, store.ErrUnavailable) {
		if err := waitRetry(ctx); err != nil {
			return nil, err
		}
		rate, err = c.reader.GetTaxRate(ctx, tenantID, taxID)
	}
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetTax(ctx, key, rate, c.ttl); err != nil {
		c.log.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
	return rate, nil
}
