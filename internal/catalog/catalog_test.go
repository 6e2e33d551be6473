package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
)

type flakyReader struct {
	failures int
	calls    int
}

func (r *flakyReader) GetCatalogProduct(_ context.Context, tenantID, productID string) (*domain.CatalogProduct, error) {
	r.calls++
	if r.failures > 0 {
		r.failures--
		return nil, fmt.Errorf("store down: %w", store.ErrUnavailable)
	}
	return &domain.CatalogProduct{TenantID: tenantID, ID: productID, Name: "Coffee", PriceCents: 1000, Active: true}, nil
}

func (r *flakyReader) GetTaxRate(_ context.Context, tenantID, taxID string) (*domain.TaxRate, error) {
	r.calls++
	if r.failures > 0 {
		r.failures--
		return nil, fmt.Errorf("store down: %w", store.ErrUnavailable)
	}
	return &domain.TaxRate{TenantID: tenantID, ID: taxID, RateBps: 1000}, nil
}

type countingCache struct {
	NoopCache
	products map[string]*domain.CatalogProduct
	sets     int
}

func (c *countingCache) GetProduct(_ context.Context, key string) (*domain.CatalogProduct, bool, error) {
	p, ok := c.products[key]
	return p, ok, nil
}

func (c *countingCache) SetProduct(_ context.Context, key string, value *domain.CatalogProduct, _ time.Duration) error {
	c.products[key] = value
	c.sets++
	return nil
}

func TestProductRetriesOnceOnUnavailable(t *testing.T) {
	reader := &flakyReader{failures: 1}
	cat := New(reader, nil, time.Minute, zap.NewNop())

	p, err := cat.Product(context.Background(), "t1", "prod-coffee")
	if err != nil {
		t.Fatalf("product: %v", err)
	}
	if p.ID != "prod-coffee" || reader.calls != 2 {
		t.Errorf("got %+v after %d calls, want success on second call", p, reader.calls)
	}
}

func TestProductSurfacesPersistentUnavailable(t *testing.T) {
	cat := New(&flakyReader{failures: 2}, nil, time.Minute, zap.NewNop())
	if _, err := cat.Product(context.Background(), "t1", "prod-coffee"); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("err = %v, want Unavailable", err)
	}
}

func TestProductRetryAbortsOnCancelledContext(t *testing.T) {
	reader := &flakyReader{failures: 2}
	cat := New(reader, nil, time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cat.Product(ctx, "t1", "prod-coffee"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if reader.calls != 1 {
		t.Errorf("reader called %d times, want 1 (no retry after cancel)", reader.calls)
	}
}

func TestProductReadThroughCache(t *testing.T) {
	reader := &flakyReader{}
	cache := &countingCache{products: map[string]*domain.CatalogProduct{}}
	cat := New(reader, cache, time.Minute, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := cat.Product(context.Background(), "t1", "prod-coffee"); err != nil {
			t.Fatalf("product: %v", err)
		}
	}
	if reader.calls != 1 {
		t.Errorf("reader called %d times, want 1 (cache should serve repeats)", reader.calls)
	}
	if cache.sets != 1 {
		t.Errorf("cache populated %d times, want 1", cache.sets)
	}
}
