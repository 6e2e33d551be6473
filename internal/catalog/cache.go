package catalog

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"tillpoint/backend/internal/domain"
)

// Cache sits in front of catalog reads. A miss is (nil, false, nil);
// cache failures are reported but never fail the lookup.
type Cache interface {
	GetProduct(ctx context.Context, key string) (*domain.CatalogProduct, bool, error)
	SetProduct(ctx context.Context, key string, value *domain.CatalogProduct, ttl time.Duration) error
	GetTax(ctx context.Context, key string) (*domain.TaxRate, bool, error)
	SetTax(ctx context.Context, key string, value *domain.TaxRate, ttl time.Duration) error
}

type NoopCache struct{}

func (NoopCache) GetProduct(_ context.Context, _ string) (*domain.CatalogProduct, bool, error) {
	return nil, false, nil
}

func (NoopCache) SetProduct(_ context.Context, _ string, _ *domain.CatalogProduct, _ time.Duration) error {
	return nil
}

func (NoopCache) GetTax(_ context.Context, _ string) (*domain.TaxRate, bool, error) {
	return nil, false, nil
}

func (NoopCache) SetTax(_ context.Context, _ string, _ *domain.TaxRate, _ time.Duration) error {
	return nil
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetProduct(ctx context.Context, key string) (*domain.CatalogProduct, bool, error) {
	var p domain.CatalogProduct
	ok, err := c.get(ctx, key, &p)
	if !ok || err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (c *RedisCache) SetProduct(ctx context.Context, key string, value *domain.CatalogProduct, ttl time.Duration) error {
	return c.set(ctx, key, value, ttl)
}

func (c *RedisCache) GetTax(ctx context.Context, key string) (*domain.TaxRate, bool, error) {
	var t domain.TaxRate
	ok, err := c.get(ctx, key, &t)
	if !ok || err != nil {
		return nil, false, err
	}
	return &t, true, nil
}

func (c *RedisCache) SetTax(ctx context.Context, key string, value *domain.TaxRate, ttl time.Duration) error {
	return c.set(ctx, key, value, ttl)
}

func (c *RedisCache) get(ctx context.Context, key string, out any) (bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
