package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

const (
	catalogKey      = "catalog:products"
	defaultCacheTTL = 5 * time.Minute
)

// NewRedisClient opens a client for the configured Redis instance.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisCatalogCache implements CatalogCache using Redis.
type RedisCatalogCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *logging.LoggerV2
	// OnLookup is called with true on a hit and false on a miss.
	OnLookup func(hit bool)
}

// NewRedisCatalogCache creates a cache holding the product list for ttl.
func NewRedisCatalogCache(client redis.UniversalClient, ttl time.Duration) *RedisCatalogCache {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	return &RedisCatalogCache{
		client: client,
		ttl:    ttl,
		logger: logging.NewLoggerV2("catalog-cache"),
	}
}

// GetProducts returns the cached list, or nil on a miss.
func (c *RedisCatalogCache) GetProducts(ctx context.Context) ([]models.Product, error) {
	data, err := c.client.Get(ctx, catalogKey).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss", logging.Fields{"key": catalogKey})
		c.observe(false)
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Cache get error", logging.Fields{
			"key":   catalogKey,
			"error": err.Error(),
		})
		return nil, err
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, err
	}

	c.logger.Debug("Cache hit", logging.Fields{"key": catalogKey, "count": len(products)})
	c.observe(true)
	return products, nil
}

// SetProducts stores the full product list.
func (c *RedisCatalogCache) SetProducts(ctx context.Context, products []models.Product) error {
	if products == nil {
		products = []models.Product{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, catalogKey, data, c.ttl).Err(); err != nil {
		c.logger.Error("Cache set error", logging.Fields{
			"key":   catalogKey,
			"error": err.Error(),
		})
		return err
	}

	c.logger.Debug("Catalog cached", logging.Fields{
		"count": len(products),
		"ttl":   c.ttl.String(),
	})
	return nil
}

// Invalidate drops the cached list.
func (c *RedisCatalogCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, catalogKey).Err()
}

func (c *RedisCatalogCache) observe(hit bool) {
	if c.OnLookup != nil {
		c.OnLookup(hit)
	}
}
