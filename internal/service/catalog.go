package service

import (
	"context"
	"errors"
	"fmt"

	"iap-service/internal/models"
	"iap-service/internal/redisclient"
	"iap-service/internal/util"

	"go.uber.org/zap"
)

// ProductReader reads catalog rows from the durable store
type ProductReader interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
}

// ProductCache is the fast-path catalog cache. A failing cache degrades to
// the store and is never fatal.
type ProductCache interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	SetProduct(ctx context.Context, product *models.Product) error
}

// ProductCatalog serves catalog lookups, Redis first with a database
// fallback.
type ProductCatalog struct {
	store  ProductReader
	cache  ProductCache
	logger *zap.Logger
}

// NewProductCatalog creates a new product catalog
func NewProductCatalog(store ProductReader, cache ProductCache) *ProductCatalog {
	return &ProductCatalog{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// GetProduct retrieves a catalog product (cache fast path, store fallback)
func (pc *ProductCatalog) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if pc.cache != nil {
		product, err := pc.cache.GetProduct(ctx, id)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, redisclient.ErrCacheMiss) {
			pc.logger.Warn("Catalog cache read failed, falling back to store",
				zap.String("product_id", id),
				zap.Error(err))
		}
	}

	product, err := pc.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if pc.cache != nil {
		if err := pc.cache.SetProduct(ctx, product); err != nil {
			pc.logger.Warn("Failed to backfill catalog cache",
				zap.String("product_id", id),
				zap.Error(err))
		}
	}

	return product, nil
}

// SyncProducts warms the cache with the full catalog at startup
func (pc *ProductCatalog) SyncProducts(ctx context.Context) error {
	if pc.cache == nil {
		return nil
	}

	products, err := pc.store.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	for i := range products {
		if err := pc.cache.SetProduct(ctx, &products[i]); err != nil {
			pc.logger.Error("Failed to cache product",
				zap.String("product_id", products[i].ID),
				zap.Error(err))
		}
	}

	pc.logger.Info("Catalog synced to cache", zap.Int("count", len(products)))
	return nil
}
