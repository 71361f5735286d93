package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/connector/internal/domain/catalog"
	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MappingCache caches mapping lookups as mapping key -> local product id.
// Implementations live in infrastructure/cache (Redis or in-memory).
type MappingCache interface {
	Get(ctx context.Context, key string) (uuid.UUID, bool, error)
	Set(ctx context.Context, key string, productID uuid.UUID, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ProductResolver finds the local product of a storefront order line
type ProductResolver interface {
	Resolve(ctx context.Context, instanceID uuid.UUID, sku, externalProductID string) (*catalog.Product, error)
}

// DefaultMappingCacheTTL is used when no TTL is configured
const DefaultMappingCacheTTL = 10 * time.Minute

// ProductResolverImpl resolves products through the mapping table first and
// the catalog second:
//
//  1. mapping by (instance, external product id, SKU)
//  2. mapping by (instance, SKU)
//  3. catalog product whose code equals the SKU
type ProductResolverImpl struct {
	mappings integration.ProductMappingReader
	products catalog.ProductRepository
	cache    MappingCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewProductResolver creates a resolver. cache may be nil.
func NewProductResolver(
	mappings integration.ProductMappingReader,
	products catalog.ProductRepository,
	cache MappingCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *ProductResolverImpl {
	if cacheTTL <= 0 {
		cacheTTL = DefaultMappingCacheTTL
	}
	return &ProductResolverImpl{
		mappings: mappings,
		products: products,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Resolve returns the product for the line, or ErrProductNotResolved.
func (r *ProductResolverImpl) Resolve(ctx context.Context, instanceID uuid.UUID, sku, externalProductID string) (*catalog.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, fmt.Errorf("%w: empty SKU", integration.ErrProductNotResolved)
	}
	// Hits are cached under the key they were looked up by. Both keys are
	// the ones ProductMappingService invalidates on change.
	if externalProductID != "" {
		key := integration.MappingKey{InstanceID: instanceID, ExternalProductID: externalProductID, SKU: sku}
		if product := r.fromCache(ctx, key); product != nil {
			return product, nil
		}
		mapping, err := r.mappings.FindByKey(ctx, key)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if mapping != nil {
			return r.loadMapped(ctx, key, mapping)
		}
	}

	skuKey := integration.MappingKey{InstanceID: instanceID, SKU: sku}
	if product := r.fromCache(ctx, skuKey); product != nil {
		return product, nil
	}
	mapping, err := r.mappings.FindBySKU(ctx, instanceID, sku)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if mapping != nil {
		return r.loadMapped(ctx, skuKey, mapping)
	}

	product, err := r.products.FindByCode(ctx, sku)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: sku %s", integration.ErrProductNotResolved, sku)
		}
		return nil, err
	}
	return product, nil
}

func (r *ProductResolverImpl) loadMapped(ctx context.Context, key integration.MappingKey, mapping *integration.ProductMapping) (*catalog.Product, error) {
	product, err := r.products.FindByID(ctx, mapping.LocalProductID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: mapping %s points to a missing product", integration.ErrProductNotResolved, mapping.ID)
		}
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, key.String(), product.ID, r.cacheTTL); err != nil {
			r.logger.Warn("failed to cache product mapping",
				zap.String("key", key.String()),
				zap.Error(err),
			)
		}
	}
	return product, nil
}

// fromCache returns the cached product, dropping entries whose product is gone.
func (r *ProductResolverImpl) fromCache(ctx context.Context, key integration.MappingKey) *catalog.Product {
	if r.cache == nil {
		return nil
	}
	productID, ok, err := r.cache.Get(ctx, key.String())
	if err != nil {
		r.logger.Warn("product mapping cache read failed", zap.String("key", key.String()), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	product, err := r.products.FindByID(ctx, productID)
	if err != nil {
		_ = r.cache.Delete(ctx, key.String())
		return nil
	}
	return product
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}

var _ ProductResolver = (*ProductResolverImpl)(nil)
