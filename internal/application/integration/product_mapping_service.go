package integration

import (
	"context"
	"strings"

	"github.com/erp/connector/internal/domain/catalog"
	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductMappingServiceImpl edits product mappings and evicts the resolver
// cache entries each edit makes stale.
type ProductMappingServiceImpl struct {
	mappingRepo integration.ProductMappingRepository
	products    catalog.ProductRepository
	instances   integration.StorefrontInstanceRepository
	cache       MappingCache
	logger      *zap.Logger
}

// NewProductMappingService accepts a nil cache
func NewProductMappingService(
	mappingRepo integration.ProductMappingRepository,
	products catalog.ProductRepository,
	instances integration.StorefrontInstanceRepository,
	cache MappingCache,
	logger *zap.Logger,
) *ProductMappingServiceImpl {
	return &ProductMappingServiceImpl{
		mappingRepo: mappingRepo,
		products:    products,
		instances:   instances,
		cache:       cache,
		logger:      logger,
	}
}

// CreateMapping checks the instance and the local product exist and refuses
// a second mapping for the same key
func (s *ProductMappingServiceImpl) CreateMapping(ctx context.Context, req CreateProductMappingRequest) (*ProductMappingResponse, error) {
	if _, err := s.instances.FindByID(ctx, req.InstanceID); err != nil {
		return nil, err
	}
	if _, err := s.products.FindByID(ctx, req.LocalProductID); err != nil {
		return nil, err
	}

	mapping, err := integration.NewProductMapping(req.InstanceID, req.LocalProductID, req.ExternalProductID, req.ExternalSKU)
	if err != nil {
		return nil, err
	}
	mapping.ExternalName = strings.TrimSpace(req.ExternalName)

	switch exists, err := s.mappingRepo.ExistsByKey(ctx, mapping.Key()); {
	case err != nil:
		return nil, err
	case exists:
		return nil, integration.ErrMappingAlreadyExists
	}
	return s.store(ctx, mapping)
}

// RemapMapping points a mapping at another local product
func (s *ProductMappingServiceImpl) RemapMapping(ctx context.Context, id, localProductID uuid.UUID) (*ProductMappingResponse, error) {
	mapping, err := s.mappingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.products.FindByID(ctx, localProductID); err != nil {
		return nil, err
	}
	if err := mapping.Remap(localProductID); err != nil {
		return nil, err
	}
	return s.store(ctx, mapping)
}

func (s *ProductMappingServiceImpl) store(ctx context.Context, mapping *integration.ProductMapping) (*ProductMappingResponse, error) {
	if err := s.mappingRepo.Save(ctx, mapping); err != nil {
		return nil, err
	}
	s.invalidate(ctx, mapping)
	resp := ToProductMappingResponse(mapping)
	return &resp, nil
}

func (s *ProductMappingServiceImpl) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	mapping, err := s.mappingRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.mappingRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, mapping)
	return nil
}

func (s *ProductMappingServiceImpl) GetMapping(ctx context.Context, id uuid.UUID) (*ProductMappingResponse, error) {
	mapping, err := s.mappingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductMappingResponse(mapping)
	return &resp, nil
}

// ListMappings pages from 1 with the shared page size bounds
func (s *ProductMappingServiceImpl) ListMappings(ctx context.Context, filter integration.ProductMappingFilter) ([]ProductMappingResponse, int64, error) {
	filter.PageSize = shared.Filter{PageSize: filter.PageSize}.Limit()
	filter.Page = max(filter.Page, 1)

	mappings, total, err := s.mappingRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ProductMappingResponse, len(mappings))
	for i := range mappings {
		out[i] = ToProductMappingResponse(&mappings[i])
	}
	return out, total, nil
}

func (s *ProductMappingServiceImpl) ActivateMappings(ctx context.Context, ids []uuid.UUID) error {
	return s.setActive(ctx, ids, (*integration.ProductMapping).Activate)
}

func (s *ProductMappingServiceImpl) DeactivateMappings(ctx context.Context, ids []uuid.UUID) error {
	return s.setActive(ctx, ids, (*integration.ProductMapping).Deactivate)
}

// setActive stops at the first failing id; earlier ids stay changed
func (s *ProductMappingServiceImpl) setActive(ctx context.Context, ids []uuid.UUID, apply func(*integration.ProductMapping)) error {
	for _, id := range ids {
		mapping, err := s.mappingRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		apply(mapping)
		if _, err := s.store(ctx, mapping); err != nil {
			return err
		}
	}
	return nil
}

// invalidate drops what a resolver may have cached for the mapping, under
// its full key and under the SKU alone
func (s *ProductMappingServiceImpl) invalidate(ctx context.Context, mapping *integration.ProductMapping) {
	if s.cache == nil {
		return
	}
	for _, key := range []integration.MappingKey{
		mapping.Key(),
		{InstanceID: mapping.InstanceID, SKU: mapping.ExternalSKU},
	} {
		if err := s.cache.Delete(ctx, key.String()); err != nil {
			s.logger.Warn("Product mapping cache invalidation failed",
				zap.Stringer("key", key),
				zap.Error(err))
		}
	}
}
