package persistence

import (
	"context"
	"errors"

	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductMappingRepository implements ProductMappingRepository using GORM
type GormProductMappingRepository struct {
	db *gorm.DB
}

// NewGormProductMappingRepository creates a new GormProductMappingRepository
func NewGormProductMappingRepository(db *gorm.DB) *GormProductMappingRepository {
	return &GormProductMappingRepository{db: db}
}

// FindByID finds a mapping by ID
func (r *GormProductMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.ProductMapping, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByKey finds an active mapping by its full key
func (r *GormProductMappingRepository) FindByKey(ctx context.Context, key integration.MappingKey) (*integration.ProductMapping, error) {
	return r.first(r.byKey(ctx, key).Where("is_active = ?", true))
}

// FindBySKU finds an active mapping by instance and SKU. The oldest mapping
// wins when several external products share the SKU.
func (r *GormProductMappingRepository) FindBySKU(ctx context.Context, instanceID uuid.UUID, sku string) (*integration.ProductMapping, error) {
	return r.first(r.db.WithContext(ctx).
		Where("instance_id = ? AND external_sku = ? AND is_active = ?", instanceID, sku, true).
		Order("created_at ASC"))
}

// FindAll finds mappings matching the filter
func (r *GormProductMappingRepository) FindAll(ctx context.Context, filter integration.ProductMappingFilter) ([]integration.ProductMapping, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductMappingModel{})
	if filter.InstanceID != nil {
		query = query.Where("instance_id = ?", *filter.InstanceID)
	}
	if filter.LocalProductID != nil {
		query = query.Where("local_product_id = ?", *filter.LocalProductID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.SearchKeyword != "" {
		like := "%" + filter.SearchKeyword + "%"
		query = query.Where("external_sku LIKE ? OR external_name LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}
	var mappingModels []models.ProductMappingModel
	if err := query.
		Order("external_sku ASC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&mappingModels).Error; err != nil {
		return nil, 0, err
	}

	mappings := make([]integration.ProductMapping, len(mappingModels))
	for i := range mappingModels {
		mappings[i] = *mappingModels[i].ToDomain()
	}
	return mappings, total, nil
}

// ExistsByKey reports whether any mapping, active or not, holds the key
func (r *GormProductMappingRepository) ExistsByKey(ctx context.Context, key integration.MappingKey) (bool, error) {
	var count int64
	if err := r.byKey(ctx, key).Model(&models.ProductMappingModel{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a mapping
func (r *GormProductMappingRepository) Save(ctx context.Context, mapping *integration.ProductMapping) error {
	err := r.db.WithContext(ctx).Save(models.ProductMappingModelFromDomain(mapping)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return integration.ErrMappingAlreadyExists
	}
	return err
}

// Delete deletes a mapping
func (r *GormProductMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ProductMappingModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormProductMappingRepository) byKey(ctx context.Context, key integration.MappingKey) *gorm.DB {
	return r.db.WithContext(ctx).Where("instance_id = ? AND external_product_id = ? AND external_sku = ?",
		key.InstanceID, key.ExternalProductID, key.SKU)
}

func (r *GormProductMappingRepository) first(query *gorm.DB) (*integration.ProductMapping, error) {
	return firstAs(query, (*models.ProductMappingModel).ToDomain)
}

var _ integration.ProductMappingRepository = (*GormProductMappingRepository)(nil)
