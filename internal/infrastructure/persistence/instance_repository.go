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

// GormStorefrontInstanceRepository implements StorefrontInstanceRepository using GORM
type GormStorefrontInstanceRepository struct {
	db *gorm.DB
}

// NewGormStorefrontInstanceRepository creates a new GormStorefrontInstanceRepository
func NewGormStorefrontInstanceRepository(db *gorm.DB) *GormStorefrontInstanceRepository {
	return &GormStorefrontInstanceRepository{db: db}
}

// FindByID finds an instance by ID
func (r *GormStorefrontInstanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.StorefrontInstance, error) {
	return firstAs(r.db.WithContext(ctx).Where("id = ?", id), (*models.StorefrontInstanceModel).ToDomain)
}

// FindAll returns instances ordered by name
func (r *GormStorefrontInstanceRepository) FindAll(ctx context.Context, activeOnly bool) ([]integration.StorefrontInstance, error) {
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var instanceModels []models.StorefrontInstanceModel
	if err := query.Order("name ASC").Find(&instanceModels).Error; err != nil {
		return nil, err
	}
	instances := make([]integration.StorefrontInstance, len(instanceModels))
	for i := range instanceModels {
		instances[i] = *instanceModels[i].ToDomain()
	}
	return instances, nil
}

// Save creates or updates an instance
func (r *GormStorefrontInstanceRepository) Save(ctx context.Context, instance *integration.StorefrontInstance) error {
	err := r.db.WithContext(ctx).Save(models.StorefrontInstanceModelFromDomain(instance)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

var _ integration.StorefrontInstanceRepository = (*GormStorefrontInstanceRepository)(nil)
