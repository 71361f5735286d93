package persistence

import (
	"context"
	"errors"

	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/domain/trade"
	"github.com/erp/connector/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormTaxRepository implements TaxRepository using GORM
type GormTaxRepository struct {
	db *gorm.DB
}

// NewGormTaxRepository creates a new GormTaxRepository
func NewGormTaxRepository(db *gorm.DB) *GormTaxRepository {
	return &GormTaxRepository{db: db}
}

// FindByID finds a tax by ID
func (r *GormTaxRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Tax, error) {
	return firstAs(r.db.WithContext(ctx).Where("id = ?", id), (*models.TaxModel).ToDomain)
}

// FindByRate finds an active price-excluded tax with the rate. Taxes scoped
// to the instance sort ahead of shared ones.
func (r *GormTaxRepository) FindByRate(ctx context.Context, instanceID uuid.UUID, rate decimal.Decimal) (*trade.Tax, error) {
	return firstAs(r.db.WithContext(ctx).
		Where("rate = ? AND is_active = ? AND price_included = ?", rate, true, false).
		Where("instance_id = ? OR instance_id IS NULL", instanceID).
		Order("instance_id IS NULL ASC").
		Order("code ASC"), (*models.TaxModel).ToDomain)
}

// Save creates or updates a tax
func (r *GormTaxRepository) Save(ctx context.Context, tax *trade.Tax) error {
	err := r.db.WithContext(ctx).Save(models.TaxModelFromDomain(tax)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

var _ trade.TaxRepository = (*GormTaxRepository)(nil)
