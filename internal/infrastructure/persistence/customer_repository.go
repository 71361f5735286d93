package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/connector/internal/domain/partner"
	"github.com/erp/connector/internal/infrastructure/persistence/models"
)

// GormCustomerRepository stores ERP partners created from storefront accounts
type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *GormCustomerRepository) FindByExternalID(ctx context.Context, instanceID uuid.UUID, externalID string) (*partner.Customer, error) {
	return r.first(r.db.WithContext(ctx).Where("instance_id = ? AND external_id = ?", instanceID, externalID))
}

// FindByEmail returns the newest customer with the address
func (r *GormCustomerRepository) FindByEmail(ctx context.Context, email string) (*partner.Customer, error) {
	return r.first(r.db.WithContext(ctx).Where("email = ?", email).Order("created_at DESC"))
}

func (r *GormCustomerRepository) first(query *gorm.DB) (*partner.Customer, error) {
	return firstAs(query, (*models.CustomerModel).ToDomain)
}

func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	return r.db.WithContext(ctx).Save(models.CustomerModelFromDomain(customer)).Error
}

var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)
