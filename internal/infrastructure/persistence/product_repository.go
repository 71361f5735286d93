package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/connector/internal/domain/catalog"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/infrastructure/persistence/models"
)

// GormProductRepository stores the ERP product catalog
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return firstAs(r.db.WithContext(ctx).Where("id = ?", id), (*models.ProductModel).ToDomain)
}

func (r *GormProductRepository) FindByCode(ctx context.Context, code string) (*catalog.Product, error) {
	return firstAs(r.db.WithContext(ctx).Where("code = ?", code), (*models.ProductModel).ToDomain)
}

// FindAll pages through products. Search matches code or name; the "status"
// and "kind" filters match exactly.
func (r *GormProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductModel{})
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("code LIKE ? OR name LIKE ?", pattern, pattern)
	}
	for _, column := range []string{"status", "kind"} {
		if v, ok := filter.Filters[column]; ok {
			query = query.Where(column+" = ?", v)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ProductModel
	err := query.Order(productSort.orderBy(filter)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	products := make([]catalog.Product, 0, len(rows))
	for i := range rows {
		products = append(products, *rows[i].ToDomain())
	}
	return products, total, nil
}

func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Save(models.ProductModelFromDomain(product)).Error
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
