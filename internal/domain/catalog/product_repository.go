package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/erp/connector/internal/domain/shared"
)

// ProductRepository is the ERP product store. Lookups return
// shared.ErrNotFound for a missing product.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindByCode matches the internal reference exactly
	FindByCode(ctx context.Context, code string) (*Product, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, int64, error)
	Save(ctx context.Context, product *Product) error
}
