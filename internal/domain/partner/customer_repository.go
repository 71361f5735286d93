package partner

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository stores ERP partners. Lookups return shared.ErrNotFound
// when nothing matches.
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	// FindByExternalID resolves a storefront account within one instance
	FindByExternalID(ctx context.Context, instanceID uuid.UUID, externalID string) (*Customer, error)
	// FindByEmail prefers the newest partner when several share the address
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	Save(ctx context.Context, customer *Customer) error
}
