package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesOrderRepository defines the interface for sales order persistence
type SalesOrderRepository interface {
	// FindByID finds a sales order by ID, with its items
	FindByID(ctx context.Context, id uuid.UUID) (*SalesOrder, error)

	// FindByIDs finds the sales orders with the given IDs; missing IDs are ignored
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]SalesOrder, error)

	// FindByExternalKey finds the order imported for a storefront order
	FindByExternalKey(ctx context.Context, key ExternalOrderKey) (*SalesOrder, error)

	// FindPendingByWorkflows finds orders of the given workflows that an
	// auto-workflow run may still act on. An empty list means all workflows.
	FindPendingByWorkflows(ctx context.Context, workflowIDs []uuid.UUID) ([]SalesOrder, error)

	// Save creates or updates a sales order and replaces its items
	Save(ctx context.Context, order *SalesOrder) error
}

// WorkflowRepository defines the interface for auto-workflow persistence
type WorkflowRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*WorkflowProcess, error)
	// FindAll returns every workflow, or only active ones
	FindAll(ctx context.Context, activeOnly bool) ([]WorkflowProcess, error)
	Save(ctx context.Context, workflow *WorkflowProcess) error
}

// TaxRepository defines the interface for tax persistence
type TaxRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tax, error)

	// FindByRate finds an active, price-excluded tax with the given rate.
	// A tax scoped to the instance wins over a shared one.
	FindByRate(ctx context.Context, instanceID uuid.UUID, rate decimal.Decimal) (*Tax, error)

	Save(ctx context.Context, tax *Tax) error
}
