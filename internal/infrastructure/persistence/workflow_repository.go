package persistence

import (
	"context"

	"github.com/erp/connector/internal/domain/trade"
	"github.com/erp/connector/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWorkflowRepository implements WorkflowRepository using GORM
type GormWorkflowRepository struct {
	db *gorm.DB
}

// NewGormWorkflowRepository creates a new GormWorkflowRepository
func NewGormWorkflowRepository(db *gorm.DB) *GormWorkflowRepository {
	return &GormWorkflowRepository{db: db}
}

// FindByID finds a workflow by ID
func (r *GormWorkflowRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.WorkflowProcess, error) {
	return firstAs(r.db.WithContext(ctx).Where("id = ?", id), (*models.WorkflowProcessModel).ToDomain)
}

// FindAll returns workflows ordered by name
func (r *GormWorkflowRepository) FindAll(ctx context.Context, activeOnly bool) ([]trade.WorkflowProcess, error) {
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var workflowModels []models.WorkflowProcessModel
	if err := query.Order("name ASC").Find(&workflowModels).Error; err != nil {
		return nil, err
	}
	workflows := make([]trade.WorkflowProcess, len(workflowModels))
	for i := range workflowModels {
		workflows[i] = *workflowModels[i].ToDomain()
	}
	return workflows, nil
}

// Save creates or updates a workflow
func (r *GormWorkflowRepository) Save(ctx context.Context, workflow *trade.WorkflowProcess) error {
	return r.db.WithContext(ctx).Save(models.WorkflowProcessModelFromDomain(workflow)).Error
}

var _ trade.WorkflowRepository = (*GormWorkflowRepository)(nil)
