package persistence

import (
	"context"

	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLogLineRepository implements LogLineRepository using GORM
type GormLogLineRepository struct {
	db *gorm.DB
}

// NewGormLogLineRepository creates a new GormLogLineRepository
func NewGormLogLineRepository(db *gorm.DB) *GormLogLineRepository {
	return &GormLogLineRepository{db: db}
}

// Save appends a log line
func (r *GormLogLineRepository) Save(ctx context.Context, line *integration.LogLine) error {
	return r.db.WithContext(ctx).Create(models.LogLineModelFromDomain(line)).Error
}

// FindByQueueLine returns the log lines of a queue line, oldest first
func (r *GormLogLineRepository) FindByQueueLine(ctx context.Context, queueLineID uuid.UUID) ([]integration.LogLine, error) {
	var lineModels []models.LogLineModel
	if err := r.db.WithContext(ctx).
		Where("queue_line_id = ?", queueLineID).
		Order("created_at ASC").
		Find(&lineModels).Error; err != nil {
		return nil, err
	}
	lines := make([]integration.LogLine, len(lineModels))
	for i := range lineModels {
		lines[i] = *lineModels[i].ToDomain()
	}
	return lines, nil
}

var _ integration.LogLineRepository = (*GormLogLineRepository)(nil)
