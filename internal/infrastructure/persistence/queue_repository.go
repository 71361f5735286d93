package persistence

import (
	"context"

	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormQueueRepository implements QueueRepository using GORM
type GormQueueRepository struct {
	db *gorm.DB
}

// NewGormQueueRepository creates a new GormQueueRepository
func NewGormQueueRepository(db *gorm.DB) *GormQueueRepository {
	return &GormQueueRepository{db: db}
}

// FindQueueByID finds a queue by ID
func (r *GormQueueRepository) FindQueueByID(ctx context.Context, id uuid.UUID) (*integration.DataQueue, error) {
	return firstAs(r.db.WithContext(ctx).Where("id = ?", id), (*models.DataQueueModel).ToDomain)
}

// FindQueuesWithDraftLines returns queues of the kind that still hold draft
// lines, ordered by their oldest draft line.
func (r *GormQueueRepository) FindQueuesWithDraftLines(ctx context.Context, kind integration.QueueKind, limit int) ([]integration.DataQueue, error) {
	query := r.db.WithContext(ctx).
		Model(&models.DataQueueModel{}).
		Select("data_queues.*").
		Joins("JOIN data_queue_lines ON data_queue_lines.queue_id = data_queues.id").
		Where("data_queues.kind = ? AND data_queues.is_action_required = ?", kind, false).
		Where("data_queue_lines.state = ?", integration.QueueLineStateDraft).
		Group("data_queues.id").
		Order("MIN(data_queue_lines.created_at) ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var queueModels []models.DataQueueModel
	if err := query.Find(&queueModels).Error; err != nil {
		return nil, err
	}
	queues := make([]integration.DataQueue, len(queueModels))
	for i := range queueModels {
		queues[i] = *queueModels[i].ToDomain()
	}
	return queues, nil
}

// SummarizeQueue counts the queue's lines per state
func (r *GormQueueRepository) SummarizeQueue(ctx context.Context, queueID uuid.UUID) (integration.QueueSummary, error) {
	var rows []struct {
		State integration.QueueLineState
		Count int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.QueueLineModel{}).
		Select("state, COUNT(*) AS count").
		Where("queue_id = ?", queueID).
		Group("state").
		Scan(&rows).Error; err != nil {
		return integration.QueueSummary{}, err
	}

	var summary integration.QueueSummary
	for _, row := range rows {
		switch row.State {
		case integration.QueueLineStateDraft:
			summary.Draft = row.Count
		case integration.QueueLineStateDone:
			summary.Done = row.Count
		case integration.QueueLineStateFailed:
			summary.Failed = row.Count
		case integration.QueueLineStateCancelled:
			summary.Cancelled = row.Count
		}
	}
	return summary, nil
}

// FindLineByID finds a queue line by ID
func (r *GormQueueRepository) FindLineByID(ctx context.Context, id uuid.UUID) (*integration.QueueLine, error) {
	return firstAs(r.db.WithContext(ctx).Where("id = ?", id), (*models.QueueLineModel).ToDomain)
}

// FindLinesByQueue returns the queue's lines in creation order
func (r *GormQueueRepository) FindLinesByQueue(ctx context.Context, queueID uuid.UUID, states ...integration.QueueLineState) ([]integration.QueueLine, error) {
	query := r.db.WithContext(ctx).Where("queue_id = ?", queueID)
	if len(states) > 0 {
		query = query.Where("state IN ?", states)
	}
	var lineModels []models.QueueLineModel
	if err := query.Order("created_at ASC").Order("id ASC").Find(&lineModels).Error; err != nil {
		return nil, err
	}
	return toQueueLines(lineModels), nil
}

// ExistsActiveLine reports whether a draft or done line holds the external record
func (r *GormQueueRepository) ExistsActiveLine(ctx context.Context, instanceID uuid.UUID, kind integration.QueueKind, externalID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.QueueLineModel{}).
		Where("instance_id = ? AND kind = ? AND external_id = ?", instanceID, kind, externalID).
		Where("state IN ?", []integration.QueueLineState{
			integration.QueueLineStateDraft,
			integration.QueueLineStateDone,
		}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListLines lists queue lines matching the filter, newest first
func (r *GormQueueRepository) ListLines(ctx context.Context, filter integration.QueueLineFilter) ([]integration.QueueLine, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.QueueLineModel{})
	if filter.InstanceID != nil {
		query = query.Where("instance_id = ?", *filter.InstanceID)
	}
	if filter.QueueID != nil {
		query = query.Where("queue_id = ?", *filter.QueueID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.State != nil {
		query = query.Where("state = ?", *filter.State)
	}
	if filter.ExternalID != "" {
		query = query.Where("external_id = ?", filter.ExternalID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}
	var lineModels []models.QueueLineModel
	if err := query.
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&lineModels).Error; err != nil {
		return nil, 0, err
	}
	return toQueueLines(lineModels), total, nil
}

// SaveQueue creates or updates a queue
func (r *GormQueueRepository) SaveQueue(ctx context.Context, queue *integration.DataQueue) error {
	return r.db.WithContext(ctx).Save(models.DataQueueModelFromDomain(queue)).Error
}

// SaveQueueWithLines creates a queue and its lines in one transaction
func (r *GormQueueRepository) SaveQueueWithLines(ctx context.Context, queue *integration.DataQueue, lines []*integration.QueueLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.DataQueueModelFromDomain(queue)).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		lineModels := make([]*models.QueueLineModel, len(lines))
		for i, line := range lines {
			lineModels[i] = models.QueueLineModelFromDomain(line)
		}
		return tx.CreateInBatches(lineModels, 100).Error
	})
}

// SaveLine creates or updates a queue line
func (r *GormQueueRepository) SaveLine(ctx context.Context, line *integration.QueueLine) error {
	return r.db.WithContext(ctx).Save(models.QueueLineModelFromDomain(line)).Error
}

func toQueueLines(lineModels []models.QueueLineModel) []integration.QueueLine {
	lines := make([]integration.QueueLine, len(lineModels))
	for i := range lineModels {
		lines[i] = *lineModels[i].ToDomain()
	}
	return lines
}

var _ integration.QueueRepository = (*GormQueueRepository)(nil)
