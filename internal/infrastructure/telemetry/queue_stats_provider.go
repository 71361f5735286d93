package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormQueueStatsProvider implements QueueStatsProvider against data_queue_lines.
type GormQueueStatsProvider struct {
	db *gorm.DB
}

// NewGormQueueStatsProvider creates a new GormQueueStatsProvider.
func NewGormQueueStatsProvider(db *gorm.DB) *GormQueueStatsProvider {
	return &GormQueueStatsProvider{db: db}
}

// CountLinesByState returns the number of lines per kind and state.
func (p *GormQueueStatsProvider) CountLinesByState(ctx context.Context) ([]LineCount, error) {
	var rows []LineCount
	err := p.db.WithContext(ctx).
		Table("data_queue_lines").
		Select("kind, state, COUNT(*) AS count").
		Group("kind, state").
		Order("kind, state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
