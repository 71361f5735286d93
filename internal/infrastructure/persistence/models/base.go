package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/erp/connector/internal/domain/shared"
)

// BaseModel carries the key and timestamps of every row
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func row(id uuid.UUID, created, updated time.Time) BaseModel {
	return BaseModel{ID: id, CreatedAt: created, UpdatedAt: updated}
}

// VersionedModel backs a shared.Aggregate, Version included
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

func versioned(a shared.Aggregate) VersionedModel {
	return VersionedModel{BaseModel: row(a.ID, a.CreatedAt, a.UpdatedAt), Version: a.Version}
}

func (m *VersionedModel) toAggregate() shared.Aggregate {
	return shared.Aggregate{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt, Version: m.Version}
}
