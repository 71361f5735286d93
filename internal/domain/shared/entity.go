package shared

import (
	"time"

	"github.com/google/uuid"
)

// Aggregate carries the identity, timestamps and mutation counter of a
// locally owned record (product, customer, sales order).
type Aggregate struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

func NewAggregate() Aggregate {
	now := time.Now()
	return Aggregate{ID: uuid.New(), CreatedAt: now, UpdatedAt: now, Version: 1}
}

func (a *Aggregate) GetVersion() int { return a.Version }

// IncrementVersion records a mutation
func (a *Aggregate) IncrementVersion() {
	a.Version++
	a.UpdatedAt = time.Now()
}
