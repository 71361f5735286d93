package trade

import (
	"strings"
	"time"

	"github.com/erp/connector/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tax is a sales tax applied to order lines. Storefront lines are matched to
// a tax by rate, preferring taxes scoped to the line's instance.
type Tax struct {
	ID         uuid.UUID
	InstanceID *uuid.UUID // nil for taxes shared by all instances
	Code       string
	Name       string
	Rate       decimal.Decimal // percent, e.g. 21 for 21%
	// PriceIncluded is true for taxes whose amount is part of the unit price.
	// Imported lines are tax excluded, so lookups only consider excluded taxes.
	PriceIncluded bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewTax creates an active, price-excluded tax
func NewTax(code, name string, rate decimal.Decimal) (*Tax, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Tax code cannot be empty")
	}
	if len(code) > 32 {
		return nil, shared.NewDomainError("INVALID_CODE", "Tax code cannot exceed 32 characters")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_RATE", "Tax rate must be between 0 and 100")
	}
	if strings.TrimSpace(name) == "" {
		name = code
	}

	now := time.Now()
	return &Tax{
		ID:        uuid.New(),
		Code:      code,
		Name:      name,
		Rate:      rate,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ScopeTo restricts the tax to one storefront instance
func (t *Tax) ScopeTo(instanceID uuid.UUID) {
	id := instanceID
	t.InstanceID = &id
	t.UpdatedAt = time.Now()
}

// Matches reports whether the tax can serve a line of the given rate
func (t *Tax) Matches(rate decimal.Decimal) bool {
	return t.IsActive && !t.PriceIncluded && t.Rate.Equal(rate)
}
