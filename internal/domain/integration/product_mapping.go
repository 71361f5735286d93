package integration

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProductMapping links a storefront product to a catalog product. The
// external product id is empty when the storefront only reported a SKU.
type ProductMapping struct {
	ID                uuid.UUID
	InstanceID        uuid.UUID
	LocalProductID    uuid.UUID
	ExternalProductID string
	ExternalSKU       string
	// ExternalName is informational only
	ExternalName string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewProductMapping returns an active mapping. Identifiers are trimmed.
func NewProductMapping(instanceID, localProductID uuid.UUID, externalProductID, externalSKU string) (*ProductMapping, error) {
	now := time.Now()
	m := &ProductMapping{
		ID:                uuid.New(),
		InstanceID:        instanceID,
		LocalProductID:    localProductID,
		ExternalProductID: strings.TrimSpace(externalProductID),
		ExternalSKU:       strings.TrimSpace(externalSKU),
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ProductMapping) Validate() error {
	switch {
	case m.InstanceID == uuid.Nil:
		return ErrMappingInvalidInstanceID
	case m.LocalProductID == uuid.Nil:
		return ErrMappingInvalidProductID
	case m.ExternalSKU == "":
		return ErrMappingInvalidSKU
	}
	return nil
}

func (m *ProductMapping) Key() MappingKey {
	return MappingKey{InstanceID: m.InstanceID, ExternalProductID: m.ExternalProductID, SKU: m.ExternalSKU}
}

// Remap points the mapping at another catalog product
func (m *ProductMapping) Remap(localProductID uuid.UUID) error {
	if localProductID == uuid.Nil {
		return ErrMappingInvalidProductID
	}
	m.LocalProductID = localProductID
	m.touch()
	return nil
}

func (m *ProductMapping) Activate() {
	m.IsActive = true
	m.touch()
}

func (m *ProductMapping) Deactivate() {
	m.IsActive = false
	m.touch()
}

func (m *ProductMapping) touch() { m.UpdatedAt = time.Now() }

// MappingKey is (instance, external product id, SKU)
type MappingKey struct {
	InstanceID        uuid.UUID
	ExternalProductID string
	SKU               string
}

// String is the cache key, "<instance>:<product id>:<sku>"
func (k MappingKey) String() string {
	return k.InstanceID.String() + ":" + k.ExternalProductID + ":" + k.SKU
}

// ProductMappingReader is the lookup side used while resolving order lines.
// Only active mappings are returned by key or SKU.
type ProductMappingReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductMapping, error)
	FindByKey(ctx context.Context, key MappingKey) (*ProductMapping, error)
	// FindBySKU ignores the external product id
	FindBySKU(ctx context.Context, instanceID uuid.UUID, sku string) (*ProductMapping, error)
}

type ProductMappingRepository interface {
	ProductMappingReader
	FindAll(ctx context.Context, filter ProductMappingFilter) ([]ProductMapping, int64, error)
	// ExistsByKey also counts inactive mappings
	ExistsByKey(ctx context.Context, key MappingKey) (bool, error)
	Save(ctx context.Context, mapping *ProductMapping) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductMappingFilter narrows a listing. Nil pointers and an empty keyword
// do not filter. The keyword matches SKU and external name.
type ProductMappingFilter struct {
	InstanceID     *uuid.UUID
	LocalProductID *uuid.UUID
	IsActive       *bool
	SearchKeyword  string
	Page           int
	PageSize       int
}
