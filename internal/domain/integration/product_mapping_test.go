package integration

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductMapping(t *testing.T) {
	instanceID := uuid.New()
	productID := uuid.New()

	t.Run("trims identifiers", func(t *testing.T) {
		mapping, err := NewProductMapping(instanceID, productID, " 900 ", "MUG-01")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, mapping.ID)
		assert.Equal(t, instanceID, mapping.InstanceID)
		assert.Equal(t, productID, mapping.LocalProductID)
		assert.Equal(t, "900", mapping.ExternalProductID)
		assert.Equal(t, "MUG-01", mapping.ExternalSKU)
		assert.True(t, mapping.IsActive)
	})

	t.Run("nil instance", func(t *testing.T) {
		_, err := NewProductMapping(uuid.Nil, productID, "900", "MUG-01")
		assert.ErrorIs(t, err, ErrMappingInvalidInstanceID)
	})

	t.Run("nil product", func(t *testing.T) {
		_, err := NewProductMapping(instanceID, uuid.Nil, "900", "MUG-01")
		assert.ErrorIs(t, err, ErrMappingInvalidProductID)
	})

	t.Run("blank sku", func(t *testing.T) {
		_, err := NewProductMapping(instanceID, productID, "900", "  ")
		assert.ErrorIs(t, err, ErrMappingInvalidSKU)
	})

	t.Run("sku only", func(t *testing.T) {
		mapping, err := NewProductMapping(instanceID, productID, "", "MUG-01")
		require.NoError(t, err)
		assert.Empty(t, mapping.ExternalProductID)
	})
}

func TestProductMapping_Mutations(t *testing.T) {
	mapping, err := NewProductMapping(uuid.New(), uuid.New(), "900", "MUG-01")
	require.NoError(t, err)

	mapping.Deactivate()
	assert.False(t, mapping.IsActive)
	mapping.Activate()
	assert.True(t, mapping.IsActive)

	assert.ErrorIs(t, mapping.Remap(uuid.Nil), ErrMappingInvalidProductID)
	other := uuid.New()
	require.NoError(t, mapping.Remap(other))
	assert.Equal(t, other, mapping.LocalProductID)
}

func TestMappingKey_String(t *testing.T) {
	id := uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
	key := MappingKey{InstanceID: id, ExternalProductID: "900", SKU: "MUG-01"}
	assert.Equal(t, "7c9e6679-7425-40de-944b-e07fc1f90ae7:900:MUG-01", key.String())

	mapping := &ProductMapping{InstanceID: id, ExternalProductID: "900", ExternalSKU: "MUG-01"}
	assert.Equal(t, key, mapping.Key())
}
