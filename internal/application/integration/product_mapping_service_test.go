package integration

import (
	"context"
	"testing"

	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mappingFixture struct {
	mappings  *MockProductMappingRepository
	products  *MockProductRepository
	instances *MockInstanceRepository
	cache     *MockMappingCache
	svc       *ProductMappingServiceImpl
}

func newMappingFixture() *mappingFixture {
	f := &mappingFixture{
		mappings:  new(MockProductMappingRepository),
		products:  new(MockProductRepository),
		instances: new(MockInstanceRepository),
		cache:     new(MockMappingCache),
	}
	f.svc = NewProductMappingService(f.mappings, f.products, f.instances, f.cache, zap.NewNop())
	return f
}

func TestProductMappingService_CreateMapping(t *testing.T) {
	ctx := context.Background()
	instance, err := integration.NewStorefrontInstance("Main shop", "https://shop.example.com", "token")
	require.NoError(t, err)
	product := newTestProduct(t, "LOCAL-1")

	req := CreateProductMappingRequest{
		InstanceID:        instance.ID,
		LocalProductID:    product.ID,
		ExternalProductID: "42",
		ExternalSKU:       "MB01",
		ExternalName:      " Joust Duffle Bag ",
	}
	fullKey := integration.MappingKey{InstanceID: instance.ID, ExternalProductID: "42", SKU: "MB01"}
	skuKey := integration.MappingKey{InstanceID: instance.ID, SKU: "MB01"}

	t.Run("creates and invalidates cache", func(t *testing.T) {
		f := newMappingFixture()
		f.instances.On("FindByID", ctx, instance.ID).Return(instance, nil)
		f.products.On("FindByID", ctx, product.ID).Return(product, nil)
		f.mappings.On("ExistsByKey", ctx, fullKey).Return(false, nil)
		f.mappings.On("Save", ctx, mock.AnythingOfType("*integration.ProductMapping")).Return(nil)
		f.cache.On("Delete", ctx, fullKey.String()).Return(nil)
		f.cache.On("Delete", ctx, skuKey.String()).Return(nil)

		resp, err := f.svc.CreateMapping(ctx, req)

		require.NoError(t, err)
		assert.Equal(t, "MB01", resp.ExternalSKU)
		assert.Equal(t, "Joust Duffle Bag", resp.ExternalName)
		assert.True(t, resp.IsActive)
		f.cache.AssertExpectations(t)
	})

	t.Run("duplicate key", func(t *testing.T) {
		f := newMappingFixture()
		f.instances.On("FindByID", ctx, instance.ID).Return(instance, nil)
		f.products.On("FindByID", ctx, product.ID).Return(product, nil)
		f.mappings.On("ExistsByKey", ctx, fullKey).Return(true, nil)

		_, err := f.svc.CreateMapping(ctx, req)

		assert.ErrorIs(t, err, integration.ErrMappingAlreadyExists)
		f.mappings.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newMappingFixture()
		f.instances.On("FindByID", ctx, instance.ID).Return(instance, nil)
		f.products.On("FindByID", ctx, product.ID).Return(nil, shared.ErrNotFound)

		_, err := f.svc.CreateMapping(ctx, req)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestProductMappingService_RemapAndDelete(t *testing.T) {
	ctx := context.Background()
	instanceID := uuid.New()
	oldProduct := newTestProduct(t, "OLD")
	newProduct := newTestProduct(t, "NEW")

	t.Run("remap", func(t *testing.T) {
		f := newMappingFixture()
		mapping := newTestMapping(t, instanceID, oldProduct.ID, "", "MB01")
		f.mappings.On("FindByID", ctx, mapping.ID).Return(mapping, nil)
		f.products.On("FindByID", ctx, newProduct.ID).Return(newProduct, nil)
		f.mappings.On("Save", ctx, mapping).Return(nil)
		f.cache.On("Delete", ctx, mock.Anything).Return(nil)

		resp, err := f.svc.RemapMapping(ctx, mapping.ID, newProduct.ID)

		require.NoError(t, err)
		assert.Equal(t, newProduct.ID, resp.LocalProductID)
		f.cache.AssertNumberOfCalls(t, "Delete", 2)
	})

	t.Run("delete", func(t *testing.T) {
		f := newMappingFixture()
		mapping := newTestMapping(t, instanceID, oldProduct.ID, "42", "MB01")
		f.mappings.On("FindByID", ctx, mapping.ID).Return(mapping, nil)
		f.mappings.On("Delete", ctx, mapping.ID).Return(nil)
		f.cache.On("Delete", ctx, mapping.Key().String()).Return(nil)
		f.cache.On("Delete", ctx, integration.MappingKey{InstanceID: instanceID, SKU: "MB01"}.String()).Return(nil)

		require.NoError(t, f.svc.DeleteMapping(ctx, mapping.ID))
		f.cache.AssertExpectations(t)
	})
}

func TestProductMappingService_ListMappingsDefaults(t *testing.T) {
	ctx := context.Background()
	f := newMappingFixture()
	f.mappings.On("FindAll", ctx, mock.MatchedBy(func(filter integration.ProductMappingFilter) bool {
		return filter.Page == 1 && filter.PageSize == 100
	})).Return([]integration.ProductMapping{}, int64(0), nil)

	out, total, err := f.svc.ListMappings(ctx, integration.ProductMappingFilter{PageSize: 500})

	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, total)
}

func TestProductMappingService_DeactivateMappings(t *testing.T) {
	ctx := context.Background()
	f := newMappingFixture()
	m1 := newTestMapping(t, uuid.New(), uuid.New(), "", "A")
	m2 := newTestMapping(t, uuid.New(), uuid.New(), "", "B")
	f.mappings.On("FindByID", ctx, m1.ID).Return(m1, nil)
	f.mappings.On("FindByID", ctx, m2.ID).Return(m2, nil)
	f.mappings.On("Save", ctx, mock.Anything).Return(nil)
	f.cache.On("Delete", ctx, mock.Anything).Return(nil)

	require.NoError(t, f.svc.DeactivateMappings(ctx, []uuid.UUID{m1.ID, m2.ID}))

	assert.False(t, m1.IsActive)
	assert.False(t, m2.IsActive)
}
