package integration

import (
	"context"
	"testing"

	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInstanceService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to fixed mode", func(t *testing.T) {
		instances := new(MockInstanceRepository)
		instances.On("Save", ctx, mock.AnythingOfType("*integration.StorefrontInstance")).Return(nil)
		svc := NewInstanceService(instances, new(MockWorkflowRepository))

		resp, err := svc.Create(ctx, CreateInstanceRequest{
			Name:               "Main shop",
			BaseURL:            "https://shop.example.com/",
			AccessToken:        "token",
			ShippingProductSKU: " SHIP ",
		})

		require.NoError(t, err)
		assert.Equal(t, "FIXED", resp.PriceMode)
		assert.Equal(t, "https://shop.example.com", resp.BaseURL)
		assert.Equal(t, "all", resp.StoreCode)
		assert.Equal(t, "SHIP", resp.ShippingProductSKU)
		assert.True(t, resp.IsActive)
	})

	t.Run("proportional with workflow", func(t *testing.T) {
		instances := new(MockInstanceRepository)
		workflows := new(MockWorkflowRepository)
		workflow, err := trade.NewWorkflowProcess("Auto", trade.WorkflowFlags{ValidateOrder: true})
		require.NoError(t, err)
		workflows.On("FindByID", ctx, workflow.ID).Return(workflow, nil)
		instances.On("Save", ctx, mock.Anything).Return(nil)
		svc := NewInstanceService(instances, workflows)

		resp, err := svc.Create(ctx, CreateInstanceRequest{
			Name:            "EU shop",
			BaseURL:         "https://eu.example.com",
			AccessToken:     "token",
			StoreCode:       "eu",
			PriceMode:       "proportional",
			UseBaseCurrency: true,
			WorkflowID:      &workflow.ID,
		})

		require.NoError(t, err)
		assert.Equal(t, "PROPORTIONAL", resp.PriceMode)
		assert.True(t, resp.UseBaseCurrency)
		assert.Equal(t, "eu", resp.StoreCode)
		require.NotNil(t, resp.WorkflowID)
		assert.Equal(t, workflow.ID, *resp.WorkflowID)
	})

	t.Run("unknown workflow", func(t *testing.T) {
		workflows := new(MockWorkflowRepository)
		missing := uuid.New()
		workflows.On("FindByID", ctx, missing).Return(nil, shared.ErrNotFound)
		svc := NewInstanceService(new(MockInstanceRepository), workflows)

		_, err := svc.Create(ctx, CreateInstanceRequest{
			Name: "Shop", BaseURL: "https://shop.example.com", AccessToken: "t", WorkflowID: &missing,
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("invalid url", func(t *testing.T) {
		svc := NewInstanceService(new(MockInstanceRepository), new(MockWorkflowRepository))
		_, err := svc.Create(ctx, CreateInstanceRequest{Name: "Shop", BaseURL: "ftp://shop", AccessToken: "t"})
		assert.ErrorIs(t, err, integration.ErrInstanceInvalidURL)
	})

	t.Run("invalid price mode", func(t *testing.T) {
		svc := NewInstanceService(new(MockInstanceRepository), new(MockWorkflowRepository))
		_, err := svc.Create(ctx, CreateInstanceRequest{Name: "Shop", BaseURL: "https://shop.example.com", AccessToken: "t", PriceMode: "weighted"})
		assert.ErrorIs(t, err, integration.ErrInvalidPriceMode)
	})
}

func TestInstanceService_List(t *testing.T) {
	ctx := context.Background()
	a, err := integration.NewStorefrontInstance("A", "https://a.example.com", "t")
	require.NoError(t, err)
	instances := new(MockInstanceRepository)
	instances.On("FindAll", ctx, true).Return([]integration.StorefrontInstance{*a}, nil)

	out, err := NewInstanceService(instances, nil).List(ctx, true)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "A", out[0].Name)
}
