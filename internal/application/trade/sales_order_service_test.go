package trade

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/connector/internal/domain/shared"
)

func TestSalesOrderService_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("maps the order and its lines", func(t *testing.T) {
		workflowID := uuid.New()
		order := newStorefrontDraft(t, "100000042", &workflowID)
		orders := new(MockSalesOrderRepository)
		orders.On("FindByID", ctx, order.ID).Return(&order, nil)

		resp, err := NewSalesOrderService(orders).GetByID(ctx, order.ID)

		require.NoError(t, err)
		assert.Equal(t, order.ID, resp.ID)
		assert.Equal(t, "100000042", resp.ExternalOrderID)
		assert.Equal(t, "EUR", resp.CurrencyCode)
		assert.Equal(t, &workflowID, resp.WorkflowID)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, 1, resp.ItemCount)
		assert.Equal(t, "Bag", resp.Items[0].ProductName)
		assert.NotNil(t, resp.Items[0].TaxIDs)
		assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(50)))
		orders.AssertExpectations(t)
	})

	t.Run("passes not found through", func(t *testing.T) {
		id := uuid.New()
		orders := new(MockSalesOrderRepository)
		orders.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		resp, err := NewSalesOrderService(orders).GetByID(ctx, id)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Nil(t, resp)
	})
}
