package trade

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newDraftOrder(t *testing.T, number string, workflowID *uuid.UUID) trade.SalesOrder {
	t.Helper()
	order, err := trade.NewSalesOrder(number, uuid.New(), "Acme")
	require.NoError(t, err)
	_, err = order.AddItem(trade.LineInput{
		Kind:        trade.ItemKindProduct,
		ProductID:   uuid.New(),
		ProductName: "Widget",
		Quantity:    decimal.NewFromInt(2),
		UnitPrice:   decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	order.AttachWorkflow(workflowID)
	return *order
}

func newStorefrontDraft(t *testing.T, ref string, workflowID *uuid.UUID) trade.SalesOrder {
	t.Helper()
	key := trade.ExternalOrderKey{InstanceID: uuid.New(), ExternalOrderID: ref, ExternalReference: ref}
	order, err := trade.NewStorefrontSalesOrder(key, uuid.New(), "Jane", "EUR")
	require.NoError(t, err)
	_, err = order.AddItem(trade.LineInput{
		Kind:        trade.ItemKindProduct,
		ProductID:   uuid.New(),
		ProductName: "Bag",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	order.AttachWorkflow(workflowID)
	return *order
}

func fullWorkflow(t *testing.T) *trade.WorkflowProcess {
	t.Helper()
	w, err := trade.NewWorkflowProcess("Full", trade.WorkflowFlags{ValidateOrder: true, CreateInvoice: true, RegisterPayment: true})
	require.NoError(t, err)
	return w
}

func TestWorkflowService_Create(t *testing.T) {
	ctx := context.Background()
	workflows := new(MockWorkflowRepository)
	workflows.On("Save", ctx, mock.AnythingOfType("*trade.WorkflowProcess")).Return(nil)
	svc := NewWorkflowService(workflows, new(MockSalesOrderRepository), zap.NewNop())

	resp, err := svc.Create(ctx, CreateWorkflowRequest{
		Name:             "Invoice only",
		CreateInvoice:    true,
		RegisterPayment:  true,
		SalesJournalCode: " SAJ ",
		PickingPolicy:    "direct",
	})

	require.NoError(t, err)
	// invoicing requires validation, so the chain collapses
	assert.False(t, resp.ValidateOrder)
	assert.False(t, resp.CreateInvoice)
	assert.False(t, resp.RegisterPayment)
	assert.Equal(t, "SAJ", resp.SalesJournalCode)
	assert.Equal(t, "direct", resp.PickingPolicy)
}

func TestWorkflowService_AutoWorkflowProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("advances pending orders of active workflows", func(t *testing.T) {
		workflow := fullWorkflow(t)
		workflows := new(MockWorkflowRepository)
		orders := new(MockSalesOrderRepository)
		pending := []trade.SalesOrder{newDraftOrder(t, "SO-1", &workflow.ID)}

		workflows.On("FindAll", mock.Anything, true).Return([]trade.WorkflowProcess{*workflow}, nil)
		orders.On("FindPendingByWorkflows", mock.Anything, []uuid.UUID{workflow.ID}).Return(pending, nil)
		var saved *trade.SalesOrder
		orders.On("Save", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*trade.SalesOrder) }).
			Return(nil)

		result, err := NewWorkflowService(workflows, orders, zap.NewNop()).AutoWorkflowProcess(ctx, nil, nil)

		require.NoError(t, err)
		require.Len(t, result.Processed, 1)
		res := result.Processed[0]
		assert.True(t, res.Confirmed)
		assert.True(t, res.Invoiced)
		assert.True(t, res.Paid)
		require.NotNil(t, saved)
		assert.Equal(t, trade.OrderStatusConfirmed, saved.Status)
		assert.Equal(t, trade.InvoiceStatusInvoiced, saved.InvoiceStatus)
		assert.Equal(t, trade.PaymentStatusPaid, saved.PaymentStatus)
		assert.Empty(t, result.Skipped)
	})

	t.Run("storefront orders stay quotations", func(t *testing.T) {
		workflow := fullWorkflow(t)
		workflows := new(MockWorkflowRepository)
		orders := new(MockSalesOrderRepository)
		storefront := newStorefrontDraft(t, "000000101", &workflow.ID)
		local := newDraftOrder(t, "SO-2", &workflow.ID)

		workflows.On("FindByID", mock.Anything, workflow.ID).Return(workflow, nil)
		orders.On("FindByIDs", mock.Anything, []uuid.UUID{storefront.ID, local.ID}).
			Return([]trade.SalesOrder{storefront, local}, nil)
		orders.On("Save", mock.Anything, mock.Anything).Return(nil)

		core, logs := observer.New(zap.InfoLevel)
		svc := NewWorkflowService(workflows, orders, zap.New(core))
		result, err := svc.AutoWorkflowProcess(ctx, &workflow.ID, []uuid.UUID{storefront.ID, local.ID})

		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{storefront.ID}, result.Skipped)
		require.Len(t, result.Processed, 1)
		assert.Equal(t, local.ID, result.Processed[0].OrderID)
		orders.AssertNumberOfCalls(t, "Save", 1)

		entries := logs.FilterMessage("storefront orders kept as quotations").All()
		require.Len(t, entries, 1)
		assert.Equal(t, []interface{}{"000000101"}, entries[0].ContextMap()["order_numbers"])
	})

	t.Run("orders without workflow are skipped", func(t *testing.T) {
		workflow := fullWorkflow(t)
		workflows := new(MockWorkflowRepository)
		orders := new(MockSalesOrderRepository)
		orphan := newDraftOrder(t, "SO-3", nil)

		workflows.On("FindAll", mock.Anything, true).Return([]trade.WorkflowProcess{*workflow}, nil)
		orders.On("FindByIDs", mock.Anything, []uuid.UUID{orphan.ID}).Return([]trade.SalesOrder{orphan}, nil)

		result, err := NewWorkflowService(workflows, orders, zap.NewNop()).AutoWorkflowProcess(ctx, nil, []uuid.UUID{orphan.ID})

		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{orphan.ID}, result.Skipped)
		orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("orders of another workflow are skipped", func(t *testing.T) {
		workflow := fullWorkflow(t)
		other := fullWorkflow(t)
		workflows := new(MockWorkflowRepository)
		orders := new(MockSalesOrderRepository)
		own := newDraftOrder(t, "SO-5", &workflow.ID)
		foreign := newDraftOrder(t, "SO-6", &other.ID)

		workflows.On("FindByID", mock.Anything, workflow.ID).Return(workflow, nil)
		orders.On("FindByIDs", mock.Anything, []uuid.UUID{own.ID, foreign.ID}).
			Return([]trade.SalesOrder{own, foreign}, nil)
		var saved []uuid.UUID
		orders.On("Save", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { saved = append(saved, args.Get(1).(*trade.SalesOrder).ID) }).
			Return(nil)

		result, err := NewWorkflowService(workflows, orders, zap.NewNop()).
			AutoWorkflowProcess(ctx, &workflow.ID, []uuid.UUID{own.ID, foreign.ID})

		require.NoError(t, err)
		require.Len(t, result.Processed, 1)
		assert.Equal(t, own.ID, result.Processed[0].OrderID)
		assert.Equal(t, []uuid.UUID{foreign.ID}, result.Skipped)
		assert.Equal(t, []uuid.UUID{own.ID}, saved)
	})

	t.Run("confirm failure is collected", func(t *testing.T) {
		workflow := fullWorkflow(t)
		workflows := new(MockWorkflowRepository)
		orders := new(MockSalesOrderRepository)
		empty, err := trade.NewSalesOrder("SO-4", uuid.New(), "Acme")
		require.NoError(t, err)
		empty.AttachWorkflow(&workflow.ID)

		workflows.On("FindAll", mock.Anything, true).Return([]trade.WorkflowProcess{*workflow}, nil)
		orders.On("FindPendingByWorkflows", mock.Anything, mock.Anything).Return([]trade.SalesOrder{*empty}, nil)

		result, err := NewWorkflowService(workflows, orders, zap.NewNop()).AutoWorkflowProcess(ctx, nil, nil)

		require.NoError(t, err)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, empty.ID, result.Failures[0].OrderID)
		assert.Contains(t, result.Failures[0].Error, "without items")
	})

	t.Run("no active workflow", func(t *testing.T) {
		workflows := new(MockWorkflowRepository)
		orders := new(MockSalesOrderRepository)
		workflows.On("FindAll", mock.Anything, true).Return([]trade.WorkflowProcess{}, nil)

		result, err := NewWorkflowService(workflows, orders, zap.NewNop()).AutoWorkflowProcess(ctx, nil, nil)

		require.NoError(t, err)
		assert.Empty(t, result.Processed)
		orders.AssertNotCalled(t, "FindPendingByWorkflows", mock.Anything, mock.Anything)
	})

	t.Run("unknown workflow", func(t *testing.T) {
		workflows := new(MockWorkflowRepository)
		id := uuid.New()
		workflows.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		_, err := NewWorkflowService(workflows, new(MockSalesOrderRepository), zap.NewNop()).AutoWorkflowProcess(ctx, &id, nil)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestWorkflowService_ShippedOrderWorkflow(t *testing.T) {
	ctx := context.Background()

	t.Run("ships then invoices", func(t *testing.T) {
		workflow, err := trade.NewWorkflowProcess("Shipped", trade.WorkflowFlags{ValidateOrder: true, CreateInvoice: true, InvoiceDateIsOrderDate: true})
		require.NoError(t, err)
		workflows := new(MockWorkflowRepository)
		orders := new(MockSalesOrderRepository)
		order := newDraftOrder(t, "SO-5", nil)

		workflows.On("FindByID", mock.Anything, workflow.ID).Return(workflow, nil)
		orders.On("FindByIDs", mock.Anything, []uuid.UUID{order.ID}).Return([]trade.SalesOrder{order}, nil)
		var saved *trade.SalesOrder
		orders.On("Save", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*trade.SalesOrder) }).
			Return(nil)

		result, err := NewWorkflowService(workflows, orders, zap.NewNop()).ShippedOrderWorkflow(ctx, workflow.ID, []uuid.UUID{order.ID})

		require.NoError(t, err)
		require.Len(t, result.Processed, 1)
		assert.True(t, result.Processed[0].Shipped)
		assert.True(t, result.Processed[0].Invoiced)
		assert.False(t, result.Processed[0].Paid)
		require.NotNil(t, saved)
		assert.Equal(t, trade.OrderStatusShipped, saved.Status)
		require.NotNil(t, saved.InvoicedAt)
		assert.True(t, saved.InvoicedAt.Equal(saved.CreatedAt))
	})

	t.Run("storefront orders are listed in a warning", func(t *testing.T) {
		workflow := fullWorkflow(t)
		workflows := new(MockWorkflowRepository)
		orders := new(MockSalesOrderRepository)
		storefront := newStorefrontDraft(t, "000000202", nil)

		workflows.On("FindByID", mock.Anything, workflow.ID).Return(workflow, nil)
		orders.On("FindByIDs", mock.Anything, []uuid.UUID{storefront.ID}).Return([]trade.SalesOrder{storefront}, nil)

		core, logs := observer.New(zap.WarnLevel)
		result, err := NewWorkflowService(workflows, orders, zap.New(core)).ShippedOrderWorkflow(ctx, workflow.ID, []uuid.UUID{storefront.ID})

		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{storefront.ID}, result.Skipped)
		assert.Equal(t, 1, logs.Len())
		orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("save failure is collected", func(t *testing.T) {
		workflow := fullWorkflow(t)
		workflows := new(MockWorkflowRepository)
		orders := new(MockSalesOrderRepository)
		order := newDraftOrder(t, "SO-6", nil)

		workflows.On("FindByID", mock.Anything, workflow.ID).Return(workflow, nil)
		orders.On("FindByIDs", mock.Anything, mock.Anything).Return([]trade.SalesOrder{order}, nil)
		orders.On("Save", mock.Anything, mock.Anything).Return(errors.New("version conflict"))

		result, err := NewWorkflowService(workflows, orders, zap.NewNop()).ShippedOrderWorkflow(ctx, workflow.ID, []uuid.UUID{order.ID})

		require.NoError(t, err)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, "version conflict", result.Failures[0].Error)
	})
}
