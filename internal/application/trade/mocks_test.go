package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/erp/connector/internal/domain/trade"
)

// returns unpacks a (value, error) expectation; a nil value yields T's zero
func returns[T any](args mock.Arguments) (T, error) {
	v, _ := args.Get(0).(T)
	return v, args.Error(1)
}

type MockSalesOrderRepository struct{ mock.Mock }

func (m *MockSalesOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.SalesOrder, error) {
	return returns[*trade.SalesOrder](m.Called(ctx, id))
}

func (m *MockSalesOrderRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]trade.SalesOrder, error) {
	return returns[[]trade.SalesOrder](m.Called(ctx, ids))
}

func (m *MockSalesOrderRepository) FindByExternalKey(ctx context.Context, key trade.ExternalOrderKey) (*trade.SalesOrder, error) {
	return returns[*trade.SalesOrder](m.Called(ctx, key))
}

func (m *MockSalesOrderRepository) FindPendingByWorkflows(ctx context.Context, workflowIDs []uuid.UUID) ([]trade.SalesOrder, error) {
	return returns[[]trade.SalesOrder](m.Called(ctx, workflowIDs))
}

func (m *MockSalesOrderRepository) Save(ctx context.Context, order *trade.SalesOrder) error {
	return m.Called(ctx, order).Error(0)
}

type MockWorkflowRepository struct{ mock.Mock }

func (m *MockWorkflowRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.WorkflowProcess, error) {
	return returns[*trade.WorkflowProcess](m.Called(ctx, id))
}

func (m *MockWorkflowRepository) FindAll(ctx context.Context, activeOnly bool) ([]trade.WorkflowProcess, error) {
	return returns[[]trade.WorkflowProcess](m.Called(ctx, activeOnly))
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *trade.WorkflowProcess) error {
	return m.Called(ctx, workflow).Error(0)
}

var (
	_ trade.SalesOrderRepository = (*MockSalesOrderRepository)(nil)
	_ trade.WorkflowRepository   = (*MockWorkflowRepository)(nil)
)
