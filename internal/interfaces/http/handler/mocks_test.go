package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appintegration "github.com/erp/connector/internal/application/integration"
	tradeapp "github.com/erp/connector/internal/application/trade"
	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/interfaces/http/dto"
)

// returns unpacks a (value, error) expectation; a nil value yields T's zero
func returns[T any](args mock.Arguments) (T, error) {
	v, _ := args.Get(0).(T)
	return v, args.Error(1)
}

// paged unpacks a (items, total, error) expectation
func paged[T any](args mock.Arguments) ([]T, int64, error) {
	items, _ := args.Get(0).([]T)
	total, _ := args.Get(1).(int64)
	return items, total, args.Error(2)
}

type MockInstanceService struct{ mock.Mock }

func (m *MockInstanceService) Create(ctx context.Context, req appintegration.CreateInstanceRequest) (*appintegration.InstanceResponse, error) {
	return returns[*appintegration.InstanceResponse](m.Called(ctx, req))
}

func (m *MockInstanceService) GetByID(ctx context.Context, id uuid.UUID) (*appintegration.InstanceResponse, error) {
	return returns[*appintegration.InstanceResponse](m.Called(ctx, id))
}

func (m *MockInstanceService) List(ctx context.Context, activeOnly bool) ([]appintegration.InstanceResponse, error) {
	return returns[[]appintegration.InstanceResponse](m.Called(ctx, activeOnly))
}

type MockOrderQueueService struct{ mock.Mock }

func (m *MockOrderQueueService) EnqueueOrders(ctx context.Context, instanceID uuid.UUID, rawOrders []json.RawMessage) (*appintegration.EnqueueResult, error) {
	return returns[*appintegration.EnqueueResult](m.Called(ctx, instanceID, rawOrders))
}

func (m *MockOrderQueueService) PullOrders(ctx context.Context, instanceID uuid.UUID) (*appintegration.EnqueueResult, error) {
	return returns[*appintegration.EnqueueResult](m.Called(ctx, instanceID))
}

func (m *MockOrderQueueService) ProcessQueueLine(ctx context.Context, lineID uuid.UUID) (*appintegration.LineResult, error) {
	return returns[*appintegration.LineResult](m.Called(ctx, lineID))
}

func (m *MockOrderQueueService) ReprocessQueueLine(ctx context.Context, lineID uuid.UUID) (*appintegration.LineResult, error) {
	return returns[*appintegration.LineResult](m.Called(ctx, lineID))
}

func (m *MockOrderQueueService) ProcessQueue(ctx context.Context, queueID uuid.UUID) (*appintegration.QueueRunResult, error) {
	return returns[*appintegration.QueueRunResult](m.Called(ctx, queueID))
}

func (m *MockOrderQueueService) AutoProcessQueues(ctx context.Context) ([]appintegration.QueueRunResult, error) {
	return returns[[]appintegration.QueueRunResult](m.Called(ctx))
}

func (m *MockOrderQueueService) CancelQueueLine(ctx context.Context, lineID uuid.UUID) (*appintegration.QueueLineResponse, error) {
	return returns[*appintegration.QueueLineResponse](m.Called(ctx, lineID))
}

func (m *MockOrderQueueService) GetQueueLine(ctx context.Context, lineID uuid.UUID) (*appintegration.QueueLineResponse, error) {
	return returns[*appintegration.QueueLineResponse](m.Called(ctx, lineID))
}

func (m *MockOrderQueueService) ListLogLines(ctx context.Context, lineID uuid.UUID) ([]appintegration.LogLineResponse, error) {
	return returns[[]appintegration.LogLineResponse](m.Called(ctx, lineID))
}

type MockCustomerQueueService struct{ mock.Mock }

func (m *MockCustomerQueueService) EnqueueCustomers(ctx context.Context, instanceID uuid.UUID, rawCustomers []json.RawMessage) (*appintegration.EnqueueResult, error) {
	return returns[*appintegration.EnqueueResult](m.Called(ctx, instanceID, rawCustomers))
}

func (m *MockCustomerQueueService) ProcessQueueLine(ctx context.Context, lineID uuid.UUID) (*appintegration.LineResult, error) {
	return returns[*appintegration.LineResult](m.Called(ctx, lineID))
}

func (m *MockCustomerQueueService) ReprocessQueueLine(ctx context.Context, lineID uuid.UUID) (*appintegration.LineResult, error) {
	return returns[*appintegration.LineResult](m.Called(ctx, lineID))
}

func (m *MockCustomerQueueService) ProcessQueue(ctx context.Context, queueID uuid.UUID) (*appintegration.QueueRunResult, error) {
	return returns[*appintegration.QueueRunResult](m.Called(ctx, queueID))
}

func (m *MockCustomerQueueService) AutoProcessQueues(ctx context.Context) ([]appintegration.QueueRunResult, error) {
	return returns[[]appintegration.QueueRunResult](m.Called(ctx))
}

type MockWorkflowService struct{ mock.Mock }

func (m *MockWorkflowService) Create(ctx context.Context, req tradeapp.CreateWorkflowRequest) (*tradeapp.WorkflowResponse, error) {
	return returns[*tradeapp.WorkflowResponse](m.Called(ctx, req))
}

func (m *MockWorkflowService) AutoWorkflowProcess(ctx context.Context, workflowID *uuid.UUID, orderIDs []uuid.UUID) (*tradeapp.WorkflowRunResult, error) {
	return returns[*tradeapp.WorkflowRunResult](m.Called(ctx, workflowID, orderIDs))
}

func (m *MockWorkflowService) ShippedOrderWorkflow(ctx context.Context, workflowID uuid.UUID, orderIDs []uuid.UUID) (*tradeapp.WorkflowRunResult, error) {
	return returns[*tradeapp.WorkflowRunResult](m.Called(ctx, workflowID, orderIDs))
}

type MockProductMappingService struct{ mock.Mock }

func (m *MockProductMappingService) CreateMapping(ctx context.Context, req appintegration.CreateProductMappingRequest) (*appintegration.ProductMappingResponse, error) {
	return returns[*appintegration.ProductMappingResponse](m.Called(ctx, req))
}

func (m *MockProductMappingService) RemapMapping(ctx context.Context, id, localProductID uuid.UUID) (*appintegration.ProductMappingResponse, error) {
	return returns[*appintegration.ProductMappingResponse](m.Called(ctx, id, localProductID))
}

func (m *MockProductMappingService) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProductMappingService) GetMapping(ctx context.Context, id uuid.UUID) (*appintegration.ProductMappingResponse, error) {
	return returns[*appintegration.ProductMappingResponse](m.Called(ctx, id))
}

func (m *MockProductMappingService) ListMappings(ctx context.Context, filter integration.ProductMappingFilter) ([]appintegration.ProductMappingResponse, int64, error) {
	return paged[appintegration.ProductMappingResponse](m.Called(ctx, filter))
}

func (m *MockProductMappingService) ActivateMappings(ctx context.Context, ids []uuid.UUID) error {
	return m.Called(ctx, ids).Error(0)
}

func (m *MockProductMappingService) DeactivateMappings(ctx context.Context, ids []uuid.UUID) error {
	return m.Called(ctx, ids).Error(0)
}

type MockSalesOrderReader struct{ mock.Mock }

func (m *MockSalesOrderReader) GetByID(ctx context.Context, id uuid.UUID) (*tradeapp.SalesOrderResponse, error) {
	return returns[*tradeapp.SalesOrderResponse](m.Called(ctx, id))
}

var (
	_ InstanceService                     = (*MockInstanceService)(nil)
	_ appintegration.OrderQueueService    = (*MockOrderQueueService)(nil)
	_ appintegration.CustomerQueueService = (*MockCustomerQueueService)(nil)
	_ WorkflowService                     = (*MockWorkflowService)(nil)
	_ ProductMappingService               = (*MockProductMappingService)(nil)
	_ SalesOrderReader                    = (*MockSalesOrderReader)(nil)
)

// Test helpers

func performRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "response data should be an object")
	return data
}
