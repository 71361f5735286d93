package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/erp/connector/internal/domain/catalog"
	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/partner"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/domain/trade"
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

type MockProductMappingRepository struct{ mock.Mock }

func (m *MockProductMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.ProductMapping, error) {
	return returns[*integration.ProductMapping](m.Called(ctx, id))
}

func (m *MockProductMappingRepository) FindByKey(ctx context.Context, key integration.MappingKey) (*integration.ProductMapping, error) {
	return returns[*integration.ProductMapping](m.Called(ctx, key))
}

func (m *MockProductMappingRepository) FindBySKU(ctx context.Context, instanceID uuid.UUID, sku string) (*integration.ProductMapping, error) {
	return returns[*integration.ProductMapping](m.Called(ctx, instanceID, sku))
}

func (m *MockProductMappingRepository) FindAll(ctx context.Context, filter integration.ProductMappingFilter) ([]integration.ProductMapping, int64, error) {
	return paged[integration.ProductMapping](m.Called(ctx, filter))
}

func (m *MockProductMappingRepository) ExistsByKey(ctx context.Context, key integration.MappingKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductMappingRepository) Save(ctx context.Context, mapping *integration.ProductMapping) error {
	return m.Called(ctx, mapping).Error(0)
}

func (m *MockProductMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockProductRepository struct{ mock.Mock }

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return returns[*catalog.Product](m.Called(ctx, id))
}

func (m *MockProductRepository) FindByCode(ctx context.Context, code string) (*catalog.Product, error) {
	return returns[*catalog.Product](m.Called(ctx, code))
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, int64, error) {
	return paged[catalog.Product](m.Called(ctx, filter))
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return m.Called(ctx, product).Error(0)
}

type MockCustomerRepository struct{ mock.Mock }

func (m *MockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	return returns[*partner.Customer](m.Called(ctx, id))
}

func (m *MockCustomerRepository) FindByExternalID(ctx context.Context, instanceID uuid.UUID, externalID string) (*partner.Customer, error) {
	return returns[*partner.Customer](m.Called(ctx, instanceID, externalID))
}

func (m *MockCustomerRepository) FindByEmail(ctx context.Context, email string) (*partner.Customer, error) {
	return returns[*partner.Customer](m.Called(ctx, email))
}

func (m *MockCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	return m.Called(ctx, customer).Error(0)
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

type MockTaxRepository struct{ mock.Mock }

func (m *MockTaxRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Tax, error) {
	return returns[*trade.Tax](m.Called(ctx, id))
}

func (m *MockTaxRepository) FindByRate(ctx context.Context, instanceID uuid.UUID, rate decimal.Decimal) (*trade.Tax, error) {
	return returns[*trade.Tax](m.Called(ctx, instanceID, rate.String()))
}

func (m *MockTaxRepository) Save(ctx context.Context, tax *trade.Tax) error {
	return m.Called(ctx, tax).Error(0)
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

type MockLogLineRepository struct{ mock.Mock }

func (m *MockLogLineRepository) Save(ctx context.Context, line *integration.LogLine) error {
	return m.Called(ctx, line).Error(0)
}

func (m *MockLogLineRepository) FindByQueueLine(ctx context.Context, queueLineID uuid.UUID) ([]integration.LogLine, error) {
	return returns[[]integration.LogLine](m.Called(ctx, queueLineID))
}

type MockInstanceRepository struct{ mock.Mock }

func (m *MockInstanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.StorefrontInstance, error) {
	return returns[*integration.StorefrontInstance](m.Called(ctx, id))
}

func (m *MockInstanceRepository) FindAll(ctx context.Context, activeOnly bool) ([]integration.StorefrontInstance, error) {
	return returns[[]integration.StorefrontInstance](m.Called(ctx, activeOnly))
}

func (m *MockInstanceRepository) Save(ctx context.Context, instance *integration.StorefrontInstance) error {
	return m.Called(ctx, instance).Error(0)
}

type MockQueueRepository struct{ mock.Mock }

func (m *MockQueueRepository) FindQueueByID(ctx context.Context, id uuid.UUID) (*integration.DataQueue, error) {
	return returns[*integration.DataQueue](m.Called(ctx, id))
}

func (m *MockQueueRepository) FindQueuesWithDraftLines(ctx context.Context, kind integration.QueueKind, limit int) ([]integration.DataQueue, error) {
	return returns[[]integration.DataQueue](m.Called(ctx, kind, limit))
}

func (m *MockQueueRepository) SummarizeQueue(ctx context.Context, queueID uuid.UUID) (integration.QueueSummary, error) {
	args := m.Called(ctx, queueID)
	return args.Get(0).(integration.QueueSummary), args.Error(1)
}

func (m *MockQueueRepository) FindLineByID(ctx context.Context, id uuid.UUID) (*integration.QueueLine, error) {
	return returns[*integration.QueueLine](m.Called(ctx, id))
}

func (m *MockQueueRepository) FindLinesByQueue(ctx context.Context, queueID uuid.UUID, states ...integration.QueueLineState) ([]integration.QueueLine, error) {
	return returns[[]integration.QueueLine](m.Called(ctx, queueID, states))
}

func (m *MockQueueRepository) ExistsActiveLine(ctx context.Context, instanceID uuid.UUID, kind integration.QueueKind, externalID string) (bool, error) {
	args := m.Called(ctx, instanceID, kind, externalID)
	return args.Bool(0), args.Error(1)
}

func (m *MockQueueRepository) ListLines(ctx context.Context, filter integration.QueueLineFilter) ([]integration.QueueLine, int64, error) {
	return paged[integration.QueueLine](m.Called(ctx, filter))
}

func (m *MockQueueRepository) SaveQueue(ctx context.Context, queue *integration.DataQueue) error {
	return m.Called(ctx, queue).Error(0)
}

func (m *MockQueueRepository) SaveQueueWithLines(ctx context.Context, queue *integration.DataQueue, lines []*integration.QueueLine) error {
	return m.Called(ctx, queue, lines).Error(0)
}

func (m *MockQueueRepository) SaveLine(ctx context.Context, line *integration.QueueLine) error {
	return m.Called(ctx, line).Error(0)
}

type MockMappingCache struct{ mock.Mock }

func (m *MockMappingCache) Get(ctx context.Context, key string) (uuid.UUID, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(uuid.UUID), args.Bool(1), args.Error(2)
}

func (m *MockMappingCache) Set(ctx context.Context, key string, productID uuid.UUID, ttl time.Duration) error {
	return m.Called(ctx, key, productID, ttl).Error(0)
}

func (m *MockMappingCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockProcessingLock struct{ mock.Mock }

func (m *MockProcessingLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockProcessingLock) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockProcessingLock) Close() error {
	return m.Called().Error(0)
}

type MockOrderImporter struct{ mock.Mock }

func (m *MockOrderImporter) ImportOrder(ctx context.Context, instance *integration.StorefrontInstance, payload *integration.OrderPayload, queueLineID uuid.UUID) (*ImportResult, error) {
	return returns[*ImportResult](m.Called(ctx, instance, payload, queueLineID))
}

type MockProductResolver struct{ mock.Mock }

func (m *MockProductResolver) Resolve(ctx context.Context, instanceID uuid.UUID, sku, externalProductID string) (*catalog.Product, error) {
	return returns[*catalog.Product](m.Called(ctx, instanceID, sku, externalProductID))
}

type MockOrderSource struct{ mock.Mock }

func (m *MockOrderSource) SearchOrders(ctx context.Context, instance *integration.StorefrontInstance, since *time.Time, page int) (*OrderPage, error) {
	return returns[*OrderPage](m.Called(ctx, instance, since, page))
}
