//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appintegration "github.com/erp/connector/internal/application/integration"
	"github.com/erp/connector/internal/domain/catalog"
	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/domain/trade"
	"github.com/erp/connector/internal/infrastructure/cache"
	"github.com/erp/connector/internal/infrastructure/persistence"
)

const orderJSON = `{
  "entity_id": 1001,
  "increment_id": "000000101",
  "customer_email": "jane@example.com",
  "customer_firstname": "Jane",
  "customer_lastname": "Doe",
  "customer_is_guest": 1,
  "order_currency_code": "EUR",
  "grand_total": 128.1,
  "tax_amount": 23.1,
  "shipping_amount": 10,
  "shipping_tax_amount": 2.1,
  "shipping_description": "Flat Rate",
  "discount_amount": -5,
  "discount_description": "SUMMER",
  "billing_address": {
    "firstname": "Jane",
    "lastname": "Doe",
    "street": ["1 Main St"],
    "city": "Paris",
    "postcode": "75001",
    "country_id": "FR"
  },
  "items": [
    {"item_id": 1, "product_id": 42, "sku": "MB01", "name": "Bag", "product_type": "simple",
     "qty_ordered": 2, "price": 50, "row_total": 100, "tax_percent": 21}
  ]
}`

type connector struct {
	instance *integration.StorefrontInstance
	queues   *persistence.GormQueueRepository
	orders   *persistence.GormSalesOrderRepository
	svc      *appintegration.OrderQueueServiceImpl
}

// newConnector seeds an instance with its catalog and wires the order queue
// service on the real repositories
func newConnector(t *testing.T, tdb *TestDB, lock shared.ProcessingLock) *connector {
	t.Helper()
	ctx := context.Background()
	db := tdb.DB

	instanceRepo := persistence.NewGormStorefrontInstanceRepository(db)
	productRepo := persistence.NewGormProductRepository(db)
	mappingRepo := persistence.NewGormProductMappingRepository(db)
	taxRepo := persistence.NewGormTaxRepository(db)
	queueRepo := persistence.NewGormQueueRepository(db)
	orderRepo := persistence.NewGormSalesOrderRepository(db)
	logLineRepo := persistence.NewGormLogLineRepository(db)

	instance, err := integration.NewStorefrontInstance("Main shop", "https://shop.example.com", "token")
	require.NoError(t, err)
	instance.ShippingProductSKU = "SHIP"
	instance.DiscountProductSKU = "DISC"
	require.NoError(t, instanceRepo.Save(ctx, instance))

	bag, err := catalog.NewProduct("LOCAL-MB01", "Bag", "pcs")
	require.NoError(t, err)
	shipping, err := catalog.NewServiceProduct("SHIP", "Shipping")
	require.NoError(t, err)
	discount, err := catalog.NewServiceProduct("DISC", "Discount")
	require.NoError(t, err)
	for _, p := range []*catalog.Product{bag, shipping, discount} {
		require.NoError(t, productRepo.Save(ctx, p))
	}

	mapping, err := integration.NewProductMapping(instance.ID, bag.ID, "42", "MB01")
	require.NoError(t, err)
	require.NoError(t, mappingRepo.Save(ctx, mapping))

	tax, err := trade.NewTax("VAT21", "VAT 21%", decimal.NewFromInt(21))
	require.NoError(t, err)
	require.NoError(t, taxRepo.Save(ctx, tax))

	mappingCache := cache.NewInMemoryMappingCache()
	t.Cleanup(func() { _ = mappingCache.Close() })

	log := zap.NewNop()
	resolver := appintegration.NewProductResolver(mappingRepo, productRepo, mappingCache, time.Minute, log)
	importer := appintegration.NewOrderImportService(
		resolver, productRepo,
		persistence.NewGormCustomerRepository(db),
		orderRepo, taxRepo,
		persistence.NewGormWorkflowRepository(db),
		logLineRepo, nil, log,
	)

	if lock == nil {
		lock = cache.NewInMemoryProcessingLock()
		t.Cleanup(func() { _ = lock.Close() })
	}
	svc := appintegration.NewOrderQueueService(instanceRepo, queueRepo, logLineRepo, importer, lock, nil, appintegration.QueueOptions{}, log)

	return &connector{instance: instance, queues: queueRepo, orders: orderRepo, svc: svc}
}

func TestOrderQueue_ImportsDraftQuotation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	c := newConnector(t, tdb, nil)
	ctx := context.Background()

	enqueued, err := c.svc.EnqueueOrders(ctx, c.instance.ID, []json.RawMessage{json.RawMessage(orderJSON)})
	require.NoError(t, err)
	require.Len(t, enqueued.QueueIDs, 1)
	assert.Equal(t, 1, enqueued.Enqueued)

	run, err := c.svc.ProcessQueue(ctx, enqueued.QueueIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 1, run.Done)
	assert.Zero(t, run.Failed)
	assert.Equal(t, integration.QueueStateCompleted, run.State)
	assert.False(t, run.ActionRequired)

	lines, err := c.queues.FindLinesByQueue(ctx, enqueued.QueueIDs[0])
	require.NoError(t, err)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, integration.QueueLineStateDone, line.State)
	require.NotNil(t, line.SalesOrderID)

	order, err := c.orders.FindByID(ctx, *line.SalesOrderID)
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusDraft, order.Status)
	assert.Equal(t, "000000101", order.ExternalReference)
	assert.Equal(t, "EUR", order.CurrencyCode)
	assert.Len(t, order.Items, 3, "product, shipping and discount lines")

	// the same storefront order is not queued twice while its line is done
	again, err := c.svc.EnqueueOrders(ctx, c.instance.ID, []json.RawMessage{json.RawMessage(orderJSON)})
	require.NoError(t, err)
	assert.Zero(t, again.Enqueued)
	assert.Equal(t, 1, again.Duplicates)
}

func TestOrderQueue_UnknownProductSkipsLine(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	c := newConnector(t, tdb, nil)
	ctx := context.Background()

	raw := strings.Replace(orderJSON, `"sku": "MB01"`, `"sku": "UNKNOWN"`, 1)
	raw = strings.Replace(raw, `"product_id": 42`, `"product_id": 77`, 1)

	enqueued, err := c.svc.EnqueueOrders(ctx, c.instance.ID, []json.RawMessage{json.RawMessage(raw)})
	require.NoError(t, err)
	require.Len(t, enqueued.QueueIDs, 1)

	run, err := c.svc.ProcessQueue(ctx, enqueued.QueueIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 1, run.Skipped)

	lines, err := c.queues.FindLinesByQueue(ctx, enqueued.QueueIDs[0])
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Skipped)
	assert.Nil(t, lines[0].SalesOrderID)

	logs, err := c.svc.ListLogLines(ctx, lines[0].ID)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "UNKNOWN", logs[0].SKU)
}

func TestOrderQueue_RedisLockedLineIsNotProcessed(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	client := NewTestRedis(t)
	lock := cache.NewRedisProcessingLock(client)
	c := newConnector(t, tdb, lock)
	ctx := context.Background()

	enqueued, err := c.svc.EnqueueOrders(ctx, c.instance.ID, []json.RawMessage{json.RawMessage(orderJSON)})
	require.NoError(t, err)
	lines, err := c.queues.FindLinesByQueue(ctx, enqueued.QueueIDs[0])
	require.NoError(t, err)
	require.Len(t, lines, 1)

	// another worker holds the line
	key := "queue-line:" + lines[0].ID.String()
	acquired, err := lock.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	run, err := c.svc.ProcessQueue(ctx, enqueued.QueueIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 1, run.Locked)
	assert.Zero(t, run.Done)

	require.NoError(t, lock.Release(ctx, key))
	run, err = c.svc.ProcessQueue(ctx, enqueued.QueueIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 1, run.Done)
}
