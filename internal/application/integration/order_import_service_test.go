package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/connector/internal/domain/catalog"
	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/partner"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testOrderJSON = `{
  "entity_id": 1001,
  "increment_id": "000000101",
  "customer_email": "jane@example.com",
  "customer_firstname": "Jane",
  "customer_lastname": "Doe",
  "customer_is_guest": 1,
  "order_currency_code": "eur",
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
    "country_id": "FR",
    "telephone": "0102030405"
  },
  "items": [
    {"item_id": 1, "product_id": 42, "sku": "MB01", "name": "Bag", "product_type": "simple",
     "qty_ordered": 2, "price": 50, "row_total": 100, "tax_percent": 21}
  ]
}`

type importFixture struct {
	instance  *integration.StorefrontInstance
	resolver  *MockProductResolver
	products  *MockProductRepository
	customers *MockCustomerRepository
	orders    *MockSalesOrderRepository
	taxes     *MockTaxRepository
	workflows *MockWorkflowRepository
	logLines  *MockLogLineRepository
	svc       *OrderImportServiceImpl

	product  *catalog.Product
	shipping *catalog.Product
	discount *catalog.Product
	tax      *trade.Tax
	logged   []*integration.LogLine
	saved    *trade.SalesOrder
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	instance, err := integration.NewStorefrontInstance("Main shop", "https://shop.example.com", "token")
	require.NoError(t, err)
	instance.ShippingProductSKU = "SHIP"
	instance.DiscountProductSKU = "DISC"

	shipping, err := catalog.NewServiceProduct("SHIP", "Shipping")
	require.NoError(t, err)
	discount, err := catalog.NewServiceProduct("DISC", "Discount")
	require.NoError(t, err)
	tax, err := trade.NewTax("VAT21", "VAT 21%", decimal.NewFromInt(21))
	require.NoError(t, err)

	f := &importFixture{
		instance:  instance,
		resolver:  new(MockProductResolver),
		products:  new(MockProductRepository),
		customers: new(MockCustomerRepository),
		orders:    new(MockSalesOrderRepository),
		taxes:     new(MockTaxRepository),
		workflows: new(MockWorkflowRepository),
		logLines:  new(MockLogLineRepository),
		product:   newTestProduct(t, "LOCAL-MB01"),
		shipping:  shipping,
		discount:  discount,
		tax:       tax,
	}
	f.svc = NewOrderImportService(f.resolver, f.products, f.customers, f.orders, f.taxes, f.workflows, f.logLines, nil, zap.NewNop())

	f.logLines.On("Save", mock.Anything, mock.AnythingOfType("*integration.LogLine")).
		Run(func(args mock.Arguments) { f.logged = append(f.logged, args.Get(1).(*integration.LogLine)) }).
		Return(nil).Maybe()
	return f
}

// happyPath stubs every lookup of testOrderJSON
func (f *importFixture) happyPath() {
	f.orders.On("FindByExternalKey", mock.Anything, mock.AnythingOfType("trade.ExternalOrderKey")).Return(nil, shared.ErrNotFound)
	f.resolver.On("Resolve", mock.Anything, f.instance.ID, "MB01", "42").Return(f.product, nil)
	f.taxes.On("FindByRate", mock.Anything, f.instance.ID, "21").Return(f.tax, nil)
	f.customers.On("FindByEmail", mock.Anything, "jane@example.com").Return(nil, shared.ErrNotFound)
	f.customers.On("Save", mock.Anything, mock.AnythingOfType("*partner.Customer")).Return(nil)
	f.products.On("FindByCode", mock.Anything, "SHIP").Return(f.shipping, nil)
	f.products.On("FindByCode", mock.Anything, "DISC").Return(f.discount, nil).Maybe()
	f.orders.On("Save", mock.Anything, mock.AnythingOfType("*trade.SalesOrder")).
		Run(func(args mock.Arguments) { f.saved = args.Get(1).(*trade.SalesOrder) }).
		Return(nil)
}

func parseTestOrder(t *testing.T) *integration.OrderPayload {
	t.Helper()
	p, err := integration.ParseOrderPayload([]byte(testOrderJSON))
	require.NoError(t, err)
	return p
}

func TestOrderImportService_CreatesDraftQuotation(t *testing.T) {
	f := newImportFixture(t)
	f.happyPath()

	result, err := f.svc.ImportOrder(context.Background(), f.instance, parseTestOrder(t), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, ImportOutcomeCreated, result.Outcome)
	require.NotNil(t, f.saved)
	assert.Equal(t, f.saved.ID, result.OrderID)

	order := f.saved
	assert.Equal(t, trade.OrderStatusDraft, order.Status)
	assert.Equal(t, "000000101", order.OrderNumber)
	assert.Equal(t, "1001", order.ExternalOrderID)
	assert.Equal(t, "EUR", order.CurrencyCode)
	assert.Equal(t, "Jane Doe", order.CustomerName)
	assert.True(t, order.IsFromStorefront())

	products := order.ItemsOfKind(trade.ItemKindProduct)
	require.Len(t, products, 1)
	assert.Equal(t, f.product.ID, products[0].ProductID)
	assert.True(t, products[0].UnitPrice.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, []uuid.UUID{f.tax.ID}, products[0].TaxIDs)
	assert.Equal(t, "1", products[0].ExternalItemID)

	shipping := order.ItemsOfKind(trade.ItemKindShipping)
	require.Len(t, shipping, 1)
	assert.Equal(t, "Flat Rate", shipping[0].ProductName)
	assert.True(t, shipping[0].UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, []uuid.UUID{f.tax.ID}, shipping[0].TaxIDs)

	discount := order.ItemsOfKind(trade.ItemKindDiscount)
	require.Len(t, discount, 1)
	assert.Equal(t, "SUMMER", discount[0].ProductName)
	assert.True(t, discount[0].UnitPrice.Equal(decimal.NewFromInt(-5)))

	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(105)), "got %s", order.TotalAmount)

	// the shipping rate hits the per-run tax cache
	f.taxes.AssertNumberOfCalls(t, "FindByRate", 1)

	require.NotEmpty(t, f.logged)
	last := f.logged[len(f.logged)-1]
	assert.Equal(t, integration.LogLevelInfo, last.Level)
	assert.Equal(t, "000000101", last.OrderRef)
	assert.Contains(t, last.Message, "imported as quotation")
}

func TestOrderImportService_GuestCustomerFromBillingAddress(t *testing.T) {
	f := newImportFixture(t)
	f.happyPath()

	_, err := f.svc.ImportOrder(context.Background(), f.instance, parseTestOrder(t), uuid.New())
	require.NoError(t, err)

	var saved *partner.Customer
	for _, call := range f.customers.Calls {
		if call.Method == "Save" {
			saved = call.Arguments.Get(1).(*partner.Customer)
		}
	}
	require.NotNil(t, saved)
	assert.True(t, saved.IsGuest)
	assert.Equal(t, "jane@example.com", saved.Email)
	assert.Equal(t, "Paris", saved.Address.City())
	assert.Equal(t, "0102030405", saved.Phone)
	f.customers.AssertNotCalled(t, "FindByExternalID", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderImportService_ExistingCustomerByAccount(t *testing.T) {
	f := newImportFixture(t)
	payload := parseTestOrder(t)
	customerID := int64(7)
	payload.CustomerID = &customerID
	payload.CustomerIsGuest = 0
	payload.BillingAddress = nil

	existing, err := partner.NewStorefrontCustomer(f.instance.ID, "7", "Jane Doe", "jane@example.com")
	require.NoError(t, err)

	f.orders.On("FindByExternalKey", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
	f.resolver.On("Resolve", mock.Anything, f.instance.ID, "MB01", "42").Return(f.product, nil)
	f.taxes.On("FindByRate", mock.Anything, f.instance.ID, "21").Return(f.tax, nil)
	f.customers.On("FindByExternalID", mock.Anything, f.instance.ID, "7").Return(existing, nil)
	f.products.On("FindByCode", mock.Anything, mock.Anything).Return(f.shipping, nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil)

	_, err = f.svc.ImportOrder(context.Background(), f.instance, payload, uuid.New())
	require.NoError(t, err)

	f.customers.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	f.customers.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOrderImportService_SkipsOnUnknownProduct(t *testing.T) {
	f := newImportFixture(t)
	f.orders.On("FindByExternalKey", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
	f.resolver.On("Resolve", mock.Anything, f.instance.ID, "MB01", "42").
		Return(nil, integration.ErrProductNotResolved)

	result, err := f.svc.ImportOrder(context.Background(), f.instance, parseTestOrder(t), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, ImportOutcomeSkipped, result.Outcome)
	assert.Equal(t, uuid.Nil, result.OrderID)
	require.Len(t, f.logged, 1)
	assert.Equal(t, integration.LogLevelError, f.logged[0].Level)
	assert.Equal(t, "MB01", f.logged[0].SKU)
	assert.Contains(t, f.logged[0].Message, "Product with SKU MB01 not found")

	f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.customers.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOrderImportService_SkipsOnUnknownTax(t *testing.T) {
	f := newImportFixture(t)
	f.orders.On("FindByExternalKey", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
	f.resolver.On("Resolve", mock.Anything, f.instance.ID, "MB01", "42").Return(f.product, nil)
	f.taxes.On("FindByRate", mock.Anything, f.instance.ID, "21").Return(nil, shared.ErrNotFound)

	result, err := f.svc.ImportOrder(context.Background(), f.instance, parseTestOrder(t), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, ImportOutcomeSkipped, result.Outcome)
	assert.Contains(t, result.SkipReason, integration.ErrTaxNotResolved.Error())
	require.Len(t, f.logged, 1)
	assert.Contains(t, f.logged[0].Message, "No tax with rate 21%")
	f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOrderImportService_SkipsWhenShippingProductMissing(t *testing.T) {
	f := newImportFixture(t)
	f.instance.ShippingProductSKU = ""

	f.orders.On("FindByExternalKey", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
	f.resolver.On("Resolve", mock.Anything, f.instance.ID, "MB01", "42").Return(f.product, nil)
	f.taxes.On("FindByRate", mock.Anything, f.instance.ID, "21").Return(f.tax, nil)
	f.customers.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
	f.customers.On("Save", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.ImportOrder(context.Background(), f.instance, parseTestOrder(t), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, ImportOutcomeSkipped, result.Outcome)
	assert.Contains(t, result.SkipReason, "shipping product not configured")
	f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOrderImportService_ProportionalModeHasNoDiscountLine(t *testing.T) {
	f := newImportFixture(t)
	require.NoError(t, f.instance.SetPriceMode(integration.PriceModeProportional, false))
	f.happyPath()

	_, err := f.svc.ImportOrder(context.Background(), f.instance, parseTestOrder(t), uuid.New())
	require.NoError(t, err)

	require.NotNil(t, f.saved)
	assert.Empty(t, f.saved.ItemsOfKind(trade.ItemKindDiscount))
	products := f.saved.ItemsOfKind(trade.ItemKindProduct)
	require.Len(t, products, 1)
	// grand 128.1 - tax 23.1 - shipping 10 = 95 over qty 2
	assert.True(t, products[0].UnitPrice.Equal(decimal.RequireFromString("47.5")), "got %s", products[0].UnitPrice)
	f.products.AssertNotCalled(t, "FindByCode", mock.Anything, "DISC")
}

const noItemIDOrderJSON = `{
  "entity_id": 1002,
  "increment_id": "000000102",
  "customer_email": "jane@example.com",
  "customer_firstname": "Jane",
  "customer_lastname": "Doe",
  "customer_is_guest": 1,
  "grand_total": 121,
  "tax_amount": 21,
  "items": [
    {"sku": "A", "name": "Tee", "product_type": "simple", "qty_ordered": 1, "row_total_incl_tax": 60, "tax_percent": 21},
    {"sku": "B", "name": "Cap", "product_type": "simple", "qty_ordered": 1, "row_total_incl_tax": 60, "tax_percent": 21}
  ]
}`

func TestOrderImportService_LinesWithoutItemID(t *testing.T) {
	f := newImportFixture(t)
	require.NoError(t, f.instance.SetPriceMode(integration.PriceModeProportional, false))
	productA, productB := newTestProduct(t, "LOCAL-A"), newTestProduct(t, "LOCAL-B")
	f.happyPath()
	f.resolver.ExpectedCalls = removeCall(f.resolver.ExpectedCalls, "Resolve")
	f.resolver.On("Resolve", mock.Anything, f.instance.ID, "A", "").Return(productA, nil)
	f.resolver.On("Resolve", mock.Anything, f.instance.ID, "B", "").Return(productB, nil)

	payload, err := integration.ParseOrderPayload([]byte(noItemIDOrderJSON))
	require.NoError(t, err)
	_, err = f.svc.ImportOrder(context.Background(), f.instance, payload, uuid.New())
	require.NoError(t, err)

	require.NotNil(t, f.saved)
	lines := f.saved.ItemsOfKind(trade.ItemKindProduct)
	require.Len(t, lines, 2)
	assert.Equal(t, productA.ID, lines[0].ProductID)
	assert.Equal(t, productB.ID, lines[1].ProductID)
	assert.Equal(t, "A#1", lines[0].ExternalItemID)
	assert.Equal(t, "B#2", lines[1].ExternalItemID)
	for _, line := range lines {
		assert.True(t, line.UnitPrice.Equal(decimal.NewFromInt(50)), "got %s", line.UnitPrice)
	}
	assert.True(t, f.saved.TotalAmount.Equal(decimal.NewFromInt(100)), "got %s", f.saved.TotalAmount)

	t.Run("re-import keeps the same lines", func(t *testing.T) {
		first := f.saved
		f.orders.ExpectedCalls = removeCall(f.orders.ExpectedCalls, "FindByExternalKey")
		f.orders.On("FindByExternalKey", mock.Anything, mock.AnythingOfType("trade.ExternalOrderKey")).Return(first, nil)

		result, err := f.svc.ImportOrder(context.Background(), f.instance, payload, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, ImportOutcomeUpdated, result.Outcome)
		assert.Len(t, first.ItemsOfKind(trade.ItemKindProduct), 2)
	})
}

func TestOrderImportService_UpdatesExistingDraft(t *testing.T) {
	f := newImportFixture(t)
	payload := parseTestOrder(t)

	key := trade.ExternalOrderKey{InstanceID: f.instance.ID, ExternalOrderID: "1001", ExternalReference: "000000101"}
	existing, err := trade.NewStorefrontSalesOrder(key, uuid.New(), "Jane Doe", "EUR")
	require.NoError(t, err)
	_, err = existing.AddItem(trade.LineInput{
		Kind:           trade.ItemKindProduct,
		ProductID:      f.product.ID,
		ProductName:    "Bag",
		Quantity:       decimal.NewFromInt(1),
		UnitPrice:      decimal.NewFromInt(40),
		ExternalItemID: "1",
	})
	require.NoError(t, err)

	f.happyPath()
	f.orders.ExpectedCalls = removeCall(f.orders.ExpectedCalls, "FindByExternalKey")
	f.orders.On("FindByExternalKey", mock.Anything, key).Return(existing, nil)

	result, err := f.svc.ImportOrder(context.Background(), f.instance, payload, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, ImportOutcomeUpdated, result.Outcome)
	assert.Equal(t, existing.ID, result.OrderID)
	products := existing.ItemsOfKind(trade.ItemKindProduct)
	require.Len(t, products, 1)
	assert.True(t, products[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, products[0].UnitPrice.Equal(decimal.NewFromInt(50)))
}

func TestOrderImportService_SkipsConfirmedOrder(t *testing.T) {
	f := newImportFixture(t)
	key := trade.ExternalOrderKey{InstanceID: f.instance.ID, ExternalOrderID: "1001", ExternalReference: "000000101"}
	existing, err := trade.NewStorefrontSalesOrder(key, uuid.New(), "Jane Doe", "EUR")
	require.NoError(t, err)
	_, err = existing.AddItem(trade.LineInput{
		Kind:        trade.ItemKindProduct,
		ProductID:   f.product.ID,
		ProductName: "Bag",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(40),
	})
	require.NoError(t, err)
	require.NoError(t, existing.Confirm())

	f.orders.On("FindByExternalKey", mock.Anything, key).Return(existing, nil)

	result, err := f.svc.ImportOrder(context.Background(), f.instance, parseTestOrder(t), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, ImportOutcomeSkipped, result.Outcome)
	assert.Equal(t, integration.ErrOrderAlreadyExists.Error(), result.SkipReason)
	require.Len(t, f.logged, 1)
	assert.Equal(t, integration.LogLevelInfo, f.logged[0].Level)
	f.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderImportService_InvalidPayload(t *testing.T) {
	f := newImportFixture(t)
	payload := parseTestOrder(t)
	payload.Items = nil

	_, err := f.svc.ImportOrder(context.Background(), f.instance, payload, uuid.New())
	assert.ErrorIs(t, err, integration.ErrInvalidPayload)
}

func TestOrderImportService_StoreErrorIsReturned(t *testing.T) {
	f := newImportFixture(t)
	f.happyPath()
	f.orders.ExpectedCalls = removeCall(f.orders.ExpectedCalls, "Save")
	storeErr := errors.New("deadlock detected")
	f.orders.On("Save", mock.Anything, mock.Anything).Return(storeErr)

	_, err := f.svc.ImportOrder(context.Background(), f.instance, parseTestOrder(t), uuid.New())
	assert.ErrorIs(t, err, storeErr)
}

func TestOrderImportService_WorkflowKeepsQuotation(t *testing.T) {
	f := newImportFixture(t)
	workflow, err := trade.NewWorkflowProcess("Auto", trade.WorkflowFlags{ValidateOrder: true, CreateInvoice: true})
	require.NoError(t, err)
	f.instance.AttachWorkflow(&workflow.ID)
	f.happyPath()
	f.workflows.On("FindByID", mock.Anything, workflow.ID).Return(workflow, nil)

	_, err = f.svc.ImportOrder(context.Background(), f.instance, parseTestOrder(t), uuid.New())
	require.NoError(t, err)

	require.NotNil(t, f.saved)
	assert.Equal(t, &workflow.ID, f.saved.WorkflowID)
	assert.Equal(t, trade.OrderStatusDraft, f.saved.Status)
	assert.Equal(t, trade.InvoiceStatusNo, f.saved.InvoiceStatus)
}

func TestLineTaxRate_FallsBackToParent(t *testing.T) {
	parentID := int64(10)
	payload := &integration.OrderPayload{
		Items: []integration.OrderLinePayload{
			{ItemID: 10, SKU: "CONF", ProductType: integration.ProductTypeConfigurable, TaxPercent: integration.AmountFromFloat(20)},
			{ItemID: 11, SKU: "CONF-RED", ProductType: integration.ProductTypeSimple, ParentItemID: &parentID},
		},
	}
	assert.True(t, lineTaxRate(payload, payload.Items[1]).Equal(decimal.NewFromInt(20)))
	assert.True(t, lineTaxRate(payload, payload.Items[0]).Equal(decimal.NewFromInt(20)))
}

func removeCall(calls []*mock.Call, method string) []*mock.Call {
	out := calls[:0]
	for _, c := range calls {
		if c.Method != method {
			out = append(out, c)
		}
	}
	return out
}
