package integration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/erp/connector/internal/domain/catalog"
	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/partner"
	"github.com/erp/connector/internal/domain/shared/valueobject"
	"github.com/erp/connector/internal/domain/trade"
	"github.com/erp/connector/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ImportOutcome is the result kind of one order import
type ImportOutcome string

const (
	ImportOutcomeCreated ImportOutcome = "CREATED"
	ImportOutcomeUpdated ImportOutcome = "UPDATED"
	ImportOutcomeSkipped ImportOutcome = "SKIPPED"
)

// ImportResult reports what ImportOrder did
type ImportResult struct {
	Outcome    ImportOutcome
	OrderID    uuid.UUID
	SkipReason string
}

// OrderImporter turns a parsed storefront order into a draft sales order
type OrderImporter interface {
	ImportOrder(ctx context.Context, instance *integration.StorefrontInstance, payload *integration.OrderPayload, queueLineID uuid.UUID) (*ImportResult, error)
}

// OrderImportServiceImpl implements OrderImporter.
//
// Missing products or taxes are reported as log lines against the queue line
// and the order is skipped; every other problem is returned as an error.
type OrderImportServiceImpl struct {
	resolver  ProductResolver
	products  catalog.ProductRepository
	customers partner.CustomerRepository
	orders    trade.SalesOrderRepository
	taxes     trade.TaxRepository
	workflows trade.WorkflowRepository
	logLines  integration.LogLineRepository
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewOrderImportService creates a new OrderImportServiceImpl
func NewOrderImportService(
	resolver ProductResolver,
	products catalog.ProductRepository,
	customers partner.CustomerRepository,
	orders trade.SalesOrderRepository,
	taxes trade.TaxRepository,
	workflows trade.WorkflowRepository,
	logLines integration.LogLineRepository,
	validate *validator.Validate,
	logger *zap.Logger,
) *OrderImportServiceImpl {
	if validate == nil {
		validate = validator.New()
	}
	return &OrderImportServiceImpl{
		resolver:  resolver,
		products:  products,
		customers: customers,
		orders:    orders,
		taxes:     taxes,
		workflows: workflows,
		logLines:  logLines,
		validate:  validate,
		logger:    logger,
	}
}

// importRun carries the state of one ImportOrder call
type importRun struct {
	instance    *integration.StorefrontInstance
	payload     *integration.OrderPayload
	queueLineID uuid.UUID
	taxCache    map[string]uuid.UUID
}

// errSkipOrder signals that a log line was written and the order must be skipped
type errSkipOrder struct{ reason string }

func (e *errSkipOrder) Error() string { return e.reason }

// ImportOrder imports one storefront order as a draft quotation.
func (s *OrderImportServiceImpl) ImportOrder(
	ctx context.Context,
	instance *integration.StorefrontInstance,
	payload *integration.OrderPayload,
	queueLineID uuid.UUID,
) (*ImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order_import", "import",
		telemetry.WithAttribute(telemetry.SpanAttrInstanceID, instance.ID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrOrderRef, payload.IncrementID),
	)
	defer span.End()

	result, err := s.importOrder(ctx, &importRun{
		instance:    instance,
		payload:     payload,
		queueLineID: queueLineID,
		taxCache:    make(map[string]uuid.UUID),
	})
	if err != nil {
		var skip *errSkipOrder
		if errors.As(err, &skip) {
			telemetry.AddEvent(span, "order_skipped", "reason", skip.reason)
			return &ImportResult{Outcome: ImportOutcomeSkipped, SkipReason: skip.reason}, nil
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOutcome, string(result.Outcome),
		telemetry.SpanAttrOrderID, result.OrderID.String(),
	)
	return result, nil
}

func (s *OrderImportServiceImpl) importOrder(ctx context.Context, run *importRun) (*ImportResult, error) {
	payload := run.payload
	if err := s.validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrInvalidPayload, err)
	}
	useBase := run.instance.UseBaseCurrency

	key := trade.ExternalOrderKey{
		InstanceID:        run.instance.ID,
		ExternalOrderID:   payload.ExternalID(),
		ExternalReference: payload.IncrementID,
	}
	existing, err := s.orders.FindByExternalKey(ctx, key)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if existing != nil && !existing.IsDraft() {
		s.writeLog(ctx, run, integration.LogLevelInfo,
			fmt.Sprintf("Order %s is already imported as %s and no longer a quotation", payload.IncrementID, existing.OrderNumber), "")
		return nil, &errSkipOrder{reason: integration.ErrOrderAlreadyExists.Error()}
	}

	lines := payload.PriceableLines()
	products := make([]*catalog.Product, len(lines))
	for i, line := range lines {
		product, err := s.resolver.Resolve(ctx, run.instance.ID, line.SKU, line.ExternalProductID())
		if err != nil {
			if errors.Is(err, integration.ErrProductNotResolved) {
				s.writeLog(ctx, run, integration.LogLevelError,
					fmt.Sprintf("Product with SKU %s not found for order %s", line.SKU, payload.IncrementID), line.SKU)
				return nil, &errSkipOrder{reason: err.Error()}
			}
			return nil, err
		}
		products[i] = product
	}

	taxIDs := make([][]uuid.UUID, len(lines))
	for i, line := range lines {
		ids, err := s.lineTaxes(ctx, run, lineTaxRate(payload, line), line.SKU)
		if err != nil {
			return nil, err
		}
		taxIDs[i] = ids
	}

	prices, err := integration.PriceOrderLines(payload, run.instance.PricingOptions())
	if err != nil {
		return nil, fmt.Errorf("price order %s: %w", payload.IncrementID, err)
	}
	if len(prices) != len(lines) {
		return nil, fmt.Errorf("price order %s: %d prices for %d lines", payload.IncrementID, len(prices), len(lines))
	}

	customer, err := s.findOrCreateCustomer(ctx, run)
	if err != nil {
		return nil, err
	}

	order := existing
	outcome := ImportOutcomeUpdated
	if order == nil {
		order, err = trade.NewStorefrontSalesOrder(key, customer.ID, customer.Name, payload.CurrencyCode(useBase))
		if err != nil {
			return nil, err
		}
		order.AttachWorkflow(run.instance.WorkflowID)
		outcome = ImportOutcomeCreated
	}

	for i, price := range prices {
		line, product := lines[i], products[i]
		if _, _, err := order.UpsertItemByExternalID(trade.LineInput{
			Kind:           trade.ItemKindProduct,
			ProductID:      product.ID,
			ProductName:    line.DisplayName(),
			ProductCode:    product.Code,
			Quantity:       price.Quantity,
			UnitPrice:      price.UnitPrice,
			TaxIDs:         taxIDs[i],
			ExternalItemID: line.ExternalItemID(i),
			OptionTitle:    line.OptionTitle(),
		}); err != nil {
			return nil, fmt.Errorf("order %s line %s: %w", payload.IncrementID, line.SKU, err)
		}
	}

	if err := s.addShipping(ctx, run, order); err != nil {
		return nil, err
	}
	if run.instance.PriceMode != integration.PriceModeProportional {
		if err := s.addDiscount(ctx, run, order); err != nil {
			return nil, err
		}
	}

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	s.applyWorkflow(ctx, run, order)

	s.writeLog(ctx, run, integration.LogLevelInfo,
		fmt.Sprintf("Order %s imported as quotation %s", payload.IncrementID, order.OrderNumber), "")
	s.logger.Info("storefront order imported",
		zap.String("instance_id", run.instance.ID.String()),
		zap.String("order_ref", payload.IncrementID),
		zap.String("order_id", order.ID.String()),
		zap.String("outcome", string(outcome)),
		zap.Int("lines", order.ItemCount()),
	)

	return &ImportResult{Outcome: outcome, OrderID: order.ID}, nil
}

// lineTaxRate returns the line's tax percent, falling back to the parent's
// for configurable children that carry none.
func lineTaxRate(order *integration.OrderPayload, line integration.OrderLinePayload) decimal.Decimal {
	rate := line.TaxRate()
	if rate.IsZero() && line.HasParent() {
		if parent := order.ParentOf(line); parent != nil {
			rate = parent.TaxRate()
		}
	}
	return rate
}

// lineTaxes resolves the tax for a rate. Zero rates carry no tax.
func (s *OrderImportServiceImpl) lineTaxes(ctx context.Context, run *importRun, rate decimal.Decimal, sku string) ([]uuid.UUID, error) {
	if !rate.IsPositive() {
		return nil, nil
	}
	cacheKey := rate.String()
	if id, ok := run.taxCache[cacheKey]; ok {
		return []uuid.UUID{id}, nil
	}

	tax, err := s.taxes.FindByRate(ctx, run.instance.ID, rate)
	if err != nil {
		if isNotFound(err) {
			s.writeLog(ctx, run, integration.LogLevelError,
				fmt.Sprintf("No tax with rate %s%% found for order %s", rate.String(), run.payload.IncrementID), sku)
			return nil, &errSkipOrder{reason: fmt.Sprintf("%s: rate %s", integration.ErrTaxNotResolved, rate.String())}
		}
		return nil, err
	}
	run.taxCache[cacheKey] = tax.ID
	return []uuid.UUID{tax.ID}, nil
}

func (s *OrderImportServiceImpl) addShipping(ctx context.Context, run *importRun, order *trade.SalesOrder) error {
	useBase := run.instance.UseBaseCurrency
	amount := run.payload.ShippingAmountFor(useBase)
	if !amount.IsPositive() {
		return nil
	}

	product, err := s.serviceProduct(ctx, run, run.instance.ShippingProductSKU, "shipping")
	if err != nil {
		return err
	}

	var taxIDs []uuid.UUID
	shippingTax := run.payload.ShippingTaxAmount.Decimal()
	if shippingTax.IsPositive() {
		rate := shippingTax.Div(amount).Mul(decimal.NewFromInt(100)).Round(2)
		if taxIDs, err = s.lineTaxes(ctx, run, rate, product.Code); err != nil {
			return err
		}
	}

	name := product.Name
	if desc := strings.TrimSpace(run.payload.ShippingDescription); desc != "" {
		name = desc
	}
	if _, err := order.SetShippingLine(product.ID, product.Code, name, amount.Round(integration.UnitPricePrecision), taxIDs); err != nil {
		return fmt.Errorf("order %s shipping line: %w", run.payload.IncrementID, err)
	}
	return nil
}

func (s *OrderImportServiceImpl) addDiscount(ctx context.Context, run *importRun, order *trade.SalesOrder) error {
	amount := run.payload.DiscountAmountFor(run.instance.UseBaseCurrency)
	if amount.IsZero() {
		return nil
	}

	product, err := s.serviceProduct(ctx, run, run.instance.DiscountProductSKU, "discount")
	if err != nil {
		return err
	}

	name := product.Name
	if desc := strings.TrimSpace(run.payload.DiscountDescription); desc != "" {
		name = desc
	}
	if _, err := order.SetDiscountLine(product.ID, product.Code, name, amount.Round(integration.UnitPricePrecision), nil); err != nil {
		return fmt.Errorf("order %s discount line: %w", run.payload.IncrementID, err)
	}
	return nil
}

// serviceProduct loads the instance's shipping or discount product by SKU
func (s *OrderImportServiceImpl) serviceProduct(ctx context.Context, run *importRun, sku, purpose string) (*catalog.Product, error) {
	if sku == "" {
		s.writeLog(ctx, run, integration.LogLevelError,
			fmt.Sprintf("No %s product configured for instance %s", purpose, run.instance.Name), "")
		return nil, &errSkipOrder{reason: fmt.Sprintf("%s product not configured", purpose)}
	}
	product, err := s.products.FindByCode(ctx, sku)
	if err != nil {
		if isNotFound(err) {
			s.writeLog(ctx, run, integration.LogLevelError,
				fmt.Sprintf("The %s product %s does not exist", purpose, sku), sku)
			return nil, &errSkipOrder{reason: fmt.Sprintf("%s product %s not found", purpose, sku)}
		}
		return nil, err
	}
	return product, nil
}

// findOrCreateCustomer links the order to a partner: the storefront account
// first, then the email, else a new partner built from the billing address.
func (s *OrderImportServiceImpl) findOrCreateCustomer(ctx context.Context, run *importRun) (*partner.Customer, error) {
	payload := run.payload
	email := strings.TrimSpace(payload.CustomerEmail)
	if email == "" && payload.BillingAddress != nil {
		email = strings.TrimSpace(payload.BillingAddress.Email)
	}

	var customer *partner.Customer
	var err error
	if !payload.IsGuest() {
		externalID := strconv.FormatInt(*payload.CustomerID, 10)
		customer, err = s.customers.FindByExternalID(ctx, run.instance.ID, externalID)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
	}
	if customer == nil && email != "" {
		customer, err = s.customers.FindByEmail(ctx, email)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
	}

	changed := false
	if customer == nil {
		name := payload.CustomerName()
		if name == "" {
			name = email
		}
		if name == "" {
			name = "Guest " + payload.IncrementID
		}
		if payload.IsGuest() {
			customer, err = partner.NewGuestCustomer(name, email)
		} else {
			customer, err = partner.NewStorefrontCustomer(run.instance.ID, strconv.FormatInt(*payload.CustomerID, 10), name, email)
		}
		if err != nil {
			return nil, fmt.Errorf("order %s customer: %w", payload.IncrementID, err)
		}
		changed = true
	}

	if payload.BillingAddress != nil {
		if addr, ok := addressFromOrder(payload.BillingAddress); ok {
			changed = customer.SetAddress(addr) || changed
		} else {
			s.writeLog(ctx, run, integration.LogLevelWarning,
				fmt.Sprintf("Billing address of order %s is incomplete and was not stored", payload.IncrementID), "")
		}
	}

	if changed {
		if err := s.customers.Save(ctx, customer); err != nil {
			return nil, err
		}
	}
	return customer, nil
}

func addressFromOrder(a *integration.AddressPayload) (valueobject.Address, bool) {
	addr, err := valueobject.NewAddress(a.Street, a.City, a.CountryID,
		valueobject.WithRegion(a.Region),
		valueobject.WithPostalCode(a.Postcode),
		valueobject.WithTelephone(a.Telephone),
	)
	if err != nil {
		return valueobject.Address{}, false
	}
	return addr, true
}

// applyWorkflow runs the instance workflow on the new order. Storefront
// orders are never advanced, so this only records the decision.
func (s *OrderImportServiceImpl) applyWorkflow(ctx context.Context, run *importRun, order *trade.SalesOrder) {
	if order.WorkflowID == nil || s.workflows == nil {
		return
	}
	workflow, err := s.workflows.FindByID(ctx, *order.WorkflowID)
	if err != nil {
		s.logger.Warn("auto-workflow not found for imported order",
			zap.String("workflow_id", order.WorkflowID.String()),
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return
	}
	result, err := workflow.Apply(order)
	if err != nil {
		s.logger.Error("auto-workflow failed on imported order", zap.String("order_id", order.ID.String()), zap.Error(err))
		return
	}
	if result.Skipped {
		s.logger.Debug("storefront order kept as quotation",
			zap.String("order_id", order.ID.String()),
			zap.String("workflow", workflow.Name),
		)
	}
}

func (s *OrderImportServiceImpl) writeLog(ctx context.Context, run *importRun, level integration.LogLevel, message, sku string) {
	line := integration.NewLogLine(run.instance.ID, run.queueLineID, level, message).
		WithSKU(sku).
		WithOrderRef(run.payload.IncrementID)
	if err := s.logLines.Save(ctx, line); err != nil {
		s.logger.Error("failed to save import log line",
			zap.String("queue_line_id", run.queueLineID.String()),
			zap.String("message", message),
			zap.Error(err),
		)
	}
}

var _ OrderImporter = (*OrderImportServiceImpl)(nil)
