// Package trade holds the sales order aggregate that storefront orders are
// imported into.
package trade

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/connector/internal/domain/shared"
)

const maxOrderNumberLen = 64

type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "DRAFT"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// next lists the statuses reachable from each status. COMPLETED and
// CANCELLED are terminal.
var next = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:     {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusCompleted},
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusConfirmed, OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	return slices.Contains(next[s], target)
}

type InvoiceStatus string

const (
	InvoiceStatusNo        InvoiceStatus = "NO"
	InvoiceStatusToInvoice InvoiceStatus = "TO_INVOICE"
	InvoiceStatusInvoiced  InvoiceStatus = "INVOICED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// ItemKind separates goods from the shipping and discount lines
type ItemKind string

const (
	ItemKindProduct  ItemKind = "PRODUCT"
	ItemKindShipping ItemKind = "SHIPPING"
	ItemKindDiscount ItemKind = "DISCOUNT"
)

func (k ItemKind) IsValid() bool {
	return k == ItemKindProduct || k == ItemKindShipping || k == ItemKindDiscount
}

// ExternalOrderKey identifies a storefront order. A storefront may reuse an
// increment id across store views, so the reference is part of the key.
type ExternalOrderKey struct {
	InstanceID        uuid.UUID
	ExternalOrderID   string
	ExternalReference string
}

// SalesOrderItem is one order line. UnitPrice excludes tax and Amount is
// Quantity * UnitPrice rounded to cents.
type SalesOrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Kind        ItemKind
	ProductID   uuid.UUID
	ProductName string
	ProductCode string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	TaxIDs      []uuid.UUID
	// ExternalItemID is the storefront item_id, empty for local lines
	ExternalItemID string
	OptionTitle    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LineInput carries the values of a line to add or update
type LineInput struct {
	Kind           ItemKind
	ProductID      uuid.UUID
	ProductName    string
	ProductCode    string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	TaxIDs         []uuid.UUID
	ExternalItemID string
	OptionTitle    string
}

func (in LineInput) validate() error {
	switch {
	case !in.Kind.IsValid():
		return shared.NewDomainError("INVALID_ITEM_KIND", fmt.Sprintf("Invalid item kind: %s", in.Kind))
	case in.ProductID == uuid.Nil:
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	case strings.TrimSpace(in.ProductName) == "":
		return shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	case !in.Quantity.IsPositive():
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	case in.Kind != ItemKindDiscount && in.UnitPrice.IsNegative():
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	return nil
}

func (i *SalesOrderItem) set(in LineInput) error {
	if err := in.validate(); err != nil {
		return err
	}
	i.Kind = in.Kind
	i.ProductID = in.ProductID
	i.ProductName = in.ProductName
	i.ProductCode = in.ProductCode
	i.Quantity = in.Quantity
	i.UnitPrice = in.UnitPrice
	i.Amount = in.Quantity.Mul(in.UnitPrice).Round(2)
	i.TaxIDs = slices.Clone(in.TaxIDs)
	i.ExternalItemID = in.ExternalItemID
	i.OptionTitle = in.OptionTitle
	i.UpdatedAt = time.Now()
	return nil
}

// SalesOrder is the aggregate root. Orders imported from a storefront carry
// InstanceID and the external keys.
type SalesOrder struct {
	shared.Aggregate
	OrderNumber  string
	CustomerID   uuid.UUID
	CustomerName string
	Items        []SalesOrderItem
	// TotalAmount sums every line, tax excluded
	TotalAmount   decimal.Decimal
	Status        OrderStatus
	InvoiceStatus InvoiceStatus
	PaymentStatus PaymentStatus
	CurrencyCode  string
	WorkflowID    *uuid.UUID

	InstanceID        *uuid.UUID
	ExternalOrderID   string
	ExternalReference string

	Remark       string
	ConfirmedAt  *time.Time
	ShippedAt    *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string
	InvoicedAt   *time.Time
	PaidAt       *time.Time
}

func NewSalesOrder(orderNumber string, customerID uuid.UUID, customerName string) (*SalesOrder, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	switch {
	case orderNumber == "":
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	case len(orderNumber) > maxOrderNumberLen:
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER",
			fmt.Sprintf("Order number cannot exceed %d characters", maxOrderNumberLen))
	case customerID == uuid.Nil:
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	case strings.TrimSpace(customerName) == "":
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}

	return &SalesOrder{
		Aggregate:     shared.NewAggregate(),
		OrderNumber:   orderNumber,
		CustomerID:    customerID,
		CustomerName:  customerName,
		Items:         []SalesOrderItem{},
		TotalAmount:   decimal.Zero,
		Status:        OrderStatusDraft,
		InvoiceStatus: InvoiceStatusNo,
		PaymentStatus: PaymentStatusUnpaid,
	}, nil
}

// NewStorefrontSalesOrder opens a draft for a storefront order, numbered
// with the storefront increment id.
func NewStorefrontSalesOrder(key ExternalOrderKey, customerID uuid.UUID, customerName, currencyCode string) (*SalesOrder, error) {
	if key.InstanceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INSTANCE", "Storefront instance ID cannot be empty")
	}
	if strings.TrimSpace(key.ExternalOrderID) == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ORDER", "External order ID cannot be empty")
	}

	order, err := NewSalesOrder(key.ExternalReference, customerID, customerName)
	if err != nil {
		return nil, err
	}
	instanceID := key.InstanceID
	order.InstanceID = &instanceID
	order.ExternalOrderID = key.ExternalOrderID
	order.ExternalReference = order.OrderNumber
	order.CurrencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))
	return order, nil
}

func (o *SalesOrder) IsFromStorefront() bool {
	return o.InstanceID != nil && *o.InstanceID != uuid.Nil
}

func (o *SalesOrder) ExternalKey() (ExternalOrderKey, bool) {
	if !o.IsFromStorefront() {
		return ExternalOrderKey{}, false
	}
	return ExternalOrderKey{
		InstanceID:        *o.InstanceID,
		ExternalOrderID:   o.ExternalOrderID,
		ExternalReference: o.ExternalReference,
	}, true
}

// AttachWorkflow records the auto-workflow the order was created under; nil
// or uuid.Nil detaches it
func (o *SalesOrder) AttachWorkflow(workflowID *uuid.UUID) {
	o.WorkflowID = nil
	if workflowID != nil && *workflowID != uuid.Nil {
		id := *workflowID
		o.WorkflowID = &id
	}
	o.UpdatedAt = time.Now()
}

func (o *SalesOrder) requireDraft(action string) error {
	if o.Status != OrderStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot %s a %s order", action, o.Status))
	}
	return nil
}

// changed recomputes the total after a line mutation
func (o *SalesOrder) changed() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Amount)
	}
	o.TotalAmount = total
	o.UpdatedAt = time.Now()
}

// AddItem appends a line to a draft order
func (o *SalesOrder) AddItem(in LineInput) (*SalesOrderItem, error) {
	if err := o.requireDraft("add items to"); err != nil {
		return nil, err
	}
	now := time.Now()
	item := SalesOrderItem{ID: uuid.New(), OrderID: o.ID, CreatedAt: now}
	if err := item.set(in); err != nil {
		return nil, err
	}
	o.Items = append(o.Items, item)
	o.changed()
	return &o.Items[len(o.Items)-1], nil
}

// updateAt replaces line idx in place, keeping its identity
func (o *SalesOrder) updateAt(idx int, in LineInput) (*SalesOrderItem, error) {
	if err := o.Items[idx].set(in); err != nil {
		return nil, err
	}
	o.changed()
	return &o.Items[idx], nil
}

// UpsertItemByExternalID updates the line carrying the same external item id,
// or adds a new one. The boolean reports whether a line was created.
func (o *SalesOrder) UpsertItemByExternalID(in LineInput) (*SalesOrderItem, bool, error) {
	if err := o.requireDraft("update items of"); err != nil {
		return nil, false, err
	}
	if idx := o.indexOf(func(i SalesOrderItem) bool {
		return in.ExternalItemID != "" && i.ExternalItemID == in.ExternalItemID
	}); idx >= 0 {
		item, err := o.updateAt(idx, in)
		return item, false, err
	}
	item, err := o.AddItem(in)
	return item, err == nil, err
}

// SetShippingLine adds or replaces the single shipping line
func (o *SalesOrder) SetShippingLine(productID uuid.UUID, productCode, productName string, amount decimal.Decimal, taxIDs []uuid.UUID) (*SalesOrderItem, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Shipping amount must be positive")
	}
	return o.setSingleton(LineInput{
		Kind:        ItemKindShipping,
		ProductID:   productID,
		ProductName: productName,
		ProductCode: productCode,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   amount,
		TaxIDs:      taxIDs,
	})
}

// SetDiscountLine adds or replaces the single discount line. Its price is
// negative whatever the sign of amount.
func (o *SalesOrder) SetDiscountLine(productID uuid.UUID, productCode, productName string, amount decimal.Decimal, taxIDs []uuid.UUID) (*SalesOrderItem, error) {
	if amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount amount cannot be zero")
	}
	return o.setSingleton(LineInput{
		Kind:        ItemKindDiscount,
		ProductID:   productID,
		ProductName: productName,
		ProductCode: productCode,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   amount.Abs().Neg(),
		TaxIDs:      taxIDs,
	})
}

func (o *SalesOrder) setSingleton(in LineInput) (*SalesOrderItem, error) {
	if err := o.requireDraft("update items of"); err != nil {
		return nil, err
	}
	if idx := o.indexOf(func(i SalesOrderItem) bool { return i.Kind == in.Kind }); idx >= 0 {
		return o.updateAt(idx, in)
	}
	return o.AddItem(in)
}

func (o *SalesOrder) RemoveItem(itemID uuid.UUID) error {
	if err := o.requireDraft("remove items from"); err != nil {
		return err
	}
	idx := o.indexOf(func(i SalesOrderItem) bool { return i.ID == itemID })
	if idx < 0 {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Order item not found")
	}
	o.Items = slices.Delete(o.Items, idx, idx+1)
	o.changed()
	return nil
}

func (o *SalesOrder) indexOf(match func(SalesOrderItem) bool) int {
	return slices.IndexFunc(o.Items, match)
}

// moveTo applies a status transition and stamps *at with the time of it
func (o *SalesOrder) moveTo(target OrderStatus, verb string, at **time.Time) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot %s order in %s status", verb, o.Status))
	}
	now := time.Now()
	o.Status = target
	*at = &now
	o.UpdatedAt = now
	return nil
}

// Confirm moves a draft with at least one line and a non-negative total to
// CONFIRMED, making it invoiceable
func (o *SalesOrder) Confirm() error {
	if o.Status.CanTransitionTo(OrderStatusConfirmed) {
		if len(o.Items) == 0 {
			return shared.NewDomainError("NO_ITEMS", "Cannot confirm order without items")
		}
		if o.TotalAmount.IsNegative() {
			return shared.NewDomainError("INVALID_AMOUNT", "Order total cannot be negative")
		}
	}
	if err := o.moveTo(OrderStatusConfirmed, "confirm", &o.ConfirmedAt); err != nil {
		return err
	}
	o.InvoiceStatus = InvoiceStatusToInvoice
	return nil
}

func (o *SalesOrder) Ship() error {
	return o.moveTo(OrderStatusShipped, "ship", &o.ShippedAt)
}

func (o *SalesOrder) Complete() error {
	return o.moveTo(OrderStatusCompleted, "complete", &o.CompletedAt)
}

// Cancel needs a reason and is refused once the order is invoiced
func (o *SalesOrder) Cancel(reason string) error {
	if o.Status.CanTransitionTo(OrderStatusCancelled) {
		if reason == "" {
			return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
		}
		if o.InvoiceStatus == InvoiceStatusInvoiced {
			return shared.NewDomainError("INVALID_STATE", "Cannot cancel an invoiced order")
		}
	}
	if err := o.moveTo(OrderStatusCancelled, "cancel", &o.CancelledAt); err != nil {
		return err
	}
	o.InvoiceStatus = InvoiceStatusNo
	o.CancelReason = reason
	return nil
}

// MarkInvoiced keeps invoiceDate as InvoicedAt
func (o *SalesOrder) MarkInvoiced(invoiceDate time.Time) error {
	if o.InvoiceStatus != InvoiceStatusToInvoice {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot invoice order with invoice status %s", o.InvoiceStatus))
	}
	o.InvoiceStatus = InvoiceStatusInvoiced
	o.InvoicedAt = &invoiceDate
	o.UpdatedAt = time.Now()
	return nil
}

func (o *SalesOrder) MarkPaid() error {
	switch {
	case o.InvoiceStatus != InvoiceStatusInvoiced:
		return shared.NewDomainError("INVALID_STATE", "Cannot register payment before the order is invoiced")
	case o.PaymentStatus == PaymentStatusPaid:
		return shared.NewDomainError("INVALID_STATE", "Order is already paid")
	}
	now := time.Now()
	o.PaymentStatus = PaymentStatusPaid
	o.PaidAt = &now
	o.UpdatedAt = now
	return nil
}

func (o *SalesOrder) ItemCount() int { return len(o.Items) }

func (o *SalesOrder) ItemsOfKind(kind ItemKind) []SalesOrderItem {
	var out []SalesOrderItem
	for _, item := range o.Items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

func (o *SalesOrder) IsDraft() bool     { return o.Status == OrderStatusDraft }
func (o *SalesOrder) IsConfirmed() bool { return o.Status == OrderStatusConfirmed }

// IsTerminal is true for completed and cancelled orders
func (o *SalesOrder) IsTerminal() bool {
	return len(next[o.Status]) == 0
}

// PendingAutoWorkflow reports whether an auto-workflow run may still act on
// the order: not confirmed, completed or cancelled, and not yet invoiced.
func (o *SalesOrder) PendingAutoWorkflow() bool {
	switch o.Status {
	case OrderStatusConfirmed, OrderStatusCompleted, OrderStatusCancelled:
		return false
	}
	return o.InvoiceStatus != InvoiceStatusInvoiced
}
