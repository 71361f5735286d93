package trade

import (
	"time"

	"github.com/erp/connector/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Workflow DTOs ====================

// CreateWorkflowRequest represents a request to create an auto-workflow
type CreateWorkflowRequest struct {
	Name                   string `json:"name" binding:"required,min=1,max=128"`
	ValidateOrder          bool   `json:"validate_order"`
	CreateInvoice          bool   `json:"create_invoice"`
	RegisterPayment        bool   `json:"register_payment"`
	InvoiceDateIsOrderDate bool   `json:"invoice_date_is_order_date"`
	PaymentJournalCode     string `json:"payment_journal_code" binding:"max=32"`
	SalesJournalCode       string `json:"sales_journal_code" binding:"max=32"`
	PickingPolicy          string `json:"picking_policy" binding:"omitempty,oneof=direct one"`
}

// WorkflowResponse represents an auto-workflow in API responses
type WorkflowResponse struct {
	ID                     uuid.UUID `json:"id"`
	Name                   string    `json:"name"`
	ValidateOrder          bool      `json:"validate_order"`
	CreateInvoice          bool      `json:"create_invoice"`
	RegisterPayment        bool      `json:"register_payment"`
	InvoiceDateIsOrderDate bool      `json:"invoice_date_is_order_date"`
	PaymentJournalCode     string    `json:"payment_journal_code,omitempty"`
	SalesJournalCode       string    `json:"sales_journal_code,omitempty"`
	PickingPolicy          string    `json:"picking_policy"`
	IsActive               bool      `json:"is_active"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// ToWorkflowResponse converts a domain workflow to a response DTO
func ToWorkflowResponse(w *trade.WorkflowProcess) WorkflowResponse {
	return WorkflowResponse{
		ID:                     w.ID,
		Name:                   w.Name,
		ValidateOrder:          w.ValidateOrder,
		CreateInvoice:          w.CreateInvoice,
		RegisterPayment:        w.RegisterPayment,
		InvoiceDateIsOrderDate: w.InvoiceDateIsOrderDate,
		PaymentJournalCode:     w.PaymentJournalCode,
		SalesJournalCode:       w.SalesJournalCode,
		PickingPolicy:          string(w.PickingPolicy),
		IsActive:               w.IsActive,
		CreatedAt:              w.CreatedAt,
		UpdatedAt:              w.UpdatedAt,
	}
}

// AutoWorkflowRequest selects the workflow and orders of a run.
// Both fields are optional.
type AutoWorkflowRequest struct {
	WorkflowID *uuid.UUID  `json:"workflow_id"`
	OrderIDs   []uuid.UUID `json:"order_ids"`
}

// ShippedWorkflowRequest selects the orders shipped outside the ERP
type ShippedWorkflowRequest struct {
	WorkflowID uuid.UUID   `json:"workflow_id" binding:"required"`
	OrderIDs   []uuid.UUID `json:"order_ids" binding:"required,min=1"`
}

// OrderFailure is one order a workflow run could not advance
type OrderFailure struct {
	OrderID uuid.UUID `json:"order_id"`
	Error   string    `json:"error"`
}

// WorkflowRunResult reports the outcome of a workflow run
type WorkflowRunResult struct {
	Processed []trade.WorkflowResult `json:"processed"`
	// Skipped lists orders left untouched, storefront quotations included
	Skipped  []uuid.UUID    `json:"skipped"`
	Failures []OrderFailure `json:"failures"`
}

func newWorkflowRunResult() *WorkflowRunResult {
	return &WorkflowRunResult{
		Processed: []trade.WorkflowResult{},
		Skipped:   []uuid.UUID{},
		Failures:  []OrderFailure{},
	}
}

// ==================== Sales Order DTOs ====================

// SalesOrderResponse represents a sales order in API responses
type SalesOrderResponse struct {
	ID                uuid.UUID                `json:"id"`
	OrderNumber       string                   `json:"order_number"`
	CustomerID        uuid.UUID                `json:"customer_id"`
	CustomerName      string                   `json:"customer_name"`
	Items             []SalesOrderItemResponse `json:"items"`
	ItemCount         int                      `json:"item_count"`
	TotalAmount       decimal.Decimal          `json:"total_amount"`
	CurrencyCode      string                   `json:"currency_code,omitempty"`
	Status            string                   `json:"status"`
	InvoiceStatus     string                   `json:"invoice_status"`
	PaymentStatus     string                   `json:"payment_status"`
	WorkflowID        *uuid.UUID               `json:"workflow_id,omitempty"`
	InstanceID        *uuid.UUID               `json:"instance_id,omitempty"`
	ExternalOrderID   string                   `json:"external_order_id,omitempty"`
	ExternalReference string                   `json:"external_reference,omitempty"`
	Remark            string                   `json:"remark"`
	ConfirmedAt       *time.Time               `json:"confirmed_at,omitempty"`
	ShippedAt         *time.Time               `json:"shipped_at,omitempty"`
	InvoicedAt        *time.Time               `json:"invoiced_at,omitempty"`
	PaidAt            *time.Time               `json:"paid_at,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
	Version           int                      `json:"version"`
}

// SalesOrderItemResponse represents an order item in API responses
type SalesOrderItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	Kind           string          `json:"kind"`
	ProductID      uuid.UUID       `json:"product_id"`
	ProductName    string          `json:"product_name"`
	ProductCode    string          `json:"product_code"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Amount         decimal.Decimal `json:"amount"`
	TaxIDs         []uuid.UUID     `json:"tax_ids"`
	ExternalItemID string          `json:"external_item_id,omitempty"`
	OptionTitle    string          `json:"option_title,omitempty"`
}

// ToSalesOrderResponse converts domain SalesOrder to response DTO
func ToSalesOrderResponse(order *trade.SalesOrder) SalesOrderResponse {
	items := make([]SalesOrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		taxIDs := item.TaxIDs
		if taxIDs == nil {
			taxIDs = []uuid.UUID{}
		}
		items[i] = SalesOrderItemResponse{
			ID:             item.ID,
			Kind:           string(item.Kind),
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			ProductCode:    item.ProductCode,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			Amount:         item.Amount,
			TaxIDs:         taxIDs,
			ExternalItemID: item.ExternalItemID,
			OptionTitle:    item.OptionTitle,
		}
	}

	return SalesOrderResponse{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		CustomerID:        order.CustomerID,
		CustomerName:      order.CustomerName,
		Items:             items,
		ItemCount:         order.ItemCount(),
		TotalAmount:       order.TotalAmount,
		CurrencyCode:      order.CurrencyCode,
		Status:            string(order.Status),
		InvoiceStatus:     string(order.InvoiceStatus),
		PaymentStatus:     string(order.PaymentStatus),
		WorkflowID:        order.WorkflowID,
		InstanceID:        order.InstanceID,
		ExternalOrderID:   order.ExternalOrderID,
		ExternalReference: order.ExternalReference,
		Remark:            order.Remark,
		ConfirmedAt:       order.ConfirmedAt,
		ShippedAt:         order.ShippedAt,
		InvoicedAt:        order.InvoicedAt,
		PaidAt:            order.PaidAt,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
		Version:           order.Version,
	}
}
