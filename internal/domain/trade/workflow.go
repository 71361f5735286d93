package trade

import (
	"strings"
	"time"

	"github.com/erp/connector/internal/domain/shared"
	"github.com/google/uuid"
)

// PickingPolicy controls how deliveries are created for confirmed orders
type PickingPolicy string

const (
	// PickingPolicyDirect delivers each product as soon as it is available
	PickingPolicyDirect PickingPolicy = "direct"
	// PickingPolicyOne delivers all products at once
	PickingPolicyOne PickingPolicy = "one"
)

// IsValid checks if the policy is a valid PickingPolicy
func (p PickingPolicy) IsValid() bool {
	return p == PickingPolicyDirect || p == PickingPolicyOne
}

// ---------------------------------------------------------------------------
// WorkflowProcess
// ---------------------------------------------------------------------------

// WorkflowProcess is an auto-workflow: the steps run automatically on
// orders created under it. The flags form a chain, so each step implies
// the previous one.
type WorkflowProcess struct {
	ID                     uuid.UUID
	Name                   string
	ValidateOrder          bool
	CreateInvoice          bool
	RegisterPayment        bool
	InvoiceDateIsOrderDate bool
	PaymentJournalCode     string
	SalesJournalCode       string
	PickingPolicy          PickingPolicy
	IsActive               bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// WorkflowFlags are the step flags of a workflow
type WorkflowFlags struct {
	ValidateOrder          bool
	CreateInvoice          bool
	RegisterPayment        bool
	InvoiceDateIsOrderDate bool
}

// NewWorkflowProcess creates an active workflow with the one-delivery policy
func NewWorkflowProcess(name string, flags WorkflowFlags) (*WorkflowProcess, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Workflow name cannot be empty")
	}
	if len(name) > 128 {
		return nil, shared.NewDomainError("INVALID_NAME", "Workflow name cannot exceed 128 characters")
	}

	now := time.Now()
	w := &WorkflowProcess{
		ID:            uuid.New(),
		Name:          name,
		PickingPolicy: PickingPolicyOne,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// Set from the bottom of the chain up so the cascade keeps flags consistent
	w.RegisterPayment = flags.RegisterPayment
	w.SetCreateInvoice(flags.CreateInvoice)
	w.SetValidateOrder(flags.ValidateOrder)
	w.InvoiceDateIsOrderDate = flags.InvoiceDateIsOrderDate
	return w, nil
}

// SetValidateOrder sets the validate flag. Clearing it clears invoicing.
func (w *WorkflowProcess) SetValidateOrder(v bool) {
	w.ValidateOrder = v
	if !v {
		w.SetCreateInvoice(false)
	}
	w.UpdatedAt = time.Now()
}

// SetCreateInvoice sets the invoice flag. Clearing it clears payment.
func (w *WorkflowProcess) SetCreateInvoice(v bool) {
	w.CreateInvoice = v
	if !v {
		w.RegisterPayment = false
	}
	w.UpdatedAt = time.Now()
}

// SetRegisterPayment sets the payment flag
func (w *WorkflowProcess) SetRegisterPayment(v bool) {
	w.RegisterPayment = v
	w.UpdatedAt = time.Now()
}

// SetJournals sets the sales and payment journal codes
func (w *WorkflowProcess) SetJournals(salesJournal, paymentJournal string) {
	w.SalesJournalCode = strings.TrimSpace(salesJournal)
	w.PaymentJournalCode = strings.TrimSpace(paymentJournal)
	w.UpdatedAt = time.Now()
}

// SetPickingPolicy sets the picking policy
func (w *WorkflowProcess) SetPickingPolicy(p PickingPolicy) error {
	if !p.IsValid() {
		return shared.NewDomainError("INVALID_PICKING_POLICY", "Picking policy must be direct or one")
	}
	w.PickingPolicy = p
	w.UpdatedAt = time.Now()
	return nil
}

// Flags returns the step flags of the workflow
func (w *WorkflowProcess) Flags() WorkflowFlags {
	return WorkflowFlags{
		ValidateOrder:          w.ValidateOrder,
		CreateInvoice:          w.CreateInvoice,
		RegisterPayment:        w.RegisterPayment,
		InvoiceDateIsOrderDate: w.InvoiceDateIsOrderDate,
	}
}

// WorkflowResult reports what a workflow run did to one order
type WorkflowResult struct {
	OrderID   uuid.UUID `json:"order_id"`
	Skipped   bool      `json:"skipped"`
	Confirmed bool      `json:"confirmed"`
	Shipped   bool      `json:"shipped"`
	Invoiced  bool      `json:"invoiced"`
	Paid      bool      `json:"paid"`
}

// Apply runs the workflow steps on an order. Storefront orders are never
// touched: they stay draft quotations whatever the flags say.
func (w *WorkflowProcess) Apply(order *SalesOrder) (WorkflowResult, error) {
	result := WorkflowResult{OrderID: order.ID}
	if order.IsFromStorefront() {
		result.Skipped = true
		return result, nil
	}

	if w.ValidateOrder && order.IsDraft() {
		if err := order.Confirm(); err != nil {
			return result, err
		}
		result.Confirmed = true
	}
	if err := w.invoiceAndPay(order, &result); err != nil {
		return result, err
	}
	return result, nil
}

// ApplyShipped runs the workflow on an order shipped outside the ERP:
// confirm if needed, mark shipped, then invoice and pay per the flags.
// Storefront orders and orders without lines are skipped.
func (w *WorkflowProcess) ApplyShipped(order *SalesOrder) (WorkflowResult, error) {
	result := WorkflowResult{OrderID: order.ID}
	if order.IsFromStorefront() || order.ItemCount() == 0 {
		result.Skipped = true
		return result, nil
	}

	if order.IsDraft() {
		if err := order.Confirm(); err != nil {
			return result, err
		}
		result.Confirmed = true
	}
	if order.IsConfirmed() {
		if err := order.Ship(); err != nil {
			return result, err
		}
		result.Shipped = true
	}
	if err := w.invoiceAndPay(order, &result); err != nil {
		return result, err
	}
	return result, nil
}

func (w *WorkflowProcess) invoiceAndPay(order *SalesOrder, result *WorkflowResult) error {
	if w.CreateInvoice && order.InvoiceStatus == InvoiceStatusToInvoice {
		invoiceDate := time.Now()
		if w.InvoiceDateIsOrderDate {
			invoiceDate = order.CreatedAt
		}
		if err := order.MarkInvoiced(invoiceDate); err != nil {
			return err
		}
		result.Invoiced = true
	}
	if w.RegisterPayment && order.InvoiceStatus == InvoiceStatusInvoiced && order.PaymentStatus == PaymentStatusUnpaid {
		if err := order.MarkPaid(); err != nil {
			return err
		}
		result.Paid = true
	}
	return nil
}
