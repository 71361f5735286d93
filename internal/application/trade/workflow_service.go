package trade

import (
	"context"

	"github.com/erp/connector/internal/domain/trade"
	"github.com/erp/connector/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkflowService runs auto-workflows over sales orders
type WorkflowService struct {
	workflows trade.WorkflowRepository
	orders    trade.SalesOrderRepository
	logger    *zap.Logger
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(workflows trade.WorkflowRepository, orders trade.SalesOrderRepository, logger *zap.Logger) *WorkflowService {
	return &WorkflowService{
		workflows: workflows,
		orders:    orders,
		logger:    logger,
	}
}

// Create creates an auto-workflow
func (s *WorkflowService) Create(ctx context.Context, req CreateWorkflowRequest) (*WorkflowResponse, error) {
	workflow, err := trade.NewWorkflowProcess(req.Name, trade.WorkflowFlags{
		ValidateOrder:          req.ValidateOrder,
		CreateInvoice:          req.CreateInvoice,
		RegisterPayment:        req.RegisterPayment,
		InvoiceDateIsOrderDate: req.InvoiceDateIsOrderDate,
	})
	if err != nil {
		return nil, err
	}
	workflow.SetJournals(req.SalesJournalCode, req.PaymentJournalCode)
	if req.PickingPolicy != "" {
		if err := workflow.SetPickingPolicy(trade.PickingPolicy(req.PickingPolicy)); err != nil {
			return nil, err
		}
	}

	if err := s.workflows.Save(ctx, workflow); err != nil {
		return nil, err
	}
	resp := ToWorkflowResponse(workflow)
	return &resp, nil
}

// AutoWorkflowProcess runs workflows over orders.
//
// With no workflow id every active workflow applies. With no order ids the
// orders of those workflows still pending a run are selected. Explicit orders
// attached to a workflow outside the selection are skipped. Storefront orders
// are always left as draft quotations.
func (s *WorkflowService) AutoWorkflowProcess(ctx context.Context, workflowID *uuid.UUID, orderIDs []uuid.UUID) (*WorkflowRunResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "workflow", "auto_process")
	defer span.End()

	workflows, err := s.selectWorkflows(ctx, workflowID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	byID := make(map[uuid.UUID]*trade.WorkflowProcess, len(workflows))
	ids := make([]uuid.UUID, 0, len(workflows))
	for i := range workflows {
		byID[workflows[i].ID] = &workflows[i]
		ids = append(ids, workflows[i].ID)
	}

	var orders []trade.SalesOrder
	if len(orderIDs) == 0 {
		if len(ids) == 0 {
			return newWorkflowRunResult(), nil
		}
		orders, err = s.orders.FindPendingByWorkflows(ctx, ids)
	} else {
		orders, err = s.orders.FindByIDs(ctx, orderIDs)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := newWorkflowRunResult()
	var storefrontRefs []string
	for i := range orders {
		order := &orders[i]
		workflow := s.workflowFor(order, byID)
		if workflow == nil || !order.PendingAutoWorkflow() {
			result.Skipped = append(result.Skipped, order.ID)
			continue
		}

		res, err := workflow.Apply(order)
		if err != nil {
			result.Failures = append(result.Failures, OrderFailure{OrderID: order.ID, Error: err.Error()})
			continue
		}
		if res.Skipped {
			storefrontRefs = append(storefrontRefs, order.OrderNumber)
			result.Skipped = append(result.Skipped, order.ID)
			continue
		}
		if err := s.orders.Save(ctx, order); err != nil {
			result.Failures = append(result.Failures, OrderFailure{OrderID: order.ID, Error: err.Error()})
			continue
		}
		result.Processed = append(result.Processed, res)
	}

	if len(storefrontRefs) > 0 {
		s.logger.Info("storefront orders kept as quotations",
			zap.Strings("order_numbers", storefrontRefs),
		)
	}
	telemetry.SetAttributes(span,
		"processed", len(result.Processed),
		"skipped", len(result.Skipped),
		"failed", len(result.Failures),
	)
	return result, nil
}

// ShippedOrderWorkflow runs a workflow over orders shipped outside the ERP:
// each is confirmed, marked shipped, then invoiced and paid per the flags.
// Storefront orders are skipped with a warning listing them.
func (s *WorkflowService) ShippedOrderWorkflow(ctx context.Context, workflowID uuid.UUID, orderIDs []uuid.UUID) (*WorkflowRunResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "workflow", "shipped",
		telemetry.WithAttribute(telemetry.SpanAttrWorkflowID, workflowID.String()),
	)
	defer span.End()

	workflow, err := s.workflows.FindByID(ctx, workflowID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	orders, err := s.orders.FindByIDs(ctx, orderIDs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := newWorkflowRunResult()
	var storefrontRefs []string
	for i := range orders {
		order := &orders[i]
		if order.IsFromStorefront() {
			storefrontRefs = append(storefrontRefs, order.OrderNumber)
			result.Skipped = append(result.Skipped, order.ID)
			continue
		}

		res, err := workflow.ApplyShipped(order)
		if err != nil {
			result.Failures = append(result.Failures, OrderFailure{OrderID: order.ID, Error: err.Error()})
			continue
		}
		if res.Skipped {
			result.Skipped = append(result.Skipped, order.ID)
			continue
		}
		if err := s.orders.Save(ctx, order); err != nil {
			result.Failures = append(result.Failures, OrderFailure{OrderID: order.ID, Error: err.Error()})
			continue
		}
		result.Processed = append(result.Processed, res)
	}

	if len(storefrontRefs) > 0 {
		s.logger.Warn("storefront orders cannot be processed by the shipped workflow",
			zap.String("workflow", workflow.Name),
			zap.Strings("order_numbers", storefrontRefs),
		)
	}
	return result, nil
}

func (s *WorkflowService) selectWorkflows(ctx context.Context, workflowID *uuid.UUID) ([]trade.WorkflowProcess, error) {
	if workflowID == nil {
		return s.workflows.FindAll(ctx, true)
	}
	workflow, err := s.workflows.FindByID(ctx, *workflowID)
	if err != nil {
		return nil, err
	}
	return []trade.WorkflowProcess{*workflow}, nil
}

// workflowFor returns the workflow the order was created under when it is one
// of the selected workflows, else nil.
func (s *WorkflowService) workflowFor(order *trade.SalesOrder, byID map[uuid.UUID]*trade.WorkflowProcess) *trade.WorkflowProcess {
	if order.WorkflowID == nil {
		return nil
	}
	return byID[*order.WorkflowID]
}
