package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	tradeapp "github.com/erp/connector/internal/application/trade"
)

// WorkflowService is the auto-workflow use case surface used by WorkflowHandler
type WorkflowService interface {
	Create(ctx context.Context, req tradeapp.CreateWorkflowRequest) (*tradeapp.WorkflowResponse, error)
	AutoWorkflowProcess(ctx context.Context, workflowID *uuid.UUID, orderIDs []uuid.UUID) (*tradeapp.WorkflowRunResult, error)
	ShippedOrderWorkflow(ctx context.Context, workflowID uuid.UUID, orderIDs []uuid.UUID) (*tradeapp.WorkflowRunResult, error)
}

// WorkflowHandler handles auto-workflow configuration and runs
type WorkflowHandler struct {
	BaseHandler
	workflows WorkflowService
}

// NewWorkflowHandler creates a new WorkflowHandler
func NewWorkflowHandler(workflows WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows}
}

// Create godoc
// @ID           createWorkflow
// @Summary      Create an auto workflow
// @Tags         workflows
// @Accept       json
// @Produce      json
// @Param        request body tradeapp.CreateWorkflowRequest true "Workflow"
// @Success      201 {object} dto.Response{data=tradeapp.WorkflowResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /workflows [post]
func (h *WorkflowHandler) Create(c *gin.Context) {
	var req tradeapp.CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	workflow, err := h.workflows.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, workflow)
}

// AutoProcess godoc
// @ID           autoProcessWorkflows
// @Summary      Run auto workflows over orders
// @Tags         workflows
// @Accept       json
// @Produce      json
// @Param        request body tradeapp.AutoWorkflowRequest false "Workflow and orders; empty runs every active workflow"
// @Success      200 {object} dto.Response{data=tradeapp.WorkflowRunResult}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /workflows/auto-process [post]
func (h *WorkflowHandler) AutoProcess(c *gin.Context) {
	var req tradeapp.AutoWorkflowRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	result, err := h.workflows.AutoWorkflowProcess(c.Request.Context(), req.WorkflowID, req.OrderIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Shipped godoc
// @ID           shippedOrderWorkflow
// @Summary      Confirm, ship and invoice orders shipped elsewhere
// @Tags         workflows
// @Accept       json
// @Produce      json
// @Param        request body tradeapp.ShippedWorkflowRequest true "Workflow and orders"
// @Success      200 {object} dto.Response{data=tradeapp.WorkflowRunResult}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /workflows/shipped [post]
func (h *WorkflowHandler) Shipped(c *gin.Context) {
	var req tradeapp.ShippedWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.workflows.ShippedOrderWorkflow(c.Request.Context(), req.WorkflowID, req.OrderIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
