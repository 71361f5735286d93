package handler

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appintegration "github.com/erp/connector/internal/application/integration"
)

// InstanceService is the storefront instance use case surface used by InstanceHandler
type InstanceService interface {
	Create(ctx context.Context, req appintegration.CreateInstanceRequest) (*appintegration.InstanceResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*appintegration.InstanceResponse, error)
	List(ctx context.Context, activeOnly bool) ([]appintegration.InstanceResponse, error)
}

// InstanceHandler handles storefront instances and the queues fed from them
type InstanceHandler struct {
	BaseHandler
	instances InstanceService
	orders    appintegration.OrderQueueService
	customers appintegration.CustomerQueueService
}

// NewInstanceHandler creates a new InstanceHandler
func NewInstanceHandler(
	instances InstanceService,
	orders appintegration.OrderQueueService,
	customers appintegration.CustomerQueueService,
) *InstanceHandler {
	return &InstanceHandler{
		instances: instances,
		orders:    orders,
		customers: customers,
	}
}

// ListInstancesQuery filters the instance list
type ListInstancesQuery struct {
	ActiveOnly bool `form:"active_only"`
}

// Create godoc
// @ID           createInstance
// @Summary      Register a storefront instance
// @Tags         instances
// @Accept       json
// @Produce      json
// @Param        request body appintegration.CreateInstanceRequest true "Instance"
// @Success      201 {object} dto.Response{data=appintegration.InstanceResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /instances [post]
func (h *InstanceHandler) Create(c *gin.Context) {
	var req appintegration.CreateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	instance, err := h.instances.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, instance)
}

// GetByID godoc
// @ID           getInstance
// @Summary      Get a storefront instance
// @Tags         instances
// @Produce      json
// @Param        id path string true "Instance ID" format(uuid)
// @Success      200 {object} dto.Response{data=appintegration.InstanceResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /instances/{id} [get]
func (h *InstanceHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id", "instance")
	if !ok {
		return
	}

	instance, err := h.instances.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, instance)
}

// List godoc
// @ID           listInstances
// @Summary      List storefront instances
// @Tags         instances
// @Produce      json
// @Param        active_only query bool false "Only active instances"
// @Success      200 {object} dto.Response{data=[]appintegration.InstanceResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /instances [get]
func (h *InstanceHandler) List(c *gin.Context) {
	var query ListInstancesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	instances, err := h.instances.List(c.Request.Context(), query.ActiveOnly)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, instances)
}

// EnqueueOrders godoc
// @ID           enqueueOrders
// @Summary      Queue storefront orders
// @Description  Split raw orders into queues of at most the batch size, skipping orders already queued
// @Tags         instances
// @Accept       json
// @Produce      json
// @Param        id path string true "Instance ID" format(uuid)
// @Param        request body []object true "Raw storefront orders"
// @Success      202 {object} dto.Response{data=appintegration.EnqueueResult}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /instances/{id}/order-queues [post]
func (h *InstanceHandler) EnqueueOrders(c *gin.Context) {
	id, ok := h.parseID(c, "id", "instance")
	if !ok {
		return
	}
	raw, ok := h.bindRawArray(c)
	if !ok {
		return
	}

	result, err := h.orders.EnqueueOrders(c.Request.Context(), id, raw)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, result)
}

// PullOrders godoc
// @ID           pullOrders
// @Summary      Pull new orders from the storefront
// @Tags         instances
// @Produce      json
// @Param        id path string true "Instance ID" format(uuid)
// @Success      202 {object} dto.Response{data=appintegration.EnqueueResult}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /instances/{id}/order-queues/pull [post]
func (h *InstanceHandler) PullOrders(c *gin.Context) {
	id, ok := h.parseID(c, "id", "instance")
	if !ok {
		return
	}

	result, err := h.orders.PullOrders(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, result)
}

// EnqueueCustomers godoc
// @ID           enqueueCustomers
// @Summary      Queue storefront customers
// @Tags         instances
// @Accept       json
// @Produce      json
// @Param        id path string true "Instance ID" format(uuid)
// @Param        request body []object true "Raw storefront customers"
// @Success      202 {object} dto.Response{data=appintegration.EnqueueResult}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /instances/{id}/customer-queues [post]
func (h *InstanceHandler) EnqueueCustomers(c *gin.Context) {
	id, ok := h.parseID(c, "id", "instance")
	if !ok {
		return
	}
	raw, ok := h.bindRawArray(c)
	if !ok {
		return
	}

	result, err := h.customers.EnqueueCustomers(c.Request.Context(), id, raw)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, result)
}

func (h *InstanceHandler) bindRawArray(c *gin.Context) ([]json.RawMessage, bool) {
	var raw []json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		h.BindError(c, err)
		return nil, false
	}
	if len(raw) == 0 {
		h.BadRequest(c, "Request body must be a non-empty JSON array")
		return nil, false
	}
	return raw, true
}
