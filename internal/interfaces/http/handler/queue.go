package handler

import (
	"github.com/gin-gonic/gin"

	appintegration "github.com/erp/connector/internal/application/integration"
	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/interfaces/http/dto"
)

// QueueHandler handles queue runs and individual queue lines
type QueueHandler struct {
	BaseHandler
	orders    appintegration.OrderQueueService
	customers appintegration.CustomerQueueService
}

// NewQueueHandler creates a new QueueHandler
func NewQueueHandler(orders appintegration.OrderQueueService, customers appintegration.CustomerQueueService) *QueueHandler {
	return &QueueHandler{
		orders:    orders,
		customers: customers,
	}
}

// AutoProcessResponse summarizes an auto-process run over both queue kinds
type AutoProcessResponse struct {
	Orders    []appintegration.QueueRunResult `json:"orders"`
	Customers []appintegration.QueueRunResult `json:"customers"`
}

// ProcessOrderQueue godoc
// @ID           processOrderQueue
// @Summary      Process the draft lines of an order queue
// @Tags         queues
// @Produce      json
// @Param        id path string true "Queue ID" format(uuid)
// @Success      200 {object} dto.Response{data=appintegration.QueueRunResult}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /order-queues/{id}/process [post]
func (h *QueueHandler) ProcessOrderQueue(c *gin.Context) {
	id, ok := h.parseID(c, "id", "queue")
	if !ok {
		return
	}

	result, err := h.orders.ProcessQueue(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ProcessCustomerQueue godoc
// @ID           processCustomerQueue
// @Summary      Process the draft lines of a customer queue
// @Tags         queues
// @Produce      json
// @Param        id path string true "Queue ID" format(uuid)
// @Success      200 {object} dto.Response{data=appintegration.QueueRunResult}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /customer-queues/{id}/process [post]
func (h *QueueHandler) ProcessCustomerQueue(c *gin.Context) {
	id, ok := h.parseID(c, "id", "queue")
	if !ok {
		return
	}

	result, err := h.customers.ProcessQueue(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// AutoProcess godoc
// @ID           autoProcessQueues
// @Summary      Process every queue holding draft lines
// @Description  Customer queues run first. Queues flagged action required are skipped
// @Tags         queues
// @Produce      json
// @Success      200 {object} dto.Response{data=AutoProcessResponse}
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /queues/auto-process [post]
func (h *QueueHandler) AutoProcess(c *gin.Context) {
	ctx := c.Request.Context()

	orders, err := h.orders.AutoProcessQueues(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	customers, err := h.customers.AutoProcessQueues(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, AutoProcessResponse{Orders: orders, Customers: customers})
}

// GetLine godoc
// @ID           getQueueLine
// @Summary      Get a queue line
// @Tags         queues
// @Produce      json
// @Param        id path string true "Queue line ID" format(uuid)
// @Success      200 {object} dto.Response{data=appintegration.QueueLineResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /queue-lines/{id} [get]
func (h *QueueHandler) GetLine(c *gin.Context) {
	id, ok := h.parseID(c, "id", "queue line")
	if !ok {
		return
	}

	line, err := h.orders.GetQueueLine(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, line)
}

// ProcessLine godoc
// @ID           processQueueLine
// @Summary      Process one queue line
// @Description  Runs a draft or failed line, then recomputes the action-required flag of its queue
// @Tags         queues
// @Produce      json
// @Param        id path string true "Queue line ID" format(uuid)
// @Success      200 {object} dto.Response{data=appintegration.LineResult}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      423 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /queue-lines/{id}/process [post]
func (h *QueueHandler) ProcessLine(c *gin.Context) {
	id, ok := h.parseID(c, "id", "queue line")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	line, err := h.orders.GetQueueLine(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var result *appintegration.LineResult
	switch line.Kind {
	case integration.QueueKindOrder:
		result, err = h.orders.ReprocessQueueLine(ctx, id)
	case integration.QueueKindCustomer:
		result, err = h.customers.ReprocessQueueLine(ctx, id)
	default:
		h.ErrorWithCode(c, dto.ErrCodeInvalidState, "Queue line has an unknown kind: "+string(line.Kind))
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// CancelLine godoc
// @ID           cancelQueueLine
// @Summary      Cancel a queue line
// @Tags         queues
// @Produce      json
// @Param        id path string true "Queue line ID" format(uuid)
// @Success      200 {object} dto.Response{data=appintegration.QueueLineResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /queue-lines/{id}/cancel [post]
func (h *QueueHandler) CancelLine(c *gin.Context) {
	id, ok := h.parseID(c, "id", "queue line")
	if !ok {
		return
	}

	line, err := h.orders.CancelQueueLine(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, line)
}

// ListLineLogs godoc
// @ID           listQueueLineLogs
// @Summary      List the log lines of a queue line
// @Tags         queues
// @Produce      json
// @Param        id path string true "Queue line ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]appintegration.LogLineResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /queue-lines/{id}/logs [get]
func (h *QueueHandler) ListLineLogs(c *gin.Context) {
	id, ok := h.parseID(c, "id", "queue line")
	if !ok {
		return
	}

	logs, err := h.orders.ListLogLines(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, logs)
}
