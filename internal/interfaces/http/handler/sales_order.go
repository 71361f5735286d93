package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	tradeapp "github.com/erp/connector/internal/application/trade"
)

type SalesOrderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*tradeapp.SalesOrderResponse, error)
}

// SalesOrderHandler exposes imported sales orders read-only
type SalesOrderHandler struct {
	BaseHandler
	orders SalesOrderReader
}

func NewSalesOrderHandler(orders SalesOrderReader) *SalesOrderHandler {
	return &SalesOrderHandler{orders: orders}
}

// GetByID godoc
// @ID           getSalesOrder
// @Summary      Get a sales order with its lines
// @Tags         sales-orders
// @Produce      json
// @Param        id path string true "Sales order ID" format(uuid)
// @Success      200 {object} dto.Response{data=tradeapp.SalesOrderResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /sales-orders/{id} [get]
func (h *SalesOrderHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id", "order")
	if !ok {
		return
	}
	order, err := h.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}
