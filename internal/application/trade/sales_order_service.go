package trade

import (
	"context"

	"github.com/google/uuid"

	"github.com/erp/connector/internal/domain/trade"
)

// SalesOrderService is the read side of sales orders. Orders are written by
// the import and workflow services only.
type SalesOrderService struct {
	orders trade.SalesOrderRepository
}

func NewSalesOrderService(orders trade.SalesOrderRepository) *SalesOrderService {
	return &SalesOrderService{orders: orders}
}

// GetByID returns the order with its lines, or shared.ErrNotFound
func (s *SalesOrderService) GetByID(ctx context.Context, id uuid.UUID) (*SalesOrderResponse, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToSalesOrderResponse(order)
	return &resp, nil
}
