package persistence

import (
	"context"
	"errors"

	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/domain/trade"
	"github.com/erp/connector/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSalesOrderRepository implements SalesOrderRepository using GORM
type GormSalesOrderRepository struct {
	db *gorm.DB
}

// NewGormSalesOrderRepository creates a new GormSalesOrderRepository
func NewGormSalesOrderRepository(db *gorm.DB) *GormSalesOrderRepository {
	return &GormSalesOrderRepository{db: db}
}

func (r *GormSalesOrderRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
}

// FindByID finds a sales order by ID with its items
func (r *GormSalesOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.SalesOrder, error) {
	return firstAs(r.withItems(ctx).Where("id = ?", id), (*models.SalesOrderModel).ToDomain)
}

// FindByIDs finds sales orders by IDs
func (r *GormSalesOrderRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]trade.SalesOrder, error) {
	if len(ids) == 0 {
		return []trade.SalesOrder{}, nil
	}
	var orderModels []models.SalesOrderModel
	if err := r.withItems(ctx).Where("id IN ?", ids).Order("created_at ASC").Find(&orderModels).Error; err != nil {
		return nil, err
	}
	return toSalesOrders(orderModels), nil
}

// FindByExternalKey finds the order imported for a storefront order
func (r *GormSalesOrderRepository) FindByExternalKey(ctx context.Context, key trade.ExternalOrderKey) (*trade.SalesOrder, error) {
	return firstAs(r.withItems(ctx).
		Where("instance_id = ? AND external_order_id = ? AND external_reference = ?",
			key.InstanceID, key.ExternalOrderID, key.ExternalReference), (*models.SalesOrderModel).ToDomain)
}

// FindPendingByWorkflows finds orders attached to a workflow that are still
// open and not yet invoiced.
func (r *GormSalesOrderRepository) FindPendingByWorkflows(ctx context.Context, workflowIDs []uuid.UUID) ([]trade.SalesOrder, error) {
	query := r.withItems(ctx).
		Where("workflow_id IS NOT NULL").
		Where("status NOT IN ?", []trade.OrderStatus{
			trade.OrderStatusConfirmed,
			trade.OrderStatusCompleted,
			trade.OrderStatusCancelled,
		}).
		Where("invoice_status <> ?", trade.InvoiceStatusInvoiced)
	if len(workflowIDs) > 0 {
		query = query.Where("workflow_id IN ?", workflowIDs)
	}

	var orderModels []models.SalesOrderModel
	if err := query.Order("created_at ASC").Find(&orderModels).Error; err != nil {
		return nil, err
	}
	return toSalesOrders(orderModels), nil
}

// Save creates or updates a sales order and syncs its items
func (r *GormSalesOrderRepository) Save(ctx context.Context, order *trade.SalesOrder) error {
	model := models.SalesOrderModelFromDomain(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}

		// Delete items not in the current list
		currentItemIDs := make([]uuid.UUID, len(model.Items))
		for i, item := range model.Items {
			currentItemIDs[i] = item.ID
		}
		removed := tx.Where("order_id = ?", order.ID)
		if len(currentItemIDs) > 0 {
			removed = removed.Where("id NOT IN ?", currentItemIDs)
		}
		if err := removed.Delete(&models.SalesOrderItemModel{}).Error; err != nil {
			return err
		}

		for i := range model.Items {
			model.Items[i].OrderID = order.ID
			if err := tx.Save(&model.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

func toSalesOrders(orderModels []models.SalesOrderModel) []trade.SalesOrder {
	orders := make([]trade.SalesOrder, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders
}

var _ trade.SalesOrderRepository = (*GormSalesOrderRepository)(nil)
