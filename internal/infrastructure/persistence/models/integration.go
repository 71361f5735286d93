package models

import (
	"time"

	"github.com/erp/connector/internal/domain/integration"
	"github.com/google/uuid"
)

type StorefrontInstanceModel struct {
	BaseModel
	Name               string                `gorm:"type:varchar(100);not null;uniqueIndex:idx_storefront_instance_name"`
	BaseURL            string                `gorm:"type:varchar(255);not null"`
	AccessToken        string                `gorm:"type:varchar(255);not null"`
	StoreCode          string                `gorm:"type:varchar(64);not null"`
	PriceMode          integration.PriceMode `gorm:"type:varchar(20);not null;default:'FIXED'"`
	UseBaseCurrency    bool                  `gorm:"not null;default:false"`
	WorkflowID         *uuid.UUID            `gorm:"type:uuid"`
	ShippingProductSKU string                `gorm:"type:varchar(64)"`
	DiscountProductSKU string                `gorm:"type:varchar(64)"`
	IsActive           bool                  `gorm:"not null;index"`
	LastOrderImportAt  *time.Time
}

func (StorefrontInstanceModel) TableName() string { return "storefront_instances" }

func (m *StorefrontInstanceModel) ToDomain() *integration.StorefrontInstance {
	return &integration.StorefrontInstance{
		ID:                 m.ID,
		Name:               m.Name,
		BaseURL:            m.BaseURL,
		AccessToken:        m.AccessToken,
		StoreCode:          m.StoreCode,
		PriceMode:          m.PriceMode,
		UseBaseCurrency:    m.UseBaseCurrency,
		WorkflowID:         m.WorkflowID,
		ShippingProductSKU: m.ShippingProductSKU,
		DiscountProductSKU: m.DiscountProductSKU,
		IsActive:           m.IsActive,
		LastOrderImportAt:  m.LastOrderImportAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func StorefrontInstanceModelFromDomain(i *integration.StorefrontInstance) *StorefrontInstanceModel {
	return &StorefrontInstanceModel{
		BaseModel:          row(i.ID, i.CreatedAt, i.UpdatedAt),
		Name:               i.Name,
		BaseURL:            i.BaseURL,
		AccessToken:        i.AccessToken,
		StoreCode:          i.StoreCode,
		PriceMode:          i.PriceMode,
		UseBaseCurrency:    i.UseBaseCurrency,
		WorkflowID:         i.WorkflowID,
		ShippingProductSKU: i.ShippingProductSKU,
		DiscountProductSKU: i.DiscountProductSKU,
		IsActive:           i.IsActive,
		LastOrderImportAt:  i.LastOrderImportAt,
	}
}

// ProductMappingModel is unique on (instance, external product id, SKU). A
// mapping known only by SKU stores "" as the product id.
type ProductMappingModel struct {
	BaseModel
	InstanceID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_mapping_key,priority:1;index:idx_product_mapping_sku,priority:1"`
	LocalProductID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ExternalProductID string    `gorm:"type:varchar(64);not null;default:'';uniqueIndex:idx_product_mapping_key,priority:2"`
	ExternalSKU       string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_product_mapping_key,priority:3;index:idx_product_mapping_sku,priority:2"`
	ExternalName      string    `gorm:"type:varchar(255)"`
	IsActive          bool      `gorm:"not null"`
}

func (ProductMappingModel) TableName() string { return "product_mappings" }

func (m *ProductMappingModel) ToDomain() *integration.ProductMapping {
	return &integration.ProductMapping{
		ID:                m.ID,
		InstanceID:        m.InstanceID,
		LocalProductID:    m.LocalProductID,
		ExternalProductID: m.ExternalProductID,
		ExternalSKU:       m.ExternalSKU,
		ExternalName:      m.ExternalName,
		IsActive:          m.IsActive,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func ProductMappingModelFromDomain(pm *integration.ProductMapping) *ProductMappingModel {
	return &ProductMappingModel{
		BaseModel:         row(pm.ID, pm.CreatedAt, pm.UpdatedAt),
		InstanceID:        pm.InstanceID,
		LocalProductID:    pm.LocalProductID,
		ExternalProductID: pm.ExternalProductID,
		ExternalSKU:       pm.ExternalSKU,
		ExternalName:      pm.ExternalName,
		IsActive:          pm.IsActive,
	}
}

type DataQueueModel struct {
	BaseModel
	InstanceID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	Kind             integration.QueueKind `gorm:"type:varchar(20);not null;index"`
	Name             string                `gorm:"type:varchar(255);not null"`
	IsActionRequired bool                  `gorm:"not null;default:false"`
}

func (DataQueueModel) TableName() string { return "data_queues" }

func (m *DataQueueModel) ToDomain() *integration.DataQueue {
	return &integration.DataQueue{
		ID:               m.ID,
		InstanceID:       m.InstanceID,
		Kind:             m.Kind,
		Name:             m.Name,
		IsActionRequired: m.IsActionRequired,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func DataQueueModelFromDomain(q *integration.DataQueue) *DataQueueModel {
	return &DataQueueModel{
		BaseModel:        row(q.ID, q.CreatedAt, q.UpdatedAt),
		InstanceID:       q.InstanceID,
		Kind:             q.Kind,
		Name:             q.Name,
		IsActionRequired: q.IsActionRequired,
	}
}

type QueueLineModel struct {
	BaseModel
	QueueID         uuid.UUID                  `gorm:"type:uuid;not null;index"`
	InstanceID      uuid.UUID                  `gorm:"type:uuid;not null;index:idx_queue_line_external,priority:1"`
	Kind            integration.QueueKind      `gorm:"type:varchar(20);not null;index:idx_queue_line_external,priority:2"`
	ExternalID      string                     `gorm:"type:varchar(64);not null;index:idx_queue_line_external,priority:3"`
	Data            string                     `gorm:"type:text;not null"`
	State           integration.QueueLineState `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	ErrorMessage    string                     `gorm:"type:text"`
	SalesOrderID    *uuid.UUID                 `gorm:"type:uuid"`
	PartnerID       *uuid.UUID                 `gorm:"type:uuid"`
	Skipped         bool                       `gorm:"not null;default:false"`
	ProcessAttempts int                        `gorm:"not null;default:0"`
	ProcessedAt     *time.Time
}

func (QueueLineModel) TableName() string { return "data_queue_lines" }

func (m *QueueLineModel) ToDomain() *integration.QueueLine {
	return &integration.QueueLine{
		ID:              m.ID,
		QueueID:         m.QueueID,
		InstanceID:      m.InstanceID,
		Kind:            m.Kind,
		ExternalID:      m.ExternalID,
		Data:            m.Data,
		State:           m.State,
		ErrorMessage:    m.ErrorMessage,
		SalesOrderID:    m.SalesOrderID,
		PartnerID:       m.PartnerID,
		Skipped:         m.Skipped,
		ProcessAttempts: m.ProcessAttempts,
		ProcessedAt:     m.ProcessedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func QueueLineModelFromDomain(l *integration.QueueLine) *QueueLineModel {
	return &QueueLineModel{
		BaseModel:       row(l.ID, l.CreatedAt, l.UpdatedAt),
		QueueID:         l.QueueID,
		InstanceID:      l.InstanceID,
		Kind:            l.Kind,
		ExternalID:      l.ExternalID,
		Data:            l.Data,
		State:           l.State,
		ErrorMessage:    l.ErrorMessage,
		SalesOrderID:    l.SalesOrderID,
		PartnerID:       l.PartnerID,
		Skipped:         l.Skipped,
		ProcessAttempts: l.ProcessAttempts,
		ProcessedAt:     l.ProcessedAt,
	}
}

// LogLineModel rows are append-only
type LogLineModel struct {
	ID          uuid.UUID            `gorm:"type:uuid;primary_key"`
	InstanceID  uuid.UUID            `gorm:"type:uuid;not null;index"`
	QueueLineID uuid.UUID            `gorm:"type:uuid;not null;index"`
	Level       integration.LogLevel `gorm:"type:varchar(10);not null"`
	Message     string               `gorm:"type:text;not null"`
	SKU         string               `gorm:"type:varchar(128)"`
	OrderRef    string               `gorm:"type:varchar(64)"`
	CreatedAt   time.Time            `gorm:"not null"`
}

func (LogLineModel) TableName() string { return "import_log_lines" }

func (m *LogLineModel) ToDomain() *integration.LogLine {
	return &integration.LogLine{
		ID:          m.ID,
		InstanceID:  m.InstanceID,
		QueueLineID: m.QueueLineID,
		Level:       m.Level,
		Message:     m.Message,
		SKU:         m.SKU,
		OrderRef:    m.OrderRef,
		CreatedAt:   m.CreatedAt,
	}
}

func LogLineModelFromDomain(l *integration.LogLine) *LogLineModel {
	return &LogLineModel{
		ID:          l.ID,
		InstanceID:  l.InstanceID,
		QueueLineID: l.QueueLineID,
		Level:       l.Level,
		Message:     l.Message,
		SKU:         l.SKU,
		OrderRef:    l.OrderRef,
		CreatedAt:   l.CreatedAt,
	}
}

// AllModels lists every model, in dependency order, for auto-migration in tests.
func AllModels() []any {
	return []any{
		&ProductModel{},
		&CustomerModel{},
		&TaxModel{},
		&WorkflowProcessModel{},
		&SalesOrderModel{},
		&SalesOrderItemModel{},
		&StorefrontInstanceModel{},
		&ProductMappingModel{},
		&DataQueueModel{},
		&QueueLineModel{},
		&LogLineModel{},
	}
}
