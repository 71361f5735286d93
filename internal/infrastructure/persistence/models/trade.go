package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/connector/internal/domain/trade"
)

// SalesOrderModel is unique per (instance, external order id, reference)
type SalesOrderModel struct {
	VersionedModel
	OrderNumber       string                `gorm:"type:varchar(64);not null;index"`
	CustomerID        uuid.UUID             `gorm:"type:uuid;not null;index"`
	CustomerName      string                `gorm:"type:varchar(200);not null"`
	Items             []SalesOrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
	TotalAmount       decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Status            trade.OrderStatus     `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	InvoiceStatus     trade.InvoiceStatus   `gorm:"type:varchar(20);not null;default:'NO'"`
	PaymentStatus     trade.PaymentStatus   `gorm:"type:varchar(20);not null;default:'UNPAID'"`
	CurrencyCode      string                `gorm:"type:varchar(3)"`
	WorkflowID        *uuid.UUID            `gorm:"type:uuid;index"`
	InstanceID        *uuid.UUID            `gorm:"type:uuid;uniqueIndex:idx_sales_order_external,priority:1"`
	ExternalOrderID   string                `gorm:"type:varchar(64);uniqueIndex:idx_sales_order_external,priority:2"`
	ExternalReference string                `gorm:"type:varchar(64);uniqueIndex:idx_sales_order_external,priority:3"`
	Remark            string                `gorm:"type:text"`
	ConfirmedAt       *time.Time
	ShippedAt         *time.Time
	CompletedAt       *time.Time
	CancelledAt       *time.Time
	CancelReason      string `gorm:"type:varchar(500)"`
	InvoicedAt        *time.Time
	PaidAt            *time.Time
}

func (SalesOrderModel) TableName() string { return "sales_orders" }

func (m *SalesOrderModel) ToDomain() *trade.SalesOrder {
	order := &trade.SalesOrder{
		Aggregate:         m.toAggregate(),
		OrderNumber:       m.OrderNumber,
		CustomerID:        m.CustomerID,
		CustomerName:      m.CustomerName,
		TotalAmount:       m.TotalAmount,
		Status:            m.Status,
		InvoiceStatus:     m.InvoiceStatus,
		PaymentStatus:     m.PaymentStatus,
		CurrencyCode:      m.CurrencyCode,
		WorkflowID:        m.WorkflowID,
		InstanceID:        m.InstanceID,
		ExternalOrderID:   m.ExternalOrderID,
		ExternalReference: m.ExternalReference,
		Remark:            m.Remark,
		ConfirmedAt:       m.ConfirmedAt,
		ShippedAt:         m.ShippedAt,
		CompletedAt:       m.CompletedAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
		InvoicedAt:        m.InvoicedAt,
		PaidAt:            m.PaidAt,
		Items:             make([]trade.SalesOrderItem, len(m.Items)),
	}
	for i, item := range m.Items {
		order.Items[i] = *item.ToDomain()
	}
	return order
}

// SalesOrderModelFromDomain copies the items along with the header
func SalesOrderModelFromDomain(o *trade.SalesOrder) *SalesOrderModel {
	items := make([]SalesOrderItemModel, len(o.Items))
	for i := range o.Items {
		items[i] = *SalesOrderItemModelFromDomain(&o.Items[i])
	}
	return &SalesOrderModel{
		VersionedModel:    versioned(o.Aggregate),
		OrderNumber:       o.OrderNumber,
		CustomerID:        o.CustomerID,
		CustomerName:      o.CustomerName,
		Items:             items,
		TotalAmount:       o.TotalAmount,
		Status:            o.Status,
		InvoiceStatus:     o.InvoiceStatus,
		PaymentStatus:     o.PaymentStatus,
		CurrencyCode:      o.CurrencyCode,
		WorkflowID:        o.WorkflowID,
		InstanceID:        o.InstanceID,
		ExternalOrderID:   o.ExternalOrderID,
		ExternalReference: o.ExternalReference,
		Remark:            o.Remark,
		ConfirmedAt:       o.ConfirmedAt,
		ShippedAt:         o.ShippedAt,
		CompletedAt:       o.CompletedAt,
		CancelledAt:       o.CancelledAt,
		CancelReason:      o.CancelReason,
		InvoicedAt:        o.InvoicedAt,
		PaidAt:            o.PaidAt,
	}
}

// SalesOrderItemModel keeps tax ids as a JSON array
type SalesOrderItemModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind           trade.ItemKind  `gorm:"type:varchar(20);not null;default:'PRODUCT'"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName    string          `gorm:"type:varchar(255);not null"`
	ProductCode    string          `gorm:"type:varchar(64);not null"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxIDs         []uuid.UUID     `gorm:"type:text;serializer:json"`
	ExternalItemID string          `gorm:"type:varchar(64)"`
	OptionTitle    string          `gorm:"type:varchar(255)"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

func (SalesOrderItemModel) TableName() string { return "sales_order_items" }

func (m *SalesOrderItemModel) ToDomain() *trade.SalesOrderItem {
	return &trade.SalesOrderItem{
		ID:             m.ID,
		OrderID:        m.OrderID,
		Kind:           m.Kind,
		ProductID:      m.ProductID,
		ProductName:    m.ProductName,
		ProductCode:    m.ProductCode,
		Quantity:       m.Quantity,
		UnitPrice:      m.UnitPrice,
		Amount:         m.Amount,
		TaxIDs:         slices.Clone(m.TaxIDs),
		ExternalItemID: m.ExternalItemID,
		OptionTitle:    m.OptionTitle,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func SalesOrderItemModelFromDomain(i *trade.SalesOrderItem) *SalesOrderItemModel {
	return &SalesOrderItemModel{
		ID:             i.ID,
		OrderID:        i.OrderID,
		Kind:           i.Kind,
		ProductID:      i.ProductID,
		ProductName:    i.ProductName,
		ProductCode:    i.ProductCode,
		Quantity:       i.Quantity,
		UnitPrice:      i.UnitPrice,
		Amount:         i.Amount,
		TaxIDs:         slices.Clone(i.TaxIDs),
		ExternalItemID: i.ExternalItemID,
		OptionTitle:    i.OptionTitle,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

type TaxModel struct {
	BaseModel
	InstanceID    *uuid.UUID      `gorm:"type:uuid;index"`
	Code          string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_tax_code"`
	Name          string          `gorm:"type:varchar(100);not null"`
	Rate          decimal.Decimal `gorm:"type:decimal(9,4);not null;index"`
	PriceIncluded bool            `gorm:"not null;default:false"`
	IsActive      bool            `gorm:"not null"`
}

func (TaxModel) TableName() string { return "taxes" }

func (m *TaxModel) ToDomain() *trade.Tax {
	return &trade.Tax{
		ID:            m.ID,
		InstanceID:    m.InstanceID,
		Code:          m.Code,
		Name:          m.Name,
		Rate:          m.Rate,
		PriceIncluded: m.PriceIncluded,
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func TaxModelFromDomain(t *trade.Tax) *TaxModel {
	return &TaxModel{
		BaseModel:     row(t.ID, t.CreatedAt, t.UpdatedAt),
		InstanceID:    t.InstanceID,
		Code:          t.Code,
		Name:          t.Name,
		Rate:          t.Rate,
		PriceIncluded: t.PriceIncluded,
		IsActive:      t.IsActive,
	}
}

type WorkflowProcessModel struct {
	BaseModel
	Name                   string              `gorm:"type:varchar(128);not null"`
	ValidateOrder          bool                `gorm:"not null;default:false"`
	CreateInvoice          bool                `gorm:"not null;default:false"`
	RegisterPayment        bool                `gorm:"not null;default:false"`
	InvoiceDateIsOrderDate bool                `gorm:"not null;default:false"`
	PaymentJournalCode     string              `gorm:"type:varchar(32)"`
	SalesJournalCode       string              `gorm:"type:varchar(32)"`
	PickingPolicy          trade.PickingPolicy `gorm:"type:varchar(20);not null;default:'one'"`
	IsActive               bool                `gorm:"not null;index"`
}

func (WorkflowProcessModel) TableName() string { return "workflow_processes" }

func (m *WorkflowProcessModel) ToDomain() *trade.WorkflowProcess {
	return &trade.WorkflowProcess{
		ID:                     m.ID,
		Name:                   m.Name,
		ValidateOrder:          m.ValidateOrder,
		CreateInvoice:          m.CreateInvoice,
		RegisterPayment:        m.RegisterPayment,
		InvoiceDateIsOrderDate: m.InvoiceDateIsOrderDate,
		PaymentJournalCode:     m.PaymentJournalCode,
		SalesJournalCode:       m.SalesJournalCode,
		PickingPolicy:          m.PickingPolicy,
		IsActive:               m.IsActive,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

func WorkflowProcessModelFromDomain(w *trade.WorkflowProcess) *WorkflowProcessModel {
	return &WorkflowProcessModel{
		BaseModel:              row(w.ID, w.CreatedAt, w.UpdatedAt),
		Name:                   w.Name,
		ValidateOrder:          w.ValidateOrder,
		CreateInvoice:          w.CreateInvoice,
		RegisterPayment:        w.RegisterPayment,
		InvoiceDateIsOrderDate: w.InvoiceDateIsOrderDate,
		PaymentJournalCode:     w.PaymentJournalCode,
		SalesJournalCode:       w.SalesJournalCode,
		PickingPolicy:          w.PickingPolicy,
		IsActive:               w.IsActive,
	}
}
