package models

import (
	"github.com/shopspring/decimal"

	"github.com/erp/connector/internal/domain/catalog"
)

type ProductModel struct {
	VersionedModel
	Code         string                `gorm:"type:varchar(64);not null;uniqueIndex:idx_product_code"`
	Name         string                `gorm:"type:varchar(255);not null"`
	Unit         string                `gorm:"type:varchar(20);not null"`
	Kind         catalog.ProductKind   `gorm:"type:varchar(20);not null;default:'goods'"`
	SellingPrice decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Status       catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'active';index"`
}

func (ProductModel) TableName() string { return "products" }

func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		Aggregate:    m.toAggregate(),
		Code:         m.Code,
		Name:         m.Name,
		Unit:         m.Unit,
		Kind:         m.Kind,
		SellingPrice: m.SellingPrice,
		Status:       m.Status,
	}
}

func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	return &ProductModel{
		VersionedModel: versioned(p.Aggregate),
		Code:           p.Code,
		Name:           p.Name,
		Unit:           p.Unit,
		Kind:           p.Kind,
		SellingPrice:   p.SellingPrice,
		Status:         p.Status,
	}
}
