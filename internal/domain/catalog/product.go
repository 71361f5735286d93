// Package catalog holds the ERP products that storefront lines resolve to.
package catalog

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/erp/connector/internal/domain/shared"
)

type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// ProductKind separates stocked goods from service products such as the
// shipping and discount products used on order lines.
type ProductKind string

const (
	ProductKindGoods   ProductKind = "goods"
	ProductKindService ProductKind = "service"
)

const (
	maxCodeLen  = 64
	maxNameLen  = 255
	defaultUnit = "pcs"
)

// Product is a sellable item. Storefront SKUs are matched against Code.
type Product struct {
	shared.Aggregate
	Code         string
	Name         string
	Unit         string
	Kind         ProductKind
	SellingPrice decimal.Decimal
	Status       ProductStatus
}

// NewProduct returns an active goods product. The code is trimmed and an
// empty unit defaults to pieces.
func NewProduct(code, name, unit string) (*Product, error) {
	code = strings.TrimSpace(code)
	if err := checkCode(code); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	if unit == "" {
		unit = defaultUnit
	}
	return &Product{
		Aggregate:    shared.NewAggregate(),
		Code:         code,
		Name:         name,
		Unit:         unit,
		Kind:         ProductKindGoods,
		SellingPrice: decimal.Zero,
		Status:       ProductStatusActive,
	}, nil
}

// NewServiceProduct returns a non-stocked product for shipping or discount lines
func NewServiceProduct(code, name string) (*Product, error) {
	p, err := NewProduct(code, name, "unit")
	if err != nil {
		return nil, err
	}
	p.Kind = ProductKindService
	return p, nil
}

func (p *Product) Update(name string, sellingPrice decimal.Decimal) error {
	if err := checkName(name); err != nil {
		return err
	}
	if sellingPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Selling price cannot be negative")
	}
	p.Name, p.SellingPrice = name, sellingPrice
	p.IncrementVersion()
	return nil
}

// Deactivate hides the product from SKU matching
func (p *Product) Deactivate() error {
	if p.Status == ProductStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Product is already inactive")
	}
	p.setStatus(ProductStatusInactive)
	return nil
}

// Activate fails for discontinued products
func (p *Product) Activate() error {
	switch p.Status {
	case ProductStatusActive:
		return shared.NewDomainError("ALREADY_ACTIVE", "Product is already active")
	case ProductStatusDiscontinued:
		return shared.NewDomainError("INVALID_STATE", "Cannot activate a discontinued product")
	}
	p.setStatus(ProductStatusActive)
	return nil
}

func (p *Product) IsActive() bool { return p.Status == ProductStatusActive }

func (p *Product) setStatus(s ProductStatus) {
	p.Status = s
	p.IncrementVersion()
}

// checkCode accepts dots, slashes and spaces since storefront SKUs carry
// them. Control characters are rejected.
func checkCode(code string) error {
	switch {
	case code == "":
		return shared.NewDomainError("INVALID_CODE", "Product code cannot be empty")
	case utf8.RuneCountInString(code) > maxCodeLen:
		return shared.NewDomainError("INVALID_CODE", "Product code is longer than 64 characters")
	case strings.IndexFunc(code, unicode.IsControl) >= 0:
		return shared.NewDomainError("INVALID_CODE", "Product code contains a control character")
	}
	return nil
}

func checkName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	case utf8.RuneCountInString(name) > maxNameLen:
		return shared.NewDomainError("INVALID_NAME", "Product name is longer than 255 characters")
	}
	return nil
}
