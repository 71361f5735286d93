package models

import (
	"github.com/google/uuid"

	"github.com/erp/connector/internal/domain/partner"
	"github.com/erp/connector/internal/domain/shared/valueobject"
)

// CustomerModel stores the address as plain columns
type CustomerModel struct {
	VersionedModel
	Code       string                 `gorm:"type:varchar(50);not null;uniqueIndex:idx_customer_code"`
	Name       string                 `gorm:"type:varchar(200);not null"`
	Email      string                 `gorm:"type:varchar(200);index"`
	Phone      string                 `gorm:"type:varchar(50)"`
	Street     string                 `gorm:"type:varchar(255)"`
	City       string                 `gorm:"type:varchar(100)"`
	Region     string                 `gorm:"type:varchar(100)"`
	PostalCode string                 `gorm:"type:varchar(20)"`
	Country    string                 `gorm:"type:varchar(2)"`
	Telephone  string                 `gorm:"type:varchar(50)"`
	Status     partner.CustomerStatus `gorm:"type:varchar(20);not null;default:'active'"`
	IsGuest    bool                   `gorm:"not null;default:false"`
	InstanceID *uuid.UUID             `gorm:"type:uuid;index:idx_customer_external,priority:1"`
	ExternalID string                 `gorm:"type:varchar(64);index:idx_customer_external,priority:2"`
}

func (CustomerModel) TableName() string { return "customers" }

func (m *CustomerModel) ToDomain() *partner.Customer {
	return &partner.Customer{
		Aggregate:  m.toAggregate(),
		Code:       m.Code,
		Name:       m.Name,
		Email:      m.Email,
		Phone:      m.Phone,
		Address:    valueobject.RestoreAddress(m.Street, m.City, m.Region, m.PostalCode, m.Country, m.Telephone),
		Status:     m.Status,
		IsGuest:    m.IsGuest,
		InstanceID: m.InstanceID,
		ExternalID: m.ExternalID,
	}
}

// CustomerModelFromDomain flattens the address value object
func CustomerModelFromDomain(c *partner.Customer) *CustomerModel {
	addr := c.Address
	return &CustomerModel{
		VersionedModel: versioned(c.Aggregate),
		Code:           c.Code,
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		Street:         addr.Street(),
		City:           addr.City(),
		Region:         addr.Region(),
		PostalCode:     addr.PostalCode(),
		Country:        addr.Country(),
		Telephone:      addr.Telephone(),
		Status:         c.Status,
		IsGuest:        c.IsGuest,
		InstanceID:     c.InstanceID,
		ExternalID:     c.ExternalID,
	}
}
