// Package partner holds the ERP partners that storefront customers and
// guest checkouts are imported as.
package partner

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/domain/shared/valueobject"
)

const (
	maxNameLen  = 200
	maxEmailLen = 200
	codePrefix  = "C-"
)

var validate = validator.New()

type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
)

// Customer is an invoice and delivery partner
type Customer struct {
	shared.Aggregate
	Code    string
	Name    string
	Email   string
	Phone   string
	Address valueobject.Address
	Status  CustomerStatus
	// IsGuest marks partners created from guest checkouts
	IsGuest bool
	// InstanceID and ExternalID link the partner to a storefront account
	InstanceID *uuid.UUID
	ExternalID string
}

// NewCustomer trims the name, lowercases the email and derives the partner
// code from the new ID. The email is optional.
func NewCustomer(name, email string) (*Customer, error) {
	name, email, err := normalize(name, email)
	if err != nil {
		return nil, err
	}
	agg := shared.NewAggregate()
	return &Customer{
		Aggregate: agg,
		Code:      codePrefix + strings.ToUpper(agg.ID.String()[:8]),
		Name:      name,
		Email:     email,
		Status:    CustomerStatusActive,
	}, nil
}

func NewStorefrontCustomer(instanceID uuid.UUID, externalID, name, email string) (*Customer, error) {
	externalID = strings.TrimSpace(externalID)
	if instanceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INSTANCE", "Storefront instance is required")
	}
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "Storefront customer id is required")
	}
	c, err := NewCustomer(name, email)
	if err != nil {
		return nil, err
	}
	c.InstanceID = &instanceID
	c.ExternalID = externalID
	return c, nil
}

func NewGuestCustomer(name, email string) (*Customer, error) {
	c, err := NewCustomer(name, email)
	if err != nil {
		return nil, err
	}
	c.IsGuest = true
	return c, nil
}

// Update reports whether the name or email changed; only a change bumps
// the version
func (c *Customer) Update(name, email string) (bool, error) {
	name, email, err := normalize(name, email)
	if err != nil {
		return false, err
	}
	if c.Name == name && c.Email == email {
		return false, nil
	}
	c.Name, c.Email = name, email
	c.IncrementVersion()
	return true, nil
}

// SetAddress reports whether the address changed. A telephone on the
// address also becomes the partner phone.
func (c *Customer) SetAddress(addr valueobject.Address) bool {
	if c.Address.Equals(addr) && c.Address.Telephone() == addr.Telephone() {
		return false
	}
	c.Address = addr
	if tel := addr.Telephone(); tel != "" {
		c.Phone = tel
	}
	c.IncrementVersion()
	return true
}

func (c *Customer) IsStorefrontCustomer() bool {
	return c.InstanceID != nil && c.ExternalID != ""
}

func (c *Customer) IsActive() bool { return c.Status == CustomerStatusActive }

func normalize(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	switch {
	case name == "":
		return "", "", shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	case utf8.RuneCountInString(name) > maxNameLen:
		return "", "", shared.NewDomainError("INVALID_NAME", "Customer name cannot exceed 200 characters")
	case email == "":
		return name, "", nil
	case len(email) > maxEmailLen:
		return "", "", shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	case validate.Var(email, "email") != nil:
		return "", "", shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return name, email, nil
}
