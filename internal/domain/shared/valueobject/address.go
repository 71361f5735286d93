package valueobject

import (
	"fmt"
	"strings"
)

// Address is an immutable postal address as delivered by the storefront
// billing/shipping address blocks.
type Address struct {
	street     string
	city       string
	region     string
	postalCode string
	country    string
	telephone  string
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithRegion sets the region (state/province)
func WithRegion(region string) AddressOption {
	return func(a *Address) {
		a.region = strings.TrimSpace(region)
	}
}

// WithPostalCode sets the postal code for the address
func WithPostalCode(postalCode string) AddressOption {
	return func(a *Address) {
		a.postalCode = strings.TrimSpace(postalCode)
	}
}

// WithTelephone sets the contact phone of the address
func WithTelephone(telephone string) AddressOption {
	return func(a *Address) {
		a.telephone = strings.TrimSpace(telephone)
	}
}

// NewAddress creates a new Address. Street lines are joined with ", ".
// City and an ISO 3166-1 alpha-2 country code are required.
func NewAddress(street []string, city, country string, opts ...AddressOption) (Address, error) {
	lines := make([]string, 0, len(street))
	for _, s := range street {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}

	addr := Address{
		street:  strings.Join(lines, ", "),
		city:    strings.TrimSpace(city),
		country: strings.ToUpper(strings.TrimSpace(country)),
	}
	for _, opt := range opts {
		opt(&addr)
	}

	if addr.city == "" {
		return Address{}, fmt.Errorf("city cannot be empty")
	}
	if len(addr.country) != 2 {
		return Address{}, fmt.Errorf("country must be a 2-letter code, got %q", country)
	}
	if len(addr.street) > 255 {
		return Address{}, fmt.Errorf("street cannot exceed 255 characters")
	}
	if len(addr.postalCode) > 20 {
		return Address{}, fmt.Errorf("postal code cannot exceed 20 characters")
	}
	return addr, nil
}

// RestoreAddress rebuilds an address from persisted columns without validation.
func RestoreAddress(street, city, region, postalCode, country, telephone string) Address {
	return Address{
		street:     street,
		city:       city,
		region:     region,
		postalCode: postalCode,
		country:    country,
		telephone:  telephone,
	}
}

// EmptyAddress returns an empty address (for optional address fields)
func EmptyAddress() Address {
	return Address{}
}

func (a Address) Street() string     { return a.street }
func (a Address) City() string       { return a.city }
func (a Address) Region() string     { return a.region }
func (a Address) PostalCode() string { return a.postalCode }
func (a Address) Country() string    { return a.country }
func (a Address) Telephone() string  { return a.telephone }

// IsEmpty returns true if the address carries no location data
func (a Address) IsEmpty() bool {
	return a.street == "" && a.city == "" && a.country == ""
}

// Equals compares the location fields of two addresses
func (a Address) Equals(other Address) bool {
	return a.street == other.street &&
		a.city == other.city &&
		a.region == other.region &&
		a.postalCode == other.postalCode &&
		a.country == other.country
}

// String formats the address on one line: street, postcode city, region, country
func (a Address) String() string {
	if a.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, 4)
	if a.street != "" {
		parts = append(parts, a.street)
	}
	if cityLine := strings.TrimSpace(a.postalCode + " " + a.city); cityLine != "" {
		parts = append(parts, cityLine)
	}
	if a.region != "" {
		parts = append(parts, a.region)
	}
	if a.country != "" {
		parts = append(parts, a.country)
	}
	return strings.Join(parts, ", ")
}
