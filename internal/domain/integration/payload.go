package integration

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Storefront product types that group child lines.
const (
	ProductTypeSimple       = "simple"
	ProductTypeVirtual      = "virtual"
	ProductTypeConfigurable = "configurable"
	ProductTypeBundle       = "bundle"
)

// ---------------------------------------------------------------------------
// Order payload
// ---------------------------------------------------------------------------

// OrderPayload is a storefront order as exported by the REST API
// (GET /V1/orders). Only fields the importer reads are declared.
type OrderPayload struct {
	EntityID            int64              `json:"entity_id"`
	IncrementID         string             `json:"increment_id" validate:"required,max=64"`
	StoreID             int64              `json:"store_id"`
	Status              string             `json:"status"`
	State               string             `json:"state"`
	CreatedAt           string             `json:"created_at"`
	CustomerID          *int64             `json:"customer_id,omitempty"`
	CustomerEmail       string             `json:"customer_email" validate:"omitempty,email"`
	CustomerFirstname   string             `json:"customer_firstname"`
	CustomerLastname    string             `json:"customer_lastname"`
	CustomerIsGuest     int                `json:"customer_is_guest"`
	OrderCurrencyCode   string             `json:"order_currency_code"`
	BaseCurrencyCode    string             `json:"base_currency_code"`
	GrandTotal          Amount             `json:"grand_total"`
	BaseGrandTotal      Amount             `json:"base_grand_total"`
	TaxAmount           Amount             `json:"tax_amount"`
	BaseTaxAmount       Amount             `json:"base_tax_amount"`
	ShippingAmount      Amount             `json:"shipping_amount"`
	BaseShippingAmount  Amount             `json:"base_shipping_amount"`
	ShippingTaxAmount   Amount             `json:"shipping_tax_amount"`
	DiscountAmount      Amount             `json:"discount_amount"`
	BaseDiscountAmount  Amount             `json:"base_discount_amount"`
	DiscountDescription string             `json:"discount_description"`
	ShippingDescription string             `json:"shipping_description"`
	BillingAddress      *AddressPayload    `json:"billing_address,omitempty"`
	Payment             *PaymentPayload    `json:"payment,omitempty"`
	Items               []OrderLinePayload `json:"items" validate:"required,min=1,dive"`
}

// AddressPayload is an order billing/shipping address block.
type AddressPayload struct {
	Firstname string   `json:"firstname"`
	Lastname  string   `json:"lastname"`
	Company   string   `json:"company"`
	Street    []string `json:"street"`
	City      string   `json:"city"`
	Region    string   `json:"region"`
	Postcode  string   `json:"postcode"`
	CountryID string   `json:"country_id"`
	Telephone string   `json:"telephone"`
	Email     string   `json:"email"`
}

// FullName joins first and last name.
func (a *AddressPayload) FullName() string {
	return strings.TrimSpace(a.Firstname + " " + a.Lastname)
}

// PaymentPayload carries the payment method code.
type PaymentPayload struct {
	Method string `json:"method"`
}

// ParseOrderPayload decodes a raw order export.
func ParseOrderPayload(data []byte) (*OrderPayload, error) {
	var p OrderPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse order payload: %w", err)
	}
	return &p, nil
}

// ExternalID returns the storefront order entity id as a string, falling
// back to the increment id for payloads without an entity id.
func (o *OrderPayload) ExternalID() string {
	if o.EntityID > 0 {
		return strconv.FormatInt(o.EntityID, 10)
	}
	return o.IncrementID
}

// IsGuest reports whether the order was placed without a customer account.
func (o *OrderPayload) IsGuest() bool {
	return o.CustomerIsGuest == 1 || o.CustomerID == nil
}

// CustomerName returns the order-level customer name, falling back to the
// billing address name.
func (o *OrderPayload) CustomerName() string {
	name := strings.TrimSpace(o.CustomerFirstname + " " + o.CustomerLastname)
	if name == "" && o.BillingAddress != nil {
		name = o.BillingAddress.FullName()
	}
	return name
}

// CurrencyCode returns the currency amounts are expressed in.
func (o *OrderPayload) CurrencyCode(useBaseCurrency bool) string {
	if useBaseCurrency && o.BaseCurrencyCode != "" {
		return o.BaseCurrencyCode
	}
	return o.OrderCurrencyCode
}

// NormalizeItemPrices copies base_price into price for every item whose
// price is missing or zero. The storefront leaves price empty on some
// admin-created orders while base_price carries the tax-excluded unit price.
func (o *OrderPayload) NormalizeItemPrices() {
	for i := range o.Items {
		item := &o.Items[i]
		if !item.Price.IsNonZero() && item.BasePrice.Valid {
			item.Price = item.BasePrice
		}
	}
}

// PriceableLines returns the lines that become order lines: every line
// except configurable/bundle parents.
func (o *OrderPayload) PriceableLines() []OrderLinePayload {
	lines := make([]OrderLinePayload, 0, len(o.Items))
	for _, item := range o.Items {
		if item.IsParent() {
			continue
		}
		lines = append(lines, item)
	}
	return lines
}

// ParentOf returns the parent line of a child line, preferring the embedded
// parent_item block over a lookup by parent_item_id.
func (o *OrderPayload) ParentOf(line OrderLinePayload) *OrderLinePayload {
	if line.ParentItem != nil {
		return line.ParentItem
	}
	if line.ParentItemID == nil {
		return nil
	}
	for i := range o.Items {
		if o.Items[i].ItemID == *line.ParentItemID {
			return &o.Items[i]
		}
	}
	return nil
}

// ShippingAmountFor returns the tax-excluded shipping amount.
func (o *OrderPayload) ShippingAmountFor(useBaseCurrency bool) decimal.Decimal {
	return currencyAmount(useBaseCurrency, o.BaseShippingAmount, o.ShippingAmount).Decimal()
}

// DiscountAmountFor returns the discount amount. The storefront reports
// discounts as negative numbers.
func (o *OrderPayload) DiscountAmountFor(useBaseCurrency bool) decimal.Decimal {
	return currencyAmount(useBaseCurrency, o.BaseDiscountAmount, o.DiscountAmount).Decimal()
}

// ---------------------------------------------------------------------------
// Order line payload
// ---------------------------------------------------------------------------

// OrderLinePayload is one entry of an order's items array.
type OrderLinePayload struct {
	ItemID              int64                    `json:"item_id"`
	ParentItemID        *int64                   `json:"parent_item_id,omitempty"`
	ParentItem          *OrderLinePayload        `json:"parent_item,omitempty" validate:"-"`
	ProductID           int64                    `json:"product_id"`
	SKU                 string                   `json:"sku" validate:"required"`
	Name                string                   `json:"name"`
	ProductType         string                   `json:"product_type"`
	QtyOrdered          Amount                   `json:"qty_ordered"`
	Price               Amount                   `json:"price"`
	BasePrice           Amount                   `json:"base_price"`
	PriceInclTax        Amount                   `json:"price_incl_tax"`
	BasePriceInclTax    Amount                   `json:"base_price_incl_tax"`
	RowTotal            Amount                   `json:"row_total"`
	BaseRowTotal        Amount                   `json:"base_row_total"`
	RowTotalInclTax     Amount                   `json:"row_total_incl_tax"`
	BaseRowTotalInclTax Amount                   `json:"base_row_total_incl_tax"`
	TaxPercent          Amount                   `json:"tax_percent"`
	TaxAmount           Amount                   `json:"tax_amount"`
	BaseTaxAmount       Amount                   `json:"base_tax_amount"`
	DiscountAmount      Amount                   `json:"discount_amount"`
	ProductOption       json.RawMessage          `json:"product_option,omitempty"`
	ExtensionAttributes *LineExtensionAttributes `json:"extension_attributes,omitempty"`
}

// LineExtensionAttributes holds connector-specific line extensions.
type LineExtensionAttributes struct {
	EptOptionTitle string `json:"ept_option_title,omitempty"`
}

// IsParent reports whether the line groups child lines and must not be
// persisted on its own.
func (l OrderLinePayload) IsParent() bool {
	switch strings.ToLower(l.ProductType) {
	case ProductTypeConfigurable, ProductTypeBundle:
		return true
	default:
		return false
	}
}

// HasParent reports whether the line is the child of a configurable or bundle line.
func (l OrderLinePayload) HasParent() bool {
	return l.ParentItemID != nil || l.ParentItem != nil
}

// Quantity returns qty_ordered, or zero when missing.
func (l OrderLinePayload) Quantity() decimal.Decimal {
	return l.QtyOrdered.Decimal()
}

// ExternalProductID returns the storefront product id as a string, or ""
// when the payload carries none.
func (l OrderLinePayload) ExternalProductID() string {
	if l.ProductID <= 0 {
		return ""
	}
	return strconv.FormatInt(l.ProductID, 10)
}

// ExternalItemID returns item_id as a string. A line without item_id is
// identified by its SKU and its position among the priceable lines, which
// stays stable when the same payload is imported again.
func (l OrderLinePayload) ExternalItemID(pos int) string {
	if l.ItemID > 0 {
		return strconv.FormatInt(l.ItemID, 10)
	}
	return l.SKU + "#" + strconv.Itoa(pos+1)
}

// OptionTitle returns the custom option title shown on the order line.
func (l OrderLinePayload) OptionTitle() string {
	if l.ExtensionAttributes == nil {
		return ""
	}
	return l.ExtensionAttributes.EptOptionTitle
}

// DisplayName returns the line label: name, plus the option title when present.
func (l OrderLinePayload) DisplayName() string {
	name := l.Name
	if name == "" {
		name = l.SKU
	}
	if title := l.OptionTitle(); title != "" {
		return name + " (" + title + ")"
	}
	return name
}

// TaxRate returns tax_percent, or zero when missing.
func (l OrderLinePayload) TaxRate() decimal.Decimal {
	return l.TaxPercent.Decimal()
}

// ---------------------------------------------------------------------------
// Customer payload
// ---------------------------------------------------------------------------

// CustomerPayload is a storefront customer (GET /V1/customers/search).
type CustomerPayload struct {
	ID        int64                    `json:"id" validate:"required,gt=0"`
	Email     string                   `json:"email" validate:"required,email"`
	Firstname string                   `json:"firstname"`
	Lastname  string                   `json:"lastname"`
	GroupID   int64                    `json:"group_id"`
	Addresses []CustomerAddressPayload `json:"addresses"`
}

// CustomerAddressPayload is an address stored on a customer account.
type CustomerAddressPayload struct {
	ID              int64          `json:"id"`
	Street          []string       `json:"street"`
	City            string         `json:"city"`
	Region          *RegionPayload `json:"region,omitempty"`
	Postcode        string         `json:"postcode"`
	CountryID       string         `json:"country_id"`
	Telephone       string         `json:"telephone"`
	DefaultBilling  bool           `json:"default_billing"`
	DefaultShipping bool           `json:"default_shipping"`
}

// RegionPayload is the region object of a customer address.
type RegionPayload struct {
	RegionCode string `json:"region_code"`
	Region     string `json:"region"`
}

// ParseCustomerPayload decodes a raw customer export.
func ParseCustomerPayload(data []byte) (*CustomerPayload, error) {
	var p CustomerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse customer payload: %w", err)
	}
	return &p, nil
}

// ExternalID returns the storefront customer id as a string.
func (c *CustomerPayload) ExternalID() string {
	return strconv.FormatInt(c.ID, 10)
}

// FullName joins first and last name.
func (c *CustomerPayload) FullName() string {
	return strings.TrimSpace(c.Firstname + " " + c.Lastname)
}

// BillingAddress returns the default billing address, else the first address.
func (c *CustomerPayload) BillingAddress() *CustomerAddressPayload {
	for i := range c.Addresses {
		if c.Addresses[i].DefaultBilling {
			return &c.Addresses[i]
		}
	}
	if len(c.Addresses) > 0 {
		return &c.Addresses[0]
	}
	return nil
}
