package integration

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// StorefrontInstance Entity
// ---------------------------------------------------------------------------

// StorefrontInstance is a connected storefront and the configuration that
// governs how its orders are imported.
type StorefrontInstance struct {
	ID uuid.UUID
	// Name is a display name, unique per ERP
	Name string
	// BaseURL is the storefront root, e.g. https://shop.example.com
	BaseURL string
	// AccessToken is the integration bearer token for the REST API
	AccessToken string
	// StoreCode is the store view used in REST paths ("all" when empty)
	StoreCode string
	// PriceMode selects fixed or proportional unit-price derivation
	PriceMode PriceMode
	// UseBaseCurrency reads base_* amounts instead of order-currency amounts
	UseBaseCurrency bool
	// WorkflowID is the auto-workflow attached to imported orders
	WorkflowID *uuid.UUID
	// ShippingProductSKU is the local product used for shipping lines
	ShippingProductSKU string
	// DiscountProductSKU is the local product used for discount lines
	DiscountProductSKU string
	IsActive           bool
	// LastOrderImportAt is the updated_at watermark of the last order pull
	LastOrderImportAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewStorefrontInstance creates an active instance in fixed price mode.
func NewStorefrontInstance(name, baseURL, accessToken string) (*StorefrontInstance, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInstanceInvalidName
	}
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &StorefrontInstance{
		ID:          uuid.New(),
		Name:        name,
		BaseURL:     normalized,
		AccessToken: accessToken,
		StoreCode:   "all",
		PriceMode:   PriceModeFixed,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", ErrInstanceInvalidURL
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// PricingOptions returns the pricing configuration of this instance.
func (i *StorefrontInstance) PricingOptions() PricingOptions {
	return PricingOptions{
		Mode:            i.PriceMode,
		UseBaseCurrency: i.UseBaseCurrency,
	}
}

// SetPriceMode changes the price mode
func (i *StorefrontInstance) SetPriceMode(mode PriceMode, useBaseCurrency bool) error {
	if !mode.IsValid() {
		return ErrInvalidPriceMode
	}
	i.PriceMode = mode
	i.UseBaseCurrency = useBaseCurrency
	i.UpdatedAt = time.Now()
	return nil
}

// AttachWorkflow sets the auto-workflow for imported orders; nil detaches it.
func (i *StorefrontInstance) AttachWorkflow(workflowID *uuid.UUID) {
	i.WorkflowID = workflowID
	i.UpdatedAt = time.Now()
}

// RecordOrderImport advances the order import watermark. Older timestamps are ignored.
func (i *StorefrontInstance) RecordOrderImport(at time.Time) {
	if i.LastOrderImportAt != nil && !at.After(*i.LastOrderImportAt) {
		return
	}
	i.LastOrderImportAt = &at
	i.UpdatedAt = time.Now()
}

// EnsureActive returns ErrInstanceInactive for a deactivated instance.
func (i *StorefrontInstance) EnsureActive() error {
	if !i.IsActive {
		return ErrInstanceInactive
	}
	return nil
}

// Activate activates this instance
func (i *StorefrontInstance) Activate() {
	i.IsActive = true
	i.UpdatedAt = time.Now()
}

// Deactivate deactivates this instance
func (i *StorefrontInstance) Deactivate() {
	i.IsActive = false
	i.UpdatedAt = time.Now()
}

// StorefrontInstanceRepository persists storefront instances
type StorefrontInstanceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StorefrontInstance, error)
	FindAll(ctx context.Context, activeOnly bool) ([]StorefrontInstance, error)
	Save(ctx context.Context, instance *StorefrontInstance) error
}
