package integration

import (
	"time"

	"github.com/erp/connector/internal/domain/integration"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Instance DTOs
// ---------------------------------------------------------------------------

// CreateInstanceRequest represents a request to connect a storefront
type CreateInstanceRequest struct {
	Name               string     `json:"name" binding:"required,max=128"`
	BaseURL            string     `json:"base_url" binding:"required,url"`
	AccessToken        string     `json:"access_token" binding:"required"`
	StoreCode          string     `json:"store_code" binding:"omitempty,max=32"`
	PriceMode          string     `json:"price_mode" binding:"omitempty,price_mode"`
	UseBaseCurrency    bool       `json:"use_base_currency"`
	WorkflowID         *uuid.UUID `json:"workflow_id,omitempty"`
	ShippingProductSKU string     `json:"shipping_product_sku" binding:"omitempty,max=64"`
	DiscountProductSKU string     `json:"discount_product_sku" binding:"omitempty,max=64"`
}

// InstanceResponse represents a storefront instance in API responses.
// The access token is never returned.
type InstanceResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	BaseURL            string     `json:"base_url"`
	StoreCode          string     `json:"store_code"`
	PriceMode          string     `json:"price_mode"`
	UseBaseCurrency    bool       `json:"use_base_currency"`
	WorkflowID         *uuid.UUID `json:"workflow_id,omitempty"`
	ShippingProductSKU string     `json:"shipping_product_sku,omitempty"`
	DiscountProductSKU string     `json:"discount_product_sku,omitempty"`
	IsActive           bool       `json:"is_active"`
	LastOrderImportAt  *time.Time `json:"last_order_import_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ToInstanceResponse converts a domain instance to a response DTO
func ToInstanceResponse(i *integration.StorefrontInstance) InstanceResponse {
	return InstanceResponse{
		ID:                 i.ID,
		Name:               i.Name,
		BaseURL:            i.BaseURL,
		StoreCode:          i.StoreCode,
		PriceMode:          i.PriceMode.String(),
		UseBaseCurrency:    i.UseBaseCurrency,
		WorkflowID:         i.WorkflowID,
		ShippingProductSKU: i.ShippingProductSKU,
		DiscountProductSKU: i.DiscountProductSKU,
		IsActive:           i.IsActive,
		LastOrderImportAt:  i.LastOrderImportAt,
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// Product Mapping DTOs
// ---------------------------------------------------------------------------

// CreateProductMappingRequest represents a request to create a product mapping
type CreateProductMappingRequest struct {
	InstanceID        uuid.UUID `json:"instance_id" binding:"required"`
	LocalProductID    uuid.UUID `json:"local_product_id" binding:"required"`
	ExternalProductID string    `json:"external_product_id" binding:"omitempty,max=64"`
	ExternalSKU       string    `json:"external_sku" binding:"required,max=128,sku"`
	ExternalName      string    `json:"external_name" binding:"omitempty,max=255"`
}

// ProductMappingResponse represents a product mapping in API responses
type ProductMappingResponse struct {
	ID                uuid.UUID `json:"id"`
	InstanceID        uuid.UUID `json:"instance_id"`
	LocalProductID    uuid.UUID `json:"local_product_id"`
	ExternalProductID string    `json:"external_product_id,omitempty"`
	ExternalSKU       string    `json:"external_sku"`
	ExternalName      string    `json:"external_name,omitempty"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ToProductMappingResponse converts a domain mapping to a response DTO
func ToProductMappingResponse(m *integration.ProductMapping) ProductMappingResponse {
	return ProductMappingResponse{
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

// ---------------------------------------------------------------------------
// Queue DTOs
// ---------------------------------------------------------------------------

// EnqueueResult reports the outcome of an enqueue call
type EnqueueResult struct {
	InstanceID uuid.UUID             `json:"instance_id"`
	Kind       integration.QueueKind `json:"kind"`
	QueueIDs   []uuid.UUID           `json:"queue_ids"`
	Enqueued   int                   `json:"enqueued"`
	Duplicates int                   `json:"duplicates"`
}

// LineResult reports the outcome of processing one queue line
type LineResult struct {
	LineID       uuid.UUID                  `json:"line_id"`
	State        integration.QueueLineState `json:"state"`
	Skipped      bool                       `json:"skipped"`
	SkipReason   string                     `json:"skip_reason,omitempty"`
	SalesOrderID *uuid.UUID                 `json:"sales_order_id,omitempty"`
	PartnerID    *uuid.UUID                 `json:"partner_id,omitempty"`

	// QueueActionRequired is the queue flag after a single-line reprocess
	QueueActionRequired bool `json:"queue_action_required"`
}

func newLineResult(line *integration.QueueLine, imported *ImportResult) *LineResult {
	r := &LineResult{
		LineID:       line.ID,
		State:        line.State,
		Skipped:      line.Skipped,
		SalesOrderID: line.SalesOrderID,
		PartnerID:    line.PartnerID,
	}
	if imported != nil {
		r.SkipReason = imported.SkipReason
	}
	return r
}

// LineFailure is one failed line of a queue run
type LineFailure struct {
	LineID     uuid.UUID `json:"line_id"`
	ExternalID string    `json:"external_id"`
	Error      string    `json:"error"`
}

// QueueRunResult reports the outcome of processing one queue
type QueueRunResult struct {
	QueueID        uuid.UUID              `json:"queue_id"`
	State          integration.QueueState `json:"state"`
	ActionRequired bool                   `json:"action_required"`
	Done           int                    `json:"done"`
	Skipped        int                    `json:"skipped"`
	Failed         int                    `json:"failed"`
	Locked         int                    `json:"locked"`
	Failures       []LineFailure          `json:"failures"`
}

// QueueLineResponse represents a queue line in API responses
type QueueLineResponse struct {
	ID              uuid.UUID                  `json:"id"`
	QueueID         uuid.UUID                  `json:"queue_id"`
	InstanceID      uuid.UUID                  `json:"instance_id"`
	Kind            integration.QueueKind      `json:"kind"`
	ExternalID      string                     `json:"external_id"`
	State           integration.QueueLineState `json:"state"`
	ErrorMessage    string                     `json:"error_message,omitempty"`
	SalesOrderID    *uuid.UUID                 `json:"sales_order_id,omitempty"`
	PartnerID       *uuid.UUID                 `json:"partner_id,omitempty"`
	Skipped         bool                       `json:"skipped"`
	ProcessAttempts int                        `json:"process_attempts"`
	ProcessedAt     *time.Time                 `json:"processed_at,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

// ToQueueLineResponse converts a domain queue line to a response DTO
func ToQueueLineResponse(l *integration.QueueLine) QueueLineResponse {
	return QueueLineResponse{
		ID:              l.ID,
		QueueID:         l.QueueID,
		InstanceID:      l.InstanceID,
		Kind:            l.Kind,
		ExternalID:      l.ExternalID,
		State:           l.State,
		ErrorMessage:    l.ErrorMessage,
		SalesOrderID:    l.SalesOrderID,
		PartnerID:       l.PartnerID,
		Skipped:         l.Skipped,
		ProcessAttempts: l.ProcessAttempts,
		ProcessedAt:     l.ProcessedAt,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

// LogLineResponse represents an import log line in API responses
type LogLineResponse struct {
	ID        uuid.UUID            `json:"id"`
	Level     integration.LogLevel `json:"level"`
	Message   string               `json:"message"`
	SKU       string               `json:"sku,omitempty"`
	OrderRef  string               `json:"order_ref,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// ToLogLineResponses converts domain log lines to response DTOs
func ToLogLineResponses(lines []integration.LogLine) []LogLineResponse {
	out := make([]LogLineResponse, len(lines))
	for i, l := range lines {
		out[i] = LogLineResponse{
			ID:        l.ID,
			Level:     l.Level,
			Message:   l.Message,
			SKU:       l.SKU,
			OrderRef:  l.OrderRef,
			CreatedAt: l.CreatedAt,
		}
	}
	return out
}
