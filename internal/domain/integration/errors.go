package integration

import "errors"

// Pricing errors
var (
	ErrPriceUnresolvable    = errors.New("integration: unit price cannot be resolved from line payload")
	ErrNegativePrice        = errors.New("integration: resolved price is negative")
	ErrInvalidQuantity      = errors.New("integration: ordered quantity must be positive")
	ErrInvalidTaxPercent    = errors.New("integration: invalid tax percent")
	ErrZeroAllocationWeight = errors.New("integration: order lines carry no allocation weight")
	ErrInvalidPriceMode     = errors.New("integration: invalid price mode")
)

// Payload and import errors
var (
	ErrInvalidPayload     = errors.New("integration: invalid storefront payload")
	ErrProductNotResolved = errors.New("integration: product not resolved")
	ErrTaxNotResolved     = errors.New("integration: tax not resolved")
	ErrOrderAlreadyExists = errors.New("integration: order already imported")
)

// Instance errors
var (
	ErrInstanceInvalidName = errors.New("integration: instance name is required")
	ErrInstanceInvalidURL  = errors.New("integration: instance base URL must be an absolute http(s) URL")
	ErrInstanceInactive    = errors.New("integration: instance is not active")
)

// Queue errors
var (
	ErrQueueLineNotProcessable = errors.New("integration: queue line is not in a processable state")
	ErrQueueLineNotCancellable = errors.New("integration: queue line cannot be cancelled")
	ErrQueueLineEmptyData      = errors.New("integration: queue line data is empty")
	ErrQueueInvalidKind        = errors.New("integration: invalid queue kind")
)

// Mapping errors
var (
	ErrMappingInvalidInstanceID = errors.New("integration: invalid instance ID")
	ErrMappingInvalidProductID  = errors.New("integration: invalid product ID")
	ErrMappingInvalidSKU        = errors.New("integration: external SKU is required")
	ErrMappingAlreadyExists     = errors.New("integration: product mapping already exists")
	ErrMappingNotFound          = errors.New("integration: product mapping not found")
)

// Storefront errors
var (
	ErrStorefrontUnavailable   = errors.New("integration: storefront unavailable")
	ErrStorefrontRequestFailed = errors.New("integration: storefront request failed")
	ErrStorefrontUnauthorized  = errors.New("integration: storefront rejected the access token")
)
