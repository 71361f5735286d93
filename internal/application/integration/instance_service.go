package integration

import (
	"context"
	"strings"

	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/trade"
	"github.com/google/uuid"
)

// InstanceService manages storefront instances
type InstanceService struct {
	instances integration.StorefrontInstanceRepository
	workflows trade.WorkflowRepository
}

// NewInstanceService creates a new InstanceService
func NewInstanceService(instances integration.StorefrontInstanceRepository, workflows trade.WorkflowRepository) *InstanceService {
	return &InstanceService{
		instances: instances,
		workflows: workflows,
	}
}

// Create creates a storefront instance
func (s *InstanceService) Create(ctx context.Context, req CreateInstanceRequest) (*InstanceResponse, error) {
	instance, err := integration.NewStorefrontInstance(req.Name, req.BaseURL, req.AccessToken)
	if err != nil {
		return nil, err
	}

	if code := strings.TrimSpace(req.StoreCode); code != "" {
		instance.StoreCode = code
	}
	mode := integration.PriceMode(strings.ToUpper(req.PriceMode))
	if mode == "" {
		mode = integration.PriceModeFixed
	}
	if err := instance.SetPriceMode(mode, req.UseBaseCurrency); err != nil {
		return nil, err
	}
	if req.WorkflowID != nil {
		if _, err := s.workflows.FindByID(ctx, *req.WorkflowID); err != nil {
			return nil, err
		}
		instance.AttachWorkflow(req.WorkflowID)
	}
	instance.ShippingProductSKU = strings.TrimSpace(req.ShippingProductSKU)
	instance.DiscountProductSKU = strings.TrimSpace(req.DiscountProductSKU)

	if err := s.instances.Save(ctx, instance); err != nil {
		return nil, err
	}
	resp := ToInstanceResponse(instance)
	return &resp, nil
}

// GetByID returns an instance
func (s *InstanceService) GetByID(ctx context.Context, id uuid.UUID) (*InstanceResponse, error) {
	instance, err := s.instances.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToInstanceResponse(instance)
	return &resp, nil
}

// List returns instances, optionally only the active ones
func (s *InstanceService) List(ctx context.Context, activeOnly bool) ([]InstanceResponse, error) {
	instances, err := s.instances.FindAll(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]InstanceResponse, len(instances))
	for i := range instances {
		out[i] = ToInstanceResponse(&instances[i])
	}
	return out, nil
}
