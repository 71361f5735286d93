package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appintegration "github.com/erp/connector/internal/application/integration"
	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/shared"
)

// ProductMappingService is the mapping use case surface used by ProductMappingHandler
type ProductMappingService interface {
	CreateMapping(ctx context.Context, req appintegration.CreateProductMappingRequest) (*appintegration.ProductMappingResponse, error)
	RemapMapping(ctx context.Context, id, localProductID uuid.UUID) (*appintegration.ProductMappingResponse, error)
	DeleteMapping(ctx context.Context, id uuid.UUID) error
	GetMapping(ctx context.Context, id uuid.UUID) (*appintegration.ProductMappingResponse, error)
	ListMappings(ctx context.Context, filter integration.ProductMappingFilter) ([]appintegration.ProductMappingResponse, int64, error)
	ActivateMappings(ctx context.Context, ids []uuid.UUID) error
	DeactivateMappings(ctx context.Context, ids []uuid.UUID) error
}

// ProductMappingHandler handles storefront SKU to local product mappings
type ProductMappingHandler struct {
	BaseHandler
	mappings ProductMappingService
}

// NewProductMappingHandler creates a new ProductMappingHandler
func NewProductMappingHandler(mappings ProductMappingService) *ProductMappingHandler {
	return &ProductMappingHandler{mappings: mappings}
}

// ListProductMappingsQuery holds the list filters
type ListProductMappingsQuery struct {
	InstanceID     string `form:"instance_id" binding:"omitempty,uuid"`
	LocalProductID string `form:"local_product_id" binding:"omitempty,uuid"`
	IsActive       *bool  `form:"is_active"`
	Search         string `form:"search" binding:"max=128"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// RemapRequest points a mapping at another local product
type RemapRequest struct {
	LocalProductID uuid.UUID `json:"local_product_id" binding:"required"`
}

// MappingIDsRequest selects mappings for a bulk state change
type MappingIDsRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1,max=500"`
}

// Create godoc
// @ID           createProductMapping
// @Summary      Map a storefront product to a local product
// @Tags         product-mappings
// @Accept       json
// @Produce      json
// @Param        request body appintegration.CreateProductMappingRequest true "Mapping"
// @Success      201 {object} dto.Response{data=appintegration.ProductMappingResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /product-mappings [post]
func (h *ProductMappingHandler) Create(c *gin.Context) {
	var req appintegration.CreateProductMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	mapping, err := h.mappings.CreateMapping(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, mapping)
}

// List godoc
// @ID           listProductMappings
// @Summary      List product mappings
// @Tags         product-mappings
// @Produce      json
// @Param        instance_id query string false "Instance ID" format(uuid)
// @Param        local_product_id query string false "Local product ID" format(uuid)
// @Param        is_active query bool false "Active state"
// @Param        search query string false "SKU or external id fragment"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]appintegration.ProductMappingResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /product-mappings [get]
func (h *ProductMappingHandler) List(c *gin.Context) {
	var query ListProductMappingsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	filter := integration.ProductMappingFilter{
		IsActive:      query.IsActive,
		SearchKeyword: query.Search,
		Page:          max(query.Page, 1),
		PageSize:      shared.Filter{PageSize: query.PageSize}.Limit(),
	}
	if query.InstanceID != "" {
		id := uuid.MustParse(query.InstanceID)
		filter.InstanceID = &id
	}
	if query.LocalProductID != "" {
		id := uuid.MustParse(query.LocalProductID)
		filter.LocalProductID = &id
	}

	mappings, total, err := h.mappings.ListMappings(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, mappings, total, filter.Page, filter.PageSize)
}

// GetByID godoc
// @ID           getProductMapping
// @Summary      Get a product mapping
// @Tags         product-mappings
// @Produce      json
// @Param        id path string true "Mapping ID" format(uuid)
// @Success      200 {object} dto.Response{data=appintegration.ProductMappingResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /product-mappings/{id} [get]
func (h *ProductMappingHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id", "mapping")
	if !ok {
		return
	}

	mapping, err := h.mappings.GetMapping(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, mapping)
}

// Remap godoc
// @ID           remapProductMapping
// @Summary      Point a mapping at another local product
// @Tags         product-mappings
// @Accept       json
// @Produce      json
// @Param        id path string true "Mapping ID" format(uuid)
// @Param        request body RemapRequest true "Target product"
// @Success      200 {object} dto.Response{data=appintegration.ProductMappingResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /product-mappings/{id}/remap [put]
func (h *ProductMappingHandler) Remap(c *gin.Context) {
	id, ok := h.parseID(c, "id", "mapping")
	if !ok {
		return
	}
	var req RemapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	mapping, err := h.mappings.RemapMapping(c.Request.Context(), id, req.LocalProductID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, mapping)
}

// Delete godoc
// @ID           deleteProductMapping
// @Summary      Delete a product mapping
// @Tags         product-mappings
// @Produce      json
// @Param        id path string true "Mapping ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /product-mappings/{id} [delete]
func (h *ProductMappingHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id", "mapping")
	if !ok {
		return
	}

	if err := h.mappings.DeleteMapping(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Activate godoc
// @ID           activateProductMappings
// @Summary      Activate product mappings
// @Tags         product-mappings
// @Accept       json
// @Produce      json
// @Param        request body MappingIDsRequest true "Mapping IDs"
// @Success      204
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /product-mappings/activate [post]
func (h *ProductMappingHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate godoc
// @ID           deactivateProductMappings
// @Summary      Deactivate product mappings
// @Tags         product-mappings
// @Accept       json
// @Produce      json
// @Param        request body MappingIDsRequest true "Mapping IDs"
// @Success      204
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /product-mappings/deactivate [post]
func (h *ProductMappingHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *ProductMappingHandler) setActive(c *gin.Context, active bool) {
	var req MappingIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	var err error
	if active {
		err = h.mappings.ActivateMappings(c.Request.Context(), req.IDs)
	} else {
		err = h.mappings.DeactivateMappings(c.Request.Context(), req.IDs)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
