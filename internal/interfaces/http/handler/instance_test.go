package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	appintegration "github.com/erp/connector/internal/application/integration"
	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/interfaces/http/dto"
)

func setupInstanceTestRouter() (*gin.Engine, *MockInstanceService, *MockOrderQueueService, *MockCustomerQueueService) {
	gin.SetMode(gin.TestMode)

	instances := new(MockInstanceService)
	orders := new(MockOrderQueueService)
	customers := new(MockCustomerQueueService)
	h := NewInstanceHandler(instances, orders, customers)

	router := gin.New()
	router.POST("/instances", h.Create)
	router.GET("/instances", h.List)
	router.GET("/instances/:id", h.GetByID)
	router.POST("/instances/:id/order-queues", h.EnqueueOrders)
	router.POST("/instances/:id/order-queues/pull", h.PullOrders)
	router.POST("/instances/:id/customer-queues", h.EnqueueCustomers)

	return router, instances, orders, customers
}

func createTestInstanceResponse(name string) *appintegration.InstanceResponse {
	now := time.Now()
	return &appintegration.InstanceResponse{
		ID:        uuid.New(),
		Name:      name,
		BaseURL:   "https://shop.example.com",
		PriceMode: "FIXED",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInstanceHandler_Create(t *testing.T) {
	t.Run("creates instance", func(t *testing.T) {
		router, instances, _, _ := setupInstanceTestRouter()

		expected := appintegration.CreateInstanceRequest{
			Name:        "EU store",
			BaseURL:     "https://shop.example.com",
			AccessToken: "secret",
			PriceMode:   "PROPORTIONAL",
		}
		instances.On("Create", mock.Anything, expected).Return(createTestInstanceResponse("EU store"), nil)

		w := performRequest(router, http.MethodPost, "/instances",
			`{"name":"EU store","base_url":"https://shop.example.com","access_token":"secret","price_mode":"PROPORTIONAL"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		data := dataMap(t, resp)
		assert.Equal(t, "EU store", data["name"])
		assert.NotContains(t, data, "access_token")
		instances.AssertExpectations(t)
	})

	t.Run("rejects missing fields with details", func(t *testing.T) {
		router, instances, _, _ := setupInstanceTestRouter()

		w := performRequest(router, http.MethodPost, "/instances", `{"name":"EU store"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.Details)
		instances.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown price mode", func(t *testing.T) {
		router, _, _, _ := setupInstanceTestRouter()

		w := performRequest(router, http.MethodPost, "/instances",
			`{"name":"EU store","base_url":"https://shop.example.com","access_token":"secret","price_mode":"AVERAGE"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps unknown workflow to 404", func(t *testing.T) {
		router, instances, _, _ := setupInstanceTestRouter()
		instances.On("Create", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

		w := performRequest(router, http.MethodPost, "/instances",
			fmt.Sprintf(`{"name":"EU store","base_url":"https://shop.example.com","access_token":"secret","workflow_id":"%s"}`, uuid.New()))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestInstanceHandler_GetByID(t *testing.T) {
	t.Run("returns instance", func(t *testing.T) {
		router, instances, _, _ := setupInstanceTestRouter()
		instance := createTestInstanceResponse("EU store")
		instances.On("GetByID", mock.Anything, instance.ID).Return(instance, nil)

		w := performRequest(router, http.MethodGet, "/instances/"+instance.ID.String(), "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, instance.ID.String(), dataMap(t, decodeResponse(t, w))["id"])
	})

	t.Run("invalid id", func(t *testing.T) {
		router, instances, _, _ := setupInstanceTestRouter()

		w := performRequest(router, http.MethodGet, "/instances/not-a-uuid", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		instances.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		router, instances, _, _ := setupInstanceTestRouter()
		id := uuid.New()
		instances.On("GetByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		w := performRequest(router, http.MethodGet, "/instances/"+id.String(), "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decodeResponse(t, w).Error.Code)
	})
}

func TestInstanceHandler_List(t *testing.T) {
	router, instances, _, _ := setupInstanceTestRouter()
	instances.On("List", mock.Anything, true).Return([]appintegration.InstanceResponse{
		*createTestInstanceResponse("EU store"),
		*createTestInstanceResponse("US store"),
	}, nil)

	w := performRequest(router, http.MethodGet, "/instances?active_only=true", "")

	assert.Equal(t, http.StatusOK, w.Code)
	data, ok := decodeResponse(t, w).Data.([]any)
	assert.True(t, ok)
	assert.Len(t, data, 2)
	instances.AssertExpectations(t)
}

func TestInstanceHandler_EnqueueOrders(t *testing.T) {
	instanceID := uuid.New()

	t.Run("enqueues each array element", func(t *testing.T) {
		router, _, orders, _ := setupInstanceTestRouter()
		orders.On("EnqueueOrders", mock.Anything, instanceID, mock.MatchedBy(func(raw []json.RawMessage) bool {
			return len(raw) == 2
		})).Return(&appintegration.EnqueueResult{
			InstanceID: instanceID,
			Kind:       integration.QueueKindOrder,
			QueueIDs:   []uuid.UUID{uuid.New()},
			Enqueued:   1,
			Duplicates: 1,
		}, nil)

		w := performRequest(router, http.MethodPost, "/instances/"+instanceID.String()+"/order-queues",
			`[{"increment_id":"000000042"},{"increment_id":"000000041"}]`)

		assert.Equal(t, http.StatusAccepted, w.Code)
		data := dataMap(t, decodeResponse(t, w))
		assert.Equal(t, float64(1), data["enqueued"])
		assert.Equal(t, float64(1), data["duplicates"])
		orders.AssertExpectations(t)
	})

	t.Run("rejects an object body", func(t *testing.T) {
		router, _, orders, _ := setupInstanceTestRouter()

		w := performRequest(router, http.MethodPost, "/instances/"+instanceID.String()+"/order-queues",
			`{"increment_id":"000000042"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		orders.AssertNotCalled(t, "EnqueueOrders", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects an empty array", func(t *testing.T) {
		router, _, orders, _ := setupInstanceTestRouter()

		w := performRequest(router, http.MethodPost, "/instances/"+instanceID.String()+"/order-queues", `[]`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		orders.AssertNotCalled(t, "EnqueueOrders", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid payload", func(t *testing.T) {
		router, _, orders, _ := setupInstanceTestRouter()
		orders.On("EnqueueOrders", mock.Anything, instanceID, mock.Anything).
			Return(nil, fmt.Errorf("%w: order #0 has no increment_id", integration.ErrInvalidPayload))

		w := performRequest(router, http.MethodPost, "/instances/"+instanceID.String()+"/order-queues", `[{"items":[]}]`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w).Error.Code)
	})

	t.Run("inactive instance", func(t *testing.T) {
		router, _, orders, _ := setupInstanceTestRouter()
		orders.On("EnqueueOrders", mock.Anything, instanceID, mock.Anything).Return(nil, integration.ErrInstanceInactive)

		w := performRequest(router, http.MethodPost, "/instances/"+instanceID.String()+"/order-queues", `[{"increment_id":"1"}]`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInstanceInactive, decodeResponse(t, w).Error.Code)
	})
}

func TestInstanceHandler_PullOrders(t *testing.T) {
	instanceID := uuid.New()

	tests := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{name: "pulled", expectedCode: http.StatusAccepted},
		{name: "storefront down", err: fmt.Errorf("page 1: %w", integration.ErrStorefrontUnavailable), expectedCode: http.StatusBadGateway},
		{name: "token rejected", err: integration.ErrStorefrontUnauthorized, expectedCode: http.StatusBadGateway},
		{name: "no client", err: shared.NewDomainError("NOT_CONFIGURED", "Storefront client is not configured"), expectedCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, orders, _ := setupInstanceTestRouter()
			if tt.err != nil {
				orders.On("PullOrders", mock.Anything, instanceID).Return(nil, tt.err)
			} else {
				orders.On("PullOrders", mock.Anything, instanceID).Return(&appintegration.EnqueueResult{Enqueued: 3}, nil)
			}

			w := performRequest(router, http.MethodPost, "/instances/"+instanceID.String()+"/order-queues/pull", "")

			assert.Equal(t, tt.expectedCode, w.Code)
			orders.AssertExpectations(t)
		})
	}
}

func TestInstanceHandler_EnqueueCustomers(t *testing.T) {
	router, _, _, customers := setupInstanceTestRouter()
	instanceID := uuid.New()
	customers.On("EnqueueCustomers", mock.Anything, instanceID, mock.Anything).
		Return(&appintegration.EnqueueResult{Kind: integration.QueueKindCustomer, Enqueued: 1}, nil)

	w := performRequest(router, http.MethodPost, "/instances/"+instanceID.String()+"/customer-queues",
		`[{"id":7,"email":"jane@example.com","firstname":"Jane","lastname":"Doe"}]`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, string(integration.QueueKindCustomer), dataMap(t, decodeResponse(t, w))["kind"])
	customers.AssertExpectations(t)
}
