package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	tradeapp "github.com/erp/connector/internal/application/trade"
	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/interfaces/http/dto"
)

func setupSalesOrderTestRouter() (*gin.Engine, *MockSalesOrderReader) {
	gin.SetMode(gin.TestMode)

	reader := new(MockSalesOrderReader)
	h := NewSalesOrderHandler(reader)

	router := gin.New()
	router.GET("/sales-orders/:id", h.GetByID)

	return router, reader
}

func createTestSalesOrderResponse(externalID string) *tradeapp.SalesOrderResponse {
	now := time.Now()
	instanceID := uuid.New()
	return &tradeapp.SalesOrderResponse{
		ID:              uuid.New(),
		OrderNumber:     "SO-000000042",
		CustomerID:      uuid.New(),
		CustomerName:    "Jane Doe",
		TotalAmount:     decimal.RequireFromString("119.00"),
		CurrencyCode:    "EUR",
		Status:          "draft",
		InvoiceStatus:   "no",
		PaymentStatus:   "not_paid",
		InstanceID:      &instanceID,
		ExternalOrderID: externalID,
		Items: []tradeapp.SalesOrderItemResponse{
			{
				ID:          uuid.New(),
				Kind:        "product",
				ProductID:   uuid.New(),
				ProductName: "Messenger bag",
				ProductCode: "MB-01",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.RequireFromString("100.00"),
				Amount:      decimal.RequireFromString("100.00"),
				TaxIDs:      []uuid.UUID{uuid.New()},
			},
		},
		ItemCount: 1,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

func TestSalesOrderHandler_GetByID(t *testing.T) {
	t.Run("returns imported order", func(t *testing.T) {
		router, reader := setupSalesOrderTestRouter()
		order := createTestSalesOrderResponse("000000042")
		reader.On("GetByID", mock.Anything, order.ID).Return(order, nil)

		w := performRequest(router, http.MethodGet, "/sales-orders/"+order.ID.String(), "")

		assert.Equal(t, http.StatusOK, w.Code)
		data := dataMap(t, decodeResponse(t, w))
		assert.Equal(t, "000000042", data["external_order_id"])
		assert.Equal(t, "119", data["total_amount"])
		assert.Len(t, data["items"], 1)
		reader.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		router, reader := setupSalesOrderTestRouter()
		id := uuid.New()
		reader.On("GetByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		w := performRequest(router, http.MethodGet, "/sales-orders/"+id.String(), "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decodeResponse(t, w).Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		router, reader := setupSalesOrderTestRouter()

		w := performRequest(router, http.MethodGet, "/sales-orders/SO-42", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		reader.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("unexpected error is hidden", func(t *testing.T) {
		router, reader := setupSalesOrderTestRouter()
		id := uuid.New()
		reader.On("GetByID", mock.Anything, id).Return(nil, assert.AnError)

		w := performRequest(router, http.MethodGet, "/sales-orders/"+id.String(), "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "An unexpected error occurred", decodeResponse(t, w).Error.Message)
	})
}
