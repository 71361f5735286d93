package storefront

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/infrastructure/config"
)

func newTestInstance(t *testing.T, baseURL string) *integration.StorefrontInstance {
	t.Helper()
	instance, err := integration.NewStorefrontInstance("Main shop", baseURL, "secret-token")
	require.NoError(t, err)
	instance.StoreCode = "default"
	return instance
}

func newTestClient(pageSize int) *Client {
	return NewClient(config.StorefrontConfig{Timeout: 2 * time.Second, PageSize: pageSize}, zap.NewNop())
}

func TestClient_SearchOrders(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"increment_id":"000000001"},{"increment_id":"000000002"}],"total_count":5}`))
	}))
	defer server.Close()

	since := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	page, err := newTestClient(2).SearchOrders(context.Background(), newTestInstance(t, server.URL), &since, 2)

	require.NoError(t, err)
	assert.Equal(t, "/rest/default/V1/orders", gotPath)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "updated_at", gotQuery["searchCriteria[filter_groups][0][filters][0][field]"][0])
	assert.Equal(t, "2024-03-01 08:30:00", gotQuery["searchCriteria[filter_groups][0][filters][0][value]"][0])
	assert.Equal(t, "gt", gotQuery["searchCriteria[filter_groups][0][filters][0][condition_type]"][0])
	assert.Equal(t, "2", gotQuery["searchCriteria[pageSize]"][0])
	assert.Equal(t, "2", gotQuery["searchCriteria[currentPage]"][0])

	require.Len(t, page.Orders, 2)
	assert.JSONEq(t, `{"increment_id":"000000001"}`, string(page.Orders[0]))
	assert.Equal(t, 5, page.TotalCount)
}

func TestClient_SearchOrdersWithoutWatermark(t *testing.T) {
	var hasFilter bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasFilter = r.URL.Query()["searchCriteria[filter_groups][0][filters][0][field]"]
		_, _ = w.Write([]byte(`{"items":[],"total_count":0}`))
	}))
	defer server.Close()

	instance := newTestInstance(t, server.URL)
	instance.StoreCode = ""
	page, err := newTestClient(0).SearchOrders(context.Background(), instance, nil, 0)

	require.NoError(t, err)
	assert.False(t, hasFilter)
	assert.Empty(t, page.Orders)
	assert.Zero(t, page.TotalCount)
}

func TestClient_SearchOrdersErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"message":"denied"}`, wantErr: integration.ErrStorefrontUnauthorized},
		{name: "server error", status: http.StatusBadGateway, body: ``, wantErr: integration.ErrStorefrontUnavailable},
		{name: "bad request", status: http.StatusBadRequest, body: `{"message":"field is invalid"}`, wantErr: integration.ErrStorefrontRequestFailed, wantMsg: "field is invalid"},
		{name: "malformed body", status: http.StatusOK, body: `{"items":`, wantErr: integration.ErrStorefrontRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(10).SearchOrders(context.Background(), newTestInstance(t, server.URL), nil, 1)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestClient_SearchOrdersUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(10).SearchOrders(context.Background(), newTestInstance(t, url), nil, 1)
	assert.ErrorIs(t, err, integration.ErrStorefrontUnavailable)
}
