package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	appintegration "github.com/erp/connector/internal/application/integration"
	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/infrastructure/config"
	"github.com/erp/connector/internal/infrastructure/telemetry"
)

const (
	defaultPageSize        = 50
	defaultTimeout         = 30 * time.Second
	defaultMaxResponseSize = 20 << 20

	// updatedAtLayout is the timestamp format the storefront filters on
	updatedAtLayout = "2006-01-02 15:04:05"
)

// Client reads orders from a storefront REST API.
// It implements application/integration.OrderSource.
type Client struct {
	httpClient      *http.Client
	pageSize        int
	maxResponseSize int64
	logger          *zap.Logger
}

// NewClient creates a storefront client from configuration
func NewClient(cfg config.StorefrontConfig, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxResponseSize <= 0 {
		cfg.MaxResponseSize = defaultMaxResponseSize
	}
	return &Client{
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		pageSize:        cfg.PageSize,
		maxResponseSize: cfg.MaxResponseSize,
		logger:          logger,
	}
}

// searchResponse is the envelope of a search endpoint
type searchResponse struct {
	Items      []json.RawMessage `json:"items"`
	TotalCount int               `json:"total_count"`
}

// SearchOrders fetches one page of orders updated after since, oldest first
func (c *Client) SearchOrders(ctx context.Context, instance *integration.StorefrontInstance, since *time.Time, page int) (*appintegration.OrderPage, error) {
	ctx, span := telemetry.StartSpan(ctx, "storefront.search_orders", telemetry.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	telemetry.SetAttributes(span, "storefront.instance_id", instance.ID.String(), "storefront.page", page)

	if page < 1 {
		page = 1
	}
	endpoint, err := c.ordersURL(instance, since, page)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	body, err := c.doRequest(ctx, instance, endpoint)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var res searchResponse
	if err := json.Unmarshal(body, &res); err != nil {
		err = fmt.Errorf("%w: decode order search: %v", integration.ErrStorefrontRequestFailed, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	c.logger.Debug("Fetched storefront orders",
		zap.String("instance_id", instance.ID.String()),
		zap.Int("page", page),
		zap.Int("count", len(res.Items)),
		zap.Int("total_count", res.TotalCount),
	)

	return &appintegration.OrderPage{Orders: res.Items, TotalCount: res.TotalCount}, nil
}

// ordersURL builds the order search URL with an updated_at filter and paging
func (c *Client) ordersURL(instance *integration.StorefrontInstance, since *time.Time, page int) (string, error) {
	storeCode := instance.StoreCode
	if storeCode == "" {
		storeCode = "all"
	}
	base, err := url.Parse(instance.BaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", integration.ErrInstanceInvalidURL, err)
	}
	base = base.JoinPath("rest", storeCode, "V1", "orders")

	q := url.Values{}
	if since != nil {
		q.Set("searchCriteria[filter_groups][0][filters][0][field]", "updated_at")
		q.Set("searchCriteria[filter_groups][0][filters][0][value]", since.UTC().Format(updatedAtLayout))
		q.Set("searchCriteria[filter_groups][0][filters][0][condition_type]", "gt")
	}
	q.Set("searchCriteria[sortOrders][0][field]", "updated_at")
	q.Set("searchCriteria[sortOrders][0][direction]", "ASC")
	q.Set("searchCriteria[pageSize]", strconv.Itoa(c.pageSize))
	q.Set("searchCriteria[currentPage]", strconv.Itoa(page))
	base.RawQuery = q.Encode()

	return base.String(), nil
}

// doRequest performs an authenticated GET and returns the body
func (c *Client) doRequest(ctx context.Context, instance *integration.StorefrontInstance, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("storefront: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+instance.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrStorefrontUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("storefront: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrStorefrontUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrStorefrontUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d: %s", integration.ErrStorefrontRequestFailed, resp.StatusCode, errorMessage(body))
	}

	return body, nil
}

// errorMessage extracts the message field of an error body
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return http.StatusText(http.StatusBadRequest)
}
