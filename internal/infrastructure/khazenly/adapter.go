package khazenly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/shakeout/backend/internal/domain/fulfillment"
	"github.com/shakeout/backend/internal/infrastructure/cache"
	"github.com/shakeout/backend/internal/infrastructure/logger"
)

// maxResponseSize is the maximum allowed response size from Khazenly API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// errDuplicateReported is an internal marker for an application error whose
// text carries a duplicate-order signal. The submit flow converts it to
// either an idempotent success or fulfillment.ErrDuplicateConflict.
var errDuplicateReported = errors.New("khazenly: provider reported a duplicate order")

// RetryPolicy bounds the automatic resubmission behavior. Only the
// corrupted-customer-data error class is ever retried, with stricter
// sanitization, and at most MaxExtraAttempts times.
type RetryPolicy struct {
	MaxExtraAttempts int
}

// DefaultRetryPolicy allows a single strict-sanitization retry
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxExtraAttempts: 1}
}

// createOrderResponse is the CreateOrder API response body
type createOrderResponse struct {
	ResultCode int              `json:"resultCode"`
	Result     string           `json:"result"`
	Message    string           `json:"message"`
	Order      *remoteOrderData `json:"order"`
}

// IsSuccess returns true if the API call was successful
func (r *createOrderResponse) IsSuccess() bool {
	return r.ResultCode == 0
}

// remoteOrderData is the provider's order reference block
type remoteOrderData struct {
	ID               string `json:"id"`
	SalesOrderNumber string `json:"salesOrderNumber"`
	OrderNumber      string `json:"orderNumber"`
}

// orderStatusResponse is the order query API response body
type orderStatusResponse struct {
	ResultCode int              `json:"resultCode"`
	Message    string           `json:"message"`
	Order      *remoteOrderData `json:"order"`
}

// IsSuccess returns true if the API call was successful
func (r *orderStatusResponse) IsSuccess() bool {
	return r.ResultCode == 0
}

// Adapter implements fulfillment.Provider against the Khazenly API
type Adapter struct {
	config     *Config
	tokens     *TokenManager
	builder    *PayloadBuilder
	httpClient *http.Client
	retry      RetryPolicy
}

// NewAdapter creates a Khazenly adapter with the given configuration
func NewAdapter(config *Config, tokenCache cache.TokenCache) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Adapter{
		config:  config,
		tokens:  NewTokenManager(config, tokenCache),
		builder: NewPayloadBuilder(config.StoreName, config.OrderUserEmail),
		httpClient: &http.Client{
			Timeout: config.OrderTimeout,
		},
		retry: DefaultRetryPolicy(),
	}, nil
}

// WithRetryPolicy overrides the default retry policy
func (a *Adapter) WithRetryPolicy(policy RetryPolicy) *Adapter {
	a.retry = policy
	return a
}

// SubmitOrder builds, validates and submits the CreateOrder payload.
// Validation failures return *fulfillment.ValidationError before any network
// call. A corrupted-customer-data rejection triggers one rebuild with strict
// sanitization; a duplicate rejection resolves to the existing remote order
// when the provider can return it.
func (a *Adapter) SubmitOrder(ctx context.Context, order *fulfillment.Order, customer *fulfillment.Customer, address *fulfillment.ShippingAddress) (*fulfillment.RemoteOrder, error) {
	token, err := a.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload, warnings, err := a.builder.Build(order, customer, address, false)
	for _, w := range warnings {
		logger.L(ctx).Warn("payload warning",
			zap.String("order_number", order.OrderNumber),
			zap.String("warning", w))
	}
	if err != nil {
		return nil, err
	}

	remote, err := a.createOrder(ctx, token, payload)
	if err == nil {
		return remote, nil
	}

	if errors.Is(err, fulfillment.ErrCorruptedCustomerData) && a.retry.MaxExtraAttempts > 0 {
		logger.L(ctx).Warn("provider rejected customer data, retrying with strict sanitization",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))

		strictPayload, _, buildErr := a.builder.Build(order, customer, address, true)
		if buildErr != nil {
			return nil, err
		}
		remote, retryErr := a.createOrder(ctx, token, strictPayload)
		if retryErr == nil {
			return remote, nil
		}
		err = retryErr
	}

	if errors.Is(err, errDuplicateReported) {
		existing, lookupErr := a.lookupOrder(ctx, token, order.OrderNumber)
		if lookupErr == nil {
			logger.L(ctx).Info("duplicate resolved to existing remote order",
				zap.String("order_number", order.OrderNumber),
				zap.String("sales_order_number", existing.SalesOrderNumber))
			return &fulfillment.RemoteOrder{
				ID:               existing.ID,
				SalesOrderNumber: existing.SalesOrderNumber,
				OrderNumber:      existing.OrderNumber,
				AlreadyExisted:   true,
			}, nil
		}
		return nil, fmt.Errorf("%w: %v", fulfillment.ErrDuplicateConflict, err)
	}

	return nil, err
}

// OrderStatus fetches the provider's raw view of a remote order
func (a *Adapter) OrderStatus(ctx context.Context, salesOrderNumber string) (json.RawMessage, error) {
	token, err := a.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, status, err := a.doRequest(ctx, http.MethodGet,
		a.config.BaseURL+orderStatusPath+url.PathEscape(salesOrderNumber), token, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", fulfillment.ErrRemoteOrderNotFound, salesOrderNumber)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: order query returned HTTP %d", fulfillment.ErrProviderUnavailable, status)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: order query returned non-JSON body", fulfillment.ErrInvalidResponse)
	}
	return json.RawMessage(body), nil
}

// createOrder posts the payload and classifies the outcome
func (a *Adapter) createOrder(ctx context.Context, token string, payload *CreateOrderPayload) (*fulfillment.RemoteOrder, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("khazenly: failed to encode payload: %w", err)
	}

	respBody, status, err := a.doRequest(ctx, http.MethodPost,
		a.config.BaseURL+createOrderPath, token, body)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		// Token died mid-lifetime; drop the cached copy so the next
		// attempt refreshes
		a.tokens.Invalidate(ctx)
		return nil, fmt.Errorf("%w: create order returned HTTP %d", fulfillment.ErrTokenUnavailable, status)
	case status >= 500:
		return nil, fmt.Errorf("%w: create order returned HTTP %d", fulfillment.ErrProviderUnavailable, status)
	case status != http.StatusOK:
		return nil, fmt.Errorf("%w: create order returned HTTP %d", fulfillment.ErrOrderRejected, status)
	}

	var resp createOrderResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", fulfillment.ErrInvalidResponse, err)
	}

	if !resp.IsSuccess() {
		return nil, classifyAppError(resp.Result, resp.Message)
	}
	if resp.Order == nil {
		return nil, fmt.Errorf("%w: success response without order block", fulfillment.ErrInvalidResponse)
	}

	return &fulfillment.RemoteOrder{
		ID:               resp.Order.ID,
		SalesOrderNumber: resp.Order.SalesOrderNumber,
		OrderNumber:      resp.Order.OrderNumber,
	}, nil
}

// lookupOrder queries the order endpoint by our order number, used to
// recover the existing remote reference on a duplicate rejection
func (a *Adapter) lookupOrder(ctx context.Context, token, orderNumber string) (*remoteOrderData, error) {
	body, status, err := a.doRequest(ctx, http.MethodGet,
		a.config.BaseURL+orderStatusPath+url.PathEscape(orderNumber), token, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", fulfillment.ErrRemoteOrderNotFound, orderNumber)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: order query returned HTTP %d", fulfillment.ErrProviderUnavailable, status)
	}

	var resp orderStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", fulfillment.ErrInvalidResponse, err)
	}
	if !resp.IsSuccess() || resp.Order == nil {
		return nil, fmt.Errorf("%w: %s", fulfillment.ErrRemoteOrderNotFound, orderNumber)
	}
	return resp.Order, nil
}

// doRequest performs an authenticated HTTP request against the Khazenly API.
// Transport-level failures map to ErrProviderUnavailable; HTTP status
// handling is left to the caller.
func (a *Adapter) doRequest(ctx context.Context, method, requestURL, token string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("khazenly: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", fulfillment.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading response: %v", fulfillment.ErrProviderUnavailable, err)
	}

	return respBody, resp.StatusCode, nil
}

// classifyAppError maps the provider's application-level error text onto the
// fulfillment error taxonomy
func classifyAppError(result, message string) error {
	text := strings.TrimSpace(result + " " + message)
	upper := strings.ToUpper(text)

	switch {
	case strings.Contains(upper, "DUPLICATE_VALUE"),
		strings.Contains(upper, "ALREADY EXISTS"):
		return fmt.Errorf("%w: %s", errDuplicateReported, text)
	case strings.Contains(upper, "CORRUPTED"),
		strings.Contains(upper, "INVALID_CUSTOMER"),
		strings.Contains(upper, "MALFORMED"):
		return fmt.Errorf("%w: %s", fulfillment.ErrCorruptedCustomerData, text)
	case strings.Contains(upper, "STRING_TOO_LONG"):
		return fmt.Errorf("%w: a text field exceeds the provider length limit: %s", fulfillment.ErrOrderRejected, text)
	case strings.Contains(upper, "REQUIRED_FIELD_MISSING"):
		return fmt.Errorf("%w: the provider reports a missing required field: %s", fulfillment.ErrOrderRejected, text)
	default:
		return fmt.Errorf("%w: %s", fulfillment.ErrOrderRejected, text)
	}
}

// Ensure Adapter implements the Provider interface
var _ fulfillment.Provider = (*Adapter)(nil)
