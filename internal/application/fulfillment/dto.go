package fulfillment

import (
	"time"

	"github.com/shakeout/backend/internal/domain/fulfillment"
)

// SubmissionResult reports the outcome of submitting an order to the
// provider
type SubmissionResult struct {
	OrderNumber       string `json:"order_number"`
	RemoteOrderID     string `json:"remote_order_id"`
	RemoteOrderNumber string `json:"remote_order_number"`
	// AlreadyExisted is true when the order had been submitted before and
	// the existing reference was returned instead of creating a new one
	AlreadyExisted bool `json:"already_existed"`
}

// OrderView is the operator-facing submission state of an order
type OrderView struct {
	OrderNumber       string                  `json:"order_number"`
	Status            fulfillment.Status      `json:"status"`
	Paid              bool                    `json:"paid"`
	Total             string                  `json:"total"`
	RemoteOrderID     string                  `json:"remote_order_id,omitempty"`
	RemoteOrderNumber string                  `json:"remote_order_number,omitempty"`
	SyncEvents        []fulfillment.SyncEvent `json:"sync_events"`
}

// WebhookRequest is the inbound callback as captured by the HTTP layer
type WebhookRequest struct {
	Method    string
	Path      string
	Headers   string
	Body      []byte
	SourceIP  string
	Signature string
}

// WebhookResult tells the HTTP layer how to respond to a callback
type WebhookResult struct {
	HTTPStatus int
	Message    string

	// Resolution summary, exposed for logging and tests
	OrderFound    bool
	OrderNumber   string
	StatusChanged bool
}

// AuditRecordView is the admin-facing projection of one webhook audit record
type AuditRecordView struct {
	ID                string    `json:"id"`
	ReceivedAt        time.Time `json:"received_at"`
	Method            string    `json:"method"`
	SourceIP          string    `json:"source_ip"`
	ProviderStatus    string    `json:"provider_status"`
	OrderReference    string    `json:"order_reference"`
	MerchantReference string    `json:"merchant_reference"`
	SignatureVerified bool      `json:"signature_verified"`
	OrderFound        bool      `json:"order_found"`
	StatusChanged     bool      `json:"status_changed"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	ResponseStatus    int       `json:"response_status"`
	ProcessingMS      int64     `json:"processing_ms"`
}
