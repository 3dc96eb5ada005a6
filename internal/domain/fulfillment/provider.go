package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Provider error taxonomy. The submission orchestrator classifies every
// outbound failure into one of these so operator tooling can show the exact
// reason and decide whether a later retry makes sense.
var (
	// ErrProviderUnavailable marks transient failures (timeout, connection
	// error). Safe to retry later; no state was changed.
	ErrProviderUnavailable = errors.New("fulfillment: provider unavailable")

	// ErrTokenUnavailable marks a failed credential exchange. Transient:
	// the create-order call was never attempted.
	ErrTokenUnavailable = errors.New("fulfillment: access token unavailable")

	// ErrInvalidResponse marks an unparsable provider response body.
	ErrInvalidResponse = errors.New("fulfillment: invalid provider response")

	// ErrCorruptedCustomerData marks the provider error class that triggers
	// a single automatic retry with stricter sanitization.
	ErrCorruptedCustomerData = errors.New("fulfillment: provider rejected customer data")

	// ErrDuplicateConflict marks a duplicate signal from the provider for
	// which no existing remote order could be found. Needs manual
	// reconciliation.
	ErrDuplicateConflict = errors.New("fulfillment: duplicate reported but remote order not found")

	// ErrOrderRejected marks a permanent application-level rejection.
	ErrOrderRejected = errors.New("fulfillment: provider rejected the order")

	// ErrRemoteOrderNotFound marks a missing remote order on a status query.
	ErrRemoteOrderNotFound = errors.New("fulfillment: remote order not found")
)

// ValidationIssue describes a single payload validation violation with
// enough concrete detail for an operator to fix the data.
type ValidationIssue struct {
	Field  string `json:"field"`
	Detail string `json:"detail"`
	Value  string `json:"value,omitempty"`
}

func (i ValidationIssue) String() string {
	if i.Value != "" {
		return fmt.Sprintf("%s: %s (value: %q)", i.Field, i.Detail, i.Value)
	}
	return fmt.Sprintf("%s: %s", i.Field, i.Detail)
}

// ValidationError aggregates all payload validation issues found for an
// order. It is permanent until the underlying data is fixed; the orchestrator
// never retries it automatically.
type ValidationError struct {
	Issues []ValidationIssue
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.String()
	}
	return "fulfillment: payload validation failed: " + strings.Join(msgs, "; ")
}

// RemoteOrder is the provider-assigned order reference returned by a
// successful (or idempotently resolved) submission.
type RemoteOrder struct {
	ID               string
	SalesOrderNumber string
	OrderNumber      string
	// AlreadyExisted is true when the provider already had the order and
	// the existing reference was recovered instead of creating a new one.
	AlreadyExisted bool
}

// Provider is the outbound contract to the logistics/fulfillment provider
type Provider interface {
	// SubmitOrder builds, validates and submits the provider payload for a
	// paid order. On validation failure it returns a *ValidationError; other
	// failures are classified with the sentinel errors above.
	SubmitOrder(ctx context.Context, order *Order, customer *Customer, address *ShippingAddress) (*RemoteOrder, error)

	// OrderStatus fetches the provider's current view of a remote order by
	// its provider sales-order number.
	OrderStatus(ctx context.Context, salesOrderNumber string) (json.RawMessage, error)
}
