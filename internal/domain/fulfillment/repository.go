package fulfillment

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository is the persistence contract for fulfillment orders
type OrderRepository interface {
	// FindByOrderNumber finds an order by its human-readable order number.
	// Returns shared.ErrNotFound when no order matches.
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindByRemoteReference finds an order by any of its provider
	// references: the provider order id, the sales order number or the
	// provider order number.
	FindByRemoteReference(ctx context.Context, ref string) (*Order, error)

	// Save persists the order and its items
	Save(ctx context.Context, order *Order) error

	// UpdateLocked loads the order by id under a row lock, applies fn and
	// persists the result within the same transaction. Used by the webhook
	// path so concurrent callbacks for the same order cannot clobber each
	// other's status writes.
	UpdateLocked(ctx context.Context, orderID uuid.UUID, fn func(*Order) error) error
}

// CustomerReader provides read-only access to customer contact data and
// shipping addresses owned by other contexts.
type CustomerReader interface {
	CustomerByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	AddressByOrderID(ctx context.Context, orderID uuid.UUID) (*ShippingAddress, error)
}

// WebhookAuditRepository is the append-only store for webhook audit records
type WebhookAuditRepository interface {
	// Create persists a new audit record. Called before any business logic
	// runs for an inbound callback.
	Create(ctx context.Context, record *WebhookAuditRecord) error

	// Finalize writes the response and resolution fields captured at the
	// end of callback processing. Best-effort: callers log failures and
	// continue.
	Finalize(ctx context.Context, record *WebhookAuditRecord) error

	// ListByOrderNumber returns the most recent audit records for an order
	ListByOrderNumber(ctx context.Context, orderNumber string, limit int) ([]WebhookAuditRecord, error)
}
