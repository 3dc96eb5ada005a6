package fulfillment

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shakeout/backend/internal/domain/shared"
)

// SyncEventCap is the maximum number of synchronization events kept per
// order. Older entries are evicted when the cap is reached.
const SyncEventCap = 10

// SyncEvent is a small summary of one synchronization touchpoint with the
// logistics provider (submission attempt or webhook status update).
type SyncEvent struct {
	Kind           string    `json:"kind"`
	ProviderStatus string    `json:"provider_status,omitempty"`
	Status         Status    `json:"status,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Sync event kinds
const (
	SyncEventSubmitted    = "submitted"
	SyncEventStatusUpdate = "status_update"
)

// SyncEventList is a capped, append-only list of sync events persisted as a
// JSON column.
type SyncEventList []SyncEvent

// Value implements driver.Valuer for database serialization
func (l SyncEventList) Value() (driver.Value, error) {
	if l == nil {
		l = SyncEventList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for database deserialization
func (l *SyncEventList) Scan(value interface{}) error {
	if value == nil {
		*l = SyncEventList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for SyncEventList: %T", value)
	}
	return json.Unmarshal(data, l)
}

// OrderLineItem represents a purchased item within an order.
// Immutable once the order is placed.
type OrderLineItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null"`
	ProductCode    string          `gorm:"size:50"`
	ProductName    string          `gorm:"size:255;not null"`
	Quantity       int             `gorm:"not null"`
	UnitPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Size           string          `gorm:"size:20"`
	Color          string          `gorm:"size:50"`
	CreatedAt      time.Time
}

// LineTotal returns the discounted total for this line:
// unit price * quantity - discount.
func (i *OrderLineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Sub(i.DiscountAmount)
}

// Order represents a customer's paid purchase subject to fulfillment
// tracking. Created by the checkout flow; owned by the fulfillment subsystem
// once paid.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber    string `gorm:"size:50;uniqueIndex;not null"`
	CustomerID     uuid.UUID
	Paid           bool
	Status         Status `gorm:"size:20;not null;default:'INITIATED'"`
	ShippingFee    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	GiftDiscount   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	CouponDiscount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Items          []OrderLineItem `gorm:"foreignKey:OrderID"`

	// Provider order references. Set once on successful submission,
	// never cleared afterwards. The provider assigns both a sales order
	// number and its own order number; callbacks may carry either.
	RemoteOrderID        *string `gorm:"size:100"`
	RemoteOrderNumber    *string `gorm:"size:100;index"`
	RemoteProviderNumber *string `gorm:"size:100;index"`

	SyncEvents SyncEventList `gorm:"type:jsonb"`
}

// NewOrder creates a new order in the Initiated state
func NewOrder(orderNumber string, customerID uuid.UUID) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}

	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		CustomerID:        customerID,
		Status:            StatusInitiated,
		ShippingFee:       decimal.Zero,
		GiftDiscount:      decimal.Zero,
		CouponDiscount:    decimal.Zero,
		Items:             make([]OrderLineItem, 0),
		SyncEvents:        SyncEventList{},
	}, nil
}

// AddItem appends a line item to the order
func (o *Order) AddItem(productID uuid.UUID, productCode, productName string, quantity int, unitPrice, discount decimal.Decimal, size, color string) (*OrderLineItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if discount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}

	item := OrderLineItem{
		ID:             uuid.New(),
		OrderID:        o.ID,
		ProductID:      productID,
		ProductCode:    productCode,
		ProductName:    productName,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		DiscountAmount: discount,
		Size:           size,
		Color:          color,
		CreatedAt:      time.Now(),
	}
	o.Items = append(o.Items, item)
	o.UpdatedAt = time.Now()
	return &o.Items[len(o.Items)-1], nil
}

// MarkPaid marks the order as paid, moving it into fulfillment ownership
func (o *Order) MarkPaid() {
	o.Paid = true
	if o.Status == StatusInitiated {
		o.Status = StatusPaid
	}
	o.UpdatedAt = time.Now()
}

// ItemsSubtotal returns the discounted sum of all line items
func (o *Order) ItemsSubtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for idx := range o.Items {
		subtotal = subtotal.Add(o.Items[idx].LineTotal())
	}
	return subtotal
}

// FinalTotal recomputes the payable total from current line items and
// discounts. Never cached: subtotal + shipping - gift - coupon.
func (o *Order) FinalTotal() decimal.Decimal {
	return o.ItemsSubtotal().
		Add(o.ShippingFee).
		Sub(o.GiftDiscount).
		Sub(o.CouponDiscount)
}

// HasRemoteOrder reports whether a provider order reference is attached
func (o *Order) HasRemoteOrder() bool {
	return o.RemoteOrderID != nil || o.RemoteOrderNumber != nil
}

// AttachRemoteOrder records the provider-assigned order references.
// The references are one-time: once set they are never cleared or replaced.
func (o *Order) AttachRemoteOrder(remoteID, remoteOrderNumber, providerNumber string) error {
	if o.HasRemoteOrder() {
		return shared.NewDomainError("REMOTE_ORDER_EXISTS", "Order already has a provider order reference")
	}
	if remoteID == "" && remoteOrderNumber == "" {
		return shared.NewDomainError("INVALID_REMOTE_ORDER", "Provider order reference cannot be empty")
	}
	now := time.Now()
	if remoteID != "" {
		o.RemoteOrderID = &remoteID
	}
	if remoteOrderNumber != "" {
		o.RemoteOrderNumber = &remoteOrderNumber
	}
	if providerNumber != "" {
		o.RemoteProviderNumber = &providerNumber
	}
	o.UpdatedAt = now
	return nil
}

// ApplyStatus sets the fulfillment status, returning true when the value
// actually changed. Transitions are best-effort: the last mapped status
// wins, no legality check against the current state.
func (o *Order) ApplyStatus(status Status) bool {
	if !status.IsValid() || o.Status == status {
		return false
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return true
}

// AppendSyncEvent appends an event to the bounded sync history,
// evicting the oldest entry once the cap is reached.
func (o *Order) AppendSyncEvent(event SyncEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	o.SyncEvents = append(o.SyncEvents, event)
	if len(o.SyncEvents) > SyncEventCap {
		o.SyncEvents = o.SyncEvents[len(o.SyncEvents)-SyncEventCap:]
	}
	o.UpdatedAt = time.Now()
}
