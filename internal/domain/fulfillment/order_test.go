package fulfillment

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder("ORD-1001", uuid.New())
	require.NoError(t, err)
	return order
}

func TestNewOrder(t *testing.T) {
	t.Run("valid order", func(t *testing.T) {
		order := newTestOrder(t)
		assert.Equal(t, "ORD-1001", order.OrderNumber)
		assert.Equal(t, StatusInitiated, order.Status)
		assert.False(t, order.Paid)
		assert.False(t, order.HasRemoteOrder())
		assert.Empty(t, order.Items)
	})

	t.Run("empty order number", func(t *testing.T) {
		_, err := NewOrder("", uuid.New())
		assert.Error(t, err)
	})

	t.Run("empty customer", func(t *testing.T) {
		_, err := NewOrder("ORD-1", uuid.Nil)
		assert.Error(t, err)
	})
}

func TestOrder_AddItem(t *testing.T) {
	order := newTestOrder(t)

	item, err := order.AddItem(uuid.New(), "SKU-1", "Cotton Shirt", 2,
		decimal.NewFromInt(450), decimal.Zero, "L", "Blue")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	assert.Len(t, order.Items, 1)

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := order.AddItem(uuid.New(), "SKU-2", "Socks", 0,
			decimal.NewFromInt(50), decimal.Zero, "", "")
		assert.Error(t, err)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := order.AddItem(uuid.New(), "SKU-3", "Hat", 1,
			decimal.NewFromInt(-10), decimal.Zero, "", "")
		assert.Error(t, err)
	})
}

func TestOrder_FinalTotal(t *testing.T) {
	t.Run("items plus shipping no discounts", func(t *testing.T) {
		order := newTestOrder(t)
		_, err := order.AddItem(uuid.New(), "SKU-1", "Shirt", 2,
			decimal.NewFromInt(300), decimal.Zero, "", "")
		require.NoError(t, err)
		_, err = order.AddItem(uuid.New(), "SKU-2", "Scarf", 1,
			decimal.NewFromInt(300), decimal.Zero, "", "")
		require.NoError(t, err)
		order.ShippingFee = decimal.NewFromInt(80)

		assert.True(t, order.FinalTotal().Equal(decimal.NewFromInt(980)),
			"expected 980, got %s", order.FinalTotal())
	})

	t.Run("line discounts and order discounts applied", func(t *testing.T) {
		order := newTestOrder(t)
		_, err := order.AddItem(uuid.New(), "SKU-1", "Shirt", 3,
			decimal.NewFromInt(100), decimal.NewFromInt(30), "", "")
		require.NoError(t, err)
		order.ShippingFee = decimal.NewFromInt(50)
		order.GiftDiscount = decimal.NewFromInt(20)
		order.CouponDiscount = decimal.NewFromInt(25)

		// (3*100 - 30) + 50 - 20 - 25 = 275
		assert.True(t, order.FinalTotal().Equal(decimal.NewFromInt(275)))
	})

	t.Run("recomputed after item changes", func(t *testing.T) {
		order := newTestOrder(t)
		_, err := order.AddItem(uuid.New(), "SKU-1", "Shirt", 1,
			decimal.NewFromInt(100), decimal.Zero, "", "")
		require.NoError(t, err)
		first := order.FinalTotal()

		_, err = order.AddItem(uuid.New(), "SKU-2", "Belt", 1,
			decimal.NewFromInt(150), decimal.Zero, "", "")
		require.NoError(t, err)

		assert.True(t, order.FinalTotal().Equal(first.Add(decimal.NewFromInt(150))))
	})
}

func TestOrder_AttachRemoteOrder(t *testing.T) {
	order := newTestOrder(t)

	err := order.AttachRemoteOrder("a0B123", "SO-9001", "KH-1001")
	require.NoError(t, err)
	assert.True(t, order.HasRemoteOrder())
	require.NotNil(t, order.RemoteOrderID)
	assert.Equal(t, "a0B123", *order.RemoteOrderID)
	require.NotNil(t, order.RemoteOrderNumber)
	assert.Equal(t, "SO-9001", *order.RemoteOrderNumber)
	require.NotNil(t, order.RemoteProviderNumber)
	assert.Equal(t, "KH-1001", *order.RemoteProviderNumber)

	t.Run("reference is one-time", func(t *testing.T) {
		err := order.AttachRemoteOrder("other", "SO-9999", "KH-9999")
		assert.Error(t, err)
		assert.Equal(t, "a0B123", *order.RemoteOrderID)
	})

	t.Run("empty reference rejected", func(t *testing.T) {
		fresh := newTestOrder(t)
		assert.Error(t, fresh.AttachRemoteOrder("", "", ""))
	})
}

func TestOrder_ApplyStatus(t *testing.T) {
	order := newTestOrder(t)
	order.MarkPaid()
	require.Equal(t, StatusPaid, order.Status)

	t.Run("advances to mapped status", func(t *testing.T) {
		changed := order.ApplyStatus(StatusUnderDelivery)
		assert.True(t, changed)
		assert.Equal(t, StatusUnderDelivery, order.Status)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		changed := order.ApplyStatus(StatusUnderDelivery)
		assert.False(t, changed)
	})

	t.Run("invalid status ignored", func(t *testing.T) {
		changed := order.ApplyStatus(Status("BOGUS"))
		assert.False(t, changed)
		assert.Equal(t, StatusUnderDelivery, order.Status)
	})

	t.Run("last write wins without legality checks", func(t *testing.T) {
		assert.True(t, order.ApplyStatus(StatusDelivered))
		assert.True(t, order.ApplyStatus(StatusRefused))
		assert.Equal(t, StatusRefused, order.Status)
	})
}

func TestOrder_AppendSyncEvent(t *testing.T) {
	order := newTestOrder(t)

	for i := 0; i < SyncEventCap+5; i++ {
		order.AppendSyncEvent(SyncEvent{
			Kind:   SyncEventStatusUpdate,
			Detail: fmt.Sprintf("event-%d", i),
		})
	}

	assert.Len(t, order.SyncEvents, SyncEventCap)
	// Oldest entries evicted: the first surviving event is event-5
	assert.Equal(t, "event-5", order.SyncEvents[0].Detail)
	assert.Equal(t, fmt.Sprintf("event-%d", SyncEventCap+4),
		order.SyncEvents[len(order.SyncEvents)-1].Detail)
	for _, ev := range order.SyncEvents {
		assert.False(t, ev.OccurredAt.IsZero())
	}
}

func TestMapProviderStatus(t *testing.T) {
	tests := []struct {
		providerStatus string
		want           Status
		known          bool
	}{
		{"Order Ready", StatusReady, true},
		{"Order Collected from Fulfilment Center", StatusReady, true},
		{"Order In-transit to Delivery Hub", StatusReady, true},
		{"Order In-transit to Sorting Center", StatusReady, true},
		{"Order Reached Sorting Center", StatusReady, true},
		{"Out for Delivery", StatusUnderDelivery, true},
		{"Order Delivered", StatusDelivered, true},
		{"Picked by Merchant", StatusDelivered, true},
		{"Order Delivery Failed", StatusRefused, true},
		{"Returned to Fulfilment Center", StatusRefused, true},
		{"Cancelled", StatusCanceled, true},
		{"Voided", StatusCanceled, true},
		{"Deleted", StatusCanceled, true},
		{"Something Else", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.providerStatus, func(t *testing.T) {
			got, ok := MapProviderStatus(tt.providerStatus)
			assert.Equal(t, tt.known, ok)
			if tt.known {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCustomer_ContactPhones(t *testing.T) {
	t.Run("ordered with duplicates removed", func(t *testing.T) {
		c := &Customer{Phone: "01012345678", Phone2: "01012345678", Phone3: "01155554444"}
		assert.Equal(t, []string{"01012345678", "01155554444"}, c.ContactPhones())
	})

	t.Run("empties skipped", func(t *testing.T) {
		c := &Customer{Phone2: "01298887777"}
		assert.Equal(t, []string{"01298887777"}, c.ContactPhones())
	})

	t.Run("no phones", func(t *testing.T) {
		c := &Customer{}
		assert.Empty(t, c.ContactPhones())
	})
}
