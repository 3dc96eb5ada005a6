package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shakeout/backend/internal/domain/fulfillment"
	"github.com/shakeout/backend/internal/domain/shared"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, AutoMigrate(db))
	return db
}

func seedOrder(t *testing.T, repo *GormOrderRepository) *fulfillment.Order {
	t.Helper()
	order, err := fulfillment.NewOrder("ORD-5001", uuid.New())
	require.NoError(t, err)
	order.MarkPaid()
	_, err = order.AddItem(uuid.New(), "TSH-01", "Cotton Shirt", 2,
		decimal.NewFromInt(450), decimal.Zero, "L", "Blue")
	require.NoError(t, err)
	order.ShippingFee = decimal.NewFromInt(60)
	require.NoError(t, repo.Save(context.Background(), order))
	return order
}

func TestGormOrderRepository_FindByOrderNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	seedOrder(t, repo)

	t.Run("found with items", func(t *testing.T) {
		found, err := repo.FindByOrderNumber(ctx, "ORD-5001")
		require.NoError(t, err)
		assert.Equal(t, "ORD-5001", found.OrderNumber)
		assert.True(t, found.Paid)
		require.Len(t, found.Items, 1)
		assert.Equal(t, "Cotton Shirt", found.Items[0].ProductName)
		assert.True(t, found.ShippingFee.Equal(decimal.NewFromInt(60)))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.FindByOrderNumber(ctx, "ORD-MISSING")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormOrderRepository_FindByRemoteReference(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo)
	require.NoError(t, order.AttachRemoteOrder("kh-55", "SO-5555", "KH-5555"))
	require.NoError(t, repo.Save(ctx, order))

	t.Run("by remote order number", func(t *testing.T) {
		found, err := repo.FindByRemoteReference(ctx, "SO-5555")
		require.NoError(t, err)
		assert.Equal(t, "ORD-5001", found.OrderNumber)
	})

	t.Run("by provider order number", func(t *testing.T) {
		found, err := repo.FindByRemoteReference(ctx, "KH-5555")
		require.NoError(t, err)
		assert.Equal(t, "ORD-5001", found.OrderNumber)
	})

	t.Run("by remote order id", func(t *testing.T) {
		found, err := repo.FindByRemoteReference(ctx, "kh-55")
		require.NoError(t, err)
		assert.Equal(t, "ORD-5001", found.OrderNumber)
	})

	t.Run("unknown reference", func(t *testing.T) {
		_, err := repo.FindByRemoteReference(ctx, "SO-0000")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormOrderRepository_UpdateLocked(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	order := seedOrder(t, repo)

	t.Run("applies and persists", func(t *testing.T) {
		err := repo.UpdateLocked(ctx, order.ID, func(o *fulfillment.Order) error {
			o.ApplyStatus(fulfillment.StatusUnderDelivery)
			o.AppendSyncEvent(fulfillment.SyncEvent{
				Kind:           fulfillment.SyncEventStatusUpdate,
				ProviderStatus: "Out for Delivery",
				Status:         fulfillment.StatusUnderDelivery,
			})
			return nil
		})
		require.NoError(t, err)

		reloaded, err := repo.FindByOrderNumber(ctx, order.OrderNumber)
		require.NoError(t, err)
		assert.Equal(t, fulfillment.StatusUnderDelivery, reloaded.Status)
		require.Len(t, reloaded.SyncEvents, 1)
		assert.Equal(t, "Out for Delivery", reloaded.SyncEvents[0].ProviderStatus)
	})

	t.Run("fn error rolls back", func(t *testing.T) {
		boom := errors.New("boom")
		err := repo.UpdateLocked(ctx, order.ID, func(o *fulfillment.Order) error {
			o.ApplyStatus(fulfillment.StatusCanceled)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		reloaded, err := repo.FindByOrderNumber(ctx, order.OrderNumber)
		require.NoError(t, err)
		assert.Equal(t, fulfillment.StatusUnderDelivery, reloaded.Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		err := repo.UpdateLocked(ctx, uuid.New(), func(o *fulfillment.Order) error {
			return nil
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormOrderRepository_UpdateLockedConcurrent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	order := seedOrder(t, repo)

	// Two callbacks for the same order race to different terminal statuses.
	// The row lock serializes them: both updates land, no write is lost.
	updates := []struct {
		status   fulfillment.Status
		provider string
	}{
		{fulfillment.StatusDelivered, "Order Delivered"},
		{fulfillment.StatusCanceled, "Cancelled"},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(updates))
	for i := range updates {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.UpdateLocked(ctx, order.ID, func(o *fulfillment.Order) error {
				if o.ApplyStatus(updates[i].status) {
					o.AppendSyncEvent(fulfillment.SyncEvent{
						Kind:           fulfillment.SyncEventStatusUpdate,
						ProviderStatus: updates[i].provider,
						Status:         updates[i].status,
					})
				}
				return nil
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	reloaded, err := repo.FindByOrderNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Contains(t,
		[]fulfillment.Status{fulfillment.StatusDelivered, fulfillment.StatusCanceled},
		reloaded.Status)
	require.Len(t, reloaded.SyncEvents, 2, "both updates recorded")
	assert.Equal(t, reloaded.SyncEvents[1].Status, reloaded.Status,
		"final status matches the last recorded update")
}

func TestGormWebhookAuditRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookAuditRepository(db)
	ctx := context.Background()

	record := &fulfillment.WebhookAuditRecord{
		BaseEntity: shared.NewBaseEntity(),
		Method:     "POST",
		Path:       "/webhooks/khazenly/order-status",
		Body:       `{"status": "Order Delivered"}`,
		SourceIP:   "203.0.113.10",
	}
	require.NoError(t, repo.Create(ctx, record))

	t.Run("finalize updates resolution fields", func(t *testing.T) {
		record.ProviderStatus = "Order Delivered"
		record.OrderReference = "SO-5555"
		record.OrderFound = true
		record.OrderNumber = "ORD-5001"
		record.StatusChanged = true
		record.ResponseStatus = 200
		record.ResponseBody = `{"success":true}`
		record.ProcessingMS = 12
		require.NoError(t, repo.Finalize(ctx, record))

		records, err := repo.ListByOrderNumber(ctx, "ORD-5001", 10)
		require.NoError(t, err)
		require.Len(t, records, 1)
		got := records[0]
		assert.Equal(t, "Order Delivered", got.ProviderStatus)
		assert.True(t, got.OrderFound)
		assert.True(t, got.StatusChanged)
		assert.Equal(t, 200, got.ResponseStatus)
		assert.Equal(t, `{"status": "Order Delivered"}`, got.Body,
			"request fields survive finalize untouched")
	})

	t.Run("list honors the limit", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			extra := &fulfillment.WebhookAuditRecord{
				BaseEntity:  shared.NewBaseEntity(),
				Method:      "POST",
				OrderNumber: "ORD-5001",
			}
			require.NoError(t, repo.Create(ctx, extra))
		}
		records, err := repo.ListByOrderNumber(ctx, "ORD-5001", 3)
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})
}

func TestGormCustomerReader(t *testing.T) {
	db := setupTestDB(t)
	reader := NewCustomerReader(db)
	ctx := context.Background()

	customer := &fulfillment.Customer{
		BaseEntity:  shared.NewBaseEntity(),
		DisplayName: "Mohamed Ahmed",
		Phone:       "01012345678",
	}
	require.NoError(t, db.Create(customer).Error)

	orderID := uuid.New()
	address := &fulfillment.ShippingAddress{
		BaseEntity: shared.NewBaseEntity(),
		OrderID:    orderID,
		Phone:      "01012345678",
		Street:     "12 El-Nasr St",
		RegionCode: "ALX",
		City:       "Smouha",
	}
	require.NoError(t, db.Create(address).Error)

	t.Run("customer by id", func(t *testing.T) {
		got, err := reader.CustomerByID(ctx, customer.ID)
		require.NoError(t, err)
		assert.Equal(t, "Mohamed Ahmed", got.DisplayName)
	})

	t.Run("customer not found", func(t *testing.T) {
		_, err := reader.CustomerByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("address by order id", func(t *testing.T) {
		got, err := reader.AddressByOrderID(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, "ALX", got.RegionCode)
	})

	t.Run("address not found", func(t *testing.T) {
		_, err := reader.AddressByOrderID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
