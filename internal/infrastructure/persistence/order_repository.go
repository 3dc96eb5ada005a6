package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shakeout/backend/internal/domain/fulfillment"
	"github.com/shakeout/backend/internal/domain/shared"
)

// GormOrderRepository implements fulfillment.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByOrderNumber finds an order by its human-readable order number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*fulfillment.Order, error) {
	var order fulfillment.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "order_number = ?", orderNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", shared.ErrNotFound, orderNumber)
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}

// FindByRemoteReference finds an order by any of its provider references:
// the provider order id, the sales order number or the provider order number
func (r *GormOrderRepository) FindByRemoteReference(ctx context.Context, ref string) (*fulfillment.Order, error) {
	var order fulfillment.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("remote_order_number = ? OR remote_order_id = ? OR remote_provider_number = ?", ref, ref, ref).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: remote reference %s", shared.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("failed to find order by remote reference: %w", err)
	}
	return &order, nil
}

// Save persists the order and its items
func (r *GormOrderRepository) Save(ctx context.Context, order *fulfillment.Order) error {
	err := r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(order).Error
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// UpdateLocked loads the order under a row lock, applies fn and persists the
// result in one transaction. Concurrent webhook callbacks for the same order
// serialize here instead of clobbering each other's status writes.
func (r *GormOrderRepository) UpdateLocked(ctx context.Context, orderID uuid.UUID, fn func(*fulfillment.Order) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		// SQLite (tests) has no FOR UPDATE; its single-writer model
		// serializes the transaction anyway
		if tx.Dialector.Name() == "postgres" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var order fulfillment.Order
		if err := query.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order %s", shared.ErrNotFound, orderID)
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		if err := fn(&order); err != nil {
			return err
		}

		if err := tx.Save(&order).Error; err != nil {
			return fmt.Errorf("failed to save locked order: %w", err)
		}
		return nil
	})
}

// Ensure GormOrderRepository implements the repository interface
var _ fulfillment.OrderRepository = (*GormOrderRepository)(nil)
