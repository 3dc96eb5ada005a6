package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shakeout/backend/internal/domain/fulfillment"
	"github.com/shakeout/backend/internal/domain/shared"
)

// GormCustomerReader implements fulfillment.CustomerReader using GORM.
// Read-only: customer and address rows are owned by the checkout flow.
type GormCustomerReader struct {
	db *gorm.DB
}

// NewCustomerReader creates a new customer reader
func NewCustomerReader(db *gorm.DB) *GormCustomerReader {
	return &GormCustomerReader{db: db}
}

// CustomerByID loads a customer's contact slice
func (r *GormCustomerReader) CustomerByID(ctx context.Context, id uuid.UUID) (*fulfillment.Customer, error) {
	var customer fulfillment.Customer
	err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: customer %s", shared.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return &customer, nil
}

// AddressByOrderID loads the shipping address attached to an order
func (r *GormCustomerReader) AddressByOrderID(ctx context.Context, orderID uuid.UUID) (*fulfillment.ShippingAddress, error) {
	var address fulfillment.ShippingAddress
	err := r.db.WithContext(ctx).First(&address, "order_id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: address for order %s", shared.ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to find shipping address: %w", err)
	}
	return &address, nil
}

// Ensure GormCustomerReader implements the reader interface
var _ fulfillment.CustomerReader = (*GormCustomerReader)(nil)
