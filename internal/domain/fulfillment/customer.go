package fulfillment

import (
	"github.com/google/uuid"

	"github.com/shakeout/backend/internal/domain/shared"
)

// Customer holds the contact details needed to build a provider payload.
// The full customer profile is owned by the identity context; this is the
// read-only slice the fulfillment bridge consumes.
type Customer struct {
	shared.BaseEntity
	DisplayName string `gorm:"size:100"`
	Phone       string `gorm:"size:20"`
	Phone2      string `gorm:"size:20"`
	Phone3      string `gorm:"size:20"`
}

// ContactPhones returns the customer's phone numbers in fallback priority
// order, skipping empties and duplicates.
func (c *Customer) ContactPhones() []string {
	phones := make([]string, 0, 3)
	seen := make(map[string]struct{}, 3)
	for _, p := range []string{c.Phone, c.Phone2, c.Phone3} {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		phones = append(phones, p)
	}
	return phones
}

// ShippingAddress is the delivery address attached to an order at checkout.
// Read-only to the fulfillment bridge.
type ShippingAddress struct {
	shared.BaseEntity
	OrderID       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	RecipientName string    `gorm:"size:100"`
	Phone         string    `gorm:"size:20"`
	Street        string    `gorm:"size:255"`
	RegionCode    string    `gorm:"size:10"`
	City          string    `gorm:"size:100"`
}
