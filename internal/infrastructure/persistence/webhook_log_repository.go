package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shakeout/backend/internal/domain/fulfillment"
)

// GormWebhookAuditRepository implements fulfillment.WebhookAuditRepository
// using GORM. The table is append-then-finalize: no deletes, no rewrites of
// request data.
type GormWebhookAuditRepository struct {
	db *gorm.DB
}

// NewWebhookAuditRepository creates a new webhook audit repository
func NewWebhookAuditRepository(db *gorm.DB) *GormWebhookAuditRepository {
	return &GormWebhookAuditRepository{db: db}
}

// Create persists a new audit record
func (r *GormWebhookAuditRepository) Create(ctx context.Context, record *fulfillment.WebhookAuditRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create webhook audit record: %w", err)
	}
	return nil
}

// Finalize writes the resolution and response fields captured at the end of
// callback processing. Request fields are never touched.
func (r *GormWebhookAuditRepository) Finalize(ctx context.Context, record *fulfillment.WebhookAuditRecord) error {
	err := r.db.WithContext(ctx).
		Model(&fulfillment.WebhookAuditRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"provider_status":    record.ProviderStatus,
			"order_reference":    record.OrderReference,
			"merchant_reference": record.MerchantReference,
			"order_supplier_id":  record.OrderSupplierID,
			"signature_verified": record.SignatureVerified,
			"order_found":        record.OrderFound,
			"order_number":       record.OrderNumber,
			"status_changed":     record.StatusChanged,
			"error_message":      record.ErrorMessage,
			"response_status":    record.ResponseStatus,
			"response_body":      record.ResponseBody,
			"processing_ms":      record.ProcessingMS,
			"updated_at":         time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to finalize webhook audit record: %w", err)
	}
	return nil
}

// ListByOrderNumber returns the most recent audit records for an order
func (r *GormWebhookAuditRepository) ListByOrderNumber(ctx context.Context, orderNumber string, limit int) ([]fulfillment.WebhookAuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []fulfillment.WebhookAuditRecord
	err := r.db.WithContext(ctx).
		Where("order_number = ?", orderNumber).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook audit records: %w", err)
	}
	return records, nil
}

// Ensure GormWebhookAuditRepository implements the repository interface
var _ fulfillment.WebhookAuditRepository = (*GormWebhookAuditRepository)(nil)
