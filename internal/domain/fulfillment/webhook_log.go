package fulfillment

import (
	"github.com/shakeout/backend/internal/domain/shared"
)

// WebhookAuditRecord captures one inbound provider callback in full:
// request context, the response actually returned, and how the callback was
// resolved. Exactly one record exists per callback, successful or not; it is
// the single source of truth for support and debugging. Admin-read-only.
type WebhookAuditRecord struct {
	shared.BaseEntity

	// Request metadata
	Method   string `gorm:"size:10"`
	Path     string `gorm:"size:255"`
	Headers  string `gorm:"type:text"`
	Body     string `gorm:"type:text"`
	SourceIP string `gorm:"size:45"`

	// Resolution metadata
	ProviderStatus    string `gorm:"size:100"`
	OrderReference    string `gorm:"size:100"`
	MerchantReference string `gorm:"size:100"`
	OrderSupplierID   string `gorm:"size:100"`
	SignatureVerified bool
	OrderFound        bool
	OrderNumber       string `gorm:"size:50;index"`
	StatusChanged     bool
	ErrorMessage      string `gorm:"type:text"`

	// Response metadata
	ResponseStatus int
	ResponseBody   string `gorm:"type:text"`
	ProcessingMS   int64
}
