package fulfillment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shakeout/backend/internal/domain/fulfillment"
	"github.com/shakeout/backend/internal/domain/shared"
	"github.com/shakeout/backend/internal/infrastructure/logger"
)

// errNoStatusChange aborts the locked update without writing when the
// callback carries a status the order already has
var errNoStatusChange = errors.New("fulfillment: status unchanged")

// webhookPayload is the provider's callback body
type webhookPayload struct {
	Status            string `json:"status"`
	OrderReference    string `json:"orderReference"`
	MerchantReference string `json:"merchantReference"`
	OrderSupplierID   string `json:"orderSupplierId"`
}

// WebhookService processes provider status callbacks: audit, signature
// check, order resolution, status mapping and the locked status write.
type WebhookService struct {
	orders fulfillment.OrderRepository
	audits fulfillment.WebhookAuditRepository
	secret string
}

// NewWebhookService creates a webhook service. An empty secret disables
// signature verification.
func NewWebhookService(orders fulfillment.OrderRepository, audits fulfillment.WebhookAuditRepository, secret string) *WebhookService {
	return &WebhookService{
		orders: orders,
		audits: audits,
		secret: secret,
	}
}

// Process handles one inbound callback end to end. The provider retries
// non-200 responses aggressively, so every outcome except an unusable body
// returns 200: a missing order or unknown status is recorded, not rejected.
func (s *WebhookService) Process(ctx context.Context, req *WebhookRequest) *WebhookResult {
	start := time.Now()
	log := logger.L(ctx)

	record := &fulfillment.WebhookAuditRecord{
		BaseEntity: shared.NewBaseEntity(),
		Method:     req.Method,
		Path:       req.Path,
		Headers:    req.Headers,
		Body:       string(req.Body),
		SourceIP:   req.SourceIP,
	}
	// The audit record exists before any processing so even a crash leaves
	// a trace of the callback
	if err := s.audits.Create(ctx, record); err != nil {
		log.Error("failed to create webhook audit record", zap.Error(err))
	}

	record.SignatureVerified = s.verifySignature(ctx, req)

	result := s.process(ctx, req, record)

	record.ResponseStatus = result.HTTPStatus
	record.ResponseBody = result.Message
	record.ProcessingMS = time.Since(start).Milliseconds()
	if err := s.audits.Finalize(ctx, record); err != nil {
		log.Error("failed to finalize webhook audit record",
			zap.String("audit_id", record.ID.String()),
			zap.Error(err))
	}

	return result
}

// process runs the business part of callback handling, filling the audit
// record's resolution fields as it goes
func (s *WebhookService) process(ctx context.Context, req *WebhookRequest, record *fulfillment.WebhookAuditRecord) *WebhookResult {
	log := logger.L(ctx)

	var payload webhookPayload
	if len(req.Body) == 0 || json.Unmarshal(req.Body, &payload) != nil {
		record.ErrorMessage = "unparsable callback body"
		return &WebhookResult{HTTPStatus: http.StatusBadRequest, Message: "invalid payload"}
	}
	if payload.Status == "" ||
		(payload.OrderReference == "" && payload.MerchantReference == "" && payload.OrderSupplierID == "") {
		record.ErrorMessage = "callback missing status or order references"
		return &WebhookResult{HTTPStatus: http.StatusBadRequest, Message: "missing status or references"}
	}

	record.ProviderStatus = payload.Status
	record.OrderReference = payload.OrderReference
	record.MerchantReference = payload.MerchantReference
	record.OrderSupplierID = payload.OrderSupplierID

	order := s.resolveOrder(ctx, &payload)
	if order == nil {
		log.Info("webhook for unknown order",
			zap.String("order_reference", payload.OrderReference),
			zap.String("merchant_reference", payload.MerchantReference),
			zap.String("provider_status", payload.Status))
		return &WebhookResult{HTTPStatus: http.StatusOK, Message: "order not found"}
	}
	record.OrderFound = true
	record.OrderNumber = order.OrderNumber

	mapped, known := fulfillment.MapProviderStatus(payload.Status)
	if !known {
		log.Warn("unrecognized provider status",
			zap.String("order_number", order.OrderNumber),
			zap.String("provider_status", payload.Status))
		return &WebhookResult{
			HTTPStatus: http.StatusOK, Message: "unrecognized status",
			OrderFound: true, OrderNumber: order.OrderNumber,
		}
	}

	changed := true
	err := s.orders.UpdateLocked(ctx, order.ID, func(o *fulfillment.Order) error {
		if !o.ApplyStatus(mapped) {
			return errNoStatusChange
		}
		o.AppendSyncEvent(fulfillment.SyncEvent{
			Kind:           fulfillment.SyncEventStatusUpdate,
			ProviderStatus: payload.Status,
			Status:         mapped,
		})
		return nil
	})
	switch {
	case errors.Is(err, errNoStatusChange):
		changed = false
	case err != nil:
		log.Error("failed to persist status update",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		record.ErrorMessage = err.Error()
		// Still 200: the provider would retry forever on errors, and the
		// audit record keeps the failure visible for operators
		return &WebhookResult{
			HTTPStatus: http.StatusOK, Message: "status update failed",
			OrderFound: true, OrderNumber: order.OrderNumber,
		}
	}
	record.StatusChanged = changed

	log.Info("webhook processed",
		zap.String("order_number", order.OrderNumber),
		zap.String("provider_status", payload.Status),
		zap.String("status", string(mapped)),
		zap.Bool("changed", changed))

	return &WebhookResult{
		HTTPStatus: http.StatusOK, Message: "ok",
		OrderFound: true, OrderNumber: order.OrderNumber, StatusChanged: changed,
	}
}

// verifySignature checks the HMAC signature when a secret is configured.
// Verification is advisory: failures are logged and recorded but never block
// processing, because Khazenly ships callbacks unsigned on some plans.
func (s *WebhookService) verifySignature(ctx context.Context, req *WebhookRequest) bool {
	if s.secret == "" {
		return false
	}
	log := logger.L(ctx)

	if req.Signature == "" {
		log.Warn("webhook signature header missing",
			zap.String("source_ip", req.SourceIP))
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(req.Body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		log.Warn("webhook signature mismatch",
			zap.String("source_ip", req.SourceIP))
		return false
	}
	return true
}

// resolveOrder finds the local order a callback refers to. Strategies in
// order, first match wins:
//  1. provider references (sales order number or provider order number)
//     against orderReference
//  2. local order number against merchantReference, trying the full value
//     and the value without its attempt-timestamp suffix
//  3. the same against orderSupplierId
func (s *WebhookService) resolveOrder(ctx context.Context, payload *webhookPayload) *fulfillment.Order {
	if payload.OrderReference != "" {
		if order, err := s.orders.FindByRemoteReference(ctx, payload.OrderReference); err == nil {
			return order
		}
	}
	for _, ref := range []string{payload.MerchantReference, payload.OrderSupplierID} {
		for _, candidate := range orderNumberCandidates(ref) {
			if order, err := s.orders.FindByOrderNumber(ctx, candidate); err == nil {
				return order
			}
		}
	}
	return nil
}

// orderNumberCandidates derives local order numbers from a merchant
// reference of the form "{orderNumber}-{unixTimestamp}"
func orderNumberCandidates(ref string) []string {
	if ref == "" {
		return nil
	}
	candidates := []string{ref}
	if idx := strings.LastIndex(ref, "-"); idx > 0 && isDigits(ref[idx+1:]) {
		candidates = append(candidates, ref[:idx])
	}
	return candidates
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// LogProbe records a liveness probe (GET or HEAD on the webhook route) in
// the audit trail. Probes are acknowledged regardless of whether the record
// could be written.
func (s *WebhookService) LogProbe(ctx context.Context, req *WebhookRequest) {
	record := &fulfillment.WebhookAuditRecord{
		BaseEntity:     shared.NewBaseEntity(),
		Method:         req.Method,
		Path:           req.Path,
		Headers:        req.Headers,
		SourceIP:       req.SourceIP,
		ResponseStatus: http.StatusOK,
	}
	if err := s.audits.Create(ctx, record); err != nil {
		logger.L(ctx).Error("failed to record webhook probe", zap.Error(err))
	}
}

// ListAudit returns the recent webhook audit trail for an order
func (s *WebhookService) ListAudit(ctx context.Context, orderNumber string, limit int) ([]AuditRecordView, error) {
	records, err := s.audits.ListByOrderNumber(ctx, orderNumber, limit)
	if err != nil {
		return nil, err
	}
	views := make([]AuditRecordView, 0, len(records))
	for _, r := range records {
		views = append(views, AuditRecordView{
			ID:                r.ID.String(),
			ReceivedAt:        r.CreatedAt,
			Method:            r.Method,
			SourceIP:          r.SourceIP,
			ProviderStatus:    r.ProviderStatus,
			OrderReference:    r.OrderReference,
			MerchantReference: r.MerchantReference,
			SignatureVerified: r.SignatureVerified,
			OrderFound:        r.OrderFound,
			StatusChanged:     r.StatusChanged,
			ErrorMessage:      r.ErrorMessage,
			ResponseStatus:    r.ResponseStatus,
			ProcessingMS:      r.ProcessingMS,
		})
	}
	return views, nil
}
