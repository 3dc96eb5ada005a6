package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	appfulfillment "github.com/shakeout/backend/internal/application/fulfillment"
)

// maxWebhookBodySize caps inbound callback bodies (1MB)
const maxWebhookBodySize = 1 << 20

// Signature headers checked in order
const (
	signatureHeader         = "Khazenly-Hmac-Sha256"
	signatureHeaderFallback = "X-Khazenly-Signature"
)

// WebhookHandler receives Khazenly order-status callbacks
type WebhookHandler struct {
	BaseHandler
	webhooks *appfulfillment.WebhookService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhooks *appfulfillment.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Health handles GET on the webhook route. Khazenly probes the endpoint
// before enabling callbacks.
func (h *WebhookHandler) Health(c *gin.Context) {
	h.webhooks.LogProbe(c.Request.Context(), h.captureRequest(c, nil))
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "khazenly-order-status-webhook",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Head handles HEAD probes on the webhook route
func (h *WebhookHandler) Head(c *gin.Context) {
	h.webhooks.LogProbe(c.Request.Context(), h.captureRequest(c, nil))
	c.Status(http.StatusOK)
}

// Receive handles POST callbacks
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodySize))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	result := h.webhooks.Process(c.Request.Context(), h.captureRequest(c, body))

	if result.HTTPStatus >= http.StatusBadRequest {
		c.JSON(result.HTTPStatus, gin.H{"success": false, "message": result.Message})
		return
	}
	c.JSON(result.HTTPStatus, gin.H{"success": true, "message": result.Message})
}

// captureRequest snapshots the inbound request for the audit trail
func (h *WebhookHandler) captureRequest(c *gin.Context, body []byte) *appfulfillment.WebhookRequest {
	signature := c.GetHeader(signatureHeader)
	if signature == "" {
		signature = c.GetHeader(signatureHeaderFallback)
	}
	return &appfulfillment.WebhookRequest{
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		Headers:   flattenHeaders(c.Request.Header),
		Body:      body,
		SourceIP:  c.ClientIP(),
		Signature: signature,
	}
}

// flattenHeaders serializes request headers for the audit trail,
// dropping values that would leak credentials
func flattenHeaders(headers http.Header) string {
	var b strings.Builder
	for name, values := range headers {
		if strings.EqualFold(name, "Authorization") || strings.EqualFold(name, "Cookie") {
			continue
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(strings.Join(values, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
