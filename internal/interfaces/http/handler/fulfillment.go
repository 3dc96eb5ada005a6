package handler

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"

	appfulfillment "github.com/shakeout/backend/internal/application/fulfillment"
)

// FulfillmentHandler exposes the operator-facing order submission surface
type FulfillmentHandler struct {
	BaseHandler
	submissions *appfulfillment.SubmissionService
	webhooks    *appfulfillment.WebhookService
}

// NewFulfillmentHandler creates a new fulfillment handler
func NewFulfillmentHandler(submissions *appfulfillment.SubmissionService, webhooks *appfulfillment.WebhookService) *FulfillmentHandler {
	return &FulfillmentHandler{
		submissions: submissions,
		webhooks:    webhooks,
	}
}

// orderNumberParam binds the order number path parameter
type orderNumberParam struct {
	OrderNumber string `uri:"orderNumber" binding:"required,max=50"`
}

// Submit handles POST /api/fulfillment/orders/:orderNumber/submit
func (h *FulfillmentHandler) Submit(c *gin.Context) {
	var params orderNumberParam
	if err := c.ShouldBindUri(&params); err != nil {
		h.BadRequest(c, "Invalid order number")
		return
	}

	result, err := h.submissions.Submit(c.Request.Context(), params.OrderNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// View handles GET /api/fulfillment/orders/:orderNumber
func (h *FulfillmentHandler) View(c *gin.Context) {
	var params orderNumberParam
	if err := c.ShouldBindUri(&params); err != nil {
		h.BadRequest(c, "Invalid order number")
		return
	}

	view, err := h.submissions.View(c.Request.Context(), params.OrderNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// RemoteStatus handles GET /api/fulfillment/orders/:orderNumber/remote-status
func (h *FulfillmentHandler) RemoteStatus(c *gin.Context) {
	var params orderNumberParam
	if err := c.ShouldBindUri(&params); err != nil {
		h.BadRequest(c, "Invalid order number")
		return
	}

	raw, err := h.submissions.RemoteStatus(c.Request.Context(), params.OrderNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, json.RawMessage(raw))
}

// Audit handles GET /api/fulfillment/orders/:orderNumber/audit
func (h *FulfillmentHandler) Audit(c *gin.Context) {
	var params orderNumberParam
	if err := c.ShouldBindUri(&params); err != nil {
		h.BadRequest(c, "Invalid order number")
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			h.BadRequest(c, "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	records, err := h.webhooks.ListAudit(c.Request.Context(), params.OrderNumber, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}
