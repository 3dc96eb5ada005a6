package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfulfillment "github.com/shakeout/backend/internal/application/fulfillment"
	"github.com/shakeout/backend/internal/domain/fulfillment"
)

func setupWebhookRouter(orders *fakeOrderRepo, audits *fakeAuditRepo, secret string) *gin.Engine {
	h := NewWebhookHandler(appfulfillment.NewWebhookService(orders, audits, secret))

	engine := gin.New()
	group := engine.Group("/webhooks/khazenly")
	group.GET("/order-status", h.Health)
	group.HEAD("/order-status", h.Head)
	group.POST("/order-status", h.Receive)
	return engine
}

func TestWebhookHandlerProbes(t *testing.T) {
	t.Run("GET responds with health body and is audited", func(t *testing.T) {
		audits := &fakeAuditRepo{}
		engine := setupWebhookRouter(newFakeOrderRepo(), audits, "")

		req := httptest.NewRequest("GET", "/webhooks/khazenly/order-status", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "khazenly-order-status-webhook")
		require.Len(t, audits.records, 1)
		assert.Equal(t, "GET", audits.records[0].Method)
		assert.Equal(t, http.StatusOK, audits.records[0].ResponseStatus)
	})

	t.Run("HEAD responds 200 with empty body and is audited", func(t *testing.T) {
		audits := &fakeAuditRepo{}
		engine := setupWebhookRouter(newFakeOrderRepo(), audits, "")

		req := httptest.NewRequest("HEAD", "/webhooks/khazenly/order-status", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
		require.Len(t, audits.records, 1)
		assert.Equal(t, "HEAD", audits.records[0].Method)
	})
}

func TestWebhookHandlerReceive(t *testing.T) {
	t.Run("status callback updates the order", func(t *testing.T) {
		order := paidTestOrder(t, "ORD-4001")
		require.NoError(t, order.AttachRemoteOrder("a0A77", "KH-700700", "KZ-4001"))
		orders := newFakeOrderRepo(order)
		audits := &fakeAuditRepo{}
		engine := setupWebhookRouter(orders, audits, "")

		body := []byte(`{"status":"Out for Delivery","orderReference":"KH-700700"}`)
		req := httptest.NewRequest("POST", "/webhooks/khazenly/order-status", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":true`)
		assert.Equal(t, fulfillment.StatusUnderDelivery, order.Status)

		require.Len(t, audits.records, 1)
		rec := audits.records[0]
		assert.Equal(t, "POST", rec.Method)
		assert.Equal(t, "ORD-4001", rec.OrderNumber)
		assert.True(t, rec.OrderFound)
	})

	t.Run("empty body returns 400", func(t *testing.T) {
		audits := &fakeAuditRepo{}
		engine := setupWebhookRouter(newFakeOrderRepo(), audits, "")

		req := httptest.NewRequest("POST", "/webhooks/khazenly/order-status", bytes.NewReader(nil))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"success":false`)
		// The callback is still audited
		assert.Len(t, audits.records, 1)
	})

	t.Run("unknown order still returns 200", func(t *testing.T) {
		engine := setupWebhookRouter(newFakeOrderRepo(), &fakeAuditRepo{}, "")

		body := []byte(`{"status":"Order Delivered","orderReference":"KH-NOPE"}`)
		req := httptest.NewRequest("POST", "/webhooks/khazenly/order-status", bytes.NewReader(body))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("valid signature recorded on audit record", func(t *testing.T) {
		order := paidTestOrder(t, "ORD-4002")
		require.NoError(t, order.AttachRemoteOrder("a0A88", "KH-800800", "KZ-4002"))
		audits := &fakeAuditRepo{}
		secret := "webhook-secret"
		engine := setupWebhookRouter(newFakeOrderRepo(order), audits, secret)

		body := []byte(`{"status":"Order Delivered","orderReference":"KH-800800"}`)
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

		req := httptest.NewRequest("POST", "/webhooks/khazenly/order-status", bytes.NewReader(body))
		req.Header.Set("Khazenly-Hmac-Sha256", signature)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, audits.records, 1)
		assert.True(t, audits.records[0].SignatureVerified)
	})

	t.Run("fallback signature header accepted", func(t *testing.T) {
		order := paidTestOrder(t, "ORD-4003")
		require.NoError(t, order.AttachRemoteOrder("a0A99", "KH-900901", "KZ-4003"))
		audits := &fakeAuditRepo{}
		secret := "webhook-secret"
		engine := setupWebhookRouter(newFakeOrderRepo(order), audits, secret)

		body := []byte(`{"status":"Cancelled","orderReference":"KH-900901"}`)
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

		req := httptest.NewRequest("POST", "/webhooks/khazenly/order-status", bytes.NewReader(body))
		req.Header.Set("X-Khazenly-Signature", signature)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, audits.records, 1)
		assert.True(t, audits.records[0].SignatureVerified)
	})

	t.Run("bad signature processed anyway", func(t *testing.T) {
		order := paidTestOrder(t, "ORD-4004")
		require.NoError(t, order.AttachRemoteOrder("a0B11", "KH-110011", "KZ-4004"))
		audits := &fakeAuditRepo{}
		engine := setupWebhookRouter(newFakeOrderRepo(order), audits, "webhook-secret")

		body := []byte(`{"status":"Order Delivered","orderReference":"KH-110011"}`)
		req := httptest.NewRequest("POST", "/webhooks/khazenly/order-status", bytes.NewReader(body))
		req.Header.Set("Khazenly-Hmac-Sha256", "not-a-real-signature")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, fulfillment.StatusDelivered, order.Status)
		require.Len(t, audits.records, 1)
		assert.False(t, audits.records[0].SignatureVerified)
	})

	t.Run("authorization header excluded from audit trail", func(t *testing.T) {
		audits := &fakeAuditRepo{}
		engine := setupWebhookRouter(newFakeOrderRepo(), audits, "")

		body := []byte(`{"status":"Order Delivered","orderReference":"KH-X"}`)
		req := httptest.NewRequest("POST", "/webhooks/khazenly/order-status", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer super-secret")
		req.Header.Set("User-Agent", "khazenly-dispatcher")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		require.Len(t, audits.records, 1)
		assert.NotContains(t, audits.records[0].Headers, "super-secret")
		assert.Contains(t, audits.records[0].Headers, "khazenly-dispatcher")
	})
}
