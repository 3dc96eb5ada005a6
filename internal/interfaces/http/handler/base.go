// Package handler contains the gin HTTP handlers
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shakeout/backend/internal/domain/fulfillment"
	"github.com/shakeout/backend/internal/domain/shared"
	"github.com/shakeout/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "request_id"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// HandleError maps domain and provider errors onto the response envelope
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	// Payload validation: all issues, with field-level details
	var verr *fulfillment.ValidationError
	if errors.As(err, &verr) {
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeValidation,
			"Order data failed provider validation", getRequestID(c))
		details := make([]dto.FieldError, 0, len(verr.Issues))
		for _, issue := range verr.Issues {
			details = append(details, dto.FieldError{
				Field:  issue.Field,
				Detail: issue.Detail,
				Value:  issue.Value,
			})
		}
		resp.Error.Details = details
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}

	switch {
	case errors.Is(err, fulfillment.ErrProviderUnavailable),
		errors.Is(err, fulfillment.ErrTokenUnavailable):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeProviderUnavailable, err.Error())
		return
	case errors.Is(err, fulfillment.ErrDuplicateConflict):
		h.Error(c, http.StatusConflict, dto.ErrCodeConflict, err.Error())
		return
	case errors.Is(err, fulfillment.ErrOrderRejected),
		errors.Is(err, fulfillment.ErrCorruptedCustomerData),
		errors.Is(err, fulfillment.ErrInvalidResponse):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeProviderRejected, err.Error())
		return
	case errors.Is(err, fulfillment.ErrRemoteOrderNotFound):
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, err.Error())
		return
	}

	var derr *shared.DomainError
	if errors.As(err, &derr) {
		code := dto.NormalizeErrorCode(derr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, derr.Message)
		return
	}

	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "Internal server error")
}
