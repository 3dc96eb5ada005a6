// Package fulfillment contains the application services bridging the HTTP
// layer to the fulfillment domain: order submission and webhook ingestion.
package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/shakeout/backend/internal/domain/fulfillment"
	"github.com/shakeout/backend/internal/domain/shared"
	"github.com/shakeout/backend/internal/infrastructure/logger"
)

// SubmissionService submits paid orders to the fulfillment provider and
// records the resulting remote reference
type SubmissionService struct {
	orders    fulfillment.OrderRepository
	customers fulfillment.CustomerReader
	provider  fulfillment.Provider
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(orders fulfillment.OrderRepository, customers fulfillment.CustomerReader, provider fulfillment.Provider) *SubmissionService {
	return &SubmissionService{
		orders:    orders,
		customers: customers,
		provider:  provider,
	}
}

// Submit sends the order to the provider. Idempotent: an order that already
// carries a remote reference returns it without calling the provider. On any
// failure the order is left unchanged and can be resubmitted.
func (s *SubmissionService) Submit(ctx context.Context, orderNumber string) (*SubmissionResult, error) {
	order, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if !order.Paid {
		return nil, shared.NewDomainError("ORDER_NOT_PAID", "Only paid orders can be submitted for fulfillment")
	}

	if order.HasRemoteOrder() {
		logger.L(ctx).Info("order already submitted, returning existing reference",
			zap.String("order_number", order.OrderNumber))
		return resultFromOrder(order, true), nil
	}

	customer, err := s.customers.CustomerByID(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	address, err := s.customers.AddressByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	logger.L(ctx).Info("submitting order to fulfillment provider",
		zap.String("order_number", order.OrderNumber),
		zap.String("customer", namePreview(customer.DisplayName)),
		zap.Int("items", len(order.Items)))

	remote, err := s.provider.SubmitOrder(ctx, order, customer, address)
	if err != nil {
		logger.L(ctx).Error("order submission failed",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		return nil, err
	}

	if err := order.AttachRemoteOrder(remote.ID, remote.SalesOrderNumber, remote.OrderNumber); err != nil {
		return nil, err
	}
	detail := "submitted"
	if remote.AlreadyExisted {
		detail = "recovered existing remote order"
	}
	order.AppendSyncEvent(fulfillment.SyncEvent{
		Kind:   fulfillment.SyncEventSubmitted,
		Detail: fmt.Sprintf("%s as %s", detail, remote.SalesOrderNumber),
	})

	if err := s.orders.Save(ctx, order); err != nil {
		// The provider has the order but we failed to record it; the next
		// submission resolves through the duplicate path
		logger.L(ctx).Error("failed to persist remote order reference",
			zap.String("order_number", order.OrderNumber),
			zap.String("sales_order_number", remote.SalesOrderNumber),
			zap.Error(err))
		return nil, err
	}

	logger.L(ctx).Info("order submitted",
		zap.String("order_number", order.OrderNumber),
		zap.String("sales_order_number", remote.SalesOrderNumber),
		zap.Bool("already_existed", remote.AlreadyExisted))

	return &SubmissionResult{
		OrderNumber:       order.OrderNumber,
		RemoteOrderID:     remote.ID,
		RemoteOrderNumber: remote.SalesOrderNumber,
		AlreadyExisted:    remote.AlreadyExisted,
	}, nil
}

// View returns the submission state of an order
func (s *SubmissionService) View(ctx context.Context, orderNumber string) (*OrderView, error) {
	order, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	view := &OrderView{
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Paid:        order.Paid,
		Total:       order.FinalTotal().StringFixed(2),
		SyncEvents:  order.SyncEvents,
	}
	if order.RemoteOrderID != nil {
		view.RemoteOrderID = *order.RemoteOrderID
	}
	if order.RemoteOrderNumber != nil {
		view.RemoteOrderNumber = *order.RemoteOrderNumber
	}
	return view, nil
}

// RemoteStatus queries the provider for its current view of the order
func (s *SubmissionService) RemoteStatus(ctx context.Context, orderNumber string) (json.RawMessage, error) {
	order, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.RemoteOrderNumber == nil {
		return nil, shared.NewDomainError("NOT_SUBMITTED", "Order has no provider order reference yet")
	}
	return s.provider.OrderStatus(ctx, *order.RemoteOrderNumber)
}

// resultFromOrder builds a result from an already-submitted order
func resultFromOrder(order *fulfillment.Order, alreadyExisted bool) *SubmissionResult {
	result := &SubmissionResult{
		OrderNumber:    order.OrderNumber,
		AlreadyExisted: alreadyExisted,
	}
	if order.RemoteOrderID != nil {
		result.RemoteOrderID = *order.RemoteOrderID
	}
	if order.RemoteOrderNumber != nil {
		result.RemoteOrderNumber = *order.RemoteOrderNumber
	}
	return result
}

// namePreview shortens a customer name for log lines
func namePreview(name string) string {
	const max = 20
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	return string(runes[:max]) + "..."
}
