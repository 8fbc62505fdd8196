package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/pizza-hub/api/internal/domain"
	"github.com/pizza-hub/api/internal/payments"
	"github.com/pizza-hub/api/internal/repositories"
)

const (
	eventOrderPaid      = "order.paid"
	eventOrderCancelled = "order.cancelled"

	// transitionAttempts bounds the read-validate-write loop against
	// racing writers of the same order.
	transitionAttempts = 3
)

// orderPaymentLookup abstracts payments.Manager session lookups used to
// reconcile pending orders whose webhook never arrived.
type orderPaymentLookup interface {
	LookupPayment(ctx context.Context, paymentCtx payments.PaymentContext, req payments.LookupRequest) (payments.PaymentDetails, error)
}

// OrderServiceDeps wires the order repository and event publisher. Payments
// is optional; when present, pending orders are reconciled against the PSP
// on read.
type OrderServiceDeps struct {
	Orders   repositories.OrderRepository
	Events   OrderEventPublisher
	Payments orderPaymentLookup
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders   repositories.OrderRepository
	events   OrderEventPublisher
	payments orderPaymentLookup
	now      func() time.Time
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewOrderService constructs an OrderService validating required dependencies.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &orderService{
		orders:   deps.Orders,
		events:   deps.Events,
		payments: deps.Payments,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

// GetOrder loads a single order by id.
func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrUnavailable
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: orderId is required", ErrInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if order.Status == domain.OrderStatusPending && order.Payment != nil {
		order = s.reconcilePayment(ctx, order)
	}
	return order, nil
}

// reconcilePayment covers webhook deliveries that never arrived: a pending
// order still carrying a payment session asks the provider for the session
// state, and a captured session drives the regular paid transition. Lookup
// failures leave the order as stored.
func (s *orderService) reconcilePayment(ctx context.Context, order Order) Order {
	if s.payments == nil || order.Payment == nil || strings.TrimSpace(order.Payment.SessionID) == "" {
		return order
	}
	details, err := s.payments.LookupPayment(ctx,
		payments.PaymentContext{PreferredProvider: order.Payment.Provider},
		payments.LookupRequest{SessionID: order.Payment.SessionID},
	)
	if err != nil {
		s.logger(ctx, "orders.payment_lookup_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return order
	}
	if details.Status != payments.StatusSucceeded {
		return order
	}
	settled, err := s.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:      order.ID,
		TargetStatus: domain.OrderStatusSucceeded,
	})
	if err != nil {
		s.logger(ctx, "orders.payment_reconcile_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return order
	}
	return settled
}

// ListOrdersByEmail returns the orders placed under the given customer email,
// newest first.
func (s *orderService) ListOrdersByEmail(ctx context.Context, email string) ([]Order, error) {
	if s == nil || s.orders == nil {
		return nil, ErrUnavailable
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	orders, err := s.orders.ListByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return orders, nil
}

// TransitionStatus applies an externally driven status change. Only pending
// orders may move, and only into a terminal state. Replaying an already
// applied transition is a no-op so webhook retries stay safe. The write is
// preconditioned on the updatedAt observed at read time, so of two racing
// webhooks only the winner lands and publishes; the loser re-reads and is
// resolved as a replay or rejected against the now terminal state.
func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrUnavailable
	}

	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: orderId is required", ErrInvalidInput)
	}
	target := cmd.TargetStatus
	if target != domain.OrderStatusSucceeded && target != domain.OrderStatusCancelled {
		return Order{}, fmt.Errorf("%w: unsupported target status %q", ErrInvalidInput, target)
	}

	for attempt := 1; attempt <= transitionAttempts; attempt++ {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			if isRepoNotFound(err) {
				return Order{}, ErrOrderNotFound
			}
			return Order{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		if order.Status == target {
			return order, nil
		}
		if order.Status != domain.OrderStatusPending {
			return Order{}, fmt.Errorf("%w: order %s is %s", ErrOrderStatusFinal, order.ID, order.Status)
		}

		expected := order.UpdatedAt
		now := s.now()
		order.Status = target
		order.UpdatedAt = now
		switch target {
		case domain.OrderStatusSucceeded:
			ts := now
			order.PaidAt = &ts
		case domain.OrderStatusCancelled:
			ts := now
			order.CancelledAt = &ts
		}

		err = s.orders.Update(ctx, order, expected)
		if err == nil {
			s.publishTransition(ctx, order)
			return order, nil
		}
		if !isRepoConflict(err) {
			return Order{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return Order{}, fmt.Errorf("%w: order %s kept changing", ErrUnavailable, orderID)
}

func (s *orderService) publishTransition(ctx context.Context, order domain.Order) {
	if s.events == nil {
		return
	}
	eventType := eventOrderPaid
	if order.Status == domain.OrderStatusCancelled {
		eventType = eventOrderCancelled
	}
	event := OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  s.now().Format(time.RFC3339),
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "orders.event_publish_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}
