package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/pizza-hub/api/internal/domain"
	"github.com/pizza-hub/api/internal/payments"
	"github.com/pizza-hub/api/internal/repositories"
)

const (
	orderCounterID     = "orders"
	defaultDeliveryFee = 25_000
	defaultCurrency    = "UAH"

	eventOrderCreated = "order.created"

	// checkoutSnapshotAttempts bounds the re-snapshot loop when the cart
	// keeps moving between the read and the checkout transaction.
	checkoutSnapshotAttempts = 3
	// paymentRefAttempts bounds the conditional writes that attach the
	// payment reference to the stored order.
	paymentRefAttempts = 3
)

// checkoutPaymentManager abstracts payments.Manager for easier testing.
type checkoutPaymentManager interface {
	CreatePaymentLink(ctx context.Context, paymentCtx payments.PaymentContext, req payments.PaymentLinkRequest) (payments.PaymentLink, error)
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Carts       repositories.CartRepository
	Orders      repositories.OrderRepository
	Counters    repositories.CounterRepository
	Payments    checkoutPaymentManager
	Mail        MailSender
	Events      OrderEventPublisher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
	DeliveryFee int64
	Currency    string
}

type checkoutService struct {
	carts       repositories.CartRepository
	orders      repositories.OrderRepository
	counters    repositories.CounterRepository
	payments    checkoutPaymentManager
	mail        MailSender
	events      OrderEventPublisher
	newID       func() string
	now         func() time.Time
	logger      func(ctx context.Context, event string, fields map[string]any)
	deliveryFee int64
	currency    string
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("checkout service: counter repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment manager is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	fee := deps.DeliveryFee
	if fee < 0 {
		return nil, errors.New("checkout service: delivery fee must be non-negative")
	}
	if fee == 0 {
		fee = defaultDeliveryFee
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	return &checkoutService{
		carts:       deps.Carts,
		orders:      deps.Orders,
		counters:    deps.Counters,
		payments:    deps.Payments,
		mail:        deps.Mail,
		events:      deps.Events,
		newID:       idGen,
		now:         func() time.Time { return clock().UTC() },
		logger:      logger,
		deliveryFee: fee,
		currency:    currency,
	}, nil
}

// Checkout snapshots the cart into a pending order, empties the cart, and
// returns the hosted payment link. Payment link creation is fatal for the
// request but leaves the order pending; the notification email is best-effort.
func (s *checkoutService) Checkout(ctx context.Context, cmd CheckoutCommand) (CheckoutResult, error) {
	if s == nil || s.carts == nil || s.orders == nil {
		return CheckoutResult{}, ErrUnavailable
	}

	token := strings.TrimSpace(cmd.CartToken)
	if token == "" {
		return CheckoutResult{}, ErrCartTokenMissing
	}
	customer, err := normaliseCustomer(cmd.Customer)
	if err != nil {
		return CheckoutResult{}, err
	}

	cart, err := s.carts.GetCart(ctx, token)
	if err != nil {
		if isRepoNotFound(err) {
			return CheckoutResult{}, ErrCartNotFound
		}
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(cart.Items) == 0 {
		return CheckoutResult{}, ErrCartEmpty
	}

	number, err := s.counters.Next(ctx, orderCounterID, 1)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// The order insert and the cart wipe happen in one transaction keyed on
	// the cart's updatedAt, so a cart that was emptied or mutated after the
	// read above aborts with a conflict. A mutated cart is re-read and
	// re-snapshotted so late additions land on the order instead of being
	// wiped unpaid.
	var order domain.Order
	for attempt := 1; ; attempt++ {
		order = s.buildOrder(cart, customer, number)
		order, err = s.orders.InsertAndClearCart(ctx, order, cart.UpdatedAt)
		if err == nil {
			break
		}
		switch {
		case isRepoNotFound(err):
			return CheckoutResult{}, ErrCartNotFound
		case isRepoConflict(err):
			if attempt >= checkoutSnapshotAttempts {
				return CheckoutResult{}, fmt.Errorf("%w: cart kept changing during checkout", ErrUnavailable)
			}
		default:
			return CheckoutResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		cart, err = s.carts.GetCart(ctx, token)
		if err != nil {
			if isRepoNotFound(err) {
				return CheckoutResult{}, ErrCartNotFound
			}
			return CheckoutResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if len(cart.Items) == 0 {
			return CheckoutResult{}, ErrCartEmpty
		}
	}

	link, err := s.payments.CreatePaymentLink(ctx, payments.PaymentContext{}, payments.PaymentLinkRequest{
		OrderID:        order.ID,
		OrderNumber:    order.Number,
		Amount:         order.TotalAmount,
		Currency:       s.currency,
		CustomerEmail:  customer.Email,
		IdempotencyKey: "order-" + order.ID,
		Metadata: map[string]string{
			"order_id":     order.ID,
			"order_number": fmt.Sprintf("%d", order.Number),
		},
		Items: s.buildLineItems(order),
	})
	if err != nil {
		s.logger(ctx, "checkout.payment_link_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrPaymentCreationFailed, err)
	}

	order = s.attachPaymentRef(ctx, order, &domain.PaymentRef{
		Provider:  link.Provider,
		SessionID: link.SessionID,
		URL:       link.URL,
		CreatedAt: s.now(),
	})

	s.publishOrderCreated(ctx, order)

	if s.mail != nil {
		if err := s.mail.SendOrderPaymentEmail(ctx, customer.Email, order, link.URL); err != nil {
			s.logger(ctx, "checkout.notification_failed", map[string]any{
				"orderId": order.ID,
				"email":   customer.Email,
				"error":   err.Error(),
			})
		}
	}

	return CheckoutResult{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		PaymentURL:  link.URL,
	}, nil
}

// attachPaymentRef persists the payment reference under an optimistic
// precondition. When a webhook settles the order between the insert and
// this write, the fresh document wins and only the payment field is added
// to it, so a settled status is never rolled back to pending.
func (s *checkoutService) attachPaymentRef(ctx context.Context, order domain.Order, ref *domain.PaymentRef) domain.Order {
	current := order
	for attempt := 1; attempt <= paymentRefAttempts; attempt++ {
		expected := current.UpdatedAt
		current.Payment = ref
		current.UpdatedAt = s.now()
		err := s.orders.Update(ctx, current, expected)
		if err == nil {
			return current
		}
		if isRepoConflict(err) && attempt < paymentRefAttempts {
			fresh, readErr := s.orders.FindByID(ctx, order.ID)
			if readErr == nil {
				current = fresh
				continue
			}
			err = readErr
		}
		// The link metadata carries the order id, so reconciliation still
		// works even when the payment reference fails to persist.
		s.logger(ctx, "checkout.payment_ref_persist_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		break
	}
	order.Payment = ref
	return order
}

func (s *checkoutService) buildOrder(cart domain.Cart, customer domain.OrderCustomer, number int64) domain.Order {
	now := s.now()
	items := make([]domain.OrderItemSnapshot, 0, len(cart.Items))
	var itemsTotal int64
	for _, item := range cart.Items {
		line := item.UnitPrice * int64(item.Quantity)
		itemsTotal += line
		items = append(items, domain.OrderItemSnapshot{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Size:          item.Size,
			PizzaType:     item.PizzaType,
			IngredientIDs: append([]string(nil), item.IngredientIDs...),
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			LineTotal:     line,
		})
	}

	return domain.Order{
		ID:              s.newID(),
		Number:          number,
		CartToken:       cart.Token,
		Status:          domain.OrderStatusPending,
		Customer:        customer,
		Items:           items,
		SnapshotVersion: domain.OrderSnapshotVersion,
		ItemsTotal:      itemsTotal,
		DeliveryFee:     s.deliveryFee,
		TotalAmount:     itemsTotal + s.deliveryFee,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *checkoutService) buildLineItems(order domain.Order) []payments.LineItem {
	items := make([]payments.LineItem, 0, len(order.Items)+1)
	for _, item := range order.Items {
		items = append(items, payments.LineItem{
			Name:     item.ProductName,
			Quantity: int64(item.Quantity),
			Amount:   item.UnitPrice,
			Currency: s.currency,
		})
	}
	if order.DeliveryFee > 0 {
		items = append(items, payments.LineItem{
			Name:     "Delivery",
			Quantity: 1,
			Amount:   order.DeliveryFee,
			Currency: s.currency,
		})
	}
	return items
}

func (s *checkoutService) publishOrderCreated(ctx context.Context, order domain.Order) {
	if s.events == nil {
		return
	}
	event := OrderEvent{
		Type:        eventOrderCreated,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  s.now().Format(time.RFC3339),
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "checkout.event_publish_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

// commentPolicy strips all markup from the free-form delivery comment before
// it reaches storage and the kitchen dashboard.
var commentPolicy = bluemonday.StrictPolicy()

func normaliseCustomer(customer domain.OrderCustomer) (domain.OrderCustomer, error) {
	customer.FirstName = strings.TrimSpace(customer.FirstName)
	customer.LastName = strings.TrimSpace(customer.LastName)
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	customer.Phone = strings.TrimSpace(customer.Phone)
	customer.Address = strings.TrimSpace(customer.Address)
	customer.Comment = strings.TrimSpace(commentPolicy.Sanitize(customer.Comment))

	if customer.FirstName == "" {
		return domain.OrderCustomer{}, fmt.Errorf("%w: firstName is required", ErrInvalidInput)
	}
	if customer.Email == "" || !strings.Contains(customer.Email, "@") {
		return domain.OrderCustomer{}, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if customer.Phone == "" {
		return domain.OrderCustomer{}, fmt.Errorf("%w: phone is required", ErrInvalidInput)
	}
	if customer.Address == "" {
		return domain.OrderCustomer{}, fmt.Errorf("%w: address is required", ErrInvalidInput)
	}
	return customer, nil
}
