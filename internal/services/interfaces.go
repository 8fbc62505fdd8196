package services

import (
	"context"

	domain "github.com/pizza-hub/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	PizzaSize          = domain.PizzaSize
	PizzaType          = domain.PizzaType
	Ingredient         = domain.Ingredient
	Product            = domain.Product
	ProductVariant     = domain.ProductVariant
	ProductFilter      = domain.ProductFilter
	Cart               = domain.Cart
	CartItem           = domain.CartItem
	PriceBreakdown     = domain.PriceBreakdown
	IngredientCharge   = domain.IngredientCharge
	Order              = domain.Order
	OrderStatus        = domain.OrderStatus
	OrderCustomer      = domain.OrderCustomer
	OrderItemSnapshot  = domain.OrderItemSnapshot
	PaymentRef         = domain.PaymentRef
	User               = domain.User
	VerificationCode   = domain.VerificationCode
	SystemHealthReport = domain.SystemHealthReport
)

// CatalogService exposes the public menu.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListIngredients(ctx context.Context) ([]Ingredient, error)
}

// CartService manages token-scoped cart state and keeps totals consistent.
type CartService interface {
	GetOrCreateCart(ctx context.Context, token string) (Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemQuantityCommand) (Cart, error)
	RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error)
}

// CheckoutService turns a filled cart into a pending order with a payment link.
type CheckoutService interface {
	Checkout(ctx context.Context, cmd CheckoutCommand) (CheckoutResult, error)
}

// OrderService reads orders and applies externally driven status transitions.
type OrderService interface {
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrdersByEmail(ctx context.Context, email string) ([]Order, error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
}

// UserService manages registration, verification, sessions, and profiles.
type UserService interface {
	Register(ctx context.Context, cmd RegisterUserCommand) (User, error)
	Verify(ctx context.Context, cmd VerifyUserCommand) (User, error)
	Login(ctx context.Context, cmd LoginCommand) (LoginResult, error)
	GetProfile(ctx context.Context, userID string) (User, error)
	UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (User, error)
}

// SystemService surfaces dependency health for the health endpoints.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// MailSender delivers transactional emails to customers.
type MailSender interface {
	SendOrderPaymentEmail(ctx context.Context, to string, order Order, paymentURL string) error
	SendVerificationEmail(ctx context.Context, to string, code string) error
}

// OrderEventPublisher pushes order lifecycle events to interested consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent is the payload handed to the event publisher.
type OrderEvent struct {
	Type        string      `json:"type"`
	OrderID     string      `json:"orderId"`
	OrderNumber int64       `json:"orderNumber"`
	Status      OrderStatus `json:"status"`
	TotalAmount int64       `json:"totalAmount"`
	OccurredAt  string      `json:"occurredAt"`
}

// Command and DTO definitions ------------------------------------------------

type AddCartItemCommand struct {
	Token         string
	ProductID     string
	Size          PizzaSize
	PizzaType     PizzaType
	IngredientIDs []string
	Quantity      int
}

type UpdateCartItemQuantityCommand struct {
	Token    string
	ItemID   string
	Quantity int
}

type RemoveCartItemCommand struct {
	Token  string
	ItemID string
}

type CheckoutCommand struct {
	CartToken string
	Customer  OrderCustomer
}

type CheckoutResult struct {
	OrderID     string
	OrderNumber int64
	PaymentURL  string
}

type OrderStatusTransitionCommand struct {
	OrderID      string
	TargetStatus OrderStatus
	Reason       string
}

type RegisterUserCommand struct {
	FullName string
	Email    string
	Password string
}

type VerifyUserCommand struct {
	Email string
	Code  string
}

type LoginCommand struct {
	Email    string
	Password string
}

type LoginResult struct {
	Token string
	User  User
}

type UpdateProfileCommand struct {
	UserID   string
	FullName *string
	Email    *string
	Password *string
}
