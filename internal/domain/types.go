package domain

import (
	"time"
)

// PizzaSize enumerates supported pizza diameters in centimetres.
type PizzaSize int

const (
	// PizzaSizeSmall is the 20 cm pizza.
	PizzaSizeSmall PizzaSize = 20
	// PizzaSizeMedium is the 30 cm pizza.
	PizzaSizeMedium PizzaSize = 30
	// PizzaSizeLarge is the 40 cm pizza.
	PizzaSizeLarge PizzaSize = 40
)

// PizzaType enumerates supported dough types.
type PizzaType int

const (
	// PizzaTypeTraditional is the classic dough.
	PizzaTypeTraditional PizzaType = 1
	// PizzaTypeThin is the thin dough.
	PizzaTypeThin PizzaType = 2
)

// Ingredient is an optional add-on the customer can put on a pizza.
type Ingredient struct {
	ID        string
	Name      string
	Price     int64
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductVariant is a purchasable configuration of a product. Non-pizza
// products carry a single variant with zero size and type.
type ProductVariant struct {
	ID        string
	Price     int64
	Size      PizzaSize
	PizzaType PizzaType
}

// Product is a menu entry together with its variants and the ingredients
// that may be added to it.
type Product struct {
	ID          string
	Name        string
	ImageURL    string
	CategoryID  string
	Ingredients []Ingredient
	Variants    []ProductVariant
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductFilter narrows catalog listings. Zero-value fields are ignored.
type ProductFilter struct {
	Sizes         []PizzaSize
	PizzaTypes    []PizzaType
	IngredientIDs []string
	PriceFrom     *int64
	PriceTo       *int64
}

// CartItem is a single configured line within a cart. UnitPrice is resolved
// once when the line is added and never re-priced afterwards.
type CartItem struct {
	ID            string
	ProductID     string
	ProductName   string
	VariantID     string
	Size          PizzaSize
	PizzaType     PizzaType
	IngredientIDs []string
	UnitPrice     int64
	Quantity      int
	AddedAt       time.Time
	UpdatedAt     *time.Time
}

// Cart aggregates the mutable shopping state attached to a client token.
// TotalAmount always equals the sum over items of UnitPrice times Quantity.
type Cart struct {
	Token       string
	Items       []CartItem
	TotalAmount int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderStatus enumerates lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order awaits payment completion.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusSucceeded indicates payment completed. Terminal.
	OrderStatusSucceeded OrderStatus = "succeeded"
	// OrderStatusCancelled indicates the order was abandoned or rejected. Terminal.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderCustomer stores the contact details collected at checkout.
type OrderCustomer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	Comment   string
}

// OrderItemSnapshot freezes one cart line at checkout time. Snapshots are
// immutable once the order exists.
type OrderItemSnapshot struct {
	ProductID     string
	ProductName   string
	Size          PizzaSize
	PizzaType     PizzaType
	IngredientIDs []string
	UnitPrice     int64
	Quantity      int
	LineTotal     int64
}

// OrderSnapshotVersion tags the item snapshot schema carried by orders.
const OrderSnapshotVersion = 1

// PaymentRef links an order to the payment provider session created for it.
type PaymentRef struct {
	Provider  string
	SessionID string
	URL       string
	CreatedAt time.Time
}

// Order is the immutable record produced by checkout.
type Order struct {
	ID              string
	Number          int64
	CartToken       string
	Status          OrderStatus
	Customer        OrderCustomer
	Items           []OrderItemSnapshot
	SnapshotVersion int
	ItemsTotal      int64
	DeliveryFee     int64
	TotalAmount     int64
	Payment         *PaymentRef
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PaidAt          *time.Time
	CancelledAt     *time.Time
}

// User is a registered customer account.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	Verified     bool
	VerifiedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// VerificationCode is the short-lived code mailed to a new account.
type VerificationCode struct {
	UserID    string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates a dependency is failing but the service keeps running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	Environment string
	GeneratedAt time.Time
}
