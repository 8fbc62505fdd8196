package repositories

import (
	"context"
	"time"

	domain "github.com/pizza-hub/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Catalog() CatalogRepository
	Carts() CartRepository
	Orders() OrderRepository
	Users() UserRepository
	VerificationCodes() VerificationCodeRepository
	Counters() CounterRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CatalogRepository reads the menu: products with their variants and ingredients.
type CatalogRepository interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	ListIngredients(ctx context.Context) ([]domain.Ingredient, error)
}

// CartRepository owns cart persistence keyed by client token. Mutate runs the
// supplied function inside a transaction over the cart document so concurrent
// mutations of the same token serialize.
type CartRepository interface {
	GetCart(ctx context.Context, token string) (domain.Cart, error)
	CreateCart(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Mutate(ctx context.Context, token string, fn func(cart *domain.Cart) error) (domain.Cart, error)
}

// OrderRepository persists orders. InsertAndClearCart creates the order and
// empties the source cart in one transaction so a cart fill converts to at
// most one order; the cart must still match expectedCartUpdatedAt or the
// transaction aborts with a conflict so the caller can re-snapshot. Update
// carries the same optimistic precondition on the order document itself.
type OrderRepository interface {
	InsertAndClearCart(ctx context.Context, order domain.Order, expectedCartUpdatedAt time.Time) (domain.Order, error)
	Update(ctx context.Context, order domain.Order, expectedUpdatedAt time.Time) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Order, error)
}

// UserRepository stores customer accounts keyed by id with unique emails.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) error
	Update(ctx context.Context, user domain.User) error
	FindByID(ctx context.Context, userID string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
}

// VerificationCodeRepository stores the short-lived codes mailed at registration.
type VerificationCodeRepository interface {
	Put(ctx context.Context, code domain.VerificationCode) error
	FindByUser(ctx context.Context, userID string) (domain.VerificationCode, error)
	Delete(ctx context.Context, userID string) error
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
