package handlers

import (
	"context"
	"net/http"

	"github.com/pizza-hub/api/internal/platform/requestctx"
	"github.com/pizza-hub/api/internal/services"
)

type stubCatalogService struct {
	products    []services.Product
	product     services.Product
	ingredients []services.Ingredient
	err         error

	lastFilter services.ProductFilter
	lastID     string
}

func (s *stubCatalogService) ListProducts(_ context.Context, filter services.ProductFilter) ([]services.Product, error) {
	s.lastFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return s.products, nil
}

func (s *stubCatalogService) GetProduct(_ context.Context, productID string) (services.Product, error) {
	s.lastID = productID
	if s.err != nil {
		return services.Product{}, s.err
	}
	return s.product, nil
}

func (s *stubCatalogService) ListIngredients(context.Context) ([]services.Ingredient, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ingredients, nil
}

type stubCartService struct {
	cart services.Cart
	err  error

	lastToken string
	lastAdd   services.AddCartItemCommand
	lastQty   services.UpdateCartItemQuantityCommand
	lastRem   services.RemoveCartItemCommand
}

func (s *stubCartService) GetOrCreateCart(_ context.Context, token string) (services.Cart, error) {
	s.lastToken = token
	if s.err != nil {
		return services.Cart{}, s.err
	}
	cart := s.cart
	if cart.Token == "" {
		cart.Token = token
	}
	return cart, nil
}

func (s *stubCartService) AddItem(_ context.Context, cmd services.AddCartItemCommand) (services.Cart, error) {
	s.lastAdd = cmd
	if s.err != nil {
		return services.Cart{}, s.err
	}
	return s.cart, nil
}

func (s *stubCartService) UpdateItemQuantity(_ context.Context, cmd services.UpdateCartItemQuantityCommand) (services.Cart, error) {
	s.lastQty = cmd
	if s.err != nil {
		return services.Cart{}, s.err
	}
	return s.cart, nil
}

func (s *stubCartService) RemoveItem(_ context.Context, cmd services.RemoveCartItemCommand) (services.Cart, error) {
	s.lastRem = cmd
	if s.err != nil {
		return services.Cart{}, s.err
	}
	return s.cart, nil
}

type stubCheckoutService struct {
	result services.CheckoutResult
	err    error

	lastCmd services.CheckoutCommand
}

func (s *stubCheckoutService) Checkout(_ context.Context, cmd services.CheckoutCommand) (services.CheckoutResult, error) {
	s.lastCmd = cmd
	if s.err != nil {
		return services.CheckoutResult{}, s.err
	}
	return s.result, nil
}

type stubOrderService struct {
	order  services.Order
	orders []services.Order
	err    error

	lastID         string
	lastEmail      string
	lastTransition services.OrderStatusTransitionCommand
}

func (s *stubOrderService) GetOrder(_ context.Context, orderID string) (services.Order, error) {
	s.lastID = orderID
	if s.err != nil {
		return services.Order{}, s.err
	}
	return s.order, nil
}

func (s *stubOrderService) ListOrdersByEmail(_ context.Context, email string) ([]services.Order, error) {
	s.lastEmail = email
	if s.err != nil {
		return nil, s.err
	}
	return s.orders, nil
}

func (s *stubOrderService) TransitionStatus(_ context.Context, cmd services.OrderStatusTransitionCommand) (services.Order, error) {
	s.lastTransition = cmd
	if s.err != nil {
		return services.Order{}, s.err
	}
	order := s.order
	order.Status = cmd.TargetStatus
	return order, nil
}

type stubUserService struct {
	user  services.User
	login services.LoginResult
	err   error

	lastRegister services.RegisterUserCommand
	lastVerify   services.VerifyUserCommand
	lastLogin    services.LoginCommand
	lastProfile  string
	lastUpdate   services.UpdateProfileCommand
}

func (s *stubUserService) Register(_ context.Context, cmd services.RegisterUserCommand) (services.User, error) {
	s.lastRegister = cmd
	if s.err != nil {
		return services.User{}, s.err
	}
	return s.user, nil
}

func (s *stubUserService) Verify(_ context.Context, cmd services.VerifyUserCommand) (services.User, error) {
	s.lastVerify = cmd
	if s.err != nil {
		return services.User{}, s.err
	}
	return s.user, nil
}

func (s *stubUserService) Login(_ context.Context, cmd services.LoginCommand) (services.LoginResult, error) {
	s.lastLogin = cmd
	if s.err != nil {
		return services.LoginResult{}, s.err
	}
	return s.login, nil
}

func (s *stubUserService) GetProfile(_ context.Context, userID string) (services.User, error) {
	s.lastProfile = userID
	if s.err != nil {
		return services.User{}, s.err
	}
	return s.user, nil
}

func (s *stubUserService) UpdateProfile(_ context.Context, cmd services.UpdateProfileCommand) (services.User, error) {
	s.lastUpdate = cmd
	if s.err != nil {
		return services.User{}, s.err
	}
	return s.user, nil
}

// injectIdentity stands in for the session middleware in tests.
func injectIdentity(identity requestctx.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestctx.WithIdentity(r.Context(), identity)))
		})
	}
}

var (
	_ services.CatalogService  = (*stubCatalogService)(nil)
	_ services.CartService     = (*stubCartService)(nil)
	_ services.CheckoutService = (*stubCheckoutService)(nil)
	_ services.OrderService    = (*stubOrderService)(nil)
	_ services.UserService     = (*stubUserService)(nil)
)
