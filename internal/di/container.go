package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pizza-hub/api/internal/payments"
	"github.com/pizza-hub/api/internal/platform/config"
	"github.com/pizza-hub/api/internal/repositories"
	"github.com/pizza-hub/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog  services.CatalogService
	Cart     services.CartService
	Checkout services.CheckoutService
	Orders   services.OrderService
	Users    services.UserService
	System   services.SystemService
}

// Dependencies carries collaborators that are constructed outside the container, such as the
// payment manager and the mail relay client. Events may be nil when publishing is disabled.
type Dependencies struct {
	Payments *payments.Manager
	Mail     services.MailSender
	Sessions services.SessionIssuer
	Events   services.OrderEventPublisher
	Logger   *zap.Logger
	Build    services.BuildInfo
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, deps Dependencies) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, cfg, reg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients, background workers, or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, cfg config.Config, reg repositories.Registry, deps Dependencies) (Services, error) {
	var svc Services

	catalogRepo := reg.Catalog()
	if catalogRepo != nil {
		catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
			Repository: catalogRepo,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build catalog service: %w", err)
		}
		svc.Catalog = catalogSvc
	}

	pricer := services.NewPricingEngine()

	cartsRepo := reg.Carts()
	if cartsRepo != nil && catalogRepo != nil {
		cartSvc, err := services.NewCartService(services.CartServiceDeps{
			Repository: cartsRepo,
			Catalog:    catalogRepo,
			Pricer:     pricer,
			Clock:      time.Now,
			Logger:     eventLogger(deps.Logger, "cart"),
		})
		if err != nil {
			return Services{}, fmt.Errorf("build cart service: %w", err)
		}
		svc.Cart = cartSvc
	}

	ordersRepo := reg.Orders()
	if ordersRepo != nil {
		orderDeps := services.OrderServiceDeps{
			Orders: ordersRepo,
			Events: deps.Events,
			Clock:  time.Now,
			Logger: eventLogger(deps.Logger, "orders"),
		}
		if deps.Payments != nil {
			orderDeps.Payments = deps.Payments
		}
		orderSvc, err := services.NewOrderService(orderDeps)
		if err != nil {
			return Services{}, fmt.Errorf("build order service: %w", err)
		}
		svc.Orders = orderSvc
	}

	if cartsRepo != nil && ordersRepo != nil && deps.Payments != nil {
		checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
			Carts:       cartsRepo,
			Orders:      ordersRepo,
			Counters:    reg.Counters(),
			Payments:    deps.Payments,
			Mail:        deps.Mail,
			Events:      deps.Events,
			Clock:       time.Now,
			Logger:      eventLogger(deps.Logger, "checkout"),
			DeliveryFee: cfg.Checkout.DeliveryFee,
			Currency:    cfg.PSP.Currency,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build checkout service: %w", err)
		}
		svc.Checkout = checkoutSvc
	}

	if usersRepo := reg.Users(); usersRepo != nil && deps.Mail != nil && deps.Sessions != nil {
		userSvc, err := services.NewUserService(services.UserServiceDeps{
			Users:    usersRepo,
			Codes:    reg.VerificationCodes(),
			Mail:     deps.Mail,
			Sessions: deps.Sessions,
			Clock:    time.Now,
			CodeTTL:  cfg.Auth.VerificationCodeTTL,
			Logger:   eventLogger(deps.Logger, "users"),
		})
		if err != nil {
			return Services{}, fmt.Errorf("build user service: %w", err)
		}
		svc.Users = userSvc
	}

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            time.Now,
			Build:            deps.Build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}

// eventLogger adapts the shared zap logger into the map-based event callback the
// services accept, namespaced per service.
func eventLogger(logger *zap.Logger, name string) func(context.Context, string, map[string]any) {
	if logger == nil {
		return nil
	}
	named := logger.Named(name)
	return func(_ context.Context, event string, fields map[string]any) {
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		named.Info(event, zapFields...)
	}
}
