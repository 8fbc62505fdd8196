package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/pizza-hub/api/internal/domain"
	"github.com/pizza-hub/api/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartCatalogRequired    = errors.New("cart service: catalog is required")
	errCartPricerRequired     = errors.New("cart service: pricing engine is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// CartServiceDeps wires the repository, catalog, and pricing dependencies for cart operations.
type CartServiceDeps struct {
	Repository  repositories.CartRepository
	Catalog     repositories.CatalogRepository
	Pricer      *PricingEngine
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type cartService struct {
	repo    repositories.CartRepository
	catalog repositories.CatalogRepository
	pricer  *PricingEngine
	newID   func() string
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Catalog == nil {
		return nil, errCartCatalogRequired
	}
	if deps.Pricer == nil {
		return nil, errCartPricerRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		repo:    deps.Repository,
		catalog: deps.Catalog,
		pricer:  deps.Pricer,
		newID:   idGen,
		now:     func() time.Time { return deps.Clock().UTC() },
		logger:  logger,
	}, nil
}

// GetOrCreateCart loads the cart for the token, creating an empty cart when absent.
func (s *cartService) GetOrCreateCart(ctx context.Context, token string) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrUnavailable
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return Cart{}, ErrCartTokenMissing
	}

	cart, err := s.repo.GetCart(ctx, token)
	if err == nil {
		return cart, nil
	}
	if !isRepoNotFound(err) {
		return Cart{}, s.translateRepoError(err)
	}

	created, err := s.repo.CreateCart(ctx, s.newCart(token))
	if err != nil {
		// A concurrent request may have created the cart between the read
		// and the create. Fall back to the stored cart on conflict.
		if isRepoConflict(err) {
			return s.repo.GetCart(ctx, token)
		}
		return Cart{}, s.translateRepoError(err)
	}
	return created, nil
}

// AddItem prices the requested configuration and appends it to the cart,
// merging with an existing line when the configuration is identical.
func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrUnavailable
	}

	token := strings.TrimSpace(cmd.Token)
	if token == "" {
		return Cart{}, ErrCartTokenMissing
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Cart{}, fmt.Errorf("%w: productId is required", ErrInvalidInput)
	}
	quantity := cmd.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, fmt.Errorf("%w: product %s", ErrProductNotFound, productID)
		}
		return Cart{}, s.translateRepoError(err)
	}

	breakdown, err := s.pricer.PriceConfiguration(PriceConfigurationCommand{
		Product:       product,
		Size:          cmd.Size,
		PizzaType:     cmd.PizzaType,
		IngredientIDs: cmd.IngredientIDs,
	})
	if err != nil {
		return Cart{}, err
	}

	variant, _ := findVariant(product.Variants, cmd.Size, cmd.PizzaType)
	ingredientIDs := dedupeIngredientIDs(cmd.IngredientIDs)

	// The cart is created lazily so the first AddItem for a token succeeds.
	if _, err := s.GetOrCreateCart(ctx, token); err != nil {
		return Cart{}, err
	}

	return s.mutate(ctx, token, func(cart *domain.Cart) error {
		now := s.now()
		for i := range cart.Items {
			if !sameConfiguration(cart.Items[i], productID, variant.ID, ingredientIDs) {
				continue
			}
			cart.Items[i].Quantity += quantity
			ts := now
			cart.Items[i].UpdatedAt = &ts
			recomputeTotal(cart)
			return nil
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ID:            s.newID(),
			ProductID:     product.ID,
			ProductName:   product.Name,
			VariantID:     variant.ID,
			Size:          cmd.Size,
			PizzaType:     cmd.PizzaType,
			IngredientIDs: ingredientIDs,
			UnitPrice:     breakdown.Total,
			Quantity:      quantity,
			AddedAt:       now,
		})
		recomputeTotal(cart)
		return nil
	})
}

// UpdateItemQuantity sets the quantity of an existing line. Quantities below
// one are clamped to one, never removing the line.
func (s *cartService) UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemQuantityCommand) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrUnavailable
	}

	token := strings.TrimSpace(cmd.Token)
	if token == "" {
		return Cart{}, ErrCartTokenMissing
	}
	itemID := strings.TrimSpace(cmd.ItemID)
	if itemID == "" {
		return Cart{}, fmt.Errorf("%w: itemId is required", ErrInvalidInput)
	}

	quantity := cmd.Quantity
	if quantity < 1 {
		quantity = 1
	}

	return s.mutate(ctx, token, func(cart *domain.Cart) error {
		for i := range cart.Items {
			if cart.Items[i].ID != itemID {
				continue
			}
			cart.Items[i].Quantity = quantity
			ts := s.now()
			cart.Items[i].UpdatedAt = &ts
			recomputeTotal(cart)
			return nil
		}
		return fmt.Errorf("%w: item %s", ErrCartItemNotFound, itemID)
	})
}

// RemoveItem drops the line from the cart. Removing an absent line is not an
// error so retries stay safe.
func (s *cartService) RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrUnavailable
	}

	token := strings.TrimSpace(cmd.Token)
	if token == "" {
		return Cart{}, ErrCartTokenMissing
	}
	itemID := strings.TrimSpace(cmd.ItemID)
	if itemID == "" {
		return Cart{}, fmt.Errorf("%w: itemId is required", ErrInvalidInput)
	}

	return s.mutate(ctx, token, func(cart *domain.Cart) error {
		for i := range cart.Items {
			if cart.Items[i].ID != itemID {
				continue
			}
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			break
		}
		recomputeTotal(cart)
		return nil
	})
}

func (s *cartService) mutate(ctx context.Context, token string, fn func(cart *domain.Cart) error) (Cart, error) {
	cart, err := s.repo.Mutate(ctx, token, fn)
	if err != nil {
		if errors.Is(err, ErrCartItemNotFound) || errors.Is(err, ErrInvalidInput) {
			return Cart{}, err
		}
		if isRepoNotFound(err) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}
	return cart, nil
}

func (s *cartService) newCart(token string) domain.Cart {
	now := s.now()
	return domain.Cart{
		Token:     token,
		Items:     []domain.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return ErrCartNotFound
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// sameConfiguration reports whether the existing line matches the incoming
// product, variant, and ingredient selection. Ingredient slices arrive sorted
// and deduplicated, so element-wise comparison is enough.
func sameConfiguration(item domain.CartItem, productID, variantID string, ingredientIDs []string) bool {
	if item.ProductID != productID || item.VariantID != variantID {
		return false
	}
	if len(item.IngredientIDs) != len(ingredientIDs) {
		return false
	}
	for i := range ingredientIDs {
		if item.IngredientIDs[i] != ingredientIDs[i] {
			return false
		}
	}
	return true
}

func recomputeTotal(cart *domain.Cart) {
	var total int64
	for _, item := range cart.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	cart.TotalAmount = total
}
