package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/pizza-hub/api/internal/domain"
	"github.com/pizza-hub/api/internal/repositories"
)

// CatalogServiceDeps wires the catalog repository.
type CatalogServiceDeps struct {
	Repository repositories.CatalogRepository
}

type catalogService struct {
	repo repositories.CatalogRepository
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Repository == nil {
		return nil, errors.New("catalog service: repository is required")
	}
	return &catalogService{repo: deps.Repository}, nil
}

// ListProducts returns the menu narrowed by the supplied filter.
func (s *catalogService) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	if s == nil || s.repo == nil {
		return nil, ErrUnavailable
	}
	normalised, err := normaliseProductFilter(filter)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx, normalised)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return products, nil
}

// GetProduct loads a single product with its variants and ingredients.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	if s == nil || s.repo == nil {
		return Product{}, ErrUnavailable
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: productId is required", ErrInvalidInput)
	}
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return Product{}, fmt.Errorf("%w: product %s", ErrProductNotFound, productID)
		}
		return Product{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return product, nil
}

// ListIngredients returns every add-on offered by the store.
func (s *catalogService) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	if s == nil || s.repo == nil {
		return nil, ErrUnavailable
	}
	ingredients, err := s.repo.ListIngredients(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ingredients, nil
}

func normaliseProductFilter(filter ProductFilter) (domain.ProductFilter, error) {
	for _, size := range filter.Sizes {
		switch size {
		case domain.PizzaSizeSmall, domain.PizzaSizeMedium, domain.PizzaSizeLarge:
		default:
			return domain.ProductFilter{}, fmt.Errorf("%w: unsupported size %d", ErrInvalidInput, size)
		}
	}
	for _, pizzaType := range filter.PizzaTypes {
		switch pizzaType {
		case domain.PizzaTypeTraditional, domain.PizzaTypeThin:
		default:
			return domain.ProductFilter{}, fmt.Errorf("%w: unsupported pizza type %d", ErrInvalidInput, pizzaType)
		}
	}
	if filter.PriceFrom != nil && *filter.PriceFrom < 0 {
		return domain.ProductFilter{}, fmt.Errorf("%w: priceFrom must be non-negative", ErrInvalidInput)
	}
	if filter.PriceTo != nil && *filter.PriceTo < 0 {
		return domain.ProductFilter{}, fmt.Errorf("%w: priceTo must be non-negative", ErrInvalidInput)
	}
	if filter.PriceFrom != nil && filter.PriceTo != nil && *filter.PriceFrom > *filter.PriceTo {
		return domain.ProductFilter{}, fmt.Errorf("%w: priceFrom exceeds priceTo", ErrInvalidInput)
	}
	filter.IngredientIDs = dedupeIngredientIDs(filter.IngredientIDs)
	return filter, nil
}
