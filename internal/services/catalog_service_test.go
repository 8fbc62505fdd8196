package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/pizza-hub/api/internal/domain"
)

func newTestCatalogService(t *testing.T) CatalogService {
	t.Helper()
	svc, err := NewCatalogService(CatalogServiceDeps{
		Repository: &stubCatalogRepo{
			products: map[string]domain.Product{
				"prod_margherita": margheritaProduct(),
			},
			ingredients: []domain.Ingredient{
				{ID: "ing_cheese", Name: "Extra cheese", Price: 50},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewCatalogService error: %v", err)
	}
	return svc
}

func TestListProductsRejectsUnknownSize(t *testing.T) {
	svc := newTestCatalogService(t)
	_, err := svc.ListProducts(context.Background(), ProductFilter{Sizes: []domain.PizzaSize{25}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListProductsRejectsInvertedPriceRange(t *testing.T) {
	svc := newTestCatalogService(t)
	from, to := int64(500), int64(100)
	_, err := svc.ListProducts(context.Background(), ProductFilter{PriceFrom: &from, PriceTo: &to})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetProductNotFound(t *testing.T) {
	svc := newTestCatalogService(t)
	_, err := svc.GetProduct(context.Background(), "prod_ghost")
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestListIngredients(t *testing.T) {
	svc := newTestCatalogService(t)
	ingredients, err := svc.ListIngredients(context.Background())
	if err != nil {
		t.Fatalf("ListIngredients error: %v", err)
	}
	if len(ingredients) != 1 || ingredients[0].ID != "ing_cheese" {
		t.Fatalf("unexpected ingredients %+v", ingredients)
	}
}
