package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pizza-hub/api/internal/domain"
	"github.com/pizza-hub/api/internal/services"
)

func newCatalogTestRouter(svc services.CatalogService) http.Handler {
	return NewRouter(WithCatalogRoutes(NewCatalogHandlers(svc, nil).Routes))
}

func sampleProduct() services.Product {
	return services.Product{
		ID:   "prod_1",
		Name: "Маргарита",
		Ingredients: []domain.Ingredient{
			{ID: "ing_1", Name: "Сир", Price: 5_000},
		},
		Variants: []domain.ProductVariant{
			{ID: "var_1", Price: 30_000, Size: domain.PizzaSizeMedium, PizzaType: domain.PizzaTypeTraditional},
			{ID: "var_2", Price: 42_000, Size: domain.PizzaSizeLarge, PizzaType: domain.PizzaTypeThin},
		},
	}
}

func TestListProductsParsesFilters(t *testing.T) {
	svc := &stubCatalogService{products: []services.Product{sampleProduct()}}
	router := newCatalogTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?sizes=20,30&pizzaTypes=1&ingredients=ing_1,ing_2&priceFrom=10000&priceTo=50000", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	filter := svc.lastFilter
	if len(filter.Sizes) != 2 || filter.Sizes[0] != domain.PizzaSizeSmall || filter.Sizes[1] != domain.PizzaSizeMedium {
		t.Fatalf("unexpected sizes %v", filter.Sizes)
	}
	if len(filter.PizzaTypes) != 1 || filter.PizzaTypes[0] != domain.PizzaTypeTraditional {
		t.Fatalf("unexpected types %v", filter.PizzaTypes)
	}
	if len(filter.IngredientIDs) != 2 {
		t.Fatalf("unexpected ingredients %v", filter.IngredientIDs)
	}
	if filter.PriceFrom == nil || *filter.PriceFrom != 10_000 {
		t.Fatalf("unexpected priceFrom %v", filter.PriceFrom)
	}
	if filter.PriceTo == nil || *filter.PriceTo != 50_000 {
		t.Fatalf("unexpected priceTo %v", filter.PriceTo)
	}

	var resp productListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Products) != 1 || len(resp.Products[0].Variants) != 2 {
		t.Fatalf("unexpected payload %+v", resp.Products)
	}
}

func TestListProductsRejectsMalformedQuery(t *testing.T) {
	router := newCatalogTestRouter(&stubCatalogService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?sizes=big", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListProductsMapsInvalidFilter(t *testing.T) {
	router := newCatalogTestRouter(&stubCatalogService{err: services.ErrInvalidInput})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?sizes=25", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetProductReturnsVariants(t *testing.T) {
	svc := &stubCatalogService{product: sampleProduct()}
	router := newCatalogTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/prod_1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastID != "prod_1" {
		t.Fatalf("expected product id forwarded, got %q", svc.lastID)
	}

	var resp productResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Product.Variants[0].Price != 30_000 {
		t.Fatalf("unexpected variant price %d", resp.Product.Variants[0].Price)
	}
}

func TestGetProductMapsNotFound(t *testing.T) {
	router := newCatalogTestRouter(&stubCatalogService{err: services.ErrProductNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/prod_404", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec.Body.String()); code != "product_not_found" {
		t.Fatalf("unexpected error code %q", code)
	}
}

func TestListIngredients(t *testing.T) {
	svc := &stubCatalogService{ingredients: []services.Ingredient{
		{ID: "ing_1", Name: "Сир", Price: 5_000},
		{ID: "ing_2", Name: "Бекон", Price: 3_000},
	}}
	router := newCatalogTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingredients", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp ingredientListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Ingredients) != 2 || resp.Ingredients[1].Price != 3_000 {
		t.Fatalf("unexpected payload %+v", resp.Ingredients)
	}
}
