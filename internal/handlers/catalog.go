package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pizza-hub/api/internal/platform/httpx"
	"github.com/pizza-hub/api/internal/services"
)

// CatalogHandlers exposes the public menu endpoints.
type CatalogHandlers struct {
	catalog services.CatalogService
	limiter RateLimiter
}

// NewCatalogHandlers constructs handlers over the catalog service.
func NewCatalogHandlers(catalog services.CatalogService, limiter RateLimiter) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog, limiter: limiter}
}

// Routes wires the menu endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
	r.Get("/ingredients", h.listIngredients)
}

func (h *CatalogHandlers) allow(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	if h.limiter.Allow(r.RemoteAddr) {
		return true
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
	return false
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.allow(w, r) {
		return
	}

	filter, err := parseProductFilter(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	products, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := productListResponse{Products: make([]productPayload, 0, len(products))}
	for _, product := range products {
		payload.Products = append(payload.Products, buildProductPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.allow(w, r) {
		return
	}

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

func (h *CatalogHandlers) listIngredients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.allow(w, r) {
		return
	}

	ingredients, err := h.catalog.ListIngredients(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := ingredientListResponse{Ingredients: make([]ingredientPayload, 0, len(ingredients))}
	for _, ingredient := range ingredients {
		payload.Ingredients = append(payload.Ingredients, buildIngredientPayload(ingredient))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

// parseProductFilter reads the query parameters used by the storefront:
// sizes and pizzaTypes as comma separated lists, ingredients as ids, and an
// inclusive price range.
func parseProductFilter(r *http.Request) (services.ProductFilter, error) {
	var filter services.ProductFilter
	query := r.URL.Query()

	for _, raw := range splitCSV(query.Get("sizes")) {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return services.ProductFilter{}, errInvalidQueryValue("sizes", raw)
		}
		filter.Sizes = append(filter.Sizes, services.PizzaSize(size))
	}
	for _, raw := range splitCSV(query.Get("pizzaTypes")) {
		pizzaType, err := strconv.Atoi(raw)
		if err != nil {
			return services.ProductFilter{}, errInvalidQueryValue("pizzaTypes", raw)
		}
		filter.PizzaTypes = append(filter.PizzaTypes, services.PizzaType(pizzaType))
	}
	filter.IngredientIDs = splitCSV(query.Get("ingredients"))

	if raw := strings.TrimSpace(query.Get("priceFrom")); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return services.ProductFilter{}, errInvalidQueryValue("priceFrom", raw)
		}
		filter.PriceFrom = &value
	}
	if raw := strings.TrimSpace(query.Get("priceTo")); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return services.ProductFilter{}, errInvalidQueryValue("priceTo", raw)
		}
		filter.PriceTo = &value
	}

	return filter, nil
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type queryValueError struct {
	param string
	value string
}

func (e queryValueError) Error() string {
	return "invalid value " + strconv.Quote(e.value) + " for query parameter " + e.param
}

func errInvalidQueryValue(param, value string) error {
	return queryValueError{param: param, value: value}
}

type productListResponse struct {
	Products []productPayload `json:"products"`
}

type productResponse struct {
	Product productPayload `json:"product"`
}

type ingredientListResponse struct {
	Ingredients []ingredientPayload `json:"ingredients"`
}

type productPayload struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	ImageURL    string                  `json:"imageUrl,omitempty"`
	CategoryID  string                  `json:"categoryId,omitempty"`
	Ingredients []ingredientPayload     `json:"ingredients"`
	Variants    []productVariantPayload `json:"variants"`
}

type productVariantPayload struct {
	ID        string `json:"id"`
	Price     int64  `json:"price"`
	Size      int    `json:"size,omitempty"`
	PizzaType int    `json:"pizzaType,omitempty"`
}

type ingredientPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func buildProductPayload(product services.Product) productPayload {
	payload := productPayload{
		ID:          product.ID,
		Name:        product.Name,
		ImageURL:    product.ImageURL,
		CategoryID:  product.CategoryID,
		Ingredients: make([]ingredientPayload, 0, len(product.Ingredients)),
		Variants:    make([]productVariantPayload, 0, len(product.Variants)),
	}
	for _, ingredient := range product.Ingredients {
		payload.Ingredients = append(payload.Ingredients, buildIngredientPayload(ingredient))
	}
	for _, variant := range product.Variants {
		payload.Variants = append(payload.Variants, productVariantPayload{
			ID:        variant.ID,
			Price:     variant.Price,
			Size:      int(variant.Size),
			PizzaType: int(variant.PizzaType),
		})
	}
	return payload
}

func buildIngredientPayload(ingredient services.Ingredient) ingredientPayload {
	return ingredientPayload{
		ID:       ingredient.ID,
		Name:     ingredient.Name,
		Price:    ingredient.Price,
		ImageURL: ingredient.ImageURL,
	}
}
