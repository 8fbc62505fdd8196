package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/pizza-hub/api/internal/domain"
	pfirestore "github.com/pizza-hub/api/internal/platform/firestore"
	"github.com/pizza-hub/api/internal/repositories"
)

const (
	productCollection    = "products"
	ingredientCollection = "ingredients"
)

// CatalogRepository reads the menu from Firestore. Products embed their
// variants and reference ingredients by ID; ingredient documents are joined
// on read. Variant and price filters are applied in memory because Firestore
// cannot query into the embedded variant array.
type CatalogRepository struct {
	products    *pfirestore.BaseRepository[productDocument]
	ingredients *pfirestore.BaseRepository[ingredientDocument]
}

// NewCatalogRepository constructs a Firestore-backed catalog repository.
func NewCatalogRepository(provider *pfirestore.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires firestore provider")
	}
	return &CatalogRepository{
		products:    pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil),
		ingredients: pfirestore.NewBaseRepository[ingredientDocument](provider, ingredientCollection, nil),
	}, nil
}

// ListProducts returns the menu entries matching the filter, ordered by name.
func (r *CatalogRepository) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if r == nil || r.products == nil {
		return nil, errors.New("catalog repository not initialised")
	}

	docs, err := r.products.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	index, err := r.ingredientIndex(ctx)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		product := toDomainProduct(doc.ID, doc.Data, index)
		if matchesFilter(product, filter) {
			products = append(products, product)
		}
	}
	return products, nil
}

// GetProduct loads a single menu entry with its ingredients resolved.
func (r *CatalogRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("catalog repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("catalog repository: product id is required")
	}

	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	index, err := r.ingredientIndex(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	return toDomainProduct(doc.ID, doc.Data, index), nil
}

// ListIngredients returns all add-ons ordered by name.
func (r *CatalogRepository) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	if r == nil || r.ingredients == nil {
		return nil, errors.New("catalog repository not initialised")
	}

	docs, err := r.ingredients.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	ingredients := make([]domain.Ingredient, 0, len(docs))
	for _, doc := range docs {
		ingredients = append(ingredients, toDomainIngredient(doc.ID, doc.Data))
	}
	return ingredients, nil
}

func (r *CatalogRepository) ingredientIndex(ctx context.Context) (map[string]domain.Ingredient, error) {
	docs, err := r.ingredients.Query(ctx, nil)
	if err != nil {
		return nil, err
	}
	index := make(map[string]domain.Ingredient, len(docs))
	for _, doc := range docs {
		index[doc.ID] = toDomainIngredient(doc.ID, doc.Data)
	}
	return index, nil
}

func matchesFilter(product domain.Product, filter domain.ProductFilter) bool {
	if len(filter.Sizes) > 0 && !hasVariantMatching(product, func(v domain.ProductVariant) bool {
		for _, size := range filter.Sizes {
			if v.Size == size {
				return true
			}
		}
		return false
	}) {
		return false
	}
	if len(filter.PizzaTypes) > 0 && !hasVariantMatching(product, func(v domain.ProductVariant) bool {
		for _, pizzaType := range filter.PizzaTypes {
			if v.PizzaType == pizzaType {
				return true
			}
		}
		return false
	}) {
		return false
	}
	if filter.PriceFrom != nil || filter.PriceTo != nil {
		if !hasVariantMatching(product, func(v domain.ProductVariant) bool {
			if filter.PriceFrom != nil && v.Price < *filter.PriceFrom {
				return false
			}
			if filter.PriceTo != nil && v.Price > *filter.PriceTo {
				return false
			}
			return true
		}) {
			return false
		}
	}
	if len(filter.IngredientIDs) > 0 {
		available := make(map[string]struct{}, len(product.Ingredients))
		for _, ingredient := range product.Ingredients {
			available[ingredient.ID] = struct{}{}
		}
		for _, id := range filter.IngredientIDs {
			if _, ok := available[strings.TrimSpace(id)]; !ok {
				return false
			}
		}
	}
	return true
}

func hasVariantMatching(product domain.Product, match func(domain.ProductVariant) bool) bool {
	for _, variant := range product.Variants {
		if match(variant) {
			return true
		}
	}
	return false
}

type productDocument struct {
	Name          string                   `firestore:"name"`
	ImageURL      string                   `firestore:"imageUrl,omitempty"`
	CategoryID    string                   `firestore:"categoryId,omitempty"`
	IngredientIDs []string                 `firestore:"ingredientIds,omitempty"`
	Variants      []productVariantDocument `firestore:"variants"`
	CreatedAt     time.Time                `firestore:"createdAt"`
	UpdatedAt     time.Time                `firestore:"updatedAt"`
}

type productVariantDocument struct {
	ID        string `firestore:"id"`
	Price     int64  `firestore:"price"`
	Size      int    `firestore:"size"`
	PizzaType int    `firestore:"pizzaType"`
}

type ingredientDocument struct {
	Name      string    `firestore:"name"`
	Price     int64     `firestore:"price"`
	ImageURL  string    `firestore:"imageUrl,omitempty"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func toDomainProduct(id string, doc productDocument, ingredients map[string]domain.Ingredient) domain.Product {
	product := domain.Product{
		ID:         id,
		Name:       doc.Name,
		ImageURL:   doc.ImageURL,
		CategoryID: doc.CategoryID,
		Variants:   make([]domain.ProductVariant, 0, len(doc.Variants)),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
	for _, variant := range doc.Variants {
		product.Variants = append(product.Variants, domain.ProductVariant{
			ID:        variant.ID,
			Price:     variant.Price,
			Size:      domain.PizzaSize(variant.Size),
			PizzaType: domain.PizzaType(variant.PizzaType),
		})
	}
	for _, ingredientID := range doc.IngredientIDs {
		if ingredient, ok := ingredients[strings.TrimSpace(ingredientID)]; ok {
			product.Ingredients = append(product.Ingredients, ingredient)
		}
	}
	return product
}

func toDomainIngredient(id string, doc ingredientDocument) domain.Ingredient {
	return domain.Ingredient{
		ID:        id,
		Name:      doc.Name,
		Price:     doc.Price,
		ImageURL:  doc.ImageURL,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)
