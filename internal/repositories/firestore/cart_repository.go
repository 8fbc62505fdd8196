package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/pizza-hub/api/internal/domain"
	pfirestore "github.com/pizza-hub/api/internal/platform/firestore"
	"github.com/pizza-hub/api/internal/repositories"
)

const cartCollection = "carts"

// CartRepository persists carts in Firestore keyed by the client cart token.
// Items are embedded in the cart document so every mutation of a cart is a
// single-document transaction.
type CartRepository struct {
	base     *pfirestore.BaseRepository[cartDocument]
	provider *pfirestore.Provider
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil)
	return &CartRepository{
		base:     base,
		provider: provider,
	}, nil
}

// GetCart loads the cart for the given token.
func (r *CartRepository) GetCart(ctx context.Context, token string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Cart{}, errors.New("cart repository: token is required")
	}

	doc, err := r.base.Get(ctx, token)
	if err != nil {
		return domain.Cart{}, err
	}
	return toDomainCart(token, doc.Data), nil
}

// CreateCart stores a fresh cart document. Creating a cart whose token already
// exists is a conflict.
func (r *CartRepository) CreateCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	token := strings.TrimSpace(cart.Token)
	if token == "" {
		return domain.Cart{}, errors.New("cart repository: token is required")
	}

	now := time.Now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = now
	}

	ref, err := r.base.DocumentRef(ctx, token)
	if err != nil {
		return domain.Cart{}, err
	}
	if _, err := ref.Create(ctx, fromDomainCart(cart)); err != nil {
		return domain.Cart{}, pfirestore.WrapError("carts.create", err)
	}

	cart.Token = token
	return cart, nil
}

// Mutate runs fn against the current cart inside a transaction and persists
// the result. Concurrent mutations of the same token serialize on the cart
// document.
func (r *CartRepository) Mutate(ctx context.Context, token string, fn func(cart *domain.Cart) error) (domain.Cart, error) {
	if r == nil || r.provider == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Cart{}, errors.New("cart repository: token is required")
	}
	if fn == nil {
		return domain.Cart{}, errors.New("cart repository: mutation function is required")
	}

	var mutated domain.Cart
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, token)
		if err != nil {
			return err
		}

		snapshot, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return pfirestore.NotFoundError("carts.mutate", err)
		}
		if err != nil {
			return pfirestore.WrapError("carts.mutate", err)
		}

		var doc cartDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return err
		}

		cart := toDomainCart(token, doc)
		if err := fn(&cart); err != nil {
			return err
		}

		cart.Token = token
		cart.UpdatedAt = time.Now().UTC()
		if cart.CreatedAt.IsZero() {
			cart.CreatedAt = doc.CreatedAt
		}

		if err := tx.Set(ref, fromDomainCart(cart)); err != nil {
			return pfirestore.WrapError("carts.mutate", err)
		}
		mutated = cart
		return nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return mutated, nil
}

type cartDocument struct {
	Items       []cartItemDocument `firestore:"items"`
	TotalAmount int64              `firestore:"totalAmount"`
	CreatedAt   time.Time          `firestore:"createdAt"`
	UpdatedAt   time.Time          `firestore:"updatedAt"`
}

type cartItemDocument struct {
	ID            string     `firestore:"id"`
	ProductID     string     `firestore:"productId"`
	ProductName   string     `firestore:"productName"`
	VariantID     string     `firestore:"variantId"`
	Size          int        `firestore:"size"`
	PizzaType     int        `firestore:"pizzaType"`
	IngredientIDs []string   `firestore:"ingredientIds,omitempty"`
	UnitPrice     int64      `firestore:"unitPrice"`
	Quantity      int        `firestore:"quantity"`
	AddedAt       time.Time  `firestore:"addedAt"`
	UpdatedAt     *time.Time `firestore:"updatedAt,omitempty"`
}

func toDomainCart(token string, doc cartDocument) domain.Cart {
	cart := domain.Cart{
		Token:       token,
		Items:       make([]domain.CartItem, 0, len(doc.Items)),
		TotalAmount: doc.TotalAmount,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	for _, item := range doc.Items {
		cart.Items = append(cart.Items, domain.CartItem{
			ID:            item.ID,
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			VariantID:     item.VariantID,
			Size:          domain.PizzaSize(item.Size),
			PizzaType:     domain.PizzaType(item.PizzaType),
			IngredientIDs: cloneStringSlice(item.IngredientIDs),
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			AddedAt:       item.AddedAt,
			UpdatedAt:     item.UpdatedAt,
		})
	}
	return cart
}

func fromDomainCart(cart domain.Cart) cartDocument {
	doc := cartDocument{
		Items:       make([]cartItemDocument, 0, len(cart.Items)),
		TotalAmount: cart.TotalAmount,
		CreatedAt:   cart.CreatedAt.UTC(),
		UpdatedAt:   cart.UpdatedAt.UTC(),
	}
	for _, item := range cart.Items {
		doc.Items = append(doc.Items, cartItemDocument{
			ID:            strings.TrimSpace(item.ID),
			ProductID:     strings.TrimSpace(item.ProductID),
			ProductName:   strings.TrimSpace(item.ProductName),
			VariantID:     strings.TrimSpace(item.VariantID),
			Size:          int(item.Size),
			PizzaType:     int(item.PizzaType),
			IngredientIDs: cloneStringSlice(item.IngredientIDs),
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			AddedAt:       item.AddedAt,
			UpdatedAt:     item.UpdatedAt,
		})
	}
	return doc
}

func cloneStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

var _ repositories.CartRepository = (*CartRepository)(nil)
