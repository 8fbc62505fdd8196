package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/pizza-hub/api/internal/domain"
)

func newTestCartService(t *testing.T, carts *memCartRepo) CartService {
	t.Helper()
	catalog := &stubCatalogRepo{products: map[string]domain.Product{
		"prod_margherita": margheritaProduct(),
	}}
	svc, err := NewCartService(CartServiceDeps{
		Repository:  carts,
		Catalog:     catalog,
		Pricer:      NewPricingEngine(),
		Clock:       fixedClock(time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)),
		IDGenerator: sequenceIDs("item_"),
	})
	if err != nil {
		t.Fatalf("NewCartService error: %v", err)
	}
	return svc
}

func TestGetOrCreateCartCreatesLazily(t *testing.T) {
	ctx := context.Background()
	carts := newMemCartRepo()
	svc := newTestCartService(t, carts)

	cart, err := svc.GetOrCreateCart(ctx, "tok_1")
	if err != nil {
		t.Fatalf("GetOrCreateCart error: %v", err)
	}
	if cart.Token != "tok_1" || len(cart.Items) != 0 || cart.TotalAmount != 0 {
		t.Fatalf("unexpected new cart %+v", cart)
	}

	again, err := svc.GetOrCreateCart(ctx, "tok_1")
	if err != nil {
		t.Fatalf("second GetOrCreateCart error: %v", err)
	}
	if !again.CreatedAt.Equal(cart.CreatedAt) {
		t.Fatalf("expected the stored cart to be returned, got %+v", again)
	}
}

func TestGetOrCreateCartRequiresToken(t *testing.T) {
	svc := newTestCartService(t, newMemCartRepo())
	if _, err := svc.GetOrCreateCart(context.Background(), "  "); !errors.Is(err, ErrCartTokenMissing) {
		t.Fatalf("expected ErrCartTokenMissing, got %v", err)
	}
}

func TestAddItemPricesConfigurationAndMergesDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newTestCartService(t, newMemCartRepo())

	cmd := AddCartItemCommand{
		Token:         "tok_1",
		ProductID:     "prod_margherita",
		Size:          domain.PizzaSizeMedium,
		PizzaType:     domain.PizzaTypeTraditional,
		IngredientIDs: []string{"ing_bacon", "ing_cheese"},
		Quantity:      1,
	}

	cart, err := svc.AddItem(ctx, cmd)
	if err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(cart.Items))
	}
	if cart.Items[0].UnitPrice != 380 {
		t.Fatalf("expected unit price 380, got %d", cart.Items[0].UnitPrice)
	}
	if cart.TotalAmount != 380 {
		t.Fatalf("expected total 380, got %d", cart.TotalAmount)
	}

	// Same configuration with ingredient order flipped merges into the line.
	cmd.IngredientIDs = []string{"ing_cheese", "ing_bacon"}
	cart, err = svc.AddItem(ctx, cmd)
	if err != nil {
		t.Fatalf("second AddItem error: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected merged line, got %d items", len(cart.Items))
	}
	if cart.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", cart.Items[0].Quantity)
	}
	if cart.TotalAmount != 760 {
		t.Fatalf("expected total 760, got %d", cart.TotalAmount)
	}
}

func TestAddItemDifferentConfigurationAppends(t *testing.T) {
	ctx := context.Background()
	svc := newTestCartService(t, newMemCartRepo())

	base := AddCartItemCommand{
		Token:     "tok_1",
		ProductID: "prod_margherita",
		Size:      domain.PizzaSizeMedium,
		PizzaType: domain.PizzaTypeTraditional,
	}
	if _, err := svc.AddItem(ctx, base); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	other := base
	other.Size = domain.PizzaSizeLarge
	other.PizzaType = domain.PizzaTypeThin
	cart, err := svc.AddItem(ctx, other)
	if err != nil {
		t.Fatalf("AddItem (other variant) error: %v", err)
	}
	if len(cart.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(cart.Items))
	}
	if cart.TotalAmount != 300+420 {
		t.Fatalf("expected total 720, got %d", cart.TotalAmount)
	}
}

func TestAddItemUnknownConfiguration(t *testing.T) {
	svc := newTestCartService(t, newMemCartRepo())
	_, err := svc.AddItem(context.Background(), AddCartItemCommand{
		Token:     "tok_1",
		ProductID: "prod_margherita",
		Size:      domain.PizzaSizeSmall,
		PizzaType: domain.PizzaTypeThin,
	})
	if !errors.Is(err, ErrPriceConfigurationNotFound) {
		t.Fatalf("expected ErrPriceConfigurationNotFound, got %v", err)
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc := newTestCartService(t, newMemCartRepo())
	_, err := svc.AddItem(context.Background(), AddCartItemCommand{
		Token:     "tok_1",
		ProductID: "prod_missing",
		Size:      domain.PizzaSizeMedium,
		PizzaType: domain.PizzaTypeTraditional,
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestUpdateItemQuantityClampsToOne(t *testing.T) {
	ctx := context.Background()
	svc := newTestCartService(t, newMemCartRepo())

	cart, err := svc.AddItem(ctx, AddCartItemCommand{
		Token:     "tok_1",
		ProductID: "prod_margherita",
		Size:      domain.PizzaSizeMedium,
		PizzaType: domain.PizzaTypeTraditional,
		Quantity:  3,
	})
	if err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	itemID := cart.Items[0].ID

	cart, err = svc.UpdateItemQuantity(ctx, UpdateCartItemQuantityCommand{
		Token:    "tok_1",
		ItemID:   itemID,
		Quantity: 0,
	})
	if err != nil {
		t.Fatalf("UpdateItemQuantity error: %v", err)
	}
	if cart.Items[0].Quantity != 1 {
		t.Fatalf("expected quantity clamped to 1, got %d", cart.Items[0].Quantity)
	}
	if cart.TotalAmount != cart.Items[0].UnitPrice {
		t.Fatalf("expected total to match single unit, got %d", cart.TotalAmount)
	}
}

func TestUpdateItemQuantityUnknownItem(t *testing.T) {
	ctx := context.Background()
	svc := newTestCartService(t, newMemCartRepo())

	if _, err := svc.AddItem(ctx, AddCartItemCommand{
		Token:     "tok_1",
		ProductID: "prod_margherita",
		Size:      domain.PizzaSizeMedium,
		PizzaType: domain.PizzaTypeTraditional,
	}); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	_, err := svc.UpdateItemQuantity(ctx, UpdateCartItemQuantityCommand{
		Token:    "tok_1",
		ItemID:   "item_from_other_cart",
		Quantity: 2,
	})
	if !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestCartService(t, newMemCartRepo())

	cart, err := svc.AddItem(ctx, AddCartItemCommand{
		Token:     "tok_1",
		ProductID: "prod_margherita",
		Size:      domain.PizzaSizeMedium,
		PizzaType: domain.PizzaTypeTraditional,
	})
	if err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	itemID := cart.Items[0].ID

	cart, err = svc.RemoveItem(ctx, RemoveCartItemCommand{Token: "tok_1", ItemID: itemID})
	if err != nil {
		t.Fatalf("RemoveItem error: %v", err)
	}
	if len(cart.Items) != 0 || cart.TotalAmount != 0 {
		t.Fatalf("expected empty cart, got %+v", cart)
	}

	// Removing the same line again succeeds without changing anything.
	cart, err = svc.RemoveItem(ctx, RemoveCartItemCommand{Token: "tok_1", ItemID: itemID})
	if err != nil {
		t.Fatalf("second RemoveItem error: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected cart to stay empty, got %d items", len(cart.Items))
	}
}

func TestCartMutationsRequireExistingCart(t *testing.T) {
	svc := newTestCartService(t, newMemCartRepo())
	_, err := svc.UpdateItemQuantity(context.Background(), UpdateCartItemQuantityCommand{
		Token:    "tok_unknown",
		ItemID:   "item_1",
		Quantity: 2,
	})
	if !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
}
