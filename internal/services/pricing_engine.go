package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrPricingInvalidInput signals bad request data such as a missing product or empty variants.
	ErrPricingInvalidInput = errors.New("pricing: invalid input")
	// ErrPriceConfigurationNotFound is returned when no variant matches the requested
	// size and dough type, or a selected ingredient does not belong to the product.
	// The engine never falls back to a zero price.
	ErrPriceConfigurationNotFound = errors.New("pricing: configuration not found")
)

// PricingEngine resolves the unit price of a configured product line. It is
// pure: all catalog data arrives through the arguments.
type PricingEngine struct{}

func NewPricingEngine() *PricingEngine {
	return &PricingEngine{}
}

// PriceConfigurationCommand describes one line to price.
type PriceConfigurationCommand struct {
	Product       Product
	Size          PizzaSize
	PizzaType     PizzaType
	IngredientIDs []string
}

// PriceConfiguration returns the unit price for the requested configuration:
// the price of the variant matching (size, pizzaType) exactly plus the sum of
// the selected ingredient prices. Duplicate ingredient selections count once.
func (e *PricingEngine) PriceConfiguration(cmd PriceConfigurationCommand) (PriceBreakdown, error) {
	if strings.TrimSpace(cmd.Product.ID) == "" {
		return PriceBreakdown{}, fmt.Errorf("%w: product is required", ErrPricingInvalidInput)
	}
	if len(cmd.Product.Variants) == 0 {
		return PriceBreakdown{}, fmt.Errorf("%w: product %s has no variants", ErrPricingInvalidInput, cmd.Product.ID)
	}

	variant, ok := findVariant(cmd.Product.Variants, cmd.Size, cmd.PizzaType)
	if !ok {
		return PriceBreakdown{}, fmt.Errorf("%w: product %s has no variant for size %d type %d",
			ErrPriceConfigurationNotFound, cmd.Product.ID, cmd.Size, cmd.PizzaType)
	}
	if variant.Price < 0 {
		return PriceBreakdown{}, fmt.Errorf("%w: variant %s has negative price", ErrPricingInvalidInput, variant.ID)
	}

	breakdown := PriceBreakdown{BasePrice: variant.Price}

	selected := dedupeIngredientIDs(cmd.IngredientIDs)
	if len(selected) > 0 {
		byID := make(map[string]Ingredient, len(cmd.Product.Ingredients))
		for _, ing := range cmd.Product.Ingredients {
			byID[ing.ID] = ing
		}
		for _, id := range selected {
			ing, ok := byID[id]
			if !ok {
				return PriceBreakdown{}, fmt.Errorf("%w: ingredient %s not offered for product %s",
					ErrPriceConfigurationNotFound, id, cmd.Product.ID)
			}
			if ing.Price < 0 {
				return PriceBreakdown{}, fmt.Errorf("%w: ingredient %s has negative price", ErrPricingInvalidInput, id)
			}
			breakdown.IngredientsSum += ing.Price
			breakdown.Ingredients = append(breakdown.Ingredients, IngredientCharge{
				IngredientID: ing.ID,
				Name:         ing.Name,
				Amount:       ing.Price,
			})
		}
	}

	breakdown.Total = breakdown.BasePrice + breakdown.IngredientsSum
	return breakdown, nil
}

func findVariant(variants []ProductVariant, size PizzaSize, pizzaType PizzaType) (ProductVariant, bool) {
	for _, v := range variants {
		if v.Size == size && v.PizzaType == pizzaType {
			return v, true
		}
	}
	return ProductVariant{}, false
}

// dedupeIngredientIDs trims, drops empties and duplicates, and returns a
// sorted copy so equal selections always produce the same slice.
func dedupeIngredientIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
