package domain

// PriceBreakdown captures how a configured line price was assembled.
type PriceBreakdown struct {
	BasePrice      int64
	IngredientsSum int64
	Total          int64
	Ingredients    []IngredientCharge
}

// IngredientCharge lists one selected add-on and the amount it contributed.
type IngredientCharge struct {
	IngredientID string
	Name         string
	Amount       int64
}
