package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/pizza-hub/api/internal/platform/httpx"
	"github.com/pizza-hub/api/internal/services"
)

// CartTokenHeader carries the anonymous cart token between client and API.
const CartTokenHeader = "X-Cart-Token"

// CartHandlers exposes the token scoped cart endpoints.
type CartHandlers struct {
	carts    services.CartService
	newToken func() string
}

// NewCartHandlers constructs handlers over the cart service.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{
		carts:    carts,
		newToken: func() string { return ulid.Make().String() },
	}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{itemID}", h.updateItemQuantity)
	r.Delete("/items/{itemID}", h.removeItem)
}

// getCart returns the cart for the supplied token. A request without a token
// is issued a fresh one so anonymous visitors always get a cart back.
func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	token := strings.TrimSpace(r.Header.Get(CartTokenHeader))
	if token == "" {
		token = h.newToken()
	}

	cart, err := h.carts.GetOrCreateCart(ctx, token)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	w.Header().Set(CartTokenHeader, cart.Token)
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req addCartItemRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	cart, err := h.carts.AddItem(ctx, services.AddCartItemCommand{
		Token:         strings.TrimSpace(r.Header.Get(CartTokenHeader)),
		ProductID:     req.ProductID,
		Size:          services.PizzaSize(req.Size),
		PizzaType:     services.PizzaType(req.PizzaType),
		IngredientIDs: req.IngredientIDs,
		Quantity:      req.Quantity,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	w.Header().Set(CartTokenHeader, cart.Token)
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) updateItemQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req updateCartItemRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	cart, err := h.carts.UpdateItemQuantity(ctx, services.UpdateCartItemQuantityCommand{
		Token:    strings.TrimSpace(r.Header.Get(CartTokenHeader)),
		ItemID:   chi.URLParam(r, "itemID"),
		Quantity: req.Quantity,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	cart, err := h.carts.RemoveItem(ctx, services.RemoveCartItemCommand{
		Token:  strings.TrimSpace(r.Header.Get(CartTokenHeader)),
		ItemID: chi.URLParam(r, "itemID"),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

type addCartItemRequest struct {
	ProductID     string   `json:"productId"`
	Size          int      `json:"size"`
	PizzaType     int      `json:"pizzaType"`
	IngredientIDs []string `json:"ingredientIds"`
	Quantity      int      `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartPayload struct {
	Token       string            `json:"token"`
	Items       []cartItemPayload `json:"items"`
	TotalAmount int64             `json:"totalAmount"`
	UpdatedAt   string            `json:"updatedAt,omitempty"`
}

type cartItemPayload struct {
	ID            string   `json:"id"`
	ProductID     string   `json:"productId"`
	ProductName   string   `json:"productName"`
	Size          int      `json:"size,omitempty"`
	PizzaType     int      `json:"pizzaType,omitempty"`
	IngredientIDs []string `json:"ingredientIds,omitempty"`
	UnitPrice     int64    `json:"unitPrice"`
	Quantity      int      `json:"quantity"`
	AddedAt       string   `json:"addedAt,omitempty"`
}

func buildCartPayload(cart services.Cart) cartPayload {
	payload := cartPayload{
		Token:       cart.Token,
		Items:       make([]cartItemPayload, 0, len(cart.Items)),
		TotalAmount: cart.TotalAmount,
		UpdatedAt:   formatTime(cart.UpdatedAt),
	}
	for _, item := range cart.Items {
		payload.Items = append(payload.Items, cartItemPayload{
			ID:            item.ID,
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Size:          int(item.Size),
			PizzaType:     int(item.PizzaType),
			IngredientIDs: item.IngredientIDs,
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			AddedAt:       formatTime(item.AddedAt),
		})
	}
	return payload
}
