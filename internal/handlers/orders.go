package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pizza-hub/api/internal/domain"
	"github.com/pizza-hub/api/internal/platform/httpx"
	"github.com/pizza-hub/api/internal/platform/requestctx"
	"github.com/pizza-hub/api/internal/services"
)

// OrderHandlers exposes customer facing order reads.
type OrderHandlers struct {
	orders         services.OrderService
	requireSession func(http.Handler) http.Handler
}

// NewOrderHandlers constructs handlers over the order service. The session
// middleware guards the order list, which is scoped to the caller's email.
func NewOrderHandlers(orders services.OrderService, requireSession func(http.Handler) http.Handler) *OrderHandlers {
	return &OrderHandlers{orders: orders, requireSession: requireSession}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.requireSession != nil {
		r.With(h.requireSession).Get("/", h.listOrders)
	} else {
		r.Get("/", h.listOrders)
	}
	r.Get("/{orderID}", h.getOrder)
}

// getOrder looks an order up by id. The id is an unguessable ULID, so the
// lookup itself serves as the access check for the post-checkout status page.
func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok || identity.Email == "" {
		httpx.WriteError(ctx, w, httpx.NewError("authentication_required", "authenticated session required", http.StatusUnauthorized))
		return
	}

	orders, err := h.orders.ListOrdersByEmail(ctx, identity.Email)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := orderListResponse{Orders: make([]orderPayload, 0, len(orders))}
	for _, order := range orders {
		payload.Orders = append(payload.Orders, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderListResponse struct {
	Orders []orderPayload `json:"orders"`
}

type orderPayload struct {
	ID          string               `json:"id"`
	Number      int64                `json:"number"`
	Status      string               `json:"status"`
	Customer    orderCustomerPayload `json:"customer"`
	Items       []orderItemPayload   `json:"items"`
	ItemsTotal  int64                `json:"itemsTotal"`
	DeliveryFee int64                `json:"deliveryFee"`
	TotalAmount int64                `json:"totalAmount"`
	PaymentURL  string               `json:"paymentUrl,omitempty"`
	CreatedAt   string               `json:"createdAt,omitempty"`
	PaidAt      string               `json:"paidAt,omitempty"`
	CancelledAt string               `json:"cancelledAt,omitempty"`
}

type orderCustomerPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Comment   string `json:"comment,omitempty"`
}

type orderItemPayload struct {
	ProductID     string   `json:"productId"`
	ProductName   string   `json:"productName"`
	Size          int      `json:"size,omitempty"`
	PizzaType     int      `json:"pizzaType,omitempty"`
	IngredientIDs []string `json:"ingredientIds,omitempty"`
	UnitPrice     int64    `json:"unitPrice"`
	Quantity      int      `json:"quantity"`
	LineTotal     int64    `json:"lineTotal"`
}

func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:     order.ID,
		Number: order.Number,
		Status: string(order.Status),
		Customer: orderCustomerPayload{
			FirstName: order.Customer.FirstName,
			LastName:  order.Customer.LastName,
			Email:     order.Customer.Email,
			Phone:     order.Customer.Phone,
			Address:   order.Customer.Address,
			Comment:   order.Customer.Comment,
		},
		Items:       make([]orderItemPayload, 0, len(order.Items)),
		ItemsTotal:  order.ItemsTotal,
		DeliveryFee: order.DeliveryFee,
		TotalAmount: order.TotalAmount,
		CreatedAt:   formatTime(order.CreatedAt),
		PaidAt:      formatTimePtr(order.PaidAt),
		CancelledAt: formatTimePtr(order.CancelledAt),
	}
	if order.Payment != nil && order.Status == domain.OrderStatusPending {
		payload.PaymentURL = order.Payment.URL
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Size:          int(item.Size),
			PizzaType:     int(item.PizzaType),
			IngredientIDs: item.IngredientIDs,
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			LineTotal:     item.LineTotal,
		})
	}
	return payload
}
