package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pizza-hub/api/internal/domain"
	"github.com/pizza-hub/api/internal/platform/httpx"
	"github.com/pizza-hub/api/internal/services"
)

// WebhookHandlers receives payment provider callbacks. Signature verification
// runs in middleware configured on the webhook route group.
type WebhookHandlers struct {
	orders services.OrderService
}

// NewWebhookHandlers constructs handlers over the order service.
func NewWebhookHandlers(orders services.OrderService) *WebhookHandlers {
	return &WebhookHandlers{orders: orders}
}

// Routes wires the /webhooks endpoints onto the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/payment", h.paymentCallback)
}

// paymentCallback applies the provider's verdict to the referenced order.
// Retried deliveries of the same verdict are acknowledged without change.
func (h *WebhookHandlers) paymentCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req paymentCallbackRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	target, ok := mapCallbackStatus(req.Status)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unsupported payment status", http.StatusBadRequest))
		return
	}

	order, err := h.orders.TransitionStatus(ctx, services.OrderStatusTransitionCommand{
		OrderID:      req.OrderID,
		TargetStatus: target,
		Reason:       req.Reason,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, paymentCallbackResponse{
		OrderID: order.ID,
		Status:  string(order.Status),
	})
}

// mapCallbackStatus translates provider statuses onto order statuses.
func mapCallbackStatus(status string) (domain.OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "succeeded", "paid", "success":
		return domain.OrderStatusSucceeded, true
	case "cancelled", "canceled", "failed", "expired":
		return domain.OrderStatusCancelled, true
	default:
		return "", false
	}
}

type paymentCallbackRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

type paymentCallbackResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}
