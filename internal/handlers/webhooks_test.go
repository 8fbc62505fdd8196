package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pizza-hub/api/internal/domain"
	"github.com/pizza-hub/api/internal/services"
)

func newWebhookTestRouter(svc services.OrderService) http.Handler {
	return NewRouter(WithWebhookRoutes(NewWebhookHandlers(svc).Routes))
}

func TestPaymentCallbackMarksOrderPaid(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	router := newWebhookTestRouter(svc)

	body := `{"orderId":"order_1","status":"succeeded"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastTransition.OrderID != "order_1" || svc.lastTransition.TargetStatus != domain.OrderStatusSucceeded {
		t.Fatalf("unexpected command %+v", svc.lastTransition)
	}

	var resp paymentCallbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != string(domain.OrderStatusSucceeded) {
		t.Fatalf("unexpected status %q", resp.Status)
	}
}

func TestPaymentCallbackTranslatesProviderStatuses(t *testing.T) {
	cases := map[string]domain.OrderStatus{
		"paid":      domain.OrderStatusSucceeded,
		"success":   domain.OrderStatusSucceeded,
		"canceled":  domain.OrderStatusCancelled,
		"failed":    domain.OrderStatusCancelled,
		"expired":   domain.OrderStatusCancelled,
		"CANCELLED": domain.OrderStatusCancelled,
	}

	for status, want := range cases {
		svc := &stubOrderService{order: sampleOrder()}
		router := newWebhookTestRouter(svc)

		body := `{"orderId":"order_1","status":"` + status + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status %q: expected 200, got %d", status, rec.Code)
		}
		if svc.lastTransition.TargetStatus != want {
			t.Fatalf("status %q: expected %q, got %q", status, want, svc.lastTransition.TargetStatus)
		}
	}
}

func TestPaymentCallbackRejectsUnknownStatus(t *testing.T) {
	router := newWebhookTestRouter(&stubOrderService{})

	body := `{"orderId":"order_1","status":"refunded"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPaymentCallbackAcksTerminalReplay(t *testing.T) {
	svc := &stubOrderService{err: services.ErrOrderStatusFinal}
	router := newWebhookTestRouter(svc)

	body := `{"orderId":"order_1","status":"succeeded"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec.Body.String()); code != "order_status_final" {
		t.Fatalf("unexpected error code %q", code)
	}
}

func TestPaymentCallbackMapsUnknownOrder(t *testing.T) {
	router := newWebhookTestRouter(&stubOrderService{err: services.ErrOrderNotFound})

	body := `{"orderId":"order_404","status":"succeeded"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
