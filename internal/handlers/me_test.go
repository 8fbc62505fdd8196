package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pizza-hub/api/internal/platform/requestctx"
	"github.com/pizza-hub/api/internal/services"
)

func newMeTestRouter(svc services.UserService, session func(http.Handler) http.Handler) http.Handler {
	return NewRouter(WithMeRoutes(NewMeHandlers(svc, nil, session).Routes))
}

func TestGetProfileUsesSessionIdentity(t *testing.T) {
	svc := &stubUserService{user: services.User{ID: "user_1", FullName: "Olena", Email: "olena@example.com"}}
	session := injectIdentity(requestctx.Identity{UserID: "user_1", Email: "olena@example.com"})
	router := newMeTestRouter(svc, session)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastProfile != "user_1" {
		t.Fatalf("expected session user id forwarded, got %q", svc.lastProfile)
	}
}

func TestGetProfileRequiresIdentity(t *testing.T) {
	router := newMeTestRouter(&stubUserService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestUpdateProfileSendsOnlyProvidedFields(t *testing.T) {
	svc := &stubUserService{user: services.User{ID: "user_1", FullName: "Olena K", Email: "olena@example.com"}}
	session := injectIdentity(requestctx.Identity{UserID: "user_1", Email: "olena@example.com"})
	router := newMeTestRouter(svc, session)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/me", strings.NewReader(`{"fullName":"Olena K"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastUpdate.FullName == nil || *svc.lastUpdate.FullName != "Olena K" {
		t.Fatalf("expected fullName in command, got %+v", svc.lastUpdate)
	}
	if svc.lastUpdate.Email != nil || svc.lastUpdate.Password != nil {
		t.Fatalf("expected untouched fields to stay nil, got %+v", svc.lastUpdate)
	}
}

func TestUpdateProfileIgnoresNullFields(t *testing.T) {
	svc := &stubUserService{user: services.User{ID: "user_1"}}
	session := injectIdentity(requestctx.Identity{UserID: "user_1"})
	router := newMeTestRouter(svc, session)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/me", strings.NewReader(`{"fullName":"Olena","email":null}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastUpdate.Email != nil {
		t.Fatalf("expected null email to be ignored, got %v", *svc.lastUpdate.Email)
	}
}

func TestUpdateProfileRejectsEmptyPatch(t *testing.T) {
	session := injectIdentity(requestctx.Identity{UserID: "user_1"})
	router := newMeTestRouter(&stubUserService{}, session)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/me", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateProfileMapsDuplicateEmail(t *testing.T) {
	session := injectIdentity(requestctx.Identity{UserID: "user_1"})
	router := newMeTestRouter(&stubUserService{err: services.ErrUserAlreadyExists}, session)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/me", strings.NewReader(`{"email":"taken@example.com"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec.Body.String()); code != "user_already_exists" {
		t.Fatalf("unexpected error code %q", code)
	}
}

func TestMeOrdersScopedToSessionEmail(t *testing.T) {
	orders := &stubOrderService{orders: []services.Order{sampleOrder()}}
	session := injectIdentity(requestctx.Identity{UserID: "user_1", Email: "olena@example.com"})
	router := NewRouter(WithMeRoutes(NewMeHandlers(&stubUserService{}, orders, session).Routes))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if orders.lastEmail != "olena@example.com" {
		t.Fatalf("expected session email forwarded, got %q", orders.lastEmail)
	}

	var resp orderListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Orders) != 1 {
		t.Fatalf("unexpected payload %+v", resp.Orders)
	}
}

func TestProfilePayloadOmitsPasswordHash(t *testing.T) {
	svc := &stubUserService{user: services.User{
		ID:           "user_1",
		Email:        "olena@example.com",
		PasswordHash: "$2a$10$secret",
	}}
	session := injectIdentity(requestctx.Identity{UserID: "user_1"})
	router := newMeTestRouter(svc, session)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var raw map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := raw["user"]["passwordHash"]; ok {
		t.Fatal("response must not expose the password hash")
	}
	if strings.Contains(rec.Body.String(), "$2a$10$secret") {
		t.Fatal("response must not leak the stored hash")
	}
}
