package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pizza-hub/api/internal/services"
)

func newAuthTestRouter(svc services.UserService, limiter RateLimiter) http.Handler {
	return NewRouter(WithAuthRoutes(NewAuthHandlers(svc, limiter).Routes))
}

func TestRegisterCreatesAccount(t *testing.T) {
	svc := &stubUserService{user: services.User{
		ID:       "user_1",
		FullName: "Olena Shevchenko",
		Email:    "olena@example.com",
	}}
	router := newAuthTestRouter(svc, nil)

	body := `{"fullName":"Olena Shevchenko","email":"olena@example.com","password":"sup3rsecret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastRegister.Email != "olena@example.com" || svc.lastRegister.Password != "sup3rsecret" {
		t.Fatalf("unexpected command %+v", svc.lastRegister)
	}

	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.ID != "user_1" || resp.User.Verified {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	if strings.Contains(rec.Body.String(), "sup3rsecret") {
		t.Fatal("response must not leak the password")
	}
}

func TestRegisterMapsDuplicateAccount(t *testing.T) {
	router := newAuthTestRouter(&stubUserService{err: services.ErrUserAlreadyExists}, nil)

	body := `{"fullName":"Olena","email":"olena@example.com","password":"sup3rsecret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec.Body.String()); code != "user_already_exists" {
		t.Fatalf("unexpected error code %q", code)
	}
}

func TestVerifyConfirmsAccount(t *testing.T) {
	verifiedAt := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	svc := &stubUserService{user: services.User{
		ID:         "user_1",
		Email:      "olena@example.com",
		Verified:   true,
		VerifiedAt: &verifiedAt,
	}}
	router := newAuthTestRouter(svc, nil)

	body := `{"email":"olena@example.com","code":"123456"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/verify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastVerify.Code != "123456" {
		t.Fatalf("unexpected command %+v", svc.lastVerify)
	}

	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.User.Verified || resp.User.VerifiedAt == "" {
		t.Fatalf("expected verified user, got %+v", resp.User)
	}
}

func TestVerifyMapsExpiredCode(t *testing.T) {
	router := newAuthTestRouter(&stubUserService{err: services.ErrVerificationCodeExpired}, nil)

	body := `{"email":"olena@example.com","code":"123456"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/verify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusGone {
		t.Fatalf("expected 410, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec.Body.String()); code != "code_expired" {
		t.Fatalf("unexpected error code %q", code)
	}
}

func TestLoginReturnsSessionToken(t *testing.T) {
	svc := &stubUserService{login: services.LoginResult{
		Token: "jwt-token",
		User:  services.User{ID: "user_1", Email: "olena@example.com", Verified: true},
	}}
	router := newAuthTestRouter(svc, nil)

	body := `{"email":"olena@example.com","password":"sup3rsecret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token != "jwt-token" || resp.User.ID != "user_1" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestLoginMapsInvalidCredentials(t *testing.T) {
	router := newAuthTestRouter(&stubUserService{err: services.ErrInvalidCredentials}, nil)

	body := `{"email":"olena@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec.Body.String()); code != "invalid_credentials" {
		t.Fatalf("unexpected error code %q", code)
	}
}

func TestLoginMapsUnverifiedEmail(t *testing.T) {
	router := newAuthTestRouter(&stubUserService{err: services.ErrEmailUnverified}, nil)

	body := `{"email":"olena@example.com","password":"sup3rsecret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAuthEndpointsRateLimited(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	limiter := newSimpleRateLimiter(1, time.Minute, func() time.Time { return now })
	router := newAuthTestRouter(&stubUserService{err: services.ErrInvalidCredentials}, limiter)

	body := `{"email":"olena@example.com","password":"wrong"}`
	first := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	first.RemoteAddr = "203.0.113.7:1234"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, first)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected first attempt to reach the service, got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	second.RemoteAddr = "203.0.113.7:1234"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, second)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on second attempt, got %d", rec.Code)
	}
}
