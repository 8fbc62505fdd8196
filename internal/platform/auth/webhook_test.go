package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mapSecretProvider map[string]string

func (m mapSecretProvider) GetSecret(_ context.Context, name string) (string, error) {
	if secret, ok := m[name]; ok {
		return secret, nil
	}
	return "", fmt.Errorf("secret %s not found", name)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

func TestRequireSignature_Success(t *testing.T) {
	const secretName = "webhooks/payment"
	secretValue := "super-secret"

	provider := mapSecretProvider{secretName: secretValue}
	now := time.Now().UTC().Truncate(time.Second)

	verifier := NewWebhookVerifier(provider,
		WithWebhookLogger(noopLogger{}),
		WithWebhookClock(func() time.Time { return now }),
	)

	body := []byte(`{"order_id":"ord-1","status":"succeeded"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(body))

	timestamp := now.Format(time.RFC3339)
	signature := computeSignature([]byte(secretValue), timestamp, body)

	req.Header.Set(defaultSignatureHeader, base64.StdEncoding.EncodeToString(signature))
	req.Header.Set(defaultTimestampHeader, timestamp)

	rr := httptest.NewRecorder()

	verifier.RequireSignature(secretName)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta, ok := WebhookMetadataFromContext(r.Context())
		if !ok {
			t.Fatalf("expected webhook metadata in context")
		}
		if meta.SecretName != secretName {
			t.Fatalf("unexpected secret name %q", meta.SecretName)
		}
		w.WriteHeader(http.StatusAccepted)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}
}

func TestRequireSignature_Mismatch(t *testing.T) {
	const secretName = "webhooks/payment"
	secretValue := "payment-secret"

	provider := mapSecretProvider{secretName: secretValue}
	now := time.Now().UTC().Truncate(time.Second)

	verifier := NewWebhookVerifier(provider,
		WithWebhookLogger(noopLogger{}),
		WithWebhookClock(func() time.Time { return now }),
	)

	timestamp := now.Format(time.RFC3339)
	signature := computeSignature([]byte(secretValue), timestamp, []byte(`{"status":"succeeded"}`))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader([]byte(`{"status":"cancelled"}`)))
	req.Header.Set(defaultSignatureHeader, base64.StdEncoding.EncodeToString(signature))
	req.Header.Set(defaultTimestampHeader, timestamp)

	rr := httptest.NewRecorder()
	verifier.RequireSignature(secretName)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler should not be invoked on signature mismatch")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on signature mismatch, got %d", rr.Code)
	}
}

func TestRequireSignature_TimestampSkewRejected(t *testing.T) {
	const secretName = "webhooks/payment"
	secretValue := "payment-secret"

	provider := mapSecretProvider{secretName: secretValue}
	now := time.Now().UTC().Truncate(time.Second)

	verifier := NewWebhookVerifier(provider,
		WithWebhookLogger(noopLogger{}),
		WithWebhookClock(func() time.Time { return now }),
	)

	body := []byte(`{"status":"succeeded"}`)
	timestamp := now.Add(-10 * time.Minute).Format(time.RFC3339)
	signature := computeSignature([]byte(secretValue), timestamp, body)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(body))
	req.Header.Set(defaultSignatureHeader, base64.StdEncoding.EncodeToString(signature))
	req.Header.Set(defaultTimestampHeader, timestamp)

	rr := httptest.NewRecorder()
	verifier.RequireSignature(secretName)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler should not be called when timestamp is skewed")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on timestamp skew, got %d", rr.Code)
	}
}

func TestRequireSignature_SecretUnavailable(t *testing.T) {
	provider := SecretProviderFunc(func(context.Context, string) (string, error) {
		return "", fmt.Errorf("secret unavailable")
	})
	now := time.Now().UTC().Truncate(time.Second)

	verifier := NewWebhookVerifier(provider,
		WithWebhookLogger(noopLogger{}),
		WithWebhookClock(func() time.Time { return now }),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(nil))
	rr := httptest.NewRecorder()

	verifier.RequireSignature("missing/secret")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler should not run when secret unavailable")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when secret unavailable, got %d", rr.Code)
	}
}

func TestRequireSignature_CustomHeaders(t *testing.T) {
	const secretName = "webhooks/payment"
	secretValue := "payment-secret"

	provider := mapSecretProvider{secretName: secretValue}
	now := time.Now().UTC().Truncate(time.Second)

	verifier := NewWebhookVerifier(provider,
		WithWebhookLogger(noopLogger{}),
		WithWebhookClock(func() time.Time { return now }),
		WithWebhookHeaders("X-Custom-Signature", "X-Custom-Timestamp"),
	)

	body := []byte(`{"status":"succeeded"}`)
	timestamp := fmt.Sprintf("%d", now.Unix())
	signature := computeSignature([]byte(secretValue), timestamp, body)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(body))
	req.Header.Set("X-Custom-Signature", base64.StdEncoding.EncodeToString(signature))
	req.Header.Set("X-Custom-Timestamp", timestamp)

	rr := httptest.NewRecorder()
	verifier.RequireSignature(secretName)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with unix timestamp and custom headers, got %d", rr.Code)
	}
}
