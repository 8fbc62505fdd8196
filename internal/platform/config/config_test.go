package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "pizza-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Environment != "local" {
		t.Errorf("expected default environment local, got %s", cfg.Environment)
	}
	if cfg.Checkout.DeliveryFee != defaultDeliveryFee {
		t.Errorf("unexpected default delivery fee: %d", cfg.Checkout.DeliveryFee)
	}
	if cfg.PSP.Currency != defaultCurrency {
		t.Errorf("unexpected default currency: %s", cfg.PSP.Currency)
	}
	if cfg.Auth.SessionTTL != defaultSessionTTL {
		t.Errorf("unexpected default session ttl: %s", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.VerificationCodeTTL != defaultVerificationTTL {
		t.Errorf("unexpected default verification ttl: %s", cfg.Auth.VerificationCodeTTL)
	}
	if cfg.Webhooks.SignatureHeader != defaultHMACSignatureHeader {
		t.Errorf("unexpected default signature header: %s", cfg.Webhooks.SignatureHeader)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":                "9090",
		"API_SERVER_READ_TIMEOUT":        "20s",
		"API_SERVER_IDLE_TIMEOUT":        "2m",
		"API_ENVIRONMENT":                "PROD",
		"API_FIRESTORE_PROJECT_ID":       "pizza-prod",
		"API_EVENTS_PROJECT_ID":          "pizza-prod",
		"API_EVENTS_ORDER_TOPIC":         "order-events",
		"API_PSP_STRIPE_API_KEY":         "secret://stripe/api",
		"API_PSP_CURRENCY":               "EUR",
		"API_PSP_SUCCESS_URL":            "https://shop.example.com/paid",
		"API_PSP_CANCEL_URL":             "https://shop.example.com/cart",
		"API_CHECKOUT_DELIVERY_FEE":      "30000",
		"API_AUTH_SESSION_SECRET":        "secret://auth/session",
		"API_AUTH_SESSION_TTL":           "24h",
		"API_AUTH_VERIFICATION_CODE_TTL": "10m",
		"API_MAIL_RELAY_ENDPOINT":        "https://mail.internal/send",
		"API_MAIL_AUTH_TOKEN":            "secret://mail/token",
		"API_WEBHOOK_SIGNING_SECRET":     "secret://webhook/secret",
		"API_WEBHOOK_HEADER_SIGNATURE":   "X-Custom-Signature",
		"API_WEBHOOK_CLOCK_SKEW":         "3m",
	}

	secrets := map[string]string{
		"secret://stripe/api":     "stripe-key",
		"secret://auth/session":   "session-secret",
		"secret://mail/token":     "mail-token",
		"secret://webhook/secret": "webhook-secret",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Server.IdleTimeout)
	}
	if cfg.Environment != "prod" {
		t.Errorf("expected lowercased environment, got %s", cfg.Environment)
	}
	if cfg.PSP.StripeAPIKey != "stripe-key" {
		t.Errorf("expected resolved stripe api key, got %s", cfg.PSP.StripeAPIKey)
	}
	if cfg.PSP.Currency != "eur" {
		t.Errorf("expected lowercased currency, got %s", cfg.PSP.Currency)
	}
	if cfg.Checkout.DeliveryFee != 30000 {
		t.Errorf("unexpected delivery fee %d", cfg.Checkout.DeliveryFee)
	}
	if cfg.Auth.SessionSecret != "session-secret" {
		t.Errorf("expected resolved session secret, got %s", cfg.Auth.SessionSecret)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Errorf("unexpected session ttl %s", cfg.Auth.SessionTTL)
	}
	if cfg.Mail.AuthToken != "mail-token" {
		t.Errorf("expected resolved mail token, got %s", cfg.Mail.AuthToken)
	}
	if cfg.Webhooks.SigningSecret != "webhook-secret" {
		t.Errorf("expected resolved webhook secret, got %s", cfg.Webhooks.SigningSecret)
	}
	if cfg.Webhooks.SignatureHeader != "X-Custom-Signature" {
		t.Errorf("unexpected signature header %s", cfg.Webhooks.SignatureHeader)
	}
	if cfg.Webhooks.ClockSkew != 3*time.Minute {
		t.Errorf("unexpected clock skew %s", cfg.Webhooks.ClockSkew)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_SERVER_PORT=7070\nAPI_FIRESTORE_PROJECT_ID=pizza-dot\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv 7070, got %s", cfg.Server.Port)
	}
	if cfg.Firestore.ProjectID != "pizza-dot" {
		t.Errorf("expected firestore project from dotenv, got %s", cfg.Firestore.ProjectID)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestLoadSecretResolverError(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "pizza-dev",
		"API_PSP_STRIPE_API_KEY":   "secret://missing",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected secret resolution error, got nil")
	}
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
	if secretErr.Ref != "secret://missing" {
		t.Errorf("unexpected secret ref %s", secretErr.Ref)
	}
}

func TestEnvironmentValuesMergesSources(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_FIRESTORE_PROJECT_ID=dot-project\nAPI_SECRET_FALLBACK_FILE=.dot.local\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	t.Setenv("API_FIRESTORE_PROJECT_ID", "os-project")
	t.Setenv("API_SECRET_PROJECT_IDS", "prod=project-prod")

	overrides := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "override-project",
		"API_SECRET_VERSION_PINS":  "secret://stripe/api=5",
	}

	values, err := EnvironmentValues(WithEnvFile(envPath), WithEnvMap(overrides))
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}

	if got := values["API_FIRESTORE_PROJECT_ID"]; got != "override-project" {
		t.Fatalf("expected override project, got %s", got)
	}
	if got := values["API_SECRET_FALLBACK_FILE"]; got != ".dot.local" {
		t.Fatalf("expected dotenv fallback file, got %s", got)
	}
	if got := values["API_SECRET_PROJECT_IDS"]; got != "prod=project-prod" {
		t.Fatalf("expected system env project map, got %s", got)
	}
	if got := values["API_SECRET_VERSION_PINS"]; got != "secret://stripe/api=5" {
		t.Fatalf("expected override version pin, got %s", got)
	}
}

func TestLoadMissingRequiredSecrets(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "pizza-dev",
	}

	_, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithRequiredSecrets("Webhooks.SigningSecret"),
	)
	if err == nil {
		t.Fatal("expected missing secrets error, got nil")
	}
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %T", err)
	}
	if got := missing.Names(); len(got) != 1 || got[0] != "Webhooks.SigningSecret" {
		t.Fatalf("unexpected missing secrets %v", got)
	}
}

func TestLoadSupportsLegacySecretScheme(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID":   "pizza-dev",
		"API_WEBHOOK_SIGNING_SECRET": "sm://webhook/secret",
	}

	secrets := map[string]string{
		"secret://webhook/secret": "legacy-secret",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", &SecretError{Ref: ref, Err: errors.New("not found")}
	})

	cfg, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithSecretResolver(resolver),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Webhooks.SigningSecret != "legacy-secret" {
		t.Fatalf("expected legacy secret, got %s", cfg.Webhooks.SigningSecret)
	}
}
