package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Stripe.Currency != "usd" {
		t.Errorf("expected default currency usd, got %s", cfg.Stripe.Currency)
	}
	if cfg.Firestore.OrdersCollection != "orders" {
		t.Errorf("unexpected orders collection: %s", cfg.Firestore.OrdersCollection)
	}
	if cfg.PubSub.Enabled {
		t.Errorf("expected pub/sub disabled by default")
	}
	if cfg.Idempotency.Header != "Idempotency-Key" {
		t.Errorf("unexpected idempotency header: %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != 24*time.Hour {
		t.Errorf("unexpected idempotency TTL: %s", cfg.Idempotency.TTL)
	}
}

func TestLoadEnvMapOverrides(t *testing.T) {
	env := map[string]string{
		"STORE_SERVER_PORT":               "9090",
		"STORE_SERVER_READ_TIMEOUT":       "5s",
		"STORE_STRIPE_CURRENCY":           "EUR",
		"STORE_FIRESTORE_PROJECT_ID":      "demo-project",
		"STORE_PUBSUB_ENABLED":            "true",
		"STORE_PUBSUB_TOPIC":              "orders-out",
		"STORE_IDEMPOTENCY_TTL":           "1h",
		"STORE_IDEMPOTENCY_CLEANUP_BATCH": "50",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port override, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Stripe.Currency != "eur" {
		t.Errorf("expected lowercased currency, got %s", cfg.Stripe.Currency)
	}
	if !cfg.PubSub.Enabled {
		t.Errorf("expected pub/sub enabled")
	}
	if cfg.PubSub.ProjectID != "demo-project" {
		t.Errorf("expected pub/sub project to default to firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.Topic != "orders-out" {
		t.Errorf("unexpected topic: %s", cfg.PubSub.Topic)
	}
	if cfg.Idempotency.TTL != time.Hour {
		t.Errorf("unexpected TTL: %s", cfg.Idempotency.TTL)
	}
	if cfg.Idempotency.CleanupBatchSize != 50 {
		t.Errorf("unexpected cleanup batch: %d", cfg.Idempotency.CleanupBatchSize)
	}
}

func TestLoadResolvesSecretReference(t *testing.T) {
	resolver := SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
		if ref != "secret://stripe-api-key" {
			return "", fmt.Errorf("unexpected ref %q", ref)
		}
		return "sk_test_resolved", nil
	})

	env := map[string]string{"STORE_STRIPE_API_KEY": "sm://stripe-api-key"}
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Stripe.APIKey != "sk_test_resolved" {
		t.Errorf("expected resolved key, got %q", cfg.Stripe.APIKey)
	}
}

func TestLoadSecretResolverFailure(t *testing.T) {
	cause := errors.New("permission denied")
	resolver := SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
		return "", cause
	})

	env := map[string]string{"STORE_STRIPE_API_KEY": "secret://stripe-api-key"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err == nil {
		t.Fatalf("expected error")
	}
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause")
	}
}

func TestLoadPlainKeySkipsResolver(t *testing.T) {
	resolver := SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
		return "", errors.New("resolver should not run")
	})

	env := map[string]string{"STORE_STRIPE_API_KEY": "sk_test_plain"}
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Stripe.APIKey != "sk_test_plain" {
		t.Errorf("expected plain key preserved, got %q", cfg.Stripe.APIKey)
	}
}

func TestLoadValidation(t *testing.T) {
	env := map[string]string{
		"STORE_PUBSUB_ENABLED":  "true",
		"STORE_IDEMPOTENCY_TTL": "-1s",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := strings.Join(validationErr.Fields(), ",")
	if !strings.Contains(fields, "PubSub.ProjectID") {
		t.Errorf("expected PubSub.ProjectID in %q", fields)
	}
	if !strings.Contains(fields, "Idempotency.TTL") {
		t.Errorf("expected Idempotency.TTL in %q", fields)
	}
}
