package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gracepoint-merch/storefront-api/internal/domain"
	"github.com/gracepoint-merch/storefront-api/internal/payments"
	"github.com/gracepoint-merch/storefront-api/internal/services"
)

type stubCheckoutService struct {
	createFunc  func(ctx context.Context, cmd services.CreatePaymentIntentCommand) (services.PaymentIntentSession, error)
	confirmFunc func(ctx context.Context, cmd services.ConfirmPaymentCommand) (services.ConfirmPaymentResult, error)
}

func (s *stubCheckoutService) CreatePaymentIntent(ctx context.Context, cmd services.CreatePaymentIntentCommand) (services.PaymentIntentSession, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return services.PaymentIntentSession{}, services.ErrCheckoutUnavailable
}

func (s *stubCheckoutService) ConfirmPayment(ctx context.Context, cmd services.ConfirmPaymentCommand) (services.ConfirmPaymentResult, error) {
	if s.confirmFunc != nil {
		return s.confirmFunc(ctx, cmd)
	}
	return services.ConfirmPaymentResult{}, services.ErrCheckoutUnavailable
}

func newPaymentTestServer(svc services.CheckoutService) http.Handler {
	h := NewPaymentHandlers(svc)
	return NewRouter(WithPaymentRoutes(h.Routes))
}

const validIntentBody = `{
	"firstName": "Grace",
	"lastName": "Kim",
	"email": "grace.kim@example.com",
	"phone": "555-010-1234",
	"items": [{"color": "black", "size": "large", "quantity": 2, "pricePerUnit": 65}]
}`

func TestCreatePaymentIntentSuccess(t *testing.T) {
	svc := &stubCheckoutService{
		createFunc: func(ctx context.Context, cmd services.CreatePaymentIntentCommand) (services.PaymentIntentSession, error) {
			if cmd.Customer.Email != "grace.kim@example.com" {
				t.Fatalf("unexpected customer %#v", cmd.Customer)
			}
			return services.PaymentIntentSession{
				PaymentIntentID: "pi_123",
				ClientSecret:    "pi_123_secret",
				AmountCents:     13000,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/create-payment-intent", strings.NewReader(validIntentBody))
	rec := httptest.NewRecorder()
	newPaymentTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["clientSecret"] != "pi_123_secret" {
		t.Errorf("unexpected clientSecret %v", payload["clientSecret"])
	}
	if payload["paymentIntentId"] != "pi_123" {
		t.Errorf("unexpected paymentIntentId %v", payload["paymentIntentId"])
	}
	if payload["amount"] != float64(13000) {
		t.Errorf("unexpected amount %v", payload["amount"])
	}
}

func TestCreatePaymentIntentProcessorFailure(t *testing.T) {
	svc := &stubCheckoutService{
		createFunc: func(ctx context.Context, cmd services.CreatePaymentIntentCommand) (services.PaymentIntentSession, error) {
			return services.PaymentIntentSession{}, services.ErrCheckoutProcessorFailure
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/create-payment-intent", strings.NewReader(validIntentBody))
	rec := httptest.NewRecorder()
	newPaymentTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestConfirmPaymentCreated(t *testing.T) {
	svc := &stubCheckoutService{
		confirmFunc: func(ctx context.Context, cmd services.ConfirmPaymentCommand) (services.ConfirmPaymentResult, error) {
			if cmd.PaymentIntentID != "pi_123" {
				t.Fatalf("unexpected intent id %q", cmd.PaymentIntentID)
			}
			return services.ConfirmPaymentResult{
				Order: domain.Order{
					ID:              "ord-1",
					PaymentIntentID: "pi_123",
					PaymentStatus:   domain.PaymentStatusPaid,
					TotalPrice:      130,
				},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/confirm-payment", strings.NewReader(`{"paymentIntentId":"pi_123"}`))
	rec := httptest.NewRecorder()
	newPaymentTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload confirmPaymentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Order.ID != "ord-1" || payload.Order.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("unexpected order %#v", payload.Order)
	}
	if payload.Message == "" {
		t.Fatalf("expected confirmation message")
	}
}

func TestConfirmPaymentReplayReturnsOK(t *testing.T) {
	svc := &stubCheckoutService{
		confirmFunc: func(ctx context.Context, cmd services.ConfirmPaymentCommand) (services.ConfirmPaymentResult, error) {
			return services.ConfirmPaymentResult{
				Order:            domain.Order{ID: "ord-existing", PaymentIntentID: "pi_123"},
				AlreadyConfirmed: true,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/confirm-payment", strings.NewReader(`{"paymentIntentId":"pi_123"}`))
	rec := httptest.NewRecorder()
	newPaymentTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for replay, got %d", rec.Code)
	}
}

func TestConfirmPaymentIncomplete(t *testing.T) {
	svc := &stubCheckoutService{
		confirmFunc: func(ctx context.Context, cmd services.ConfirmPaymentCommand) (services.ConfirmPaymentResult, error) {
			return services.ConfirmPaymentResult{}, &services.PaymentIncompleteError{Status: payments.IntentStatusProcessing}
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/confirm-payment", strings.NewReader(`{"paymentIntentId":"pi_123"}`))
	rec := httptest.NewRecorder()
	newPaymentTestServer(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["error"] != "payment_incomplete" {
		t.Fatalf("expected payment_incomplete code, got %v", payload["error"])
	}
	if payload["payment_status"] != "processing" {
		t.Fatalf("expected intent status detail, got %v", payload)
	}
}

func TestConfirmPaymentErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "intent not found", err: services.ErrCheckoutIntentNotFound, status: http.StatusNotFound, code: "intent_not_found"},
		{name: "metadata invalid", err: services.ErrCheckoutMetadataInvalid, status: http.StatusBadRequest, code: "metadata_invalid"},
		{name: "amount mismatch", err: services.ErrCheckoutAmountMismatch, status: http.StatusBadRequest, code: "amount_mismatch"},
		{name: "processor failure", err: services.ErrCheckoutProcessorFailure, status: http.StatusBadGateway, code: "processor_error"},
		{name: "unavailable", err: services.ErrCheckoutUnavailable, status: http.StatusInternalServerError, code: "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubCheckoutService{
				confirmFunc: func(ctx context.Context, cmd services.ConfirmPaymentCommand) (services.ConfirmPaymentResult, error) {
					return services.ConfirmPaymentResult{}, tc.err
				},
			}

			req := httptest.NewRequest(http.MethodPost, "/api/confirm-payment", strings.NewReader(`{"paymentIntentId":"pi_123"}`))
			rec := httptest.NewRecorder()
			newPaymentTestServer(svc).ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}

			var payload map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if payload["error"] != tc.code {
				t.Fatalf("expected code %q, got %v", tc.code, payload["error"])
			}
		})
	}
}

func TestConfirmPaymentRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/confirm-payment", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	newPaymentTestServer(&stubCheckoutService{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
