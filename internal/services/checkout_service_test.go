package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gracepoint-merch/storefront-api/internal/domain"
	"github.com/gracepoint-merch/storefront-api/internal/payments"
	"github.com/gracepoint-merch/storefront-api/internal/repositories"
)

func succeededIntent(amount int64) payments.Intent {
	items, _ := domain.EncodeItems(testCart())
	return payments.Intent{
		ID:           "pi_123",
		ClientSecret: "pi_123_secret",
		AmountCents:  amount,
		Currency:     "usd",
		Status:       payments.IntentStatusSucceeded,
		Metadata: map[string]string{
			"firstName": "Grace",
			"lastName":  "Kim",
			"email":     "grace.kim@example.com",
			"phone":     "555-010-1234",
			"items":     items,
		},
	}
}

func TestCheckoutServiceCreatePaymentIntentSuccess(t *testing.T) {
	ctx := context.Background()

	var created payments.CreateIntentRequest
	provider := &stubPaymentProvider{
		createFunc: func(ctx context.Context, req payments.CreateIntentRequest) (payments.Intent, error) {
			created = req
			return payments.Intent{
				ID:           "pi_123",
				ClientSecret: "pi_123_secret",
				AmountCents:  req.AmountCents,
				Currency:     req.Currency,
				Status:       payments.IntentStatusRequiresPaymentMethod,
				Metadata:     req.Metadata,
			}, nil
		},
	}

	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Orders:   &stubOrderRepository{},
		Payments: provider,
	})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}

	session, err := svc.CreatePaymentIntent(ctx, CreatePaymentIntentCommand{
		Customer: testCustomer,
		Items:    testCart(),
	})
	if err != nil {
		t.Fatalf("CreatePaymentIntent returned error: %v", err)
	}

	if session.PaymentIntentID != "pi_123" {
		t.Errorf("unexpected intent id %q", session.PaymentIntentID)
	}
	if session.ClientSecret != "pi_123_secret" {
		t.Errorf("unexpected client secret %q", session.ClientSecret)
	}
	if session.AmountCents != 13000 {
		t.Errorf("expected amount 13000 cents, got %d", session.AmountCents)
	}
	if created.Currency != "usd" {
		t.Errorf("expected usd currency, got %q", created.Currency)
	}

	cart, err := domain.DecodeItems(created.Metadata["items"])
	if err != nil {
		t.Fatalf("metadata items not decodable: %v", err)
	}
	if len(cart) != 1 || cart[0].Quantity != 2 {
		t.Errorf("unexpected metadata cart %#v", cart)
	}
	if created.Metadata["email"] != "grace.kim@example.com" {
		t.Errorf("unexpected metadata email %q", created.Metadata["email"])
	}
}

func TestCheckoutServiceCreatePaymentIntentIgnoresClientPrices(t *testing.T) {
	provider := &stubPaymentProvider{
		createFunc: func(ctx context.Context, req payments.CreateIntentRequest) (payments.Intent, error) {
			if req.AmountCents != 13000 {
				t.Fatalf("expected server-computed 13000, got %d", req.AmountCents)
			}
			return payments.Intent{ID: "pi_1", AmountCents: req.AmountCents}, nil
		},
	}

	svc, err := NewCheckoutService(CheckoutServiceDeps{Orders: &stubOrderRepository{}, Payments: provider})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}

	// A tampered unit price fails validation rather than changing the amount.
	_, err = svc.CreatePaymentIntent(context.Background(), CreatePaymentIntentCommand{
		Customer: testCustomer,
		Items:    domain.Cart{{Color: "black", Size: "large", Quantity: 2, UnitPrice: 1}},
	})
	if !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected ErrCheckoutInvalidInput, got %v", err)
	}
}

func TestCheckoutServiceCreatePaymentIntentProcessorFailure(t *testing.T) {
	provider := &stubPaymentProvider{
		createFunc: func(ctx context.Context, req payments.CreateIntentRequest) (payments.Intent, error) {
			return payments.Intent{}, &payments.ProcessorError{Message: "card network unavailable"}
		},
	}

	svc, err := NewCheckoutService(CheckoutServiceDeps{Orders: &stubOrderRepository{}, Payments: provider})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}

	_, err = svc.CreatePaymentIntent(context.Background(), CreatePaymentIntentCommand{
		Customer: testCustomer,
		Items:    testCart(),
	})
	if !errors.Is(err, ErrCheckoutProcessorFailure) {
		t.Fatalf("expected ErrCheckoutProcessorFailure, got %v", err)
	}
}

func TestCheckoutServiceConfirmPaymentSuccess(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	provider := &stubPaymentProvider{
		retrieveFunc: func(ctx context.Context, id string) (payments.Intent, error) {
			if id != "pi_123" {
				t.Fatalf("unexpected intent id %q", id)
			}
			return succeededIntent(13000), nil
		},
	}

	var inserted domain.Order
	repo := &stubOrderRepository{
		insertFunc: func(ctx context.Context, order domain.Order) error {
			inserted = order
			return nil
		},
	}

	var published []OrderEventMessage
	events := &stubEventPublisher{
		publishFunc: func(ctx context.Context, msg OrderEventMessage) (string, error) {
			published = append(published, msg)
			return "msg-1", nil
		},
	}

	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Orders:      repo,
		Payments:    provider,
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "ord-1" },
		Events:      events,
	})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}

	result, err := svc.ConfirmPayment(ctx, ConfirmPaymentCommand{PaymentIntentID: "pi_123"})
	if err != nil {
		t.Fatalf("ConfirmPayment returned error: %v", err)
	}

	if result.AlreadyConfirmed {
		t.Errorf("expected fresh confirmation")
	}
	order := result.Order
	if order.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected paid status, got %s", order.PaymentStatus)
	}
	if order.PaymentIntentID != "pi_123" {
		t.Errorf("unexpected intent id %q", order.PaymentIntentID)
	}
	if order.TotalPrice != 130 {
		t.Errorf("expected total 130, got %d", order.TotalPrice)
	}
	if order.FirstName != "Grace" || order.Email != "grace.kim@example.com" {
		t.Errorf("customer not taken from metadata: %#v", order)
	}
	if inserted.ID != order.ID {
		t.Errorf("expected order persisted")
	}
	if len(published) != 1 || published[0].PaymentStatus != "paid" {
		t.Errorf("expected paid order event, got %#v", published)
	}
}

func TestCheckoutServiceConfirmPaymentStatusGate(t *testing.T) {
	statuses := []payments.IntentStatus{
		payments.IntentStatusRequiresPaymentMethod,
		payments.IntentStatusRequiresConfirmation,
		payments.IntentStatusRequiresAction,
		payments.IntentStatusProcessing,
		payments.IntentStatusCanceled,
	}

	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			intent := succeededIntent(13000)
			intent.Status = status
			provider := &stubPaymentProvider{
				retrieveFunc: func(ctx context.Context, id string) (payments.Intent, error) {
					return intent, nil
				},
			}
			repo := &stubOrderRepository{
				insertFunc: func(ctx context.Context, order domain.Order) error {
					t.Fatal("order must not be persisted before payment succeeds")
					return nil
				},
			}

			svc, err := NewCheckoutService(CheckoutServiceDeps{Orders: repo, Payments: provider})
			if err != nil {
				t.Fatalf("NewCheckoutService: %v", err)
			}

			_, err = svc.ConfirmPayment(context.Background(), ConfirmPaymentCommand{PaymentIntentID: "pi_123"})
			if !errors.Is(err, ErrCheckoutPaymentIncomplete) {
				t.Fatalf("expected ErrCheckoutPaymentIncomplete, got %v", err)
			}
			var incomplete *PaymentIncompleteError
			if !errors.As(err, &incomplete) || incomplete.Status != status {
				t.Fatalf("expected status %s in error, got %v", status, err)
			}
		})
	}
}

func TestCheckoutServiceConfirmPaymentAmountGate(t *testing.T) {
	provider := &stubPaymentProvider{
		retrieveFunc: func(ctx context.Context, id string) (payments.Intent, error) {
			// Charged amount does not match the metadata cart's total.
			return succeededIntent(6500), nil
		},
	}
	repo := &stubOrderRepository{
		insertFunc: func(ctx context.Context, order domain.Order) error {
			t.Fatal("order must not be persisted on amount mismatch")
			return nil
		},
	}

	svc, err := NewCheckoutService(CheckoutServiceDeps{Orders: repo, Payments: provider})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}

	_, err = svc.ConfirmPayment(context.Background(), ConfirmPaymentCommand{PaymentIntentID: "pi_123"})
	if !errors.Is(err, ErrCheckoutAmountMismatch) {
		t.Fatalf("expected ErrCheckoutAmountMismatch, got %v", err)
	}
}

func TestCheckoutServiceConfirmPaymentMetadataGate(t *testing.T) {
	cases := []struct {
		name     string
		metadata map[string]string
	}{
		{name: "missing items", metadata: map[string]string{"email": "a@b.com"}},
		{name: "malformed items", metadata: map[string]string{"items": "{not json"}},
		{name: "empty cart", metadata: map[string]string{"items": "[]"}},
		{name: "unknown color", metadata: map[string]string{"items": `[{"color":"green","size":"large","quantity":1,"pricePerUnit":65}]`}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			intent := succeededIntent(13000)
			intent.Metadata = tc.metadata
			provider := &stubPaymentProvider{
				retrieveFunc: func(ctx context.Context, id string) (payments.Intent, error) {
					return intent, nil
				},
			}
			repo := &stubOrderRepository{
				insertFunc: func(ctx context.Context, order domain.Order) error {
					t.Fatal("order must not be persisted with invalid metadata")
					return nil
				},
			}

			svc, err := NewCheckoutService(CheckoutServiceDeps{Orders: repo, Payments: provider})
			if err != nil {
				t.Fatalf("NewCheckoutService: %v", err)
			}

			_, err = svc.ConfirmPayment(context.Background(), ConfirmPaymentCommand{PaymentIntentID: "pi_123"})
			if !errors.Is(err, ErrCheckoutMetadataInvalid) {
				t.Fatalf("expected ErrCheckoutMetadataInvalid, got %v", err)
			}
		})
	}
}

func TestCheckoutServiceConfirmPaymentIntentNotFound(t *testing.T) {
	provider := &stubPaymentProvider{
		retrieveFunc: func(ctx context.Context, id string) (payments.Intent, error) {
			return payments.Intent{}, payments.ErrIntentNotFound
		},
	}

	svc, err := NewCheckoutService(CheckoutServiceDeps{Orders: &stubOrderRepository{}, Payments: provider})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}

	_, err = svc.ConfirmPayment(context.Background(), ConfirmPaymentCommand{PaymentIntentID: "pi_missing"})
	if !errors.Is(err, ErrCheckoutIntentNotFound) {
		t.Fatalf("expected ErrCheckoutIntentNotFound, got %v", err)
	}
}

func TestCheckoutServiceConfirmPaymentReplayReturnsExistingOrder(t *testing.T) {
	existing := domain.Order{
		ID:              "ord-existing",
		PaymentIntentID: "pi_123",
		PaymentStatus:   domain.PaymentStatusPaid,
		TotalPrice:      130,
	}

	provider := &stubPaymentProvider{
		retrieveFunc: func(ctx context.Context, id string) (payments.Intent, error) {
			return succeededIntent(13000), nil
		},
	}
	repo := &stubOrderRepository{
		insertFunc: func(ctx context.Context, order domain.Order) error {
			return repositories.ErrPaymentIntentExists
		},
		findByIntentIDFunc: func(ctx context.Context, intentID string) (domain.Order, error) {
			if intentID != "pi_123" {
				t.Fatalf("unexpected lookup %q", intentID)
			}
			return existing, nil
		},
	}

	svc, err := NewCheckoutService(CheckoutServiceDeps{Orders: repo, Payments: provider})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}

	result, err := svc.ConfirmPayment(context.Background(), ConfirmPaymentCommand{PaymentIntentID: "pi_123"})
	if err != nil {
		t.Fatalf("ConfirmPayment returned error: %v", err)
	}
	if !result.AlreadyConfirmed {
		t.Errorf("expected replay to be flagged")
	}
	if result.Order.ID != "ord-existing" {
		t.Errorf("expected existing order, got %#v", result.Order)
	}
}

func TestCheckoutServiceConfirmPaymentBlankIntentID(t *testing.T) {
	svc, err := NewCheckoutService(CheckoutServiceDeps{Orders: &stubOrderRepository{}, Payments: &stubPaymentProvider{}})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}

	if _, err := svc.ConfirmPayment(context.Background(), ConfirmPaymentCommand{PaymentIntentID: "  "}); !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected ErrCheckoutInvalidInput, got %v", err)
	}
}

type stubPaymentProvider struct {
	createFunc   func(ctx context.Context, req payments.CreateIntentRequest) (payments.Intent, error)
	retrieveFunc func(ctx context.Context, id string) (payments.Intent, error)
}

func (s *stubPaymentProvider) CreateIntent(ctx context.Context, req payments.CreateIntentRequest) (payments.Intent, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, req)
	}
	return payments.Intent{}, errors.New("createFunc not set")
}

func (s *stubPaymentProvider) RetrieveIntent(ctx context.Context, id string) (payments.Intent, error) {
	if s.retrieveFunc != nil {
		return s.retrieveFunc(ctx, id)
	}
	return payments.Intent{}, errors.New("retrieveFunc not set")
}
