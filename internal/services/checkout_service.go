package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gracepoint-merch/storefront-api/internal/domain"
	"github.com/gracepoint-merch/storefront-api/internal/payments"
	"github.com/gracepoint-merch/storefront-api/internal/platform/textutil"
	"github.com/gracepoint-merch/storefront-api/internal/repositories"
)

const defaultCurrency = "usd"

// Metadata keys stored on the payment intent. The cart and contact fields live
// entirely in metadata so confirmation never has to trust the client again.
const (
	metadataKeyFirstName = "firstName"
	metadataKeyLastName  = "lastName"
	metadataKeyEmail     = "email"
	metadataKeyPhone     = "phone"
	metadataKeyItems     = "items"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input parameters.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
	// ErrCheckoutIntentNotFound indicates the referenced payment intent does not exist.
	ErrCheckoutIntentNotFound = errors.New("checkout: payment intent not found")
	// ErrCheckoutPaymentIncomplete indicates the intent has not reached the
	// succeeded state and the order must not be persisted.
	ErrCheckoutPaymentIncomplete = errors.New("checkout: payment not completed")
	// ErrCheckoutMetadataInvalid indicates the intent metadata could not be
	// reconstructed into a valid cart.
	ErrCheckoutMetadataInvalid = errors.New("checkout: intent metadata invalid")
	// ErrCheckoutAmountMismatch indicates the charged amount disagrees with the
	// server-computed total for the metadata cart.
	ErrCheckoutAmountMismatch = errors.New("checkout: amount mismatch")
	// ErrCheckoutProcessorFailure indicates the payment processor rejected or
	// failed the request.
	ErrCheckoutProcessorFailure = errors.New("checkout: processor failure")
)

// PaymentIncompleteError reports the intent status that blocked confirmation.
type PaymentIncompleteError struct {
	Status payments.IntentStatus
}

func (e *PaymentIncompleteError) Error() string {
	return fmt.Sprintf("checkout: payment not completed: intent status %q", e.Status)
}

// Is matches the ErrCheckoutPaymentIncomplete sentinel.
func (e *PaymentIncompleteError) Is(target error) bool {
	return target == ErrCheckoutPaymentIncomplete
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Orders      repositories.OrderRepository
	Payments    payments.Provider
	Catalog     domain.Catalog
	Currency    string
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	orders   repositories.OrderRepository
	payments payments.Provider
	catalog  domain.Catalog
	pricer   domain.Pricer
	currency string
	clock    func() time.Time
	newID    func() string
	events   OrderEventPublisher
	logger   func(context.Context, string, map[string]any)
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment provider is required")
	}

	catalog := deps.Catalog
	if len(catalog.Colors) == 0 {
		catalog = domain.DefaultCatalog()
	}

	currency := strings.ToLower(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &checkoutService{
		orders:   deps.Orders,
		payments: deps.Payments,
		catalog:  catalog,
		pricer:   domain.NewPricer(catalog),
		currency: currency,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  newID,
		events: deps.Events,
		logger: logger,
	}, nil
}

// CreatePaymentIntent validates the checkout payload, computes the amount
// server-side, and opens a payment intent carrying the full cart in metadata.
func (s *checkoutService) CreatePaymentIntent(ctx context.Context, cmd CreatePaymentIntentCommand) (PaymentIntentSession, error) {
	if s == nil || s.payments == nil {
		return PaymentIntentSession{}, ErrCheckoutUnavailable
	}

	customer := normalizeCustomer(cmd.Customer)
	if err := domain.ValidateCustomer(customer); err != nil {
		return PaymentIntentSession{}, fmt.Errorf("%w: %w", ErrCheckoutInvalidInput, err)
	}
	if err := s.catalog.ValidateCart(cmd.Items); err != nil {
		return PaymentIntentSession{}, fmt.Errorf("%w: %w", ErrCheckoutInvalidInput, err)
	}

	items, err := domain.EncodeItems(cmd.Items)
	if err != nil {
		return PaymentIntentSession{}, fmt.Errorf("%w: %w", ErrCheckoutInvalidInput, err)
	}

	amount := s.pricer.TotalCents(cmd.Items)

	intent, err := s.payments.CreateIntent(ctx, payments.CreateIntentRequest{
		AmountCents: amount,
		Currency:    s.currency,
		Metadata: map[string]string{
			metadataKeyFirstName: customer.FirstName,
			metadataKeyLastName:  customer.LastName,
			metadataKeyEmail:     customer.Email,
			metadataKeyPhone:     customer.Phone,
			metadataKeyItems:     items,
		},
	})
	if err != nil {
		s.logger(ctx, "checkout.intent_create_failed", map[string]any{
			"amount_cents": amount,
			"error":        err.Error(),
		})
		return PaymentIntentSession{}, fmt.Errorf("%w: %w", ErrCheckoutProcessorFailure, err)
	}

	s.logger(ctx, "checkout.intent_created", map[string]any{
		"payment_intent_id": intent.ID,
		"amount_cents":      amount,
	})

	return PaymentIntentSession{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountCents:     intent.AmountCents,
	}, nil
}

// ConfirmPayment retrieves the intent from the processor, verifies that the
// payment succeeded and that the charged amount matches the server-computed
// total for the metadata cart, then persists the order as paid. The request
// body contributes nothing beyond the intent id.
func (s *checkoutService) ConfirmPayment(ctx context.Context, cmd ConfirmPaymentCommand) (ConfirmPaymentResult, error) {
	if s == nil || s.payments == nil || s.orders == nil {
		return ConfirmPaymentResult{}, ErrCheckoutUnavailable
	}

	intentID := strings.TrimSpace(cmd.PaymentIntentID)
	if intentID == "" {
		return ConfirmPaymentResult{}, fmt.Errorf("%w: payment intent id is required", ErrCheckoutInvalidInput)
	}

	intent, err := s.payments.RetrieveIntent(ctx, intentID)
	if err != nil {
		if errors.Is(err, payments.ErrIntentNotFound) {
			return ConfirmPaymentResult{}, ErrCheckoutIntentNotFound
		}
		return ConfirmPaymentResult{}, fmt.Errorf("%w: %w", ErrCheckoutProcessorFailure, err)
	}

	if intent.Status != payments.IntentStatusSucceeded {
		return ConfirmPaymentResult{}, &PaymentIncompleteError{Status: intent.Status}
	}

	cart, customer, err := s.reconstructFromMetadata(intent.Metadata)
	if err != nil {
		s.logger(ctx, "checkout.metadata_invalid", map[string]any{
			"payment_intent_id": intent.ID,
			"error":             err.Error(),
		})
		return ConfirmPaymentResult{}, fmt.Errorf("%w: %w", ErrCheckoutMetadataInvalid, err)
	}

	expected := s.pricer.TotalCents(cart)
	if intent.AmountCents != expected {
		s.logger(ctx, "checkout.amount_mismatch", map[string]any{
			"payment_intent_id": intent.ID,
			"charged_cents":     intent.AmountCents,
			"expected_cents":    expected,
		})
		return ConfirmPaymentResult{}, fmt.Errorf("%w: charged %d, expected %d", ErrCheckoutAmountMismatch, intent.AmountCents, expected)
	}

	items, err := domain.EncodeItems(cart)
	if err != nil {
		return ConfirmPaymentResult{}, fmt.Errorf("%w: %w", ErrCheckoutMetadataInvalid, err)
	}

	order := domain.Order{
		ID:              s.newID(),
		FirstName:       customer.FirstName,
		LastName:        customer.LastName,
		Email:           customer.Email,
		Phone:           customer.Phone,
		Items:           items,
		TotalPrice:      s.pricer.Total(cart),
		PaymentIntentID: intent.ID,
		PaymentStatus:   domain.PaymentStatusPaid,
		CreatedAt:       s.clock(),
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		if errors.Is(err, repositories.ErrPaymentIntentExists) {
			existing, lookupErr := s.orders.FindByPaymentIntentID(ctx, intent.ID)
			if lookupErr != nil {
				return ConfirmPaymentResult{}, fmt.Errorf("%w: %w", ErrCheckoutUnavailable, lookupErr)
			}
			s.logger(ctx, "checkout.confirm_replayed", map[string]any{
				"payment_intent_id": intent.ID,
				"order_id":          existing.ID,
			})
			return ConfirmPaymentResult{Order: existing, AlreadyConfirmed: true}, nil
		}
		s.logger(ctx, "checkout.persist_failed", map[string]any{
			"payment_intent_id": intent.ID,
			"error":             err.Error(),
		})
		return ConfirmPaymentResult{}, fmt.Errorf("%w: %w", ErrCheckoutUnavailable, err)
	}

	s.logger(ctx, "checkout.confirmed", map[string]any{
		"payment_intent_id": intent.ID,
		"order_id":          order.ID,
		"amount_cents":      intent.AmountCents,
	})

	s.publishConfirmed(ctx, order)
	return ConfirmPaymentResult{Order: order}, nil
}

func (s *checkoutService) reconstructFromMetadata(metadata map[string]string) (domain.Cart, domain.CustomerInfo, error) {
	metadata = textutil.NormalizeMetadata(metadata)
	raw, ok := metadata[metadataKeyItems]
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, domain.CustomerInfo{}, errors.New("items metadata missing")
	}

	cart, err := domain.DecodeItems(raw)
	if err != nil {
		return nil, domain.CustomerInfo{}, err
	}
	if err := s.catalog.ValidateCart(cart); err != nil {
		return nil, domain.CustomerInfo{}, err
	}

	customer := normalizeCustomer(domain.CustomerInfo{
		FirstName: metadata[metadataKeyFirstName],
		LastName:  metadata[metadataKeyLastName],
		Email:     metadata[metadataKeyEmail],
		Phone:     metadata[metadataKeyPhone],
	})

	return cart, customer, nil
}

func (s *checkoutService) publishConfirmed(ctx context.Context, order domain.Order) {
	if s.events == nil {
		return
	}

	msg := OrderEventMessage{
		Event:           orderEventCreated,
		OrderID:         order.ID,
		PaymentStatus:   string(order.PaymentStatus),
		PaymentIntentID: order.PaymentIntentID,
		TotalPrice:      order.TotalPrice,
		Email:           order.Email,
		CreatedAt:       order.CreatedAt,
	}
	if _, err := s.events.PublishOrderEvent(ctx, msg); err != nil {
		s.logger(ctx, "checkout.event_publish_failed", map[string]any{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}
