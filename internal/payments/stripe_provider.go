package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/gracepoint-merch/storefront-api/internal/platform/textutil"
)

// StripeLogger defines the logging contract for Stripe provider operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey   string
	Backends *stripe.Backends
	Logger   StripeLogger

	// Intents overrides the Stripe client in tests.
	Intents stripePaymentIntentAPI
}

// StripeProvider implements the Provider interface using Stripe Payment Intents.
type StripeProvider struct {
	intents stripePaymentIntentAPI
	logger  StripeLogger
}

// NewStripeProvider constructs a Stripe-backed Provider.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Intents == nil {
		return nil, errors.New("stripe: api key is required")
	}

	intents := cfg.Intents
	if intents == nil {
		sc := client.New(apiKey, cfg.Backends)
		intents = sc.PaymentIntents
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{
		intents: intents,
		logger:  logger,
	}, nil
}

// CreateIntent creates a Stripe Payment Intent for the server-computed amount
// with all automatic payment methods enabled.
func (p *StripeProvider) CreateIntent(ctx context.Context, req CreateIntentRequest) (Intent, error) {
	if p == nil || p.intents == nil {
		return Intent{}, errors.New("stripe: provider is nil")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if md := textutil.NormalizeMetadata(req.Metadata); len(md) > 0 {
		if oversized := textutil.OversizedValues(md); len(oversized) > 0 {
			return Intent{}, fmt.Errorf("stripe: metadata values exceed %d characters: %s",
				textutil.MaxMetadataValueLen, strings.Join(oversized, ", "))
		}
		params.Metadata = md
	}

	intent, err := p.intents.New(params)
	if err != nil {
		return Intent{}, translateStripeError(err, "create payment intent")
	}

	p.logger(ctx, "payments.stripe.intent.created", map[string]any{
		"paymentIntent": intent.ID,
		"amount":        intent.Amount,
		"currency":      intent.Currency,
	})

	return stripeIntent(intent), nil
}

// RetrieveIntent fetches the current state of a Stripe Payment Intent.
func (p *StripeProvider) RetrieveIntent(ctx context.Context, id string) (Intent, error) {
	if p == nil || p.intents == nil {
		return Intent{}, errors.New("stripe: provider is nil")
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := p.intents.Get(id, params)
	if err != nil {
		return Intent{}, translateStripeError(err, "retrieve payment intent")
	}
	return stripeIntent(intent), nil
}

func stripeIntent(intent *stripe.PaymentIntent) Intent {
	if intent == nil {
		return Intent{}
	}

	metadata := make(map[string]string, len(intent.Metadata))
	for k, v := range intent.Metadata {
		metadata[k] = v
	}

	return Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountCents:  intent.Amount,
		Currency:     strings.ToLower(string(intent.Currency)),
		Status:       IntentStatus(intent.Status),
		Metadata:     metadata,
	}
}

func translateStripeError(err error, op string) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return ErrIntentNotFound
		}
		message := strings.TrimSpace(stripeErr.Msg)
		if message == "" {
			message = op + " failed"
		}
		return &ProcessorError{Message: message, Err: err}
	}
	return &ProcessorError{Message: op + " failed", Err: err}
}
