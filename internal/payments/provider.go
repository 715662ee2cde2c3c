package payments

import (
	"context"
	"errors"
	"fmt"
)

// IntentStatus enumerates the payment-intent states reported by the processor.
// The value space matches the processor's wire statuses so callers can surface
// them verbatim.
type IntentStatus string

const (
	// IntentStatusRequiresPaymentMethod means no payment method is attached yet.
	IntentStatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	// IntentStatusRequiresConfirmation means the intent awaits client confirmation.
	IntentStatusRequiresConfirmation IntentStatus = "requires_confirmation"
	// IntentStatusRequiresAction means the customer must complete an extra step.
	IntentStatusRequiresAction IntentStatus = "requires_action"
	// IntentStatusProcessing means the charge is in flight at the processor.
	IntentStatusProcessing IntentStatus = "processing"
	// IntentStatusCanceled means the intent was abandoned or voided.
	IntentStatusCanceled IntentStatus = "canceled"
	// IntentStatusSucceeded means the charge completed; the only confirmable state.
	IntentStatusSucceeded IntentStatus = "succeeded"
)

// Intent is this system's view of the processor-owned payment authorization:
// an opaque id, the authorized amount in minor currency units, the current
// status, and the metadata bag set at creation. The processor guarantees the
// metadata returned on retrieval is exactly what was set at creation, keyed by
// the immutable id, which is what lets order intent cross the
// authorization/confirmation boundary without trusting the client.
type Intent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
	Status       IntentStatus
	Metadata     map[string]string
}

// CreateIntentRequest carries the server-computed charge parameters.
type CreateIntentRequest struct {
	AmountCents int64
	Currency    string
	Metadata    map[string]string
}

// Provider is the narrow contract against the external payment processor. The
// confirmation flow only ever needs these two operations, which keeps the
// verifier testable against a fake implementation.
type Provider interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (Intent, error)
	RetrieveIntent(ctx context.Context, id string) (Intent, error)
}

// ErrIntentNotFound is returned when the processor does not know the intent id.
var ErrIntentNotFound = errors.New("payments: intent not found")

// ProcessorError wraps any other processor-side failure. It is terminal for
// the invocation; callers restart the flow with a fresh intent instead of
// retrying.
type ProcessorError struct {
	Message string
	Err     error
}

func (e *ProcessorError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("payments: processor error: %s", e.Message)
	}
	return "payments: processor error"
}

// Unwrap exposes the underlying processor client error.
func (e *ProcessorError) Unwrap() error { return e.Err }
