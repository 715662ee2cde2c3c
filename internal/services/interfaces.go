// Package services implements the storefront's order and payment flows on top
// of the domain rules, the order repository, and the payment processor.
package services

import (
	"context"
	"time"

	"github.com/gracepoint-merch/storefront-api/internal/domain"
)

// OrderService handles deferred (pay-at-pickup) order submission and order reads.
type OrderService interface {
	SubmitOrder(ctx context.Context, cmd SubmitOrderCommand) (domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
}

// CheckoutService coordinates the two-phase card payment flow: intent creation
// before the customer pays, verification and persistence after.
type CheckoutService interface {
	CreatePaymentIntent(ctx context.Context, cmd CreatePaymentIntentCommand) (PaymentIntentSession, error)
	ConfirmPayment(ctx context.Context, cmd ConfirmPaymentCommand) (ConfirmPaymentResult, error)
}

// SubmitOrderCommand carries a deferred-order submission.
type SubmitOrderCommand struct {
	Customer   domain.CustomerInfo
	Items      domain.Cart
	TotalPrice int64
}

// CreatePaymentIntentCommand carries the checkout payload used to open a
// payment intent. The client-displayed total is deliberately absent: the
// amount is always recomputed server-side.
type CreatePaymentIntentCommand struct {
	Customer domain.CustomerInfo
	Items    domain.Cart
}

// PaymentIntentSession is returned to the client so it can complete the
// payment. Amount is in minor currency units, matching the processor.
type PaymentIntentSession struct {
	PaymentIntentID string
	ClientSecret    string
	AmountCents     int64
}

// ConfirmPaymentCommand identifies the intent whose payment should be verified.
type ConfirmPaymentCommand struct {
	PaymentIntentID string
}

// ConfirmPaymentResult carries the persisted order plus whether this
// confirmation was a replay of one already recorded.
type ConfirmPaymentResult struct {
	Order            domain.Order
	AlreadyConfirmed bool
}

// OrderEventPublisher publishes order lifecycle events for downstream
// consumers. Publishing is best-effort: failures are logged, never surfaced.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// OrderEventMessage is the payload delivered to subscribers via Pub/Sub.
type OrderEventMessage struct {
	Event           string    `json:"event"`
	OrderID         string    `json:"orderId"`
	PaymentStatus   string    `json:"paymentStatus"`
	PaymentIntentID string    `json:"paymentIntentId,omitempty"`
	TotalPrice      int64     `json:"totalPrice"`
	Email           string    `json:"email"`
	CreatedAt       time.Time `json:"createdAt"`
}
