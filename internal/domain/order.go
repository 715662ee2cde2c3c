package domain

import "time"

// PaymentStatus tracks how far an order has come towards being paid.
type PaymentStatus string

const (
	// PaymentStatusPending marks deferred orders that will be paid at pickup.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid marks orders whose card payment was verified.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusFailed marks orders whose payment ultimately failed.
	PaymentStatusFailed PaymentStatus = "failed"
)

// IsValid reports whether the status is one of the known payment states.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// CustomerInfo carries the contact fields collected at checkout.
type CustomerInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Order is the persisted record of a purchase. TotalPrice always equals the
// pricing engine applied to Items at creation time; it is never taken from the
// client. Orders are immutable once created.
type Order struct {
	ID              string        `json:"id"`
	FirstName       string        `json:"firstName"`
	LastName        string        `json:"lastName"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone"`
	Items           string        `json:"items"`
	TotalPrice      int64         `json:"totalPrice"`
	PaymentIntentID string        `json:"paymentIntentId,omitempty"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	CreatedAt       time.Time     `json:"createdAt"`
}
