// Package repositories defines the persistence contracts consumed by the
// service layer. Implementations live in subpackages; the core only constructs
// order values and delegates storage.
package repositories

import (
	"context"
	"errors"

	"github.com/gracepoint-merch/storefront-api/internal/domain"
)

var (
	// ErrOrderNotFound is returned when no order exists for the given id.
	ErrOrderNotFound = errors.New("repositories: order not found")
	// ErrPaymentIntentExists is returned when an order already references the
	// payment intent id being inserted. Confirmation treats it as "already
	// confirmed" rather than creating a duplicate order.
	ErrPaymentIntentExists = errors.New("repositories: payment intent already recorded")
)

// OrderRepository persists orders. Orders are created once and never updated,
// so the contract is insert plus reads. Insert enforces uniqueness on the
// payment intent id when one is set.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
}
