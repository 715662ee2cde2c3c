// Package memory provides an in-memory order repository used by tests and
// local development runs that have no Firestore project configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/gracepoint-merch/storefront-api/internal/domain"
	"github.com/gracepoint-merch/storefront-api/internal/repositories"
)

// OrderRepository stores orders in a mutex-guarded map.
type OrderRepository struct {
	mu       sync.Mutex
	orders   map[string]domain.Order
	byIntent map[string]string
}

// NewOrderRepository constructs an empty in-memory repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:   make(map[string]domain.Order),
		byIntent: make(map[string]string),
	}
}

// Insert implements repositories.OrderRepository.
func (r *OrderRepository) Insert(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if intentID := strings.TrimSpace(order.PaymentIntentID); intentID != "" {
		if _, exists := r.byIntent[intentID]; exists {
			return repositories.ErrPaymentIntentExists
		}
		r.byIntent[intentID] = order.ID
	}
	r.orders[order.ID] = order
	return nil
}

// FindByID implements repositories.OrderRepository.
func (r *OrderRepository) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, repositories.ErrOrderNotFound
	}
	return order, nil
}

// FindByPaymentIntentID implements repositories.OrderRepository.
func (r *OrderRepository) FindByPaymentIntentID(_ context.Context, intentID string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	orderID, ok := r.byIntent[strings.TrimSpace(intentID)]
	if !ok {
		return domain.Order{}, repositories.ErrOrderNotFound
	}
	return r.orders[orderID], nil
}

// List implements repositories.OrderRepository, newest orders first.
func (r *OrderRepository) List(_ context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	orders := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
	return orders, nil
}
