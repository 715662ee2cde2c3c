package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gracepoint-merch/storefront-api/internal/domain"
	"github.com/gracepoint-merch/storefront-api/internal/repositories"
)

const orderEventCreated = "order.created"

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderPriceMismatch indicates the client-displayed total disagrees with
	// the server-computed total for the same cart.
	ErrOrderPriceMismatch = errors.New("order: price mismatch")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderUnavailable indicates order dependencies are currently unavailable.
	ErrOrderUnavailable = errors.New("order: unavailable")
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Catalog     domain.Catalog
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders  repositories.OrderRepository
	catalog domain.Catalog
	pricer  domain.Pricer
	clock   func() time.Time
	newID   func() string
	events  OrderEventPublisher
	logger  func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}

	catalog := deps.Catalog
	if len(catalog.Colors) == 0 {
		catalog = domain.DefaultCatalog()
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

	return &orderService{
		orders:  deps.Orders,
		catalog: catalog,
		pricer:  domain.NewPricer(catalog),
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  newID,
		events: deps.Events,
		logger: logger,
	}, nil
}

// SubmitOrder validates the deferred-order payload, recomputes the total, and
// persists the order as pending. The client-supplied total is only ever
// compared, never stored.
func (s *orderService) SubmitOrder(ctx context.Context, cmd SubmitOrderCommand) (domain.Order, error) {
	if s == nil || s.orders == nil {
		return domain.Order{}, ErrOrderUnavailable
	}

	customer := normalizeCustomer(cmd.Customer)
	if err := domain.ValidateCustomer(customer); err != nil {
		return domain.Order{}, fmt.Errorf("%w: %w", ErrOrderInvalidInput, err)
	}
	if err := s.catalog.ValidateCart(cmd.Items); err != nil {
		return domain.Order{}, fmt.Errorf("%w: %w", ErrOrderInvalidInput, err)
	}

	total := s.pricer.Total(cmd.Items)
	if cmd.TotalPrice != total {
		return domain.Order{}, fmt.Errorf("%w: submitted %d, computed %d", ErrOrderPriceMismatch, cmd.TotalPrice, total)
	}

	items, err := domain.EncodeItems(cmd.Items)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: %w", ErrOrderInvalidInput, err)
	}

	order := domain.Order{
		ID:            s.newID(),
		FirstName:     customer.FirstName,
		LastName:      customer.LastName,
		Email:         customer.Email,
		Phone:         customer.Phone,
		Items:         items,
		TotalPrice:    total,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     s.clock(),
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		s.logger(ctx, "order.persist_failed", map[string]any{
			"order_id": order.ID,
			"error":    err.Error(),
		})
		return domain.Order{}, fmt.Errorf("%w: %w", ErrOrderUnavailable, err)
	}

	s.publishCreated(ctx, order)
	return order, nil
}

// ListOrders returns all orders, newest first.
func (s *orderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	if s == nil || s.orders == nil {
		return nil, ErrOrderUnavailable
	}

	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOrderUnavailable, err)
	}
	return orders, nil
}

// GetOrder fetches a single order by id.
func (s *orderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if s == nil || s.orders == nil {
		return domain.Order{}, ErrOrderUnavailable
	}

	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return domain.Order{}, ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("%w: %w", ErrOrderUnavailable, err)
	}
	return order, nil
}

func (s *orderService) publishCreated(ctx context.Context, order domain.Order) {
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
		s.logger(ctx, "order.event_publish_failed", map[string]any{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

func normalizeCustomer(customer domain.CustomerInfo) domain.CustomerInfo {
	return domain.CustomerInfo{
		FirstName: strings.TrimSpace(customer.FirstName),
		LastName:  strings.TrimSpace(customer.LastName),
		Email:     strings.TrimSpace(customer.Email),
		Phone:     strings.TrimSpace(customer.Phone),
	}
}
