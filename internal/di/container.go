// Package di assembles the service layer from its runtime collaborators.
// Production wiring lives in cmd/api; tests can supply in-memory stand-ins.
package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/gracepoint-merch/storefront-api/internal/payments"
	"github.com/gracepoint-merch/storefront-api/internal/platform/config"
	"github.com/gracepoint-merch/storefront-api/internal/repositories"
	"github.com/gracepoint-merch/storefront-api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Orders   services.OrderService
	Checkout services.CheckoutService
}

// Deps carries the external collaborators the services are built from.
type Deps struct {
	Orders   repositories.OrderRepository
	Payments payments.Provider
	Events   services.OrderEventPublisher
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config   config.Config
	Orders   repositories.OrderRepository
	Services Services
}

// NewContainer constructs the runtime dependencies.
func NewContainer(cfg config.Config, deps Deps) (*Container, error) {
	if deps.Orders == nil {
		return nil, errors.New("order repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("payment provider is required")
	}

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: deps.Orders,
		Events: deps.Events,
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build order service: %w", err)
	}

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Orders:   deps.Orders,
		Payments: deps.Payments,
		Currency: cfg.Stripe.Currency,
		Events:   deps.Events,
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build checkout service: %w", err)
	}

	return &Container{
		Config: cfg,
		Orders: deps.Orders,
		Services: Services{
			Orders:   orderSvc,
			Checkout: checkoutSvc,
		},
	}, nil
}
