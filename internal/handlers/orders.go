package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gracepoint-merch/storefront-api/internal/domain"
	"github.com/gracepoint-merch/storefront-api/internal/platform/httpx"
	"github.com/gracepoint-merch/storefront-api/internal/platform/pagination"
	"github.com/gracepoint-merch/storefront-api/internal/services"
)

const (
	maxOrderRequestBody = 16 * 1024

	// nextPageTokenHeader carries the continuation token so the response body
	// stays a bare order array.
	nextPageTokenHeader = "X-Next-Page-Token"
)

// OrderHandlers exposes deferred-order submission and order reads.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.submitOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
}

type submitOrderRequest struct {
	FirstName  string      `json:"firstName"`
	LastName   string      `json:"lastName"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
	Items      domain.Cart `json:"items"`
	TotalPrice int64       `json:"totalPrice"`
}

func (h *OrderHandlers) submitOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxOrderRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req submitOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	order, err := h.orders.SubmitOrder(ctx, services.SubmitOrderCommand{
		Customer: domain.CustomerInfo{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
		},
		Items:      req.Items,
		TotalPrice: req.TotalPrice,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, order)
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	params, err := pagination.ParseParams(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_pagination", err.Error(), http.StatusBadRequest))
		return
	}

	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	page, next := pagination.Apply(orders, params)
	if next != "" {
		w.Header().Set(nextPageTokenHeader, next)
	}

	writeJSONResponse(w, http.StatusOK, page)
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, order)
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderPriceMismatch):
		httpx.WriteError(ctx, w, httpx.NewError("price_mismatch", "submitted total does not match the computed total", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, invalidInputError(err))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process order", http.StatusInternalServerError))
	}
}

func invalidInputError(err error) httpx.Error {
	out := httpx.NewError("invalid_request", "invalid order payload", http.StatusBadRequest)
	var validationErr domain.ValidationError
	if errors.As(err, &validationErr) {
		out = out.WithDetails(map[string]any{
			"field":  validationErr.Field,
			"reason": validationErr.Reason,
		})
	}
	return out
}
