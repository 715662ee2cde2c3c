package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gracepoint-merch/storefront-api/internal/domain"
	"github.com/gracepoint-merch/storefront-api/internal/platform/httpx"
	"github.com/gracepoint-merch/storefront-api/internal/services"
)

const maxPaymentRequestBody = 16 * 1024

// PaymentHandlers exposes the two-phase card payment endpoints.
type PaymentHandlers struct {
	checkout services.CheckoutService
}

// NewPaymentHandlers constructs a new PaymentHandlers instance.
func NewPaymentHandlers(checkout services.CheckoutService) *PaymentHandlers {
	return &PaymentHandlers{checkout: checkout}
}

// Routes registers the payment endpoints.
func (h *PaymentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/create-payment-intent", h.createPaymentIntent)
	r.Post("/confirm-payment", h.confirmPayment)
}

type createPaymentIntentRequest struct {
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	Items     domain.Cart `json:"items"`
}

type createPaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	Amount          int64  `json:"amount"`
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

type confirmPaymentResponse struct {
	Order   domain.Order `json:"order"`
	Message string       `json:"message"`
}

func (h *PaymentHandlers) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxPaymentRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req createPaymentIntentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	session, err := h.checkout.CreatePaymentIntent(ctx, services.CreatePaymentIntentCommand{
		Customer: domain.CustomerInfo{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
		},
		Items: req.Items,
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, createPaymentIntentResponse{
		ClientSecret:    session.ClientSecret,
		PaymentIntentID: session.PaymentIntentID,
		Amount:          session.AmountCents,
	})
}

func (h *PaymentHandlers) confirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxPaymentRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req confirmPaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	result, err := h.checkout.ConfirmPayment(ctx, services.ConfirmPaymentCommand{
		PaymentIntentID: req.PaymentIntentID,
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	if result.AlreadyConfirmed {
		writeJSONResponse(w, http.StatusOK, confirmPaymentResponse{
			Order:   result.Order,
			Message: "order already confirmed",
		})
		return
	}

	writeJSONResponse(w, http.StatusCreated, confirmPaymentResponse{
		Order:   result.Order,
		Message: "payment confirmed and order created",
	})
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, invalidInputError(err))
	case errors.Is(err, services.ErrCheckoutIntentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("intent_not_found", "payment intent not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutPaymentIncomplete):
		httpx.WriteError(ctx, w, paymentIncompleteError(err))
	case errors.Is(err, services.ErrCheckoutMetadataInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("metadata_invalid", "payment intent metadata could not be verified", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutAmountMismatch):
		httpx.WriteError(ctx, w, httpx.NewError("amount_mismatch", "charged amount does not match the order total", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutProcessorFailure):
		httpx.WriteError(ctx, w, httpx.NewError("processor_error", "payment processor request failed", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process payment", http.StatusInternalServerError))
	}
}

// Incomplete payments are an expected outcome (abandoned or still-processing
// intents), reported as 400 with the intent status so clients can retry the
// payment step.
func paymentIncompleteError(err error) httpx.Error {
	out := httpx.NewError("payment_incomplete", "payment has not completed", http.StatusBadRequest)
	var incomplete *services.PaymentIncompleteError
	if errors.As(err, &incomplete) {
		out = out.WithDetails(map[string]any{"payment_status": string(incomplete.Status)})
	}
	return out
}
