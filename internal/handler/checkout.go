package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tessera-live/ticket-reservation/internal/service"
)

// CheckoutHandler settles carts into orders, directly or through a payment
// intent.
type CheckoutHandler struct {
	checkout *service.CheckoutService
	payments *service.PaymentService
}

// NewCheckoutHandler constructs a CheckoutHandler.  payments may be nil when
// the deployment runs without a payment processor.
func NewCheckoutHandler(checkout *service.CheckoutService, payments *service.PaymentService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, payments: payments}
}

// Checkout handles POST /v1/cart/:id/checkout: the direct settlement path
// with no external payment step.  Responds 201 with the order and tickets,
// 410 when the cart's hold window lapsed, 409 on any lost seat.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	cartID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cart id"})
	}
	result, err := h.checkout.Checkout(c.Request().Context(), userID, cartID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

// CreatePaymentIntent handles POST /v1/payment-intents.  Mints an intent for
// the caller's cart with the cart's identity bound into its metadata.
func (h *CheckoutHandler) CreatePaymentIntent(c echo.Context) error {
	if h.payments == nil {
		return c.JSON(http.StatusNotImplemented, echo.Map{"error": "payments disabled"})
	}
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		CartID uint64 `json:"cart_id"`
	}
	if err := c.Bind(&body); err != nil || body.CartID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cart_id is required"})
	}
	result, err := h.payments.Authorize(c.Request().Context(), userID, body.CartID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

// CompletePurchase handles POST /v1/purchase/complete.  Verifies the payment
// intent succeeded and is bound to the supplied cart, then runs checkout.
// A metadata mismatch responds 403 and is never retried into a sale.
func (h *CheckoutHandler) CompletePurchase(c echo.Context) error {
	if h.payments == nil {
		return c.JSON(http.StatusNotImplemented, echo.Map{"error": "payments disabled"})
	}
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		CartID          uint64 `json:"cart_id"`
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := c.Bind(&body); err != nil || body.CartID == 0 || body.PaymentIntentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cart_id and payment_intent_id are required"})
	}
	result, err := h.payments.Confirm(c.Request().Context(), userID, body.CartID, body.PaymentIntentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}
