package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tessera-live/ticket-reservation/internal/service"
)

// ReservationHandler serves the hold lifecycle: placing holds, releasing
// them, and inspecting the buyer's open carts.
type ReservationHandler struct {
	holds *service.HoldService
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(holds *service.HoldService) *ReservationHandler {
	return &ReservationHandler{holds: holds}
}

// Reserve handles POST /v1/events/:id/reserve.  The body names seats either
// explicitly ("seat_ids") or as per-section quantities ("sections"); both
// may be combined.  Responds 201 with the cart, held seats and expiry, or
// 409 with retry detail when any seat or section cannot be satisfied.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req service.ReserveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	result, err := h.holds.Reserve(c.Request().Context(), userID, eventID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

// Release handles POST /v1/events/:id/release.  Seats not held by the
// caller's cart are skipped silently; the response reports how many were
// actually released.
func (h *ReservationHandler) Release(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		SeatIDs []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	released, err := h.holds.Release(c.Request().Context(), userID, eventID, body.SeatIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released_seats": released})
}

// Carts handles GET /v1/cart: the buyer's open carts with seats and prices.
func (h *ReservationHandler) Carts(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	views, err := h.holds.Carts(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"carts": views})
}
