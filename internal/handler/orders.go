package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tessera-live/ticket-reservation/internal/service"
)

// OrderHandler serves the buyer's purchase history.
type OrderHandler struct {
	tickets *service.TicketService
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(tickets *service.TicketService) *OrderHandler {
	return &OrderHandler{tickets: tickets}
}

// Orders handles GET /v1/orders: the caller's orders with seats and
// tickets, newest first.
func (h *OrderHandler) Orders(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orders, err := h.tickets.Orders(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// Ticket handles GET /v1/tickets/:id.  Only the owner can see a ticket;
// anyone else gets 404.
func (h *OrderHandler) Ticket(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	td, err := h.tickets.Ticket(c.Request().Context(), userID, ticketID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, td)
}
