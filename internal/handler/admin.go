package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tessera-live/ticket-reservation/internal/service"
)

// AdminHandler serves operator endpoints: on-demand sweeps and the gate-side
// ticket lifecycle.
type AdminHandler struct {
	sweeper *service.SweepService
	tickets *service.TicketService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(sweeper *service.SweepService, tickets *service.TicketService) *AdminHandler {
	return &AdminHandler{sweeper: sweeper, tickets: tickets}
}

// Sweep handles POST /v1/admin/sweep: one on-demand sweep pass.
func (h *AdminHandler) Sweep(c echo.Context) error {
	result, err := h.sweeper.SweepOnce(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ScanTicket handles POST /v1/admin/tickets/:id/scan.  A second scan of the
// same ticket responds 409.
func (h *AdminHandler) ScanTicket(c echo.Context) error {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	td, err := h.tickets.Scan(c.Request().Context(), ticketID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, td)
}

// VoidTicket handles POST /v1/admin/tickets/:id/void.  Voiding returns the
// ticket's seat to general availability.
func (h *AdminHandler) VoidTicket(c echo.Context) error {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	td, err := h.tickets.Void(c.Request().Context(), ticketID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, td)
}
