package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tessera-live/ticket-reservation/internal/service"
)

// InventoryHandler serves the public availability views.
type InventoryHandler struct {
	inventory *service.InventoryService
}

// NewInventoryHandler constructs an InventoryHandler.
func NewInventoryHandler(inventory *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// Summary handles GET /v1/events/:id/inventory: per-section totals and
// prices without any holder identities.
func (h *InventoryHandler) Summary(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	summary, err := h.inventory.Summary(c.Request().Context(), eventID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// SeatMap handles GET /v1/events/:id/seats: every seat with its current
// state, ordered for rendering.
func (h *InventoryHandler) SeatMap(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	seats, err := h.inventory.SeatMap(c.Request().Context(), eventID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": seats})
}
