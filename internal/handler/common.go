// Package handler exposes the reservation engine over HTTP.  Handlers bind
// and validate the wire format, delegate to the service layer, and map
// service errors onto HTTP statuses; no business rules live here.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tessera-live/ticket-reservation/internal/logger"
	"github.com/tessera-live/ticket-reservation/internal/service"
)

// getUserID extracts the authenticated user id placed in the context by the
// JWT middleware.  Claims decode as float64 or string depending on how the
// token was minted, so all the plausible shapes are accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// respondError maps a service error to its HTTP status.  ConflictError
// carries retry detail (which seats were lost, or which section fell short)
// that buyers need, so it is surfaced in the body.
func respondError(c echo.Context, err error) error {
	var conflict *service.ConflictError
	if errors.As(err, &conflict) {
		body := echo.Map{"error": conflict.Error()}
		if len(conflict.UnavailableSeatIDs) > 0 {
			body["unavailable_seat_ids"] = conflict.UnavailableSeatIDs
		}
		if conflict.Section != "" {
			body["section"] = conflict.Section
			body["requested"] = conflict.Requested
			body["available"] = conflict.Available
		}
		return c.JSON(http.StatusConflict, body)
	}

	switch {
	case errors.Is(err, service.ErrBadRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyProcessed), errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrGone):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})
	}
	logger.Get().Errorw("internal error", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
