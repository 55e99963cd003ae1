// Package router registers the API's HTTP routes.
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/tessera-live/ticket-reservation/internal/handler"
	"github.com/tessera-live/ticket-reservation/internal/middleware"
)

// Handlers bundles the handler set wired in main.
type Handlers struct {
	Inventory   *handler.InventoryHandler
	Reservation *handler.ReservationHandler
	Checkout    *handler.CheckoutHandler
	Orders      *handler.OrderHandler
	Admin       *handler.AdminHandler
}

// Register wires every route on the provided Echo instance.  Public
// inventory reads are open and response-cached; the hold/checkout/order
// surface requires a valid access token; operator endpoints additionally
// require the ADMIN role.  rdb may be nil, which disables the cache.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Public, buyer-anonymous reads.  Cached briefly: inventory is the
	// hottest read during an on-sale and a few seconds of staleness is
	// acceptable for a view that is advisory anyway.
	pub := e.Group("/v1/events")
	pub.Use(middleware.CacheGET(rdb, 5*time.Second))
	pub.GET("/:id/inventory", h.Inventory.Summary)
	pub.GET("/:id/seats", h.Inventory.SeatMap)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("CUSTOMER", "ADMIN"))

	auth.POST("/events/:id/reserve", h.Reservation.Reserve)
	auth.POST("/events/:id/release", h.Reservation.Release)
	auth.GET("/cart", h.Reservation.Carts)
	auth.POST("/cart/:id/checkout", h.Checkout.Checkout)
	auth.POST("/payment-intents", h.Checkout.CreatePaymentIntent)
	auth.POST("/purchase/complete", h.Checkout.CompletePurchase)
	auth.GET("/orders", h.Orders.Orders)
	auth.GET("/tickets/:id", h.Orders.Ticket)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("/sweep", h.Admin.Sweep)
	admin.POST("/tickets/:id/scan", h.Admin.ScanTicket)
	admin.POST("/tickets/:id/void", h.Admin.VoidTicket)
}
