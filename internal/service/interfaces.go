// Package service implements the reservation engine's business rules on top
// of the repository layer.  Services accept narrow store interfaces so tests
// can substitute in-memory fakes for MySQL.
package service

import (
	"context"
	"time"

	"github.com/tessera-live/ticket-reservation/internal/model"
)

// SeatLedger is the authoritative per-(event, seat) sale state.  Mutators
// are compare-and-set: they report false instead of writing when the seat is
// not in the expected state.
type SeatLedger interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetStatus(ctx context.Context, eventID, seatID uint64) (model.SeatStatus, error)
	Statuses(ctx context.Context, eventID uint64, seatIDs []uint64) (map[uint64]model.SeatStatus, error)
	Hold(ctx context.Context, eventID, seatID, cartID uint64, expiresAt time.Time) (bool, error)
	Release(ctx context.Context, eventID, seatID, cartID uint64) (bool, error)
	ReleaseExpired(ctx context.Context, eventID, seatID, cartID uint64, now time.Time) (bool, error)
	MarkSold(ctx context.Context, eventID, seatID, cartID uint64) (bool, error)
	MarkAvailable(ctx context.Context, eventID, seatID uint64) error
	AvailableInSection(ctx context.Context, eventID, venueID uint64, section string, limit int) ([]uint64, error)
	ExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.SeatStatus, error)
	SectionSummary(ctx context.Context, eventID, venueID uint64) ([]model.SectionSummary, error)
	SeatMap(ctx context.Context, eventID, venueID uint64) ([]model.SeatAvailability, error)
}

// CartStore persists carts and their seat membership.
type CartStore interface {
	OpenCart(ctx context.Context, userID, eventID uint64) (*model.Cart, error)
	GetByID(ctx context.Context, cartID uint64) (*model.Cart, error)
	GetByIDForUpdate(ctx context.Context, cartID uint64) (*model.Cart, error)
	Create(ctx context.Context, c *model.Cart) error
	SetExpiry(ctx context.Context, cartID uint64, expiresAt time.Time) error
	MarkExpired(ctx context.Context, cartID uint64) (bool, error)
	MarkConverted(ctx context.Context, cartID uint64) (bool, error)
	AddSeats(ctx context.Context, cartID uint64, seatIDs []uint64) error
	RemoveSeat(ctx context.Context, cartID, seatID uint64) error
	ClearSeats(ctx context.Context, cartID uint64) error
	SeatIDs(ctx context.Context, cartID uint64) ([]uint64, error)
	ListOpenByUser(ctx context.Context, userID uint64) ([]model.Cart, error)
}

// Catalog reads events, seats and pricing.
type Catalog interface {
	GetEvent(ctx context.Context, eventID uint64) (*model.Event, error)
	PricedSeats(ctx context.Context, eventID, venueID uint64, seatIDs []uint64) (map[uint64]model.PricedSeat, error)
}

// OrderStore persists orders, line items and tickets.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	AddItem(ctx context.Context, it *model.OrderItem) error
	AddTicket(ctx context.Context, t *model.Ticket) error
	ListByUser(ctx context.Context, userID uint64) ([]model.OrderDetail, error)
	GetTicketForUser(ctx context.Context, ticketID, userID uint64) (*model.TicketDetail, error)
	GetTicket(ctx context.Context, ticketID uint64) (*model.TicketDetail, error)
	SetTicketStatus(ctx context.Context, ticketID uint64, from, to model.TicketStatus) (bool, error)
}
