package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tessera-live/ticket-reservation/internal/clock"
	"github.com/tessera-live/ticket-reservation/internal/logger"
	"github.com/tessera-live/ticket-reservation/internal/model"
)

// OrderNotifier broadcasts completed orders to interested consumers.  The
// notification is best-effort and happens after the purchase has committed.
type OrderNotifier interface {
	OrderCompleted(ctx context.Context, orderID, userID, eventID uint64, totalCents uint32, seatIDs []uint64) error
}

// CheckoutService converts an open cart's holds into a permanent order.
// Order, items, tickets, SOLD transitions and the cart's conversion commit
// as one unit; any failure leaves the cart and ledger untouched.
type CheckoutService struct {
	ledger   SeatLedger
	carts    CartStore
	catalog  Catalog
	orders   OrderStore
	notifier OrderNotifier // optional
	clk      clock.Clock
}

// NewCheckoutService wires a CheckoutService.  notifier may be nil.
func NewCheckoutService(ledger SeatLedger, carts CartStore, catalog Catalog, orders OrderStore, notifier OrderNotifier, clk clock.Clock) *CheckoutService {
	return &CheckoutService{ledger: ledger, carts: carts, catalog: catalog, orders: orders, notifier: notifier, clk: clk}
}

// IssuedTicket is one ticket of a completed checkout.
type IssuedTicket struct {
	TicketID   uint64 `json:"ticket_id"`
	SeatID     uint64 `json:"seat_id"`
	RowLabel   string `json:"row_label"`
	SeatNumber string `json:"seat_number"`
	Section    string `json:"section"`
	PriceCents uint32 `json:"price_cents"`
	Barcode    string `json:"barcode"`
}

// CheckoutResult is the committed purchase.
type CheckoutResult struct {
	OrderID    uint64         `json:"order_id"`
	EventID    uint64         `json:"event_id"`
	TotalCents uint32         `json:"total_cents"`
	Tickets    []IssuedTicket `json:"tickets"`
}

// Checkout settles the buyer's cart.  The cart must be OPEN, owned by the
// buyer and unexpired, and every member seat must still be HELD by it.
// Retrying a cart that already converted returns ErrAlreadyProcessed, never
// a second order.  A lapsed cart returns ErrGone and is eagerly expired.
func (s *CheckoutService) Checkout(ctx context.Context, userID, cartID uint64) (*CheckoutResult, error) {
	cart, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	// A cart owned by someone else looks exactly like a missing one.
	if cart == nil || cart.UserID != userID {
		return nil, fmt.Errorf("%w: cart %d", ErrNotFound, cartID)
	}
	switch cart.Status {
	case model.CartConverted:
		return nil, fmt.Errorf("%w: cart %d already converted", ErrAlreadyProcessed, cartID)
	case model.CartExpired:
		return nil, fmt.Errorf("%w: cart %d expired", ErrGone, cartID)
	}

	now := s.clk.Now()
	if cart.Expired(now) {
		// The sweeper would get here eventually; expiring now keeps the
		// buyer's next reserve from colliding with their own dead holds.
		if err := s.expireCart(ctx, cart); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: cart %d expired", ErrGone, cartID)
	}

	ev, err := s.catalog.GetEvent(ctx, cart.EventID)
	if err != nil {
		return nil, err
	}

	var result *CheckoutResult
	err = s.ledger.WithTx(ctx, func(ctx context.Context) error {
		// Re-read under lock; a concurrent checkout or sweep may have
		// settled the cart since the check above.
		locked, err := s.carts.GetByIDForUpdate(ctx, cart.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return fmt.Errorf("%w: cart %d", ErrNotFound, cart.ID)
		}
		switch locked.Status {
		case model.CartConverted:
			return fmt.Errorf("%w: cart %d already converted", ErrAlreadyProcessed, cart.ID)
		case model.CartExpired:
			return fmt.Errorf("%w: cart %d expired", ErrGone, cart.ID)
		}

		seatIDs, err := s.carts.SeatIDs(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(seatIDs) == 0 {
			return fmt.Errorf("%w: cart %d has no seats", ErrConflict, cart.ID)
		}

		// Prices are re-resolved here; the checkout-time price wins if the
		// catalog changed since the hold was placed.
		priced, err := s.catalog.PricedSeats(ctx, cart.EventID, ev.VenueID, seatIDs)
		if err != nil {
			return err
		}

		statuses, err := s.ledger.Statuses(ctx, cart.EventID, seatIDs)
		if err != nil {
			return err
		}
		var lost []uint64
		for _, id := range seatIDs {
			st, ok := statuses[id]
			if !ok || st.State != model.SeatHeld || st.HeldByCartID == nil || *st.HeldByCartID != cart.ID {
				lost = append(lost, id)
			}
		}
		if len(lost) > 0 {
			return &ConflictError{UnavailableSeatIDs: lost}
		}

		order := &model.Order{UserID: cart.UserID, EventID: cart.EventID, Status: model.OrderPaid}
		for _, id := range seatIDs {
			order.TotalCents += priced[id].PriceCents
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}

		tickets := make([]IssuedTicket, 0, len(seatIDs))
		for _, id := range seatIDs {
			ps := priced[id]
			item := &model.OrderItem{OrderID: order.ID, SeatID: id, UnitPriceCents: ps.PriceCents, LineTotalCents: ps.PriceCents}
			if err := s.orders.AddItem(ctx, item); err != nil {
				return err
			}
			ticket := &model.Ticket{OrderItemID: item.ID, Barcode: newBarcode(), Status: model.TicketIssued}
			if err := s.orders.AddTicket(ctx, ticket); err != nil {
				return err
			}
			ok, err := s.ledger.MarkSold(ctx, cart.EventID, id, cart.ID)
			if err != nil {
				return err
			}
			if !ok {
				return &ConflictError{UnavailableSeatIDs: []uint64{id}}
			}
			tickets = append(tickets, IssuedTicket{
				TicketID: ticket.ID, SeatID: id, RowLabel: ps.RowLabel, SeatNumber: ps.SeatNumber,
				Section: ps.Section, PriceCents: ps.PriceCents, Barcode: ticket.Barcode,
			})
		}

		converted, err := s.carts.MarkConverted(ctx, cart.ID)
		if err != nil {
			return err
		}
		if !converted {
			return fmt.Errorf("%w: cart %d already converted", ErrAlreadyProcessed, cart.ID)
		}
		if err := s.carts.ClearSeats(ctx, cart.ID); err != nil {
			return err
		}

		result = &CheckoutResult{OrderID: order.ID, EventID: cart.EventID, TotalCents: order.TotalCents, Tickets: tickets}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("checkout completed",
		"user_id", userID, "cart_id", cartID, "order_id", result.OrderID,
		"total_cents", result.TotalCents, "tickets", len(result.Tickets))

	if s.notifier != nil {
		seatIDs := make([]uint64, 0, len(result.Tickets))
		for _, t := range result.Tickets {
			seatIDs = append(seatIDs, t.SeatID)
		}
		if err := s.notifier.OrderCompleted(ctx, result.OrderID, userID, result.EventID, result.TotalCents, seatIDs); err != nil {
			logger.Get().Warnw("order notification failed", "order_id", result.OrderID, "error", err)
		}
	}
	return result, nil
}

// expireCart settles a lapsed cart: releases its seats, marks it EXPIRED and
// clears its membership, all in one transaction.  Safe to race with the
// sweeper; whoever wins the conditional updates does the work.
func (s *CheckoutService) expireCart(ctx context.Context, cart *model.Cart) error {
	return s.ledger.WithTx(ctx, func(ctx context.Context) error {
		locked, err := s.carts.GetByIDForUpdate(ctx, cart.ID)
		if err != nil {
			return err
		}
		if locked == nil || locked.Status != model.CartOpen {
			return nil
		}
		seatIDs, err := s.carts.SeatIDs(ctx, cart.ID)
		if err != nil {
			return err
		}
		for _, id := range seatIDs {
			if _, err := s.ledger.Release(ctx, cart.EventID, id, cart.ID); err != nil {
				return err
			}
		}
		if _, err := s.carts.MarkExpired(ctx, cart.ID); err != nil {
			return err
		}
		return s.carts.ClearSeats(ctx, cart.ID)
	})
}

// newBarcode mints a scannable ticket code: 16 uppercase hex characters
// drawn from a random UUID.  Uniqueness is enforced by the store.
func newBarcode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:16])
}
