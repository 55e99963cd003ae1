package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tessera-live/ticket-reservation/internal/clock"
	"github.com/tessera-live/ticket-reservation/internal/logger"
	"github.com/tessera-live/ticket-reservation/internal/model"
	"github.com/tessera-live/ticket-reservation/internal/repository"
)

// HoldService places and releases seat holds.  A successful reserve leaves
// every requested seat HELD by the buyer's open cart with a fresh expiry; a
// failed reserve leaves the ledger exactly as it was.
type HoldService struct {
	ledger  SeatLedger
	carts   CartStore
	catalog Catalog
	clk     clock.Clock
	holdTTL time.Duration
}

// NewHoldService wires a HoldService.
func NewHoldService(ledger SeatLedger, carts CartStore, catalog Catalog, clk clock.Clock, holdTTL time.Duration) *HoldService {
	return &HoldService{ledger: ledger, carts: carts, catalog: catalog, clk: clk, holdTTL: holdTTL}
}

// ReserveRequest names seats either explicitly or as per-section quantities.
// The two forms may be combined in one call.
type ReserveRequest struct {
	SeatIDs  []uint64       `json:"seat_ids"`
	Sections map[string]int `json:"sections"`
}

// ReserveResult is the outcome of a successful reserve: the cart now holding
// the seats, the seats with their prices, and the shared hold expiry.
type ReserveResult struct {
	CartID    uint64             `json:"cart_id"`
	Seats     []model.PricedSeat `json:"seats"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// Reserve holds the requested seats for the buyer.  All-or-nothing: when any
// seat cannot be held, or any section has fewer available seats than asked
// for, the call returns a ConflictError and no state changes.  Reserving
// into an existing open cart renews the expiry of every seat it holds.
func (s *HoldService) Reserve(ctx context.Context, userID, eventID uint64, req ReserveRequest) (*ReserveResult, error) {
	if len(req.SeatIDs) == 0 && len(req.Sections) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", ErrBadRequest)
	}
	for section, qty := range req.Sections {
		if qty <= 0 {
			return nil, fmt.Errorf("%w: invalid quantity %d for section %q", ErrBadRequest, qty, section)
		}
	}

	ev, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, fmt.Errorf("%w: event %d", ErrNotFound, eventID)
		}
		return nil, err
	}
	if !ev.Sellable() {
		return nil, fmt.Errorf("%w: event %d is not on sale", ErrBadRequest, eventID)
	}

	now := s.clk.Now()
	expiresAt := now.Add(s.holdTTL)

	var result *ReserveResult
	err = s.ledger.WithTx(ctx, func(ctx context.Context) error {
		cart, err := s.lockOrCreateCart(ctx, userID, eventID, expiresAt)
		if err != nil {
			return err
		}

		seatIDs, err := s.resolveSeats(ctx, ev, req)
		if err != nil {
			return err
		}

		priced, err := s.catalog.PricedSeats(ctx, eventID, ev.VenueID, seatIDs)
		if err != nil {
			return err
		}
		for _, id := range seatIDs {
			if _, ok := priced[id]; !ok {
				return fmt.Errorf("%w: unknown seat %d", ErrBadRequest, id)
			}
		}

		// Availability pre-check so a losing call can name every seat it
		// lost, not just the first.
		statuses, err := s.ledger.Statuses(ctx, eventID, seatIDs)
		if err != nil {
			return err
		}
		var unavailable []uint64
		for _, id := range seatIDs {
			st, ok := statuses[id]
			if !ok || st.State == model.SeatAvailable {
				continue
			}
			if st.State == model.SeatHeld && st.HeldByCartID != nil && *st.HeldByCartID == cart.ID {
				continue
			}
			unavailable = append(unavailable, id)
		}
		if len(unavailable) > 0 {
			return &ConflictError{UnavailableSeatIDs: unavailable}
		}

		// The pre-check can go stale before the write lands, so every hold
		// is re-verified by its own compare-and-set.  A lost race rolls the
		// whole batch back.
		for _, id := range seatIDs {
			ok, err := s.ledger.Hold(ctx, eventID, id, cart.ID, expiresAt)
			if err != nil {
				return err
			}
			if !ok {
				return &ConflictError{UnavailableSeatIDs: []uint64{id}}
			}
		}

		if err := s.carts.SetExpiry(ctx, cart.ID, expiresAt); err != nil {
			return err
		}
		if err := s.renewExistingHolds(ctx, eventID, cart.ID, seatIDs, expiresAt); err != nil {
			return err
		}
		if err := s.carts.AddSeats(ctx, cart.ID, seatIDs); err != nil {
			return err
		}

		seats := make([]model.PricedSeat, 0, len(seatIDs))
		for _, id := range seatIDs {
			seats = append(seats, priced[id])
		}
		result = &ReserveResult{CartID: cart.ID, Seats: seats, ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Get().Infow("seats reserved",
		"user_id", userID, "event_id", eventID, "cart_id", result.CartID,
		"seats", len(result.Seats), "expires_at", result.ExpiresAt)
	return result, nil
}

// lockOrCreateCart returns the buyer's OPEN cart for the event with its row
// locked, creating one when none exists.  Must run inside a transaction.
func (s *HoldService) lockOrCreateCart(ctx context.Context, userID, eventID uint64, expiresAt time.Time) (*model.Cart, error) {
	cart, err := s.carts.OpenCart(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		// Re-read under lock; the sweeper may have expired the cart between
		// the lookup and here.
		cart, err = s.carts.GetByIDForUpdate(ctx, cart.ID)
		if err != nil {
			return nil, err
		}
		if cart != nil && cart.Status == model.CartOpen {
			return cart, nil
		}
	}
	cart = &model.Cart{UserID: userID, EventID: eventID, ExpiresAt: expiresAt}
	err = s.carts.Create(ctx, cart)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrCartExists) {
		return nil, err
	}
	// Lost an insert race with a concurrent reserve by the same buyer: the
	// unique key rejected the second OPEN cart.  Join the winner instead.
	cart, err = s.carts.OpenCart(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		cart, err = s.carts.GetByIDForUpdate(ctx, cart.ID)
		if err != nil {
			return nil, err
		}
		if cart != nil && cart.Status == model.CartOpen {
			return cart, nil
		}
	}
	return nil, fmt.Errorf("%w: cart contention, retry", ErrConflict)
}

// resolveSeats expands per-section quantity requests into concrete seat ids
// and merges them with the explicitly requested ones.  Sections are walked
// in name order and seats picked ascending by id, so the same inventory
// always yields the same selection.
func (s *HoldService) resolveSeats(ctx context.Context, ev *model.Event, req ReserveRequest) ([]uint64, error) {
	seen := make(map[uint64]bool, len(req.SeatIDs))
	seatIDs := make([]uint64, 0, len(req.SeatIDs))
	for _, id := range req.SeatIDs {
		if !seen[id] {
			seen[id] = true
			seatIDs = append(seatIDs, id)
		}
	}

	sections := make([]string, 0, len(req.Sections))
	for section := range req.Sections {
		sections = append(sections, section)
	}
	sort.Strings(sections)
	for _, section := range sections {
		qty := req.Sections[section]
		ids, err := s.ledger.AvailableInSection(ctx, ev.ID, ev.VenueID, section, qty)
		if err != nil {
			return nil, err
		}
		if len(ids) < qty {
			return nil, &ConflictError{Section: section, Requested: qty, Available: len(ids)}
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				seatIDs = append(seatIDs, id)
			}
		}
	}
	sort.Slice(seatIDs, func(i, j int) bool { return seatIDs[i] < seatIDs[j] })
	return seatIDs, nil
}

// renewExistingHolds pushes the cart's previously held seats out to the new
// expiry so a cart never contains seats with mixed deadlines.
func (s *HoldService) renewExistingHolds(ctx context.Context, eventID, cartID uint64, justHeld []uint64, expiresAt time.Time) error {
	held := make(map[uint64]bool, len(justHeld))
	for _, id := range justHeld {
		held[id] = true
	}
	existing, err := s.carts.SeatIDs(ctx, cartID)
	if err != nil {
		return err
	}
	for _, id := range existing {
		if held[id] {
			continue
		}
		if _, err := s.ledger.Hold(ctx, eventID, id, cartID, expiresAt); err != nil {
			return err
		}
	}
	return nil
}

// Release returns the named seats to AVAILABLE when they are held by the
// buyer's own open cart.  Seats held by someone else, already released or
// unknown are skipped without error.  A cart emptied by the release is
// expired.  Returns the ids of the seats actually released, so the caller
// can tell which requested seats were skipped.
func (s *HoldService) Release(ctx context.Context, userID, eventID uint64, seatIDs []uint64) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("%w: empty seat list", ErrBadRequest)
	}
	if _, err := s.catalog.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, fmt.Errorf("%w: event %d", ErrNotFound, eventID)
		}
		return nil, err
	}

	released := make([]uint64, 0, len(seatIDs))
	err := s.ledger.WithTx(ctx, func(ctx context.Context) error {
		cart, err := s.carts.OpenCart(ctx, userID, eventID)
		if err != nil {
			return err
		}
		if cart == nil {
			return nil
		}
		cart, err = s.carts.GetByIDForUpdate(ctx, cart.ID)
		if err != nil {
			return err
		}
		if cart == nil || cart.Status != model.CartOpen {
			return nil
		}
		for _, id := range seatIDs {
			ok, err := s.ledger.Release(ctx, eventID, id, cart.ID)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := s.carts.RemoveSeat(ctx, cart.ID, id); err != nil {
				return err
			}
			released = append(released, id)
		}
		remaining, err := s.carts.SeatIDs(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			if _, err := s.carts.MarkExpired(ctx, cart.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(released) > 0 {
		logger.Get().Infow("seats released", "user_id", userID, "event_id", eventID, "seat_ids", released)
	}
	return released, nil
}

// CartView is a buyer's open cart with its priced seats.
type CartView struct {
	CartID     uint64             `json:"cart_id"`
	EventID    uint64             `json:"event_id"`
	EventName  string             `json:"event_name"`
	Status     model.CartStatus   `json:"status"`
	ExpiresAt  time.Time          `json:"expires_at"`
	Seats      []model.PricedSeat `json:"seats"`
	TotalCents uint32             `json:"total_cents"`
}

// Carts lists the buyer's open carts with their seats and prices.
func (s *HoldService) Carts(ctx context.Context, userID uint64) ([]CartView, error) {
	carts, err := s.carts.ListOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]CartView, 0, len(carts))
	for _, c := range carts {
		ev, err := s.catalog.GetEvent(ctx, c.EventID)
		if err != nil {
			return nil, err
		}
		seatIDs, err := s.carts.SeatIDs(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		priced, err := s.catalog.PricedSeats(ctx, c.EventID, ev.VenueID, seatIDs)
		if err != nil {
			return nil, err
		}
		view := CartView{CartID: c.ID, EventID: c.EventID, EventName: ev.Name, Status: c.Status, ExpiresAt: c.ExpiresAt, Seats: make([]model.PricedSeat, 0, len(seatIDs))}
		for _, id := range seatIDs {
			ps, ok := priced[id]
			if !ok {
				continue
			}
			view.Seats = append(view.Seats, ps)
			view.TotalCents += ps.PriceCents
		}
		views = append(views, view)
	}
	return views, nil
}
