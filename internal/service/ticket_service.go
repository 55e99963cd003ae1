package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tessera-live/ticket-reservation/internal/logger"
	"github.com/tessera-live/ticket-reservation/internal/model"
	"github.com/tessera-live/ticket-reservation/internal/repository"
)

// TicketService serves purchase history and the gate-side ticket lifecycle.
type TicketService struct {
	orders OrderStore
	ledger SeatLedger
}

// NewTicketService wires a TicketService.
func NewTicketService(orders OrderStore, ledger SeatLedger) *TicketService {
	return &TicketService{orders: orders, ledger: ledger}
}

// Orders lists the buyer's purchase history, newest first.
func (s *TicketService) Orders(ctx context.Context, userID uint64) ([]model.OrderDetail, error) {
	return s.orders.ListByUser(ctx, userID)
}

// Ticket fetches one of the buyer's own tickets.  Tickets owned by other
// buyers are indistinguishable from missing ones.
func (s *TicketService) Ticket(ctx context.Context, userID, ticketID uint64) (*model.TicketDetail, error) {
	td, err := s.orders.GetTicketForUser(ctx, ticketID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, fmt.Errorf("%w: ticket %d", ErrNotFound, ticketID)
		}
		return nil, err
	}
	return td, nil
}

// Scan marks a ticket SCANNED at the gate.  A ticket that was already
// scanned or voided is rejected, so one barcode admits one person.
func (s *TicketService) Scan(ctx context.Context, ticketID uint64) (*model.TicketDetail, error) {
	td, err := s.orders.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, fmt.Errorf("%w: ticket %d", ErrNotFound, ticketID)
		}
		return nil, err
	}
	if td.Status == model.TicketVoided {
		return nil, fmt.Errorf("%w: ticket %d is voided", ErrBadRequest, ticketID)
	}
	ok, err := s.orders.SetTicketStatus(ctx, ticketID, model.TicketIssued, model.TicketScanned)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: ticket %d is %s", ErrAlreadyProcessed, ticketID, td.Status)
	}
	td.Status = model.TicketScanned
	logger.Get().Infow("ticket scanned", "ticket_id", ticketID, "event_id", td.EventID, "seat_id", td.SeatID)
	return td, nil
}

// Void cancels a ticket and returns its seat to general availability.  The
// ticket may be ISSUED or SCANNED; voiding twice is rejected.
func (s *TicketService) Void(ctx context.Context, ticketID uint64) (*model.TicketDetail, error) {
	td, err := s.orders.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, fmt.Errorf("%w: ticket %d", ErrNotFound, ticketID)
		}
		return nil, err
	}
	if td.Status == model.TicketVoided {
		return nil, fmt.Errorf("%w: ticket %d already voided", ErrAlreadyProcessed, ticketID)
	}

	err = s.ledger.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.orders.SetTicketStatus(ctx, ticketID, td.Status, model.TicketVoided)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: ticket %d already voided", ErrAlreadyProcessed, ticketID)
		}
		return s.ledger.MarkAvailable(ctx, td.EventID, td.SeatID)
	})
	if err != nil {
		return nil, err
	}
	td.Status = model.TicketVoided
	logger.Get().Infow("ticket voided", "ticket_id", ticketID, "event_id", td.EventID, "seat_id", td.SeatID)
	return td, nil
}
