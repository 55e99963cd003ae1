package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tessera-live/ticket-reservation/internal/model"
	"github.com/tessera-live/ticket-reservation/internal/repository"
)

// InventoryService serves the public, buyer-anonymous availability views.
type InventoryService struct {
	ledger  SeatLedger
	catalog Catalog
}

// NewInventoryService wires an InventoryService.
func NewInventoryService(ledger SeatLedger, catalog Catalog) *InventoryService {
	return &InventoryService{ledger: ledger, catalog: catalog}
}

// InventorySummary is the per-section availability breakdown for one event.
type InventorySummary struct {
	EventID   uint64                 `json:"event_id"`
	EventName string                 `json:"event_name"`
	Status    model.EventStatus      `json:"status"`
	Sections  []model.SectionSummary `json:"sections"`
}

// Summary aggregates seat counts and prices per section.  It never exposes
// who holds a seat.
func (s *InventoryService) Summary(ctx context.Context, eventID uint64) (*InventorySummary, error) {
	ev, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	sections, err := s.ledger.SectionSummary(ctx, ev.ID, ev.VenueID)
	if err != nil {
		return nil, err
	}
	return &InventorySummary{EventID: ev.ID, EventName: ev.Name, Status: ev.Status, Sections: sections}, nil
}

// SeatMap returns every seat of the event's venue with its current state,
// ordered for stable rendering.
func (s *InventoryService) SeatMap(ctx context.Context, eventID uint64) ([]model.SeatAvailability, error) {
	ev, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.ledger.SeatMap(ctx, ev.ID, ev.VenueID)
}

func (s *InventoryService) getEvent(ctx context.Context, eventID uint64) (*model.Event, error) {
	ev, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, fmt.Errorf("%w: event %d", ErrNotFound, eventID)
		}
		return nil, err
	}
	return ev, nil
}
