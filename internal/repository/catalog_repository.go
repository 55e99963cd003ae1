package repository

import (
	"context"
	"database/sql"

	"github.com/tessera-live/ticket-reservation/internal/model"
)

// CatalogRepo reads the event and seat catalog.  The catalog is owned by an
// upstream management service; this service never writes to it.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo returns a CatalogRepo bound to the provided database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// GetEvent fetches one event by id.  Returns ErrEventNotFound when the id is
// unknown.
func (r *CatalogRepo) GetEvent(ctx context.Context, eventID uint64) (*model.Event, error) {
	const q = `SELECT id, venue_id, name, starts_at, status FROM events WHERE id = ?`
	var e model.Event
	err := runner(ctx, r.db).QueryRowContext(ctx, q, eventID).
		Scan(&e.ID, &e.VenueID, &e.Name, &e.StartsAt, &e.Status)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// PricedSeats resolves seat identities and section prices for an event.  The
// result is keyed by seat id; seats that do not exist, belong to another
// venue, or sit in a section without pricing for the event are absent from
// the map, which is how callers detect invalid seat ids.
func (r *CatalogRepo) PricedSeats(ctx context.Context, eventID, venueID uint64, seatIDs []uint64) (map[uint64]model.PricedSeat, error) {
	if len(seatIDs) == 0 {
		return map[uint64]model.PricedSeat{}, nil
	}
	query := `SELECT s.id, s.row_label, s.seat_number, s.section, pt.price_cents, pt.tier_name
	          FROM seats s
	          JOIN section_pricing sp ON sp.event_id = ? AND sp.section = s.section
	          JOIN price_tiers pt ON pt.id = sp.price_tier_id
	          WHERE s.venue_id = ? AND s.id IN (` + seatPlaceholders(len(seatIDs)) + `)`
	args := make([]interface{}, 0, len(seatIDs)+2)
	args = append(args, eventID, venueID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	rows, err := runner(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	priced := make(map[uint64]model.PricedSeat, len(seatIDs))
	for rows.Next() {
		var ps model.PricedSeat
		if err := rows.Scan(&ps.SeatID, &ps.RowLabel, &ps.SeatNumber, &ps.Section, &ps.PriceCents, &ps.TierName); err != nil {
			return nil, err
		}
		priced[ps.SeatID] = ps
	}
	return priced, rows.Err()
}
