package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/tessera-live/ticket-reservation/internal/model"
)

// LedgerRepo is the single source of truth for per-(event, seat) sale state.
// Every mutation is a conditional UPDATE (or a keyed INSERT) whose affected
// row count decides success, so two actors racing on the same seat can never
// both win.  The representation is sparse: a seat with no row is AVAILABLE.
// All timestamps are UTC.
type LedgerRepo struct {
	db *sql.DB
}

// NewLedgerRepo returns a LedgerRepo bound to the provided database.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// WithTx runs fn inside a transaction shared with any other repository bound
// to the same database.
func (r *LedgerRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

// GetStatus returns the current sale state of one seat for one event.  A
// missing ledger row is reported as AVAILABLE.
func (r *LedgerRepo) GetStatus(ctx context.Context, eventID, seatID uint64) (model.SeatStatus, error) {
	const q = `SELECT status, held_by_cart_id, hold_expires_at, updated_at
	           FROM event_seat_status WHERE event_id = ? AND seat_id = ?`
	st := model.SeatStatus{EventID: eventID, SeatID: seatID, State: model.SeatAvailable}
	var (
		state   string
		cartID  sql.NullInt64
		expires sql.NullTime
		updated time.Time
	)
	err := runner(ctx, r.db).QueryRowContext(ctx, q, eventID, seatID).
		Scan(&state, &cartID, &expires, &updated)
	if err == sql.ErrNoRows {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	st.State = model.SeatState(state)
	st.UpdatedAt = updated
	if cartID.Valid {
		id := uint64(cartID.Int64)
		st.HeldByCartID = &id
	}
	if expires.Valid {
		t := expires.Time
		st.HoldExpiresAt = &t
	}
	return st, nil
}

// Statuses loads ledger rows for the given seats in one query.  Seats
// without a row are absent from the map and should be treated as AVAILABLE.
func (r *LedgerRepo) Statuses(ctx context.Context, eventID uint64, seatIDs []uint64) (map[uint64]model.SeatStatus, error) {
	out := make(map[uint64]model.SeatStatus, len(seatIDs))
	if len(seatIDs) == 0 {
		return out, nil
	}
	placeholders := make([]string, 0, len(seatIDs))
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, eventID)
	for _, id := range seatIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	query := `SELECT seat_id, status, held_by_cart_id, hold_expires_at, updated_at
	          FROM event_seat_status
	          WHERE event_id = ? AND seat_id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := runner(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			st      model.SeatStatus
			state   string
			cartID  sql.NullInt64
			expires sql.NullTime
		)
		if err := rows.Scan(&st.SeatID, &state, &cartID, &expires, &st.UpdatedAt); err != nil {
			return nil, err
		}
		st.EventID = eventID
		st.State = model.SeatState(state)
		if cartID.Valid {
			id := uint64(cartID.Int64)
			st.HeldByCartID = &id
		}
		if expires.Valid {
			t := expires.Time
			st.HoldExpiresAt = &t
		}
		out[st.SeatID] = st
	}
	return out, rows.Err()
}

// Hold transitions a seat to HELD by the given cart with the given expiry.
// It succeeds when the seat is AVAILABLE (including absent from the ledger)
// or already HELD by this same cart, in which case the expiry is renewed.
// It returns false when another cart holds the seat or the seat is SOLD.
func (r *LedgerRepo) Hold(ctx context.Context, eventID, seatID, cartID uint64, expiresAt time.Time) (bool, error) {
	const upd = `UPDATE event_seat_status
	             SET status = 'HELD', held_by_cart_id = ?, hold_expires_at = ?
	             WHERE event_id = ? AND seat_id = ?
	               AND (status = 'AVAILABLE' OR (status = 'HELD' AND held_by_cart_id = ?))`
	res, err := runner(ctx, r.db).ExecContext(ctx, upd, cartID, expiresAt.UTC(), eventID, seatID, cartID)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, err
	} else if n > 0 {
		return true, nil
	}
	// No matching row: either the seat has never been touched for this
	// event, or it is held/sold.  Try to materialize the row; a duplicate
	// key means we lost the race.
	const ins = `INSERT INTO event_seat_status (event_id, seat_id, status, held_by_cart_id, hold_expires_at)
	             VALUES (?, ?, 'HELD', ?, ?)`
	if _, err := runner(ctx, r.db).ExecContext(ctx, ins, eventID, seatID, cartID, expiresAt.UTC()); err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Release transitions a seat back to AVAILABLE, but only when it is HELD by
// the given cart.  Seats held by someone else (or not held) are untouched
// and reported as false.
func (r *LedgerRepo) Release(ctx context.Context, eventID, seatID, cartID uint64) (bool, error) {
	const q = `UPDATE event_seat_status
	           SET status = 'AVAILABLE', held_by_cart_id = NULL, hold_expires_at = NULL
	           WHERE event_id = ? AND seat_id = ? AND status = 'HELD' AND held_by_cart_id = ?`
	res, err := runner(ctx, r.db).ExecContext(ctx, q, eventID, seatID, cartID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReleaseExpired is the sweeper's compare-and-set: it releases a seat only
// when it is still HELD by the given cart and its expiry has passed by the
// time the statement runs.  A hold renewed or converted after the sweep
// listed it will not match and is left alone.
func (r *LedgerRepo) ReleaseExpired(ctx context.Context, eventID, seatID, cartID uint64, now time.Time) (bool, error) {
	const q = `UPDATE event_seat_status
	           SET status = 'AVAILABLE', held_by_cart_id = NULL, hold_expires_at = NULL
	           WHERE event_id = ? AND seat_id = ? AND status = 'HELD'
	             AND held_by_cart_id = ? AND hold_expires_at <= ?`
	res, err := runner(ctx, r.db).ExecContext(ctx, q, eventID, seatID, cartID, now.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkSold transitions a seat from HELD by the given cart to SOLD, clearing
// the hold columns.  Returns false when the hold is gone.
func (r *LedgerRepo) MarkSold(ctx context.Context, eventID, seatID, cartID uint64) (bool, error) {
	const q = `UPDATE event_seat_status
	           SET status = 'SOLD', held_by_cart_id = NULL, hold_expires_at = NULL
	           WHERE event_id = ? AND seat_id = ? AND status = 'HELD' AND held_by_cart_id = ?`
	res, err := runner(ctx, r.db).ExecContext(ctx, q, eventID, seatID, cartID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkAvailable unconditionally returns a SOLD seat to AVAILABLE.  Used by
// the ticket void flow after the corresponding ticket has been voided.
func (r *LedgerRepo) MarkAvailable(ctx context.Context, eventID, seatID uint64) error {
	const q = `UPDATE event_seat_status
	           SET status = 'AVAILABLE', held_by_cart_id = NULL, hold_expires_at = NULL
	           WHERE event_id = ? AND seat_id = ? AND status = 'SOLD'`
	_, err := runner(ctx, r.db).ExecContext(ctx, q, eventID, seatID)
	return err
}

// AvailableInSection selects up to limit currently-AVAILABLE seats in a
// section, in ascending seat id order so that selection is deterministic.
func (r *LedgerRepo) AvailableInSection(ctx context.Context, eventID, venueID uint64, section string, limit int) ([]uint64, error) {
	const q = `SELECT s.id
	           FROM seats s
	           LEFT JOIN event_seat_status ess ON ess.seat_id = s.id AND ess.event_id = ?
	           WHERE s.venue_id = ? AND s.section = ?
	             AND COALESCE(ess.status, 'AVAILABLE') = 'AVAILABLE'
	           ORDER BY s.id ASC
	           LIMIT ?`
	rows, err := runner(ctx, r.db).QueryContext(ctx, q, eventID, venueID, section, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ExpiredHolds lists up to limit HELD rows whose expiry has passed.  The
// sweeper uses the result as candidates only; the actual release re-checks
// each row with ReleaseExpired.
func (r *LedgerRepo) ExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.SeatStatus, error) {
	const q = `SELECT event_id, seat_id, held_by_cart_id, hold_expires_at, updated_at
	           FROM event_seat_status
	           WHERE status = 'HELD' AND hold_expires_at <= ?
	           LIMIT ?`
	rows, err := runner(ctx, r.db).QueryContext(ctx, q, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatStatus
	for rows.Next() {
		var (
			st      model.SeatStatus
			cartID  sql.NullInt64
			expires sql.NullTime
		)
		if err := rows.Scan(&st.EventID, &st.SeatID, &cartID, &expires, &st.UpdatedAt); err != nil {
			return nil, err
		}
		st.State = model.SeatHeld
		if cartID.Valid {
			id := uint64(cartID.Int64)
			st.HeldByCartID = &id
		}
		if expires.Valid {
			t := expires.Time
			st.HoldExpiresAt = &t
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// SectionSummary aggregates seat counts per section for one event, with the
// section's price.  The result is buyer-anonymous.
func (r *LedgerRepo) SectionSummary(ctx context.Context, eventID, venueID uint64) ([]model.SectionSummary, error) {
	const q = `SELECT s.section,
	                  COUNT(*),
	                  SUM(CASE WHEN COALESCE(ess.status, 'AVAILABLE') = 'AVAILABLE' THEN 1 ELSE 0 END),
	                  SUM(CASE WHEN ess.status = 'HELD' THEN 1 ELSE 0 END),
	                  SUM(CASE WHEN ess.status = 'SOLD' THEN 1 ELSE 0 END),
	                  COALESCE(pt.price_cents, 0),
	                  COALESCE(pt.tier_name, '')
	           FROM seats s
	           LEFT JOIN event_seat_status ess ON ess.seat_id = s.id AND ess.event_id = ?
	           LEFT JOIN section_pricing sp ON sp.section = s.section AND sp.event_id = ?
	           LEFT JOIN price_tiers pt ON pt.id = sp.price_tier_id
	           WHERE s.venue_id = ?
	           GROUP BY s.section, pt.price_cents, pt.tier_name
	           ORDER BY s.section`
	rows, err := runner(ctx, r.db).QueryContext(ctx, q, eventID, eventID, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SectionSummary
	for rows.Next() {
		var s model.SectionSummary
		if err := rows.Scan(&s.Section, &s.Total, &s.Available, &s.Held, &s.Sold, &s.PriceCents, &s.TierName); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SeatMap returns every seat of the event's venue with its current sale
// state, ordered by row then column for stable rendering.
func (r *LedgerRepo) SeatMap(ctx context.Context, eventID, venueID uint64) ([]model.SeatAvailability, error) {
	const q = `SELECT s.id, s.row_label, s.seat_number, s.col_index, s.section,
	                  COALESCE(ess.status, 'AVAILABLE')
	           FROM seats s
	           LEFT JOIN event_seat_status ess ON ess.seat_id = s.id AND ess.event_id = ?
	           WHERE s.venue_id = ?
	           ORDER BY s.row_label, s.col_index`
	rows, err := runner(ctx, r.db).QueryContext(ctx, q, eventID, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatAvailability
	for rows.Next() {
		var (
			sa    model.SeatAvailability
			state string
		)
		if err := rows.Scan(&sa.SeatID, &sa.RowLabel, &sa.SeatNumber, &sa.ColIndex, &sa.Section, &state); err != nil {
			return nil, err
		}
		sa.State = model.SeatState(state)
		out = append(out, sa)
	}
	return out, rows.Err()
}
