package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/tessera-live/ticket-reservation/internal/model"
)

// CartRepo provides data access to carts and their seat membership.  All
// membership mutations are expected to run inside the same transaction as
// the ledger mutation they mirror, so the cart's member set and the ledger's
// holder column never disagree at an observable boundary.
type CartRepo struct {
	db *sql.DB
}

// NewCartRepo returns a CartRepo bound to the provided database.
func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// WithTx runs fn inside a transaction shared with any other repository bound
// to the same database.
func (r *CartRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

const cartColumns = `id, user_id, event_id, status, created_at, expires_at`

func scanCart(row *sql.Row) (*model.Cart, error) {
	var c model.Cart
	err := row.Scan(&c.ID, &c.UserID, &c.EventID, &c.Status, &c.CreatedAt, &c.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// OpenCart returns the buyer's OPEN cart for an event, or nil when none
// exists.
func (r *CartRepo) OpenCart(ctx context.Context, userID, eventID uint64) (*model.Cart, error) {
	q := `SELECT ` + cartColumns + ` FROM carts WHERE user_id = ? AND event_id = ? AND status = 'OPEN'`
	return scanCart(runner(ctx, r.db).QueryRowContext(ctx, q, userID, eventID))
}

// GetByID returns a cart by id, or nil when it does not exist.
func (r *CartRepo) GetByID(ctx context.Context, cartID uint64) (*model.Cart, error) {
	q := `SELECT ` + cartColumns + ` FROM carts WHERE id = ?`
	return scanCart(runner(ctx, r.db).QueryRowContext(ctx, q, cartID))
}

// GetByIDForUpdate is GetByID with a row lock.  It must run inside a
// transaction; concurrent checkouts of the same cart serialize on the lock.
func (r *CartRepo) GetByIDForUpdate(ctx context.Context, cartID uint64) (*model.Cart, error) {
	q := `SELECT ` + cartColumns + ` FROM carts WHERE id = ? FOR UPDATE`
	return scanCart(runner(ctx, r.db).QueryRowContext(ctx, q, cartID))
}

// Create inserts a new OPEN cart and populates its generated id.  The
// uq_carts_open key backs the one-OPEN-cart-per-buyer-per-event rule: a
// concurrent insert for the same (user, event) surfaces as ErrCartExists.
func (r *CartRepo) Create(ctx context.Context, c *model.Cart) error {
	const q = `INSERT INTO carts (user_id, event_id, status, open_marker, expires_at) VALUES (?, ?, 'OPEN', 1, ?)`
	res, err := runner(ctx, r.db).ExecContext(ctx, q, c.UserID, c.EventID, c.ExpiresAt.UTC())
	if err != nil {
		if isDuplicateKey(err) {
			return ErrCartExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	c.Status = model.CartOpen
	return nil
}

// SetExpiry extends an OPEN cart's hold window.
func (r *CartRepo) SetExpiry(ctx context.Context, cartID uint64, expiresAt time.Time) error {
	const q = `UPDATE carts SET expires_at = ? WHERE id = ? AND status = 'OPEN'`
	_, err := runner(ctx, r.db).ExecContext(ctx, q, expiresAt.UTC(), cartID)
	return err
}

// MarkExpired transitions an OPEN cart to EXPIRED.  Returns false when the
// cart was not OPEN, so concurrent sweeps and checkouts cannot both claim
// the transition.
func (r *CartRepo) MarkExpired(ctx context.Context, cartID uint64) (bool, error) {
	const q = `UPDATE carts SET status = 'EXPIRED', open_marker = NULL WHERE id = ? AND status = 'OPEN'`
	res, err := runner(ctx, r.db).ExecContext(ctx, q, cartID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkConverted transitions an OPEN cart to CONVERTED.  Returns false when
// the cart was not OPEN.
func (r *CartRepo) MarkConverted(ctx context.Context, cartID uint64) (bool, error) {
	const q = `UPDATE carts SET status = 'CONVERTED', open_marker = NULL WHERE id = ? AND status = 'OPEN'`
	res, err := runner(ctx, r.db).ExecContext(ctx, q, cartID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AddSeats attaches seats to a cart.  Seats already attached are ignored.
func (r *CartRepo) AddSeats(ctx context.Context, cartID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `INSERT IGNORE INTO cart_seats (cart_id, seat_id) VALUES `
	args := make([]interface{}, 0, len(seatIDs)*2)
	for i, id := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, cartID, id)
	}
	_, err := runner(ctx, r.db).ExecContext(ctx, query, args...)
	return err
}

// RemoveSeat detaches one seat from a cart.
func (r *CartRepo) RemoveSeat(ctx context.Context, cartID, seatID uint64) error {
	const q = `DELETE FROM cart_seats WHERE cart_id = ? AND seat_id = ?`
	_, err := runner(ctx, r.db).ExecContext(ctx, q, cartID, seatID)
	return err
}

// ClearSeats detaches every seat from a cart.
func (r *CartRepo) ClearSeats(ctx context.Context, cartID uint64) error {
	const q = `DELETE FROM cart_seats WHERE cart_id = ?`
	_, err := runner(ctx, r.db).ExecContext(ctx, q, cartID)
	return err
}

// SeatIDs lists the cart's member seats in ascending order.
func (r *CartRepo) SeatIDs(ctx context.Context, cartID uint64) ([]uint64, error) {
	const q = `SELECT seat_id FROM cart_seats WHERE cart_id = ? ORDER BY seat_id`
	rows, err := runner(ctx, r.db).QueryContext(ctx, q, cartID)
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

// ListOpenByUser returns all OPEN carts for a buyer, newest first.
func (r *CartRepo) ListOpenByUser(ctx context.Context, userID uint64) ([]model.Cart, error) {
	q := `SELECT ` + cartColumns + ` FROM carts WHERE user_id = ? AND status = 'OPEN' ORDER BY created_at DESC`
	rows, err := runner(ctx, r.db).QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	carts := make([]model.Cart, 0)
	for rows.Next() {
		var c model.Cart
		if err := rows.Scan(&c.ID, &c.UserID, &c.EventID, &c.Status, &c.CreatedAt, &c.ExpiresAt); err != nil {
			return nil, err
		}
		carts = append(carts, c)
	}
	return carts, rows.Err()
}

// seatPlaceholders builds "(?,?,...)" argument lists for IN clauses.
func seatPlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
