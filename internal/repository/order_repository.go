package repository

import (
	"context"
	"database/sql"

	"github.com/tessera-live/ticket-reservation/internal/model"
)

// OrderRepo persists completed purchases: orders, their seat line items and
// the tickets issued for them.  Rows are written exactly once, inside the
// checkout transaction; later mutations are limited to ticket status.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to the provided database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// WithTx runs fn inside a transaction shared with any other repository bound
// to the same database.
func (r *OrderRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

// Create inserts a new order and populates its generated id.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	const q = `INSERT INTO orders (user_id, event_id, status, total_cents) VALUES (?, ?, ?, ?)`
	res, err := runner(ctx, r.db).ExecContext(ctx, q, o.UserID, o.EventID, o.Status, o.TotalCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// AddItem inserts one seat line item and populates its generated id.
func (r *OrderRepo) AddItem(ctx context.Context, it *model.OrderItem) error {
	const q = `INSERT INTO order_items (order_id, seat_id, unit_price_cents, line_total_cents)
	           VALUES (?, ?, ?, ?)`
	res, err := runner(ctx, r.db).ExecContext(ctx, q, it.OrderID, it.SeatID, it.UnitPriceCents, it.LineTotalCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return nil
}

// AddTicket inserts one ticket and populates its generated id.
func (r *OrderRepo) AddTicket(ctx context.Context, t *model.Ticket) error {
	const q = `INSERT INTO tickets (order_item_id, barcode, status) VALUES (?, ?, ?)`
	res, err := runner(ctx, r.db).ExecContext(ctx, q, t.OrderItemID, t.Barcode, t.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// ListByUser returns the buyer's orders with their seats and tickets, newest
// order first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.OrderDetail, error) {
	const q = `SELECT o.id, o.event_id, e.name, o.status, o.total_cents, o.created_at,
	                  s.id, s.row_label, s.seat_number, s.section, oi.unit_price_cents,
	                  t.id, t.barcode, t.status
	           FROM orders o
	           JOIN events e ON e.id = o.event_id
	           JOIN order_items oi ON oi.order_id = o.id
	           JOIN seats s ON s.id = oi.seat_id
	           JOIN tickets t ON t.order_item_id = oi.id
	           WHERE o.user_id = ?
	           ORDER BY o.created_at DESC, o.id DESC, s.id ASC`
	rows, err := runner(ctx, r.db).QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.OrderDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var (
			od model.OrderDetail
			ln model.OrderLine
		)
		err := rows.Scan(&od.OrderID, &od.EventID, &od.EventName, &od.Status, &od.TotalCents, &od.CreatedAt,
			&ln.SeatID, &ln.RowLabel, &ln.SeatNumber, &ln.Section, &ln.UnitPriceCents,
			&ln.TicketID, &ln.Barcode, &ln.TicketStatus)
		if err != nil {
			return nil, err
		}
		i, ok := index[od.OrderID]
		if !ok {
			od.Lines = []model.OrderLine{}
			out = append(out, od)
			i = len(out) - 1
			index[od.OrderID] = i
		}
		out[i].Lines = append(out[i].Lines, ln)
	}
	return out, rows.Err()
}

const ticketDetailSelect = `SELECT t.id, t.barcode, t.status, o.id, o.user_id, o.event_id, e.name,
	       s.id, s.row_label, s.seat_number, s.section
	FROM tickets t
	JOIN order_items oi ON oi.id = t.order_item_id
	JOIN orders o ON o.id = oi.order_id
	JOIN events e ON e.id = o.event_id
	JOIN seats s ON s.id = oi.seat_id`

func scanTicketDetail(row *sql.Row) (*model.TicketDetail, error) {
	var td model.TicketDetail
	err := row.Scan(&td.TicketID, &td.Barcode, &td.Status, &td.OrderID, &td.UserID, &td.EventID, &td.EventName,
		&td.SeatID, &td.RowLabel, &td.SeatNumber, &td.Section)
	if err == sql.ErrNoRows {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &td, nil
}

// GetTicketForUser fetches one ticket owned by the given buyer.  A ticket
// that exists but belongs to someone else is reported as ErrTicketNotFound,
// so the lookup never confirms another buyer's ticket ids.
func (r *OrderRepo) GetTicketForUser(ctx context.Context, ticketID, userID uint64) (*model.TicketDetail, error) {
	q := ticketDetailSelect + ` WHERE t.id = ? AND o.user_id = ?`
	return scanTicketDetail(runner(ctx, r.db).QueryRowContext(ctx, q, ticketID, userID))
}

// GetTicket fetches one ticket regardless of owner.  Admin flows only.
func (r *OrderRepo) GetTicket(ctx context.Context, ticketID uint64) (*model.TicketDetail, error) {
	q := ticketDetailSelect + ` WHERE t.id = ?`
	return scanTicketDetail(runner(ctx, r.db).QueryRowContext(ctx, q, ticketID))
}

// SetTicketStatus transitions a ticket from one status to another.  Returns
// false when the ticket was not in the expected status, so a barcode cannot
// be scanned twice.
func (r *OrderRepo) SetTicketStatus(ctx context.Context, ticketID uint64, from, to model.TicketStatus) (bool, error) {
	const q = `UPDATE tickets SET status = ? WHERE id = ? AND status = ?`
	res, err := runner(ctx, r.db).ExecContext(ctx, q, to, ticketID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
