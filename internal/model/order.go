package model

import "time"

// OrderStatus enumerates the payment state of an order.  Checkout creates
// orders directly in PAID; the other states exist for external settlement
// and refund flows.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderRefunded  OrderStatus = "REFUNDED"
)

// TicketStatus enumerates the lifecycle of an issued ticket.
type TicketStatus string

const (
	TicketIssued  TicketStatus = "ISSUED"
	TicketScanned TicketStatus = "SCANNED"
	TicketVoided  TicketStatus = "VOIDED"
)

// Order is the permanent record of a completed purchase.  It is created
// exactly once per successful checkout together with its items and tickets.
type Order struct {
	ID         uint64      // orders.id
	UserID     uint64      // orders.user_id
	EventID    uint64      // orders.event_id
	Status     OrderStatus // orders.status
	TotalCents uint32      // orders.total_cents
	CreatedAt  time.Time   // orders.created_at
}

// OrderItem is one purchased seat within an order.  Ticket, OrderItem and
// seat relate 1:1:1 for the life of the order.
type OrderItem struct {
	ID             uint64 // order_items.id
	OrderID        uint64 // order_items.order_id
	SeatID         uint64 // order_items.seat_id
	UnitPriceCents uint32 // order_items.unit_price_cents
	LineTotalCents uint32 // order_items.line_total_cents
}

// Ticket is the scannable proof of purchase for one order item.  Barcode is
// unique across all tickets ever issued.
type Ticket struct {
	ID          uint64       // tickets.id
	OrderItemID uint64       // tickets.order_item_id
	Barcode     string       // tickets.barcode
	Status      TicketStatus // tickets.status
	CreatedAt   time.Time    // tickets.created_at
}

// OrderLine is one purchased seat with its ticket, as shown in the buyer's
// order history.
type OrderLine struct {
	SeatID         uint64       `json:"seat_id"`
	RowLabel       string       `json:"row_label"`
	SeatNumber     string       `json:"seat_number"`
	Section        string       `json:"section"`
	UnitPriceCents uint32       `json:"unit_price_cents"`
	TicketID       uint64       `json:"ticket_id"`
	Barcode        string       `json:"barcode"`
	TicketStatus   TicketStatus `json:"ticket_status"`
}

// OrderDetail is an order together with its purchased seats.
type OrderDetail struct {
	OrderID    uint64      `json:"order_id"`
	EventID    uint64      `json:"event_id"`
	EventName  string      `json:"event_name"`
	Status     OrderStatus `json:"status"`
	TotalCents uint32      `json:"total_cents"`
	CreatedAt  time.Time   `json:"created_at"`
	Lines      []OrderLine `json:"seats"`
}

// TicketDetail resolves a ticket to its seat, event and owner.  Used both by
// the buyer-facing ticket lookup and by the gate scan flow.
type TicketDetail struct {
	TicketID   uint64       `json:"ticket_id"`
	Barcode    string       `json:"barcode"`
	Status     TicketStatus `json:"status"`
	OrderID    uint64       `json:"order_id"`
	UserID     uint64       `json:"-"`
	EventID    uint64       `json:"event_id"`
	EventName  string       `json:"event_name"`
	SeatID     uint64       `json:"seat_id"`
	RowLabel   string       `json:"row_label"`
	SeatNumber string       `json:"seat_number"`
	Section    string       `json:"section"`
}
