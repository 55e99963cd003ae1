package model

import "time"

// SeatState enumerates the sale state of a seat for one event.
type SeatState string

const (
	SeatAvailable SeatState = "AVAILABLE"
	SeatHeld      SeatState = "HELD"
	SeatSold      SeatState = "SOLD"
)

// Seat is the immutable identity of a physical seat.  Seats belong to the
// venue catalog; this service only reads them.
//
// Fields:
//  ID         – primary key identifier.
//  VenueID    – venue the seat belongs to.
//  RowLabel   – row letter(s), e.g. "A".
//  SeatNumber – number within the row, stored as text.
//  ColIndex   – zero-based column position for layout rendering.
//  Section    – pricing section, e.g. "VIP".
type Seat struct {
	ID         uint64 // seats.id
	VenueID    uint64 // seats.venue_id
	RowLabel   string // seats.row_label
	SeatNumber string // seats.seat_number
	ColIndex   uint32 // seats.col_index
	Section    string // seats.section
}

// SeatStatus is the mutable per-(event, seat) sale-state record.  A seat
// with no row in the ledger is AVAILABLE; the ledger materializes a row the
// first time the seat is held.  HeldByCartID and HoldExpiresAt are set iff
// State is HELD.
type SeatStatus struct {
	EventID       uint64     // event_seat_status.event_id
	SeatID        uint64     // event_seat_status.seat_id
	State         SeatState  // event_seat_status.status
	HeldByCartID  *uint64    // event_seat_status.held_by_cart_id (nullable)
	HoldExpiresAt *time.Time // event_seat_status.hold_expires_at (nullable)
	UpdatedAt     time.Time  // event_seat_status.updated_at
}

// PricedSeat combines a seat's identity with the price its section carries
// for one event.  It is the unit returned by reserve/cart/checkout flows.
type PricedSeat struct {
	SeatID     uint64 `json:"seat_id"`
	RowLabel   string `json:"row_label"`
	SeatNumber string `json:"seat_number"`
	Section    string `json:"section"`
	PriceCents uint32 `json:"price_cents"`
	TierName   string `json:"tier_name"`
}

// SectionSummary aggregates seat counts and pricing for one section of an
// event.  It is buyer-anonymous: it never names who holds a seat.
type SectionSummary struct {
	Section    string `json:"section"`
	Total      int    `json:"total_seats"`
	Available  int    `json:"available"`
	Held       int    `json:"held"`
	Sold       int    `json:"sold"`
	PriceCents uint32 `json:"price_cents"`
	TierName   string `json:"tier_name"`
}

// SeatAvailability pairs a seat's identity with its current sale state for
// the public per-seat availability map.
type SeatAvailability struct {
	SeatID     uint64    `json:"seat_id"`
	RowLabel   string    `json:"row_label"`
	SeatNumber string    `json:"seat_number"`
	ColIndex   uint32    `json:"col_index"`
	Section    string    `json:"section"`
	State      SeatState `json:"status"`
}
