package model

import "time"

// CartStatus enumerates the reservation lifecycle.  OPEN carts accept and
// release seats; CONVERTED and EXPIRED are terminal.
type CartStatus string

const (
	CartOpen      CartStatus = "OPEN"
	CartConverted CartStatus = "CONVERTED"
	CartExpired   CartStatus = "EXPIRED"
)

// Cart groups the seats a buyer intends to purchase for one event.  A buyer
// has at most one OPEN cart per event.  While the cart is OPEN its member
// seat set mirrors the ledger rows that name it as holder; conversion and
// expiry clear the membership.
type Cart struct {
	ID        uint64     // carts.id
	UserID    uint64     // carts.user_id
	EventID   uint64     // carts.event_id
	Status    CartStatus // carts.status
	CreatedAt time.Time  // carts.created_at
	ExpiresAt time.Time  // carts.expires_at
}

// Expired reports whether the cart's hold window has passed at the given
// instant.
func (c Cart) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
