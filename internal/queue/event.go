// Package queue defines message payloads exchanged over the message broker
// and the background consumer that processes them.
package queue

// OrderCompletedEvent is published when a checkout commits.  It carries
// enough context for downstream consumers to log, notify, or feed analytics
// without querying the primary database.
type OrderCompletedEvent struct {
	OrderID     uint64   `json:"order_id"`
	UserID      uint64   `json:"user_id"`
	EventID     uint64   `json:"event_id"`
	SeatIDs     []uint64 `json:"seat_ids"`
	TotalCents  uint32   `json:"total_cents"`
	CompletedAt string   `json:"completed_at"`
}
