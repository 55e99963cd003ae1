package model

import "time"

// EventStatus enumerates the sale lifecycle of an event.
type EventStatus string

const (
	EventScheduled EventStatus = "SCHEDULED"
	EventOnSale    EventStatus = "ON_SALE"
	EventCancelled EventStatus = "CANCELLED"
	EventCompleted EventStatus = "COMPLETED"
)

// Event is the catalog record for a time-boxed event at a venue.  This
// service reads events to validate sale state and to locate the venue's
// seats; event CRUD lives elsewhere.
type Event struct {
	ID       uint64      // events.id
	VenueID  uint64      // events.venue_id
	Name     string      // events.name
	StartsAt time.Time   // events.starts_at
	Status   EventStatus // events.status
}

// Sellable reports whether seats for the event may currently be reserved.
func (e Event) Sellable() bool {
	return e.Status == EventOnSale || e.Status == EventScheduled
}
