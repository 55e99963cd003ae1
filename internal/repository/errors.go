// Package repository implements data access over MySQL.  Sentinel errors
// defined here let the service layer distinguish failure scenarios without
// depending on driver error codes.
package repository

import "errors"

// ErrEventNotFound is returned when an event lookup matches no row.
var ErrEventNotFound = errors.New("event not found")

// ErrCartExists is returned when inserting an OPEN cart collides with the
// buyer's existing OPEN cart for the same event.  The caller lost an insert
// race and should re-read the winning cart.
var ErrCartExists = errors.New("open cart already exists")

// ErrTicketNotFound is returned when a ticket lookup matches no row, or when
// the caller does not own the ticket.  The two cases are deliberately
// indistinguishable so ticket existence is never leaked.
var ErrTicketNotFound = errors.New("ticket not found")
