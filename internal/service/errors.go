package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the service layer.  Handlers map these onto
// HTTP statuses; everything else surfaces as an internal error.
var (
	// ErrNotFound covers unknown events, carts, tickets and payment intents.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest covers malformed or out-of-range request parameters.
	ErrBadRequest = errors.New("bad request")
	// ErrForbidden covers requests on resources owned by someone else and
	// payment confirmations that do not match the intent they were minted for.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict covers seat contention and invalid state transitions.
	ErrConflict = errors.New("conflict")
	// ErrGone covers carts whose hold window has already lapsed.
	ErrGone = errors.New("gone")
	// ErrAlreadyProcessed covers retried checkouts of a CONVERTED cart and
	// repeated confirmations of a consumed payment intent.
	ErrAlreadyProcessed = errors.New("already processed")
)

// ConflictError is an ErrConflict carrying the detail a buyer needs to retry:
// either the exact seats that could not be held, or the section whose
// remaining capacity fell short of the requested quantity.
type ConflictError struct {
	UnavailableSeatIDs []uint64
	Section            string
	Requested          int
	Available          int
}

func (e *ConflictError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("section %q has %d seats available, %d requested", e.Section, e.Available, e.Requested)
	}
	return fmt.Sprintf("%d seat(s) unavailable", len(e.UnavailableSeatIDs))
}

// Unwrap makes errors.Is(err, ErrConflict) hold for every ConflictError.
func (e *ConflictError) Unwrap() error { return ErrConflict }
