// Package engine is the authoritative seat reservation and pricing
// core.  It owns the rules that decide a seat's price at any instant
// and the transactional logic that prevents double booking.  The engine
// never logs; every failure is reported as a typed error carrying the
// offending identifiers so callers can render a precise message.
package engine

import (
	"errors"
	"fmt"
)

// ErrNoSeatsRequested is returned when Book is called with an empty
// seat set.
var ErrNoSeatsRequested = errors.New("no seats requested")

// ErrMissingIdentifier is returned when FindBookings is called with an
// empty search key.
var ErrMissingIdentifier = errors.New("missing customer identifier")

// ErrStoreUnavailable is returned when the underlying store cannot
// complete the operation (contention exhausted after bounded retries,
// or the store is unreachable).  It is the only failure kind for which
// retrying the whole request unchanged is meaningful.
var ErrStoreUnavailable = errors.New("store unavailable")

// UnknownSeatError reports a booking request referencing seat ids that
// do not exist in the inventory.  It carries every unresolved id, not
// just the first.
type UnknownSeatError struct {
	SeatIDs []uint64
}

func (e *UnknownSeatError) Error() string {
	return fmt.Sprintf("unknown seats: %v", e.SeatIDs)
}

// SeatsUnavailableError reports a booking conflict.  It carries the
// full list of requested seats already covered by an active booking.
type SeatsUnavailableError struct {
	SeatIDs []uint64
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %v", e.SeatIDs)
}

// EmptyClassError reports that occupancy was requested for a seat
// class with zero seats.  Like an unpriceable seat this is an
// inventory configuration error, surfaced rather than defaulted.
type EmptyClassError struct {
	SeatClass string
}

func (e *EmptyClassError) Error() string {
	return fmt.Sprintf("seat class %q has no seats", e.SeatClass)
}
