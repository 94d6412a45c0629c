// Package repository implements data access over MySQL for the seat
// inventory and the booking ledger.  Sentinel errors defined here are
// reused across repositories so that higher layers can distinguish
// failure scenarios with errors.Is instead of inspecting driver errors.
package repository

import "errors"

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// ErrBookingNotFound is returned when a booking lookup yields no rows.
var ErrBookingNotFound = errors.New("booking not found")
