package model

import "time"

// Booking statuses.  The engine only ever writes ACTIVE; CANCELLED
// exists so that "active" is well-defined for availability and
// occupancy queries.
const (
	BookingStatusActive    = "ACTIVE"
	BookingStatusCancelled = "CANCELLED"
)

// Customer identifies who made a booking.  There are no user accounts;
// customers are identified by the name/phone pair they supply.
type Customer struct {
	Name        string // bookings.customer_name
	PhoneNumber string // bookings.phone_number
}

// Booking records a committed reservation covering one or more seats.
// A booking is immutable once committed: the per-seat prices captured
// at commit time never change, even if a seat's price bounds are later
// updated.
//
// Fields:
//  ID              – primary key, assigned at commit.
//  Customer        – name and phone number supplied with the request.
//  Status          – ACTIVE or CANCELLED.
//  TotalPriceCents – sum of the per-seat charged prices.
//  Seats           – line items, one per seat, in request order.
//  CreatedAt       – commit timestamp.
type Booking struct {
	ID              uint64        // bookings.id
	Customer        Customer      // bookings.customer_name / phone_number
	Status          string        // bookings.status
	TotalPriceCents uint32        // bookings.total_price_cents
	Seats           []BookingSeat // booking_seats rows
	CreatedAt       time.Time     // bookings.created_at
}

// BookingSeat is a single line item of a booking: the seat covered and
// the price charged for it at commit time.
type BookingSeat struct {
	SeatID     uint64 // booking_seats.seat_id
	PriceCents uint32 // booking_seats.price_cents
}
