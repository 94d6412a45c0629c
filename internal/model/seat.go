package model

import "time"

// Seat describes a bookable seat in the inventory.  Seats are created
// once at setup and grouped into classes ("economy", "business", ...)
// that share an occupancy-driven price curve.  Any subset of the three
// price bounds may be absent; a seat is only priceable while at least
// one bound is set.  Whether a seat is booked is never stored here: it
// is derived from active rows in the booking ledger.
//
// Fields:
//  ID               – primary key identifier.
//  SeatNumber       – human-readable label (e.g. "A1").
//  SeatClass        – class tag shared with other seats on the same curve.
//  MinPriceCents    – low-occupancy price bound (nullable).
//  NormalPriceCents – mid-occupancy price bound (nullable).
//  MaxPriceCents    – high-occupancy price bound (nullable).
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Seat struct {
	ID               uint64    // seats.id
	SeatNumber       string    // seats.seat_number
	SeatClass        string    // seats.seat_class
	MinPriceCents    *uint32   // seats.min_price_cents (nullable)
	NormalPriceCents *uint32   // seats.normal_price_cents (nullable)
	MaxPriceCents    *uint32   // seats.max_price_cents (nullable)
	CreatedAt        time.Time // seats.created_at
	UpdatedAt        time.Time // seats.updated_at
}

// PriceBounds groups the three optional bounds for administrative
// updates.  The booking path never mutates bounds.
type PriceBounds struct {
	MinPriceCents    *uint32
	NormalPriceCents *uint32
	MaxPriceCents    *uint32
}
