// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingCreatedEvent is published after a booking commits.  It carries
// enough for downstream consumers to log or notify without querying
// the primary database.  Prices are the per-seat charges captured at
// commit time.
type BookingCreatedEvent struct {
	BookingID       uint64       `json:"booking_id"`
	CustomerName    string       `json:"customer_name"`
	PhoneNumber     string       `json:"phone_number"`
	Seats           []BookedSeat `json:"seats"`
	TotalPriceCents uint32       `json:"total_price_cents"`
	CreatedAt       string       `json:"created_at"`
}

// BookedSeat is one line item of a BookingCreatedEvent.
type BookedSeat struct {
	SeatID     uint64 `json:"seat_id"`
	PriceCents uint32 `json:"price_cents"`
}
