// Package pricing implements the occupancy-driven seat price rule.  It
// is pure computation: callers measure occupancy against a consistent
// snapshot of the booking ledger and pass it in.
package pricing

import (
	"errors"

	"github.com/iliyamo/dynamic-seat-booking/internal/model"
)

// Occupancy tier thresholds, as fractions of a seat class.  The
// intervals are half-open: below NormalTier the min bound applies, from
// NormalTier up to (but excluding) MaxTier the normal bound applies,
// and from MaxTier upward the max bound applies.
const (
	NormalTier = 0.40
	MaxTier    = 0.60
)

// ErrUnpriceable is returned when a seat has none of its three price
// bounds set.  This is an inventory configuration error and is
// surfaced rather than defaulted.
var ErrUnpriceable = errors.New("seat has no price bounds")

// ErrEmptyClass is returned when occupancy is requested for a seat
// class containing zero seats; the fraction is undefined and callers
// must not price against it.
var ErrEmptyClass = errors.New("seat class has no seats")

// Occupancy returns the fraction of seats in a class that carry an
// active booking.  booked must be counted on the same snapshot as
// total.
func Occupancy(booked, total int) (float64, error) {
	if total <= 0 {
		return 0, ErrEmptyClass
	}
	return float64(booked) / float64(total), nil
}

// Price maps a seat's bounds and its class occupancy to the price to
// charge.  Each tier falls back through the remaining bounds when its
// preferred bound is absent:
//
//	occupancy <  40%:         min, then normal, then max
//	40% <= occupancy < 60%:   normal, then max, then min
//	occupancy >= 60%:         max, then normal, then min
func Price(seat *model.Seat, occupancy float64) (uint32, error) {
	var chain []*uint32
	switch {
	case occupancy < NormalTier:
		chain = []*uint32{seat.MinPriceCents, seat.NormalPriceCents, seat.MaxPriceCents}
	case occupancy < MaxTier:
		chain = []*uint32{seat.NormalPriceCents, seat.MaxPriceCents, seat.MinPriceCents}
	default:
		chain = []*uint32{seat.MaxPriceCents, seat.NormalPriceCents, seat.MinPriceCents}
	}
	for _, p := range chain {
		if p != nil {
			return *p, nil
		}
	}
	return 0, ErrUnpriceable
}
