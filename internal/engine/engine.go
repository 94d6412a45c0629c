package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/dynamic-seat-booking/internal/model"
	"github.com/iliyamo/dynamic-seat-booking/internal/pricing"
	"github.com/iliyamo/dynamic-seat-booking/internal/repository"
)

// bookAttempts bounds the retries of a booking transaction that keeps
// losing lock conflicts before the failure is surfaced as
// ErrStoreUnavailable.
const bookAttempts = 3

// BookingTx is the view of the store available inside one booking
// transaction.  Every method observes the snapshot the transaction
// extends at commit, so the availability check, the occupancy read and
// the insert all agree.
type BookingTx interface {
	SeatsForUpdate(ctx context.Context, ids []uint64) ([]model.Seat, error)
	ActiveSeatIDs(ctx context.Context, ids []uint64) ([]uint64, error)
	CountSeatsByClass(ctx context.Context, seatClass string) (int, error)
	CountActiveByClass(ctx context.Context, seatClass string) (int, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
	CreateBookingSeats(ctx context.Context, bookingID uint64, seats []model.BookingSeat) error
}

// Store is the persistence contract the engine operates against.  The
// read methods run at read-committed isolation and may observe a
// slightly stale ledger; only InBookingTx carries invariants.
type Store interface {
	GetSeat(ctx context.Context, id uint64) (*model.Seat, error)
	ListSeats(ctx context.Context) ([]model.Seat, error)
	CountSeatsByClass(ctx context.Context, seatClass string) (int, error)
	CountActiveByClass(ctx context.Context, seatClass string) (int, error)
	UpdatePriceBounds(ctx context.Context, id uint64, b model.PriceBounds) error
	FindBookingsByCustomer(ctx context.Context, identifier string) ([]model.Booking, error)
	InBookingTx(ctx context.Context, fn func(tx BookingTx) error) error
}

// Engine implements the reservation and dynamic pricing operations on
// top of a Store.
type Engine struct {
	store Store
}

// New constructs an Engine bound to the given store.
func New(store Store) *Engine {
	if store == nil {
		panic("nil store passed to engine.New")
	}
	return &Engine{store: store}
}

// ListSeats returns the full seat inventory.
func (e *Engine) ListSeats(ctx context.Context) ([]model.Seat, error) {
	return e.store.ListSeats(ctx)
}

// SeatWithPrice returns a seat together with the price it would
// currently be charged at, both read from the same seat row.  The
// occupancy figure may be slightly stale under concurrent bookings;
// the commit path re-derives it inside its own transaction, so a
// preview never binds a price.
func (e *Engine) SeatWithPrice(ctx context.Context, id uint64) (*model.Seat, uint32, error) {
	seat, err := e.store.GetSeat(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	occ, err := e.classOccupancy(ctx, seat.SeatClass, e.store.CountSeatsByClass, e.store.CountActiveByClass)
	if err != nil {
		return nil, 0, err
	}
	price, err := pricing.Price(seat, occ)
	if err != nil {
		return nil, 0, fmt.Errorf("seat %d: %w", seat.ID, err)
	}
	return seat, price, nil
}

// PreviewPrice returns only the current price for the given seat.
func (e *Engine) PreviewPrice(ctx context.Context, id uint64) (uint32, error) {
	_, price, err := e.SeatWithPrice(ctx, id)
	return price, err
}

// UpdateSeatPrices replaces a seat's price bounds.  Administrative
// path only; committed bookings are unaffected.
func (e *Engine) UpdateSeatPrices(ctx context.Context, id uint64, b model.PriceBounds) error {
	return e.store.UpdatePriceBounds(ctx, id, b)
}

// FindBookings returns every booking whose customer name or phone
// number equals identifier exactly.  An empty identifier fails with
// ErrMissingIdentifier.
func (e *Engine) FindBookings(ctx context.Context, identifier string) ([]model.Booking, error) {
	if identifier == "" {
		return nil, ErrMissingIdentifier
	}
	return e.store.FindBookingsByCustomer(ctx, identifier)
}

// Book atomically reserves the given seats for a customer.  The whole
// request is all-or-nothing: it resolves every id, locks the seat
// rows, collects the complete conflict set, prices each seat against
// the class occupancy observed on the same snapshot, and commits one
// booking covering all seats.  On conflict exhaustion or store failure
// it returns ErrStoreUnavailable; retrying the identical request is
// safe because an already-committed seat set is simply reported as
// unavailable.
func (e *Engine) Book(ctx context.Context, seatIDs []uint64, customer model.Customer) (*model.Booking, error) {
	ids := dedupe(seatIDs)
	if len(ids) == 0 {
		return nil, ErrNoSeatsRequested
	}

	var booking *model.Booking
	var err error
	for attempt := 0; attempt < bookAttempts; attempt++ {
		booking, err = e.bookOnce(ctx, ids, customer)
		if err == nil || !errors.Is(err, repository.ErrTxConflict) {
			return booking, err
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// bookOnce runs one attempt of the booking transaction.
func (e *Engine) bookOnce(ctx context.Context, ids []uint64, customer model.Customer) (*model.Booking, error) {
	var booking *model.Booking
	err := e.store.InBookingTx(ctx, func(tx BookingTx) error {
		// Resolve and lock the requested seats.  Locks are taken in
		// ascending id order inside the query, so overlapping requests
		// serialize without deadlocking while disjoint requests do not
		// block each other.
		seats, err := tx.SeatsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		if len(seats) != len(ids) {
			return &UnknownSeatError{SeatIDs: missingIDs(ids, seats)}
		}
		byID := make(map[uint64]*model.Seat, len(seats))
		for i := range seats {
			byID[seats[i].ID] = &seats[i]
		}

		// Availability on the same snapshot.  The full conflict set is
		// reported, not just the first seat.
		conflicting, err := tx.ActiveSeatIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(conflicting) > 0 {
			return &SeatsUnavailableError{SeatIDs: conflicting}
		}

		// Occupancy per class, still on the same snapshot, measured
		// before this booking's seats are added.
		occByClass := make(map[string]float64)
		for _, s := range seats {
			if _, ok := occByClass[s.SeatClass]; ok {
				continue
			}
			occ, err := e.classOccupancy(ctx, s.SeatClass, tx.CountSeatsByClass, tx.CountActiveByClass)
			if err != nil {
				return err
			}
			occByClass[s.SeatClass] = occ
		}

		// Price each seat and assemble the booking in request order.
		lineItems := make([]model.BookingSeat, 0, len(ids))
		var total uint32
		for _, id := range ids {
			seat := byID[id]
			price, err := pricing.Price(seat, occByClass[seat.SeatClass])
			if err != nil {
				return fmt.Errorf("seat %d: %w", id, err)
			}
			lineItems = append(lineItems, model.BookingSeat{SeatID: id, PriceCents: price})
			total += price
		}

		b := &model.Booking{
			Customer:        customer,
			Status:          model.BookingStatusActive,
			TotalPriceCents: total,
			Seats:           lineItems,
		}
		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		if err := tx.CreateBookingSeats(ctx, b.ID, lineItems); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// classOccupancy derives the occupancy fraction of a seat class from
// the given count sources (transactional or read-committed).
func (e *Engine) classOccupancy(
	ctx context.Context,
	seatClass string,
	countSeats func(context.Context, string) (int, error),
	countActive func(context.Context, string) (int, error),
) (float64, error) {
	total, err := countSeats(ctx, seatClass)
	if err != nil {
		return 0, err
	}
	booked, err := countActive(ctx, seatClass)
	if err != nil {
		return 0, err
	}
	occ, err := pricing.Occupancy(booked, total)
	if err != nil {
		if errors.Is(err, pricing.ErrEmptyClass) {
			return 0, &EmptyClassError{SeatClass: seatClass}
		}
		return 0, err
	}
	return occ, nil
}

// dedupe drops duplicate ids while preserving first-seen order, which
// is also the order of the booking's line items.  Ids are not
// validated here: an id without a seat row (including 0) must fail the
// whole request as unknown, never be dropped.
func dedupe(ids []uint64) []uint64 {
	unique := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	return unique
}

// missingIDs returns, in request order, the requested ids without a
// matching seat row.
func missingIDs(ids []uint64, seats []model.Seat) []uint64 {
	found := make(map[uint64]struct{}, len(seats))
	for _, s := range seats {
		found[s.ID] = struct{}{}
	}
	missing := make([]uint64, 0, len(ids)-len(seats))
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
