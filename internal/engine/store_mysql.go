package engine

import (
	"context"

	"github.com/iliyamo/dynamic-seat-booking/internal/model"
	"github.com/iliyamo/dynamic-seat-booking/internal/repository"
)

// sqlStore adapts repository.Store to the engine's Store contract.
// repository.BookingTx already satisfies the BookingTx interface; only
// the transaction callback signature needs bridging.
type sqlStore struct {
	store *repository.Store
}

// NewSQLStore wraps a repository.Store for use by the engine.
func NewSQLStore(store *repository.Store) Store {
	return &sqlStore{store: store}
}

func (s *sqlStore) GetSeat(ctx context.Context, id uint64) (*model.Seat, error) {
	return s.store.Seats.GetByID(ctx, id)
}

func (s *sqlStore) ListSeats(ctx context.Context) ([]model.Seat, error) {
	return s.store.Seats.ListAll(ctx)
}

func (s *sqlStore) CountSeatsByClass(ctx context.Context, seatClass string) (int, error) {
	return s.store.Seats.CountByClass(ctx, seatClass)
}

func (s *sqlStore) CountActiveByClass(ctx context.Context, seatClass string) (int, error) {
	return s.store.Bookings.CountActiveByClass(ctx, seatClass)
}

func (s *sqlStore) UpdatePriceBounds(ctx context.Context, id uint64, b model.PriceBounds) error {
	return s.store.Seats.UpdatePriceBounds(ctx, id, b)
}

func (s *sqlStore) FindBookingsByCustomer(ctx context.Context, identifier string) ([]model.Booking, error) {
	return s.store.Bookings.FindByCustomer(ctx, identifier)
}

func (s *sqlStore) InBookingTx(ctx context.Context, fn func(tx BookingTx) error) error {
	return s.store.InBookingTx(ctx, func(tx *repository.BookingTx) error {
		return fn(tx)
	})
}
