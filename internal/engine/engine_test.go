package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/dynamic-seat-booking/internal/model"
	"github.com/iliyamo/dynamic-seat-booking/internal/pricing"
	"github.com/iliyamo/dynamic-seat-booking/internal/repository"
)

// fakeStore is an in-memory Store whose InBookingTx holds a mutex for
// the whole callback, giving the same serializability the MySQL store
// gets from row locks.
type fakeStore struct {
	mu       sync.Mutex
	seats    map[uint64]*model.Seat
	bookings []*model.Booking
	nextID   uint64
}

func newFakeStore() *fakeStore {
	return &fakeStore{seats: make(map[uint64]*model.Seat), nextID: 1}
}

func (s *fakeStore) addSeat(id uint64, class string, min, normal, max *uint32) {
	s.seats[id] = &model.Seat{
		ID: id, SeatNumber: fmt.Sprintf("S%d", id), SeatClass: class,
		MinPriceCents: min, NormalPriceCents: normal, MaxPriceCents: max,
	}
}

func (s *fakeStore) seatsForUpdate(ids []uint64) ([]model.Seat, error) {
	sorted := append([]uint64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	out := make([]model.Seat, 0, len(sorted))
	for _, id := range sorted {
		if seat, ok := s.seats[id]; ok {
			out = append(out, *seat)
		}
	}
	return out, nil
}

func (s *fakeStore) activeSeatIDs(ids []uint64) ([]uint64, error) {
	requested := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}
	hit := make(map[uint64]struct{})
	for _, b := range s.bookings {
		if b.Status != model.BookingStatusActive {
			continue
		}
		for _, ls := range b.Seats {
			if _, ok := requested[ls.SeatID]; ok {
				hit[ls.SeatID] = struct{}{}
			}
		}
	}
	out := make([]uint64, 0, len(hit))
	for id := range hit {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *fakeStore) countSeatsByClass(class string) (int, error) {
	n := 0
	for _, seat := range s.seats {
		if seat.SeatClass == class {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) countActiveByClass(class string) (int, error) {
	booked := make(map[uint64]struct{})
	for _, b := range s.bookings {
		if b.Status != model.BookingStatusActive {
			continue
		}
		for _, ls := range b.Seats {
			if seat, ok := s.seats[ls.SeatID]; ok && seat.SeatClass == class {
				booked[ls.SeatID] = struct{}{}
			}
		}
	}
	return len(booked), nil
}

type fakeTx struct{ s *fakeStore }

func (t *fakeTx) SeatsForUpdate(_ context.Context, ids []uint64) ([]model.Seat, error) {
	return t.s.seatsForUpdate(ids)
}
func (t *fakeTx) ActiveSeatIDs(_ context.Context, ids []uint64) ([]uint64, error) {
	return t.s.activeSeatIDs(ids)
}
func (t *fakeTx) CountSeatsByClass(_ context.Context, class string) (int, error) {
	return t.s.countSeatsByClass(class)
}
func (t *fakeTx) CountActiveByClass(_ context.Context, class string) (int, error) {
	return t.s.countActiveByClass(class)
}
func (t *fakeTx) CreateBooking(_ context.Context, b *model.Booking) error {
	b.ID = t.s.nextID
	t.s.nextID++
	cp := *b
	cp.Seats = append([]model.BookingSeat(nil), b.Seats...)
	t.s.bookings = append(t.s.bookings, &cp)
	return nil
}
func (t *fakeTx) CreateBookingSeats(_ context.Context, _ uint64, _ []model.BookingSeat) error {
	// Line items were copied with the booking in CreateBooking.
	return nil
}

func (s *fakeStore) GetSeat(_ context.Context, id uint64) (*model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[id]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	cp := *seat
	return &cp, nil
}

func (s *fakeStore) ListSeats(_ context.Context) ([]model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint64, 0, len(s.seats))
	for id := range s.seats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]model.Seat, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.seats[id])
	}
	return out, nil
}

func (s *fakeStore) CountSeatsByClass(_ context.Context, class string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countSeatsByClass(class)
}

func (s *fakeStore) CountActiveByClass(_ context.Context, class string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countActiveByClass(class)
}

func (s *fakeStore) UpdatePriceBounds(_ context.Context, id uint64, b model.PriceBounds) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[id]
	if !ok {
		return repository.ErrSeatNotFound
	}
	seat.MinPriceCents = b.MinPriceCents
	seat.NormalPriceCents = b.NormalPriceCents
	seat.MaxPriceCents = b.MaxPriceCents
	return nil
}

func (s *fakeStore) FindBookingsByCustomer(_ context.Context, identifier string) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0)
	for _, b := range s.bookings {
		if b.Customer.Name == identifier || b.Customer.PhoneNumber == identifier {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *fakeStore) InBookingTx(_ context.Context, fn func(tx BookingTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&fakeTx{s: s})
}

func cents(v uint32) *uint32 { return &v }

// economyInventory builds the §8 scenario inventory: 10 economy seats
// with bounds {10, 20, 30} (in cents here), booked of them already taken.
func economyInventory(t *testing.T, booked int) (*Engine, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	for id := uint64(1); id <= 10; id++ {
		store.addSeat(id, "economy", cents(1000), cents(2000), cents(3000))
	}
	eng := New(store)
	for id := uint64(10); id > uint64(10-booked); id-- {
		_, err := eng.Book(context.Background(), []uint64{id}, model.Customer{Name: "seed", PhoneNumber: "555-0000"})
		require.NoError(t, err)
	}
	return eng, store
}

func TestBookCapturesPriceAndBlocksSeat(t *testing.T) {
	eng, _ := economyInventory(t, 3) // 30% occupancy, min tier
	ctx := context.Background()

	b, err := eng.Book(ctx, []uint64{1, 2}, model.Customer{Name: "Alice", PhoneNumber: "555-1234"})
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, model.BookingStatusActive, b.Status)
	require.Len(t, b.Seats, 2)
	assert.Equal(t, uint32(1000), b.Seats[0].PriceCents)
	assert.Equal(t, uint32(1000), b.Seats[1].PriceCents)
	assert.Equal(t, uint32(2000), b.TotalPriceCents)

	// The same seats are now unavailable.
	_, err = eng.Book(ctx, []uint64{2}, model.Customer{Name: "Bob", PhoneNumber: "555-9999"})
	var unavailable *SeatsUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []uint64{2}, unavailable.SeatIDs)
}

// §8 scenario: 3 of 10 economy seats booked -> preview 10; one more
// booking pushes occupancy to 40% -> preview 20.
func TestPreviewPriceFollowsOccupancyTiers(t *testing.T) {
	eng, _ := economyInventory(t, 3)
	ctx := context.Background()

	price, err := eng.PreviewPrice(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), price)

	// Preview is deterministic with no intervening bookings.
	again, err := eng.PreviewPrice(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, price, again)

	_, err = eng.Book(ctx, []uint64{7}, model.Customer{Name: "Carol", PhoneNumber: "555-0001"})
	require.NoError(t, err)

	price, err = eng.PreviewPrice(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(2000), price)
}

func TestBookUnknownSeatsReportsAllMissing(t *testing.T) {
	eng, store := economyInventory(t, 0)
	ctx := context.Background()

	_, err := eng.Book(ctx, []uint64{1, 99, 100}, model.Customer{Name: "Dave", PhoneNumber: "555-0002"})
	var unknown *UnknownSeatError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []uint64{99, 100}, unknown.SeatIDs)

	// No partial effect: nothing was committed.
	assert.Empty(t, store.bookings)
}

// Booking [A, B] where B is already booked fails listing B and leaves
// A bookable.
func TestBookAllOrNothing(t *testing.T) {
	eng, _ := economyInventory(t, 0)
	ctx := context.Background()

	_, err := eng.Book(ctx, []uint64{2}, model.Customer{Name: "Erin", PhoneNumber: "555-0003"})
	require.NoError(t, err)

	_, err = eng.Book(ctx, []uint64{1, 2}, model.Customer{Name: "Frank", PhoneNumber: "555-0004"})
	var unavailable *SeatsUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []uint64{2}, unavailable.SeatIDs)

	// Seat 1 was untouched by the failed request.
	_, err = eng.Book(ctx, []uint64{1}, model.Customer{Name: "Frank", PhoneNumber: "555-0004"})
	require.NoError(t, err)
}

func TestBookDeduplicatesAndRejectsEmpty(t *testing.T) {
	eng, _ := economyInventory(t, 0)
	ctx := context.Background()

	b, err := eng.Book(ctx, []uint64{3, 3, 3}, model.Customer{Name: "Grace", PhoneNumber: "555-0005"})
	require.NoError(t, err)
	require.Len(t, b.Seats, 1)
	assert.Equal(t, uint64(3), b.Seats[0].SeatID)

	_, err = eng.Book(ctx, nil, model.Customer{Name: "Grace", PhoneNumber: "555-0005"})
	assert.ErrorIs(t, err, ErrNoSeatsRequested)
}

// A seat id with no matching row, zero included, fails the whole
// request as unknown rather than being quietly skipped.
func TestBookZeroSeatIDFailsAsUnknown(t *testing.T) {
	eng, store := economyInventory(t, 0)
	ctx := context.Background()

	_, err := eng.Book(ctx, []uint64{3, 0}, model.Customer{Name: "Grace", PhoneNumber: "555-0005"})
	var unknown *UnknownSeatError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []uint64{0}, unknown.SeatIDs)
	assert.Empty(t, store.bookings)

	_, err = eng.Book(ctx, []uint64{0}, model.Customer{Name: "Grace", PhoneNumber: "555-0005"})
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []uint64{0}, unknown.SeatIDs)
	assert.Empty(t, store.bookings)
}

// Later price bound changes never alter a committed booking's charge.
func TestBookedPriceImmutable(t *testing.T) {
	eng, _ := economyInventory(t, 0)
	ctx := context.Background()

	b, err := eng.Book(ctx, []uint64{4}, model.Customer{Name: "Heidi", PhoneNumber: "555-0006"})
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), b.Seats[0].PriceCents)

	err = eng.UpdateSeatPrices(ctx, 4, model.PriceBounds{MinPriceCents: cents(9999)})
	require.NoError(t, err)

	found, err := eng.FindBookings(ctx, "Heidi")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, uint32(1000), found[0].Seats[0].PriceCents)
	assert.Equal(t, uint32(1000), found[0].TotalPriceCents)

	// The preview, by contrast, reflects the new bounds.
	price, err := eng.PreviewPrice(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(9999), price)
}

func TestBookUnpriceableSeat(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, "economy", nil, nil, nil)
	eng := New(store)

	_, err := eng.Book(context.Background(), []uint64{1}, model.Customer{Name: "Ivan", PhoneNumber: "555-0007"})
	assert.ErrorIs(t, err, pricing.ErrUnpriceable)
	assert.Empty(t, store.bookings)
}

func TestFindBookings(t *testing.T) {
	eng, _ := economyInventory(t, 0)
	ctx := context.Background()

	_, err := eng.Book(ctx, []uint64{1}, model.Customer{Name: "Judy", PhoneNumber: "555-1234"})
	require.NoError(t, err)
	_, err = eng.Book(ctx, []uint64{2}, model.Customer{Name: "Mallory", PhoneNumber: "555-1234"})
	require.NoError(t, err)

	byPhone, err := eng.FindBookings(ctx, "555-1234")
	require.NoError(t, err)
	assert.Len(t, byPhone, 2)

	byName, err := eng.FindBookings(ctx, "Judy")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Judy", byName[0].Customer.Name)

	none, err := eng.FindBookings(ctx, "555-0000-none")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = eng.FindBookings(ctx, "")
	assert.ErrorIs(t, err, ErrMissingIdentifier)
}

// Concurrent requests for the same seat: exactly one booking wins, the
// ledger never holds two active bookings sharing a seat.
func TestConcurrentBookingSingleWinner(t *testing.T) {
	eng, store := economyInventory(t, 0)
	ctx := context.Background()

	const attempts = 16
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.Book(ctx, []uint64{5}, model.Customer{
				Name:        fmt.Sprintf("customer-%d", i),
				PhoneNumber: fmt.Sprintf("555-%04d", i),
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var unavailable *SeatsUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, []uint64{5}, unavailable.SeatIDs)
	}
	assert.Equal(t, 1, winners)

	holders := 0
	for _, b := range store.bookings {
		for _, ls := range b.Seats {
			if ls.SeatID == 5 {
				holders++
			}
		}
	}
	assert.Equal(t, 1, holders)
}

// mockStore drives the retry and empty-class paths that the fake
// store cannot produce.
type mockStore struct {
	Store
	inBookingTxFunc       func(ctx context.Context, fn func(tx BookingTx) error) error
	getSeatFunc           func(ctx context.Context, id uint64) (*model.Seat, error)
	countSeatsByClassFunc func(ctx context.Context, class string) (int, error)
	countActiveFunc       func(ctx context.Context, class string) (int, error)
}

func (m *mockStore) InBookingTx(ctx context.Context, fn func(tx BookingTx) error) error {
	return m.inBookingTxFunc(ctx, fn)
}

func (m *mockStore) GetSeat(ctx context.Context, id uint64) (*model.Seat, error) {
	return m.getSeatFunc(ctx, id)
}

func (m *mockStore) CountSeatsByClass(ctx context.Context, class string) (int, error) {
	return m.countSeatsByClassFunc(ctx, class)
}

func (m *mockStore) CountActiveByClass(ctx context.Context, class string) (int, error) {
	return m.countActiveFunc(ctx, class)
}

func TestBookRetriesTransientConflicts(t *testing.T) {
	calls := 0
	inner := newFakeStore()
	inner.addSeat(1, "economy", cents(1000), nil, nil)
	store := &mockStore{
		inBookingTxFunc: func(ctx context.Context, fn func(tx BookingTx) error) error {
			calls++
			if calls < 3 {
				return fmt.Errorf("%w: deadlock", repository.ErrTxConflict)
			}
			return inner.InBookingTx(ctx, fn)
		},
	}
	eng := New(store)

	b, err := eng.Book(context.Background(), []uint64{1}, model.Customer{Name: "Nina", PhoneNumber: "555-0008"})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, uint32(1000), b.TotalPriceCents)
}

func TestBookConflictExhaustionIsTransient(t *testing.T) {
	calls := 0
	store := &mockStore{
		inBookingTxFunc: func(ctx context.Context, fn func(tx BookingTx) error) error {
			calls++
			return fmt.Errorf("%w: deadlock", repository.ErrTxConflict)
		},
	}
	eng := New(store)

	_, err := eng.Book(context.Background(), []uint64{1}, model.Customer{Name: "Olga", PhoneNumber: "555-0009"})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, bookAttempts, calls)
}

func TestPreviewPriceEmptyClass(t *testing.T) {
	store := &mockStore{
		getSeatFunc: func(ctx context.Context, id uint64) (*model.Seat, error) {
			return &model.Seat{ID: id, SeatClass: "phantom"}, nil
		},
		countSeatsByClassFunc: func(ctx context.Context, class string) (int, error) { return 0, nil },
		countActiveFunc:       func(ctx context.Context, class string) (int, error) { return 0, nil },
	}
	eng := New(store)

	_, err := eng.PreviewPrice(context.Background(), 1)
	var empty *EmptyClassError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "phantom", empty.SeatClass)
}

func TestPreviewPriceUnknownSeat(t *testing.T) {
	eng, _ := economyInventory(t, 0)
	_, err := eng.PreviewPrice(context.Background(), 999)
	assert.ErrorIs(t, err, repository.ErrSeatNotFound)
}

// Seat and price must come from one seat load so the pair is
// internally consistent even while bounds are being updated.
func TestSeatWithPriceLoadsSeatOnce(t *testing.T) {
	loads := 0
	store := &mockStore{
		getSeatFunc: func(ctx context.Context, id uint64) (*model.Seat, error) {
			loads++
			return &model.Seat{ID: id, SeatNumber: "E1", SeatClass: "economy", MinPriceCents: cents(1000)}, nil
		},
		countSeatsByClassFunc: func(ctx context.Context, class string) (int, error) { return 10, nil },
		countActiveFunc:       func(ctx context.Context, class string) (int, error) { return 0, nil },
	}
	eng := New(store)

	seat, price, err := eng.SeatWithPrice(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, loads)
	assert.Equal(t, uint64(7), seat.ID)
	assert.Equal(t, uint32(1000), price)
}
