package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/dynamic-seat-booking/internal/model"
)

// ErrTxConflict is returned when a booking transaction fails for a
// transient store reason: it lost a lock conflict (deadlock or lock
// wait timeout) or the connection to the store dropped.  The
// operation left no partial effect and may be retried as a whole.
var ErrTxConflict = errors.New("transaction conflict")

// MySQL server error numbers for lock conflicts.  Both resolve by
// rolling back one transaction; retrying the whole booking is safe.
const (
	mysqlErrLockDeadlock    = 1213
	mysqlErrLockWaitTimeout = 1205
)

// Store bundles the seat inventory and the booking ledger behind one
// handle and owns transaction scoping.  It is constructed once at
// startup with an explicitly opened *sql.DB; no package-level
// connection state exists.
type Store struct {
	db       *sql.DB
	Seats    *SeatRepo
	Bookings *BookingRepo
}

// NewStore builds a Store and its repositories around the given
// database handle.  The caller keeps ownership of the handle and is
// responsible for closing it at shutdown.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		Seats:    NewSeatRepo(db),
		Bookings: NewBookingRepo(db),
	}
}

// BookingTx exposes the ledger and inventory operations available
// inside one booking transaction.  Every method observes the snapshot
// the enclosing transaction will extend at commit.
type BookingTx struct {
	tx    *sql.Tx
	store *Store
}

// SeatsForUpdate loads and exclusively locks the requested seat rows.
func (t *BookingTx) SeatsForUpdate(ctx context.Context, ids []uint64) ([]model.Seat, error) {
	return t.store.Seats.GetByIDsForUpdateTx(ctx, t.tx, ids)
}

// ActiveSeatIDs reports which of the given seats carry an active booking.
func (t *BookingTx) ActiveSeatIDs(ctx context.Context, ids []uint64) ([]uint64, error) {
	return t.store.Bookings.ActiveSeatIDsTx(ctx, t.tx, ids)
}

// CountSeatsByClass counts all seats of a class.
func (t *BookingTx) CountSeatsByClass(ctx context.Context, seatClass string) (int, error) {
	return t.store.Seats.CountByClassTx(ctx, t.tx, seatClass)
}

// CountActiveByClass counts the actively booked seats of a class.
func (t *BookingTx) CountActiveByClass(ctx context.Context, seatClass string) (int, error) {
	return t.store.Bookings.CountActiveByClassTx(ctx, t.tx, seatClass)
}

// CreateBooking inserts the booking row and populates its ID.
func (t *BookingTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	return t.store.Bookings.CreateTx(ctx, t.tx, b)
}

// CreateBookingSeats inserts the booking's line items.
func (t *BookingTx) CreateBookingSeats(ctx context.Context, bookingID uint64, seats []model.BookingSeat) error {
	return t.store.Bookings.CreateSeatsBulkTx(ctx, t.tx, bookingID, seats)
}

// InBookingTx runs fn inside a single database transaction and commits
// only when fn returns nil; every other exit path rolls back, so no
// partial booking is ever visible to other callers.  Lock conflicts
// are reported as ErrTxConflict so callers can retry the whole unit.
func (s *Store) InBookingTx(ctx context.Context, fn func(tx *BookingTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapConflict(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&BookingTx{tx: tx, store: s}); err != nil {
		return wrapConflict(err)
	}
	if err := tx.Commit(); err != nil {
		return wrapConflict(err)
	}
	committed = true
	return nil
}

// wrapConflict tags retryable store failures with ErrTxConflict and
// passes every other error through unchanged.  Retryable means the
// transaction rolled back without partial effect: MySQL lock
// conflicts, dropped connections and network faults.  Caller
// cancellation is not a store failure and stays untagged.
func wrapConflict(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlErrLockDeadlock, mysqlErrLockWaitTimeout:
			return fmt.Errorf("%w: %v", ErrTxConflict, err)
		}
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ne net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &ne) {
		return fmt.Errorf("%w: %v", ErrTxConflict, err)
	}
	return err
}
