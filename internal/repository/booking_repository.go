package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/dynamic-seat-booking/internal/model"
)

// BookingRepo provides access to the bookings and booking_seats tables.
// A seat's "booked" status is never stored on the seat row; it is
// derived from active booking_seats membership by the queries below, so
// the ledger is the single source of truth for availability.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts a new booking within the scope of an existing
// transaction.  It populates the generated ID and CreatedAt on the
// provided booking.  The caller must commit or rollback the
// transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (customer_name, phone_number, status, total_price_cents) VALUES (?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, b.Customer.Name, b.Customer.PhoneNumber, b.Status, b.TotalPriceCents)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// Query back the created_at default assigned by the database.
	const sel = `SELECT created_at FROM bookings WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt)
}

// CreateSeatsBulkTx inserts the booking's line items in a single
// statement, associating each seat and its charged price with the
// booking.  Passing an empty slice has no effect and returns nil.
func (r *BookingRepo) CreateSeatsBulkTx(ctx context.Context, tx *sql.Tx, bookingID uint64, seats []model.BookingSeat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, seat_id, price_cents) VALUES `
	args := make([]interface{}, 0, len(seats)*3)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, bookingID, s.SeatID, s.PriceCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ActiveSeatIDsTx returns, from the given seat ids, those that are
// currently covered by an active booking, evaluated on the
// transaction's snapshot.  The result preserves ascending seat id
// order so conflict reports are deterministic.
func (r *BookingRepo) ActiveSeatIDsTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return []uint64{}, nil
	}
	placeholders := make([]string, 0, len(seatIDs))
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, model.BookingStatusActive)
	for _, id := range seatIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	query := `SELECT DISTINCT bs.seat_id
	          FROM booking_seats bs
	          JOIN bookings b ON b.id = bs.booking_id
	          WHERE b.status = ? AND bs.seat_id IN (` + strings.Join(placeholders, ",") + `)
	          ORDER BY bs.seat_id`
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	booked := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		booked = append(booked, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return booked, nil
}

// countActiveByClass is shared by the transactional and plain variants
// below; it counts the distinct seats of a class referenced by active
// bookings.
const countActiveByClassQuery = `SELECT COUNT(DISTINCT bs.seat_id)
	FROM booking_seats bs
	JOIN bookings b ON b.id = bs.booking_id
	JOIN seats s ON s.id = bs.seat_id
	WHERE b.status = ? AND s.seat_class = ?`

// CountActiveByClassTx counts the actively booked seats of a class on
// the transaction's snapshot.  The booking path combines it with
// SeatRepo.CountByClassTx to derive occupancy inside the same
// transaction that commits the booking.
func (r *BookingRepo) CountActiveByClassTx(ctx context.Context, tx *sql.Tx, seatClass string) (int, error) {
	var n int
	if err := tx.QueryRowContext(ctx, countActiveByClassQuery, model.BookingStatusActive, seatClass).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountActiveByClass is the read-committed variant used for price
// previews, which tolerate a slightly stale occupancy figure.
func (r *BookingRepo) CountActiveByClass(ctx context.Context, seatClass string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countActiveByClassQuery, model.BookingStatusActive, seatClass).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// FindByCustomer returns all bookings whose customer name or phone
// number equals the given identifier exactly, newest first, each with
// its line items populated.  When no bookings match, an empty slice is
// returned.
func (r *BookingRepo) FindByCustomer(ctx context.Context, identifier string) ([]model.Booking, error) {
	const q = `SELECT id, customer_name, phone_number, status, total_price_cents, created_at
	           FROM bookings
	           WHERE customer_name = ? OR phone_number = ?
	           ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, identifier, identifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]model.Booking, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.Customer.Name, &b.Customer.PhoneNumber, &b.Status, &b.TotalPriceCents, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Seats = []model.BookingSeat{}
		index[b.ID] = len(bookings)
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return bookings, nil
	}
	// Populate line items for all matched bookings in one query.
	ids := make([]interface{}, 0, len(bookings))
	placeholders := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
		placeholders = append(placeholders, "?")
	}
	seatQuery := `SELECT booking_id, seat_id, price_cents
	              FROM booking_seats
	              WHERE booking_id IN (` + strings.Join(placeholders, ",") + `)
	              ORDER BY booking_id, id`
	srows, err := r.db.QueryContext(ctx, seatQuery, ids...)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var bookingID uint64
		var seat model.BookingSeat
		if err := srows.Scan(&bookingID, &seat.SeatID, &seat.PriceCents); err != nil {
			return nil, err
		}
		idx, ok := index[bookingID]
		if !ok {
			continue
		}
		bookings[idx].Seats = append(bookings[idx].Seats, seat)
	}
	if err := srows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

// GetByID returns a single booking with its line items.  It returns
// ErrBookingNotFound when no booking with the given id exists.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT id, customer_name, phone_number, status, total_price_cents, created_at
	           FROM bookings WHERE id = ?`
	var b model.Booking
	err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.Customer.Name, &b.Customer.PhoneNumber, &b.Status, &b.TotalPriceCents, &b.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	const seatQ = `SELECT seat_id, price_cents FROM booking_seats WHERE booking_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, seatQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	b.Seats = []model.BookingSeat{}
	for rows.Next() {
		var seat model.BookingSeat
		if err := rows.Scan(&seat.SeatID, &seat.PriceCents); err != nil {
			return nil, err
		}
		b.Seats = append(b.Seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &b, nil
}
