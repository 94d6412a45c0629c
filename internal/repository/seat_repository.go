package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/dynamic-seat-booking/internal/model"
)

// seatColumns is the column list shared by every seat SELECT so that
// scanSeat stays in sync with the queries using it.
const seatColumns = `id, seat_number, seat_class, min_price_cents, normal_price_cents, max_price_cents, created_at, updated_at`

// SeatRepo provides access to the seats table.  The inventory is
// read-mostly: seats are created once at setup and only their price
// bounds change afterwards, never from the booking path.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// scanSeat reads one seats row from a row scanner.  The three price
// bound columns are nullable and mapped to nil pointers when absent.
func scanSeat(scan func(dest ...interface{}) error) (*model.Seat, error) {
	var s model.Seat
	var minP, normP, maxP sql.NullInt64
	if err := scan(
		&s.ID, &s.SeatNumber, &s.SeatClass, &minP, &normP, &maxP,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if minP.Valid {
		v := uint32(minP.Int64)
		s.MinPriceCents = &v
	}
	if normP.Valid {
		v := uint32(normP.Int64)
		s.NormalPriceCents = &v
	}
	if maxP.Valid {
		v := uint32(maxP.Int64)
		s.MaxPriceCents = &v
	}
	return &s, nil
}

// Create inserts a single seat record. On success the seat's ID is populated.
func (r *SeatRepo) Create(ctx context.Context, s *model.Seat) error {
	const q = `INSERT INTO seats (seat_number, seat_class, min_price_cents, normal_price_cents, max_price_cents)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.SeatNumber, s.SeatClass, nullable(s.MinPriceCents), nullable(s.NormalPriceCents), nullable(s.MaxPriceCents))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// CreateBulk inserts multiple seats in a single statement.  It is used
// by inventory setup tooling; passing an empty slice has no effect.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (seat_number, seat_class, min_price_cents, normal_price_cents, max_price_cents) VALUES `
	args := make([]interface{}, 0, len(seats)*5)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, s.SeatNumber, s.SeatClass, nullable(s.MinPriceCents), nullable(s.NormalPriceCents), nullable(s.MaxPriceCents))
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// nullable converts an optional price bound to a driver value,
// preserving NULL for absent bounds.
func nullable(p *uint32) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// GetByID retrieves a seat by its id.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE id = ?`
	s, err := scanSeat(r.db.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListAll retrieves every seat in the inventory ordered by id.
func (r *SeatRepo) ListAll(ctx context.Context) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Seat, 0)
	for rows.Next() {
		s, err := scanSeat(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByIDsForUpdateTx loads the requested seats inside the given
// transaction, taking exclusive row locks with SELECT ... FOR UPDATE.
// Rows are locked in ascending id order so concurrent bookings over
// overlapping seat sets acquire locks in the same order.  Ids without a
// matching row are simply absent from the result; callers must compare
// against the requested set and report unknown seats themselves,
// missing ids are never silently dropped further up the stack.
func (r *SeatRepo) GetByIDsForUpdateTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return []model.Seat{}, nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	query := `SELECT ` + seatColumns + ` FROM seats WHERE id IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Seat, 0, len(ids))
	for rows.Next() {
		s, err := scanSeat(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CountByClass returns the number of seats in a seat class.
func (r *SeatRepo) CountByClass(ctx context.Context, seatClass string) (int, error) {
	const q = `SELECT COUNT(*) FROM seats WHERE seat_class = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, seatClass).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountByClassTx is CountByClass evaluated on the given transaction's
// snapshot.  The booking path uses it so occupancy is measured on the
// same snapshot the commit extends.
func (r *SeatRepo) CountByClassTx(ctx context.Context, tx *sql.Tx, seatClass string) (int, error) {
	const q = `SELECT COUNT(*) FROM seats WHERE seat_class = ?`
	var n int
	if err := tx.QueryRowContext(ctx, q, seatClass).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// UpdatePriceBounds replaces a seat's three price bounds.  This is the
// administrative path only; committed bookings keep the prices captured
// at their commit time regardless of later bound changes.  Returns
// ErrSeatNotFound when the seat does not exist.
func (r *SeatRepo) UpdatePriceBounds(ctx context.Context, id uint64, b model.PriceBounds) error {
	const q = `UPDATE seats
	           SET min_price_cents = ?, normal_price_cents = ?, max_price_cents = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, nullable(b.MinPriceCents), nullable(b.NormalPriceCents), nullable(b.MaxPriceCents), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSeatNotFound
	}
	return nil
}
