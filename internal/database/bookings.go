package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"medbook/internal/domain"
	"medbook/internal/models"
	"medbook/internal/slots"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

const bookedTimesQuery = `SELECT time FROM bookings WHERE date = ? AND booking_type = ?`

func bookedTimes(ctx context.Context, q queryer, date, specialty string) ([]string, error) {
	rows, err := q.QueryContext(ctx, bookedTimesQuery, date, specialty)
	if err != nil {
		return nil, fmt.Errorf("failed to query booked times: %w", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t sql.NullString
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan booked time: %w", err)
		}
		if t.Valid {
			times = append(times, t.String)
		}
	}
	return times, rows.Err()
}

// BookedTimes returns the stored time strings for an exact date and specialty.
func (db *DB) BookedTimes(ctx context.Context, date, specialty string) ([]string, error) {
	return bookedTimes(ctx, db.DB, date, specialty)
}

// Save writes the customer and booking rows without any availability check.
func (db *DB) Save(ctx context.Context, draft *models.BookingDraft) (int64, error) {
	return db.save(ctx, draft, false)
}

// SaveChecked re-checks the slot inside the transaction and returns domain.ErrSlotTaken
// without writing anything when it is already booked.
func (db *DB) SaveChecked(ctx context.Context, draft *models.BookingDraft) (int64, error) {
	return db.save(ctx, draft, true)
}

func (db *DB) save(ctx context.Context, draft *models.BookingDraft, checked bool) (int64, error) {
	if draft == nil || !draft.Complete() {
		return 0, domain.ErrInvalidDraft
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if checked {
		booked, err := bookedTimes(ctx, tx, draft.Date, draft.Specialty)
		if err != nil {
			return 0, err
		}
		if slots.Conflicts(draft.Time, booked) {
			return 0, domain.ErrSlotTaken
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO customers (name, email, phone) VALUES (?, ?, ?)`,
		draft.Name, draft.Email, draft.Phone,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert customer: %w", err)
	}
	customerID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get customer id: %w", err)
	}

	res, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (customer_id, booking_type, date, time, status) VALUES (?, ?, ?, ?, ?)`,
		customerID, draft.Specialty, draft.Date, draft.Time, models.StatusConfirmed,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert booking: %w", err)
	}
	bookingID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get booking id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit booking: %w", err)
	}

	db.logger.Info().
		Int64("booking_id", bookingID).
		Str("date", draft.Date).
		Str("time", draft.Time).
		Str("specialty", draft.Specialty).
		Bool("checked", checked).
		Msg("booking saved")
	return bookingID, nil
}

const bookingColumns = `b.id, b.customer_id, c.name, c.email, c.phone,
	b.booking_type, b.date, b.time, b.status, b.created_at`

func scanBooking(scan func(dest ...interface{}) error) (*models.Booking, error) {
	var (
		b                                          models.Booking
		customerID                                 sql.NullInt64
		name, email, phone, specialty, date, t, st sql.NullString
	)
	if err := scan(&b.ID, &customerID, &name, &email, &phone, &specialty, &date, &t, &st, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.CustomerID = customerID.Int64
	b.Name = name.String
	b.Email = email.String
	b.Phone = phone.String
	b.Specialty = specialty.String
	b.Date = date.String
	b.Time = t.String
	b.Status = st.String
	return &b, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
              FROM bookings b
              LEFT JOIN customers c ON b.customer_id = c.customer_id
              WHERE b.id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// ListBookings returns bookings joined with customers, newest first.
// Email and name filters are case-insensitive substring matches.
func (db *DB) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Email != "" {
		where = append(where, `instr(lower(c.email), lower(?)) > 0`)
		args = append(args, filter.Email)
	}
	if filter.Name != "" {
		where = append(where, `instr(lower(c.name), lower(?)) > 0`)
		args = append(args, filter.Name)
	}

	query := `SELECT ` + bookingColumns + `
              FROM bookings b
              JOIN customers c ON b.customer_id = c.customer_id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY b.created_at DESC, b.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
