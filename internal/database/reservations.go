package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotelbook/internal/booking"
	"hotelbook/internal/models"

	"github.com/google/uuid"
)

const reservationColumns = `id, resource_id, user_id, guest_name, party_size, start_ms, end_ms,
	status, total_price, created_at, updated_at, version`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var (
		r              models.Reservation
		startMs, endMs int64
	)
	err := row.Scan(
		&r.ID, &r.ResourceID, &r.UserID, &r.GuestName, &r.PartySize, &startMs, &endMs,
		&r.Status, &r.TotalPrice, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	r.Start = fromMillis(startMs)
	r.End = fromMillis(endMs)
	return &r, nil
}

// activeIntervals returns the pending/confirmed reservations of a resource
// that intersect window. A zero window returns all of them.
func activeIntervals(ctx context.Context, q queryer, resourceID string, window models.Interval) ([]models.ReservationInterval, error) {
	query := `SELECT id, resource_id, start_ms, end_ms FROM reservations
		WHERE resource_id = ? AND status IN (?, ?)`
	args := []interface{}{resourceID, models.ReservationPending, models.ReservationConfirmed}
	if !window.Start.IsZero() && !window.End.IsZero() {
		query += ` AND start_ms < ? AND end_ms > ?`
		args = append(args, toMillis(window.End), toMillis(window.Start))
	}
	query += ` ORDER BY start_ms`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var out []models.ReservationInterval
	for rows.Next() {
		var (
			iv             models.ReservationInterval
			startMs, endMs int64
		)
		if err := rows.Scan(&iv.ID, &iv.ResourceID, &startMs, &endMs); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		iv.Start = fromMillis(startMs)
		iv.End = fromMillis(endMs)
		out = append(out, iv)
	}
	return out, rows.Err()
}

// FetchReservationsForResource returns active occupancy of a resource around window.
func (db *DB) FetchReservationsForResource(
	ctx context.Context,
	resourceID string,
	window models.Interval,
) ([]models.ReservationInterval, error) {
	return activeIntervals(ctx, db, resourceID, window)
}

// CreateReservationWithLock re-checks overlap and inserts inside one
// transaction, so two racing bookings of the same window cannot both win.
func (db *DB) CreateReservationWithLock(ctx context.Context, r *models.Reservation) error {
	if !r.End.After(r.Start) {
		return ErrInvalidWindow
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Resource must exist
	var (
		kind      string
		basePrice float64
	)
	err = tx.QueryRowContext(ctx, `SELECT kind, base_price FROM resources WHERE id = ?`, r.ResourceID).Scan(&kind, &basePrice)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("resource %s: %w", r.ResourceID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load resource in tx: %w", err)
	}

	// 2. Check overlap inside transaction
	existing, err := activeIntervals(ctx, tx, r.ResourceID, models.Interval{Start: r.Start, End: r.End})
	if err != nil {
		return err
	}
	if conflicts := booking.FindConflicts(existing, models.Interval{Start: r.Start, End: r.End}, ""); len(conflicts) > 0 {
		return ErrNotAvailable
	}

	// 3. Insert reservation and bump popularity
	now := time.Now()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = models.ReservationConfirmed
	}
	if r.PartySize <= 0 {
		r.PartySize = 1
	}
	if r.TotalPrice == 0 && kind == models.KindRoom {
		r.TotalPrice = booking.ComputePrice(basePrice, r.Start, r.End).Total
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ResourceID, r.UserID, r.GuestName, r.PartySize, toMillis(r.Start), toMillis(r.End),
		r.Status, r.TotalPrice, now, now, 1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE resources SET total_bookings = total_bookings + 1, updated_at = ? WHERE id = ?`,
		now, r.ResourceID)
	if err != nil {
		return fmt.Errorf("failed to update booking counter in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1
	db.forgetResource(r.ResourceID)
	return nil
}

// RescheduleReservation moves a reservation to window. The reservation's own
// interval does not conflict with itself; version guards concurrent edits.
func (db *DB) RescheduleReservation(ctx context.Context, id string, version int64, window models.Interval) error {
	if !window.End.After(window.Start) {
		return ErrInvalidWindow
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := scanReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load reservation in tx: %w", err)
	}
	if current.Version != version {
		return ErrVersionConflict
	}
	if current.Status != models.ReservationPending && current.Status != models.ReservationConfirmed {
		return ErrReservationClosed
	}

	existing, err := activeIntervals(ctx, tx, current.ResourceID, window)
	if err != nil {
		return err
	}
	if !booking.IsAvailable(existing, window, id) {
		return ErrNotAvailable
	}

	var (
		kind      string
		basePrice float64
	)
	if err := tx.QueryRowContext(ctx, `SELECT kind, base_price FROM resources WHERE id = ?`, current.ResourceID).
		Scan(&kind, &basePrice); err != nil {
		return fmt.Errorf("failed to load resource in tx: %w", err)
	}
	total := current.TotalPrice
	if kind == models.KindRoom {
		total = booking.ComputePrice(basePrice, window.Start, window.End).Total
	}

	result, err := tx.ExecContext(ctx, `UPDATE reservations
		SET start_ms = ?, end_ms = ?, total_price = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		toMillis(window.Start), toMillis(window.End), total, time.Now(), id, version,
	)
	if err != nil {
		return fmt.Errorf("failed to reschedule reservation: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}

	return tx.Commit()
}

// CancelReservation frees the window of a reservation.
func (db *DB) CancelReservation(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `UPDATE reservations
		SET status = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND status IN (?, ?)`,
		models.ReservationCancelled, time.Now(), id, models.ReservationPending, models.ReservationConfirmed,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}

	if _, err := db.GetReservation(ctx, id); err != nil {
		return err
	}
	return ErrReservationClosed
}

func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	r, err := scanReservation(db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

// GetReservationsInRange lists active reservations of a kind that intersect window.
func (db *DB) GetReservationsInRange(ctx context.Context, kind string, window models.Interval) ([]*models.Reservation, error) {
	query := `SELECT r.id, r.resource_id, r.user_id, r.guest_name, r.party_size, r.start_ms, r.end_ms,
			r.status, r.total_price, r.created_at, r.updated_at, r.version
		FROM reservations r JOIN resources s ON s.id = r.resource_id
		WHERE (? = '' OR s.kind = ?)
			AND r.status IN (?, ?, ?)
			AND r.start_ms < ? AND r.end_ms > ?
		ORDER BY r.start_ms, r.id`

	rows, err := db.QueryContext(ctx, query,
		kind, kind,
		models.ReservationPending, models.ReservationConfirmed, models.ReservationCompleted,
		toMillis(window.End), toMillis(window.Start),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations in range: %w", err)
	}
	defer rows.Close()

	var out []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
