package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coworkd/internal/models"
)

const reservationColumns = `id, user_id, space_id, room_number, start_time, end_time, created_at, updated_at, version`

func scanReservation(row interface{ Scan(...any) error }) (models.Reservation, error) {
	var r models.Reservation
	var startUnix, endUnix int64
	err := row.Scan(
		&r.ID, &r.UserID, &r.SpaceID, &r.RoomNumber,
		&startUnix, &endUnix, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return models.Reservation{}, err
	}
	r.StartTime = time.Unix(startUnix, 0).UTC()
	r.EndTime = time.Unix(endUnix, 0).UTC()
	return r, nil
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	r, err := scanReservation(db.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &r, nil
}

// CreateReservation runs the quota and overlap checks and the insert in one
// transaction, so two concurrent creates against the same scope cannot both
// pass the checks. quota <= 0 disables the quota check (admin actors). The
// audit entry is written in the same transaction: either the reservation and
// its audit row both exist, or neither does.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation, quota int) ([]models.Reservation, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if quota > 0 {
		var count int
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE user_id = ?`, r.UserID).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("failed to count user reservations in tx: %w", err)
		}
		if count >= quota {
			return nil, ErrQuotaExceeded
		}
	}

	conflicts, err := findOverlappingTx(ctx, tx, r.SpaceID, r.RoomNumber, r.StartTime, r.EndTime, 0)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return conflicts, ErrTimeConflict
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (user_id, space_id, room_number, start_time, end_time, created_at, updated_at, version)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.SpaceID, r.RoomNumber,
		r.StartTime.Unix(), r.EndTime.Unix(), now, now, 1,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1

	if err := insertAuditTx(ctx, tx, r.UserID, r.ID, models.ActionCreate, now); err != nil {
		return nil, err
	}

	return nil, tx.Commit()
}

// UpdateReservationWindow re-runs the overlap check excluding the reservation
// itself, then applies the new window under an optimistic version guard.
// Room and space are not mutable here.
func (db *DB) UpdateReservationWindow(ctx context.Context, id, version int64, start, end time.Time, actorID int64) ([]models.Reservation, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var spaceID int64
	var roomNumber int
	err = tx.QueryRowContext(ctx, `SELECT space_id, room_number FROM reservations WHERE id = ?`, id).Scan(&spaceID, &roomNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation scope in tx: %w", err)
	}

	conflicts, err := findOverlappingTx(ctx, tx, spaceID, roomNumber, start, end, id)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return conflicts, ErrTimeConflict
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE reservations SET start_time = ?, end_time = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		start.Unix(), end.Unix(), now, id, version,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrConcurrentModification
	}

	if err := insertAuditTx(ctx, tx, actorID, id, models.ActionUpdate, now); err != nil {
		return nil, err
	}

	return nil, tx.Commit()
}

func (db *DB) DeleteReservation(ctx context.Context, id, actorID int64) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	if err := insertAuditTx(ctx, tx, actorID, id, models.ActionDelete, time.Now().UTC()); err != nil {
		return err
	}

	return tx.Commit()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// findOverlapping applies the strict half-open overlap test: an existing
// interval conflicts iff it starts before the candidate ends and ends after
// the candidate starts. Touching endpoints do not conflict. excludeID 0
// excludes nothing (reservation ids start at 1).
func findOverlapping(ctx context.Context, q querier, spaceID int64, roomNumber int, start, end time.Time, excludeID int64) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
              FROM reservations
              WHERE space_id = ? AND room_number = ?
                AND start_time < ? AND end_time > ?
                AND id <> ?
              ORDER BY start_time ASC`
	rows, err := q.QueryContext(ctx, query, spaceID, roomNumber, end.Unix(), start.Unix(), excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func findOverlappingTx(ctx context.Context, tx *sql.Tx, spaceID int64, roomNumber int, start, end time.Time, excludeID int64) ([]models.Reservation, error) {
	return findOverlapping(ctx, tx, spaceID, roomNumber, start, end, excludeID)
}

// FindOverlapping reports every reservation in the scope whose interval
// intersects [start, end).
func (db *DB) FindOverlapping(ctx context.Context, spaceID int64, roomNumber int, start, end time.Time, excludeID int64) ([]models.Reservation, error) {
	return findOverlapping(ctx, db.db, spaceID, roomNumber, start, end, excludeID)
}

// SearchByTime returns all reservations across all spaces and rooms whose
// interval overlaps [start, end).
func (db *DB) SearchByTime(ctx context.Context, start, end time.Time) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
              FROM reservations
              WHERE start_time < ? AND end_time > ?
              ORDER BY start_time ASC`
	rows, err := db.db.QueryContext(ctx, query, end.Unix(), start.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to search reservations by time: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func (db *DB) ListReservations(ctx context.Context) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations ORDER BY start_time ASC`
	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func (db *DB) ListReservationsByUser(ctx context.Context, userID int64) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = ? ORDER BY start_time ASC`
	rows, err := db.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func (db *DB) CountReservationsByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count user reservations: %w", err)
	}
	return count, nil
}

func collectReservations(rows *sql.Rows) ([]models.Reservation, error) {
	var reservations []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}
