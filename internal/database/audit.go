package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"coworkd/internal/models"
)

// The audit log is append-only: nothing in this package updates or deletes
// rows, and cascade deletion of a space leaves its reservations' entries in
// place.

func insertAuditTx(ctx context.Context, tx *sql.Tx, userID, reservationID int64, action string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO audit_log (user_id, reservation_id, action, created_at) VALUES (?, ?, ?, ?)`,
		userID, reservationID, action, at,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry in tx: %w", err)
	}
	return nil
}

func (db *DB) ListAuditEntries(ctx context.Context) ([]models.AuditLogEntry, error) {
	query := `SELECT id, user_id, reservation_id, action, created_at FROM audit_log ORDER BY id ASC`
	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	return collectAuditEntries(rows)
}

func (db *DB) ListAuditEntriesByReservation(ctx context.Context, reservationID int64) ([]models.AuditLogEntry, error) {
	query := `SELECT id, user_id, reservation_id, action, created_at FROM audit_log WHERE reservation_id = ? ORDER BY id ASC`
	rows, err := db.db.QueryContext(ctx, query, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservation audit entries: %w", err)
	}
	defer rows.Close()

	return collectAuditEntries(rows)
}

func collectAuditEntries(rows *sql.Rows) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ReservationID, &e.Action, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
