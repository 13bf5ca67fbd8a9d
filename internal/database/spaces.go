package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coworkd/internal/models"
)

const spaceColumns = `id, name, address, telephone, open_time, close_time, created_at, updated_at`

func scanSpace(row interface{ Scan(...any) error }) (models.CoworkingSpace, error) {
	var s models.CoworkingSpace
	err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Telephone, &s.OpenTime, &s.CloseTime, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (db *DB) GetSpace(ctx context.Context, id int64) (*models.CoworkingSpace, error) {
	query := `SELECT ` + spaceColumns + ` FROM coworking_spaces WHERE id = ?`
	s, err := scanSpace(db.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get coworking space: %w", err)
	}
	return &s, nil
}

func (db *DB) ListSpaces(ctx context.Context) ([]models.CoworkingSpace, error) {
	query := `SELECT ` + spaceColumns + ` FROM coworking_spaces ORDER BY created_at DESC`
	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list coworking spaces: %w", err)
	}
	defer rows.Close()

	var spaces []models.CoworkingSpace
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coworking space: %w", err)
		}
		spaces = append(spaces, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return spaces, nil
}

func (db *DB) CreateSpace(ctx context.Context, space *models.CoworkingSpace) error {
	now := time.Now().UTC()
	result, err := db.db.ExecContext(ctx,
		`INSERT INTO coworking_spaces (name, address, telephone, open_time, close_time, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		space.Name, space.Address, space.Telephone, space.OpenTime, space.CloseTime, now, now,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create coworking space: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	space.ID = id
	space.CreatedAt = now
	space.UpdatedAt = now
	return nil
}

func (db *DB) UpdateSpace(ctx context.Context, space *models.CoworkingSpace) error {
	now := time.Now().UTC()
	result, err := db.db.ExecContext(ctx,
		`UPDATE coworking_spaces SET name = ?, address = ?, telephone = ?, open_time = ?, close_time = ?, updated_at = ? WHERE id = ?`,
		space.Name, space.Address, space.Telephone, space.OpenTime, space.CloseTime, now, space.ID,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to update coworking space: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	space.UpdatedAt = now
	return nil
}

// DeleteSpaceCascade removes the space and every reservation referencing it
// in one transaction, returning the number of reservations removed. Audit
// entries for those reservations are not touched.
func (db *DB) DeleteSpaceCascade(ctx context.Context, id int64) (int64, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	reservationResult, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE space_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to cascade delete reservations: %w", err)
	}
	removed, _ := reservationResult.RowsAffected()

	spaceResult, err := tx.ExecContext(ctx, `DELETE FROM coworking_spaces WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete coworking space: %w", err)
	}
	rows, _ := spaceResult.RowsAffected()
	if rows == 0 {
		return 0, ErrNotFound
	}

	return removed, tx.Commit()
}
