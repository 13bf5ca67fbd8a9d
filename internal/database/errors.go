package database

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound               = errors.New("record not found")
	ErrDuplicate              = errors.New("record already exists")
	ErrQuotaExceeded          = errors.New("reservation quota exceeded")
	ErrTimeConflict           = errors.New("reservation time conflict")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
