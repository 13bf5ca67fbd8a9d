package database

import (
	"context"
	"testing"

	"coworkd/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedSpace(t *testing.T, db *DB, name string) *models.CoworkingSpace {
	t.Helper()
	space := &models.CoworkingSpace{
		Name:      name,
		Address:   "123 Sukhumvit Rd, Bangkok",
		Telephone: "0812345678",
		OpenTime:  "09:00",
		CloseTime: "17:00",
	}
	require.NoError(t, db.CreateSpace(context.Background(), space))
	return space
}
