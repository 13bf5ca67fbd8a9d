package service

import (
	"context"
	"testing"
	"time"

	"coworkd/internal/booking"
	"coworkd/internal/database"
	"coworkd/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newSpaceService(t *testing.T) (*SpaceService, *database.DB) {
	t.Helper()
	logger := zerolog.Nop()
	db := newTestDB(t)
	return NewSpaceService(db, nil, nil, &logger), db
}

func validSpace() *models.CoworkingSpace {
	return &models.CoworkingSpace{
		Name:      "The Hive",
		Address:   "123 Sukhumvit Rd, Bangkok",
		Telephone: "0812345678",
		OpenTime:  "09:00",
		CloseTime: "17:00",
	}
}

func TestSpaceServiceCreate(t *testing.T) {
	svc, _ := newSpaceService(t)
	ctx := context.Background()

	space := validSpace()
	require.NoError(t, svc.Create(ctx, space))
	assert.NotZero(t, space.ID)

	got, err := svc.Get(ctx, space.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Hive", got.Name)
}

func TestSpaceServiceValidation(t *testing.T) {
	svc, _ := newSpaceService(t)
	ctx := context.Background()

	long := make([]byte, 51)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name   string
		mutate func(*models.CoworkingSpace)
	}{
		{"missing name", func(s *models.CoworkingSpace) { s.Name = "  " }},
		{"name too long", func(s *models.CoworkingSpace) { s.Name = string(long) }},
		{"missing address", func(s *models.CoworkingSpace) { s.Address = "" }},
		{"bad telephone", func(s *models.CoworkingSpace) { s.Telephone = "12345" }},
		{"landline telephone", func(s *models.CoworkingSpace) { s.Telephone = "021234567" }},
		{"bad hours format", func(s *models.CoworkingSpace) { s.OpenTime = "9am" }},
		{"close before open", func(s *models.CoworkingSpace) { s.OpenTime, s.CloseTime = "17:00", "09:00" }},
		{"overnight hours", func(s *models.CoworkingSpace) { s.OpenTime, s.CloseTime = "22:00", "06:00" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			space := validSpace()
			tt.mutate(space)
			var validationErr *ValidationError
			assert.ErrorAs(t, svc.Create(ctx, space), &validationErr)
		})
	}
}

func TestSpaceServiceTelephoneFormats(t *testing.T) {
	svc, _ := newSpaceService(t)
	ctx := context.Background()

	valid := []string{"0812345678", "0912345678", "0612345678", "+66812345678", "66812345678"}
	for i, tel := range valid {
		space := validSpace()
		space.Name = space.Name + string(rune('A'+i))
		space.Telephone = tel
		assert.NoError(t, svc.Create(ctx, space), tel)
	}
}

func TestSpaceServiceDuplicateName(t *testing.T) {
	svc, _ := newSpaceService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, validSpace()))

	var validationErr *ValidationError
	err := svc.Create(ctx, validSpace())
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Error(), "already exists")
}

func TestSpaceServiceUpdateAndDelete(t *testing.T) {
	svc, db := newSpaceService(t)
	ctx := context.Background()

	space := validSpace()
	require.NoError(t, svc.Create(ctx, space))

	space.CloseTime = "18:00"
	require.NoError(t, svc.Update(ctx, space))

	missing := validSpace()
	missing.ID = 9999
	missing.Name = "Ghost"
	assert.ErrorIs(t, svc.Update(ctx, missing), booking.ErrSpaceNotFound)

	// Delete cascades to the space's reservations.
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r := &models.Reservation{UserID: 1, SpaceID: space.ID, RoomNumber: 1,
		StartTime: start, EndTime: start.Add(2 * time.Hour)}
	_, err := db.CreateReservation(ctx, r, 0)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, space.ID))
	_, err = svc.Get(ctx, space.ID)
	assert.ErrorIs(t, err, booking.ErrSpaceNotFound)
	_, err = db.GetReservation(ctx, r.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, space.ID), booking.ErrSpaceNotFound)
}
