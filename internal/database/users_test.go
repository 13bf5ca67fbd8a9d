package database

import (
	"context"
	"testing"

	"coworkd/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreateAndLookup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &models.User{
		Name:         "Somchai",
		Email:        "somchai@example.com",
		Telephone:    "0891234567",
		Role:         models.RoleUser,
		PasswordHash: "hash",
	}
	require.NoError(t, db.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)

	byID, err := db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "somchai@example.com", byID.Email)

	byEmail, err := db.GetUserByEmail(ctx, "somchai@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = db.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &models.User{Name: "A", Email: "dup@example.com", Role: models.RoleUser, PasswordHash: "h"}
	require.NoError(t, db.CreateUser(ctx, first))

	second := &models.User{Name: "B", Email: "dup@example.com", Role: models.RoleUser, PasswordHash: "h"}
	assert.ErrorIs(t, db.CreateUser(ctx, second), ErrDuplicate)
}
