package domain

import (
	"context"
	"time"

	"coworkd/internal/models"
)

// ReservationRepository is the persistence contract for the booking engine.
// The transactional mutators run their rule checks and the write atomically;
// they return the conflicting reservations when the overlap check fails.
type ReservationRepository interface {
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	CreateReservation(ctx context.Context, r *models.Reservation, quota int) ([]models.Reservation, error)
	UpdateReservationWindow(ctx context.Context, id, version int64, start, end time.Time, actorID int64) ([]models.Reservation, error)
	DeleteReservation(ctx context.Context, id, actorID int64) error
	FindOverlapping(ctx context.Context, spaceID int64, roomNumber int, start, end time.Time, excludeID int64) ([]models.Reservation, error)
	SearchByTime(ctx context.Context, start, end time.Time) ([]models.Reservation, error)
	ListReservations(ctx context.Context) ([]models.Reservation, error)
	ListReservationsByUser(ctx context.Context, userID int64) ([]models.Reservation, error)
	CountReservationsByUser(ctx context.Context, userID int64) (int, error)
}

type SpaceRepository interface {
	GetSpace(ctx context.Context, id int64) (*models.CoworkingSpace, error)
	ListSpaces(ctx context.Context) ([]models.CoworkingSpace, error)
	CreateSpace(ctx context.Context, space *models.CoworkingSpace) error
	UpdateSpace(ctx context.Context, space *models.CoworkingSpace) error
	DeleteSpaceCascade(ctx context.Context, id int64) (int64, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuditReader interface {
	ListAuditEntries(ctx context.Context) ([]models.AuditLogEntry, error)
	ListAuditEntriesByReservation(ctx context.Context, reservationID int64) ([]models.AuditLogEntry, error)
}

// EventPublisher fans mutation events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SnapshotScheduler requests an export snapshot after a mutation. Requests
// may be coalesced; enqueue failures must not fail the triggering operation.
type SnapshotScheduler interface {
	EnqueueSnapshot(ctx context.Context) error
}

// TokenStore tracks revoked access token ids until their natural expiry.
type TokenStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
