package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coworkd/internal/database"
	"coworkd/internal/domain"
	"coworkd/internal/events"
	"coworkd/internal/metrics"
	"coworkd/internal/models"

	"github.com/rs/zerolog"
)

// Actor is the pre-resolved identity a request acts as. The engine never
// authenticates; it only authorizes with these values.
type Actor struct {
	ID   int64
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// canModify is the single capability check for mutations on an existing
// reservation: the owner or an admin.
func canModify(actor Actor, r *models.Reservation) bool {
	return actor.ID == r.UserID || actor.IsAdmin()
}

// Config carries the engine's tunables.
type Config struct {
	// Location is the zone opening hours are evaluated in.
	Location *time.Location
	// Quota caps concurrent reservations per non-admin user.
	Quota int
}

// Service orchestrates the reservation lifecycle: it evaluates the
// opening-hours, quota and overlap policies in order, persists the mutation,
// and emits the audit trail (written by the repository in the same
// transaction as the mutation).
type Service struct {
	reservations domain.ReservationRepository
	spaces       domain.SpaceRepository
	eventBus     domain.EventPublisher
	exporter     domain.SnapshotScheduler
	loc          *time.Location
	quota        int
	logger       *zerolog.Logger
}

func NewService(reservations domain.ReservationRepository, spaces domain.SpaceRepository, eventBus domain.EventPublisher, exporter domain.SnapshotScheduler, cfg Config, logger *zerolog.Logger) *Service {
	loc := cfg.Location
	if loc == nil {
		loc, _ = time.LoadLocation(models.DefaultTimezone)
	}
	quota := cfg.Quota
	if quota <= 0 {
		quota = models.ReservationQuota
	}
	return &Service{
		reservations: reservations,
		spaces:       spaces,
		eventBus:     eventBus,
		exporter:     exporter,
		loc:          loc,
		quota:        quota,
		logger:       logger,
	}
}

// Create books a room in a space for the actor. Checks run in a fixed order:
// space existence, opening hours, quota (non-admins only), overlap. The
// repository runs quota+overlap and the insert atomically, so a rejected
// request writes nothing.
func (s *Service) Create(ctx context.Context, actor Actor, spaceID int64, roomNumber int, w Window) (*models.Reservation, error) {
	space, err := s.spaces.GetSpace(ctx, spaceID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, s.reject(models.ActionCreate, ErrSpaceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load coworking space: %w", err)
	}

	if err := s.checkHours(space, w); err != nil {
		return nil, s.reject(models.ActionCreate, err)
	}

	quota := s.quota
	if actor.IsAdmin() {
		quota = 0
	}

	reservation := &models.Reservation{
		UserID:     actor.ID,
		SpaceID:    spaceID,
		RoomNumber: roomNumber,
		StartTime:  w.Start(),
		EndTime:    w.End(),
	}

	conflicts, err := s.reservations.CreateReservation(ctx, reservation, quota)
	switch {
	case errors.Is(err, database.ErrQuotaExceeded):
		return nil, s.reject(models.ActionCreate, &QuotaExceededError{UserID: actor.ID, Limit: s.quota})
	case errors.Is(err, database.ErrTimeConflict):
		return nil, s.reject(models.ActionCreate, &ConflictError{Conflicts: conflicts})
	case err != nil:
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	metrics.IncReservationOp(models.ActionCreate, "ok")
	s.publish(events.EventReservationCreated, reservation, actor.ID)
	s.enqueueSnapshot(ctx)

	return reservation, nil
}

// Update replaces a reservation's window after re-validating hours and
// overlap (excluding the reservation itself). Space and room number are not
// mutable. Lost races against a concurrent update surface as
// database.ErrConcurrentModification.
func (s *Service) Update(ctx context.Context, actor Actor, id int64, w Window) (*models.Reservation, error) {
	reservation, err := s.load(ctx, id)
	if err != nil {
		return nil, s.reject(models.ActionUpdate, err)
	}

	if !canModify(actor, reservation) {
		return nil, s.reject(models.ActionUpdate, ErrForbidden)
	}

	space, err := s.spaces.GetSpace(ctx, reservation.SpaceID)
	if errors.Is(err, database.ErrNotFound) {
		// Data-integrity fault: the reservation points at a missing space.
		return nil, s.reject(models.ActionUpdate, ErrSpaceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load coworking space: %w", err)
	}

	if err := s.checkHours(space, w); err != nil {
		return nil, s.reject(models.ActionUpdate, err)
	}

	conflicts, err := s.reservations.UpdateReservationWindow(ctx, id, reservation.Version, w.Start(), w.End(), actor.ID)
	switch {
	case errors.Is(err, database.ErrTimeConflict):
		return nil, s.reject(models.ActionUpdate, &ConflictError{Conflicts: conflicts})
	case errors.Is(err, database.ErrNotFound):
		return nil, s.reject(models.ActionUpdate, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("update reservation: %w", err)
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload reservation: %w", err)
	}

	metrics.IncReservationOp(models.ActionUpdate, "ok")
	s.publish(events.EventReservationUpdated, updated, actor.ID)
	s.enqueueSnapshot(ctx)

	return updated, nil
}

// Delete removes a reservation. No window re-validation; the audit entry is
// still produced.
func (s *Service) Delete(ctx context.Context, actor Actor, id int64) error {
	reservation, err := s.load(ctx, id)
	if err != nil {
		return s.reject(models.ActionDelete, err)
	}

	if !canModify(actor, reservation) {
		return s.reject(models.ActionDelete, ErrForbidden)
	}

	if err := s.reservations.DeleteReservation(ctx, id, actor.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return s.reject(models.ActionDelete, ErrNotFound)
		}
		return fmt.Errorf("delete reservation: %w", err)
	}

	metrics.IncReservationOp(models.ActionDelete, "ok")
	s.publish(events.EventReservationDeleted, reservation, actor.ID)
	s.enqueueSnapshot(ctx)

	return nil
}

// Get returns one reservation by id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.load(ctx, id)
}

// List returns the actor's reservations, or all of them for admins.
func (s *Service) List(ctx context.Context, actor Actor) ([]models.Reservation, error) {
	if actor.IsAdmin() {
		return s.reservations.ListReservations(ctx)
	}
	return s.reservations.ListReservationsByUser(ctx, actor.ID)
}

// SearchByTime returns every reservation, regardless of scope, whose
// interval overlaps the window.
func (s *Service) SearchByTime(ctx context.Context, w Window) ([]models.Reservation, error) {
	return s.reservations.SearchByTime(ctx, w.Start(), w.End())
}

func (s *Service) load(ctx context.Context, id int64) (*models.Reservation, error) {
	reservation, err := s.reservations.GetReservation(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load reservation: %w", err)
	}
	return reservation, nil
}

func (s *Service) checkHours(space *models.CoworkingSpace, w Window) error {
	hours, err := ParseOpeningHours(space.OpenTime, space.CloseTime)
	if err != nil {
		return fmt.Errorf("space %d has invalid opening hours: %w", space.ID, err)
	}
	if !hours.Contains(w, s.loc) {
		return &OutOfHoursError{OpenTime: space.OpenTime, CloseTime: space.CloseTime}
	}
	return nil
}

func (s *Service) reject(action string, err error) error {
	metrics.IncReservationOp(action, "rejected")
	return err
}

func (s *Service) publish(eventType string, r *models.Reservation, actorID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		UserID:        r.UserID,
		SpaceID:       r.SpaceID,
		RoomNumber:    r.RoomNumber,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		ActorID:       actorID,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", r.ID).Msg("publish event error")
	}
}

func (s *Service) enqueueSnapshot(ctx context.Context) {
	if s.exporter == nil {
		return
	}
	if err := s.exporter.EnqueueSnapshot(ctx); err != nil {
		s.logger.Error().Err(err).Msg("export snapshot enqueue error")
	}
}
