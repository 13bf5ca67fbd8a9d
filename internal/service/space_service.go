package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"coworkd/internal/booking"
	"coworkd/internal/database"
	"coworkd/internal/domain"
	"coworkd/internal/events"
	"coworkd/internal/models"

	"github.com/rs/zerolog"
)

// ValidationError marks client-correctable input problems.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Thai mobile numbers, matching the format the original records used.
var telephonePattern = regexp.MustCompile(`^(\+66|66)?(08|09|06)\d{8}$`)

// SpaceService manages coworking spaces. Deleting a space cascade-deletes
// its reservations; audit entries for those reservations are kept.
type SpaceService struct {
	spaces   domain.SpaceRepository
	eventBus domain.EventPublisher
	exporter domain.SnapshotScheduler
	logger   *zerolog.Logger
}

func NewSpaceService(spaces domain.SpaceRepository, eventBus domain.EventPublisher, exporter domain.SnapshotScheduler, logger *zerolog.Logger) *SpaceService {
	return &SpaceService{spaces: spaces, eventBus: eventBus, exporter: exporter, logger: logger}
}

func (s *SpaceService) Get(ctx context.Context, id int64) (*models.CoworkingSpace, error) {
	space, err := s.spaces.GetSpace(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, booking.ErrSpaceNotFound
	}
	return space, err
}

func (s *SpaceService) List(ctx context.Context) ([]models.CoworkingSpace, error) {
	return s.spaces.ListSpaces(ctx)
}

func (s *SpaceService) Create(ctx context.Context, space *models.CoworkingSpace) error {
	if err := validateSpace(space); err != nil {
		return err
	}

	err := s.spaces.CreateSpace(ctx, space)
	if errors.Is(err, database.ErrDuplicate) {
		return &ValidationError{Msg: fmt.Sprintf("a coworking space named %q already exists", space.Name)}
	}
	return err
}

func (s *SpaceService) Update(ctx context.Context, space *models.CoworkingSpace) error {
	if err := validateSpace(space); err != nil {
		return err
	}

	err := s.spaces.UpdateSpace(ctx, space)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return booking.ErrSpaceNotFound
	case errors.Is(err, database.ErrDuplicate):
		return &ValidationError{Msg: fmt.Sprintf("a coworking space named %q already exists", space.Name)}
	}
	return err
}

func (s *SpaceService) Delete(ctx context.Context, id int64) error {
	removed, err := s.spaces.DeleteSpaceCascade(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return booking.ErrSpaceNotFound
	}
	if err != nil {
		return err
	}

	s.logger.Info().Int64("space_id", id).Int64("reservations_removed", removed).Msg("coworking space deleted")

	if s.eventBus != nil {
		payload := events.SpaceEventPayload{SpaceID: id, ReservationsRemoved: removed}
		if err := s.eventBus.PublishJSON(events.EventSpaceDeleted, payload); err != nil {
			s.logger.Error().Err(err).Int64("space_id", id).Msg("publish event error")
		}
	}
	if s.exporter != nil {
		if err := s.exporter.EnqueueSnapshot(ctx); err != nil {
			s.logger.Error().Err(err).Msg("export snapshot enqueue error")
		}
	}

	return nil
}

func validateSpace(space *models.CoworkingSpace) error {
	space.Name = strings.TrimSpace(space.Name)
	if space.Name == "" {
		return &ValidationError{Msg: "please add a name"}
	}
	if len(space.Name) > 50 {
		return &ValidationError{Msg: "name can not be more than 50 characters"}
	}
	if strings.TrimSpace(space.Address) == "" {
		return &ValidationError{Msg: "please add an address"}
	}
	if !telephonePattern.MatchString(space.Telephone) {
		return &ValidationError{Msg: "please add a valid telephone number"}
	}
	if _, err := booking.ParseOpeningHours(space.OpenTime, space.CloseTime); err != nil {
		return &ValidationError{Msg: fmt.Sprintf("invalid opening hours: %s must be before %s and both must be HH:mm", space.OpenTime, space.CloseTime)}
	}
	return nil
}
