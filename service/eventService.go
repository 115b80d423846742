package service

import (
	"context"
	"errors"
	"time"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/helpers"
	"github.com/joeyave/patas-arriba/repository"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventService struct {
	stores Stores
	policy entity.StatusPolicy
}

func NewEventService(stores Stores, policy entity.StatusPolicy) *EventService {
	if policy == nil {
		policy = entity.PermissiveStatusPolicy
	}
	return &EventService{
		stores: stores,
		policy: policy,
	}
}

func (s *EventService) CreateEvent(ctx context.Context, ownerID primitive.ObjectID, draft entity.EventDraft) (*entity.Event, error) {
	title := helpers.CleanText(draft.Title)
	location := helpers.CleanText(draft.Location)

	if title == "" || helpers.RuneLen(title) > helpers.EventTitleMaxLength ||
		location == "" || helpers.RuneLen(location) > helpers.EventLocationMaxLength ||
		draft.Date.IsZero() {
		return nil, ErrInvalidEvent
	}

	category := draft.Category
	if category == "" {
		category = entity.EventCategoryOther
	}
	if !category.Valid() {
		return nil, ErrInvalidEvent
	}

	event := &entity.Event{
		Title:              title,
		Category:           category,
		Description:        draft.Description,
		Location:           location,
		Date:               draft.Date.UTC(),
		HasCarOrganization: draft.HasCarOrganization,
		HasTaskAssignments: draft.HasTaskAssignments,
		Status:             entity.EventStatusOpen,
		OwnerID:            ownerID,
	}

	err := s.stores.Events.Insert(ctx, event)
	if err != nil {
		return nil, err
	}

	return event, nil
}

// GetEvent returns the event together with its car groups.
func (s *EventService) GetEvent(ctx context.Context, eventID primitive.ObjectID) (*entity.Event, error) {
	event, err := s.stores.Events.FindOneWithCarGroupsByID(ctx, eventID)
	if err != nil {
		return nil, notFound(err, ErrEventNotFound)
	}
	return event, nil
}

func (s *EventService) ListUpcomingEvents(ctx context.Context) ([]*entity.Event, error) {
	startOfDayUTC := time.Now().UTC().Truncate(24 * time.Hour)
	return s.stores.Events.FindManyFromDate(ctx, startOfDayUTC)
}

// TransitionEventStatus applies the status policy. Setting the current status again is a no-op.
// Cancelling marks every car group of the event cancelled, reopening clears the mark.
func (s *EventService) TransitionEventStatus(ctx context.Context, eventID primitive.ObjectID, status entity.EventStatus) (*entity.Event, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	event, err := findEvent(ctx, s.stores.Events, eventID)
	if err != nil {
		return nil, err
	}

	from := event.Status
	if from == status {
		return event, nil
	}
	if !s.policy.Allows(from, status) {
		return nil, ErrTransitionNotAllowed
	}

	event, err = s.stores.Events.UpdateStatus(ctx, eventID, from, status)
	if errors.Is(err, repository.ErrConditionFailed) {
		return nil, ErrStatusChanged
	}
	if err != nil {
		return nil, err
	}

	if status == entity.EventStatusCancelled || from == entity.EventStatusCancelled {
		cancelled := status == entity.EventStatusCancelled
		_, err = s.stores.CarGroups.SetCancelledByEventID(ctx, eventID, cancelled)
		if err != nil {
			log.Error().Err(err).
				Str("event", eventID.Hex()).
				Bool("cancelled", cancelled).
				Msg("Failed to propagate cancellation to car groups")
		}
	}

	log.Info().
		Str("event", eventID.Hex()).
		Str("from", string(from)).
		Str("to", string(status)).
		Msg("Event status changed")

	return event, nil
}

type sagaStep struct {
	name string
	run  func(ctx context.Context) error
}

// DeleteEvent cascades in dependency order: attendees, car groups, every message of the event
// and of its car groups, and finally the event. Every step is idempotent and nothing is rolled
// back. Only a failure of the last step is returned.
func (s *EventService) DeleteEvent(ctx context.Context, eventID primitive.ObjectID) error {
	_, err := findEvent(ctx, s.stores.Events, eventID)
	if err != nil {
		return err
	}

	var carGroups int64
	steps := []sagaStep{
		{name: "attendees", run: func(ctx context.Context) error {
			_, err := s.stores.Attendees.DeleteManyByEventID(ctx, eventID)
			return err
		}},
		{name: "carGroups", run: func(ctx context.Context) error {
			var err error
			carGroups, err = s.stores.CarGroups.DeleteManyByEventID(ctx, eventID)
			return err
		}},
		{name: "messages", run: func(ctx context.Context) error {
			_, err := s.stores.Messages.DeleteManyByEventID(ctx, eventID)
			return err
		}},
	}

	for _, step := range steps {
		err := step.run(ctx)
		if err != nil {
			log.Error().Err(err).
				Str("event", eventID.Hex()).
				Str("step", step.name).
				Msg("Event cascade step failed")
		}
	}

	err = s.stores.Events.DeleteOneByID(ctx, eventID)
	if err != nil {
		return notFound(err, ErrEventNotFound)
	}

	log.Info().Str("event", eventID.Hex()).Int64("carGroups", carGroups).Msg("Event deleted")
	return nil
}
