package service

import (
	"context"
	"errors"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/repository"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReconcileReport struct {
	Events             int
	OrphanAttendees    int64
	OrphanCarGroups    int64
	OrphanMessages     int64
	AbandonedCarGroups int
	RemovedPassengers  int
}

// MaintenanceService repairs what interrupted cascades and lost races leave behind.
// Every pass is idempotent.
type MaintenanceService struct {
	stores Stores
}

func NewMaintenanceService(stores Stores) *MaintenanceService {
	return &MaintenanceService{
		stores: stores,
	}
}

// Reconcile removes records of deleted events, deletes car groups whose owner left the
// event and pulls passengers who are no longer attendees, own a group or sit in more than
// one group of the same event. It runs against a live store, so records are only removed
// after their event or owner is confirmed missing.
func (s *MaintenanceService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	eventIDs, err := s.stores.Events.FindAllIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{Events: len(eventIDs)}

	sweeps := []struct {
		name     string
		find     func(ctx context.Context) ([]primitive.ObjectID, error)
		delete   func(ctx context.Context, eventID primitive.ObjectID) (int64, error)
		reported *int64
	}{
		{"attendees", s.stores.Attendees.FindDistinctEventIDs, s.stores.Attendees.DeleteManyByEventID, &report.OrphanAttendees},
		{"carGroups", s.stores.CarGroups.FindDistinctEventIDs, s.stores.CarGroups.DeleteManyByEventID, &report.OrphanCarGroups},
		{"messages", s.stores.Messages.FindDistinctEventIDs, s.stores.Messages.DeleteManyByEventID, &report.OrphanMessages},
	}

	for _, sweep := range sweeps {
		referenced, err := sweep.find(ctx)
		if err != nil {
			return report, err
		}

		for _, eventID := range referenced {
			_, err := s.stores.Events.FindOneByID(ctx, eventID)
			if err == nil {
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return report, err
			}

			deleted, err := sweep.delete(ctx, eventID)
			if err != nil {
				return report, err
			}
			*sweep.reported += deleted
			log.Info().Str("event", eventID.Hex()).Str("collection", sweep.name).Int64("deleted", deleted).Msg("Removed records of deleted event")
		}
	}

	for _, eventID := range eventIDs {
		err := s.reconcileEvent(ctx, eventID, report)
		if err != nil {
			log.Error().Err(err).Str("event", eventID.Hex()).Msg("Failed to reconcile event")
		}
	}

	return report, nil
}

// reconcileEvent reads car groups before attendees: a user who joins and takes a seat in
// between shows up as an attendee, while a group created after the read is not looked at.
func (s *MaintenanceService) reconcileEvent(ctx context.Context, eventID primitive.ObjectID, report *ReconcileReport) error {
	carGroups, err := s.stores.CarGroups.FindManyByEventID(ctx, eventID)
	if err != nil {
		return err
	}
	attendees, err := s.stores.Attendees.FindUserIDsByEventID(ctx, eventID)
	if err != nil {
		return err
	}

	kept := make([]*entity.CarGroup, 0, len(carGroups))
	for _, carGroup := range carGroups {
		if lo.Contains(attendees, carGroup.OwnerID) {
			kept = append(kept, carGroup)
			continue
		}
		abandoned, err := s.ownerLeft(ctx, carGroup)
		if err != nil {
			log.Error().Err(err).Str("carGroup", carGroup.ID.Hex()).Msg("Failed to check car group owner")
			continue
		}
		if !abandoned {
			kept = append(kept, carGroup)
			continue
		}
		err = s.stores.CarGroups.DeleteOneByID(ctx, carGroup.ID)
		if err != nil {
			log.Error().Err(err).Str("carGroup", carGroup.ID.Hex()).Msg("Failed to delete abandoned car group")
			continue
		}
		deleteMessagesOf(ctx, s.stores.Messages, carGroup.ID)
		report.AbandonedCarGroups++
	}

	owners := lo.Map(kept, func(carGroup *entity.CarGroup, _ int) primitive.ObjectID {
		return carGroup.OwnerID
	})

	// Groups are ordered by creation, so the earliest seat of a user wins.
	seated := map[primitive.ObjectID]struct{}{}
	for _, carGroup := range kept {
		for _, passenger := range carGroup.Passengers {
			_, alreadySeated := seated[passenger]
			valid := lo.Contains(attendees, passenger) && !lo.Contains(owners, passenger) && !alreadySeated
			if valid {
				seated[passenger] = struct{}{}
				continue
			}

			_, err := s.stores.CarGroups.RemovePassenger(ctx, carGroup.ID, passenger)
			if err != nil {
				log.Error().Err(err).
					Str("carGroup", carGroup.ID.Hex()).
					Str("user", passenger.Hex()).
					Msg("Failed to remove invalid passenger")
				continue
			}
			report.RemovedPassengers++
		}
	}

	return nil
}

// ownerLeft confirms with a fresh read that the owner no longer attends the event.
func (s *MaintenanceService) ownerLeft(ctx context.Context, carGroup *entity.CarGroup) (bool, error) {
	_, err := s.stores.Attendees.FindOneByEventIDAndUserID(ctx, carGroup.EventID, carGroup.OwnerID)
	if errors.Is(err, repository.ErrNotFound) {
		return true, nil
	}
	return false, err
}
