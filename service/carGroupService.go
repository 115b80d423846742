package service

import (
	"context"
	"errors"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/helpers"
	"github.com/joeyave/patas-arriba/repository"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CarGroupService struct {
	stores Stores
}

func NewCarGroupService(stores Stores) *CarGroupService {
	return &CarGroupService{
		stores: stores,
	}
}

func (s *CarGroupService) CreateCarGroup(ctx context.Context, eventID, userID primitive.ObjectID, details entity.CarGroupDetails) (*entity.CarGroup, error) {
	event, err := findEvent(ctx, s.stores.Events, eventID)
	if err != nil {
		return nil, err
	}

	switch {
	case !event.HasCarOrganization:
		return nil, ErrCarOrganizationUnavailable
	case event.IsCancelled():
		return nil, ErrEventCancelled
	case !event.IsOpen():
		return nil, ErrEventClosed
	}

	err = requireAttendee(ctx, s.stores.Attendees, eventID, userID)
	if err != nil {
		return nil, err
	}

	inGroup, err := s.stores.CarGroups.ExistsByEventIDAndMember(ctx, eventID, userID, primitive.NilObjectID)
	if err != nil {
		return nil, err
	}
	if inGroup {
		return nil, ErrAlreadyInGroup
	}

	details, err = cleanDetails(details)
	if err != nil {
		return nil, err
	}

	carGroup := &entity.CarGroup{
		EventID:           eventID,
		OwnerID:           userID,
		PickupLocation:    details.PickupLocation,
		PickupCoordinates: details.PickupCoordinates,
		PickupTime:        details.PickupTime,
		RoomAvailable:     details.RoomAvailable,
		Passengers:        []primitive.ObjectID{},
	}

	err = s.stores.CarGroups.Insert(ctx, carGroup)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrAlreadyInGroup
	}
	if err != nil {
		return nil, err
	}

	return carGroup, nil
}

func (s *CarGroupService) GetCarGroup(ctx context.Context, carGroupID primitive.ObjectID) (*entity.CarGroup, error) {
	return findCarGroup(ctx, s.stores.CarGroups, carGroupID)
}

func (s *CarGroupService) ListCarGroups(ctx context.Context, eventID primitive.ObjectID) ([]*entity.CarGroup, error) {
	_, err := findEvent(ctx, s.stores.Events, eventID)
	if err != nil {
		return nil, err
	}
	return s.stores.CarGroups.FindManyByEventID(ctx, eventID)
}

// JoinCarGroup checks the preconditions in a fixed order for precise errors and then claims
// the seat with one conditional update. When the update loses a race the group is read again
// to explain why.
func (s *CarGroupService) JoinCarGroup(ctx context.Context, carGroupID, userID primitive.ObjectID) (*entity.CarGroup, error) {
	carGroup, err := findCarGroup(ctx, s.stores.CarGroups, carGroupID)
	if err != nil {
		return nil, err
	}

	err = joinPrecondition(carGroup, userID)
	if err != nil {
		return nil, err
	}

	event, err := s.stores.Events.FindOneByID(ctx, carGroup.EventID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventUnavailable
	}
	if err != nil {
		return nil, err
	}
	if event.IsCancelled() {
		return nil, ErrEventUnavailable
	}

	err = requireAttendee(ctx, s.stores.Attendees, carGroup.EventID, userID)
	if err != nil {
		return nil, err
	}

	inOtherGroup, err := s.stores.CarGroups.ExistsByEventIDAndMember(ctx, carGroup.EventID, userID, carGroupID)
	if err != nil {
		return nil, err
	}
	if inOtherGroup {
		return nil, ErrAlreadyInGroup
	}

	updated, err := s.stores.CarGroups.AddPassenger(ctx, carGroupID, userID)
	if errors.Is(err, repository.ErrConditionFailed) {
		return nil, s.diagnoseJoin(ctx, carGroupID, userID)
	}
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func joinPrecondition(carGroup *entity.CarGroup, userID primitive.ObjectID) error {
	switch {
	case carGroup.IsCancelled:
		return ErrCarGroupCancelled
	case carGroup.IsFull():
		return ErrCarGroupFull
	case carGroup.IsOwner(userID):
		return ErrSelfOwnership
	case carGroup.IsPassenger(userID):
		return ErrAlreadyMember
	}
	return nil
}

func (s *CarGroupService) diagnoseJoin(ctx context.Context, carGroupID, userID primitive.ObjectID) error {
	carGroup, err := findCarGroup(ctx, s.stores.CarGroups, carGroupID)
	if err != nil {
		return err
	}

	err = joinPrecondition(carGroup, userID)
	if err != nil {
		return err
	}
	// The seat was gone at update time even if one has been freed since.
	return ErrCarGroupFull
}

// LeaveCarGroup is idempotent. Only a missing group is an error.
func (s *CarGroupService) LeaveCarGroup(ctx context.Context, carGroupID, userID primitive.ObjectID) (*entity.CarGroup, error) {
	carGroup, err := s.stores.CarGroups.RemovePassenger(ctx, carGroupID, userID)
	if err != nil {
		return nil, notFound(err, ErrCarGroupNotFound)
	}
	return carGroup, nil
}

func (s *CarGroupService) UpdateCarGroupCapacity(ctx context.Context, carGroupID, userID primitive.ObjectID, capacity int) (*entity.CarGroup, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}

	err := s.requireOwner(ctx, carGroupID, userID)
	if err != nil {
		return nil, err
	}

	carGroup, err := s.stores.CarGroups.UpdateCapacity(ctx, carGroupID, capacity)
	if err != nil {
		return nil, s.capacityError(ctx, carGroupID, err)
	}
	return carGroup, nil
}

// UpdateCarGroup replaces the pickup details. Capacity follows the same rule as UpdateCarGroupCapacity.
func (s *CarGroupService) UpdateCarGroup(ctx context.Context, carGroupID, userID primitive.ObjectID, details entity.CarGroupDetails) (*entity.CarGroup, error) {
	details, err := cleanDetails(details)
	if err != nil {
		return nil, err
	}

	err = s.requireOwner(ctx, carGroupID, userID)
	if err != nil {
		return nil, err
	}

	carGroup, err := s.stores.CarGroups.UpdateDetails(ctx, carGroupID, details)
	if err != nil {
		return nil, s.capacityError(ctx, carGroupID, err)
	}
	return carGroup, nil
}

// DeleteCarGroup removes the group and then, best effort, its chat history.
func (s *CarGroupService) DeleteCarGroup(ctx context.Context, carGroupID, userID primitive.ObjectID) error {
	err := s.requireOwner(ctx, carGroupID, userID)
	if err != nil {
		return err
	}

	err = s.stores.CarGroups.DeleteOneByID(ctx, carGroupID)
	if err != nil {
		return notFound(err, ErrCarGroupNotFound)
	}

	deleteMessagesOf(ctx, s.stores.Messages, carGroupID)

	log.Info().Str("carGroup", carGroupID.Hex()).Str("owner", userID.Hex()).Msg("Car group deleted")
	return nil
}

func (s *CarGroupService) requireOwner(ctx context.Context, carGroupID, userID primitive.ObjectID) error {
	carGroup, err := findCarGroup(ctx, s.stores.CarGroups, carGroupID)
	if err != nil {
		return err
	}
	if !carGroup.IsOwner(userID) {
		return ErrNotCarGroupOwner
	}
	return nil
}

func (s *CarGroupService) capacityError(ctx context.Context, carGroupID primitive.ObjectID, err error) error {
	if !errors.Is(err, repository.ErrConditionFailed) {
		return err
	}
	_, err = findCarGroup(ctx, s.stores.CarGroups, carGroupID)
	if err != nil {
		return err
	}
	return ErrCapacityBelowOccupancy
}

func cleanDetails(details entity.CarGroupDetails) (entity.CarGroupDetails, error) {
	details.PickupLocation = helpers.CleanText(details.PickupLocation)
	if details.PickupLocation == "" || helpers.RuneLen(details.PickupLocation) > helpers.PickupLocationMaxLength {
		return details, ErrInvalidPickup
	}
	if details.PickupCoordinates != nil && len(details.PickupCoordinates) != 2 {
		return details, ErrInvalidPickup
	}
	if details.RoomAvailable < 1 {
		return details, ErrInvalidCapacity
	}
	return details, nil
}
