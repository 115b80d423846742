package service

import (
	"context"
	"errors"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/repository"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// notFound swaps a store miss for the given engine error.
func notFound(err error, sentinel *Error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}

func findEvent(ctx context.Context, events EventStore, ID primitive.ObjectID) (*entity.Event, error) {
	event, err := events.FindOneByID(ctx, ID)
	if err != nil {
		return nil, notFound(err, ErrEventNotFound)
	}
	return event, nil
}

func findCarGroup(ctx context.Context, carGroups CarGroupStore, ID primitive.ObjectID) (*entity.CarGroup, error) {
	carGroup, err := carGroups.FindOneByID(ctx, ID)
	if err != nil {
		return nil, notFound(err, ErrCarGroupNotFound)
	}
	return carGroup, nil
}

func requireAttendee(ctx context.Context, attendees AttendeeStore, eventID, userID primitive.ObjectID) error {
	_, err := attendees.FindOneByEventIDAndUserID(ctx, eventID, userID)
	if err != nil {
		return notFound(err, ErrNotAttendee)
	}
	return nil
}

// deleteMessagesOf removes the chat history of the given rooms. Failures are logged only.
func deleteMessagesOf(ctx context.Context, messages MessageStore, relatedIDs ...primitive.ObjectID) {
	deleted, err := messages.DeleteManyByRelatedIDs(ctx, relatedIDs)
	if err != nil {
		log.Error().Err(err).Int("rooms", len(relatedIDs)).Msg("Failed to delete messages")
		return
	}
	log.Debug().Int64("deleted", deleted).Int("rooms", len(relatedIDs)).Msg("Messages deleted")
}

// releaseCarGroups leaves the user with no car group ownership and no seat in the event.
// Both steps always run. Failures are logged only.
func releaseCarGroups(ctx context.Context, stores Stores, eventID, userID primitive.ObjectID) {
	owned, err := stores.CarGroups.DeleteOneByEventIDAndOwnerID(ctx, eventID, userID)
	switch {
	case err == nil:
		deleteMessagesOf(ctx, stores.Messages, owned.ID)
	case errors.Is(err, repository.ErrNotFound):
	default:
		log.Error().Err(err).
			Str("event", eventID.Hex()).
			Str("user", userID.Hex()).
			Msg("Failed to delete owned car group")
	}

	_, err = stores.CarGroups.RemovePassengerByEventID(ctx, eventID, userID)
	if err != nil {
		log.Error().Err(err).
			Str("event", eventID.Hex()).
			Str("user", userID.Hex()).
			Msg("Failed to remove passenger from car groups")
	}
}
