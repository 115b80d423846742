package service

import (
	"context"
	"time"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/helpers"
	"github.com/joeyave/patas-arriba/room"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Broadcaster delivers a frame to the live connections of a room and returns the users of the
// snapshot it delivered to.
type Broadcaster interface {
	Broadcast(ctx context.Context, roomID primitive.ObjectID, frame room.Frame) []primitive.ObjectID
}

// Enqueuer hands a notification job to the background workers without waiting.
type Enqueuer interface {
	Enqueue(job NotificationJob) bool
}

// Room is a resolved and authorized chat room.
type Room struct {
	Type    entity.RelatedType
	ID      primitive.ObjectID
	EventID primitive.ObjectID
	Title   string
}

type MessageService struct {
	stores   Stores
	rooms    Broadcaster
	notifier Enqueuer
}

func NewMessageService(stores Stores, rooms Broadcaster, notifier Enqueuer) *MessageService {
	return &MessageService{
		stores:   stores,
		rooms:    rooms,
		notifier: notifier,
	}
}

// AuthorizeRoom resolves the room and checks that the user may read and write in it: an
// attendee for event rooms, the owner or a passenger for car group rooms. Rooms of a
// cancelled event are closed.
func (s *MessageService) AuthorizeRoom(ctx context.Context, userID primitive.ObjectID, relatedType entity.RelatedType, relatedID primitive.ObjectID) (*Room, error) {
	switch relatedType {
	case entity.RelatedTypeEvent:
		event, err := findEvent(ctx, s.stores.Events, relatedID)
		if err != nil {
			return nil, err
		}
		if event.IsCancelled() {
			return nil, ErrEventCancelled
		}
		err = requireAttendee(ctx, s.stores.Attendees, event.ID, userID)
		if err != nil {
			return nil, err
		}
		return &Room{Type: relatedType, ID: event.ID, EventID: event.ID, Title: event.Title}, nil

	case entity.RelatedTypeCarGroup:
		carGroup, err := findCarGroup(ctx, s.stores.CarGroups, relatedID)
		if err != nil {
			return nil, err
		}
		event, err := findEvent(ctx, s.stores.Events, carGroup.EventID)
		if err != nil {
			return nil, err
		}
		if event.IsCancelled() {
			return nil, ErrEventCancelled
		}
		if !carGroup.HasMember(userID) {
			return nil, ErrNotRoomMember
		}
		return &Room{Type: relatedType, ID: carGroup.ID, EventID: event.ID, Title: "Car group · " + event.Title}, nil
	}

	return nil, ErrInvalidRelatedType
}

// CreateMessage stores the message, broadcasts it to the room and queues push notifications
// for eligible users who were not in the broadcast snapshot. It never waits for delivery.
func (s *MessageService) CreateMessage(ctx context.Context, senderID primitive.ObjectID, relatedType entity.RelatedType, relatedID primitive.ObjectID, text string) (*entity.Message, error) {
	text = helpers.CleanText(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if helpers.RuneLen(text) > helpers.MessageMaxLength {
		return nil, ErrMessageTooLong
	}

	chatRoom, err := s.AuthorizeRoom(ctx, senderID, relatedType, relatedID)
	if err != nil {
		return nil, err
	}

	message := &entity.Message{
		Text:        text,
		SenderID:    senderID,
		RelatedType: chatRoom.Type,
		RelatedID:   chatRoom.ID,
		EventID:     chatRoom.EventID,
	}

	err = s.stores.Messages.Insert(ctx, message)
	if err != nil {
		return nil, err
	}

	connected := s.rooms.Broadcast(ctx, chatRoom.ID, room.Frame{Type: room.FrameChatMessage, Data: message})

	queued := s.notifier.Enqueue(NotificationJob{
		RelatedType: chatRoom.Type,
		RelatedID:   chatRoom.ID,
		SenderID:    senderID,
		Title:       chatRoom.Title,
		Text:        text,
		Exclude:     append(connected, senderID),
	})
	if !queued {
		log.Warn().Str("message", message.ID.Hex()).Msg("Notification queue full, push skipped")
	}

	return message, nil
}

// DeleteMessage soft deletes the message. Only the sender or an admin may delete it.
// The deletion is broadcast to the room but never pushed.
func (s *MessageService) DeleteMessage(ctx context.Context, actor entity.Actor, messageID primitive.ObjectID) (*entity.Message, error) {
	message, err := s.stores.Messages.FindOneByID(ctx, messageID)
	if err != nil {
		return nil, notFound(err, ErrMessageNotFound)
	}

	if message.SenderID != actor.UserID && !actor.Role.IsAdmin() {
		return nil, ErrNotMessageSender
	}

	if !message.IsDeleted {
		message, err = s.stores.Messages.SoftDeleteOneByID(ctx, messageID, entity.DeletedMessageText)
		if err != nil {
			return nil, notFound(err, ErrMessageNotFound)
		}
	}

	s.rooms.Broadcast(ctx, message.RelatedID, room.Frame{Type: room.FrameMessageDelete, Data: message})

	return message, nil
}

// ListMessages pages backwards through the room history, newest first.
func (s *MessageService) ListMessages(ctx context.Context, userID primitive.ObjectID, relatedType entity.RelatedType, relatedID primitive.ObjectID, before time.Time, limit int) ([]*entity.Message, error) {
	chatRoom, err := s.AuthorizeRoom(ctx, userID, relatedType, relatedID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = helpers.MessagesPageSize
	}
	if limit > helpers.MessagesMaxPageSize {
		limit = helpers.MessagesMaxPageSize
	}

	return s.stores.Messages.FindManyByRelatedID(ctx, chatRoom.ID, before.UTC(), limit)
}
