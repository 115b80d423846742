package service

import (
	"context"
	"testing"
	"time"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/push"
	"github.com/joeyave/patas-arriba/repository/memstore"
	"github.com/joeyave/patas-arriba/room"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	db     *memstore.DB
	stores Stores

	events        *EventService
	attendees     *AttendeeService
	carGroups     *CarGroupService
	registry      *room.Registry
	notifications *NotificationService
	messages      *MessageService
}

func newFixture(t *testing.T, sender push.Sender) *fixture {
	t.Helper()

	db := memstore.New()
	stores := Stores{
		Events:            db.Events(),
		Attendees:         db.Attendees(),
		CarGroups:         db.CarGroups(),
		Messages:          db.Messages(),
		PushSubscriptions: db.PushSubscriptions(),
		Users:             db.Users(),
	}

	registry := room.NewRegistry(4)
	notifications := NewNotificationService(stores, sender, NotificationConfig{Workers: 1, QueueSize: 16, Parallelism: 4})

	return &fixture{
		db:            db,
		stores:        stores,
		events:        NewEventService(stores, entity.PermissiveStatusPolicy),
		attendees:     NewAttendeeService(stores),
		carGroups:     NewCarGroupService(stores),
		registry:      registry,
		notifications: notifications,
		messages:      NewMessageService(stores, registry, notifications),
	}
}

// openEvent stores an open event tomorrow with car organization and task assignments.
func (f *fixture) openEvent(t *testing.T, modify ...func(*entity.Event)) *entity.Event {
	t.Helper()

	event := &entity.Event{
		ID:                 primitive.NewObjectID(),
		Title:              "Recogida de pienso",
		Category:           entity.EventCategoryCollection,
		Location:           "Valencia",
		Date:               time.Now().UTC().Add(24 * time.Hour),
		HasCarOrganization: true,
		HasTaskAssignments: true,
		Status:             entity.EventStatusOpen,
	}
	for _, m := range modify {
		m(event)
	}
	f.db.PutEvent(event)
	return event
}

func (f *fixture) user(t *testing.T, firstName string) primitive.ObjectID {
	t.Helper()

	user := &entity.User{ID: primitive.NewObjectID(), FirstName: firstName, Role: entity.RoleUser}
	f.db.PutUser(user)
	return user.ID
}

func (f *fixture) join(t *testing.T, eventID primitive.ObjectID, userIDs ...primitive.ObjectID) {
	t.Helper()

	for _, userID := range userIDs {
		_, err := f.attendees.JoinEvent(context.Background(), eventID, userID)
		require.NoError(t, err)
	}
}

func (f *fixture) carGroup(t *testing.T, eventID, ownerID primitive.ObjectID, capacity int, passengers ...primitive.ObjectID) *entity.CarGroup {
	t.Helper()

	ctx := context.Background()
	carGroup, err := f.carGroups.CreateCarGroup(ctx, eventID, ownerID, entity.CarGroupDetails{
		PickupLocation: "Plaza del Ayuntamiento",
		RoomAvailable:  capacity,
	})
	require.NoError(t, err)

	for _, passengerID := range passengers {
		carGroup, err = f.carGroups.JoinCarGroup(ctx, carGroup.ID, passengerID)
		require.NoError(t, err)
	}
	return carGroup
}

func (f *fixture) subscribe(t *testing.T, userID primitive.ObjectID, endpoint string) *entity.PushSubscription {
	t.Helper()

	subscription, err := f.stores.PushSubscriptions.Upsert(context.Background(), entity.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		Keys:     entity.PushKeys{P256dh: "p256dh", Auth: "auth"},
	})
	require.NoError(t, err)
	return subscription
}

// nextJob takes the next queued notification job. The workers are not running in tests.
func (f *fixture) nextJob(t *testing.T) NotificationJob {
	t.Helper()

	select {
	case job := <-f.notifications.jobs:
		return job
	default:
		t.Fatal("no notification job queued")
		return NotificationJob{}
	}
}
