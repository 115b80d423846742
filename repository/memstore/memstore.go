// Package memstore is an in-process Membership Store. It mirrors the conditional update and
// unique index semantics of the Mongo repositories and backs tests and local runs without a
// database.
package memstore

import (
	"sync"

	"github.com/joeyave/patas-arriba/entity"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slices"
)

// DB holds every collection behind one mutex, which makes each method a single atomic step.
type DB struct {
	mu sync.Mutex

	events            map[primitive.ObjectID]*entity.Event
	attendees         map[primitive.ObjectID]*entity.Attendee
	carGroups         map[primitive.ObjectID]*entity.CarGroup
	messages          map[primitive.ObjectID]*entity.Message
	pushSubscriptions map[primitive.ObjectID]*entity.PushSubscription
	users             map[primitive.ObjectID]*entity.User
}

func New() *DB {
	return &DB{
		events:            map[primitive.ObjectID]*entity.Event{},
		attendees:         map[primitive.ObjectID]*entity.Attendee{},
		carGroups:         map[primitive.ObjectID]*entity.CarGroup{},
		messages:          map[primitive.ObjectID]*entity.Message{},
		pushSubscriptions: map[primitive.ObjectID]*entity.PushSubscription{},
		users:             map[primitive.ObjectID]*entity.User{},
	}
}

func (db *DB) Events() *EventStore {
	return &EventStore{db: db}
}

func (db *DB) Attendees() *AttendeeStore {
	return &AttendeeStore{db: db}
}

func (db *DB) CarGroups() *CarGroupStore {
	return &CarGroupStore{db: db}
}

func (db *DB) Messages() *MessageStore {
	return &MessageStore{db: db}
}

func (db *DB) PushSubscriptions() *PushSubscriptionStore {
	return &PushSubscriptionStore{db: db}
}

func (db *DB) Users() *UserStore {
	return &UserStore{db: db}
}

func cloneEvent(e *entity.Event) *entity.Event {
	c := *e
	c.CarGroups = nil
	return &c
}

func cloneAttendee(a *entity.Attendee) *entity.Attendee {
	c := *a
	return &c
}

func cloneCarGroup(g *entity.CarGroup) *entity.CarGroup {
	c := *g
	c.Passengers = slices.Clone(g.Passengers)
	if c.Passengers == nil {
		c.Passengers = []primitive.ObjectID{}
	}
	c.PickupCoordinates = slices.Clone(g.PickupCoordinates)
	if g.PickupTime != nil {
		t := *g.PickupTime
		c.PickupTime = &t
	}
	return &c
}

func cloneMessage(m *entity.Message) *entity.Message {
	c := *m
	return &c
}

func cloneSubscription(s *entity.PushSubscription) *entity.PushSubscription {
	c := *s
	return &c
}

func containsID(IDs []primitive.ObjectID, ID primitive.ObjectID) bool {
	return slices.Contains(IDs, ID)
}
