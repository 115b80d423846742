package service

import (
	"context"
	"time"

	"github.com/joeyave/patas-arriba/entity"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The store interfaces describe the Membership Store contract. The Mongo repositories and
// the in-process memstore both satisfy them.

type EventStore interface {
	Insert(ctx context.Context, event *entity.Event) error
	FindOneByID(ctx context.Context, ID primitive.ObjectID) (*entity.Event, error)
	FindOneWithCarGroupsByID(ctx context.Context, ID primitive.ObjectID) (*entity.Event, error)
	FindManyFromDate(ctx context.Context, fromUTC time.Time) ([]*entity.Event, error)
	FindAllIDs(ctx context.Context) ([]primitive.ObjectID, error)
	UpdateStatus(ctx context.Context, ID primitive.ObjectID, from, to entity.EventStatus) (*entity.Event, error)
	DeleteOneByID(ctx context.Context, ID primitive.ObjectID) error
}

type AttendeeStore interface {
	Insert(ctx context.Context, attendee *entity.Attendee) error
	FindOneByID(ctx context.Context, ID primitive.ObjectID) (*entity.Attendee, error)
	FindOneByEventIDAndUserID(ctx context.Context, eventID, userID primitive.ObjectID) (*entity.Attendee, error)
	FindManyByEventID(ctx context.Context, eventID primitive.ObjectID) ([]*entity.Attendee, error)
	FindUserIDsByEventID(ctx context.Context, eventID primitive.ObjectID) ([]primitive.ObjectID, error)
	SetAttendance(ctx context.Context, ID primitive.ObjectID, attendance entity.Attendance) (*entity.Attendee, error)
	SetTask(ctx context.Context, ID primitive.ObjectID, task string) (*entity.Attendee, error)
	SetArrivalPreference(ctx context.Context, eventID, userID primitive.ObjectID, onMyOwn bool) (*entity.Attendee, error)
	DeleteOneByEventIDAndUserID(ctx context.Context, eventID, userID primitive.ObjectID) (*entity.Attendee, error)
	DeleteManyByEventID(ctx context.Context, eventID primitive.ObjectID) (int64, error)
	FindDistinctEventIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

type CarGroupStore interface {
	Insert(ctx context.Context, carGroup *entity.CarGroup) error
	FindOneByID(ctx context.Context, ID primitive.ObjectID) (*entity.CarGroup, error)
	FindManyByEventID(ctx context.Context, eventID primitive.ObjectID) ([]*entity.CarGroup, error)
	ExistsByEventIDAndMember(ctx context.Context, eventID, userID, excludeID primitive.ObjectID) (bool, error)
	AddPassenger(ctx context.Context, ID, userID primitive.ObjectID) (*entity.CarGroup, error)
	RemovePassenger(ctx context.Context, ID, userID primitive.ObjectID) (*entity.CarGroup, error)
	RemovePassengerByEventID(ctx context.Context, eventID, userID primitive.ObjectID) (int64, error)
	UpdateCapacity(ctx context.Context, ID primitive.ObjectID, capacity int) (*entity.CarGroup, error)
	UpdateDetails(ctx context.Context, ID primitive.ObjectID, details entity.CarGroupDetails) (*entity.CarGroup, error)
	SetCancelledByEventID(ctx context.Context, eventID primitive.ObjectID, cancelled bool) (int64, error)
	DeleteOneByID(ctx context.Context, ID primitive.ObjectID) error
	DeleteOneByEventIDAndOwnerID(ctx context.Context, eventID, ownerID primitive.ObjectID) (*entity.CarGroup, error)
	DeleteManyByEventID(ctx context.Context, eventID primitive.ObjectID) (int64, error)
	FindDistinctEventIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

type MessageStore interface {
	Insert(ctx context.Context, message *entity.Message) error
	FindOneByID(ctx context.Context, ID primitive.ObjectID) (*entity.Message, error)
	FindManyByRelatedID(ctx context.Context, relatedID primitive.ObjectID, beforeUTC time.Time, limit int) ([]*entity.Message, error)
	SoftDeleteOneByID(ctx context.Context, ID primitive.ObjectID, text string) (*entity.Message, error)
	DeleteManyByRelatedIDs(ctx context.Context, relatedIDs []primitive.ObjectID) (int64, error)
	DeleteManyByEventID(ctx context.Context, eventID primitive.ObjectID) (int64, error)
	FindDistinctEventIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

type PushSubscriptionStore interface {
	Upsert(ctx context.Context, subscription entity.PushSubscription) (*entity.PushSubscription, error)
	FindManyByUserIDs(ctx context.Context, userIDs []primitive.ObjectID) ([]*entity.PushSubscription, error)
	DeleteOneByEndpoint(ctx context.Context, endpoint string) error
	DeleteManyByUserID(ctx context.Context, userID primitive.ObjectID, endpoint string) (int64, error)
}

type UserStore interface {
	FindOneByID(ctx context.Context, ID primitive.ObjectID) (*entity.User, error)
}

// Stores bundles every collection the services read or write.
type Stores struct {
	Events            EventStore
	Attendees         AttendeeStore
	CarGroups         CarGroupStore
	Messages          MessageStore
	PushSubscriptions PushSubscriptionStore
	Users             UserStore
}
