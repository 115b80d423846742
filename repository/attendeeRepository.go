package repository

import (
	"context"
	"errors"
	"time"

	"github.com/joeyave/patas-arriba/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AttendeeRepository struct {
	mongoClient *mongo.Client
	dbName      string
}

func NewAttendeeRepository(mongoClient *mongo.Client, dbName string) *AttendeeRepository {
	return &AttendeeRepository{
		mongoClient: mongoClient,
		dbName:      dbName,
	}
}

func (r *AttendeeRepository) collection() *mongo.Collection {
	return r.mongoClient.Database(r.dbName).Collection(AttendeesCollection)
}

// Insert relies on the unique (user, event) index and returns ErrDuplicate for a second link.
func (r *AttendeeRepository) Insert(ctx context.Context, attendee *entity.Attendee) error {
	if attendee.ID.IsZero() {
		attendee.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	attendee.CreatedAt = now
	attendee.UpdatedAt = now

	return insertOne(ctx, r.collection(), attendee)
}

func (r *AttendeeRepository) FindOneByID(ctx context.Context, ID primitive.ObjectID) (*entity.Attendee, error) {
	return findOne[entity.Attendee](ctx, r.collection(), bson.M{"_id": ID})
}

func (r *AttendeeRepository) FindOneByEventIDAndUserID(ctx context.Context, eventID, userID primitive.ObjectID) (*entity.Attendee, error) {
	return findOne[entity.Attendee](ctx, r.collection(), bson.M{"event": eventID, "user": userID})
}

func (r *AttendeeRepository) FindManyByEventID(ctx context.Context, eventID primitive.ObjectID) ([]*entity.Attendee, error) {
	return findMany[entity.Attendee](ctx, r.collection(),
		bson.M{"event": eventID},
		options.Find().SetSort(bson.M{"createdAt": 1}),
	)
}

func (r *AttendeeRepository) FindUserIDsByEventID(ctx context.Context, eventID primitive.ObjectID) ([]primitive.ObjectID, error) {
	values, err := r.collection().Distinct(ctx, "user", bson.M{"event": eventID})
	if err != nil {
		return nil, err
	}
	return objectIDs(values), nil
}

func (r *AttendeeRepository) SetAttendance(ctx context.Context, ID primitive.ObjectID, attendance entity.Attendance) (*entity.Attendee, error) {
	return r.set(ctx, bson.M{"_id": ID}, bson.M{"attendance": attendance})
}

func (r *AttendeeRepository) SetTask(ctx context.Context, ID primitive.ObjectID, task string) (*entity.Attendee, error) {
	return r.set(ctx, bson.M{"_id": ID}, bson.M{"task": task})
}

func (r *AttendeeRepository) SetArrivalPreference(ctx context.Context, eventID, userID primitive.ObjectID, onMyOwn bool) (*entity.Attendee, error) {
	return r.set(ctx, bson.M{"event": eventID, "user": userID}, bson.M{"willArriveOnMyOwn": onMyOwn})
}

func (r *AttendeeRepository) set(ctx context.Context, filter, fields bson.M) (*entity.Attendee, error) {
	fields["updatedAt"] = time.Now().UTC()

	attendee, err := findOneAndUpdate[entity.Attendee](ctx, r.collection(), filter, bson.M{"$set": fields}, false)
	if errors.Is(err, ErrConditionFailed) {
		return nil, ErrNotFound
	}
	return attendee, err
}

func (r *AttendeeRepository) DeleteOneByEventIDAndUserID(ctx context.Context, eventID, userID primitive.ObjectID) (*entity.Attendee, error) {
	return findOneAndDelete[entity.Attendee](ctx, r.collection(), bson.M{"event": eventID, "user": userID})
}

func (r *AttendeeRepository) DeleteManyByEventID(ctx context.Context, eventID primitive.ObjectID) (int64, error) {
	result, err := r.collection().DeleteMany(ctx, bson.M{"event": eventID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *AttendeeRepository) FindDistinctEventIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	values, err := r.collection().Distinct(ctx, "event", bson.M{})
	if err != nil {
		return nil, err
	}
	return objectIDs(values), nil
}
