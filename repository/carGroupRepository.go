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

type CarGroupRepository struct {
	mongoClient *mongo.Client
	dbName      string
}

func NewCarGroupRepository(mongoClient *mongo.Client, dbName string) *CarGroupRepository {
	return &CarGroupRepository{
		mongoClient: mongoClient,
		dbName:      dbName,
	}
}

func (r *CarGroupRepository) collection() *mongo.Collection {
	return r.mongoClient.Database(r.dbName).Collection(CarGroupsCollection)
}

// Insert relies on the unique (event, owner) index and returns ErrDuplicate for a second owned group.
func (r *CarGroupRepository) Insert(ctx context.Context, carGroup *entity.CarGroup) error {
	if carGroup.ID.IsZero() {
		carGroup.ID = primitive.NewObjectID()
	}
	if carGroup.Passengers == nil {
		carGroup.Passengers = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	carGroup.CreatedAt = now
	carGroup.UpdatedAt = now

	return insertOne(ctx, r.collection(), carGroup)
}

func (r *CarGroupRepository) FindOneByID(ctx context.Context, ID primitive.ObjectID) (*entity.CarGroup, error) {
	return findOne[entity.CarGroup](ctx, r.collection(), bson.M{"_id": ID})
}

func (r *CarGroupRepository) FindManyByEventID(ctx context.Context, eventID primitive.ObjectID) ([]*entity.CarGroup, error) {
	return findMany[entity.CarGroup](ctx, r.collection(),
		bson.M{"event": eventID},
		options.Find().SetSort(bson.M{"createdAt": 1}),
	)
}

// ExistsByEventIDAndMember answers, in one query, whether the user owns or rides in any
// car group of the event other than excludeID.
func (r *CarGroupRepository) ExistsByEventIDAndMember(ctx context.Context, eventID, userID, excludeID primitive.ObjectID) (bool, error) {
	count, err := r.collection().CountDocuments(ctx, memberFilter(eventID, userID, excludeID), options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddPassenger is the atomic seat claim. The filter re-asserts every precondition so that
// concurrent joiners can never exceed roomAvailable.
func (r *CarGroupRepository) AddPassenger(ctx context.Context, ID, userID primitive.ObjectID) (*entity.CarGroup, error) {
	update := bson.M{
		"$addToSet": bson.M{"passengers": userID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}

	return findOneAndUpdate[entity.CarGroup](ctx, r.collection(), joinFilter(ID, userID), update, false)
}

func (r *CarGroupRepository) RemovePassenger(ctx context.Context, ID, userID primitive.ObjectID) (*entity.CarGroup, error) {
	update := bson.M{
		"$pull": bson.M{"passengers": userID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}

	carGroup, err := findOneAndUpdate[entity.CarGroup](ctx, r.collection(), bson.M{"_id": ID}, update, false)
	if errors.Is(err, ErrConditionFailed) {
		return nil, ErrNotFound
	}
	return carGroup, err
}

func (r *CarGroupRepository) RemovePassengerByEventID(ctx context.Context, eventID, userID primitive.ObjectID) (int64, error) {
	filter := bson.M{
		"event":      eventID,
		"passengers": userID,
	}

	update := bson.M{
		"$pull": bson.M{"passengers": userID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection().UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// UpdateCapacity never evicts passengers: it fails with ErrConditionFailed when the group
// already holds more passengers than capacity.
func (r *CarGroupRepository) UpdateCapacity(ctx context.Context, ID primitive.ObjectID, capacity int) (*entity.CarGroup, error) {
	update := bson.M{
		"$set": bson.M{
			"roomAvailable": capacity,
			"updatedAt":     time.Now().UTC(),
		},
	}

	return findOneAndUpdate[entity.CarGroup](ctx, r.collection(), capacityFilter(ID, capacity), update, false)
}

func (r *CarGroupRepository) UpdateDetails(ctx context.Context, ID primitive.ObjectID, details entity.CarGroupDetails) (*entity.CarGroup, error) {
	update := bson.M{
		"$set": bson.M{
			"pickupLocation":    details.PickupLocation,
			"pickupCoordinates": details.PickupCoordinates,
			"pickupTime":        details.PickupTime,
			"roomAvailable":     details.RoomAvailable,
			"updatedAt":         time.Now().UTC(),
		},
	}

	return findOneAndUpdate[entity.CarGroup](ctx, r.collection(), capacityFilter(ID, details.RoomAvailable), update, false)
}

func (r *CarGroupRepository) SetCancelledByEventID(ctx context.Context, eventID primitive.ObjectID, cancelled bool) (int64, error) {
	update := bson.M{
		"$set": bson.M{
			"isCancelled": cancelled,
			"updatedAt":   time.Now().UTC(),
		},
	}

	result, err := r.collection().UpdateMany(ctx, bson.M{"event": eventID}, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *CarGroupRepository) DeleteOneByID(ctx context.Context, ID primitive.ObjectID) error {
	result, err := r.collection().DeleteOne(ctx, bson.M{"_id": ID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CarGroupRepository) DeleteOneByEventIDAndOwnerID(ctx context.Context, eventID, ownerID primitive.ObjectID) (*entity.CarGroup, error) {
	return findOneAndDelete[entity.CarGroup](ctx, r.collection(), bson.M{"event": eventID, "owner": ownerID})
}

func (r *CarGroupRepository) DeleteManyByEventID(ctx context.Context, eventID primitive.ObjectID) (int64, error) {
	result, err := r.collection().DeleteMany(ctx, bson.M{"event": eventID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *CarGroupRepository) FindDistinctEventIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	values, err := r.collection().Distinct(ctx, "event", bson.M{})
	if err != nil {
		return nil, err
	}
	return objectIDs(values), nil
}

func memberFilter(eventID, userID, excludeID primitive.ObjectID) bson.M {
	filter := bson.M{
		"event": eventID,
		"$or": bson.A{
			bson.M{"owner": userID},
			bson.M{"passengers": userID},
		},
	}
	if !excludeID.IsZero() {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	return filter
}

func joinFilter(ID, userID primitive.ObjectID) bson.M {
	return bson.M{
		"_id":         ID,
		"isCancelled": bson.M{"$ne": true},
		"owner":       bson.M{"$ne": userID},
		"passengers":  bson.M{"$ne": userID},
		"$expr": bson.M{
			"$lt": bson.A{bson.M{"$size": "$passengers"}, "$roomAvailable"},
		},
	}
}

func capacityFilter(ID primitive.ObjectID, capacity int) bson.M {
	return bson.M{
		"_id": ID,
		"$expr": bson.M{
			"$lte": bson.A{bson.M{"$size": "$passengers"}, capacity},
		},
	}
}
