package repository

import (
	"context"
	"time"

	"github.com/joeyave/patas-arriba/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EventRepository struct {
	mongoClient *mongo.Client
	dbName      string
}

func NewEventRepository(mongoClient *mongo.Client, dbName string) *EventRepository {
	return &EventRepository{
		mongoClient: mongoClient,
		dbName:      dbName,
	}
}

func (r *EventRepository) collection() *mongo.Collection {
	return r.mongoClient.Database(r.dbName).Collection(EventsCollection)
}

func (r *EventRepository) Insert(ctx context.Context, event *entity.Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.CarGroups = nil

	return insertOne(ctx, r.collection(), event)
}

func (r *EventRepository) FindOneByID(ctx context.Context, ID primitive.ObjectID) (*entity.Event, error) {
	return findOne[entity.Event](ctx, r.collection(), bson.M{"_id": ID})
}

func (r *EventRepository) FindOneWithCarGroupsByID(ctx context.Context, ID primitive.ObjectID) (*entity.Event, error) {
	pipeline := bson.A{
		bson.M{
			"$match": bson.M{"_id": ID},
		},
		bson.M{
			"$lookup": bson.M{
				"from": CarGroupsCollection,
				"let":  bson.M{"eventId": "$_id"},
				"pipeline": bson.A{
					bson.M{
						"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$event", "$$eventId"}}},
					},
					bson.M{
						"$sort": bson.M{"createdAt": 1},
					},
				},
				"as": "carGroups",
			},
		},
	}

	cur, err := r.collection().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var events []*entity.Event
	err = cur.All(ctx, &events)
	if err != nil {
		return nil, err
	}

	if len(events) == 0 {
		return nil, ErrNotFound
	}

	return events[0], nil
}

func (r *EventRepository) FindManyFromDate(ctx context.Context, fromUTC time.Time) ([]*entity.Event, error) {
	return findMany[entity.Event](ctx, r.collection(),
		bson.M{
			"date": bson.M{
				"$gte": fromUTC,
			},
		},
		options.Find().SetSort(bson.M{"date": 1}),
	)
}

func (r *EventRepository) FindAllIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	values, err := r.collection().Distinct(ctx, "_id", bson.M{})
	if err != nil {
		return nil, err
	}
	return objectIDs(values), nil
}

// UpdateStatus moves the event from one status to another. It fails with ErrConditionFailed
// when the stored status is no longer from.
func (r *EventRepository) UpdateStatus(ctx context.Context, ID primitive.ObjectID, from, to entity.EventStatus) (*entity.Event, error) {
	filter := bson.M{
		"_id":    ID,
		"status": from,
	}

	update := bson.M{
		"$set": bson.M{
			"status":    to,
			"updatedAt": time.Now().UTC(),
		},
	}

	return findOneAndUpdate[entity.Event](ctx, r.collection(), filter, update, false)
}

func (r *EventRepository) DeleteOneByID(ctx context.Context, ID primitive.ObjectID) error {
	result, err := r.collection().DeleteOne(ctx, bson.M{"_id": ID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func objectIDs(values []interface{}) []primitive.ObjectID {
	IDs := make([]primitive.ObjectID, 0, len(values))
	for _, value := range values {
		if ID, ok := value.(primitive.ObjectID); ok {
			IDs = append(IDs, ID)
		}
	}
	return IDs
}
