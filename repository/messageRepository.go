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

type MessageRepository struct {
	mongoClient *mongo.Client
	dbName      string
}

func NewMessageRepository(mongoClient *mongo.Client, dbName string) *MessageRepository {
	return &MessageRepository{
		mongoClient: mongoClient,
		dbName:      dbName,
	}
}

func (r *MessageRepository) collection() *mongo.Collection {
	return r.mongoClient.Database(r.dbName).Collection(MessagesCollection)
}

func (r *MessageRepository) Insert(ctx context.Context, message *entity.Message) error {
	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	message.CreatedAt = now
	message.UpdatedAt = now

	return insertOne(ctx, r.collection(), message)
}

func (r *MessageRepository) FindOneByID(ctx context.Context, ID primitive.ObjectID) (*entity.Message, error) {
	return findOne[entity.Message](ctx, r.collection(), bson.M{"_id": ID})
}

// FindManyByRelatedID pages backwards through a room, newest first.
func (r *MessageRepository) FindManyByRelatedID(ctx context.Context, relatedID primitive.ObjectID, beforeUTC time.Time, limit int) ([]*entity.Message, error) {
	filter := bson.M{"relatedId": relatedID}
	if !beforeUTC.IsZero() {
		filter["createdAt"] = bson.M{"$lt": beforeUTC}
	}

	return findMany[entity.Message](ctx, r.collection(),
		filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).SetLimit(int64(limit)),
	)
}

func (r *MessageRepository) SoftDeleteOneByID(ctx context.Context, ID primitive.ObjectID, text string) (*entity.Message, error) {
	update := bson.M{
		"$set": bson.M{
			"text":      text,
			"isDeleted": true,
			"updatedAt": time.Now().UTC(),
		},
	}

	message, err := findOneAndUpdate[entity.Message](ctx, r.collection(), bson.M{"_id": ID}, update, false)
	if errors.Is(err, ErrConditionFailed) {
		return nil, ErrNotFound
	}
	return message, err
}

func (r *MessageRepository) DeleteManyByRelatedIDs(ctx context.Context, relatedIDs []primitive.ObjectID) (int64, error) {
	if len(relatedIDs) == 0 {
		return 0, nil
	}

	result, err := r.collection().DeleteMany(ctx, bson.M{"relatedId": bson.M{"$in": relatedIDs}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// DeleteManyByEventID removes the history of the event room and of every car group room of the event.
func (r *MessageRepository) DeleteManyByEventID(ctx context.Context, eventID primitive.ObjectID) (int64, error) {
	result, err := r.collection().DeleteMany(ctx, bson.M{"eventId": eventID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *MessageRepository) FindDistinctEventIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	values, err := r.collection().Distinct(ctx, "eventId", bson.M{})
	if err != nil {
		return nil, err
	}
	return objectIDs(values), nil
}
