package repository

import (
	"context"
	"time"

	"github.com/joeyave/patas-arriba/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type PushSubscriptionRepository struct {
	mongoClient *mongo.Client
	dbName      string
}

func NewPushSubscriptionRepository(mongoClient *mongo.Client, dbName string) *PushSubscriptionRepository {
	return &PushSubscriptionRepository{
		mongoClient: mongoClient,
		dbName:      dbName,
	}
}

func (r *PushSubscriptionRepository) collection() *mongo.Collection {
	return r.mongoClient.Database(r.dbName).Collection(PushSubscriptionsCollection)
}

// Upsert creates the subscription on first use of an endpoint and re-binds it otherwise.
func (r *PushSubscriptionRepository) Upsert(ctx context.Context, subscription entity.PushSubscription) (*entity.PushSubscription, error) {
	now := time.Now().UTC()

	filter := bson.M{"endpoint": subscription.Endpoint}
	update := bson.M{
		"$set": bson.M{
			"user":      subscription.UserID,
			"keys":      subscription.Keys,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"createdAt": now,
		},
	}

	return findOneAndUpdate[entity.PushSubscription](ctx, r.collection(), filter, update, true)
}

func (r *PushSubscriptionRepository) FindManyByUserIDs(ctx context.Context, userIDs []primitive.ObjectID) ([]*entity.PushSubscription, error) {
	if len(userIDs) == 0 {
		return []*entity.PushSubscription{}, nil
	}
	return findMany[entity.PushSubscription](ctx, r.collection(), bson.M{"user": bson.M{"$in": userIDs}})
}

func (r *PushSubscriptionRepository) DeleteOneByEndpoint(ctx context.Context, endpoint string) error {
	result, err := r.collection().DeleteOne(ctx, bson.M{"endpoint": endpoint})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteManyByUserID removes every subscription of the user, or only the one bound to endpoint when set.
func (r *PushSubscriptionRepository) DeleteManyByUserID(ctx context.Context, userID primitive.ObjectID, endpoint string) (int64, error) {
	filter := bson.M{"user": userID}
	if endpoint != "" {
		filter["endpoint"] = endpoint
	}

	result, err := r.collection().DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
