package migrations

import (
	"context"

	"github.com/joeyave/patas-arriba/repository"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Indexes lists the unique and lookup indexes per collection.
var Indexes = map[string][]mongo.IndexModel{
	repository.AttendeesCollection: {
		// At most one attendee per (user, event), even under concurrent joins.
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "event", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "event", Value: 1}, {Key: "createdAt", Value: 1}}},
	},
	repository.CarGroupsCollection: {
		// At most one owned car group per (event, owner).
		{Keys: bson.D{{Key: "event", Value: 1}, {Key: "owner", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "event", Value: 1}, {Key: "passengers", Value: 1}}},
	},
	repository.MessagesCollection: {
		{Keys: bson.D{{Key: "relatedId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "eventId", Value: 1}}},
	},
	repository.PushSubscriptionsCollection: {
		{Keys: bson.D{{Key: "endpoint", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user", Value: 1}}},
	},
	repository.EventsCollection: {
		{Keys: bson.D{{Key: "date", Value: 1}}},
	},
}

// EnsureIndexes creates missing indexes. Existing identical indexes are left untouched by the server.
func EnsureIndexes(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	for collection, models := range Indexes {
		names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			return err
		}
		log.Debug().Str("collection", collection).Strs("indexes", names).Msg("Indexes ensured")
	}

	return nil
}
