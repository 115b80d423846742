package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect opens the client and waits until the primary answers a ping.
func Connect(ctx context.Context, uri string, pingTimeout time.Duration) (*mongo.Client, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongo: %w", err)
	}

	retrier := retry.NewRetrier(5, 100*time.Millisecond, time.Second)
	err = retrier.Run(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()

		err := mongoClient.Ping(pingCtx, readpref.Primary())
		if err != nil {
			log.Warn().Err(err).Msg("Mongo ping failed")
		}
		return err
	})
	if err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return mongoClient, nil
}
