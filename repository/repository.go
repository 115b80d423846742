package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("duplicate key")
	// ErrConditionFailed is returned when a conditional update matched no document.
	ErrConditionFailed = errors.New("update condition not met")
)

const (
	EventsCollection            = "events"
	AttendeesCollection         = "attendees"
	CarGroupsCollection         = "carGroups"
	MessagesCollection          = "messages"
	PushSubscriptionsCollection = "pushSubscriptions"
	UsersCollection             = "users"
)

func findOne[T any](ctx context.Context, collection *mongo.Collection, filter any, opts ...*options.FindOneOptions) (*T, error) {
	var doc T
	err := collection.FindOne(ctx, filter, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func findMany[T any](ctx context.Context, collection *mongo.Collection, filter any, opts ...*options.FindOptions) ([]*T, error) {
	cur, err := collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	docs := []*T{}
	err = cur.All(ctx, &docs)
	if err != nil {
		return nil, err
	}

	return docs, nil
}

// findOneAndUpdate returns the updated document, or ErrConditionFailed when the filter matched nothing.
func findOneAndUpdate[T any](ctx context.Context, collection *mongo.Collection, filter, update any, upsert bool) (*T, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(upsert)

	var doc T
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrConditionFailed
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &doc, nil
}

func findOneAndDelete[T any](ctx context.Context, collection *mongo.Collection, filter any) (*T, error) {
	var doc T
	err := collection.FindOneAndDelete(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func insertOne(ctx context.Context, collection *mongo.Collection, doc any) error {
	_, err := collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}
