package repository

import (
	"context"

	"github.com/joeyave/patas-arriba/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository reads the users collection, which is written by the identity service.
type UserRepository struct {
	mongoClient *mongo.Client
	dbName      string
}

func NewUserRepository(mongoClient *mongo.Client, dbName string) *UserRepository {
	return &UserRepository{
		mongoClient: mongoClient,
		dbName:      dbName,
	}
}

func (r *UserRepository) collection() *mongo.Collection {
	return r.mongoClient.Database(r.dbName).Collection(UsersCollection)
}

var userProjection = bson.M{"firstName": 1, "lastName": 1, "role": 1}

func (r *UserRepository) FindOneByID(ctx context.Context, ID primitive.ObjectID) (*entity.User, error) {
	return findOne[entity.User](ctx, r.collection(), bson.M{"_id": ID}, options.FindOne().SetProjection(userProjection))
}
