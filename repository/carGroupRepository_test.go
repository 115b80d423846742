package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestJoinFilterReassertsSeatPreconditions(t *testing.T) {
	groupID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	filter := joinFilter(groupID, userID)

	assert.Equal(t, groupID, filter["_id"])
	assert.Equal(t, bson.M{"$ne": true}, filter["isCancelled"])
	assert.Equal(t, bson.M{"$ne": userID}, filter["owner"])
	assert.Equal(t, bson.M{"$ne": userID}, filter["passengers"])
	assert.Equal(t,
		bson.M{"$lt": bson.A{bson.M{"$size": "$passengers"}, "$roomAvailable"}},
		filter["$expr"],
	)
}

func TestCapacityFilterNeverEvicts(t *testing.T) {
	groupID := primitive.NewObjectID()

	filter := capacityFilter(groupID, 3)

	assert.Equal(t, groupID, filter["_id"])
	assert.Equal(t,
		bson.M{"$lte": bson.A{bson.M{"$size": "$passengers"}, 3}},
		filter["$expr"],
	)
}

func TestMemberFilterCoversOwnerAndPassenger(t *testing.T) {
	eventID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	filter := memberFilter(eventID, userID, primitive.NilObjectID)
	assert.Equal(t, eventID, filter["event"])
	assert.Equal(t, bson.A{bson.M{"owner": userID}, bson.M{"passengers": userID}}, filter["$or"])
	assert.NotContains(t, filter, "_id")

	excludeID := primitive.NewObjectID()
	filter = memberFilter(eventID, userID, excludeID)
	assert.Equal(t, bson.M{"$ne": excludeID}, filter["_id"])
}

func TestObjectIDsSkipsForeignValues(t *testing.T) {
	ID := primitive.NewObjectID()

	IDs := objectIDs([]interface{}{ID, "not-an-id", 42})

	assert.Equal(t, []primitive.ObjectID{ID}, IDs)
}
