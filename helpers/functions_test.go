package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "collapses whitespace", in: "  hola \t\n  amigos  ", want: "hola amigos"},
		{name: "composes accents", in: "cafe\u0301", want: "caf\u00e9"},
		{name: "blank", in: " \n\t ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "ñañ…", Truncate("ñañañaña", 4))
	assert.Equal(t, 4, RuneLen(Truncate("ñañañaña", 4)))
	assert.Equal(t, "", Truncate("anything", 0))
}

func TestParseObjectID(t *testing.T) {
	ID := primitive.NewObjectID()

	parsed, ok := ParseObjectID(ID.Hex())
	assert.True(t, ok)
	assert.Equal(t, ID, parsed)

	_, ok = ParseObjectID("not-an-id")
	assert.False(t, ok)
}
