package helpers

import (
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/unicode/norm"
)

// CleanText normalizes user text to NFC, collapses runs of whitespace and trims it.
func CleanText(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}

// Truncate cuts text to at most max runes, ending with an ellipsis when shortened.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max-1]) + "…"
}

func RuneLen(text string) int {
	return utf8.RuneCountInString(text)
}

// ParseObjectID returns false for anything that is not a 24 character hex id.
func ParseObjectID(hex string) (primitive.ObjectID, bool) {
	ID, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return ID, true
}
