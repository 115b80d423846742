package helpers

// Gin context keys set by the auth middleware.
const (
	CtxUserIDKey = "userID"
	CtxRoleKey   = "role"
)

// Field limits.
const (
	EventTitleMaxLength     = 50
	EventLocationMaxLength  = 50
	PickupLocationMaxLength = 200
	TaskMaxLength           = 50
	MessageMaxLength        = 1000
	NotificationMaxLength   = 140
)

const (
	MessagesPageSize    = 50
	MessagesMaxPageSize = 200
)
