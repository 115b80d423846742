package service

import "errors"

// Kind classifies engine errors for the boundary layer.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidState
	KindConflict
	KindCapacityExceeded
	KindUnauthorized
	KindValidationFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidState:
		return "InvalidState"
	case KindConflict:
		return "Conflict"
	case KindCapacityExceeded:
		return "CapacityExceeded"
	case KindUnauthorized:
		return "Unauthorized"
	case KindValidationFailure:
		return "ValidationFailure"
	}
	return "Unknown"
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrEventNotFound    = newError(KindNotFound, "EventNotFound", "event not found")
	ErrAttendeeNotFound = newError(KindNotFound, "AttendeeNotFound", "attendee not found")
	ErrCarGroupNotFound = newError(KindNotFound, "CarGroupNotFound", "car group not found")
	ErrMessageNotFound  = newError(KindNotFound, "MessageNotFound", "message not found")

	ErrEventClosed                = newError(KindInvalidState, "EventClosed", "event is closed, contact the organizer")
	ErrEventCancelled             = newError(KindInvalidState, "EventCancelled", "event is cancelled")
	ErrEventPassed                = newError(KindInvalidState, "EventPassed", "event already took place")
	ErrCarOrganizationUnavailable = newError(KindInvalidState, "CarOrganizationUnavailable", "event does not accept car groups")
	ErrCarGroupCancelled          = newError(KindInvalidState, "Cancelled", "car group is cancelled")
	ErrEventUnavailable           = newError(KindInvalidState, "EventUnavailable", "event of the car group is cancelled")
	ErrTransitionNotAllowed       = newError(KindInvalidState, "TransitionNotAllowed", "status transition is not allowed")
	ErrTasksDisabled              = newError(KindInvalidState, "TasksDisabled", "event does not use task assignments")

	ErrAlreadyJoined  = newError(KindConflict, "AlreadyJoined", "already joined this event")
	ErrAlreadyInGroup = newError(KindConflict, "AlreadyInGroup", "already owner or passenger of a car group in this event")
	ErrAlreadyMember  = newError(KindConflict, "AlreadyMember", "already a passenger of this car group")
	ErrSelfOwnership  = newError(KindConflict, "SelfOwnership", "owner cannot join own car group")
	ErrStatusChanged  = newError(KindConflict, "StatusChanged", "event status changed concurrently")

	ErrCarGroupFull           = newError(KindCapacityExceeded, "Full", "car group is full")
	ErrCapacityBelowOccupancy = newError(KindCapacityExceeded, "CapacityBelowOccupancy", "capacity is below current passenger count")

	ErrNotAttendee      = newError(KindUnauthorized, "NotAttendee", "not an attendee of this event")
	ErrNotCarGroupOwner = newError(KindUnauthorized, "NotCarGroupOwner", "only the owner can modify the car group")
	ErrNotRoomMember    = newError(KindUnauthorized, "NotRoomMember", "not a member of this chat room")
	ErrNotMessageSender = newError(KindUnauthorized, "NotMessageSender", "only the sender or an admin can delete the message")

	ErrInvalidStatus      = newError(KindValidationFailure, "InvalidStatus", "unknown event status")
	ErrInvalidAttendance  = newError(KindValidationFailure, "InvalidAttendance", "unknown attendance value")
	ErrInvalidCapacity    = newError(KindValidationFailure, "InvalidCapacity", "capacity must be at least 1")
	ErrInvalidTask        = newError(KindValidationFailure, "InvalidTask", "task is longer than 50 characters")
	ErrInvalidEvent       = newError(KindValidationFailure, "InvalidEvent", "title, location and date are required")
	ErrInvalidPickup      = newError(KindValidationFailure, "InvalidPickup", "pickup location is required and limited to 200 characters")
	ErrInvalidRelatedType = newError(KindValidationFailure, "InvalidRelatedType", "related type must be event or car-group")
	ErrEmptyMessage       = newError(KindValidationFailure, "EmptyMessage", "message text is required")
	ErrMessageTooLong     = newError(KindValidationFailure, "MessageTooLong", "message text is limited to 1000 characters")
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Kind
	}
	return KindUnknown
}
