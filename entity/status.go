package entity

// StatusPolicy is the allow-list of event status transitions, keyed by the current status.
type StatusPolicy map[EventStatus][]EventStatus

// PermissiveStatusPolicy accepts any target status from any status.
var PermissiveStatusPolicy = StatusPolicy{
	EventStatusOpen:      EventStatuses,
	EventStatusClosed:    EventStatuses,
	EventStatusCancelled: EventStatuses,
}

// ForwardOnlyStatusPolicy never leaves a terminal state.
var ForwardOnlyStatusPolicy = StatusPolicy{
	EventStatusOpen:      {EventStatusClosed, EventStatusCancelled},
	EventStatusClosed:    {EventStatusCancelled},
	EventStatusCancelled: {},
}

func (p StatusPolicy) Allows(from, to EventStatus) bool {
	if from == to {
		return true
	}
	for _, target := range p[from] {
		if target == to {
			return true
		}
	}
	return false
}
