package notify

import "time"

// State is the read/archive lifecycle state of a notification.
type State string

const (
	StateUnread   State = "unread"
	StateRead     State = "read"
	StateArchived State = "archived"
)

// lifecycle holds the allowed transitions. Archived is terminal; archiving
// does not require a prior read.
var lifecycle = map[State]map[State]bool{
	StateUnread: {
		StateRead:     true,
		StateArchived: true,
	},
	StateRead: {
		StateArchived: true,
	},
	StateArchived: {},
}

// CanTransition reports whether the lifecycle allows moving from one state
// to another. Self-transitions are permitted so that repeated markRead and
// archive calls stay idempotent.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	return lifecycle[from][to]
}

// State derives the lifecycle state from the record's flags.
func (n *Notification) State() State {
	switch {
	case n.IsArchived:
		return StateArchived
	case n.IsRead:
		return StateRead
	default:
		return StateUnread
	}
}

// markRead applies the unread -> read transition in place. The top-level
// IsRead flag mirrors the in-app channel state.
func (n *Notification) markRead(at time.Time) {
	n.IsRead = true
	n.InApp.Read = true
	n.InApp.ReadAt = &at
}

// archive applies the -> archived transition in place.
func (n *Notification) archive() {
	n.IsArchived = true
}
