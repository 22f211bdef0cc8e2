package scheduler

import "time"

type State int

const (
	StateIdle State = iota
	StateArmed
	StateProbing
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateProbing:
		return "probing"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type Key struct {
	UserID string
	URL    string
}

type entry struct {
	key                 Key
	generation          uint64
	state               State
	nextFireAt          time.Time
	interval            time.Duration
	consecutiveFailures int

	// position in the heap, -1 when not queued
	index int
}

// EntryInfo is a read-only copy of one schedule entry.
type EntryInfo struct {
	Key                 Key
	Generation          uint64
	State               State
	NextFireAt          time.Time
	Interval            time.Duration
	ConsecutiveFailures int
}

func (e *entry) info() EntryInfo {
	return EntryInfo{
		Key:                 e.key,
		Generation:          e.generation,
		State:               e.state,
		NextFireAt:          e.nextFireAt,
		Interval:            e.interval,
		ConsecutiveFailures: e.consecutiveFailures,
	}
}
