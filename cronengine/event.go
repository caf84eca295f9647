package cronengine

import (
	"time"

	"oss.nandlabs.io/ecscheduler/jobmodel"
)

// EventKind names one of the engine's lifecycle events (§4.7).
type EventKind int

const (
	// Added is reported the first time a job's entry is installed.
	Added EventKind = iota
	// Modified is reported whenever an existing entry is replaced or its
	// next-fire time changes.
	Modified
	// Executed is reported after an entry's executor call returns.
	Executed
	// ErrorEvent is reported when an entry's executor call returns an
	// error.
	ErrorEvent
	// Missed is reported when an entry is found due well past its
	// scheduled time (see misfireGrace).
	Missed
	// Removed is reported after an entry is dropped.
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Executed:
		return "executed"
	case ErrorEvent:
		return "error"
	case Missed:
		return "missed"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification the engine reports to its
// EventHandler.
type Event struct {
	Kind             EventKind
	JobID            string
	ScheduledRunTime time.Time
	NextRun          *time.Time
	Result           *jobmodel.ExecResult
	TaskInfo         []jobmodel.TaskInfo
	Err              error
}

// EventHandler reacts to engine lifecycle events. The engine calls it
// synchronously and does not hold its own lock while doing so.
type EventHandler interface {
	OnEvent(evt Event)
}
