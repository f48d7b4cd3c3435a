package gridwarp

// msg.go defines the event exchanged between services.  An event is
// self-contained: it carries the task being moved, the position along the
// task's route, and a snapshot block holding whatever entity state its
// forward handler overwrote, so the matching reverse handler can restore
// that state without recomputation.

import "github.com/iti/evt/vrtime"

// EventType tags the two kinds of events a service can receive.
type EventType int

const (
	// Generate instructs a master to sample a new task from its workload.
	Generate EventType = iota

	// Arrival delivers a task to a service along its route.
	Arrival
)

func (et EventType) String() string {
	switch et {
	case Generate:
		return "generate"
	case Arrival:
		return "arrival"
	}
	return "unknown"
}

// SavedState holds the pre-mutation snapshots a forward handler took.  Each
// snapshot is meaningful only when its companion Has flag is set, and a flag
// is set if and only if the forward handler read-and-mutated the
// corresponding piece of entity state.
type SavedState struct {
	// next-free time of the link or switch this event passed through
	HasLinkFree bool
	LinkFree    float64

	// index and next-free time of the machine core this event's task ran on
	HasCore   bool
	CoreIndex int
	CoreFree  float64

	// route cursor before this event's relay advanced it
	HasRouteOffset bool
	RouteOffset    int

	// the master scheduled a follow-up Generate while handling this event
	ScheduledNext bool
}

// Event is the unit exchanged between simulated services.  The engine stamps
// its delivery time; everything else is written by the emitting service.
type Event struct {
	Type EventType
	Task Task

	RouteOffset int  // position within the task's route
	PrevService int  // id of the service that emitted this event
	Downward    bool // true while traveling toward the destination machine

	// set when this arrival completed a task at its master; guards both the
	// reverse and the commit of that arrival
	TaskProcessed bool

	Saved SavedState

	time vrtime.Time // delivery time, stamped by the engine
}

// Seconds returns the event's delivery time in virtual seconds.
func (ev *Event) Seconds() float64 {
	return ev.time.Seconds()
}

// clone returns a copy of ev suitable for emission to another service: the
// snapshot block and completion flag belong to the handler that processed
// ev, so they are cleared on the copy.
func (ev *Event) clone() *Event {
	cp := *ev
	cp.Saved = SavedState{}
	cp.TaskProcessed = false
	return &cp
}
