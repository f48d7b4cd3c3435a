package gridwarp

// service.go defines the contract every simulated service satisfies.  The
// engine maps one service per logical process and drives it exclusively
// through this interface; services never touch each other's state directly.

// ServiceEntity is the capability set of a simulated service.
//
// Forward and Reverse must be exact inverses: Forward snapshots into the
// event's SavedState every piece of private state it is about to overwrite,
// and Reverse restores exactly those fields and nothing else.  Reverse never
// emits or cancels events; the engine owns event lifecycle.
//
// Commit is invoked only once the engine guarantees the event can never be
// rolled back; it is the sole point at which irreversible side effects
// (metrics reporting) may occur.  Finalize runs once at simulation end and
// flushes the entity's collector into the global report.
type ServiceEntity interface {
	EntityID() int
	EntityName() string
	Forward(eng *Engine, ev *Event)
	Reverse(eng *Engine, ev *Event)
	Commit(eng *Engine, ev *Event)
	Finalize(eng *Engine)
}
