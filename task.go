package gridwarp

// task.go defines the unit of work that masters generate and machines
// consume.  A Task is a value: it is copied into every event that carries it
// and never shared between events.

// Task describes one unit of work.  Its demands are fixed at generation
// time; the routing fields (Origin, Dest) direct its travel, and CoreIndex
// is filled in by the machine that executed it.
type Task struct {
	Owner      string  // name of the user that owns the task
	Origin     int     // id of the master that generated the task
	Dest       int     // id of the machine the task was dispatched to
	ProcSize   float64 // processing demand, in Mflops
	CommSize   float64 // communication demand, in Mbits
	SubmitTime float64 // virtual time at which the master generated the task
	CoreIndex  int     // index of the machine core the task executed on
}
