package gridwarp

// master.go implements the workload front-end.  A master owns a workload
// description, draws task sizes from it, dispatches tasks to the machines it
// governs, and collects the results that come back.  Every random draw and
// every scheduling decision made in a forward handler is undone exactly, in
// reverse order, by the reverse handler.

import (
	"github.com/iti/evt/vrtime"
	"github.com/sirupsen/logrus"
)

// masterDev is a task-generating service.
type masterDev struct {
	masterID   int
	masterName string
	masterState
}

// masterState holds the master's mutable simulation state.
type masterState struct {
	rng     *ReverseRng
	wl      Workload
	ia      Interarrival
	policy  SchedPolicy
	routing *RoutingTable

	generated int
	completed int
	metrics   *ServiceMetrics
}

// createMaster is a constructor.
func createMaster(id int, name string, wl Workload, ia Interarrival,
	policy SchedPolicy, routing *RoutingTable) *masterDev {

	md := new(masterDev)
	md.masterID = id
	md.masterName = name
	md.rng = NewReverseRng(name)
	md.wl = wl
	md.ia = ia
	md.policy = policy
	md.routing = routing
	md.metrics = new(ServiceMetrics)
	return md
}

func (md *masterDev) EntityID() int { return md.masterID }

func (md *masterDev) EntityName() string { return md.masterName }

// Metrics exposes the master's per-service collector.
func (md *masterDev) Metrics() *ServiceMetrics { return md.metrics }

// Completed reports how many task results the master has received.  The
// count is speculative until the run finishes.
func (md *masterDev) Completed() int { return md.completed }

// Generated reports how many tasks the master has dispatched.
func (md *masterDev) Generated() int { return md.generated }

// Forward handles the master's two event types.  A generate event draws one
// task from the workload, picks a destination machine, sends the task down
// the first hop of its route, and reschedules itself while the workload has
// tasks left.  An arrival event is a task coming back up; the master marks
// it processed and counts it.
func (md *masterDev) Forward(eng *Engine, ev *Event) {
	switch ev.Type {
	case Generate:
		md.generate(eng, ev)
	case Arrival:
		md.completed++
		ev.TaskProcessed = true
	default:
		panic("master received event of unknown type")
	}
}

func (md *masterDev) generate(eng *Engine, ev *Event) {
	proc, comm := md.wl.Generate(md.rng)
	dest := md.policy.NextMachine()
	md.generated++

	task := Task{
		Owner:      md.wl.User(),
		Origin:     md.masterID,
		Dest:       dest,
		ProcSize:   proc,
		CommSize:   comm,
		SubmitTime: eng.CurrentSeconds(),
	}
	route := md.routing.Route(md.masterID, dest)

	arrival := &Event{
		Type:        Arrival,
		Task:        task,
		RouteOffset: 0,
		PrevService: md.masterID,
		Downward:    true,
	}
	eng.Schedule(route[0], arrival, vrtime.SecondsToTime(0.0))

	if md.wl.RemainingTasks() > 0 {
		next := &Event{Type: Generate}
		eng.Schedule(md.masterID, next, vrtime.SecondsToTime(md.ia.Next(md.rng)))
		ev.Saved.ScheduledNext = true
	}
}

// Reverse undoes Forward.  Draws are returned to the reversible generator in
// the opposite order they were taken: the interarrival draw first (it was
// taken last), then the scheduling decision, then the workload's size draws.
func (md *masterDev) Reverse(eng *Engine, ev *Event) {
	switch ev.Type {
	case Generate:
		if ev.Saved.ScheduledNext {
			md.ia.ReverseNext(md.rng)
			ev.Saved.ScheduledNext = false
		}
		md.policy.ReverseNextMachine()
		md.wl.ReverseGenerate(md.rng)
		md.generated--
	case Arrival:
		md.completed--
		ev.TaskProcessed = false
	}
}

// Commit records the irreversible consequences of an event, once it is past
// the commit horizon and can no longer roll back.
func (md *masterDev) Commit(eng *Engine, ev *Event) {
	if ev.Type == Arrival && ev.TaskProcessed {
		md.metrics.AddCount(MetricCompletedTasks, 1)
	}
}

// Finalize folds the master's collector into the global one.
func (md *masterDev) Finalize(eng *Engine) {
	if md.wl.RemainingTasks() > 0 {
		logrus.Warnf("%s finished with %d tasks undispatched", md.masterName, md.wl.RemainingTasks())
	}
	logrus.Debugf("%s: %d tasks dispatched, %d completed", md.masterName, md.generated, md.completed)
	md.metrics.AddValue(MetricSimulationTime, eng.CurrentSeconds())
	eng.GlobalMetrics().Merge(md.metrics)
}
