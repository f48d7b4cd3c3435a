package gridwarp

// machine.go implements the processing resource.  A machine owns a set of
// cores, each tracked by the virtual time at which it next becomes free.  A
// task arriving downward is placed on the earliest-free core, held until the
// core frees up, processed at the machine's effective throughput, and its
// result is sent back up the route it came down.

import (
	"math"

	"github.com/iti/evt/vrtime"
	"github.com/sirupsen/logrus"
)

// machineDev is a task-processing service.
type machineDev struct {
	machineID   int
	machineName string
	machineState
}

// machineState holds the machine's mutable simulation state.
type machineState struct {
	coreFree   []float64 // per-core next-free virtual time
	loadFactor float64   // fraction of throughput consumed by background load
	throughput float64   // Mflops per second
	memoryMB   int
	powerIdle  float64 // watts while idle
	powerMax   float64 // watts at full load

	routing *RoutingTable

	busy      float64 // accumulated core-busy seconds, reversible
	processed int
	metrics   *ServiceMetrics
}

// createMachine is a constructor.  The startup offset is the virtual time at
// which the machine's cores first become available.
func createMachine(id int, name string, cores int, throughput, loadFactor,
	startup float64, memoryMB int, powerIdle, powerMax float64,
	routing *RoutingTable) *machineDev {

	if cores < 1 {
		panic("machine created with no cores")
	}
	if throughput <= 0.0 {
		panic("machine created with non-positive throughput")
	}
	if loadFactor < 0.0 || loadFactor >= 1.0 {
		panic("machine load factor outside [0,1)")
	}
	md := new(machineDev)
	md.machineID = id
	md.machineName = name
	md.coreFree = make([]float64, cores)
	for idx := range md.coreFree {
		md.coreFree[idx] = startup
	}
	md.throughput = throughput
	md.loadFactor = loadFactor
	md.memoryMB = memoryMB
	md.powerIdle = powerIdle
	md.powerMax = powerMax
	md.routing = routing
	md.metrics = new(ServiceMetrics)
	return md
}

func (md *machineDev) EntityID() int { return md.machineID }

func (md *machineDev) EntityName() string { return md.machineName }

// Metrics exposes the machine's per-service collector.
func (md *machineDev) Metrics() *ServiceMetrics { return md.metrics }

// Processed reports how many tasks the machine has run.  The count is
// speculative until the run finishes.
func (md *machineDev) Processed() int { return md.processed }

// procTime is the service time of a task on one core, with the background
// load factor eating into the nominal throughput.
func (md *machineDev) procTime(t Task) float64 {
	return t.ProcSize / (md.throughput * (1.0 - md.loadFactor))
}

// Forward runs an arriving task on the earliest-free core and sends the
// result back up the route.  The chosen core's index and prior next-free
// time are snapshotted into the event so Reverse can restore them.
func (md *machineDev) Forward(eng *Engine, ev *Event) {
	if ev.Type != Arrival || !ev.Downward {
		panic("machine received event it cannot serve")
	}

	core := 0
	for idx := 1; idx < len(md.coreFree); idx++ {
		if md.coreFree[idx] < md.coreFree[core] {
			core = idx
		}
	}
	ev.Saved.HasCore = true
	ev.Saved.CoreIndex = core
	ev.Saved.CoreFree = md.coreFree[core]

	now := eng.CurrentSeconds()
	start := math.Max(now, md.coreFree[core])
	completion := start + md.procTime(ev.Task)
	md.coreFree[core] = completion
	md.busy += md.procTime(ev.Task)
	md.processed++
	ev.Task.CoreIndex = core

	up := ev.clone()
	up.Downward = false
	up.PrevService = md.machineID
	delay := vrtime.SecondsToTime(completion - now)
	if ev.RouteOffset == 0 {
		// single-hop route: the result goes straight back to the master
		eng.Schedule(ev.Task.Origin, up, delay)
	} else {
		route := md.routing.Route(ev.Task.Origin, ev.Task.Dest)
		up.RouteOffset = ev.RouteOffset - 1
		eng.Schedule(route[up.RouteOffset], up, delay)
	}
}

// Reverse restores the snapshotted core and backs out the busy-time and
// count accumulators.
func (md *machineDev) Reverse(eng *Engine, ev *Event) {
	md.coreFree[ev.Saved.CoreIndex] = ev.Saved.CoreFree
	md.busy -= md.procTime(ev.Task)
	md.processed--
	ev.Saved.HasCore = false
}

// Commit reports the irreversible consequences of a processed task: the
// service count, the Mflops delivered, and the time the task waited for its
// core to free up.
func (md *machineDev) Commit(eng *Engine, ev *Event) {
	md.metrics.AddCount(MetricProcServices, 1)
	md.metrics.AddValue(MetricProcessedMflops, ev.Task.ProcSize)
	md.metrics.AddValue(MetricProcWaitingTime, math.Max(0.0, ev.Saved.CoreFree-ev.Seconds()))
}

// Finalize reports the machine's energy draw over the run and folds its
// collector into the global one.
func (md *machineDev) Finalize(eng *Engine) {
	simTime := eng.CurrentSeconds()
	energy := md.powerIdle * simTime * float64(len(md.coreFree))
	energy += (md.powerMax - md.powerIdle) * md.busy
	logrus.Debugf("%s: %d tasks, %f core-busy seconds, %f joules",
		md.machineName, md.processed, md.busy, energy)

	md.metrics.AddValue(MetricSimulationTime, simTime)
	eng.GlobalMetrics().Merge(md.metrics)
}
