package gridwarp

// switch.go implements the shared interconnect resource.  A switch behaves
// like a link joining many endpoints: it serializes the transfers crossing
// it and relays each to the next hop of its route.  Unlike a link it treats
// both route directions identically.

import (
	"math"

	"github.com/iti/evt/vrtime"
	"github.com/sirupsen/logrus"
)

// switchDev is a store-and-forward service joining several neighbors.
type switchDev struct {
	switchID   int
	switchName string
	switchState
}

// switchState holds the switch's mutable simulation state.
type switchState struct {
	nextFree  float64
	bandwidth float64
	latency   float64
	endpoints []int

	routing *RoutingTable

	commMbits float64
	commWait  float64
	relayed   int

	metrics *ServiceMetrics
}

// createSwitch is a constructor.
func createSwitch(id int, name string, endpoints []int, bandwidth,
	latency float64, routing *RoutingTable) *switchDev {

	if bandwidth <= 0.0 {
		panic("switch created with non-positive bandwidth")
	}
	sd := new(switchDev)
	sd.switchID = id
	sd.switchName = name
	sd.endpoints = endpoints
	sd.bandwidth = bandwidth
	sd.latency = latency
	sd.routing = routing
	sd.metrics = new(ServiceMetrics)
	return sd
}

func (sd *switchDev) EntityID() int { return sd.switchID }

func (sd *switchDev) EntityName() string { return sd.switchName }

// Metrics exposes the switch's per-service collector.
func (sd *switchDev) Metrics() *ServiceMetrics { return sd.metrics }

// Relayed reports how many events the switch has carried.
func (sd *switchDev) Relayed() int { return sd.relayed }

// Forward occupies the switch and relays the event along its route, exactly
// as a link does, with the same transfer time in both directions.
func (sd *switchDev) Forward(eng *Engine, ev *Event) {
	if ev.Type != Arrival {
		panic("switch received event it cannot serve")
	}

	ev.Saved.HasLinkFree = true
	ev.Saved.LinkFree = sd.nextFree
	ev.Saved.HasRouteOffset = true
	ev.Saved.RouteOffset = ev.RouteOffset

	now := eng.CurrentSeconds()
	start := math.Max(now, sd.nextFree)
	done := start + sd.latency + ev.Task.CommSize/sd.bandwidth
	sd.nextFree = done

	sd.commMbits += ev.Task.CommSize
	sd.commWait += start - now
	sd.relayed++

	next := ev.clone()
	next.PrevService = sd.switchID
	delay := vrtime.SecondsToTime(done - now)
	route := sd.routing.Route(ev.Task.Origin, ev.Task.Dest)
	if ev.Downward {
		next.RouteOffset = ev.RouteOffset + 1
		eng.Schedule(route[next.RouteOffset], next, delay)
	} else if ev.RouteOffset == 0 {
		eng.Schedule(ev.Task.Origin, next, delay)
	} else {
		next.RouteOffset = ev.RouteOffset - 1
		eng.Schedule(route[next.RouteOffset], next, delay)
	}
}

// Reverse restores the snapshotted next-free time and backs the event's
// contribution out of the accumulators.
func (sd *switchDev) Reverse(eng *Engine, ev *Event) {
	sd.nextFree = ev.Saved.LinkFree
	ev.Saved.HasLinkFree = false
	ev.RouteOffset = ev.Saved.RouteOffset
	ev.Saved.HasRouteOffset = false

	start := math.Max(ev.Seconds(), sd.nextFree)
	sd.commMbits -= ev.Task.CommSize
	sd.commWait -= start - ev.Seconds()
	sd.relayed--
}

// Commit has nothing to do: communication metrics flush at finalization.
func (sd *switchDev) Commit(eng *Engine, ev *Event) {}

// Finalize flushes the reversible accumulators into the collector and folds
// it into the global one.
func (sd *switchDev) Finalize(eng *Engine) {
	logrus.Debugf("%s: %d transfers, %f Mbits carried, %f seconds queued",
		sd.switchName, sd.relayed, sd.commMbits, sd.commWait)
	sd.metrics.AddCount(MetricCommServices, sd.relayed)
	sd.metrics.AddValue(MetricCommunicatedMbits, sd.commMbits)
	sd.metrics.AddValue(MetricCommWaitingTime, sd.commWait)
	sd.metrics.AddValue(MetricSimulationTime, eng.CurrentSeconds())
	eng.GlobalMetrics().Merge(sd.metrics)
}
