package gridwarp

// link.go implements the point-to-point communication resource.  A link
// serializes transfers: each event occupies the link for its transfer time
// starting no earlier than the link's next-free time, then is relayed to the
// next hop of its route.  Communication metrics accumulate reversibly in the
// link's state and are flushed once, at finalization.

import (
	"math"

	"github.com/iti/evt/vrtime"
	"github.com/sirupsen/logrus"
)

// linkDev is a store-and-forward service joining two neighbors on a route.
type linkDev struct {
	linkID   int
	linkName string
	linkState
}

// linkState holds the link's mutable simulation state.
type linkState struct {
	nextFree  float64 // virtual time the link next becomes free
	bandwidth float64 // Mbits per second
	latency   float64 // seconds
	owtFactor float64 // transfer-time multiplier on upward (result) trips

	routing *RoutingTable

	// reversible accumulators, flushed to the collector at finalization
	commMbits float64
	commWait  float64
	relayed   int

	metrics *ServiceMetrics
}

// createLink is a constructor.
func createLink(id int, name string, bandwidth, latency, owtFactor float64,
	routing *RoutingTable) *linkDev {

	if bandwidth <= 0.0 {
		panic("link created with non-positive bandwidth")
	}
	ld := new(linkDev)
	ld.linkID = id
	ld.linkName = name
	ld.bandwidth = bandwidth
	ld.latency = latency
	ld.owtFactor = owtFactor
	ld.routing = routing
	ld.metrics = new(ServiceMetrics)
	return ld
}

func (ld *linkDev) EntityID() int { return ld.linkID }

func (ld *linkDev) EntityName() string { return ld.linkName }

// Metrics exposes the link's per-service collector.
func (ld *linkDev) Metrics() *ServiceMetrics { return ld.metrics }

// Relayed reports how many events the link has carried.  The count is
// speculative until the run finishes.
func (ld *linkDev) Relayed() int { return ld.relayed }

// transferTime is the occupancy an event imposes on the link.  Result
// traffic heading back up the route is scaled by the one-way-trip factor.
func (ld *linkDev) transferTime(ev *Event) float64 {
	t := ld.latency + ev.Task.CommSize/ld.bandwidth
	if !ev.Downward {
		t *= ld.owtFactor
	}
	return t
}

// Forward occupies the link and relays the event to the next hop: downward
// toward the destination machine, upward toward the originating master.
// The link's prior next-free time and the event's route cursor are
// snapshotted so Reverse can restore them exactly.
func (ld *linkDev) Forward(eng *Engine, ev *Event) {
	if ev.Type != Arrival {
		panic("link received event it cannot serve")
	}

	ev.Saved.HasLinkFree = true
	ev.Saved.LinkFree = ld.nextFree
	ev.Saved.HasRouteOffset = true
	ev.Saved.RouteOffset = ev.RouteOffset

	now := eng.CurrentSeconds()
	start := math.Max(now, ld.nextFree)
	done := start + ld.transferTime(ev)
	ld.nextFree = done

	ld.commMbits += ev.Task.CommSize
	ld.commWait += start - now
	ld.relayed++

	next := ev.clone()
	next.PrevService = ld.linkID
	delay := vrtime.SecondsToTime(done - now)
	route := ld.routing.Route(ev.Task.Origin, ev.Task.Dest)
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
// contribution out of the accumulators.  The waiting time is recomputed from
// the restored state, which reproduces the forward computation exactly.
func (ld *linkDev) Reverse(eng *Engine, ev *Event) {
	ld.nextFree = ev.Saved.LinkFree
	ev.Saved.HasLinkFree = false
	ev.RouteOffset = ev.Saved.RouteOffset
	ev.Saved.HasRouteOffset = false

	start := math.Max(ev.Seconds(), ld.nextFree)
	ld.commMbits -= ev.Task.CommSize
	ld.commWait -= start - ev.Seconds()
	ld.relayed--
}

// Commit has nothing to do: communication metrics flush at finalization.
func (ld *linkDev) Commit(eng *Engine, ev *Event) {}

// Finalize flushes the reversible accumulators into the collector and folds
// it into the global one.
func (ld *linkDev) Finalize(eng *Engine) {
	logrus.Debugf("%s: %d transfers, %f Mbits carried, %f seconds queued",
		ld.linkName, ld.relayed, ld.commMbits, ld.commWait)
	ld.metrics.AddCount(MetricCommServices, ld.relayed)
	ld.metrics.AddValue(MetricCommunicatedMbits, ld.commMbits)
	ld.metrics.AddValue(MetricCommWaitingTime, ld.commWait)
	ld.metrics.AddValue(MetricSimulationTime, eng.CurrentSeconds())
	eng.GlobalMetrics().Merge(ld.metrics)
}
