package gridwarp

import (
	"container/heap"
	"testing"

	"github.com/iti/evt/vrtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func directRouting(t *testing.T, masterID, machineID int) *RoutingTable {
	t.Helper()
	rt := CreateRoutingTable()
	require.NoError(t, rt.AddRoute(masterID, machineID, Route{machineID}))
	return rt
}

func deliverNext(t *testing.T, eng *Engine) *queueItem {
	t.Helper()
	require.NotEmpty(t, eng.queue)
	item := heap.Pop(&eng.queue).(*queueItem)
	eng.deliver(item)
	return item
}

func machineArrival(origin, dest int, procSize, commSize float64) *Event {
	return &Event{
		Type:        Arrival,
		RouteOffset: 0,
		Downward:    true,
		Task:        Task{Owner: "User1", Origin: origin, Dest: dest, ProcSize: procSize, CommSize: commSize},
	}
}

func TestMachinePicksEarliestFreeCore(t *testing.T) {
	eng := CreateEngine(1)
	origin := newProbe(0, "origin")
	require.NoError(t, eng.RegisterEntity(origin))

	// 100 Mflops/s, no background load: a 200-Mflop task runs for 2 seconds
	machine := createMachine(2, "machine-2", 2, 100.0, 0.0, 0.0, 4096, 0.0, 0.0,
		directRouting(t, 0, 2))
	require.NoError(t, eng.RegisterEntity(machine))

	eng.Schedule(2, machineArrival(0, 2, 200.0, 10.0), vrtime.SecondsToTime(1.0))
	first := deliverNext(t, eng)

	assert.Equal(t, 0, first.ev.Saved.CoreIndex, "ties break toward the lowest index")
	assert.Equal(t, 0.0, first.ev.Saved.CoreFree)
	assert.Equal(t, 3.0, machine.coreFree[0])
	assert.Equal(t, 1, machine.Processed())
	assert.Equal(t, 2.0, machine.busy)

	eng.Schedule(2, machineArrival(0, 2, 200.0, 10.0), vrtime.SecondsToTime(0.5))
	second := deliverNext(t, eng)

	assert.Equal(t, 1, second.ev.Saved.CoreIndex, "core 0 is busy until 3.0, core 1 is idle")
	assert.Equal(t, 3.5, machine.coreFree[1])
}

func TestMachineReverseRestoresCore(t *testing.T) {
	eng := CreateEngine(1)
	origin := newProbe(0, "origin")
	require.NoError(t, eng.RegisterEntity(origin))

	machine := createMachine(2, "machine-2", 2, 100.0, 0.0, 0.0, 4096, 0.0, 0.0,
		directRouting(t, 0, 2))
	require.NoError(t, eng.RegisterEntity(machine))

	eng.Schedule(2, machineArrival(0, 2, 200.0, 10.0), vrtime.SecondsToTime(1.0))
	item := deliverNext(t, eng)

	machine.Reverse(eng, item.ev)
	assert.Equal(t, []float64{0.0, 0.0}, machine.coreFree)
	assert.Equal(t, 0, machine.Processed())
	assert.Equal(t, 0.0, machine.busy)
}

func TestMachineSendsResultUpward(t *testing.T) {
	eng := CreateEngine(1)
	origin := newProbe(0, "origin")
	require.NoError(t, eng.RegisterEntity(origin))

	machine := createMachine(2, "machine-2", 1, 100.0, 0.0, 0.0, 4096, 0.0, 0.0,
		directRouting(t, 0, 2))
	require.NoError(t, eng.RegisterEntity(machine))

	eng.Schedule(2, machineArrival(0, 2, 200.0, 10.0), vrtime.SecondsToTime(1.0))
	eng.Run()

	// delivered at 1.0, processed for 2.0, result back at the origin at 3.0
	require.Len(t, origin.committed, 1)
	assert.Equal(t, 3.0, origin.committed[0])
}

func TestMachineWaitingTimeCommitted(t *testing.T) {
	eng := CreateEngine(1)
	origin := newProbe(0, "origin")
	require.NoError(t, eng.RegisterEntity(origin))

	machine := createMachine(2, "machine-2", 1, 100.0, 0.0, 0.0, 4096, 0.0, 0.0,
		directRouting(t, 0, 2))
	require.NoError(t, eng.RegisterEntity(machine))

	// the second task arrives at 1.0 while the core is held until 2.0
	eng.Schedule(2, machineArrival(0, 2, 200.0, 10.0), vrtime.SecondsToTime(0.0))
	eng.Schedule(2, machineArrival(0, 2, 200.0, 10.0), vrtime.SecondsToTime(1.0))
	eng.Run()

	assert.Equal(t, 2, machine.Metrics().ProcServices)
	assert.Equal(t, 400.0, machine.Metrics().ProcessedMflops)
	assert.Equal(t, 1.0, machine.Metrics().ProcWaitingTime)
}

func TestMachineRejectsBadConfiguration(t *testing.T) {
	rt := CreateRoutingTable()
	assert.Panics(t, func() { createMachine(2, "m", 0, 100.0, 0.0, 0.0, 4096, 0.0, 0.0, rt) })
	assert.Panics(t, func() { createMachine(2, "m", 4, 0.0, 0.0, 0.0, 4096, 0.0, 0.0, rt) })
	assert.Panics(t, func() { createMachine(2, "m", 4, 100.0, 1.0, 0.0, 4096, 0.0, 0.0, rt) })
}
