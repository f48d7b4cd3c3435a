package gridwarp

import (
	"testing"

	"github.com/iti/evt/vrtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorkload(t *testing.T, tasks int) (Workload, Interarrival) {
	t.Helper()
	wl, err := NewConstantWorkload("User1", tasks, 1000.0, 80.0)
	require.NoError(t, err)
	ia, err := NewFixedInterarrival(1.0)
	require.NoError(t, err)
	return wl, ia
}

func TestBuildRejectsEmptyModel(t *testing.T) {
	mb := CreateModelBuilder()
	assert.Error(t, mb.Build(CreateEngine(1)), "a model with no users must be rejected")
}

func TestBuildRejectsNonPositiveUserShare(t *testing.T) {
	mb := CreateModelBuilder()
	mb.RegisterUser("User1", 0.0)
	mb.RegisterMachine(2, 0.2, 0.0, 4, 9800.0, 4096, 0.0, 0.0)

	wl, ia := testWorkload(t, 10)
	mb.RegisterMaster(0, wl, ia, []int{2})
	mb.RegisterLink(1, 0, 2, 50.0, 0.0, 1.0)

	assert.Error(t, mb.Build(CreateEngine(1)))
}

func TestBuildRejectsUnregisteredUser(t *testing.T) {
	mb := CreateModelBuilder()
	mb.RegisterUser("User1", 1.0)
	mb.RegisterMachine(2, 0.2, 0.0, 4, 9800.0, 4096, 0.0, 0.0)

	wl, err := NewConstantWorkload("Nobody", 10, 1000.0, 80.0)
	require.NoError(t, err)
	ia, err := NewFixedInterarrival(1.0)
	require.NoError(t, err)
	mb.RegisterMaster(0, wl, ia, []int{2})
	mb.RegisterLink(1, 0, 2, 50.0, 0.0, 1.0)

	assert.Error(t, mb.Build(CreateEngine(1)))
}

func TestBuildRejectsUngovernedMachine(t *testing.T) {
	mb := CreateModelBuilder()
	mb.RegisterUser("User1", 1.0)
	mb.RegisterMachine(2, 0.2, 0.0, 4, 9800.0, 4096, 0.0, 0.0)

	wl, ia := testWorkload(t, 10)
	mb.RegisterMaster(0, wl, ia, []int{99})
	mb.RegisterLink(1, 0, 2, 50.0, 0.0, 1.0)

	assert.Error(t, mb.Build(CreateEngine(1)), "governing an unregistered machine must be rejected")
}

func TestBuildRejectsDisconnectedMachine(t *testing.T) {
	mb := CreateModelBuilder()
	mb.RegisterUser("User1", 1.0)
	mb.RegisterMachine(2, 0.2, 0.0, 4, 9800.0, 4096, 0.0, 0.0)
	mb.RegisterMachine(4, 0.2, 0.0, 4, 9800.0, 4096, 0.0, 0.0)

	wl, ia := testWorkload(t, 10)
	mb.RegisterMaster(0, wl, ia, []int{2, 4})
	mb.RegisterLink(1, 0, 2, 50.0, 0.0, 1.0)
	// machine 4 has no link

	assert.Error(t, mb.Build(CreateEngine(1)))
}

func TestBuildRejectsIncompleteRoutingTable(t *testing.T) {
	mb := CreateModelBuilder()
	mb.RegisterUser("User1", 1.0)
	mb.RegisterMachine(2, 0.2, 0.0, 4, 9800.0, 4096, 0.0, 0.0)
	mb.RegisterMachine(4, 0.2, 0.0, 4, 9800.0, 4096, 0.0, 0.0)

	wl, ia := testWorkload(t, 10)
	mb.RegisterMaster(0, wl, ia, []int{2, 4})
	mb.RegisterLink(1, 0, 2, 50.0, 0.0, 1.0)
	mb.RegisterLink(3, 0, 4, 50.0, 0.0, 1.0)

	// the table covers machine 2 but not machine 4
	rt := CreateRoutingTable()
	require.NoError(t, rt.AddRoute(0, 2, Route{1, 2}))
	mb.SetRoutingTable(rt)

	assert.Error(t, mb.Build(CreateEngine(1)), "a supplied table missing a governed machine must be rejected")
}

func TestBuildDiscoversRoutesThroughSwitch(t *testing.T) {
	eng := CreateEngine(1)
	mb := CreateModelBuilder()
	mb.RegisterUser("User1", 1.0)
	mb.RegisterMachine(2, 0.2, 0.0, 4, 9800.0, 4096, 0.0, 0.0)
	mb.RegisterMachine(3, 0.2, 0.0, 4, 9800.0, 4096, 0.0, 0.0)
	mb.RegisterSwitch(1, []int{0, 2, 3}, 50.0, 0.001)

	wl, ia := testWorkload(t, 20)
	mb.RegisterMaster(0, wl, ia, []int{2, 3})

	require.NoError(t, mb.Build(eng))
	eng.Run()

	assert.Equal(t, 20, mb.Master(0).Completed())
	assert.Equal(t, 10, mb.Machine(2).Processed())
	assert.Equal(t, 10, mb.Machine(3).Processed())

	// every task crosses the switch twice
	totals := eng.GlobalMetrics().Totals()
	assert.Equal(t, 40, totals.CommServices)
}

func TestBuildRegistersDummies(t *testing.T) {
	eng := CreateEngine(1)
	mb := CreateModelBuilder()
	mb.RegisterUser("User1", 1.0)
	mb.RegisterMachine(2, 0.2, 0.0, 4, 9800.0, 4096, 0.0, 0.0)

	wl, ia := testWorkload(t, 5)
	mb.RegisterMaster(0, wl, ia, []int{2})
	mb.RegisterLink(1, 0, 2, 50.0, 0.0, 1.0)
	mb.RegisterDummy(3)

	require.NoError(t, mb.Build(eng))
	eng.Run()

	assert.Equal(t, 5, mb.Master(0).Completed())
}

func TestDummyIgnoresStrayEvents(t *testing.T) {
	eng := CreateEngine(1)
	require.NoError(t, eng.RegisterEntity(createDummy(0, "dummy-0")))

	eng.Schedule(0, &Event{Type: Arrival}, vrtime.SecondsToTime(1.0))
	assert.NotPanics(t, func() { eng.Run() })
	assert.Equal(t, 1, eng.Commits())
}

func TestPopulateRejectsUnknownKinds(t *testing.T) {
	mc := &ModelCfg{
		Users: []UserCfg{{Name: "User1", Share: 1.0}},
		Masters: []MasterCfg{{
			ID:           0,
			Workload:     WorkloadCfg{Kind: "zipf", User: "User1", Tasks: 5},
			Interarrival: InterarrivalCfg{Kind: "fixed", Gap: 1.0},
			Machines:     []int{2},
		}},
	}
	assert.Error(t, mc.Populate(CreateModelBuilder()))

	mc.Masters[0].Workload = WorkloadCfg{Kind: "constant", User: "User1", Tasks: 5, ProcSize: 1000.0, CommSize: 80.0}
	mc.Masters[0].Interarrival = InterarrivalCfg{Kind: "weibull"}
	assert.Error(t, mc.Populate(CreateModelBuilder()))
}
