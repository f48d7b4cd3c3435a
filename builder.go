package gridwarp

// builder.go assembles a simulation model.  Services are registered one at a
// time, then Build validates the model, discovers routes over the declared
// connectivity (unless a routing table was supplied), creates the service
// entities, and primes the engine with each master's first generate event.
// Models can also be described in a yaml or json file and loaded with
// ReadModelCfg.

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/iti/evt/vrtime"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

type userSpec struct {
	name  string
	share float64
}

type masterSpec struct {
	id       int
	wl       Workload
	ia       Interarrival
	machines []int
}

type machineSpec struct {
	id         int
	cores      int
	throughput float64
	loadFactor float64
	startup    float64
	memoryMB   int
	powerIdle  float64
	powerMax   float64
}

type linkSpec struct {
	id        int
	from, to  int
	bandwidth float64
	latency   float64
	owtFactor float64
}

type switchSpec struct {
	id        int
	endpoints []int
	bandwidth float64
	latency   float64
}

// ModelBuilder accumulates a model description and turns it into registered
// engine entities.
type ModelBuilder struct {
	users    []userSpec
	masters  []masterSpec
	machines []machineSpec
	links    []linkSpec
	switches []switchSpec
	dummies  []int

	routing *RoutingTable

	// filled by Build
	mastersByID  map[int]*masterDev
	machinesByID map[int]*machineDev
}

// CreateModelBuilder is a constructor.
func CreateModelBuilder() *ModelBuilder {
	mb := new(ModelBuilder)
	mb.mastersByID = make(map[int]*masterDev)
	mb.machinesByID = make(map[int]*machineDev)
	return mb
}

// RegisterUser declares a workload owner with its per-task share.  Every
// master's workload must name a registered user.
func (mb *ModelBuilder) RegisterUser(name string, share float64) {
	mb.users = append(mb.users, userSpec{name: name, share: share})
}

// RegisterMaster declares a task-generating service governing the given
// machines.
func (mb *ModelBuilder) RegisterMaster(id int, wl Workload, ia Interarrival, machines []int) {
	mb.masters = append(mb.masters, masterSpec{id: id, wl: wl, ia: ia, machines: machines})
}

// RegisterMachine declares a task-processing service.
func (mb *ModelBuilder) RegisterMachine(id int, loadFactor, startup float64,
	cores int, throughput float64, memoryMB int, powerIdle, powerMax float64) {

	mb.machines = append(mb.machines, machineSpec{id: id, cores: cores,
		throughput: throughput, loadFactor: loadFactor, startup: startup,
		memoryMB: memoryMB, powerIdle: powerIdle, powerMax: powerMax})
}

// RegisterLink declares a point-to-point connection between two services.
func (mb *ModelBuilder) RegisterLink(id, from, to int, bandwidth, latency, owtFactor float64) {
	mb.links = append(mb.links, linkSpec{id: id, from: from, to: to,
		bandwidth: bandwidth, latency: latency, owtFactor: owtFactor})
}

// RegisterSwitch declares a shared connection among several services.
func (mb *ModelBuilder) RegisterSwitch(id int, endpoints []int, bandwidth, latency float64) {
	mb.switches = append(mb.switches, switchSpec{id: id, endpoints: endpoints,
		bandwidth: bandwidth, latency: latency})
}

// RegisterDummy declares a padding service.
func (mb *ModelBuilder) RegisterDummy(id int) {
	mb.dummies = append(mb.dummies, id)
}

// SetRoutingTable supplies precomputed routes, suppressing route discovery.
func (mb *ModelBuilder) SetRoutingTable(rt *RoutingTable) {
	mb.routing = rt
}

// Master returns the built master with the given id, nil before Build.
func (mb *ModelBuilder) Master(id int) *masterDev {
	return mb.mastersByID[id]
}

// Machine returns the built machine with the given id, nil before Build.
func (mb *ModelBuilder) Machine(id int) *machineDev {
	return mb.machinesByID[id]
}

func (mb *ModelBuilder) validate() error {
	if len(mb.users) == 0 {
		return fmt.Errorf("model declares no users")
	}
	if len(mb.masters) == 0 {
		return fmt.Errorf("model declares no masters")
	}
	if len(mb.machines) == 0 {
		return fmt.Errorf("model declares no machines")
	}

	userNames := make([]string, 0, len(mb.users))
	for _, us := range mb.users {
		if us.share <= 0.0 {
			return fmt.Errorf("user %s has non-positive share %g", us.name, us.share)
		}
		userNames = append(userNames, us.name)
	}
	machineIDs := make([]int, 0, len(mb.machines))
	for _, ms := range mb.machines {
		machineIDs = append(machineIDs, ms.id)
	}
	for _, ms := range mb.masters {
		if len(ms.machines) == 0 {
			return fmt.Errorf("master %d governs no machines", ms.id)
		}
		if !slices.Contains(userNames, ms.wl.User()) {
			return fmt.Errorf("master %d workload names unregistered user %s", ms.id, ms.wl.User())
		}
		for _, m := range ms.machines {
			if !slices.Contains(machineIDs, m) {
				return fmt.Errorf("master %d governs unregistered machine %d", ms.id, m)
			}
		}
	}
	return nil
}

// discoverRoutes runs shortest-path discovery over the declared links and
// switches and fills a routing table with one route per (master, governed
// machine) pair.
func (mb *ModelBuilder) discoverRoutes() (*RoutingTable, error) {
	edges := make(map[int][]int)
	addEdge := func(a, b int) {
		edges[a] = append(edges[a], b)
		edges[b] = append(edges[b], a)
	}
	for _, ls := range mb.links {
		addEdge(ls.from, ls.id)
		addEdge(ls.id, ls.to)
	}
	for _, ss := range mb.switches {
		for _, ep := range ss.endpoints {
			addEdge(ss.id, ep)
		}
	}

	rb := newRouteBuilder(edges)
	rt := CreateRoutingTable()
	for _, ms := range mb.masters {
		for _, m := range ms.machines {
			route, err := rb.route(ms.id, m)
			if err != nil {
				return nil, fmt.Errorf("no route from master %d to machine %d: %w", ms.id, m, err)
			}
			if err := rt.AddRoute(ms.id, m, route); err != nil {
				return nil, err
			}
		}
	}
	return rt, nil
}

// Build validates the model, resolves routing, registers every declared
// service with the engine, and schedules each master's first generate event
// at virtual time zero.
func (mb *ModelBuilder) Build(eng *Engine) error {
	if err := mb.validate(); err != nil {
		return err
	}

	rt := mb.routing
	if rt == nil {
		var err error
		rt, err = mb.discoverRoutes()
		if err != nil {
			return err
		}
	} else {
		// a supplied table must cover every (master, governed machine) pair
		for _, ms := range mb.masters {
			for _, m := range ms.machines {
				if rt.Route(ms.id, m) == nil {
					return fmt.Errorf("routing table has no route from master %d to machine %d", ms.id, m)
				}
			}
		}
	}

	tracer := eng.Tracer()
	register := func(ent ServiceEntity, kind string) error {
		if err := eng.RegisterEntity(ent); err != nil {
			return err
		}
		if tracer != nil {
			tracer.AddName(ent.EntityID(), ent.EntityName(), kind)
		}
		return nil
	}

	for _, ms := range mb.masters {
		policy, err := NewRoundRobin(ms.machines)
		if err != nil {
			return err
		}
		md := createMaster(ms.id, fmt.Sprintf("master-%d", ms.id), ms.wl, ms.ia, policy, rt)
		if err := register(md, "master"); err != nil {
			return err
		}
		mb.mastersByID[ms.id] = md
	}
	for _, ms := range mb.machines {
		md := createMachine(ms.id, fmt.Sprintf("machine-%d", ms.id), ms.cores,
			ms.throughput, ms.loadFactor, ms.startup, ms.memoryMB,
			ms.powerIdle, ms.powerMax, rt)
		if err := register(md, "machine"); err != nil {
			return err
		}
		mb.machinesByID[ms.id] = md
	}
	for _, ls := range mb.links {
		ld := createLink(ls.id, fmt.Sprintf("link-%d", ls.id), ls.bandwidth,
			ls.latency, ls.owtFactor, rt)
		if err := register(ld, "link"); err != nil {
			return err
		}
	}
	for _, ss := range mb.switches {
		sd := createSwitch(ss.id, fmt.Sprintf("switch-%d", ss.id), ss.endpoints,
			ss.bandwidth, ss.latency, rt)
		if err := register(sd, "switch"); err != nil {
			return err
		}
	}
	for _, id := range mb.dummies {
		if err := register(createDummy(id, fmt.Sprintf("dummy-%d", id)), "dummy"); err != nil {
			return err
		}
	}

	for _, ms := range mb.masters {
		if ms.wl.RemainingTasks() == 0 {
			continue
		}
		eng.Schedule(ms.id, &Event{Type: Generate}, vrtime.SecondsToTime(0.0))
	}

	logrus.Debugf("model built: %d masters, %d machines, %d links, %d switches, %d dummies",
		len(mb.masters), len(mb.machines), len(mb.links), len(mb.switches), len(mb.dummies))
	return nil
}

// WorkloadCfg describes a master's workload in a model file.
type WorkloadCfg struct {
	Kind  string `json:"kind" yaml:"kind"`
	User  string `json:"user" yaml:"user"`
	Tasks int    `json:"tasks" yaml:"tasks"`

	// constant workloads
	ProcSize float64 `json:"procsize" yaml:"procsize"`
	CommSize float64 `json:"commsize" yaml:"commsize"`

	// uniform workloads
	MinProc float64 `json:"minproc" yaml:"minproc"`
	MaxProc float64 `json:"maxproc" yaml:"maxproc"`
	MinComm float64 `json:"mincomm" yaml:"mincomm"`
	MaxComm float64 `json:"maxcomm" yaml:"maxcomm"`
}

func (wc *WorkloadCfg) build() (Workload, error) {
	switch wc.Kind {
	case "constant":
		return NewConstantWorkload(wc.User, wc.Tasks, wc.ProcSize, wc.CommSize)
	case "uniform":
		return NewUniformWorkload(wc.User, wc.Tasks, wc.MinProc, wc.MaxProc, wc.MinComm, wc.MaxComm)
	}
	return nil, fmt.Errorf("unknown workload kind %s", wc.Kind)
}

// InterarrivalCfg describes a master's interarrival process in a model file.
type InterarrivalCfg struct {
	Kind string  `json:"kind" yaml:"kind"`
	Gap  float64 `json:"gap" yaml:"gap"`
	Rate float64 `json:"rate" yaml:"rate"`
}

func (ic *InterarrivalCfg) build() (Interarrival, error) {
	switch ic.Kind {
	case "fixed":
		return NewFixedInterarrival(ic.Gap)
	case "exp":
		return NewExpInterarrival(ic.Rate)
	}
	return nil, fmt.Errorf("unknown interarrival kind %s", ic.Kind)
}

// MasterCfg describes one master in a model file.
type MasterCfg struct {
	ID           int             `json:"id" yaml:"id"`
	Workload     WorkloadCfg     `json:"workload" yaml:"workload"`
	Interarrival InterarrivalCfg `json:"interarrival" yaml:"interarrival"`
	Machines     []int           `json:"machines" yaml:"machines"`
}

// MachineCfg describes one machine in a model file.
type MachineCfg struct {
	ID         int     `json:"id" yaml:"id"`
	Cores      int     `json:"cores" yaml:"cores"`
	Throughput float64 `json:"throughput" yaml:"throughput"`
	LoadFactor float64 `json:"loadfactor" yaml:"loadfactor"`
	Startup    float64 `json:"startup" yaml:"startup"`
	MemoryMB   int     `json:"memorymb" yaml:"memorymb"`
	PowerIdle  float64 `json:"poweridle" yaml:"poweridle"`
	PowerMax   float64 `json:"powermax" yaml:"powermax"`
}

// LinkCfg describes one link in a model file.
type LinkCfg struct {
	ID        int     `json:"id" yaml:"id"`
	From      int     `json:"from" yaml:"from"`
	To        int     `json:"to" yaml:"to"`
	Bandwidth float64 `json:"bandwidth" yaml:"bandwidth"`
	Latency   float64 `json:"latency" yaml:"latency"`
	OwtFactor float64 `json:"owtfactor" yaml:"owtfactor"`
}

// SwitchCfg describes one switch in a model file.
type SwitchCfg struct {
	ID        int     `json:"id" yaml:"id"`
	Endpoints []int   `json:"endpoints" yaml:"endpoints"`
	Bandwidth float64 `json:"bandwidth" yaml:"bandwidth"`
	Latency   float64 `json:"latency" yaml:"latency"`
}

// UserCfg describes one workload owner in a model file.
type UserCfg struct {
	Name  string  `json:"name" yaml:"name"`
	Share float64 `json:"share" yaml:"share"`
}

// ModelCfg is the file form of a complete model.
type ModelCfg struct {
	Users    []UserCfg    `json:"users" yaml:"users"`
	Masters  []MasterCfg  `json:"masters" yaml:"masters"`
	Machines []MachineCfg `json:"machines" yaml:"machines"`
	Links    []LinkCfg    `json:"links" yaml:"links"`
	Switches []SwitchCfg  `json:"switches" yaml:"switches"`
}

// ReadModelCfg deserializes a model description.  Deserialization from json
// or yaml is selected based on the file name's extension.
func ReadModelCfg(filename string) (*ModelCfg, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	mc := new(ModelCfg)
	ext := path.Ext(filename)
	switch ext {
	case ".yaml", ".YAML", ".yml":
		err = yaml.Unmarshal(raw, mc)
	case ".json", ".JSON":
		err = json.Unmarshal(raw, mc)
	default:
		err = fmt.Errorf("unrecognized model file extension %s", ext)
	}
	if err != nil {
		return nil, err
	}
	return mc, nil
}

// Populate registers everything the configuration describes with the builder.
func (mc *ModelCfg) Populate(mb *ModelBuilder) error {
	for _, u := range mc.Users {
		mb.RegisterUser(u.Name, u.Share)
	}
	for _, m := range mc.Masters {
		wl, err := m.Workload.build()
		if err != nil {
			return err
		}
		ia, err := m.Interarrival.build()
		if err != nil {
			return err
		}
		mb.RegisterMaster(m.ID, wl, ia, m.Machines)
	}
	for _, m := range mc.Machines {
		mb.RegisterMachine(m.ID, m.LoadFactor, m.Startup, m.Cores,
			m.Throughput, m.MemoryMB, m.PowerIdle, m.PowerMax)
	}
	for _, l := range mc.Links {
		mb.RegisterLink(l.ID, l.From, l.To, l.Bandwidth, l.Latency, l.OwtFactor)
	}
	for _, s := range mc.Switches {
		mb.RegisterSwitch(s.ID, s.Endpoints, s.Bandwidth, s.Latency)
	}
	return nil
}
