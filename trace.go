package gridwarp

import (
	"encoding/json"
	"os"
	"path"
	"sort"
	"strconv"

	"github.com/iti/evt/vrtime"
	"gopkg.in/yaml.v3"
)

// TraceInst is one serialized trace record, tagged with the virtual time at
// which it was committed and the type of record carried in TraceStr.
type TraceInst struct {
	TraceTime string
	TraceType string
	TraceStr  string
}

// NameType is an entry in a dictionary created for a trace
// that maps service id numbers to a (name,type) pair
type NameType struct {
	Name string
	Type string
}

// TraceManager gathers committed-event records for post-run analysis.  Only
// the commit path feeds it, so a trace never contains an event that was later
// rolled back.
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each service id
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records for this experiment, keyed by service id
	Traces map[int][]TraceInst `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace manager is active.  By testing this
// flag we can inhibit the activity of gathering a trace when we don't want it,
// while embedding calls to its methods everywhere we need them when it is
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.NameByID = make(map[int]NameType)
	tm.Traces = make(map[int][]TraceInst)
	return tm
}

// Active tells the caller whether the trace manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm.InUse
}

// AddName adds an element to the id -> (name,type) dictionary for the trace file
func (tm *TraceManager) AddName(id int, name string, objDesc string) {
	if tm.InUse {
		_, present := tm.NameByID[id]
		if present {
			panic("duplicated id in AddName")
		}
		tm.NameByID[id] = NameType{Name: name, Type: objDesc}
	}
}

// EventTrace records the commit of one event at one service.
type EventTrace struct {
	Time        float64 `json:"time" yaml:"time"`
	Ticks       int64   `json:"ticks" yaml:"ticks"`
	ServiceID   int     `json:"serviceid" yaml:"serviceid"`
	EventType   string  `json:"eventtype" yaml:"eventtype"`
	User        string  `json:"user" yaml:"user"`
	Origin      int     `json:"origin" yaml:"origin"`
	Dest        int     `json:"dest" yaml:"dest"`
	RouteOffset int     `json:"routeoffset" yaml:"routeoffset"`
	Downward    bool    `json:"downward" yaml:"downward"`
}

// Serialize returns the record in yaml form, for embedding in a TraceInst.
func (et *EventTrace) Serialize() string {
	bytes, err := yaml.Marshal(*et)
	if err != nil {
		panic(err)
	}
	return string(bytes[:])
}

// AddEvent stores a record of a committed event.
func (tm *TraceManager) AddEvent(vrt vrtime.Time, serviceID int, ev *Event) {
	if !tm.InUse {
		return
	}
	et := &EventTrace{
		Time:        vrt.Seconds(),
		Ticks:       vrt.Ticks(),
		ServiceID:   serviceID,
		EventType:   ev.Type.String(),
		User:        ev.Task.Owner,
		Origin:      ev.Task.Origin,
		Dest:        ev.Task.Dest,
		RouteOffset: ev.RouteOffset,
		Downward:    ev.Downward,
	}
	trace := TraceInst{
		TraceTime: strconv.FormatFloat(vrt.Seconds(), 'g', -1, 64),
		TraceType: "event",
		TraceStr:  et.Serialize(),
	}

	_, present := tm.Traces[serviceID]
	if !present {
		tm.Traces[serviceID] = make([]TraceInst, 0)
	}
	tm.Traces[serviceID] = append(tm.Traces[serviceID], trace)
}

// WriteToFile stores the Traces struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this
// name.  With globalOrder set the per-service traces are merged into a single
// list sorted by virtual time.
func (tm *TraceManager) WriteToFile(filename string, globalOrder bool) bool {
	if !tm.InUse {
		return false
	}
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	out := tm
	if globalOrder {
		ntm := new(TraceManager)
		ntm.InUse = tm.InUse
		ntm.ExpName = tm.ExpName
		ntm.NameByID = make(map[int]NameType)
		for key, value := range tm.NameByID {
			ntm.NameByID[key] = value
		}
		ntm.Traces = make(map[int][]TraceInst)
		ntm.Traces[0] = make([]TraceInst, 0)
		for _, valueList := range tm.Traces {
			ntm.Traces[0] = append(ntm.Traces[0], valueList...)
		}

		sort.Slice(ntm.Traces[0], func(i, j int) bool {
			v1, _ := strconv.ParseFloat(ntm.Traces[0][i].TraceTime, 64)
			v2, _ := strconv.ParseFloat(ntm.Traces[0][j].TraceTime, 64)
			return v1 < v2
		})
		out = ntm
	}

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*out)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*out, "", "\t")
	}
	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	err := f.Close()
	if err != nil {
		panic(err)
	}
	return true
}
