package gridwarp

// route.go builds and serves the precomputed routes events travel along.
// A route is discovered once, before the simulation starts, and is read-only
// afterwards.  Construction converts the registered topology into the data
// structures of the gonum graph package and runs its Dijkstra implementation;
// weighting every edge by 1 minimizes hop count, roughly what local routing
// protocols do.  Shortest-path trees are cached per source so that routes
// sharing a source cost one tree computation.

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gopkg.in/yaml.v3"
)

// Route is the ordered sequence of service ids an event visits on its way
// from a source to a destination.  The final hop is the destination itself:
// an event at offset k sits at hop Route[k], and k+1 == len(Route) means the
// current hop is where the task is bound.
type Route []int

// rtEndpts keys the routing table by the ids of a communicating pair.
type rtEndpts struct {
	srcID, dstID int
}

// RoutingTable holds one Route per communicating (source, destination)
// pair.  It is populated before the simulation starts and never mutated at
// simulation time.
type RoutingTable struct {
	routes map[rtEndpts]Route
}

// CreateRoutingTable is a constructor.
func CreateRoutingTable() *RoutingTable {
	rt := new(RoutingTable)
	rt.routes = make(map[rtEndpts]Route)
	return rt
}

// AddRoute records the hop sequence from src to dst.  The final hop must be
// the destination itself.
func (rt *RoutingTable) AddRoute(src, dst int, route Route) error {
	if len(route) == 0 {
		return fmt.Errorf("route from %d to %d is empty", src, dst)
	}
	if route[len(route)-1] != dst {
		return fmt.Errorf("route from %d to %d ends at %d, not at the destination",
			src, dst, route[len(route)-1])
	}
	rt.routes[rtEndpts{srcID: src, dstID: dst}] = route
	return nil
}

// Route returns the hop sequence from src to dst, or nil if none is known.
func (rt *RoutingTable) Route(src, dst int) Route {
	return rt.routes[rtEndpts{srcID: src, dstID: dst}]
}

// RouteDesc is the serialized form of one route in a routing-table file.
type RouteDesc struct {
	Src  int   `json:"src" yaml:"src"`
	Dst  int   `json:"dst" yaml:"dst"`
	Hops []int `json:"hops" yaml:"hops"`
}

// RoutingCfg is the on-disk form of a routing table.
type RoutingCfg struct {
	Routes []RouteDesc `json:"routes" yaml:"routes"`
}

// ReadRoutingTable loads a routing-table file.  Serialization is yaml or
// json, selected by the file extension.
func ReadRoutingTable(filename string) (*RoutingTable, error) {
	ext := filepath.Ext(filename)
	useYAML := ext == ".yaml" || ext == ".yml"

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg := RoutingCfg{}
	if useYAML {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, err
	}

	rt := CreateRoutingTable()
	for _, rd := range cfg.Routes {
		if err := rt.AddRoute(rd.Src, rd.Dst, Route(rd.Hops)); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

// routeBuilder discovers shortest-path routes over the registered topology.
type routeBuilder struct {
	gNodes    map[int]simple.Node
	connGraph *simple.WeightedUndirectedGraph
	cachedSP  map[int]path.Shortest
}

// newRouteBuilder converts an adjacency map (service id -> ids of directly
// connected services) into the graph package's representation.
func newRouteBuilder(edges map[int][]int) *routeBuilder {
	rb := new(routeBuilder)
	rb.gNodes = make(map[int]simple.Node)
	rb.cachedSP = make(map[int]path.Shortest)
	rb.connGraph = simple.NewWeightedUndirectedGraph(0, math.Inf(1))

	for nodeID, edgeList := range edges {
		if _, present := rb.gNodes[nodeID]; !present {
			rb.gNodes[nodeID] = simple.Node(nodeID)
		}
		for _, nbrID := range edgeList {
			if _, present := rb.gNodes[nbrID]; !present {
				rb.gNodes[nbrID] = simple.Node(nbrID)
			}
		}
	}

	for nodeID, edgeList := range edges {
		for _, nbrID := range edgeList {
			// no connections to self
			if nodeID == nbrID {
				continue
			}
			rb.connGraph.SetWeightedEdge(simple.WeightedEdge{F: rb.gNodes[nodeID], T: rb.gNodes[nbrID], W: 1.0})
		}
	}
	return rb
}

// spTree returns the shortest-path tree rooted at from, computing and
// caching it on first use.
func (rb *routeBuilder) spTree(from int) path.Shortest {
	tree, present := rb.cachedSP[from]
	if present {
		return tree
	}
	tree = path.DijkstraFrom(rb.gNodes[from], rb.connGraph)
	rb.cachedSP[from] = tree
	return tree
}

// route returns the hop sequence from src to dst, excluding src itself.
func (rb *routeBuilder) route(src, dst int) (Route, error) {
	if _, present := rb.gNodes[src]; !present {
		return nil, fmt.Errorf("service %d is not connected to the topology", src)
	}
	if _, present := rb.gNodes[dst]; !present {
		return nil, fmt.Errorf("service %d is not connected to the topology", dst)
	}

	var nodeSeq []graph.Node
	nodeSeq, _ = rb.spTree(src).To(int64(dst))
	if len(nodeSeq) < 2 {
		return nil, fmt.Errorf("no route from %d to %d", src, dst)
	}

	rt := make(Route, 0, len(nodeSeq)-1)
	for _, node := range nodeSeq[1:] {
		rt = append(rt, int(node.ID()))
	}
	return rt, nil
}
