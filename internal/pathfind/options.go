// Package pathfind is the point-to-point pathfinder: a bounded A* search
// over world-space tiles, priced per room by composed cost matrices and
// pruned by the room route planner.
package pathfind

import (
	"github.com/Garsondee/Squad-Voyager/internal/costmatrix"
	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/route"
)

// Terrain costs for a plain and a swamp tile under the three road modes.
const (
	plainCost = 2
	swampCost = 10

	offRoadPlain = 1
	offRoadSwamp = 1

	ignoreRoadsPlain = 1
	ignoreRoadsSwamp = 5

	// heuristicWeight inflates the distance estimate to keep searches
	// narrow on open ground.
	heuristicWeight = 1.2
)

// DefaultRange is how close to the destination a path must end unless the
// caller asks otherwise.
const DefaultRange = 1

// RouteMode selects whether the room route planner prunes the search.
type RouteMode int

const (
	// RouteAuto consults the planner only for destinations farther away
	// than the configured room distance.
	RouteAuto RouteMode = iota
	RouteAlways
	RouteNever
)

// Goal is a target tile and how close the path must get to it.
type Goal struct {
	Pos   geo.Pos
	Range int
}

// RoomCallback may replace the composed matrix of a room. Returning
// ok=false forbids the room; returning a nil matrix keeps the composed one.
type RoomCallback func(room string, composed *costmatrix.Matrix) (m *costmatrix.Matrix, ok bool)

// Options tune a query. The zero value selects the defaults.
type Options struct {
	// MaxOps caps node expansions. Zero uses the configured budget.
	MaxOps int
	// MaxRooms caps the number of rooms the search may load.
	MaxRooms int

	// Range is the required distance to the destination. Zero means
	// DefaultRange unless ExactRange is set.
	Range      int
	ExactRange bool
	// MovingTarget implies ExactRange.
	MovingTarget bool

	OffRoad     bool
	IgnoreRoads bool

	// Route, when set, is the explicit set of rooms the path may cross.
	Route        map[string]bool
	UseFindRoute RouteMode
	Routing      route.Options

	// Matrices lists the cost layers to compose. Empty means
	// costmatrix.DefaultKinds.
	Matrices     []costmatrix.Kind
	MatrixParam  int
	Obstacles    []geo.Pos
	RoomCallback RoomCallback

	// EnsurePath retries an incomplete short query once with route pruning.
	EnsurePath bool
	Visualize  bool
}

func (o Options) goalRange() int {
	switch {
	case o.MovingTarget || o.ExactRange:
		return 0
	case o.Range > 0:
		return o.Range
	default:
		return DefaultRange
	}
}

func (o Options) kinds() []costmatrix.Kind {
	if len(o.Matrices) == 0 {
		return costmatrix.DefaultKinds
	}
	return o.Matrices
}

func (o Options) terrainCosts() (plain, swamp int) {
	switch {
	case o.OffRoad:
		return offRoadPlain, offRoadSwamp
	case o.IgnoreRoads:
		return ignoreRoadsPlain, ignoreRoadsSwamp
	default:
		return plainCost, swampCost
	}
}

// Result is the outcome of a query. Path excludes the origin and, when
// Incomplete is false, ends within range of a goal. An incomplete result
// leads to the explored tile closest to a goal.
type Result struct {
	Path       []geo.Pos
	Incomplete bool
	Ops        int
	Cost       int
	// Rooms is the allow-list the search was pruned to, nil when unpruned.
	Rooms    map[string]bool
	Matrices []costmatrix.Kind
}
