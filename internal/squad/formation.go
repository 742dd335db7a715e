package squad

import (
	"github.com/Garsondee/Squad-Voyager/internal/fault"
	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

// SlotCount is the size of the 2x2 formation. Slots 0 and 1 form the front
// row, 2 and 3 the back row, each listed left to right as seen when facing
// the orientation.
const SlotCount = 4

// slotOffsets gives each slot's offset from the block's top-left tile for
// every supported orientation. Each entry is the previous one turned a
// quarter clockwise.
var slotOffsets = map[geo.Direction][SlotCount][2]int{
	geo.Top:    {{0, 0}, {1, 0}, {0, 1}, {1, 1}},
	geo.Right:  {{1, 0}, {1, 1}, {0, 0}, {0, 1}},
	geo.Bottom: {{1, 1}, {0, 1}, {1, 0}, {0, 0}},
	geo.Left:   {{0, 1}, {0, 0}, {1, 1}, {1, 0}},
}

// slotPos returns where slot stands when the block's top-left tile is
// anchor.
func slotPos(anchor geo.Pos, o geo.Direction, slot int) (geo.Pos, error) {
	offs, ok := slotOffsets[o]
	if !ok {
		return geo.Pos{}, fault.New("squad/formation", "no slot layout for orientation %s", o)
	}
	if slot < 0 || slot >= SlotCount {
		return geo.Pos{}, fault.New("squad/formation", "slot %d out of range", slot)
	}
	d := offs[slot]
	return geo.NewPos(anchor.X+d[0], anchor.Y+d[1], anchor.Room), nil
}

// Rotation is a reorientation maneuver of the block.
type Rotation int

const (
	NoRotation Rotation = iota
	Clockwise
	CounterClockwise
	TurnAround
)

func (r Rotation) String() string {
	switch r {
	case Clockwise:
		return "clockwise"
	case CounterClockwise:
		return "counter_clockwise"
	case TurnAround:
		return "turn_around"
	default:
		return "none"
	}
}

// rotationTable maps an orientation to the next step directions that call
// for each maneuver.
var rotationTable = map[geo.Direction]map[Rotation][]geo.Direction{
	geo.Left: {
		Clockwise:        {geo.Top, geo.TopRight},
		CounterClockwise: {geo.Bottom, geo.BottomRight},
		TurnAround:       {geo.Right},
	},
	geo.Right: {
		Clockwise:        {geo.Bottom, geo.BottomLeft},
		CounterClockwise: {geo.Top, geo.TopLeft},
		TurnAround:       {geo.Left},
	},
	geo.Top: {
		Clockwise:        {geo.Right, geo.BottomRight},
		CounterClockwise: {geo.Left, geo.BottomLeft},
		TurnAround:       {geo.Bottom},
	},
	geo.Bottom: {
		Clockwise:        {geo.Left, geo.TopLeft},
		CounterClockwise: {geo.Right, geo.TopRight},
		TurnAround:       {geo.Top},
	},
}

// orientationChangeRequired is false when next is the orientation or one
// of its two diagonal neighbours.
func orientationChangeRequired(o, next geo.Direction) bool {
	return next != o && next != o.Rotate(1) && next != o.Rotate(-1)
}

// classifyRotation picks the maneuver that turns o towards next. Diagonal
// orientations have no table and are reported as faults.
func classifyRotation(o, next geo.Direction) (Rotation, error) {
	if !orientationChangeRequired(o, next) {
		return NoRotation, nil
	}
	table, ok := rotationTable[o]
	if !ok {
		return NoRotation, fault.New("squad/formation", "no rotation table for orientation %s", o)
	}
	for _, r := range []Rotation{Clockwise, CounterClockwise, TurnAround} {
		for _, d := range table[r] {
			if d == next {
				return r, nil
			}
		}
	}
	return NoRotation, fault.New("squad/formation", "no rotation from %s towards %s", o, next)
}

// rotated returns the orientation after r.
func rotated(o geo.Direction, r Rotation) geo.Direction {
	switch r {
	case Clockwise:
		return o.Rotate(2)
	case CounterClockwise:
		return o.Rotate(-2)
	case TurnAround:
		return o.Opposite()
	default:
		return o
	}
}

// maneuverSteps returns the step each slot takes to perform r from o.
// Members trade tiles inside the block, so the block itself stays put: a
// quarter turn walks everyone one tile around it, an about-face swaps the
// diagonals.
func maneuverSteps(o geo.Direction, r Rotation) ([SlotCount]geo.Direction, error) {
	var steps [SlotCount]geo.Direction
	from, ok := slotOffsets[o]
	if !ok {
		return steps, fault.New("squad/formation", "no slot layout for orientation %s", o)
	}
	to := slotOffsets[rotated(o, r)]
	for i := range steps {
		steps[i] = geo.DirectionFromOffset(to[i][0]-from[i][0], to[i][1]-from[i][1])
	}
	return steps, nil
}

// initialOrientation faces the exit of the rally room that leads towards
// the target room.
func initialOrientation(w world.Query, rally *geo.Pos, target string) (geo.Direction, error) {
	if rally == nil {
		return geo.DirNone, fault.New("squad/formation", "no rally position to orient from")
	}
	if rally.Room == target {
		return geo.DirNone, fault.New("squad/formation", "rally position %s is inside the target room", rally)
	}
	rooms, ok := w.FindRoute(rally.Room, target, nil)
	if !ok || len(rooms) == 0 {
		return geo.DirNone, fault.New("squad/formation", "no route from %s to %s", rally.Room, target)
	}
	d, ok := geo.ExitDirection(rally.Room, rooms[0])
	if !ok {
		return geo.DirNone, fault.New("squad/formation", "%s does not border %s", rally.Room, rooms[0])
	}
	return d, nil
}

// offExitDirection is the step that takes a unit on a border tile back
// into its room.
func offExitDirection(p geo.Pos) geo.Direction {
	switch {
	case p.X == 0:
		return geo.Right
	case p.X == geo.RoomSize-1:
		return geo.Left
	case p.Y == 0:
		return geo.Bottom
	case p.Y == geo.RoomSize-1:
		return geo.Top
	default:
		return geo.DirNone
	}
}

// clearOfEdges reports whether p keeps margin tiles from every border.
func clearOfEdges(p geo.Pos, margin int) bool {
	hi := geo.RoomSize - 1 - margin
	return p.X >= margin && p.Y >= margin && p.X <= hi && p.Y <= hi
}

// anchorOf returns the top-left tile of the block the units occupy in
// room.
func anchorOf(units []world.Unit, room string) (geo.Pos, bool) {
	found := false
	var a geo.Pos
	for _, u := range units {
		if u.Pos.Room != room {
			continue
		}
		if !found {
			a, found = u.Pos, true
			continue
		}
		a.X = min(a.X, u.Pos.X)
		a.Y = min(a.Y, u.Pos.Y)
	}
	return a, found
}

// quadGoals lists the anchor tiles from which a block touches target.
// Within range 1 of each goal, some block tile is next to target.
func quadGoals(target geo.Pos) []geo.Pos {
	return []geo.Pos{
		geo.NewPos(target.X-1, target.Y-1, target.Room),
		geo.NewPos(target.X, target.Y-1, target.Room),
		geo.NewPos(target.X-1, target.Y, target.Room),
		geo.NewPos(target.X, target.Y, target.Room),
	}
}
