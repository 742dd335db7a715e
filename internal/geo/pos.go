package geo

import "fmt"

// Pos is a tile coordinate inside a named room. X and Y are in [0,49].
type Pos struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Room string `json:"room"`
}

// NewPos is shorthand for a Pos literal.
func NewPos(x, y int, room string) Pos {
	return Pos{X: x, Y: y, Room: room}
}

func (p Pos) String() string {
	return fmt.Sprintf("[%s %d,%d]", p.Room, p.X, p.Y)
}

// InBounds reports whether the coordinates lie inside a room.
func (p Pos) InBounds() bool {
	return p.X >= 0 && p.Y >= 0 && p.X < RoomSize && p.Y < RoomSize
}

// IsExit reports whether p is on the room border.
func (p Pos) IsExit() bool {
	return p.X == 0 || p.Y == 0 || p.X == RoomSize-1 || p.Y == RoomSize-1
}

// IsCorner reports whether p is one of the four room corners. Corners are
// never exits into a neighbouring room.
func (p Pos) IsCorner() bool {
	return (p.X == 0 || p.X == RoomSize-1) && (p.Y == 0 || p.Y == RoomSize-1)
}

// Global returns world-space tile coordinates.
func (p Pos) Global() (int, int, bool) {
	rx, ry, ok := ParseRoom(p.Room)
	if !ok {
		return 0, 0, false
	}
	return rx*RoomSize + p.X, ry*RoomSize + p.Y, true
}

// FromGlobal converts world-space tile coordinates back into a Pos.
func FromGlobal(gx, gy int) Pos {
	rx, x := floorDiv(gx, RoomSize)
	ry, y := floorDiv(gy, RoomSize)
	return Pos{X: x, Y: y, Room: RoomName(rx, ry)}
}

// SameCoord compares x and y only.
func (p Pos) SameCoord(q Pos) bool {
	return p.X == q.X && p.Y == q.Y
}

// RangeTo is the Chebyshev distance between p and q. Positions in different
// rooms are measured in world space.
func (p Pos) RangeTo(q Pos) int {
	if p.Room == q.Room {
		return max(abs(p.X-q.X), abs(p.Y-q.Y))
	}
	px, py, ok1 := p.Global()
	qx, qy, ok2 := q.Global()
	if !ok1 || !ok2 {
		return farAway
	}
	return max(abs(px-qx), abs(py-qy))
}

// InRangeTo reports whether q is within r tiles of p.
func (p Pos) InRangeTo(q Pos, r int) bool {
	return p.RangeTo(q) <= r
}

// IsNearTo reports whether q is on p or one of its eight neighbours.
func (p Pos) IsNearTo(q Pos) bool {
	return p.RangeTo(q) <= 1
}

// DirectionTo returns the compass direction from p towards q.
func (p Pos) DirectionTo(q Pos) Direction {
	if p.Room == q.Room {
		return DirectionFromOffset(q.X-p.X, q.Y-p.Y)
	}
	px, py, ok1 := p.Global()
	qx, qy, ok2 := q.Global()
	if !ok1 || !ok2 {
		return DirNone
	}
	return DirectionFromOffset(qx-px, qy-py)
}

// Step returns the neighbouring tile in direction d inside the same room.
// It fails when the step would leave the room.
func (p Pos) Step(d Direction) (Pos, bool) {
	if !d.Valid() {
		return p, false
	}
	dx, dy := d.Offset()
	q := Pos{X: p.X + dx, Y: p.Y + dy, Room: p.Room}
	if !q.InBounds() {
		return p, false
	}
	return q, true
}

// Portal returns the tile on the far side of the border for an exit tile.
func (p Pos) Portal() (Pos, bool) {
	if !p.IsExit() || p.IsCorner() {
		return p, false
	}
	var d Direction
	q := p
	switch {
	case p.X == 0:
		d, q.X = Left, RoomSize-1
	case p.X == RoomSize-1:
		d, q.X = Right, 0
	case p.Y == 0:
		d, q.Y = Top, RoomSize-1
	default:
		d, q.Y = Bottom, 0
	}
	room, ok := NeighborRoom(p.Room, d)
	if !ok {
		return p, false
	}
	q.Room = room
	return q, true
}

// Moved returns where a unit standing on p ends up after moving one tile in
// direction d. A unit that steps onto a border tile from inside its room is
// carried across to the paired tile of the neighbouring room; a unit already
// standing on a border tile may step straight into the neighbouring room.
func (p Pos) Moved(d Direction) (Pos, bool) {
	if !d.Valid() {
		return p, false
	}
	if q, ok := p.Step(d); ok {
		if q.IsExit() && !q.IsCorner() {
			return q.Portal()
		}
		return q, true
	}
	gx, gy, ok := p.Global()
	if !ok {
		return p, false
	}
	dx, dy := d.Offset()
	return FromGlobal(gx+dx, gy+dy), true
}

// PositionAtDirection returns the tile next to origin in direction d. It
// fails at the room edge.
func PositionAtDirection(origin Pos, d Direction) (Pos, bool) {
	return origin.Step(d)
}

func floorDiv(v, n int) (int, int) {
	q := v / n
	r := v % n
	if r < 0 {
		q--
		r += n
	}
	return q, r
}
