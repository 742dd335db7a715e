package geo

import (
	"fmt"
	"strconv"
)

// RoomSize is the width and height of every room in tiles.
const RoomSize = 50

// farAway is returned for distances between positions that cannot be
// related (unparseable room names).
const farAway = 1 << 30

// ParseRoom converts a room name such as "W1N1" or "E12S3" into world room
// coordinates. West and north rooms map to negative coordinates: W0 is x=-1,
// E0 is x=0, N0 is y=-1 and S0 is y=0.
func ParseRoom(name string) (rx, ry int, ok bool) {
	if len(name) < 4 {
		return 0, 0, false
	}
	h := name[0]
	if h != 'W' && h != 'E' {
		return 0, 0, false
	}
	i := 1
	for i < len(name) && name[i] >= '0' && name[i] <= '9' {
		i++
	}
	if i == 1 || i >= len(name) {
		return 0, 0, false
	}
	xn, err := strconv.Atoi(name[1:i])
	if err != nil {
		return 0, 0, false
	}
	v := name[i]
	if v != 'N' && v != 'S' {
		return 0, 0, false
	}
	yn, err := strconv.Atoi(name[i+1:])
	if err != nil || i+1 >= len(name) {
		return 0, 0, false
	}
	if h == 'W' {
		rx = -xn - 1
	} else {
		rx = xn
	}
	if v == 'N' {
		ry = -yn - 1
	} else {
		ry = yn
	}
	return rx, ry, true
}

// RoomName is the inverse of ParseRoom.
func RoomName(rx, ry int) string {
	var h, v string
	var xn, yn int
	if rx < 0 {
		h, xn = "W", -rx-1
	} else {
		h, xn = "E", rx
	}
	if ry < 0 {
		v, yn = "N", -ry-1
	} else {
		v, yn = "S", ry
	}
	return fmt.Sprintf("%s%d%s%d", h, xn, v, yn)
}

// roomNumbers returns the printed numbers of a room name (the 1 and 2 of
// "W1N2"), used by the highway and source keeper classification.
func roomNumbers(name string) (int, int, bool) {
	rx, ry, ok := ParseRoom(name)
	if !ok {
		return 0, 0, false
	}
	if rx < 0 {
		rx = -rx - 1
	}
	if ry < 0 {
		ry = -ry - 1
	}
	return rx, ry, true
}

// IsHighway reports whether the room sits on a highway row or column
// (a printed coordinate divisible by 10).
func IsHighway(name string) bool {
	a, b, ok := roomNumbers(name)
	if !ok {
		return false
	}
	return a%10 == 0 || b%10 == 0
}

// IsSourceKeeper reports whether the room lies in the source keeper ring
// around a sector center. The center room itself (x5y5) is excluded.
func IsSourceKeeper(name string) bool {
	a, b, ok := roomNumbers(name)
	if !ok {
		return false
	}
	fm, sm := a%10, b%10
	if fm == 5 && sm == 5 {
		return false
	}
	return fm >= 4 && fm <= 6 && sm >= 4 && sm <= 6
}

// RoomLinearDistance is the Chebyshev distance between two rooms counted in
// rooms.
func RoomLinearDistance(a, b string) int {
	if a == b {
		return 0
	}
	ax, ay, ok1 := ParseRoom(a)
	bx, by, ok2 := ParseRoom(b)
	if !ok1 || !ok2 {
		return farAway
	}
	return max(abs(ax-bx), abs(ay-by))
}

// NeighborRoom returns the room adjacent to name across the given
// orthogonal direction.
func NeighborRoom(name string, d Direction) (string, bool) {
	if d != Top && d != Right && d != Bottom && d != Left {
		return "", false
	}
	rx, ry, ok := ParseRoom(name)
	if !ok {
		return "", false
	}
	dx, dy := d.Offset()
	return RoomName(rx+dx, ry+dy), true
}

// ExitDirection returns the orthogonal direction leading from room a into
// the adjacent room b.
func ExitDirection(a, b string) (Direction, bool) {
	ax, ay, ok1 := ParseRoom(a)
	bx, by, ok2 := ParseRoom(b)
	if !ok1 || !ok2 {
		return DirNone, false
	}
	dx, dy := bx-ax, by-ay
	if abs(dx)+abs(dy) != 1 {
		return DirNone, false
	}
	return DirectionFromOffset(dx, dy), true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
