package geo

// Direction is one of the eight compass steps between adjacent tiles.
// Values match the serialized path alphabet ('1'..'8').
type Direction int

const (
	DirNone Direction = iota
	Top
	TopRight
	Right
	BottomRight
	Bottom
	BottomLeft
	Left
	TopLeft
)

// AllDirections lists the eight movement directions in clockwise order
// starting at Top.
var AllDirections = [8]Direction{Top, TopRight, Right, BottomRight, Bottom, BottomLeft, Left, TopLeft}

var (
	offsetX = [9]int{0, 0, 1, 1, 1, 0, -1, -1, -1}
	offsetY = [9]int{0, -1, -1, 0, 1, 1, 1, 0, -1}
)

// Valid reports whether d is one of the eight movement directions.
func (d Direction) Valid() bool {
	return d >= Top && d <= TopLeft
}

// Offset returns the (dx, dy) tile offset for d. DirNone and invalid values
// return (0, 0).
func (d Direction) Offset() (int, int) {
	if !d.Valid() {
		return 0, 0
	}
	return offsetX[d], offsetY[d]
}

// IsDiagonal reports whether d moves along both axes.
func (d Direction) IsDiagonal() bool {
	return d == TopRight || d == BottomRight || d == BottomLeft || d == TopLeft
}

// Rotate turns d clockwise by steps * 45°. Negative steps turn
// counter-clockwise.
func (d Direction) Rotate(steps int) Direction {
	if !d.Valid() {
		return d
	}
	i := (int(d) - 1 + steps) % 8
	if i < 0 {
		i += 8
	}
	return Direction(i + 1)
}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	return d.Rotate(4)
}

// Byte returns the path alphabet character for d.
func (d Direction) Byte() byte {
	if !d.Valid() {
		return '0'
	}
	return byte('0' + int(d))
}

// DirectionFromByte parses one serialized path character.
func DirectionFromByte(b byte) (Direction, bool) {
	d := Direction(int(b) - '0')
	if !d.Valid() {
		return DirNone, false
	}
	return d, true
}

// DirectionFromOffset maps a sign pair to a direction. Only the signs of dx
// and dy matter.
func DirectionFromOffset(dx, dy int) Direction {
	sx, sy := sign(dx), sign(dy)
	for _, d := range AllDirections {
		if offsetX[d] == sx && offsetY[d] == sy {
			return d
		}
	}
	return DirNone
}

func (d Direction) String() string {
	switch d {
	case Top:
		return "top"
	case TopRight:
		return "top_right"
	case Right:
		return "right"
	case BottomRight:
		return "bottom_right"
	case Bottom:
		return "bottom"
	case BottomLeft:
		return "bottom_left"
	case Left:
		return "left"
	case TopLeft:
		return "top_left"
	default:
		return "none"
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
