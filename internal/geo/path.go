package geo

import "strings"

// SerializePath encodes a tile sequence as a string of direction digits.
// Transitions between rooms are skipped: the border transfer happens on its
// own when a unit steps onto an exit tile.
func SerializePath(start Pos, path []Pos) string {
	var sb strings.Builder
	sb.Grow(len(path))
	last := start
	for _, p := range path {
		if p.Room == last.Room {
			if d := last.DirectionTo(p); d.Valid() {
				sb.WriteByte(d.Byte())
			}
		}
		last = p
	}
	return sb.String()
}

// DeserializePath replays a direction string from start using the same
// movement rules as units, returning every tile visited. Decoding stops at
// the first invalid character or blocked step.
func DeserializePath(start Pos, path string) []Pos {
	out := make([]Pos, 0, len(path))
	cur := start
	for i := 0; i < len(path); i++ {
		d, ok := DirectionFromByte(path[i])
		if !ok {
			break
		}
		next, ok := cur.Moved(d)
		if !ok {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out
}
