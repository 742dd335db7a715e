// Package costmatrix builds per-room traversal cost grids and composes them
// for a path query.
package costmatrix

import (
	"github.com/Garsondee/Squad-Voyager/internal/geo"
)

// Obstacle is the sentinel cost for a tile that must never be entered.
const Obstacle uint8 = 255

// Cost 0 means "use the terrain default" when a matrix is handed to the
// pathfinder; any other value replaces the terrain cost.
type Matrix struct {
	cells [geo.RoomSize * geo.RoomSize]uint8
}

func New() *Matrix {
	return &Matrix{}
}

func (m *Matrix) Get(x, y int) uint8 {
	if x < 0 || y < 0 || x >= geo.RoomSize || y >= geo.RoomSize {
		return Obstacle
	}
	return m.cells[y*geo.RoomSize+x]
}

func (m *Matrix) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= geo.RoomSize || y >= geo.RoomSize {
		return
	}
	m.cells[y*geo.RoomSize+x] = v
}

// Clone returns an independent copy.
func (m *Matrix) Clone() *Matrix {
	c := *m
	return &c
}

// Sum adds matrices cell by cell, clamping at Obstacle. Nil matrices count
// as all zero.
func Sum(ms ...*Matrix) *Matrix {
	out := New()
	for _, m := range ms {
		if m == nil {
			continue
		}
		for i, v := range m.cells {
			s := int(out.cells[i]) + int(v)
			if s > int(Obstacle) {
				s = int(Obstacle)
			}
			out.cells[i] = uint8(s)
		}
	}
	return out
}

// Scale maps every cost in [1,254] linearly onto [lo,hi]. Zero and Obstacle
// cells are copied unchanged. lo is raised to 1 and hi lowered to 254 so a
// scaled cost never collides with either sentinel.
func Scale(m *Matrix, lo, hi uint8) *Matrix {
	lo = max(lo, 1)
	hi = min(hi, Obstacle-1)
	if hi < lo {
		hi = lo
	}
	out := New()
	span := int(hi) - int(lo)
	for i, v := range m.cells {
		switch v {
		case 0, Obstacle:
			out.cells[i] = v
		default:
			// (v-1)/253 of the way from lo to hi, rounded to nearest.
			out.cells[i] = uint8(int(lo) + ((int(v)-1)*span*2+253)/(253*2))
		}
	}
	return out
}

// Blocked counts Obstacle cells.
func (m *Matrix) Blocked() int {
	n := 0
	for _, v := range m.cells {
		if v == Obstacle {
			n++
		}
	}
	return n
}
