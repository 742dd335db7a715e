package costmatrix

import (
	"fmt"

	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/simlog"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

type Kind string

const (
	RoadTerrain    Kind = "roadTerrainMatrix"
	Structures     Kind = "structureMatrix"
	OwnedCreeps    Kind = "ownedCreepMatrix"
	NonOwnedCreeps Kind = "nonOwnedCreepMatrix"
	// QuadSquad prices a tile as the top-left anchor of a 2x2 formation.
	QuadSquad Kind = "quadSquad"
)

// DefaultKinds is the layer set used when a query names none.
var DefaultKinds = []Kind{RoadTerrain, Structures, OwnedCreeps, NonOwnedCreeps}

// CreepKinds are the occupancy layers added when an agent gets stuck.
var CreepKinds = []Kind{OwnedCreeps, NonOwnedCreeps}

// Merge appends the kinds from extra not already present in base.
func Merge(base []Kind, extra ...Kind) []Kind {
	out := append([]Kind(nil), base...)
	for _, k := range extra {
		found := false
		for _, b := range out {
			if b == k {
				found = true
				break
			}
		}
		if !found {
			out = append(out, k)
		}
	}
	return out
}

// Quad formation cell costs.
const (
	quadRoad  = 1
	quadPlain = 2
	quadSwamp = 10
)

// Visualizer receives composed matrices for debug drawing. Calls are fire
// and forget.
type Visualizer interface {
	DrawMatrix(room string, m *Matrix)
}

type cacheKey struct {
	kind  Kind
	room  string
	param int
}

// Provider builds matrices from world queries and caches them until the
// world clock moves on.
type Provider struct {
	world  world.Query
	log    *simlog.Log
	visual Visualizer

	cycle int
	cache map[cacheKey]*Matrix
}

func NewProvider(w world.Query, log *simlog.Log) *Provider {
	return &Provider{
		world: w,
		log:   log,
		cycle: -1,
		cache: make(map[cacheKey]*Matrix),
	}
}

// SetVisualizer attaches a debug renderer. Pass nil to detach.
func (p *Provider) SetVisualizer(v Visualizer) {
	p.visual = v
}

// Visualize forwards a matrix to the attached renderer, if any.
func (p *Provider) Visualize(room string, m *Matrix) {
	if p.visual != nil && m != nil {
		p.visual.DrawMatrix(room, m)
	}
}

// Get returns the matrix of the given kind for room. param only matters for
// kinds that take one. The result is shared: callers must Clone before
// writing to it.
func (p *Provider) Get(kind Kind, room string, param int) *Matrix {
	if now := p.world.Time(); now != p.cycle {
		clear(p.cache)
		p.cycle = now
	}
	key := cacheKey{kind: kind, room: room, param: param}
	if m, ok := p.cache[key]; ok {
		return m
	}
	m := p.build(kind, room)
	p.cache[key] = m
	p.log.AddVerbose(p.cycle, room, "matrix", "build",
		fmt.Sprintf("%s blocked=%d", kind, m.Blocked()), float64(m.Blocked()))
	return m
}

// Compose sums the given layers for room and scales the result into
// [lo,hi].
func (p *Provider) Compose(room string, kinds []Kind, param int, lo, hi uint8) *Matrix {
	layers := make([]*Matrix, 0, len(kinds))
	for _, k := range kinds {
		layers = append(layers, p.Get(k, room, param))
	}
	return Scale(Sum(layers...), lo, hi)
}

// Cached reports how many matrices are held for the current cycle.
func (p *Provider) Cached() int {
	return len(p.cache)
}

func (p *Provider) build(kind Kind, room string) *Matrix {
	switch kind {
	case RoadTerrain:
		return p.roadTerrain(room)
	case Structures:
		return p.structures(room)
	case OwnedCreeps:
		return p.creeps(room, true)
	case NonOwnedCreeps:
		return p.creeps(room, false)
	case QuadSquad:
		return p.quad(room)
	default:
		return New()
	}
}

func (p *Provider) roadTerrain(room string) *Matrix {
	m := New()
	for y := 0; y < geo.RoomSize; y++ {
		for x := 0; x < geo.RoomSize; x++ {
			if p.world.Terrain(geo.NewPos(x, y, room)) == world.Wall {
				m.Set(x, y, Obstacle)
			}
		}
	}
	for _, s := range p.world.Structures(room) {
		if s.Type == world.Road && m.Get(s.Pos.X, s.Pos.Y) != Obstacle {
			m.Set(s.Pos.X, s.Pos.Y, 1)
		}
	}
	return m
}

func (p *Provider) structures(room string) *Matrix {
	m := New()
	me := p.world.Me()
	for _, s := range p.world.Structures(room) {
		if !s.Walkable(me) {
			m.Set(s.Pos.X, s.Pos.Y, Obstacle)
		}
	}
	return m
}

func (p *Provider) creeps(room string, owned bool) *Matrix {
	m := New()
	me := p.world.Me()
	for _, u := range p.world.Units(room) {
		if (u.Owner == me) == owned {
			m.Set(u.Pos.X, u.Pos.Y, Obstacle)
		}
	}
	return m
}

// quad prices every tile as the top-left corner of a 2x2 block. A block
// that would cover a border tile is blocked.
func (p *Provider) quad(room string) *Matrix {
	m := New()
	rx, ry, ok := geo.ParseRoom(room)
	if !ok {
		for i := range m.cells {
			m.cells[i] = Obstacle
		}
		return m
	}
	me := p.world.Me()
	// Only this room and its right/bottom neighbours are ever read.
	byRoom := map[string]map[geo.Pos][]world.Structure{}
	structuresAt := func(pos geo.Pos) []world.Structure {
		idx, ok := byRoom[pos.Room]
		if !ok {
			idx = map[geo.Pos][]world.Structure{}
			for _, s := range p.world.Structures(pos.Room) {
				idx[s.Pos] = append(idx[s.Pos], s)
			}
			byRoom[pos.Room] = idx
		}
		return idx[pos]
	}
	cellCost := func(gx, gy int) uint8 {
		pos := geo.FromGlobal(gx, gy)
		// A block touching the border would be split by the exit transfer.
		if pos.IsExit() {
			return Obstacle
		}
		t := p.world.Terrain(pos)
		if t == world.Wall {
			return Obstacle
		}
		road := false
		for _, s := range structuresAt(pos) {
			if !s.Walkable(me) {
				return Obstacle
			}
			if s.Type == world.Road {
				road = true
			}
		}
		switch {
		case road:
			return quadRoad
		case t == world.Swamp:
			return quadSwamp
		default:
			return quadPlain
		}
	}
	ox, oy := rx*geo.RoomSize, ry*geo.RoomSize
	for y := 0; y < geo.RoomSize; y++ {
		for x := 0; x < geo.RoomSize; x++ {
			var worst uint8
			for _, d := range [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
				c := cellCost(ox+x+d[0], oy+y+d[1])
				if c > worst {
					worst = c
				}
			}
			m.Set(x, y, worst)
		}
	}
	return m
}
