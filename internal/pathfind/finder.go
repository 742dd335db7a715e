package pathfind

import (
	"container/heap"
	"fmt"

	"github.com/Garsondee/Squad-Voyager/internal/config"
	"github.com/Garsondee/Squad-Voyager/internal/costmatrix"
	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/route"
	"github.com/Garsondee/Squad-Voyager/internal/simlog"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

// Finder answers path queries against one world.
type Finder struct {
	world    world.Query
	matrices *costmatrix.Provider
	routes   *route.Planner
	log      *simlog.Log
	cfg      config.Pathing
}

func NewFinder(w world.Query, matrices *costmatrix.Provider, routes *route.Planner, log *simlog.Log, cfg config.Pathing) *Finder {
	return &Finder{world: w, matrices: matrices, routes: routes, log: log, cfg: cfg}
}

// SetConfig swaps the tuning, used when a reloaded config is applied.
func (f *Finder) SetConfig(cfg config.Pathing) {
	f.cfg = cfg
}

// FindPath searches from origin towards destination.
func (f *Finder) FindPath(origin, destination geo.Pos, opts Options) Result {
	return f.Search(origin, []Goal{{Pos: destination, Range: opts.goalRange()}}, opts)
}

// Search runs a query against several goals; reaching any of them
// completes the path. The first goal decides route planning.
func (f *Finder) Search(origin geo.Pos, goals []Goal, opts Options) Result {
	if len(goals) == 0 {
		return Result{Incomplete: true}
	}
	res := f.search(origin, goals, opts)
	now := f.world.Time()
	dest := goals[0].Pos
	if res.Incomplete && opts.EnsurePath && opts.UseFindRoute == RouteAuto && opts.Route == nil &&
		geo.RoomLinearDistance(origin.Room, dest.Room) <= f.cfg.FindRouteDistance {
		f.log.Add(now, origin.Room, "path", "retry_with_route",
			fmt.Sprintf("%s -> %s ops=%d", origin, dest, res.Ops), float64(res.Ops))
		retry := opts
		retry.UseFindRoute = RouteAlways
		res = f.search(origin, goals, retry)
		f.log.Add(now, origin.Room, "path", "retry_result",
			fmt.Sprintf("%s -> %s incomplete=%t len=%d", origin, dest, res.Incomplete, len(res.Path)),
			float64(len(res.Path)))
	}
	if res.Incomplete {
		f.log.Add(now, origin.Room, "path", "incomplete",
			fmt.Sprintf("%s -> %s ops=%d len=%d", origin, dest, res.Ops, len(res.Path)), float64(res.Ops))
	}
	return res
}

// search is one bounded A* pass.
func (f *Finder) search(origin geo.Pos, goals []Goal, opts Options) Result {
	dest := goals[0].Pos
	rooms := opts.Route
	if rooms == nil && f.routes != nil {
		dist := geo.RoomLinearDistance(origin.Room, dest.Room)
		if opts.UseFindRoute == RouteAlways || (opts.UseFindRoute == RouteAuto && dist > f.cfg.FindRouteDistance) {
			rooms = f.routes.FindRoute(origin.Room, dest.Room, opts.Routing)
		}
	}

	maxOps := opts.MaxOps
	if maxOps <= 0 {
		maxOps = f.cfg.MaxOps
	}
	maxRooms := opts.MaxRooms
	if maxRooms <= 0 {
		maxRooms = f.cfg.MaxRooms
	}
	res := Result{Rooms: rooms, Matrices: opts.kinds()}

	gx, gy, ok := origin.Global()
	if !ok {
		res.Incomplete = true
		return res
	}

	s := &state{
		finder:   f,
		opts:     opts,
		origin:   origin,
		goals:    goals,
		allowed:  rooms,
		maxRooms: maxRooms,
		rooms:    make(map[string]*costmatrix.Matrix),
	}
	s.plain, s.swamp = opts.terrainCosts()

	start := &node{key: nodeKey{gx: gx, gy: gy}, pos: origin, h: s.heuristic(origin)}
	open := &openList{start}
	heap.Init(open)
	best := map[nodeKey]*node{start.key: start}
	closed := make(map[nodeKey]bool)
	closest := start
	seq := 0

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		if closed[cur.key] {
			continue
		}
		closed[cur.key] = true
		res.Ops++

		if !cur.key.transit {
			if s.reached(cur.pos) {
				res.Path, res.Cost = buildPath(cur), int(cur.g)
				return res
			}
			if cur.h < closest.h || (cur.h == closest.h && cur.g < closest.g) {
				closest = cur
			}
		}
		if res.Ops >= maxOps {
			break
		}

		for _, next := range s.successors(cur) {
			if closed[next.key] {
				continue
			}
			if prev, ok := best[next.key]; ok && next.g >= prev.g {
				continue
			}
			seq++
			next.seq = seq
			next.parent = cur
			best[next.key] = next
			heap.Push(open, next)
		}
	}

	res.Incomplete = true
	res.Path, res.Cost = buildPath(closest), int(closest.g)
	return res
}

// state holds the per-query caches.
type state struct {
	finder   *Finder
	opts     Options
	origin   geo.Pos
	goals    []Goal
	allowed  map[string]bool
	maxRooms int
	searched int // rooms loaded with a usable matrix
	plain    int
	swamp    int

	// rooms maps a loaded room to its matrix, nil when forbidden.
	rooms map[string]*costmatrix.Matrix
}

func (s *state) reached(p geo.Pos) bool {
	for _, g := range s.goals {
		if p.InRangeTo(g.Pos, g.Range) {
			return true
		}
	}
	return false
}

func (s *state) heuristic(p geo.Pos) float64 {
	h := -1
	for _, g := range s.goals {
		d := max(p.RangeTo(g.Pos)-g.Range, 0)
		if h < 0 || d < h {
			h = d
		}
	}
	return float64(h) * float64(s.plain) * heuristicWeight
}

// successors expands cur. A node standing on an exit tile it stepped onto
// from inside its room is carried across the border, so its only successor
// is the paired tile of the neighbouring room, reached at no extra cost.
func (s *state) successors(cur *node) []*node {
	if cur.key.transit {
		q, ok := cur.pos.Portal()
		if !ok {
			return nil
		}
		if _, ok := s.cost(q); !ok {
			return nil
		}
		qx, qy, _ := q.Global()
		return []*node{{key: nodeKey{gx: qx, gy: qy}, pos: q, g: cur.g, h: s.heuristic(q)}}
	}
	out := make([]*node, 0, 8)
	for _, d := range geo.AllDirections {
		dx, dy := d.Offset()
		nx, ny := cur.key.gx+dx, cur.key.gy+dy
		q := geo.FromGlobal(nx, ny)
		c, ok := s.cost(q)
		if !ok {
			continue
		}
		transit := q.Room == cur.pos.Room && q.IsExit() && !q.IsCorner()
		out = append(out, &node{
			key: nodeKey{gx: nx, gy: ny, transit: transit},
			pos: q,
			g:   cur.g + float64(c),
			h:   s.heuristic(q),
		})
	}
	return out
}

// cost returns the price of entering p, or ok=false when p is blocked.
func (s *state) cost(p geo.Pos) (int, bool) {
	m, ok := s.matrix(p.Room)
	if !ok {
		return 0, false
	}
	t := s.finder.world.Terrain(p)
	if t == world.Wall {
		return 0, false
	}
	switch v := m.Get(p.X, p.Y); {
	case v == costmatrix.Obstacle:
		return 0, false
	case v > 0:
		return int(v), true
	case t == world.Swamp:
		return s.swamp, true
	default:
		return s.plain, true
	}
}

// matrix loads the composed matrix of a room on first use.
func (s *state) matrix(room string) (*costmatrix.Matrix, bool) {
	if m, ok := s.rooms[room]; ok {
		return m, m != nil
	}
	m := s.load(room)
	s.rooms[room] = m
	if m != nil {
		s.searched++
	}
	return m, m != nil
}

func (s *state) load(room string) *costmatrix.Matrix {
	f := s.finder
	if !f.world.HasRoom(room) || s.searched >= s.maxRooms {
		return nil
	}
	endpoint := room == s.origin.Room || room == s.goals[0].Pos.Room
	if s.allowed != nil {
		if !s.allowed[room] && !endpoint {
			return nil
		}
	} else if f.routes != nil && !endpoint && f.routes.Avoid(room, s.opts.Routing.AllowedStatuses) {
		return nil
	}

	var m *costmatrix.Matrix
	if f.matrices != nil {
		m = f.matrices.Compose(room, s.opts.kinds(), s.opts.MatrixParam,
			uint8(f.cfg.ScaleMin), uint8(f.cfg.ScaleMax))
	} else {
		m = costmatrix.New()
	}
	for _, o := range s.opts.Obstacles {
		if o.Room == room {
			m.Set(o.X, o.Y, costmatrix.Obstacle)
		}
	}
	if s.opts.RoomCallback != nil {
		override, ok := s.opts.RoomCallback(room, m)
		if !ok {
			return nil
		}
		if override != nil {
			m = override
		}
	}
	if s.opts.Visualize && f.cfg.Visuals && f.matrices != nil {
		f.matrices.Visualize(room, m)
	}
	return m
}
