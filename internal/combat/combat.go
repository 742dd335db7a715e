// Package combat holds the default target scoring used by squads: which
// hostile to attack, which member to heal and what counts as in range.
package combat

import (
	"sort"

	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

// MeleeRange is the reach of an attack part.
const MeleeRange = 1

// Priorities of structure types as siege targets. Types not listed are
// never attacked.
var structurePriority = map[world.StructureType]int{
	world.Tower:       50,
	world.Spawn:       40,
	world.InvaderCore: 35,
	world.Extension:   20,
	world.Rampart:     5,
}

const (
	armedUnitPriority   = 30
	unarmedUnitPriority = 10
)

// Scorer is the stock scoring. The zero value is ready to use.
type Scorer struct{}

func hostile(w world.Query, owner string) bool {
	return owner != "" && !w.IsAlly(owner)
}

func armed(u world.Unit) bool {
	return u.Has(world.Attack) || u.Has(world.RangedAttack) || u.Has(world.Heal)
}

type candidate struct {
	obj      world.Object
	priority int
}

// candidates lists every attackable hostile object in room.
func candidates(w world.Query, room string) []candidate {
	var out []candidate
	for _, s := range w.Structures(room) {
		p, ok := structurePriority[s.Type]
		if !ok || !hostile(w, s.Owner) || s.Hits <= 0 {
			continue
		}
		out = append(out, candidate{
			obj:      world.Object{ID: s.ID, Kind: world.KindStructure, Pos: s.Pos, Owner: s.Owner, Hits: s.Hits, HitsMax: s.HitsMax},
			priority: p,
		})
	}
	for _, u := range w.Units(room) {
		if !hostile(w, u.Owner) || !u.Alive() {
			continue
		}
		p := unarmedUnitPriority
		if armed(u) {
			p = armedUnitPriority
		}
		out = append(out, candidate{
			obj:      world.Object{ID: u.ID, Kind: world.KindUnit, Pos: u.Pos, Owner: u.Owner, Hits: u.Hits, HitsMax: u.HitsMax},
			priority: p,
		})
	}
	return out
}

// rank orders candidates by priority, then distance from from, then
// remaining hits, then id.
func rank(cs []candidate, from geo.Pos) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		da, db := from.RangeTo(a.obj.Pos), from.RangeTo(b.obj.Pos)
		if da != db {
			return da < db
		}
		if a.obj.Hits != b.obj.Hits {
			return a.obj.Hits < b.obj.Hits
		}
		return a.obj.ID < b.obj.ID
	})
}

// BestAttackTarget picks the siege target in room as seen from from:
// highest priority first, nearest among equals.
func (Scorer) BestAttackTarget(w world.Query, room string, from geo.Pos) (world.Object, bool) {
	cs := candidates(w, room)
	if len(cs) == 0 {
		return world.Object{}, false
	}
	rank(cs, from)
	return cs[0].obj, true
}

func priorityOf(w world.Query, obj world.Object) int {
	switch obj.Kind {
	case world.KindUnit:
		u, ok := w.Unit(obj.ID)
		if ok && armed(u) {
			return armedUnitPriority
		}
		return unarmedUnitPriority
	default:
		for _, s := range w.Structures(obj.Pos.Room) {
			if s.ID == obj.ID {
				return structurePriority[s.Type]
			}
		}
		return 0
	}
}

// NeedSwitch reports whether the current target should be replaced: it is
// gone, outside room, destroyed, or a higher priority target exists.
func (s Scorer) NeedSwitch(w world.Query, room, currentID string) bool {
	if currentID == "" {
		return true
	}
	cur, ok := w.Object(currentID)
	if !ok || cur.Pos.Room != room || cur.Hits <= 0 {
		return true
	}
	best, ok := s.BestAttackTarget(w, room, cur.Pos)
	if !ok {
		return false
	}
	return priorityOf(w, best) > priorityOf(w, cur)
}

// BestHealTarget returns the most damaged living member, by hit ratio.
// ok is false when nobody is hurt.
func (Scorer) BestHealTarget(members []world.Unit) (world.Unit, bool) {
	var best world.Unit
	found := false
	for _, u := range members {
		if !u.Alive() || u.Hits >= u.HitsMax {
			continue
		}
		if !found || ratioLess(u, best) {
			best, found = u, true
		}
	}
	return best, found
}

func ratioLess(a, b world.Unit) bool {
	// a.Hits/a.HitsMax < b.Hits/b.HitsMax without floats.
	l, r := a.Hits*b.HitsMax, b.Hits*a.HitsMax
	if l != r {
		return l < r
	}
	return a.ID < b.ID
}

// RangedTarget picks a ranged attack target within rng of from: the
// weakest armed hostile unit, else the closest hostile object.
func (Scorer) RangedTarget(w world.Query, from geo.Pos, rng int) (world.Object, bool) {
	var best *world.Object
	for _, u := range w.Units(from.Room) {
		if !hostile(w, u.Owner) || !u.Alive() || !armed(u) || !from.InRangeTo(u.Pos, rng) {
			continue
		}
		if best == nil || u.Hits < best.Hits || (u.Hits == best.Hits && u.ID < best.ID) {
			best = &world.Object{ID: u.ID, Kind: world.KindUnit, Pos: u.Pos, Owner: u.Owner, Hits: u.Hits, HitsMax: u.HitsMax}
		}
	}
	if best != nil {
		return *best, true
	}

	var near []candidate
	for _, c := range candidates(w, from.Room) {
		if from.InRangeTo(c.obj.Pos, rng) {
			c.priority = 0
			near = append(near, c)
		}
	}
	if len(near) == 0 {
		return world.Object{}, false
	}
	rank(near, from)
	return near[0].obj, true
}

// InAttackRange reports whether target is within rng of from.
func (Scorer) InAttackRange(from, target geo.Pos, rng int) bool {
	return from.InRangeTo(target, rng)
}
