package world

import (
	"sort"

	"github.com/Garsondee/Squad-Voyager/internal/geo"
)

// Damage and heal values per active body part.
const (
	AttackPower = 30
	RangedPower = 10
	HealPower   = 12
	RangedRange = 3
)

type actionKind int

const (
	actAttack actionKind = iota
	actRanged
	actHeal
)

type action struct {
	kind   actionKind
	unit   string
	target string
}

// CycleReport summarises what EndCycle resolved.
type CycleReport struct {
	Cycle   int
	Moved   []string
	Blocked []string
	Damage  int
	Healed  int
	Deaths  []string
}

// Move queues a one tile step. A later call for the same unit in the same
// cycle replaces the earlier one.
func (m *Map) Move(unitID string, d geo.Direction) error {
	u, ok := m.units[unitID]
	if !ok {
		return ErrNotFound
	}
	if !d.Valid() {
		return ErrInvalidDirection
	}
	if u.Spawning() {
		return ErrSpawning
	}
	if u.Fatigue > 0 {
		return ErrTired
	}
	if !u.Has(Move) {
		return ErrNoBodyPart
	}
	m.moves[unitID] = d
	return nil
}

func (m *Map) queue(kind actionKind, part BodyPart, rng int, unitID, targetID string) error {
	u, ok := m.units[unitID]
	if !ok {
		return ErrNotFound
	}
	if u.Spawning() {
		return ErrSpawning
	}
	if !u.Has(part) {
		return ErrNoBodyPart
	}
	t, ok := m.Object(targetID)
	if !ok {
		return ErrNotFound
	}
	if !u.Pos.InRangeTo(t.Pos, rng) {
		return ErrNotInRange
	}
	m.actions = append(m.actions, action{kind: kind, unit: unitID, target: targetID})
	return nil
}

func (m *Map) Attack(unitID, targetID string) error {
	return m.queue(actAttack, Attack, 1, unitID, targetID)
}

func (m *Map) RangedAttack(unitID, targetID string) error {
	return m.queue(actRanged, RangedAttack, RangedRange, unitID, targetID)
}

func (m *Map) Heal(unitID, targetID string) error {
	return m.queue(actHeal, Heal, 1, unitID, targetID)
}

// PendingMove returns the direction queued for a unit this cycle.
func (m *Map) PendingMove(unitID string) (geo.Direction, bool) {
	d, ok := m.moves[unitID]
	return d, ok
}

// EndCycle applies queued combat, then movement, then fatigue recovery, and
// advances the clock.
func (m *Map) EndCycle() CycleReport {
	rep := CycleReport{Cycle: m.time}
	m.resolveCombat(&rep)
	m.resolveMoves(&rep)

	for _, u := range m.units {
		if u.SpawnCycles > 0 {
			u.SpawnCycles--
		}
		u.Fatigue -= 2 * u.Count(Move)
		if u.Fatigue < 0 {
			u.Fatigue = 0
		}
	}
	m.time++
	return rep
}

func (m *Map) resolveCombat(rep *CycleReport) {
	damage := make(map[string]int)
	heal := make(map[string]int)
	for _, a := range m.actions {
		u, ok := m.units[a.unit]
		if !ok {
			continue
		}
		switch a.kind {
		case actAttack:
			damage[a.target] += AttackPower * u.Count(Attack)
		case actRanged:
			damage[a.target] += RangedPower * u.Count(RangedAttack)
		case actHeal:
			heal[a.target] += HealPower * u.Count(Heal)
		}
	}
	m.actions = m.actions[:0]

	for id, dmg := range damage {
		rep.Damage += dmg
		if u, ok := m.units[id]; ok {
			u.Hits -= dmg
		} else if s, ok := m.structures[id]; ok {
			s.Hits -= dmg
		}
	}
	for id, h := range heal {
		u, ok := m.units[id]
		if !ok || u.Hits <= 0 {
			continue
		}
		before := u.Hits
		u.Hits = min(u.HitsMax, u.Hits+h)
		rep.Healed += u.Hits - before
	}

	for id, u := range m.units {
		if u.Hits <= 0 {
			rep.Deaths = append(rep.Deaths, id)
			m.RemoveUnit(id)
		}
	}
	for id, s := range m.structures {
		if s.Hits <= 0 {
			rep.Deaths = append(rep.Deaths, id)
			delete(m.structures, id)
		}
	}
	sort.Strings(rep.Deaths)
}

// resolveMoves lets every queued mover whose target is free step, repeating
// until nothing changes. Movers left waiting on each other in a closed loop
// (including two units swapping) move together.
func (m *Map) resolveMoves(rep *CycleReport) {
	ids := make([]string, 0, len(m.moves))
	for id := range m.moves {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	target := make(map[string]geo.Pos, len(ids))
	pending := make(map[string]bool, len(ids))
	var order []string
	for _, id := range ids {
		u, ok := m.units[id]
		if !ok {
			continue
		}
		next, ok := u.Pos.Moved(m.moves[id])
		if !ok || !m.HasRoom(next.Room) || !m.Passable(next, u.Owner) {
			rep.Blocked = append(rep.Blocked, id)
			continue
		}
		target[id] = next
		pending[id] = true
		order = append(order, id)
	}
	clear(m.moves)

	step := func(id string) {
		u := m.units[id]
		dest := target[id]
		u.Fatigue += m.fatigueFactor(dest) * u.heavyParts()
		u.Pos = dest
		delete(pending, id)
		rep.Moved = append(rep.Moved, id)
	}

	for len(pending) > 0 {
		progress := false
		for _, id := range order {
			if !pending[id] {
				continue
			}
			occ := m.unitAt(target[id])
			switch {
			case occ == nil:
				step(id)
				progress = true
			case !pending[occ.ID]:
				delete(pending, id)
				rep.Blocked = append(rep.Blocked, id)
				progress = true
			}
		}
		if progress {
			continue
		}
		// Everyone left waits on another pending mover: find a loop and
		// move it as one.
		moved := false
		for _, id := range order {
			if !pending[id] {
				continue
			}
			loop := m.findLoop(id, target, pending)
			if loop == nil {
				continue
			}
			for _, lid := range loop {
				step(lid)
			}
			moved = true
			break
		}
		if !moved {
			for _, id := range order {
				if pending[id] {
					delete(pending, id)
					rep.Blocked = append(rep.Blocked, id)
				}
			}
		}
	}
}

func (m *Map) findLoop(start string, target map[string]geo.Pos, pending map[string]bool) []string {
	seen := map[string]int{}
	var chain []string
	cur := start
	for {
		if i, ok := seen[cur]; ok {
			return chain[i:]
		}
		seen[cur] = len(chain)
		chain = append(chain, cur)
		occ := m.unitAt(target[cur])
		if occ == nil || !pending[occ.ID] {
			return nil
		}
		cur = occ.ID
	}
}
