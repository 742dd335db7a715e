// Package squad coordinates groups of units as one formation: status,
// rally, orientation and per-cycle intents handed to an executor.
package squad

import (
	"fmt"

	"github.com/Garsondee/Squad-Voyager/internal/geo"
)

// Store key prefixes; the remainder is the record id.
const (
	SquadPrefix     = "squad/"
	OperationPrefix = "operation/"
)

// Strategy selects the behavior an operation's squads run.
type Strategy string

const (
	// FFA squads move as a rigid 2x2 block.
	FFA Strategy = "ffa"
	// Combined squads move every member on its own.
	Combined Strategy = "combined"
)

// Status is recomputed every cycle from the world. Only the rally flag on
// the record is sticky.
type Status int

const (
	Rallying Status = iota
	OK
	Done
	Dead
)

func (s Status) String() string {
	switch s {
	case Rallying:
		return "rallying"
	case OK:
		return "ok"
	case Done:
		return "done"
	case Dead:
		return "dead"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether planning stops for good.
func (s Status) Terminal() bool {
	return s == Done || s == Dead
}

// Operation is a campaign against one room.
type Operation struct {
	ID         string   `json:"id"`
	TargetRoom string   `json:"target_room"`
	Strategy   Strategy `json:"strategy"`
	SquadIDs   []string `json:"squad_ids"`
	// Done is raised from outside once the campaign is over.
	Done bool `json:"done"`
}

// Member binds a unit to a formation slot.
type Member struct {
	UnitID string `json:"unit_id"`
	Slot   int    `json:"slot"`
}

// CachedPath is a serialized path kept across cycles.
type CachedPath struct {
	Start  geo.Pos `json:"start"`
	Path   string  `json:"path"`
	Target geo.Pos `json:"target"`
	Cycle  int     `json:"cycle"`
}

// next returns the direction to take from pos, found by locating pos on
// the path.
func (c *CachedPath) next(pos geo.Pos) (geo.Direction, bool) {
	if c == nil {
		return geo.DirNone, false
	}
	prev := c.Start
	for i, t := range geo.DeserializePath(c.Start, c.Path) {
		if prev == pos {
			return geo.DirectionFromByte(c.Path[i])
		}
		prev = t
	}
	return geo.DirNone, false
}

// Squad is the persisted record of one formation.
type Squad struct {
	ID          string        `json:"id"`
	OperationID string        `json:"operation_id"`
	Members     []Member      `json:"members"`
	TargetRoom  string        `json:"target_room"`
	RallyPos    *geo.Pos      `json:"rally_pos,omitempty"`
	Orientation geo.Direction `json:"orientation"`
	// AttackTarget is the id of the object the squad is besieging.
	AttackTarget string `json:"attack_target,omitempty"`
	// RallyComplete is set once every living member stood on its rally
	// slot. It never clears.
	RallyComplete bool `json:"rally_complete"`
	// LastStatus only drives change logging; status is always recomputed.
	LastStatus Status `json:"last_status"`
	// Paths holds per-member rally paths by unit id and the shared block
	// path by target room.
	Paths map[string]*CachedPath `json:"paths,omitempty"`
}

// Member returns the membership of a unit.
func (s *Squad) Member(unitID string) (Member, bool) {
	for _, m := range s.Members {
		if m.UnitID == unitID {
			return m, true
		}
	}
	return Member{}, false
}

func (s *Squad) setPath(key string, c *CachedPath) {
	if s.Paths == nil {
		s.Paths = make(map[string]*CachedPath)
	}
	s.Paths[key] = c
}

func (s *Squad) clearPaths() {
	s.Paths = nil
}
