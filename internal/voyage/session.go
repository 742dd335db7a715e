// Package voyage wraps the pathfinder in a per-agent movement session:
// cached paths, stuck detection and adaptive replanning across cycles.
package voyage

import (
	"github.com/Garsondee/Squad-Voyager/internal/costmatrix"
	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/pathfind"
)

// KeyPrefix namespaces sessions in the store; the remainder is the unit id.
const KeyPrefix = "voyage/"

// Outcome is the typed result of one Advance call. None of them are
// failures: the caller simply tries again next cycle.
type Outcome int

const (
	Moved Outcome = iota
	ArrivedExact
	ArrivedInRange
	Tired
	NoPath
	Busy
	InvalidTarget
)

func (o Outcome) String() string {
	switch o {
	case Moved:
		return "moved"
	case ArrivedExact:
		return "arrived_exact"
	case ArrivedInRange:
		return "arrived_in_range"
	case Tired:
		return "tired"
	case NoPath:
		return "no_path"
	case Busy:
		return "busy"
	case InvalidTarget:
		return "invalid_target"
	default:
		return "unknown"
	}
}

// Arrived reports whether the unit is where it was sent.
func (o Outcome) Arrived() bool {
	return o == ArrivedExact || o == ArrivedInRange
}

// Session is the persisted movement state of one unit.
type Session struct {
	Destination geo.Pos `json:"destination"`
	// Path is the remaining direction string; its first character is the
	// step issued most recently.
	Path       string   `json:"path"`
	LastPos    *geo.Pos `json:"last_pos,omitempty"`
	StuckCount int      `json:"stuck_count"`
	// CPU accumulates search operations spent on this unit.
	CPU int `json:"cpu"`
}

// Options tune one Advance call.
type Options struct {
	// Range, when positive, is the distance at which the unit counts as
	// arrived.
	Range        int
	MovingTarget bool
	// IntentOnly computes the step without issuing the move.
	IntentOnly bool
	// Repath is the chance per call of dropping the cached path. Zero uses
	// the configured chance.
	Repath float64
	// StuckValue is the stuck count that triggers escalation. Zero uses the
	// configured value.
	StuckValue int
	Visualize  bool
	Find       pathfind.Options
}

// Report carries the details of an Advance call.
type Report struct {
	Outcome   Outcome
	Direction geo.Direction
	// NextPos is where the unit will stand after the step, valid when
	// Direction is set.
	NextPos  geo.Pos
	Path     string
	State    Session
	Search   *pathfind.Result
	Matrices []costmatrix.Kind
	// Planned is set when the path was computed during this call.
	Planned bool
}
