package squad

import (
	"fmt"

	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/simlog"
)

// Action is the category of an intent. A unit carries at most one intent
// per category each cycle.
type Action int

const (
	Move Action = iota
	Attack
	RangedAttack
	Heal
)

func (a Action) String() string {
	switch a {
	case Move:
		return "move"
	case Attack:
		return "attack"
	case RangedAttack:
		return "ranged_attack"
	case Heal:
		return "heal"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

type TargetType string

const (
	TargetDirection TargetType = "direction"
	TargetUnit      TargetType = "unit"
	TargetStructure TargetType = "structure"
)

// Intent is a buffered request for one action.
type Intent struct {
	Action     Action     `json:"action"`
	Target     string     `json:"target,omitempty"`
	TargetType TargetType `json:"target_type"`
	// Direction is set for moves.
	Direction geo.Direction `json:"direction,omitempty"`
}

func moveIntent(d geo.Direction) Intent {
	return Intent{Action: Move, Direction: d, TargetType: TargetDirection, Target: d.String()}
}

// Executor applies a unit's intents to the world.
type Executor interface {
	Execute(unitID string, intents []Intent) error
}

// Buffer collects the intents of one squad pass. The first intent of a
// category wins; later ones are dropped and logged.
type Buffer struct {
	squad   string
	cycle   int
	log     *simlog.Log
	order   []string
	intents map[string][]Intent
}

func newBuffer(squadID string, cycle int, log *simlog.Log) *Buffer {
	return &Buffer{squad: squadID, cycle: cycle, log: log, intents: make(map[string][]Intent)}
}

// Reset empties the buffer and opens a slot for each unit, in order.
func (b *Buffer) Reset(unitIDs []string) {
	clear(b.intents)
	b.order = append(b.order[:0], unitIDs...)
	for _, id := range unitIDs {
		b.intents[id] = nil
	}
}

// Has reports whether unitID already holds an intent of category a.
func (b *Buffer) Has(unitID string, a Action) bool {
	for _, in := range b.intents[unitID] {
		if in.Action == a {
			return true
		}
	}
	return false
}

// Push records an intent and reports whether it was accepted.
func (b *Buffer) Push(unitID string, in Intent) bool {
	if _, ok := b.intents[unitID]; !ok {
		b.order = append(b.order, unitID)
	}
	if b.Has(unitID, in.Action) {
		b.log.Add(b.cycle, unitID, "intent", "rejected",
			fmt.Sprintf("squad=%s %s %s", b.squad, in.Action, in.Target), 0)
		return false
	}
	b.intents[unitID] = append(b.intents[unitID], in)
	return true
}

// Intents returns the accepted intents of a unit in push order.
func (b *Buffer) Intents(unitID string) []Intent {
	return b.intents[unitID]
}

// Units returns the buffered units in reset order.
func (b *Buffer) Units() []string {
	return b.order
}

// Moves counts the units holding a move intent.
func (b *Buffer) Moves() int {
	n := 0
	for _, id := range b.order {
		if b.Has(id, Move) {
			n++
		}
	}
	return n
}

// snapshot copies the buffer for the caller.
func (b *Buffer) snapshot() map[string][]Intent {
	out := make(map[string][]Intent, len(b.intents))
	for id, ins := range b.intents {
		out[id] = append([]Intent(nil), ins...)
	}
	return out
}
