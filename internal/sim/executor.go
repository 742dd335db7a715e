package sim

import (
	"errors"
	"fmt"

	"github.com/Garsondee/Squad-Voyager/internal/squad"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

// Executor applies squad intents to a world as queued actions.
type Executor struct {
	mover world.Mover
	actor world.Actor
}

// NewExecutor returns an Executor issuing moves and combat actions on m.
func NewExecutor(m *world.Map) *Executor {
	return &Executor{mover: m, actor: m}
}

// Execute issues every intent of a unit. A rejected action does not stop
// the others; the errors are joined.
func (e *Executor) Execute(unitID string, intents []squad.Intent) error {
	var errs []error
	for _, in := range intents {
		var err error
		switch in.Action {
		case squad.Move:
			err = e.mover.Move(unitID, in.Direction)
		case squad.Attack:
			err = e.actor.Attack(unitID, in.Target)
		case squad.RangedAttack:
			err = e.actor.RangedAttack(unitID, in.Target)
		case squad.Heal:
			err = e.actor.Heal(unitID, in.Target)
		default:
			err = fmt.Errorf("unknown action %s", in.Action)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", in.Action, in.Target, err))
		}
	}
	return errors.Join(errs...)
}
