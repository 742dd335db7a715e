package voyage

import (
	"fmt"

	"github.com/Garsondee/Squad-Voyager/internal/config"
	"github.com/Garsondee/Squad-Voyager/internal/costmatrix"
	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/pathfind"
	"github.com/Garsondee/Squad-Voyager/internal/route"
	"github.com/Garsondee/Squad-Voyager/internal/simlog"
	"github.com/Garsondee/Squad-Voyager/internal/store"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

// Rand is the random source behind the stuck escalation and repath rolls.
// *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Deps are the collaborators of a Voyager. Mover may be nil, in which case
// every call behaves as IntentOnly.
type Deps struct {
	World  world.Query
	Mover  world.Mover
	Finder *pathfind.Finder
	Routes *route.Planner
	Store  store.Store
	Log    *simlog.Log
	Rand   Rand
}

// Voyager advances units along cached paths.
type Voyager struct {
	Deps
	cfg config.Pathing
}

func New(deps Deps, cfg config.Pathing) *Voyager {
	return &Voyager{Deps: deps, cfg: cfg}
}

// SetConfig swaps the tuning, used when a reloaded config is applied.
func (v *Voyager) SetConfig(cfg config.Pathing) {
	v.cfg = cfg
}

// Session returns the stored session of a unit.
func (v *Voyager) Session(unitID string) (Session, bool, error) {
	return store.Get[Session](v.Store, KeyPrefix+unitID)
}

// Forget drops a unit's session.
func (v *Voyager) Forget(unitID string) error {
	return v.Store.Delete(KeyPrefix + unitID)
}

// AdvanceToObject resolves a target by id and advances towards it. An
// unknown id is an InvalidTarget outcome.
func (v *Voyager) AdvanceToObject(unitID, targetID string, opts Options) (Report, error) {
	obj, ok := v.World.Object(targetID)
	if !ok {
		if _, ok := v.World.Unit(unitID); !ok {
			return Report{}, fmt.Errorf("voyage %s: %w", unitID, world.ErrNotFound)
		}
		return Report{Outcome: InvalidTarget}, nil
	}
	return v.Advance(unitID, obj.Pos, opts)
}

// Advance moves a unit one step towards dest. A zero dest is an
// InvalidTarget outcome. Errors are reserved for a missing unit and store
// failures.
func (v *Voyager) Advance(unitID string, dest geo.Pos, opts Options) (Report, error) {
	u, ok := v.World.Unit(unitID)
	if !ok {
		return Report{}, fmt.Errorf("voyage %s: %w", unitID, world.ErrNotFound)
	}
	now := v.World.Time()
	if v.Routes != nil {
		if err := v.Routes.Update(u.Pos.Room); err != nil {
			v.Log.Add(now, unitID, "store", "error", err.Error(), 0)
		}
	}

	if u.Fatigue > 0 {
		return Report{Outcome: Tired}, nil
	}
	if dest.Room == "" {
		return Report{Outcome: InvalidTarget}, nil
	}

	dist := u.Pos.RangeTo(dest)
	if opts.Range > 0 && dist <= opts.Range {
		return Report{Outcome: ArrivedInRange}, nil
	}
	if dist <= 1 {
		rep := Report{Outcome: ArrivedExact}
		if dist == 1 && opts.Range == 0 {
			d := u.Pos.DirectionTo(dest)
			rep.Direction, rep.NextPos, rep.Path = d, dest, string(d.Byte())
			v.move(unitID, d, opts, now)
		}
		return rep, nil
	}

	sess, _, err := v.Session(unitID)
	if err != nil {
		return Report{}, err
	}
	rep := Report{}

	if sess.LastPos != nil && (u.Pos == *sess.LastPos || (u.Pos.IsExit() && sess.LastPos.IsExit())) {
		sess.StuckCount++
		v.Log.AddVerbose(now, unitID, "voyage", "stuck", fmt.Sprintf("%s count=%d", u.Pos, sess.StuckCount), float64(sess.StuckCount))
	} else {
		sess.StuckCount = 0
	}

	matrices := opts.Find.Matrices
	if len(matrices) == 0 {
		matrices = costmatrix.DefaultKinds
	}
	stuckValue := opts.StuckValue
	if stuckValue <= 0 {
		stuckValue = v.cfg.StuckValue
	}
	if sess.StuckCount >= stuckValue && v.roll(v.cfg.StuckEscalationChance) {
		matrices = costmatrix.Merge(matrices, costmatrix.CreepKinds...)
		sess.Path = ""
		v.Log.Add(now, unitID, "voyage", "stuck_escalation",
			fmt.Sprintf("%s count=%d", u.Pos, sess.StuckCount), float64(sess.StuckCount))
	}

	if sess.Destination.Room != "" && sess.Destination != dest {
		if opts.MovingTarget && sess.Path != "" && sess.Destination.IsNearTo(dest) {
			sess.Path += string(sess.Destination.DirectionTo(dest).Byte())
			sess.Destination = dest
		} else {
			sess.Path = ""
		}
	}

	repath := opts.Repath
	if repath <= 0 {
		repath = v.cfg.RepathChance
	}
	if sess.Path != "" && repath > 0 && v.roll(repath) {
		sess.Path = ""
		v.Log.AddVerbose(now, unitID, "voyage", "repath", u.Pos.String(), 0)
	}

	// The first step was issued last cycle; it is spent once the unit has
	// moved.
	if sess.Path != "" && sess.StuckCount == 0 && sess.LastPos != nil {
		sess.Path = sess.Path[1:]
	}

	if sess.Path == "" {
		if u.Spawning() {
			return v.finish(unitID, u.Pos, sess, Report{Outcome: Busy})
		}
		sess.Destination = dest
		find := opts.Find
		find.Matrices = matrices
		find.Range = opts.Range
		find.MovingTarget = opts.MovingTarget
		find.Visualize = find.Visualize || opts.Visualize
		res := v.Finder.FindPath(u.Pos, dest, find)

		sess.CPU += res.Ops
		if sess.CPU > v.cfg.ReportCPUThreshold {
			v.Log.Add(now, unitID, "voyage", "heavy_cpu",
				fmt.Sprintf("cpu=%d origin=%s dest=%s", sess.CPU, u.Pos, dest), float64(sess.CPU))
		}
		if res.Incomplete {
			v.Log.Add(now, unitID, "voyage", "incomplete_path",
				fmt.Sprintf("%s -> %s len=%d", u.Pos, dest, len(res.Path)), float64(len(res.Path)))
		}
		sess.Path = geo.SerializePath(u.Pos, res.Path)
		sess.StuckCount = 0
		rep.Search = &res
		rep.Planned = true
	}
	rep.Matrices = matrices

	if sess.Path == "" {
		rep.Outcome = NoPath
		return v.finish(unitID, u.Pos, sess, rep)
	}
	d, ok := geo.DirectionFromByte(sess.Path[0])
	if !ok {
		sess.Path = ""
		rep.Outcome = NoPath
		return v.finish(unitID, u.Pos, sess, rep)
	}
	next, _ := u.Pos.Moved(d)
	rep.Outcome, rep.Direction, rep.NextPos = Moved, d, next
	rep, err = v.finish(unitID, u.Pos, sess, rep)
	if err != nil {
		return rep, err
	}
	v.move(unitID, d, opts, now)
	return rep, nil
}

// finish records the position and saves the session.
func (v *Voyager) finish(unitID string, pos geo.Pos, sess Session, rep Report) (Report, error) {
	sess.LastPos = &pos
	rep.Path = sess.Path
	rep.State = sess
	if err := store.Put(v.Store, KeyPrefix+unitID, sess); err != nil {
		return rep, fmt.Errorf("voyage %s: %w", unitID, err)
	}
	return rep, nil
}

func (v *Voyager) move(unitID string, d geo.Direction, opts Options, now int) {
	if opts.IntentOnly || v.Mover == nil {
		return
	}
	if err := v.Mover.Move(unitID, d); err != nil {
		v.Log.Add(now, unitID, "voyage", "move_error", err.Error(), 0)
	}
}

func (v *Voyager) roll(chance float64) bool {
	if v.Rand == nil {
		return false
	}
	return v.Rand.Float64() < chance
}
