package squad

import (
	"fmt"

	"github.com/Garsondee/Squad-Voyager/internal/combat"
	"github.com/Garsondee/Squad-Voyager/internal/costmatrix"
	"github.com/Garsondee/Squad-Voyager/internal/fault"
	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/pathfind"
	"github.com/Garsondee/Squad-Voyager/internal/voyage"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

// Behavior decides a squad's intents for one pass. Attack and Heal only run
// while the target room is visible.
type Behavior interface {
	Move(ps *pass) error
	Attack(ps *pass) error
	Heal(ps *pass) error
}

var behaviors = map[Strategy]Behavior{
	FFA:      ffa{},
	Combined: combined{},
}

// rallyKinds prices rally paths without creep occupancy: members walk
// through each other's current tiles.
var rallyKinds = []costmatrix.Kind{costmatrix.RoadTerrain, costmatrix.Structures}

// roomCenterRange is how close to the target room's centre a combined
// squad member must get when there is nothing to attack.
const roomCenterRange = 20

// pass is the state of one squad's planning pass.
type pass struct {
	*Planner
	sq      *Squad
	op      Operation
	status  Status
	living  []world.Unit
	buf     *Buffer
	now     int
	visible bool
}

func (ps *pass) run() error {
	b, ok := behaviors[ps.op.Strategy]
	if !ok {
		return fault.New("squad "+ps.sq.ID, "unknown strategy %q", ps.op.Strategy)
	}
	if ps.visible && ps.status != Rallying {
		ps.refreshTarget()
	}
	if err := b.Move(ps); err != nil {
		return err
	}
	if !ps.visible {
		return nil
	}
	if err := b.Attack(ps); err != nil {
		return err
	}
	return b.Heal(ps)
}

func (ps *pass) lead() world.Unit {
	return ps.living[0]
}

func (ps *pass) slotOf(u world.Unit) int {
	m, _ := ps.sq.Member(u.ID)
	return m.Slot
}

// refreshTarget replaces the attack target when the scorer asks for it.
func (ps *pass) refreshTarget() {
	room := ps.sq.TargetRoom
	if !ps.Scorer.NeedSwitch(ps.World, room, ps.sq.AttackTarget) {
		return
	}
	obj, ok := ps.Scorer.BestAttackTarget(ps.World, room, ps.lead().Pos)
	if !ok {
		ps.sq.AttackTarget = ""
		return
	}
	if obj.ID != ps.sq.AttackTarget {
		ps.Log.Add(ps.now, ps.sq.ID, "squad", "target", fmt.Sprintf("%s at %s", obj.ID, obj.Pos), 0)
		ps.sq.AttackTarget = obj.ID
		ps.sq.clearPaths()
	}
}

func (ps *pass) attackTarget() (world.Object, bool) {
	if ps.sq.AttackTarget == "" {
		return world.Object{}, false
	}
	return ps.World.Object(ps.sq.AttackTarget)
}

// holdForFatigue reports whether a tired member pins the whole squad.
func (ps *pass) holdForFatigue() bool {
	for _, u := range ps.living {
		if u.Fatigue > 0 {
			ps.Log.AddVerbose(ps.now, ps.sq.ID, "squad", "hold",
				fmt.Sprintf("%s fatigue=%d", u.ID, u.Fatigue), float64(u.Fatigue))
			return true
		}
	}
	return false
}

func (ps *pass) stepOffExits() {
	for _, u := range ps.living {
		if u.Pos.IsExit() && !u.Pos.IsCorner() {
			ps.buf.Push(u.ID, moveIntent(offExitDirection(u.Pos)))
		}
	}
}

func (ps *pass) ensureOrientation() error {
	o := ps.sq.Orientation
	if _, ok := slotOffsets[o]; ok {
		return nil
	}
	if o.Valid() {
		return fault.New("squad "+ps.sq.ID, "orientation %s is not supported", o)
	}
	o, err := initialOrientation(ps.World, ps.sq.RallyPos, ps.sq.TargetRoom)
	if err != nil {
		return err
	}
	ps.sq.Orientation = o
	return nil
}

// rallyTarget returns the tile u must stand on at the rally point.
func (ps *pass) rallyTarget(u world.Unit) (geo.Pos, error) {
	if ps.sq.RallyPos == nil {
		return geo.Pos{}, fault.New("squad "+ps.sq.ID, "rallying without a rally position")
	}
	if err := ps.ensureOrientation(); err != nil {
		return geo.Pos{}, err
	}
	return slotPos(*ps.sq.RallyPos, ps.sq.Orientation, ps.slotOf(u))
}

// rally walks every member towards its slot on a cached path.
func (ps *pass) rally() error {
	for _, u := range ps.living {
		target, err := ps.rallyTarget(u)
		if err != nil {
			return err
		}
		if u.Pos == target || ps.buf.Has(u.ID, Move) {
			continue
		}
		c := ps.sq.Paths[u.ID]
		d, ok := c.next(u.Pos)
		if !ok || c.Target != target || ps.now-c.Cycle >= ps.cfg.PathRefreshCycles {
			res := ps.Finder.FindPath(u.Pos, target, pathfind.Options{ExactRange: true, Matrices: rallyKinds})
			c = &CachedPath{Start: u.Pos, Path: geo.SerializePath(u.Pos, res.Path), Target: target, Cycle: ps.now}
			ps.sq.setPath(u.ID, c)
			d, ok = c.next(u.Pos)
		}
		if ok {
			ps.buf.Push(u.ID, moveIntent(d))
		}
	}
	return nil
}

// moveIntoTargetRoom marches the block along its orientation until the
// lead is inside the target room and clear of its edges.
func (ps *pass) moveIntoTargetRoom() (bool, error) {
	lead := ps.lead()
	if lead.Pos.Room == ps.sq.TargetRoom && clearOfEdges(lead.Pos, ps.cfg.TargetRoomEdgeMargin) {
		return false, nil
	}
	if err := ps.ensureOrientation(); err != nil {
		return false, err
	}
	for _, u := range ps.living {
		ps.buf.Push(u.ID, moveIntent(ps.sq.Orientation))
	}
	ps.sq.clearPaths()
	return true, nil
}

// blockPath returns the shared path of the block's top-left tile towards a
// tile next to target, searched on the formation matrix.
func (ps *pass) blockPath(anchor, target geo.Pos) *CachedPath {
	key := ps.sq.TargetRoom
	c := ps.sq.Paths[key]
	if c != nil && c.Target == target && ps.now-c.Cycle < ps.cfg.PathRefreshCycles {
		if _, ok := c.next(anchor); ok {
			return c
		}
	}
	goals := make([]pathfind.Goal, 0, 4)
	for _, g := range quadGoals(target) {
		goals = append(goals, pathfind.Goal{Pos: g, Range: 1})
	}
	res := ps.Finder.Search(anchor, goals, pathfind.Options{
		Route:    map[string]bool{ps.sq.TargetRoom: true},
		Matrices: []costmatrix.Kind{costmatrix.QuadSquad},
		RoomCallback: func(room string, _ *costmatrix.Matrix) (*costmatrix.Matrix, bool) {
			return ps.Matrices.Get(costmatrix.QuadSquad, room, 0), true
		},
	})
	c = &CachedPath{Start: anchor, Path: geo.SerializePath(anchor, res.Path), Target: target, Cycle: ps.now}
	ps.sq.setPath(key, c)
	return c
}

// fixOrientation turns the block when the next step of its path points
// away from where it faces.
func (ps *pass) fixOrientation() (bool, error) {
	target, ok := ps.attackTarget()
	if !ok {
		return false, nil
	}
	anchor, ok := anchorOf(ps.living, ps.sq.TargetRoom)
	if !ok {
		return false, nil
	}
	next, ok := ps.blockPath(anchor, target.Pos).next(anchor)
	if !ok {
		return false, nil
	}
	o := ps.sq.Orientation
	r, err := classifyRotation(o, next)
	if err != nil || r == NoRotation {
		return false, err
	}
	steps, err := maneuverSteps(o, r)
	if err != nil {
		return false, err
	}
	for _, u := range ps.living {
		ps.buf.Push(u.ID, moveIntent(steps[ps.slotOf(u)]))
	}
	ps.sq.Orientation = rotated(o, r)
	ps.Log.AddVerbose(ps.now, ps.sq.ID, "squad", "rotate",
		fmt.Sprintf("%s %s -> %s", r, o, ps.sq.Orientation), 0)
	return true, nil
}

// advanceToTarget moves the block one step along its shared path unless a
// member can already strike.
func (ps *pass) advanceToTarget() error {
	target, ok := ps.attackTarget()
	if !ok {
		return nil
	}
	for _, u := range ps.living {
		if ps.Scorer.InAttackRange(u.Pos, target.Pos, combat.MeleeRange) {
			return nil
		}
	}
	anchor, ok := anchorOf(ps.living, ps.sq.TargetRoom)
	if !ok {
		return nil
	}
	d, ok := ps.blockPath(anchor, target.Pos).next(anchor)
	if !ok {
		ps.Log.AddVerbose(ps.now, ps.sq.ID, "squad", "no_path", fmt.Sprintf("%s -> %s", anchor, target.Pos), 0)
		return nil
	}
	for _, u := range ps.living {
		ps.buf.Push(u.ID, moveIntent(d))
	}
	return nil
}

func targetType(obj world.Object) TargetType {
	if obj.Kind == world.KindUnit {
		return TargetUnit
	}
	return TargetStructure
}

// ffa moves the squad as a rigid 2x2 block.
type ffa struct{}

func (ffa) Move(ps *pass) error {
	if ps.holdForFatigue() {
		return nil
	}
	ps.stepOffExits()
	if ps.status == Rallying {
		return ps.rally()
	}
	if moved, err := ps.moveIntoTargetRoom(); err != nil || moved {
		return err
	}
	if turned, err := ps.fixOrientation(); err != nil || turned {
		return err
	}
	return ps.advanceToTarget()
}

func (ffa) Attack(ps *pass) error {
	target, hasTarget := ps.attackTarget()
	for _, u := range ps.living {
		if hasTarget && u.Has(world.Attack) && ps.Scorer.InAttackRange(u.Pos, target.Pos, combat.MeleeRange) {
			ps.buf.Push(u.ID, Intent{Action: Attack, Target: target.ID, TargetType: targetType(target)})
		}
		if u.Has(world.RangedAttack) {
			if obj, ok := ps.Scorer.RangedTarget(ps.World, u.Pos, ps.cfg.RangedRange); ok {
				ps.buf.Push(u.ID, Intent{Action: RangedAttack, Target: obj.ID, TargetType: targetType(obj)})
			}
		}
	}
	return nil
}

func (ffa) Heal(ps *pass) error {
	target, ok := ps.Scorer.BestHealTarget(ps.living)
	for _, u := range ps.living {
		if !u.Has(world.Heal) {
			continue
		}
		id := u.ID
		if ok {
			id = target.ID
		}
		ps.buf.Push(u.ID, Intent{Action: Heal, Target: id, TargetType: TargetUnit})
	}
	return nil
}

// combined moves every member on its own through the movement session and
// fights like ffa.
type combined struct {
	ffa
}

func (combined) Move(ps *pass) error {
	if ps.holdForFatigue() {
		return nil
	}
	ps.stepOffExits()
	if ps.Voyager == nil {
		return fault.New("squad "+ps.sq.ID, "combined squads need a movement session")
	}
	for _, u := range ps.living {
		if ps.buf.Has(u.ID, Move) {
			continue
		}
		opts := voyage.Options{IntentOnly: true}
		var (
			rep voyage.Report
			err error
		)
		switch {
		case ps.status == Rallying:
			target, terr := ps.rallyTarget(u)
			if terr != nil {
				return terr
			}
			rep, err = ps.Voyager.Advance(u.ID, target, opts)
		case ps.sq.AttackTarget != "":
			opts.Range = combat.MeleeRange
			rep, err = ps.Voyager.AdvanceToObject(u.ID, ps.sq.AttackTarget, opts)
		default:
			opts.Range = roomCenterRange
			rep, err = ps.Voyager.Advance(u.ID, geo.NewPos(geo.RoomSize/2, geo.RoomSize/2, ps.sq.TargetRoom), opts)
		}
		if err != nil {
			return err
		}
		if rep.Direction.Valid() {
			ps.buf.Push(u.ID, moveIntent(rep.Direction))
		}
	}
	return nil
}
