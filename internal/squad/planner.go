package squad

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/Garsondee/Squad-Voyager/internal/combat"
	"github.com/Garsondee/Squad-Voyager/internal/config"
	"github.com/Garsondee/Squad-Voyager/internal/costmatrix"
	"github.com/Garsondee/Squad-Voyager/internal/fault"
	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/pathfind"
	"github.com/Garsondee/Squad-Voyager/internal/simlog"
	"github.com/Garsondee/Squad-Voyager/internal/store"
	"github.com/Garsondee/Squad-Voyager/internal/voyage"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

// Scorer ranks targets for attack and heal decisions. combat.Scorer is the
// stock implementation.
type Scorer interface {
	BestAttackTarget(w world.Query, room string, from geo.Pos) (world.Object, bool)
	NeedSwitch(w world.Query, room, currentID string) bool
	BestHealTarget(members []world.Unit) (world.Unit, bool)
	RangedTarget(w world.Query, from geo.Pos, rng int) (world.Object, bool)
	InAttackRange(from, target geo.Pos, rng int) bool
}

// Deps are the collaborators of a Planner. Voyager is only needed by
// combined squads; Executor may be nil when the caller applies Result
// intents itself.
type Deps struct {
	World    world.Query
	Finder   *pathfind.Finder
	Matrices *costmatrix.Provider
	Voyager  *voyage.Voyager
	Store    store.Store
	Log      *simlog.Log
	Scorer   Scorer
	Executor Executor
	// NewID mints squad and operation ids. Nil uses random UUIDs.
	NewID func() string
}

// Planner runs the per-cycle pass of every squad and owns the operation
// registry.
type Planner struct {
	Deps
	cfg config.Squad
}

func NewPlanner(deps Deps, cfg config.Squad) *Planner {
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Scorer == nil {
		deps.Scorer = combat.Scorer{}
	}
	return &Planner{Deps: deps, cfg: cfg}
}

// SetConfig swaps the tuning, used when a reloaded config is applied.
func (p *Planner) SetConfig(cfg config.Squad) {
	p.cfg = cfg
}

// SeededIDs returns an id source minting name-based UUIDs from seed and a
// counter, so a replay produces the same ids.
func SeededIDs(seed int64) func() string {
	ns := uuid.NewSHA1(uuid.NameSpaceOID, []byte(strconv.FormatInt(seed, 10)))
	n := 0
	return func() string {
		n++
		return uuid.NewSHA1(ns, []byte(strconv.Itoa(n))).String()
	}
}

// CreateOperation registers a campaign against targetRoom.
func (p *Planner) CreateOperation(targetRoom string, strategy Strategy) (Operation, error) {
	if _, ok := behaviors[strategy]; !ok {
		return Operation{}, fault.New("squad/operation", "unknown strategy %q", strategy)
	}
	if _, _, ok := geo.ParseRoom(targetRoom); !ok {
		return Operation{}, fault.New("squad/operation", "invalid target room %q", targetRoom)
	}
	op := Operation{ID: p.NewID(), TargetRoom: targetRoom, Strategy: strategy}
	if err := store.Put(p.Store, OperationPrefix+op.ID, op); err != nil {
		return Operation{}, err
	}
	return op, nil
}

func (p *Planner) Operation(id string) (Operation, bool, error) {
	return store.Get[Operation](p.Store, OperationPrefix+id)
}

// Operations returns every registered operation in key order.
func (p *Planner) Operations() ([]Operation, error) {
	keys, err := p.Store.Keys(OperationPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]Operation, 0, len(keys))
	for _, k := range keys {
		op, ok, err := store.Get[Operation](p.Store, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, op)
		}
	}
	return out, nil
}

// FinishOperation raises the Done flag; its squads end on their next pass.
func (p *Planner) FinishOperation(id string) error {
	op, ok, err := p.Operation(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("operation %s: %w", id, world.ErrNotFound)
	}
	op.Done = true
	return store.Put(p.Store, OperationPrefix+id, op)
}

// AddSquad forms a squad for an operation. Units take slots in the given
// order. With a rally position the initial orientation is fixed here.
func (p *Planner) AddSquad(opID string, rally *geo.Pos, unitIDs ...string) (Squad, error) {
	op, ok, err := p.Operation(opID)
	if err != nil {
		return Squad{}, err
	}
	if !ok {
		return Squad{}, fault.New("squad/operation", "unknown operation %s", opID)
	}
	if len(unitIDs) == 0 || len(unitIDs) > SlotCount {
		return Squad{}, fault.New("squad/operation", "a squad takes 1 to %d units, got %d", SlotCount, len(unitIDs))
	}
	sq := Squad{ID: p.NewID(), OperationID: op.ID, TargetRoom: op.TargetRoom, RallyPos: rally}
	for i, id := range unitIDs {
		sq.Members = append(sq.Members, Member{UnitID: id, Slot: i})
	}
	if rally != nil {
		if sq.Orientation, err = initialOrientation(p.World, rally, op.TargetRoom); err != nil {
			return Squad{}, err
		}
	}
	if err := store.Put(p.Store, SquadPrefix+sq.ID, sq); err != nil {
		return Squad{}, err
	}
	op.SquadIDs = append(op.SquadIDs, sq.ID)
	if err := store.Put(p.Store, OperationPrefix+op.ID, op); err != nil {
		return Squad{}, err
	}
	return sq, nil
}

func (p *Planner) Squad(id string) (Squad, bool, error) {
	return store.Get[Squad](p.Store, SquadPrefix+id)
}

// Result is the outcome of one squad pass.
type Result struct {
	SquadID string
	Status  Status
	Intents map[string][]Intent
}

// RunAll runs every squad of every operation once. A failing squad does not
// stop the others; their errors are joined.
func (p *Planner) RunAll() ([]Result, error) {
	ops, err := p.Operations()
	if err != nil {
		return nil, err
	}
	var (
		results []Result
		errs    []error
	)
	for _, op := range ops {
		for _, id := range op.SquadIDs {
			res, err := p.Run(id)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			results = append(results, res)
		}
	}
	return results, errors.Join(errs...)
}

// Run plans one cycle for a squad and hands the intents to the executor.
// Terminal squads are torn down instead.
func (p *Planner) Run(id string) (Result, error) {
	now := p.World.Time()
	res := Result{SquadID: id}
	sq, ok, err := p.Squad(id)
	if err != nil {
		return res, err
	}
	if !ok {
		err := fault.New("squad "+id, "no such squad")
		p.Log.Add(now, id, "squad", "error", err.Error(), 0)
		return res, err
	}
	op, ok, err := p.Operation(sq.OperationID)
	if err != nil {
		return res, err
	}
	if !ok {
		err := fault.New("squad "+id, "operation %s is gone", sq.OperationID)
		p.Log.Add(now, id, "squad", "error", err.Error(), 0)
		return res, err
	}

	living := p.livingMembers(&sq)
	status := p.checkStatus(&sq, living, op)
	res.Status = status
	if prev := sq.LastStatus; prev != status {
		p.Log.Add(now, id, "squad", "status", fmt.Sprintf("%s -> %s", prev, status), float64(status))
		sq.LastStatus = status
	}
	if status.Terminal() {
		p.Log.Add(now, id, "squad", "terminal", status.String(), float64(len(living)))
		return res, p.teardown(sq)
	}

	buf := newBuffer(id, now, p.Log)
	ids := make([]string, len(living))
	for i, u := range living {
		ids[i] = u.ID
	}
	buf.Reset(ids)

	ps := &pass{Planner: p, sq: &sq, op: op, status: status, living: living, buf: buf, now: now}
	_, ps.visible = p.World.Room(sq.TargetRoom)
	runErr := ps.run()
	if runErr != nil {
		p.Log.Add(now, id, "squad", "error", runErr.Error(), 0)
	}
	if err := store.Put(p.Store, SquadPrefix+id, sq); err != nil {
		return res, errors.Join(runErr, err)
	}
	if runErr != nil {
		return res, runErr
	}

	if p.Executor != nil {
		for _, uid := range buf.Units() {
			if err := p.Executor.Execute(uid, buf.Intents(uid)); err != nil {
				p.Log.Add(now, uid, "squad", "execute_error", err.Error(), 0)
			}
		}
	}
	res.Intents = buf.snapshot()
	return res, nil
}

// livingMembers returns the members still alive, ordered by slot.
func (p *Planner) livingMembers(sq *Squad) []world.Unit {
	members := append([]Member(nil), sq.Members...)
	sort.Slice(members, func(i, j int) bool { return members[i].Slot < members[j].Slot })
	var out []world.Unit
	for _, m := range members {
		if u, ok := p.World.Unit(m.UnitID); ok && u.Alive() {
			out = append(out, u)
		}
	}
	return out
}

// checkStatus recomputes the squad status. A squad without living members is
// Dead whatever else holds; the rally flag is set once and kept.
func (p *Planner) checkStatus(sq *Squad, living []world.Unit, op Operation) Status {
	if len(living) == 0 {
		return Dead
	}
	if !sq.RallyComplete {
		if !inRallyPos(sq, living) {
			return Rallying
		}
		sq.RallyComplete = true
	}
	if op.Done {
		return Done
	}
	return OK
}

// inRallyPos reports whether every living member stands on its rally slot.
func inRallyPos(sq *Squad, living []world.Unit) bool {
	if sq.RallyPos == nil {
		return false
	}
	for _, u := range living {
		m, _ := sq.Member(u.ID)
		want, err := slotPos(*sq.RallyPos, sq.Orientation, m.Slot)
		if err != nil || u.Pos != want {
			return false
		}
	}
	return true
}

// teardown drops a finished squad and its members' sessions.
func (p *Planner) teardown(sq Squad) error {
	if p.Voyager != nil {
		for _, m := range sq.Members {
			if err := p.Voyager.Forget(m.UnitID); err != nil {
				return err
			}
		}
	}
	if err := p.Store.Delete(SquadPrefix + sq.ID); err != nil {
		return err
	}
	op, ok, err := p.Operation(sq.OperationID)
	if err != nil || !ok {
		return err
	}
	kept := op.SquadIDs[:0]
	for _, id := range op.SquadIDs {
		if id != sq.ID {
			kept = append(kept, id)
		}
	}
	op.SquadIDs = kept
	return store.Put(p.Store, OperationPrefix+op.ID, op)
}
