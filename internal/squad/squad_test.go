package squad

import (
	"testing"

	"github.com/google/uuid"

	"github.com/Garsondee/Squad-Voyager/internal/config"
	"github.com/Garsondee/Squad-Voyager/internal/costmatrix"
	"github.com/Garsondee/Squad-Voyager/internal/fault"
	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/pathfind"
	"github.com/Garsondee/Squad-Voyager/internal/route"
	"github.com/Garsondee/Squad-Voyager/internal/simlog"
	"github.com/Garsondee/Squad-Voyager/internal/store"
	"github.com/Garsondee/Squad-Voyager/internal/voyage"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

const (
	rallyRoom  = "W1N1"
	targetRoom = "W1N2" // directly above rallyRoom
)

var (
	meleeBody  = []world.BodyPart{world.Attack, world.Move}
	healerBody = []world.BodyPart{world.Heal, world.Move}
	rangedBody = []world.BodyPart{world.RangedAttack, world.Move}
)

// recorder keeps what the planner hands over and applies nothing.
type recorder struct {
	calls map[string][]Intent
}

func (r *recorder) Execute(unitID string, intents []Intent) error {
	r.calls[unitID] = intents
	return nil
}

// worldExec applies intents to the in-memory world.
type worldExec struct {
	w *world.Map
}

func (e worldExec) Execute(unitID string, intents []Intent) error {
	for _, in := range intents {
		switch in.Action {
		case Move:
			e.w.Move(unitID, in.Direction)
		case Attack:
			e.w.Attack(unitID, in.Target)
		case RangedAttack:
			e.w.RangedAttack(unitID, in.Target)
		case Heal:
			e.w.Heal(unitID, in.Target)
		}
	}
	return nil
}

type harness struct {
	world   *world.Map
	store   *store.Memory
	log     *simlog.Log
	rec     *recorder
	planner *Planner
}

func newHarness(applyToWorld bool) *harness {
	w := world.NewMap("me")
	w.AddRoom(world.RoomInfo{Name: rallyRoom})
	w.AddRoom(world.RoomInfo{Name: targetRoom})
	log := simlog.New(true)
	s := store.NewMemory()
	cfg := config.Default()
	routes := route.NewPlanner(w, s, log, cfg.Route)
	matrices := costmatrix.NewProvider(w, log)
	finder := pathfind.NewFinder(w, matrices, routes, log, cfg.Pathing)
	v := voyage.New(voyage.Deps{World: w, Finder: finder, Routes: routes, Store: s, Log: log}, cfg.Pathing)

	h := &harness{world: w, store: s, log: log, rec: &recorder{calls: map[string][]Intent{}}}
	var exec Executor = h.rec
	if applyToWorld {
		exec = worldExec{w: w}
	}
	h.planner = NewPlanner(Deps{
		World: w, Finder: finder, Matrices: matrices, Voyager: v,
		Store: s, Log: log, Executor: exec, NewID: SeededIDs(1),
	}, cfg.Squad)
	return h
}

// quad places four units on the slots of a block at anchor facing o:
// melee in front, healers behind.
func (h *harness) quad(anchor geo.Pos, o geo.Direction) []string {
	ids := make([]string, SlotCount)
	for slot := range ids {
		p, err := slotPos(anchor, o, slot)
		if err != nil {
			panic(err)
		}
		body := meleeBody
		if slot >= 2 {
			body = healerBody
		}
		ids[slot] = h.world.AddUnit(world.Unit{Owner: "me", Pos: p, Body: body})
	}
	return ids
}

func (h *harness) squad(t *testing.T, strategy Strategy, rally *geo.Pos, ids ...string) Squad {
	t.Helper()
	op, err := h.planner.CreateOperation(targetRoom, strategy)
	if err != nil {
		t.Fatalf("create operation: %v", err)
	}
	sq, err := h.planner.AddSquad(op.ID, rally, ids...)
	if err != nil {
		t.Fatalf("add squad: %v", err)
	}
	return sq
}

func (h *harness) edit(t *testing.T, id string, fn func(*Squad)) {
	t.Helper()
	sq, ok, err := h.planner.Squad(id)
	if err != nil || !ok {
		t.Fatalf("load squad %s: ok=%v err=%v", id, ok, err)
	}
	fn(&sq)
	if err := store.Put(h.store, SquadPrefix+id, sq); err != nil {
		t.Fatalf("save squad: %v", err)
	}
}

func moveOf(intents []Intent) (geo.Direction, bool) {
	for _, in := range intents {
		if in.Action == Move {
			return in.Direction, true
		}
	}
	return geo.DirNone, false
}

func hasAction(intents []Intent, a Action) bool {
	for _, in := range intents {
		if in.Action == a {
			return true
		}
	}
	return false
}

func TestClassifyRotation(t *testing.T) {
	cases := []struct {
		o, next geo.Direction
		want    Rotation
	}{
		{geo.Top, geo.Right, Clockwise},
		{geo.Top, geo.BottomRight, Clockwise},
		{geo.Top, geo.TopRight, NoRotation},
		{geo.Top, geo.Top, NoRotation},
		{geo.Top, geo.Left, CounterClockwise},
		{geo.Top, geo.Bottom, TurnAround},
		{geo.Left, geo.Top, Clockwise},
		{geo.Right, geo.TopLeft, CounterClockwise},
		{geo.Bottom, geo.Top, TurnAround},
	}
	for _, c := range cases {
		got, err := classifyRotation(c.o, c.next)
		if err != nil || got != c.want {
			t.Fatalf("%s towards %s: expected %s, got %s err=%v", c.o, c.next, c.want, got, err)
		}
	}
	if _, err := classifyRotation(geo.TopRight, geo.Bottom); !fault.Is(err) {
		t.Fatalf("expected a fault for a diagonal orientation, got %v", err)
	}
}

func TestManeuverSteps_KeepTheBlock(t *testing.T) {
	steps, err := maneuverSteps(geo.Top, Clockwise)
	if err != nil {
		t.Fatalf("maneuver: %v", err)
	}
	want := [SlotCount]geo.Direction{geo.Right, geo.Bottom, geo.Top, geo.Left}
	if steps != want {
		t.Fatalf("expected %v, got %v", want, steps)
	}

	anchor := geo.NewPos(10, 10, rallyRoom)
	for _, o := range []geo.Direction{geo.Top, geo.Right, geo.Bottom, geo.Left} {
		for _, r := range []Rotation{Clockwise, CounterClockwise, TurnAround} {
			steps, _ := maneuverSteps(o, r)
			for slot := 0; slot < SlotCount; slot++ {
				from, _ := slotPos(anchor, o, slot)
				want, _ := slotPos(anchor, rotated(o, r), slot)
				got, _ := from.Step(steps[slot])
				if got != want {
					t.Fatalf("%s %s slot %d: expected %s, got %s", o, r, slot, want, got)
				}
			}
		}
	}
}

func TestBuffer_FirstWriteWins(t *testing.T) {
	log := simlog.New(false)
	b := newBuffer("sq", 7, log)
	b.Reset([]string{"a", "b"})
	if !b.Push("a", moveIntent(geo.Top)) {
		t.Fatal("expected the first move to be accepted")
	}
	if b.Push("a", moveIntent(geo.Left)) {
		t.Fatal("expected a second move to be rejected")
	}
	if !b.Push("a", Intent{Action: Heal, Target: "a", TargetType: TargetUnit}) {
		t.Fatal("expected another category to be accepted")
	}
	if d, _ := moveOf(b.Intents("a")); d != geo.Top || len(b.Intents("a")) != 2 {
		t.Fatalf("expected the first move to stick, got %v", b.Intents("a"))
	}
	if log.CountCategory("intent", "rejected") != 1 {
		t.Fatal("expected the rejection to be logged")
	}
	b.Reset([]string{"b"})
	if len(b.Intents("a")) != 0 || b.Moves() != 0 {
		t.Fatal("expected reset to drop stale intents")
	}
}

func TestSeededIDs_Deterministic(t *testing.T) {
	a, b := SeededIDs(42), SeededIDs(42)
	first := a()
	if first != b() {
		t.Fatal("expected equal seeds to give equal ids")
	}
	if a() == first {
		t.Fatal("expected successive ids to differ")
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected a valid uuid, got %q: %v", first, err)
	}
}

func TestPlanner_AddSquadValidates(t *testing.T) {
	h := newHarness(false)
	op, _ := h.planner.CreateOperation(targetRoom, FFA)
	ids := h.quad(geo.NewPos(20, 20, rallyRoom), geo.Top)

	if _, err := h.planner.AddSquad("missing", nil, ids...); !fault.Is(err) {
		t.Fatalf("expected a fault for an unknown operation, got %v", err)
	}
	if _, err := h.planner.AddSquad(op.ID, nil, append(ids, "u99")...); !fault.Is(err) {
		t.Fatalf("expected a fault for five units, got %v", err)
	}
	inside := geo.NewPos(25, 25, targetRoom)
	if _, err := h.planner.AddSquad(op.ID, &inside, ids...); !fault.Is(err) {
		t.Fatalf("expected a fault for a rally inside the target room, got %v", err)
	}
	if _, err := h.planner.CreateOperation(targetRoom, "siege"); !fault.Is(err) {
		t.Fatalf("expected a fault for an unknown strategy, got %v", err)
	}

	rally := geo.NewPos(20, 20, rallyRoom)
	sq, err := h.planner.AddSquad(op.ID, &rally, ids...)
	if err != nil {
		t.Fatalf("add squad: %v", err)
	}
	if sq.Orientation != geo.Top {
		t.Fatalf("expected to face the exit towards %s, got %s", targetRoom, sq.Orientation)
	}
	op, _, _ = h.planner.Operation(op.ID)
	if len(op.SquadIDs) != 1 || op.SquadIDs[0] != sq.ID {
		t.Fatalf("expected the operation to list the squad, got %v", op.SquadIDs)
	}
}

func TestPlanner_RallyWalksToSlots(t *testing.T) {
	h := newHarness(true)
	starts := []geo.Pos{
		geo.NewPos(10, 10, rallyRoom),
		geo.NewPos(30, 12, rallyRoom),
		geo.NewPos(12, 30, rallyRoom),
		geo.NewPos(35, 35, rallyRoom),
	}
	ids := make([]string, len(starts))
	for i, p := range starts {
		body := meleeBody
		if i >= 2 {
			body = healerBody
		}
		ids[i] = h.world.AddUnit(world.Unit{Owner: "me", Pos: p, Body: body})
	}
	rally := geo.NewPos(20, 20, rallyRoom)
	sq := h.squad(t, FFA, &rally, ids...)

	rallied := false
	for cycle := 0; cycle < 30 && !rallied; cycle++ {
		res, err := h.planner.Run(sq.ID)
		if err != nil {
			t.Fatalf("cycle %d: %v", cycle, err)
		}
		rallied = res.Status == OK
		if !rallied {
			h.world.EndCycle()
		}
	}
	if !rallied {
		t.Fatal("expected the squad to rally within 30 cycles")
	}
	for slot, id := range ids {
		u, _ := h.world.Unit(id)
		want, _ := slotPos(rally, geo.Top, slot)
		if u.Pos != want {
			t.Fatalf("slot %d: expected %s, got %s", slot, want, u.Pos)
		}
	}
	if !h.log.HasEntry("squad", "status", "rallying -> ok") {
		t.Fatal("expected the status change to be logged")
	}
}

func TestPlanner_RallyingNeverReturns(t *testing.T) {
	h := newHarness(false)
	rally := geo.NewPos(20, 20, rallyRoom)
	ids := h.quad(rally, geo.Top)
	sq := h.squad(t, FFA, &rally, ids...)

	if res, _ := h.planner.Run(sq.ID); res.Status != OK {
		t.Fatalf("expected ok on the slots, got %s", res.Status)
	}
	for i, id := range ids {
		h.world.Teleport(id, geo.NewPos(5+i*10, 40, rallyRoom))
	}
	if res, _ := h.planner.Run(sq.ID); res.Status != OK {
		t.Fatalf("expected a scattered squad to stay ok, got %s", res.Status)
	}
	saved, _, _ := h.planner.Squad(sq.ID)
	if !saved.RallyComplete {
		t.Fatal("expected the rally flag to persist")
	}
}

func TestPlanner_DeadIffNoLivingMembers(t *testing.T) {
	h := newHarness(false)
	rally := geo.NewPos(20, 20, rallyRoom)
	ids := h.quad(geo.NewPos(10, 10, rallyRoom), geo.Top)
	sq := h.squad(t, FFA, &rally, ids...)

	for i, id := range ids {
		res, err := h.planner.Run(sq.ID)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if res.Status == Dead {
			t.Fatalf("expected a squad with %d members alive not to be dead", len(ids)-i)
		}
		h.world.RemoveUnit(id)
	}
	res, err := h.planner.Run(sq.ID)
	if err != nil || res.Status != Dead {
		t.Fatalf("expected dead while still rallying, got %s err=%v", res.Status, err)
	}
	if !h.log.HasEntry("squad", "terminal", "dead") {
		t.Fatal("expected a terminal entry")
	}
	if _, ok, _ := h.planner.Squad(sq.ID); ok {
		t.Fatal("expected the record to be torn down")
	}
	op, _, _ := h.planner.Operation(sq.OperationID)
	if len(op.SquadIDs) != 0 {
		t.Fatalf("expected the operation to drop the squad, got %v", op.SquadIDs)
	}
}

func TestPlanner_DoneEndsTheSquad(t *testing.T) {
	h := newHarness(false)
	rally := geo.NewPos(20, 20, rallyRoom)
	sq := h.squad(t, FFA, &rally, h.quad(rally, geo.Top)...)
	if err := h.planner.FinishOperation(sq.OperationID); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if res, _ := h.planner.Run(sq.ID); res.Status != Done {
		t.Fatalf("expected done, got %s", res.Status)
	}
	if len(h.rec.calls) != 0 {
		t.Fatal("expected no intents from a finished squad")
	}
}

func TestPlanner_FatigueHoldsWholeFormation(t *testing.T) {
	t.Run("rallied", func(t *testing.T) {
		h := newHarness(false)
		rally := geo.NewPos(20, 20, rallyRoom)
		ids := h.quad(rally, geo.Top)
		sq := h.squad(t, FFA, &rally, ids...)
		h.world.SetFatigue(ids[3], 2)

		res, _ := h.planner.Run(sq.ID)
		for _, id := range ids {
			if _, ok := moveOf(res.Intents[id]); ok {
				t.Fatalf("expected no member to move while one is tired, %s moved", id)
			}
		}

		h.world.SetFatigue(ids[3], 0)
		res, _ = h.planner.Run(sq.ID)
		for _, id := range ids {
			if d, ok := moveOf(res.Intents[id]); !ok || d != geo.Top {
				t.Fatalf("expected every member to step top, %s got %s", id, d)
			}
		}
	})

	t.Run("on an exit while rallying", func(t *testing.T) {
		h := newHarness(false)
		rally := geo.NewPos(20, 20, rallyRoom)
		ids := h.quad(geo.NewPos(10, 10, rallyRoom), geo.Top)
		h.world.Teleport(ids[0], geo.NewPos(0, 25, rallyRoom))
		sq := h.squad(t, FFA, &rally, ids...)
		h.world.SetFatigue(ids[2], 1)

		res, _ := h.planner.Run(sq.ID)
		if res.Status != Rallying {
			t.Fatalf("expected rallying, got %s", res.Status)
		}
		for _, id := range ids {
			if hasAction(res.Intents[id], Move) {
				t.Fatalf("expected the whole squad to hold, %s moved", id)
			}
		}
	})
}

func TestPlanner_MovesIntoTargetRoom(t *testing.T) {
	h := newHarness(true)
	rally := geo.NewPos(20, 3, rallyRoom)
	ids := h.quad(rally, geo.Top)
	sq := h.squad(t, FFA, &rally, ids...)

	for cycle := 0; cycle < 10; cycle++ {
		if _, err := h.planner.Run(sq.ID); err != nil {
			t.Fatalf("cycle %d: %v", cycle, err)
		}
		h.world.EndCycle()
	}

	anchor := geo.NewPos(20, 47, targetRoom)
	for slot, id := range ids {
		u, _ := h.world.Unit(id)
		want, _ := slotPos(anchor, geo.Top, slot)
		if u.Pos != want {
			t.Fatalf("slot %d: expected %s, got %s", slot, want, u.Pos)
		}
	}
	if h.log.CountCategory("intent", "rejected") == 0 {
		t.Fatal("expected exit steps to win over the block march")
	}
}

// corridor builds a one-block-wide corridor in the target room with a
// hostile spawn at its far end and a rallied squad facing top at (20,20).
func corridor(t *testing.T, h *harness) (Squad, []string, string) {
	t.Helper()
	for x := 15; x <= 35; x++ {
		h.world.SetTerrain(geo.NewPos(x, 19, targetRoom), world.Wall)
		h.world.SetTerrain(geo.NewPos(x, 22, targetRoom), world.Wall)
	}
	spawn := h.world.AddStructure(world.Structure{Type: world.Spawn, Owner: "enemy", Pos: geo.NewPos(30, 20, targetRoom)})
	ids := h.quad(geo.NewPos(20, 20, targetRoom), geo.Top)
	rally := geo.NewPos(20, 20, rallyRoom)
	sq := h.squad(t, FFA, &rally, ids...)
	h.edit(t, sq.ID, func(s *Squad) { s.RallyComplete = true })
	return sq, ids, spawn
}

func TestPlanner_ClockwiseReorientation(t *testing.T) {
	h := newHarness(false)
	sq, ids, spawn := corridor(t, h)

	res, err := h.planner.Run(sq.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := [SlotCount]geo.Direction{geo.Right, geo.Bottom, geo.Top, geo.Left}
	for slot, id := range ids {
		if d, _ := moveOf(h.rec.calls[id]); d != want[slot] {
			t.Fatalf("slot %d: expected %s, got %s", slot, want[slot], d)
		}
	}
	if len(res.Intents) != SlotCount {
		t.Fatalf("expected intents for every member, got %d", len(res.Intents))
	}
	saved, _, _ := h.planner.Squad(sq.ID)
	if saved.Orientation != geo.Right {
		t.Fatalf("expected to face right after turning, got %s", saved.Orientation)
	}
	if saved.AttackTarget != spawn {
		t.Fatalf("expected the spawn as target, got %q", saved.AttackTarget)
	}
}

func TestPlanner_AdvancesAndStrikes(t *testing.T) {
	h := newHarness(true)
	sq, ids, spawn := corridor(t, h)

	struck := false
	for cycle := 0; cycle < 15 && !struck; cycle++ {
		res, err := h.planner.Run(sq.ID)
		if err != nil {
			t.Fatalf("cycle %d: %v", cycle, err)
		}
		for _, id := range ids[:2] {
			for _, in := range res.Intents[id] {
				if in.Action == Attack && in.Target == spawn {
					struck = true
				}
			}
		}
		h.world.EndCycle()
	}
	if !struck {
		t.Fatal("expected the front row to strike the spawn within 15 cycles")
	}
	for slot, id := range ids {
		u, _ := h.world.Unit(id)
		want, _ := slotPos(geo.NewPos(28, 20, targetRoom), geo.Right, slot)
		if u.Pos != want {
			t.Fatalf("slot %d: expected %s, got %s", slot, want, u.Pos)
		}
	}
	s, _ := h.world.Object(spawn)
	if s.Hits >= s.HitsMax {
		t.Fatal("expected the spawn to take damage")
	}
}

func TestPlanner_UnsupportedOrientationFaults(t *testing.T) {
	h := newHarness(false)
	rally := geo.NewPos(20, 20, rallyRoom)
	bad := h.squad(t, FFA, &rally, h.quad(geo.NewPos(10, 10, rallyRoom), geo.Top)...)
	h.edit(t, bad.ID, func(s *Squad) { s.Orientation = geo.TopRight })

	good := h.squad(t, FFA, &rally, h.quad(geo.NewPos(30, 30, rallyRoom), geo.Top)...)

	results, err := h.planner.RunAll()
	if !fault.Is(err) {
		t.Fatalf("expected a fault, got %v", err)
	}
	if len(results) != 1 || results[0].SquadID != good.ID {
		t.Fatalf("expected the healthy squad to run, got %+v", results)
	}
	if !h.log.HasEntry("squad", "error", "not supported") {
		t.Fatal("expected the fault to be logged")
	}
	for _, m := range bad.Members {
		if _, ok := h.rec.calls[m.UnitID]; ok {
			t.Fatal("expected no intents from the faulted squad")
		}
	}
}

func TestPlanner_CombatNeedsVisibleTargetRoom(t *testing.T) {
	h := newHarness(false)
	archer := h.world.AddUnit(world.Unit{Owner: "me", Pos: geo.NewPos(10, 10, rallyRoom), Body: rangedBody})
	medic := h.world.AddUnit(world.Unit{Owner: "me", Pos: geo.NewPos(11, 10, rallyRoom), Body: healerBody})
	h.world.AddUnit(world.Unit{Owner: "enemy", Pos: geo.NewPos(12, 12, rallyRoom), Body: meleeBody})
	rally := geo.NewPos(30, 30, rallyRoom)
	sq := h.squad(t, FFA, &rally, archer, medic)

	res, _ := h.planner.Run(sq.ID)
	if hasAction(res.Intents[archer], RangedAttack) || hasAction(res.Intents[medic], Heal) {
		t.Fatal("expected no combat intents while the target room is unseen")
	}

	h.world.SetVisible(targetRoom, true)
	res, _ = h.planner.Run(sq.ID)
	if !hasAction(res.Intents[archer], RangedAttack) {
		t.Fatal("expected a ranged attack on the nearby hostile")
	}
	var heal Intent
	for _, in := range res.Intents[medic] {
		if in.Action == Heal {
			heal = in
		}
	}
	if heal.Target != medic {
		t.Fatalf("expected a self heal with nobody hurt, got %+v", heal)
	}
}

func TestPlanner_CombinedMovesIndividually(t *testing.T) {
	h := newHarness(false)
	h.world.AddStructure(world.Structure{Type: world.Spawn, Owner: "enemy", Pos: geo.NewPos(25, 25, targetRoom)})
	h.world.SetVisible(targetRoom, true)
	a := h.world.AddUnit(world.Unit{Owner: "me", Pos: geo.NewPos(10, 10, rallyRoom), Body: meleeBody})
	b := h.world.AddUnit(world.Unit{Owner: "me", Pos: geo.NewPos(40, 10, rallyRoom), Body: meleeBody})
	rally := geo.NewPos(20, 20, rallyRoom)
	sq := h.squad(t, Combined, &rally, a, b)
	h.edit(t, sq.ID, func(s *Squad) { s.RallyComplete = true })

	res, err := h.planner.Run(sq.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, id := range []string{a, b} {
		if _, ok := moveOf(res.Intents[id]); !ok {
			t.Fatalf("expected %s to move towards the target", id)
		}
		sess, ok, _ := h.planner.Voyager.Session(id)
		if !ok || sess.Path == "" {
			t.Fatalf("expected %s to own a movement session, got %+v", id, sess)
		}
		if _, ok := h.world.PendingMove(id); ok {
			t.Fatal("expected the session to leave the move to the executor")
		}
	}
}
