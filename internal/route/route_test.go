package route

import (
	"math"
	"testing"

	"github.com/Garsondee/Squad-Voyager/internal/config"
	"github.com/Garsondee/Squad-Voyager/internal/simlog"
	"github.com/Garsondee/Squad-Voyager/internal/store"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

// sixRooms is two rows of three rooms: W2N1 W1N1 W0N1 above W2N2 W1N2 W0N2.
func sixRooms() *world.Map {
	m := world.NewMap("me")
	for _, r := range []string{"W2N1", "W1N1", "W0N1", "W2N2", "W1N2", "W0N2"} {
		m.AddRoom(world.RoomInfo{Name: r})
	}
	return m
}

func newPlanner(w world.Query) (*Planner, *simlog.Log, *store.Memory) {
	log := simlog.New(true)
	s := store.NewMemory()
	return NewPlanner(w, s, log, config.Default().Route), log, s
}

func TestClassify(t *testing.T) {
	isAlly := func(p string) bool { return p == "me" || p == "friend" }
	cases := []struct {
		info world.RoomInfo
		want Status
	}{
		{world.RoomInfo{Name: "W1N1", Controller: true}, Neutral},
		{world.RoomInfo{Name: "W1N1", Controller: true, Owner: "me"}, Ally},
		{world.RoomInfo{Name: "W1N1", Controller: true, Reserver: "friend"}, AllyRemote},
		{world.RoomInfo{Name: "W10N3"}, Highway},
		{world.RoomInfo{Name: "W4N5"}, SourceKeeper},
		{world.RoomInfo{Name: "W1N1", Controller: true, Owner: "enemy"}, Hostile},
		{world.RoomInfo{Name: "W1N1", Controller: true, Reserver: "Invader"}, InvaderRemote},
		{world.RoomInfo{Name: "W1N1", Controller: true, Reserver: "enemy"}, HostileRemote},
		{world.RoomInfo{Name: "W5N5"}, Unknown},
	}
	for _, c := range cases {
		if got := Classify(c.info, isAlly); got != c.want {
			t.Fatalf("%+v: expected %s, got %s", c.info, c.want, got)
		}
	}
}

func TestPlanner_UpdateOncePerCycle(t *testing.T) {
	w := sixRooms()
	w.AddRoom(world.RoomInfo{Name: "W1N1", Controller: true})
	w.SetVisible("W1N1", true)
	p, _, _ := newPlanner(w)

	if err := p.Update("W1N1"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.Status("W1N1") != Neutral {
		t.Fatalf("expected neutral, got %s", p.Status("W1N1"))
	}

	w.AddRoom(world.RoomInfo{Name: "W1N1", Controller: true, Owner: "enemy"})
	w.SetVisible("W1N1", true)
	_ = p.Update("W1N1")
	if p.Status("W1N1") != Neutral {
		t.Fatal("expected a second update in the same cycle to be skipped")
	}
	w.SetTime(1)
	_ = p.Update("W1N1")
	if p.Status("W1N1") != Hostile {
		t.Fatalf("expected hostile on the next cycle, got %s", p.Status("W1N1"))
	}
}

func TestPlanner_UpdateIgnoresInvisibleRooms(t *testing.T) {
	w := sixRooms()
	p, _, s := newPlanner(w)
	if err := p.Update("W1N1"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected no record for an invisible room, got %d", s.Len())
	}
}

func TestPlanner_StatusExpires(t *testing.T) {
	w := sixRooms()
	w.AddRoom(world.RoomInfo{Name: "W1N1", Controller: true, Owner: "enemy"})
	w.SetVisible("W1N1", true)
	p, _, s := newPlanner(w)
	_ = p.Update("W1N1")

	w.SetTime(10000)
	if p.Status("W1N1") != Hostile {
		t.Fatal("expected the record to survive the retention window boundary")
	}
	w.SetTime(10001)
	if p.Status("W1N1") != Unknown {
		t.Fatalf("expected unknown after retention, got %s", p.Status("W1N1"))
	}
	if _, ok, _ := s.Load(KeyPrefix + "W1N1"); ok {
		t.Fatal("expected the stale record to be dropped")
	}
}

func TestPlanner_FindRouteIncludesEndpoints(t *testing.T) {
	p, _, _ := newPlanner(sixRooms())
	set := p.FindRoute("W2N1", "W0N1", Options{})
	if len(set) != 3 || !set["W2N1"] || !set["W1N1"] || !set["W0N1"] {
		t.Fatalf("expected origin, middle and destination, got %v", set)
	}
}

func TestPlanner_FindRouteRestrictDistance(t *testing.T) {
	p, log, _ := newPlanner(sixRooms())
	set := p.FindRoute("W2N1", "W0N1", Options{RestrictDistance: 1})
	if set != nil {
		t.Fatalf("expected no route, got %v", set)
	}
	if !log.HasEntry("route", "no_route", "W2N1 -> W0N1") {
		t.Fatal("expected a no_route log entry")
	}
}

func TestPlanner_FindRouteAvoidsHostileRooms(t *testing.T) {
	w := sixRooms()
	w.AddRoom(world.RoomInfo{Name: "W1N1", Controller: true, Owner: "enemy"})
	w.SetVisible("W1N1", true)
	p, _, _ := newPlanner(w)
	_ = p.Update("W1N1")

	set := p.FindRoute("W2N1", "W0N1", Options{})
	if set == nil || set["W1N1"] || !set["W1N2"] {
		t.Fatalf("expected a detour through W1N2, got %v", set)
	}

	// A hostile destination is always allowed.
	set = p.FindRoute("W2N1", "W1N1", Options{})
	if set == nil || !set["W1N1"] {
		t.Fatalf("expected the hostile destination to be reachable, got %v", set)
	}

	set = p.FindRoute("W2N1", "W0N1", Options{AllowedStatuses: append([]Status{Hostile}, DefaultAllowed...)})
	if set == nil || !set["W1N1"] {
		t.Fatalf("expected the direct route once hostile rooms are allowed, got %v", set)
	}
}

func TestPlanner_RouteCallbackOverrides(t *testing.T) {
	p, _, _ := newPlanner(sixRooms())
	set := p.FindRoute("W2N1", "W0N1", Options{RouteCallback: func(room string) (float64, bool) {
		if room == "W1N1" {
			return math.Inf(1), true
		}
		return 0, false
	}})
	if set == nil || set["W1N1"] || len(set) != 5 {
		t.Fatalf("expected a five room detour, got %v", set)
	}
}

func TestPlanner_PreferHighway(t *testing.T) {
	// W1N1 -> W1N4 directly crosses three rooms; the W0 column is highway.
	w := world.NewMap("me")
	for _, r := range []string{"W1N1", "W1N2", "W1N3", "W1N4", "W0N1", "W0N2", "W0N3", "W0N4"} {
		w.AddRoom(world.RoomInfo{Name: r})
	}
	p, _, _ := newPlanner(w)

	set := p.FindRoute("W1N1", "W1N4", Options{})
	if !set["W1N2"] || !set["W1N3"] || set["W0N2"] {
		t.Fatalf("expected the direct route without highway preference, got %v", set)
	}
	set = p.FindRoute("W1N1", "W1N4", Options{PreferHighway: true})
	if !set["W0N1"] || !set["W0N4"] || set["W1N2"] || set["W1N3"] {
		t.Fatalf("expected the highway detour, got %v", set)
	}
}

// pricedWorld records the last cost the planner gave each room.
type pricedWorld struct {
	*world.Map
	costs map[string]float64
}

func (w *pricedWorld) FindRoute(from, to string, cost world.RouteCost) ([]string, bool) {
	return w.Map.FindRoute(from, to, func(room, prev string) float64 {
		c := cost(room, prev)
		w.costs[room] = c
		return c
	})
}

func TestPlanner_BlindSourceKeeperPenalty(t *testing.T) {
	// W4N4 is a source keeper room between W3N4 and W4N3; W3N3 is the way round.
	m := world.NewMap("me")
	for _, r := range []string{"W3N4", "W4N4", "W3N3", "W4N3"} {
		m.AddRoom(world.RoomInfo{Name: r})
	}
	w := &pricedWorld{Map: m, costs: map[string]float64{}}
	p, log, _ := newPlanner(w)
	withSK := append([]Status{SourceKeeper}, DefaultAllowed...)

	set := p.FindRoute("W3N4", "W4N3", Options{AllowedStatuses: withSK})
	if set == nil || set["W4N4"] || !set["W3N3"] {
		t.Fatalf("expected a detour around the unseen keeper room, got %v", set)
	}
	if got := w.costs["W4N4"]; got != 10 {
		t.Fatalf("expected keeper room cost 10, got %v", got)
	}
	if !log.HasEntry("route", "blind_source_keeper", "") {
		t.Fatal("expected a blind keeper entry log")
	}

	p.FindRoute("W3N4", "W4N3", Options{AllowedStatuses: withSK, PreferHighway: true, HighwayBias: 2})
	if got := w.costs["W4N4"]; got != 20 {
		t.Fatalf("expected the bias to scale the penalty to 20, got %v", got)
	}
	if got := w.costs["W3N3"]; got != 2 {
		t.Fatalf("expected plain room cost 2, got %v", got)
	}

	// Without SourceKeeper in the allowed set the room is only an unknown one.
	p.FindRoute("W3N4", "W4N3", Options{})
	if got := w.costs["W4N4"]; got != 1 {
		t.Fatalf("expected no penalty when keeper rooms are not allowed, got %v", got)
	}

	m.SetVisible("W4N4", true)
	p.FindRoute("W3N4", "W4N3", Options{AllowedStatuses: withSK})
	if got := w.costs["W4N4"]; got != 1 {
		t.Fatalf("expected no penalty for a visible keeper room, got %v", got)
	}
}
