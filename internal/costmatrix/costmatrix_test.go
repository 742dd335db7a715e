package costmatrix

import (
	"testing"

	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

func TestSum_ClampsAtObstacle(t *testing.T) {
	a, b := New(), New()
	a.Set(1, 1, 5)
	b.Set(1, 1, 7)
	a.Set(3, 3, 200)
	b.Set(3, 3, 100)
	s := Sum(a, b, nil)
	if s.Get(1, 1) != 12 {
		t.Fatalf("expected 12, got %d", s.Get(1, 1))
	}
	if s.Get(3, 3) != Obstacle {
		t.Fatalf("expected clamp to %d, got %d", Obstacle, s.Get(3, 3))
	}
	if s.Get(0, 0) != 0 {
		t.Fatalf("expected untouched cell to stay 0, got %d", s.Get(0, 0))
	}
	if a.Get(1, 1) != 5 {
		t.Fatal("expected Sum to leave its inputs alone")
	}
}

func TestScale_PreservesSentinelsAndIsMonotonic(t *testing.T) {
	m := New()
	for v := 0; v < geo.RoomSize*geo.RoomSize && v <= int(Obstacle); v++ {
		m.Set(v%geo.RoomSize, v/geo.RoomSize, uint8(v))
	}
	s := Scale(m, 1, 100)
	if s.Get(0, 0) != 0 {
		t.Fatalf("expected 0 to stay 0, got %d", s.Get(0, 0))
	}
	obs := int(Obstacle)
	if s.Get(obs%geo.RoomSize, obs/geo.RoomSize) != Obstacle {
		t.Fatal("expected obstacle to stay obstacle")
	}
	prev := uint8(0)
	for v := 1; v < obs; v++ {
		got := s.Get(v%geo.RoomSize, v/geo.RoomSize)
		if got < 1 || got > 100 {
			t.Fatalf("value %d scaled out of range: %d", v, got)
		}
		if got < prev {
			t.Fatalf("value %d scaled to %d, below previous %d", v, got, prev)
		}
		prev = got
	}
	if s.Get(1, 0) != 1 || s.Get(254%geo.RoomSize, 254/geo.RoomSize) != 100 {
		t.Fatal("expected the ends of the range to map onto lo and hi")
	}
}

func TestScale_ClampsBounds(t *testing.T) {
	m := New()
	m.Set(0, 0, 254)
	m.Set(1, 0, 1)
	s := Scale(m, 0, 255)
	if s.Get(0, 0) != 254 || s.Get(1, 0) != 1 {
		t.Fatalf("expected [1,254] after clamping, got %d and %d", s.Get(1, 0), s.Get(0, 0))
	}
}

func testWorld() *world.Map {
	w := world.NewMap("me")
	w.AddRoom(world.RoomInfo{Name: "W1N1"})
	w.AddRoom(world.RoomInfo{Name: "W0N1"})
	return w
}

func TestProvider_CachesPerCycle(t *testing.T) {
	w := testWorld()
	p := NewProvider(w, nil)
	a := p.Get(RoadTerrain, "W1N1", 0)
	if b := p.Get(RoadTerrain, "W1N1", 0); a != b {
		t.Fatal("expected the same matrix within a cycle")
	}
	p.Get(Structures, "W1N1", 0)
	if p.Cached() != 2 {
		t.Fatalf("expected 2 cached matrices, got %d", p.Cached())
	}
	w.SetTime(1)
	if c := p.Get(RoadTerrain, "W1N1", 0); c == a {
		t.Fatal("expected a rebuild after the clock moved")
	}
	if p.Cached() != 1 {
		t.Fatalf("expected the stale cache to be dropped, got %d", p.Cached())
	}
}

func TestProvider_Layers(t *testing.T) {
	w := testWorld()
	w.SetTerrain(geo.NewPos(5, 5, "W1N1"), world.Wall)
	w.AddStructure(world.Structure{Type: world.Road, Pos: geo.NewPos(6, 5, "W1N1")})
	w.AddStructure(world.Structure{Type: world.ConstructedWall, Pos: geo.NewPos(7, 5, "W1N1")})
	w.AddStructure(world.Structure{Type: world.Rampart, Owner: "me", Pos: geo.NewPos(8, 5, "W1N1")})
	w.AddStructure(world.Structure{Type: world.Rampart, Owner: "enemy", Pos: geo.NewPos(9, 5, "W1N1")})
	w.AddUnit(world.Unit{Owner: "me", Pos: geo.NewPos(10, 5, "W1N1"), Body: []world.BodyPart{world.Move}})
	w.AddUnit(world.Unit{Owner: "enemy", Pos: geo.NewPos(11, 5, "W1N1"), Body: []world.BodyPart{world.Move}})
	p := NewProvider(w, nil)

	rt := p.Get(RoadTerrain, "W1N1", 0)
	if rt.Get(5, 5) != Obstacle || rt.Get(6, 5) != 1 || rt.Get(20, 20) != 0 {
		t.Fatalf("unexpected terrain layer: wall=%d road=%d plain=%d", rt.Get(5, 5), rt.Get(6, 5), rt.Get(20, 20))
	}
	st := p.Get(Structures, "W1N1", 0)
	if st.Get(7, 5) != Obstacle || st.Get(8, 5) != 0 || st.Get(9, 5) != Obstacle {
		t.Fatalf("unexpected structure layer: wall=%d own=%d foreign=%d", st.Get(7, 5), st.Get(8, 5), st.Get(9, 5))
	}
	own := p.Get(OwnedCreeps, "W1N1", 0)
	other := p.Get(NonOwnedCreeps, "W1N1", 0)
	if own.Get(10, 5) != Obstacle || own.Get(11, 5) != 0 {
		t.Fatal("expected only my unit in the owned layer")
	}
	if other.Get(11, 5) != Obstacle || other.Get(10, 5) != 0 {
		t.Fatal("expected only the foreign unit in the non-owned layer")
	}

	c := p.Compose("W1N1", DefaultKinds, 0, 1, 100)
	if c.Get(6, 5) != 1 || c.Get(10, 5) != Obstacle || c.Get(20, 20) != 0 {
		t.Fatalf("unexpected composed matrix: road=%d unit=%d plain=%d", c.Get(6, 5), c.Get(10, 5), c.Get(20, 20))
	}
}

func TestProvider_QuadCoversBlock(t *testing.T) {
	w := testWorld()
	w.SetTerrain(geo.NewPos(11, 11, "W1N1"), world.Swamp)
	w.SetTerrain(geo.NewPos(30, 30, "W1N1"), world.Wall)
	p := NewProvider(w, nil)
	q := p.Get(QuadSquad, "W1N1", 0)

	if q.Get(10, 10) != quadSwamp || q.Get(11, 11) != quadSwamp {
		t.Fatalf("expected swamp to price every anchor covering it, got %d and %d", q.Get(10, 10), q.Get(11, 11))
	}
	if q.Get(12, 12) != quadPlain {
		t.Fatalf("expected plain anchor, got %d", q.Get(12, 12))
	}
	for _, a := range [][2]int{{29, 29}, {30, 29}, {29, 30}, {30, 30}} {
		if q.Get(a[0], a[1]) != Obstacle {
			t.Fatalf("expected anchor %v to be blocked by the wall", a)
		}
	}
	if q.Get(48, 20) != Obstacle || q.Get(0, 20) != Obstacle || q.Get(47, 20) != quadPlain {
		t.Fatal("expected blocks touching the border to be blocked")
	}
}

func TestMerge_Deduplicates(t *testing.T) {
	got := Merge([]Kind{RoadTerrain, OwnedCreeps}, CreepKinds...)
	if len(got) != 3 || got[2] != NonOwnedCreeps {
		t.Fatalf("expected 3 kinds ending with non-owned creeps, got %v", got)
	}
}
