package geo

import "testing"

func TestParseRoom_RoundTrip(t *testing.T) {
	for _, name := range []string{"W1N1", "E0S0", "W0N0", "E12S34", "W10N5"} {
		rx, ry, ok := ParseRoom(name)
		if !ok {
			t.Fatalf("expected %s to parse", name)
		}
		if got := RoomName(rx, ry); got != name {
			t.Fatalf("expected round trip of %s, got %s", name, got)
		}
	}
}

func TestParseRoom_Rejects(t *testing.T) {
	for _, name := range []string{"", "sim", "X1N1", "W1", "WN1", "W1Q1", "W1N"} {
		if _, _, ok := ParseRoom(name); ok {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}

func TestRoomLinearDistance(t *testing.T) {
	if d := RoomLinearDistance("W1N1", "W1N1"); d != 0 {
		t.Fatalf("expected 0, got %d", d)
	}
	// W0 and E0 are neighbours.
	if d := RoomLinearDistance("W0N1", "E0N1"); d != 1 {
		t.Fatalf("expected W0/E0 to be adjacent, got %d", d)
	}
	if d := RoomLinearDistance("W1N1", "W4N3"); d != 3 {
		t.Fatalf("expected 3, got %d", d)
	}
}

func TestIsHighwayAndSourceKeeper(t *testing.T) {
	if !IsHighway("W10N3") || !IsHighway("E3S0") {
		t.Fatal("expected rows and columns divisible by 10 to be highways")
	}
	if IsHighway("W1N1") {
		t.Fatal("W1N1 is not a highway")
	}
	if !IsSourceKeeper("W4N6") || !IsSourceKeeper("E16S14") {
		t.Fatal("expected ring rooms to be source keeper rooms")
	}
	if IsSourceKeeper("W5N5") {
		t.Fatal("sector center is not a source keeper room")
	}
	if IsSourceKeeper("W3N5") {
		t.Fatal("W3N5 is outside the keeper ring")
	}
}

func TestDirection_RotateAndOpposite(t *testing.T) {
	if got := Top.Rotate(2); got != Right {
		t.Fatalf("expected top rotated twice clockwise to be right, got %s", got)
	}
	if got := Top.Rotate(-2); got != Left {
		t.Fatalf("expected top rotated twice counter-clockwise to be left, got %s", got)
	}
	if got := BottomLeft.Opposite(); got != TopRight {
		t.Fatalf("expected opposite of bottom_left to be top_right, got %s", got)
	}
	if got := DirNone.Rotate(3); got != DirNone {
		t.Fatalf("rotating none should stay none, got %s", got)
	}
}

func TestPos_DirectionAndRange(t *testing.T) {
	a := NewPos(10, 10, "W1N1")
	b := NewPos(12, 9, "W1N1")
	if r := a.RangeTo(b); r != 2 {
		t.Fatalf("expected range 2, got %d", r)
	}
	if d := a.DirectionTo(b); d != TopRight {
		t.Fatalf("expected top_right, got %s", d)
	}
	// Across the W1/W0 border: W1N1 x=49 touches W0N1 x=0.
	c := NewPos(49, 20, "W1N1")
	e := NewPos(0, 20, "W0N1")
	if r := c.RangeTo(e); r != 1 {
		t.Fatalf("expected border tiles to be adjacent in world space, got %d", r)
	}
}

func TestPos_PortalAndMoved(t *testing.T) {
	p := NewPos(48, 20, "W1N1")
	q, ok := p.Moved(Right)
	if !ok {
		t.Fatal("expected move to succeed")
	}
	if q != NewPos(0, 20, "W0N1") {
		t.Fatalf("expected to be carried to W0N1 0,20, got %s", q)
	}

	// Standing on the arrival edge, stepping back crosses without a second transfer.
	back, ok := q.Moved(Left)
	if !ok || back != NewPos(49, 20, "W1N1") {
		t.Fatalf("expected to land on W1N1 49,20, got %s", back)
	}

	if _, ok := NewPos(0, 0, "W1N1").Portal(); ok {
		t.Fatal("corners have no portal")
	}
}

func TestSerializePath_SkipsRoomTransitions(t *testing.T) {
	start := NewPos(47, 20, "W1N1")
	path := []Pos{
		NewPos(48, 20, "W1N1"),
		NewPos(49, 20, "W1N1"),
		NewPos(0, 20, "W0N1"),
		NewPos(1, 21, "W0N1"),
	}
	got := SerializePath(start, path)
	if got != "334" {
		t.Fatalf("expected \"334\", got %q", got)
	}

	tiles := DeserializePath(start, got)
	if len(tiles) != 3 {
		t.Fatalf("expected 3 visited tiles, got %d", len(tiles))
	}
	if tiles[2] != NewPos(1, 21, "W0N1") {
		t.Fatalf("expected replay to end at W0N1 1,21, got %s", tiles[2])
	}
}
