package main

import (
	"testing"

	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

func TestTileCell_Layering(t *testing.T) {
	m := world.NewMap("me")
	m.AddRoom(world.RoomInfo{Name: "W1N1"})
	wall := geo.NewPos(3, 3, "W1N1")
	m.SetTerrain(wall, world.Wall)
	p := geo.NewPos(5, 5, "W1N1")

	units := map[geo.Pos]world.Unit{p: {Owner: "me", Body: []world.BodyPart{world.Heal, world.Move}}}
	structs := map[geo.Pos]world.Structure{p: {Type: world.Road}}

	if c := tileCell(m, p, units, structs); c.r != 'h' {
		t.Fatalf("expected healer glyph over road, got %q", c.r)
	}
	if c := tileCell(m, p, nil, structs); c.r != '=' {
		t.Fatalf("expected road glyph, got %q", c.r)
	}
	if c := tileCell(m, wall, nil, nil); c.r != '█' {
		t.Fatalf("expected wall glyph, got %q", c.r)
	}
	if c := tileCell(m, geo.NewPos(9, 9, "W1N1"), nil, nil); c.r != '.' {
		t.Fatalf("expected plain glyph, got %q", c.r)
	}
}
