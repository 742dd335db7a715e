package world

import (
	"fmt"
	"sort"

	"github.com/Garsondee/Squad-Voyager/internal/geo"
)

const roomTiles = geo.RoomSize * geo.RoomSize

var exitOrder = []geo.Direction{geo.Top, geo.Right, geo.Bottom, geo.Left}

type roomData struct {
	info    RoomInfo
	terrain [roomTiles]Terrain
	// Visible forces vision even without owned units in the room.
	visible bool
}

// Map is an in-memory world. It implements Query, Mover and Actor; queued
// moves and combat actions take effect in EndCycle.
type Map struct {
	me     string
	allies map[string]bool
	time   int

	rooms      map[string]*roomData
	units      map[string]*Unit
	structures map[string]*Structure
	nextID     int

	moves   map[string]geo.Direction
	actions []action
}

func NewMap(me string) *Map {
	return &Map{
		me:         me,
		allies:     make(map[string]bool),
		rooms:      make(map[string]*roomData),
		units:      make(map[string]*Unit),
		structures: make(map[string]*Structure),
		moves:      make(map[string]geo.Direction),
	}
}

func (m *Map) Time() int  { return m.time }
func (m *Map) Me() string { return m.me }

// SetTime jumps the clock, used by tests that exercise retention windows.
func (m *Map) SetTime(t int) { m.time = t }

// AddAlly marks a player as friendly.
func (m *Map) AddAlly(player string) { m.allies[player] = true }

func (m *Map) IsAlly(player string) bool {
	return player != "" && (player == m.me || m.allies[player])
}

// AddRoom registers an all-plain room. Adding an existing room resets its
// terrain.
func (m *Map) AddRoom(info RoomInfo) {
	m.rooms[info.Name] = &roomData{info: info}
}

// SetVisible forces vision of a room.
func (m *Map) SetVisible(room string, v bool) {
	if r, ok := m.rooms[room]; ok {
		r.visible = v
	}
}

// SetTerrain changes one tile. Unknown rooms are ignored.
func (m *Map) SetTerrain(p geo.Pos, t Terrain) {
	r, ok := m.rooms[p.Room]
	if !ok || !p.InBounds() {
		return
	}
	r.terrain[p.Y*geo.RoomSize+p.X] = t
}

// Rooms returns the registered room names in sorted order.
func (m *Map) Rooms() []string {
	out := make([]string, 0, len(m.rooms))
	for name := range m.rooms {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (m *Map) HasRoom(room string) bool {
	_, ok := m.rooms[room]
	return ok
}

// Terrain returns Wall for corners, out of bounds tiles and unknown rooms.
func (m *Map) Terrain(p geo.Pos) Terrain {
	r, ok := m.rooms[p.Room]
	if !ok || !p.InBounds() || p.IsCorner() {
		return Wall
	}
	return r.terrain[p.Y*geo.RoomSize+p.X]
}

func (m *Map) Room(room string) (RoomInfo, bool) {
	r, ok := m.rooms[room]
	if !ok || !m.visible(room, r) {
		return RoomInfo{}, false
	}
	return r.info, true
}

func (m *Map) visible(room string, r *roomData) bool {
	if r.visible {
		return true
	}
	for _, u := range m.units {
		if u.Pos.Room == room && u.Owner == m.me {
			return true
		}
	}
	for _, s := range m.structures {
		if s.Pos.Room == room && s.Owner == m.me {
			return true
		}
	}
	return false
}

func (m *Map) newID(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s%d", prefix, m.nextID)
}

// AddStructure places a structure and returns its id. Missing hits default
// to a sturdy value.
func (m *Map) AddStructure(s Structure) string {
	if s.ID == "" {
		s.ID = m.newID("s")
	}
	if s.HitsMax == 0 {
		s.HitsMax = 5000
	}
	if s.Hits == 0 {
		s.Hits = s.HitsMax
	}
	m.structures[s.ID] = &s
	return s.ID
}

// AddUnit places a unit and returns its id. Hits default to the body pool.
func (m *Map) AddUnit(u Unit) string {
	if u.ID == "" {
		u.ID = m.newID("u")
	}
	if u.HitsMax == 0 {
		u.HitsMax = PartHits * len(u.Body)
	}
	if u.Hits == 0 {
		u.Hits = u.HitsMax
	}
	u.Body = append([]BodyPart(nil), u.Body...)
	m.units[u.ID] = &u
	return u.ID
}

// RemoveUnit deletes a unit, as if it died.
func (m *Map) RemoveUnit(id string) {
	delete(m.units, id)
	delete(m.moves, id)
}

// SetFatigue overrides a unit's fatigue.
func (m *Map) SetFatigue(id string, f int) {
	if u, ok := m.units[id]; ok {
		u.Fatigue = f
	}
}

// Teleport moves a unit without fatigue or collision checks.
func (m *Map) Teleport(id string, p geo.Pos) {
	if u, ok := m.units[id]; ok {
		u.Pos = p
	}
}

func (m *Map) Structures(room string) []Structure {
	var out []Structure
	for _, s := range m.structures {
		if s.Pos.Room == room {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Map) Units(room string) []Unit {
	var out []Unit
	for _, u := range m.units {
		if u.Pos.Room == room {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllUnits returns every unit sorted by id.
func (m *Map) AllUnits() []Unit {
	out := make([]Unit, 0, len(m.units))
	for _, u := range m.units {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Map) Unit(id string) (Unit, bool) {
	u, ok := m.units[id]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

func (m *Map) Object(id string) (Object, bool) {
	if u, ok := m.units[id]; ok {
		return Object{ID: u.ID, Kind: KindUnit, Pos: u.Pos, Owner: u.Owner, Hits: u.Hits, HitsMax: u.HitsMax}, true
	}
	if s, ok := m.structures[id]; ok {
		return Object{ID: s.ID, Kind: KindStructure, Pos: s.Pos, Owner: s.Owner, Hits: s.Hits, HitsMax: s.HitsMax}, true
	}
	return Object{}, false
}

// Exits lists the neighbouring rooms reachable through at least one open
// border tile.
func (m *Map) Exits(room string) map[geo.Direction]string {
	if !m.HasRoom(room) {
		return nil
	}
	out := make(map[geo.Direction]string, 4)
	for _, d := range exitOrder {
		next, ok := geo.NeighborRoom(room, d)
		if !ok || !m.HasRoom(next) {
			continue
		}
		if m.borderOpen(room, d) {
			out[d] = next
		}
	}
	return out
}

func (m *Map) borderOpen(room string, d geo.Direction) bool {
	for i := 1; i < geo.RoomSize-1; i++ {
		var p geo.Pos
		switch d {
		case geo.Top:
			p = geo.NewPos(i, 0, room)
		case geo.Bottom:
			p = geo.NewPos(i, geo.RoomSize-1, room)
		case geo.Left:
			p = geo.NewPos(0, i, room)
		default:
			p = geo.NewPos(geo.RoomSize-1, i, room)
		}
		if m.Terrain(p) == Wall {
			continue
		}
		q, ok := p.Portal()
		if ok && m.Terrain(q) != Wall {
			return true
		}
	}
	return false
}

// structuresAt returns the structures on p.
func (m *Map) structuresAt(p geo.Pos) []*Structure {
	var out []*Structure
	for _, s := range m.structures {
		if s.Pos == p {
			out = append(out, s)
		}
	}
	return out
}

// Passable reports whether a unit owned by player could stand on p.
func (m *Map) Passable(p geo.Pos, player string) bool {
	if m.Terrain(p) == Wall {
		return false
	}
	for _, s := range m.structuresAt(p) {
		if !s.Walkable(player) {
			return false
		}
	}
	return true
}

func (m *Map) unitAt(p geo.Pos) *Unit {
	for _, u := range m.units {
		if u.Pos == p {
			return u
		}
	}
	return nil
}

// fatigueFactor is the fatigue generated per heavy part when entering p.
func (m *Map) fatigueFactor(p geo.Pos) int {
	for _, s := range m.structuresAt(p) {
		if s.Type == Road {
			return 1
		}
	}
	if m.Terrain(p) == Swamp {
		return 10
	}
	return 2
}
