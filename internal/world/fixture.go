package world

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Garsondee/Squad-Voyager/internal/geo"
)

// Fixture describes a world in YAML. Room rows are ASCII art, one character
// per tile; missing rows and columns are plain.
//
//	.  plain        ~  swamp       #  natural wall
//	=  road         X  constructed wall
//	R  rampart      S  spawn       T  tower
//	C  container    K  keeper lair I  invader core
//
// Owned structures (R, S, T) belong to the room owner.
type Fixture struct {
	Me     string        `yaml:"me"`
	Allies []string      `yaml:"allies"`
	Time   int           `yaml:"time"`
	Rooms  []RoomFixture `yaml:"rooms"`
	Units  []UnitFixture `yaml:"units"`
}

type RoomFixture struct {
	Name       string   `yaml:"name"`
	Controller bool     `yaml:"controller"`
	Owner      string   `yaml:"owner"`
	Reserver   string   `yaml:"reserver"`
	Level      int      `yaml:"level"`
	Visible    bool     `yaml:"visible"`
	Rows       []string `yaml:"rows"`
}

type UnitFixture struct {
	ID    string `yaml:"id"`
	Owner string `yaml:"owner"`
	Room  string `yaml:"room"`
	X     int    `yaml:"x"`
	Y     int    `yaml:"y"`
	// Body is a compact part list: M move, W work, C carry, A attack,
	// R ranged attack, H heal, T tough. "MMAA" is two move, two attack.
	Body    string `yaml:"body"`
	Fatigue int    `yaml:"fatigue"`
}

// LoadFixtureFile reads a YAML fixture from disk.
func LoadFixtureFile(path string) (*Map, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := LoadFixture(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LoadFixture builds a Map from YAML.
func LoadFixture(raw []byte) (*Map, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return f.Build()
}

// Build turns the fixture into a Map.
func (f Fixture) Build() (*Map, error) {
	me := f.Me
	if me == "" {
		me = "me"
	}
	m := NewMap(me)
	m.time = f.Time
	for _, a := range f.Allies {
		m.AddAlly(a)
	}
	for _, rf := range f.Rooms {
		if _, _, ok := geo.ParseRoom(rf.Name); !ok {
			return nil, fmt.Errorf("room %q: bad name", rf.Name)
		}
		if err := m.AddRoomFixture(rf); err != nil {
			return nil, fmt.Errorf("room %s: %w", rf.Name, err)
		}
	}
	for i, uf := range f.Units {
		if !m.HasRoom(uf.Room) {
			return nil, fmt.Errorf("unit %d: unknown room %q", i, uf.Room)
		}
		body, err := ParseBody(uf.Body)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
		owner := uf.Owner
		if owner == "" {
			owner = me
		}
		pos := geo.NewPos(uf.X, uf.Y, uf.Room)
		if !pos.InBounds() {
			return nil, fmt.Errorf("unit %d: %s out of bounds", i, pos)
		}
		m.AddUnit(Unit{ID: uf.ID, Owner: owner, Pos: pos, Body: body, Fatigue: uf.Fatigue})
	}
	return m, nil
}

// AddRoomFixture adds one room described in fixture form.
func (m *Map) AddRoomFixture(rf RoomFixture) error {
	m.AddRoom(RoomInfo{
		Name:       rf.Name,
		Controller: rf.Controller || rf.Owner != "" || rf.Reserver != "",
		Owner:      rf.Owner,
		Reserver:   rf.Reserver,
		Level:      rf.Level,
	})
	m.SetVisible(rf.Name, rf.Visible)
	if len(rf.Rows) > geo.RoomSize {
		return fmt.Errorf("%d rows, at most %d allowed", len(rf.Rows), geo.RoomSize)
	}
	for y, row := range rf.Rows {
		row = strings.TrimRight(row, " ")
		if len(row) > geo.RoomSize {
			return fmt.Errorf("row %d has %d tiles", y, len(row))
		}
		for x := 0; x < len(row); x++ {
			p := geo.NewPos(x, y, rf.Name)
			switch c := row[x]; c {
			case '.', ' ':
			case '~':
				m.SetTerrain(p, Swamp)
			case '#':
				m.SetTerrain(p, Wall)
			case '=':
				m.AddStructure(Structure{Type: Road, Pos: p})
			case 'X':
				m.AddStructure(Structure{Type: ConstructedWall, Pos: p, HitsMax: 100000})
			case 'R':
				m.AddStructure(Structure{Type: Rampart, Pos: p, Owner: rf.Owner, HitsMax: 10000})
			case 'S':
				m.AddStructure(Structure{Type: Spawn, Pos: p, Owner: rf.Owner})
			case 'T':
				m.AddStructure(Structure{Type: Tower, Pos: p, Owner: rf.Owner, HitsMax: 3000})
			case 'C':
				m.AddStructure(Structure{Type: Container, Pos: p})
			case 'K':
				m.AddStructure(Structure{Type: KeeperLair, Pos: p, Owner: "Source Keeper"})
			case 'I':
				m.AddStructure(Structure{Type: InvaderCore, Pos: p, Owner: "Invader", HitsMax: 100000})
			default:
				return fmt.Errorf("row %d col %d: unknown tile %q", y, x, c)
			}
		}
	}
	return nil
}

// ParseBody decodes a compact body string.
func ParseBody(s string) ([]BodyPart, error) {
	body := make([]BodyPart, 0, len(s))
	for _, c := range strings.ToUpper(s) {
		switch c {
		case 'M':
			body = append(body, Move)
		case 'W':
			body = append(body, Work)
		case 'C':
			body = append(body, Carry)
		case 'A':
			body = append(body, Attack)
		case 'R':
			body = append(body, RangedAttack)
		case 'H':
			body = append(body, Heal)
		case 'T':
			body = append(body, Tough)
		default:
			return nil, fmt.Errorf("unknown body part %q", c)
		}
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	return body, nil
}
