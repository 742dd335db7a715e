package sim

import (
	"math/rand"
	"sort"

	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/squad"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

// Scenario is a named, seedable setup used by the command line tools.
type Scenario struct {
	Name        string
	Description string
	// Options builds the setup. The seed jitters start positions.
	Options func(seed int64) []Option
	// Done reports whether the run has reached its end state.
	Done func(*Sim) bool
}

const (
	scenarioRally  = "W1N1"
	scenarioTarget = "W1N2"
	enemy          = "invader"
)

var scenarios = map[string]Scenario{
	"siege": {
		Name:        "siege",
		Description: "one ffa quad rallies in W1N1, marches into W1N2 and razes the spawn",
		Options:     func(seed int64) []Option { return assault(seed, squad.FFA) },
		Done:        assaultDone,
	},
	"combined": {
		Name:        "combined",
		Description: "same as siege with members moving on their own",
		Options:     func(seed int64) []Option { return assault(seed, squad.Combined) },
		Done:        assaultDone,
	},
	"voyage": {
		Name:        "voyage",
		Description: "three lone units cross rooms through a swamp band and a wall",
		Options:     voyageScenario,
		Done: func(s *Sim) bool {
			for _, t := range s.Travels() {
				if !t.Arrived {
					return false
				}
			}
			return true
		},
	},
}

// Scenarios returns every scenario sorted by name.
func Scenarios() []Scenario {
	out := make([]Scenario, 0, len(scenarios))
	for _, sc := range scenarios {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func LookupScenario(name string) (Scenario, bool) {
	sc, ok := scenarios[name]
	return sc, ok
}

// jitter scatters a start tile by up to three tiles in each axis.
func jitter(rng *rand.Rand, x, y int, room string) geo.Pos {
	return geo.NewPos(x+rng.Intn(7)-3, y+rng.Intn(7)-3, room)
}

func assault(seed int64, strategy squad.Strategy) []Option {
	rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- scenario layout
	rally := geo.NewPos(24, 4, scenarioRally)
	opts := []Option{
		WithSeed(seed),
		WithRoom(scenarioRally, "", true),
		WithRoom(scenarioTarget, enemy, true),
		WithStructure(world.Structure{Type: world.Spawn, Owner: enemy, Pos: geo.NewPos(25, 20, scenarioTarget)}),
		WithStructure(world.Structure{Type: world.Extension, Owner: enemy, Pos: geo.NewPos(18, 14, scenarioTarget)}),
		WithOperation("raid", scenarioTarget, strategy),
	}
	starts := [][2]int{{15, 25}, {30, 25}, {15, 35}, {30, 35}}
	bodies := []string{"MMAAA", "MMAAA", "MMHH", "MMHH"}
	ids := []string{"zealot-1", "zealot-2", "medic-1", "medic-2"}
	for i, id := range ids {
		opts = append(opts, WithUnit(id, "", jitter(rng, starts[i][0], starts[i][1], scenarioRally), bodies[i]))
	}
	return append(opts, WithSquad("raid", &rally, ids...))
}

func assaultDone(s *Sim) bool {
	hostile := 0
	for _, st := range s.World.Structures(scenarioTarget) {
		if st.Owner == enemy {
			hostile++
		}
	}
	if hostile == 0 {
		return true
	}
	ops, err := s.Squads.Operations()
	if err != nil {
		return true
	}
	for _, op := range ops {
		if len(op.SquadIDs) > 0 {
			return false
		}
	}
	return true
}

func voyageScenario(seed int64) []Option {
	rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- scenario layout
	swamp := make([]string, geo.RoomSize)
	for y := range swamp {
		row := make([]byte, geo.RoomSize)
		for x := range row {
			switch {
			case x >= 20 && x <= 28:
				row[x] = '~'
			case x == 35 && y > 5:
				row[x] = '#'
			default:
				row[x] = '.'
			}
		}
		swamp[y] = string(row)
	}
	opts := []Option{
		WithSeed(seed),
		WithRoom("W2N1", "", true),
		WithRoom("W1N1", "", true, swamp...),
		WithRoom("W0N1", "", true),
	}
	for i := 0; i < 3; i++ {
		id := "scout-" + string(rune('a'+i))
		start := jitter(rng, 10, 10+i*12, "W2N1")
		opts = append(opts,
			WithUnit(id, "", start, "MMW"),
			WithTravel(id, geo.NewPos(25, 10+i*12, "W0N1"), 1),
		)
	}
	return opts
}
