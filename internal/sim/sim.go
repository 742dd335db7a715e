// Package sim is the headless engine. It wires the world, the store, the
// planners and the squads together and runs them one cycle at a time.
package sim

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/Garsondee/Squad-Voyager/internal/config"
	"github.com/Garsondee/Squad-Voyager/internal/costmatrix"
	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/pathfind"
	"github.com/Garsondee/Squad-Voyager/internal/route"
	"github.com/Garsondee/Squad-Voyager/internal/simlog"
	"github.com/Garsondee/Squad-Voyager/internal/squad"
	"github.com/Garsondee/Squad-Voyager/internal/store"
	"github.com/Garsondee/Squad-Voyager/internal/voyage"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

// Sim runs a world headlessly with deterministic seeding and structured
// logging.
type Sim struct {
	World    *world.Map
	Store    store.Store
	Log      *simlog.Log
	Matrices *costmatrix.Provider
	Routes   *route.Planner
	Finder   *pathfind.Finder
	Voyager  *voyage.Voyager
	Squads   *squad.Planner
	Reporter *Reporter

	// Operations maps the names given to WithOperation to operation ids.
	Operations map[string]string

	cfg        config.Config
	seed       int64
	rng        *rand.Rand
	verbose    *bool
	visualizer costmatrix.Visualizer
	travels    []*Travel
	observers  []func(Report)
	reloads    <-chan config.Config
	watchErrs  <-chan error
	pending    *config.Config
	window     int
	closers    []io.Closer
	err        error
	ready      bool
}

// pathDrawer is implemented by visualizers that also trace planned paths.
type pathDrawer interface {
	DrawPath(start geo.Pos, path string)
}

// Travel is a unit sent somewhere on its own, outside any squad.
type Travel struct {
	UnitID  string
	Dest    geo.Pos
	Range   int
	Outcome voyage.Outcome
	Arrived bool
}

// optionKind controls the pass in which an option is applied.
type optionKind int

const (
	optInfra     optionKind = iota // config, seed, store, world: applied first
	optWorld                       // rooms, units, structures
	optOperation                   // operations, after the planners exist
	optSquad                       // squads and travels, after operations
)

// Option is a builder function applied to a Sim during construction.
type Option struct {
	kind optionKind
	fn   func(*Sim)
}

// WithConfig replaces the default tuning.
func WithConfig(cfg config.Config) Option {
	return Option{optInfra, func(s *Sim) {
		s.cfg = cfg
	}}
}

// WithSeed sets the RNG seed for deterministic runs.
func WithSeed(seed int64) Option {
	return Option{optInfra, func(s *Sim) {
		s.seed = seed
	}}
}

// WithVerbose enables per-cycle detail logging, overriding the config.
func WithVerbose(v bool) Option {
	return Option{optInfra, func(s *Sim) {
		s.verbose = &v
	}}
}

// WithStore uses st instead of the backend named by the config.
func WithStore(st store.Store) Option {
	return Option{optInfra, func(s *Sim) {
		s.Store = st
	}}
}

// WithWorld runs on an existing map.
func WithWorld(m *world.Map) Option {
	return Option{optInfra, func(s *Sim) {
		s.World = m
	}}
}

// WithFixture builds the map from a YAML fixture.
func WithFixture(raw []byte) Option {
	return Option{optInfra, func(s *Sim) {
		m, err := world.LoadFixture(raw)
		if err != nil {
			s.fail(err)
			return
		}
		s.World = m
	}}
}

// WithVisualizer receives composed matrices when visuals are enabled.
func WithVisualizer(v costmatrix.Visualizer) Option {
	return Option{optInfra, func(s *Sim) {
		s.visualizer = v
	}}
}

// WithReportWindow sets how many cycles the reporter summarises.
func WithReportWindow(cycles int) Option {
	return Option{optInfra, func(s *Sim) {
		s.window = cycles
	}}
}

// WithObserver is called with the report of every cycle.
func WithObserver(fn func(Report)) Option {
	return Option{optInfra, func(s *Sim) {
		s.observers = append(s.observers, fn)
	}}
}

// WithRoom adds a room drawn as ASCII rows (see world.Fixture).
func WithRoom(name, owner string, visible bool, rows ...string) Option {
	return Option{optWorld, func(s *Sim) {
		if _, _, ok := geo.ParseRoom(name); !ok {
			s.fail(fmt.Errorf("room %q: bad name", name))
			return
		}
		err := s.World.AddRoomFixture(world.RoomFixture{Name: name, Owner: owner, Visible: visible, Rows: rows})
		if err != nil {
			s.fail(fmt.Errorf("room %s: %w", name, err))
		}
	}}
}

// WithUnit adds a unit. An empty owner means the local player.
func WithUnit(id, owner string, pos geo.Pos, body string) Option {
	return Option{optWorld, func(s *Sim) {
		parts, err := world.ParseBody(body)
		if err != nil {
			s.fail(fmt.Errorf("unit %s: %w", id, err))
			return
		}
		if owner == "" {
			owner = s.World.Me()
		}
		s.World.AddUnit(world.Unit{ID: id, Owner: owner, Pos: pos, Body: parts})
	}}
}

// WithStructure adds a structure.
func WithStructure(st world.Structure) Option {
	return Option{optWorld, func(s *Sim) {
		s.World.AddStructure(st)
	}}
}

// WithOperation registers an operation under a local name.
func WithOperation(name, targetRoom string, strategy squad.Strategy) Option {
	return Option{optOperation, func(s *Sim) {
		op, err := s.Squads.CreateOperation(targetRoom, strategy)
		if err != nil {
			s.fail(err)
			return
		}
		s.Operations[name] = op.ID
	}}
}

// WithSquad forms a squad for the named operation.
func WithSquad(operation string, rally *geo.Pos, unitIDs ...string) Option {
	return Option{optSquad, func(s *Sim) {
		id, ok := s.Operations[operation]
		if !ok {
			s.fail(fmt.Errorf("squad: unknown operation %q", operation))
			return
		}
		if _, err := s.Squads.AddSquad(id, rally, unitIDs...); err != nil {
			s.fail(err)
		}
	}}
}

// WithTravel sends a unit to dest with the movement session every cycle
// until it arrives.
func WithTravel(unitID string, dest geo.Pos, rng int) Option {
	return Option{optSquad, func(s *Sim) {
		s.travels = append(s.travels, &Travel{UnitID: unitID, Dest: dest, Range: rng})
	}}
}

// New constructs a Sim from the given options in ordered passes:
//  1. Infrastructure (config, seed, store, world)
//  2. Store and planners
//  3. Rooms, units and structures
//  4. Operations
//  5. Squads and travels
func New(opts ...Option) (*Sim, error) {
	s := &Sim{
		cfg:        config.Default(),
		seed:       1,
		Operations: make(map[string]string),
	}
	apply := func(kind optionKind) {
		for _, o := range opts {
			if o.kind == kind {
				o.fn(s)
			}
		}
	}
	apply(optInfra)
	if s.err != nil {
		return nil, s.err
	}
	if err := s.build(); err != nil {
		_ = s.Close()
		return nil, err
	}
	for _, kind := range []optionKind{optWorld, optOperation, optSquad} {
		apply(kind)
		if s.err != nil {
			_ = s.Close()
			return nil, s.err
		}
	}
	s.ready = true
	return s, nil
}

func (s *Sim) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// build wires the collaborators once the infrastructure options are known.
func (s *Sim) build() error {
	verbose := s.cfg.Log.Verbose
	if s.verbose != nil {
		verbose = *s.verbose
	}
	s.Log = simlog.New(verbose)
	if s.cfg.Log.Dir != "" {
		sink := simlog.NewJSONLZstdSink(s.cfg.Log.Dir, "squad-voyager")
		s.Log.SetSink(sink)
		s.closers = append(s.closers, sink)
	}
	if s.World == nil {
		s.World = world.NewMap("me")
	}
	if s.Store == nil {
		st, err := openStore(s.cfg.Store)
		if err != nil {
			return err
		}
		s.Store = st
		if c, ok := st.(io.Closer); ok {
			s.closers = append(s.closers, c)
		}
	}
	if path := s.cfg.Store.Snapshot; path != "" {
		if err := s.restore(path); err != nil {
			return err
		}
	}
	s.rng = rand.New(rand.NewSource(s.seed)) // #nosec G404 -- deterministic replay

	s.Matrices = costmatrix.NewProvider(s.World, s.Log)
	if s.visualizer != nil {
		s.Matrices.SetVisualizer(s.visualizer)
	}
	s.Routes = route.NewPlanner(s.World, s.Store, s.Log, s.cfg.Route)
	s.Finder = pathfind.NewFinder(s.World, s.Matrices, s.Routes, s.Log, s.cfg.Pathing)
	s.Voyager = voyage.New(voyage.Deps{
		World:  s.World,
		Mover:  s.World,
		Finder: s.Finder,
		Routes: s.Routes,
		Store:  s.Store,
		Log:    s.Log,
		Rand:   s.rng,
	}, s.cfg.Pathing)
	s.Squads = squad.NewPlanner(squad.Deps{
		World:    s.World,
		Finder:   s.Finder,
		Matrices: s.Matrices,
		Voyager:  s.Voyager,
		Store:    s.Store,
		Log:      s.Log,
		Executor: NewExecutor(s.World),
		NewID:    squad.SeededIDs(s.seed),
	}, s.cfg.Squad)
	s.Reporter = NewReporter(s.window)
	return nil
}

// Config returns the tuning currently applied.
func (s *Sim) Config() config.Config {
	return s.cfg
}

// Travels returns the units sent with WithTravel.
func (s *Sim) Travels() []*Travel {
	return s.travels
}

// Close writes the configured snapshot and releases the store and the log
// sink. A Sim that failed to build never overwrites its snapshot.
func (s *Sim) Close() error {
	var errs []error
	if path := s.cfg.Store.Snapshot; path != "" && s.ready {
		if err := store.WriteSnapshot(path, s.World.Time(), s.Store); err != nil {
			errs = append(errs, fmt.Errorf("write snapshot: %w", err))
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Step runs one full cycle and returns its report.
func (s *Sim) Step() Report {
	s.applyReloads()
	now := s.World.Time()

	for _, room := range s.World.Rooms() {
		if err := s.Routes.Update(room); err != nil {
			s.Log.Add(now, "--", "sim", "route_update", err.Error(), 0)
		}
	}

	results, err := s.Squads.RunAll()
	if err != nil {
		s.Log.Add(now, "--", "sim", "squad_errors", err.Error(), 0)
	}
	s.advanceTravels(now)
	swept := s.collect(now)

	cr := s.World.EndCycle()
	rep := s.report(cr, results, swept)
	s.Reporter.Collect(rep)
	for _, fn := range s.observers {
		fn(rep)
	}
	return rep
}

func (s *Sim) advanceTravels(now int) {
	for _, t := range s.travels {
		if t.Arrived {
			continue
		}
		u, _ := s.World.Unit(t.UnitID)
		rep, err := s.Voyager.Advance(t.UnitID, t.Dest, voyage.Options{Range: t.Range, Visualize: s.visualizer != nil})
		if err != nil {
			s.Log.Add(now, t.UnitID, "sim", "travel_error", err.Error(), 0)
			continue
		}
		if pd, ok := s.visualizer.(pathDrawer); ok && rep.Planned {
			pd.DrawPath(u.Pos, rep.Path)
		}
		t.Outcome = rep.Outcome
		if rep.Outcome.Arrived() {
			t.Arrived = true
			s.Log.Add(now, t.UnitID, "sim", "arrived", t.Dest.String(), 0)
		}
	}
}

// RunCycles runs n cycles and returns their reports.
func (s *Sim) RunCycles(n int) []Report {
	out := make([]Report, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.Step())
	}
	return out
}

// RunUntil steps until pred returns true or maxCycles elapse. It returns
// the cycle at which pred became true, or -1.
func (s *Sim) RunUntil(pred func(*Sim) bool, maxCycles int) int {
	for i := 0; i < maxCycles; i++ {
		s.Step()
		if pred(s) {
			return s.World.Time()
		}
	}
	return -1
}
