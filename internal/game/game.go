// Package game is the interactive ebiten viewer of a simulated scenario.
package game

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/Garsondee/Squad-Voyager/internal/config"
	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/overlay"
	"github.com/Garsondee/Squad-Voyager/internal/sim"
)

// tileSize is the on-screen pixel size of one room tile.
const tileSize = 16

// borderWidth is the pixel gap between the window edge and the room grid.
const borderWidth = 24

// statusHeight is the strip under the grid that holds the cycle line.
const statusHeight = 40

var speeds = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4}

type Game struct {
	sim        *sim.Sim
	scenario   sim.Scenario
	seed       int64
	configPath string

	width  int
	height int
	rooms  []string
	room   int

	// simSpeed is the number of cycles advanced per frame: 0=paused.
	simSpeed  float64
	tickAccum float64
	paused    bool

	showHUD    bool
	showMatrix bool
	prevKeys   map[ebiten.Key]bool

	overlay *overlay.Renderer
	last    sim.Report
	events  *EventLog
	err     error
}

// New builds the viewer around a fresh run of sc. When configPath is set the
// file is loaded and watched for changes.
func New(sc sim.Scenario, seed int64, configPath string) (*Game, error) {
	g := &Game{
		scenario:   sc,
		seed:       seed,
		configPath: configPath,
		simSpeed:   0.25,
		showHUD:    true,
		prevKeys:   make(map[ebiten.Key]bool),
	}
	if err := g.restart(); err != nil {
		return nil, err
	}
	g.width = borderWidth*2 + geo.RoomSize*tileSize + logPanelWidth
	g.height = borderWidth*2 + geo.RoomSize*tileSize + statusHeight
	return g, nil
}

// restart tears down the current run and starts the scenario again.
func (g *Game) restart() error {
	if g.sim != nil {
		_ = g.sim.Close()
	}
	opts := g.scenario.Options(g.seed)
	if g.configPath != "" {
		cfg, err := config.Load(g.configPath)
		if err != nil {
			return err
		}
		opts = append(opts, sim.WithConfig(cfg))
	}
	g.overlay = overlay.New(1)
	opts = append(opts, sim.WithVisualizer(g.overlay), sim.WithVerbose(true))

	s, err := sim.New(opts...)
	if err != nil {
		return err
	}
	if g.configPath != "" {
		if err := s.Watch(g.configPath); err != nil {
			_ = s.Close()
			return err
		}
	}
	g.sim = s
	g.rooms = s.World.Rooms()
	if g.room >= len(g.rooms) {
		g.room = 0
	}
	g.events = NewEventLog()
	g.last = sim.Report{}
	g.tickAccum = 0
	return nil
}

// Close releases the running simulation.
func (g *Game) Close() error {
	if g.sim == nil {
		return nil
	}
	return g.sim.Close()
}

func (g *Game) Update() error {
	// Handle input every frame regardless of sim speed.
	g.handleInput()
	if g.err != nil {
		return g.err
	}
	if g.paused || g.scenario.Done(g.sim) {
		return nil
	}
	g.tickAccum += g.simSpeed
	for g.tickAccum >= 1.0 {
		g.tickAccum -= 1.0
		g.step()
	}
	return nil
}

// step advances the run by one cycle and pulls new log entries into the panel.
func (g *Game) step() {
	g.last = g.sim.Step()
	g.events.Follow(g.sim.Log)
}

func (g *Game) pressed(cur map[ebiten.Key]bool, k ebiten.Key) bool {
	cur[k] = ebiten.IsKeyPressed(k)
	return cur[k] && !g.prevKeys[k]
}

func (g *Game) handleInput() {
	currentKeys := map[ebiten.Key]bool{}

	if g.pressed(currentKeys, ebiten.KeySpace) {
		g.paused = !g.paused
	}
	// N: single step while paused.
	if g.pressed(currentKeys, ebiten.KeyN) && g.paused {
		g.step()
	}
	if g.pressed(currentKeys, ebiten.KeyTab) && len(g.rooms) > 0 {
		g.room = (g.room + 1) % len(g.rooms)
	}
	if g.pressed(currentKeys, ebiten.KeyH) {
		g.showHUD = !g.showHUD
	}
	if g.pressed(currentKeys, ebiten.KeyM) {
		g.showMatrix = !g.showMatrix
	}
	if g.pressed(currentKeys, ebiten.KeyEqual) {
		g.simSpeed = nextSpeed(g.simSpeed, 1)
	}
	if g.pressed(currentKeys, ebiten.KeyMinus) {
		g.simSpeed = nextSpeed(g.simSpeed, -1)
	}
	if g.pressed(currentKeys, ebiten.KeyR) {
		g.seed++
		if err := g.restart(); err != nil {
			g.err = err
		}
	}
	g.prevKeys = currentKeys
}

// nextSpeed moves one notch up (dir > 0) or down the speed ladder.
func nextSpeed(cur float64, dir int) float64 {
	idx := 0
	for i, s := range speeds {
		if s <= cur {
			idx = i
		}
	}
	idx += dir
	if idx < 0 {
		idx = 0
	}
	if idx >= len(speeds) {
		idx = len(speeds) - 1
	}
	return speeds[idx]
}

func (g *Game) currentRoom() string {
	if len(g.rooms) == 0 {
		return ""
	}
	return g.rooms[g.room]
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 18, G: 20, B: 18, A: 255})
	room := g.currentRoom()
	if room == "" {
		ebitenutil.DebugPrintAt(screen, "no rooms", borderWidth, borderWidth)
		return
	}
	g.drawTerrain(screen, room)
	if g.showMatrix {
		g.drawMatrix(screen, room)
	}
	g.drawStructures(screen, room)
	g.drawUnits(screen, room)

	gridSize := geo.RoomSize * tileSize
	g.events.Draw(screen, borderWidth*2+gridSize, g.height)

	state := "running"
	switch {
	case g.scenario.Done(g.sim):
		state = "done"
	case g.paused:
		state = "paused"
	}
	status := fmt.Sprintf("%s  seed=%d  room=%s  cycle=%d  speed=%.2fx  %s  moved=%d blocked=%d damage=%d",
		g.scenario.Name, g.seed, room, g.sim.World.Time(), g.simSpeed, state, g.last.Moved, g.last.Blocked, g.last.Damage)
	ebitenutil.DebugPrintAt(screen, status, borderWidth, borderWidth+gridSize+6)
	for i, sq := range g.last.Squads {
		if i > 3 {
			break
		}
		line := fmt.Sprintf("%s %s acting=%d moves=%d attacks=%d heals=%d", shortID(sq.SquadID), sq.Status, sq.Acting, sq.Moves, sq.Attacks, sq.Heals)
		ebitenutil.DebugPrintAt(screen, line, borderWidth+i%2*360, borderWidth+gridSize+18+i/2*11)
	}
	if g.showHUD {
		g.drawHUD(screen)
	}
}

func (g *Game) drawHUD(screen *ebiten.Image) {
	ebitenutil.DebugPrintAt(screen, "SPACE pause  N step  +/- speed  TAB room  M matrix  R restart  H hud", borderWidth, 4)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}
