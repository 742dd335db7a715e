// Command term-view runs a scenario and draws one room at a time in the
// terminal.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/sim"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

type viewer struct {
	screen tcell.Screen
	sim    *sim.Sim
	sc     sim.Scenario
	rooms  []string
	room   int
	paused bool
	last   sim.Report
}

func main() {
	scenario := flag.String("scenario", "voyage", "scenario to run")
	seed := flag.Int64("seed", 42, "RNG seed")
	tick := flag.Duration("tick", 150*time.Millisecond, "delay between cycles")
	flag.Parse()

	sc, ok := sim.LookupScenario(*scenario)
	if !ok {
		log.Fatalf("unknown scenario %q", *scenario)
	}
	s, err := sim.New(sc.Options(*seed)...)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatal(err)
	}
	if err := screen.Init(); err != nil {
		log.Fatal(err)
	}
	v := &viewer{screen: screen, sim: s, sc: sc, rooms: s.World.Rooms()}
	v.run(*tick)
	screen.Fini()
}

func (v *viewer) run(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			eventChan <- v.screen.PollEvent()
		}
	}()

	v.draw()
	for {
		select {
		case ev := <-eventChan:
			if !v.handleInput(ev) {
				return
			}
			v.draw()
		case <-ticker.C:
			if !v.paused && !v.sc.Done(v.sim) {
				v.last = v.sim.Step()
			}
			v.draw()
		}
	}
}

func (v *viewer) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() == tcell.KeyTab && len(v.rooms) > 0 {
			v.room = (v.room + 1) % len(v.rooms)
		}
		if ev.Key() == tcell.KeyRune {
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				v.paused = !v.paused
			case 'n':
				if v.paused {
					v.last = v.sim.Step()
				}
			}
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

// cell is one rendered tile.
type cell struct {
	r     rune
	style tcell.Style
}

// tileCell picks the glyph for a tile: units over structures over terrain.
func tileCell(m *world.Map, p geo.Pos, units map[geo.Pos]world.Unit, structs map[geo.Pos]world.Structure) cell {
	if u, ok := units[p]; ok {
		fg := tcell.ColorRed
		if u.Owner == m.Me() {
			fg = tcell.ColorGreen
		}
		r := 'u'
		switch {
		case u.Has(world.Heal):
			r = 'h'
		case u.Has(world.Attack), u.Has(world.RangedAttack):
			r = 'a'
		case u.Has(world.Work):
			r = 's'
		}
		return cell{r, tcell.StyleDefault.Foreground(fg).Bold(true)}
	}
	if s, ok := structs[p]; ok {
		r := '#'
		switch s.Type {
		case world.Road:
			r = '='
		case world.Rampart:
			r = '+'
		case world.Spawn:
			r = 'S'
		case world.Tower:
			r = 'T'
		case world.Extension:
			r = 'e'
		case world.Container:
			r = 'c'
		}
		return cell{r, tcell.StyleDefault.Foreground(tcell.ColorYellow)}
	}
	switch m.Terrain(p) {
	case world.Wall:
		return cell{'█', tcell.StyleDefault.Foreground(tcell.ColorGray)}
	case world.Swamp:
		return cell{'~', tcell.StyleDefault.Foreground(tcell.ColorDarkGreen)}
	}
	return cell{'.', tcell.StyleDefault.Foreground(tcell.ColorDimGray)}
}

func (v *viewer) draw() {
	v.screen.Clear()
	if len(v.rooms) == 0 {
		return
	}
	room := v.rooms[v.room]
	units := map[geo.Pos]world.Unit{}
	for _, u := range v.sim.World.Units(room) {
		units[u.Pos] = u
	}
	structs := map[geo.Pos]world.Structure{}
	for _, s := range v.sim.World.Structures(room) {
		structs[s.Pos] = s
	}
	for y := 0; y < geo.RoomSize; y++ {
		for x := 0; x < geo.RoomSize; x++ {
			c := tileCell(v.sim.World, geo.NewPos(x, y, room), units, structs)
			v.screen.SetContent(x, y, c.r, nil, c.style)
		}
	}

	state := "running"
	switch {
	case v.sc.Done(v.sim):
		state = "done"
	case v.paused:
		state = "paused"
	}
	status := fmt.Sprintf("%s %s cycle=%d %s moved=%d blocked=%d", v.sc.Name, room, v.sim.World.Time(), state, v.last.Moved, v.last.Blocked)
	drawText(v.screen, 0, geo.RoomSize, status, tcell.StyleDefault.Reverse(true))
	drawText(v.screen, 0, geo.RoomSize+1, "q quit  space pause  n step  tab room", tcell.StyleDefault)
	for i, sq := range v.last.Squads {
		drawText(v.screen, geo.RoomSize+2, i, fmt.Sprintf("%.8s %s", sq.SquadID, sq.Status), tcell.StyleDefault)
	}
	v.screen.Show()
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		s.SetContent(x+i, y, r, nil, style)
	}
}
