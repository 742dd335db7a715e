package main

import (
	"flag"
	"log"

	"github.com/Garsondee/Squad-Voyager/internal/game"
	"github.com/Garsondee/Squad-Voyager/internal/sim"
	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	scenario := flag.String("scenario", "siege", "scenario to run")
	seed := flag.Int64("seed", 42, "RNG seed")
	configPath := flag.String("config", "", "YAML config file, reloaded on change")
	flag.Parse()

	sc, ok := sim.LookupScenario(*scenario)
	if !ok {
		log.Fatalf("unknown scenario %q", *scenario)
	}
	g, err := game.New(sc, *seed, *configPath)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	ebiten.SetWindowTitle("Squad Voyager - " + sc.Name)
	w, h := g.Layout(0, 0)
	ebiten.SetWindowSize(w, h)
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
