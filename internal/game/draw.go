package game

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

var (
	plainColor = color.RGBA{R: 46, G: 52, B: 44, A: 255}
	swampColor = color.RGBA{R: 40, G: 70, B: 48, A: 255}
	wallColor  = color.RGBA{R: 12, G: 12, B: 12, A: 255}
	exitColor  = color.RGBA{R: 64, G: 72, B: 90, A: 255}

	mineColor    = color.RGBA{R: 220, G: 70, B: 60, A: 255}
	hostileColor = color.RGBA{R: 70, G: 120, B: 230, A: 255}
	neutralColor = color.RGBA{R: 180, G: 180, B: 180, A: 255}
)

var structureColors = map[world.StructureType]color.RGBA{
	world.Road:            {R: 90, G: 88, B: 80, A: 255},
	world.ConstructedWall: {R: 30, G: 30, B: 30, A: 255},
	world.Rampart:         {R: 60, G: 160, B: 70, A: 200},
	world.Spawn:           {R: 240, G: 200, B: 60, A: 255},
	world.Tower:           {R: 200, G: 120, B: 40, A: 255},
	world.Extension:       {R: 230, G: 220, B: 140, A: 255},
	world.Container:       {R: 120, G: 90, B: 60, A: 255},
	world.KeeperLair:      {R: 140, G: 30, B: 30, A: 255},
	world.InvaderCore:     {R: 200, G: 40, B: 200, A: 255},
}

func tileOrigin(x, y int) (float32, float32) {
	return float32(borderWidth + x*tileSize), float32(borderWidth + y*tileSize)
}

func (g *Game) drawTerrain(screen *ebiten.Image, room string) {
	for y := 0; y < geo.RoomSize; y++ {
		for x := 0; x < geo.RoomSize; x++ {
			c := plainColor
			switch g.sim.World.Terrain(geo.NewPos(x, y, room)) {
			case world.Swamp:
				c = swampColor
			case world.Wall:
				c = wallColor
			default:
				if x == 0 || y == 0 || x == geo.RoomSize-1 || y == geo.RoomSize-1 {
					c = exitColor
				}
			}
			px, py := tileOrigin(x, y)
			vector.FillRect(screen, px, py, tileSize, tileSize, c, false)
		}
	}
	size := float32(geo.RoomSize * tileSize)
	vector.StrokeRect(screen, borderWidth, borderWidth, size, size, 1, color.RGBA{R: 90, G: 100, B: 90, A: 255}, false)
}

// drawMatrix blits the last cost matrix and paths the finder drew for room.
func (g *Game) drawMatrix(screen *ebiten.Image, room string) {
	frame, ok := g.overlay.Frame(room)
	if !ok {
		return
	}
	img := ebiten.NewImageFromImage(frame)
	b := frame.Bounds()
	// The frame carries a label strip above the grid.
	grid := img.SubImage(image.Rect(0, b.Dy()-geo.RoomSize, b.Dx(), b.Dy())).(*ebiten.Image)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(tileSize, tileSize)
	op.GeoM.Translate(borderWidth, borderWidth)
	op.ColorScale.ScaleAlpha(0.55)
	screen.DrawImage(grid, op)
}

func (g *Game) drawStructures(screen *ebiten.Image, room string) {
	for _, s := range g.sim.World.Structures(room) {
		c, ok := structureColors[s.Type]
		if !ok {
			c = neutralColor
		}
		px, py := tileOrigin(s.Pos.X, s.Pos.Y)
		if s.Type == world.Road {
			vector.FillRect(screen, px+4, py+4, tileSize-8, tileSize-8, c, false)
			continue
		}
		vector.FillRect(screen, px+1, py+1, tileSize-2, tileSize-2, c, false)
		if s.Owner != "" && s.Owner != g.sim.World.Me() {
			vector.StrokeRect(screen, px+1, py+1, tileSize-2, tileSize-2, 1, hostileColor, false)
		}
	}
}

func (g *Game) drawUnits(screen *ebiten.Image, room string) {
	me := g.sim.World.Me()
	for _, u := range g.sim.World.Units(room) {
		c := hostileColor
		if u.Owner == me {
			c = mineColor
		}
		px, py := tileOrigin(u.Pos.X, u.Pos.Y)
		cx, cy := px+tileSize/2, py+tileSize/2
		vector.FillCircle(screen, cx, cy, tileSize/2-2, c, true)
		if u.Fatigue > 0 {
			vector.StrokeCircle(screen, cx, cy, tileSize/2-1, 1, color.RGBA{R: 240, G: 240, B: 80, A: 255}, true)
		}
		if u.HitsMax > 0 {
			frac := float32(u.Hits) / float32(u.HitsMax)
			vector.FillRect(screen, px+1, py-3, tileSize-2, 2, color.RGBA{R: 60, G: 0, B: 0, A: 255}, false)
			vector.FillRect(screen, px+1, py-3, (tileSize-2)*frac, 2, color.RGBA{R: 80, G: 220, B: 80, A: 255}, false)
		}
	}
}
