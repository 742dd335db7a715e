// Package overlay renders cost matrices and paths to raster images for
// debugging. It implements costmatrix.Visualizer.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Garsondee/Squad-Voyager/internal/costmatrix"
	"github.com/Garsondee/Squad-Voyager/internal/geo"
)

// DefaultScale is the pixel size of one tile.
const DefaultScale = 8

// labelHeight is the strip above the grid that holds the room name.
const labelHeight = 16

var (
	background = colornames.Darkslategray
	blocked    = colornames.Black
	pathColor  = colornames.Gold
	labelColor = colornames.White
)

// Renderer keeps one tile-resolution raster per room. Draw calls may come
// from any goroutine.
type Renderer struct {
	mu     sync.Mutex
	scale  int
	rooms  map[string]*image.RGBA
	counts map[string]int
}

func New(scale int) *Renderer {
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Renderer{
		scale:  scale,
		rooms:  make(map[string]*image.RGBA),
		counts: make(map[string]int),
	}
}

func (r *Renderer) raster(room string) *image.RGBA {
	img, ok := r.rooms[room]
	if !ok {
		img = image.NewRGBA(image.Rect(0, 0, geo.RoomSize, geo.RoomSize))
		draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
		r.rooms[room] = img
	}
	return img
}

// costColor shades a cost from green (cheap) to red (expensive). Zero keeps
// the background, the obstacle sentinel is black.
func costColor(v uint8) color.RGBA {
	switch v {
	case 0:
		return background
	case costmatrix.Obstacle:
		return blocked
	}
	return color.RGBA{R: v, G: 255 - v, B: 40, A: 255}
}

// DrawMatrix paints a composed matrix over the room's raster.
func (r *Renderer) DrawMatrix(room string, m *costmatrix.Matrix) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img := r.raster(room)
	for y := 0; y < geo.RoomSize; y++ {
		for x := 0; x < geo.RoomSize; x++ {
			img.SetRGBA(x, y, costColor(m.Get(x, y)))
		}
	}
	r.counts[room]++
}

// DrawPath marks the tiles of a serialized path, following room changes.
func (r *Renderer) DrawPath(start geo.Pos, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range geo.DeserializePath(start, path) {
		r.raster(p.Room).SetRGBA(p.X, p.Y, pathColor)
	}
}

// Rooms lists the rooms drawn so far.
func (r *Renderer) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.rooms))
	for room := range r.rooms {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// Frame returns the scaled raster of a room with its name and draw count
// written above the grid.
func (r *Renderer) Frame(room string) (image.Image, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.rooms[room]
	if !ok {
		return nil, false
	}
	size := geo.RoomSize * r.scale
	dst := image.NewRGBA(image.Rect(0, 0, size, size+labelHeight))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(blocked), image.Point{}, draw.Src)
	draw.NearestNeighbor.Scale(dst, image.Rect(0, labelHeight, size, size+labelHeight), src, src.Bounds(), draw.Src, nil)

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(2, labelHeight-3),
	}
	d.DrawString(fmt.Sprintf("%s  draws=%d", room, r.counts[room]))
	return dst, true
}

// WritePNG writes one <room>.png per drawn room into dir and returns the
// written paths.
func (r *Renderer) WritePNG(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, room := range r.Rooms() {
		img, _ := r.Frame(room)
		path := filepath.Join(dir, room+".png")
		if err := writePNG(path, img); err != nil {
			return written, fmt.Errorf("%s: %w", room, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
