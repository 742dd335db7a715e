package game

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/Squad-Voyager/internal/simlog"
)

const (
	logPanelWidth = 360
	logMaxEntries = 80
	logLineHeight = 11
)

// categoryColors tints the marker dot of each log line.
var categoryColors = map[string]color.RGBA{
	"squad":  {R: 210, G: 170, B: 60, A: 255},
	"intent": {R: 150, G: 150, B: 150, A: 255},
	"voyage": {R: 70, G: 160, B: 210, A: 255},
	"path":   {R: 90, G: 200, B: 120, A: 255},
	"route":  {R: 170, G: 110, B: 210, A: 255},
	"store":  {R: 120, G: 120, B: 90, A: 255},
}

// EventLog is a ring buffer of recent run log entries rendered on-screen.
type EventLog struct {
	entries []simlog.Entry
	head    int
	count   int
	seen    int // entries of the source log already copied
}

func NewEventLog() *EventLog {
	return &EventLog{entries: make([]simlog.Entry, logMaxEntries)}
}

// Add appends an entry to the log.
func (el *EventLog) Add(e simlog.Entry) {
	el.entries[el.head] = e
	el.head = (el.head + 1) % logMaxEntries
	if el.count < logMaxEntries {
		el.count++
	}
}

// Follow copies the entries l gained since the last call.
func (el *EventLog) Follow(l *simlog.Log) {
	all := l.Entries()
	if el.seen > len(all) {
		el.seen = 0
	}
	for _, e := range all[el.seen:] {
		el.Add(e)
	}
	el.seen = len(all)
}

// Recent returns entries in chronological order (oldest first).
func (el *EventLog) Recent() []simlog.Entry {
	result := make([]simlog.Entry, el.count)
	for i := 0; i < el.count; i++ {
		idx := (el.head - el.count + i + logMaxEntries) % logMaxEntries
		result[i] = el.entries[idx]
	}
	return result
}

// Draw renders the log panel on the right side of the screen.
func (el *EventLog) Draw(screen *ebiten.Image, panelX int, panelH int) {
	vector.FillRect(screen, float32(panelX), 0, float32(logPanelWidth), float32(panelH), color.RGBA{R: 10, G: 12, B: 10, A: 248}, false)
	vector.StrokeLine(screen, float32(panelX), 0, float32(panelX), float32(panelH), 1.0, color.RGBA{R: 50, G: 70, B: 50, A: 255}, false)
	vector.FillRect(screen, float32(panelX), 0, float32(logPanelWidth), 16, color.RGBA{R: 20, G: 30, B: 20, A: 255}, false)
	ebitenutil.DebugPrintAt(screen, "RUN LOG", panelX+8, 2)

	entries := el.Recent()
	maxVisible := (panelH - 24) / logLineHeight
	if len(entries) > maxVisible {
		entries = entries[len(entries)-maxVisible:]
	}
	y := 20
	for i, e := range entries {
		if i >= len(entries)-3 {
			vector.FillRect(screen, float32(panelX+2), float32(y), float32(logPanelWidth-4), float32(logLineHeight), color.RGBA{R: 30, G: 40, B: 30, A: 160}, false)
		}
		dot, ok := categoryColors[e.Category]
		if !ok {
			dot = color.RGBA{R: 200, G: 200, B: 200, A: 255}
		}
		vector.FillRect(screen, float32(panelX+5), float32(y+3), 3, 5, dot, false)
		line := fmt.Sprintf("%4d %-8.8s %s/%s %s", e.Cycle, e.Subject, e.Category, e.Key, e.Value)
		ebitenutil.DebugPrintAt(screen, line, panelX+12, y)
		y += logLineHeight
	}
}
