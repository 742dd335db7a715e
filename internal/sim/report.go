package sim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/squad"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

// reportWindowCycles is the default sliding window for summaries.
const reportWindowCycles = 100

// --- Snapshot types ---

// SquadReport captures one squad's pass.
type SquadReport struct {
	SquadID string `json:"squad_id"`
	Status  string `json:"status"`
	Acting  int    `json:"acting"`
	Moves   int    `json:"moves"`
	Attacks int    `json:"attacks"`
	Heals   int    `json:"heals"`
}

// UnitReport captures one unit after the cycle resolved.
type UnitReport struct {
	ID      string  `json:"id"`
	Owner   string  `json:"owner"`
	Pos     geo.Pos `json:"pos"`
	Hits    int     `json:"hits"`
	HitsMax int     `json:"hits_max"`
	Fatigue int     `json:"fatigue"`
}

// StructureReport captures one structure after the cycle resolved.
type StructureReport struct {
	ID    string              `json:"id"`
	Type  world.StructureType `json:"type"`
	Owner string              `json:"owner,omitempty"`
	Pos   geo.Pos             `json:"pos"`
	Hits  int                 `json:"hits"`
}

// Report is the outcome of one cycle.
type Report struct {
	Cycle      int               `json:"cycle"`
	Squads     []SquadReport     `json:"squads"`
	Units      []UnitReport      `json:"units"`
	Structures []StructureReport `json:"structures"`
	Moved      int               `json:"moved"`
	Blocked    int               `json:"blocked"`
	Damage     int               `json:"damage"`
	Healed     int               `json:"healed"`
	Deaths     []string          `json:"deaths,omitempty"`
	// Swept counts store records dropped by garbage collection.
	Swept int `json:"swept"`
}

func (s *Sim) report(cr world.CycleReport, results []squad.Result, swept int) Report {
	rep := Report{
		Cycle:   cr.Cycle,
		Moved:   len(cr.Moved),
		Blocked: len(cr.Blocked),
		Damage:  cr.Damage,
		Healed:  cr.Healed,
		Deaths:  cr.Deaths,
		Swept:   swept,
	}
	for _, res := range results {
		sr := SquadReport{SquadID: res.SquadID, Status: res.Status.String(), Acting: len(res.Intents)}
		for _, intents := range res.Intents {
			for _, in := range intents {
				switch in.Action {
				case squad.Move:
					sr.Moves++
				case squad.Attack, squad.RangedAttack:
					sr.Attacks++
				case squad.Heal:
					sr.Heals++
				}
			}
		}
		rep.Squads = append(rep.Squads, sr)
	}
	for _, u := range s.World.AllUnits() {
		rep.Units = append(rep.Units, UnitReport{
			ID: u.ID, Owner: u.Owner, Pos: u.Pos, Hits: u.Hits, HitsMax: u.HitsMax, Fatigue: u.Fatigue,
		})
	}
	for _, room := range s.World.Rooms() {
		for _, st := range s.World.Structures(room) {
			if st.Type == world.Road {
				continue
			}
			rep.Structures = append(rep.Structures, StructureReport{
				ID: st.ID, Type: st.Type, Owner: st.Owner, Pos: st.Pos, Hits: st.Hits,
			})
		}
	}
	return rep
}

// --- Reporter ---

// Reporter keeps recent cycle reports and summarises them over a sliding
// window.
type Reporter struct {
	history      []Report
	windowCycles int
}

// NewReporter creates a reporter with the given window size.
func NewReporter(windowCycles int) *Reporter {
	if windowCycles <= 0 {
		windowCycles = reportWindowCycles
	}
	return &Reporter{windowCycles: windowCycles}
}

// Collect appends a report, pruning history beyond two windows.
func (r *Reporter) Collect(rep Report) {
	r.history = append(r.history, rep)
	if maxKeep := r.windowCycles * 2; len(r.history) > maxKeep {
		r.history = r.history[len(r.history)-maxKeep:]
	}
}

// Latest returns the most recent report.
func (r *Reporter) Latest() (Report, bool) {
	if len(r.history) == 0 {
		return Report{}, false
	}
	return r.history[len(r.history)-1], true
}

// Summary aggregates the reports of a window.
type Summary struct {
	FromCycle, ToCycle int
	Cycles             int
	Moved              int
	Blocked            int
	Damage             int
	Healed             int
	Deaths             int
	Swept              int
	// FinalStatus is the last status seen per squad.
	FinalStatus map[string]string
}

// Window summarises the last n cycles; n <= 0 uses the reporter window.
func (r *Reporter) Window(n int) Summary {
	if n <= 0 {
		n = r.windowCycles
	}
	from := len(r.history) - n
	if from < 0 {
		from = 0
	}
	sum := Summary{FinalStatus: make(map[string]string)}
	for i, rep := range r.history[from:] {
		if i == 0 {
			sum.FromCycle = rep.Cycle
		}
		sum.ToCycle = rep.Cycle
		sum.Cycles++
		sum.Moved += rep.Moved
		sum.Blocked += rep.Blocked
		sum.Damage += rep.Damage
		sum.Healed += rep.Healed
		sum.Deaths += len(rep.Deaths)
		sum.Swept += rep.Swept
		for _, sq := range rep.Squads {
			sum.FinalStatus[sq.SquadID] = sq.Status
		}
	}
	return sum
}

// Format renders a summary as a small text table.
func (s Summary) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cycles [%d..%d] n=%d\n", s.FromCycle, s.ToCycle, s.Cycles)
	fmt.Fprintf(&b, "moved=%d blocked=%d damage=%d healed=%d deaths=%d swept=%d\n",
		s.Moved, s.Blocked, s.Damage, s.Healed, s.Deaths, s.Swept)
	ids := make([]string, 0, len(s.FinalStatus))
	for id := range s.FinalStatus {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "  squad %-36s %s\n", id, s.FinalStatus[id])
	}
	return b.String()
}
