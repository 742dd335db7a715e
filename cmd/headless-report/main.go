package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/Garsondee/Squad-Voyager/internal/config"
	"github.com/Garsondee/Squad-Voyager/internal/observer"
	"github.com/Garsondee/Squad-Voyager/internal/overlay"
	"github.com/Garsondee/Squad-Voyager/internal/sim"
	"github.com/Garsondee/Squad-Voyager/internal/simlog"
)

// stallStuckThreshold is the stuck event count that marks a run as stalled.
const stallStuckThreshold = 3

type runStats struct {
	runIndex int
	seed     int64
	cycles   int

	endCycle         int
	firstRallyCycle  int
	firstAttackCycle int
	firstDeathCycle  int
	terminalCycle    int

	statusChanges   int
	rejectedIntents int
	stuckEvents     int
	escalations     int
	noRoute         int
	incompletePaths int
	squadErrors     int
	arrivals        int
	idleCycles      int

	summary sim.Summary
	final   map[string]string
}

type runOptions struct {
	cfg        *config.Config
	verbose    bool
	overlayDir string
	hub        *observer.Hub
	pace       time.Duration
}

func main() {
	var runs int
	var cycles int
	var seedBase int64
	var seedStep int64
	var scenario string
	var configPath string
	var verbose bool
	var overlayDir string
	var copyOut bool
	var observe string
	var pace time.Duration

	flag.IntVar(&runs, "runs", 5, "number of headless simulation runs")
	flag.IntVar(&cycles, "cycles", 300, "cycles per run")
	flag.Int64Var(&seedBase, "seed-base", 42, "base RNG seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&scenario, "scenario", "siege", "scenario name ("+strings.Join(scenarioNames(), ", ")+")")
	flag.StringVar(&configPath, "config", "", "YAML config file")
	flag.BoolVar(&verbose, "verbose", false, "record per-cycle detail entries")
	flag.StringVar(&overlayDir, "overlay", "", "write per-room debug PNGs of the last run into this directory")
	flag.BoolVar(&copyOut, "copy", false, "copy the report to the clipboard")
	flag.StringVar(&observe, "observe", "", "serve cycle reports over websocket on this address (e.g. 127.0.0.1:8090)")
	flag.DurationVar(&pace, "pace", 0, "delay between cycles, useful with -observe")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	if cycles <= 0 {
		fmt.Println("error: -cycles must be > 0")
		return
	}
	sc, ok := sim.LookupScenario(scenario)
	if !ok {
		fmt.Printf("error: unsupported scenario %q (supported: %s)\n", scenario, strings.Join(scenarioNames(), ", "))
		return
	}

	opts := runOptions{verbose: verbose, overlayDir: overlayDir, pace: pace}
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		opts.cfg = &cfg
	}
	if observe != "" {
		opts.hub = observer.NewHub(log.Default())
		mux := http.NewServeMux()
		mux.Handle("/observe", opts.hub.Handler())
		go func() {
			if err := http.ListenAndServe(observe, mux); err != nil {
				log.Printf("observer: %v", err)
			}
		}()
	}

	var buf bytes.Buffer
	out := io.Writer(os.Stdout)
	if copyOut {
		out = io.MultiWriter(os.Stdout, &buf)
	}

	fmt.Fprintf(out, "=== Headless Squad Report ===\n")
	fmt.Fprintf(out, "scenario=%s runs=%d cycles=%d seed_base=%d seed_step=%d\n", sc.Name, runs, cycles, seedBase, seedStep)
	fmt.Fprintf(out, "%s\n\n", sc.Description)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		ro := opts
		if i != runs-1 {
			ro.overlayDir = ""
		}
		stats, err := runScenario(sc, i+1, seed, cycles, ro)
		if err != nil {
			fmt.Printf("error: run %d: %v\n", i+1, err)
			return
		}
		all = append(all, stats)
		printRun(out, stats)
	}

	printAggregate(out, all)

	if copyOut {
		if err := clipboard.WriteAll(buf.String()); err != nil {
			fmt.Printf("error: copy to clipboard: %v\n", err)
		}
	}
}

func scenarioNames() []string {
	var names []string
	for _, sc := range sim.Scenarios() {
		names = append(names, sc.Name)
	}
	return names
}

func runScenario(sc sim.Scenario, runIndex int, seed int64, cycles int, ro runOptions) (runStats, error) {
	opts := sc.Options(seed)
	if ro.cfg != nil {
		opts = append(opts, sim.WithConfig(*ro.cfg))
	}
	opts = append(opts, sim.WithVerbose(ro.verbose), sim.WithReportWindow(cycles))
	var renderer *overlay.Renderer
	if ro.overlayDir != "" {
		renderer = overlay.New(overlay.DefaultScale)
		opts = append(opts, sim.WithVisualizer(renderer))
	}
	if ro.hub != nil {
		opts = append(opts, sim.WithObserver(ro.hub.Publish))
	}

	s, err := sim.New(opts...)
	if err != nil {
		return runStats{}, err
	}
	defer s.Close()

	rs := runStats{runIndex: runIndex, seed: seed, endCycle: -1, firstAttackCycle: -1, firstDeathCycle: -1}
	for i := 0; i < cycles; i++ {
		rep := s.Step()
		rs.cycles++
		if rep.Moved == 0 {
			rs.idleCycles++
		}
		if rs.firstDeathCycle < 0 && len(rep.Deaths) > 0 {
			rs.firstDeathCycle = rep.Cycle
		}
		if rs.firstAttackCycle < 0 {
			for _, sq := range rep.Squads {
				if sq.Attacks > 0 {
					rs.firstAttackCycle = rep.Cycle
				}
			}
		}
		if ro.pace > 0 {
			time.Sleep(ro.pace)
		}
		if sc.Done(s) {
			rs.endCycle = rep.Cycle
			break
		}
	}

	entries := s.Log.Entries()
	rs.firstRallyCycle = firstCycle(entries, "squad", "status", "rallying -> ok")
	rs.terminalCycle = firstCycle(entries, "squad", "terminal", "")
	rs.statusChanges = s.Log.CountCategory("squad", "status")
	rs.rejectedIntents = s.Log.CountCategory("intent", "rejected")
	rs.stuckEvents = s.Log.CountCategory("voyage", "stuck")
	rs.escalations = s.Log.CountCategory("voyage", "stuck_escalation")
	rs.noRoute = s.Log.CountCategory("route", "no_route")
	rs.incompletePaths = s.Log.CountCategory("path", "incomplete")
	rs.squadErrors = s.Log.CountCategory("squad", "error")
	rs.arrivals = s.Log.CountCategory("sim", "arrived")
	rs.summary = s.Reporter.Window(rs.cycles)
	rs.final = rs.summary.FinalStatus

	if renderer != nil {
		paths, err := renderer.WritePNG(ro.overlayDir)
		if err != nil {
			return rs, err
		}
		for _, p := range paths {
			fmt.Printf("overlay: %s\n", p)
		}
	}
	return rs, nil
}

func firstCycle(entries []simlog.Entry, category, key, contains string) int {
	for _, e := range entries {
		if e.Category != category || e.Key != key {
			continue
		}
		if contains == "" || strings.Contains(e.Value, contains) {
			return e.Cycle
		}
	}
	return -1
}

// detectStall reports whether a run that never reached its end state made
// no real progress, with the reasons that tipped it.
func detectStall(rs runStats) (bool, string) {
	if rs.endCycle >= 0 {
		return false, "completed"
	}
	var reasons []string
	if rs.stuckEvents >= stallStuckThreshold {
		reasons = append(reasons, fmt.Sprintf("stuck_events=%d", rs.stuckEvents))
	}
	if rs.cycles > 0 && rs.idleCycles*2 >= rs.cycles {
		reasons = append(reasons, fmt.Sprintf("idle_cycles=%d/%d", rs.idleCycles, rs.cycles))
	}
	if rs.squadErrors > 0 {
		reasons = append(reasons, fmt.Sprintf("squad_errors=%d", rs.squadErrors))
	}
	if len(reasons) == 0 {
		return false, "still_progressing"
	}
	return true, strings.Join(reasons, ",")
}

func printRun(w io.Writer, rs runStats) {
	fmt.Fprintf(w, "--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Fprintf(w, "phase_markers: rallied=%d first_attack=%d first_death=%d terminal=%d end=%d\n",
		rs.firstRallyCycle, rs.firstAttackCycle, rs.firstDeathCycle, rs.terminalCycle, rs.endCycle)
	fmt.Fprintf(w, "event_totals: status_change=%d intent_rejected=%d stuck=%d escalation=%d no_route=%d incomplete_path=%d squad_error=%d arrived=%d\n",
		rs.statusChanges, rs.rejectedIntents, rs.stuckEvents, rs.escalations, rs.noRoute, rs.incompletePaths, rs.squadErrors, rs.arrivals)
	fmt.Fprint(w, rs.summary.Format())
	stalled, reason := detectStall(rs)
	fmt.Fprintf(w, "stalled=%v reason=%s\n\n", stalled, reason)
}

func printAggregate(w io.Writer, all []runStats) {
	totalRejected := 0
	totalStuck := 0
	totalErrors := 0
	totalDamage := 0
	totalDeaths := 0
	completed := 0
	stalled := 0

	rallyCycles := make([]int, 0, len(all))
	attackCycles := make([]int, 0, len(all))
	endCycles := make([]int, 0, len(all))
	finalStatus := map[string]int{}

	for _, rs := range all {
		totalRejected += rs.rejectedIntents
		totalStuck += rs.stuckEvents
		totalErrors += rs.squadErrors
		totalDamage += rs.summary.Damage
		totalDeaths += rs.summary.Deaths
		if rs.firstRallyCycle >= 0 {
			rallyCycles = append(rallyCycles, rs.firstRallyCycle)
		}
		if rs.firstAttackCycle >= 0 {
			attackCycles = append(attackCycles, rs.firstAttackCycle)
		}
		if rs.endCycle >= 0 {
			completed++
			endCycles = append(endCycles, rs.endCycle)
		}
		if ok, _ := detectStall(rs); ok {
			stalled++
		}
		for _, st := range rs.final {
			finalStatus[st]++
		}
	}

	fmt.Fprintln(w, "=== Aggregate ===")
	fmt.Fprintf(w, "runs=%d completed=%d stalled=%d\n", len(all), completed, stalled)
	fmt.Fprintf(w, "avg_events_per_run: intent_rejected=%.1f stuck=%.1f squad_error=%.1f damage=%.1f deaths=%.1f\n",
		avg(totalRejected, len(all)), avg(totalStuck, len(all)), avg(totalErrors, len(all)), avg(totalDamage, len(all)), avg(totalDeaths, len(all)))
	fmt.Fprintf(w, "phase_marker_avg_cycles: rallied=%s first_attack=%s end=%s\n",
		avgCycleString(rallyCycles), avgCycleString(attackCycles), avgCycleString(endCycles))

	statuses := make([]string, 0, len(finalStatus))
	for st := range finalStatus {
		statuses = append(statuses, st)
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		fmt.Fprintf(w, "  final_status %-9s %d\n", st, finalStatus[st])
	}
}

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func avgCycleString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}
