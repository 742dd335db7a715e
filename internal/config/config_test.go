package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_EmptyGivesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.Pathing.MaxOps != 2000 || cfg.Route.RoomStatusRetention != 10000 {
		t.Fatalf("unexpected default values %+v", cfg)
	}
}

func TestParse_PartialOverride(t *testing.T) {
	raw := []byte(`
pathing:
  max_ops: 500
  stuck_value: 3
route:
  highway_bias: 1.5
`)
	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pathing.MaxOps != 500 || cfg.Pathing.StuckValue != 3 {
		t.Fatalf("expected overrides to apply, got %+v", cfg.Pathing)
	}
	if cfg.Pathing.MaxRooms != 16 {
		t.Fatalf("expected untouched keys to keep defaults, got max_rooms=%d", cfg.Pathing.MaxRooms)
	}
	if cfg.Route.HighwayBias != 1.5 {
		t.Fatalf("expected highway bias 1.5, got %v", cfg.Route.HighwayBias)
	}
}

func TestParse_SchemaRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "pathing:\n  max_opz: 10\n",
		"wrong type":    "pathing:\n  max_ops: lots\n",
		"out of range":  "pathing:\n  stuck_escalation_chance: 2\n",
		"bad driver":    "store:\n  driver: redis\n",
		"unknown group": "economy:\n  tax: 1\n",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestParse_CrossFieldRules(t *testing.T) {
	_, err := Parse([]byte("pathing:\n  scale_min: 50\n  scale_max: 10\n"))
	if err == nil || !strings.Contains(err.Error(), "scale_min") {
		t.Fatalf("expected scale range error, got %v", err)
	}
	_, err = Parse([]byte("store:\n  driver: sqlite\n"))
	if err == nil {
		t.Fatal("expected sqlite without path to be rejected")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte("squad:\n  ranged_range: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Squad.RangedRange != 2 {
		t.Fatalf("expected ranged range 2, got %d", cfg.Squad.RangedRange)
	}
}

func TestWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte("pathing:\n  max_ops: 100\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("pathing:\n  max_ops: 300\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-w.Updates:
			if cfg.Pathing.MaxOps == 300 {
				return
			}
		case err := <-w.Errors:
			t.Fatalf("watch error: %v", err)
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}
