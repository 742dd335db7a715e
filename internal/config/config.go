// Package config loads engine tuning from YAML. Documents are validated
// against an embedded JSON schema before they are decoded over the defaults,
// so a partial file only overrides the keys it names.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

type Config struct {
	Pathing Pathing `yaml:"pathing"`
	Route   Route   `yaml:"route"`
	Squad   Squad   `yaml:"squad"`
	Store   Store   `yaml:"store"`
	Log     Log     `yaml:"log"`
}

// Pathing tunes the pathfinder and the per-agent movement session.
type Pathing struct {
	MaxOps                int     `yaml:"max_ops"`
	MaxRooms              int     `yaml:"max_rooms"`
	ReportCPUThreshold    int     `yaml:"report_cpu_threshold"`
	StuckValue            int     `yaml:"stuck_value"`
	StuckEscalationChance float64 `yaml:"stuck_escalation_chance"`
	RepathChance          float64 `yaml:"repath_chance"`
	FindRouteDistance     int     `yaml:"find_route_distance"`
	ScaleMin              int     `yaml:"scale_min"`
	ScaleMax              int     `yaml:"scale_max"`
	Visuals               bool    `yaml:"visuals"`
}

type Route struct {
	RoomStatusRetention int     `yaml:"room_status_retention"`
	HighwayBias         float64 `yaml:"highway_bias"`
	RestrictPadding     int     `yaml:"restrict_padding"`
	SourceKeeperPenalty float64 `yaml:"source_keeper_penalty"`
}

type Squad struct {
	TargetRoomEdgeMargin int `yaml:"target_room_edge_margin"`
	PathRefreshCycles    int `yaml:"path_refresh_cycles"`
	RangedRange          int `yaml:"ranged_range"`
}

// Store selects the keyed store backend. Path is the sqlite file; Snapshot,
// when set, is a zstd snapshot restored at startup and written on shutdown.
type Store struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Snapshot string `yaml:"snapshot"`
}

// Log controls the run log. A non-empty Dir enables the compressed sink.
type Log struct {
	Verbose bool   `yaml:"verbose"`
	Dir     string `yaml:"dir"`
}

// Default returns the stock tuning.
func Default() Config {
	return Config{
		Pathing: Pathing{
			MaxOps:                2000,
			MaxRooms:              16,
			ReportCPUThreshold:    1000,
			StuckValue:            2,
			StuckEscalationChance: 0.5,
			RepathChance:          0,
			FindRouteDistance:     2,
			ScaleMin:              1,
			ScaleMax:              100,
			Visuals:               true,
		},
		Route: Route{
			RoomStatusRetention: 10000,
			HighwayBias:         2.5,
			RestrictPadding:     10,
			SourceKeeperPenalty: 10,
		},
		Squad: Squad{
			TargetRoomEdgeMargin: 2,
			PathRefreshCycles:    10,
			RangedRange:          3,
		},
		Store: Store{Driver: "memory"},
	}
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("config.schema.json", strings.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("config.schema.json")
	})
	return schema, schemaErr
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates raw YAML and decodes it over Default().
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}
	if err := Validate(raw); err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks raw YAML against the embedded schema.
func Validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if doc == nil {
		return nil
	}
	// Round trip through JSON so the validator sees plain JSON values.
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not JSON compatible: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("config is not JSON compatible: %w", err)
	}
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// check covers cross-field rules the schema cannot express.
func (c Config) check() error {
	if c.Pathing.ScaleMin > c.Pathing.ScaleMax {
		return fmt.Errorf("invalid config: pathing.scale_min %d exceeds scale_max %d",
			c.Pathing.ScaleMin, c.Pathing.ScaleMax)
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("invalid config: store.path is required for the sqlite driver")
	}
	return nil
}
