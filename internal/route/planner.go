package route

import (
	"fmt"
	"strings"

	"github.com/Garsondee/Squad-Voyager/internal/config"
	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/simlog"
	"github.com/Garsondee/Squad-Voyager/internal/store"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

// KeyPrefix namespaces room status records in the store.
const KeyPrefix = "room/"

// Record is the persisted status of one room.
type Record struct {
	Room     string `json:"room"`
	Status   Status `json:"status"`
	LastSeen int    `json:"last_seen"`
}

// Options tune a single FindRoute call. Zero values select the defaults.
type Options struct {
	// RestrictDistance caps the linear room distance from the origin. Zero
	// means the origin-destination distance plus the configured padding.
	RestrictDistance int
	PreferHighway    bool
	// HighwayBias replaces the configured bias when PreferHighway is set.
	HighwayBias float64
	// RouteCallback may price a room outright; ok=false falls through to
	// the default rules.
	RouteCallback   func(room string) (cost float64, ok bool)
	AllowedStatuses []Status
}

// Planner classifies rooms and searches the room graph.
type Planner struct {
	world world.Query
	store store.Store
	log   *simlog.Log
	cfg   config.Route
}

func NewPlanner(w world.Query, s store.Store, log *simlog.Log, cfg config.Route) *Planner {
	return &Planner{world: w, store: s, log: log, cfg: cfg}
}

// SetConfig swaps the tuning, used when a reloaded config is applied.
func (p *Planner) SetConfig(cfg config.Route) {
	p.cfg = cfg
}

// Update refreshes the status record of a visible room. A room is
// classified at most once per cycle; invisible rooms keep their record.
func (p *Planner) Update(room string) error {
	info, visible := p.world.Room(room)
	if !visible {
		return nil
	}
	now := p.world.Time()
	rec, ok, err := store.Get[Record](p.store, KeyPrefix+room)
	if err != nil {
		return fmt.Errorf("room status %s: %w", room, err)
	}
	if ok && rec.LastSeen == now {
		return nil
	}
	if info.Name == "" {
		info.Name = room
	}
	next := Record{Room: room, Status: Classify(info, p.world.IsAlly), LastSeen: now}
	if !ok || rec.Status != next.Status {
		p.log.Add(now, room, "route", "status", next.Status.String(), float64(next.Status))
	}
	return store.Put(p.store, KeyPrefix+room, next)
}

// Status returns the cached status of room. Rooms never seen, and rooms
// whose record outlived the retention window, read as Unknown; stale
// records are dropped.
func (p *Planner) Status(room string) Status {
	rec, ok, err := store.Get[Record](p.store, KeyPrefix+room)
	if err != nil {
		p.log.Add(p.world.Time(), room, "store", "error", err.Error(), 0)
		return Unknown
	}
	if !ok {
		return Unknown
	}
	if rec.LastSeen < p.world.Time()-p.cfg.RoomStatusRetention {
		if err := p.store.Delete(KeyPrefix + room); err != nil {
			p.log.Add(p.world.Time(), room, "store", "error", err.Error(), 0)
		}
		return Unknown
	}
	return rec.Status
}

// Avoid reports whether room's status is outside the allowed set.
func (p *Planner) Avoid(room string, allowedStatuses []Status) bool {
	if len(allowedStatuses) == 0 {
		allowedStatuses = DefaultAllowed
	}
	return !allowed(p.Status(room), allowedStatuses)
}

// FindRoute returns the rooms a path from origin to destination may cross,
// origin and destination included, or nil when the room graph has no
// acceptable route.
func (p *Planner) FindRoute(origin, destination string, opts Options) map[string]bool {
	restrict := opts.RestrictDistance
	if restrict <= 0 {
		restrict = geo.RoomLinearDistance(origin, destination) + p.cfg.RestrictPadding
	}
	bias := 1.0
	if opts.PreferHighway {
		bias = p.cfg.HighwayBias
		if opts.HighwayBias > 0 {
			bias = opts.HighwayBias
		}
	}
	statuses := opts.AllowedStatuses
	if len(statuses) == 0 {
		statuses = DefaultAllowed
	}
	now := p.world.Time()

	cost := func(room, _ string) float64 {
		if opts.RouteCallback != nil {
			if c, ok := opts.RouteCallback(room); ok {
				return c
			}
		}
		if geo.RoomLinearDistance(origin, room) > restrict {
			return world.Infinity
		}
		endpoint := room == origin || room == destination
		if !endpoint && !allowed(p.Status(room), statuses) {
			return world.Infinity
		}
		if opts.PreferHighway && geo.IsHighway(room) {
			return 1
		}
		if allowed(SourceKeeper, statuses) && geo.IsSourceKeeper(room) {
			if _, visible := p.world.Room(room); !visible {
				p.log.AddVerbose(now, room, "route", "blind_source_keeper", "entering without vision", 0)
				return p.cfg.SourceKeeperPenalty * bias
			}
		}
		return bias
	}

	rooms, ok := p.world.FindRoute(origin, destination, cost)
	if !ok {
		p.log.Add(now, origin, "route", "no_route",
			fmt.Sprintf("%s -> %s restrict=%d", origin, destination, restrict), float64(restrict))
		return nil
	}
	set := make(map[string]bool, len(rooms)+1)
	set[origin] = true
	for _, r := range rooms {
		set[r] = true
	}
	p.log.AddVerbose(now, origin, "route", "found",
		fmt.Sprintf("%s -> %s via %s", origin, destination, strings.Join(rooms, ",")), float64(len(rooms)))
	return set
}
