package sim

import (
	"fmt"

	"github.com/Garsondee/Squad-Voyager/internal/route"
	"github.com/Garsondee/Squad-Voyager/internal/store"
	"github.com/Garsondee/Squad-Voyager/internal/voyage"
)

// collect drops movement sessions of units that no longer exist and room
// records of rooms the world no longer has. It returns the number of
// deleted records.
func (s *Sim) collect(now int) int {
	sessions, err := store.Sweep(s.Store, voyage.KeyPrefix, func(id string) bool {
		_, ok := s.World.Unit(id)
		return ok
	})
	if err != nil {
		s.Log.Add(now, "--", "store", "gc_error", err.Error(), 0)
	}
	rooms, err := store.Sweep(s.Store, route.KeyPrefix, s.World.HasRoom)
	if err != nil {
		s.Log.Add(now, "--", "store", "gc_error", err.Error(), 0)
	}
	n := sessions + rooms
	if n > 0 {
		s.Log.Add(now, "--", "store", "gc", fmt.Sprintf("sessions=%d rooms=%d", sessions, rooms), float64(n))
	}
	return n
}
