package sim

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/Garsondee/Squad-Voyager/internal/config"
	"github.com/Garsondee/Squad-Voyager/internal/store"
)

// openStore opens the backend named by cfg.
func openStore(cfg config.Store) (store.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return store.NewMemory(), nil
	case "sqlite":
		st, err := store.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// restore loads a snapshot into the store. A missing file is a fresh start.
func (s *Sim) restore(path string) error {
	h, err := store.ReadSnapshot(path, s.Store)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	s.Log.Add(s.World.Time(), "--", "store", "restored", path, float64(h.Keys))
	return nil
}

// Watch reloads the config file at path on change. Reloaded tuning is
// applied at the start of the next cycle; the watcher is closed with the
// Sim.
func (s *Sim) Watch(path string) error {
	w, err := config.NewWatcher(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	s.reloads = w.Updates
	s.watchErrs = w.Errors
	s.closers = append(s.closers, w)
	return nil
}

// Reload applies cfg at the next cycle boundary.
func (s *Sim) Reload(cfg config.Config) {
	s.pending = &cfg
}

// applyReloads swaps in the latest reloaded tuning. Only tuning changes;
// the store backend and the log sink stay as built.
func (s *Sim) applyReloads() {
	now := s.World.Time()
	for drained := false; !drained; {
		select {
		case cfg, ok := <-s.reloads:
			if !ok {
				s.reloads = nil
				continue
			}
			s.pending = &cfg
		case err, ok := <-s.watchErrs:
			if !ok {
				s.watchErrs = nil
				continue
			}
			s.Log.Add(now, "--", "sim", "config_error", err.Error(), 0)
		default:
			drained = true
		}
	}
	if s.pending == nil {
		return
	}
	cfg := *s.pending
	s.pending = nil
	cfg.Store = s.cfg.Store
	cfg.Log.Dir = s.cfg.Log.Dir
	s.cfg = cfg
	s.Finder.SetConfig(cfg.Pathing)
	s.Voyager.SetConfig(cfg.Pathing)
	s.Routes.SetConfig(cfg.Route)
	s.Squads.SetConfig(cfg.Squad)
	s.Log.Add(now, "--", "sim", "config_reloaded", "", 0)
}
