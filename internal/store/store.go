// Package store is the process-wide keyed store that carries state across
// cycles: movement sessions, room status records, squads and operations.
// Values are JSON documents; entries may vanish between cycles (see Sweep)
// and callers recreate them lazily.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Store is a flat byte-valued key space.
type Store interface {
	Load(key string) ([]byte, bool, error)
	Save(key string, value []byte) error
	Delete(key string) error
	// Keys returns every key with the given prefix in ascending order.
	Keys(prefix string) ([]string, error)
}

// Get decodes the JSON document stored under key.
func Get[T any](s Store, key string) (T, bool, error) {
	var v T
	raw, ok, err := s.Load(key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

// Put encodes v as JSON under key.
func Put(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Save(key, raw)
}

// Sweep deletes every key under prefix whose remainder is rejected by keep.
// It returns the number of deleted keys.
func Sweep(s Store, prefix string, keep func(id string) bool) (int, error) {
	keys, err := s.Keys(prefix)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, k := range keys {
		if keep(strings.TrimPrefix(k, prefix)) {
			continue
		}
		if err := s.Delete(k); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Load(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *Memory) Save(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
