package store

import (
	"path/filepath"
	"testing"
)

type session struct {
	Path  string `json:"path"`
	Stuck int    `json:"stuck"`
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	if _, ok, err := Get[session](s, "voyage/a1"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := Put(s, "voyage/a1", session{Path: "334", Stuck: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := Put(s, "voyage/a2", session{Path: "5"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := Put(s, "room/W1N1", map[string]int{"status": 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := Get[session](s, "voyage/a1")
	if err != nil || !ok {
		t.Fatalf("expected stored session, got ok=%v err=%v", ok, err)
	}
	if got.Path != "334" || got.Stuck != 1 {
		t.Fatalf("unexpected session %+v", got)
	}

	keys, err := s.Keys("voyage/")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "voyage/a1" || keys[1] != "voyage/a2" {
		t.Fatalf("expected sorted voyage keys, got %v", keys)
	}

	n, err := Sweep(s, "voyage/", func(id string) bool { return id == "a2" })
	if err != nil || n != 1 {
		t.Fatalf("expected one swept key, got n=%d err=%v", n, err)
	}
	if _, ok, _ := Get[session](s, "voyage/a1"); ok {
		t.Fatal("expected a1 to be swept")
	}
	if _, ok, _ := Get[session](s, "voyage/a2"); !ok {
		t.Fatal("expected a2 to survive")
	}
}

func TestMemory_Store(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLite_Store(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLite_Overwrite(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	_ = Put(s, "k", 1)
	_ = Put(s, "k", 2)
	v, ok, err := Get[int](s, "k")
	if err != nil || !ok || v != 2 {
		t.Fatalf("expected overwritten value 2, got %d ok=%v err=%v", v, ok, err)
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	src := NewMemory()
	_ = Put(src, "voyage/a1", session{Path: "12", Stuck: 2})
	_ = Put(src, "squad/s1", map[string]string{"target": "W2N1"})

	path := filepath.Join(t.TempDir(), "snap", "state.jsonl.zst")
	if err := WriteSnapshot(path, 42, src); err != nil {
		t.Fatalf("write: %v", err)
	}

	dst := NewMemory()
	h, err := ReadSnapshot(path, dst)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if h.Cycle != 42 || h.Keys != 2 {
		t.Fatalf("unexpected header %+v", h)
	}
	got, ok, _ := Get[session](dst, "voyage/a1")
	if !ok || got.Path != "12" || got.Stuck != 2 {
		t.Fatalf("expected restored session, got %+v ok=%v", got, ok)
	}
	if dst.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", dst.Len())
	}
}
