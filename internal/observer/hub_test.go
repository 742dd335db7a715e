package observer

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Garsondee/Squad-Voyager/internal/sim"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_StreamsCycles(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hello HelloMsg
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != "HELLO" || hello.ProtocolVersion != Version {
		t.Fatalf("unexpected hello: %+v", hello)
	}
	waitFor(t, func() bool { return hub.Clients() == 1 })

	hub.Publish(sim.Report{Cycle: 42, Moved: 3})
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read cycle: %v", err)
	}
	var msg CycleMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != "CYCLE" || msg.Report.Cycle != 42 || msg.Report.Moved != 3 {
		t.Fatalf("unexpected cycle message: %+v", msg)
	}
}

func TestHub_ClientLeaves(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.Clients() == 1 })
	_ = conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 0 })
}

func TestHub_DropsForLaggingClients(t *testing.T) {
	hub := NewHub(nil)
	_, _ = hub.join()
	for i := 0; i < clientBuffer+5; i++ {
		hub.Publish(sim.Report{Cycle: i})
	}
	if got := hub.Dropped(); got != 5 {
		t.Fatalf("expected 5 dropped messages, got %d", got)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.2:80":    false,
		"garbage":        false,
	}
	for addr, want := range cases {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("%s: expected %v, got %v", addr, want, got)
		}
	}
}
