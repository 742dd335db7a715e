// Package observer streams cycle reports to websocket clients.
package observer

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Garsondee/Squad-Voyager/internal/sim"
)

// Version is the observer protocol version.
const Version = "0.1"

// HelloMsg is the first message a client receives.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
}

// CycleMsg carries one cycle report.
type CycleMsg struct {
	Type   string     `json:"type"`
	Report sim.Report `json:"report"`
}

// clientBuffer is the number of cycles a slow client may lag before
// messages are dropped.
const clientBuffer = 64

// Hub fans cycle reports out to every connected client. Publish never
// blocks the cycle loop.
type Hub struct {
	log      *log.Logger
	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu      sync.Mutex
	clients map[string]chan []byte
	dropped int
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only, see Handler
		},
		clients: make(map[string]chan []byte),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many messages were discarded for lagging clients.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Publish encodes rep once and queues it for every client. It matches the
// signature of sim.WithObserver.
func (h *Hub) Publish(rep sim.Report) {
	b, err := json.Marshal(CycleMsg{Type: "CYCLE", Report: rep})
	if err != nil {
		h.logf("observer: encode cycle %d: %v", rep.Cycle, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, out := range h.clients {
		select {
		case out <- b:
		default:
			h.dropped++
		}
	}
}

func (h *Hub) join() (string, chan []byte) {
	sid := fmt.Sprintf("O%d", h.nextID.Add(1))
	out := make(chan []byte, clientBuffer)
	h.mu.Lock()
	h.clients[sid] = out
	h.mu.Unlock()
	return sid, out
}

func (h *Hub) leave(sid string) {
	h.mu.Lock()
	delete(h.clients, sid)
	h.mu.Unlock()
}

// Handler upgrades loopback requests and streams cycles until the client
// goes away.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sid, out := h.join()
		defer h.leave(sid)

		hello, _ := json.Marshal(HelloMsg{Type: "HELLO", ProtocolVersion: Version, SessionID: sid})
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
			return
		}

		// The reader only notices the close; clients send nothing else.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case b := <-out:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					h.logf("observer: %s: %v", sid, err)
					return
				}
			}
		}
	}
}

func (h *Hub) logf(format string, args ...any) {
	if h.log != nil {
		h.log.Printf(format, args...)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if hst, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = hst
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
