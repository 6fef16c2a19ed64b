// Package inspect serves a debug feed of the latest render-state snapshot
// and engine metrics over websocket, as zstd-compressed JSON frames. It is
// a read-only window: nothing received from a client reaches the engine.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"

	"github.com/lixenwraith/tickbridge/snapshot"
	"github.com/lixenwraith/tickbridge/status"
)

const feedInterval = 100 * time.Millisecond

// Frame is the JSON document sent to inspector clients
type Frame struct {
	Tick      uint64           `json:"tick"`
	Count     int              `json:"count"`
	Entities  []uint32         `json:"entities"`
	Bounds    []float32        `json:"bounds"`
	ListenerX float32            `json:"listener_x"`
	ListenerY float32            `json:"listener_y"`
	Metrics   map[string]int64   `json:"metrics"`
	Timings   map[string]float64 `json:"timings"`
}

// Server streams frames to any number of concurrent clients. Each client
// connection gets its own goroutine and its own snapshot copy, so a slow
// client only stalls itself
type Server struct {
	latest   func(*snapshot.Snapshot) bool
	registry *status.Registry

	upgrader websocket.Upgrader
	httpSrv  *http.Server
	listener net.Listener

	mu      sync.Mutex
	started bool
	done    chan struct{}
	conns   map[*websocket.Conn]struct{}
}

// NewServer wires the feed to a snapshot source, typically Bridge.Latest
func NewServer(addr string, latest func(*snapshot.Snapshot) bool, registry *status.Registry) *Server {
	s := &Server{
		latest:   latest,
		registry: registry,
		conns:    make(map[*websocket.Conn]struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", s.handleFeed)
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start begins listening; the bound address is available from Addr after
// Start returns, useful when addr requested port 0
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("inspect: already started")
	}
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return fmt.Errorf("inspect: listen %s: %w", s.httpSrv.Addr, err)
	}
	s.listener = ln
	s.started = true
	s.done = make(chan struct{})
	go s.httpSrv.Serve(ln)
	return nil
}

// Addr returns the bound listen address
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.httpSrv.Addr
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and every live feed connection; feed goroutines
// observe done and exit without waiting for their clients to disconnect
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	close(s.done)
	for conn := range s.conns {
		conn.Close()
	}
	clear(s.conns)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.httpSrv.Shutdown(ctx)
	s.httpSrv.Close()
	s.started = false
}

// track registers conn for teardown and hands the feed its shutdown signal;
// ok is false if Stop already ran
func (s *Server) track(conn *websocket.Conn) (done <-chan struct{}, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, false
	}
	s.conns[conn] = struct{}{}
	return s.done, true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	done, ok := s.track(conn)
	if !ok {
		return
	}
	defer s.untrack(conn)

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return
	}
	defer enc.Close()

	// Drain and discard client messages so pings and close frames are
	// processed; the feed is one-way
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedInterval)
	defer ticker.Stop()

	var snap snapshot.Snapshot
	lastSent := uint64(0)
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		if !s.latest(&snap) || snap.Tick == lastSent {
			continue
		}
		lastSent = snap.Tick

		frame := Frame{
			Tick:      snap.Tick,
			Count:     snap.Count,
			Entities:  snap.Entities[:snap.Count],
			Bounds:    snap.Bounds[:snap.Count*snapshot.BoundsStride],
			ListenerX: snap.ListenerX,
			ListenerY: snap.ListenerY,
		}
		if s.registry != nil {
			frame.Metrics = s.registry.ExportInts()
			frame.Timings = s.registry.ExportFloats()
		}
		raw, err := json.Marshal(frame)
		if err != nil {
			return
		}
		compressed := enc.EncodeAll(raw, nil)
		if err := conn.WriteMessage(websocket.BinaryMessage, compressed); err != nil {
			return
		}
	}
}
