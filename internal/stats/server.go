// Package stats exposes the live metrics of a run over HTTP: a JSON
// snapshot at /api/stats and a websocket feed at /ws.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"telnetload/internal/metrics"
	"telnetload/util"
)

// Message is what the websocket feed pushes on every tick.
type Message struct {
	Type    string           `json:"type"`
	Metrics metrics.Snapshot `json:"metrics"`
}

// Server serves live metrics for the duration of a run.
type Server struct {
	addr      string
	collector *metrics.Collector
	interval  time.Duration
	logger    *util.Logger

	mu        sync.RWMutex
	wsClients map[*websocket.Conn]bool

	ln        net.Listener
	server    *http.Server
	done      chan struct{}
	closeOnce sync.Once
}

// NewServer creates a stats server for c on addr.  interval is the
// websocket push period.
func NewServer(addr string, c *metrics.Collector, interval time.Duration, logger *util.Logger) *Server {
	return &Server{
		addr:      addr,
		collector: c,
		interval:  interval,
		logger:    logger,
		wsClients: make(map[*websocket.Conn]bool),
		done:      make(chan struct{}),
	}
}

// Start binds the listener and serves in the background until ctx is
// cancelled or Close is called.  Bind errors are returned directly.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("stats listen on %s: %w", s.addr, err)
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go s.broadcastLoop(ctx)
	go func() {
		select {
		case <-ctx.Done():
			s.Close() //nolint:errcheck
		case <-s.done:
		}
	}()
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("stats server: %v", err)
		}
	}()

	s.logger.Info("stats on http://%s/api/stats", ln.Addr())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close shuts the server down and disconnects websocket subscribers.
func (s *Server) Close() error {
	first := false
	s.closeOnce.Do(func() {
		close(s.done)
		first = true
	})
	if !first || s.server == nil {
		return nil
	}

	s.mu.Lock()
	for ws := range s.wsClients {
		_ = ws.Close()
	}
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.collector.Snapshot())
}

func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// Subscribers only listen; block until they go away.
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			return
		}
	}
}

func (s *Server) broadcast(msg Message) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	for _, ws := range clients {
		if err := websocket.JSON.Send(ws, msg); err != nil {
			s.logger.Debug("stats push to %s: %v", ws.Request().RemoteAddr, err)
		}
	}
}

func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.broadcast(Message{Type: "metrics", Metrics: s.collector.Snapshot()})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("stats: encode JSON: %v", err)
	}
}
