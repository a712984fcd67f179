// internal/feed/server.go
//
// Optional spectator endpoint: a small HTTP server exposing the live
// scoreboard and grid as JSON so a match can be watched from outside the
// terminal session.

package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

// ServerStatus reports runtime lifecycle states for the spectator server.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
)

var errServerDisabled = errors.New("feed: spectator server disabled")

// Settings configures the spectator server.
type Settings struct {
	Enabled bool
	Addr    string
}

// PlayerStatus is one scoreboard row.
type PlayerStatus struct {
	ID        int       `json:"id"`
	Automated bool      `json:"automated"`
	Score     int       `json:"score"`
	FrozenTo  time.Time `json:"frozen_to,omitempty"`
}

// Snapshot is the spectator view of a match at one instant.
type Snapshot struct {
	Players   []PlayerStatus `json:"players"`
	Grid      []int          `json:"grid"`
	Admission bool           `json:"admission"`
	Time      time.Time      `json:"time"`
}

// SnapshotFunc produces the current match snapshot.
type SnapshotFunc func() Snapshot

// Server wraps the HTTP listener and handlers backing the spectator endpoint.
type Server struct {
	settings Settings
	snapshot SnapshotFunc
	logger   Logger
	clock    func() time.Time

	mu        sync.RWMutex
	server    *http.Server
	listener  net.Listener
	status    ServerStatus
	startTime time.Time
}

// ServerOption customizes server construction.
type ServerOption func(*Server)

// ServerWithLogger overrides the default no-op logger.
func ServerWithLogger(l Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// ServerWithClock overrides the time source used for uptime reporting.
func ServerWithClock(clock func() time.Time) ServerOption {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

type nopFeedLogger struct{}

func (nopFeedLogger) Printf(string, ...any) {}

// NewServer constructs a spectator server over the given snapshot source.
func NewServer(settings Settings, snapshot SnapshotFunc, opts ...ServerOption) *Server {
	s := &Server{
		settings: settings,
		snapshot: snapshot,
		logger:   nopFeedLogger{},
		clock:    time.Now,
		status:   StatusStarting,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start binds the listener and serves in a background goroutine. It returns
// errServerDisabled when the settings leave the server off.
func (s *Server) Start() error {
	if !s.settings.Enabled {
		return errServerDisabled
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/scores", s.handleScores)

	listener, err := net.Listen("tcp", s.settings.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.server = &http.Server{Handler: mux}
	s.startTime = s.clock()
	s.status = StatusReady
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("feed: spectator server stopped: %v", err)
		}
	}()
	s.logger.Printf("feed: spectator server listening on %s", listener.Addr())
	return nil
}

// Shutdown drains the server. Safe to call when Start was skipped.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.status = StatusDraining
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return server.Shutdown(ctx)
}

// Addr returns the bound address, or empty before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Status returns the lifecycle state.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	payload := struct {
		Status ServerStatus `json:"status"`
		Uptime string       `json:"uptime"`
	}{
		Status: s.status,
		Uptime: s.clock().Sub(s.startTime).Round(time.Second).String(),
	}
	s.mu.RUnlock()
	writeJSON(w, payload)
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.snapshot == nil {
		http.Error(w, "no snapshot source", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.snapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
