// Package dashboard serves a real-time WebSocket feed of the local cache.
//
// The dashboard broadcasts catalog snapshots, team snapshots and sync run
// transitions to connected WebSocket clients, and exposes the Prometheus
// metrics of the process on /metrics.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/devmasterteam/pokecache/internal/logging"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypePokemonSnapshot carries the full cached catalog
	MessageTypePokemonSnapshot MessageType = "pokemon_snapshot"

	// MessageTypeTeamsSnapshot carries every team with its members
	MessageTypeTeamsSnapshot MessageType = "teams_snapshot"

	// MessageTypeSyncRun carries one synchronizer run transition
	MessageTypeSyncRun MessageType = "sync_run"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// isSnapshot reports whether new clients should receive the latest message
// of this type on connect.
func (t MessageType) isSnapshot() bool {
	return t == MessageTypePokemonSnapshot || t == MessageTypeTeamsSnapshot
}

const (
	writeTimeout = 5 * time.Second

	// clientQueue is how many messages a client may fall behind before it
	// is disconnected.
	clientQueue = 32
)

// client is one WebSocket connection with its own outgoing queue, so a
// slow reader never delays the others.
type client struct {
	conn  *websocket.Conn
	queue chan []byte
	once  sync.Once
}

func (c *client) close(code websocket.StatusCode, reason string) {
	c.once.Do(func() {
		close(c.queue)
		_ = c.conn.Close(code, reason)
	})
}

// Server fans dashboard messages out to WebSocket clients.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	metrics  http.Handler

	clients   map[*client]struct{}
	clientsMu sync.RWMutex

	// Latest snapshot per type, replayed to new clients
	latest   map[MessageType][]byte
	latestMu sync.Mutex

	broadcast chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *slog.Logger
}

// Config holds server configuration
type Config struct {
	// Port to listen on (default: 8080, 0 picks a free port)
	Port int

	// Logger for server activity (default: discard)
	Logger *slog.Logger

	// Metrics serves /metrics when set
	Metrics http.Handler
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port: 8080,
	}
}

// NewServer creates a dashboard server. Call Start to listen.
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      fmt.Sprintf(":%d", config.Port),
		metrics:   config.Metrics,
		clients:   make(map[*client]struct{}),
		latest:    make(map[MessageType][]byte),
		broadcast: make(chan []byte, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logging.Component(config.Logger, "dashboard"),
	}
}

// Handler returns the HTTP routes of the dashboard.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// Start listens on the configured port and serves Handler in the
// background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(2)
	go s.fanOut()
	go func() {
		defer s.wg.Done()
		logging.Info(s.logger, "dashboard server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(s.logger, "dashboard server failed", err)
		}
	}()
	return nil
}

// Stop disconnects every client and shuts the server down.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for c := range s.clients {
		c.close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, c)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()
	logging.Info(s.logger, "dashboard server stopped")
	return nil
}

// Broadcast queues msg for every connected client. Snapshot messages are
// also kept for clients that connect later. Messages are dropped with a
// warning when the queue is full.
func (s *Server) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error(s.logger, "failed to marshal message", err, "type", msg.Type)
		return
	}
	if msg.Type.isSnapshot() {
		s.latestMu.Lock()
		s.latest[msg.Type] = data
		s.latestMu.Unlock()
	}

	select {
	case s.broadcast <- data:
	case <-s.ctx.Done():
	default:
		logging.Warn(s.logger, "broadcast queue full, dropping message", "type", msg.Type)
	}
}

func (s *Server) fanOut() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case data := <-s.broadcast:
			var slow []*client
			s.clientsMu.RLock()
			for c := range s.clients {
				select {
				case c.queue <- data:
				default:
					slow = append(slow, c)
				}
			}
			s.clientsMu.RUnlock()

			for _, c := range slow {
				logging.Warn(s.logger, "client too slow, disconnecting")
				s.drop(c, websocket.StatusPolicyViolation, "too slow")
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logging.Warn(s.logger, "websocket upgrade failed", logging.FieldError, err)
		return
	}
	c := &client{conn: conn, queue: make(chan []byte, clientQueue)}

	// Queue the current state and join the fan-out under latestMu so no
	// snapshot falls between the two.
	s.latestMu.Lock()
	for _, typ := range []MessageType{MessageTypePokemonSnapshot, MessageTypeTeamsSnapshot} {
		if data, ok := s.latest[typ]; ok {
			c.queue <- data
		}
	}
	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	count := len(s.clients)
	s.clientsMu.Unlock()
	s.latestMu.Unlock()

	logging.Info(s.logger, "client connected", "clients", count)

	go s.writeLoop(c)
	s.readLoop(c)
}

// writeLoop drains the client's queue until it is closed.
func (s *Server) writeLoop(c *client) {
	for data := range c.queue {
		ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			logging.Debug(s.logger, "failed to write to client", logging.FieldError, err)
			s.drop(c, websocket.StatusInternalError, "")
			return
		}
	}
}

// readLoop blocks until the client goes away. Client messages are ignored.
func (s *Server) readLoop(c *client) {
	defer s.drop(c, websocket.StatusNormalClosure, "")
	for {
		if _, _, err := c.conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) drop(c *client, code websocket.StatusCode, reason string) {
	s.clientsMu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	count := len(s.clients)
	s.clientsMu.Unlock()

	c.close(code, reason)
	if ok {
		logging.Info(s.logger, "client disconnected", "clients", count)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>pokecache dashboard</title></head>
<body>
  <h1>pokecache dashboard</h1>
  <ul>
    <li>WebSocket: <code>ws://%s/ws</code></li>
    <li><a href="/health">/health</a></li>
    <li><a href="/metrics">/metrics</a></li>
  </ul>
</body>
</html>`, r.Host)
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
